package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/guardianswap/bridge-middleware/pkg/chainio"
	"github.com/guardianswap/bridge-middleware/pkg/orders"
)

// stepSpec binds one protocol stage to its transition edge and its on-chain
// call. Exactly one step per edge of the transition table.
type stepSpec struct {
	title       string
	description string
	chain       func(o *orders.BridgeOrder) string
	processing  orders.BridgeStatus
	confirmed   orders.BridgeStatus
	call        func(o *orders.BridgeOrder, contract common.Address) chainio.Call
}

var stepSpecs = []stepSpec{
	{
		title:       "Lock Tokens on Source Chain",
		description: "Securely locking tokens on the source chain",
		chain:       func(o *orders.BridgeOrder) string { return o.SourceChain },
		processing:  orders.BridgeStatusLocking,
		confirmed:   orders.BridgeStatusLocked,
		call: func(o *orders.BridgeOrder, contract common.Address) chainio.Call {
			return chainio.Call{
				Target: contract,
				Method: "initiateBridge",
				Args:   []any{o.SourceChain, o.TargetChain, o.Amount.String(), o.Recipient},
				Value:  big.NewInt(0),
			}
		},
	},
	{
		title:       "Cross-Chain Validation",
		description: "Validating transaction across chains",
		chain:       func(o *orders.BridgeOrder) string { return "bridge" },
		processing:  orders.BridgeStatusValidating,
		confirmed:   orders.BridgeStatusValidated,
		call: func(o *orders.BridgeOrder, contract common.Address) chainio.Call {
			return chainio.Call{
				Target: contract,
				Method: "validateBridge",
				Args:   []any{o.ID},
			}
		},
	},
	{
		title:       "Release on Destination",
		description: "Releasing tokens on destination chain",
		chain:       func(o *orders.BridgeOrder) string { return o.TargetChain },
		processing:  orders.BridgeStatusReleasing,
		confirmed:   orders.BridgeStatusCompleted,
		call: func(o *orders.BridgeOrder, contract common.Address) chainio.Call {
			return chainio.Call{
				Target: contract,
				Method: "completeBridge",
				Args:   []any{o.ID, o.Recipient},
			}
		},
	},
}

// newStepPlan materializes the step sequence for one order, all Pending.
func newStepPlan(order *orders.BridgeOrder) []orders.Step {
	plan := make([]orders.Step, len(stepSpecs))
	for i, spec := range stepSpecs {
		plan[i] = orders.Step{
			Sequence:    i + 1,
			Title:       spec.title,
			Description: spec.description,
			Status:      orders.StepStatusPending,
			Chain:       spec.chain(order),
		}
	}
	return plan
}
