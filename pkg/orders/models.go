package orders

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// BridgeStatus represents the current state of a bridge order
type BridgeStatus string

const (
	BridgeStatusCreated    BridgeStatus = "created"
	BridgeStatusLocking    BridgeStatus = "locking"
	BridgeStatusLocked     BridgeStatus = "locked"
	BridgeStatusValidating BridgeStatus = "validating"
	BridgeStatusValidated  BridgeStatus = "validated"
	BridgeStatusReleasing  BridgeStatus = "releasing"
	BridgeStatusCompleted  BridgeStatus = "completed"
	BridgeStatusFailed     BridgeStatus = "failed"
)

// Terminal reports whether the status is final. Terminal orders are immutable.
func (s BridgeStatus) Terminal() bool {
	return s == BridgeStatusCompleted || s == BridgeStatusFailed
}

// bridgeTransitions is the allowed-transition table. An edge absent here is
// an InvalidTransition; edges out of a terminal status are TerminalState.
var bridgeTransitions = map[BridgeStatus][]BridgeStatus{
	BridgeStatusCreated:    {BridgeStatusLocking, BridgeStatusFailed},
	BridgeStatusLocking:    {BridgeStatusLocked, BridgeStatusFailed},
	BridgeStatusLocked:     {BridgeStatusValidating, BridgeStatusFailed},
	BridgeStatusValidating: {BridgeStatusValidated, BridgeStatusFailed},
	BridgeStatusValidated:  {BridgeStatusReleasing, BridgeStatusFailed},
	BridgeStatusReleasing:  {BridgeStatusCompleted, BridgeStatusFailed},
}

// SwapStatus represents the current state of a swap order
type SwapStatus string

const (
	SwapStatusCreated             SwapStatus = "created"
	SwapStatusPendingConfirmation SwapStatus = "pending_confirmation"
	SwapStatusConfirmed           SwapStatus = "confirmed"
	SwapStatusFailed              SwapStatus = "failed"
)

// Terminal reports whether the swap status is final.
func (s SwapStatus) Terminal() bool {
	return s == SwapStatusFailed
}

// Confirmed→Failed exists only for failed execution of a confirmed order.
var swapTransitions = map[SwapStatus][]SwapStatus{
	SwapStatusCreated:             {SwapStatusPendingConfirmation, SwapStatusFailed},
	SwapStatusPendingConfirmation: {SwapStatusConfirmed, SwapStatusFailed},
	SwapStatusConfirmed:           {SwapStatusFailed},
}

// BridgeOrder is a request to move value from a source chain to a target
// chain via the lock/validate/release protocol.
type BridgeOrder struct {
	ID            string          `json:"id"`
	SourceChain   string          `json:"sourceChain"`
	TargetChain   string          `json:"targetChain"`
	Amount        decimal.Decimal `json:"amount"`
	Recipient     common.Address  `json:"recipient"`
	Status        BridgeStatus    `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	TxHash        *common.Hash    `json:"txHash,omitempty"`
	FailureReason *string         `json:"failureReason,omitempty"`
	// Deadline is set for orders tied to a swap order; nil otherwise.
	Deadline *time.Time `json:"deadline,omitempty"`
}

// SwapOrder is a request to exchange one token for another with amount
// fields sealed until execution.
type SwapOrder struct {
	ID                 string          `json:"id"`
	TokenIn            common.Address  `json:"tokenIn"`
	TokenOut           common.Address  `json:"tokenOut"`
	AmountIn           decimal.Decimal `json:"amountIn"`
	MinAmountOut       decimal.Decimal `json:"minAmountOut"`
	SealedAmountIn     string          `json:"-"`
	SealedMinAmountOut string          `json:"-"`
	Deadline           time.Time       `json:"deadline"`
	Status             SwapStatus      `json:"status"`
	CreatedAt          time.Time       `json:"createdAt"`
	TxHash             *common.Hash    `json:"txHash,omitempty"`
	ExecutionTxHash    *common.Hash    `json:"executionTxHash,omitempty"`
	FailureReason      *string         `json:"failureReason,omitempty"`
}

// StepStatus represents the state of one bridge step
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusProcessing StepStatus = "processing"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// Step is one sequentially ordered stage of the bridging protocol. Steps are
// ephemeral: they exist only while the parent order is in flight and are
// owned exclusively by the orchestrator run driving that order.
type Step struct {
	Sequence    int          `json:"sequence"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      StepStatus   `json:"status"`
	Chain       string       `json:"chain"`
	TxHash      *common.Hash `json:"txHash,omitempty"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}
