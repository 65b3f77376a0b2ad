// Package chainio defines the contracts the orchestration core consumes for
// on-chain interaction. Implementations live elsewhere (pkg/evm, test doubles);
// the core only depends on these interfaces.
package chainio

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Session exposes the externally maintained wallet session state.
type Session interface {
	// Connected reports whether a wallet session is active.
	Connected() bool
	// Address returns the session address, if any.
	Address() (common.Address, bool)
}

// Call identifies one contract method invocation.
type Call struct {
	Target common.Address
	Method string
	Args   []any
	// Value is the native amount attached to the call, nil for none.
	Value *big.Int
}

// PendingTx is the handle returned by a Submitter once a transaction has been
// accepted for inclusion.
type PendingTx struct {
	Hash common.Hash
}

// Receipt carries the confirmation result of a mined transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// WaitStatus is the outcome of awaiting a pending transaction.
type WaitStatus int

const (
	WaitConfirmed WaitStatus = iota
	WaitTimedOut
	WaitReverted
)

func (s WaitStatus) String() string {
	switch s {
	case WaitConfirmed:
		return "confirmed"
	case WaitTimedOut:
		return "timed_out"
	case WaitReverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// WaitResult is the result of a Waiter.Await call. Receipt is non-nil only
// when Status is WaitConfirmed.
type WaitResult struct {
	Status  WaitStatus
	Receipt *Receipt
}

// Submitter submits transactions for inclusion. Submit returns an error for
// connectivity problems or outright rejection; acceptance yields a handle to
// await with a Waiter.
type Submitter interface {
	Submit(ctx context.Context, call Call) (PendingTx, error)
}

// Waiter awaits confirmation of a pending transaction, bounded by timeout.
// The returned error covers transport failures only; on-chain outcomes
// (confirmed, timed out, reverted) are reported through WaitResult.
type Waiter interface {
	Await(ctx context.Context, tx PendingTx, timeout time.Duration) (WaitResult, error)
}

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notifier is a fire-and-forget notification sink.
type Notifier interface {
	Notify(severity Severity, message string)
}

// Encrypter seals order amount fields so they stay non-cleartext until
// execution. The concrete scheme is opaque to the core.
type Encrypter interface {
	Seal(plaintext string) (string, error)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(Severity, string) {}

// PlainEncrypter passes amounts through unchanged. Development and test use
// only; production wires a real encryption provider.
type PlainEncrypter struct{}

func (PlainEncrypter) Seal(plaintext string) (string, error) { return plaintext, nil }

// StaticSession is a Session with fixed values, useful for tools and tests.
type StaticSession struct {
	IsConnected bool
	Addr        common.Address
}

func (s StaticSession) Connected() bool { return s.IsConnected }

func (s StaticSession) Address() (common.Address, bool) {
	if !s.IsConnected {
		return common.Address{}, false
	}
	return s.Addr, true
}
