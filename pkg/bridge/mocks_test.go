package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/guardianswap/bridge-middleware/pkg/chainio"
)

// MockSubmitter is a mock implementation of chainio.Submitter
type MockSubmitter struct {
	mu         sync.Mutex
	SubmitFunc func(ctx context.Context, call chainio.Call) (chainio.PendingTx, error)
	calls      []chainio.Call
}

func (m *MockSubmitter) Submit(ctx context.Context, call chainio.Call) (chainio.PendingTx, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, call)
	}
	return chainio.PendingTx{}, nil
}

func (m *MockSubmitter) Calls() []chainio.Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]chainio.Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockWaiter is a mock implementation of chainio.Waiter
type MockWaiter struct {
	AwaitFunc func(ctx context.Context, tx chainio.PendingTx, timeout time.Duration) (chainio.WaitResult, error)
}

func (m *MockWaiter) Await(ctx context.Context, tx chainio.PendingTx, timeout time.Duration) (chainio.WaitResult, error) {
	if m.AwaitFunc != nil {
		return m.AwaitFunc(ctx, tx, timeout)
	}
	return chainio.WaitResult{Status: chainio.WaitConfirmed, Receipt: &chainio.Receipt{TxHash: tx.Hash}}, nil
}

// MockNotifier records notifications for inspection
type MockNotifier struct {
	mu       sync.Mutex
	messages []string
	severity []chainio.Severity
}

func (m *MockNotifier) Notify(severity chainio.Severity, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.severity = append(m.severity, severity)
	m.messages = append(m.messages, message)
}

func (m *MockNotifier) Last() (chainio.Severity, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return "", "", false
	}
	return m.severity[len(m.severity)-1], m.messages[len(m.messages)-1], true
}
