package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/guardianswap/bridge-middleware/pkg/app/errors"
	"github.com/guardianswap/bridge-middleware/pkg/chainio"
	"github.com/guardianswap/bridge-middleware/pkg/chains"
	"github.com/guardianswap/bridge-middleware/pkg/config"
	"github.com/guardianswap/bridge-middleware/pkg/orders"
)

var (
	swapContract = common.HexToAddress("0x5555555555555555555555555555555555555555")
	sessionAddr  = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

func newTestService(submitter chainio.Submitter, waiter chainio.Waiter) (*Service, *orders.Manager) {
	m := orders.NewManager(chains.NewRegistry(config.DefaultChains()), nil, zap.NewNop())
	svc := NewService(
		m,
		chainio.StaticSession{IsConnected: true, Addr: sessionAddr},
		submitter,
		waiter,
		nil,
		&MockEncrypter{},
		swapContract,
		time.Second,
		zap.NewNop(),
	)
	return svc, m
}

func validCreateRequest() CreateRequest {
	return CreateRequest{
		TokenIn:      common.HexToAddress("0x2222222222222222222222222222222222222222"),
		TokenOut:     common.HexToAddress("0x3333333333333333333333333333333333333333"),
		AmountIn:     decimal.NewFromInt(50),
		MinAmountOut: decimal.NewFromInt(49),
		Deadline:     time.Now().Add(time.Hour),
	}
}

// waitForStatus polls until the order reaches the status or the deadline hits.
func waitForStatus(t *testing.T, m *orders.Manager, id string, want orders.SwapStatus) *orders.SwapOrder {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		order, err := m.GetSwap(id)
		if err != nil {
			t.Fatalf("GetSwap failed: %v", err)
		}
		if order.Status == want {
			return order
		}
		if time.Now().After(deadline) {
			t.Fatalf("Order never reached %s, stuck at %s", want, order.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_Create_ConfirmsAsynchronously(t *testing.T) {
	submitter := &MockSubmitter{
		SubmitFunc: func(context.Context, chainio.Call) (chainio.PendingTx, error) {
			return chainio.PendingTx{Hash: common.HexToHash("0xcafe")}, nil
		},
	}
	svc, m := newTestService(submitter, &MockWaiter{})

	order, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if order.Status != orders.SwapStatusCreated {
		t.Errorf("Expected created on return, got %s", order.Status)
	}
	if order.SealedAmountIn != "sealed:50" {
		t.Errorf("Expected sealed amount, got %q", order.SealedAmountIn)
	}
	if order.SealedMinAmountOut != "sealed:49" {
		t.Errorf("Expected sealed min amount, got %q", order.SealedMinAmountOut)
	}

	confirmed := waitForStatus(t, m, order.ID, orders.SwapStatusConfirmed)
	if confirmed.TxHash == nil || *confirmed.TxHash != common.HexToHash("0xcafe") {
		t.Error("Expected confirmation tx hash")
	}

	calls := submitter.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 submission, got %d", len(calls))
	}
	if calls[0].Method != "createSwapOrder" {
		t.Errorf("Expected createSwapOrder, got %s", calls[0].Method)
	}
	if calls[0].Target != swapContract {
		t.Error("Expected swap contract target")
	}
}

func TestService_Create_PastDeadline_NoSubmission(t *testing.T) {
	submitter := &MockSubmitter{}
	svc, m := newTestService(submitter, &MockWaiter{})

	req := validCreateRequest()
	req.Deadline = time.Now().Add(-time.Minute)

	_, err := svc.Create(context.Background(), req)
	if !apperrors.Is(err, apperrors.CategoryValidation) {
		t.Fatalf("Expected Validation error, got %v", err)
	}

	// Validation failures are fully synchronous: nothing submitted, nothing stored.
	if n := submitter.CallCount(); n != 0 {
		t.Errorf("Expected 0 submissions for invalid request, got %d", n)
	}
	if n := len(m.ListSwaps()); n != 0 {
		t.Errorf("Expected no stored orders, got %d", n)
	}
}

func TestService_Create_NotConnected(t *testing.T) {
	m := orders.NewManager(chains.NewRegistry(config.DefaultChains()), nil, zap.NewNop())
	submitter := &MockSubmitter{}
	svc := NewService(
		m,
		chainio.StaticSession{IsConnected: false},
		submitter,
		&MockWaiter{},
		nil,
		&MockEncrypter{},
		swapContract,
		time.Second,
		zap.NewNop(),
	)

	_, err := svc.Create(context.Background(), validCreateRequest())
	if !apperrors.Is(err, apperrors.CategoryNotConnected) {
		t.Fatalf("Expected NotConnected, got %v", err)
	}
	if n := submitter.CallCount(); n != 0 {
		t.Errorf("Expected 0 submissions without a session, got %d", n)
	}
}

func TestService_Create_SubmissionFailureFailsOrder(t *testing.T) {
	submitter := &MockSubmitter{
		SubmitFunc: func(context.Context, chainio.Call) (chainio.PendingTx, error) {
			return chainio.PendingTx{}, errors.New("rpc unavailable")
		},
	}
	svc, m := newTestService(submitter, &MockWaiter{})

	order, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	failed := waitForStatus(t, m, order.ID, orders.SwapStatusFailed)
	if failed.FailureReason == nil || *failed.FailureReason != "transaction submission rejected" {
		t.Errorf("Expected submission failure reason, got %v", failed.FailureReason)
	}
}

func TestService_Create_TimeoutFailsOrder(t *testing.T) {
	waiter := &MockWaiter{
		AwaitFunc: func(context.Context, chainio.PendingTx, time.Duration) (chainio.WaitResult, error) {
			return chainio.WaitResult{Status: chainio.WaitTimedOut}, nil
		},
	}
	svc, m := newTestService(&MockSubmitter{}, waiter)

	order, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	waitForStatus(t, m, order.ID, orders.SwapStatusFailed)
}

func TestService_Execute_RecordsExecution(t *testing.T) {
	submitter := &MockSubmitter{
		SubmitFunc: func(_ context.Context, call chainio.Call) (chainio.PendingTx, error) {
			if call.Method == "executeSwap" {
				return chainio.PendingTx{Hash: common.HexToHash("0xfeed")}, nil
			}
			return chainio.PendingTx{Hash: common.HexToHash("0xcafe")}, nil
		},
	}
	svc, m := newTestService(submitter, &MockWaiter{})

	order, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	waitForStatus(t, m, order.ID, orders.SwapStatusConfirmed)

	if _, err := svc.Execute(context.Background(), order.ID); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// Execution keeps the order confirmed and records the execution hash.
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := m.GetSwap(order.ID)
		if got.ExecutionTxHash != nil {
			if *got.ExecutionTxHash != common.HexToHash("0xfeed") {
				t.Errorf("Expected execution hash 0xfeed, got %s", got.ExecutionTxHash.Hex())
			}
			if got.Status != orders.SwapStatusConfirmed {
				t.Errorf("Expected confirmed after execution, got %s", got.Status)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Execution hash never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_Execute_RequiresConfirmed(t *testing.T) {
	submitter := &MockSubmitter{
		SubmitFunc: func(context.Context, chainio.Call) (chainio.PendingTx, error) {
			// Keep the creation await pending so the order stays unconfirmed.
			return chainio.PendingTx{}, errors.New("rejected")
		},
	}
	svc, m := newTestService(submitter, &MockWaiter{})

	order, _ := svc.Create(context.Background(), validCreateRequest())
	waitForStatus(t, m, order.ID, orders.SwapStatusFailed)

	_, err := svc.Execute(context.Background(), order.ID)
	if !apperrors.Is(err, apperrors.CategoryTerminalState) {
		t.Errorf("Expected TerminalState for failed order, got %v", err)
	}
}

func TestService_Execute_ExpiredDeadline(t *testing.T) {
	submitter := &MockSubmitter{}
	svc, m := newTestService(submitter, &MockWaiter{})

	req := validCreateRequest()
	req.Deadline = time.Now().Add(50 * time.Millisecond)

	order, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	waitForStatus(t, m, order.ID, orders.SwapStatusConfirmed)

	// Let the deadline elapse before execution.
	time.Sleep(60 * time.Millisecond)
	preCalls := submitter.CallCount()

	_, err = svc.Execute(context.Background(), order.ID)
	if !apperrors.Is(err, apperrors.CategoryExpired) {
		t.Fatalf("Expected Expired, got %v", err)
	}
	if submitter.CallCount() != preCalls {
		t.Error("Expected no execution submission past the deadline")
	}

	got, _ := m.GetSwap(order.ID)
	if got.Status != orders.SwapStatusFailed {
		t.Errorf("Expected failed after expired execution attempt, got %s", got.Status)
	}
}

func TestService_Execute_NotFound(t *testing.T) {
	svc, _ := newTestService(&MockSubmitter{}, &MockWaiter{})
	_, err := svc.Execute(context.Background(), "swap_missing")
	if !apperrors.Is(err, apperrors.CategoryNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestService_Create_SealFailure(t *testing.T) {
	m := orders.NewManager(chains.NewRegistry(config.DefaultChains()), nil, zap.NewNop())
	submitter := &MockSubmitter{}
	svc := NewService(
		m,
		chainio.StaticSession{IsConnected: true, Addr: sessionAddr},
		submitter,
		&MockWaiter{},
		nil,
		&MockEncrypter{SealFunc: func(string) (string, error) { return "", errors.New("hsm offline") }},
		swapContract,
		time.Second,
		zap.NewNop(),
	)

	_, err := svc.Create(context.Background(), validCreateRequest())
	if !apperrors.Is(err, apperrors.CategoryInternal) {
		t.Fatalf("Expected Internal error, got %v", err)
	}
	if n := submitter.CallCount(); n != 0 {
		t.Errorf("Expected 0 submissions when sealing fails, got %d", n)
	}
	if n := len(m.ListSwaps()); n != 0 {
		t.Errorf("Expected no stored orders when sealing fails, got %d", n)
	}
}
