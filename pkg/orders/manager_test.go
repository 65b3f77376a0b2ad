package orders

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/guardianswap/bridge-middleware/pkg/app/errors"
	"github.com/guardianswap/bridge-middleware/pkg/chains"
	"github.com/guardianswap/bridge-middleware/pkg/config"
)

var (
	testRecipient = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testTokenIn   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTokenOut  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testTxHash    = common.HexToHash("0xabcdef")
)

// MockArchiver records archived orders for inspection.
type MockArchiver struct {
	mu                   sync.Mutex
	ArchiveBridgeFunc    func(ctx context.Context, order *BridgeOrder) error
	ArchiveSwapFunc      func(ctx context.Context, order *SwapOrder) error
	archivedBridgeOrders []string
	archivedSwapOrders   []string
}

func (m *MockArchiver) ArchiveBridgeOrder(ctx context.Context, order *BridgeOrder) error {
	m.mu.Lock()
	m.archivedBridgeOrders = append(m.archivedBridgeOrders, order.ID)
	m.mu.Unlock()
	if m.ArchiveBridgeFunc != nil {
		return m.ArchiveBridgeFunc(ctx, order)
	}
	return nil
}

func (m *MockArchiver) ArchiveSwapOrder(ctx context.Context, order *SwapOrder) error {
	m.mu.Lock()
	m.archivedSwapOrders = append(m.archivedSwapOrders, order.ID)
	m.mu.Unlock()
	if m.ArchiveSwapFunc != nil {
		return m.ArchiveSwapFunc(ctx, order)
	}
	return nil
}

func newTestManager() *Manager {
	registry := chains.NewRegistry(config.DefaultChains())
	return NewManager(registry, nil, zap.NewNop())
}

func validBridgeRequest() CreateBridgeRequest {
	return CreateBridgeRequest{
		SourceChain: "ethereum",
		TargetChain: "polygon",
		Amount:      decimal.NewFromInt(100),
		Recipient:   testRecipient,
	}
}

func validSwapRequest() CreateSwapRequest {
	return CreateSwapRequest{
		TokenIn:            testTokenIn,
		TokenOut:           testTokenOut,
		AmountIn:           decimal.NewFromInt(50),
		MinAmountOut:       decimal.NewFromInt(49),
		SealedAmountIn:     "sealed-50",
		SealedMinAmountOut: "sealed-49",
		Deadline:           time.Now().Add(time.Hour),
	}
}

func TestManager_CreateBridge(t *testing.T) {
	m := newTestManager()

	order, err := m.CreateBridge(validBridgeRequest())
	if err != nil {
		t.Fatalf("CreateBridge failed: %v", err)
	}
	if order.Status != BridgeStatusCreated {
		t.Errorf("Expected status created, got %s", order.Status)
	}
	if !strings.HasPrefix(order.ID, "bridge_") {
		t.Errorf("Expected id with bridge_ prefix, got %s", order.ID)
	}
	if order.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	got, err := m.GetBridge(order.ID)
	if err != nil {
		t.Fatalf("GetBridge failed: %v", err)
	}
	if got.ID != order.ID {
		t.Errorf("Expected id %s, got %s", order.ID, got.ID)
	}
}

func TestManager_CreateBridge_Validation(t *testing.T) {
	m := newTestManager()

	cases := []struct {
		name    string
		mutate  func(*CreateBridgeRequest)
		wantCat apperrors.Category
	}{
		{"zero amount", func(r *CreateBridgeRequest) { r.Amount = decimal.Zero }, apperrors.CategoryValidation},
		{"negative amount", func(r *CreateBridgeRequest) { r.Amount = decimal.NewFromInt(-1) }, apperrors.CategoryValidation},
		{"zero recipient", func(r *CreateBridgeRequest) { r.Recipient = common.Address{} }, apperrors.CategoryValidation},
		{"unknown source", func(r *CreateBridgeRequest) { r.SourceChain = "solana" }, apperrors.CategoryUnsupportedChain},
		{"self bridge", func(r *CreateBridgeRequest) { r.TargetChain = "ethereum" }, apperrors.CategoryUnsupportedChain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validBridgeRequest()
			tc.mutate(&req)
			_, err := m.CreateBridge(req)
			if !apperrors.Is(err, tc.wantCat) {
				t.Errorf("Expected %s, got %v", tc.wantCat, err)
			}
		})
	}

	// Validation failures must not leave partial orders behind.
	if n := len(m.ListBridges()); n != 0 {
		t.Errorf("Expected no orders after failed creates, got %d", n)
	}
}

func TestManager_CreateBridge_ConcurrentUniqueIDs(t *testing.T) {
	m := newTestManager()

	const n = 100
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := m.CreateBridge(validBridgeRequest())
			if err != nil {
				t.Errorf("CreateBridge failed: %v", err)
				return
			}
			ids <- order.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("Duplicate order id: %s", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("Expected %d unique ids, got %d", n, len(seen))
	}
}

func TestManager_UpdateBridgeStatus_HappyPath(t *testing.T) {
	m := newTestManager()
	order, _ := m.CreateBridge(validBridgeRequest())

	sequence := []BridgeStatus{
		BridgeStatusLocking, BridgeStatusLocked,
		BridgeStatusValidating, BridgeStatusValidated,
		BridgeStatusReleasing,
	}
	for _, status := range sequence {
		if _, err := m.UpdateBridgeStatus(order.ID, status, BridgeUpdate{}); err != nil {
			t.Fatalf("Transition to %s failed: %v", status, err)
		}
	}

	final, err := m.UpdateBridgeStatus(order.ID, BridgeStatusCompleted, BridgeUpdate{TxHash: &testTxHash})
	if err != nil {
		t.Fatalf("Transition to completed failed: %v", err)
	}
	if final.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set")
	}
	if final.TxHash == nil || *final.TxHash != testTxHash {
		t.Error("Expected recorded tx hash")
	}
}

func TestManager_UpdateBridgeStatus_RejectsSkips(t *testing.T) {
	m := newTestManager()
	order, _ := m.CreateBridge(validBridgeRequest())

	_, err := m.UpdateBridgeStatus(order.ID, BridgeStatusLocked, BridgeUpdate{})
	if !apperrors.Is(err, apperrors.CategoryInvalidTransition) {
		t.Errorf("Expected InvalidTransition for created->locked, got %v", err)
	}
	_, err = m.UpdateBridgeStatus(order.ID, BridgeStatusCompleted, BridgeUpdate{TxHash: &testTxHash})
	if !apperrors.Is(err, apperrors.CategoryInvalidTransition) {
		t.Errorf("Expected InvalidTransition for created->completed, got %v", err)
	}

	// Rejected transitions leave the order untouched.
	got, _ := m.GetBridge(order.ID)
	if got.Status != BridgeStatusCreated {
		t.Errorf("Expected status created, got %s", got.Status)
	}
}

func TestManager_UpdateBridgeStatus_CompletedRequiresTxHash(t *testing.T) {
	m := newTestManager()
	order, _ := m.CreateBridge(validBridgeRequest())
	for _, status := range []BridgeStatus{
		BridgeStatusLocking, BridgeStatusLocked,
		BridgeStatusValidating, BridgeStatusValidated,
		BridgeStatusReleasing,
	} {
		m.UpdateBridgeStatus(order.ID, status, BridgeUpdate{})
	}

	_, err := m.UpdateBridgeStatus(order.ID, BridgeStatusCompleted, BridgeUpdate{})
	if !apperrors.Is(err, apperrors.CategoryValidation) {
		t.Errorf("Expected Validation error without tx hash, got %v", err)
	}
}

func TestManager_UpdateBridgeStatus_TerminalIsImmutable(t *testing.T) {
	m := newTestManager()
	order, _ := m.CreateBridge(validBridgeRequest())

	if _, err := m.UpdateBridgeStatus(order.ID, BridgeStatusFailed, BridgeUpdate{Reason: "submission rejected"}); err != nil {
		t.Fatalf("Transition to failed failed: %v", err)
	}

	_, err := m.UpdateBridgeStatus(order.ID, BridgeStatusLocking, BridgeUpdate{})
	if !apperrors.Is(err, apperrors.CategoryTerminalState) {
		t.Errorf("Expected TerminalState, got %v", err)
	}
	_, err = m.UpdateBridgeStatus(order.ID, BridgeStatusFailed, BridgeUpdate{Reason: "again"})
	if !apperrors.Is(err, apperrors.CategoryTerminalState) {
		t.Errorf("Expected TerminalState on repeated fail, got %v", err)
	}

	got, _ := m.GetBridge(order.ID)
	if got.FailureReason == nil || *got.FailureReason != "submission rejected" {
		t.Error("Expected original failure reason to be preserved")
	}
}

func TestManager_UpdateBridgeStatus_FailedRequiresReason(t *testing.T) {
	m := newTestManager()
	order, _ := m.CreateBridge(validBridgeRequest())

	_, err := m.UpdateBridgeStatus(order.ID, BridgeStatusFailed, BridgeUpdate{})
	if !apperrors.Is(err, apperrors.CategoryValidation) {
		t.Errorf("Expected Validation error without reason, got %v", err)
	}
}

func TestManager_GetBridge_NotFound(t *testing.T) {
	m := newTestManager()
	_, err := m.GetBridge("bridge_missing")
	if !apperrors.Is(err, apperrors.CategoryNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestManager_GetBridge_ReturnsSnapshot(t *testing.T) {
	m := newTestManager()
	order, _ := m.CreateBridge(validBridgeRequest())

	snap, _ := m.GetBridge(order.ID)
	snap.Status = BridgeStatusCompleted
	snap.SourceChain = "mutated"

	got, _ := m.GetBridge(order.ID)
	if got.Status != BridgeStatusCreated || got.SourceChain != "ethereum" {
		t.Error("Mutating a snapshot affected manager state")
	}
}

func TestManager_ArchivesTerminalBridgeOrders(t *testing.T) {
	registry := chains.NewRegistry(config.DefaultChains())
	archiver := &MockArchiver{}
	m := NewManager(registry, archiver, zap.NewNop())

	order, _ := m.CreateBridge(validBridgeRequest())
	m.UpdateBridgeStatus(order.ID, BridgeStatusFailed, BridgeUpdate{Reason: "timeout"})

	// Archive write is fire and forget.
	deadline := time.Now().Add(2 * time.Second)
	for {
		archiver.mu.Lock()
		n := len(archiver.archivedBridgeOrders)
		archiver.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Terminal order was never archived")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManager_CreateSwap_Validation(t *testing.T) {
	m := newTestManager()

	cases := []struct {
		name   string
		mutate func(*CreateSwapRequest)
	}{
		{"same tokens", func(r *CreateSwapRequest) { r.TokenOut = r.TokenIn }},
		{"zero amountIn", func(r *CreateSwapRequest) { r.AmountIn = decimal.Zero }},
		{"negative minAmountOut", func(r *CreateSwapRequest) { r.MinAmountOut = decimal.NewFromInt(-1) }},
		{"past deadline", func(r *CreateSwapRequest) { r.Deadline = time.Now().Add(-time.Minute) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validSwapRequest()
			tc.mutate(&req)
			_, err := m.CreateSwap(req)
			if !apperrors.Is(err, apperrors.CategoryValidation) {
				t.Errorf("Expected Validation error, got %v", err)
			}
		})
	}
}

func TestManager_SwapLifecycle(t *testing.T) {
	m := newTestManager()
	order, err := m.CreateSwap(validSwapRequest())
	if err != nil {
		t.Fatalf("CreateSwap failed: %v", err)
	}
	if !strings.HasPrefix(order.ID, "swap_") {
		t.Errorf("Expected id with swap_ prefix, got %s", order.ID)
	}

	if _, err := m.UpdateSwapStatus(order.ID, SwapStatusPendingConfirmation, SwapUpdate{}); err != nil {
		t.Fatalf("Transition to pending_confirmation failed: %v", err)
	}
	confirmed, err := m.UpdateSwapStatus(order.ID, SwapStatusConfirmed, SwapUpdate{TxHash: &testTxHash})
	if err != nil {
		t.Fatalf("Transition to confirmed failed: %v", err)
	}
	if confirmed.TxHash == nil || *confirmed.TxHash != testTxHash {
		t.Error("Expected recorded tx hash")
	}

	// Confirmed is not terminal: execution may still be recorded.
	execHash := common.HexToHash("0xfeed")
	executed, err := m.RecordSwapExecution(order.ID, execHash)
	if err != nil {
		t.Fatalf("RecordSwapExecution failed: %v", err)
	}
	if executed.Status != SwapStatusConfirmed {
		t.Errorf("Expected status confirmed after execution, got %s", executed.Status)
	}
	if executed.ExecutionTxHash == nil || *executed.ExecutionTxHash != execHash {
		t.Error("Expected recorded execution tx hash")
	}
}

func TestManager_RecordSwapExecution_RequiresConfirmed(t *testing.T) {
	m := newTestManager()
	order, _ := m.CreateSwap(validSwapRequest())

	_, err := m.RecordSwapExecution(order.ID, testTxHash)
	if !apperrors.Is(err, apperrors.CategoryInvalidTransition) {
		t.Errorf("Expected InvalidTransition for created order, got %v", err)
	}
}

func TestManager_UpdateSwapStatus_FailedIsTerminal(t *testing.T) {
	m := newTestManager()
	order, _ := m.CreateSwap(validSwapRequest())

	m.UpdateSwapStatus(order.ID, SwapStatusFailed, SwapUpdate{Reason: "submission rejected"})

	_, err := m.UpdateSwapStatus(order.ID, SwapStatusConfirmed, SwapUpdate{})
	if !apperrors.Is(err, apperrors.CategoryTerminalState) {
		t.Errorf("Expected TerminalState, got %v", err)
	}
}
