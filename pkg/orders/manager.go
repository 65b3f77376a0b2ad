// Package orders owns the order table for both order kinds. The Manager is
// the sole mutator of order state and enforces the allowed-transition tables.
package orders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/guardianswap/bridge-middleware/pkg/app/errors"
	"github.com/guardianswap/bridge-middleware/pkg/chains"
)

const idSuffixLength = 8

// archiveTimeout bounds the best-effort archive write for a terminal order.
const archiveTimeout = 10 * time.Second

// Archiver persists terminal orders. Implementations must be safe for
// concurrent use; failures are logged, never surfaced to callers.
type Archiver interface {
	ArchiveBridgeOrder(ctx context.Context, order *BridgeOrder) error
	ArchiveSwapOrder(ctx context.Context, order *SwapOrder) error
}

// CreateBridgeRequest carries the fields needed to create a bridge order.
type CreateBridgeRequest struct {
	SourceChain string
	TargetChain string
	Amount      decimal.Decimal
	Recipient   common.Address
	// Deadline ties the order to a swap deadline; zero means none.
	Deadline *time.Time
}

// CreateSwapRequest carries the fields needed to create a swap order.
type CreateSwapRequest struct {
	TokenIn            common.Address
	TokenOut           common.Address
	AmountIn           decimal.Decimal
	MinAmountOut       decimal.Decimal
	SealedAmountIn     string
	SealedMinAmountOut string
	Deadline           time.Time
}

// BridgeUpdate carries the per-state fields of a bridge status change.
// Completed requires TxHash; Failed requires Reason.
type BridgeUpdate struct {
	TxHash *common.Hash
	Reason string
}

// SwapUpdate carries the per-state fields of a swap status change.
type SwapUpdate struct {
	TxHash          *common.Hash
	ExecutionTxHash *common.Hash
	Reason          string
}

type bridgeEntry struct {
	mu    sync.Mutex
	order *BridgeOrder
}

type swapEntry struct {
	mu    sync.Mutex
	order *SwapOrder
}

// Manager owns the order table. The table lock guards only entry
// lookup/insert; per-order updates serialize on the entry mutex, so updates
// for distinct ids never contend and no lock is held across a bridging run.
type Manager struct {
	mu        sync.RWMutex
	bridges   map[string]*bridgeEntry
	bridgeIDs []string
	swaps     map[string]*swapEntry
	swapIDs   []string

	registry *chains.Registry
	archiver Archiver
	logger   *zap.Logger
}

// NewManager creates a new order manager. archiver may be nil to disable the
// terminal-order archive.
func NewManager(registry *chains.Registry, archiver Archiver, logger *zap.Logger) *Manager {
	return &Manager{
		bridges:  make(map[string]*bridgeEntry),
		swaps:    make(map[string]*swapEntry),
		registry: registry,
		archiver: archiver,
		logger:   logger,
	}
}

// CreateBridge validates the request and inserts a new order with status
// Created. Validation failures leave the table untouched.
func (m *Manager) CreateBridge(req CreateBridgeRequest) (*BridgeOrder, error) {
	if !req.Amount.IsPositive() {
		return nil, apperrors.ValidationError(nil, "amount must be positive")
	}
	if req.Recipient == (common.Address{}) {
		return nil, apperrors.ValidationError(nil, "recipient is required")
	}
	if err := m.registry.ValidatePair(req.SourceChain, req.TargetChain); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &BridgeOrder{
		SourceChain: req.SourceChain,
		TargetChain: req.TargetChain,
		Amount:      req.Amount,
		Recipient:   req.Recipient,
		Status:      BridgeStatusCreated,
		CreatedAt:   now,
		Deadline:    req.Deadline,
	}

	m.mu.Lock()
	order.ID = m.uniqueIDLocked("bridge", now, func(id string) bool {
		_, taken := m.bridges[id]
		return taken
	})
	m.bridges[order.ID] = &bridgeEntry{order: order}
	m.bridgeIDs = append(m.bridgeIDs, order.ID)
	m.mu.Unlock()

	m.logger.Info("Bridge order created",
		zap.String("id", order.ID),
		zap.String("source_chain", order.SourceChain),
		zap.String("target_chain", order.TargetChain),
		zap.String("amount", order.Amount.String()))

	return cloneBridge(order), nil
}

// GetBridge returns a snapshot of the order with the given id.
func (m *Manager) GetBridge(id string) (*BridgeOrder, error) {
	entry, err := m.bridgeEntry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneBridge(entry.order), nil
}

// ListBridges returns snapshots of all bridge orders in creation order.
func (m *Manager) ListBridges() []*BridgeOrder {
	m.mu.RLock()
	entries := make([]*bridgeEntry, 0, len(m.bridgeIDs))
	for _, id := range m.bridgeIDs {
		entries = append(entries, m.bridges[id])
	}
	m.mu.RUnlock()

	out := make([]*BridgeOrder, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		out = append(out, cloneBridge(entry.order))
		entry.mu.Unlock()
	}
	return out
}

// UpdateBridgeStatus is the sole mutation entry point for bridge orders. It
// enforces the transition table and the per-state field requirements, and
// hands terminal orders to the archiver.
func (m *Manager) UpdateBridgeStatus(id string, status BridgeStatus, update BridgeUpdate) (*BridgeOrder, error) {
	entry, err := m.bridgeEntry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	order := entry.order
	if order.Status.Terminal() {
		return nil, apperrors.TerminalStateError(fmt.Sprintf("order %s is already %s", id, order.Status))
	}
	if !transitionAllowed(bridgeTransitions[order.Status], status) {
		return nil, apperrors.InvalidTransitionError(nil,
			fmt.Sprintf("cannot transition order %s from %s to %s", id, order.Status, status))
	}

	switch status {
	case BridgeStatusCompleted:
		if update.TxHash == nil {
			return nil, apperrors.ValidationError(nil, "completed status requires a transaction hash")
		}
		now := time.Now().UTC()
		order.CompletedAt = &now
		order.TxHash = update.TxHash
	case BridgeStatusFailed:
		if update.Reason == "" {
			return nil, apperrors.ValidationError(nil, "failed status requires a reason")
		}
		reason := update.Reason
		order.FailureReason = &reason
		if update.TxHash != nil {
			order.TxHash = update.TxHash
		}
	default:
		if update.TxHash != nil {
			order.TxHash = update.TxHash
		}
	}
	order.Status = status

	m.logger.Info("Bridge order status updated",
		zap.String("id", id),
		zap.String("status", string(status)))

	if status.Terminal() {
		m.archiveBridge(cloneBridge(order))
	}
	return cloneBridge(order), nil
}

// CreateSwap validates the request and inserts a new swap order with status
// Created.
func (m *Manager) CreateSwap(req CreateSwapRequest) (*SwapOrder, error) {
	if req.TokenIn == req.TokenOut {
		return nil, apperrors.ValidationError(nil, "tokenIn and tokenOut must differ")
	}
	if !req.AmountIn.IsPositive() {
		return nil, apperrors.ValidationError(nil, "amountIn must be positive")
	}
	if req.MinAmountOut.IsNegative() {
		return nil, apperrors.ValidationError(nil, "minAmountOut must not be negative")
	}
	now := time.Now().UTC()
	if !req.Deadline.After(now) {
		return nil, apperrors.ValidationError(nil, "deadline must be in the future")
	}

	order := &SwapOrder{
		TokenIn:            req.TokenIn,
		TokenOut:           req.TokenOut,
		AmountIn:           req.AmountIn,
		MinAmountOut:       req.MinAmountOut,
		SealedAmountIn:     req.SealedAmountIn,
		SealedMinAmountOut: req.SealedMinAmountOut,
		Deadline:           req.Deadline,
		Status:             SwapStatusCreated,
		CreatedAt:          now,
	}

	m.mu.Lock()
	order.ID = m.uniqueIDLocked("swap", now, func(id string) bool {
		_, taken := m.swaps[id]
		return taken
	})
	m.swaps[order.ID] = &swapEntry{order: order}
	m.swapIDs = append(m.swapIDs, order.ID)
	m.mu.Unlock()

	m.logger.Info("Swap order created",
		zap.String("id", order.ID),
		zap.String("token_in", order.TokenIn.Hex()),
		zap.String("token_out", order.TokenOut.Hex()))

	return cloneSwap(order), nil
}

// GetSwap returns a snapshot of the swap order with the given id.
func (m *Manager) GetSwap(id string) (*SwapOrder, error) {
	entry, err := m.swapEntry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneSwap(entry.order), nil
}

// ListSwaps returns snapshots of all swap orders in creation order.
func (m *Manager) ListSwaps() []*SwapOrder {
	m.mu.RLock()
	entries := make([]*swapEntry, 0, len(m.swapIDs))
	for _, id := range m.swapIDs {
		entries = append(entries, m.swaps[id])
	}
	m.mu.RUnlock()

	out := make([]*SwapOrder, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		out = append(out, cloneSwap(entry.order))
		entry.mu.Unlock()
	}
	return out
}

// UpdateSwapStatus is the sole mutation entry point for swap orders.
func (m *Manager) UpdateSwapStatus(id string, status SwapStatus, update SwapUpdate) (*SwapOrder, error) {
	entry, err := m.swapEntry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	order := entry.order
	if order.Status.Terminal() {
		return nil, apperrors.TerminalStateError(fmt.Sprintf("swap order %s is already %s", id, order.Status))
	}
	if !transitionAllowed(swapTransitions[order.Status], status) {
		return nil, apperrors.InvalidTransitionError(nil,
			fmt.Sprintf("cannot transition swap order %s from %s to %s", id, order.Status, status))
	}

	if status == SwapStatusFailed {
		if update.Reason == "" {
			return nil, apperrors.ValidationError(nil, "failed status requires a reason")
		}
		reason := update.Reason
		order.FailureReason = &reason
	}
	if update.TxHash != nil {
		order.TxHash = update.TxHash
	}
	if update.ExecutionTxHash != nil {
		order.ExecutionTxHash = update.ExecutionTxHash
	}
	order.Status = status

	m.logger.Info("Swap order status updated",
		zap.String("id", id),
		zap.String("status", string(status)))

	if status.Terminal() {
		m.archiveSwap(cloneSwap(order))
	}
	return cloneSwap(order), nil
}

// RecordSwapExecution records the execution transaction hash of a confirmed
// swap order without a status change.
func (m *Manager) RecordSwapExecution(id string, txHash common.Hash) (*SwapOrder, error) {
	entry, err := m.swapEntry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	order := entry.order
	if order.Status != SwapStatusConfirmed {
		return nil, apperrors.InvalidTransitionError(nil,
			fmt.Sprintf("swap order %s is %s, execution requires confirmed", id, order.Status))
	}
	order.ExecutionTxHash = &txHash

	m.logger.Info("Swap execution recorded",
		zap.String("id", id),
		zap.String("tx_hash", txHash.Hex()))

	return cloneSwap(order), nil
}

func (m *Manager) bridgeEntry(id string) (*bridgeEntry, error) {
	m.mu.RLock()
	entry, ok := m.bridges[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFoundError(nil, "bridge order not found: "+id)
	}
	return entry, nil
}

func (m *Manager) swapEntry(id string) (*swapEntry, error) {
	m.mu.RLock()
	entry, ok := m.swaps[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFoundError(nil, "swap order not found: "+id)
	}
	return entry, nil
}

// uniqueIDLocked allocates a time-prefixed id with a random suffix, checking
// for collisions before handing it out. Caller holds the table lock.
func (m *Manager) uniqueIDLocked(prefix string, now time.Time, taken func(string) bool) string {
	for {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:idSuffixLength]
		id := fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
		if !taken(id) {
			return id
		}
	}
}

func (m *Manager) archiveBridge(order *BridgeOrder) {
	if m.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := m.archiver.ArchiveBridgeOrder(ctx, order); err != nil {
			m.logger.Error("Failed to archive bridge order",
				zap.String("id", order.ID), zap.Error(err))
		}
	}()
}

func (m *Manager) archiveSwap(order *SwapOrder) {
	if m.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := m.archiver.ArchiveSwapOrder(ctx, order); err != nil {
			m.logger.Error("Failed to archive swap order",
				zap.String("id", order.ID), zap.Error(err))
		}
	}()
}

func transitionAllowed[S comparable](allowed []S, target S) bool {
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}
