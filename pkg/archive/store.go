// Package archive persists terminal orders to postgres for audit and
// reporting. The in-memory order table stays authoritative; archive writes
// are best effort.
package archive

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/guardianswap/bridge-middleware/pkg/orders"
)

const (
	kindBridge = "bridge"
	kindSwap   = "swap"
)

// Store writes terminal orders to the archive database.
type Store struct {
	db *bun.DB
}

// NewStore creates a postgres-backed archive store.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// ArchiveBridgeOrder inserts a terminal bridge order. Re-archiving the same
// order id is a no-op.
func (s *Store) ArchiveBridgeOrder(ctx context.Context, order *orders.BridgeOrder) error {
	dao := &OrderDao{
		ID:          order.ID,
		Kind:        kindBridge,
		Status:      string(order.Status),
		SourceChain: order.SourceChain,
		TargetChain: order.TargetChain,
		Recipient:   order.Recipient.Hex(),
		Amount:      order.Amount.String(),
		CreatedAt:   order.CreatedAt,
		CompletedAt: order.CompletedAt,
		Deadline:    order.Deadline,
	}
	if order.TxHash != nil {
		dao.TxHash = order.TxHash.Hex()
	}
	if order.FailureReason != nil {
		dao.FailureReason = *order.FailureReason
	}

	if _, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("archive bridge order %s: %w", order.ID, err)
	}
	return nil
}

// ArchiveSwapOrder inserts a terminal swap order. Amounts are stored sealed.
func (s *Store) ArchiveSwapOrder(ctx context.Context, order *orders.SwapOrder) error {
	deadline := order.Deadline
	dao := &OrderDao{
		ID:           order.ID,
		Kind:         kindSwap,
		Status:       string(order.Status),
		TokenIn:      order.TokenIn.Hex(),
		TokenOut:     order.TokenOut.Hex(),
		Amount:       order.SealedAmountIn,
		MinAmountOut: order.SealedMinAmountOut,
		CreatedAt:    order.CreatedAt,
		Deadline:     &deadline,
	}
	if order.TxHash != nil {
		dao.TxHash = order.TxHash.Hex()
	}
	if order.ExecutionTxHash != nil {
		dao.ExecutionTxHash = order.ExecutionTxHash.Hex()
	}
	if order.FailureReason != nil {
		dao.FailureReason = *order.FailureReason
	}

	if _, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("archive swap order %s: %w", order.ID, err)
	}
	return nil
}
