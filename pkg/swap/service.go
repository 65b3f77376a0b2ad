// Package swap creates and executes hidden swap orders. Amount fields are
// sealed by an opaque encryption provider before anything leaves the process.
package swap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/guardianswap/bridge-middleware/internal/metrics"
	apperrors "github.com/guardianswap/bridge-middleware/pkg/app/errors"
	"github.com/guardianswap/bridge-middleware/pkg/chainio"
	"github.com/guardianswap/bridge-middleware/pkg/orders"
)

// OrderStore is the narrow order-table interface the swap service needs.
type OrderStore interface {
	CreateSwap(req orders.CreateSwapRequest) (*orders.SwapOrder, error)
	GetSwap(id string) (*orders.SwapOrder, error)
	UpdateSwapStatus(id string, status orders.SwapStatus, update orders.SwapUpdate) (*orders.SwapOrder, error)
	RecordSwapExecution(id string, txHash common.Hash) (*orders.SwapOrder, error)
}

// CreateRequest carries the caller-supplied fields of a new swap order.
type CreateRequest struct {
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     decimal.Decimal
	MinAmountOut decimal.Decimal
	Deadline     time.Time
}

// Service creates and executes swap orders through the external submission
// and confirmation collaborators.
type Service struct {
	store     OrderStore
	session   chainio.Session
	submitter chainio.Submitter
	waiter    chainio.Waiter
	notifier  chainio.Notifier
	encrypter chainio.Encrypter
	contract  common.Address

	confirmTimeout time.Duration
	logger         *zap.Logger
}

// NewService creates a swap order service.
func NewService(
	store OrderStore,
	session chainio.Session,
	submitter chainio.Submitter,
	waiter chainio.Waiter,
	notifier chainio.Notifier,
	encrypter chainio.Encrypter,
	contract common.Address,
	confirmTimeout time.Duration,
	logger *zap.Logger,
) *Service {
	if confirmTimeout <= 0 {
		confirmTimeout = 120 * time.Second
	}
	if notifier == nil {
		notifier = chainio.NopNotifier{}
	}
	return &Service{
		store:          store,
		session:        session,
		submitter:      submitter,
		waiter:         waiter,
		notifier:       notifier,
		encrypter:      encrypter,
		contract:       contract,
		confirmTimeout: confirmTimeout,
		logger:         logger,
	}
}

// Create validates and registers a new swap order, submits the creation call
// and returns the order immediately with status Created. Confirmation is
// observed by polling: the order advances to Confirmed or Failed later.
// Validation and connectivity problems fail synchronously before any order
// exists or any call is submitted.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*orders.SwapOrder, error) {
	if !s.session.Connected() {
		return nil, apperrors.NotConnectedError(nil)
	}

	sealedIn, err := s.encrypter.Seal(req.AmountIn.String())
	if err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("seal amountIn: %w", err))
	}
	sealedMinOut, err := s.encrypter.Seal(req.MinAmountOut.String())
	if err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("seal minAmountOut: %w", err))
	}

	order, err := s.store.CreateSwap(orders.CreateSwapRequest{
		TokenIn:            req.TokenIn,
		TokenOut:           req.TokenOut,
		AmountIn:           req.AmountIn,
		MinAmountOut:       req.MinAmountOut,
		SealedAmountIn:     sealedIn,
		SealedMinAmountOut: sealedMinOut,
		Deadline:           req.Deadline,
	})
	if err != nil {
		return nil, err
	}

	call := chainio.Call{
		Target: s.contract,
		Method: "createSwapOrder",
		Args:   []any{req.TokenIn, req.TokenOut, sealedIn, sealedMinOut, big.NewInt(req.Deadline.Unix())},
	}
	go s.submitAndConfirm(order.ID, call, "creation", func(receipt *chainio.Receipt) {
		if _, err := s.store.UpdateSwapStatus(order.ID, orders.SwapStatusConfirmed,
			orders.SwapUpdate{TxHash: &receipt.TxHash}); err != nil {
			s.logger.Error("Failed to record swap confirmation",
				zap.String("id", order.ID), zap.Error(err))
		}
	})

	s.logger.Info("Swap order submitted",
		zap.String("id", order.ID),
		zap.String("deadline", req.Deadline.UTC().Format(time.RFC3339)))
	return order, nil
}

// Execute submits the execution call for a confirmed swap order. The order
// must be Confirmed and its deadline must not have elapsed.
func (s *Service) Execute(ctx context.Context, orderID string) (*orders.SwapOrder, error) {
	order, err := s.store.GetSwap(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, apperrors.TerminalStateError(fmt.Sprintf("swap order %s is already %s", orderID, order.Status))
	}
	if order.Status != orders.SwapStatusConfirmed {
		return nil, apperrors.InvalidTransitionError(nil,
			fmt.Sprintf("swap order %s is %s, execution requires confirmed", orderID, order.Status))
	}
	if !time.Now().Before(order.Deadline) {
		if _, failErr := s.store.UpdateSwapStatus(orderID, orders.SwapStatusFailed,
			orders.SwapUpdate{Reason: "deadline elapsed before execution"}); failErr != nil {
			s.logger.Error("Failed to expire swap order",
				zap.String("id", orderID), zap.Error(failErr))
		}
		return nil, apperrors.ExpiredError("swap order deadline elapsed")
	}
	if !s.session.Connected() {
		return nil, apperrors.NotConnectedError(nil)
	}

	call := chainio.Call{
		Target: s.contract,
		Method: "executeSwap",
		Args:   []any{orderID},
	}
	go s.submitAndConfirm(orderID, call, "execution", func(receipt *chainio.Receipt) {
		if _, err := s.store.RecordSwapExecution(orderID, receipt.TxHash); err != nil {
			s.logger.Error("Failed to record swap execution",
				zap.String("id", orderID), zap.Error(err))
		}
	})

	return s.store.GetSwap(orderID)
}

// Get returns a snapshot of the swap order.
func (s *Service) Get(orderID string) (*orders.SwapOrder, error) {
	return s.store.GetSwap(orderID)
}

// submitAndConfirm runs the submit/await cycle for one call and records the
// outcome on the order. Failures here never reach the initiating caller;
// they surface through the order's status.
func (s *Service) submitAndConfirm(orderID string, call chainio.Call, phase string, onConfirmed func(*chainio.Receipt)) {
	ctx := context.Background()

	pending, err := s.submitter.Submit(ctx, call)
	if err != nil {
		s.failOrder(orderID, phase, apperrors.SubmissionError(err))
		return
	}

	if phase == "creation" {
		if _, err := s.store.UpdateSwapStatus(orderID, orders.SwapStatusPendingConfirmation,
			orders.SwapUpdate{}); err != nil {
			s.logger.Error("Failed to mark swap order pending",
				zap.String("id", orderID), zap.Error(err))
		}
	}

	result, err := s.waiter.Await(ctx, pending, s.confirmTimeout)
	if err != nil {
		s.failOrder(orderID, phase, apperrors.InternalError(err))
		return
	}

	switch result.Status {
	case chainio.WaitConfirmed:
		onConfirmed(result.Receipt)
		metrics.OrdersTotal.WithLabelValues("swap", phase+"_confirmed").Inc()
		s.notifier.Notify(chainio.SeveritySuccess,
			fmt.Sprintf("Swap order %s %s confirmed", orderID, phase))
	case chainio.WaitTimedOut:
		s.failOrder(orderID, phase, apperrors.TimeoutError(
			fmt.Sprintf("swap %s not confirmed within %s", phase, s.confirmTimeout)))
	case chainio.WaitReverted:
		s.failOrder(orderID, phase, apperrors.RevertedError(
			fmt.Sprintf("swap %s reverted on chain", phase)))
	}
}

func (s *Service) failOrder(orderID, phase string, cause error) {
	reason := apperrors.Reason(cause)
	metrics.OrdersTotal.WithLabelValues("swap", string(orders.SwapStatusFailed)).Inc()
	metrics.ErrorsTotal.WithLabelValues("swap_service", phase).Inc()

	if _, err := s.store.UpdateSwapStatus(orderID, orders.SwapStatusFailed,
		orders.SwapUpdate{Reason: reason}); err != nil {
		s.logger.Error("Failed to record swap failure",
			zap.String("id", orderID), zap.Error(err))
	}
	s.notifier.Notify(chainio.SeverityError,
		fmt.Sprintf("Swap order %s %s failed: %s", orderID, phase, reason))
	s.logger.Warn("Swap order failed",
		zap.String("id", orderID),
		zap.String("phase", phase),
		zap.String("reason", reason),
		zap.Error(cause))
}
