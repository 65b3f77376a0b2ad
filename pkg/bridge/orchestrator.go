// Package bridge drives bridge orders through the lock/validate/release
// protocol, advancing order state only on externally confirmed transactions.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guardianswap/bridge-middleware/internal/metrics"
	apperrors "github.com/guardianswap/bridge-middleware/pkg/app/errors"
	"github.com/guardianswap/bridge-middleware/pkg/chainio"
	"github.com/guardianswap/bridge-middleware/pkg/orders"
)

// OrderStore is the narrow order-table interface the orchestrator needs.
type OrderStore interface {
	GetBridge(id string) (*orders.BridgeOrder, error)
	UpdateBridgeStatus(id string, status orders.BridgeStatus, update orders.BridgeUpdate) (*orders.BridgeOrder, error)
}

// Orchestrator executes the step sequence of bridge orders. Runs for distinct
// orders are fully concurrent; a run holds the only working reference to its
// order's step list and relinquishes it when the order goes terminal.
type Orchestrator struct {
	store     OrderStore
	submitter chainio.Submitter
	waiter    chainio.Waiter
	notifier  chainio.Notifier
	contract  common.Address

	stepTimeout time.Duration
	logger      *zap.Logger

	mu       sync.RWMutex
	inFlight map[string][]orders.Step
}

// NewOrchestrator creates a bridge orchestrator.
func NewOrchestrator(
	store OrderStore,
	submitter chainio.Submitter,
	waiter chainio.Waiter,
	notifier chainio.Notifier,
	contract common.Address,
	stepTimeout time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	if stepTimeout <= 0 {
		stepTimeout = 120 * time.Second
	}
	if notifier == nil {
		notifier = chainio.NopNotifier{}
	}
	return &Orchestrator{
		store:       store,
		submitter:   submitter,
		waiter:      waiter,
		notifier:    notifier,
		contract:    contract,
		stepTimeout: stepTimeout,
		logger:      logger,
		inFlight:    make(map[string][]orders.Step),
	}
}

// Steps returns a snapshot of the in-flight step list for an order, if the
// orchestrator is currently driving it.
func (o *Orchestrator) Steps(orderID string) ([]orders.Step, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	plan, ok := o.inFlight[orderID]
	if !ok {
		return nil, false
	}
	out := make([]orders.Step, len(plan))
	copy(out, plan)
	return out, true
}

// Run drives the order through its step sequence until it reaches Completed
// or Failed. Step-level failures are recorded on the order and reported as a
// nil return; only pre-flight problems (unknown order, terminal order,
// concurrent run) surface as errors.
func (o *Orchestrator) Run(ctx context.Context, orderID string) error {
	order, err := o.store.GetBridge(orderID)
	if err != nil {
		return err
	}
	if order.Status.Terminal() {
		return apperrors.TerminalStateError(fmt.Sprintf("order %s is already %s", orderID, order.Status))
	}
	if order.Status != orders.BridgeStatusCreated {
		return apperrors.InvalidTransitionError(nil,
			fmt.Sprintf("order %s is %s, orchestration starts from created", orderID, order.Status))
	}

	plan := newStepPlan(order)
	o.mu.Lock()
	if _, running := o.inFlight[orderID]; running {
		o.mu.Unlock()
		return apperrors.InvalidTransitionError(nil, "order "+orderID+" is already being driven")
	}
	o.inFlight[orderID] = plan
	o.mu.Unlock()

	metrics.ActiveBridges.Inc()
	defer func() {
		metrics.ActiveBridges.Dec()
		o.mu.Lock()
		delete(o.inFlight, orderID)
		o.mu.Unlock()
	}()

	o.logger.Info("Driving bridge order",
		zap.String("id", orderID),
		zap.String("source_chain", order.SourceChain),
		zap.String("target_chain", order.TargetChain))

	for i := range plan {
		if !o.runStep(ctx, order, i) {
			metrics.OrdersTotal.WithLabelValues("bridge", string(orders.BridgeStatusFailed)).Inc()
			return nil
		}
	}

	metrics.OrdersTotal.WithLabelValues("bridge", string(orders.BridgeStatusCompleted)).Inc()
	o.notifier.Notify(chainio.SeveritySuccess,
		fmt.Sprintf("Bridge order %s completed", orderID))
	o.logger.Info("Bridge order completed", zap.String("id", orderID))
	return nil
}

// runStep executes one step. It returns false when the order went terminal
// (Failed) and later steps must not run.
func (o *Orchestrator) runStep(ctx context.Context, order *orders.BridgeOrder, idx int) bool {
	spec := stepSpecs[idx]

	// Deadline check happens before the step begins, never mid-await.
	if order.Deadline != nil && !time.Now().Before(*order.Deadline) {
		o.failStep(order.ID, idx, apperrors.ExpiredError("order deadline elapsed"))
		return false
	}

	// Cancellation is honored only before submission.
	if err := ctx.Err(); err != nil {
		o.failStep(order.ID, idx, apperrors.InternalError(fmt.Errorf("canceled before submission: %w", err)))
		return false
	}

	started := time.Now().UTC()
	o.updateStep(order.ID, idx, func(step *orders.Step) {
		step.Status = orders.StepStatusProcessing
		step.StartedAt = &started
	})
	if _, err := o.store.UpdateBridgeStatus(order.ID, spec.processing, orders.BridgeUpdate{}); err != nil {
		o.failStep(order.ID, idx, apperrors.InternalError(err))
		return false
	}

	pending, err := o.submitter.Submit(ctx, spec.call(order, o.contract))
	if err != nil {
		if apperrors.Is(err, apperrors.CategoryNotConnected) {
			o.failStep(order.ID, idx, err)
		} else {
			o.failStep(order.ID, idx, apperrors.SubmissionError(err))
		}
		return false
	}

	// Once submitted, the step is awaited to completion or timeout
	// regardless of cancellation.
	result, err := o.waiter.Await(context.WithoutCancel(ctx), pending, o.stepTimeout)
	if err != nil {
		o.failStep(order.ID, idx, apperrors.InternalError(err))
		return false
	}

	switch result.Status {
	case chainio.WaitConfirmed:
		txHash := result.Receipt.TxHash
		completed := time.Now().UTC()
		o.updateStep(order.ID, idx, func(step *orders.Step) {
			step.Status = orders.StepStatusCompleted
			step.TxHash = &txHash
			step.CompletedAt = &completed
		})
		if _, err := o.store.UpdateBridgeStatus(order.ID, spec.confirmed, orders.BridgeUpdate{TxHash: &txHash}); err != nil {
			o.failStep(order.ID, idx, apperrors.InternalError(err))
			return false
		}
		metrics.StepsTotal.WithLabelValues(spec.title, string(orders.StepStatusCompleted)).Inc()
		metrics.StepDuration.WithLabelValues(spec.title).Observe(completed.Sub(started).Seconds())
		o.logger.Info("Bridge step confirmed",
			zap.String("id", order.ID),
			zap.Int("sequence", idx+1),
			zap.String("step", spec.title),
			zap.String("tx_hash", txHash.Hex()))
		return true

	case chainio.WaitTimedOut:
		o.failStep(order.ID, idx, apperrors.TimeoutError(
			fmt.Sprintf("step %q not confirmed within %s", spec.title, o.stepTimeout)))
		return false

	case chainio.WaitReverted:
		o.failStep(order.ID, idx, apperrors.RevertedError(
			fmt.Sprintf("step %q reverted on chain", spec.title)))
		return false

	default:
		o.failStep(order.ID, idx, apperrors.InternalError(
			fmt.Errorf("unexpected wait status %v", result.Status)))
		return false
	}
}

// failStep marks the step Failed, transitions the order to Failed with the
// error's reason and halts the run. Already-completed steps are never rolled
// back; a locked-but-never-released order is a recognized terminal failure
// mode handled by administrative recovery.
func (o *Orchestrator) failStep(orderID string, idx int, cause error) {
	spec := stepSpecs[idx]
	reason := apperrors.Reason(cause)

	o.updateStep(orderID, idx, func(step *orders.Step) {
		step.Status = orders.StepStatusFailed
	})
	metrics.StepsTotal.WithLabelValues(spec.title, string(orders.StepStatusFailed)).Inc()
	metrics.ErrorsTotal.WithLabelValues("bridge_orchestrator", categoryLabel(cause)).Inc()

	if _, err := o.store.UpdateBridgeStatus(orderID, orders.BridgeStatusFailed, orders.BridgeUpdate{Reason: reason}); err != nil {
		o.logger.Error("Failed to record order failure",
			zap.String("id", orderID), zap.Error(err))
	}

	o.notifier.Notify(chainio.SeverityError,
		fmt.Sprintf("Bridge order %s failed at step %d: %s", orderID, idx+1, reason))
	o.logger.Warn("Bridge step failed",
		zap.String("id", orderID),
		zap.Int("sequence", idx+1),
		zap.String("step", spec.title),
		zap.String("reason", reason),
		zap.Error(cause))
}

func (o *Orchestrator) updateStep(orderID string, idx int, mutate func(step *orders.Step)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if plan, ok := o.inFlight[orderID]; ok && idx < len(plan) {
		mutate(&plan[idx])
	}
}

func categoryLabel(err error) string {
	for _, cat := range []apperrors.Category{
		apperrors.CategoryNotConnected,
		apperrors.CategorySubmissionFailure,
		apperrors.CategoryConfirmationTimeout,
		apperrors.CategoryReverted,
		apperrors.CategoryExpired,
	} {
		if apperrors.Is(err, cat) {
			return cat.String()
		}
	}
	return apperrors.CategoryInternal.String()
}
