// Package api exposes the order lifecycle over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/guardianswap/bridge-middleware/pkg/app/errors"
	apphttp "github.com/guardianswap/bridge-middleware/pkg/app/http"
	"github.com/guardianswap/bridge-middleware/pkg/bridge"
	"github.com/guardianswap/bridge-middleware/pkg/chains"
	"github.com/guardianswap/bridge-middleware/pkg/estimator"
	"github.com/guardianswap/bridge-middleware/pkg/orders"
	"github.com/guardianswap/bridge-middleware/pkg/swap"
)

const maxBodyBytes = 1 << 20

// HTTP wraps the order services to provide HTTP endpoints
type HTTP struct {
	manager      *orders.Manager
	orchestrator *bridge.Orchestrator
	swapService  *swap.Service
	registry     *chains.Registry
	estimator    *estimator.Estimator
	validate     *validator.Validate
	logger       *zap.Logger
}

// RegisterRoutes registers the order lifecycle endpoints on the given chi router
func RegisterRoutes(
	r chi.Router,
	manager *orders.Manager,
	orchestrator *bridge.Orchestrator,
	swapService *swap.Service,
	registry *chains.Registry,
	est *estimator.Estimator,
	logger *zap.Logger,
) {
	h := &HTTP{
		manager:      manager,
		orchestrator: orchestrator,
		swapService:  swapService,
		registry:     registry,
		estimator:    est,
		validate:     validator.New(),
		logger:       logger,
	}

	r.Route("/bridge/orders", func(r chi.Router) {
		r.Post("/", apphttp.HandleError(h.createBridgeOrder))
		r.Get("/", apphttp.HandleError(h.listBridgeOrders))
		r.Get("/{id}", apphttp.HandleError(h.getBridgeOrder))
		r.Post("/{id}/execute", apphttp.HandleError(h.executeBridgeOrder))
		r.Get("/{id}/steps", apphttp.HandleError(h.getBridgeSteps))
	})

	r.Route("/swap/orders", func(r chi.Router) {
		r.Post("/", apphttp.HandleError(h.createSwapOrder))
		r.Get("/", apphttp.HandleError(h.listSwapOrders))
		r.Get("/{id}", apphttp.HandleError(h.getSwapOrder))
		r.Post("/{id}/execute", apphttp.HandleError(h.executeSwapOrder))
	})

	r.Get("/chains", apphttp.HandleError(h.listChains))
	r.Get("/estimates/fee", apphttp.HandleError(h.estimateFee))
	r.Get("/estimates/duration", apphttp.HandleError(h.estimateDuration))
}

type createBridgeOrderRequest struct {
	SourceChain string     `json:"sourceChain" validate:"required"`
	TargetChain string     `json:"targetChain" validate:"required"`
	Amount      string     `json:"amount" validate:"required"`
	Recipient   string     `json:"recipient" validate:"required,eth_addr"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

func (h *HTTP) createBridgeOrder(w http.ResponseWriter, r *http.Request) error {
	var req createBridgeOrderRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return apperrors.ValidationError(err, "invalid amount")
	}

	order, err := h.manager.CreateBridge(orders.CreateBridgeRequest{
		SourceChain: req.SourceChain,
		TargetChain: req.TargetChain,
		Amount:      amount,
		Recipient:   common.HexToAddress(req.Recipient),
		Deadline:    req.Deadline,
	})
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusCreated, order)
	return nil
}

func (h *HTTP) listBridgeOrders(w http.ResponseWriter, _ *http.Request) error {
	h.writeJSON(w, http.StatusOK, h.manager.ListBridges())
	return nil
}

func (h *HTTP) getBridgeOrder(w http.ResponseWriter, r *http.Request) error {
	order, err := h.manager.GetBridge(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	h.writeJSON(w, http.StatusOK, order)
	return nil
}

// executeBridgeOrder kicks off orchestration and returns immediately. The
// run's progress is observable through the order status and the steps
// endpoint; only pre-flight problems are reported here.
func (h *HTTP) executeBridgeOrder(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")

	order, err := h.manager.GetBridge(id)
	if err != nil {
		return err
	}
	if order.Status.Terminal() {
		return apperrors.TerminalStateError("order " + id + " is already " + string(order.Status))
	}
	if order.Status != orders.BridgeStatusCreated {
		return apperrors.InvalidTransitionError(nil, "order "+id+" is already in progress")
	}

	go func() {
		if err := h.orchestrator.Run(context.Background(), id); err != nil {
			h.logger.Warn("Bridge run rejected",
				zap.String("id", id), zap.Error(err))
		}
	}()

	h.writeJSON(w, http.StatusAccepted, order)
	return nil
}

func (h *HTTP) getBridgeSteps(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if _, err := h.manager.GetBridge(id); err != nil {
		return err
	}
	steps, ok := h.orchestrator.Steps(id)
	if !ok {
		steps = []orders.Step{}
	}
	h.writeJSON(w, http.StatusOK, steps)
	return nil
}

type createSwapOrderRequest struct {
	TokenIn      string    `json:"tokenIn" validate:"required,eth_addr"`
	TokenOut     string    `json:"tokenOut" validate:"required,eth_addr"`
	AmountIn     string    `json:"amountIn" validate:"required"`
	MinAmountOut string    `json:"minAmountOut" validate:"required"`
	Deadline     time.Time `json:"deadline" validate:"required"`
}

func (h *HTTP) createSwapOrder(w http.ResponseWriter, r *http.Request) error {
	var req createSwapOrderRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	amountIn, err := decimal.NewFromString(req.AmountIn)
	if err != nil {
		return apperrors.ValidationError(err, "invalid amountIn")
	}
	minAmountOut, err := decimal.NewFromString(req.MinAmountOut)
	if err != nil {
		return apperrors.ValidationError(err, "invalid minAmountOut")
	}

	order, err := h.swapService.Create(r.Context(), swap.CreateRequest{
		TokenIn:      common.HexToAddress(req.TokenIn),
		TokenOut:     common.HexToAddress(req.TokenOut),
		AmountIn:     amountIn,
		MinAmountOut: minAmountOut,
		Deadline:     req.Deadline,
	})
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusCreated, order)
	return nil
}

func (h *HTTP) listSwapOrders(w http.ResponseWriter, _ *http.Request) error {
	h.writeJSON(w, http.StatusOK, h.manager.ListSwaps())
	return nil
}

func (h *HTTP) getSwapOrder(w http.ResponseWriter, r *http.Request) error {
	order, err := h.swapService.Get(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	h.writeJSON(w, http.StatusOK, order)
	return nil
}

func (h *HTTP) executeSwapOrder(w http.ResponseWriter, r *http.Request) error {
	order, err := h.swapService.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	h.writeJSON(w, http.StatusAccepted, order)
	return nil
}

func (h *HTTP) listChains(w http.ResponseWriter, _ *http.Request) error {
	h.writeJSON(w, http.StatusOK, h.registry.List())
	return nil
}

func (h *HTTP) estimateFee(w http.ResponseWriter, r *http.Request) error {
	source := r.URL.Query().Get("source")
	target := r.URL.Query().Get("target")
	if err := h.registry.ValidatePair(source, target); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		return apperrors.ValidationError(err, "invalid amount")
	}
	if !amount.IsPositive() {
		return apperrors.ValidationError(nil, "amount must be positive")
	}

	h.writeJSON(w, http.StatusOK, h.estimator.ComputeFee(amount))
	return nil
}

func (h *HTTP) estimateDuration(w http.ResponseWriter, r *http.Request) error {
	source := r.URL.Query().Get("source")
	target := r.URL.Query().Get("target")
	if err := h.registry.ValidatePair(source, target); err != nil {
		return err
	}

	d := h.estimator.EstimateDuration(source, target)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"source":          source,
		"target":          target,
		"durationSeconds": int64(d.Seconds()),
		"duration":        d.String(),
	})
	return nil
}

func (h *HTTP) decode(r *http.Request, into any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.ValidationError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, into); err != nil {
		return apperrors.ValidationError(err, "invalid JSON")
	}
	if err := h.validate.Struct(into); err != nil {
		return apperrors.ValidationError(err, err.Error())
	}
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
