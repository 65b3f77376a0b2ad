package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/guardianswap/bridge-middleware/pkg/api"
	"github.com/guardianswap/bridge-middleware/pkg/app/httpserver"
	"github.com/guardianswap/bridge-middleware/pkg/archive"
	"github.com/guardianswap/bridge-middleware/pkg/bridge"
	"github.com/guardianswap/bridge-middleware/pkg/chainio"
	"github.com/guardianswap/bridge-middleware/pkg/chains"
	"github.com/guardianswap/bridge-middleware/pkg/config"
	"github.com/guardianswap/bridge-middleware/pkg/estimator"
	"github.com/guardianswap/bridge-middleware/pkg/evm"
	"github.com/guardianswap/bridge-middleware/pkg/notify"
	"github.com/guardianswap/bridge-middleware/pkg/orders"
	"github.com/guardianswap/bridge-middleware/pkg/pgutil"
	"github.com/guardianswap/bridge-middleware/pkg/swap"
)

const defaultRequestTimeout = 60 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Orchestrator exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting bridge orchestrator",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	registry := chains.NewRegistry(cfg.Chains)
	est, err := estimator.New(cfg.Fees, cfg.Bridge)
	if err != nil {
		return fmt.Errorf("build estimator: %w", err)
	}

	var archiver orders.Archiver
	if cfg.Database.Host != "" {
		db, err := pgutil.ConnectDB(&cfg.Database)
		if err != nil {
			return fmt.Errorf("connect archive database: %w", err)
		}
		defer func() { _ = db.Close() }()
		archiver = archive.NewStore(db)
		logger.Info("Terminal order archive enabled",
			zap.String("database", cfg.Database.Database))
	} else {
		logger.Info("Terminal order archive disabled")
	}

	manager := orders.NewManager(registry, archiver, logger)

	session, submitter, waiter, closeEVM, err := buildChainIO(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeEVM()

	hub := notify.NewHub(logger)

	orchestrator := bridge.NewOrchestrator(
		manager,
		submitter,
		waiter,
		hub,
		common.HexToAddress(cfg.Bridge.BridgeContract),
		cfg.Bridge.StepTimeout,
		logger,
	)

	swapService := swap.NewService(
		manager,
		session,
		submitter,
		waiter,
		hub,
		chainio.PlainEncrypter{},
		common.HexToAddress(cfg.Swap.SwapContract),
		cfg.Swap.ConfirmTimeout,
		logger,
	)

	router := setupRouter(manager, orchestrator, swapService, registry, est, hub, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return httpserver.ServeAndWait(ctx, logger, srv, cfg.Shutdown.Timeout)
}

// buildChainIO wires the on-chain collaborators. Without a configured RPC
// endpoint the process still serves reads and estimates; submissions fail
// with a not-connected error.
func buildChainIO(ctx context.Context, cfg *config.Config, logger *zap.Logger) (chainio.Session, chainio.Submitter, chainio.Waiter, func(), error) {
	if cfg.Submitter.RPCURL == "" {
		logger.Warn("No submitter RPC configured, running without a wallet session")
		off := offlineChainIO{}
		return chainio.StaticSession{}, off, off, func() {}, nil
	}

	client, err := evm.Dial(ctx, cfg.Submitter.RPCURL, cfg.Submitter.PrivateKey, logger)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("dial evm endpoint: %w", err)
	}
	return client, client, client, client.Close, nil
}

type offlineChainIO struct{}

func (offlineChainIO) Submit(context.Context, chainio.Call) (chainio.PendingTx, error) {
	return chainio.PendingTx{}, fmt.Errorf("no wallet session configured")
}

func (offlineChainIO) Await(context.Context, chainio.PendingTx, time.Duration) (chainio.WaitResult, error) {
	return chainio.WaitResult{}, fmt.Errorf("no wallet session configured")
}

func setupRouter(
	manager *orders.Manager,
	orchestrator *bridge.Orchestrator,
	swapService *swap.Service,
	registry *chains.Registry,
	est *estimator.Estimator,
	hub *notify.Hub,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", hub)

	r.Route("/api/v1", func(r chi.Router) {
		api.RegisterRoutes(r, manager, orchestrator, swapService, registry, est, logger)
	})

	return r
}
