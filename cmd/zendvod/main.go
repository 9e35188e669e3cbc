package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zendvo/config"
	"zendvo/core/events"
	"zendvo/core/types"
	"zendvo/crypto"
	"zendvo/native/gift"
	"zendvo/native/pricing"
	"zendvo/observability/logging"
	"zendvo/rpc"
	"zendvo/state"
	"zendvo/storage"
)

const rpcTokenEnv = "ZENDVOD_RPC_TOKEN"

// auditEmitter writes every engine event to the structured log, forming the
// daemon's append-only audit trail.
type auditEmitter struct {
	log *slog.Logger
}

func (a auditEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	if renderer, ok := evt.(interface{ Event() *types.Event }); ok {
		record := renderer.Event()
		a.log.Info("event", "type", record.Type, "attributes", record.Attributes)
		return
	}
	a.log.Info("event", "type", evt.EventType())
}

func main() {
	configPath := flag.String("config", "zendvod.toml", "path to the daemon configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup("zendvod", cfg.Environment)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)

	var oracle pricing.PriceOracle
	if cfg.OracleEndpoint != "" {
		oracle = pricing.NewHTTPOracle(nil, cfg.OracleEndpoint, cfg.OracleAPIKey, cfg.OracleSource)
	} else {
		logger.Warn("no oracle endpoint configured, using manual oracle")
		oracle = pricing.NewManualOracle()
	}

	emitter := auditEmitter{log: logger}
	cache := pricing.NewCache(manager, oracle)
	cache.SetEmitter(emitter)

	engine := gift.NewEngine()
	engine.SetState(manager)
	engine.SetRateSource(cache)
	engine.SetEmitter(emitter)
	if err := engine.SetPair(cfg.Pair); err != nil {
		logger.Error("invalid settlement pair", "pair", cfg.Pair, "error", err)
		db.Close()
		os.Exit(1)
	}
	// Caller identity is established by the RPC bearer token; engine-level
	// authorization trusts the authenticated transport.
	engine.SetAuthorizer(gift.AuthorizerFunc(func(crypto.Address) error { return nil }))
	engine.SetSettlementRail(gift.NewCacheRail(cache))

	token := os.Getenv(rpcTokenEnv)
	if token == "" {
		logger.Warn("rpc token not set, mutating methods disabled", "env", rpcTokenEnv)
	}
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           rpc.NewServer(engine, token, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("rpc listening", "address", cfg.ListenAddress)
		serveErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server failed", "error", err)
		}
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
	logger.Info("zendvod stopped")
}
