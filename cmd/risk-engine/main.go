package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
	engerrors "github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/internal/evidence"
	"github.com/ducminhle1904/crypto-risk-engine/internal/logger"
	"github.com/ducminhle1904/crypto-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-risk-engine/internal/notifications"
	"github.com/ducminhle1904/crypto-risk-engine/internal/orchestrator"
	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio/storage"
	"github.com/ducminhle1904/crypto-risk-engine/internal/safety"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/data"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/reporting"
)

func main() {
	var (
		envFile = flag.String("env", ".env", "Environment file path")
		fast    = flag.Bool("fast", false, "Replay every bar back to back instead of waiting for the poll interval")
		outDir  = flag.String("out", "results", "Directory for the final snapshot and trade ledger")
		quiet   = flag.Bool("quiet", false, "Do not print per-tick tables")
	)
	flag.Parse()

	os.Exit(run(*envFile, *outDir, *fast, *quiet))
}

func run(envFile, outDir string, fast, quiet bool) int {
	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		if engerrors.KindOf(err) == engerrors.KindConfigInvalid {
			return 2
		}
		return 1
	}

	log, closer, err := logger.Open(logger.Options{
		Level:  cfg.LogLevel,
		Format: logger.Format(cfg.LogFormat),
		Dir:    cfg.LogDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create logger: %v\n", err)
		return 1
	}
	defer closer.Close()

	loader := data.NewCachedProvider(data.NewCSVProvider().WithLogger(logger.Component(log, "csv")), logger.Component(log, "data"))
	market, err := data.LoadReplay(loader, cfg.Runtime.DataDir, cfg.Symbols, cfg.Runtime.Lookback)
	if err != nil {
		log.Error().Err(err).Str("data_dir", cfg.Runtime.DataDir).Msg("failed to load market data")
		return 1
	}

	ev := evidence.NewStaticProvider(nil)
	if cfg.Evidence.File != "" {
		if ev, err = evidence.LoadFile(cfg.Evidence.File); err != nil {
			log.Error().Err(err).Str("file", cfg.Evidence.File).Msg("failed to load evidence")
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := reporting.NewDefaultReporter()
	health := monitoring.NewHealthChecker(3 * cfg.Runtime.PollInterval())

	opts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithHealth(health),
	}
	if cfg.Runtime.StateFile != "" {
		store, err := storage.NewFileStorage(cfg.Runtime.StateFile)
		if err != nil {
			log.Error().Err(err).Msg("failed to open book state")
			return 1
		}
		if err := store.Lock(); err != nil {
			log.Error().Err(err).Msg("failed to lock book state")
			return 1
		}
		defer store.Unlock()
		opts = append(opts, orchestrator.WithStateStore(store))
	}

	if cfg.Alerts.Enabled() {
		opts = append(opts, orchestrator.WithNotifier(
			notifications.NewTelegramNotifier(cfg.Alerts.TelegramToken, cfg.Alerts.TelegramChatID)))
	}

	// three failed fetches in a row park a symbol for a few poll intervals
	guarded := safety.NewGuardedMarket(market, safety.CircuitBreakerConfig{
		FailureThreshold: 3,
		Cooldown:         5 * cfg.Runtime.PollInterval(),
	}, logger.Component(log, "safety"))
	health.WithCircuitSource(guarded.OpenSymbols)

	var engine *orchestrator.Orchestrator
	onTick := func(res orchestrator.TickResult) {
		if !quiet {
			reporter.RenderTick(res, engine.Positions())
		}
		if !market.Advance() {
			log.Info().Msg("market data replay exhausted")
			stop()
		}
	}
	engine, err = orchestrator.New(cfg, guarded, ev, append(opts, orchestrator.WithTickHook(onTick))...)
	if err != nil {
		log.Error().Err(err).Msg("failed to create orchestrator")
		return 2
	}

	var server *http.Server
	if cfg.Runtime.HTTPPort > 0 {
		server = monitoring.NewServer(cfg.Runtime.HTTPPort, health, engine)
		go func() {
			log.Info().Int("port", cfg.Runtime.HTTPPort).Msg("monitoring server listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("monitoring server failed")
			}
		}()
	}

	log.Info().
		Strs("symbols", cfg.Symbols).
		Float64("equity", cfg.AccountEquity).
		Bool("fast", fast).
		Msg("risk engine starting")

	if fast {
		for ctx.Err() == nil {
			engine.Tick(ctx)
		}
	} else if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("orchestration loop failed")
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}

	return finish(log, reporter, engine, outDir)
}

// finish prints the final state and writes the snapshot and trade ledger
func finish(log zerolog.Logger, reporter *reporting.DefaultReporter, engine *orchestrator.Orchestrator, outDir string) int {
	snap := engine.Snapshot()
	reporter.RenderSnapshot(snap)

	dir := reporting.DefaultOutputDir(outDir, snap.Timestamp)
	snapPath := reporting.SnapshotPath(dir, snap.Timestamp)
	if err := reporter.WriteSnapshotJSON(snap, snapPath); err != nil {
		log.Error().Err(err).Str("path", snapPath).Msg("failed to write snapshot")
		return 1
	}
	tradesPath := reporting.TradesPath(dir, snap.Timestamp)
	if err := reporter.WriteTradesCSV(snap.ClosedTrades, tradesPath); err != nil {
		log.Error().Err(err).Str("path", tradesPath).Msg("failed to write trades")
		return 1
	}

	log.Info().
		Str("snapshot", snapPath).
		Str("trades", tradesPath).
		Int("closed_trades", len(snap.ClosedTrades)).
		Float64("equity", snap.Equity).
		Msg("risk engine stopped")
	return 0
}
