package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/fractions/config"
	"github.com/petal-labs/fractions/history"
	fracotel "github.com/petal-labs/fractions/otel"
	"github.com/petal-labs/fractions/runtime"
)

// appOptions adjusts what newApp wires for a command.
type appOptions struct {
	// bus receives every runtime event (serve only).
	bus runtime.EventPublisher
	// noTelemetry skips the OpenTelemetry SDK (history maintenance commands).
	noTelemetry bool
}

// app holds what every command shares: configuration, logger, history
// store, telemetry and the evaluation runtime.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	history   history.Store
	telemetry *fracotel.Telemetry
	runtime   *runtime.Runtime
}

func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	logger := newLogger(cmd)

	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return nil, err
	}

	store, err := openHistory(cfg)
	if err != nil {
		return nil, exitError(exitRuntime, "opening history: %v", err)
	}

	a := &app{cfg: cfg, logger: logger, history: store}

	handlers := []runtime.EventHandler{history.NewRecorder(store, logger).Handle}
	var decorator runtime.EventEmitterDecorator
	if !opts.noTelemetry {
		tel, err := fracotel.Setup(cmd.Context(), cfg.Telemetry.OTel())
		if err != nil {
			_ = store.Close()
			return nil, exitError(exitRuntime, "initializing telemetry: %v", err)
		}
		a.telemetry = tel

		metrics, err := fracotel.NewMetricsHandler(tel.Meter())
		if err != nil {
			a.Close()
			return nil, exitError(exitRuntime, "initializing metrics: %v", err)
		}
		tracing := fracotel.NewTracingHandler(tel.Tracer())
		handlers = append(handlers, metrics.Handle, tracing.Handle)
		decorator = fracotel.Decorator(tracing)
		if tel.Exporting() {
			logger.Debug("exporting traces", "endpoint", cfg.Telemetry.OTLPEndpoint)
		}
	}

	a.runtime = runtime.NewRuntime(runtime.Options{
		EventHandler:          runtime.MultiEventHandler(handlers...),
		EventEmitterDecorator: decorator,
		EventBus:              opts.bus,
	})
	return a, nil
}

// Close flushes telemetry and closes the history store.
func (a *app) Close() {
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}
	if err := a.history.Close(); err != nil {
		a.logger.Warn("closing history failed", "error", err)
	}
}

// newLogger writes text logs to the command's stderr at Info, Debug with
// --verbose and Error with --quiet.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves fractions.yaml, then applies environment variables and
// finally explicitly set flags.
func loadConfig(cmd *cobra.Command, logger *slog.Logger) (config.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")
	path, found, err := config.DiscoverPath(explicit)
	if err != nil {
		return config.Config{}, exitError(exitFileNotFound, "%v", err)
	}

	cfg := config.Default()
	if found {
		cfg, err = config.Load(path)
		if err != nil {
			return config.Config{}, exitError(exitInputParse, "%v", err)
		}
		logger.Debug("loaded config", "path", path)
	}
	cfg.ApplyEnv(os.Getenv)

	if cmd.Flags().Changed("history-path") {
		p, _ := cmd.Flags().GetString("history-path")
		cfg.History.Path = strings.TrimSpace(p)
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.History.Disabled = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, exitError(exitInputParse, "invalid config: %v", err)
	}
	return cfg, nil
}

// openHistory opens the SQLite history, or an in-memory store when history
// is disabled.
func openHistory(cfg config.Config) (history.Store, error) {
	if cfg.History.Disabled {
		return history.NewMemStore(cfg.Retention()), nil
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	store, err := history.NewSQLiteStore(history.SQLiteStoreConfig{
		DSN:       path,
		Retention: cfg.Retention(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store, nil
}

// validateFormat rejects output formats other than text and json.
func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return exitError(exitInputParse, "unknown format %q (use text or json)", format)
	}
}
