package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/fractions/bus"
	"github.com/petal-labs/fractions/history"
	"github.com/petal-labs/fractions/server"
)

// finishedSessionTTL is how long events of a finished session stay
// available for SSE replay.
const finishedSessionTTL = 5 * time.Minute

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().IntP("port", "p", 8080, "Listen port")
	cmd.Flags().String("host", "0.0.0.0", "Listen host")
	cmd.Flags().String("cors-origin", "*", "Allowed CORS origin")
	cmd.Flags().Int64("max-body", 1<<20, "Max request body size in bytes")
	cmd.Flags().Int("max-batch", 1000, "Max expressions per batch request")
	cmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 0, "HTTP write timeout (0 keeps event streams open)")

	return cmd
}

// serveStack is everything runServe wires behind the HTTP handler.
type serveStack struct {
	app     *app
	bus     *bus.MemBus
	events  *bus.MemEventStore
	persist *bus.StoreSubscriber
	pruner  *history.Pruner
	handler http.Handler
	done    chan struct{}
}

func newServeStack(cmd *cobra.Command) (*serveStack, error) {
	eb := bus.NewMemBus(bus.MemBusConfig{})
	app, err := newApp(cmd, appOptions{bus: eb})
	if err != nil {
		_ = eb.Close()
		return nil, err
	}
	applyServeFlags(cmd, app)
	if err := app.cfg.Validate(); err != nil {
		app.Close()
		_ = eb.Close()
		return nil, exitError(exitInputParse, "invalid server settings: %v", err)
	}

	events := bus.NewMemEventStoreWithConfig(bus.MemStoreConfig{MaxPerSession: 10000})
	persist := bus.NewStoreSubscriber(events, app.logger, bus.WithFinishedTTL(finishedSessionTTL))

	s := &serveStack{
		app:     app,
		bus:     eb,
		events:  events,
		persist: persist,
		done:    make(chan struct{}),
	}
	sub := eb.SubscribeAll()
	go func() {
		defer close(s.done)
		bus.Drain(sub, persist.Handle)
	}()

	if !app.cfg.History.Disabled && app.cfg.Retention().Enabled() {
		pruner, err := history.NewPruner(history.PrunerConfig{
			Store:    app.history,
			Schedule: app.cfg.History.PruneSchedule,
			Logger:   app.logger,
		})
		if err != nil {
			s.Close()
			return nil, exitError(exitInputParse, "history pruner: %v", err)
		}
		if err := pruner.Start(cmd.Context()); err != nil {
			s.Close()
			return nil, exitError(exitRuntime, "starting history pruner: %v", err)
		}
		s.pruner = pruner
		app.logger.Debug("history pruner started", "next", pruner.Next(time.Now()))
	}

	srv := server.NewServer(server.ServerConfig{
		Runtime:    app.runtime,
		Bus:        eb,
		EventStore: events,
		History:    app.history,
		CORSOrigin: app.cfg.Server.CORSOrigin,
		MaxBody:    app.cfg.Server.MaxBody,
		MaxBatch:   app.cfg.Server.MaxBatch,
		Logger:     app.logger,
	})
	s.handler = srv.Handler()
	return s, nil
}

// Close stops the pruner and the bus, then releases the shared app.
func (s *serveStack) Close() {
	if s.pruner != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = s.pruner.Stop(ctx)
		cancel()
	}
	_ = s.bus.Close()
	<-s.done
	s.persist.Close()
	s.app.Close()
}

// applyServeFlags lets explicitly set flags override the config file.
func applyServeFlags(cmd *cobra.Command, app *app) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		app.cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		app.cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		app.cfg.Server.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-body") {
		app.cfg.Server.MaxBody, _ = flags.GetInt64("max-body")
	}
	if flags.Changed("max-batch") {
		app.cfg.Server.MaxBatch, _ = flags.GetInt("max-batch")
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	readTimeout, _ := cmd.Flags().GetDuration("read-timeout")
	writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")

	stack, err := newServeStack(cmd)
	if err != nil {
		return err
	}
	defer stack.Close()

	addr := stack.app.cfg.Addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      stack.handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	// Signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "fractions listening on %s\n", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		// Close the bus first so open event streams end.
		_ = stack.bus.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}
