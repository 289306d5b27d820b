// Spins up the skip set server, compatible w/ the set commands of the Redis protocol.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nobletooth/skipset/pkg/config"
	"github.com/nobletooth/skipset/pkg/port"
	"github.com/nobletooth/skipset/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	printVersion   = flag.Bool("print_version", false, "Print the version and exit.")
	metricsAddress = flag.String("metrics_address", "",
		"The ip:port to serve prometheus metrics on under /metrics; metrics aren't served if empty.")
)

// serveMetrics serves the prometheus metrics on `addr` until `ctx` is cancelled.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	serverErrSignal := make(chan error, 1)
	go func() {
		serverErrSignal <- server.ListenAndServe()
		close(serverErrSignal)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down metrics server: %w", err)
		}
		return nil
	case err := <-serverErrSignal:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server stopped unexpectedly: %w", err)
	}
}

func main() {
	config.InitFlags()
	utils.InitLogging()

	if *printVersion {
		slog.Info("Skip set build info.", utils.BuildInfo())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() { // Listen for OS interrupts in the background.
		sig := <-signals
		slog.Info("Received termination signal, cancelling server context.", "signal", sig)
		cancel()
	}()

	if *metricsAddress != "" {
		go func() {
			slog.Info("Serving metrics.", "address", *metricsAddress)
			if err := serveMetrics(ctx, *metricsAddress); err != nil {
				slog.Error("Metrics server stopped.", "err", err)
			}
		}()
	}

	if err := port.RunRedisServer(ctx, port.NewSetStore()); err != nil {
		slog.Error("Skip set server stopped.", "err", err)
		os.Exit(1)
	}
}
