// Command mockstream serves a synthetic weather event stream for local
// development. It speaks the same wire format as the production producer:
// a "connected" event followed by a "weather" sample every interval.
//
// Usage:
//
//	go run ./cmd/mockstream -addr :8000 -min-interval 1s
//	curl -N 'http://127.0.0.1:8000/api/stream_weather/?lat=22.3569&lon=91.7832&interval=1'
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

	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mockstream failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", ":8000", "listen address")
	minInterval := flag.Duration("min-interval", 10*time.Second, "lower bound for the interval query parameter")
	errorEvery := flag.Int("error-every", 0, "emit an error event instead of every Nth sample (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mux := http.NewServeMux()
	mux.Handle("GET /api/stream_weather/", &streamHandler{
		clock:       clockwork.NewRealClock(),
		minInterval: *minInterval,
		errorEvery:  *errorEvery,
		logger:      logger,
	})
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mockstream listening", "addr", *addr, "min_interval", *minInterval)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
