package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/couchcryptid/weather-stream-listener/internal/observability"
	"github.com/couchcryptid/weather-stream-listener/internal/stream"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tailCmd)
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print every ingested record as a JSON line on stdout",
	Args:  cobra.NoArgs,
	RunE:  runTail,
}

func runTail(cmd *cobra.Command, _ []string) error {
	a, err := newApp(observability.NewStderrLogger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	endpoint, _, err := a.initialTarget(ctx)
	if err != nil {
		return err
	}

	sup := stream.Start(stream.Config{
		Endpoint:       endpoint,
		Transport:      a.transport,
		Sink:           jsonLines(cmd.OutOrStdout(), a),
		ReconnectDelay: a.cfg.ReconnectDelay,
		Logger:         a.logger,
		Metrics:        a.metrics,
	})
	defer sup.Close()

	if st := sup.Status(); st.State == domain.StateClosed {
		return fmt.Errorf("tail: %s", st.LastError)
	}

	<-ctx.Done()
	return nil
}

// jsonLines writes each record as one JSON document per line. The sink runs
// on the supervisor goroutine, so writes never interleave.
func jsonLines(w io.Writer, a *app) stream.Sink {
	enc := json.NewEncoder(w)
	return stream.SinkFunc(func(rec domain.Record) {
		if err := enc.Encode(rec); err != nil {
			a.logger.Error("write record", "seq", rec.Seq, "error", err)
		}
	})
}
