package stream

import (
	"context"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
)

// Transport opens one long-lived stream connection.
//
// Stream blocks until the connection ends. It calls Opened once the
// connection is established and Message for each delivered line, from the
// calling goroutine. A nil return means the remote closed the stream; the
// supervisor treats that like any other transport error. Stream must return
// promptly once ctx is cancelled.
type Transport interface {
	Stream(ctx context.Context, endpoint string, events Events) error
}

// Events receives lifecycle signals from one connection attempt.
type Events interface {
	Opened()
	Message(line string)
}

// Sink receives every ingested record, in arrival order.
type Sink interface {
	Append(rec domain.Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(rec domain.Record)

// Append calls f(rec).
func (f SinkFunc) Append(rec domain.Record) { f(rec) }

// Mirror forwards records outside the process. Publish must not block on I/O.
type Mirror interface {
	Publish(sessionID string, rec domain.Record)
}
