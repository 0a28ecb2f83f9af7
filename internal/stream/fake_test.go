package stream

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/stretchr/testify/require"
)

// fakeConn is one connection attempt handed out by fakeTransport. The test
// drives it by calling events directly and ends it through fail.
type fakeConn struct {
	endpoint string
	events   Events
	ctx      context.Context
	fail     chan error
}

type fakeTransport struct {
	conns chan *fakeConn
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{conns: make(chan *fakeConn, 16)}
}

func (f *fakeTransport) Stream(ctx context.Context, endpoint string, events Events) error {
	c := &fakeConn{endpoint: endpoint, events: events, ctx: ctx, fail: make(chan error, 1)}
	select {
	case f.conns <- c:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.fail:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// next waits for the supervisor to open a connection.
func (f *fakeTransport) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a connection attempt")
		return nil
	}
}

// assertNoAttempt fails if a connection attempt shows up within d.
func (f *fakeTransport) assertNoAttempt(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case c := <-f.conns:
		t.Fatalf("unexpected connection attempt to %s", c.endpoint)
	case <-time.After(d):
	}
}

// statusRecorder collects every published status.
type statusRecorder struct {
	mu   sync.Mutex
	seen []domain.Status
}

func (r *statusRecorder) record(st domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, st)
}

func (r *statusRecorder) states() []domain.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ConnectionState, len(r.seen))
	for i, st := range r.seen {
		out[i] = st.State
	}
	return out
}

// connectivity returns the connected flag with consecutive duplicates collapsed.
func (r *statusRecorder) connectivity() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bool
	for _, st := range r.seen {
		if len(out) == 0 || out[len(out)-1] != st.Connected {
			out = append(out, st.Connected)
		}
	}
	return out
}

func (r *statusRecorder) last() domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return domain.Status{}
	}
	return r.seen[len(r.seen)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}
