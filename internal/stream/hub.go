package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/couchcryptid/weather-stream-listener/internal/observability"
	"github.com/couchcryptid/weather-stream-listener/internal/window"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("stream hub closed")

// HubConfig holds the settings shared by every subscription of a Hub.
type HubConfig struct {
	Transport      Transport
	Mirror         Mirror // optional
	ReconnectDelay time.Duration
	Clock          clockwork.Clock
	Logger         *slog.Logger
	Metrics        *observability.Metrics

	// OnStatus observes every supervisor state change. It runs on the
	// supervisor goroutine and must not call back into the Hub.
	OnStatus func(domain.Status)
}

// Subscription describes the current subscription target.
type Subscription struct {
	SessionID string    `json:"session_id"`
	Endpoint  string    `json:"endpoint"`
	Label     string    `json:"label,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// HubStatus is a point-in-time view of the hub for observers.
type HubStatus struct {
	domain.Status
	Subscription   *Subscription `json:"subscription,omitempty"`
	WindowLength   int           `json:"window_length"`
	WindowCapacity int           `json:"window_capacity"`
	LastSequence   uint64        `json:"last_sequence"`
}

// Hub owns a window and the supervisor currently feeding it.
type Hub struct {
	cfg    HubConfig
	window *window.Window
	seq    domain.Sequence

	mu     sync.Mutex
	sup    *Supervisor
	sub    *Subscription
	closed bool
}

// NewHub creates a hub around win. No subscription is active until Subscribe.
func NewHub(win *window.Window, cfg HubConfig) *Hub {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Hub{cfg: cfg, window: win}
}

// Subscribe switches the hub to endpoint. The previous supervisor is closed
// and the window cleared before the new subscription starts, so records from
// an old target are never visible under the new one.
func (h *Hub) Subscribe(endpoint, label string) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return Subscription{}, ErrHubClosed
	}

	if h.sup != nil {
		h.sup.Close()
	}
	h.window.Clear()

	sub := Subscription{
		SessionID: uuid.NewString(),
		Endpoint:  endpoint,
		Label:     label,
		StartedAt: h.cfg.Clock.Now(),
	}
	h.sub = &sub
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.SubscriptionChanges.Inc()
		h.cfg.Metrics.WindowRecords.Set(0)
	}
	h.cfg.Logger.Info("subscription changed",
		"session_id", sub.SessionID, "endpoint", endpoint, "label", label)

	h.sup = Start(Config{
		Endpoint:       endpoint,
		Transport:      h.cfg.Transport,
		Sink:           h.sinkFor(sub.SessionID),
		Sequence:       &h.seq,
		ReconnectDelay: h.cfg.ReconnectDelay,
		Clock:          h.cfg.Clock,
		Logger:         h.cfg.Logger.With("session_id", sub.SessionID),
		Metrics:        h.cfg.Metrics,
		OnStatus:       h.cfg.OnStatus,
	})

	if st := h.sup.Status(); st.State == domain.StateClosed && st.LastError != "" {
		return sub, fmt.Errorf("subscribe: %s", st.LastError)
	}
	return sub, nil
}

func (h *Hub) sinkFor(sessionID string) Sink {
	return SinkFunc(func(rec domain.Record) {
		h.window.Append(rec)
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.WindowRecords.Set(float64(h.window.Len()))
		}
		if h.cfg.Mirror != nil {
			h.cfg.Mirror.Publish(sessionID, rec)
		}
	})
}

// Snapshot returns the window contents, oldest first.
func (h *Hub) Snapshot() []domain.Record {
	return h.window.Snapshot()
}

// Status reports the active subscription and its connection state.
func (h *Hub) Status() HubStatus {
	h.mu.Lock()
	sup, sub := h.sup, h.sub
	h.mu.Unlock()

	st := HubStatus{
		Status:         domain.Status{State: domain.StateClosed, LastError: ErrNoEndpoint.Error()},
		WindowLength:   h.window.Len(),
		WindowCapacity: h.window.Cap(),
		LastSequence:   h.seq.Last(),
	}
	if sup != nil {
		st.Status = sup.Status()
	}
	if sub != nil {
		cp := *sub
		st.Subscription = &cp
	}
	return st
}

// CheckReadiness returns nil while the current subscription is connected.
func (h *Hub) CheckReadiness(_ context.Context) error {
	st := h.Status()
	if st.Connected {
		return nil
	}
	if st.LastError != "" {
		return fmt.Errorf("stream not connected: %s", st.LastError)
	}
	return fmt.Errorf("stream not connected: %s", st.State)
}

// Close tears down the active subscription. Further Subscribe calls fail.
// Calling Close again is a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	if h.sup != nil {
		h.sup.Close()
	}
}
