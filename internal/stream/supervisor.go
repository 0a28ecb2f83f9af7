package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/couchcryptid/weather-stream-listener/internal/observability"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrNoEndpoint is reported when a supervisor is started without an endpoint.
	ErrNoEndpoint = errors.New("no endpoint provided")

	// ErrStreamEnded is recorded when the remote closes the stream cleanly.
	ErrStreamEnded = errors.New("stream closed by remote")
)

// DefaultReconnectDelay is the fixed backoff between an error and the next attempt.
const DefaultReconnectDelay = 5 * time.Second

// Config wires a Supervisor to its collaborators.
type Config struct {
	Endpoint       string
	Transport      Transport
	Sink           Sink
	Sequence       *domain.Sequence // nil starts a private sequence at 1
	ReconnectDelay time.Duration    // zero means DefaultReconnectDelay
	Clock          clockwork.Clock  // nil means the real clock
	Logger         *slog.Logger
	Metrics        *observability.Metrics

	// OnStatus is called on every state change, from the supervisor's goroutine.
	OnStatus func(domain.Status)
}

type signalKind int

const (
	signalOpened signalKind = iota
	signalMessage
	signalFailed
)

// signal is one transport callback, tagged with the generation of the
// connection attempt that produced it.
type signal struct {
	gen  uint64
	kind signalKind
	line string
	err  error
}

// Supervisor maintains one subscription to an endpoint, reconnecting after
// every transport failure until it is closed.
type Supervisor struct {
	cfg     Config
	signals chan signal
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	status  atomic.Pointer[domain.Status]

	// Owned by the loop goroutine after Start returns.
	gen      uint64
	state    domain.ConnectionState
	lastErr  string
	cancel   context.CancelFunc
	attempts sync.WaitGroup
	retry    clockwork.Timer
}

// Start creates a supervisor and immediately begins connecting to
// cfg.Endpoint. A missing endpoint is reported to OnStatus as a terminal
// configuration error and no connection is attempted.
func Start(cfg Config) *Supervisor {
	s := newSupervisor(cfg)

	if cfg.Endpoint == "" {
		s.cfg.Logger.Error("stream subscription not started", "error", ErrNoEndpoint)
		s.state = domain.StateClosed
		s.lastErr = ErrNoEndpoint.Error()
		s.publish()
		close(s.done)
		return s
	}

	s.connect()
	go s.loop()
	return s
}

func newSupervisor(cfg Config) *Supervisor {
	if cfg.Sequence == nil {
		cfg.Sequence = &domain.Sequence{}
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger = cfg.Logger.With("endpoint", cfg.Endpoint)

	return &Supervisor{
		cfg:     cfg,
		signals: make(chan signal),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Status returns the most recently published status. Safe for concurrent use.
func (s *Supervisor) Status() domain.Status {
	if st := s.status.Load(); st != nil {
		return *st
	}
	return domain.Status{State: domain.StateConnecting, Endpoint: s.cfg.Endpoint}
}

// Endpoint returns the subscribed endpoint.
func (s *Supervisor) Endpoint() string { return s.cfg.Endpoint }

// Close tears the subscription down: it cancels any pending reconnect, closes
// the transport and waits for it to return. No record is appended to the sink
// after Close returns. Calling Close again is a no-op.
func (s *Supervisor) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Supervisor) loop() {
	defer close(s.done)

	for {
		var retry <-chan time.Time
		if s.retry != nil {
			retry = s.retry.Chan()
		}

		select {
		case <-s.stop:
			s.shutdown()
			return
		case sig := <-s.signals:
			s.handle(sig)
		case <-retry:
			s.retry = nil
			s.connect()
		}
	}
}

// connect starts a new connection attempt under a fresh generation.
func (s *Supervisor) connect() {
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.state = domain.StateConnecting
	s.publish()
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ConnectionAttempts.Inc()
	}
	s.cfg.Logger.Info("stream connecting", "generation", gen)

	s.attempts.Add(1)
	go func() {
		defer s.attempts.Done()
		a := &attempt{s: s, gen: gen, ctx: ctx}
		err := s.cfg.Transport.Stream(ctx, s.cfg.Endpoint, a)
		if err == nil {
			err = ErrStreamEnded
		}
		a.post(signal{kind: signalFailed, err: err})
	}()
}

func (s *Supervisor) handle(sig signal) {
	if sig.gen != s.gen {
		s.cfg.Logger.Debug("dropping signal from superseded connection",
			"generation", sig.gen, "current", s.gen)
		return
	}

	switch sig.kind {
	case signalOpened:
		s.opened()
	case signalMessage:
		s.message(sig.line)
	case signalFailed:
		s.failed(sig.err)
	}
}

func (s *Supervisor) opened() {
	if s.state != domain.StateConnecting {
		return
	}
	s.state = domain.StateOpen
	s.lastErr = ""
	s.publish()
	s.cfg.Logger.Info("stream open", "generation", s.gen)
}

func (s *Supervisor) message(line string) {
	if s.state != domain.StateOpen && s.state != domain.StateConnecting {
		return
	}
	payload, ok := domain.ParseLine(line)
	if !ok {
		return
	}
	rec := domain.NewRecord(s.cfg.Sequence.Next(), payload)
	if payload.Kind == domain.PayloadRaw {
		s.cfg.Logger.Debug("payload kept as raw text", "seq", rec.Seq)
	}
	s.cfg.Sink.Append(rec)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordsIngested.WithLabelValues(string(payload.Kind)).Inc()
	}
}

func (s *Supervisor) failed(err error) {
	if s.state != domain.StateOpen && s.state != domain.StateConnecting {
		return
	}
	s.cancel()
	s.state = domain.StateErrored
	s.lastErr = fmt.Sprintf("stream connection error: %v", err)
	s.publish()
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.StreamErrors.Inc()
	}
	s.cfg.Logger.Warn("stream failed, reconnecting",
		"generation", s.gen, "error", err, "delay", s.cfg.ReconnectDelay)

	s.retry = s.cfg.Clock.NewTimer(s.cfg.ReconnectDelay)
}

func (s *Supervisor) shutdown() {
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.attempts.Wait()

	s.state = domain.StateClosed
	s.publish()
	s.cfg.Logger.Info("stream closed", "generation", s.gen)
}

// publish stores the current status and notifies observers.
func (s *Supervisor) publish() {
	st := domain.Status{
		State:      s.state,
		Connected:  s.state == domain.StateOpen,
		LastError:  s.lastErr,
		Endpoint:   s.cfg.Endpoint,
		Generation: s.gen,
	}
	s.status.Store(&st)
	if s.cfg.Metrics != nil {
		up := 0.0
		if st.Connected {
			up = 1
		}
		s.cfg.Metrics.ConnectionUp.Set(up)
	}
	if s.cfg.OnStatus != nil {
		s.cfg.OnStatus(st)
	}
}

// attempt is the Events handed to the transport for one generation.
type attempt struct {
	s   *Supervisor
	gen uint64
	ctx context.Context
}

func (a *attempt) Opened() { a.post(signal{kind: signalOpened}) }

func (a *attempt) Message(line string) { a.post(signal{kind: signalMessage, line: line}) }

// post hands a signal to the loop, giving up once the attempt is cancelled.
func (a *attempt) post(sig signal) {
	sig.gen = a.gen
	select {
	case a.s.signals <- sig:
	case <-a.ctx.Done():
	}
}
