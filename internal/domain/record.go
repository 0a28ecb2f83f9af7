package domain

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps ReceivedAt on new records.
var clock = clockwork.NewRealClock()

// SetClock replaces the clock used by NewRecord; nil restores the real one.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// PayloadKind tells whether a payload was decoded or kept as raw text.
type PayloadKind string

const (
	PayloadStructured PayloadKind = "structured"
	PayloadRaw        PayloadKind = "raw"
)

// Payload is the parsed body of one wire line.
// Value holds the decoded JSON value for structured payloads and the trimmed
// source text (a string) for raw ones.
type Payload struct {
	Kind  PayloadKind `json:"kind"`
	Value any         `json:"value"`
}

// Object returns the payload as a JSON object when it is one.
func (p Payload) Object() (map[string]any, bool) {
	if p.Kind != PayloadStructured {
		return nil, false
	}
	obj, ok := p.Value.(map[string]any)
	return obj, ok
}

// Type returns the "type" discriminator of a structured object payload.
func (p Payload) Type() string {
	obj, ok := p.Object()
	if !ok {
		return ""
	}
	t, _ := obj["type"].(string)
	return t
}

// Record is one ingested event.
type Record struct {
	Seq        uint64    `json:"seq"`
	ReceivedAt time.Time `json:"received_at"`
	Payload    Payload   `json:"payload"`
}

// NewRecord stamps a payload with its sequence number and the ingestion time.
func NewRecord(seq uint64, payload Payload) Record {
	return Record{
		Seq:        seq,
		ReceivedAt: clock.Now(),
		Payload:    payload,
	}
}

// Sequence hands out strictly increasing record numbers, starting at 1.
// It is safe for concurrent use.
type Sequence struct {
	last atomic.Uint64
}

// Next returns the next sequence number.
func (s *Sequence) Next() uint64 {
	return s.last.Add(1)
}

// Last returns the most recently issued number, or 0 if none was issued.
func (s *Sequence) Last() uint64 {
	return s.last.Load()
}
