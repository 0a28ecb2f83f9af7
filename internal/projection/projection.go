// Package projection derives chart-ready series from window snapshots.
//
// Every function here is a pure function of its input: projections are
// recomputed from a fresh snapshot whenever the window changes and never
// cache state between calls.
package projection

import (
	"cmp"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
)

// KindWeather is the discriminator of telemetry samples sent by the weather producer.
const KindWeather = "weather"

// DefaultFields are the numeric payload keys extracted from weather samples.
var DefaultFields = []string{"temperature", "windspeed", "winddirection", "weathercode"}

// epochMillisThreshold separates epoch seconds from epoch milliseconds. 1e11
// seconds is past the year 5000 while 1e11 milliseconds is in 1973.
const epochMillisThreshold = 1e11

// Entry is one point of a time series.
// Values holds only the fields present in the source payload; a missing field
// is absent rather than zero so chart scales are not dragged to the origin.
type Entry struct {
	Seq    uint64
	Time   time.Time
	Values map[string]float64
}

// Value returns a numeric field and whether the payload carried it.
func (e Entry) Value(field string) (float64, bool) {
	v, ok := e.Values[field]
	return v, ok
}

// MarshalJSON flattens the entry into the shape chart libraries expect:
// {"seq":1,"time":<epoch ms>,"temperature":31.4,...}.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Values)+2)
	for k, v := range e.Values {
		out[k] = v
	}
	out["seq"] = e.Seq
	out["time"] = e.Time.UnixMilli()
	return json.Marshal(out)
}

// Builder projects records of one kind into a numeric time series.
type Builder struct {
	kind     string
	fields   []string
	location *time.Location
}

// NewBuilder creates a Builder matching payloads whose "type" equals kind.
// Segment boundaries are computed in loc; nil means UTC.
func NewBuilder(kind string, loc *time.Location, fields ...string) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return &Builder{kind: kind, fields: slices.Clone(fields), location: loc}
}

// Kind returns the discriminator this builder matches.
func (b *Builder) Kind() string { return b.kind }

// Location returns the time zone used for day/night shading.
func (b *Builder) Location() *time.Location { return b.location }

// Project filters records to the builder's kind and maps each match to an
// Entry, oldest first by sequence number regardless of the input order.
// Non-matching and raw records are skipped.
func (b *Builder) Project(records []domain.Record) []Entry {
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		obj, ok := rec.Payload.Object()
		if !ok {
			continue
		}
		if kind, _ := obj["type"].(string); kind != b.kind {
			continue
		}
		entries = append(entries, Entry{
			Seq:    rec.Seq,
			Time:   eventTime(obj, rec.ReceivedAt),
			Values: b.extract(obj),
		})
	}
	slices.SortStableFunc(entries, func(x, y Entry) int {
		return cmp.Compare(x.Seq, y.Seq)
	})
	return entries
}

func (b *Builder) extract(obj map[string]any) map[string]float64 {
	values := make(map[string]float64, len(b.fields))
	for _, f := range b.fields {
		if v, ok := number(obj[f]); ok {
			values[f] = v
		}
	}
	return values
}

// Latest returns the newest entry of a projection.
func Latest(entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[len(entries)-1], true
}

// eventTime reads the producer's "timestamp" or "time" field, accepting epoch
// seconds, epoch milliseconds, or RFC 3339 text. It falls back to the
// ingestion time when neither field is usable.
func eventTime(obj map[string]any, receivedAt time.Time) time.Time {
	for _, key := range []string{"timestamp", "time"} {
		switch v := obj[key].(type) {
		case float64:
			if v <= 0 {
				continue
			}
			if v >= epochMillisThreshold {
				return time.UnixMilli(int64(v)).UTC()
			}
			sec := int64(v)
			return time.Unix(sec, int64((v-float64(sec))*1e9)).UTC()
		case string:
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
				return t.UTC()
			}
		}
	}
	return receivedAt
}

// number accepts finite JSON numbers and numeric strings; anything else,
// including "NaN" and "Inf" text, is absent.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
