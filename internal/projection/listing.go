package projection

import (
	"slices"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
)

// badgeFields are the string payload fields highlighted in event listings.
var badgeFields = []string{"status", "source", "audience", "channel"}

// Badge is a short label extracted from a payload.
type Badge struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Badges returns the non-empty status/source/audience/channel fields of a
// structured record, in that order.
func Badges(rec domain.Record) []Badge {
	obj, ok := rec.Payload.Object()
	if !ok {
		return nil
	}
	var out []Badge
	for _, f := range badgeFields {
		if s, _ := obj[f].(string); s != "" {
			out = append(out, Badge{Field: f, Value: s})
		}
	}
	return out
}

// NewestFirst returns a reversed copy of an oldest-first snapshot, for
// listings that show the latest event on top.
func NewestFirst(records []domain.Record) []domain.Record {
	out := slices.Clone(records)
	slices.Reverse(out)
	return out
}
