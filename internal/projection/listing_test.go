package projection

import (
	"testing"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBadges(t *testing.T) {
	rec := structured(t, 1, `{"channel":"sms","status":"delivered","audience":"","source":42,"extra":"x"}`)

	got := Badges(rec)

	assert.Equal(t, []Badge{
		{Field: "status", Value: "delivered"},
		{Field: "channel", Value: "sms"},
	}, got)
}

func TestBadges_RawRecord(t *testing.T) {
	assert.Nil(t, Badges(raw(1, "status: ok")))
}

func TestNewestFirst_DoesNotMutateInput(t *testing.T) {
	in := []domain.Record{raw(1, "a"), raw(2, "b"), raw(3, "c")}

	out := NewestFirst(in)

	assert.Equal(t, []uint64{3, 2, 1}, []uint64{out[0].Seq, out[1].Seq, out[2].Seq})
	assert.Equal(t, uint64(1), in[0].Seq)
}
