package projection

import "time"

// Daylight runs from 06:00 inclusive to 18:00 exclusive, local time.
const (
	dayStartHour = 6
	dayEndHour   = 18
)

// Segment is the span between two adjacent entries of a projection, shaded as
// day or night by the local hour of its start.
type Segment struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Daylight bool      `json:"daylight"`
}

// Segments returns one segment per adjacent pair of entries, so n entries
// yield n-1 segments.
func (b *Builder) Segments(entries []Entry) []Segment {
	if len(entries) < 2 {
		return nil
	}
	out := make([]Segment, 0, len(entries)-1)
	for i := range len(entries) - 1 {
		start := entries[i].Time
		out = append(out, Segment{
			Start:    start,
			End:      entries[i+1].Time,
			Daylight: IsDaylight(start, b.location),
		})
	}
	return out
}

// IsDaylight reports whether t falls in daytime hours in loc.
func IsDaylight(t time.Time, loc *time.Location) bool {
	h := t.In(loc).Hour()
	return h >= dayStartHour && h < dayEndHour
}
