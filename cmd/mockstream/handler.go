package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	defaultLat      = 23.8103
	defaultLon      = 90.4125
	defaultInterval = 30
)

// streamHandler emits one synthetic stream per request until the client leaves.
type streamHandler struct {
	clock       clockwork.Clock
	minInterval time.Duration
	errorEvery  int
	logger      *slog.Logger
}

func (h *streamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	lat := parseFloat(q.Get("lat"), defaultLat)
	lon := parseFloat(q.Get("lon"), defaultLon)
	interval := time.Duration(parseInt(q.Get("interval"), defaultInterval)) * time.Second
	interval = max(interval, h.minInterval)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger := h.logger.With("lat", lat, "lon", lon, "interval", interval)
	logger.Info("client connected")
	defer logger.Info("client disconnected")

	send := func(v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			logger.Error("encode event", "error", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(map[string]any{"type": "connected", "lat": lat, "lon": lon}) {
		return
	}

	gen := newGenerator(lat, lon)
	ticker := h.clock.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		var event any
		if h.errorEvery > 0 && n%h.errorEvery == 0 {
			event = map[string]any{"type": "error", "msg": "fetch_failed", "detail": "synthetic upstream failure"}
		} else {
			event = gen.sample(h.clock.Now())
		}
		if !send(event) {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.Chan():
		}
	}
}

// sample is one weather event as the production producer shapes it.
type sample struct {
	Type          string  `json:"type"`
	Timestamp     int64   `json:"timestamp"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Temperature   float64 `json:"temperature"`
	Windspeed     float64 `json:"windspeed"`
	Winddirection float64 `json:"winddirection"`
	Weathercode   int     `json:"weathercode"`
}

// generator produces a plausible random walk, seeded by the coordinates so a
// location always yields the same series.
type generator struct {
	lat, lon float64
	rng      *rand.Rand
	wind     float64
	dir      float64
}

var weatherCodes = []int{0, 1, 2, 3, 45, 61, 63, 80, 95}

func newGenerator(lat, lon float64) *generator {
	rng := rand.New(rand.NewPCG(math.Float64bits(lat), math.Float64bits(lon)))
	return &generator{
		lat:  lat,
		lon:  lon,
		rng:  rng,
		wind: 5 + rng.Float64()*10,
		dir:  rng.Float64() * 360,
	}
}

func (g *generator) sample(now time.Time) sample {
	// Diurnal curve peaking mid-afternoon, cooler away from the equator.
	hour := float64(now.UTC().Hour()) + g.lon/15
	base := 30 - math.Abs(g.lat)/3
	temp := base + 4*math.Sin((hour-9)/24*2*math.Pi) + g.rng.NormFloat64()*0.3

	g.wind = math.Max(0, g.wind+g.rng.NormFloat64())
	g.dir = math.Mod(g.dir+g.rng.NormFloat64()*10+360, 360)

	return sample{
		Type:          "weather",
		Timestamp:     now.Unix(),
		Latitude:      g.lat,
		Longitude:     g.lon,
		Temperature:   round1(temp),
		Windspeed:     round1(g.wind),
		Winddirection: math.Round(g.dir),
		Weathercode:   weatherCodes[g.rng.IntN(len(weatherCodes))],
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func parseFloat(s string, def float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func parseInt(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
