package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T, clk clockwork.Clock, errorEvery int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(&streamHandler{
		clock:       clk,
		minInterval: 10 * time.Second,
		errorEvery:  errorEvery,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(srv.Close)
	return srv
}

// readEvent returns the next data payload, skipping blank separator lines.
func readEvent(t *testing.T, r *bufio.Reader) map[string]any {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		require.True(t, ok, "unexpected line %q", line)
		var v map[string]any
		require.NoError(t, json.Unmarshal([]byte(data), &v))
		return v
	}
}

func TestStreamHandler_EmitsConnectedThenSamples(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clk := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC))
	srv := newTestStream(t, clk, 0)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?lat=24.8949&lon=91.8687&interval=3", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	r := bufio.NewReader(resp.Body)
	connected := readEvent(t, r)
	assert.Equal(t, "connected", connected["type"])
	assert.Equal(t, 24.8949, connected["lat"])

	first := readEvent(t, r)
	assert.Equal(t, "weather", first["type"])
	assert.Equal(t, float64(clk.Now().Unix()), first["timestamp"])
	for _, f := range []string{"temperature", "windspeed", "winddirection", "weathercode"} {
		assert.Contains(t, first, f)
	}

	// interval=3 is raised to the 10s minimum.
	require.NoError(t, clk.BlockUntilContext(ctx, 1))
	clk.Advance(10 * time.Second)

	second := readEvent(t, r)
	assert.Equal(t, "weather", second["type"])
	assert.Equal(t, first["timestamp"].(float64)+10, second["timestamp"])
}

func TestStreamHandler_ErrorEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clk := clockwork.NewFakeClock()
	srv := newTestStream(t, clk, 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readEvent(t, r)["type"])
	ev := readEvent(t, r)
	assert.Equal(t, "error", ev["type"])
	assert.Equal(t, "fetch_failed", ev["msg"])
}

func TestGenerator_Deterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := newGenerator(22.3569, 91.7832)
	b := newGenerator(22.3569, 91.7832)

	for range 5 {
		sa, sb := a.sample(now), b.sample(now)
		assert.Equal(t, sa, sb)
		assert.GreaterOrEqual(t, sa.Windspeed, 0.0)
		assert.GreaterOrEqual(t, sa.Winddirection, 0.0)
		assert.Less(t, sa.Winddirection, 361.0)
	}
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, defaultLat, parseFloat("", defaultLat))
	assert.Equal(t, defaultLat, parseFloat("NaN", defaultLat))
	assert.Equal(t, 1.5, parseFloat("1.5", 0))
	assert.Equal(t, defaultInterval, parseInt("x", defaultInterval))
	assert.Equal(t, 12, parseInt("12", 0))
}
