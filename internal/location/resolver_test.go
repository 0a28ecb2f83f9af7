package location

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
	calls  int
}

func (s *stubGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	s.calls++
	return s.result, s.err
}

const testBase = "http://127.0.0.1:8000/api/stream_weather/"

func newTestResolver(t *testing.T, g domain.Geocoder) *Resolver {
	t.Helper()
	c, err := NewCatalog(Builtin)
	require.NoError(t, err)
	return NewResolver(c, g, testBase, 10, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolver_Endpoint_Catalog(t *testing.T) {
	g := &stubGeocoder{}
	r := newTestResolver(t, g)

	endpoint, loc, err := r.Endpoint(context.Background(), "Sylhet")
	require.NoError(t, err)
	assert.Equal(t, "Sylhet", loc.Name)
	assert.Zero(t, g.calls, "catalog hits skip the geocoder")

	u, err := url.Parse(endpoint)
	require.NoError(t, err)
	assert.Equal(t, "/api/stream_weather/", u.Path)
	assert.Equal(t, "24.8949", u.Query().Get("lat"))
	assert.Equal(t, "91.8687", u.Query().Get("lon"))
	assert.Equal(t, "10", u.Query().Get("interval"))
}

func TestResolver_Resolve_GeocoderFallback(t *testing.T) {
	g := &stubGeocoder{result: domain.GeocodingResult{
		Lat: 22.8456, Lon: 89.5403, PlaceName: "Khulna", FormattedAddress: "Khulna, Bangladesh", Confidence: 0.9,
	}}
	r := newTestResolver(t, g)

	loc, err := r.Resolve(context.Background(), "khulna city")
	require.NoError(t, err)
	assert.Equal(t, domain.Location{Name: "Khulna", Lat: 22.8456, Lon: 89.5403}, loc)
	assert.Equal(t, 1, g.calls)
}

func TestResolver_Resolve_Unknown(t *testing.T) {
	tests := []struct {
		name     string
		geocoder domain.Geocoder
	}{
		{"no geocoder", nil},
		{"no match", &stubGeocoder{}},
		{"low confidence", &stubGeocoder{result: domain.GeocodingResult{FormattedAddress: "Somewhere", Confidence: 0.2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, tt.geocoder)
			_, err := r.Resolve(context.Background(), "Atlantis")
			assert.ErrorIs(t, err, ErrUnknownLocation)
		})
	}
}

func TestResolver_Resolve_GeocoderError(t *testing.T) {
	r := newTestResolver(t, &stubGeocoder{err: errors.New("timeout")})

	_, err := r.Resolve(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownLocation)
	assert.Contains(t, err.Error(), "timeout")
}

func TestBuildEndpoint_KeepsExistingQuery(t *testing.T) {
	endpoint, err := BuildEndpoint("https://example.test/stream?units=metric&lat=0",
		domain.Location{Lat: -1.5, Lon: 36.8}, 30)
	require.NoError(t, err)

	u, err := url.Parse(endpoint)
	require.NoError(t, err)
	assert.Equal(t, "metric", u.Query().Get("units"))
	assert.Equal(t, "-1.5", u.Query().Get("lat"))
	assert.Equal(t, "36.8", u.Query().Get("lon"))
	assert.Equal(t, "30", u.Query().Get("interval"))
}

func TestResolver_List(t *testing.T) {
	r := newTestResolver(t, nil)
	assert.Len(t, r.List(), 3)
}
