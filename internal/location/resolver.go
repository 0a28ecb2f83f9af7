package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
)

// ErrUnknownLocation is returned for names neither the catalog nor the
// geocoder can place.
var ErrUnknownLocation = errors.New("unknown location")

// minConfidence is the lowest geocoder relevance accepted for a fallback match.
const minConfidence = 0.5

// Resolver maps location names to coordinates and stream endpoints.
type Resolver struct {
	catalog  *Catalog
	geocoder domain.Geocoder // optional fallback
	baseURL  string
	interval int
	logger   *slog.Logger
}

// NewResolver creates a resolver. baseURL is the stream endpoint that lat, lon
// and interval query parameters are added to. geocoder may be nil.
func NewResolver(catalog *Catalog, geocoder domain.Geocoder, baseURL string, interval int, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalog:  catalog,
		geocoder: geocoder,
		baseURL:  baseURL,
		interval: interval,
		logger:   logger,
	}
}

// List returns the catalog locations.
func (r *Resolver) List() []domain.Location {
	return r.catalog.List()
}

// Resolve looks name up in the catalog, then falls back to the geocoder.
func (r *Resolver) Resolve(ctx context.Context, name string) (domain.Location, error) {
	if loc, ok := r.catalog.Lookup(name); ok {
		return loc, nil
	}
	if r.geocoder == nil {
		return domain.Location{}, fmt.Errorf("%w: %q", ErrUnknownLocation, name)
	}

	res, err := r.geocoder.ForwardGeocode(ctx, name)
	if err != nil {
		return domain.Location{}, fmt.Errorf("geocode %q: %w", name, err)
	}
	if res.FormattedAddress == "" || res.Confidence < minConfidence {
		return domain.Location{}, fmt.Errorf("%w: %q", ErrUnknownLocation, name)
	}

	loc := domain.Location{Name: name, Lat: res.Lat, Lon: res.Lon}
	if res.PlaceName != "" {
		loc.Name = res.PlaceName
	}
	r.logger.Info("location resolved by geocoder",
		"query", name, "name", loc.Name, "lat", loc.Lat, "lon", loc.Lon, "confidence", res.Confidence)
	return loc, nil
}

// Endpoint resolves name and returns the stream endpoint for it.
func (r *Resolver) Endpoint(ctx context.Context, name string) (string, domain.Location, error) {
	loc, err := r.Resolve(ctx, name)
	if err != nil {
		return "", domain.Location{}, err
	}
	endpoint, err := BuildEndpoint(r.baseURL, loc, r.interval)
	if err != nil {
		return "", domain.Location{}, err
	}
	return endpoint, loc, nil
}

// BuildEndpoint adds the lat, lon and interval query parameters to baseURL,
// keeping any parameters it already has.
func BuildEndpoint(baseURL string, loc domain.Location, interval int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	q.Set("interval", strconv.Itoa(interval))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
