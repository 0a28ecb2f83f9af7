// Package location resolves location names to stream subscription endpoints.
package location

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"gopkg.in/yaml.v3"
)

// Builtin is the catalog used when no locations file is configured.
var Builtin = []domain.Location{
	{Name: "Dhaka", Lat: 23.8103, Lon: 90.4125},
	{Name: "Chattogram", Lat: 22.3569, Lon: 91.7832},
	{Name: "Sylhet", Lat: 24.8949, Lon: 91.8687},
}

// Catalog is an ordered set of named locations. Lookups ignore case.
type Catalog struct {
	locations []domain.Location
	byKey     map[string]int
}

type catalogFile struct {
	Locations []domain.Location `yaml:"locations"`
}

// NewCatalog builds a catalog from locs. Names must be unique ignoring case
// and coordinates must be in range.
func NewCatalog(locs []domain.Location) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]int, len(locs))}
	for _, loc := range locs {
		loc.Name = strings.TrimSpace(loc.Name)
		if loc.Name == "" {
			return nil, errors.New("location name is empty")
		}
		if err := validateCoordinates(loc); err != nil {
			return nil, err
		}
		k := key(loc.Name)
		if _, dup := c.byKey[k]; dup {
			return nil, fmt.Errorf("duplicate location %q", loc.Name)
		}
		c.byKey[k] = len(c.locations)
		c.locations = append(c.locations, loc)
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog of the form
//
//	locations:
//	  - name: Dhaka
//	    lat: 23.8103
//	    lon: 90.4125
//
// An empty path returns the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(Builtin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse locations file %s: %w", path, err)
	}
	if len(f.Locations) == 0 {
		return nil, fmt.Errorf("locations file %s lists no locations", path)
	}
	c, err := NewCatalog(f.Locations)
	if err != nil {
		return nil, fmt.Errorf("locations file %s: %w", path, err)
	}
	return c, nil
}

// Lookup finds a location by name.
func (c *Catalog) Lookup(name string) (domain.Location, bool) {
	i, ok := c.byKey[key(name)]
	if !ok {
		return domain.Location{}, false
	}
	return c.locations[i], true
}

// List returns the catalog in file order.
func (c *Catalog) List() []domain.Location {
	return slices.Clone(c.locations)
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateCoordinates(loc domain.Location) error {
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lon < -180 || loc.Lon > 180 {
		return fmt.Errorf("location %q has out of range coordinates %.4f,%.4f", loc.Name, loc.Lat, loc.Lon)
	}
	return nil
}
