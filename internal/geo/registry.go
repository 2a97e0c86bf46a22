package geo

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const earthRadiusKm = 6371

// Resolver maps a GPS point to a region name, or UnknownRegion.
type Resolver interface {
	Resolve(ctx context.Context, p Point) (string, error)
}

// Registry holds the static region list. Resolution scans linearly, which
// is fine at tens of regions; switch to a spatial index if the registry
// grows past that.
type Registry struct {
	regions []Region
}

// NewRegistry builds a registry from a region list. Order matters: it is
// the deterministic tie-break for equidistant matches.
func NewRegistry(regions []Region) *Registry {
	return &Registry{regions: regions}
}

// LoadRegistry reads a TOML region file:
//
//	[[regions]]
//	name = "Dhaka"
//	lat = 23.8103
//	lon = 90.4125
//	radius_km = 50.0
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions file: %w", err)
	}
	var file struct {
		Regions []Region `toml:"regions"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse regions file: %w", err)
	}
	if len(file.Regions) == 0 {
		return nil, fmt.Errorf("regions file %s contains no regions", path)
	}
	return NewRegistry(file.Regions), nil
}

// DefaultRegions is the development fallback registry.
func DefaultRegions() []Region {
	return []Region{
		{Name: "Dhaka", Lat: 23.8103, Lon: 90.4125, RadiusKm: 50},
		{Name: "Chittagong", Lat: 22.3569, Lon: 91.7832, RadiusKm: 40},
		{Name: "Sylhet", Lat: 24.8949, Lon: 91.8687, RadiusKm: 35},
		{Name: "Khulna", Lat: 22.8456, Lon: 89.5403, RadiusKm: 35},
		{Name: "Rajshahi", Lat: 24.3745, Lon: 88.6042, RadiusKm: 30},
	}
}

// Regions returns the registry contents in registration order.
func (r *Registry) Regions() []Region {
	out := make([]Region, len(r.regions))
	copy(out, r.regions)
	return out
}

// Find returns the named region.
func (r *Registry) Find(name string) (Region, bool) {
	for _, region := range r.regions {
		if region.Name == name {
			return region, true
		}
	}
	return Region{}, false
}

// Resolve maps p to the nearest region whose radius contains it, scanning
// in registration order so equidistant candidates break ties
// deterministically. Returns UnknownRegion when nothing contains p.
// Pure: no state is held between calls.
func (r *Registry) Resolve(_ context.Context, p Point) (string, error) {
	name := UnknownRegion
	best := math.Inf(1)
	for _, region := range r.regions {
		d := HaversineKm(p, region.Center())
		if d <= region.RadiusKm && d < best {
			best = d
			name = region.Name
		}
	}
	return name, nil
}

// HaversineKm computes the great-circle distance between two points on a
// sphere of Earth's radius (6371 km).
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
