package geo

import "context"

// Diversion is the outcome of checking a location sample against a
// shipment's assigned region.
type Diversion struct {
	Diverted       bool    `json:"diverted"`
	AssignedRegion string  `json:"assigned_region"`
	CurrentRegion  string  `json:"current_region"`
	// DistanceKm is the distance from the sample to the assigned region's
	// center. Only meaningful when Diverted is true.
	DistanceKm float64 `json:"distance_km,omitempty"`
}

// Detector checks location samples against assigned regions.
type Detector struct {
	registry *Registry
	resolver Resolver
}

// NewDetector builds a Detector. The resolver is usually the registry
// itself, optionally wrapped in a cache.
func NewDetector(registry *Registry, resolver Resolver) *Detector {
	if resolver == nil {
		resolver = registry
	}
	return &Detector{registry: registry, resolver: resolver}
}

// Check resolves p and compares it to the assigned region. Diversion is
// asserted only when both regions resolve and differ: an unknown location
// or an unregistered assignment yields an inconclusive, non-diverted
// result rather than a false alarm.
func (d *Detector) Check(ctx context.Context, assigned string, p Point) (Diversion, error) {
	current, err := d.resolver.Resolve(ctx, p)
	if err != nil {
		return Diversion{}, err
	}

	out := Diversion{AssignedRegion: assigned, CurrentRegion: current}
	if assigned == "" || assigned == UnknownRegion || current == UnknownRegion {
		return out, nil
	}
	if current == assigned {
		return out, nil
	}

	out.Diverted = true
	if region, ok := d.registry.Find(assigned); ok {
		out.DistanceKm = HaversineKm(p, region.Center())
	}
	return out, nil
}
