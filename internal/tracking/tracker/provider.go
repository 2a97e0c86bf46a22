package tracker

import (
	"context"
	"time"

	"chaintrace/internal/geo"
)

// StaticProvider reports a fixed position, for gateways installed at a
// known site or for local development.
type StaticProvider struct {
	point geo.Point
}

// NewStaticProvider builds a provider pinned to one point.
func NewStaticProvider(lat, lon float64) *StaticProvider {
	return &StaticProvider{point: geo.Point{Lat: lat, Lon: lon}}
}

func (p *StaticProvider) Current(ctx context.Context) (geo.Point, error) {
	if err := ctx.Err(); err != nil {
		return geo.Point{}, &ProviderError{Kind: KindOf(err), Err: err}
	}
	point := p.point
	point.Timestamp = time.Now()
	return point, nil
}
