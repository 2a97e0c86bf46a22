package geo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(DefaultRegions())
}

func TestHaversineKm(t *testing.T) {
	dhaka := Point{Lat: 23.8103, Lon: 90.4125}
	chittagong := Point{Lat: 22.3569, Lon: 91.7832}

	t.Run("zero distance to self", func(t *testing.T) {
		assert.Zero(t, HaversineKm(dhaka, dhaka))
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.InDelta(t, HaversineKm(dhaka, chittagong), HaversineKm(chittagong, dhaka), 1e-9)
	})

	t.Run("known distance", func(t *testing.T) {
		// Dhaka to Chittagong is roughly 215 km great-circle.
		d := HaversineKm(dhaka, chittagong)
		assert.InDelta(t, 215, d, 10)
	})
}

func TestResolve(t *testing.T) {
	reg := testRegistry()
	ctx := context.Background()

	tests := []struct {
		name  string
		point Point
		want  string
	}{
		{"inside dhaka", Point{Lat: 23.81, Lon: 90.41}, "Dhaka"},
		{"inside chittagong", Point{Lat: 22.36, Lon: 91.78}, "Chittagong"},
		{"edge of dhaka radius", Point{Lat: 23.95, Lon: 90.41}, "Dhaka"},
		{"open ocean", Point{Lat: 0, Lon: 0}, UnknownRegion},
		{"between regions", Point{Lat: 23.0, Lon: 91.0}, UnknownRegion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Resolve(ctx, tt.point)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_NearestWins(t *testing.T) {
	// Overlapping regions: the point sits inside both radii but closer
	// to B's center.
	reg := NewRegistry([]Region{
		{Name: "A", Lat: 10.0, Lon: 10.0, RadiusKm: 100},
		{Name: "B", Lat: 10.5, Lon: 10.0, RadiusKm: 100},
	})
	got, err := reg.Resolve(context.Background(), Point{Lat: 10.4, Lon: 10.0})
	require.NoError(t, err)
	assert.Equal(t, "B", got)
}

func TestResolve_RegistrationOrderBreaksTies(t *testing.T) {
	reg := NewRegistry([]Region{
		{Name: "First", Lat: 10.0, Lon: 10.0, RadiusKm: 100},
		{Name: "Second", Lat: 10.0, Lon: 10.0, RadiusKm: 100},
	})
	got, err := reg.Resolve(context.Background(), Point{Lat: 10.1, Lon: 10.0})
	require.NoError(t, err)
	assert.Equal(t, "First", got)
}

func TestLoadRegistry(t *testing.T) {
	t.Run("parses toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "regions.toml")
		content := `
[[regions]]
name = "Dhaka"
lat = 23.8103
lon = 90.4125
radius_km = 50.0

[[regions]]
name = "Sylhet"
lat = 24.8949
lon = 91.8687
radius_km = 35.0
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		reg, err := LoadRegistry(path)
		require.NoError(t, err)
		require.Len(t, reg.Regions(), 2)
		assert.Equal(t, "Dhaka", reg.Regions()[0].Name)

		region, ok := reg.Find("Sylhet")
		require.True(t, ok)
		assert.Equal(t, 35.0, region.RadiusKm)
	})

	t.Run("rejects empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "regions.toml")
		require.NoError(t, os.WriteFile(path, []byte(""), 0o600))
		_, err := LoadRegistry(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}
