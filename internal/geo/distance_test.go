package geo

import (
	"math"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_IdenticalPoints(t *testing.T) {
	for i := 0; i < 50; i++ {
		lat := gofakeit.Latitude()
		lon := gofakeit.Longitude()

		assert.Equal(t, 0.0, DistanceKm(lat, lon, lat, lon), "lat=%v lon=%v", lat, lon)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	for i := 0; i < 50; i++ {
		lat1, lon1 := gofakeit.Latitude(), gofakeit.Longitude()
		lat2, lon2 := gofakeit.Latitude(), gofakeit.Longitude()

		assert.Equal(t, DistanceKm(lat1, lon1, lat2, lon2), DistanceKm(lat2, lon2, lat1, lon1))
	}
}

func TestDistanceKm_Antipodal(t *testing.T) {
	d := DistanceKm(0, 0, 0, 180)

	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1e-6)
	assert.InDelta(t, 20015.0, d, 1.0)
}

func TestDistanceKm_KnownDistances(t *testing.T) {
	testCases := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{"one degree of latitude", 30.0, 31.0, 31.0, 31.0, 111.19, 0.01},
		{"one degree of longitude on the equator", 0, 10, 0, 11, 111.19, 0.01},
		{"Cairo to Alexandria", 30.0444, 31.2357, 31.2001, 29.9187, 179.0, 2.0},
		{"pole to pole", 90, 0, -90, 0, 20015.09, 0.01},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, DistanceKm(tc.lat1, tc.lon1, tc.lat2, tc.lon2), tc.delta)
		})
	}
}

func TestDistanceKm_NeverNegative(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := DistanceKm(gofakeit.Latitude(), gofakeit.Longitude(), gofakeit.Latitude(), gofakeit.Longitude())

		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, math.Pi*EarthRadiusKm+1e-6)
	}
}
