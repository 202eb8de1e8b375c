package geomap

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/geo-planner/pkg/models"
)

func seoulMarkers() []Marker {
	return []Marker{
		{Number: 1, Name: "Gyeongbokgung", Location: models.Location{Lat: 37.5796, Lon: 126.9770}},
		{Number: 2, Name: "N Seoul Tower", Location: models.Location{Lat: 37.5512, Lon: 126.9882}},
		{Number: 3, Name: "Lotte World", Location: models.Location{Lat: 37.5111, Lon: 127.0982}},
		{Number: 4, Name: "Haeundae", Location: models.Location{Lat: 35.1587, Lon: 129.1604}}, // Busan
	}
}

func TestNewMarkerIndex(t *testing.T) {
	idx := NewMarkerIndex(nil)
	assert.Equal(t, 0, idx.Len())
	_, ok := idx.Bounds()
	assert.False(t, ok)

	idx = NewMarkerIndex(seoulMarkers())
	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, seoulMarkers(), idx.All())
}

func TestMarkerSearch(t *testing.T) {
	idx := NewMarkerIndex(seoulMarkers())

	testCases := []struct {
		name     string
		box      models.BoundingBox
		expected []int
	}{
		{
			name: "central seoul",
			box: models.BoundingBox{
				BottomLeft: models.Location{Lat: 37.54, Lon: 126.95},
				TopRight:   models.Location{Lat: 37.60, Lon: 127.00},
			},
			expected: []int{1, 2},
		},
		{
			name: "whole city",
			box: models.BoundingBox{
				BottomLeft: models.Location{Lat: 37.4, Lon: 126.8},
				TopRight:   models.Location{Lat: 37.7, Lon: 127.2},
			},
			expected: []int{1, 2, 3},
		},
		{
			name: "ocean",
			box: models.BoundingBox{
				BottomLeft: models.Location{Lat: 30, Lon: 120},
				TopRight:   models.Location{Lat: 31, Lon: 121},
			},
			expected: []int{},
		},
		{
			name: "point box on a marker",
			box: models.BoundingBox{
				BottomLeft: models.Location{Lat: 35.1587, Lon: 129.1604},
				TopRight:   models.Location{Lat: 35.1587, Lon: 129.1604},
			},
			expected: []int{4},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := idx.Search(tc.box)
			require.NoError(t, err)

			numbers := make([]int, 0, len(results))
			for _, m := range results {
				numbers = append(numbers, m.Number)
			}
			assert.Equal(t, tc.expected, numbers)
		})
	}
}

func TestMarkerSearchInvertedBox(t *testing.T) {
	idx := NewMarkerIndex(seoulMarkers())
	_, err := idx.Search(models.BoundingBox{
		BottomLeft: models.Location{Lat: 38, Lon: 127},
		TopRight:   models.Location{Lat: 37, Lon: 126},
	})
	assert.Error(t, err)
}

func TestMarkerNearest(t *testing.T) {
	idx := NewMarkerIndex(seoulMarkers())

	results := idx.Nearest(models.Location{Lat: 37.58, Lon: 126.98}, 2)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Number)
	assert.Equal(t, 2, results[1].Number)

	assert.Nil(t, idx.Nearest(models.Location{}, 0))
	assert.Nil(t, NewMarkerIndex(nil).Nearest(models.Location{}, 3))
}

func TestMarkerBounds(t *testing.T) {
	idx := NewMarkerIndex(seoulMarkers())
	box, ok := idx.Bounds()
	require.True(t, ok)
	assert.Equal(t, models.Location{Lat: 35.1587, Lon: 126.9770}, box.BottomLeft)
	assert.Equal(t, models.Location{Lat: 37.5796, Lon: 129.1604}, box.TopRight)

	for _, m := range idx.All() {
		assert.True(t, box.Contains(m.Location), "marker %d outside bounds", m.Number)
	}
}

func randomMarkers(n int) []Marker {
	markers := make([]Marker, n)
	for i := range markers {
		markers[i] = Marker{
			Number: i + 1,
			Name:   fmt.Sprintf("place_%d", i),
			Location: models.Location{
				Lat: rand.Float64()*3 + 35, // 35-38
				Lon: rand.Float64()*3 + 126,
			},
		}
	}
	return markers
}

func TestRandomMarkersStayInsideBounds(t *testing.T) {
	markers := randomMarkers(500)
	idx := NewMarkerIndex(markers)

	box, ok := idx.Bounds()
	require.True(t, ok)
	results, err := idx.Search(box)
	require.NoError(t, err)
	assert.Len(t, results, len(markers))
}

func TestDistance(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     models.Location
		expected float64
		delta    float64
	}{
		{
			name:     "Same point",
			a:        models.Location{Lat: 37.5665, Lon: 126.9780},
			b:        models.Location{Lat: 37.5665, Lon: 126.9780},
			expected: 0,
			delta:    0.01,
		},
		{
			name:     "Seoul to Busan",
			a:        models.Location{Lat: 37.5665, Lon: 126.9780},
			b:        models.Location{Lat: 35.1796, Lon: 129.0756},
			expected: 325.0,
			delta:    5.0,
		},
		{
			name:     "SF to LA",
			a:        models.Location{Lat: 37.7749, Lon: -122.4194},
			b:        models.Location{Lat: 34.0522, Lon: -118.2437},
			expected: 559.0,
			delta:    5.0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Distance(tc.a, tc.b), tc.delta)
		})
	}
}

func BenchmarkNewMarkerIndex(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("%d_markers", size), func(b *testing.B) {
			markers := randomMarkers(size)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = NewMarkerIndex(markers)
			}
		})
	}
}

func BenchmarkMarkerSearch(b *testing.B) {
	idx := NewMarkerIndex(randomMarkers(1000))
	box := models.BoundingBox{
		BottomLeft: models.Location{Lat: 36, Lon: 127},
		TopRight:   models.Location{Lat: 37, Lon: 128},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(box)
	}
}

func BenchmarkMarkerNearest(b *testing.B) {
	idx := NewMarkerIndex(randomMarkers(1000))
	center := models.Location{Lat: 37.5, Lon: 127}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.Nearest(center, 10)
	}
}
