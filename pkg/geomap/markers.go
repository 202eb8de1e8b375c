package geomap

import (
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/geo-planner/pkg/models"
)

const (
	tolerance   = 1e-7
	minChildren = 4
	maxChildren = 16
	dimensions  = 2
	earthRadius = 6371.0 // km
)

// Marker is one numbered pin on the map. Number is 1-based and follows the
// list display order.
type Marker struct {
	Number   int
	Name     string
	Location models.Location
}

// Label is the text shown next to the marker
func (m Marker) Label() string {
	return fmt.Sprintf("%d", m.Number)
}

// spatialMarker wraps a Marker to implement rtreego.Spatial
type spatialMarker struct {
	*Marker
	rect rtreego.Rect
}

func (sm *spatialMarker) Bounds() rtreego.Rect {
	return sm.rect
}

// MarkerIndex is an R-Tree over the markers of one record set
type MarkerIndex struct {
	tree    *rtreego.Rtree
	markers []*Marker
}

// NewMarkerIndex bulk-loads markers into a fresh tree
func NewMarkerIndex(markers []Marker) *MarkerIndex {
	idx := &MarkerIndex{markers: make([]*Marker, 0, len(markers))}
	items := make([]rtreego.Spatial, 0, len(markers))
	for i := range markers {
		m := markers[i]
		idx.markers = append(idx.markers, &m)
		p := rtreego.Point{m.Location.Lat, m.Location.Lon}
		items = append(items, &spatialMarker{Marker: &m, rect: p.ToRect(tolerance)})
	}
	idx.tree = rtreego.NewTree(dimensions, minChildren, maxChildren, items...)
	return idx
}

// Len returns the number of indexed markers
func (idx *MarkerIndex) Len() int {
	return len(idx.markers)
}

// All returns the markers in number order
func (idx *MarkerIndex) All() []Marker {
	out := make([]Marker, len(idx.markers))
	for i, m := range idx.markers {
		out[i] = *m
	}
	return out
}

// Search returns the markers inside box, ordered by number
func (idx *MarkerIndex) Search(box models.BoundingBox) ([]Marker, error) {
	if box.BottomLeft.Lat > box.TopRight.Lat || box.BottomLeft.Lon > box.TopRight.Lon {
		return nil, fmt.Errorf("invalid bounding box: bottom-left %v above top-right %v", box.BottomLeft, box.TopRight)
	}
	if idx.Len() == 0 {
		return nil, nil
	}
	bounds, err := rtreego.NewRectFromPoints(
		rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon},
		rtreego.Point{box.TopRight.Lat, box.TopRight.Lon},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	results := idx.tree.SearchIntersect(bounds)
	markers := make([]Marker, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialMarker)
		if !ok || item.Marker == nil {
			continue
		}
		// the tree matches on the tolerance rect, keep strictly contained ones
		if box.Contains(item.Location) {
			markers = append(markers, *item.Marker)
		}
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].Number < markers[j].Number })
	return markers, nil
}

// Nearest returns up to n markers closest to loc
func (idx *MarkerIndex) Nearest(loc models.Location, n int) []Marker {
	if idx.Len() == 0 || n <= 0 {
		return nil
	}
	results := idx.tree.NearestNeighbors(n, rtreego.Point{loc.Lat, loc.Lon})
	markers := make([]Marker, 0, len(results))
	for _, result := range results {
		if item, ok := result.(*spatialMarker); ok && item != nil {
			markers = append(markers, *item.Marker)
		}
	}
	return markers
}

// Bounds returns the box covering every marker; ok is false when empty
func (idx *MarkerIndex) Bounds() (box models.BoundingBox, ok bool) {
	for i, m := range idx.markers {
		if i == 0 {
			box = models.BoundingBox{BottomLeft: m.Location, TopRight: m.Location}
			continue
		}
		box = box.Extend(m.Location)
	}
	return box, len(idx.markers) > 0
}

// Distance calculates the Haversine distance between two points in kilometers
func Distance(a, b models.Location) float64 {
	lat1Rad := a.Lat * math.Pi / 180.0
	lon1Rad := a.Lon * math.Pi / 180.0
	lat2Rad := b.Lat * math.Pi / 180.0
	lon2Rad := b.Lon * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadius * c
}
