// Package geomap places record sets on a map widget and reports viewport
// movement back to the caller as search coordinates.
package geomap

import (
	"errors"

	"go.uber.org/zap"

	"github.com/kass/geo-planner/pkg/logger"
	"github.com/kass/geo-planner/pkg/models"
)

var (
	// ErrNoContainer means there is no widget to host the map. The view that
	// asked for it cannot be recovered without being mounted again.
	ErrNoContainer = errors.New("map container is missing")
	ErrClosed      = errors.New("map adapter is closed")
)

// Adapter owns one map widget for the lifetime of one result view
type Adapter struct {
	widget Widget
	logger *zap.Logger

	index  *MarkerIndex
	remove func()
	closed bool
}

func New(widget Widget, log *zap.Logger) (*Adapter, error) {
	if widget == nil {
		return nil, ErrNoContainer
	}
	return &Adapter{
		widget: widget,
		logger: logger.OrNop(log),
		index:  NewMarkerIndex(nil),
	}, nil
}

// Render replaces the markers with one numbered marker per place, in list
// order, and fits the viewport around them. With no places the map is only
// centered on center.
func (a *Adapter) Render(center models.Coordinate, places []models.PlaceRecord) error {
	if a.closed {
		return ErrClosed
	}

	markers := make([]Marker, len(places))
	for i, p := range places {
		markers[i] = Marker{Number: i + 1, Name: p.Name, Location: p.Location()}
	}
	a.index = NewMarkerIndex(markers)

	a.widget.Clear()
	a.widget.SetCenter(center.Location(), a.widget.Level())
	for _, m := range markers {
		a.widget.AddMarker(m.Location)
		a.widget.AddLabel(m.Location, m.Label())
	}
	if box, ok := a.index.Bounds(); ok {
		a.widget.SetBounds(box)
	}

	a.logger.Debug("Map rendered",
		zap.Stringer("center", center),
		zap.Int("markers", len(markers)),
	)
	return nil
}

// OnViewportCenterChanged registers the handler for every center change of
// the widget, replacing the previous one.
func (a *Adapter) OnViewportCenterChanged(handler func(models.Coordinate)) error {
	if a.closed {
		return ErrClosed
	}
	if a.remove != nil {
		a.remove()
	}
	a.remove = a.widget.OnCenterChanged(func() {
		if a.closed {
			return
		}
		handler(models.CoordinateFrom(a.widget.Center()))
	})
	return nil
}

// Center returns the live viewport center
func (a *Adapter) Center() models.Coordinate {
	return models.CoordinateFrom(a.widget.Center())
}

// Markers returns the markers of the last render in number order
func (a *Adapter) Markers() []Marker {
	return a.index.All()
}

// Bounds returns the box covering the rendered markers
func (a *Adapter) Bounds() (models.BoundingBox, bool) {
	return a.index.Bounds()
}

// Visible returns the rendered markers that fall inside box
func (a *Adapter) Visible(box models.BoundingBox) ([]Marker, error) {
	return a.index.Search(box)
}

// Nearest returns the rendered marker closest to loc
func (a *Adapter) Nearest(loc models.Location) (Marker, bool) {
	found := a.index.Nearest(loc, 1)
	if len(found) == 0 {
		return Marker{}, false
	}
	return found[0], true
}

// Fit moves the viewport back around the rendered markers. It reports false
// when there is nothing to fit.
func (a *Adapter) Fit() bool {
	if a.closed {
		return false
	}
	box, ok := a.index.Bounds()
	if ok {
		a.widget.SetBounds(box)
	}
	return ok
}

// Close deregisters the viewport listener and clears the widget. Calling it
// again is a no-op.
func (a *Adapter) Close() {
	if a.closed {
		return
	}
	a.closed = true
	if a.remove != nil {
		a.remove()
		a.remove = nil
	}
	a.widget.Clear()
	a.logger.Debug("Map adapter closed")
}
