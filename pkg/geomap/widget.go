package geomap

import "github.com/kass/geo-planner/pkg/models"

// Widget is the map surface the Adapter drives. Implementations dispatch
// center-changed notifications synchronously from whatever call moved the
// viewport.
type Widget interface {
	SetCenter(center models.Location, level int)
	Center() models.Location
	Level() int
	AddMarker(loc models.Location)
	AddLabel(loc models.Location, text string)
	SetBounds(box models.BoundingBox)
	Clear()
	// OnCenterChanged registers fn and returns a func that removes it
	OnCenterChanged(fn func()) (remove func())
}
