package geomap

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kass/geo-planner/pkg/models"
)

const (
	MinLevel     = 1
	MaxLevel     = 18
	DefaultLevel = 12

	// span of the viewport at level 0, in degrees of latitude
	baseLatSpan = 180.0
)

var (
	markerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C"))
	centerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD"))
	gridStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#44475A"))
)

type label struct {
	loc  models.Location
	text string
}

// Canvas is a character-grid map. The viewport spans baseLatSpan/2^level
// degrees of latitude and twice that of longitude.
type Canvas struct {
	center  models.Location
	level   int
	markers []models.Location
	labels  []label

	nextID    int
	listeners map[int]func()
	order     []int
}

// NewCanvas returns a canvas centered on center at DefaultLevel
func NewCanvas(center models.Location) *Canvas {
	return &Canvas{
		center:    center,
		level:     DefaultLevel,
		listeners: make(map[int]func()),
	}
}

func (c *Canvas) SetCenter(center models.Location, level int) {
	c.level = clampLevel(level)
	c.moveTo(center)
}

func (c *Canvas) Center() models.Location { return c.center }
func (c *Canvas) Level() int              { return c.level }

func (c *Canvas) AddMarker(loc models.Location) {
	c.markers = append(c.markers, loc)
}

func (c *Canvas) AddLabel(loc models.Location, text string) {
	c.labels = append(c.labels, label{loc: loc, text: text})
}

// SetBounds centers on box and picks the closest zoom that still shows all of it
func (c *Canvas) SetBounds(box models.BoundingBox) {
	latExtent := box.TopRight.Lat - box.BottomLeft.Lat
	lonExtent := box.TopRight.Lon - box.BottomLeft.Lon

	level := MaxLevel
	for level > MinLevel {
		lat, lon := spans(level)
		if latExtent <= lat && lonExtent <= lon {
			break
		}
		level--
	}
	c.level = level
	c.moveTo(box.Center())
}

func (c *Canvas) Clear() {
	c.markers = nil
	c.labels = nil
}

func (c *Canvas) OnCenterChanged(fn func()) (remove func()) {
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.order = append(c.order, id)
	return func() {
		delete(c.listeners, id)
	}
}

// Pan moves the center by the given fraction of the viewport
func (c *Canvas) Pan(latFrac, lonFrac float64) {
	lat, lon := spans(c.level)
	c.moveTo(models.Location{
		Lat: clampLat(c.center.Lat + latFrac*lat),
		Lon: wrapLon(c.center.Lon + lonFrac*lon),
	})
}

// Zoom changes the level by delta; positive zooms in
func (c *Canvas) Zoom(delta int) {
	level := clampLevel(c.level + delta)
	if level == c.level {
		return
	}
	c.level = level
	// the center does not move but the widget still reports the change
	c.notify()
}

// Viewport returns the box currently on screen
func (c *Canvas) Viewport() models.BoundingBox {
	lat, lon := spans(c.level)
	return models.BoundingBox{
		BottomLeft: models.Location{Lat: c.center.Lat - lat/2, Lon: c.center.Lon - lon/2},
		TopRight:   models.Location{Lat: c.center.Lat + lat/2, Lon: c.center.Lon + lon/2},
	}
}

// Render draws the viewport onto a width x height character grid
func (c *Canvas) Render(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	grid := make([][]string, height)
	for row := range grid {
		grid[row] = make([]string, width)
		for col := range grid[row] {
			grid[row][col] = gridStyle.Render("·")
		}
	}

	view := c.Viewport()
	place := func(loc models.Location) (row, col int, ok bool) {
		if !view.Contains(loc) {
			return 0, 0, false
		}
		fx := (loc.Lon - view.BottomLeft.Lon) / (view.TopRight.Lon - view.BottomLeft.Lon)
		fy := (view.TopRight.Lat - loc.Lat) / (view.TopRight.Lat - view.BottomLeft.Lat)
		col = int(math.Min(fx*float64(width), float64(width-1)))
		row = int(math.Min(fy*float64(height), float64(height-1)))
		return row, col, true
	}

	if row, col, ok := place(c.center); ok {
		grid[row][col] = centerStyle.Render("+")
	}
	for _, m := range c.markers {
		if row, col, ok := place(m); ok {
			grid[row][col] = markerStyle.Render("●")
		}
	}
	for _, l := range c.labels {
		row, col, ok := place(l.loc)
		if !ok {
			continue
		}
		for i, r := range l.text {
			if col+1+i >= width {
				break
			}
			grid[row][col+1+i] = labelStyle.Render(string(r))
		}
	}

	lines := make([]string, height)
	for row := range grid {
		lines[row] = strings.Join(grid[row], "")
	}
	return strings.Join(lines, "\n")
}

func (c *Canvas) moveTo(center models.Location) {
	if center == c.center {
		return
	}
	c.center = center
	c.notify()
}

func (c *Canvas) notify() {
	ids := c.order[:0]
	for _, id := range c.order {
		if _, ok := c.listeners[id]; ok {
			ids = append(ids, id)
		}
	}
	c.order = ids
	for _, id := range append([]int(nil), ids...) {
		// a listener may remove another one mid-dispatch
		if fn, ok := c.listeners[id]; ok {
			fn()
		}
	}
}

func spans(level int) (lat, lon float64) {
	lat = baseLatSpan / math.Pow(2, float64(level))
	return lat, 2 * lat
}

func clampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

func clampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
