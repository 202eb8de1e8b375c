package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// Contains reports whether loc lies inside the box, edges included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// Center returns the midpoint of the box
func (b BoundingBox) Center() Location {
	return Location{
		Lat: (b.BottomLeft.Lat + b.TopRight.Lat) / 2,
		Lon: (b.BottomLeft.Lon + b.TopRight.Lon) / 2,
	}
}

// Extend grows the box so it covers loc. A zero box becomes a point box.
func (b BoundingBox) Extend(loc Location) BoundingBox {
	if b == (BoundingBox{}) {
		return BoundingBox{BottomLeft: loc, TopRight: loc}
	}
	if loc.Lat < b.BottomLeft.Lat {
		b.BottomLeft.Lat = loc.Lat
	}
	if loc.Lon < b.BottomLeft.Lon {
		b.BottomLeft.Lon = loc.Lon
	}
	if loc.Lat > b.TopRight.Lat {
		b.TopRight.Lat = loc.Lat
	}
	if loc.Lon > b.TopRight.Lon {
		b.TopRight.Lon = loc.Lon
	}
	return b
}

// Coordinate is the (x, y) search pair. X is the vertical axis (latitude),
// Y the horizontal one (longitude).
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Location converts the coordinate into a map location
func (c Coordinate) Location() Location {
	return Location{Lat: c.X, Lon: c.Y}
}

// CoordinateFrom converts a map location back into a search coordinate
func CoordinateFrom(loc Location) Coordinate {
	return Coordinate{X: loc.Lat, Y: loc.Lon}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%s, %s)", FormatFloat(c.X), FormatFloat(c.Y))
}

// FormatFloat renders v with the shortest representation that round-trips
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ListMode selects which remote resource a result view shows
type ListMode int

const (
	ModeRestaurant ListMode = iota
	ModePlace
)

func (m ListMode) String() string {
	if m == ModePlace {
		return "place"
	}
	return "restaurant"
}

// ParseListMode maps a query value to a mode. Anything but "place" is restaurant.
func ParseListMode(s string) ListMode {
	if s == "place" {
		return ModePlace
	}
	return ModeRestaurant
}

// Float decodes from either a JSON number or a numeric string
type Float float64

func (f *Float) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// PlaceRecord is a tourist place returned by GET /place/
type PlaceRecord struct {
	ContentID string `json:"content_id"`
	Name      string `json:"name"`
	Rating    Float  `json:"rating"`
	Type      string `json:"type"`
	PositionX Float  `json:"x"`
	PositionY Float  `json:"y"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Location returns where the record sits on the map
func (p PlaceRecord) Location() Location {
	return Location{Lat: float64(p.PositionY), Lon: float64(p.PositionX)}
}

// RestaurantRecord is one [name, type] row of GET /restaurant/
type RestaurantRecord struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Detail is the payload of GET /place/{contentId}/ with the overview
// already reduced to plain text.
type Detail struct {
	ContentID string `json:"content_id"`
	ImageURL  string `json:"image_url"`
	Overview  string `json:"overview"`
}
