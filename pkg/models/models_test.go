package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceRecordDecodesNumbersAndStrings(t *testing.T) {
	payload := `[
		{"content_id": "126508", "name": "Gyeongbokgung", "rating": 4.5, "type": "palace", "x": 126.977, "y": 37.579},
		{"content_id": "264337", "name": "Bukchon", "rating": "4.1", "type": "village", "x": "126.983", "y": "37.582"},
		{"content_id": "1", "name": "Unrated", "rating": null, "type": "", "x": "", "y": 0}
	]`

	var places []PlaceRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &places))
	require.Len(t, places, 3)

	assert.Equal(t, Float(4.5), places[0].Rating)
	assert.Equal(t, Location{Lat: 37.579, Lon: 126.977}, places[0].Location())
	assert.Equal(t, Float(4.1), places[1].Rating)
	assert.Equal(t, Location{Lat: 37.582, Lon: 126.983}, places[1].Location())
	assert.Equal(t, Float(0), places[2].Rating)
	assert.Equal(t, Float(0), places[2].PositionX)
}

func TestFloatRejectsGarbage(t *testing.T) {
	var f Float
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &f))
	assert.Error(t, json.Unmarshal([]byte(`{}`), &f))
}

func TestBoundingBoxExtend(t *testing.T) {
	var box BoundingBox
	box = box.Extend(Location{Lat: 37.5, Lon: 127.0})
	assert.Equal(t, BoundingBox{
		BottomLeft: Location{Lat: 37.5, Lon: 127.0},
		TopRight:   Location{Lat: 37.5, Lon: 127.0},
	}, box)

	box = box.Extend(Location{Lat: 37.4, Lon: 127.2})
	box = box.Extend(Location{Lat: 37.6, Lon: 126.9})

	assert.Equal(t, Location{Lat: 37.4, Lon: 126.9}, box.BottomLeft)
	assert.Equal(t, Location{Lat: 37.6, Lon: 127.2}, box.TopRight)
	assert.True(t, box.Contains(Location{Lat: 37.5, Lon: 127.0}))
	assert.False(t, box.Contains(Location{Lat: 38.0, Lon: 127.0}))
	assert.InDelta(t, 37.5, box.Center().Lat, 1e-9)
	assert.InDelta(t, 127.05, box.Center().Lon, 1e-9)
}

func TestParseListMode(t *testing.T) {
	assert.Equal(t, ModePlace, ParseListMode("place"))
	assert.Equal(t, ModeRestaurant, ParseListMode("restaurant"))
	assert.Equal(t, ModeRestaurant, ParseListMode(""))
	assert.Equal(t, ModeRestaurant, ParseListMode("PLACE"))
	assert.Equal(t, "place", ModePlace.String())
	assert.Equal(t, "restaurant", ModeRestaurant.String())
}

func TestCoordinateLocationRoundTrip(t *testing.T) {
	c := Coordinate{X: 37.5, Y: 127.0}
	assert.Equal(t, Location{Lat: 37.5, Lon: 127.0}, c.Location())
	assert.Equal(t, c, CoordinateFrom(c.Location()))
	assert.Equal(t, "(37.5, 127)", c.String())
}
