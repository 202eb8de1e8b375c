package planner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/geo-planner/pkg/models"
)

func TestAppendThenRemoveFirst(t *testing.T) {
	c := NewCollection()
	c.Append(Item{Name: "A"})
	b := c.Append(Item{Name: "B"})

	removed, err := c.RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, "A", removed.Name)
	assert.Equal(t, []Item{b}, c.Contents())
}

func TestAppendAssignsIDs(t *testing.T) {
	c := NewCollection()
	first := c.AppendRestaurant(models.RestaurantRecord{Name: "Noodle Bar", Type: "korean"})
	second := c.AppendRestaurant(models.RestaurantRecord{Name: "Noodle Bar", Type: "korean"})

	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, c.Len())

	fixed := uuid.New()
	assert.Equal(t, fixed, c.Append(Item{ID: fixed, Name: "x"}).ID)
}

func TestDuplicatesRemovedIndividually(t *testing.T) {
	c := NewCollection()
	first := c.AppendRestaurant(models.RestaurantRecord{Name: "Cafe"})
	c.AppendRestaurant(models.RestaurantRecord{Name: "Tea House"})
	third := c.AppendRestaurant(models.RestaurantRecord{Name: "Cafe"})

	require.NoError(t, c.Remove(third.ID))
	contents := c.Contents()
	require.Len(t, contents, 2)
	assert.Equal(t, first.ID, contents[0].ID)
	assert.Equal(t, "Tea House", contents[1].Name)

	assert.ErrorIs(t, c.Remove(third.ID), ErrItemNotFound)
}

func TestRemoveAtPreservesOrder(t *testing.T) {
	testCases := []struct {
		name     string
		index    int
		expected []string
	}{
		{"first", 0, []string{"B", "C", "D"}},
		{"middle", 2, []string{"A", "B", "D"}},
		{"last", 3, []string{"A", "B", "C"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCollection()
			for _, name := range []string{"A", "B", "C", "D"} {
				c.Append(Item{Name: name})
			}
			_, err := c.RemoveAt(tc.index)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, c.Names())
		})
	}
}

func TestRemoveAtOutOfRange(t *testing.T) {
	c := NewCollection()
	c.Append(Item{Name: "A"})

	for _, i := range []int{-1, 1, 5} {
		_, err := c.RemoveAt(i)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	}
	assert.Equal(t, 1, c.Len())
}

func TestContentsIsACopy(t *testing.T) {
	c := NewCollection()
	c.Append(Item{Name: "A"})

	contents := c.Contents()
	contents[0].Name = "changed"
	assert.Equal(t, []string{"A"}, c.Names())
}

func TestAppendPlaceKeepsRecord(t *testing.T) {
	c := NewCollection()
	rec := models.PlaceRecord{ContentID: "126508", Name: "Gyeongbokgung", PositionX: 126.977, PositionY: 37.5796}
	item := c.AppendPlace(rec)

	assert.True(t, item.IsPlace())
	assert.Equal(t, rec, *item.Place)
	assert.False(t, c.AppendRestaurant(models.RestaurantRecord{Name: "Cafe"}).IsPlace())

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Names())
}
