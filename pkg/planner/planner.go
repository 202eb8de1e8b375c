// Package planner holds the user's ordered selection of places and
// restaurants.
package planner

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kass/geo-planner/pkg/models"
)

var (
	ErrIndexOutOfRange = errors.New("planner index out of range")
	ErrItemNotFound    = errors.New("planner item not found")
)

// Item is one selection. Restaurant selections carry only a name; ID tells
// apart items that share a name.
type Item struct {
	ID    uuid.UUID           `json:"id"`
	Name  string              `json:"name"`
	Place *models.PlaceRecord `json:"place,omitempty"`
}

// IsPlace reports whether the item was selected from a place list
func (i Item) IsPlace() bool {
	return i.Place != nil
}

// Collection is an ordered list of items. Duplicates are allowed and
// removal is by position.
type Collection struct {
	items []Item
}

func NewCollection() *Collection {
	return &Collection{}
}

// Append adds item to the end, assigning an ID if it has none
func (c *Collection) Append(item Item) Item {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	c.items = append(c.items, item)
	return item
}

func (c *Collection) AppendPlace(p models.PlaceRecord) Item {
	return c.Append(Item{Name: p.Name, Place: &p})
}

func (c *Collection) AppendRestaurant(r models.RestaurantRecord) Item {
	return c.Append(Item{Name: r.Name})
}

// RemoveAt removes the item at index i, shifting later items down
func (c *Collection) RemoveAt(i int) (Item, error) {
	if i < 0 || i >= len(c.items) {
		return Item{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(c.items))
	}
	removed := c.items[i]
	copy(c.items[i:], c.items[i+1:])
	c.items[len(c.items)-1] = Item{}
	c.items = c.items[:len(c.items)-1]
	return removed, nil
}

// Remove removes the item with the given ID
func (c *Collection) Remove(id uuid.UUID) error {
	for i, item := range c.items {
		if item.ID == id {
			_, err := c.RemoveAt(i)
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

// Contents returns a copy of the items in order
func (c *Collection) Contents() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Names returns the display names in order
func (c *Collection) Names() []string {
	names := make([]string, len(c.items))
	for i, item := range c.items {
		names[i] = item.Name
	}
	return names
}

func (c *Collection) Len() int {
	return len(c.items)
}

// Clear empties the collection
func (c *Collection) Clear() {
	c.items = nil
}
