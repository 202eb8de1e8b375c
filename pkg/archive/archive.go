// Package archive keeps a local record of every planner that was uploaded,
// for the planners listing.
package archive

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kass/geo-planner/pkg/models"
	"github.com/kass/geo-planner/pkg/planner"
)

// Planner is one uploaded planner
type Planner struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Items     []planner.Item
}

// NewPlanner stamps items with a fresh ID and the current time
func NewPlanner(items []planner.Item) Planner {
	return Planner{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Items:     items,
	}
}

// Names returns the item names in order
func (p Planner) Names() []string {
	names := make([]string, len(p.Items))
	for i, item := range p.Items {
		names[i] = item.Name
	}
	return names
}

type Store interface {
	Save(ctx context.Context, p Planner) error
	// List returns every planner, newest first
	List(ctx context.Context) ([]Planner, error)
	Close() error
}

// SpatialStore is implemented by stores that can look up archived place
// items by position.
type SpatialStore interface {
	ItemsInBox(ctx context.Context, box models.BoundingBox) ([]planner.Item, error)
}

func sortNewestFirst(planners []Planner) {
	sort.SliceStable(planners, func(i, j int) bool {
		return planners[i].CreatedAt.After(planners[j].CreatedAt)
	})
}
