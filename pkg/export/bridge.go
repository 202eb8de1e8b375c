package export

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kass/geo-planner/pkg/archive"
	"github.com/kass/geo-planner/pkg/logger"
	"github.com/kass/geo-planner/pkg/planner"
)

// ErrEmptyPlanner is returned when there is nothing to export or upload
var ErrEmptyPlanner = errors.New("planner is empty")

// Submitter sends planner item names to the remote store
type Submitter interface {
	SubmitPlanner(ctx context.Context, names []string) error
}

// RegionFor lays out items the way the planner popup lists them
func RegionFor(items []planner.Item) Region {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item.Name)
	}
	return Region{Title: "My Planner", Lines: lines}
}

type Bridge struct {
	renderer  *Renderer
	sinks     []Sink
	submitter Submitter
	archive   archive.Store
	logger    *zap.Logger
}

// NewBridge wires the bridge. The first sink's location is the one reported
// back from Export; archive may be nil.
func NewBridge(renderer *Renderer, submitter Submitter, store archive.Store, log *zap.Logger, sinks ...Sink) *Bridge {
	return &Bridge{
		renderer:  renderer,
		sinks:     sinks,
		submitter: submitter,
		archive:   store,
		logger:    logger.OrNop(log),
	}
}

// Export renders region to PNG and hands it to every sink. It is best effort:
// the error is reported to the caller and nothing is retried.
func (b *Bridge) Export(ctx context.Context, region Region) (string, error) {
	if len(region.Lines) == 0 {
		return "", ErrEmptyPlanner
	}
	if len(b.sinks) == 0 {
		return "", errors.New("no export destination configured")
	}

	data, err := b.renderer.Render(ctx, region)
	if err != nil {
		return "", fmt.Errorf("failed to render planner: %w", err)
	}

	var (
		location string
		errs     []error
	)
	for i, sink := range b.sinks {
		loc, err := sink.Save(ctx, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if i == 0 {
			location = loc
		}
		b.logger.Info("Planner exported", zap.String("location", loc), zap.Int("bytes", len(data)))
	}
	if err := errors.Join(errs...); err != nil {
		b.logger.Warn("Planner export failed", zap.Error(err))
		return location, err
	}
	return location, nil
}

// Upload submits the item names in order as one request. On success the
// planner is archived; an archive failure is logged and not returned.
func (b *Bridge) Upload(ctx context.Context, items []planner.Item) error {
	if len(items) == 0 {
		return ErrEmptyPlanner
	}

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	if err := b.submitter.SubmitPlanner(ctx, names); err != nil {
		b.logger.Warn("Planner upload failed", zap.Error(err), zap.Int("items", len(names)))
		return fmt.Errorf("failed to upload planner: %w", err)
	}
	b.logger.Info("Planner uploaded", zap.Strings("items", names))

	if b.archive != nil {
		p := archive.NewPlanner(items)
		if err := b.archive.Save(ctx, p); err != nil {
			b.logger.Warn("Failed to archive planner", zap.Stringer("id", p.ID), zap.Error(err))
		}
	}
	return nil
}
