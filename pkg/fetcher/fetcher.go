// Package fetcher retrieves the record set for a coordinate and mode and
// tracks its loading state.
//
// A Fetcher belongs to a single event loop: Issue and Apply must be called
// from that loop, while the Job returned by Issue runs anywhere. Responses are
// applied in issue order: a Result whose sequence number is not the latest
// issued one is discarded, whatever order the network completes them in.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kass/geo-planner/pkg/logger"
	"github.com/kass/geo-planner/pkg/models"
)

// ErrInvalidCoordinate is returned by Issue for coordinates that cannot be sent
var ErrInvalidCoordinate = errors.New("coordinate is not a finite number pair")

// ErrNothingToRetry is returned by Retry before any fetch was issued
var ErrNothingToRetry = errors.New("no fetch to retry")

// Source is the remote list API
type Source interface {
	Places(ctx context.Context, c models.Coordinate) ([]models.PlaceRecord, error)
	Restaurants(ctx context.Context, c models.Coordinate) ([]models.RestaurantRecord, error)
}

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Result is the outcome of one issued fetch. Exactly one of the record
// slices is meaningful, chosen by Mode; Err is set on failure.
type Result struct {
	Seq         uint64
	Mode        models.ListMode
	Coordinate  models.Coordinate
	Places      []models.PlaceRecord
	Restaurants []models.RestaurantRecord
	Err         error
}

// Job performs the request for one issued fetch
type Job func() Result

type Fetcher struct {
	src    Source
	logger *zap.Logger

	seq    uint64
	cancel context.CancelFunc
	last   *request

	state       State
	err         error
	places      []models.PlaceRecord
	restaurants []models.RestaurantRecord
}

type request struct {
	ctx   context.Context
	coord models.Coordinate
	mode  models.ListMode
}

func New(src Source, log *zap.Logger) *Fetcher {
	return &Fetcher{src: src, logger: logger.OrNop(log)}
}

// Issue starts a new fetch, superseding any fetch still in flight. The
// current record set stays visible (stale) until a newer result is applied.
func (f *Fetcher) Issue(ctx context.Context, coord models.Coordinate, mode models.ListMode) (Job, error) {
	if !finite(coord.X) || !finite(coord.Y) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCoordinate, coord)
	}

	if f.cancel != nil {
		f.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.seq++
	f.last = &request{ctx: ctx, coord: coord, mode: mode}
	f.state = StateLoading
	f.err = nil

	seq := f.seq
	src := f.src
	f.logger.Debug("Fetch issued",
		zap.Uint64("seq", seq),
		zap.Stringer("mode", mode),
		zap.Stringer("coordinate", coord),
	)

	return func() Result {
		defer cancel()
		res := Result{Seq: seq, Mode: mode, Coordinate: coord}
		switch mode {
		case models.ModePlace:
			res.Places, res.Err = src.Places(reqCtx, coord)
		default:
			res.Restaurants, res.Err = src.Restaurants(reqCtx, coord)
		}
		return res
	}, nil
}

// Retry re-issues the most recent fetch
func (f *Fetcher) Retry() (Job, error) {
	if f.last == nil {
		return nil, ErrNothingToRetry
	}
	return f.Issue(f.last.ctx, f.last.coord, f.last.mode)
}

// Apply installs res if it answers the latest issued fetch and reports
// whether it did. Superseded results are dropped.
func (f *Fetcher) Apply(res Result) bool {
	if res.Seq != f.seq || f.state != StateLoading {
		f.logger.Debug("Discarding superseded fetch result",
			zap.Uint64("seq", res.Seq),
			zap.Uint64("latest", f.seq),
		)
		return false
	}

	f.cancel = nil
	if res.Err != nil {
		f.state = StateFailed
		f.err = res.Err
		f.logger.Warn("Fetch failed",
			zap.Uint64("seq", res.Seq),
			zap.Stringer("mode", res.Mode),
			zap.Error(res.Err),
		)
		return true
	}

	f.state = StateReady
	f.err = nil
	if res.Mode == models.ModePlace {
		f.places = res.Places
		f.restaurants = nil
	} else {
		f.restaurants = res.Restaurants
		f.places = nil
	}
	f.logger.Debug("Fetch applied",
		zap.Uint64("seq", res.Seq),
		zap.Int("places", len(f.places)),
		zap.Int("restaurants", len(f.restaurants)),
	)
	return true
}

// Stop cancels any in-flight fetch; its result will be discarded
func (f *Fetcher) Stop() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.seq++
	if f.state == StateLoading {
		f.state = StateIdle
	}
}

func (f *Fetcher) State() State  { return f.state }
func (f *Fetcher) Loading() bool { return f.state == StateLoading }
func (f *Fetcher) Err() error    { return f.err }
func (f *Fetcher) Seq() uint64   { return f.seq }

// Places returns the current place record set
func (f *Fetcher) Places() []models.PlaceRecord { return f.places }

// Restaurants returns the current restaurant record set
func (f *Fetcher) Restaurants() []models.RestaurantRecord { return f.restaurants }

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
