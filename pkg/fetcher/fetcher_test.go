package fetcher

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kass/geo-planner/pkg/models"
)

type call struct {
	mode  models.ListMode
	coord models.Coordinate
}

// fakeSource answers with one place named after the coordinate; gates let a
// test hold a request until it decides to release it.
type fakeSource struct {
	mu      sync.Mutex
	calls   []call
	gates   map[float64]chan struct{}
	failFor map[float64]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{gates: map[float64]chan struct{}{}, failFor: map[float64]error{}}
}

func (s *fakeSource) gate(x float64) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gates[x] = ch
	return ch
}

func (s *fakeSource) wait(ctx context.Context, c models.Coordinate, mode models.ListMode) error {
	s.mu.Lock()
	s.calls = append(s.calls, call{mode: mode, coord: c})
	gate := s.gates[c.X]
	failure := s.failFor[c.X]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return failure
}

func (s *fakeSource) Places(ctx context.Context, c models.Coordinate) ([]models.PlaceRecord, error) {
	if err := s.wait(ctx, c, models.ModePlace); err != nil {
		return nil, err
	}
	return []models.PlaceRecord{{Name: models.FormatFloat(c.X)}}, nil
}

func (s *fakeSource) Restaurants(ctx context.Context, c models.Coordinate) ([]models.RestaurantRecord, error) {
	if err := s.wait(ctx, c, models.ModeRestaurant); err != nil {
		return nil, err
	}
	return []models.RestaurantRecord{{Name: models.FormatFloat(c.X), Type: "korean"}}, nil
}

func TestIssueSelectsEndpointByMode(t *testing.T) {
	for _, mode := range []models.ListMode{models.ModePlace, models.ModeRestaurant} {
		t.Run(mode.String(), func(t *testing.T) {
			src := newFakeSource()
			f := New(src, zaptest.NewLogger(t))

			coord := models.Coordinate{X: 37.5, Y: 127.0}
			job, err := f.Issue(context.Background(), coord, mode)
			require.NoError(t, err)
			assert.True(t, f.Loading())

			require.True(t, f.Apply(job()))
			assert.Equal(t, StateReady, f.State())
			assert.Equal(t, []call{{mode: mode, coord: coord}}, src.calls)

			if mode == models.ModePlace {
				assert.Len(t, f.Places(), 1)
				assert.Empty(t, f.Restaurants())
			} else {
				assert.Len(t, f.Restaurants(), 1)
				assert.Empty(t, f.Places())
			}
		})
	}
}

func TestLastIssuedWins(t *testing.T) {
	src := newFakeSource()
	f := New(src, zaptest.NewLogger(t))

	slow := src.gate(1)
	first, err := f.Issue(context.Background(), models.Coordinate{X: 1, Y: 1}, models.ModePlace)
	require.NoError(t, err)
	second, err := f.Issue(context.Background(), models.Coordinate{X: 2, Y: 2}, models.ModePlace)
	require.NoError(t, err)

	firstDone := make(chan Result, 1)
	go func() { firstDone <- first() }()

	// the second request completes first
	require.True(t, f.Apply(second()))
	assert.Equal(t, "2", f.Places()[0].Name)

	close(slow)
	late := <-firstDone
	assert.False(t, f.Apply(late))
	assert.Equal(t, "2", f.Places()[0].Name)
	assert.Equal(t, StateReady, f.State())
}

func TestSupersededRequestIsCancelled(t *testing.T) {
	src := newFakeSource()
	f := New(src, zaptest.NewLogger(t))

	src.gate(1)
	first, err := f.Issue(context.Background(), models.Coordinate{X: 1, Y: 1}, models.ModeRestaurant)
	require.NoError(t, err)
	_, err = f.Issue(context.Background(), models.Coordinate{X: 2, Y: 2}, models.ModeRestaurant)
	require.NoError(t, err)

	res := first()
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.False(t, f.Apply(res))
	assert.True(t, f.Loading())
}

func TestStaleRecordsVisibleWhileLoading(t *testing.T) {
	src := newFakeSource()
	f := New(src, zaptest.NewLogger(t))

	job, err := f.Issue(context.Background(), models.Coordinate{X: 1, Y: 1}, models.ModePlace)
	require.NoError(t, err)
	require.True(t, f.Apply(job()))

	_, err = f.Issue(context.Background(), models.Coordinate{X: 3, Y: 3}, models.ModePlace)
	require.NoError(t, err)
	assert.True(t, f.Loading())
	assert.Equal(t, "1", f.Places()[0].Name)
}

func TestFailureIsRetryable(t *testing.T) {
	src := newFakeSource()
	src.failFor[5] = errors.New("connection refused")
	f := New(src, zaptest.NewLogger(t))

	job, err := f.Issue(context.Background(), models.Coordinate{X: 5, Y: 5}, models.ModePlace)
	require.NoError(t, err)
	require.True(t, f.Apply(job()))

	assert.Equal(t, StateFailed, f.State())
	assert.False(t, f.Loading())
	assert.EqualError(t, f.Err(), "connection refused")

	delete(src.failFor, 5)
	retry, err := f.Retry()
	require.NoError(t, err)
	assert.True(t, f.Loading())
	assert.NoError(t, f.Err())

	require.True(t, f.Apply(retry()))
	assert.Equal(t, StateReady, f.State())
	assert.Len(t, src.calls, 2)
	assert.Equal(t, src.calls[0], src.calls[1])
}

func TestRetryBeforeIssue(t *testing.T) {
	f := New(newFakeSource(), nil)
	_, err := f.Retry()
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestIssueRejectsNonFinite(t *testing.T) {
	f := New(newFakeSource(), nil)

	_, err := f.Issue(context.Background(), models.Coordinate{X: math.NaN(), Y: 1}, models.ModePlace)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	_, err = f.Issue(context.Background(), models.Coordinate{X: 1, Y: math.Inf(1)}, models.ModePlace)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	assert.Equal(t, StateIdle, f.State())
	assert.Zero(t, f.Seq())
}

func TestStopDiscardsInFlight(t *testing.T) {
	src := newFakeSource()
	f := New(src, nil)

	job, err := f.Issue(context.Background(), models.Coordinate{X: 1, Y: 1}, models.ModePlace)
	require.NoError(t, err)
	f.Stop()

	assert.False(t, f.Apply(job()))
	assert.Equal(t, StateIdle, f.State())
}

func TestDuplicateApplyIgnored(t *testing.T) {
	f := New(newFakeSource(), nil)

	job, err := f.Issue(context.Background(), models.Coordinate{X: 1, Y: 1}, models.ModePlace)
	require.NoError(t, err)
	res := job()
	assert.True(t, f.Apply(res))
	assert.False(t, f.Apply(res))
}
