package overlay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/geo-planner/pkg/models"
)

func TestDetailReopenReplacesPayload(t *testing.T) {
	c := New()

	r := c.OpenDetail("R")
	assert.Equal(t, DetailState{Open: true, ContentID: "R", Loading: true}, c.Detail())

	s := c.OpenDetail("S")
	assert.Equal(t, "S", c.Detail().ContentID)

	// the answer for R arrives late and is dropped
	assert.False(t, c.ApplyDetail(r, models.Detail{ContentID: "R"}, nil))
	assert.True(t, c.Detail().Loading)

	require.True(t, c.ApplyDetail(s, models.Detail{ContentID: "S", Overview: "text"}, nil))
	state := c.Detail()
	assert.True(t, state.Open)
	assert.False(t, state.Loading)
	assert.Equal(t, "S", state.ContentID)
	assert.Equal(t, "text", state.Detail.Overview)
}

func TestDetailFailure(t *testing.T) {
	c := New()
	token := c.OpenDetail("1")

	require.True(t, c.ApplyDetail(token, models.Detail{}, errors.New("timeout")))
	state := c.Detail()
	assert.True(t, state.Open)
	assert.EqualError(t, state.Err, "timeout")
}

func TestDetailClosedBeforeResponse(t *testing.T) {
	c := New()
	token := c.OpenDetail("1")
	c.CloseDetail()

	assert.False(t, c.ApplyDetail(token, models.Detail{ContentID: "1"}, nil))
	assert.Equal(t, DetailState{}, c.Detail())
}

func TestOverlaysAreIndependent(t *testing.T) {
	c := New()
	c.OpenPlanner()
	c.OpenDetail("1")

	assert.True(t, c.Planner().Open)
	assert.True(t, c.Detail().Open)

	c.CloseDetail()
	assert.True(t, c.Planner().Open)

	c.OpenDetail("2")
	c.ClosePlanner()
	assert.True(t, c.Detail().Open)
}

func TestExportKeepsPopupOpen(t *testing.T) {
	c := New()
	_, err := c.BeginExport()
	assert.ErrorIs(t, err, ErrPopupClosed)

	c.OpenPlanner()
	token, err := c.BeginExport()
	require.NoError(t, err)
	assert.True(t, c.Planner().Busy())

	_, err = c.BeginExport()
	assert.ErrorIs(t, err, ErrBusy)

	require.True(t, c.FinishExport(token, "exports/planner.png", nil))
	state := c.Planner()
	assert.True(t, state.Open)
	assert.False(t, state.Busy())
	assert.Equal(t, "exports/planner.png", state.ExportedTo)

	assert.False(t, c.FinishExport(token, "again", nil))
}

func TestExportFailureDoesNotBlockUpload(t *testing.T) {
	c := New()
	c.OpenPlanner()

	exportToken, err := c.BeginExport()
	require.NoError(t, err)
	uploadToken, err := c.BeginUpload()
	require.NoError(t, err)

	require.True(t, c.FinishExport(exportToken, "", errors.New("font missing")))
	assert.True(t, c.Planner().Open)
	assert.Error(t, c.Planner().ExportErr)

	require.True(t, c.FinishUpload(uploadToken, nil))
	assert.False(t, c.Planner().Open)
}

func TestUploadOutcomes(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantOpen bool
	}{
		{"success closes", nil, false},
		{"failure keeps open", errors.New("502"), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := New()
			c.OpenPlanner()
			token, err := c.BeginUpload()
			require.NoError(t, err)

			_, err = c.BeginUpload()
			assert.ErrorIs(t, err, ErrBusy)

			require.True(t, c.FinishUpload(token, tc.err))
			state := c.Planner()
			assert.Equal(t, tc.wantOpen, state.Open)
			assert.Equal(t, tc.err, state.UploadErr)
			assert.False(t, state.Uploading)
		})
	}
}

func TestReopenClearsOutcome(t *testing.T) {
	c := New()
	c.OpenPlanner()
	token, err := c.BeginUpload()
	require.NoError(t, err)
	c.FinishUpload(token, errors.New("boom"))

	c.ClosePlanner()
	c.OpenPlanner()
	assert.Equal(t, PopupState{Open: true}, c.Planner())
}
