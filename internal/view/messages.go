package view

import (
	"github.com/kass/geo-planner/pkg/archive"
	"github.com/kass/geo-planner/pkg/fetcher"
	"github.com/kass/geo-planner/pkg/models"
)

// NavigateMsg asks the Router to replace the current screen with the one
// at Link.
type NavigateMsg struct {
	Link string
}

// Async results carry the id of the screen that started them; a screen
// ignores results owned by another one.

type listLoadedMsg struct {
	owner uint64
	res   fetcher.Result
}

type detailLoadedMsg struct {
	owner  uint64
	token  uint64
	detail models.Detail
	err    error
}

type exportDoneMsg struct {
	owner    uint64
	token    uint64
	location string
	err      error
}

type uploadDoneMsg struct {
	owner uint64
	token uint64
	err   error
}

type plannersLoadedMsg struct {
	owner    uint64
	planners []archive.Planner
	err      error
}
