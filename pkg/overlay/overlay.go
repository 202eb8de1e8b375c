// Package overlay tracks the two popups a result view can show: the detail
// of one place and the planner popup. They are independent and may be open
// at the same time; the view draws Detail above the planner popup.
package overlay

import (
	"errors"

	"github.com/kass/geo-planner/pkg/models"
)

var (
	ErrPopupClosed = errors.New("planner popup is not open")
	ErrBusy        = errors.New("operation already in progress")
)

// DetailState is a snapshot of the detail overlay
type DetailState struct {
	Open      bool
	ContentID string
	Loading   bool
	Detail    models.Detail
	Err       error
}

// PopupState is a snapshot of the planner popup
type PopupState struct {
	Open       bool
	Exporting  bool
	Uploading  bool
	ExportedTo string
	ExportErr  error
	UploadErr  error
}

// Busy reports whether an export or upload is in flight
func (s PopupState) Busy() bool {
	return s.Exporting || s.Uploading
}

// Controller is owned by one result view and only touched from its event loop
type Controller struct {
	detail      DetailState
	detailToken uint64

	popup       PopupState
	exportToken uint64
	uploadToken uint64
}

func New() *Controller {
	return &Controller{}
}

// OpenDetail shows contentID, replacing whatever the overlay showed. The
// returned token must accompany the fetched payload.
func (c *Controller) OpenDetail(contentID string) uint64 {
	c.detailToken++
	c.detail = DetailState{Open: true, ContentID: contentID, Loading: true}
	return c.detailToken
}

// ApplyDetail installs a fetched payload. It reports false when the overlay
// was closed or re-opened since the token was issued.
func (c *Controller) ApplyDetail(token uint64, d models.Detail, err error) bool {
	if !c.detail.Open || token != c.detailToken {
		return false
	}
	c.detail.Loading = false
	if err != nil {
		c.detail.Err = err
		return true
	}
	c.detail.Detail = d
	return true
}

func (c *Controller) CloseDetail() {
	c.detailToken++
	c.detail = DetailState{}
}

func (c *Controller) Detail() DetailState {
	return c.detail
}

// OpenPlanner opens the planner popup, clearing the outcome of earlier
// exports and uploads.
func (c *Controller) OpenPlanner() {
	if c.popup.Open {
		return
	}
	c.popup = PopupState{
		Open:      true,
		Exporting: c.popup.Exporting,
		Uploading: c.popup.Uploading,
	}
}

func (c *Controller) ClosePlanner() {
	c.popup.Open = false
}

func (c *Controller) Planner() PopupState {
	return c.popup
}

// BeginExport marks an image export as running
func (c *Controller) BeginExport() (uint64, error) {
	if !c.popup.Open {
		return 0, ErrPopupClosed
	}
	if c.popup.Exporting {
		return 0, ErrBusy
	}
	c.exportToken++
	c.popup.Exporting = true
	c.popup.ExportErr = nil
	return c.exportToken, nil
}

// FinishExport records the export outcome. The popup stays open either way.
func (c *Controller) FinishExport(token uint64, location string, err error) bool {
	if token != c.exportToken || !c.popup.Exporting {
		return false
	}
	c.popup.Exporting = false
	c.popup.ExportErr = err
	if err == nil {
		c.popup.ExportedTo = location
	}
	return true
}

// BeginUpload marks a planner upload as running. An export in flight does
// not block it.
func (c *Controller) BeginUpload() (uint64, error) {
	if !c.popup.Open {
		return 0, ErrPopupClosed
	}
	if c.popup.Uploading {
		return 0, ErrBusy
	}
	c.uploadToken++
	c.popup.Uploading = true
	c.popup.UploadErr = nil
	return c.uploadToken, nil
}

// FinishUpload records the upload outcome. Success closes the popup; a
// failure keeps it open with the error so the user can retry.
func (c *Controller) FinishUpload(token uint64, err error) bool {
	if token != c.uploadToken || !c.popup.Uploading {
		return false
	}
	c.popup.Uploading = false
	if err != nil {
		c.popup.UploadErr = err
		return true
	}
	c.popup.Open = false
	c.popup.UploadErr = nil
	return true
}
