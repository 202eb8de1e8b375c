// Package view holds the terminal screens: the result view that keeps the
// list, the map, the planner and the popups in step, the planners listing,
// and the Router that switches between them.
package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/kass/geo-planner/pkg/archive"
	"github.com/kass/geo-planner/pkg/export"
	"github.com/kass/geo-planner/pkg/fetcher"
	"github.com/kass/geo-planner/pkg/geomap"
	"github.com/kass/geo-planner/pkg/logger"
	"github.com/kass/geo-planner/pkg/models"
	"github.com/kass/geo-planner/pkg/nav"
	"github.com/kass/geo-planner/pkg/overlay"
	"github.com/kass/geo-planner/pkg/planner"
)

const (
	defaultWidth  = 100
	defaultHeight = 32
	listWidth     = 42
	mapHeight     = 12
	panFraction   = 0.25
)

var nextScreenID atomic.Uint64

// DetailSource fetches the detail of one place
type DetailSource interface {
	Detail(ctx context.Context, contentID string) (models.Detail, error)
}

// Bridge exports the planner image and uploads the planner
type Bridge interface {
	Export(ctx context.Context, region export.Region) (string, error)
	Upload(ctx context.Context, items []planner.Item) error
}

// MapWidget is a geomap.Widget the user can pan, zoom and look at
type MapWidget interface {
	geomap.Widget
	Pan(latFrac, lonFrac float64)
	Zoom(delta int)
	Viewport() models.BoundingBox
	Render(width, height int) string
}

// Deps are shared by every screen the Router mounts
type Deps struct {
	Source  fetcher.Source
	Details DetailSource
	Bridge  Bridge
	Archive archive.Store
	// NewWidget creates the map for one result view. A nil widget means
	// there is nowhere to draw the map.
	NewWidget func(center models.Location) MapWidget
	Logger    *zap.Logger
}

type pane int

const (
	paneList pane = iota
	panePlanner
)

// Result is one mounted result view. It is driven by a single Bubble Tea
// event loop and owns its fetcher, map adapter and overlays.
type Result struct {
	id     uint64
	deps   Deps
	logger *zap.Logger
	entry  nav.Entry

	planner  *planner.Collection
	fetcher  *fetcher.Fetcher
	widget   MapWidget
	adapter  *geomap.Adapter
	overlays *overlay.Controller

	keys    keyMap
	spinner spinner.Model
	detail  viewport.Model

	ctx    context.Context
	cancel context.CancelFunc

	// live map center and the links derived from it
	center models.Coordinate
	links  nav.Links

	focus         pane
	cursor        int
	plannerCursor int
	width         int
	height        int
	fatal         error
	status        string
}

// NewResult mounts a result view for entry. The collection is shared with
// the views mounted before and after this one.
func NewResult(deps Deps, entry nav.Entry, collection *planner.Collection) *Result {
	if collection == nil {
		collection = planner.NewCollection()
	}
	id := nextScreenID.Add(1)
	log := logger.OrNop(deps.Logger).With(zap.Uint64("view", id), zap.Stringer("mode", entry.Mode))

	ctx, cancel := context.WithCancel(context.Background())
	r := &Result{
		id:       id,
		deps:     deps,
		logger:   log,
		entry:    entry,
		planner:  collection,
		fetcher:  fetcher.New(deps.Source, log),
		overlays: overlay.New(),
		keys:     defaultKeyMap(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))),
		),
		detail: viewport.New(defaultWidth-8, 8),
		ctx:    ctx,
		cancel: cancel,
		width:  defaultWidth,
		height: defaultHeight,
	}

	var widget MapWidget
	if deps.NewWidget != nil {
		widget = deps.NewWidget(entry.Coordinate.Location())
	}
	if widget == nil {
		r.fatal = geomap.ErrNoContainer
		log.Error("Result view cannot start", zap.Error(r.fatal))
		return r
	}
	adapter, err := geomap.New(widget, log)
	if err != nil {
		r.fatal = err
		log.Error("Result view cannot start", zap.Error(err))
		return r
	}
	r.widget = widget
	r.adapter = adapter
	r.centerChanged(adapter.Center())
	if err := adapter.OnViewportCenterChanged(r.centerChanged); err != nil {
		r.fatal = err
	}
	return r
}

func (r *Result) centerChanged(c models.Coordinate) {
	r.center = c
	r.links = nav.ResearchLinks(c)
}

func (r *Result) Init() tea.Cmd {
	if r.fatal != nil {
		return nil
	}
	// restaurants have no position, so their map only shows the search point
	if err := r.adapter.Render(r.entry.Coordinate, nil); err != nil {
		r.fatal = err
		return nil
	}
	job, err := r.fetcher.Issue(r.ctx, r.entry.Coordinate, r.entry.Mode)
	if err != nil {
		r.fatal = err
		return nil
	}
	return tea.Batch(r.spinner.Tick, r.fetchCmd(job))
}

func (r *Result) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		r.detail.Width = max(msg.Width-8, 20)
		return r, nil

	case spinner.TickMsg:
		if !r.busy() {
			return r, nil
		}
		var cmd tea.Cmd
		r.spinner, cmd = r.spinner.Update(msg)
		return r, cmd

	case listLoadedMsg:
		if msg.owner != r.id {
			return r, nil
		}
		r.applyList(msg.res)
		return r, nil

	case detailLoadedMsg:
		if msg.owner != r.id {
			return r, nil
		}
		if r.overlays.ApplyDetail(msg.token, msg.detail, msg.err) && msg.err == nil {
			r.detail.SetContent(msg.detail.Overview)
			r.detail.GotoTop()
		}
		return r, nil

	case exportDoneMsg:
		if msg.owner != r.id {
			return r, nil
		}
		r.overlays.FinishExport(msg.token, msg.location, msg.err)
		return r, nil

	case uploadDoneMsg:
		if msg.owner != r.id {
			return r, nil
		}
		if !r.overlays.FinishUpload(msg.token, msg.err) || msg.err != nil {
			return r, nil
		}
		// submitted planners start over
		r.planner.Clear()
		r.plannerCursor = 0
		return r, navigate(nav.PlannersPath)

	case tea.KeyMsg:
		return r.handleKey(msg)
	}
	return r, nil
}

func (r *Result) applyList(res fetcher.Result) {
	if !r.fetcher.Apply(res) || res.Err != nil {
		return
	}
	if res.Mode == models.ModePlace {
		// the map gets the same slice the list renders
		if err := r.adapter.Render(r.entry.Coordinate, r.fetcher.Places()); err != nil {
			r.logger.Warn("Map render failed", zap.Error(err))
		}
	}
	r.cursor = clamp(r.cursor, r.recordCount())
}

func (r *Result) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, r.keys.Quit) {
		return r, tea.Quit
	}
	if r.fatal != nil {
		return r, nil
	}
	r.status = ""
	detailOpen := r.overlays.Detail().Open

	switch {
	case key.Matches(msg, r.keys.Close):
		if detailOpen {
			r.overlays.CloseDetail()
		} else {
			r.overlays.ClosePlanner()
		}

	case key.Matches(msg, r.keys.Up):
		if detailOpen {
			r.detail.LineUp(1)
		} else {
			r.moveCursor(-1)
		}

	case key.Matches(msg, r.keys.Down):
		if detailOpen {
			r.detail.LineDown(1)
		} else {
			r.moveCursor(1)
		}

	case key.Matches(msg, r.keys.Focus):
		if r.focus == paneList {
			r.focus = panePlanner
		} else {
			r.focus = paneList
		}

	case key.Matches(msg, r.keys.Add):
		r.addSelected()

	case key.Matches(msg, r.keys.Inspect):
		return r, r.inspectSelected()

	case key.Matches(msg, r.keys.Remove):
		r.removeSelected()

	case key.Matches(msg, r.keys.Finalize):
		r.overlays.OpenPlanner()

	case key.Matches(msg, r.keys.Export):
		return r, r.startExport()

	case key.Matches(msg, r.keys.Upload):
		return r, r.startUpload()

	case key.Matches(msg, r.keys.PanNorth):
		r.widget.Pan(panFraction, 0)
	case key.Matches(msg, r.keys.PanSouth):
		r.widget.Pan(-panFraction, 0)
	case key.Matches(msg, r.keys.PanWest):
		r.widget.Pan(0, -panFraction)
	case key.Matches(msg, r.keys.PanEast):
		r.widget.Pan(0, panFraction)
	case key.Matches(msg, r.keys.ZoomIn):
		r.widget.Zoom(1)
	case key.Matches(msg, r.keys.ZoomOut):
		r.widget.Zoom(-1)
	case key.Matches(msg, r.keys.Fit):
		if !r.adapter.Fit() {
			r.status = "No markers to fit"
		}

	case key.Matches(msg, r.keys.HerePlace):
		return r, navigate(r.links.Place)
	case key.Matches(msg, r.keys.HereFood):
		return r, navigate(r.links.Restaurant)

	case key.Matches(msg, r.keys.Retry):
		return r, r.retry()
	}
	return r, nil
}

func (r *Result) moveCursor(delta int) {
	if r.focus == panePlanner {
		r.plannerCursor = clamp(r.plannerCursor+delta, r.planner.Len())
		return
	}
	r.cursor = clamp(r.cursor+delta, r.recordCount())
}

func (r *Result) addSelected() {
	if r.focus != paneList || r.recordCount() == 0 {
		return
	}
	var item planner.Item
	if r.entry.Mode == models.ModePlace {
		item = r.planner.AppendPlace(r.fetcher.Places()[r.cursor])
	} else {
		item = r.planner.AppendRestaurant(r.fetcher.Restaurants()[r.cursor])
	}
	r.status = fmt.Sprintf("Added %s", item.Name)
	r.logger.Debug("Planner item added", zap.Stringer("id", item.ID), zap.String("name", item.Name))
}

func (r *Result) removeSelected() {
	if r.focus != panePlanner {
		return
	}
	items := r.planner.Contents()
	if r.plannerCursor < 0 || r.plannerCursor >= len(items) {
		return
	}
	item := items[r.plannerCursor]
	if err := r.planner.Remove(item.ID); err != nil {
		r.logger.Warn("Planner item vanished", zap.Stringer("id", item.ID), zap.Error(err))
		return
	}
	r.plannerCursor = clamp(r.plannerCursor, r.planner.Len())
	r.status = fmt.Sprintf("Removed %s", item.Name)
}

func (r *Result) inspectSelected() tea.Cmd {
	var contentID string
	switch r.focus {
	case paneList:
		if r.entry.Mode != models.ModePlace || r.recordCount() == 0 {
			return nil
		}
		contentID = r.fetcher.Places()[r.cursor].ContentID
	case panePlanner:
		items := r.planner.Contents()
		if len(items) == 0 || !items[r.plannerCursor].IsPlace() {
			return nil
		}
		contentID = items[r.plannerCursor].Place.ContentID
	}
	if contentID == "" || r.deps.Details == nil {
		return nil
	}

	token := r.overlays.OpenDetail(contentID)
	r.detail.SetContent("")
	ctx, details, owner := r.ctx, r.deps.Details, r.id
	return tea.Batch(r.spinner.Tick, func() tea.Msg {
		d, err := details.Detail(ctx, contentID)
		return detailLoadedMsg{owner: owner, token: token, detail: d, err: err}
	})
}

// busy reports whether anything the spinner stands for is still running
func (r *Result) busy() bool {
	return r.fetcher.Loading() || r.overlays.Planner().Busy() || r.overlays.Detail().Loading
}

func (r *Result) startExport() tea.Cmd {
	if r.deps.Bridge == nil {
		return nil
	}
	token, err := r.overlays.BeginExport()
	if err != nil {
		r.status = err.Error()
		return nil
	}
	region := export.RegionFor(r.planner.Contents())
	ctx, bridge, owner := r.ctx, r.deps.Bridge, r.id
	return tea.Batch(r.spinner.Tick, func() tea.Msg {
		location, err := bridge.Export(ctx, region)
		return exportDoneMsg{owner: owner, token: token, location: location, err: err}
	})
}

func (r *Result) startUpload() tea.Cmd {
	if r.deps.Bridge == nil {
		return nil
	}
	if r.planner.Len() == 0 {
		r.status = export.ErrEmptyPlanner.Error()
		return nil
	}
	token, err := r.overlays.BeginUpload()
	if err != nil {
		r.status = err.Error()
		return nil
	}
	items := r.planner.Contents()
	ctx, bridge, owner := r.ctx, r.deps.Bridge, r.id
	return tea.Batch(r.spinner.Tick, func() tea.Msg {
		return uploadDoneMsg{owner: owner, token: token, err: bridge.Upload(ctx, items)}
	})
}

func (r *Result) retry() tea.Cmd {
	if r.fetcher.State() != fetcher.StateFailed {
		return nil
	}
	job, err := r.fetcher.Retry()
	if err != nil {
		r.status = err.Error()
		return nil
	}
	return tea.Batch(r.spinner.Tick, r.fetchCmd(job))
}

func (r *Result) fetchCmd(job fetcher.Job) tea.Cmd {
	owner := r.id
	return func() tea.Msg {
		return listLoadedMsg{owner: owner, res: job()}
	}
}

func (r *Result) recordCount() int {
	if r.entry.Mode == models.ModePlace {
		return len(r.fetcher.Places())
	}
	return len(r.fetcher.Restaurants())
}

// Close tears the view down. Results still in flight are dropped and the
// map listener is removed.
func (r *Result) Close() {
	r.cancel()
	r.fetcher.Stop()
	if r.adapter != nil {
		r.adapter.Close()
	}
}

func (r *Result) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Geo Planner"))
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%ss near %s", r.entry.Mode, r.entry.Coordinate)))
	b.WriteString("\n\n")

	if r.fatal != nil {
		msg := r.fatal.Error()
		if errors.Is(r.fatal, geomap.ErrNoContainer) {
			msg = "Map unavailable: " + msg
		}
		b.WriteString(errorStyle.Render(msg))
		b.WriteString("\n\n")
		b.WriteString(helpLine(r.keys.Quit))
		return b.String()
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, r.renderList(), r.renderMap()))
	b.WriteString("\n")
	b.WriteString(r.renderPlanner())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Search this area: "))
	b.WriteString(r.links.Place + "  " + r.links.Restaurant)
	b.WriteString("\n")

	// Detail is drawn last so it sits above the planner popup
	if r.overlays.Planner().Open {
		b.WriteString(r.renderPopup())
		b.WriteString("\n")
	}
	if r.overlays.Detail().Open {
		b.WriteString(r.renderDetail())
		b.WriteString("\n")
	}

	if r.status != "" {
		b.WriteString(infoStyle.Render(r.status))
		b.WriteString("\n")
	}
	b.WriteString(helpLine(r.keys.Up, r.keys.Down, r.keys.Focus, r.keys.Add, r.keys.Inspect,
		r.keys.Remove, r.keys.Finalize, r.keys.PanNorth, r.keys.ZoomIn, r.keys.Fit, r.keys.HerePlace,
		r.keys.HereFood, r.keys.Quit))
	return b.String()
}

func (r *Result) renderList() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Results"))
	b.WriteString("\n")

	switch r.fetcher.State() {
	case fetcher.StateLoading:
		b.WriteString(r.spinner.View() + " Loading...\n")
	case fetcher.StateFailed:
		b.WriteString(errorStyle.Render("Failed to load: "+r.fetcher.Err().Error()) + "\n")
		b.WriteString(dimStyle.Render("press r to retry") + "\n")
	}

	lines := r.listLines()
	if len(lines) == 0 && r.fetcher.State() == fetcher.StateReady {
		b.WriteString(dimStyle.Render("No results") + "\n")
	}
	for i, line := range lines {
		b.WriteString(cursorLine(line, i == r.cursor && r.focus == paneList))
	}

	style := paneStyle
	if r.focus == paneList {
		style = focusedPaneStyle
	}
	return style.Width(listWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func (r *Result) listLines() []string {
	if r.entry.Mode == models.ModePlace {
		places := r.fetcher.Places()
		lines := make([]string, len(places))
		for i, p := range places {
			lines[i] = fmt.Sprintf("%d. %s", i+1, p.Name) +
				dimStyle.Render(fmt.Sprintf("  ★%s %s", models.FormatFloat(float64(p.Rating)), p.Type))
		}
		return lines
	}
	restaurants := r.fetcher.Restaurants()
	lines := make([]string, len(restaurants))
	for i, rest := range restaurants {
		lines[i] = fmt.Sprintf("%d. %s", i+1, rest.Name) + dimStyle.Render("  "+rest.Type)
	}
	return lines
}

func (r *Result) renderMap() string {
	width := max(r.width-listWidth-8, 20)
	header := dimStyle.Render(r.mapHeader())
	return paneStyle.Render(header + "\n" + r.widget.Render(width, mapHeight))
}

// mapHeader summarizes the viewport: how many markers it shows and which one
// is closest to its center
func (r *Result) mapHeader() string {
	markers := len(r.adapter.Markers())
	line := fmt.Sprintf("center %s  zoom %d  markers %d", r.center, r.widget.Level(), markers)
	if markers == 0 {
		return line
	}
	if visible, err := r.adapter.Visible(r.widget.Viewport()); err == nil {
		line += fmt.Sprintf(" (%d in view)", len(visible))
	}
	if m, ok := r.adapter.Nearest(r.center.Location()); ok {
		line += fmt.Sprintf("  nearest %d. %s", m.Number, m.Name)
	}
	return line
}

func (r *Result) renderPlanner() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Planner (%d)", r.planner.Len())))
	b.WriteString("\n")
	items := r.planner.Contents()
	if len(items) == 0 {
		b.WriteString(dimStyle.Render("Nothing selected yet"))
	}
	for i, item := range items {
		b.WriteString(cursorLine(fmt.Sprintf("%d. %s", i+1, item.Name), i == r.plannerCursor && r.focus == panePlanner))
	}

	style := paneStyle
	if r.focus == panePlanner {
		style = focusedPaneStyle
	}
	return style.Width(max(r.width-4, 20)).Render(strings.TrimRight(b.String(), "\n"))
}

func (r *Result) renderPopup() string {
	state := r.overlays.Planner()
	region := export.RegionFor(r.planner.Contents())

	var b strings.Builder
	b.WriteString(subtitleStyle.Render(region.Title))
	b.WriteString("\n")
	for _, line := range region.Lines {
		b.WriteString(line + "\n")
	}

	switch {
	case state.Exporting:
		b.WriteString(r.spinner.View() + " Saving image...\n")
	case state.ExportErr != nil:
		b.WriteString(errorStyle.Render("Export failed: "+state.ExportErr.Error()) + "\n")
	case state.ExportedTo != "":
		b.WriteString(successStyle.Render("Saved to "+state.ExportedTo) + "\n")
	}
	switch {
	case state.Uploading:
		b.WriteString(r.spinner.View() + " Uploading...\n")
	case state.UploadErr != nil:
		b.WriteString(errorStyle.Render("Upload failed: "+state.UploadErr.Error()) + "\n")
		b.WriteString(dimStyle.Render("press u to try again") + "\n")
	}
	b.WriteString(helpLine(r.keys.Export, r.keys.Upload, r.keys.Close))
	return popupStyle.Render(b.String())
}

func (r *Result) renderDetail() string {
	state := r.overlays.Detail()

	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Place " + state.ContentID))
	b.WriteString("\n")
	switch {
	case state.Loading:
		b.WriteString(r.spinner.View() + " Loading detail...")
	case state.Err != nil:
		b.WriteString(errorStyle.Render("Failed to load detail: " + state.Err.Error()))
	default:
		if state.Detail.ImageURL != "" {
			b.WriteString(dimStyle.Render(state.Detail.ImageURL) + "\n")
		}
		b.WriteString(r.detail.View())
	}
	b.WriteString("\n")
	b.WriteString(helpLine(r.keys.Up, r.keys.Close))
	return detailStyle.Render(b.String())
}

func cursorLine(line string, selected bool) string {
	if selected {
		return selectedStyle.Render("> ") + line + "\n"
	}
	return "  " + line + "\n"
}

func navigate(link string) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Link: link}
	}
}

// clamp keeps i inside [0, n), or 0 for an empty range
func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
