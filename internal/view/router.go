package view

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/kass/geo-planner/pkg/logger"
	"github.com/kass/geo-planner/pkg/nav"
	"github.com/kass/geo-planner/pkg/planner"
)

// screen is a mounted view the Router can tear down
type screen interface {
	tea.Model
	Close()
}

// Router is the program's root model. It owns the planner collection, so
// the selection survives moving between result views.
type Router struct {
	deps    Deps
	logger  *zap.Logger
	planner *planner.Collection

	current    screen
	lastResult string
	size       *tea.WindowSizeMsg
	err        error
}

// NewRouter mounts the screen for link
func NewRouter(deps Deps, link string) (*Router, error) {
	r := &Router{deps: deps, logger: logger.OrNop(deps.Logger), planner: planner.NewCollection()}
	s, err := r.mount(link)
	if err != nil {
		return nil, err
	}
	r.current = s
	return r, nil
}

func (r *Router) mount(link string) (screen, error) {
	if link == nav.PlannersPath {
		return NewPlanners(r.deps, r.lastResult), nil
	}
	entry, err := nav.ParseLink(link)
	if err != nil {
		return nil, err
	}
	r.lastResult = link
	r.logger.Info("Mounting result view",
		zap.String("link", link),
		zap.Stringer("coordinate", entry.Coordinate),
		zap.Stringer("mode", entry.Mode),
	)
	return NewResult(r.deps, entry, r.planner), nil
}

func (r *Router) Init() tea.Cmd {
	return r.current.Init()
}

func (r *Router) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case NavigateMsg:
		next, err := r.mount(msg.Link)
		if err != nil {
			r.logger.Warn("Navigation rejected", zap.String("link", msg.Link), zap.Error(err))
			r.err = err
			return r, nil
		}
		r.err = nil
		r.current.Close()
		r.current = next

		cmds := []tea.Cmd{next.Init()}
		if r.size != nil {
			size := *r.size
			cmds = append(cmds, func() tea.Msg { return size })
		}
		return r, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		r.size = &msg
	}

	_, cmd := r.current.Update(msg)
	return r, cmd
}

func (r *Router) View() string {
	if r.err != nil {
		return r.current.View() + "\n" + errorStyle.Render(r.err.Error())
	}
	return r.current.View()
}

// Current returns the mounted screen
func (r *Router) Current() tea.Model {
	return r.current
}

// Planner returns the collection shared by all result views
func (r *Router) Planner() *planner.Collection {
	return r.planner
}

// Close tears down the mounted screen
func (r *Router) Close() {
	r.current.Close()
}
