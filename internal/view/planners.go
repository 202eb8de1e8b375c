package view

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kass/geo-planner/pkg/archive"
)

var errNoArchive = errors.New("no planner archive configured")

// Planners lists the planners uploaded so far, newest first
type Planners struct {
	id      uint64
	store   archive.Store
	back    string
	keys    keyMap
	spinner spinner.Model

	ctx    context.Context
	cancel context.CancelFunc

	planners []archive.Planner
	loading  bool
	err      error
	cursor   int
}

// NewPlanners mounts the listing; back is the result link esc returns to
func NewPlanners(deps Deps, back string) *Planners {
	ctx, cancel := context.WithCancel(context.Background())
	return &Planners{
		id:    nextScreenID.Add(1),
		store: deps.Archive,
		back:  back,
		keys:  defaultKeyMap(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *Planners) Init() tea.Cmd {
	return p.load()
}

func (p *Planners) load() tea.Cmd {
	if p.store == nil {
		p.err = errNoArchive
		return nil
	}
	p.loading = true
	p.err = nil
	ctx, store, owner := p.ctx, p.store, p.id
	return tea.Batch(p.spinner.Tick, func() tea.Msg {
		planners, err := store.List(ctx)
		return plannersLoadedMsg{owner: owner, planners: planners, err: err}
	})
}

func (p *Planners) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !p.loading {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case plannersLoadedMsg:
		if msg.owner != p.id {
			return p, nil
		}
		p.loading = false
		p.err = msg.err
		p.planners = msg.planners
		p.cursor = clamp(p.cursor, len(p.planners))
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Quit):
			return p, tea.Quit
		case key.Matches(msg, p.keys.Close):
			if p.back != "" {
				return p, navigate(p.back)
			}
		case key.Matches(msg, p.keys.Up):
			p.cursor = clamp(p.cursor-1, len(p.planners))
		case key.Matches(msg, p.keys.Down):
			p.cursor = clamp(p.cursor+1, len(p.planners))
		case key.Matches(msg, p.keys.Retry):
			return p, p.load()
		}
	}
	return p, nil
}

func (p *Planners) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Uploaded planners"))
	b.WriteString("\n\n")

	switch {
	case p.loading:
		b.WriteString(p.spinner.View() + " Loading planners...\n")
	case p.err != nil:
		b.WriteString(errorStyle.Render(p.err.Error()) + "\n")
	case len(p.planners) == 0:
		b.WriteString(dimStyle.Render("No planners uploaded yet") + "\n")
	}

	for i, planner := range p.planners {
		line := fmt.Sprintf("%s  %s", planner.CreatedAt.Local().Format("2006-01-02 15:04"), strings.Join(planner.Names(), ", "))
		b.WriteString(cursorLine(line, i == p.cursor))
	}

	b.WriteString("\n")
	b.WriteString(helpLine(p.keys.Up, p.keys.Down, p.keys.Retry, p.keys.Close, p.keys.Quit))
	return b.String()
}

func (p *Planners) Close() {
	p.cancel()
}
