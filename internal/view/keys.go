package view

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Focus     key.Binding
	Add       key.Binding
	Inspect   key.Binding
	Remove    key.Binding
	Finalize  key.Binding
	Export    key.Binding
	Upload    key.Binding
	Close     key.Binding
	PanNorth  key.Binding
	PanSouth  key.Binding
	PanWest   key.Binding
	PanEast   key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	Fit       key.Binding
	HerePlace key.Binding
	HereFood  key.Binding
	Retry     key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "list/planner")),
		Add:       key.NewBinding(key.WithKeys("enter", "a"), key.WithHelp("enter", "add to planner")),
		Inspect:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "detail")),
		Remove:    key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		Finalize:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "planner")),
		Export:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "save image")),
		Upload:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		Close:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		PanNorth:  key.NewBinding(key.WithKeys("K"), key.WithHelp("HJKL", "pan")),
		PanSouth:  key.NewBinding(key.WithKeys("J")),
		PanWest:   key.NewBinding(key.WithKeys("H")),
		PanEast:   key.NewBinding(key.WithKeys("L")),
		ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
		ZoomOut:   key.NewBinding(key.WithKeys("-")),
		Fit:       key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fit markers")),
		HerePlace: key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "places here")),
		HereFood:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "restaurants here")),
		Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// helpLine renders the short help for the given bindings
func helpLine(bindings ...key.Binding) string {
	out := ""
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		if out != "" {
			out += "  "
		}
		out += h.Key + " " + h.Desc
	}
	return dimStyle.Render(out)
}
