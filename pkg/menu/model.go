package menu

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"dancavallaro.com/console-menu/pkg/discover"
)

type item struct {
	console discover.Console
}

func (i item) Title() string { return i.console.Hostname }

func (i item) Description() string {
	if i.console.Product != "" {
		return fmt.Sprintf("%s (%s)", i.console.Device, i.console.Product)
	}
	return i.console.Device
}

func (i item) FilterValue() string { return i.console.Hostname }

type Model struct {
	list   list.Model
	choice *discover.Console
}

func New(consoles []discover.Console) Model {
	items := make([]list.Item, len(consoles))
	for i, c := range consoles {
		items[i] = item{c}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 2*len(consoles)+8)
	l.Title = "Select a host to connect to"
	l.SetShowStatusBar(false)
	l.Styles.Title = titleStyle

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Choice returns the selected console, if the user picked one before the
// program exited.
func (m Model) Choice() (discover.Console, bool) {
	if m.choice == nil {
		return discover.Console{}, false
	}
	return *m.choice, true
}

// Choose runs the menu and blocks until the user picks a host or quits. It
// returns before the session starts so the terminal is back in its normal
// state when the serial relay takes over.
func Choose(consoles []discover.Console) (discover.Console, bool, error) {
	p := tea.NewProgram(New(consoles), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return discover.Console{}, false, err
	}
	c, ok := final.(Model).Choice()
	return c, ok, nil
}
