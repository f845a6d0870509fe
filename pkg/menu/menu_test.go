package menu

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dancavallaro.com/console-menu/pkg/discover"
)

func testConsoles() []discover.Console {
	return []discover.Console{
		{Hostname: "nas", Device: "/dev/ttyUSB0", Product: "FT232R USB UART"},
		{Hostname: "pve1", Device: "/dev/ttyUSB1"},
	}
}

func TestEnterSelectsHighlightedHost(t *testing.T) {
	m := New(testConsoles())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	choice, ok := updated.(Model).Choice()
	require.True(t, ok)
	assert.Equal(t, "nas", choice.Hostname)
	assert.Equal(t, "/dev/ttyUSB0", choice.Device)
}

func TestArrowThenEnterSelectsSecondHost(t *testing.T) {
	m := New(testConsoles())

	mid, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	updated, _ := mid.Update(tea.KeyMsg{Type: tea.KeyEnter})

	choice, ok := updated.(Model).Choice()
	require.True(t, ok)
	assert.Equal(t, "pve1", choice.Hostname)
}

func TestQuitLeavesNoChoice(t *testing.T) {
	m := New(testConsoles())

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	_, ok := updated.(Model).Choice()
	assert.False(t, ok)
	require.NotNil(t, cmd)
}

func TestItemRendersDeviceAndProduct(t *testing.T) {
	consoles := testConsoles()

	assert.Equal(t, "nas", item{consoles[0]}.Title())
	assert.Equal(t, "/dev/ttyUSB0 (FT232R USB UART)", item{consoles[0]}.Description())
	assert.Equal(t, "/dev/ttyUSB1", item{consoles[1]}.Description())
}
