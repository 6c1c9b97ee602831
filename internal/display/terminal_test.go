package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalPanel_DrawsBoard(t *testing.T) {
	var out bytes.Buffer
	p := newTerminalPanel(&out)
	require.NoError(t, p.Init())

	require.NoError(t, p.Draw(Frame{
		Title: "Main St",
		Rows: []Row{
			{Route: "70", Headsign: "Silver Spring", Minutes: 0, Due: "Due"},
			{Route: "S2", Headsign: "Federal Triangle", Minutes: 9, Due: "9m"},
		},
		Footer: "updated now",
	}))
	require.NoError(t, p.Close())

	board := out.String()
	for _, want := range []string{"Main St", "70", "Silver Spring", "Due", "S2", "Federal Triangle", "9m", "updated now"} {
		assert.Contains(t, board, want)
	}
}

func TestTerminalPanel_WaitingAndEmpty(t *testing.T) {
	var out bytes.Buffer
	p := newTerminalPanel(&out)

	require.NoError(t, p.Draw(Frame{Title: "Arrivals", Footer: waitingText, Waiting: true}))
	assert.Contains(t, out.String(), waitingText)
	assert.NotContains(t, out.String(), noArrivalsText)

	out.Reset()
	require.NoError(t, p.Draw(Frame{Title: "Stop 1", Footer: "updated now"}))
	assert.Contains(t, out.String(), noArrivalsText)
}

func TestStyles_MinutesStyle(t *testing.T) {
	s := GetTheme("Slate").Styles()
	assert.Equal(t, s.Due.GetForeground(), s.MinutesStyle(0).GetForeground())
	assert.Equal(t, s.Soon.GetForeground(), s.MinutesStyle(5).GetForeground())
	assert.Equal(t, s.Later.GetForeground(), s.MinutesStyle(6).GetForeground())
}

func TestThemes(t *testing.T) {
	assert.Equal(t, "Kanagawa", NextTheme("Nightfox"))
	assert.Equal(t, "Nightfox", NextTheme("Slate"))
	assert.Equal(t, "Nightfox", NextTheme("missing"))
	assert.Equal(t, DefaultTheme, GetTheme("missing").Name)
	assert.Len(t, ThemeNames(), 3)
}
