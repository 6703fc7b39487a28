package ui

import "github.com/charmbracelet/lipgloss"

const (
	colorBrand   = lipgloss.Color("#1DB954") // Spotify green
	colorDone    = lipgloss.Color("#04B575")
	colorFailed  = lipgloss.Color("#E22134")
	colorPartial = lipgloss.Color("#FFA42B")
	colorMuted   = lipgloss.Color("#727272")
)

var styles = newPalette()

// palette holds the styles for view titles, export outcomes and the progress log.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func newPalette() palette {
	bold := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return palette{
		title: bold(colorBrand).MarginBottom(1),
		ok:    bold(colorDone),
		err:   bold(colorFailed),
		warn:  lipgloss.NewStyle().Foreground(colorPartial),
		help:  lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
	}
}

// outcome renders the headline of a finished export: complete, created but incomplete, or nothing created.
func (p palette) outcome(created, complete bool) string {
	switch {
	case complete:
		return p.ok.Render("✓ Export Complete!")
	case created:
		return p.warn.Render("! Playlist created but incomplete")
	default:
		return p.err.Render("✗ No playlist was created")
	}
}
