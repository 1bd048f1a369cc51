package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytsync/internal/models"
)

// Styles is the default terminal palette.
var Styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// Status colors a mapping status.
func (p *Palette) Status(s models.MappingStatus) string {
	switch s {
	case models.MappingHealthy:
		return p.OK(string(s))
	case models.MappingAuthExpired:
		return p.Warn(string(s))
	case models.MappingDestinationMissing:
		return p.Err(string(s))
	default:
		return p.Help("UNMAPPED")
	}
}

// Summary renders run stats for the terminal. Zero counters are omitted.
func (p *Palette) Summary(title string, s models.RunStats, dryRun bool) string {
	var b strings.Builder

	heading := title
	if dryRun {
		heading += " (dry run)"
	}
	b.WriteString(p.Title(heading))
	b.WriteString("\n")

	for _, line := range statLines(s) {
		if line.value == 0 && line.label != "Total" {
			continue
		}
		value := fmt.Sprintf("%d", line.value)
		switch line.label {
		case "Added", "Planned":
			value = p.OK(value)
		case "Not found", "Search failed", "Malformed":
			value = p.Warn(value)
		case "Add failed":
			value = p.Err(value)
		}
		fmt.Fprintf(&b, "  %-16s %s\n", line.label+":", value)
	}
	return b.String()
}
