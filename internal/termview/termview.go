// Package termview renders a calendar view for the terminal (-print).
package termview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"daycal/internal/calendar"
	"daycal/internal/model"
	"daycal/internal/state"
)

// Options controls terminal styling.
type Options struct {
	TitleStyle    lipgloss.Style
	HeaderStyle   lipgloss.Style
	DayStyle      lipgloss.Style
	EntryStyle    lipgloss.Style
	SelectedStyle lipgloss.Style
	EmptyStyle    lipgloss.Style
	TimeStyle     lipgloss.Style
	DescStyle     lipgloss.Style
}

// eventColors maps event colors to 256-color palette entries.
var eventColors = map[model.Color]string{
	model.ColorGreen:  "34",
	model.ColorBlue:   "33",
	model.ColorPurple: "135",
	model.ColorRed:    "160",
	model.ColorYellow: "178",
}

// DefaultOptions returns the styling used by -print.
func DefaultOptions() Options {
	return Options{
		TitleStyle:    lipgloss.NewStyle().Bold(true),
		HeaderStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true),
		DayStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		EntryStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Underline(true),
		SelectedStyle: lipgloss.NewStyle().Background(lipgloss.Color("99")).Foreground(lipgloss.Color("15")),
		EmptyStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		TimeStyle:     lipgloss.NewStyle().Faint(true),
		DescStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// Render draws the month grid followed by the selected day's events.
func Render(v state.View, opts Options) string {
	var lines []string

	title := fmt.Sprintf("%s %d", v.MonthName, v.Cursor.Year)
	lines = append(lines, opts.TitleStyle.Render(centre(title, 7*3-1)))

	headers := make([]string, 0, len(v.WeekdayHeaders))
	for _, h := range v.WeekdayHeaders {
		headers = append(headers, h[:2])
	}
	lines = append(lines, opts.HeaderStyle.Render(strings.Join(headers, " ")))

	for _, week := range v.Weeks {
		cells := make([]string, 0, len(week))
		for _, c := range week {
			cells = append(cells, renderCell(c, opts))
		}
		lines = append(lines, strings.Join(cells, " "))
	}

	lines = append(lines, "")
	lines = append(lines, opts.TitleStyle.Render(v.SelectedDate))
	if len(v.DayEvents) == 0 {
		lines = append(lines, opts.EmptyStyle.Render("No events for this day."))
	}
	for _, e := range v.DayEvents {
		lines = append(lines, renderEvent(e, opts)...)
	}

	return strings.Join(lines, "\n")
}

func renderCell(c calendar.Cell, opts Options) string {
	if c.Blank {
		return "  "
	}
	text := fmt.Sprintf("%2d", c.Day)
	style := opts.DayStyle
	if c.HasEvents {
		style = opts.EntryStyle
	}
	if c.Selected {
		style = opts.SelectedStyle.Inherit(style)
	}
	return style.Render(text)
}

func renderEvent(e model.Event, opts Options) []string {
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(eventColors[e.Color.OrDefault()])).Render("┃")
	out := []string{bar + " " + opts.TimeStyle.Render(e.Time)}
	out = append(out, bar+" "+lipgloss.NewStyle().Bold(true).Render(e.Title))
	if e.Desc != "" {
		out = append(out, bar+" "+opts.DescStyle.Render(e.Desc))
	}
	return out
}

func centre(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
