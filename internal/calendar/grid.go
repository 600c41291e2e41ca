// Package calendar projects a year/month into the cells of a month grid and
// filters event collections by date.
package calendar

import (
	"iter"
	"slices"
	"time"

	"daycal/internal/model"
)

// Cell is one slot of the month grid. Blank cells pad the first week.
type Cell struct {
	Blank     bool   `json:"blank"`
	Day       int    `json:"day,omitempty"`
	Date      string `json:"date,omitempty"`
	Selected  bool   `json:"selected,omitempty"`
	HasEvents bool   `json:"has_events,omitempty"`
}

// Grid lays out months for a given first day of the week.
type Grid struct {
	WeekStart time.Weekday
}

// MondayFirst is the default layout.
var MondayFirst = Grid{WeekStart: time.Monday}

// DaysInMonth returns the number of days of a 0-indexed month. Day 0 of the
// following month normalizes to the last day of this one.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekdayOffset returns the weekday of the 1st with Monday=1 .. Sunday=7.
func FirstWeekdayOffset(year, month int) int {
	wd := int(time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC).Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// LeadingBlanks is the number of empty cells before day 1.
func (g Grid) LeadingBlanks(year, month int) int {
	first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC).Weekday()
	return (int(first) - int(g.WeekStart) + 7) % 7
}

// Cells yields the blank cells followed by one cell per day. The sequence is
// computed on every range so it always reflects the current events slice.
func (g Grid) Cells(year, month, selectedDay int, events []model.Event) iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for range g.LeadingBlanks(year, month) {
			if !yield(Cell{Blank: true}) {
				return
			}
		}
		n := DaysInMonth(year, month)
		for day := 1; day <= n; day++ {
			date := model.DateString(year, month, day)
			c := Cell{
				Day:       day,
				Date:      date,
				Selected:  day == selectedDay,
				HasEvents: HasEventOn(events, date),
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Weeks groups Cells into rows of seven, padding the last row with blanks.
func (g Grid) Weeks(year, month, selectedDay int, events []model.Event) [][]Cell {
	var weeks [][]Cell
	var row []Cell
	for c := range g.Cells(year, month, selectedDay, events) {
		row = append(row, c)
		if len(row) == 7 {
			weeks = append(weeks, row)
			row = nil
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, Cell{Blank: true})
		}
		weeks = append(weeks, row)
	}
	return weeks
}

// WeekdayHeaders returns the short weekday names in column order.
func (g Grid) WeekdayHeaders() []string {
	out := make([]string, 0, 7)
	for i := range 7 {
		wd := time.Weekday((int(g.WeekStart) + i) % 7)
		out = append(out, wd.String()[:3])
	}
	return out
}

// Cells is MondayFirst.Cells: (FirstWeekdayOffset-1) blanks, then the days.
func Cells(year, month, selectedDay int, events []model.Event) iter.Seq[Cell] {
	return MondayFirst.Cells(year, month, selectedDay, events)
}

// EventsOnDate returns the events dated date, in insertion order.
func EventsOnDate(events []model.Event, date string) []model.Event {
	var out []model.Event
	for _, e := range events {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out
}

// HasEventOn reports whether any event is dated date.
func HasEventOn(events []model.Event, date string) bool {
	return slices.ContainsFunc(events, func(e model.Event) bool { return e.Date == date })
}
