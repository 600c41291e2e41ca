// Package state holds the mutable calendar state of one browser session.
//
// A Calendar is not safe for concurrent use; callers serialize access (see
// internal/session).
package state

import (
	"slices"

	"daycal/internal/calendar"
	"daycal/internal/model"
)

// Calendar owns the cursor, the event collection and the add-event form.
type Calendar struct {
	grid      calendar.Grid
	cursor    model.Cursor
	events    []model.Event
	draft     model.Draft
	modalOpen bool
}

// New returns a Calendar positioned at cursor with a copy of seed as its
// initial event collection.
func New(cursor model.Cursor, seed []model.Event, grid calendar.Grid) *Calendar {
	return &Calendar{
		grid:   grid,
		cursor: cursor,
		events: slices.Clone(seed),
		draft:  model.EmptyDraft(),
	}
}

// PrevMonth moves one month back, wrapping January to December of the
// previous year. The selected day resets to 1.
func (c *Calendar) PrevMonth() {
	if c.cursor.Month == 0 {
		c.cursor.Month = 11
		c.cursor.Year--
	} else {
		c.cursor.Month--
	}
	c.cursor.SelectedDay = 1
}

// NextMonth moves one month forward, wrapping December to January of the
// next year. The selected day resets to 1.
func (c *Calendar) NextMonth() {
	if c.cursor.Month == 11 {
		c.cursor.Month = 0
		c.cursor.Year++
	} else {
		c.cursor.Month++
	}
	c.cursor.SelectedDay = 1
}

// SelectDay sets the selected day as given. Range checks are the caller's job.
func (c *Calendar) SelectDay(day int) {
	c.cursor.SelectedDay = day
}

// Cursor returns the displayed month and selected day.
func (c *Calendar) Cursor() model.Cursor { return c.cursor }

// SelectedDate is the selected day as YYYY-MM-DD.
func (c *Calendar) SelectedDate() string { return c.cursor.SelectedDate() }

// Events returns a copy of the event collection in insertion order.
func (c *Calendar) Events() []model.Event { return slices.Clone(c.events) }

// ModalOpen reports whether the add-event form is shown.
func (c *Calendar) ModalOpen() bool { return c.modalOpen }

// Draft returns the current form contents.
func (c *Calendar) Draft() model.Draft { return c.draft }

// OpenForm shows the add-event modal. The current draft is kept.
func (c *Calendar) OpenForm() {
	c.modalOpen = true
}

// SetDraft replaces the form contents.
func (c *Calendar) SetDraft(d model.Draft) {
	c.draft = d
}

// CancelForm drops the draft and closes the modal.
func (c *Calendar) CancelForm() {
	c.draft = model.EmptyDraft()
	c.modalOpen = false
}

// AddEvent commits the draft as an event on the selected date, resets the
// form and closes the modal.
func (c *Calendar) AddEvent() model.Event {
	ev := model.Event{
		Date:  c.SelectedDate(),
		Time:  c.draft.Time,
		Title: c.draft.Title,
		Desc:  c.draft.Desc,
		Color: c.draft.Color.OrDefault(),
	}
	c.events = append(c.events, ev)
	c.draft = model.EmptyDraft()
	c.modalOpen = false
	return ev
}

// View is everything a renderer needs for one frame.
type View struct {
	Cursor         model.Cursor        `json:"cursor"`
	MonthName      string              `json:"month_name"`
	WeekdayHeaders []string            `json:"weekday_headers"`
	DaysInMonth    int                 `json:"days_in_month"`
	Weeks          [][]calendar.Cell   `json:"weeks"`
	SelectedDate   string              `json:"selected_date"`
	DayEvents      []model.Event       `json:"day_events"`
	ModalOpen      bool                `json:"modal_open"`
	Draft          model.Draft         `json:"draft"`
	ColorOptions   []model.ColorOption `json:"color_options"`
}

// View projects the current state through the grid.
func (c *Calendar) View() View {
	date := c.SelectedDate()
	day := calendar.EventsOnDate(c.events, date)
	if day == nil {
		day = []model.Event{}
	}
	return View{
		Cursor:         c.cursor,
		MonthName:      model.MonthNames[c.cursor.Month],
		WeekdayHeaders: c.grid.WeekdayHeaders(),
		DaysInMonth:    calendar.DaysInMonth(c.cursor.Year, c.cursor.Month),
		Weeks:          c.grid.Weeks(c.cursor.Year, c.cursor.Month, c.cursor.SelectedDay, c.events),
		SelectedDate:   date,
		DayEvents:      day,
		ModalOpen:      c.modalOpen,
		Draft:          c.draft,
		ColorOptions:   model.ColorOptions,
	}
}
