// Package model defines events, drafts and the calendar cursor.
package model

import "fmt"

// Color is the accent color of an event card.
type Color string

const (
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"

	// DefaultColor is used whenever a draft carries no (or an unknown) color.
	DefaultColor = ColorGreen
)

// ColorOption is one entry of the color picker.
type ColorOption struct {
	Value Color  `json:"value"`
	Label string `json:"label"`
}

// ColorOptions lists the selectable colors in picker order.
var ColorOptions = []ColorOption{
	{Value: ColorGreen, Label: "Green"},
	{Value: ColorBlue, Label: "Blue"},
	{Value: ColorPurple, Label: "Purple"},
	{Value: ColorRed, Label: "Red"},
	{Value: ColorYellow, Label: "Yellow"},
}

// Valid reports whether c is one of the five known colors.
func (c Color) Valid() bool {
	for _, o := range ColorOptions {
		if o.Value == c {
			return true
		}
	}
	return false
}

// OrDefault returns c, or DefaultColor if c is empty or unknown.
func (c Color) OrDefault() Color {
	if c.Valid() {
		return c
	}
	return DefaultColor
}

// MonthNames is indexed by 0-based month.
var MonthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Event is a single calendar entry. Events have no id; their position in the
// session's collection is their identity.
type Event struct {
	Date  string `yaml:"date" json:"date"`   // YYYY-MM-DD
	Time  string `yaml:"time" json:"time"`   // free text, e.g. "10:00-13:00"
	Title string `yaml:"title" json:"title"`
	Desc  string `yaml:"desc" json:"desc"`
	Color Color  `yaml:"color" json:"color"`
}

// Draft is the in-progress content of the add-event form.
type Draft struct {
	Time  string `json:"time"`
	Title string `json:"title"`
	Desc  string `json:"desc"`
	Color Color  `json:"color"`
}

// EmptyDraft returns the form defaults: empty text fields, green.
func EmptyDraft() Draft {
	return Draft{Color: DefaultColor}
}

// Cursor is the displayed year/month and the selected day.
// Month is 0-indexed (0 = January).
type Cursor struct {
	Year        int `json:"year"`
	Month       int `json:"month"`
	SelectedDay int `json:"selected_day"`
}

// SelectedDate formats the cursor as YYYY-MM-DD.
func (c Cursor) SelectedDate() string {
	return DateString(c.Year, c.Month, c.SelectedDay)
}

// DateString formats a 0-indexed month date as YYYY-MM-DD.
func DateString(year, month, day int) string {
	return fmt.Sprintf("%d-%02d-%02d", year, month+1, day)
}

// SampleEvents is the demo data shipped with the default config.
func SampleEvents() []Event {
	return []Event{
		{Date: "2021-09-02", Time: "10:00-13:00", Title: "Design new UX flow for Michael", Desc: "Start from screen 16", Color: ColorGreen},
		{Date: "2021-09-02", Time: "14:00-15:00", Title: "Brainstorm with the team", Desc: "Define the problem or question that...", Color: ColorPurple},
		{Date: "2021-09-02", Time: "19:00-20:00", Title: "Workout with Ella", Desc: "We will do the legs and back workout", Color: ColorBlue},
		{Date: "2021-09-06", Time: "09:00-10:00", Title: "Daily Standup", Desc: "Team sync meeting", Color: ColorGreen},
	}
}
