package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "daycal/internal/log"
	"daycal/internal/model"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"

	// propColor is the RFC 7986 COLOR property.
	propColor = "COLOR"
	// propTimeText keeps the original free-text time range so that an
	// export can be imported back without loss.
	propTimeText = "X-DAYCAL-TIME"
)

// Export renders events as an iCalendar document.
//
// Events whose Time parses as "HH:MM-HH:MM" become timed VEVENTs (floating
// wall-clock times written as UTC, since zones are not modelled); everything
// else becomes an all-day VEVENT. Events with an unparsable Date are skipped.
func Export(events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//daycal//daycal//EN")
	cal.SetXWRCalName("daycal")

	for i, e := range events {
		day, err := time.Parse(dateLayout, e.Date)
		if err != nil {
			appLog.Warn("ics export: skipping event with invalid date", "index", i, "date", e.Date)
			continue
		}

		// Events have no id of their own; position is identity.
		ev := cal.AddEvent(fmt.Sprintf("%d-%s@daycal", i, e.Date))
		ev.SetDtStampTime(stamp)

		if start, end, ok := parseTimeRange(day, e.Time); ok {
			ev.SetStartAt(start)
			ev.SetEndAt(end)
		} else {
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		}

		if e.Title != "" {
			ev.SetSummary(e.Title)
		}
		if e.Desc != "" {
			ev.SetDescription(e.Desc)
		}
		if e.Time != "" {
			ev.SetProperty(propTimeText, e.Time)
		}
		ev.SetProperty(propColor, string(e.Color.OrDefault()))
	}

	return cal.Serialize()
}

// parseTimeRange parses "10:00-13:00" on day. An end before the start is
// taken to be on the following day.
func parseTimeRange(day time.Time, text string) (start, end time.Time, ok bool) {
	from, to, found := strings.Cut(strings.TrimSpace(text), "-")
	if !found {
		return time.Time{}, time.Time{}, false
	}
	s, err := time.Parse(clockLayout, strings.TrimSpace(from))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	f, err := time.Parse(clockLayout, strings.TrimSpace(to))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	start = time.Date(day.Year(), day.Month(), day.Day(), s.Hour(), s.Minute(), 0, 0, time.UTC)
	end = time.Date(day.Year(), day.Month(), day.Day(), f.Hour(), f.Minute(), 0, 0, time.UTC)
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, true
}
