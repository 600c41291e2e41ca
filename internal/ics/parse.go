// Package ics converts between session events and iCalendar documents.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "daycal/internal/log"
	"daycal/internal/model"
)

// ParseICS parses an iCalendar payload into events.
//
//   - It detects all-day events by inspecting the DTSTART value format.
//   - Timed events get a "HH:MM-HH:MM" Time, unless the document carries the
//     original free text in X-DAYCAL-TIME.
//   - Recurring events contribute only their first occurrence.
//   - A VEVENT that cannot be read is logged and skipped.
func ParseICS(body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar: %w", err)
	}

	events := make([]model.Event, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "err", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

// LoadFile reads and parses an .ics file (the seed_ics option).
func LoadFile(path string) ([]model.Event, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ics: read %s: %w", path, err)
	}
	events, err := ParseICS(body)
	if err != nil {
		return nil, err
	}
	appLog.Info("ics seed loaded", "path", path, "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, errors.New("missing DTSTART")
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Desc = p.Value
	}
	if p := ve.GetProperty(propColor); p != nil {
		out.Color = model.Color(strings.ToLower(strings.TrimSpace(p.Value)))
	}
	out.Color = out.Color.OrDefault()

	if rr := ve.GetProperty(ical.ComponentPropertyRrule); rr != nil {
		appLog.Debug("ics recurrence ignored; keeping first occurrence", "rrule", rr.Value)
	}

	if isAllDay(dtStart) {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			if start, err = parseICSTime(dtStart.Value); err != nil {
				return out, fmt.Errorf("DTSTART %q: %w", dtStart.Value, err)
			}
		}
		out.Date = start.Format(dateLayout)
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			if start, err = parseICSTime(dtStart.Value); err != nil {
				return out, fmt.Errorf("DTSTART %q: %w", dtStart.Value, err)
			}
		}
		out.Date = start.Format(dateLayout)
		out.Time = start.Format(clockLayout)
		if end, err := ve.GetEndAt(); err == nil && !end.IsZero() {
			out.Time += "-" + end.Format(clockLayout)
		}
	}

	if p := ve.GetProperty(propTimeText); p != nil {
		out.Time = p.Value
	}
	return out, nil
}

// isAllDay reports VALUE=DATE or a date-only (no 'T') DTSTART.
func isAllDay(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime is a fallback for DATE / DATE-TIME values the library could
// not resolve (e.g. unknown TZID). Zones are ignored.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.Parse("20060102T150405", v)
	}
	// Date-only (all-day), e.g., 20250101
	return time.Parse("20060102", v)
}
