package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"daycal/internal/calendar"
	"daycal/internal/ics"
	appLog "daycal/internal/log"
	"daycal/internal/model"
	"daycal/internal/session"
	"daycal/internal/state"
)

// pageData is the template context for index.html.tmpl.
type pageData struct {
	state.View
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Date   string        `json:"date"`
	Events []model.Event `json:"events"`
}

// session returns the caller's session, issuing a cookie for a new one. The
// cookie has no expiry, so it lives as long as the browser session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     s.cfg.Session.CookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// wantsJSON lets scripted clients drive the POST endpoints and get the new
// view back instead of a redirect.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// done finishes a mutating request: 303 back to the page for browsers,
// the updated view for JSON clients.
func (s *Server) done(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if wantsJSON(r) {
		var v state.View
		sess.Do(func(c *state.Calendar) { v = c.View() })
		writeJSON(w, http.StatusOK, v)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var v state.View
	sess.Do(func(c *state.Calendar) { v = c.View() })
	s.render(w, pageData{View: v})
}

func (s *Server) handlePrevMonth(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Do(func(c *state.Calendar) { c.PrevMonth() })
	s.done(w, r, sess)
}

func (s *Server) handleNextMonth(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Do(func(c *state.Calendar) { c.NextMonth() })
	s.done(w, r, sess)
}

// handleSelectDay selects form value "day". Days outside the displayed
// month are refused rather than stored.
func (s *Server) handleSelectDay(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	day, err := strconv.Atoi(r.PostFormValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "day must be an integer")
		return
	}

	ok := false
	sess.Do(func(c *state.Calendar) {
		cur := c.Cursor()
		if day >= 1 && day <= calendar.DaysInMonth(cur.Year, cur.Month) {
			c.SelectDay(day)
			ok = true
		}
	})
	if !ok {
		writeError(w, http.StatusBadRequest, "day is outside the displayed month")
		return
	}
	s.done(w, r, sess)
}

func (s *Server) handleOpenForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Do(func(c *state.Calendar) { c.OpenForm() })
	s.done(w, r, sess)
}

func (s *Server) handleCancelForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Do(func(c *state.Calendar) { c.CancelForm() })
	s.done(w, r, sess)
}

// handleAddEvent submits the form fields time/title/desc/color as the draft
// and commits it on the selected date.
func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	draft := model.Draft{
		Time:  r.PostForm.Get("time"),
		Title: r.PostForm.Get("title"),
		Desc:  r.PostForm.Get("desc"),
		Color: model.Color(r.PostForm.Get("color")),
	}

	var ev model.Event
	sess.Do(func(c *state.Calendar) {
		c.SetDraft(draft)
		ev = c.AddEvent()
	})
	appLog.Info("event added", "session", sess.ID, "date", ev.Date, "color", ev.Color)
	s.done(w, r, sess)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var v state.View
	sess.Do(func(c *state.Calendar) { v = c.View() })
	writeJSON(w, http.StatusOK, v)
}

// handleEvents returns the events of one day.
//
// GET /api/events?date=YYYY-MM-DD
//   - date: defaults to the selected date
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	var events []model.Event
	sess.Do(func(c *state.Calendar) {
		if date == "" {
			date = c.SelectedDate()
		}
		events = calendar.EventsOnDate(c.Events(), date)
	})
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Date: date, Events: events})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var events []model.Event
	sess.Do(func(c *state.Calendar) { events = c.Events() })

	body := ics.Export(events, s.clock.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=daycal.ics")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
