package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"daycal/internal/clock"
	"daycal/internal/config"
	"daycal/internal/model"
	"daycal/internal/session"
	"daycal/internal/state"
)

type client struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func newTestClient(t *testing.T, mutate func(*config.Config)) *client {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Capture.Output = filepath.Join(t.TempDir(), "preview.png")
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Normalize()

	cursor, err := cfg.StartCursor(clock.NewSystem())
	if err != nil {
		t.Fatalf("StartCursor: %v", err)
	}
	store := session.NewStore(func() *state.Calendar {
		return state.New(cursor, cfg.SeedEvents, cfg.Grid())
	}, nil, cfg.Session.MaxSessions)

	clk := clock.NewManual(time.Date(2021, 9, 1, 8, 0, 0, 0, time.UTC))
	srv, err := NewServer(cfg, store, clk, false)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &client{t: t, h: srv.Handler()}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "daycal_session" {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) postJSON(path string, form url.Values) state.View {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	rec := c.do(req)
	if rec.Code != http.StatusOK {
		c.t.Fatalf("POST %s: status %d body %s", path, rec.Code, rec.Body.String())
	}
	var v state.View
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		c.t.Fatalf("decode view: %v", err)
	}
	return v
}

func (c *client) view() state.View {
	c.t.Helper()
	rec := c.get("/api/state")
	if rec.Code != http.StatusOK {
		c.t.Fatalf("GET /api/state: %d", rec.Code)
	}
	var v state.View
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		c.t.Fatalf("decode view: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, nil)
	rec := c.get("/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestIndexRendersWidget(t *testing.T) {
	c := newTestClient(t, nil)
	rec := c.get("/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if c.cookie == nil {
		t.Fatal("expected a session cookie")
	}
	body := rec.Body.String()
	for _, want := range []string{
		`data-ready="true"`,
		"September 2021",
		"Design new UX flow for Michael",
		"Workout with Ella",
		`class="day selected has-events"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Daily Standup") {
		t.Error("events of other days must not be listed")
	}
	if strings.Contains(body, "Add New Event") {
		t.Error("modal should be closed initially")
	}
}

func TestNavigationRedirectsAndWraps(t *testing.T) {
	c := newTestClient(t, func(cfg *config.Config) { cfg.StartDate = "2021-12-15" })

	rec := c.post("/nav/next", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("next = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	v := c.view()
	if v.Cursor != (model.Cursor{Year: 2022, Month: 0, SelectedDay: 1}) {
		t.Fatalf("cursor after next = %+v", v.Cursor)
	}

	c.post("/nav/prev", nil)
	c.post("/nav/prev", nil)
	v = c.view()
	if v.Cursor != (model.Cursor{Year: 2021, Month: 10, SelectedDay: 1}) {
		t.Fatalf("cursor after prev x2 = %+v", v.Cursor)
	}
}

func TestSelectDay(t *testing.T) {
	c := newTestClient(t, nil)

	v := c.postJSON("/select", url.Values{"day": {"6"}})
	if v.SelectedDate != "2021-09-06" || len(v.DayEvents) != 1 || v.DayEvents[0].Title != "Daily Standup" {
		t.Fatalf("after select: %+v", v)
	}

	for _, day := range []string{"0", "31", "x"} {
		rec := c.post("/select", url.Values{"day": {day}})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("select %q = %d, want 400", day, rec.Code)
		}
	}
	if got := c.view().Cursor.SelectedDay; got != 6 {
		t.Fatalf("rejected selections changed the cursor: %d", got)
	}
}

func TestAddEventFlow(t *testing.T) {
	c := newTestClient(t, nil)
	c.postJSON("/select", url.Values{"day": {"3"}})

	v := c.postJSON("/events/new", nil)
	if !v.ModalOpen {
		t.Fatal("expected modal open")
	}
	if body := c.get("/").Body.String(); !strings.Contains(body, "Add New Event") {
		t.Fatal("page should render the modal")
	}

	rec := c.post("/events", url.Values{"time": {"12:00-13:00"}, "title": {"Lunch"}, "desc": {"<b>tacos</b>"}, "color": {"yellow"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("add = %d", rec.Code)
	}

	v = c.view()
	if v.ModalOpen {
		t.Fatal("modal should close after submit")
	}
	want := model.Event{Date: "2021-09-03", Time: "12:00-13:00", Title: "Lunch", Desc: "<b>tacos</b>", Color: model.ColorYellow}
	if len(v.DayEvents) != 1 || v.DayEvents[0] != want {
		t.Fatalf("day events = %+v", v.DayEvents)
	}

	body := c.get("/").Body.String()
	if !strings.Contains(body, "&lt;b&gt;tacos&lt;/b&gt;") {
		t.Error("event text must be HTML-escaped")
	}
}

func TestAddEventDefaults(t *testing.T) {
	c := newTestClient(t, nil)
	v := c.postJSON("/events", url.Values{"color": {"magenta"}})
	last := v.DayEvents[len(v.DayEvents)-1]
	if last != (model.Event{Date: "2021-09-02", Color: model.ColorGreen}) {
		t.Fatalf("added %+v", last)
	}
}

func TestCancelForm(t *testing.T) {
	c := newTestClient(t, nil)
	before := len(c.view().DayEvents)

	c.postJSON("/events/new", nil)
	v := c.postJSON("/events/cancel", nil)
	if v.ModalOpen || len(v.DayEvents) != before {
		t.Fatalf("cancel: %+v", v)
	}
}

func TestSessionsAreSeparate(t *testing.T) {
	a := newTestClient(t, nil)
	a.postJSON("/nav/next", nil)

	b := &client{t: t, h: a.h}
	if got := b.view().Cursor.Month; got != 8 {
		t.Fatalf("second browser sees month %d, want 8", got)
	}
	if got := a.view().Cursor.Month; got != 9 {
		t.Fatalf("first browser month = %d, want 9", got)
	}
}

func TestEventsAPI(t *testing.T) {
	c := newTestClient(t, nil)

	var resp eventsResponse
	rec := c.get("/api/events")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Date != "2021-09-02" || len(resp.Events) != 3 {
		t.Fatalf("default date response = %+v", resp)
	}

	rec = c.get("/api/events?date=2021-09-03")
	if !strings.Contains(rec.Body.String(), `"events":[]`) {
		t.Fatalf("expected empty events array, got %s", rec.Body.String())
	}

	if rec := c.get("/api/events?date=Sept-3"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date = %d", rec.Code)
	}
}

func TestExportICS(t *testing.T) {
	c := newTestClient(t, nil)
	rec := c.get("/calendar.ics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type = %q", ct)
	}
	if n := strings.Count(rec.Body.String(), "BEGIN:VEVENT"); n != 4 {
		t.Fatalf("VEVENT count = %d", n)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	c := newTestClient(t, nil)
	if rec := c.get("/nav/next"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /nav/next = %d", rec.Code)
	}
}

func TestStaticAndPreview(t *testing.T) {
	var output string
	c := newTestClient(t, func(cfg *config.Config) { output = cfg.Capture.Output })

	if rec := c.get("/static/style.css"); rec.Code != http.StatusOK {
		t.Fatalf("style.css = %d", rec.Code)
	}
	if rec := c.get("/preview.png"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing preview = %d", rec.Code)
	}
	if err := os.WriteFile(output, []byte("\x89PNG"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rec := c.get("/preview.png"); rec.Code != http.StatusOK {
		t.Fatalf("preview = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	c := newTestClient(t, func(cfg *config.Config) {
		cfg.BasicAuth = &config.BasicAuthConfig{Username: "ella", Password: "legs-day"}
	})

	if rec := c.get("/health"); rec.Code != http.StatusOK {
		t.Fatalf("health behind auth = %d", rec.Code)
	}
	if rec := c.get("/"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no credentials = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("ella", "legs-day")
	if rec := c.do(req); rec.Code != http.StatusOK {
		t.Fatalf("with credentials = %d", rec.Code)
	}
}
