package session

import (
	"sync"
	"testing"
	"time"

	"daycal/internal/calendar"
	"daycal/internal/clock"
	"daycal/internal/model"
	"daycal/internal/state"
)

func newTestStore(clk clock.Clock) *Store {
	return NewStore(func() *state.Calendar {
		return state.New(model.Cursor{Year: 2021, Month: 8, SelectedDay: 2}, model.SampleEvents(), calendar.MondayFirst)
	}, clk, 0)
}

func TestGetOrCreate(t *testing.T) {
	st := newTestStore(nil)

	s, created := st.GetOrCreate("")
	if !created || s.ID == "" {
		t.Fatalf("expected a new session, got created=%v id=%q", created, s.ID)
	}

	again, created := st.GetOrCreate(s.ID)
	if created || again != s {
		t.Fatal("expected the existing session to be returned")
	}

	other, created := st.GetOrCreate("unknown-id")
	if !created || other.ID == s.ID {
		t.Fatal("expected unknown id to start a new session")
	}
	if st.Len() != 2 {
		t.Fatalf("Len = %d, want 2", st.Len())
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	st := newTestStore(nil)
	a := st.Create()
	b := st.Create()

	a.Do(func(c *state.Calendar) {
		c.SetDraft(model.Draft{Title: "only in a"})
		c.AddEvent()
	})

	var na, nb int
	a.Do(func(c *state.Calendar) { na = len(c.Events()) })
	b.Do(func(c *state.Calendar) { nb = len(c.Events()) })
	if na != nb+1 {
		t.Fatalf("events a=%d b=%d, expected a to have one more", na, nb)
	}
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	clk := clock.NewManual(time.Date(2021, 9, 2, 12, 0, 0, 0, time.UTC))
	st := newTestStore(clk)

	stale := st.Create()
	clk.Advance(20 * time.Minute)
	fresh := st.Create()
	clk.Advance(20 * time.Minute)

	if n := st.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if _, ok := st.Get(stale.ID); ok {
		t.Fatal("stale session should be gone")
	}
	if _, ok := st.Get(fresh.ID); !ok {
		t.Fatal("fresh session should survive")
	}
}

func TestGetRefreshesIdleTimer(t *testing.T) {
	clk := clock.NewManual(time.Date(2021, 9, 2, 12, 0, 0, 0, time.UTC))
	st := newTestStore(clk)
	s := st.Create()

	clk.Advance(25 * time.Minute)
	st.Get(s.ID)
	clk.Advance(25 * time.Minute)

	if n := st.Sweep(30 * time.Minute); n != 0 {
		t.Fatalf("Sweep removed %d, want 0", n)
	}
}

func TestConcurrentDo(t *testing.T) {
	st := newTestStore(nil)
	s := st.Create()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Do(func(c *state.Calendar) { c.AddEvent() })
		}()
	}
	wg.Wait()

	var n int
	s.Do(func(c *state.Calendar) { n = len(c.Events()) })
	if want := len(model.SampleEvents()) + 50; n != want {
		t.Fatalf("events = %d, want %d", n, want)
	}
}

func TestStartSweeperRejectsBadSpec(t *testing.T) {
	st := newTestStore(nil)
	if _, err := st.StartSweeper("not a schedule", time.Minute); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	c, err := st.StartSweeper("@every 1h", time.Minute)
	if err != nil {
		t.Fatalf("StartSweeper: %v", err)
	}
	c.Stop()
}

func TestCreateEvictsLeastRecentlySeen(t *testing.T) {
	clk := clock.NewManual(time.Date(2021, 9, 2, 12, 0, 0, 0, time.UTC))
	st := NewStore(func() *state.Calendar {
		return state.New(model.Cursor{Year: 2021, Month: 8, SelectedDay: 2}, nil, calendar.MondayFirst)
	}, clk, 2)

	a := st.Create()
	clk.Advance(time.Minute)
	b := st.Create()
	clk.Advance(time.Minute)
	st.Get(a.ID) // a is now the most recent

	c := st.Create()
	if st.Len() != 2 {
		t.Fatalf("Len = %d, want 2", st.Len())
	}
	if _, ok := st.Get(b.ID); ok {
		t.Fatal("least recently seen session should be evicted")
	}
	for _, s := range []*Session{a, c} {
		if _, ok := st.Get(s.ID); !ok {
			t.Fatalf("session %s should survive", s.ID)
		}
	}

	for range 10 {
		st.GetOrCreate("")
	}
	if st.Len() != 2 {
		t.Fatalf("Len after cookie-less requests = %d, want 2", st.Len())
	}
}
