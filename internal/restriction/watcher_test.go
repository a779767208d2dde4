package restriction

import (
	"testing"
	"time"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/notify"
)

func TestWatcherNotifiesOnceWhenWindowOpens(t *testing.T) {
	m, st, clk := newTestManager(t, at(25, 21, 59))
	if err := st.SaveRestriction(models.RestrictionDefinition{
		ID:          "r1",
		Name:        "bedtime",
		StartMinute: 22 * 60,
		EndMinute:   8 * 60,
		ActiveDays:  allDays(),
		Enabled:     true,
	}); err != nil {
		t.Fatalf("SaveRestriction failed: %v", err)
	}

	recorder := notify.NewRecordingNotifier()
	w := NewWatcher(m, recorder)

	w.Tick()
	if len(recorder.ActivatedSets) != 0 {
		t.Fatalf("no notification expected before the window opens, got %v", recorder.ActivatedSets)
	}

	clk.Advance(2 * time.Minute) // 22:01, window open
	w.Tick()
	if len(recorder.ActivatedSets) != 1 {
		t.Fatalf("got %d notifications, want 1", len(recorder.ActivatedSets))
	}
	if got := recorder.ActivatedSets[0]; len(got) != 1 || got[0] != "bedtime" {
		t.Errorf("notified names = %v, want [bedtime]", got)
	}

	// Still active on the next tick: no repeat.
	clk.Advance(time.Minute)
	w.Tick()
	if len(recorder.ActivatedSets) != 1 {
		t.Errorf("active restriction must not be re-announced, got %d notifications", len(recorder.ActivatedSets))
	}

	if ids := w.ActiveIDs(); len(ids) != 1 || ids[0] != "r1" {
		t.Errorf("ActiveIDs = %v, want [r1]", ids)
	}
}

func TestWatcherReannouncesAfterWindowCloses(t *testing.T) {
	m, st, clk := newTestManager(t, at(25, 13, 30))
	if err := st.SaveRestriction(models.RestrictionDefinition{
		ID:          "r1",
		Name:        "lunch break",
		StartMinute: 13 * 60,
		EndMinute:   14 * 60,
		ActiveDays:  allDays(),
		Enabled:     true,
	}); err != nil {
		t.Fatalf("SaveRestriction failed: %v", err)
	}

	recorder := notify.NewRecordingNotifier()
	w := NewWatcher(m, recorder)

	w.Tick() // active
	clk.Advance(time.Hour)
	w.Tick() // 14:30, inactive
	clk.Set(at(26, 13, 30))
	w.Tick() // next day's window

	if len(recorder.ActivatedSets) != 2 {
		t.Errorf("got %d notifications, want 2 (one per window opening)", len(recorder.ActivatedSets))
	}
}
