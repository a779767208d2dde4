package restriction

import (
	"errors"
	"testing"
	"time"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/clock"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/store"
)

// brokenStore fails every restriction read, for fail-open tests.
type brokenStore struct {
	*store.InMemoryStore
}

func (b *brokenStore) ListRestrictions() ([]models.RestrictionDefinition, error) {
	return nil, errors.New("store unavailable")
}

func newTestManager(t *testing.T, now time.Time) (*Manager, *store.InMemoryStore, *clock.Fixed) {
	t.Helper()
	st := store.NewInMemoryStore()
	clk := clock.NewFixed(now)
	return NewManager(st, clk), st, clk
}

func TestIsBlockedEmptyPackageListBlocksEverything(t *testing.T) {
	// Tuesday 23:00, inside a 22:00-08:00 window.
	m, st, _ := newTestManager(t, at(25, 23, 0))
	def := models.RestrictionDefinition{
		ID:          "r1",
		Name:        "bedtime",
		StartMinute: 22 * 60,
		EndMinute:   8 * 60,
		ActiveDays:  allDays(),
		Enabled:     true,
	}
	if err := st.SaveRestriction(def); err != nil {
		t.Fatalf("SaveRestriction failed: %v", err)
	}

	if !m.IsBlocked("com.example.game") {
		t.Error("empty blocked list should block an arbitrary package")
	}
	if !m.IsBlocked("com.android.dialer") {
		t.Error("emergency package should be blocked when AllowEmergencyApps is off")
	}
}

func TestIsBlockedEmergencyExemption(t *testing.T) {
	m, st, _ := newTestManager(t, at(25, 23, 0))
	def := models.RestrictionDefinition{
		ID:                 "r1",
		Name:               "bedtime",
		StartMinute:        22 * 60,
		EndMinute:          8 * 60,
		ActiveDays:         allDays(),
		AllowEmergencyApps: true,
		Enabled:            true,
	}
	if err := st.SaveRestriction(def); err != nil {
		t.Fatalf("SaveRestriction failed: %v", err)
	}

	if m.IsBlocked("com.android.dialer") {
		t.Error("dialer should be exempt when AllowEmergencyApps is on")
	}
	if !m.IsBlocked("com.example.game") {
		t.Error("non-emergency package should still be blocked")
	}
}

func TestIsBlockedExplicitPackageList(t *testing.T) {
	m, st, _ := newTestManager(t, at(25, 23, 0))
	def := models.RestrictionDefinition{
		ID:              "r1",
		Name:            "no social",
		StartMinute:     22 * 60,
		EndMinute:       8 * 60,
		BlockedPackages: []string{"com.example.social"},
		ActiveDays:      allDays(),
		Enabled:         true,
	}
	if err := st.SaveRestriction(def); err != nil {
		t.Fatalf("SaveRestriction failed: %v", err)
	}

	if !m.IsBlocked("com.example.social") {
		t.Error("listed package should be blocked")
	}
	if m.IsBlocked("com.example.other") {
		t.Error("unlisted package should not be blocked")
	}
}

func TestIsBlockedOutsideWindow(t *testing.T) {
	m, st, _ := newTestManager(t, at(25, 12, 0))
	def := models.RestrictionDefinition{
		ID:          "r1",
		Name:        "bedtime",
		StartMinute: 22 * 60,
		EndMinute:   8 * 60,
		ActiveDays:  allDays(),
		Enabled:     true,
	}
	if err := st.SaveRestriction(def); err != nil {
		t.Fatalf("SaveRestriction failed: %v", err)
	}
	if m.IsBlocked("com.example.game") {
		t.Error("nothing should be blocked outside the window")
	}
}

func TestIsBlockedFailsOpenOnStorageError(t *testing.T) {
	m := NewManager(&brokenStore{store.NewInMemoryStore()}, clock.NewFixed(at(25, 23, 0)))
	if m.IsBlocked("com.example.game") {
		t.Error("a storage failure must degrade to not blocked")
	}
	if _, err := m.ActiveRestrictions(); err == nil {
		t.Error("ActiveRestrictions should surface the storage error")
	}
}

func TestSetEnabled(t *testing.T) {
	m, st, clk := newTestManager(t, at(25, 12, 0))
	def := models.RestrictionDefinition{ID: "r1", Name: "bedtime", ActiveDays: allDays(), Enabled: false}
	if err := st.SaveRestriction(def); err != nil {
		t.Fatalf("SaveRestriction failed: %v", err)
	}

	clk.Advance(time.Hour)
	if err := m.SetEnabled("r1", true); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	got, err := st.GetRestriction("r1")
	if err != nil || got == nil {
		t.Fatalf("GetRestriction failed: %v", err)
	}
	if !got.Enabled {
		t.Error("restriction should be enabled")
	}
	if !got.UpdatedAt.Equal(clk.Now()) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, clk.Now())
	}

	// Idempotent: enabling again changes nothing.
	if err := m.SetEnabled("r1", true); err != nil {
		t.Errorf("repeated SetEnabled should succeed: %v", err)
	}

	if err := m.SetEnabled("missing", true); !errors.Is(err, models.ErrRestrictionNotFound) {
		t.Errorf("SetEnabled on unknown id = %v, want ErrRestrictionNotFound", err)
	}
}

// gateStore parks SetEnabled's lookup until the gate opens, so a second
// writer can be raced against a call that is mid read-modify-write.
type gateStore struct {
	*store.InMemoryStore
	entered chan struct{}
	gate    chan struct{}
}

func (g *gateStore) GetRestriction(id string) (*models.RestrictionDefinition, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.gate
	return g.InMemoryStore.GetRestriction(id)
}

func TestSetEnabledSerializesConcurrentWrites(t *testing.T) {
	base := store.NewInMemoryStore()
	def := models.RestrictionDefinition{ID: "r1", Name: "bedtime", ActiveDays: allDays(), Enabled: false}
	if err := base.SaveRestriction(def); err != nil {
		t.Fatalf("SaveRestriction failed: %v", err)
	}
	st := &gateStore{
		InMemoryStore: base,
		entered:       make(chan struct{}, 1),
		gate:          make(chan struct{}),
	}
	m := NewManager(st, clock.NewFixed(at(25, 12, 0)))

	first := make(chan error, 1)
	go func() { first <- m.SetEnabled("r1", true) }()
	<-st.entered // first writer is parked inside its lookup

	second := make(chan error, 1)
	go func() { second <- m.SetEnabled("r1", false) }()
	select {
	case <-second:
		t.Fatal("second write completed while the first was mid-flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(st.gate)
	if err := <-first; err != nil {
		t.Fatalf("first SetEnabled failed: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second SetEnabled failed: %v", err)
	}

	got, err := base.GetRestriction("r1")
	if err != nil || got == nil {
		t.Fatalf("GetRestriction failed: %v", err)
	}
	if got.Enabled {
		t.Error("final state should reflect the second write")
	}
}

func TestCreateCustom(t *testing.T) {
	m, st, _ := newTestManager(t, at(25, 12, 0))

	id, err := m.CreateCustom(models.CreateRestrictionRequest{
		Name:        "study time",
		StartMinute: 19 * 60,
		EndMinute:   21 * 60,
		ActiveDays:  []int{1, 2, 3, 4, 5},
	})
	if err != nil {
		t.Fatalf("CreateCustom failed: %v", err)
	}
	got, err := st.GetRestriction(id)
	if err != nil || got == nil {
		t.Fatalf("created restriction not found: %v", err)
	}
	if got.Type != models.RestrictionTypeCustom {
		t.Errorf("Type = %q, want %q", got.Type, models.RestrictionTypeCustom)
	}
	if !got.Enabled {
		t.Error("custom restrictions should start enabled")
	}
}

func TestCreateCustomValidation(t *testing.T) {
	m, _, _ := newTestManager(t, at(25, 12, 0))

	cases := []struct {
		name string
		req  models.CreateRestrictionRequest
		want error
	}{
		{"empty name", models.CreateRestrictionRequest{StartMinute: 0, EndMinute: 60}, models.ErrEmptyRestrictionName},
		{"bad start", models.CreateRestrictionRequest{Name: "x", StartMinute: -1, EndMinute: 60}, models.ErrInvalidTimeRange},
		{"bad end", models.CreateRestrictionRequest{Name: "x", StartMinute: 0, EndMinute: 1440}, models.ErrInvalidTimeRange},
		{"bad day", models.CreateRestrictionRequest{Name: "x", EndMinute: 60, ActiveDays: []int{7}}, models.ErrInvalidActiveDay},
	}
	for _, tc := range cases {
		if _, err := m.CreateCustom(tc.req); !errors.Is(err, tc.want) {
			t.Errorf("%s: CreateCustom = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestSeedPresets(t *testing.T) {
	m, st, _ := newTestManager(t, at(25, 12, 0))

	if err := m.SeedPresets(); err != nil {
		t.Fatalf("SeedPresets failed: %v", err)
	}
	defs, err := st.ListRestrictions()
	if err != nil {
		t.Fatalf("ListRestrictions failed: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d presets, want 2", len(defs))
	}
	for _, def := range defs {
		if def.Enabled {
			t.Errorf("preset %q should start disabled", def.Name)
		}
		if !def.AllowEmergencyApps {
			t.Errorf("preset %q should allow emergency apps", def.Name)
		}
	}

	// Seeding again must not duplicate.
	if err := m.SeedPresets(); err != nil {
		t.Fatalf("second SeedPresets failed: %v", err)
	}
	defs, _ = st.ListRestrictions()
	if len(defs) != 2 {
		t.Errorf("got %d restrictions after reseed, want 2", len(defs))
	}
}
