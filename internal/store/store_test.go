package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
)

func testTime(hour int) time.Time {
	return time.Date(2026, time.August, 25, hour, 0, 0, 0, time.UTC)
}

func newSQLiteTestStore(t *testing.T) Store {
	t.Helper()
	st, err := NewSQLiteStore(WithDSN(filepath.Join(t.TempDir(), "engine.db")))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newPostgresTestStore(t *testing.T) Store {
	t.Helper()
	dsn := os.Getenv("USAGETRACKER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("USAGETRACKER_TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	st, err := NewPostgresStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewPostgresStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// backends lists every Store implementation the suite runs against.
func backends(t *testing.T) map[string]func(*testing.T) Store {
	t.Helper()
	return map[string]func(*testing.T) Store{
		"memory":   func(t *testing.T) Store { return NewInMemoryStore() },
		"sqlite":   newSQLiteTestStore,
		"postgres": newPostgresTestStore,
	}
}

func TestRestrictionRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st := open(t)

			def := models.RestrictionDefinition{
				ID:                 "r1",
				Name:               "bedtime",
				Description:        "overnight wind-down",
				Type:               models.RestrictionTypeBedtime,
				StartMinute:        22 * 60,
				EndMinute:          8 * 60,
				BlockedPackages:    []string{"com.example.social", "com.example.video"},
				ActiveDays:         []int{0, 1, 2, 3, 4, 5, 6},
				AllowEmergencyApps: true,
				Enabled:            true,
				CreatedAt:          testTime(9),
				UpdatedAt:          testTime(9),
			}
			if err := st.SaveRestriction(def); err != nil {
				t.Fatalf("SaveRestriction failed: %v", err)
			}

			got, err := st.GetRestriction("r1")
			if err != nil {
				t.Fatalf("GetRestriction failed: %v", err)
			}
			if got == nil {
				t.Fatal("GetRestriction returned nil for a saved restriction")
			}
			if got.Name != def.Name || got.Description != def.Description || got.Type != def.Type {
				t.Errorf("restriction fields = %q/%q/%q, want %q/%q/%q",
					got.Name, got.Description, got.Type, def.Name, def.Description, def.Type)
			}
			if got.StartMinute != def.StartMinute || got.EndMinute != def.EndMinute {
				t.Errorf("window = %d-%d, want %d-%d", got.StartMinute, got.EndMinute, def.StartMinute, def.EndMinute)
			}
			if len(got.BlockedPackages) != 2 || got.BlockedPackages[0] != "com.example.social" {
				t.Errorf("BlockedPackages = %v, want %v", got.BlockedPackages, def.BlockedPackages)
			}
			if len(got.ActiveDays) != 7 {
				t.Errorf("ActiveDays = %v, want all seven days", got.ActiveDays)
			}
			if !got.AllowEmergencyApps || !got.Enabled {
				t.Errorf("flags = %v/%v, want true/true", got.AllowEmergencyApps, got.Enabled)
			}

			missing, err := st.GetRestriction("absent")
			if err != nil {
				t.Fatalf("GetRestriction(absent) failed: %v", err)
			}
			if missing != nil {
				t.Errorf("GetRestriction(absent) = %+v, want nil", missing)
			}

			// Overwrite under the same id.
			def.Enabled = false
			if err := st.SaveRestriction(def); err != nil {
				t.Fatalf("SaveRestriction overwrite failed: %v", err)
			}
			got, _ = st.GetRestriction("r1")
			if got.Enabled {
				t.Error("overwrite did not update the row")
			}

			defs, err := st.ListRestrictions()
			if err != nil {
				t.Fatalf("ListRestrictions failed: %v", err)
			}
			if len(defs) != 1 {
				t.Fatalf("got %d restrictions, want 1", len(defs))
			}

			if err := st.DeleteRestriction("r1"); err != nil {
				t.Fatalf("DeleteRestriction failed: %v", err)
			}
			defs, _ = st.ListRestrictions()
			if len(defs) != 0 {
				t.Errorf("got %d restrictions after delete, want 0", len(defs))
			}
		})
	}
}

func TestRestrictionEmptyCollections(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st := open(t)

			def := models.RestrictionDefinition{
				ID:        "r2",
				Name:      "block all",
				Type:      models.RestrictionTypeCustom,
				CreatedAt: testTime(9),
				UpdatedAt: testTime(9),
			}
			if err := st.SaveRestriction(def); err != nil {
				t.Fatalf("SaveRestriction failed: %v", err)
			}
			got, err := st.GetRestriction("r2")
			if err != nil || got == nil {
				t.Fatalf("GetRestriction failed: %v", err)
			}
			if len(got.BlockedPackages) != 0 {
				t.Errorf("BlockedPackages = %v, want empty", got.BlockedPackages)
			}
			if len(got.ActiveDays) != 0 {
				t.Errorf("ActiveDays = %v, want empty", got.ActiveDays)
			}
			t.Cleanup(func() { st.DeleteRestriction("r2") })
		})
	}
}

func TestProgressiveLimitRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st := open(t)

			limit := models.ProgressiveLimit{
				ID:                  "l1",
				PackageName:         "com.example.social",
				OriginalLimitMillis: 3960000,
				TargetLimitMillis:   1800000,
				CurrentLimitMillis:  3564000,
				ReductionPercentage: 10,
				StartDate:           testTime(0),
				NextReductionDate:   testTime(0).AddDate(0, 0, 7),
				IsActive:            true,
				ProgressPercentage:  18.333333333333332,
				CreatedAt:           testTime(9),
				UpdatedAt:           testTime(9),
			}
			if err := st.SaveProgressiveLimit(limit); err != nil {
				t.Fatalf("SaveProgressiveLimit failed: %v", err)
			}

			got, err := st.GetProgressiveLimit("l1")
			if err != nil || got == nil {
				t.Fatalf("GetProgressiveLimit failed: %v (%v)", err, got)
			}
			if got.CurrentLimitMillis != 3564000 || got.OriginalLimitMillis != 3960000 || got.TargetLimitMillis != 1800000 {
				t.Errorf("limit millis = %d/%d/%d, want 3960000/1800000/3564000 ordering preserved",
					got.OriginalLimitMillis, got.TargetLimitMillis, got.CurrentLimitMillis)
			}
			if got.ProgressPercentage != limit.ProgressPercentage {
				t.Errorf("ProgressPercentage = %v, want %v", got.ProgressPercentage, limit.ProgressPercentage)
			}
			if !got.NextReductionDate.Equal(limit.NextReductionDate) {
				t.Errorf("NextReductionDate = %v, want %v", got.NextReductionDate, limit.NextReductionDate)
			}

			byPkg, err := st.GetActiveLimitForPackage("com.example.social")
			if err != nil || byPkg == nil {
				t.Fatalf("GetActiveLimitForPackage failed: %v (%v)", err, byPkg)
			}
			if byPkg.ID != "l1" {
				t.Errorf("active limit id = %q, want l1", byPkg.ID)
			}

			// Deactivated limits drop out of the active lookups but stay readable.
			limit.IsActive = false
			if err := st.SaveProgressiveLimit(limit); err != nil {
				t.Fatalf("deactivating save failed: %v", err)
			}
			byPkg, err = st.GetActiveLimitForPackage("com.example.social")
			if err != nil {
				t.Fatalf("GetActiveLimitForPackage failed: %v", err)
			}
			if byPkg != nil {
				t.Errorf("deactivated limit still returned: %+v", byPkg)
			}
			active, err := st.ListActiveLimits()
			if err != nil {
				t.Fatalf("ListActiveLimits failed: %v", err)
			}
			if len(active) != 0 {
				t.Errorf("ListActiveLimits = %+v, want empty", active)
			}
			if got, _ := st.GetProgressiveLimit("l1"); got == nil {
				t.Error("deactivated limit should still be readable by id")
			}
		})
	}
}

func TestMilestoneRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st := open(t)

			for i, pct := range models.MilestonePercentages {
				m := models.ProgressiveMilestone{
					ID:         "m" + string(rune('1'+i)),
					LimitID:    "l1",
					Percentage: pct,
				}
				if err := st.SaveMilestone(m); err != nil {
					t.Fatalf("SaveMilestone failed: %v", err)
				}
			}

			ms, err := st.ListMilestonesForLimit("l1")
			if err != nil {
				t.Fatalf("ListMilestonesForLimit failed: %v", err)
			}
			if len(ms) != 4 {
				t.Fatalf("got %d milestones, want 4", len(ms))
			}
			for i, m := range ms {
				if m.Percentage != models.MilestonePercentages[i] {
					t.Errorf("milestone %d percentage = %d, want %d (sorted)", i, m.Percentage, models.MilestonePercentages[i])
				}
				if m.AchievedDate != nil {
					t.Errorf("unachieved milestone has a date: %+v", m)
				}
			}

			pending, err := st.ListUncelebratedMilestones()
			if err != nil {
				t.Fatalf("ListUncelebratedMilestones failed: %v", err)
			}
			if len(pending) != 0 {
				t.Errorf("unachieved milestones listed as pending: %+v", pending)
			}

			achieved := ms[0]
			achieved.IsAchieved = true
			when := testTime(0)
			achieved.AchievedDate = &when
			if err := st.SaveMilestone(achieved); err != nil {
				t.Fatalf("SaveMilestone achieve failed: %v", err)
			}

			pending, _ = st.ListUncelebratedMilestones()
			if len(pending) != 1 || pending[0].Percentage != 25 {
				t.Fatalf("pending = %+v, want the 25%% milestone", pending)
			}
			if pending[0].AchievedDate == nil || !pending[0].AchievedDate.Equal(when) {
				t.Errorf("AchievedDate = %v, want %v", pending[0].AchievedDate, when)
			}

			achieved.CelebrationShown = true
			if err := st.SaveMilestone(achieved); err != nil {
				t.Fatalf("SaveMilestone celebrate failed: %v", err)
			}
			pending, _ = st.ListUncelebratedMilestones()
			if len(pending) != 0 {
				t.Errorf("celebrated milestone still pending: %+v", pending)
			}

			got, err := st.GetMilestone(achieved.ID)
			if err != nil || got == nil {
				t.Fatalf("GetMilestone failed: %v", err)
			}
			if !got.IsAchieved || !got.CelebrationShown {
				t.Errorf("milestone flags = %v/%v, want true/true", got.IsAchieved, got.CelebrationShown)
			}
		})
	}
}

func TestFocusSessionRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st := open(t)

			open1 := models.FocusSession{
				ID:                   "s1",
				StartTime:            testTime(14),
				TargetDurationMillis: 25 * 60 * 1000,
				BlockedPackages:      []string{"com.example.social"},
			}
			if err := st.SaveFocusSession(open1); err != nil {
				t.Fatalf("SaveFocusSession failed: %v", err)
			}

			got, err := st.GetOpenFocusSession()
			if err != nil || got == nil {
				t.Fatalf("GetOpenFocusSession failed: %v (%v)", err, got)
			}
			if got.ID != "s1" || !got.IsOpen() {
				t.Errorf("open session = %+v, want s1 open", got)
			}

			end := testTime(14).Add(25 * time.Minute)
			open1.EndTime = &end
			open1.ActualDurationMillis = 25 * 60 * 1000
			open1.WasSuccessful = true
			if err := st.SaveFocusSession(open1); err != nil {
				t.Fatalf("closing save failed: %v", err)
			}

			got, err = st.GetOpenFocusSession()
			if err != nil {
				t.Fatalf("GetOpenFocusSession failed: %v", err)
			}
			if got != nil {
				t.Errorf("closed session still open: %+v", got)
			}

			sessions, err := st.ListFocusSessionsBetween(testTime(0), testTime(0).AddDate(0, 0, 1))
			if err != nil {
				t.Fatalf("ListFocusSessionsBetween failed: %v", err)
			}
			if len(sessions) != 1 {
				t.Fatalf("got %d sessions, want 1", len(sessions))
			}
			s := sessions[0]
			if s.EndTime == nil || !s.EndTime.Equal(end) {
				t.Errorf("EndTime = %v, want %v", s.EndTime, end)
			}
			if !s.WasSuccessful || s.ActualDurationMillis != 25*60*1000 {
				t.Errorf("session outcome = %+v, want successful 25 minutes", s)
			}

			// Outside the window: nothing.
			sessions, _ = st.ListFocusSessionsBetween(testTime(0).AddDate(0, 0, 1), testTime(0).AddDate(0, 0, 2))
			if len(sessions) != 0 {
				t.Errorf("next-day query returned %d sessions, want 0", len(sessions))
			}
		})
	}
}

func TestUsageAverage(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st := open(t)
			asOf := testTime(9)

			// Three of the trailing seven days have usage; the average still
			// divides by seven.
			for i := 1; i <= 3; i++ {
				sample := models.AppUsageSample{
					PackageName: "com.example.social",
					Day:         asOf.AddDate(0, 0, -i),
					UsageMillis: 70 * 60 * 1000,
				}
				if err := st.RecordAppUsage(sample); err != nil {
					t.Fatalf("RecordAppUsage failed: %v", err)
				}
			}
			// Today and eight days ago fall outside the window.
			outside := []models.AppUsageSample{
				{PackageName: "com.example.social", Day: asOf, UsageMillis: 500 * 60 * 1000},
				{PackageName: "com.example.social", Day: asOf.AddDate(0, 0, -8), UsageMillis: 500 * 60 * 1000},
			}
			for _, sample := range outside {
				if err := st.RecordAppUsage(sample); err != nil {
					t.Fatalf("RecordAppUsage failed: %v", err)
				}
			}

			avg, err := st.AverageUsageLast7Days("com.example.social", asOf)
			if err != nil {
				t.Fatalf("AverageUsageLast7Days failed: %v", err)
			}
			want := int64(3*70*60*1000) / 7
			if avg != want {
				t.Errorf("average = %d, want %d", avg, want)
			}

			none, err := st.AverageUsageLast7Days("com.example.untracked", asOf)
			if err != nil {
				t.Fatalf("AverageUsageLast7Days for untracked failed: %v", err)
			}
			if none != 0 {
				t.Errorf("untracked average = %d, want 0", none)
			}

			// Re-recording a day replaces, not accumulates.
			if err := st.RecordAppUsage(models.AppUsageSample{
				PackageName: "com.example.social",
				Day:         asOf.AddDate(0, 0, -1),
				UsageMillis: 7 * 60 * 1000,
			}); err != nil {
				t.Fatalf("RecordAppUsage overwrite failed: %v", err)
			}
			avg, _ = st.AverageUsageLast7Days("com.example.social", asOf)
			want = int64(2*70*60*1000+7*60*1000) / 7
			if avg != want {
				t.Errorf("average after overwrite = %d, want %d", avg, want)
			}
		})
	}
}
