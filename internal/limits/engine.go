// Package limits implements the progressive limit engine: per-app usage
// ceilings that shrink on a weekly cadence toward a user-chosen target,
// with fixed milestones at 25/50/75/100 percent of the journey.
package limits

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/clock"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/store"
)

const (
	// DefaultReductionPercentage is the weekly cut applied to the current ceiling.
	DefaultReductionPercentage = 10
	// reductionIntervalDays is the cadence between reductions.
	reductionIntervalDays = 7
	// bufferPercent is added on top of the trailing average to form the
	// starting ceiling, so the first week is attainable.
	bufferPercent = 10
)

// Engine owns progressive limit records and their milestones.
type Engine struct {
	store store.Store
	clock clock.Clock

	// reduceMu makes ProcessWeeklyReductions single-flight.
	reduceMu sync.Mutex
	// writeMu serializes record mutations so each read-modify-write is atomic.
	writeMu sync.Mutex
}

// NewEngine creates a limit engine backed by st, reading time from clk.
func NewEngine(st store.Store, clk clock.Clock) *Engine {
	slog.Debug("Creating limits Engine")
	return &Engine{store: st, clock: clk}
}

// Create opts a package into a progressive limit. The starting ceiling is
// the trailing-7-day average plus a 10% buffer, rounded half up; the four
// milestones are created unachieved alongside the record.
//
// Returns models.ErrInvalidTargetLimit when the target is not below the
// starting ceiling (nothing to reduce), and models.ErrLimitAlreadyActive
// when the package already has an active record.
func (e *Engine) Create(packageName string, targetLimitMillis, averageUsageMillis int64) (*models.ProgressiveLimit, error) {
	if packageName == "" {
		return nil, models.ErrEmptyPackageName
	}
	if targetLimitMillis <= 0 || averageUsageMillis <= 0 {
		return nil, models.ErrInvalidLimitInput
	}
	original := (averageUsageMillis*(100+bufferPercent) + 50) / 100
	if targetLimitMillis >= original {
		slog.Warn("Engine Create rejected: target not below starting ceiling",
			"package", packageName, "target", targetLimitMillis, "original", original)
		return nil, models.ErrInvalidTargetLimit
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	existing, err := e.store.GetActiveLimitForPackage(packageName)
	if err != nil {
		slog.Error("Engine Create lookup failed", "error", err, "package", packageName)
		return nil, err
	}
	if existing != nil {
		slog.Warn("Engine Create rejected: active limit exists", "package", packageName, "id", existing.ID)
		return nil, models.ErrLimitAlreadyActive
	}

	now := e.clock.Now()
	today := clock.StartOfDay(now)
	limit := models.ProgressiveLimit{
		ID:                  uuid.NewString(),
		PackageName:         packageName,
		OriginalLimitMillis: original,
		TargetLimitMillis:   targetLimitMillis,
		CurrentLimitMillis:  original,
		ReductionPercentage: DefaultReductionPercentage,
		StartDate:           today,
		NextReductionDate:   today.AddDate(0, 0, reductionIntervalDays),
		IsActive:            true,
		ProgressPercentage:  0,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := e.store.SaveProgressiveLimit(limit); err != nil {
		slog.Error("Engine Create save failed", "error", err, "package", packageName)
		return nil, err
	}
	for _, pct := range models.MilestonePercentages {
		milestone := models.ProgressiveMilestone{
			ID:         uuid.NewString(),
			LimitID:    limit.ID,
			Percentage: pct,
		}
		if err := e.store.SaveMilestone(milestone); err != nil {
			slog.Error("Engine Create milestone save failed", "error", err, "limitID", limit.ID, "percentage", pct)
			return nil, err
		}
	}
	slog.Info("Engine Create succeeded", "id", limit.ID, "package", packageName,
		"original", original, "target", targetLimitMillis)
	return &limit, nil
}

// ProcessWeeklyReductions applies one reduction step to every active limit
// whose next reduction date has arrived. Single-flight: a call that finds a
// reduction pass already running returns immediately. Idempotent per day:
// each processed record's next reduction date is advanced a week before it
// can be selected again.
func (e *Engine) ProcessWeeklyReductions(today time.Time) error {
	if !e.reduceMu.TryLock() {
		slog.Debug("Engine ProcessWeeklyReductions skipped: already running")
		return nil
	}
	defer e.reduceMu.Unlock()

	today = clock.StartOfDay(today)
	limits, err := e.store.ListActiveLimits()
	if err != nil {
		slog.Error("Engine ProcessWeeklyReductions list failed", "error", err)
		return err
	}

	processed := 0
	for _, limit := range limits {
		if limit.NextReductionDate.After(today) {
			continue
		}
		if err := e.reduce(limit, today); err != nil {
			return err
		}
		processed++
	}
	slog.Info("Engine ProcessWeeklyReductions finished", "processed", processed, "active", len(limits))
	return nil
}

// reduce applies one reduction step to the limit snapshotted as stale,
// updating its milestones. The snapshot is taken outside writeMu, so the
// record is re-fetched under the lock and skipped if another writer
// deactivated it or already advanced its reduction date; otherwise a
// cancel landing mid-pass would be overwritten by the stale copy.
// Duration arithmetic is integer milliseconds; the cut truncates toward zero.
func (e *Engine) reduce(stale models.ProgressiveLimit, today time.Time) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	current, err := e.store.GetProgressiveLimit(stale.ID)
	if err != nil {
		slog.Error("Engine reduce re-fetch failed", "error", err, "id", stale.ID)
		return err
	}
	if current == nil || !current.IsActive || current.NextReductionDate.After(today) {
		slog.Debug("Engine reduce skipped: record changed since snapshot", "id", stale.ID)
		return nil
	}
	limit := *current

	reduced := limit.CurrentLimitMillis - limit.CurrentLimitMillis*int64(limit.ReductionPercentage)/100
	newLimit := reduced
	if newLimit < limit.TargetLimitMillis {
		newLimit = limit.TargetLimitMillis
	}

	limit.CurrentLimitMillis = newLimit
	limit.UpdatedAt = e.clock.Now()
	if newLimit == limit.TargetLimitMillis {
		limit.IsActive = false
		limit.ProgressPercentage = 100
		slog.Info("Engine reduce: target reached", "id", limit.ID, "package", limit.PackageName)
	} else {
		span := limit.OriginalLimitMillis - limit.TargetLimitMillis
		limit.ProgressPercentage = float64(limit.OriginalLimitMillis-newLimit) / float64(span) * 100
		limit.NextReductionDate = today.AddDate(0, 0, reductionIntervalDays)
	}

	if err := e.store.SaveProgressiveLimit(limit); err != nil {
		slog.Error("Engine reduce save failed", "error", err, "id", limit.ID)
		return err
	}
	slog.Debug("Engine reduce applied", "id", limit.ID, "package", limit.PackageName,
		"current", limit.CurrentLimitMillis, "progress", limit.ProgressPercentage)

	return e.achieveMilestones(limit, today)
}

// achieveMilestones flips every unachieved milestone at or below the limit's
// progress. Achievement is monotonic; flipped milestones never revert.
func (e *Engine) achieveMilestones(limit models.ProgressiveLimit, today time.Time) error {
	milestones, err := e.store.ListMilestonesForLimit(limit.ID)
	if err != nil {
		slog.Error("Engine achieveMilestones list failed", "error", err, "limitID", limit.ID)
		return err
	}
	for _, m := range milestones {
		if m.IsAchieved || float64(m.Percentage) > limit.ProgressPercentage {
			continue
		}
		m.IsAchieved = true
		achieved := today
		m.AchievedDate = &achieved
		if err := e.store.SaveMilestone(m); err != nil {
			slog.Error("Engine achieveMilestones save failed", "error", err, "milestoneID", m.ID)
			return err
		}
		slog.Info("Engine milestone achieved", "limitID", limit.ID, "package", limit.PackageName, "percentage", m.Percentage)
	}
	return nil
}

// Cancel deactivates the active limit for packageName without deleting its
// history. Idempotent: cancelling a package with no active limit is a no-op.
func (e *Engine) Cancel(packageName string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	limit, err := e.store.GetActiveLimitForPackage(packageName)
	if err != nil {
		slog.Error("Engine Cancel lookup failed", "error", err, "package", packageName)
		return err
	}
	if limit == nil {
		slog.Debug("Engine Cancel: no active limit", "package", packageName)
		return nil
	}
	limit.IsActive = false
	limit.UpdatedAt = e.clock.Now()
	if err := e.store.SaveProgressiveLimit(*limit); err != nil {
		slog.Error("Engine Cancel save failed", "error", err, "id", limit.ID)
		return err
	}
	slog.Info("Engine Cancel succeeded", "id", limit.ID, "package", packageName)
	return nil
}

// ListActive returns every active limit record.
func (e *Engine) ListActive() ([]models.ProgressiveLimit, error) {
	return e.store.ListActiveLimits()
}

// Get returns the active limit for packageName, or models.ErrLimitNotFound.
func (e *Engine) Get(packageName string) (*models.ProgressiveLimit, error) {
	limit, err := e.store.GetActiveLimitForPackage(packageName)
	if err != nil {
		return nil, err
	}
	if limit == nil {
		return nil, models.ErrLimitNotFound
	}
	return limit, nil
}

// Milestones returns the four milestones of the given limit record.
func (e *Engine) Milestones(limitID string) ([]models.ProgressiveMilestone, error) {
	return e.store.ListMilestonesForLimit(limitID)
}

// UncelebratedMilestones returns milestones that were achieved but whose
// celebration has not been shown yet.
func (e *Engine) UncelebratedMilestones() ([]models.ProgressiveMilestone, error) {
	return e.store.ListUncelebratedMilestones()
}

// MarkCelebrationShown records that the host displayed the milestone
// celebration. Returns models.ErrMilestoneNotFound for an unknown id.
func (e *Engine) MarkCelebrationShown(milestoneID string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	m, err := e.store.GetMilestone(milestoneID)
	if err != nil {
		slog.Error("Engine MarkCelebrationShown lookup failed", "error", err, "id", milestoneID)
		return err
	}
	if m == nil {
		return models.ErrMilestoneNotFound
	}
	if m.CelebrationShown {
		return nil
	}
	m.CelebrationShown = true
	if err := e.store.SaveMilestone(*m); err != nil {
		slog.Error("Engine MarkCelebrationShown save failed", "error", err, "id", milestoneID)
		return err
	}
	slog.Debug("Engine MarkCelebrationShown succeeded", "id", milestoneID)
	return nil
}
