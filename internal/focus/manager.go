// Package focus implements timed focus sessions: at most one open session
// system-wide, with start/complete/cancel transitions and daily stats.
//
// The "current session" is not held as in-memory state; it is the store's
// session with no end time, guarded by an in-process mutex for the
// start/complete race and by a storage-level uniqueness invariant.
package focus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/clock"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/notify"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/store"
)

// Manager drives the focus session state machine:
// Idle -> Active -> {Completed, Cancelled}, then back to Idle.
type Manager struct {
	store    store.Store
	clock    clock.Clock
	notifier notify.Notifier

	// mu protects the open-session transition so two concurrent Start calls
	// cannot both succeed.
	mu sync.Mutex
}

// NewManager creates a focus session manager.
func NewManager(st store.Store, clk clock.Clock, n notify.Notifier) *Manager {
	slog.Debug("Creating focus Manager")
	return &Manager{store: st, clock: clk, notifier: n}
}

// Start opens a new focus session. Exactly one concurrent Start wins; the
// rest fail with models.ErrSessionAlreadyActive. Emits a session-started
// event on success.
func (m *Manager) Start(durationMinutes int, blockedPackages []string) (string, error) {
	if durationMinutes <= 0 {
		return "", models.ErrInvalidDuration
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	open, err := m.store.GetOpenFocusSession()
	if err != nil {
		slog.Error("Manager Start open-session lookup failed", "error", err)
		return "", err
	}
	if open != nil {
		slog.Warn("Manager Start rejected: session already active", "openID", open.ID)
		return "", models.ErrSessionAlreadyActive
	}

	session := models.FocusSession{
		ID:                   uuid.NewString(),
		StartTime:            m.clock.Now(),
		TargetDurationMillis: int64(durationMinutes) * int64(time.Minute/time.Millisecond),
		BlockedPackages:      blockedPackages,
	}
	if err := m.store.SaveFocusSession(session); err != nil {
		slog.Error("Manager Start save failed", "error", err)
		return "", err
	}

	slog.Info("Manager Start succeeded", "id", session.ID, "durationMinutes", durationMinutes)
	m.notifier.SessionStarted(durationMinutes)
	return session.ID, nil
}

// Complete closes the open session, recording its outcome. Fails with
// models.ErrNoActiveSession when nothing is open. Emits a completion event
// reflecting success or failure.
func (m *Manager) Complete(wasSuccessful bool, interruptionCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.GetOpenFocusSession()
	if err != nil {
		slog.Error("Manager Complete open-session lookup failed", "error", err)
		return err
	}
	if session == nil {
		slog.Warn("Manager Complete rejected: no active session")
		return models.ErrNoActiveSession
	}

	now := m.clock.Now()
	session.EndTime = &now
	session.ActualDurationMillis = now.Sub(session.StartTime).Milliseconds()
	session.WasSuccessful = wasSuccessful
	session.InterruptionCount = interruptionCount
	if err := m.store.SaveFocusSession(*session); err != nil {
		slog.Error("Manager Complete save failed", "error", err, "id", session.ID)
		return err
	}

	slog.Info("Manager Complete succeeded", "id", session.ID,
		"actualMillis", session.ActualDurationMillis, "successful", wasSuccessful)
	m.notifier.SessionCompleted(session.ActualDurationMillis, wasSuccessful)
	return nil
}

// Cancel abandons the open session: shorthand for an unsuccessful completion
// with one interruption.
func (m *Manager) Cancel() error {
	return m.Complete(false, 1)
}

// IsActive reports whether a session is open. A storage failure degrades to
// false (fail open) and is logged.
func (m *Manager) IsActive() bool {
	session, err := m.store.GetOpenFocusSession()
	if err != nil {
		slog.Warn("Manager IsActive failing open: lookup failed", "error", err)
		return false
	}
	return session != nil
}

// ElapsedMillis returns how long the open session has been running, or 0
// when idle.
func (m *Manager) ElapsedMillis() int64 {
	session, err := m.store.GetOpenFocusSession()
	if err != nil {
		slog.Warn("Manager ElapsedMillis failing open: lookup failed", "error", err)
		return 0
	}
	if session == nil {
		return 0
	}
	return m.clock.Now().Sub(session.StartTime).Milliseconds()
}

// IsAppBlocked reports whether packageName is blocked by the running
// session. While a session is active every package is blocked except the
// emergency allowlist; the per-session blocked list is persisted for the
// record but not consulted.
func (m *Manager) IsAppBlocked(packageName string) bool {
	if !m.IsActive() {
		return false
	}
	return !models.IsEmergencyPackage(packageName)
}

// Stats aggregates the sessions whose start time falls within date's local
// day. TotalFocusMillis sums the actual duration of successful sessions
// only; SuccessRate is 0 when the day has no sessions.
func (m *Manager) Stats(date time.Time) (models.FocusStats, error) {
	dayStart := clock.StartOfDay(date)
	dayEnd := dayStart.AddDate(0, 0, 1)
	stats := models.FocusStats{Date: dayStart.Format("2006-01-02")}

	sessions, err := m.store.ListFocusSessionsBetween(dayStart, dayEnd)
	if err != nil {
		slog.Error("Manager Stats query failed", "error", err, "date", stats.Date)
		return stats, err
	}

	for _, session := range sessions {
		if session.IsOpen() {
			continue
		}
		stats.TotalSessions++
		if session.WasSuccessful {
			stats.SuccessfulSessions++
			stats.TotalFocusMillis += session.ActualDurationMillis
		}
	}
	if stats.TotalSessions > 0 {
		stats.SuccessRate = float64(stats.SuccessfulSessions) / float64(stats.TotalSessions)
	}
	slog.Debug("Manager Stats computed", "date", stats.Date, "total", stats.TotalSessions,
		"successful", stats.SuccessfulSessions)
	return stats, nil
}
