// Package models defines the core data structures for the usage-limiting
// and restriction engine.
//
// It includes restriction definitions, progressive limits with their
// milestones, and focus session records, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// RestrictionType defines how a restriction definition was created.
type RestrictionType string

const (
	// RestrictionTypeCustom is a user-created restriction.
	RestrictionTypeCustom RestrictionType = "custom"
	// RestrictionTypeBedtime is the built-in overnight preset.
	RestrictionTypeBedtime RestrictionType = "bedtime"
	// RestrictionTypeWorkHours is the built-in weekday working-hours preset.
	RestrictionTypeWorkHours RestrictionType = "work_hours"
)

// Validation constants for restriction definitions.
const (
	// MinutesPerDay bounds window minutes; valid values are [0, MinutesPerDay).
	MinutesPerDay = 1440
	// MaxRestrictionNameLength defines the maximum allowed length for a restriction name.
	MaxRestrictionNameLength = 100
)

// MilestonePercentages lists the four fixed checkpoints created with every
// progressive limit.
var MilestonePercentages = []int{25, 50, 75, 100}

// Error variables for better error handling and testability
var (
	ErrEmptyRestrictionName   = errors.New("restriction name cannot be empty")
	ErrRestrictionNameTooLong = errors.New("restriction name exceeds maximum length")
	ErrInvalidTimeRange       = errors.New("start and end minutes must be in [0, 1440)")
	ErrInvalidActiveDay       = errors.New("active days must be in [0, 6]")
	ErrRestrictionNotFound    = errors.New("restriction not found")

	ErrEmptyPackageName   = errors.New("package name cannot be empty")
	ErrInvalidLimitInput  = errors.New("target and average usage must be positive")
	ErrInvalidTargetLimit = errors.New("target limit must be below the starting limit")
	ErrLimitAlreadyActive = errors.New("an active progressive limit already exists for this package")
	ErrLimitNotFound      = errors.New("progressive limit not found")
	ErrMilestoneNotFound  = errors.New("milestone not found")

	ErrInvalidDuration      = errors.New("duration must be positive")
	ErrSessionAlreadyActive = errors.New("a focus session is already active")
	ErrNoActiveSession      = errors.New("no focus session is active")
)

// EmergencyPackages is the compiled-in allowlist of communication apps that
// stay reachable when a restriction sets AllowEmergencyApps. Not user-editable.
var EmergencyPackages = map[string]struct{}{
	"com.android.dialer":                {},
	"com.google.android.dialer":         {},
	"com.samsung.android.dialer":        {},
	"com.android.mms":                   {},
	"com.google.android.apps.messaging": {},
	"com.samsung.android.messaging":     {},
	"com.android.emergency":             {},
	"com.android.contacts":              {},
	"com.google.android.contacts":       {},
}

// IsEmergencyPackage reports whether pkg is on the emergency allowlist.
func IsEmergencyPackage(pkg string) bool {
	_, ok := EmergencyPackages[pkg]
	return ok
}

// RestrictionDefinition is a named rule blocking some or all apps during a
// recurring time window. Windows whose EndMinute is numerically less than
// StartMinute wrap past midnight; StartMinute == EndMinute covers the whole day.
type RestrictionDefinition struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Type               RestrictionType `json:"type"`
	StartMinute        int             `json:"start_minute"`               // minute of day in [0, 1440)
	EndMinute          int             `json:"end_minute"`                 // minute of day in [0, 1440)
	BlockedPackages    []string        `json:"blocked_packages,omitempty"` // empty means block everything
	ActiveDays         []int           `json:"active_days"`                // time.Weekday values, 0=Sunday
	AllowEmergencyApps bool            `json:"allow_emergency_apps"`
	Enabled            bool            `json:"enabled"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// BlocksPackage reports whether this definition, taken alone, blocks pkg.
// It does not consider whether the window is currently active.
func (d *RestrictionDefinition) BlocksPackage(pkg string) bool {
	if d.AllowEmergencyApps && IsEmergencyPackage(pkg) {
		return false
	}
	if len(d.BlockedPackages) == 0 {
		return true
	}
	for _, blocked := range d.BlockedPackages {
		if blocked == pkg {
			return true
		}
	}
	return false
}

// ActiveOnDay reports whether day (a time.Weekday value) is in ActiveDays.
func (d *RestrictionDefinition) ActiveOnDay(day int) bool {
	for _, ad := range d.ActiveDays {
		if ad == day {
			return true
		}
	}
	return false
}

// ProgressiveLimit is a per-app usage ceiling that shrinks on a weekly
// cadence toward a user-chosen target. At most one active record exists per
// package. Invariant while active: Target <= Current <= Original.
type ProgressiveLimit struct {
	ID                  string    `json:"id"`
	PackageName         string    `json:"package_name"`
	OriginalLimitMillis int64     `json:"original_limit_millis"`
	TargetLimitMillis   int64     `json:"target_limit_millis"`
	CurrentLimitMillis  int64     `json:"current_limit_millis"`
	ReductionPercentage int       `json:"reduction_percentage"`
	StartDate           time.Time `json:"start_date"`
	NextReductionDate   time.Time `json:"next_reduction_date"`
	IsActive            bool      `json:"is_active"`
	ProgressPercentage  float64   `json:"progress_percentage"` // in [0, 100]
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ProgressiveMilestone is one of the four fixed checkpoints (25/50/75/100%)
// on a progressive limit. Created with the parent, never deleted while the
// parent exists; the achieved flag never reverts.
type ProgressiveMilestone struct {
	ID               string     `json:"id"`
	LimitID          string     `json:"limit_id"`
	Percentage       int        `json:"percentage"`
	IsAchieved       bool       `json:"is_achieved"`
	AchievedDate     *time.Time `json:"achieved_date,omitempty"`
	CelebrationShown bool       `json:"celebration_shown"`
}

// FocusSession is a user-initiated timed period during which apps are
// blocked. At most one session is open (EndTime unset) system-wide.
type FocusSession struct {
	ID                   string     `json:"id"`
	StartTime            time.Time  `json:"start_time"`
	TargetDurationMillis int64      `json:"target_duration_millis"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	ActualDurationMillis int64      `json:"actual_duration_millis"`
	WasSuccessful        bool       `json:"was_successful"`
	InterruptionCount    int        `json:"interruption_count"`
	BlockedPackages      []string   `json:"blocked_packages,omitempty"`
}

// IsOpen reports whether the session has not yet been completed or cancelled.
func (s *FocusSession) IsOpen() bool {
	return s.EndTime == nil
}

// FocusStats aggregates the focus sessions that started within one local day.
type FocusStats struct {
	Date               string  `json:"date"` // YYYY-MM-DD
	TotalSessions      int     `json:"total_sessions"`
	SuccessfulSessions int     `json:"successful_sessions"`
	TotalFocusMillis   int64   `json:"total_focus_millis"` // successful sessions only
	SuccessRate        float64 `json:"success_rate"`       // 0 when there are no sessions
}

// AppUsageSample is one day of recorded foreground usage for a package,
// supplied by the host's usage-tracking subsystem.
type AppUsageSample struct {
	PackageName string    `json:"package_name"`
	Day         time.Time `json:"day"` // local midnight
	UsageMillis int64     `json:"usage_millis"`
}
