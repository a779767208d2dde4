// Package store provides storage backends for the usage-limiting and
// restriction engine.
//
// It includes an in-memory store for tests and persistent SQLite and
// PostgreSQL backends. All backends implement the Store interface consumed
// by the restriction, limits and focus managers.
package store

import (
	"time"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
)

// Store defines the persistence operations the engine needs. Lookups that
// find nothing return (nil, nil); managers translate that into their typed
// not-found errors.
type Store interface {
	// Restriction definitions
	SaveRestriction(def models.RestrictionDefinition) error
	GetRestriction(id string) (*models.RestrictionDefinition, error)
	ListRestrictions() ([]models.RestrictionDefinition, error)
	DeleteRestriction(id string) error

	// Progressive limits
	SaveProgressiveLimit(limit models.ProgressiveLimit) error
	GetProgressiveLimit(id string) (*models.ProgressiveLimit, error)
	GetActiveLimitForPackage(packageName string) (*models.ProgressiveLimit, error)
	ListActiveLimits() ([]models.ProgressiveLimit, error)

	// Progressive milestones
	SaveMilestone(m models.ProgressiveMilestone) error
	GetMilestone(id string) (*models.ProgressiveMilestone, error)
	ListMilestonesForLimit(limitID string) ([]models.ProgressiveMilestone, error)
	ListUncelebratedMilestones() ([]models.ProgressiveMilestone, error)

	// Focus sessions
	SaveFocusSession(s models.FocusSession) error
	GetOpenFocusSession() (*models.FocusSession, error)
	ListFocusSessionsBetween(start, end time.Time) ([]models.FocusSession, error)

	// Usage ledger, fed by the host's usage-tracking subsystem.
	RecordAppUsage(sample models.AppUsageSample) error
	AverageUsageLast7Days(packageName string, asOf time.Time) (int64, error)

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database DSN (file path for SQLite, connection string for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}
