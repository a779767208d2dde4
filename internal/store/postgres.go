// Package store provides storage backends for the usage-limiting and
// restriction engine.
//
// This file implements the PostgreSQL-backed store for hosted deployments.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveRestriction(def models.RestrictionDefinition) error {
	blockedJSON, err := encodeStrings(def.BlockedPackages)
	if err != nil {
		slog.Error("PostgresStore SaveRestriction encode failed", "error", err, "id", def.ID)
		return err
	}
	daysJSON, err := encodeInts(def.ActiveDays)
	if err != nil {
		slog.Error("PostgresStore SaveRestriction encode failed", "error", err, "id", def.ID)
		return err
	}

	query := `
		INSERT INTO restrictions
		(id, name, description, type, start_minute, end_minute, blocked_packages, active_days, allow_emergency_apps, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description, type = EXCLUDED.type,
			start_minute = EXCLUDED.start_minute, end_minute = EXCLUDED.end_minute,
			blocked_packages = EXCLUDED.blocked_packages, active_days = EXCLUDED.active_days,
			allow_emergency_apps = EXCLUDED.allow_emergency_apps, enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at`
	_, err = s.db.Exec(query, def.ID, def.Name, nilIfEmpty(def.Description), def.Type,
		def.StartMinute, def.EndMinute, nilIfEmpty(blockedJSON), nilIfEmpty(daysJSON),
		def.AllowEmergencyApps, def.Enabled, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveRestriction failed", "error", err, "id", def.ID)
		return fmt.Errorf("failed to save restriction %s: %w", def.ID, err)
	}
	slog.Debug("PostgresStore SaveRestriction succeeded", "id", def.ID, "name", def.Name)
	return nil
}

func (s *PostgresStore) GetRestriction(id string) (*models.RestrictionDefinition, error) {
	query := `SELECT id, name, description, type, start_minute, end_minute, blocked_packages, active_days, allow_emergency_apps, enabled, created_at, updated_at
			  FROM restrictions WHERE id = $1`
	def, err := scanRestriction(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetRestriction failed", "error", err, "id", id)
		return nil, err
	}
	return &def, nil
}

func (s *PostgresStore) ListRestrictions() ([]models.RestrictionDefinition, error) {
	query := `SELECT id, name, description, type, start_minute, end_minute, blocked_packages, active_days, allow_emergency_apps, enabled, created_at, updated_at
			  FROM restrictions ORDER BY created_at`
	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("PostgresStore ListRestrictions query failed", "error", err)
		return nil, fmt.Errorf("failed to query restrictions: %w", err)
	}
	defer rows.Close()

	var defs []models.RestrictionDefinition
	for rows.Next() {
		def, err := scanRestriction(rows)
		if err != nil {
			slog.Error("PostgresStore ListRestrictions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan restriction row: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListRestrictions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate restriction rows: %w", err)
	}
	return defs, nil
}

func (s *PostgresStore) DeleteRestriction(id string) error {
	_, err := s.db.Exec(`DELETE FROM restrictions WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteRestriction failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete restriction %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) SaveProgressiveLimit(limit models.ProgressiveLimit) error {
	query := `
		INSERT INTO progressive_limits
		(id, package_name, original_limit_ms, target_limit_ms, current_limit_ms, reduction_percentage, start_date, next_reduction_date, is_active, progress_percentage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			current_limit_ms = EXCLUDED.current_limit_ms,
			next_reduction_date = EXCLUDED.next_reduction_date,
			is_active = EXCLUDED.is_active,
			progress_percentage = EXCLUDED.progress_percentage,
			updated_at = EXCLUDED.updated_at`
	_, err := s.db.Exec(query, limit.ID, limit.PackageName, limit.OriginalLimitMillis,
		limit.TargetLimitMillis, limit.CurrentLimitMillis, limit.ReductionPercentage,
		limit.StartDate, limit.NextReductionDate, limit.IsActive, limit.ProgressPercentage,
		limit.CreatedAt, limit.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveProgressiveLimit failed", "error", err, "id", limit.ID, "package", limit.PackageName)
		return fmt.Errorf("failed to save progressive limit for %s: %w", limit.PackageName, err)
	}
	slog.Debug("PostgresStore SaveProgressiveLimit succeeded", "id", limit.ID, "package", limit.PackageName)
	return nil
}

func (s *PostgresStore) GetProgressiveLimit(id string) (*models.ProgressiveLimit, error) {
	query := `SELECT id, package_name, original_limit_ms, target_limit_ms, current_limit_ms, reduction_percentage, start_date, next_reduction_date, is_active, progress_percentage, created_at, updated_at
			  FROM progressive_limits WHERE id = $1`
	limit, err := scanLimit(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProgressiveLimit failed", "error", err, "id", id)
		return nil, err
	}
	return &limit, nil
}

func (s *PostgresStore) GetActiveLimitForPackage(packageName string) (*models.ProgressiveLimit, error) {
	query := `SELECT id, package_name, original_limit_ms, target_limit_ms, current_limit_ms, reduction_percentage, start_date, next_reduction_date, is_active, progress_percentage, created_at, updated_at
			  FROM progressive_limits WHERE package_name = $1 AND is_active`
	limit, err := scanLimit(s.db.QueryRow(query, packageName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetActiveLimitForPackage failed", "error", err, "package", packageName)
		return nil, err
	}
	return &limit, nil
}

func (s *PostgresStore) ListActiveLimits() ([]models.ProgressiveLimit, error) {
	query := `SELECT id, package_name, original_limit_ms, target_limit_ms, current_limit_ms, reduction_percentage, start_date, next_reduction_date, is_active, progress_percentage, created_at, updated_at
			  FROM progressive_limits WHERE is_active ORDER BY package_name`
	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("PostgresStore ListActiveLimits query failed", "error", err)
		return nil, fmt.Errorf("failed to query active limits: %w", err)
	}
	defer rows.Close()

	var limits []models.ProgressiveLimit
	for rows.Next() {
		limit, err := scanLimit(rows)
		if err != nil {
			slog.Error("PostgresStore ListActiveLimits scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan limit row: %w", err)
		}
		limits = append(limits, limit)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListActiveLimits rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate limit rows: %w", err)
	}
	return limits, nil
}

func (s *PostgresStore) SaveMilestone(m models.ProgressiveMilestone) error {
	var achievedDate interface{}
	if m.AchievedDate != nil {
		achievedDate = *m.AchievedDate
	}
	query := `
		INSERT INTO progressive_milestones
		(id, limit_id, percentage, is_achieved, achieved_date, celebration_shown)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			is_achieved = EXCLUDED.is_achieved,
			achieved_date = EXCLUDED.achieved_date,
			celebration_shown = EXCLUDED.celebration_shown`
	_, err := s.db.Exec(query, m.ID, m.LimitID, m.Percentage, m.IsAchieved, achievedDate, m.CelebrationShown)
	if err != nil {
		slog.Error("PostgresStore SaveMilestone failed", "error", err, "id", m.ID, "limitID", m.LimitID)
		return fmt.Errorf("failed to save milestone %s: %w", m.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetMilestone(id string) (*models.ProgressiveMilestone, error) {
	query := `SELECT id, limit_id, percentage, is_achieved, achieved_date, celebration_shown
			  FROM progressive_milestones WHERE id = $1`
	m, err := scanMilestone(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetMilestone failed", "error", err, "id", id)
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) ListMilestonesForLimit(limitID string) ([]models.ProgressiveMilestone, error) {
	query := `SELECT id, limit_id, percentage, is_achieved, achieved_date, celebration_shown
			  FROM progressive_milestones WHERE limit_id = $1 ORDER BY percentage`
	rows, err := s.db.Query(query, limitID)
	if err != nil {
		slog.Error("PostgresStore ListMilestonesForLimit query failed", "error", err, "limitID", limitID)
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer rows.Close()

	var milestones []models.ProgressiveMilestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			slog.Error("PostgresStore ListMilestonesForLimit scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan milestone row: %w", err)
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListMilestonesForLimit rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate milestone rows: %w", err)
	}
	return milestones, nil
}

func (s *PostgresStore) ListUncelebratedMilestones() ([]models.ProgressiveMilestone, error) {
	query := `SELECT id, limit_id, percentage, is_achieved, achieved_date, celebration_shown
			  FROM progressive_milestones WHERE is_achieved AND NOT celebration_shown
			  ORDER BY limit_id, percentage`
	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("PostgresStore ListUncelebratedMilestones query failed", "error", err)
		return nil, fmt.Errorf("failed to query uncelebrated milestones: %w", err)
	}
	defer rows.Close()

	var milestones []models.ProgressiveMilestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			slog.Error("PostgresStore ListUncelebratedMilestones scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan milestone row: %w", err)
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListUncelebratedMilestones rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate milestone rows: %w", err)
	}
	return milestones, nil
}

func (s *PostgresStore) SaveFocusSession(session models.FocusSession) error {
	blockedJSON, err := encodeStrings(session.BlockedPackages)
	if err != nil {
		slog.Error("PostgresStore SaveFocusSession encode failed", "error", err, "id", session.ID)
		return err
	}
	var endTime interface{}
	if session.EndTime != nil {
		endTime = *session.EndTime
	}
	query := `
		INSERT INTO focus_sessions
		(id, start_time, target_duration_ms, end_time, actual_duration_ms, was_successful, interruption_count, blocked_packages)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			end_time = EXCLUDED.end_time,
			actual_duration_ms = EXCLUDED.actual_duration_ms,
			was_successful = EXCLUDED.was_successful,
			interruption_count = EXCLUDED.interruption_count`
	_, err = s.db.Exec(query, session.ID, session.StartTime, session.TargetDurationMillis,
		endTime, session.ActualDurationMillis, session.WasSuccessful,
		session.InterruptionCount, nilIfEmpty(blockedJSON))
	if err != nil {
		slog.Error("PostgresStore SaveFocusSession failed", "error", err, "id", session.ID)
		return fmt.Errorf("failed to save focus session %s: %w", session.ID, err)
	}
	slog.Debug("PostgresStore SaveFocusSession succeeded", "id", session.ID, "open", session.IsOpen())
	return nil
}

func (s *PostgresStore) GetOpenFocusSession() (*models.FocusSession, error) {
	query := `SELECT id, start_time, target_duration_ms, end_time, actual_duration_ms, was_successful, interruption_count, blocked_packages
			  FROM focus_sessions WHERE end_time IS NULL`
	session, err := scanFocusSession(s.db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetOpenFocusSession failed", "error", err)
		return nil, err
	}
	return &session, nil
}

func (s *PostgresStore) ListFocusSessionsBetween(start, end time.Time) ([]models.FocusSession, error) {
	query := `SELECT id, start_time, target_duration_ms, end_time, actual_duration_ms, was_successful, interruption_count, blocked_packages
			  FROM focus_sessions WHERE start_time >= $1 AND start_time < $2 ORDER BY start_time`
	rows, err := s.db.Query(query, start, end)
	if err != nil {
		slog.Error("PostgresStore ListFocusSessionsBetween query failed", "error", err)
		return nil, fmt.Errorf("failed to query focus sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.FocusSession
	for rows.Next() {
		session, err := scanFocusSession(rows)
		if err != nil {
			slog.Error("PostgresStore ListFocusSessionsBetween scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan focus session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListFocusSessionsBetween rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate focus session rows: %w", err)
	}
	return sessions, nil
}

func (s *PostgresStore) RecordAppUsage(sample models.AppUsageSample) error {
	query := `
		INSERT INTO app_usage (package_name, usage_day, usage_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (package_name, usage_day) DO UPDATE SET usage_ms = EXCLUDED.usage_ms`
	_, err := s.db.Exec(query, sample.PackageName, sample.Day.Format(dayFormat), sample.UsageMillis)
	if err != nil {
		slog.Error("PostgresStore RecordAppUsage failed", "error", err, "package", sample.PackageName)
		return fmt.Errorf("failed to record usage for %s: %w", sample.PackageName, err)
	}
	return nil
}

func (s *PostgresStore) AverageUsageLast7Days(packageName string, asOf time.Time) (int64, error) {
	from := asOf.AddDate(0, 0, -usageWindowDays).Format(dayFormat)
	to := asOf.Format(dayFormat)
	query := `SELECT COALESCE(SUM(usage_ms), 0) FROM app_usage
			  WHERE package_name = $1 AND usage_day >= $2 AND usage_day < $3`
	var total int64
	if err := s.db.QueryRow(query, packageName, from, to).Scan(&total); err != nil {
		slog.Error("PostgresStore AverageUsageLast7Days failed", "error", err, "package", packageName)
		return 0, fmt.Errorf("failed to query usage for %s: %w", packageName, err)
	}
	return total / usageWindowDays, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
