// Package store provides storage backends for the usage-limiting and
// restriction engine.
//
// This file implements the SQLite-backed store, the on-device default.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveRestriction(def models.RestrictionDefinition) error {
	blockedJSON, err := encodeStrings(def.BlockedPackages)
	if err != nil {
		slog.Error("SQLiteStore SaveRestriction encode failed", "error", err, "id", def.ID)
		return err
	}
	daysJSON, err := encodeInts(def.ActiveDays)
	if err != nil {
		slog.Error("SQLiteStore SaveRestriction encode failed", "error", err, "id", def.ID)
		return err
	}

	query := `
		INSERT OR REPLACE INTO restrictions
		(id, name, description, type, start_minute, end_minute, blocked_packages, active_days, allow_emergency_apps, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, def.ID, def.Name, nilIfEmpty(def.Description), def.Type,
		def.StartMinute, def.EndMinute, nilIfEmpty(blockedJSON), nilIfEmpty(daysJSON),
		def.AllowEmergencyApps, def.Enabled, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveRestriction failed", "error", err, "id", def.ID)
		return fmt.Errorf("failed to save restriction %s: %w", def.ID, err)
	}
	slog.Debug("SQLiteStore SaveRestriction succeeded", "id", def.ID, "name", def.Name)
	return nil
}

func (s *SQLiteStore) GetRestriction(id string) (*models.RestrictionDefinition, error) {
	query := `SELECT id, name, description, type, start_minute, end_minute, blocked_packages, active_days, allow_emergency_apps, enabled, created_at, updated_at
			  FROM restrictions WHERE id = ?`
	def, err := scanRestriction(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetRestriction not found", "id", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetRestriction failed", "error", err, "id", id)
		return nil, err
	}
	return &def, nil
}

func (s *SQLiteStore) ListRestrictions() ([]models.RestrictionDefinition, error) {
	query := `SELECT id, name, description, type, start_minute, end_minute, blocked_packages, active_days, allow_emergency_apps, enabled, created_at, updated_at
			  FROM restrictions ORDER BY created_at`
	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("SQLiteStore ListRestrictions query failed", "error", err)
		return nil, fmt.Errorf("failed to query restrictions: %w", err)
	}
	defer rows.Close()

	var defs []models.RestrictionDefinition
	for rows.Next() {
		def, err := scanRestriction(rows)
		if err != nil {
			slog.Error("SQLiteStore ListRestrictions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan restriction row: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListRestrictions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate restriction rows: %w", err)
	}
	slog.Debug("SQLiteStore ListRestrictions succeeded", "count", len(defs))
	return defs, nil
}

func (s *SQLiteStore) DeleteRestriction(id string) error {
	_, err := s.db.Exec(`DELETE FROM restrictions WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteRestriction failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete restriction %s: %w", id, err)
	}
	slog.Debug("SQLiteStore DeleteRestriction succeeded", "id", id)
	return nil
}

func (s *SQLiteStore) SaveProgressiveLimit(limit models.ProgressiveLimit) error {
	query := `
		INSERT OR REPLACE INTO progressive_limits
		(id, package_name, original_limit_ms, target_limit_ms, current_limit_ms, reduction_percentage, start_date, next_reduction_date, is_active, progress_percentage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, limit.ID, limit.PackageName, limit.OriginalLimitMillis,
		limit.TargetLimitMillis, limit.CurrentLimitMillis, limit.ReductionPercentage,
		limit.StartDate, limit.NextReductionDate, limit.IsActive, limit.ProgressPercentage,
		limit.CreatedAt, limit.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveProgressiveLimit failed", "error", err, "id", limit.ID, "package", limit.PackageName)
		return fmt.Errorf("failed to save progressive limit for %s: %w", limit.PackageName, err)
	}
	slog.Debug("SQLiteStore SaveProgressiveLimit succeeded", "id", limit.ID, "package", limit.PackageName)
	return nil
}

func (s *SQLiteStore) GetProgressiveLimit(id string) (*models.ProgressiveLimit, error) {
	query := `SELECT id, package_name, original_limit_ms, target_limit_ms, current_limit_ms, reduction_percentage, start_date, next_reduction_date, is_active, progress_percentage, created_at, updated_at
			  FROM progressive_limits WHERE id = ?`
	limit, err := scanLimit(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProgressiveLimit failed", "error", err, "id", id)
		return nil, err
	}
	return &limit, nil
}

func (s *SQLiteStore) GetActiveLimitForPackage(packageName string) (*models.ProgressiveLimit, error) {
	query := `SELECT id, package_name, original_limit_ms, target_limit_ms, current_limit_ms, reduction_percentage, start_date, next_reduction_date, is_active, progress_percentage, created_at, updated_at
			  FROM progressive_limits WHERE package_name = ? AND is_active = 1`
	limit, err := scanLimit(s.db.QueryRow(query, packageName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetActiveLimitForPackage failed", "error", err, "package", packageName)
		return nil, err
	}
	return &limit, nil
}

func (s *SQLiteStore) ListActiveLimits() ([]models.ProgressiveLimit, error) {
	query := `SELECT id, package_name, original_limit_ms, target_limit_ms, current_limit_ms, reduction_percentage, start_date, next_reduction_date, is_active, progress_percentage, created_at, updated_at
			  FROM progressive_limits WHERE is_active = 1 ORDER BY package_name`
	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("SQLiteStore ListActiveLimits query failed", "error", err)
		return nil, fmt.Errorf("failed to query active limits: %w", err)
	}
	defer rows.Close()

	var limits []models.ProgressiveLimit
	for rows.Next() {
		limit, err := scanLimit(rows)
		if err != nil {
			slog.Error("SQLiteStore ListActiveLimits scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan limit row: %w", err)
		}
		limits = append(limits, limit)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListActiveLimits rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate limit rows: %w", err)
	}
	slog.Debug("SQLiteStore ListActiveLimits succeeded", "count", len(limits))
	return limits, nil
}

func (s *SQLiteStore) SaveMilestone(m models.ProgressiveMilestone) error {
	var achievedDate interface{}
	if m.AchievedDate != nil {
		achievedDate = *m.AchievedDate
	}
	query := `
		INSERT OR REPLACE INTO progressive_milestones
		(id, limit_id, percentage, is_achieved, achieved_date, celebration_shown)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, m.ID, m.LimitID, m.Percentage, m.IsAchieved, achievedDate, m.CelebrationShown)
	if err != nil {
		slog.Error("SQLiteStore SaveMilestone failed", "error", err, "id", m.ID, "limitID", m.LimitID)
		return fmt.Errorf("failed to save milestone %s: %w", m.ID, err)
	}
	slog.Debug("SQLiteStore SaveMilestone succeeded", "id", m.ID, "percentage", m.Percentage)
	return nil
}

func (s *SQLiteStore) GetMilestone(id string) (*models.ProgressiveMilestone, error) {
	query := `SELECT id, limit_id, percentage, is_achieved, achieved_date, celebration_shown
			  FROM progressive_milestones WHERE id = ?`
	m, err := scanMilestone(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetMilestone failed", "error", err, "id", id)
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) ListMilestonesForLimit(limitID string) ([]models.ProgressiveMilestone, error) {
	query := `SELECT id, limit_id, percentage, is_achieved, achieved_date, celebration_shown
			  FROM progressive_milestones WHERE limit_id = ? ORDER BY percentage`
	rows, err := s.db.Query(query, limitID)
	if err != nil {
		slog.Error("SQLiteStore ListMilestonesForLimit query failed", "error", err, "limitID", limitID)
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer rows.Close()

	var milestones []models.ProgressiveMilestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			slog.Error("SQLiteStore ListMilestonesForLimit scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan milestone row: %w", err)
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListMilestonesForLimit rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate milestone rows: %w", err)
	}
	return milestones, nil
}

func (s *SQLiteStore) ListUncelebratedMilestones() ([]models.ProgressiveMilestone, error) {
	query := `SELECT id, limit_id, percentage, is_achieved, achieved_date, celebration_shown
			  FROM progressive_milestones WHERE is_achieved = 1 AND celebration_shown = 0
			  ORDER BY limit_id, percentage`
	rows, err := s.db.Query(query)
	if err != nil {
		slog.Error("SQLiteStore ListUncelebratedMilestones query failed", "error", err)
		return nil, fmt.Errorf("failed to query uncelebrated milestones: %w", err)
	}
	defer rows.Close()

	var milestones []models.ProgressiveMilestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			slog.Error("SQLiteStore ListUncelebratedMilestones scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan milestone row: %w", err)
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListUncelebratedMilestones rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate milestone rows: %w", err)
	}
	slog.Debug("SQLiteStore ListUncelebratedMilestones succeeded", "count", len(milestones))
	return milestones, nil
}

func (s *SQLiteStore) SaveFocusSession(session models.FocusSession) error {
	blockedJSON, err := encodeStrings(session.BlockedPackages)
	if err != nil {
		slog.Error("SQLiteStore SaveFocusSession encode failed", "error", err, "id", session.ID)
		return err
	}
	var endTime interface{}
	if session.EndTime != nil {
		endTime = *session.EndTime
	}
	query := `
		INSERT OR REPLACE INTO focus_sessions
		(id, start_time, target_duration_ms, end_time, actual_duration_ms, was_successful, interruption_count, blocked_packages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, session.ID, session.StartTime, session.TargetDurationMillis,
		endTime, session.ActualDurationMillis, session.WasSuccessful,
		session.InterruptionCount, nilIfEmpty(blockedJSON))
	if err != nil {
		slog.Error("SQLiteStore SaveFocusSession failed", "error", err, "id", session.ID)
		return fmt.Errorf("failed to save focus session %s: %w", session.ID, err)
	}
	slog.Debug("SQLiteStore SaveFocusSession succeeded", "id", session.ID, "open", session.IsOpen())
	return nil
}

func (s *SQLiteStore) GetOpenFocusSession() (*models.FocusSession, error) {
	query := `SELECT id, start_time, target_duration_ms, end_time, actual_duration_ms, was_successful, interruption_count, blocked_packages
			  FROM focus_sessions WHERE end_time IS NULL`
	session, err := scanFocusSession(s.db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetOpenFocusSession failed", "error", err)
		return nil, err
	}
	return &session, nil
}

func (s *SQLiteStore) ListFocusSessionsBetween(start, end time.Time) ([]models.FocusSession, error) {
	query := `SELECT id, start_time, target_duration_ms, end_time, actual_duration_ms, was_successful, interruption_count, blocked_packages
			  FROM focus_sessions WHERE start_time >= ? AND start_time < ? ORDER BY start_time`
	rows, err := s.db.Query(query, start, end)
	if err != nil {
		slog.Error("SQLiteStore ListFocusSessionsBetween query failed", "error", err)
		return nil, fmt.Errorf("failed to query focus sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.FocusSession
	for rows.Next() {
		session, err := scanFocusSession(rows)
		if err != nil {
			slog.Error("SQLiteStore ListFocusSessionsBetween scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan focus session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListFocusSessionsBetween rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate focus session rows: %w", err)
	}
	return sessions, nil
}

func (s *SQLiteStore) RecordAppUsage(sample models.AppUsageSample) error {
	query := `
		INSERT INTO app_usage (package_name, usage_day, usage_ms)
		VALUES (?, ?, ?)
		ON CONFLICT (package_name, usage_day) DO UPDATE SET usage_ms = excluded.usage_ms`
	_, err := s.db.Exec(query, sample.PackageName, sample.Day.Format(dayFormat), sample.UsageMillis)
	if err != nil {
		slog.Error("SQLiteStore RecordAppUsage failed", "error", err, "package", sample.PackageName)
		return fmt.Errorf("failed to record usage for %s: %w", sample.PackageName, err)
	}
	slog.Debug("SQLiteStore RecordAppUsage succeeded", "package", sample.PackageName, "day", sample.Day.Format(dayFormat))
	return nil
}

func (s *SQLiteStore) AverageUsageLast7Days(packageName string, asOf time.Time) (int64, error) {
	from := asOf.AddDate(0, 0, -usageWindowDays).Format(dayFormat)
	to := asOf.Format(dayFormat)
	query := `SELECT COALESCE(SUM(usage_ms), 0) FROM app_usage
			  WHERE package_name = ? AND usage_day >= ? AND usage_day < ?`
	var total int64
	if err := s.db.QueryRow(query, packageName, from, to).Scan(&total); err != nil {
		slog.Error("SQLiteStore AverageUsageLast7Days failed", "error", err, "package", packageName)
		return 0, fmt.Errorf("failed to query usage for %s: %w", packageName, err)
	}
	return total / usageWindowDays, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
