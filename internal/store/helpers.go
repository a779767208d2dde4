package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
)

const (
	// dayFormat is the canonical encoding of a usage-ledger day.
	dayFormat = "2006-01-02"
	// usageWindowDays is the width of the trailing usage average window.
	usageWindowDays = 7
)

// encodeStrings serializes a string slice to JSON for a TEXT column.
// Empty slices encode as the empty string (NULL-ish) to keep the
// "empty set means block everything" semantics visible in the database.
func encodeStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode string list: %w", err)
	}
	return string(b), nil
}

// decodeStrings deserializes a JSON TEXT column into a string slice.
func decodeStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		slog.Error("Store failed to decode string list column", "error", err)
		return nil
	}
	return values
}

// encodeInts serializes an int slice to JSON for a TEXT column.
func encodeInts(values []int) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode int list: %w", err)
	}
	return string(b), nil
}

// decodeInts deserializes a JSON TEXT column into an int slice.
func decodeInts(raw string) []int {
	if raw == "" {
		return nil
	}
	var values []int
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		slog.Error("Store failed to decode int list column", "error", err)
		return nil
	}
	return values
}

// rowScanner abstracts sql.Row and sql.Rows so each record type needs one scan helper.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRestriction scans a RestrictionDefinition row.
func scanRestriction(row rowScanner) (models.RestrictionDefinition, error) {
	var def models.RestrictionDefinition
	var description, blockedPackages, activeDays sql.NullString
	err := row.Scan(
		&def.ID, &def.Name, &description, &def.Type, &def.StartMinute, &def.EndMinute,
		&blockedPackages, &activeDays, &def.AllowEmergencyApps, &def.Enabled,
		&def.CreatedAt, &def.UpdatedAt,
	)
	if err != nil {
		return def, err
	}
	def.Description = description.String
	def.BlockedPackages = decodeStrings(blockedPackages.String)
	def.ActiveDays = decodeInts(activeDays.String)
	return def, nil
}

// scanLimit scans a ProgressiveLimit row.
func scanLimit(row rowScanner) (models.ProgressiveLimit, error) {
	var limit models.ProgressiveLimit
	err := row.Scan(
		&limit.ID, &limit.PackageName, &limit.OriginalLimitMillis, &limit.TargetLimitMillis,
		&limit.CurrentLimitMillis, &limit.ReductionPercentage, &limit.StartDate,
		&limit.NextReductionDate, &limit.IsActive, &limit.ProgressPercentage,
		&limit.CreatedAt, &limit.UpdatedAt,
	)
	return limit, err
}

// scanMilestone scans a ProgressiveMilestone row.
func scanMilestone(row rowScanner) (models.ProgressiveMilestone, error) {
	var m models.ProgressiveMilestone
	var achievedDate sql.NullTime
	err := row.Scan(&m.ID, &m.LimitID, &m.Percentage, &m.IsAchieved, &achievedDate, &m.CelebrationShown)
	if err != nil {
		return m, err
	}
	if achievedDate.Valid {
		m.AchievedDate = &achievedDate.Time
	}
	return m, nil
}

// scanFocusSession scans a FocusSession row.
func scanFocusSession(row rowScanner) (models.FocusSession, error) {
	var session models.FocusSession
	var endTime sql.NullTime
	var blockedPackages sql.NullString
	err := row.Scan(
		&session.ID, &session.StartTime, &session.TargetDurationMillis, &endTime,
		&session.ActualDurationMillis, &session.WasSuccessful, &session.InterruptionCount,
		&blockedPackages,
	)
	if err != nil {
		return session, err
	}
	if endTime.Valid {
		session.EndTime = &endTime.Time
	}
	session.BlockedPackages = decodeStrings(blockedPackages.String)
	return session, nil
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
