// Package models defines request payloads for the HTTP host surface.
package models

// CreateRestrictionRequest is the payload for creating a custom restriction.
type CreateRestrictionRequest struct {
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	StartMinute        int      `json:"start_minute"`
	EndMinute          int      `json:"end_minute"`
	BlockedPackages    []string `json:"blocked_packages,omitempty"`
	ActiveDays         []int    `json:"active_days"`
	AllowEmergencyApps bool     `json:"allow_emergency_apps"`
}

// Validate performs field validation on a CreateRestrictionRequest.
func (r *CreateRestrictionRequest) Validate() error {
	if r.Name == "" {
		return ErrEmptyRestrictionName
	}
	if len(r.Name) > MaxRestrictionNameLength {
		return ErrRestrictionNameTooLong
	}
	if r.StartMinute < 0 || r.StartMinute >= MinutesPerDay ||
		r.EndMinute < 0 || r.EndMinute >= MinutesPerDay {
		return ErrInvalidTimeRange
	}
	for _, day := range r.ActiveDays {
		if day < 0 || day > 6 {
			return ErrInvalidActiveDay
		}
	}
	return nil
}

// CreateLimitRequest is the payload for opting a package into a progressive limit.
type CreateLimitRequest struct {
	PackageName       string `json:"package_name"`
	TargetLimitMillis int64  `json:"target_limit_millis"`
}

// Validate performs field validation on a CreateLimitRequest.
func (r *CreateLimitRequest) Validate() error {
	if r.PackageName == "" {
		return ErrEmptyPackageName
	}
	if r.TargetLimitMillis <= 0 {
		return ErrInvalidLimitInput
	}
	return nil
}

// StartFocusRequest is the payload for starting a focus session.
type StartFocusRequest struct {
	DurationMinutes int      `json:"duration_minutes"`
	BlockedPackages []string `json:"blocked_packages,omitempty"`
}

// Validate performs field validation on a StartFocusRequest.
func (r *StartFocusRequest) Validate() error {
	if r.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// CompleteFocusRequest is the payload for completing the open focus session.
type CompleteFocusRequest struct {
	WasSuccessful     bool `json:"was_successful"`
	InterruptionCount int  `json:"interruption_count"`
}

// RecordUsageRequest is the payload for recording one day of app usage.
type RecordUsageRequest struct {
	PackageName string `json:"package_name"`
	Day         string `json:"day"` // YYYY-MM-DD
	UsageMillis int64  `json:"usage_millis"`
}

// Validate performs field validation on a RecordUsageRequest.
func (r *RecordUsageRequest) Validate() error {
	if r.PackageName == "" {
		return ErrEmptyPackageName
	}
	if r.UsageMillis < 0 {
		return ErrInvalidDuration
	}
	return nil
}
