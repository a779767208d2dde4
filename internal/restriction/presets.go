package restriction

import (
	"time"

	"github.com/google/uuid"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
)

// Preset window bounds in minutes of day.
const (
	bedtimeStartMinute   = 22 * 60 // 22:00
	bedtimeEndMinute     = 8 * 60  // 08:00, wraps past midnight
	workHoursStartMinute = 9 * 60  // 09:00
	workHoursEndMinute   = 17 * 60 // 17:00
)

// Presets returns the built-in restriction definitions, timestamped at now.
// Both block all packages, exempt emergency apps, and start disabled.
func Presets(now time.Time) []models.RestrictionDefinition {
	allDays := []int{0, 1, 2, 3, 4, 5, 6}
	weekdays := []int{1, 2, 3, 4, 5}
	return []models.RestrictionDefinition{
		{
			ID:                 uuid.NewString(),
			Name:               "Bedtime",
			Description:        "Wind down overnight",
			Type:               models.RestrictionTypeBedtime,
			StartMinute:        bedtimeStartMinute,
			EndMinute:          bedtimeEndMinute,
			ActiveDays:         allDays,
			AllowEmergencyApps: true,
			Enabled:            false,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		{
			ID:                 uuid.NewString(),
			Name:               "Work hours",
			Description:        "Stay on task during the working day",
			Type:               models.RestrictionTypeWorkHours,
			StartMinute:        workHoursStartMinute,
			EndMinute:          workHoursEndMinute,
			ActiveDays:         weekdays,
			AllowEmergencyApps: true,
			Enabled:            false,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
	}
}
