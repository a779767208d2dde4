// Package restriction implements the time-window blocking rules: a pure
// evaluator for restriction definitions and a store-backed manager that
// answers "is this package blocked right now".
package restriction

import (
	"time"

	"github.com/Fa-d/UsageTracker-Client-sub000/internal/clock"
	"github.com/Fa-d/UsageTracker-Client-sub000/internal/models"
)

// IsActiveAt reports whether the definition's window covers the instant at.
// It is pure: no I/O, no side effects.
//
// Windows with StartMinute == EndMinute cover the whole day. Windows whose
// EndMinute is less than StartMinute wrap past midnight; the post-midnight
// span belongs to the day the window started, so the day-of-week check for
// that span uses the previous calendar day.
func IsActiveAt(def models.RestrictionDefinition, at time.Time) bool {
	if !def.Enabled {
		return false
	}
	minute := clock.MinuteOfDay(at)
	day := int(at.Weekday())

	switch {
	case def.StartMinute == def.EndMinute:
		return def.ActiveOnDay(day)
	case def.StartMinute < def.EndMinute:
		return def.ActiveOnDay(day) && minute >= def.StartMinute && minute < def.EndMinute
	default:
		// Wrap-around window, e.g. 22:00-08:00.
		if minute >= def.StartMinute {
			return def.ActiveOnDay(day)
		}
		if minute < def.EndMinute {
			return def.ActiveOnDay(previousDay(day))
		}
		return false
	}
}

func previousDay(day int) int {
	return (day + 6) % 7
}
