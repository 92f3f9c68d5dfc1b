package subscriptions

import (
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// WarningWindowDays is how close to its end a term starts showing as warning.
const WarningWindowDays = 7

// PlanEnd is the end of a plan of the given length in calendar months.
func PlanEnd(start types.Date, months int) types.Date {
	return start.AddMonths(months)
}

// PausedDays returns the whole days between pauseStart and resume, clamped
// at zero so a resume never moves an end date earlier.
func PausedDays(pauseStart, resume types.Date) int {
	if pauseStart.IsZero() || resume.IsZero() {
		return 0
	}
	days := pauseStart.DaysUntil(resume)
	if days < 0 {
		return 0
	}
	return days
}

// ShiftEnd moves an end date by days. Missing dates stay missing.
func ShiftEnd(end types.Date, days int) types.Date {
	return end.AddDays(days)
}

// DaysRemaining counts days from today to end; nil when end is missing.
func DaysRemaining(end, today types.Date) *int {
	if end.IsZero() || today.IsZero() {
		return nil
	}
	days := today.DaysUntil(end)
	return &days
}
