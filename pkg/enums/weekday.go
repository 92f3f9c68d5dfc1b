package enums

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ReviewDay is the weekday a patient's follow-up review is scheduled on.
type ReviewDay string

const (
	ReviewDayMonday    ReviewDay = "monday"
	ReviewDayTuesday   ReviewDay = "tuesday"
	ReviewDayWednesday ReviewDay = "wednesday"
	ReviewDayThursday  ReviewDay = "thursday"
	ReviewDayFriday    ReviewDay = "friday"
	ReviewDaySaturday  ReviewDay = "saturday"
	ReviewDaySunday    ReviewDay = "sunday"
)

var validReviewDays = []ReviewDay{
	ReviewDayMonday,
	ReviewDayTuesday,
	ReviewDayWednesday,
	ReviewDayThursday,
	ReviewDayFriday,
	ReviewDaySaturday,
	ReviewDaySunday,
}

// String implements fmt.Stringer.
func (d ReviewDay) String() string {
	return string(d)
}

// IsValid reports whether the value is known.
func (d ReviewDay) IsValid() bool {
	return lo.Contains(validReviewDays, d)
}

// ParseReviewDay converts raw input (case-insensitive) into a ReviewDay.
func ParseReviewDay(value string) (ReviewDay, error) {
	normalized := ReviewDay(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid review day %q", value)
}
