package enums

import (
	"fmt"

	"github.com/samber/lo"
)

// LifecycleStatus is the derived, mutually exclusive state of a patient's
// subscription. It is never stored; it is recomputed from stored facts.
type LifecycleStatus string

const (
	LifecycleStatusPendingPayment LifecycleStatus = "pending_payment"
	LifecycleStatusPaused         LifecycleStatus = "paused"
	LifecycleStatusFinished       LifecycleStatus = "finished"
	LifecycleStatusWaiting        LifecycleStatus = "waiting"
	LifecycleStatusActive         LifecycleStatus = "active"
	LifecycleStatusWarning        LifecycleStatus = "warning"
	LifecycleStatusExpired        LifecycleStatus = "expired"
)

var validLifecycleStatuses = []LifecycleStatus{
	LifecycleStatusPendingPayment,
	LifecycleStatusPaused,
	LifecycleStatusFinished,
	LifecycleStatusWaiting,
	LifecycleStatusActive,
	LifecycleStatusWarning,
	LifecycleStatusExpired,
}

// AllLifecycleStatuses returns every lifecycle status in priority order.
func AllLifecycleStatuses() []LifecycleStatus {
	out := make([]LifecycleStatus, len(validLifecycleStatuses))
	copy(out, validLifecycleStatuses)
	return out
}

// String implements fmt.Stringer.
func (s LifecycleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s LifecycleStatus) IsValid() bool {
	return lo.Contains(validLifecycleStatuses, s)
}

// NeedsRenewal reports whether the status should appear on renewal lists.
func (s LifecycleStatus) NeedsRenewal() bool {
	return s == LifecycleStatusWarning || s == LifecycleStatusExpired
}

// ParseLifecycleStatus converts raw input into a LifecycleStatus.
func ParseLifecycleStatus(value string) (LifecycleStatus, error) {
	for _, candidate := range validLifecycleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lifecycle status %q", value)
}
