package enums

import (
	"fmt"

	"github.com/samber/lo"
)

// SubscriptionStatus is the stored status of a history entry or of a
// patient's subscription snapshot.
type SubscriptionStatus string

const (
	SubscriptionStatusActive         SubscriptionStatus = "active"
	SubscriptionStatusPaused         SubscriptionStatus = "paused"
	SubscriptionStatusCancelled      SubscriptionStatus = "cancelled"
	SubscriptionStatusPendingPayment SubscriptionStatus = "pending_payment"
	SubscriptionStatusFinished       SubscriptionStatus = "finished"
	SubscriptionStatusInactive       SubscriptionStatus = "inactive"
	SubscriptionStatusFuture         SubscriptionStatus = "future"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusPaused,
	SubscriptionStatusCancelled,
	SubscriptionStatusPendingPayment,
	SubscriptionStatusFinished,
	SubscriptionStatusInactive,
	SubscriptionStatusFuture,
}

// history entries only ever carry one of these
var historyEntryStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusPaused,
	SubscriptionStatusCancelled,
}

// manual overrides a clinician may set directly on a patient
var overrideStatuses = []SubscriptionStatus{
	SubscriptionStatusPendingPayment,
	SubscriptionStatusPaused,
	SubscriptionStatusFinished,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	return lo.Contains(validSubscriptionStatuses, s)
}

// IsHistoryStatus reports whether the value may be stored on a history entry.
func (s SubscriptionStatus) IsHistoryStatus() bool {
	return lo.Contains(historyEntryStatuses, s)
}

// IsOverride reports whether the status short-circuits lifecycle derivation.
func (s SubscriptionStatus) IsOverride() bool {
	return lo.Contains(overrideStatuses, s)
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}
