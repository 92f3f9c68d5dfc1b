package subscriptions

import (
	"time"

	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// DeriveStatus classifies a patient into exactly one lifecycle status from
// stored facts only. Manual overrides win, then the snapshot dates decide.
func DeriveStatus(patient models.Patient, history []models.SubscriptionHistoryEntry, now time.Time) enums.LifecycleStatus {
	if patient.SubscriptionStatus.IsOverride() {
		switch patient.SubscriptionStatus {
		case enums.SubscriptionStatusPendingPayment:
			return enums.LifecycleStatusPendingPayment
		case enums.SubscriptionStatusPaused:
			return enums.LifecycleStatusPaused
		default:
			return enums.LifecycleStatusFinished
		}
	}

	today := types.DateOf(now)
	warning := today.AddDays(WarningWindowDays)
	start, end := patient.SubscriptionStart, patient.SubscriptionEnd

	switch {
	case start.IsZero() || end.IsZero():
		return enums.LifecycleStatusWaiting
	case start.After(today):
		if hasActiveEntryOn(history, today) {
			return enums.LifecycleStatusActive
		}
		return enums.LifecycleStatusWaiting
	case end.Before(today):
		return enums.LifecycleStatusExpired
	case !end.After(warning):
		return enums.LifecycleStatusWarning
	default:
		return enums.LifecycleStatusActive
	}
}

func hasActiveEntryOn(history []models.SubscriptionHistoryEntry, day types.Date) bool {
	for _, entry := range history {
		if entry.Status != enums.SubscriptionStatusActive {
			continue
		}
		if entry.StartDate.IsZero() || entry.EndDate.IsZero() {
			continue
		}
		if day.Between(entry.StartDate, entry.EndDate) {
			return true
		}
	}
	return false
}
