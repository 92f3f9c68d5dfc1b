package subscriptions

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// Snapshot is the nested view of a patient's current subscription. It is a
// projection of the stored patient row and never persisted on its own.
type Snapshot struct {
	PatientID          uuid.UUID                `json:"patient_id"`
	Type               *string                  `json:"type"`
	StartDate          types.Date               `json:"start_date"`
	EndDate            types.Date               `json:"end_date"`
	StoredStatus       enums.SubscriptionStatus `json:"stored_status"`
	Status             enums.LifecycleStatus    `json:"status"`
	PauseStartDate     types.Date               `json:"pause_start_date"`
	PaymentRateID      *uuid.UUID               `json:"payment_rate_id"`
	SubscriptionTypeID *uuid.UUID               `json:"subscription_type_id"`
	DaysRemaining      *int                     `json:"days_remaining"`
}

// ProjectSnapshot maps the flat patient columns into the Snapshot view and
// attaches the derived lifecycle status.
func ProjectSnapshot(patient models.Patient, history []models.SubscriptionHistoryEntry, now time.Time) Snapshot {
	return Snapshot{
		PatientID:          patient.ID,
		Type:               patient.SubscriptionType,
		StartDate:          patient.SubscriptionStart,
		EndDate:            patient.SubscriptionEnd,
		StoredStatus:       patient.SubscriptionStatus,
		Status:             DeriveStatus(patient, history, now),
		PauseStartDate:     patient.PauseStartDate,
		PaymentRateID:      patient.PaymentRateID,
		SubscriptionTypeID: patient.SubscriptionTypeID,
		DaysRemaining:      patient.DaysRemaining,
	}
}

// RecomputeSnapshot rewrites the snapshot columns of patient from the given
// history. With no usable entry the snapshot is reset to inactive. It reports
// whether any entry was left to project from.
func RecomputeSnapshot(patient *models.Patient, history []models.SubscriptionHistoryEntry, today types.Date) bool {
	latest := latestByEnd(history)
	if latest == nil {
		resetSnapshot(patient)
		return false
	}

	status := latest.Status
	switch {
	case latest.EndDate.Before(today):
		status = enums.SubscriptionStatusInactive
	case latest.StartDate.After(today):
		status = enums.SubscriptionStatusFuture
	}

	plan := latest.PlanName
	patient.SubscriptionType = &plan
	patient.SubscriptionStart = latest.StartDate
	patient.SubscriptionEnd = latest.EndDate
	patient.SubscriptionStatus = status
	patient.PaymentRateID = latest.PaymentRateID
	patient.SubscriptionTypeID = latest.SubscriptionTypeID
	patient.DaysRemaining = DaysRemaining(latest.EndDate, today)
	if status != enums.SubscriptionStatusPaused {
		patient.PauseStartDate = types.Date{}
	}
	return true
}

func resetSnapshot(patient *models.Patient) {
	patient.SubscriptionType = nil
	patient.SubscriptionStart = types.Date{}
	patient.SubscriptionEnd = types.Date{}
	patient.SubscriptionStatus = enums.SubscriptionStatusInactive
	patient.PauseStartDate = types.Date{}
	patient.PaymentRateID = nil
	patient.SubscriptionTypeID = nil
	patient.DaysRemaining = nil
}

// latestByEnd picks the entry with the latest end date; ties go to the later
// start. Entries without an end date are ignored.
func latestByEnd(history []models.SubscriptionHistoryEntry) *models.SubscriptionHistoryEntry {
	var latest *models.SubscriptionHistoryEntry
	for i := range history {
		entry := &history[i]
		if entry.EndDate.IsZero() {
			continue
		}
		if latest == nil ||
			entry.EndDate.After(latest.EndDate) ||
			(entry.EndDate.Equal(latest.EndDate) && entry.StartDate.After(latest.StartDate)) {
			latest = entry
		}
	}
	return latest
}

// currentEntry resolves the history entry the snapshot is tracking: the one
// whose end date matches the snapshot end, else an active entry covering today.
// Cancelled entries are never current.
func currentEntry(patient models.Patient, history []models.SubscriptionHistoryEntry, today types.Date) *models.SubscriptionHistoryEntry {
	candidates := make([]*models.SubscriptionHistoryEntry, 0, len(history))
	for i := range history {
		if history[i].Status == enums.SubscriptionStatusCancelled {
			continue
		}
		candidates = append(candidates, &history[i])
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if (a.Status == enums.SubscriptionStatusActive) != (b.Status == enums.SubscriptionStatusActive) {
			return a.Status == enums.SubscriptionStatusActive
		}
		return a.StartDate.After(b.StartDate)
	})

	if !patient.SubscriptionEnd.IsZero() {
		for _, entry := range candidates {
			if entry.EndDate.Equal(patient.SubscriptionEnd) {
				return entry
			}
		}
	}
	for _, entry := range candidates {
		if entry.Status != enums.SubscriptionStatusActive || entry.StartDate.IsZero() || entry.EndDate.IsZero() {
			continue
		}
		if today.Between(entry.StartDate, entry.EndDate) {
			return entry
		}
	}
	return nil
}
