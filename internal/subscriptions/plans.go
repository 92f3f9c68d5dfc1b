package subscriptions

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/db"
	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// StartPlanInput captures the data required to start or renew a plan.
type StartPlanInput struct {
	SubscriptionTypeID uuid.UUID
	PaymentRateID      uuid.UUID
	StartDate          types.Date
	NutritionistID     *uuid.UUID
	ReviewDay          *enums.ReviewDay
}

// PlanResult is the new term together with the refreshed snapshot.
type PlanResult struct {
	Entry    models.SubscriptionHistoryEntry `json:"entry"`
	Snapshot Snapshot                        `json:"subscription"`
}

// HistoryEntryPatch lists the editable fields of a history entry.
type HistoryEntryPatch struct {
	PlanName  *string
	StartDate *types.Date
	EndDate   *types.Date
	Price     *decimal.Decimal
	Status    *enums.SubscriptionStatus
}

func (s *service) StartPlan(ctx context.Context, patientID uuid.UUID, input StartPlanInput) (result *PlanResult, err error) {
	defer func() { s.observe(ctx, "start_plan", patientID, err) }()

	if input.SubscriptionTypeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription_type_id is required")
	}
	if input.PaymentRateID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_rate_id is required")
	}
	if input.ReviewDay != nil && !input.ReviewDay.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid review_day")
	}

	planType, err := s.catalogRepo.FindSubscriptionType(ctx, input.SubscriptionTypeID)
	if err != nil {
		return nil, db.LookupError(err, "subscription type")
	}
	if !planType.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription type is inactive")
	}
	if planType.Months <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription type has no duration")
	}
	rate, err := s.catalogRepo.FindPaymentRate(ctx, input.PaymentRateID)
	if err != nil {
		return nil, db.LookupError(err, "payment rate")
	}
	if !rate.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment rate is inactive")
	}

	start := input.StartDate
	if start.IsZero() {
		start = s.today()
	}
	end := PlanEnd(start, planType.Months)

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		patient, err := s.loadPatient(tx, patientID)
		if err != nil {
			return err
		}
		if patient.SubscriptionStatus == enums.SubscriptionStatusPaused {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "patient is paused; resume before starting a plan")
		}
		if err := s.closeOverlappingTerms(ctx, repo, patient.ID, start, end); err != nil {
			return err
		}

		typeID, rateID := planType.ID, rate.ID
		entry := models.SubscriptionHistoryEntry{
			PatientID:          patient.ID,
			PlanName:           planType.Name,
			SubscriptionTypeID: &typeID,
			PaymentRateID:      &rateID,
			StartDate:          start,
			EndDate:            end,
			Price:              rate.Amount,
			Status:             enums.SubscriptionStatusActive,
		}
		if err := repo.CreateHistoryEntry(ctx, &entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create history entry")
		}

		planName := planType.Name
		patient.SubscriptionType = &planName
		patient.SubscriptionStart = start
		patient.SubscriptionEnd = end
		patient.SubscriptionStatus = enums.SubscriptionStatusActive
		patient.PauseStartDate = types.Date{}
		patient.PaymentRateID = &rateID
		patient.SubscriptionTypeID = &typeID
		patient.DaysRemaining = DaysRemaining(end, s.today())
		if input.NutritionistID != nil {
			patient.NutritionistID = input.NutritionistID
		}
		if input.ReviewDay != nil {
			patient.ReviewDay = input.ReviewDay
		}
		if err := s.saveSnapshot(tx, patient); err != nil {
			return err
		}

		history, err := repo.ListHistory(ctx, patient.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription history")
		}
		result = &PlanResult{
			Entry:    entry,
			Snapshot: ProjectSnapshot(*patient, history, s.now()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// closeOverlappingTerms makes room for a term running start..end. A term that
// is still running on start ends the day before; a term that begins inside
// the new window is a conflict. Cancelled terms never block.
func (s *service) closeOverlappingTerms(ctx context.Context, repo Repository, patientID uuid.UUID, start, end types.Date) error {
	history, err := repo.ListHistory(ctx, patientID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription history")
	}
	for _, entry := range history {
		if entry.Status == enums.SubscriptionStatusCancelled || entry.StartDate.IsZero() || entry.EndDate.IsZero() {
			continue
		}
		switch {
		case entry.StartDate.Between(start, end):
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "plan overlaps the term starting %s", entry.StartDate)
		case start.Between(entry.StartDate, entry.EndDate):
			if err := repo.UpdateHistoryEndDate(ctx, entry.ID, start.AddDays(-1)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close overlapping term")
			}
		}
	}
	return nil
}

func (s *service) UpdateHistoryEntry(ctx context.Context, entryID uuid.UUID, patch HistoryEntryPatch) (updated *models.SubscriptionHistoryEntry, err error) {
	var patientID uuid.UUID
	defer func() { s.observe(ctx, "update_history_entry", patientID, err) }()

	if patch.Status != nil && !patch.Status.IsHistoryStatus() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be one of active, cancelled, paused")
	}
	if patch.PlanName != nil && strings.TrimSpace(*patch.PlanName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan_name cannot be empty")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.FindHistoryEntry(ctx, entryID)
		if err != nil {
			return db.LookupError(err, "history entry")
		}
		patientID = entry.PatientID

		if patch.PlanName != nil {
			entry.PlanName = strings.TrimSpace(*patch.PlanName)
		}
		if patch.StartDate != nil {
			entry.StartDate = *patch.StartDate
		}
		if patch.EndDate != nil {
			entry.EndDate = *patch.EndDate
		}
		if patch.Price != nil {
			entry.Price = *patch.Price
		}
		if patch.Status != nil {
			entry.Status = *patch.Status
		}
		if !entry.StartDate.IsZero() && !entry.EndDate.IsZero() && entry.EndDate.Before(entry.StartDate) {
			return pkgerrors.New(pkgerrors.CodeValidation, "end_date cannot be before start_date")
		}
		if err := repo.UpdateHistoryEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update history entry")
		}

		patient, err := s.loadPatient(tx, entry.PatientID)
		if err != nil {
			return err
		}
		if err := s.resync(ctx, tx, repo, patient, true); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteHistoryEntry removes a term and rebuilds the snapshot from what is
// left. Payments that referenced the term are detached, not deleted.
func (s *service) DeleteHistoryEntry(ctx context.Context, entryID uuid.UUID) (snapshot *Snapshot, err error) {
	var patientID uuid.UUID
	defer func() { s.observe(ctx, "delete_history_entry", patientID, err) }()

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.FindHistoryEntry(ctx, entryID)
		if err != nil {
			return db.LookupError(err, "history entry")
		}
		patientID = entry.PatientID

		patient, err := s.loadPatient(tx, entry.PatientID)
		if err != nil {
			return err
		}
		if _, err := s.paymentRepo.DetachSubscriptionWithTx(tx, entry.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach payments")
		}
		if err := repo.DeleteHistoryEntry(ctx, entry.ID); err != nil {
			return db.LookupError(err, "history entry")
		}
		if err := s.resync(ctx, tx, repo, patient, false); err != nil {
			return err
		}

		remaining, err := repo.ListHistory(ctx, patient.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription history")
		}
		view := ProjectSnapshot(*patient, remaining, s.now())
		snapshot = &view
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
