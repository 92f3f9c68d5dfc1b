package subscriptions

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

const (
	DefaultRenewalWindowDays = WarningWindowDays
	MaxRenewalWindowDays     = 365
	defaultRefreshBatchSize  = 500
)

// Renewal is a patient whose current term is about to end or already ended.
type Renewal struct {
	PatientID     uuid.UUID             `json:"patient_id"`
	FullName      string                `json:"full_name"`
	PlanName      *string               `json:"plan_name"`
	EndDate       types.Date            `json:"end_date"`
	DaysRemaining *int                  `json:"days_remaining"`
	Status        enums.LifecycleStatus `json:"status"`
}

// RefreshResult summarizes a days-remaining refresh pass.
type RefreshResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// ListRenewals returns patients in warning or expired state whose end date
// falls within withinDays of today on either side, soonest end first.
func (s *service) ListRenewals(ctx context.Context, withinDays int) ([]Renewal, error) {
	if withinDays <= 0 {
		withinDays = DefaultRenewalWindowDays
	}
	if withinDays > MaxRenewalWindowDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("within_days cannot exceed %d", MaxRenewalWindowDays))
	}
	today := s.today()
	from, to := today.AddDays(-withinDays), today.AddDays(withinDays)

	var (
		out     []Renewal
		afterID uuid.UUID
	)
	for {
		batch, err := s.patientRepo.ListBySubscriptionEnd(ctx, from, to, afterID, defaultRefreshBatchSize)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list patients by end date")
		}
		for _, patient := range batch {
			// history only matters for not-yet-started plans, which never need renewal
			status := DeriveStatus(patient, nil, s.now())
			if !status.NeedsRenewal() {
				continue
			}
			out = append(out, Renewal{
				PatientID:     patient.ID,
				FullName:      patient.FullName(),
				PlanName:      patient.SubscriptionType,
				EndDate:       patient.SubscriptionEnd,
				DaysRemaining: DaysRemaining(patient.SubscriptionEnd, today),
				Status:        status,
			})
		}
		if len(batch) < defaultRefreshBatchSize {
			break
		}
		afterID = batch[len(batch)-1].ID
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

// RefreshSnapshots recomputes days_remaining for every patient with an end
// date. Per-patient write failures are collected and do not stop the pass.
func (s *service) RefreshSnapshots(ctx context.Context, batchSize int) (RefreshResult, error) {
	if batchSize <= 0 {
		batchSize = defaultRefreshBatchSize
	}
	today := s.today()

	var (
		result  RefreshResult
		errs    error
		afterID uuid.UUID
	)
	for {
		batch, err := s.patientRepo.ListBySubscriptionEnd(ctx, types.Date{}, types.Date{}, afterID, batchSize)
		if err != nil {
			return result, multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list patients by end date"))
		}
		for _, patient := range batch {
			result.Scanned++
			days := DaysRemaining(patient.SubscriptionEnd, today)
			if sameDays(days, patient.DaysRemaining) {
				continue
			}
			if err := s.patientRepo.UpdateDaysRemaining(ctx, patient.ID, days); err != nil {
				result.Failed++
				errs = multierr.Append(errs, fmt.Errorf("patient %s: %w", patient.ID, err))
				continue
			}
			result.Updated++
		}
		if len(batch) < batchSize {
			break
		}
		afterID = batch[len(batch)-1].ID
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"scanned": result.Scanned,
			"updated": result.Updated,
			"failed":  result.Failed,
		})
		s.logg.Info(logCtx, "subscription snapshots refreshed")
	}
	s.metrics.Observe("refresh_snapshots", errs)
	return result, errs
}

func sameDays(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
