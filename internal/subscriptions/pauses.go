package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/db"
	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

const openPauseConstraint = "uq_subscription_pauses_open"

// ResumeResult reports how far a resume pushed the current term.
type ResumeResult struct {
	DaysPaused  int                       `json:"days_paused"`
	PreviousEnd types.Date                `json:"previous_end_date"`
	NewEnd      types.Date                `json:"new_end_date"`
	Pause       *models.SubscriptionPause `json:"pause"`
}

// PausePatch edits a pause interval. ReopenEnd clears the end date.
type PausePatch struct {
	StartDate *types.Date
	EndDate   *types.Date
	ReopenEnd bool
}

func (s *service) Pause(ctx context.Context, patientID uuid.UUID, pauseDate *types.Date) (pause *models.SubscriptionPause, err error) {
	defer func() { s.observe(ctx, "pause", patientID, err) }()

	start := s.today()
	if pauseDate != nil && !pauseDate.IsZero() {
		start = *pauseDate
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		patient, err := s.loadPatient(tx, patientID)
		if err != nil {
			return err
		}
		if patient.SubscriptionStatus == enums.SubscriptionStatusPaused {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "patient is already paused")
		}
		open, err := repo.FindOpenPause(ctx, patient.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open pause")
		}
		if open != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "patient already has an open pause")
		}

		record := models.SubscriptionPause{PatientID: patient.ID, StartDate: start}
		if err := repo.CreatePause(ctx, &record); err != nil {
			if db.IsUniqueViolation(err, openPauseConstraint) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "patient already has an open pause")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pause")
		}

		patient.SubscriptionStatus = enums.SubscriptionStatusPaused
		patient.PauseStartDate = start
		if err := s.saveSnapshot(tx, patient); err != nil {
			return err
		}
		pause = &record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pause, nil
}

// Resume ends the current pause and pushes the current term out by the days
// paused. Without a recorded pause start the resume date itself is used, so
// nothing moves.
func (s *service) Resume(ctx context.Context, patientID uuid.UUID, resumeDate *types.Date) (result *ResumeResult, err error) {
	defer func() { s.observe(ctx, "resume", patientID, err) }()

	resume := s.today()
	if resumeDate != nil && !resumeDate.IsZero() {
		resume = *resumeDate
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		patient, err := s.loadPatient(tx, patientID)
		if err != nil {
			return err
		}
		open, err := repo.FindOpenPause(ctx, patient.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open pause")
		}

		pauseStart := patient.PauseStartDate
		if pauseStart.IsZero() && open != nil {
			pauseStart = open.StartDate
		}
		if pauseStart.IsZero() {
			pauseStart = resume
		}
		days := PausedDays(pauseStart, resume)
		previousEnd := patient.SubscriptionEnd

		patient.SubscriptionStatus = enums.SubscriptionStatusActive
		patient.PauseStartDate = types.Date{}
		if err := s.shiftCurrentTerm(ctx, tx, repo, patient, days); err != nil {
			return err
		}

		if open != nil {
			open.EndDate = resume
			if open.EndDate.Before(open.StartDate) {
				open.EndDate = open.StartDate
			}
			if err := repo.UpdatePause(ctx, open); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close pause")
			}
		}

		result = &ResumeResult{
			DaysPaused:  days,
			PreviousEnd: previousEnd,
			NewEnd:      patient.SubscriptionEnd,
			Pause:       open,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdatePause edits a pause interval in place. The open pause can be moved but
// not closed here, since closing it must push the term out like Resume does.
func (s *service) UpdatePause(ctx context.Context, pauseID uuid.UUID, patch PausePatch) (updated *models.SubscriptionPause, err error) {
	var patientID uuid.UUID
	defer func() { s.observe(ctx, "update_pause", patientID, err) }()

	if patch.StartDate != nil && patch.StartDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_date cannot be empty")
	}
	if patch.ReopenEnd && patch.EndDate != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date and reopen are mutually exclusive")
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pause, err := repo.FindPause(ctx, pauseID)
		if err != nil {
			return db.LookupError(err, "pause")
		}
		patientID = pause.PatientID
		wasOpen := pause.IsOpen()

		if patch.StartDate != nil {
			pause.StartDate = *patch.StartDate
		}
		if patch.EndDate != nil {
			pause.EndDate = *patch.EndDate
		}
		if patch.ReopenEnd {
			pause.EndDate = types.Date{}
		}
		if !pause.IsOpen() && pause.EndDate.Before(pause.StartDate) {
			return pkgerrors.New(pkgerrors.CodeValidation, "end_date cannot be before start_date")
		}
		if wasOpen && !pause.IsOpen() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "the open pause is closed by resuming the subscription")
		}

		if pause.IsOpen() && !wasOpen {
			open, err := repo.FindOpenPause(ctx, pause.PatientID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open pause")
			}
			if open != nil && open.ID != pause.ID {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "patient already has an open pause")
			}
		}
		if err := repo.UpdatePause(ctx, pause); err != nil {
			if db.IsUniqueViolation(err, openPauseConstraint) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "patient already has an open pause")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pause")
		}

		if pause.IsOpen() {
			patient, err := s.loadPatient(tx, pause.PatientID)
			if err != nil {
				return err
			}
			if !patient.PauseStartDate.Equal(pause.StartDate) {
				patient.PauseStartDate = pause.StartDate
				if err := s.saveSnapshot(tx, patient); err != nil {
					return err
				}
			}
		}
		updated = pause
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePause removes a pause record. Deleting the open pause also lifts the
// patient's paused state without moving any end date.
func (s *service) DeletePause(ctx context.Context, pauseID uuid.UUID) (err error) {
	var patientID uuid.UUID
	defer func() { s.observe(ctx, "delete_pause", patientID, err) }()

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pause, err := repo.FindPause(ctx, pauseID)
		if err != nil {
			return db.LookupError(err, "pause")
		}
		patientID = pause.PatientID
		if err := repo.DeletePause(ctx, pause.ID); err != nil {
			return db.LookupError(err, "pause")
		}
		if !pause.IsOpen() {
			return nil
		}

		patient, err := s.loadPatient(tx, pause.PatientID)
		if err != nil {
			return err
		}
		patient.PauseStartDate = types.Date{}
		if patient.SubscriptionStatus == enums.SubscriptionStatusPaused {
			patient.SubscriptionStatus = enums.SubscriptionStatusActive
		}
		return s.saveSnapshot(tx, patient)
	})
}
