package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/db"
	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
)

func (s *service) Extend(ctx context.Context, patientID uuid.UUID, days int) (ext *models.SubscriptionExtension, err error) {
	defer func() { s.observe(ctx, "extend", patientID, err) }()

	if days == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "days must be non-zero")
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		patient, err := s.loadPatient(tx, patientID)
		if err != nil {
			return err
		}
		if patient.SubscriptionEnd.IsZero() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "patient has no subscription end date to extend")
		}
		previous := patient.SubscriptionEnd
		if err := s.shiftCurrentTerm(ctx, tx, repo, patient, days); err != nil {
			return err
		}

		record := models.SubscriptionExtension{
			PatientID:       patient.ID,
			DaysAdded:       days,
			PreviousEndDate: previous,
			NewEndDate:      patient.SubscriptionEnd,
		}
		if err := repo.CreateExtension(ctx, &record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create extension")
		}
		ext = &record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ext, nil
}

// EditExtension changes the day count of an extension and shifts the current
// term by the difference.
func (s *service) EditExtension(ctx context.Context, extensionID uuid.UUID, newDays int) (ext *models.SubscriptionExtension, err error) {
	var patientID uuid.UUID
	defer func() { s.observe(ctx, "edit_extension", patientID, err) }()

	if newDays == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "days must be non-zero; delete the extension instead")
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindExtension(ctx, extensionID)
		if err != nil {
			return db.LookupError(err, "extension")
		}
		patientID = record.PatientID

		delta := newDays - record.DaysAdded
		if delta != 0 {
			patient, err := s.loadPatient(tx, record.PatientID)
			if err != nil {
				return err
			}
			if patient.SubscriptionEnd.IsZero() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "patient has no subscription end date to adjust")
			}
			if err := s.shiftCurrentTerm(ctx, tx, repo, patient, delta); err != nil {
				return err
			}
		}

		record.DaysAdded = newDays
		record.NewEndDate = ShiftEnd(record.PreviousEndDate, newDays)
		if err := repo.UpdateExtension(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update extension")
		}
		ext = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ext, nil
}

// DeleteExtension reverses an extension in full and removes its record.
func (s *service) DeleteExtension(ctx context.Context, extensionID uuid.UUID) (err error) {
	var patientID uuid.UUID
	defer func() { s.observe(ctx, "delete_extension", patientID, err) }()

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindExtension(ctx, extensionID)
		if err != nil {
			return db.LookupError(err, "extension")
		}
		patientID = record.PatientID

		patient, err := s.loadPatient(tx, record.PatientID)
		if err != nil {
			return err
		}
		if !patient.SubscriptionEnd.IsZero() {
			if err := s.shiftCurrentTerm(ctx, tx, repo, patient, -record.DaysAdded); err != nil {
				return err
			}
		}
		if err := repo.DeleteExtension(ctx, record.ID); err != nil {
			return db.LookupError(err, "extension")
		}
		return nil
	})
}
