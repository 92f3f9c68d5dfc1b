package patients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/internal/subscriptions"
	"github.com/angelmondragon/nutriflow-backend/pkg/db"
	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
	"github.com/angelmondragon/nutriflow-backend/pkg/pagination"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

type patientStore interface {
	Create(ctx context.Context, patient *models.Patient) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Patient, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Patient, error)
	Update(ctx context.Context, patient *models.Patient) error
	List(ctx context.Context, opts listQuery) ([]models.Patient, error)
	DeleteWithTx(tx *gorm.DB, id uuid.UUID) error
}

type paymentCleaner interface {
	DeleteByPatientWithTx(tx *gorm.DB, patientID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the patients service.
type ServiceParams struct {
	Repo              patientStore
	Lifecycle         subscriptions.Repository
	Payments          paymentCleaner
	TransactionRunner txRunner
	Logger            *logger.Logger
	Now               func() time.Time
}

// Service manages patient records.
type Service struct {
	repo      patientStore
	lifecycle subscriptions.Repository
	payments  paymentCleaner
	tx        txRunner
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds a patients service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("patient repo is required")
	}
	if params.Lifecycle == nil {
		return nil, errors.New("subscriptions repo is required")
	}
	if params.Payments == nil {
		return nil, errors.New("payments repo is required")
	}
	if params.TransactionRunner == nil {
		return nil, errors.New("transaction runner is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      params.Repo,
		lifecycle: params.Lifecycle,
		payments:  params.Payments,
		tx:        params.TransactionRunner,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *Service) Create(ctx context.Context, input CreatePatientDTO) (*PatientDTO, error) {
	patient := &models.Patient{
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Email:          trimmed(input.Email),
		Phone:          trimmed(input.Phone),
		Notes:          trimmed(input.Notes),
		NutritionistID: input.NutritionistID,
		ReviewDay:      input.ReviewDay,
	}
	if err := validatePatient(patient); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create patient")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithPatientID(ctx, patient.ID.String()), "patient created")
	}
	return FromModel(patient, subscriptions.ProjectSnapshot(*patient, nil, s.now())), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PatientDTO, error) {
	patient, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, patient)
}

func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listQuery{
		search: params.Search,
		limit:  pagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list patients")
	}
	page, next := pagination.Trim(rows, params.Limit, func(p models.Patient) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	items := make([]PatientDTO, 0, len(page))
	for i := range page {
		dto, err := s.present(ctx, &page[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *dto)
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdatePatientDTO) (*PatientDTO, error) {
	if input.StatusOverride != nil && input.ClearOverride {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status override and clear are mutually exclusive")
	}
	if input.StatusOverride != nil && !isManualOverride(*input.StatusOverride) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status override must be pending_payment or finished")
	}

	patient, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.FirstName != nil {
		patient.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		patient.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		patient.Email = trimmed(input.Email)
	}
	if input.Phone != nil {
		patient.Phone = trimmed(input.Phone)
	}
	if input.Notes != nil {
		patient.Notes = trimmed(input.Notes)
	}
	input.NutritionistID.Apply(&patient.NutritionistID)
	if input.ReviewDay != nil {
		patient.ReviewDay = input.ReviewDay
	}
	if err := validatePatient(patient); err != nil {
		return nil, err
	}

	switch {
	case input.StatusOverride != nil:
		if patient.SubscriptionStatus == enums.SubscriptionStatusPaused {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "resume the patient before overriding the status")
		}
		patient.SubscriptionStatus = *input.StatusOverride
	case input.ClearOverride && isManualOverride(patient.SubscriptionStatus):
		history, err := s.lifecycle.ListHistory(ctx, patient.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription history")
		}
		subscriptions.RecomputeSnapshot(patient, history, s.today())
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update patient")
	}
	return s.present(ctx, patient)
}

// Delete removes the patient together with its lifecycle records and
// payments in one transaction.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "patient id is required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.FindByIDWithTx(tx, id); err != nil {
			return db.LookupError(err, "patient")
		}
		if err := s.payments.DeleteByPatientWithTx(tx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payments")
		}
		if err := s.lifecycle.WithTx(tx).DeleteAllForPatient(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete subscription records")
		}
		if err := s.repo.DeleteWithTx(tx, id); err != nil {
			return db.LookupError(err, "patient")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithPatientID(ctx, id.String()), "patient deleted")
	}
	return nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "patient id is required")
	}
	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.LookupError(err, "patient")
	}
	return patient, nil
}

func (s *Service) present(ctx context.Context, patient *models.Patient) (*PatientDTO, error) {
	var history []models.SubscriptionHistoryEntry
	// history is only consulted for plans that have not started yet
	if !patient.SubscriptionStart.IsZero() && patient.SubscriptionStart.After(s.today()) {
		var err error
		history, err = s.lifecycle.ListHistory(ctx, patient.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription history")
		}
	}
	return FromModel(patient, subscriptions.ProjectSnapshot(*patient, history, s.now())), nil
}

func (s *Service) today() types.Date {
	return types.DateOf(s.now())
}

func validatePatient(p *models.Patient) error {
	if p.FirstName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "first_name is required")
	}
	if p.ReviewDay != nil && !p.ReviewDay.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid review_day")
	}
	return nil
}

func isManualOverride(status enums.SubscriptionStatus) bool {
	return status == enums.SubscriptionStatusPendingPayment || status == enums.SubscriptionStatusFinished
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
