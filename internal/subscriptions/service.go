package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/db"
	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
	"github.com/angelmondragon/nutriflow-backend/pkg/metrics"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

type patientRepository interface {
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Patient, error)
	UpdateSnapshotWithTx(tx *gorm.DB, patient *models.Patient) error
	ListBySubscriptionEnd(ctx context.Context, from, to types.Date, afterID uuid.UUID, limit int) ([]models.Patient, error)
	UpdateDaysRemaining(ctx context.Context, id uuid.UUID, days *int) error
}

type catalogRepository interface {
	FindSubscriptionType(ctx context.Context, id uuid.UUID) (*models.SubscriptionType, error)
	FindPaymentRate(ctx context.Context, id uuid.UUID) (*models.PaymentRate, error)
}

type paymentRepository interface {
	DetachSubscriptionWithTx(tx *gorm.DB, subscriptionID uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the subscription lifecycle surface.
type Service interface {
	GetSubscription(ctx context.Context, patientID uuid.UUID) (*Snapshot, error)
	ListHistory(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionHistoryEntry, error)
	ListPauses(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionPause, error)
	ListExtensions(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionExtension, error)

	StartPlan(ctx context.Context, patientID uuid.UUID, input StartPlanInput) (*PlanResult, error)
	UpdateHistoryEntry(ctx context.Context, entryID uuid.UUID, patch HistoryEntryPatch) (*models.SubscriptionHistoryEntry, error)
	DeleteHistoryEntry(ctx context.Context, entryID uuid.UUID) (*Snapshot, error)

	Pause(ctx context.Context, patientID uuid.UUID, pauseDate *types.Date) (*models.SubscriptionPause, error)
	Resume(ctx context.Context, patientID uuid.UUID, resumeDate *types.Date) (*ResumeResult, error)
	UpdatePause(ctx context.Context, pauseID uuid.UUID, patch PausePatch) (*models.SubscriptionPause, error)
	DeletePause(ctx context.Context, pauseID uuid.UUID) error

	Extend(ctx context.Context, patientID uuid.UUID, days int) (*models.SubscriptionExtension, error)
	EditExtension(ctx context.Context, extensionID uuid.UUID, newDays int) (*models.SubscriptionExtension, error)
	DeleteExtension(ctx context.Context, extensionID uuid.UUID) error

	ListRenewals(ctx context.Context, withinDays int) ([]Renewal, error)
	RefreshSnapshots(ctx context.Context, batchSize int) (RefreshResult, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo              Repository
	PatientRepo       patientRepository
	CatalogRepo       catalogRepository
	PaymentRepo       paymentRepository
	TransactionRunner txRunner
	Logger            *logger.Logger
	Metrics           *metrics.LifecycleMetrics
	Now               func() time.Time
}

type service struct {
	repo        Repository
	patientRepo patientRepository
	catalogRepo catalogRepository
	paymentRepo paymentRepository
	txRunner    txRunner
	logg        *logger.Logger
	metrics     *metrics.LifecycleMetrics
	now         func() time.Time
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repo required")
	}
	if params.PatientRepo == nil {
		return nil, fmt.Errorf("patient repo required")
	}
	if params.CatalogRepo == nil {
		return nil, fmt.Errorf("catalog repo required")
	}
	if params.PaymentRepo == nil {
		return nil, fmt.Errorf("payment repo required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		patientRepo: params.PatientRepo,
		catalogRepo: params.CatalogRepo,
		paymentRepo: params.PaymentRepo,
		txRunner:    params.TransactionRunner,
		logg:        params.Logger,
		metrics:     params.Metrics,
		now:         now,
	}, nil
}

func (s *service) today() types.Date {
	return types.DateOf(s.now())
}

func (s *service) GetSubscription(ctx context.Context, patientID uuid.UUID) (*Snapshot, error) {
	patient, err := s.loadPatient(nil, patientID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, patientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription history")
	}
	snapshot := ProjectSnapshot(*patient, history, s.now())
	return &snapshot, nil
}

func (s *service) ListHistory(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionHistoryEntry, error) {
	if _, err := s.loadPatient(nil, patientID); err != nil {
		return nil, err
	}
	history, err := s.repo.ListHistory(ctx, patientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription history")
	}
	return history, nil
}

func (s *service) ListPauses(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionPause, error) {
	if _, err := s.loadPatient(nil, patientID); err != nil {
		return nil, err
	}
	pauses, err := s.repo.ListPauses(ctx, patientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription pauses")
	}
	return pauses, nil
}

func (s *service) ListExtensions(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionExtension, error) {
	if _, err := s.loadPatient(nil, patientID); err != nil {
		return nil, err
	}
	exts, err := s.repo.ListExtensions(ctx, patientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription extensions")
	}
	return exts, nil
}

// loadPatient reads the patient through tx (nil means outside a transaction).
func (s *service) loadPatient(tx *gorm.DB, id uuid.UUID) (*models.Patient, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "patient id is required")
	}
	patient, err := s.patientRepo.FindByIDWithTx(tx, id)
	if err != nil {
		return nil, db.LookupError(err, "patient")
	}
	return patient, nil
}

func (s *service) saveSnapshot(tx *gorm.DB, patient *models.Patient) error {
	if err := s.patientRepo.UpdateSnapshotWithTx(tx, patient); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update patient snapshot")
	}
	return nil
}

// resync recomputes the snapshot from the patient's remaining history and
// purges extensions when nothing is left to attribute them to. With
// keepOverride a paused or manually overridden status survives together with
// its pause start; only dates, plan and days_remaining move.
func (s *service) resync(ctx context.Context, tx *gorm.DB, repo Repository, patient *models.Patient, keepOverride bool) error {
	remaining, err := repo.ListHistory(ctx, patient.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload subscription history")
	}
	status, pauseStart := patient.SubscriptionStatus, patient.PauseStartDate
	if !RecomputeSnapshot(patient, remaining, s.today()) {
		if _, err := repo.DeleteExtensionsByPatient(ctx, patient.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge subscription extensions")
		}
	} else if keepOverride && status.IsOverride() {
		patient.SubscriptionStatus = status
		patient.PauseStartDate = pauseStart
	}
	return s.saveSnapshot(tx, patient)
}

// shiftCurrentTerm moves the snapshot end and the tracked history entry by
// days. The entry is resolved before the snapshot moves.
func (s *service) shiftCurrentTerm(ctx context.Context, tx *gorm.DB, repo Repository, patient *models.Patient, days int) error {
	history, err := repo.ListHistory(ctx, patient.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription history")
	}
	entry := currentEntry(*patient, history, s.today())

	patient.SubscriptionEnd = ShiftEnd(patient.SubscriptionEnd, days)
	patient.DaysRemaining = DaysRemaining(patient.SubscriptionEnd, s.today())

	if entry != nil && days != 0 {
		if err := repo.UpdateHistoryEndDate(ctx, entry.ID, ShiftEnd(entry.EndDate, days)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update history end date")
		}
	}
	return s.saveSnapshot(tx, patient)
}

func (s *service) observe(ctx context.Context, operation string, patientID uuid.UUID, err error) {
	s.metrics.Observe(operation, err)
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOperation(ctx, operation)
	if patientID != uuid.Nil {
		logCtx = s.logg.WithPatientID(logCtx, patientID.String())
	}
	if err != nil {
		if pkgerrors.Retryable(err) {
			s.logg.Error(logCtx, "subscription operation failed", err)
			return
		}
		s.logg.Warn(logCtx, "subscription operation rejected: "+err.Error())
		return
	}
	s.logg.Info(logCtx, "subscription operation applied")
}
