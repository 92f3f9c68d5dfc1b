package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/db"
	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

const catalogCacheTTL = 10 * time.Minute

type historyReader interface {
	ListHistory(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionHistoryEntry, error)
	FindHistoryEntry(ctx context.Context, id uuid.UUID) (*models.SubscriptionHistoryEntry, error)
}

type patientLookup interface {
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Patient, error)
}

type catalogCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo        Repository
	History     historyReader
	PatientRepo patientLookup
	Cache       catalogCache
	Logger      *logger.Logger
	Now         func() time.Time
}

// Service orchestrates payments, the plan catalog and billing periods.
type Service struct {
	repo     Repository
	history  historyReader
	patients patientLookup
	cache    catalogCache
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a billing service. The cache is optional.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.History == nil {
		return nil, errors.New("history reader is required")
	}
	if params.PatientRepo == nil {
		return nil, errors.New("patient repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     params.Repo,
		history:  params.History,
		patients: params.PatientRepo,
		cache:    params.Cache,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// CreatePaymentInput is a manually recorded payment.
type CreatePaymentInput struct {
	PatientID      uuid.UUID
	SubscriptionID *uuid.UUID
	Amount         decimal.Decimal
	PaymentDate    types.Date
	Status         enums.PaymentStatus
	PaymentRateID  *uuid.UUID
	Category       *string
	Method         *string
	Notes          *string
}

func (s *Service) CreatePayment(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
	}
	status := input.Status
	if status == "" {
		status = enums.PaymentStatusPaid
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if err := s.ensurePatient(input.PatientID); err != nil {
		return nil, err
	}

	if input.SubscriptionID != nil {
		entry, err := s.history.FindHistoryEntry(ctx, *input.SubscriptionID)
		if err != nil {
			return nil, db.LookupError(err, "subscription term")
		}
		if entry.PatientID != input.PatientID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription_id belongs to another patient")
		}
	}

	date := input.PaymentDate
	if date.IsZero() {
		date = types.DateOf(s.now())
	}
	payment := &models.Payment{
		PatientID:      input.PatientID,
		SubscriptionID: input.SubscriptionID,
		Amount:         input.Amount,
		PaymentDate:    date,
		Status:         status,
		PaymentRateID:  input.PaymentRateID,
		Category:       trimmed(input.Category),
		Method:         trimmed(input.Method),
		Notes:          trimmed(input.Notes),
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return payment, nil
}

func (s *Service) ListPayments(ctx context.Context, patientID uuid.UUID) ([]models.Payment, error) {
	if err := s.ensurePatient(patientID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentsByPatient(ctx, patientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return payments, nil
}

func (s *Service) DeletePayment(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		return db.LookupError(err, "payment")
	}
	return nil
}

// BillingPeriods lists the patient's terms newest first, each flagged paid
// or unpaid.
func (s *Service) BillingPeriods(ctx context.Context, patientID uuid.UUID) ([]Term, error) {
	if err := s.ensurePatient(patientID); err != nil {
		return nil, err
	}
	history, err := s.history.ListHistory(ctx, patientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription history")
	}
	payments, err := s.repo.ListPaymentsByPatient(ctx, patientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return BuildTerms(history, payments, s.now()), nil
}

// CreateSubscriptionTypeInput describes a new plan.
type CreateSubscriptionTypeInput struct {
	Name        string
	Months      int
	Description *string
	Active      *bool
}

func (s *Service) CreateSubscriptionType(ctx context.Context, input CreateSubscriptionTypeInput) (*models.SubscriptionType, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Months <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "months must be positive")
	}
	planType := &models.SubscriptionType{
		Name:        name,
		Months:      input.Months,
		Description: trimmed(input.Description),
		Active:      input.Active == nil || *input.Active,
	}
	if err := s.repo.CreateSubscriptionType(ctx, planType); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "subscription type name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription type")
	}
	s.invalidate(ctx, "subscription_types")
	return planType, nil
}

func (s *Service) ListSubscriptionTypes(ctx context.Context, activeOnly bool) ([]models.SubscriptionType, error) {
	return cached(ctx, s, catalogKey("subscription_types", activeOnly), func() ([]models.SubscriptionType, error) {
		return s.repo.ListSubscriptionTypes(ctx, activeOnly)
	})
}

// CreatePaymentRateInput describes a new price point.
type CreatePaymentRateInput struct {
	Name   string
	Amount decimal.Decimal
	Active *bool
}

func (s *Service) CreatePaymentRate(ctx context.Context, input CreatePaymentRateInput) (*models.PaymentRate, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
	}
	rate := &models.PaymentRate{
		Name:   name,
		Amount: input.Amount,
		Active: input.Active == nil || *input.Active,
	}
	if err := s.repo.CreatePaymentRate(ctx, rate); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment rate name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment rate")
	}
	s.invalidate(ctx, "payment_rates")
	return rate, nil
}

func (s *Service) ListPaymentRates(ctx context.Context, activeOnly bool) ([]models.PaymentRate, error) {
	return cached(ctx, s, catalogKey("payment_rates", activeOnly), func() ([]models.PaymentRate, error) {
		return s.repo.ListPaymentRates(ctx, activeOnly)
	})
}

// cached serves a catalog listing from the cache when possible. Cache errors
// only cost a database round trip.
func cached[T any](ctx context.Context, s *Service, parts []string, load func() ([]T, error)) ([]T, error) {
	var key string
	if s.cache != nil {
		key = s.cache.CacheKey(parts...)
		var out []T
		if found, err := s.cache.GetJSON(ctx, key, &out); err == nil && found {
			return out, nil
		}
	}

	out, err := load()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list catalog")
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, out, catalogCacheTTL); err != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("catalog cache write failed: %v", err))
		}
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, kind string) {
	if s.cache == nil {
		return
	}
	keys := []string{
		s.cache.CacheKey(catalogKey(kind, true)...),
		s.cache.CacheKey(catalogKey(kind, false)...),
	}
	if err := s.cache.Del(ctx, keys...); err != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("catalog cache invalidation failed: %v", err))
	}
}

func catalogKey(kind string, activeOnly bool) []string {
	scope := "all"
	if activeOnly {
		scope = "active"
	}
	return []string{"catalog", kind, scope}
}

func (s *Service) ensurePatient(id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "patient_id is required")
	}
	if _, err := s.patients.FindByIDWithTx(nil, id); err != nil {
		return db.LookupError(err, "patient")
	}
	return nil
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
