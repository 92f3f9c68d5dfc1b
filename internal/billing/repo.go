package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
)

// Repository handles payment and catalog persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPaymentsByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	DetachSubscriptionWithTx(tx *gorm.DB, subscriptionID uuid.UUID) (int64, error)
	DeleteByPatientWithTx(tx *gorm.DB, patientID uuid.UUID) error

	CreateSubscriptionType(ctx context.Context, planType *models.SubscriptionType) error
	ListSubscriptionTypes(ctx context.Context, activeOnly bool) ([]models.SubscriptionType, error)
	FindSubscriptionType(ctx context.Context, id uuid.UUID) (*models.SubscriptionType, error)
	CreatePaymentRate(ctx context.Context, rate *models.PaymentRate) error
	ListPaymentRates(ctx context.Context, activeOnly bool) ([]models.PaymentRate, error)
	FindPaymentRate(ctx context.Context, id uuid.UUID) (*models.PaymentRate, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListPaymentsByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("payment_date DESC").
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) DeletePayment(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Payment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DetachSubscriptionWithTx clears subscription_id on payments that point at
// the given history entry.
func (r *repository) DetachSubscriptionWithTx(tx *gorm.DB, subscriptionID uuid.UUID) (int64, error) {
	res := r.conn(tx).
		Model(&models.Payment{}).
		Where("subscription_id = ?", subscriptionID).
		Update("subscription_id", nil)
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByPatientWithTx(tx *gorm.DB, patientID uuid.UUID) error {
	return r.conn(tx).Where("patient_id = ?", patientID).Delete(&models.Payment{}).Error
}

func (r *repository) CreateSubscriptionType(ctx context.Context, planType *models.SubscriptionType) error {
	return r.db.WithContext(ctx).Create(planType).Error
}

func (r *repository) ListSubscriptionTypes(ctx context.Context, activeOnly bool) ([]models.SubscriptionType, error) {
	query := r.db.WithContext(ctx).Model(&models.SubscriptionType{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var out []models.SubscriptionType
	if err := query.Order("months ASC").Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) FindSubscriptionType(ctx context.Context, id uuid.UUID) (*models.SubscriptionType, error) {
	var planType models.SubscriptionType
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&planType).Error; err != nil {
		return nil, err
	}
	return &planType, nil
}

func (r *repository) CreatePaymentRate(ctx context.Context, rate *models.PaymentRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *repository) ListPaymentRates(ctx context.Context, activeOnly bool) ([]models.PaymentRate, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentRate{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var out []models.PaymentRate
	if err := query.Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) FindPaymentRate(ctx context.Context, id uuid.UUID) (*models.PaymentRate, error) {
	var rate models.PaymentRate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}
