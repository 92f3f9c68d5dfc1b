package patients

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/pagination"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// snapshotColumns are the patient columns owned by subscription lifecycle
// operations.
var snapshotColumns = []string{
	"subscription_type",
	"subscription_start",
	"subscription_end",
	"subscription_status",
	"pause_start_date",
	"payment_rate_id",
	"subscription_type_id",
	"days_remaining",
	"nutritionist_id",
	"review_day",
	"updated_at",
}

// Repository exposes patient persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a patients repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx, or the receiver when tx is nil.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts a new patient.
func (r *Repository) Create(ctx context.Context, patient *models.Patient) error {
	return r.db.WithContext(ctx).Create(patient).Error
}

// FindByID loads a patient by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	return r.FindByIDWithTx(r.db.WithContext(ctx), id)
}

// FindByIDWithTx loads a patient through tx; a nil tx uses the base connection.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Patient, error) {
	var patient models.Patient
	if err := r.conn(tx).First(&patient, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

// Update persists every column of the patient.
func (r *Repository) Update(ctx context.Context, patient *models.Patient) error {
	return r.db.WithContext(ctx).Save(patient).Error
}

// UpdateSnapshotWithTx writes only the subscription snapshot columns. Nil and
// zero values are written as NULL rather than skipped.
func (r *Repository) UpdateSnapshotWithTx(tx *gorm.DB, patient *models.Patient) error {
	res := r.conn(tx).
		Model(patient).
		Select(snapshotColumns).
		Updates(patient)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListBySubscriptionEnd pages patients with an end date in [from, to] in id
// order. Zero bounds are open.
func (r *Repository) ListBySubscriptionEnd(ctx context.Context, from, to types.Date, afterID uuid.UUID, limit int) ([]models.Patient, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Patient{}).
		Where("subscription_end IS NOT NULL")
	if !from.IsZero() {
		query = query.Where("subscription_end >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("subscription_end <= ?", to)
	}
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	var patients []models.Patient
	if err := query.Order("id ASC").Limit(limit).Find(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}

// UpdateDaysRemaining overwrites the cached days_remaining column.
func (r *Repository) UpdateDaysRemaining(ctx context.Context, id uuid.UUID, days *int) error {
	return r.db.WithContext(ctx).
		Model(&models.Patient{}).
		Where("id = ?", id).
		UpdateColumn("days_remaining", days).Error
}

type listQuery struct {
	search string
	limit  int
	cursor *pagination.Cursor
}

// List returns patients newest first using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Patient, error) {
	query := r.db.WithContext(ctx).Model(&models.Patient{})
	if term := strings.TrimSpace(opts.search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ?)", like, like, like)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}
	var patients []models.Patient
	if err := query.Order("created_at DESC").Order("id DESC").Limit(opts.limit).Find(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}

// DeleteWithTx removes the patient row.
func (r *Repository) DeleteWithTx(tx *gorm.DB, id uuid.UUID) error {
	res := r.conn(tx).Where("id = ?", id).Delete(&models.Patient{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
