package subscriptions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// Repository persists history entries, pauses and extensions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListHistory(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionHistoryEntry, error)
	FindHistoryEntry(ctx context.Context, id uuid.UUID) (*models.SubscriptionHistoryEntry, error)
	CreateHistoryEntry(ctx context.Context, entry *models.SubscriptionHistoryEntry) error
	UpdateHistoryEntry(ctx context.Context, entry *models.SubscriptionHistoryEntry) error
	UpdateHistoryEndDate(ctx context.Context, id uuid.UUID, end types.Date) error
	DeleteHistoryEntry(ctx context.Context, id uuid.UUID) error

	ListPauses(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionPause, error)
	FindPause(ctx context.Context, id uuid.UUID) (*models.SubscriptionPause, error)
	FindOpenPause(ctx context.Context, patientID uuid.UUID) (*models.SubscriptionPause, error)
	CreatePause(ctx context.Context, pause *models.SubscriptionPause) error
	UpdatePause(ctx context.Context, pause *models.SubscriptionPause) error
	DeletePause(ctx context.Context, id uuid.UUID) error

	ListExtensions(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionExtension, error)
	FindExtension(ctx context.Context, id uuid.UUID) (*models.SubscriptionExtension, error)
	CreateExtension(ctx context.Context, ext *models.SubscriptionExtension) error
	UpdateExtension(ctx context.Context, ext *models.SubscriptionExtension) error
	DeleteExtension(ctx context.Context, id uuid.UUID) error
	DeleteExtensionsByPatient(ctx context.Context, patientID uuid.UUID) (int64, error)

	DeleteAllForPatient(ctx context.Context, patientID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscriptions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListHistory(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionHistoryEntry, error) {
	var entries []models.SubscriptionHistoryEntry
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("start_date DESC").
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindHistoryEntry(ctx context.Context, id uuid.UUID) (*models.SubscriptionHistoryEntry, error) {
	var entry models.SubscriptionHistoryEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) CreateHistoryEntry(ctx context.Context, entry *models.SubscriptionHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) UpdateHistoryEntry(ctx context.Context, entry *models.SubscriptionHistoryEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *repository) UpdateHistoryEndDate(ctx context.Context, id uuid.UUID, end types.Date) error {
	res := r.db.WithContext(ctx).
		Model(&models.SubscriptionHistoryEntry{}).
		Where("id = ?", id).
		Update("end_date", end)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteHistoryEntry(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SubscriptionHistoryEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListPauses(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionPause, error) {
	var pauses []models.SubscriptionPause
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("start_date DESC").
		Find(&pauses).Error; err != nil {
		return nil, err
	}
	return pauses, nil
}

func (r *repository) FindPause(ctx context.Context, id uuid.UUID) (*models.SubscriptionPause, error) {
	var pause models.SubscriptionPause
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pause).Error; err != nil {
		return nil, err
	}
	return &pause, nil
}

// FindOpenPause returns the patient's open pause, or nil when there is none.
func (r *repository) FindOpenPause(ctx context.Context, patientID uuid.UUID) (*models.SubscriptionPause, error) {
	var pause models.SubscriptionPause
	if err := r.db.WithContext(ctx).
		Where("patient_id = ? AND end_date IS NULL", patientID).
		Order("start_date DESC").
		First(&pause).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pause, nil
}

func (r *repository) CreatePause(ctx context.Context, pause *models.SubscriptionPause) error {
	return r.db.WithContext(ctx).Create(pause).Error
}

func (r *repository) UpdatePause(ctx context.Context, pause *models.SubscriptionPause) error {
	return r.db.WithContext(ctx).Save(pause).Error
}

func (r *repository) DeletePause(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SubscriptionPause{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListExtensions(ctx context.Context, patientID uuid.UUID) ([]models.SubscriptionExtension, error) {
	var exts []models.SubscriptionExtension
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&exts).Error; err != nil {
		return nil, err
	}
	return exts, nil
}

func (r *repository) FindExtension(ctx context.Context, id uuid.UUID) (*models.SubscriptionExtension, error) {
	var ext models.SubscriptionExtension
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ext).Error; err != nil {
		return nil, err
	}
	return &ext, nil
}

func (r *repository) CreateExtension(ctx context.Context, ext *models.SubscriptionExtension) error {
	return r.db.WithContext(ctx).Create(ext).Error
}

func (r *repository) UpdateExtension(ctx context.Context, ext *models.SubscriptionExtension) error {
	return r.db.WithContext(ctx).Save(ext).Error
}

func (r *repository) DeleteExtension(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SubscriptionExtension{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteExtensionsByPatient(ctx context.Context, patientID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Delete(&models.SubscriptionExtension{})
	return res.RowsAffected, res.Error
}

// DeleteAllForPatient removes every lifecycle record of a patient. Payments
// are owned by billing and removed there.
func (r *repository) DeleteAllForPatient(ctx context.Context, patientID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	for _, model := range []any{
		&models.SubscriptionExtension{},
		&models.SubscriptionPause{},
		&models.SubscriptionHistoryEntry{},
	} {
		if err := db.Where("patient_id = ?", patientID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
