package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// SubscriptionPause is a pause interval. A zero EndDate marks it open.
type SubscriptionPause struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PatientID uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	StartDate types.Date `gorm:"column:start_date;type:date;not null"`
	EndDate   types.Date `gorm:"column:end_date;type:date"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (SubscriptionPause) TableName() string { return "subscription_pauses" }

func (p *SubscriptionPause) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// IsOpen reports whether the pause is still in effect.
func (p SubscriptionPause) IsOpen() bool {
	return p.EndDate.IsZero()
}
