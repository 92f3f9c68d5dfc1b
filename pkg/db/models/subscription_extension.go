package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// SubscriptionExtension is the audit record of a manual day-count adjustment.
type SubscriptionExtension struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PatientID       uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index"`
	DaysAdded       int        `gorm:"column:days_added;not null"`
	PreviousEndDate types.Date `gorm:"column:previous_end_date;type:date"`
	NewEndDate      types.Date `gorm:"column:new_end_date;type:date"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (SubscriptionExtension) TableName() string { return "subscription_extensions" }

func (e *SubscriptionExtension) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
