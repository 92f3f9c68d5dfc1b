package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// SubscriptionHistoryEntry records one purchased billing term.
type SubscriptionHistoryEntry struct {
	ID                 uuid.UUID                `gorm:"type:uuid;primaryKey"`
	PatientID          uuid.UUID                `gorm:"column:patient_id;type:uuid;not null;index"`
	PlanName           string                   `gorm:"column:plan_name;not null"`
	SubscriptionTypeID *uuid.UUID               `gorm:"column:subscription_type_id;type:uuid"`
	PaymentRateID      *uuid.UUID               `gorm:"column:payment_rate_id;type:uuid"`
	StartDate          types.Date               `gorm:"column:start_date;type:date"`
	EndDate            types.Date               `gorm:"column:end_date;type:date"`
	Price              decimal.Decimal          `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	Status             enums.SubscriptionStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (SubscriptionHistoryEntry) TableName() string { return "patient_subscriptions" }

func (e *SubscriptionHistoryEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
