package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// Payment is a manually recorded payment, optionally tied to a billing term.
type Payment struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey"`
	PatientID      uuid.UUID           `gorm:"column:patient_id;type:uuid;not null;index"`
	SubscriptionID *uuid.UUID          `gorm:"column:subscription_id;type:uuid;index"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentDate    types.Date          `gorm:"column:payment_date;type:date;not null"`
	Status         enums.PaymentStatus `gorm:"column:status;not null;default:'paid'"`
	PaymentRateID  *uuid.UUID          `gorm:"column:payment_rate_id;type:uuid"`
	Category       *string             `gorm:"column:category"`
	Method         *string             `gorm:"column:method"`
	Notes          *string             `gorm:"column:notes"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
