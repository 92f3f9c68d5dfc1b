package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionType is a plan offered by the clinic.
type SubscriptionType struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Months      int       `gorm:"column:months;not null"`
	Description *string   `gorm:"column:description"`
	Active      bool      `gorm:"column:active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SubscriptionType) TableName() string { return "subscription_types" }

func (s *SubscriptionType) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// PaymentRate is a price point a plan can be sold at.
type PaymentRate struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name      string          `gorm:"column:name;not null;uniqueIndex"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Active    bool            `gorm:"column:active;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentRate) TableName() string { return "payment_rates" }

func (r *PaymentRate) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
