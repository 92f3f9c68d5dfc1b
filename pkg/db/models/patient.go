package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// Patient is a person under care along with the cached snapshot of their
// current subscription.
type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName string    `gorm:"column:first_name;not null"`
	LastName  string    `gorm:"column:last_name;not null"`
	Email     *string   `gorm:"column:email"`
	Phone     *string   `gorm:"column:phone"`
	Notes     *string   `gorm:"column:notes"`

	SubscriptionType   *string                  `gorm:"column:subscription_type"`
	SubscriptionStart  types.Date               `gorm:"column:subscription_start;type:date"`
	SubscriptionEnd    types.Date               `gorm:"column:subscription_end;type:date"`
	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:''"`
	PauseStartDate     types.Date               `gorm:"column:pause_start_date;type:date"`
	PaymentRateID      *uuid.UUID               `gorm:"column:payment_rate_id;type:uuid"`
	SubscriptionTypeID *uuid.UUID               `gorm:"column:subscription_type_id;type:uuid"`
	DaysRemaining      *int                     `gorm:"column:days_remaining"`

	NutritionistID *uuid.UUID       `gorm:"column:nutritionist_id;type:uuid"`
	ReviewDay      *enums.ReviewDay `gorm:"column:review_day"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Patient) TableName() string { return "patients" }

func (p *Patient) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// FullName joins the name parts for display and logs.
func (p Patient) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
