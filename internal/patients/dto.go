package patients

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/nutriflow-backend/internal/subscriptions"
	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	"github.com/angelmondragon/nutriflow-backend/pkg/pagination"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// PatientDTO exposes a patient with the nested subscription view.
type PatientDTO struct {
	ID             uuid.UUID              `json:"id"`
	FirstName      string                 `json:"first_name"`
	LastName       string                 `json:"last_name"`
	FullName       string                 `json:"full_name"`
	Email          *string                `json:"email,omitempty"`
	Phone          *string                `json:"phone,omitempty"`
	Notes          *string                `json:"notes,omitempty"`
	NutritionistID *uuid.UUID             `json:"nutritionist_id,omitempty"`
	ReviewDay      *enums.ReviewDay       `json:"review_day,omitempty"`
	Subscription   subscriptions.Snapshot `json:"subscription"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// CreatePatientDTO holds intake data for a new patient.
type CreatePatientDTO struct {
	FirstName      string
	LastName       string
	Email          *string
	Phone          *string
	Notes          *string
	NutritionistID *uuid.UUID
	ReviewDay      *enums.ReviewDay
}

// UpdatePatientDTO lists the editable patient fields. StatusOverride sets a
// manual pending_payment or finished status; ClearOverride removes it. An
// explicit null NutritionistID unassigns the nutritionist.
type UpdatePatientDTO struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          *string
	Notes          *string
	NutritionistID types.NullableUUID
	ReviewDay      *enums.ReviewDay
	StatusOverride *enums.SubscriptionStatus
	ClearOverride  bool
}

// ListParams filters the patient list.
type ListParams struct {
	Search string
	pagination.Params
}

// ListResult is one page of patients.
type ListResult struct {
	Items  []PatientDTO `json:"items"`
	Cursor string       `json:"cursor"`
}

// FromModel maps the persisted patient and its snapshot into a DTO.
func FromModel(m *models.Patient, snapshot subscriptions.Snapshot) *PatientDTO {
	if m == nil {
		return nil
	}
	return &PatientDTO{
		ID:             m.ID,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		FullName:       m.FullName(),
		Email:          m.Email,
		Phone:          m.Phone,
		Notes:          m.Notes,
		NutritionistID: m.NutritionistID,
		ReviewDay:      m.ReviewDay,
		Subscription:   snapshot,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
