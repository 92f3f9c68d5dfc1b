package patients

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/nutriflow-backend/api/responses"
	"github.com/angelmondragon/nutriflow-backend/api/validators"
	patientsvc "github.com/angelmondragon/nutriflow-backend/internal/patients"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
	"github.com/angelmondragon/nutriflow-backend/pkg/pagination"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// Service is the patient surface the controllers need.
type Service interface {
	Create(ctx context.Context, input patientsvc.CreatePatientDTO) (*patientsvc.PatientDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*patientsvc.PatientDTO, error)
	List(ctx context.Context, params patientsvc.ListParams) (*patientsvc.ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input patientsvc.UpdatePatientDTO) (*patientsvc.PatientDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type createPatientRequest struct {
	FirstName      string           `json:"first_name" validate:"required,max=100"`
	LastName       string           `json:"last_name" validate:"max=100"`
	Email          *string          `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *string          `json:"phone,omitempty" validate:"omitempty,max=40"`
	Notes          *string          `json:"notes,omitempty"`
	NutritionistID *uuid.UUID       `json:"nutritionist_id,omitempty"`
	ReviewDay      *enums.ReviewDay `json:"review_day,omitempty"`
}

type updatePatientRequest struct {
	FirstName      *string                   `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName       *string                   `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Email          *string                   `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *string                   `json:"phone,omitempty" validate:"omitempty,max=40"`
	Notes          *string                   `json:"notes,omitempty"`
	NutritionistID types.NullableUUID        `json:"nutritionist_id"`
	ReviewDay      *enums.ReviewDay          `json:"review_day,omitempty"`
	StatusOverride *enums.SubscriptionStatus `json:"status_override,omitempty" validate:"omitempty,oneof=pending_payment finished"`
	ClearOverride  bool                      `json:"clear_override,omitempty"`
}

func Create(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPatientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		patient, err := svc.Create(r.Context(), patientsvc.CreatePatientDTO{
			FirstName:      validators.SanitizeString(payload.FirstName, 100),
			LastName:       validators.SanitizeString(payload.LastName, 100),
			Email:          payload.Email,
			Phone:          validators.SanitizeOptional(payload.Phone, 40),
			Notes:          payload.Notes,
			NutritionistID: payload.NutritionistID,
			ReviewDay:      payload.ReviewDay,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, patient)
	}
}

func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		result, err := svc.List(r.Context(), patientsvc.ListParams{
			Search: validators.SanitizeString(query.Get("q"), 100),
			Params: pagination.Params{Limit: limit, Cursor: query.Get("cursor")},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Get(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patient, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, patient)
	}
}

func Update(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updatePatientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.StatusOverride != nil && payload.ClearOverride {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "status_override and clear_override are mutually exclusive"))
			return
		}

		patient, err := svc.Update(r.Context(), id, patientsvc.UpdatePatientDTO{
			FirstName:      validators.SanitizeOptional(payload.FirstName, 100),
			LastName:       validators.SanitizeOptional(payload.LastName, 100),
			Email:          payload.Email,
			Phone:          validators.SanitizeOptional(payload.Phone, 40),
			Notes:          payload.Notes,
			NutritionistID: payload.NutritionistID,
			ReviewDay:      payload.ReviewDay,
			StatusOverride: payload.StatusOverride,
			ClearOverride:  payload.ClearOverride,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, patient)
	}
}

func Delete(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
