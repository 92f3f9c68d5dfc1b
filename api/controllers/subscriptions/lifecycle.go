package subscriptions

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/nutriflow-backend/api/responses"
	"github.com/angelmondragon/nutriflow-backend/api/validators"
	subsvc "github.com/angelmondragon/nutriflow-backend/internal/subscriptions"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
)

type startPlanRequest struct {
	SubscriptionTypeID uuid.UUID        `json:"subscription_type_id" validate:"required"`
	PaymentRateID      uuid.UUID        `json:"payment_rate_id" validate:"required"`
	StartDate          string           `json:"start_date" validate:"required"`
	NutritionistID     *uuid.UUID       `json:"nutritionist_id,omitempty"`
	ReviewDay          *enums.ReviewDay `json:"review_day,omitempty"`
}

type dateRequest struct {
	Date *string `json:"date,omitempty"`
}

type extendRequest struct {
	Days int `json:"days" validate:"ne=0,min=-3650,max=3650"`
}

func Get(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := svc.GetSubscription(r.Context(), patientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

func StartPlan(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload startPlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseDate("start_date", payload.StartDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.StartPlan(r.Context(), patientID, subsvc.StartPlanInput{
			SubscriptionTypeID: payload.SubscriptionTypeID,
			PaymentRateID:      payload.PaymentRateID,
			StartDate:          start,
			NutritionistID:     payload.NutritionistID,
			ReviewDay:          payload.ReviewDay,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func Pause(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload dateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pauseDate, err := validators.ParseOptionalDate("date", payload.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pause, err := svc.Pause(r.Context(), patientID, pauseDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pause)
	}
}

func Resume(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload dateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resumeDate, err := validators.ParseOptionalDate("date", payload.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Resume(r.Context(), patientID, resumeDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Extend(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload extendRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ext, err := svc.Extend(r.Context(), patientID, payload.Days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ext)
	}
}

func ListHistory(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListHistory(r.Context(), patientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

func ListPauses(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pauses, err := svc.ListPauses(r.Context(), patientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pauses)
	}
}

func ListExtensions(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		extensions, err := svc.ListExtensions(r.Context(), patientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, extensions)
	}
}

func ListRenewals(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		within, err := validators.ParseQueryInt(r, "within_days", subsvc.DefaultRenewalWindowDays, 1, subsvc.MaxRenewalWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		renewals, err := svc.ListRenewals(r.Context(), within)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, renewals)
	}
}
