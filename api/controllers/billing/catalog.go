package billing

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nutriflow-backend/api/responses"
	"github.com/angelmondragon/nutriflow-backend/api/validators"
	billingsvc "github.com/angelmondragon/nutriflow-backend/internal/billing"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
)

type subscriptionTypeRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Months      int     `json:"months" validate:"required,min=1,max=120"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type paymentRateRequest struct {
	Name   string           `json:"name" validate:"required,max=120"`
	Amount *decimal.Decimal `json:"amount" validate:"required"`
	Active *bool            `json:"active,omitempty"`
}

func CreateSubscriptionType(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload subscriptionTypeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.CreateSubscriptionType(r.Context(), billingsvc.CreateSubscriptionTypeInput{
			Name:        validators.SanitizeString(payload.Name, 120),
			Months:      payload.Months,
			Description: payload.Description,
			Active:      payload.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListSubscriptionTypes lists active plans unless ?include_inactive=true.
func ListSubscriptionTypes(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeInactive, err := validators.ParseQueryBool(r, "include_inactive", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListSubscriptionTypes(r.Context(), !includeInactive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func CreatePaymentRate(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentRateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.CreatePaymentRate(r.Context(), billingsvc.CreatePaymentRateInput{
			Name:   validators.SanitizeString(payload.Name, 120),
			Amount: *payload.Amount,
			Active: payload.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func ListPaymentRates(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeInactive, err := validators.ParseQueryBool(r, "include_inactive", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListPaymentRates(r.Context(), !includeInactive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
