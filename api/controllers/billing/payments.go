package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nutriflow-backend/api/responses"
	"github.com/angelmondragon/nutriflow-backend/api/validators"
	billingsvc "github.com/angelmondragon/nutriflow-backend/internal/billing"
	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
)

// Service is the billing surface the controllers need.
type Service interface {
	CreatePayment(ctx context.Context, input billingsvc.CreatePaymentInput) (*models.Payment, error)
	ListPayments(ctx context.Context, patientID uuid.UUID) ([]models.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	BillingPeriods(ctx context.Context, patientID uuid.UUID) ([]billingsvc.Term, error)

	CreateSubscriptionType(ctx context.Context, input billingsvc.CreateSubscriptionTypeInput) (*models.SubscriptionType, error)
	ListSubscriptionTypes(ctx context.Context, activeOnly bool) ([]models.SubscriptionType, error)
	CreatePaymentRate(ctx context.Context, input billingsvc.CreatePaymentRateInput) (*models.PaymentRate, error)
	ListPaymentRates(ctx context.Context, activeOnly bool) ([]models.PaymentRate, error)
}

type createPaymentRequest struct {
	PatientID      uuid.UUID            `json:"patient_id" validate:"required"`
	SubscriptionID *uuid.UUID           `json:"subscription_id,omitempty"`
	Amount         *decimal.Decimal     `json:"amount" validate:"required"`
	PaymentDate    *string              `json:"payment_date,omitempty"`
	Status         *enums.PaymentStatus `json:"status,omitempty" validate:"omitempty,oneof=paid pending refunded"`
	PaymentRateID  *uuid.UUID           `json:"payment_rate_id,omitempty"`
	Category       *string              `json:"category,omitempty" validate:"omitempty,max=80"`
	Method         *string              `json:"method,omitempty" validate:"omitempty,max=80"`
	Notes          *string              `json:"notes,omitempty"`
}

func CreatePayment(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentDate, err := validators.ParseOptionalDate("payment_date", payload.PaymentDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := billingsvc.CreatePaymentInput{
			PatientID:      payload.PatientID,
			SubscriptionID: payload.SubscriptionID,
			Amount:         *payload.Amount,
			PaymentRateID:  payload.PaymentRateID,
			Category:       payload.Category,
			Method:         payload.Method,
			Notes:          payload.Notes,
		}
		if paymentDate != nil {
			input.PaymentDate = *paymentDate
		}
		if payload.Status != nil {
			input.Status = *payload.Status
		}

		payment, err := svc.CreatePayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

func ListPayments(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := validators.ParseQueryUUID(r, "patient_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payments, err := svc.ListPayments(r.Context(), patientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments)
	}
}

func DeletePayment(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePayment(r.Context(), paymentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// Terms returns the reconciled billing periods for a patient.
func Terms(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := validators.ParseUUIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		terms, err := svc.BillingPeriods(r.Context(), patientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, terms)
	}
}
