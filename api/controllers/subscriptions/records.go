package subscriptions

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nutriflow-backend/api/responses"
	"github.com/angelmondragon/nutriflow-backend/api/validators"
	subsvc "github.com/angelmondragon/nutriflow-backend/internal/subscriptions"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
)

type historyPatchRequest struct {
	PlanName  *string                   `json:"plan_name,omitempty" validate:"omitempty,max=120"`
	StartDate *string                   `json:"start_date,omitempty"`
	EndDate   *string                   `json:"end_date,omitempty"`
	Price     *string                   `json:"price,omitempty"`
	Status    *enums.SubscriptionStatus `json:"status,omitempty" validate:"omitempty,oneof=active paused cancelled finished inactive future"`
}

type pausePatchRequest struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	// Reopen clears end_date and makes the pause the open one again.
	Reopen bool `json:"reopen,omitempty"`
}

type extensionPatchRequest struct {
	Days int `json:"days" validate:"ne=0,min=-3650,max=3650"`
}

func UpdateHistoryEntry(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := validators.ParseUUIDParam(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload historyPatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patch, err := payload.toPatch()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.UpdateHistoryEntry(r.Context(), entryID, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

func (p historyPatchRequest) toPatch() (subsvc.HistoryEntryPatch, error) {
	start, err := validators.ParseOptionalDate("start_date", p.StartDate)
	if err != nil {
		return subsvc.HistoryEntryPatch{}, err
	}
	end, err := validators.ParseOptionalDate("end_date", p.EndDate)
	if err != nil {
		return subsvc.HistoryEntryPatch{}, err
	}
	var price *decimal.Decimal
	if p.Price != nil {
		parsed, err := decimal.NewFromString(strings.TrimSpace(*p.Price))
		if err != nil {
			return subsvc.HistoryEntryPatch{}, pkgerrors.Invalid("price", "must be a decimal number")
		}
		price = &parsed
	}
	return subsvc.HistoryEntryPatch{
		PlanName:  p.PlanName,
		StartDate: start,
		EndDate:   end,
		Price:     price,
		Status:    p.Status,
	}, nil
}

func DeleteHistoryEntry(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := validators.ParseUUIDParam(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := svc.DeleteHistoryEntry(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

func UpdatePause(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pauseID, err := validators.ParseUUIDParam(r, "pauseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload pausePatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseOptionalDate("start_date", payload.StartDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseOptionalDate("end_date", payload.EndDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pause, err := svc.UpdatePause(r.Context(), pauseID, subsvc.PausePatch{
			StartDate: start,
			EndDate:   end,
			ReopenEnd: payload.Reopen,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pause)
	}
}

func DeletePause(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pauseID, err := validators.ParseUUIDParam(r, "pauseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePause(r.Context(), pauseID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func UpdateExtension(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		extensionID, err := validators.ParseUUIDParam(r, "extensionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload extensionPatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ext, err := svc.EditExtension(r.Context(), extensionID, payload.Days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ext)
	}
}

func DeleteExtension(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		extensionID, err := validators.ParseUUIDParam(r, "extensionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteExtension(r.Context(), extensionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
