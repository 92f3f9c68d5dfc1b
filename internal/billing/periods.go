package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// FallbackTermDays is the assumed length of a term stored without an end date.
const FallbackTermDays = 30

// Term is one billing period of a patient with its paid flag.
type Term struct {
	ID            uuid.UUID        `json:"id"`
	Label         string           `json:"label"`
	Start         types.Date       `json:"start"`
	End           types.Date       `json:"end"`
	Status        enums.TermStatus `json:"status"`
	IsPaid        bool             `json:"is_paid"`
	PaymentRateID *uuid.UUID       `json:"payment_rate_id"`
	Price         decimal.Decimal  `json:"price"`
}

// BuildTerms joins history entries with payments. A term is paid only when a
// payment references its id; amounts and dates are never used for matching.
// Entries without a readable start date are skipped.
func BuildTerms(history []models.SubscriptionHistoryEntry, payments []models.Payment, now time.Time) []Term {
	today := types.DateOf(now)
	paid := lo.SliceToMap(
		lo.Filter(payments, func(p models.Payment, _ int) bool { return p.SubscriptionID != nil }),
		func(p models.Payment) (uuid.UUID, struct{}) { return *p.SubscriptionID, struct{}{} },
	)

	terms := make([]Term, 0, len(history))
	for _, entry := range history {
		if entry.StartDate.IsZero() {
			continue
		}
		end := entry.EndDate
		if end.IsZero() {
			end = entry.StartDate.AddDays(FallbackTermDays)
		}
		_, isPaid := paid[entry.ID]
		terms = append(terms, Term{
			ID:            entry.ID,
			Label:         termLabel(entry.PlanName, entry.StartDate, end),
			Start:         entry.StartDate,
			End:           end,
			Status:        termStatus(entry.Status, entry.StartDate, end, today),
			IsPaid:        isPaid,
			PaymentRateID: entry.PaymentRateID,
			Price:         entry.Price,
		})
	}

	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].Start.After(terms[j].Start)
	})
	return terms
}

func termStatus(stored enums.SubscriptionStatus, start, end, today types.Date) enums.TermStatus {
	switch stored {
	case enums.SubscriptionStatusCancelled:
		return enums.TermStatusCancelled
	case enums.SubscriptionStatusPaused:
		return enums.TermStatusPaused
	}
	switch {
	case start.After(today):
		return enums.TermStatusFuture
	case today.Between(start, end):
		return enums.TermStatusActive
	default:
		return enums.TermStatusExpired
	}
}

func termLabel(plan string, start, end types.Date) string {
	return fmt.Sprintf("%s (%s – %s)", plan, start, end)
}
