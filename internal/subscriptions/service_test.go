package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

type serviceHarness struct {
	store   *memStore
	tx      *stubTxRunner
	svc     Service
	clock   time.Time
	monthly *models.SubscriptionType
	rate    *models.PaymentRate
}

func newHarness(t *testing.T, today string) *serviceHarness {
	t.Helper()
	h := &serviceHarness{store: newMemStore(), tx: &stubTxRunner{}, clock: at(today)}
	h.monthly = &models.SubscriptionType{ID: uuid.New(), Name: "Monthly", Months: 1, Active: true}
	h.rate = &models.PaymentRate{ID: uuid.New(), Name: "Standard", Amount: decimal.RequireFromString("45.00"), Active: true}
	h.store.types[h.monthly.ID] = h.monthly
	h.store.rates[h.rate.ID] = h.rate

	svc, err := NewService(ServiceParams{
		Repo:              h.store,
		PatientRepo:       memPatients{h.store},
		CatalogRepo:       memBilling{h.store},
		PaymentRepo:       memBilling{h.store},
		TransactionRunner: h.tx,
		Now:               func() time.Time { return h.clock },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *serviceHarness) setToday(value string) {
	h.clock = at(value)
}

func (h *serviceHarness) patient(id uuid.UUID) models.Patient {
	return *h.store.patients[id]
}

func datePtr(value string) *types.Date {
	d := day(value)
	return &d
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	store := newMemStore()
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Repo: store, PatientRepo: memPatients{store}, CatalogRepo: memBilling{store}, PaymentRepo: memBilling{store}})
	require.Error(t, err)
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-01-01")
	p := h.store.addPatient(models.Patient{FirstName: "Ana", LastName: "Ruiz"})
	nutritionist := uuid.New()
	review := enums.ReviewDayMonday

	plan, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{
		SubscriptionTypeID: h.monthly.ID,
		PaymentRateID:      h.rate.ID,
		StartDate:          day("2024-01-01"),
		NutritionistID:     &nutritionist,
		ReviewDay:          &review,
	})
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-01"), plan.Entry.EndDate)
	assert.True(t, plan.Entry.Price.Equal(decimal.RequireFromString("45")))
	assert.Equal(t, enums.SubscriptionStatusActive, plan.Entry.Status)
	assert.Equal(t, enums.LifecycleStatusActive, plan.Snapshot.Status)
	stored := h.patient(p.ID)
	assert.Equal(t, day("2024-02-01"), stored.SubscriptionEnd)
	assert.Equal(t, &nutritionist, stored.NutritionistID)
	assert.Equal(t, &review, stored.ReviewDay)
	assert.Equal(t, "Monthly", *stored.SubscriptionType)

	h.setToday("2024-01-10")
	pause, err := h.svc.Pause(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-10"), pause.StartDate)
	assert.True(t, pause.IsOpen())
	assert.Equal(t, enums.SubscriptionStatusPaused, h.patient(p.ID).SubscriptionStatus)

	h.setToday("2024-01-20")
	resumed, err := h.svc.Resume(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, resumed.DaysPaused)
	assert.Equal(t, day("2024-02-11"), resumed.NewEnd)
	stored = h.patient(p.ID)
	assert.Equal(t, day("2024-02-11"), stored.SubscriptionEnd)
	assert.Equal(t, enums.SubscriptionStatusActive, stored.SubscriptionStatus)
	assert.True(t, stored.PauseStartDate.IsZero())
	assert.Equal(t, day("2024-02-11"), h.store.history[plan.Entry.ID].EndDate)
	assert.Equal(t, day("2024-01-20"), h.store.pauses[pause.ID].EndDate)

	ext, err := h.svc.Extend(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, ext.DaysAdded)
	assert.Equal(t, day("2024-02-11"), ext.PreviousEndDate)
	assert.Equal(t, day("2024-02-16"), ext.NewEndDate)
	assert.Equal(t, day("2024-02-16"), h.patient(p.ID).SubscriptionEnd)
	assert.Equal(t, day("2024-02-16"), h.store.history[plan.Entry.ID].EndDate)

	require.NoError(t, h.svc.DeleteExtension(ctx, ext.ID))
	assert.Equal(t, day("2024-02-11"), h.patient(p.ID).SubscriptionEnd)
	assert.Equal(t, day("2024-02-11"), h.store.history[plan.Entry.ID].EndDate)
	assert.Empty(t, h.store.extensions)
}

func TestExtendRoundTripForAnyDays(t *testing.T) {
	ctx := context.Background()
	for _, d := range []int{-10, -1, 1, 3, 30, 400} {
		h := newHarness(t, "2024-03-01")
		p := h.store.addPatient(models.Patient{FirstName: "Leo"})
		_, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID})
		require.NoError(t, err)
		before := h.patient(p.ID).SubscriptionEnd

		ext, err := h.svc.Extend(ctx, p.ID, d)
		require.NoError(t, err)
		assert.Equal(t, before.AddDays(d), h.patient(p.ID).SubscriptionEnd)

		require.NoError(t, h.svc.DeleteExtension(ctx, ext.ID))
		assert.Equal(t, before, h.patient(p.ID).SubscriptionEnd, "days=%d", d)
	}
}

func TestExtendValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})

	_, err := h.svc.Extend(ctx, p.ID, 0)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.Extend(ctx, p.ID, 5)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = h.svc.Extend(ctx, uuid.New(), 5)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestEditExtensionShiftsByDelta(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})
	plan, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID})
	require.NoError(t, err)

	ext, err := h.svc.Extend(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, day("2024-04-06"), h.patient(p.ID).SubscriptionEnd)

	edited, err := h.svc.EditExtension(ctx, ext.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, edited.DaysAdded)
	assert.Equal(t, day("2024-04-09"), edited.NewEndDate)
	assert.Equal(t, day("2024-04-09"), h.patient(p.ID).SubscriptionEnd)
	assert.Equal(t, day("2024-04-09"), h.store.history[plan.Entry.ID].EndDate)

	edited, err = h.svc.EditExtension(ctx, ext.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, day("2024-04-03"), h.patient(p.ID).SubscriptionEnd)

	require.NoError(t, h.svc.DeleteExtension(ctx, edited.ID))
	assert.Equal(t, day("2024-04-01"), h.patient(p.ID).SubscriptionEnd)

	_, err = h.svc.EditExtension(ctx, uuid.New(), 3)
	requireCode(t, err, pkgerrors.CodeNotFound)
	_, err = h.svc.EditExtension(ctx, ext.ID, 0)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestPauseRejectsDoublePause(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})

	_, err := h.svc.Pause(ctx, p.ID, datePtr("2024-03-02"))
	require.NoError(t, err)
	_, err = h.svc.Pause(ctx, p.ID, nil)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	other := h.store.addPatient(models.Patient{FirstName: "Eva"})
	require.NoError(t, h.store.CreatePause(ctx, &models.SubscriptionPause{PatientID: other.ID, StartDate: day("2024-02-01")}))
	_, err = h.svc.Pause(ctx, other.ID, nil)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Len(t, h.store.pauses, 2)
}

func TestResumeFallsBackToOpenPauseStart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	p := h.store.addPatient(models.Patient{
		FirstName:          "Leo",
		SubscriptionStart:  day("2024-02-01"),
		SubscriptionEnd:    day("2024-03-01"),
		SubscriptionStatus: enums.SubscriptionStatusPaused,
	})
	require.NoError(t, h.store.CreatePause(ctx, &models.SubscriptionPause{PatientID: p.ID, StartDate: day("2024-02-20")}))

	res, err := h.svc.Resume(ctx, p.ID, datePtr("2024-02-25"))
	require.NoError(t, err)
	assert.Equal(t, 5, res.DaysPaused)
	assert.Equal(t, day("2024-03-06"), h.patient(p.ID).SubscriptionEnd)
	require.NotNil(t, res.Pause)
	assert.Equal(t, day("2024-02-25"), h.store.pauses[res.Pause.ID].EndDate)
}

func TestResumeWithoutPauseIsZeroDays(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo", SubscriptionStart: day("2024-02-01"), SubscriptionEnd: day("2024-03-10")})

	res, err := h.svc.Resume(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, res.DaysPaused)
	assert.Nil(t, res.Pause)
	assert.Equal(t, day("2024-03-10"), h.patient(p.ID).SubscriptionEnd)
	assert.Equal(t, enums.SubscriptionStatusActive, h.patient(p.ID).SubscriptionStatus)
}

func TestResumeBeforePauseStartNeverMovesEndEarlier(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo", SubscriptionStart: day("2024-02-01"), SubscriptionEnd: day("2024-03-10")})
	pause, err := h.svc.Pause(ctx, p.ID, datePtr("2024-03-05"))
	require.NoError(t, err)

	res, err := h.svc.Resume(ctx, p.ID, datePtr("2024-03-02"))
	require.NoError(t, err)
	assert.Zero(t, res.DaysPaused)
	assert.Equal(t, day("2024-03-10"), h.patient(p.ID).SubscriptionEnd)
	assert.Equal(t, day("2024-03-05"), h.store.pauses[pause.ID].EndDate)
}

func TestStartPlanRules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})

	_, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{PaymentRateID: h.rate.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: uuid.New(), PaymentRateID: h.rate.ID})
	requireCode(t, err, pkgerrors.CodeNotFound)

	inactive := &models.SubscriptionType{ID: uuid.New(), Name: "Legacy", Months: 2}
	h.store.types[inactive.ID] = inactive
	_, err = h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: inactive.ID, PaymentRateID: h.rate.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.Pause(ctx, p.ID, nil)
	require.NoError(t, err)
	_, err = h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Empty(t, h.store.history)
}

func TestStartPlanIsAdditive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-01-15")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})

	_, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2024-01-01")})
	require.NoError(t, err)
	_, err = h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2024-02-01")})
	require.NoError(t, err)

	history, err := h.svc.ListHistory(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, day("2024-02-01"), history[0].StartDate)
	assert.Equal(t, day("2024-01-31"), history[1].EndDate, "running term ends the day before the renewal")
	assert.Equal(t, day("2024-03-01"), h.patient(p.ID).SubscriptionEnd)

	snapshot, err := h.svc.GetSubscription(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LifecycleStatusActive, snapshot.Status, "future start covered by an active term")
}

func activeTermsOn(history []models.SubscriptionHistoryEntry, today types.Date) int {
	n := 0
	for _, e := range history {
		if e.Status == enums.SubscriptionStatusActive && today.Between(e.StartDate, e.EndDate) {
			n++
		}
	}
	return n
}

func TestStartPlanMidTermClosesRunningTerm(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-01-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})
	first, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2024-01-01")})
	require.NoError(t, err)

	h.setToday("2024-01-15")
	renewal, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2024-01-15")})
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-14"), h.store.history[first.Entry.ID].EndDate)
	assert.Equal(t, day("2024-02-15"), h.patient(p.ID).SubscriptionEnd)

	history, err := h.svc.ListHistory(ctx, p.ID)
	require.NoError(t, err)
	for _, today := range []string{"2024-01-14", "2024-01-15", "2024-01-20", "2024-02-15"} {
		assert.Equal(t, 1, activeTermsOn(history, day(today)), today)
	}

	_, err = h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2023-12-20")})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	_, err = h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2024-01-15")})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Len(t, h.store.history, 2)

	cancelled := enums.SubscriptionStatusCancelled
	_, err = h.svc.UpdateHistoryEntry(ctx, renewal.Entry.ID, HistoryEntryPatch{Status: &cancelled})
	require.NoError(t, err)
	_, err = h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2024-01-20")})
	require.NoError(t, err, "cancelled terms never block a new plan")
	assert.Equal(t, day("2024-02-15"), h.store.history[renewal.Entry.ID].EndDate)
}

func TestDeleteOnlyHistoryEntryResetsSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})
	plan, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID})
	require.NoError(t, err)
	_, err = h.svc.Extend(ctx, p.ID, 3)
	require.NoError(t, err)
	entryID := plan.Entry.ID
	payment := &models.Payment{ID: uuid.New(), PatientID: p.ID, SubscriptionID: &entryID}
	h.store.payments[payment.ID] = payment

	snapshot, err := h.svc.DeleteHistoryEntry(ctx, entryID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusInactive, snapshot.StoredStatus)
	assert.Equal(t, enums.LifecycleStatusWaiting, snapshot.Status)

	stored := h.patient(p.ID)
	assert.Equal(t, enums.SubscriptionStatusInactive, stored.SubscriptionStatus)
	assert.Nil(t, stored.SubscriptionType)
	assert.True(t, stored.SubscriptionStart.IsZero())
	assert.True(t, stored.SubscriptionEnd.IsZero())
	assert.Nil(t, stored.DaysRemaining)
	assert.Nil(t, stored.PaymentRateID)
	assert.Nil(t, stored.SubscriptionTypeID)
	assert.Empty(t, h.store.extensions)
	assert.Nil(t, payment.SubscriptionID)
}

func TestDeleteHistoryEntryFallsBackToPreviousTerm(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-02-15")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})
	_, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2024-02-01")})
	require.NoError(t, err)
	renewal, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2024-03-01")})
	require.NoError(t, err)
	_, err = h.svc.Extend(ctx, p.ID, 2)
	require.NoError(t, err)

	snapshot, err := h.svc.DeleteHistoryEntry(ctx, renewal.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-29"), snapshot.EndDate)
	assert.Equal(t, enums.SubscriptionStatusActive, snapshot.StoredStatus)
	require.NotNil(t, snapshot.DaysRemaining)
	assert.Equal(t, 14, *snapshot.DaysRemaining)
	assert.Len(t, h.store.extensions, 1, "extensions survive while a term remains")

	_, err = h.svc.DeleteHistoryEntry(ctx, renewal.Entry.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateHistoryEntryResyncsSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})
	plan, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID})
	require.NoError(t, err)

	newEnd := day("2024-04-20")
	name := "Monthly promo"
	updated, err := h.svc.UpdateHistoryEntry(ctx, plan.Entry.ID, HistoryEntryPatch{EndDate: &newEnd, PlanName: &name})
	require.NoError(t, err)
	assert.Equal(t, newEnd, updated.EndDate)
	assert.Equal(t, newEnd, h.patient(p.ID).SubscriptionEnd)
	assert.Equal(t, name, *h.patient(p.ID).SubscriptionType)

	bad := day("2024-01-01")
	_, err = h.svc.UpdateHistoryEntry(ctx, plan.Entry.ID, HistoryEntryPatch{EndDate: &bad})
	requireCode(t, err, pkgerrors.CodeValidation)

	finished := enums.SubscriptionStatusFinished
	_, err = h.svc.UpdateHistoryEntry(ctx, plan.Entry.ID, HistoryEntryPatch{Status: &finished})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateHistoryEntryKeepsPauseAndOverrides(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2023-11-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})
	old, err := h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2023-11-01")})
	require.NoError(t, err)
	_, err = h.svc.StartPlan(ctx, p.ID, StartPlanInput{SubscriptionTypeID: h.monthly.ID, PaymentRateID: h.rate.ID, StartDate: day("2024-01-01")})
	require.NoError(t, err)

	h.setToday("2024-01-10")
	pause, err := h.svc.Pause(ctx, p.ID, nil)
	require.NoError(t, err)

	price := decimal.RequireFromString("10")
	_, err = h.svc.UpdateHistoryEntry(ctx, old.Entry.ID, HistoryEntryPatch{Price: &price})
	require.NoError(t, err)
	stored := h.patient(p.ID)
	assert.Equal(t, enums.SubscriptionStatusPaused, stored.SubscriptionStatus)
	assert.Equal(t, day("2024-01-10"), stored.PauseStartDate)
	assert.Equal(t, day("2024-02-01"), stored.SubscriptionEnd)
	assert.True(t, h.store.pauses[pause.ID].IsOpen())

	snapshot, err := h.svc.GetSubscription(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LifecycleStatusPaused, snapshot.Status)

	_, err = h.svc.Pause(ctx, p.ID, nil)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	h.setToday("2024-01-20")
	resumed, err := h.svc.Resume(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, resumed.DaysPaused)
	assert.Equal(t, day("2024-02-11"), h.patient(p.ID).SubscriptionEnd)

	h.store.patients[p.ID].SubscriptionStatus = enums.SubscriptionStatusPendingPayment
	newEnd := day("2024-02-20")
	_, err = h.svc.UpdateHistoryEntry(ctx, old.Entry.ID, HistoryEntryPatch{EndDate: &newEnd})
	require.NoError(t, err)
	stored = h.patient(p.ID)
	assert.Equal(t, enums.SubscriptionStatusPendingPayment, stored.SubscriptionStatus)
	assert.Equal(t, newEnd, stored.SubscriptionEnd, "dates still follow the latest term")
}

func TestClosingOpenPauseRequiresResume(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-10")
	p := h.store.addPatient(models.Patient{FirstName: "Leo", SubscriptionStart: day("2024-03-01"), SubscriptionEnd: day("2024-04-01")})
	pause, err := h.svc.Pause(ctx, p.ID, nil)
	require.NoError(t, err)

	end := day("2024-03-15")
	_, err = h.svc.UpdatePause(ctx, pause.ID, PausePatch{EndDate: &end})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.True(t, h.store.pauses[pause.ID].IsOpen())
	stored := h.patient(p.ID)
	assert.Equal(t, enums.SubscriptionStatusPaused, stored.SubscriptionStatus)
	assert.Equal(t, day("2024-03-10"), stored.PauseStartDate)

	h.setToday("2024-03-15")
	_, err = h.svc.Resume(ctx, p.ID, nil)
	require.NoError(t, err)
	moved := day("2024-03-14")
	updated, err := h.svc.UpdatePause(ctx, pause.ID, PausePatch{EndDate: &moved})
	require.NoError(t, err, "closed pauses stay editable")
	assert.Equal(t, moved, updated.EndDate)
}

func TestUpdateAndDeleteOpenPauseKeepsPatientInSync(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-10")
	p := h.store.addPatient(models.Patient{FirstName: "Leo", SubscriptionStart: day("2024-03-01"), SubscriptionEnd: day("2024-04-01")})
	pause, err := h.svc.Pause(ctx, p.ID, nil)
	require.NoError(t, err)

	start := day("2024-03-08")
	updated, err := h.svc.UpdatePause(ctx, pause.ID, PausePatch{StartDate: &start})
	require.NoError(t, err)
	assert.Equal(t, start, updated.StartDate)
	assert.Equal(t, start, h.patient(p.ID).PauseStartDate)

	end := day("2024-03-01")
	_, err = h.svc.UpdatePause(ctx, pause.ID, PausePatch{EndDate: &end})
	requireCode(t, err, pkgerrors.CodeValidation)

	require.NoError(t, h.svc.DeletePause(ctx, pause.ID))
	stored := h.patient(p.ID)
	assert.Equal(t, enums.SubscriptionStatusActive, stored.SubscriptionStatus)
	assert.True(t, stored.PauseStartDate.IsZero())
	assert.Equal(t, day("2024-04-01"), stored.SubscriptionEnd)

	requireCode(t, h.svc.DeletePause(ctx, pause.ID), pkgerrors.CodeNotFound)
}

func TestReopeningPauseConflictsWithOpenPause(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-10")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})
	closed := models.SubscriptionPause{PatientID: p.ID, StartDate: day("2024-01-01"), EndDate: day("2024-01-05")}
	require.NoError(t, h.store.CreatePause(ctx, &closed))
	_, err := h.svc.Pause(ctx, p.ID, nil)
	require.NoError(t, err)

	_, err = h.svc.UpdatePause(ctx, closed.ID, PausePatch{ReopenEnd: true})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestListRenewals(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-29")
	warning := h.store.addPatient(models.Patient{FirstName: "Warn", SubscriptionStart: day("2024-03-01"), SubscriptionEnd: day("2024-03-31")})
	expired := h.store.addPatient(models.Patient{FirstName: "Gone", SubscriptionStart: day("2024-02-01"), SubscriptionEnd: day("2024-03-25")})
	h.store.addPatient(models.Patient{FirstName: "Fine", SubscriptionStart: day("2024-03-01"), SubscriptionEnd: day("2024-05-01")})
	h.store.addPatient(models.Patient{FirstName: "Old", SubscriptionStart: day("2023-01-01"), SubscriptionEnd: day("2023-02-01")})
	h.store.addPatient(models.Patient{FirstName: "Owes", SubscriptionStatus: enums.SubscriptionStatusPendingPayment, SubscriptionStart: day("2024-03-01"), SubscriptionEnd: day("2024-03-30")})

	renewals, err := h.svc.ListRenewals(ctx, 7)
	require.NoError(t, err)
	require.Len(t, renewals, 2)
	assert.Equal(t, expired.ID, renewals[0].PatientID)
	assert.Equal(t, enums.LifecycleStatusExpired, renewals[0].Status)
	assert.Equal(t, -4, *renewals[0].DaysRemaining)
	assert.Equal(t, warning.ID, renewals[1].PatientID)
	assert.Equal(t, enums.LifecycleStatusWarning, renewals[1].Status)

	_, err = h.svc.ListRenewals(ctx, MaxRenewalWindowDays+1)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestRefreshSnapshotsCollectsFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	stale := 99
	a := h.store.addPatient(models.Patient{FirstName: "A", SubscriptionEnd: day("2024-03-11"), DaysRemaining: &stale})
	current := 5
	h.store.addPatient(models.Patient{FirstName: "B", SubscriptionEnd: day("2024-03-06"), DaysRemaining: &current})
	broken := h.store.addPatient(models.Patient{FirstName: "C", SubscriptionEnd: day("2024-02-20")})
	h.store.addPatient(models.Patient{FirstName: "D"})
	h.store.failDays[broken.ID] = errors.New("disk full")

	result, err := h.svc.RefreshSnapshots(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 10, *h.patient(a.ID).DaysRemaining)
}

func TestSnapshotWriteFailureIsSurfaced(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	p := h.store.addPatient(models.Patient{FirstName: "Leo"})
	h.store.failSnapshot = errors.New("connection reset")

	_, err := h.svc.Pause(ctx, p.ID, nil)
	requireCode(t, err, pkgerrors.CodeDependency)
	assert.Equal(t, 1, h.tx.calls)
}

func TestListsRequireExistingPatient(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "2024-03-01")
	_, err := h.svc.ListHistory(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
	_, err = h.svc.ListPauses(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
	_, err = h.svc.ListExtensions(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
	_, err = h.svc.GetSubscription(ctx, uuid.Nil)
	requireCode(t, err, pkgerrors.CodeValidation)
}
