package patients

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nutriflow-backend/pkg/errors"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

func TestCreateAndGetPatient(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "2024-03-01")

	created, err := env.svc.Create(ctx, CreatePatientDTO{
		FirstName: "  Ana ",
		LastName:  "Ruiz",
		Email:     ptr("  "),
		ReviewDay: ptr(enums.ReviewDayFriday),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", created.FirstName)
	assert.Equal(t, "Ana Ruiz", created.FullName)
	assert.Nil(t, created.Email)
	assert.Equal(t, enums.LifecycleStatusWaiting, created.Subscription.Status)

	got, err := env.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, enums.ReviewDayFriday, *got.ReviewDay)

	_, err = env.svc.Create(ctx, CreatePatientDTO{LastName: "Nameless"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = env.svc.Create(ctx, CreatePatientDTO{FirstName: "Leo", ReviewDay: ptr(enums.ReviewDay("someday"))})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = env.svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetDerivesStatusFromSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "2024-03-29")
	patient := models.Patient{FirstName: "Ana", SubscriptionStart: day("2024-03-01"), SubscriptionEnd: day("2024-03-31")}
	require.NoError(t, env.repo.Create(ctx, &patient))

	got, err := env.svc.Get(ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LifecycleStatusWarning, got.Subscription.Status)
}

func TestUpdateOverrideAndClear(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "2024-03-10")
	patient := models.Patient{FirstName: "Ana"}
	require.NoError(t, env.repo.Create(ctx, &patient))
	entry := models.SubscriptionHistoryEntry{
		PatientID: patient.ID, PlanName: "Monthly",
		StartDate: day("2024-03-01"), EndDate: day("2024-04-01"),
		Price: decimal.NewFromInt(45), Status: enums.SubscriptionStatusActive,
	}
	require.NoError(t, env.lifecycle.CreateHistoryEntry(ctx, &entry))

	updated, err := env.svc.Update(ctx, patient.ID, UpdatePatientDTO{
		StatusOverride: ptr(enums.SubscriptionStatusPendingPayment),
		Notes:          ptr("prefers mornings"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.LifecycleStatusPendingPayment, updated.Subscription.Status)
	assert.Equal(t, "prefers mornings", *updated.Notes)

	cleared, err := env.svc.Update(ctx, patient.ID, UpdatePatientDTO{ClearOverride: true})
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, cleared.Subscription.StoredStatus)
	assert.Equal(t, enums.LifecycleStatusActive, cleared.Subscription.Status)
	assert.Equal(t, day("2024-04-01"), cleared.Subscription.EndDate)

	_, err = env.svc.Update(ctx, patient.ID, UpdatePatientDTO{StatusOverride: ptr(enums.SubscriptionStatusPaused)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = env.svc.Update(ctx, patient.ID, UpdatePatientDTO{FirstName: ptr(" ")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateOverrideRejectedWhilePaused(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "2024-03-10")
	patient := models.Patient{FirstName: "Ana", SubscriptionStatus: enums.SubscriptionStatusPaused}
	require.NoError(t, env.repo.Create(ctx, &patient))

	_, err := env.svc.Update(ctx, patient.ID, UpdatePatientDTO{StatusOverride: ptr(enums.SubscriptionStatusFinished)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestUpdateAssignsAndClearsNutritionist(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "2024-03-10")
	nutritionist := uuid.New()
	patient := models.Patient{FirstName: "Ana", NutritionistID: &nutritionist}
	require.NoError(t, env.repo.Create(ctx, &patient))

	kept, err := env.svc.Update(ctx, patient.ID, UpdatePatientDTO{Notes: ptr("follow up")})
	require.NoError(t, err)
	require.NotNil(t, kept.NutritionistID)
	assert.Equal(t, nutritionist, *kept.NutritionistID)

	cleared, err := env.svc.Update(ctx, patient.ID, UpdatePatientDTO{NutritionistID: types.NullableUUID{Valid: true}})
	require.NoError(t, err)
	assert.Nil(t, cleared.NutritionistID)
}

func TestListPaginates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "2024-03-10")
	for _, name := range []string{"Ana", "Bruno", "Carla"} {
		_, err := env.svc.Create(ctx, CreatePatientDTO{FirstName: name})
		require.NoError(t, err)
	}

	first, err := env.svc.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Len(t, first.Items, 3)
	assert.Empty(t, first.Cursor)

	_, err = env.svc.List(ctx, ListParams{Search: "", Params: paramsWithCursor("not-a-cursor")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "2024-03-10")
	patient := models.Patient{FirstName: "Ana"}
	require.NoError(t, env.repo.Create(ctx, &patient))
	keep := models.Patient{FirstName: "Bruno"}
	require.NoError(t, env.repo.Create(ctx, &keep))

	for _, id := range []uuid.UUID{patient.ID, keep.ID} {
		entry := models.SubscriptionHistoryEntry{PatientID: id, PlanName: "Monthly", StartDate: day("2024-03-01"), EndDate: day("2024-04-01"), Status: enums.SubscriptionStatusActive}
		require.NoError(t, env.lifecycle.CreateHistoryEntry(ctx, &entry))
		require.NoError(t, env.lifecycle.CreatePause(ctx, &models.SubscriptionPause{PatientID: id, StartDate: day("2024-03-05")}))
		require.NoError(t, env.lifecycle.CreateExtension(ctx, &models.SubscriptionExtension{PatientID: id, DaysAdded: 2, PreviousEndDate: day("2024-04-01"), NewEndDate: day("2024-04-03")}))
		require.NoError(t, env.billing.CreatePayment(ctx, &models.Payment{PatientID: id, SubscriptionID: &entry.ID, Amount: decimal.NewFromInt(45), PaymentDate: day("2024-03-01"), Status: enums.PaymentStatusPaid}))
	}

	require.NoError(t, env.svc.Delete(ctx, patient.ID))
	_, err := env.svc.Get(ctx, patient.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	for _, table := range []any{&models.SubscriptionHistoryEntry{}, &models.SubscriptionPause{}, &models.SubscriptionExtension{}, &models.Payment{}} {
		var gone, kept int64
		require.NoError(t, env.conn.Model(table).Where("patient_id = ?", patient.ID).Count(&gone).Error)
		require.NoError(t, env.conn.Model(table).Where("patient_id = ?", keep.ID).Count(&kept).Error)
		assert.Zero(t, gone)
		assert.EqualValues(t, 1, kept)
	}

	err = env.svc.Delete(ctx, patient.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
