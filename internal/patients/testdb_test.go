package patients

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/internal/billing"
	"github.com/angelmondragon/nutriflow-backend/internal/subscriptions"
	"github.com/angelmondragon/nutriflow-backend/pkg/db"
	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/pagination"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

type testEnv struct {
	conn      *gorm.DB
	repo      *Repository
	lifecycle subscriptions.Repository
	billing   billing.Repository
	svc       *Service
}

func newTestEnv(t *testing.T, today string) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))

	env := &testEnv{
		conn:      conn,
		repo:      NewRepository(conn),
		lifecycle: subscriptions.NewRepository(conn),
		billing:   billing.NewRepository(conn),
	}
	now := types.MustParseDate(today).Time().Add(9 * time.Hour)
	env.svc, err = NewService(ServiceParams{
		Repo:              env.repo,
		Lifecycle:         env.lifecycle,
		Payments:          env.billing,
		TransactionRunner: db.NewFromGorm(conn),
		Now:               func() time.Time { return now },
	})
	require.NoError(t, err)
	return env
}

func day(value string) types.Date {
	return types.MustParseDate(value)
}

func ptr[T any](v T) *T {
	return &v
}

func paramsWithCursor(cursor string) pagination.Params {
	return pagination.Params{Cursor: cursor}
}
