package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/nutriflow-backend/internal/subscriptions"
	"github.com/angelmondragon/nutriflow-backend/pkg/logger"
)

// SnapshotRefreshJobName identifies the days-remaining refresh job.
const SnapshotRefreshJobName = "subscription-snapshot-refresh"

type snapshotRefresher interface {
	RefreshSnapshots(ctx context.Context, batchSize int) (subscriptions.RefreshResult, error)
}

type SnapshotRefreshJobParams struct {
	Logger    *logger.Logger
	Refresher snapshotRefresher
	BatchSize int
}

func NewSnapshotRefreshJob(params SnapshotRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Refresher == nil {
		return nil, fmt.Errorf("snapshot refresher required")
	}
	return &snapshotRefreshJob{
		logg:      params.Logger,
		refresher: params.Refresher,
		batchSize: params.BatchSize,
	}, nil
}

type snapshotRefreshJob struct {
	logg      *logger.Logger
	refresher snapshotRefresher
	batchSize int
}

func (j *snapshotRefreshJob) Name() string { return SnapshotRefreshJobName }

// Run recomputes days_remaining for every patient with an end date. Single
// patient failures are reported after the whole pass.
func (j *snapshotRefreshJob) Run(ctx context.Context) error {
	result, err := j.refresher.RefreshSnapshots(ctx, j.batchSize)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"patients_scanned": result.Scanned,
		"patients_updated": result.Updated,
		"patients_failed":  result.Failed,
	})
	if err != nil {
		j.logg.Warn(logCtx, "snapshot refresh finished with failures")
		return fmt.Errorf("snapshot refresh: %w", err)
	}
	j.logg.Info(logCtx, "snapshot refresh complete")
	return nil
}
