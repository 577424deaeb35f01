package batch

import (
	"context"
	"fmt"
	"log/slog"
	"repayment-engine/internal/domain/loan"
	"repayment-engine/internal/domain/repayment"
	"time"
)

// ScheduleSyncJob persists the repayment schedule of every funded loan that
// has not been processed yet. Each run gets its own source so nothing fetched
// by a previous run is reused.
type ScheduleSyncJob struct {
	sources loan.SourceFactory
	service repayment.Service
	logger  *slog.Logger
}

func NewScheduleSyncJob(sources loan.SourceFactory, service repayment.Service, logger *slog.Logger) *ScheduleSyncJob {
	if sources == nil || service == nil || logger == nil {
		panic("ScheduleSyncJob dependencies cannot be nil")
	}
	return &ScheduleSyncJob{
		sources: sources,
		service: service,
		logger:  logger.With("job", "ScheduleSync"),
	}
}

func (j *ScheduleSyncJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting funded loan schedule sync job.")

	summary, err := j.service.SyncFunded(ctx, j.sources.NewSource())
	if err != nil {
		j.logger.ErrorContext(ctx, "Schedule sync job aborted.", slog.Any("error", err))
		return fmt.Errorf("cannot complete schedule sync: %w", err)
	}

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("funded_loans", summary.Loans),
		slog.Int("schedules_persisted", summary.Persisted),
		slog.Int("loans_skipped", summary.Skipped),
		slog.Int("errors_encountered", summary.Failed),
	)
	if summary.Failed > 0 {
		summaryLog.WarnContext(ctx, "Schedule sync job finished with errors.")
		return fmt.Errorf("job completed with %d errors", summary.Failed)
	}

	summaryLog.InfoContext(ctx, "Schedule sync job finished successfully.")
	return nil
}
