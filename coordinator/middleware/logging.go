package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/rodneyosodo/starfish/coordinator"
	"github.com/rodneyosodo/starfish/run"
)

var _ coordinator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) CreateRun(ctx context.Context, r run.Run) (resp run.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", resp.ID),
				slog.String("name", r.Name),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Create run failed", args...)

			return
		}
		lm.logger.Info("Create run completed successfully", args...)
	}(time.Now())

	return lm.svc.CreateRun(ctx, r)
}

func (lm *loggingMiddleware) GetRun(ctx context.Context, id string) (resp run.Run, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", id),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get run failed", args...)

			return
		}
		lm.logger.Info("Get run completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRun(ctx, id)
}

func (lm *loggingMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (resp run.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List runs failed", args...)

			return
		}
		lm.logger.Info("List runs completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRuns(ctx, offset, limit)
}

func (lm *loggingMiddleware) RoundStatus(ctx context.Context, runID string, ref run.RoundRef) (resp coordinator.RoundStatus, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			roundGroup(runID, ref),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Round status failed", args...)

			return
		}
		lm.logger.Info("Round status completed successfully", args...)
	}(time.Now())

	return lm.svc.RoundStatus(ctx, runID, ref)
}

func (lm *loggingMiddleware) WaitRound(ctx context.Context, runID string, ref run.RoundRef, policy coordinator.WaitPolicy) (published int, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			roundGroup(runID, ref),
			slog.Int("published", published),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Wait round failed", args...)

			return
		}
		lm.logger.Info("Wait round completed successfully", args...)
	}(time.Now())

	return lm.svc.WaitRound(ctx, runID, ref, policy)
}

func (lm *loggingMiddleware) Aggregate(ctx context.Context, runID string, ref run.RoundRef, quorum int) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			roundGroup(runID, ref),
			slog.Int("quorum", quorum),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Aggregate failed", args...)

			return
		}
		lm.logger.Info("Aggregate completed successfully", args...)
	}(time.Now())

	return lm.svc.Aggregate(ctx, runID, ref, quorum)
}

func (lm *loggingMiddleware) GlobalStats(ctx context.Context, runID string, ref run.RoundRef) (blob []byte, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			roundGroup(runID, ref),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Global stats failed", args...)

			return
		}
		lm.logger.Info("Global stats completed successfully", args...)
	}(time.Now())

	return lm.svc.GlobalStats(ctx, runID, ref)
}

func roundGroup(runID string, ref run.RoundRef) slog.Attr {
	return slog.Group("round",
		slog.String("run_id", runID),
		slog.Int("sequence", ref.Sequence),
		slog.Int("round", ref.Round),
	)
}
