package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/rodneyosodo/starfish/coordinator"
	"github.com/rodneyosodo/starfish/run"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) CreateRun(ctx context.Context, r run.Run) (run.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "create-run").Add(1)
		mm.latency.With("method", "create-run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CreateRun(ctx, r)
}

func (mm *metricsMiddleware) GetRun(ctx context.Context, id string) (run.Run, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-run").Add(1)
		mm.latency.With("method", "get-run").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRun(ctx, id)
}

func (mm *metricsMiddleware) ListRuns(ctx context.Context, offset, limit uint64) (run.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-runs").Add(1)
		mm.latency.With("method", "list-runs").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRuns(ctx, offset, limit)
}

func (mm *metricsMiddleware) RoundStatus(ctx context.Context, runID string, ref run.RoundRef) (coordinator.RoundStatus, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "round-status").Add(1)
		mm.latency.With("method", "round-status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RoundStatus(ctx, runID, ref)
}

func (mm *metricsMiddleware) WaitRound(ctx context.Context, runID string, ref run.RoundRef, policy coordinator.WaitPolicy) (int, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "wait-round").Add(1)
		mm.latency.With("method", "wait-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.WaitRound(ctx, runID, ref, policy)
}

func (mm *metricsMiddleware) Aggregate(ctx context.Context, runID string, ref run.RoundRef, quorum int) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "aggregate").Add(1)
		mm.latency.With("method", "aggregate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Aggregate(ctx, runID, ref, quorum)
}

func (mm *metricsMiddleware) GlobalStats(ctx context.Context, runID string, ref run.RoundRef) ([]byte, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "global-stats").Add(1)
		mm.latency.With("method", "global-stats").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GlobalStats(ctx, runID, ref)
}
