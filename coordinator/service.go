package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rodneyosodo/starfish/pkg/aggregate"
	"github.com/rodneyosodo/starfish/pkg/artifact"
	"github.com/rodneyosodo/starfish/pkg/errors"
	"github.com/rodneyosodo/starfish/pkg/storage"
	"github.com/rodneyosodo/starfish/run"
)

const (
	defLimit = 100

	defPollInterval = time.Second
)

type service struct {
	runsDB    storage.Storage
	artifacts artifact.Store
	logger    *slog.Logger
}

func NewService(runsDB storage.Storage, artifacts artifact.Store, logger *slog.Logger) Service {
	return &service{
		runsDB:    runsDB,
		artifacts: artifacts,
		logger:    logger,
	}
}

func (svc *service) CreateRun(ctx context.Context, r run.Run) (run.Run, error) {
	if len(r.Tasks) == 0 {
		return run.Run{}, fmt.Errorf("run has no tasks: %w", errors.ErrInvalidData)
	}
	if len(r.Participants) == 0 {
		return run.Run{}, fmt.Errorf("run has no participants: %w", errors.ErrInvalidData)
	}

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now()
	if r.TotalRound == 0 {
		r.TotalRound = 1
	}
	for i := range r.Tasks {
		r.Tasks[i].Normalize()
	}

	if err := svc.runsDB.Create(ctx, r.ID, r); err != nil {
		return run.Run{}, err
	}

	return r, nil
}

func (svc *service) GetRun(ctx context.Context, id string) (run.Run, error) {
	data, err := svc.runsDB.Get(ctx, id)
	if err != nil {
		return run.Run{}, err
	}
	r, ok := data.(run.Run)
	if !ok {
		return run.Run{}, errors.ErrInvalidData
	}

	return r, nil
}

func (svc *service) ListRuns(ctx context.Context, offset, limit uint64) (run.Page, error) {
	if limit == 0 {
		limit = defLimit
	}
	data, total, err := svc.runsDB.List(ctx, offset, limit)
	if err != nil {
		return run.Page{}, err
	}

	runs := make([]run.Run, 0, len(data))
	for i := range data {
		r, ok := data[i].(run.Run)
		if !ok {
			return run.Page{}, errors.ErrInvalidData
		}
		runs = append(runs, r)
	}

	return run.Page{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Runs:   runs,
	}, nil
}

func (svc *service) RoundStatus(ctx context.Context, runID string, ref run.RoundRef) (RoundStatus, error) {
	r, err := svc.GetRun(ctx, runID)
	if err != nil {
		return RoundStatus{}, err
	}

	blobs, err := svc.artifacts.List(ctx, runID, ref)
	if err != nil {
		return RoundStatus{}, err
	}

	aggregated := false
	if _, err := svc.artifacts.Get(ctx, artifact.GlobalKey(runID, ref)); err == nil {
		aggregated = true
	}

	expected := len(r.Participants)

	return RoundStatus{
		RunID:      runID,
		Sequence:   ref.Sequence,
		Round:      ref.Round,
		Published:  len(blobs),
		Expected:   expected,
		Ready:      len(blobs) >= expected,
		Aggregated: aggregated,
	}, nil
}

func (svc *service) WaitRound(ctx context.Context, runID string, ref run.RoundRef, policy WaitPolicy) (int, error) {
	r, err := svc.GetRun(ctx, runID)
	if err != nil {
		return 0, err
	}
	expected := len(r.Participants)
	if policy.Quorum <= 0 || policy.Quorum > expected {
		policy.Quorum = expected
	}
	if policy.PollInterval <= 0 {
		policy.PollInterval = defPollInterval
	}

	deadline := time.Now().Add(policy.Timeout)
	ticker := time.NewTicker(policy.PollInterval)
	defer ticker.Stop()

	for {
		blobs, err := svc.artifacts.List(ctx, runID, ref)
		if err != nil {
			return 0, err
		}
		published := len(blobs)
		if published >= expected {
			return published, nil
		}
		if policy.Timeout > 0 && !time.Now().Before(deadline) {
			if published >= policy.Quorum {
				svc.logger.Warn("Round timed out, proceeding with quorum",
					slog.String("run_id", runID),
					slog.Int("published", published),
					slog.Int("expected", expected))

				return published, nil
			}

			return published, fmt.Errorf("%d of %d payloads after %s: %w",
				published, expected, policy.Timeout, errors.ErrQuorumNotMet)
		}

		select {
		case <-ctx.Done():
			return published, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (svc *service) Aggregate(ctx context.Context, runID string, ref run.RoundRef, quorum int) error {
	r, err := svc.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	spec, ok := r.Task(ref.Sequence)
	if !ok {
		return fmt.Errorf("run %s has no task at sequence %d: %w", runID, ref.Sequence, errors.ErrNotFound)
	}
	spec.Normalize()

	expected := len(r.Participants)
	if quorum <= 0 || quorum > expected {
		quorum = expected
	}

	byParticipant, err := svc.artifacts.List(ctx, runID, ref)
	if err != nil {
		return err
	}
	if len(byParticipant) == 0 {
		svc.logger.Warn("No local payloads found for aggregation",
			slog.String("run_id", runID),
			slog.Int("sequence", ref.Sequence),
			slog.Int("round", ref.Round))

		return errors.ErrNoPayloads
	}
	if len(byParticipant) < quorum {
		return fmt.Errorf("%d of %d payloads published, need %d: %w",
			len(byParticipant), expected, quorum, errors.ErrRoundNotReady)
	}

	// Stable participant order keeps the pooled floating-point sums
	// bit-identical across invocations.
	participants := make([]string, 0, len(byParticipant))
	for p := range byParticipant {
		participants = append(participants, p)
	}
	sort.Strings(participants)
	blobs := make([][]byte, 0, len(participants))
	for _, p := range participants {
		blobs = append(blobs, byParticipant[p])
	}

	engine, err := aggregate.ForKind(spec.Kind)
	if err != nil {
		return err
	}
	global, err := engine.Aggregate(blobs)
	if err != nil {
		return fmt.Errorf("aggregate round %d-%d: %w", ref.Sequence, ref.Round, err)
	}

	if err := svc.artifacts.Put(ctx, artifact.GlobalKey(runID, ref), global); err != nil {
		return fmt.Errorf("publish global payload: %w", err)
	}

	svc.logger.Info("Global payload published",
		slog.String("run_id", runID),
		slog.Int("sequence", ref.Sequence),
		slog.Int("round", ref.Round),
		slog.Int("n_sites", len(blobs)))

	return nil
}

func (svc *service) GlobalStats(ctx context.Context, runID string, ref run.RoundRef) ([]byte, error) {
	blob, err := svc.artifacts.Get(ctx, artifact.GlobalKey(runID, ref))
	if err == nil {
		return blob, nil
	}
	if _, gerr := svc.GetRun(ctx, runID); gerr != nil {
		return nil, gerr
	}

	return nil, fmt.Errorf("round %d-%d has no global payload: %w", ref.Sequence, ref.Round, errors.ErrRoundNotReady)
}
