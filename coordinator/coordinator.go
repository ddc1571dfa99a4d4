package coordinator

import (
	"context"
	"time"

	"github.com/rodneyosodo/starfish/run"
)

// RoundStatus reports how many participants have published local payloads
// for a round. Ready is true only when every expected participant has
// published; aggregation over a partial set is a distinguishable condition,
// never an implicit default.
type RoundStatus struct {
	RunID      string `json:"run_id"`
	Sequence   int    `json:"sequence"`
	Round      int    `json:"round"`
	Published  int    `json:"published"`
	Expected   int    `json:"expected"`
	Ready      bool   `json:"ready"`
	Aggregated bool   `json:"aggregated"`
}

// WaitPolicy is the synchronization contract preceding aggregation: wait
// for the full participant count, or on timeout proceed only when at least
// Quorum sites have published.
type WaitPolicy struct {
	Quorum       int
	Timeout      time.Duration
	PollInterval time.Duration
}

type Service interface {
	// CreateRun registers a federated job. The run is immutable once
	// rounds begin.
	CreateRun(ctx context.Context, r run.Run) (run.Run, error)

	GetRun(ctx context.Context, id string) (run.Run, error)

	ListRuns(ctx context.Context, offset, limit uint64) (run.Page, error)

	// RoundStatus reports the publication state of one round.
	RoundStatus(ctx context.Context, runID string, ref run.RoundRef) (RoundStatus, error)

	// WaitRound blocks until every participant has published for the
	// round, the policy timeout expires, or ctx is cancelled. On timeout
	// it returns the published count when quorum is met and
	// ErrQuorumNotMet otherwise.
	WaitRound(ctx context.Context, runID string, ref run.RoundRef, policy WaitPolicy) (int, error)

	// Aggregate combines the local payloads published for the round and
	// publishes the global payload. Quorum <= 0 demands the full
	// participant set; a positive quorum permits a timeout closure over
	// at least that many sites. A partial set below the requirement
	// fails with ErrRoundNotReady and publishes nothing; a round with no
	// payloads at all fails with ErrNoPayloads.
	Aggregate(ctx context.Context, runID string, ref run.RoundRef, quorum int) error

	// GlobalStats returns the published global payload blob for a round,
	// or ErrRoundNotReady when the round has not been aggregated yet.
	GlobalStats(ctx context.Context, runID string, ref run.RoundRef) ([]byte, error)
}
