package coordinator_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodneyosodo/starfish/coordinator"
	"github.com/rodneyosodo/starfish/payload"
	"github.com/rodneyosodo/starfish/pkg/artifact"
	"github.com/rodneyosodo/starfish/pkg/errors"
	"github.com/rodneyosodo/starfish/pkg/storage"
	"github.com/rodneyosodo/starfish/run"
	"github.com/rodneyosodo/starfish/site"
)

func newService() (coordinator.Service, artifact.Store) {
	store := artifact.NewMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return coordinator.NewService(storage.NewInMemoryStorage(), store, logger), store
}

func trialRun(participants ...string) run.Run {
	return run.Run{
		Name:         "trial",
		Participants: participants,
		Tasks: []run.TaskSpec{
			{Name: "ancova", Kind: run.KindLinear, NGroupColumns: 1},
		},
	}
}

func localLinearBlob(t *testing.T, sampleSize int, coef, stdErr float64) []byte {
	t.Helper()
	stat := payload.LinearStats{
		SampleSize:    sampleSize,
		Coef:          []float64{coef},
		StdErr:        []float64{stdErr},
		TValues:       []float64{0},
		PValues:       []float64{0.5},
		ConfIntLower:  []float64{coef - 2*stdErr},
		ConfIntUpper:  []float64{coef + 2*stdErr},
		SSModel:       4,
		SSResidual:    2,
		SSTotal:       6,
		DFModel:       0,
		DFResidual:    float64(sampleSize - 1),
		NGroupColumns: 1,
	}
	blob, err := artifact.EncodeLines(stat)
	require.NoError(t, err)

	return blob
}

func TestCreateRun(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	cases := []struct {
		desc string
		r    run.Run
		err  error
	}{
		{
			desc: "valid run",
			r:    trialRun("siteA", "siteB"),
			err:  nil,
		},
		{
			desc: "run without tasks",
			r:    run.Run{Participants: []string{"siteA"}},
			err:  errors.ErrInvalidData,
		},
		{
			desc: "run without participants",
			r:    run.Run{Tasks: []run.TaskSpec{{Name: "ancova"}}},
			err:  errors.ErrInvalidData,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			created, err := svc.CreateRun(ctx, tc.r)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.Equal(t, 1, created.TotalRound)
			assert.Equal(t, run.KindLinear, created.Tasks[0].Kind)

			got, err := svc.GetRun(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
		})
	}

	_, err := svc.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestListRuns(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateRun(ctx, trialRun("siteA"))
		require.NoError(t, err)
	}

	page, err := svc.ListRuns(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), page.Total)
	assert.Len(t, page.Runs, 3)

	page, err = svc.ListRuns(ctx, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Runs, 1)
}

func TestRoundStatus(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	ref := run.RoundRef{Sequence: 1, Round: 1}

	created, err := svc.CreateRun(ctx, trialRun("siteA", "siteB"))
	require.NoError(t, err)

	status, err := svc.RoundStatus(ctx, created.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Published)
	assert.Equal(t, 2, status.Expected)
	assert.False(t, status.Ready)
	assert.False(t, status.Aggregated)

	require.NoError(t, store.Put(ctx, artifact.LocalKey(created.ID, ref, "siteA"), localLinearBlob(t, 10, 1.0, 0.5)))

	status, err = svc.RoundStatus(ctx, created.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Published)
	assert.False(t, status.Ready)

	require.NoError(t, store.Put(ctx, artifact.LocalKey(created.ID, ref, "siteB"), localLinearBlob(t, 6, 2.0, 1.0)))
	require.NoError(t, svc.Aggregate(ctx, created.ID, ref, 0))

	status, err = svc.RoundStatus(ctx, created.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Published)
	assert.True(t, status.Ready)
	assert.True(t, status.Aggregated)
}

func TestAggregateWithoutPayloads(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	ref := run.RoundRef{Sequence: 1, Round: 1}

	created, err := svc.CreateRun(ctx, trialRun("siteA", "siteB"))
	require.NoError(t, err)

	err = svc.Aggregate(ctx, created.ID, ref, 0)
	assert.ErrorIs(t, err, errors.ErrNoPayloads)

	// A failed aggregation publishes nothing.
	_, err = store.Get(ctx, artifact.GlobalKey(created.ID, ref))
	assert.ErrorIs(t, err, errors.ErrNotFound)

	// The round exists but has not been aggregated yet.
	_, err = svc.GlobalStats(ctx, created.ID, ref)
	assert.ErrorIs(t, err, errors.ErrRoundNotReady)

	_, err = svc.GlobalStats(ctx, "missing", ref)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestAggregatePoolsSites(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	ref := run.RoundRef{Sequence: 1, Round: 1}

	created, err := svc.CreateRun(ctx, trialRun("siteA", "siteB"))
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, artifact.LocalKey(created.ID, ref, "siteA"), localLinearBlob(t, 10, 1.0, 0.5)))
	require.NoError(t, store.Put(ctx, artifact.LocalKey(created.ID, ref, "siteB"), localLinearBlob(t, 6, 2.0, 1.0)))

	require.NoError(t, svc.Aggregate(ctx, created.ID, ref, 0))

	blob, err := svc.GlobalStats(ctx, created.ID, ref)
	require.NoError(t, err)
	globals, err := artifact.DecodeLines[payload.LinearGlobal](blob)
	require.NoError(t, err)
	require.Len(t, globals, 1)
	assert.Equal(t, 16, globals[0].TotalSampleSize)
	assert.Equal(t, 2, globals[0].NSites)
	assert.InDelta(t, 1.2, globals[0].Coef[0], 1e-9)

	// The global blob is write-once: re-aggregation is rejected.
	err = svc.Aggregate(ctx, created.ID, ref, 0)
	assert.ErrorIs(t, err, errors.ErrEntityExists)
}

func TestAggregatePartialSet(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	ref := run.RoundRef{Sequence: 1, Round: 1}

	created, err := svc.CreateRun(ctx, trialRun("siteA", "siteB"))
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, artifact.LocalKey(created.ID, ref, "siteA"), localLinearBlob(t, 10, 1.0, 0.5)))

	// One of two sites published: the round is not ready and nothing is
	// pooled.
	err = svc.Aggregate(ctx, created.ID, ref, 0)
	assert.ErrorIs(t, err, errors.ErrRoundNotReady)
	_, err = store.Get(ctx, artifact.GlobalKey(created.ID, ref))
	assert.ErrorIs(t, err, errors.ErrNotFound)

	// A quorum above the published count is still short.
	err = svc.Aggregate(ctx, created.ID, ref, 2)
	assert.ErrorIs(t, err, errors.ErrRoundNotReady)

	// An explicit quorum of one closes the round over the partial set.
	require.NoError(t, svc.Aggregate(ctx, created.ID, ref, 1))

	blob, err := svc.GlobalStats(ctx, created.ID, ref)
	require.NoError(t, err)
	globals, err := artifact.DecodeLines[payload.LinearGlobal](blob)
	require.NoError(t, err)
	require.Len(t, globals, 1)
	assert.Equal(t, 1, globals[0].NSites)
}

func TestAggregateUnknownSequence(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	created, err := svc.CreateRun(ctx, trialRun("siteA"))
	require.NoError(t, err)

	err = svc.Aggregate(ctx, created.ID, run.RoundRef{Sequence: 9, Round: 1}, 0)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestWaitRound(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	ref := run.RoundRef{Sequence: 1, Round: 1}

	created, err := svc.CreateRun(ctx, trialRun("siteA", "siteB"))
	require.NoError(t, err)

	policy := coordinator.WaitPolicy{Timeout: 50 * time.Millisecond, PollInterval: 5 * time.Millisecond}

	// Nothing published: the timeout strikes below quorum.
	published, err := svc.WaitRound(ctx, created.ID, ref, policy)
	assert.ErrorIs(t, err, errors.ErrQuorumNotMet)
	assert.Equal(t, 0, published)

	// One of two published with quorum 1: timeout proceeds.
	require.NoError(t, store.Put(ctx, artifact.LocalKey(created.ID, ref, "siteA"), localLinearBlob(t, 10, 1.0, 0.5)))
	policy.Quorum = 1
	published, err = svc.WaitRound(ctx, created.ID, ref, policy)
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	// All published: returns without waiting for the timeout.
	require.NoError(t, store.Put(ctx, artifact.LocalKey(created.ID, ref, "siteB"), localLinearBlob(t, 6, 2.0, 1.0)))
	policy.Quorum = 0
	published, err = svc.WaitRound(ctx, created.ID, ref, policy)
	require.NoError(t, err)
	assert.Equal(t, 2, published)
}

func TestWaitRoundContextCancelled(t *testing.T) {
	svc, _ := newService()
	ref := run.RoundRef{Sequence: 1, Round: 1}

	created, err := svc.CreateRun(context.Background(), trialRun("siteA"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.WaitRound(ctx, created.ID, ref, coordinator.WaitPolicy{PollInterval: time.Millisecond})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEndToEndRound(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	ref := run.RoundRef{Sequence: 1, Round: 1}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	created, err := svc.CreateRun(ctx, trialRun("siteA", "siteB"))
	require.NoError(t, err)

	sources := map[string]site.SliceSource{
		"siteA": {
			X: [][]float64{
				{0, 1.2}, {0, 2.5}, {0, 0.8}, {0, 3.1}, {0, 1.9},
				{1, 1.4}, {1, 2.8}, {1, 0.9}, {1, 3.3}, {1, 2.1},
			},
			Y: []float64{1.1, 2.3, 0.9, 2.8, 1.8, 3.2, 4.4, 2.9, 5.1, 4.0},
		},
		"siteB": {
			X: [][]float64{
				{0, 2.2}, {0, 1.5}, {0, 2.8}, {1, 1.1}, {1, 2.4},
				{1, 3.0}, {0, 0.7}, {1, 1.8}, {0, 3.2}, {1, 2.6},
			},
			Y: []float64{2.0, 1.4, 2.6, 3.0, 4.1, 4.8, 0.8, 3.5, 3.0, 4.3},
		},
	}

	for name, source := range sources {
		ctrl, err := site.NewController(site.NewSite(name), created, ref, source, store, logger)
		require.NoError(t, err)
		require.NoError(t, ctrl.RunRound(ctx))
	}

	published, err := svc.WaitRound(ctx, created.ID, ref, coordinator.WaitPolicy{Timeout: time.Second, PollInterval: 5 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 2, published)

	require.NoError(t, svc.Aggregate(ctx, created.ID, ref, 0))

	blob, err := svc.GlobalStats(ctx, created.ID, ref)
	require.NoError(t, err)
	globals, err := artifact.DecodeLines[payload.LinearGlobal](blob)
	require.NoError(t, err)
	require.Len(t, globals, 1)

	global := globals[0]
	assert.Equal(t, 16, global.TotalSampleSize)
	assert.Equal(t, 2, global.NSites)
	require.Len(t, global.Coef, 3)
	// Both sites carry a positive group effect; pooling preserves it.
	assert.Greater(t, global.Coef[1], 0.0)
	assert.Greater(t, global.RSquared, 0.0)
	assert.LessOrEqual(t, global.RSquared, 1.0)
}
