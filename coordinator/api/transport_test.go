package api_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodneyosodo/starfish/coordinator"
	"github.com/rodneyosodo/starfish/coordinator/api"
	"github.com/rodneyosodo/starfish/payload"
	"github.com/rodneyosodo/starfish/pkg/artifact"
	"github.com/rodneyosodo/starfish/pkg/sdk"
	"github.com/rodneyosodo/starfish/pkg/storage"
	"github.com/rodneyosodo/starfish/run"
)

func setup(t *testing.T) (sdk.SDK, artifact.Store, *httptest.Server) {
	t.Helper()

	store := artifact.NewMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := coordinator.NewService(storage.NewInMemoryStorage(), store, logger)

	srv := httptest.NewServer(api.MakeHandler(svc, logger))
	t.Cleanup(srv.Close)

	return sdk.NewSDK(sdk.Config{CoordinatorURL: srv.URL}), store, srv
}

func localStats(sampleSize int, coef, stdErr float64) payload.LinearStats {
	return payload.LinearStats{
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
		DFResidual:    float64(sampleSize - 1),
		NGroupColumns: 1,
	}
}

func testRun() run.Run {
	return run.Run{
		Name:         "trial",
		Participants: []string{"siteA", "siteB"},
		Tasks: []run.TaskSpec{
			{Name: "ancova", Kind: run.KindLinear, NGroupColumns: 1},
		},
	}
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	s, _, _ := setup(t)

	created, err := s.CreateRun(testRun())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "trial", created.Name)

	got, err := s.GetRun(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	page, err := s.ListRuns(0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), page.Total)
	require.Len(t, page.Runs, 1)
	assert.Equal(t, created.ID, page.Runs[0].ID)

	_, err = s.GetRun("missing")
	assert.Error(t, err)
}

func TestCreateRunValidationOverHTTP(t *testing.T) {
	s, _, _ := setup(t)

	_, err := s.CreateRun(run.Run{Name: "no tasks", Participants: []string{"siteA"}})
	assert.Error(t, err)

	_, err = s.CreateRun(run.Run{
		Name:  "bad kind",
		Tasks: []run.TaskSpec{{Kind: "quadratic"}},
	})
	assert.Error(t, err)
}

func TestRoundOverHTTP(t *testing.T) {
	s, store, _ := setup(t)
	ctx := context.Background()
	ref := run.RoundRef{Sequence: 1, Round: 1}

	created, err := s.CreateRun(testRun())
	require.NoError(t, err)

	status, err := s.RoundStatus(created.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Published)
	assert.Equal(t, 2, status.Expected)
	assert.False(t, status.Ready)

	// Aggregating an empty round is a conflict, not a success.
	err = s.Aggregate(created.ID, ref, 0)
	assert.Error(t, err)

	blobA, err := artifact.EncodeLines(localStats(10, 1.0, 0.5))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, artifact.LocalKey(created.ID, ref, "siteA"), blobA))

	// One of two sites published: the round is not ready.
	err = s.Aggregate(created.ID, ref, 0)
	assert.Error(t, err)

	blobB, err := artifact.EncodeLines(localStats(6, 2.0, 1.0))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, artifact.LocalKey(created.ID, ref, "siteB"), blobB))

	require.NoError(t, s.Aggregate(created.ID, ref, 0))

	status, err = s.RoundStatus(created.ID, ref)
	require.NoError(t, err)
	assert.True(t, status.Ready)
	assert.True(t, status.Aggregated)

	stats, err := s.GlobalStats(created.ID, ref)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Contains(t, string(stats[0]), `"total_sample_size":16`)
}

func TestAggregateQuorumOverHTTP(t *testing.T) {
	s, store, _ := setup(t)
	ctx := context.Background()
	ref := run.RoundRef{Sequence: 1, Round: 1}

	created, err := s.CreateRun(testRun())
	require.NoError(t, err)

	blob, err := artifact.EncodeLines(localStats(10, 1.0, 0.5))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, artifact.LocalKey(created.ID, ref, "siteA"), blob))

	// An explicit quorum of one closes the round over the single payload.
	require.NoError(t, s.Aggregate(created.ID, ref, 1))

	stats, err := s.GlobalStats(created.ID, ref)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Contains(t, string(stats[0]), `"n_sites":1`)
}

func TestHealthAndMetrics(t *testing.T) {
	_, _, srv := setup(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
