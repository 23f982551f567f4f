package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/adapters/memstore"
	"retailpulse/domain/core"
	"retailpulse/domain/forecast"
	"retailpulse/domain/ledger"
	"retailpulse/ports"
)

type fakeEnsemble struct {
	result *forecast.StandardResult
	err    error
}

func (f *fakeEnsemble) Run(_ context.Context, _ *ledger.Dataset, _ int, _ string, progress ports.ProgressFunc) (*forecast.StandardResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if progress != nil {
		progress(2, 4)
		progress(4, 4)
	}
	return f.result, nil
}

type fakeModel struct {
	trainErr   error
	predictErr error
	result     *forecast.MlResult
}

func (f *fakeModel) Train(context.Context, core.DatasetID) error { return f.trainErr }

func (f *fakeModel) Predict(context.Context, core.DatasetID, string) (*forecast.MlResult, error) {
	if f.predictErr != nil {
		return nil, f.predictErr
	}
	return f.result, nil
}

func standardResult() *forecast.StandardResult {
	mape := 20.0
	return &forecast.StandardResult{
		ModelName:         "seasonal-ensemble",
		TargetSeasonLabel: "PV26",
		CoveragePercent:   90,
		StoreCount:        5,
		MAPE:              &mape,
		Rows: []forecast.StandardRow{
			{Section: "VESTIDOS", Units: 100, RetailValue: 5000, CostValue: 2000, OptionCount: 10, SizeCount: 5},
		},
	}
}

func newForecastFixture(ensemble ports.EnsemblePipeline, model ports.ModelService) (*ForecastService, ports.JobStore) {
	analytics := NewAnalyticsService(nil)
	analytics.Register(analyticsFixture())
	store := memstore.NewJobStore()
	return NewForecastService(analytics, store, ensemble, model, 6), store
}

func waitTerminal(t *testing.T, store ports.JobStore, id core.JobID) *forecast.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestRun_UnknownPipeline(t *testing.T) {
	svc, _ := newForecastFixture(&fakeEnsemble{}, &fakeModel{})
	_, err := svc.Run(context.Background(), core.DatasetID("fix"), "quantum", "next_PV")
	assert.ErrorIs(t, err, core.ErrUnknownPipeline)
}

func TestRun_UnknownDataset(t *testing.T) {
	svc, _ := newForecastFixture(&fakeEnsemble{}, &fakeModel{})
	_, err := svc.Run(context.Background(), core.DatasetID("nope"), "standard", "next_PV")
	assert.True(t, core.IsNotFoundError(err))
}

func TestRun_StandardCompletes(t *testing.T) {
	svc, store := newForecastFixture(&fakeEnsemble{result: standardResult()}, &fakeModel{})

	job, err := svc.Run(context.Background(), core.DatasetID("fix"), "standard", "next_PV")
	require.NoError(t, err)
	assert.Equal(t, forecast.StatusPending, job.Status)
	assert.Equal(t, int64(1), job.Sequence)

	done := waitTerminal(t, store, job.ID)
	assert.Equal(t, forecast.StatusCompleted, done.Status)
	assert.Equal(t, 100, done.ProgressPercent)
	assert.Equal(t, 4, done.TotalCount, "total picked up from the first progress call")

	require.NotNil(t, done.Result)
	assert.Equal(t, "seasonal-ensemble", done.Result.ModelName)
	assert.Equal(t, "PV26", done.Result.TargetSeasonLabel)
	require.NotNil(t, done.Result.AccuracyPercent)
	assert.InDelta(t, 80, *done.Result.AccuracyPercent, 1e-9)
	assert.Equal(t, "TOTAL", done.Result.Totals.Section)
}

func TestRun_MLCompletes(t *testing.T) {
	cov := 85.0
	model := &fakeModel{result: &forecast.MlResult{
		Status:            "ok",
		TargetSeasonLabel: "PV26",
		ModelName:         "lightgbm",
		CoveragePercent:   &cov,
		PlanRows: []forecast.MlRow{
			{Section: "VESTIDOS", Units: 80, Retail: 4000, Cost: 1500},
		},
	}}
	svc, store := newForecastFixture(&fakeEnsemble{}, model)

	job, err := svc.Run(context.Background(), core.DatasetID("fix"), "ml", "next_PV")
	require.NoError(t, err)

	done := waitTerminal(t, store, job.ID)
	assert.Equal(t, forecast.StatusCompleted, done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, "lightgbm", done.Result.ModelName)
}

func TestRun_FailureClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want forecast.ErrorClass
	}{
		{"timeout", fmt.Errorf("train: %w", core.ErrPipelineTimeout), forecast.ErrorTimeout},
		{"deadline", context.DeadlineExceeded, forecast.ErrorTimeout},
		{"transport", fmt.Errorf("post: %w", core.ErrPipelineTransport), forecast.ErrorTransport},
		{"model", fmt.Errorf("predict: %w", core.ErrPipelineModel), forecast.ErrorModel},
		{"unclassified", errors.New("boom"), forecast.ErrorModel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newForecastFixture(&fakeEnsemble{}, &fakeModel{trainErr: tc.err})

			job, err := svc.Run(context.Background(), core.DatasetID("fix"), "ml", "next_PV")
			require.NoError(t, err)

			done := waitTerminal(t, store, job.ID)
			assert.Equal(t, forecast.StatusFailed, done.Status)
			require.NotNil(t, done.Error)
			assert.Equal(t, tc.want, done.Error.Class)
			assert.NotEmpty(t, done.Error.Advice())
		})
	}
}

func TestRun_EnsembleFailure(t *testing.T) {
	svc, store := newForecastFixture(&fakeEnsemble{err: fmt.Errorf("history: %w", core.ErrNoSeasonHistory)}, &fakeModel{})

	job, err := svc.Run(context.Background(), core.DatasetID("fix"), "standard", "next_OI")
	require.NoError(t, err)

	done := waitTerminal(t, store, job.ID)
	assert.Equal(t, forecast.StatusFailed, done.Status)
	require.NotNil(t, done.Error)
	assert.Equal(t, forecast.ErrorModel, done.Error.Class)
}

func TestRun_NewRunSupersedesLatest(t *testing.T) {
	svc, store := newForecastFixture(&fakeEnsemble{result: standardResult()}, &fakeModel{})
	ctx := context.Background()
	id := core.DatasetID("fix")

	first, err := svc.Run(ctx, id, "standard", "next_PV")
	require.NoError(t, err)
	waitTerminal(t, store, first.ID)

	second, err := svc.Run(ctx, id, "standard", "next_PV")
	require.NoError(t, err)
	waitTerminal(t, store, second.ID)

	latest, err := svc.Latest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, int64(2), latest.Sequence)

	// The superseded job stays fully queryable by ID.
	old, err := svc.Job(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, forecast.StatusCompleted, old.Status)

	history, err := svc.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
}
