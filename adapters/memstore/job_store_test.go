package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/domain/core"
	"retailpulse/domain/forecast"
)

func TestCreate_AssignsPerDatasetSequences(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	a1 := forecast.NewJob("ds-a", forecast.PipelineStandard, "next_PV")
	a2 := forecast.NewJob("ds-a", forecast.PipelineStandard, "next_PV")
	b1 := forecast.NewJob("ds-b", forecast.PipelineML, "next_OI")

	require.NoError(t, store.Create(ctx, a1))
	require.NoError(t, store.Create(ctx, a2))
	require.NoError(t, store.Create(ctx, b1))

	assert.Equal(t, int64(1), a1.Sequence)
	assert.Equal(t, int64(2), a2.Sequence)
	assert.Equal(t, int64(1), b1.Sequence, "sequences are per dataset")
}

func TestGet_NotFound(t *testing.T) {
	store := NewJobStore()
	_, err := store.Get(context.Background(), core.NewJobID())
	assert.ErrorIs(t, err, core.ErrJobNotFound)
}

func TestLatestAndHistory(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	first := forecast.NewJob("ds-a", forecast.PipelineStandard, "next_PV")
	second := forecast.NewJob("ds-a", forecast.PipelineML, "next_PV")
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	latest, err := store.Latest(ctx, "ds-a")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	history, err := store.History(ctx, "ds-a")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "history is most recent first")
	assert.Equal(t, first.ID, history[1].ID)

	_, err = store.Latest(ctx, "ds-missing")
	assert.ErrorIs(t, err, core.ErrJobNotFound)
}

func TestUpdate_MutationErrorLeavesRecordIntact(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := forecast.NewJob("ds-a", forecast.PipelineStandard, "next_PV")
	require.NoError(t, store.Create(ctx, job))

	_, err := store.Update(ctx, job.ID, func(j *forecast.Job) error {
		j.Status = forecast.StatusRunning
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, forecast.StatusPending, got.Status, "failed mutation must not leak")
}

func TestGet_ReturnsCopy(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := forecast.NewJob("ds-a", forecast.PipelineStandard, "next_PV")
	require.NoError(t, store.Create(ctx, job))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	got.Status = forecast.StatusFailed

	again, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, forecast.StatusPending, again.Status, "callers must not mutate stored state")
}

func TestGet_ResultRowsDoNotAliasStore(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := forecast.NewJob("ds-a", forecast.PipelineStandard, "next_PV")
	require.NoError(t, store.Create(ctx, job))
	_, err := store.Update(ctx, job.ID, func(j *forecast.Job) error {
		if err := j.Start(1); err != nil {
			return err
		}
		return j.Complete(forecast.PurchasePlan{
			ModelName: "ensemble",
			Rows:      []forecast.PlanRow{{Section: "FAMILIA A", Units: 10}},
			Totals:    forecast.PlanRow{Section: "TOTAL", Units: 10},
		})
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	got.Result.Rows[0].Units = 999
	got.Result.Rows[0].Section = "SCRIBBLED"

	again, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "FAMILIA A", again.Result.Rows[0].Section, "plan rows must not share a backing array")
	assert.Equal(t, 10, again.Result.Rows[0].Units)
}

func TestUpdate_ConcurrentProgress(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := forecast.NewJob("ds-a", forecast.PipelineStandard, "next_PV")
	require.NoError(t, store.Create(ctx, job))
	_, err := store.Update(ctx, job.ID, func(j *forecast.Job) error {
		return j.Start(100)
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(processed int) {
			defer wg.Done()
			_, err := store.Update(ctx, job.ID, func(j *forecast.Job) error {
				return j.Progress(processed, nil)
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.ProcessedCount, "highest processed count wins")
	assert.Equal(t, 99, got.ProgressPercent, "100 is reserved for completion")
}
