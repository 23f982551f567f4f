package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"retailpulse/domain/core"
	"retailpulse/domain/forecast"
	"retailpulse/ports"
)

// ForecastService orchestrates forecast jobs: one job per run request,
// executed on its own goroutine, with every state change persisted through
// the job store. A job left behind by a newer request still runs to a
// terminal state; it simply stops being the dataset's latest.
type ForecastService struct {
	analytics *AnalyticsService
	store     ports.JobStore
	ensemble  ports.EnsemblePipeline
	model     ports.ModelService

	horizonMonths int
}

// NewForecastService creates the orchestrator.
func NewForecastService(analytics *AnalyticsService, store ports.JobStore, ensemble ports.EnsemblePipeline, model ports.ModelService, horizonMonths int) *ForecastService {
	return &ForecastService{
		analytics:     analytics,
		store:         store,
		ensemble:      ensemble,
		model:         model,
		horizonMonths: horizonMonths,
	}
}

// Run validates the request, persists a pending job, and starts execution
// in the background. The returned job is the pending record; callers poll
// it by ID.
func (s *ForecastService) Run(ctx context.Context, datasetID core.DatasetID, pipelineName, targetSeason string) (*forecast.Job, error) {
	pipeline, err := forecast.ParsePipeline(pipelineName)
	if err != nil {
		return nil, err
	}
	if _, err := s.analytics.Dataset(datasetID); err != nil {
		return nil, err
	}

	job := forecast.NewJob(datasetID, pipeline, targetSeason)
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "forecast").
		Str("job", job.ID.String()).
		Str("dataset", datasetID.String()).
		Str("pipeline", string(pipeline)).
		Int64("sequence", job.Sequence).
		Msg("job created")

	// Execution outlives the request context.
	go s.execute(context.Background(), job.ID)

	return job, nil
}

// Job returns one job by ID.
func (s *ForecastService) Job(ctx context.Context, id core.JobID) (*forecast.Job, error) {
	return s.store.Get(ctx, id)
}

// Latest returns the most recently requested job for the dataset.
func (s *ForecastService) Latest(ctx context.Context, datasetID core.DatasetID) (*forecast.Job, error) {
	return s.store.Latest(ctx, datasetID)
}

// History returns the dataset's jobs, most recent first.
func (s *ForecastService) History(ctx context.Context, datasetID core.DatasetID) ([]*forecast.Job, error) {
	return s.store.History(ctx, datasetID)
}

func (s *ForecastService) execute(ctx context.Context, jobID core.JobID) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("component", "forecast").Str("job", jobID.String()).Msg("job vanished before execution")
		return
	}

	result, runErr := s.runPipeline(ctx, job)

	if runErr != nil {
		s.fail(ctx, jobID, runErr)
		return
	}

	plan, err := forecast.Reconcile(result)
	if err != nil {
		s.fail(ctx, jobID, err)
		return
	}

	updated, err := s.store.Update(ctx, jobID, func(j *forecast.Job) error {
		return j.Complete(plan)
	})
	if err != nil {
		log.Error().Err(err).Str("component", "forecast").Str("job", jobID.String()).Msg("failed to complete job")
		return
	}

	s.logTerminal(ctx, updated, "job completed")
}

func (s *ForecastService) runPipeline(ctx context.Context, job *forecast.Job) (forecast.Result, error) {
	switch job.Pipeline {
	case forecast.PipelineStandard:
		return s.runStandard(ctx, job)
	case forecast.PipelineML:
		return s.runML(ctx, job)
	default:
		return forecast.Result{}, core.ErrUnknownPipeline
	}
}

func (s *ForecastService) runStandard(ctx context.Context, job *forecast.Job) (forecast.Result, error) {
	ds, err := s.analytics.Dataset(job.DatasetID)
	if err != nil {
		return forecast.Result{}, err
	}

	if _, err := s.store.Update(ctx, job.ID, func(j *forecast.Job) error {
		return j.Start(0)
	}); err != nil {
		return forecast.Result{}, err
	}

	started := time.Now()
	progress := func(processed, total int) {
		eta := etaSeconds(started, processed, total)
		if _, err := s.store.Update(ctx, job.ID, func(j *forecast.Job) error {
			if j.TotalCount == 0 {
				j.TotalCount = total
			}
			return j.Progress(processed, eta)
		}); err != nil {
			log.Warn().Err(err).Str("component", "forecast").Str("job", job.ID.String()).Msg("progress update dropped")
		}
	}

	res, err := s.ensemble.Run(ctx, ds, s.horizonMonths, job.TargetSeason, progress)
	if err != nil {
		return forecast.Result{}, err
	}
	return forecast.Result{Standard: res}, nil
}

func (s *ForecastService) runML(ctx context.Context, job *forecast.Job) (forecast.Result, error) {
	// Two coarse phases: train, then predict.
	if _, err := s.store.Update(ctx, job.ID, func(j *forecast.Job) error {
		return j.Start(2)
	}); err != nil {
		return forecast.Result{}, err
	}

	if err := s.model.Train(ctx, job.DatasetID); err != nil {
		return forecast.Result{}, err
	}
	if _, err := s.store.Update(ctx, job.ID, func(j *forecast.Job) error {
		return j.Progress(1, nil)
	}); err != nil {
		return forecast.Result{}, err
	}

	res, err := s.model.Predict(ctx, job.DatasetID, job.TargetSeason)
	if err != nil {
		return forecast.Result{}, err
	}
	return forecast.Result{ML: res}, nil
}

func (s *ForecastService) fail(ctx context.Context, jobID core.JobID, cause error) {
	class := classify(cause)
	updated, err := s.store.Update(ctx, jobID, func(j *forecast.Job) error {
		return j.Fail(class, cause.Error())
	})
	if err != nil {
		log.Error().Err(err).Str("component", "forecast").Str("job", jobID.String()).Msg("failed to record job failure")
		return
	}
	s.logTerminal(ctx, updated, "job failed")
}

// logTerminal notes whether the finished job is still the dataset's
// latest. A superseded job's result stays queryable by ID but is not
// surfaced as current.
func (s *ForecastService) logTerminal(ctx context.Context, job *forecast.Job, msg string) {
	evt := log.Info().
		Str("component", "forecast").
		Str("job", job.ID.String()).
		Str("dataset", job.DatasetID.String()).
		Str("status", string(job.Status))
	if job.Error != nil {
		evt = evt.Str("error_class", string(job.Error.Class)).Str("error", job.Error.Message)
	}
	if latest, err := s.store.Latest(ctx, job.DatasetID); err == nil && latest.ID != job.ID {
		evt = evt.Bool("superseded", true)
	}
	evt.Msg(msg)
}

// classify maps pipeline errors onto the job failure taxonomy. Anything
// the taxonomy does not name is a model-side failure.
func classify(err error) forecast.ErrorClass {
	switch {
	case errors.Is(err, core.ErrPipelineTimeout) || errors.Is(err, context.DeadlineExceeded):
		return forecast.ErrorTimeout
	case errors.Is(err, core.ErrPipelineTransport):
		return forecast.ErrorTransport
	default:
		return forecast.ErrorModel
	}
}

func etaSeconds(started time.Time, processed, total int) *int {
	if processed <= 0 || total <= processed {
		return nil
	}
	elapsed := time.Since(started).Seconds()
	remaining := int(elapsed / float64(processed) * float64(total-processed))
	return &remaining
}
