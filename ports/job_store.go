package ports

import (
	"context"

	"retailpulse/domain/core"
	"retailpulse/domain/forecast"
)

// JobStore keeps forecast job records per dataset. Implementations must
// make Create assign a per-dataset sequence atomically, so Latest never
// observes a half-written record, and Update must apply its mutation under
// the same guarantee.
type JobStore interface {
	// Create persists a new job and assigns its dataset sequence.
	Create(ctx context.Context, job *forecast.Job) error
	// Get returns the job or core.ErrJobNotFound.
	Get(ctx context.Context, id core.JobID) (*forecast.Job, error)
	// Latest returns the most recently created job for the dataset, or
	// core.ErrJobNotFound when the dataset has none.
	Latest(ctx context.Context, datasetID core.DatasetID) (*forecast.Job, error)
	// History returns all jobs for the dataset, most recent first.
	History(ctx context.Context, datasetID core.DatasetID) ([]*forecast.Job, error)
	// Update applies mutate to the stored job atomically and returns the
	// updated copy. A mutate error aborts the update.
	Update(ctx context.Context, id core.JobID, mutate func(*forecast.Job) error) (*forecast.Job, error)
}
