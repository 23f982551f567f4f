// Package memstore is the in-memory job store used when no database is
// configured. State lives for the process lifetime only.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"retailpulse/domain/core"
	"retailpulse/domain/forecast"
	"retailpulse/ports"
)

// JobStore implements ports.JobStore with a mutex-guarded map. Jobs are
// stored and returned as deep clones so callers can never mutate shared
// state outside Update, not even through result rows.
type JobStore struct {
	mu        sync.RWMutex
	jobs      map[core.JobID]*forecast.Job
	byDataset map[core.DatasetID][]core.JobID
	sequences map[core.DatasetID]int64
}

// NewJobStore creates an empty in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:      make(map[core.JobID]*forecast.Job),
		byDataset: make(map[core.DatasetID][]core.JobID),
		sequences: make(map[core.DatasetID]int64),
	}
}

var _ ports.JobStore = (*JobStore)(nil)

func (s *JobStore) Create(_ context.Context, job *forecast.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[job.DatasetID]++
	job.Sequence = s.sequences[job.DatasetID]

	s.jobs[job.ID] = job.Clone()
	s.byDataset[job.DatasetID] = append(s.byDataset[job.DatasetID], job.ID)
	return nil
}

func (s *JobStore) Get(_ context.Context, id core.JobID) (*forecast.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	return job.Clone(), nil
}

func (s *JobStore) Latest(_ context.Context, datasetID core.DatasetID) (*forecast.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byDataset[datasetID]
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no jobs for dataset %s", core.ErrJobNotFound, datasetID)
	}
	return s.jobs[ids[len(ids)-1]].Clone(), nil
}

func (s *JobStore) History(_ context.Context, datasetID core.DatasetID) ([]*forecast.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byDataset[datasetID]
	out := make([]*forecast.Job, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, s.jobs[ids[i]].Clone())
	}
	return out, nil
}

func (s *JobStore) Update(_ context.Context, id core.JobID, mutate func(*forecast.Job) error) (*forecast.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}

	// Mutate a scratch clone so a failed mutation leaves the record intact.
	scratch := job.Clone()
	if err := mutate(scratch); err != nil {
		return nil, err
	}
	s.jobs[id] = scratch

	return scratch.Clone(), nil
}
