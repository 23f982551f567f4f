// Package forecast holds the job lifecycle and the canonical purchase plan
// shape shared by both prediction pipelines.
package forecast

import (
	"fmt"

	"retailpulse/domain/core"
)

// Status is a forecast job state. Completed and failed are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a job in this state can still change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Pipeline selects which prediction path a run takes.
type Pipeline string

const (
	PipelineStandard Pipeline = "standard"
	PipelineML       Pipeline = "ml"
)

// ParsePipeline validates a caller-supplied pipeline name.
func ParsePipeline(s string) (Pipeline, error) {
	switch Pipeline(s) {
	case PipelineStandard, PipelineML:
		return Pipeline(s), nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownPipeline, s)
	}
}

// ErrorClass classifies a failed job for retry-policy purposes.
type ErrorClass string

const (
	// ErrorTransport means the service was unreachable. Retrying is safe.
	ErrorTransport ErrorClass = "transport"
	// ErrorTimeout means the call exceeded its deadline. Retry with a
	// reduced scope rather than as-is.
	ErrorTimeout ErrorClass = "timeout"
	// ErrorModel means the service answered but signalled an internal
	// failure. Do not retry automatically; surface to an operator.
	ErrorModel ErrorClass = "model_error"
)

// JobError is the classified cause attached to a failed job.
type JobError struct {
	Class   ErrorClass `json:"class"`
	Message string     `json:"message"`
}

// Advice returns the recommended user action for this failure class.
func (e JobError) Advice() string {
	switch e.Class {
	case ErrorTimeout:
		return "retry with a shorter date range or fewer stores"
	case ErrorTransport:
		return "check the forecasting service and retry"
	case ErrorModel:
		return "switch pipeline or contact support; automatic retry will not help"
	default:
		return "contact support"
	}
}

// Job is one forecast run for a dataset. A new run request always creates a
// new job; prior jobs stay queryable but are never resurrected. Only the
// orchestrator mutates a job, always through the transition methods below.
type Job struct {
	ID           core.JobID     `json:"id"`
	DatasetID    core.DatasetID `json:"dataset_id"`
	Sequence     int64          `json:"sequence"`
	Status       Status         `json:"status"`
	Pipeline     Pipeline       `json:"pipeline"`
	TargetSeason string         `json:"target_season"`

	ProgressPercent           int  `json:"progress_percent"`
	ProcessedCount            int  `json:"processed_count"`
	TotalCount                int  `json:"total_count"`
	EstimatedSecondsRemaining *int `json:"estimated_seconds_remaining,omitempty"`

	Result *PurchasePlan `json:"result,omitempty"`
	Error  *JobError     `json:"error,omitempty"`

	CreatedAt core.Timestamp `json:"created_at"`
	UpdatedAt core.Timestamp `json:"updated_at"`
}

// Clone returns a job that shares no mutable state with the receiver.
// Stores hand out clones so callers cannot alias a persisted record.
func (j *Job) Clone() *Job {
	out := *j
	if j.EstimatedSecondsRemaining != nil {
		eta := *j.EstimatedSecondsRemaining
		out.EstimatedSecondsRemaining = &eta
	}
	if j.Result != nil {
		plan := j.Result.Clone()
		out.Result = &plan
	}
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	return &out
}

// NewJob creates a pending job.
func NewJob(datasetID core.DatasetID, pipeline Pipeline, targetSeason string) *Job {
	now := core.Now()
	return &Job{
		ID:           core.NewJobID(),
		DatasetID:    datasetID,
		Status:       StatusPending,
		Pipeline:     pipeline,
		TargetSeason: targetSeason,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Start moves pending → running and records the known work size.
func (j *Job) Start(totalCount int) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s -> running", core.ErrJobTerminal, j.Status)
	}
	if j.Status != StatusPending {
		return fmt.Errorf("%w: %s -> running", core.ErrIllegalTransition, j.Status)
	}
	j.Status = StatusRunning
	j.TotalCount = totalCount
	j.UpdatedAt = core.Now()
	return nil
}

// Progress records a running → running update. Processed counts are
// monotonic: a stale update reporting less work than already observed is
// dropped rather than rolled back.
func (j *Job) Progress(processed int, etaSeconds *int) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: progress on %s job", core.ErrJobTerminal, j.Status)
	}
	if j.Status != StatusRunning {
		return fmt.Errorf("%w: progress on %s job", core.ErrIllegalTransition, j.Status)
	}
	if processed < j.ProcessedCount {
		return nil
	}
	j.ProcessedCount = processed
	if j.TotalCount > 0 {
		pct := processed * 100 / j.TotalCount
		if pct > 99 {
			// 100 is reserved for completion.
			pct = 99
		}
		if pct > j.ProgressPercent {
			j.ProgressPercent = pct
		}
	}
	j.EstimatedSecondsRemaining = etaSeconds
	j.UpdatedAt = core.Now()
	return nil
}

// Complete moves running → completed and attaches the reconciled plan.
// Progress is forced to exactly 100.
func (j *Job) Complete(plan PurchasePlan) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s -> completed", core.ErrJobTerminal, j.Status)
	}
	if j.Status != StatusRunning {
		return fmt.Errorf("%w: %s -> completed", core.ErrIllegalTransition, j.Status)
	}
	j.Status = StatusCompleted
	j.Result = &plan
	j.ProgressPercent = 100
	j.ProcessedCount = j.TotalCount
	j.EstimatedSecondsRemaining = nil
	j.UpdatedAt = core.Now()
	return nil
}

// Fail moves pending/running → failed with a classified cause. The result
// stays unset.
func (j *Job) Fail(class ErrorClass, message string) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s -> failed", core.ErrJobTerminal, j.Status)
	}
	j.Status = StatusFailed
	j.Error = &JobError{Class: class, Message: message}
	j.EstimatedSecondsRemaining = nil
	j.UpdatedAt = core.Now()
	return nil
}
