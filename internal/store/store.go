// Package store holds job records and the artifact routing index. Every
// read-modify-write against a job is applied as a single atomic operation
// keyed by job id, so concurrent stage callbacks can never interleave
// partial writes to the same record.
package store

import (
	"context"

	"a11y-checker/internal/models"
)

// JobStore is the only state shared across concurrent jobs.
type JobStore interface {
	// Create inserts a new job record.
	Create(ctx context.Context, job models.Job) error
	// Get returns a snapshot of the job, or models.ErrNotFound.
	Get(ctx context.Context, id string) (models.Job, error)
	// Update applies mutate atomically against the current record and
	// returns the updated snapshot. If mutate returns an error nothing is
	// written.
	Update(ctx context.Context, id string, mutate func(*models.Job) error) (models.Job, error)
	// List returns snapshots of all jobs, newest first.
	List(ctx context.Context) ([]models.Job, error)

	// RecordArtifact indexes an uploaded artifact by its object key so
	// downloads can resolve the owning container without parsing the key.
	RecordArtifact(ctx context.Context, art models.Artifact) error
	// LookupArtifact resolves a previously recorded artifact, or
	// models.ErrNotFound.
	LookupArtifact(ctx context.Context, key string) (models.Artifact, error)
}

// cloneJob deep-copies a job so callers never alias stored state.
func cloneJob(j models.Job) models.Job {
	out := j
	out.Stages = make(map[string]string, len(j.Stages))
	for k, v := range j.Stages {
		out.Stages[k] = v
	}
	if j.Results != nil {
		out.Results = append([]models.Artifact(nil), j.Results...)
	}
	if j.Uploads != nil {
		out.Uploads = append([]models.StoredObject(nil), j.Uploads...)
	}
	if j.Error != nil {
		msg := *j.Error
		out.Error = &msg
	}
	if j.FinishedAt != nil {
		ts := *j.FinishedAt
		out.FinishedAt = &ts
	}
	if j.Report != nil {
		rep := *j.Report
		rep.Summary = cloneSummary(j.Report.Summary)
		if j.Report.Resources != nil {
			rep.Resources = append([]models.ResourceBreakdown(nil), j.Report.Resources...)
		}
		if j.Report.TopIssues != nil {
			rep.TopIssues = make([]models.TopIssue, len(j.Report.TopIssues))
			for i, ti := range j.Report.TopIssues {
				ti.Resources = append([]string(nil), ti.Resources...)
				rep.TopIssues[i] = ti
			}
		}
		out.Report = &rep
	}
	return out
}

func cloneSummary(s models.Summary) models.Summary {
	out := s
	if s.ByType != nil {
		out.ByType = make(map[string]int, len(s.ByType))
		for k, v := range s.ByType {
			out.ByType[k] = v
		}
	}
	if s.ByImpact != nil {
		out.ByImpact = make(map[string]int, len(s.ByImpact))
		for k, v := range s.ByImpact {
			out.ByImpact[k] = v
		}
	}
	return out
}
