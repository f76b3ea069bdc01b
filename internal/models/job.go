package models

import (
	"fmt"
	"time"
)

// JobStatus enumerates job lifecycle states surfaced by the status API.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Stage names, traversed strictly in this order.
const (
	StageUpload    = "upload"
	StageStarting  = "starting"
	StageAnalyzing = "analyzing"
	StageReporting = "reporting"
	StageCompleted = "completed"
)

// StageOrder is the canonical pipeline sequence.
var StageOrder = []string{StageUpload, StageStarting, StageAnalyzing, StageReporting, StageCompleted}

// Stage statuses. Transitions only move forward:
// pending -> running -> completed|error.
const (
	StagePending = "pending"
	StageRunning = "running"
	StageDone    = "completed"
	StageFailed  = "error"
)

var stageRank = map[string]int{
	StagePending: 0,
	StageRunning: 1,
	StageDone:    2,
	StageFailed:  2,
}

// FileType tags accepted at submission.
const (
	FileTypePDF  = "pdf"
	FileTypeHTML = "html"
)

// Job is one analysis request tracked through the pipeline.
type Job struct {
	ID         string              `json:"id"`
	FileType   string              `json:"fileType"`
	Filename   string              `json:"filename"`
	Status     string              `json:"status"`
	Stages     map[string]string   `json:"stages"`
	CreatedAt  time.Time           `json:"createdAt"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
	Error      *string             `json:"error,omitempty"`
	Results    []Artifact          `json:"results,omitempty"`
	Report     *ConsolidatedReport `json:"report,omitempty"`

	// Temporary uploads pending cleanup by the sweeper.
	Uploads []StoredObject `json:"uploads,omitempty"`
}

// StoredObject records where a resource was persisted. The container is
// fixed at write time and never re-derived from the key.
type StoredObject struct {
	Container string `json:"container"`
	Key       string `json:"key"`
}

// NewJob builds a pending job with every stage at pending except upload,
// which starts running immediately.
func NewJob(id, fileType, filename string) Job {
	stages := make(map[string]string, len(StageOrder))
	for _, s := range StageOrder {
		stages[s] = StagePending
	}
	stages[StageUpload] = StageRunning
	return Job{
		ID:        id,
		FileType:  fileType,
		Filename:  filename,
		Status:    StatusPending,
		Stages:    stages,
		CreatedAt: time.Now().UTC(),
	}
}

// SetStage applies a stage transition, rejecting any move backwards and any
// change to a stage that already reached a terminal status.
func (j *Job) SetStage(name, status string) error {
	cur, ok := j.Stages[name]
	if !ok {
		return fmt.Errorf("unknown stage %q", name)
	}
	next, ok := stageRank[status]
	if !ok {
		return fmt.Errorf("unknown stage status %q", status)
	}
	if cur == StageDone || cur == StageFailed {
		return fmt.Errorf("stage %s already finished as %s", name, cur)
	}
	if next < stageRank[cur] {
		return fmt.Errorf("stage %s cannot move from %s back to %s", name, cur, status)
	}
	j.Stages[name] = status
	return nil
}

// Finished reports whether the job reached a terminal status.
func (j *Job) Finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusError
}
