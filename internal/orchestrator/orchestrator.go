// Package orchestrator drives each job through its pipeline: upload,
// starting, analyzing, reporting, completed. Every stage transition is one
// atomic store update; a stage failure halts progression and leaves later
// stages pending.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"a11y-checker/internal/aggregate"
	"a11y-checker/internal/analyzer"
	"a11y-checker/internal/config"
	"a11y-checker/internal/filetype"
	"a11y-checker/internal/limiter"
	"a11y-checker/internal/models"
	"a11y-checker/internal/storage"
	"a11y-checker/internal/store"
	"a11y-checker/internal/telemetry"
)

// Analyzer is the external analysis boundary.
type Analyzer interface {
	Invoke(ctx context.Context, req analyzer.Request) (analyzer.Invocation, error)
	ConfigSnapshot() models.AnalyzerConfig
}

// Builder produces and persists report artifacts.
type Builder interface {
	Build(ctx context.Context, jobID, fileType string, results []models.AnalysisResult, consolidated models.ConsolidatedReport) ([]models.Artifact, error)
}

// Resource is one submitted document.
type Resource struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Orchestrator owns job records; nothing else mutates them.
type Orchestrator struct {
	cfg      config.Config
	jobs     store.JobStore
	objects  storage.ObjectStore
	analyzer Analyzer
	builder  Builder
}

// New wires the pipeline dependencies.
func New(cfg config.Config, jobs store.JobStore, objects storage.ObjectStore, an Analyzer, builder Builder) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		jobs:     jobs,
		objects:  objects,
		analyzer: an,
		builder:  builder,
	}
}

// Submit validates the input, creates the job record, and starts the
// pipeline in the background. The job id returns immediately; analysis has
// not necessarily begun when it does.
func (o *Orchestrator) Submit(ctx context.Context, resources []Resource, declaredType string) (string, error) {
	if len(resources) == 0 {
		return "", &models.ValidationError{Msg: "no file submitted"}
	}
	for _, res := range resources {
		if res.Filename == "" {
			return "", &models.ValidationError{Msg: "submitted file has no name"}
		}
	}
	fileType, err := filetype.Classify(declaredType, resources[0].ContentType, resources[0].Filename)
	if err != nil {
		return "", err
	}

	job := models.NewJob(uuid.New().String(), fileType, resources[0].Filename)
	if err := o.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	telemetry.JobsSubmitted.Inc()

	// The pipeline outlives the request; cancellation of submitted jobs is
	// not supported.
	go o.runPipeline(context.WithoutCancel(ctx), job.ID, fileType, resources)

	return job.ID, nil
}

// Job returns a snapshot for status queries; it never blocks on the
// pipeline.
func (o *Orchestrator) Job(ctx context.Context, id string) (models.Job, error) {
	return o.jobs.Get(ctx, id)
}

// Jobs lists all known jobs, newest first.
func (o *Orchestrator) Jobs(ctx context.Context) ([]models.Job, error) {
	return o.jobs.List(ctx)
}

// Artifact resolves a download key to its recorded artifact.
func (o *Orchestrator) Artifact(ctx context.Context, key string) (models.Artifact, error) {
	return o.jobs.LookupArtifact(ctx, key)
}

// runPipeline executes every stage for one job. All failures, including
// panics, are captured and written back to the job record; nothing escapes
// this goroutine.
func (o *Orchestrator) runPipeline(ctx context.Context, jobID, fileType string, resources []Resource) {
	telemetry.JobsInFlight.Inc()
	defer telemetry.JobsInFlight.Dec()
	defer func() {
		if r := recover(); r != nil {
			o.failStage(ctx, jobID, o.activeStage(ctx, jobID), fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	uploads, err := o.uploadStage(ctx, jobID, fileType, resources)
	if err != nil {
		o.failStage(ctx, jobID, models.StageUpload, err)
		return
	}

	requests, err := o.startingStage(ctx, jobID, fileType, resources, uploads)
	if err != nil {
		o.failStage(ctx, jobID, models.StageStarting, err)
		return
	}

	results, err := o.analyzingStage(ctx, jobID, requests)
	if err != nil {
		telemetry.AnalyzerFailures.Inc()
		o.failStage(ctx, jobID, models.StageAnalyzing, err)
		return
	}

	o.reportingStage(ctx, jobID, fileType, results)
}

// activeStage reads the job record and returns the stage currently in
// flight, so a recovered panic is attributed to whichever stage it actually
// interrupted. Falls back to the first pending stage when the panic hit
// between transitions, and to upload when the record cannot be read.
func (o *Orchestrator) activeStage(ctx context.Context, jobID string) string {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return models.StageUpload
	}
	for _, stage := range models.StageOrder {
		if job.Stages[stage] == models.StageRunning {
			return stage
		}
	}
	for _, stage := range models.StageOrder {
		if job.Stages[stage] == models.StagePending {
			return stage
		}
	}
	return models.StageCompleted
}

// uploadStage persists every resource to the object store under a temp key.
// The container is chosen here, once, from the file type.
func (o *Orchestrator) uploadStage(ctx context.Context, jobID, fileType string, resources []Resource) ([]models.StoredObject, error) {
	container, err := storage.ContainerFor(o.cfg, fileType)
	if err != nil {
		return nil, err
	}
	uploads := make([]models.StoredObject, 0, len(resources))
	for _, res := range resources {
		key := fmt.Sprintf("uploads/%s/%s", jobID, res.Filename)
		contentType := res.ContentType
		if contentType == "" {
			contentType = storage.ContentTypeFor(res.Filename)
		}
		if err := o.objects.Put(ctx, container, key, res.Data, contentType); err != nil {
			return nil, err
		}
		uploads = append(uploads, models.StoredObject{Container: container, Key: key})
	}

	_, err = o.jobs.Update(ctx, jobID, func(j *models.Job) error {
		j.Status = models.StatusRunning
		j.Uploads = uploads
		if err := j.SetStage(models.StageUpload, models.StageDone); err != nil {
			return err
		}
		return j.SetStage(models.StageStarting, models.StageRunning)
	})
	if err != nil {
		return nil, err
	}
	return uploads, nil
}

// startingStage prepares one analyzer request per stored resource.
func (o *Orchestrator) startingStage(ctx context.Context, jobID, fileType string, resources []Resource, uploads []models.StoredObject) ([]analyzer.Request, error) {
	if len(uploads) != len(resources) {
		return nil, fmt.Errorf("stored %d resources, expected %d", len(uploads), len(resources))
	}
	requests := make([]analyzer.Request, len(resources))
	for i, res := range resources {
		requests[i] = analyzer.Request{
			ResourceID: res.Filename,
			Container:  uploads[i].Container,
			Key:        uploads[i].Key,
			FileType:   fileType,
		}
	}

	_, err := o.jobs.Update(ctx, jobID, func(j *models.Job) error {
		if err := j.SetStage(models.StageStarting, models.StageDone); err != nil {
			return err
		}
		return j.SetStage(models.StageAnalyzing, models.StageRunning)
	})
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// analyzingStage invokes the analyzer for every resource under bounded
// concurrency. A non-completed analyzer status, recognized or not, becomes
// a descriptive error rather than a crash.
func (o *Orchestrator) analyzingStage(ctx context.Context, jobID string, requests []analyzer.Request) ([]models.AnalysisResult, error) {
	tasks := make([]limiter.Task[analyzer.Invocation], len(requests))
	for i, req := range requests {
		req := req
		tasks[i] = func(ctx context.Context) (analyzer.Invocation, error) {
			return o.analyzer.Invoke(ctx, req)
		}
	}
	outcomes := limiter.Run(ctx, tasks, o.cfg.Concurrency)

	analyzedAt := time.Now().UTC()
	snapshot := o.analyzer.ConfigSnapshot()
	var results []models.AnalysisResult
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			return nil, fmt.Errorf("analyze %s: %w", requests[i].ResourceID, outcome.Err)
		}
		inv := outcome.Value
		switch inv.Status {
		case analyzer.StatusCompleted:
			// ok
		case analyzer.StatusError:
			msg := inv.Error
			if msg == "" {
				msg = "analyzer reported an error without detail"
			}
			return nil, fmt.Errorf("analyze %s: %s", requests[i].ResourceID, msg)
		default:
			return nil, fmt.Errorf("analyze %s: analyzer returned unknown status %q", requests[i].ResourceID, inv.Status)
		}
		for _, raw := range inv.Results {
			if raw.ResourceID == "" {
				raw.ResourceID = requests[i].ResourceID
			}
			results = append(results, aggregate.BuildResult(raw, snapshot, analyzedAt))
		}
	}

	_, err := o.jobs.Update(ctx, jobID, func(j *models.Job) error {
		if err := j.SetStage(models.StageAnalyzing, models.StageDone); err != nil {
			return err
		}
		return j.SetStage(models.StageReporting, models.StageRunning)
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// reportingStage builds artifacts and finalizes the job. Artifacts produced
// before a failure are attached to the job either way; upload failures
// alone never fail the stage.
func (o *Orchestrator) reportingStage(ctx context.Context, jobID, fileType string, results []models.AnalysisResult) {
	consolidated := aggregate.Consolidate(results, time.Now().UTC())
	artifacts, buildErr := o.builder.Build(ctx, jobID, fileType, results, consolidated)

	for _, art := range artifacts {
		if art.Status != models.ArtifactUploaded {
			continue
		}
		if err := o.jobs.RecordArtifact(ctx, art); err != nil {
			log.Printf("job %s: index artifact %s: %v", jobID, art.Name, err)
		}
	}

	_, err := o.jobs.Update(ctx, jobID, func(j *models.Job) error {
		j.Results = artifacts
		j.Report = &consolidated
		return nil
	})
	if err != nil {
		log.Printf("job %s: attach results: %v", jobID, err)
	}

	if buildErr != nil {
		o.failStage(ctx, jobID, models.StageReporting, buildErr)
		return
	}

	now := time.Now().UTC()
	_, err = o.jobs.Update(ctx, jobID, func(j *models.Job) error {
		if err := j.SetStage(models.StageReporting, models.StageDone); err != nil {
			return err
		}
		if err := j.SetStage(models.StageCompleted, models.StageDone); err != nil {
			return err
		}
		j.Status = models.StatusCompleted
		j.FinishedAt = &now
		return nil
	})
	if err != nil {
		log.Printf("job %s: finalize: %v", jobID, err)
		return
	}
	telemetry.JobsCompleted.Inc()
}

// failStage records a stage failure on the job. The message is retained
// verbatim; earlier completed stages keep their status and later stages
// stay pending.
func (o *Orchestrator) failStage(ctx context.Context, jobID, stage string, cause error) {
	stageErr := &models.StageError{Stage: stage, Err: cause}
	log.Printf("job %s: %v", jobID, stageErr)

	now := time.Now().UTC()
	msg := cause.Error()
	_, err := o.jobs.Update(ctx, jobID, func(j *models.Job) error {
		// The failing stage may still be pending if it broke before its
		// running transition was written; force it through running first.
		if j.Stages[stage] == models.StagePending {
			if err := j.SetStage(stage, models.StageRunning); err != nil {
				return err
			}
		}
		if err := j.SetStage(stage, models.StageFailed); err != nil {
			return err
		}
		j.Status = models.StatusError
		j.Error = &msg
		j.FinishedAt = &now
		return nil
	})
	if err != nil {
		log.Printf("job %s: record stage failure: %v", jobID, err)
	}
	telemetry.JobsFailed.Inc()
}
