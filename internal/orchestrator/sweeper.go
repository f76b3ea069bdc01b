package orchestrator

import (
	"context"
	"log"
	"time"

	"a11y-checker/internal/models"
	"a11y-checker/internal/telemetry"
)

// RunSweeper periodically deletes temporary uploaded resources belonging to
// finished jobs once their retention window has passed. Deletion is
// best-effort: failures are logged and counted but never touch job status,
// and a failed delete is retried on the next sweep.
func (o *Orchestrator) RunSweeper(ctx context.Context) {
	interval := o.cfg.CleanupInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.sweep(ctx)
		}
	}
}

func (o *Orchestrator) sweep(ctx context.Context) {
	jobs, err := o.jobs.List(ctx)
	if err != nil {
		log.Printf("sweep: list jobs: %v", err)
		return
	}
	cutoff := time.Now().Add(-o.cfg.CleanupRetention)

	for _, job := range jobs {
		if !job.Finished() || len(job.Uploads) == 0 {
			continue
		}
		if job.FinishedAt == nil || job.FinishedAt.After(cutoff) {
			continue
		}

		var remaining []models.StoredObject
		for _, obj := range job.Uploads {
			if err := o.objects.Delete(ctx, obj.Container, obj.Key); err != nil {
				log.Printf("sweep: delete %s/%s: %v", obj.Container, obj.Key, err)
				telemetry.CleanupFailures.Inc()
				remaining = append(remaining, obj)
			}
		}

		_, err := o.jobs.Update(ctx, job.ID, func(j *models.Job) error {
			j.Uploads = remaining
			return nil
		})
		if err != nil {
			log.Printf("sweep: update job %s: %v", job.ID, err)
		}
	}
}
