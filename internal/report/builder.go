// Package report renders aggregated results into named artifacts and
// manages their persistence. All artifacts of one batch share a single
// minute-resolution timestamp token computed once at batch start.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"a11y-checker/internal/config"
	"a11y-checker/internal/models"
	"a11y-checker/internal/storage"
	"a11y-checker/internal/telemetry"
)

// consolidatedBase names the batch-wide artifact pair.
const consolidatedBase = "consolidated"

// Builder generates structured (JSON) and human-readable (HTML) artifacts
// and uploads them best-effort.
type Builder struct {
	store      storage.ObjectStore
	cfg        config.Config
	reportsDir string
	now        func() time.Time
}

// New constructs a builder writing local artifacts under cfg.ReportsDir.
func New(store storage.ObjectStore, cfg config.Config) *Builder {
	return &Builder{
		store:      store,
		cfg:        cfg,
		reportsDir: cfg.ReportsDir,
		now:        time.Now,
	}
}

// TimestampToken formats the batch timestamp at minute resolution.
func TimestampToken(t time.Time) string {
	return t.Format("2006_01_02_15_04")
}

// ArtifactName builds the deterministic artifact file name.
func ArtifactName(base, timestamp, ext string) string {
	return fmt.Sprintf("%s_report_%s.%s", base, timestamp, ext)
}

// baseName strips the extension from a resource identifier.
func baseName(resourceID string) string {
	name := filepath.Base(resourceID)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Build generates every artifact for the batch: a JSON and an HTML artifact
// per resource plus one consolidated pair. The two variants are produced
// independently, so one failing renderer never suppresses the other. All
// local artifacts are generated first; each is then uploaded best-effort,
// with failures downgraded to local-only status.
//
// Artifacts generated before any failure are always returned, even when the
// returned error is non-nil.
func (b *Builder) Build(ctx context.Context, jobID, fileType string, results []models.AnalysisResult, consolidated models.ConsolidatedReport) ([]models.Artifact, error) {
	if err := os.MkdirAll(b.reportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}

	timestamp := TimestampToken(b.now())
	var artifacts []models.Artifact
	var genErrs []error

	emit := func(base string, render func() ([]byte, error), ext string) {
		name := ArtifactName(base, timestamp, ext)
		body, err := render()
		if err != nil {
			genErrs = append(genErrs, fmt.Errorf("render %s: %w", name, err))
			return
		}
		path := filepath.Join(b.reportsDir, name)
		if err := os.WriteFile(path, body, 0o644); err != nil {
			genErrs = append(genErrs, fmt.Errorf("write %s: %w", name, err))
			return
		}
		artifacts = append(artifacts, models.Artifact{
			Name:      name,
			Ext:       ext,
			FileType:  fileType,
			Status:    models.ArtifactLocalOnly,
			LocalPath: path,
		})
	}

	for i := range results {
		result := results[i]
		base := baseName(result.ResourceID)
		emit(base, func() ([]byte, error) { return marshalJSON(result) }, "json")
		emit(base, func() ([]byte, error) { return renderResultHTML(result) }, "html")
	}
	emit(consolidatedBase, func() ([]byte, error) { return marshalJSON(consolidated) }, "json")
	emit(consolidatedBase, func() ([]byte, error) { return renderConsolidatedHTML(consolidated) }, "html")

	b.upload(ctx, jobID, fileType, artifacts)

	return artifacts, errors.Join(genErrs...)
}

// upload pushes each generated artifact to the object store. The container
// follows the analyzed-type family, chosen here and recorded on the
// artifact; a failed upload leaves the artifact local-only without failing
// the batch.
func (b *Builder) upload(ctx context.Context, jobID, fileType string, artifacts []models.Artifact) {
	container, err := storage.ContainerFor(b.cfg, fileType)
	if err != nil {
		log.Printf("report upload skipped for job %s: %v", jobID, err)
		return
	}
	for i := range artifacts {
		art := &artifacts[i]
		body, err := os.ReadFile(art.LocalPath)
		if err != nil {
			log.Printf("read artifact %s: %v", art.Name, err)
			telemetry.ArtifactUploadFailures.Inc()
			continue
		}
		key := fmt.Sprintf("reports/%s/%s", jobID, art.Name)
		if err := b.store.Put(ctx, container, key, body, storage.ContentTypeFor(art.Name)); err != nil {
			log.Printf("upload artifact %s: %v", art.Name, err)
			telemetry.ArtifactUploadFailures.Inc()
			continue
		}
		art.Container = container
		art.Key = key
		art.Status = models.ArtifactUploaded
		art.DownloadURL = "/api/download/" + key
		telemetry.ArtifactsUploaded.Inc()
	}
}

func marshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
