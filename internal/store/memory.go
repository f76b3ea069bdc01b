package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"a11y-checker/internal/models"
)

// MemoryStore keeps jobs in a mutex-guarded map. It is the default store
// for single-process deployments and for tests.
type MemoryStore struct {
	mu        sync.Mutex
	jobs      map[string]models.Job
	artifacts map[string]models.Artifact
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[string]models.Job),
		artifacts: make(map[string]models.Artifact),
	}
}

func (s *MemoryStore) Create(_ context.Context, job models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, models.ErrNotFound
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, mutate func(*models.Job) error) (models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, models.ErrNotFound
	}
	working := cloneJob(job)
	if err := mutate(&working); err != nil {
		return models.Job{}, err
	}
	s.jobs[id] = working
	return cloneJob(working), nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, cloneJob(job))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) RecordArtifact(_ context.Context, art models.Artifact) error {
	if art.Key == "" {
		return fmt.Errorf("artifact %s has no object key", art.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[art.Key] = art
	return nil
}

func (s *MemoryStore) LookupArtifact(_ context.Context, key string) (models.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	art, ok := s.artifacts[key]
	if !ok {
		return models.Artifact{}, models.ErrNotFound
	}
	return art, nil
}
