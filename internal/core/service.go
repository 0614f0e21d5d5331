package core

import (
	"context"
	"fmt"
	"os"
	"time"
)

const (
	// DefaultPageLimit is the page size used when none (or an invalid one) is given.
	DefaultPageLimit = 10

	// MaxPageLimit caps the page size of List.
	MaxPageLimit = 10

	// DefaultMaxFileSize is the upload limit used when none is configured.
	DefaultMaxFileSize int64 = 16 << 20

	// DefaultImportTimeout bounds a single import when none is configured.
	DefaultImportTimeout = 10 * time.Minute
)

// ServiceConfig tunes the import pipeline.
type ServiceConfig struct {
	MaxFileSize   int64
	MaxConcurrent int
	MaxWaitTime   time.Duration
	ImportTimeout time.Duration
	TempDir       string
}

// Service is the entry point for person CRUD and CSV imports.
type Service struct {
	store   Gateway
	limiter *ImportLimiter

	maxFileSize   int64
	importTimeout time.Duration
	tempDir       string
}

// NewService creates a Service backed by the given gateway.
func NewService(store Gateway, cfg ServiceConfig) *Service {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = DefaultImportTimeout
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	return &Service{
		store:         store,
		limiter:       NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		maxFileSize:   cfg.MaxFileSize,
		importTimeout: cfg.ImportTimeout,
		tempDir:       cfg.TempDir,
	}
}

// MaxFileSize returns the largest accepted upload in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// Get returns one person by ID.
func (s *Service) Get(ctx context.Context, id string) (StoredPerson, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return StoredPerson{}, fmt.Errorf("get person %s: %w", id, err)
	}
	return StoredPerson{ID: id, Person: p}, nil
}

// Create validates a single person payload and stores it under a new ID.
func (s *Service) Create(ctx context.Context, values map[string]any) (StoredPerson, error) {
	res := ValidateRow(values)
	if !res.Valid {
		return StoredPerson{}, &ValidationError{Reason: res.Reason}
	}

	id, err := NewID()
	if err != nil {
		return StoredPerson{}, &PersistenceError{Err: err}
	}
	if err := s.store.Create(ctx, id, res.Record); err != nil {
		return StoredPerson{}, &PersistenceError{ID: id, Err: err}
	}

	return StoredPerson{ID: id, Person: res.Record}, nil
}

// Update merges the given fields into an existing person.
// An unknown id is reported as ErrNotFound whatever the body holds.
func (s *Service) Update(ctx context.Context, id string, fields map[string]any) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return fmt.Errorf("update person %s: %w", id, err)
	}

	patch, err := ValidateUpdate(fields)
	if err != nil {
		return err
	}
	if err := s.store.UpdateFields(ctx, id, patch); err != nil {
		return fmt.Errorf("update person %s: %w", id, err)
	}
	return nil
}

// Delete removes one person.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete person %s: %w", id, err)
	}
	return nil
}

// List returns one page of persons. page starts at 1; a page below 1 is
// treated as 1 and limit is reset to DefaultPageLimit when below 1 and
// capped at MaxPageLimit.
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count persons: %w", err)
	}

	items, err := s.store.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	if items == nil {
		items = []StoredPerson{}
	}

	return &Page{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// LimiterStatus reports how many imports are running.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
// Used during graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
