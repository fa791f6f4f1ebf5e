package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/labhub-api/internal/models"
	"github.com/noah-isme/labhub-api/pkg/blob"
)

const defaultMigrationWorkers = 4

// MigrationService promotes contribution files from the intake bucket to the
// materials bucket. The protocol per file is read, write, then delete, in
// that order: a crash after the write leaves at worst a duplicate object the
// next run overwrites, while deleting first could lose the file for good.
// Re-invoking MigrateFiles with the original file list is safe; destination
// keys are deterministic and writes overwrite identically.
type MigrationService struct {
	store     blob.Store
	logger    *zap.Logger
	metrics   *MetricsService
	workers   int
	opTimeout time.Duration
}

// MigrationServiceOption configures the service.
type MigrationServiceOption func(*MigrationService)

// WithMigrationWorkers bounds concurrent per-file transfers.
func WithMigrationWorkers(n int) MigrationServiceOption {
	return func(s *MigrationService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithOpTimeout bounds each individual storage operation.
func WithOpTimeout(d time.Duration) MigrationServiceOption {
	return func(s *MigrationService) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithMigrationMetrics attaches promotion counters.
func WithMigrationMetrics(m *MetricsService) MigrationServiceOption {
	return func(s *MigrationService) {
		s.metrics = m
	}
}

// NewMigrationService constructs the service with defaults.
func NewMigrationService(store blob.Store, logger *zap.Logger, opts ...MigrationServiceOption) *MigrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &MigrationService{
		store:   store,
		logger:  logger,
		workers: defaultMigrationWorkers,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// DestinationKey derives the deterministic materials key for a file.
func DestinationKey(labID, name string) string {
	return fmt.Sprintf("lab-%s/%s", labID, name)
}

// MigrateFiles moves each descriptor's object into the materials bucket and
// returns the rewritten descriptors in input order. Files are independent, so
// transfers run concurrently up to the worker bound. On failure the returned
// slice holds only the files whose promotion is confirmed; the error
// aggregates every per-file failure. In-flight sibling transfers are never
// interrupted by another file's failure.
func (s *MigrationService) MigrateFiles(ctx context.Context, requestID, labID string, files []models.FileDescriptor) ([]models.FileDescriptor, error) {
	if len(files) == 0 {
		return nil, nil
	}

	type outcome struct {
		file models.FileDescriptor
		ok   bool
		err  error
	}

	outcomes := make([]outcome, len(files))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, file := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, fd models.FileDescriptor) {
			defer wg.Done()
			defer func() { <-sem }()
			migrated, err := s.migrateOne(ctx, labID, fd)
			if err != nil {
				outcomes[i] = outcome{err: fmt.Errorf("file %s: %w", fd.Name, err)}
				return
			}
			outcomes[i] = outcome{file: migrated, ok: true}
		}(i, file)
	}
	wg.Wait()

	migrated := make([]models.FileDescriptor, 0, len(files))
	var errs []error
	for _, out := range outcomes {
		if out.ok {
			migrated = append(migrated, out.file)
			continue
		}
		errs = append(errs, out.err)
	}

	if len(errs) > 0 {
		s.metrics.IncMigrationFailure()
		err := errors.Join(errs...)
		s.logger.Error("file migration incomplete",
			zap.String("request_id", requestID),
			zap.String("lab_id", labID),
			zap.Int("migrated", len(migrated)),
			zap.Int("failed", len(errs)),
			zap.Error(err),
		)
		return migrated, fmt.Errorf("migrate files for request %s: %w", requestID, err)
	}

	s.logger.Info("file migration complete",
		zap.String("request_id", requestID),
		zap.String("lab_id", labID),
		zap.Int("files", len(migrated)),
	)
	return migrated, nil
}

func (s *MigrationService) migrateOne(ctx context.Context, labID string, fd models.FileDescriptor) (models.FileDescriptor, error) {
	destKey := DestinationKey(labID, fd.Name)

	// Descriptors already pointing at materials were finalized by an earlier
	// run; touching them again must not delete the promoted object.
	if fd.Bucket == blob.BucketMaterials {
		exists, err := s.exists(ctx, blob.BucketMaterials, fd.StorageKey)
		if err != nil {
			return models.FileDescriptor{}, fmt.Errorf("check promoted object: %w", err)
		}
		if !exists {
			return models.FileDescriptor{}, fmt.Errorf("promoted object missing: %s/%s: %w", fd.Bucket, fd.StorageKey, blob.ErrObjectNotFound)
		}
		return fd, nil
	}

	data, err := s.get(ctx, fd.Bucket, fd.StorageKey)
	if err != nil {
		if blob.IsNotFound(err) {
			// A previous run may have finished this file: source deleted,
			// destination written. Only then is a missing source benign.
			exists, existsErr := s.exists(ctx, blob.BucketMaterials, destKey)
			if existsErr == nil && exists {
				return s.rewrite(fd, destKey), nil
			}
			return models.FileDescriptor{}, fmt.Errorf("source object missing: %w", err)
		}
		return models.FileDescriptor{}, fmt.Errorf("read source object: %w", err)
	}

	if err := s.put(ctx, blob.BucketMaterials, destKey, data); err != nil {
		return models.FileDescriptor{}, fmt.Errorf("write destination object: %w", err)
	}

	// Destination write is confirmed; only now is the source removed.
	if err := s.delete(ctx, fd.Bucket, fd.StorageKey); err != nil {
		return models.FileDescriptor{}, fmt.Errorf("delete source object: %w", err)
	}

	s.metrics.ObserveMigratedFile(fd.Size)
	return s.rewrite(fd, destKey), nil
}

func (s *MigrationService) rewrite(fd models.FileDescriptor, destKey string) models.FileDescriptor {
	fd.Bucket = blob.BucketMaterials
	fd.StorageKey = destKey
	return fd
}

func (s *MigrationService) get(ctx context.Context, bucket, key string) ([]byte, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.store.Get(ctx, bucket, key)
}

func (s *MigrationService) put(ctx context.Context, bucket, key string, data []byte) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.store.Put(ctx, bucket, key, data)
}

func (s *MigrationService) delete(ctx context.Context, bucket, key string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.store.Delete(ctx, bucket, key)
}

func (s *MigrationService) exists(ctx context.Context, bucket, key string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.store.Exists(ctx, bucket, key)
}

func (s *MigrationService) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}
