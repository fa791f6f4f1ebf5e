package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/labhub-api/pkg/blob"
	"github.com/noah-isme/labhub-api/pkg/jobs"
)

// CleanupJobType identifies deferred intake deletions on the cleanup queue.
const CleanupJobType = "intake_cleanup"

// CleanupPayload names the object a cleanup job should remove.
type CleanupPayload struct {
	Bucket string
	Key    string
}

// IntakeCleanupHandler returns the queue handler that retries intake
// deletions which failed during a reject. Deletes are idempotent, so a job
// that raced an earlier successful delete simply succeeds.
func IntakeCleanupHandler(store blob.Store, metrics *MetricsService, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(CleanupPayload)
		if !ok {
			return fmt.Errorf("unexpected cleanup payload type %T", job.Payload)
		}
		metrics.IncCleanupRetry()
		if err := store.Delete(ctx, payload.Bucket, payload.Key); err != nil {
			return fmt.Errorf("cleanup %s/%s: %w", payload.Bucket, payload.Key, err)
		}
		logger.Info("intake object cleaned up",
			zap.String("bucket", payload.Bucket),
			zap.String("key", payload.Key),
			zap.Int("attempt", job.Attempt),
		)
		return nil
	}
}
