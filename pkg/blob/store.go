package blob

import (
	"context"
	"errors"
)

// Logical bucket names used by the contribution workflow. Intake quarantines
// unreviewed uploads; materials holds accepted lab content permanently.
const (
	BucketIntake    = "intake"
	BucketMaterials = "materials"
)

// ErrObjectNotFound reports a missing object for a (bucket, key) pair.
var ErrObjectNotFound = errors.New("object not found")

// ErrUnknownBucket reports an operation against a bucket the store does not serve.
var ErrUnknownBucket = errors.New("unknown bucket")

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// Store is the object storage capability consumed by the migration engine.
// Put must overwrite an existing object at the same key; Delete on a missing
// key must succeed so retried cleanups stay idempotent.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte) error
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
}
