package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labhub-api/internal/models"
	"github.com/noah-isme/labhub-api/pkg/blob"
)

type blobStoreStub struct {
	mu      sync.Mutex
	objects map[string][]byte

	putErr    map[string]error
	deleteErr map[string]error

	inflight    int
	maxInflight int
}

func newBlobStoreStub() *blobStoreStub {
	return &blobStoreStub{
		objects:   make(map[string][]byte),
		putErr:    make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

func (b *blobStoreStub) seed(bucket, key string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[objectKey(bucket, key)] = data
}

func (b *blobStoreStub) has(bucket, key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[objectKey(bucket, key)]
	return ok
}

func (b *blobStoreStub) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	b.mu.Lock()
	b.inflight++
	if b.inflight > b.maxInflight {
		b.maxInflight = b.inflight
	}
	data, ok := b.objects[objectKey(bucket, key)]
	b.mu.Unlock()

	// Hold the slot briefly so overlapping transfers are observable.
	time.Sleep(time.Millisecond)

	b.mu.Lock()
	b.inflight--
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, blob.ErrObjectNotFound)
	}
	return data, nil
}

func (b *blobStoreStub) Put(ctx context.Context, bucket, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.putErr[objectKey(bucket, key)]; ok {
		return err
	}
	b.objects[objectKey(bucket, key)] = data
	return nil
}

func (b *blobStoreStub) Delete(ctx context.Context, bucket, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.deleteErr[objectKey(bucket, key)]; ok {
		return err
	}
	delete(b.objects, objectKey(bucket, key))
	return nil
}

func (b *blobStoreStub) Exists(ctx context.Context, bucket, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[objectKey(bucket, key)]
	return ok, nil
}

func intakeDescriptor(requestID, name string, size int64) models.FileDescriptor {
	return models.FileDescriptor{
		Name:       name,
		StorageKey: requestID + "/" + name,
		Bucket:     blob.BucketIntake,
		Type:       "text/csv",
		Size:       size,
	}
}

func TestMigrationServiceMovesFiles(t *testing.T) {
	store := newBlobStoreStub()
	store.seed(blob.BucketIntake, "req-1/a.csv", []byte("alpha"))
	store.seed(blob.BucketIntake, "req-1/b.csv", []byte("beta"))
	svc := NewMigrationService(store, nil)

	files := []models.FileDescriptor{
		intakeDescriptor("req-1", "a.csv", 5),
		intakeDescriptor("req-1", "b.csv", 4),
	}
	migrated, err := svc.MigrateFiles(context.Background(), "req-1", "lab-1", files)
	require.NoError(t, err)
	require.Len(t, migrated, 2)

	for i, fd := range migrated {
		require.Equal(t, blob.BucketMaterials, fd.Bucket)
		require.Equal(t, DestinationKey("lab-1", files[i].Name), fd.StorageKey)
		require.Equal(t, files[i].Name, fd.Name)
		require.Equal(t, files[i].Size, fd.Size)
	}

	require.True(t, store.has(blob.BucketMaterials, "lab-lab-1/a.csv"))
	require.True(t, store.has(blob.BucketMaterials, "lab-lab-1/b.csv"))
	require.False(t, store.has(blob.BucketIntake, "req-1/a.csv"))
	require.False(t, store.has(blob.BucketIntake, "req-1/b.csv"))
}

func TestMigrationServiceRerunIsIdempotent(t *testing.T) {
	store := newBlobStoreStub()
	store.seed(blob.BucketIntake, "req-1/a.csv", []byte("alpha"))
	svc := NewMigrationService(store, nil)

	files := []models.FileDescriptor{intakeDescriptor("req-1", "a.csv", 5)}

	first, err := svc.MigrateFiles(context.Background(), "req-1", "lab-1", files)
	require.NoError(t, err)

	// Second run with the original intake descriptors: source is gone but the
	// destination exists, so the run completes with identical results.
	second, err := svc.MigrateFiles(context.Background(), "req-1", "lab-1", files)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.True(t, store.has(blob.BucketMaterials, "lab-lab-1/a.csv"))
}

func TestMigrationServiceSkipsFinalizedDescriptors(t *testing.T) {
	store := newBlobStoreStub()
	store.seed(blob.BucketMaterials, "lab-lab-1/a.csv", []byte("alpha"))
	svc := NewMigrationService(store, nil)

	files := []models.FileDescriptor{{
		Name:       "a.csv",
		StorageKey: "lab-lab-1/a.csv",
		Bucket:     blob.BucketMaterials,
		Type:       "text/csv",
		Size:       5,
	}}
	migrated, err := svc.MigrateFiles(context.Background(), "req-1", "lab-1", files)
	require.NoError(t, err)
	require.Equal(t, files, migrated)
	require.True(t, store.has(blob.BucketMaterials, "lab-lab-1/a.csv"))
}

func TestMigrationServicePartialFailure(t *testing.T) {
	store := newBlobStoreStub()
	store.seed(blob.BucketIntake, "req-1/a.csv", []byte("alpha"))
	svc := NewMigrationService(store, nil)

	files := []models.FileDescriptor{
		intakeDescriptor("req-1", "a.csv", 5),
		intakeDescriptor("req-1", "ghost.csv", 3),
	}
	migrated, err := svc.MigrateFiles(context.Background(), "req-1", "lab-1", files)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ghost.csv")

	// The healthy sibling still completed.
	require.Len(t, migrated, 1)
	require.Equal(t, "a.csv", migrated[0].Name)
	require.True(t, store.has(blob.BucketMaterials, "lab-lab-1/a.csv"))
}

func TestMigrationServiceKeepsSourceWhenWriteFails(t *testing.T) {
	store := newBlobStoreStub()
	store.seed(blob.BucketIntake, "req-1/a.csv", []byte("alpha"))
	store.putErr[objectKey(blob.BucketMaterials, "lab-lab-1/a.csv")] = fmt.Errorf("disk full")
	svc := NewMigrationService(store, nil)

	files := []models.FileDescriptor{intakeDescriptor("req-1", "a.csv", 5)}
	migrated, err := svc.MigrateFiles(context.Background(), "req-1", "lab-1", files)
	require.Error(t, err)
	require.Empty(t, migrated)

	// The source object must survive a failed destination write.
	require.True(t, store.has(blob.BucketIntake, "req-1/a.csv"))
}

func TestMigrationServiceBoundsWorkers(t *testing.T) {
	store := newBlobStoreStub()
	files := make([]models.FileDescriptor, 0, 16)
	for i := 0; i < 16; i++ {
		name := fmt.Sprintf("f%02d.csv", i)
		store.seed(blob.BucketIntake, "req-1/"+name, []byte("x"))
		files = append(files, intakeDescriptor("req-1", name, 1))
	}
	svc := NewMigrationService(store, nil, WithMigrationWorkers(2))

	migrated, err := svc.MigrateFiles(context.Background(), "req-1", "lab-1", files)
	require.NoError(t, err)
	require.Len(t, migrated, 16)
	require.LessOrEqual(t, store.maxInflight, 2)
}
