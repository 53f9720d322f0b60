package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-portal-api/pkg/jobs"
	"github.com/noah-isme/syllabus-portal-api/pkg/storage"
)

// JobTypeRemoveFile identifies background removals of syllabus payloads.
const JobTypeRemoveFile = "syllabus.file.remove"

// FileCleanupPayload names the payload to remove.
type FileCleanupPayload struct {
	SyllabusID string
	Key        string
}

// NewFileCleanupHandler returns a queue handler that removes payloads from
// store. Removing a missing payload succeeds.
func NewFileCleanupHandler(store storage.FileStore) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(FileCleanupPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
		}
		return store.Remove(ctx, payload.Key)
	}
}

// FileCleanupOutcome records the final result of a cleanup job.
func FileCleanupOutcome(metrics *MetricsService, logger *zap.Logger) func(jobs.Job, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(job jobs.Job, err error) {
		if err == nil {
			metrics.RecordCleanup("success")
			return
		}
		metrics.RecordCleanup("failed")
		payload, _ := job.Payload.(FileCleanupPayload)
		logger.Error("syllabus file left behind",
			zap.String("syllabus_id", payload.SyllabusID),
			zap.String("key", payload.Key),
			zap.Int("attempts", job.Attempt),
			zap.Error(err),
		)
	}
}

// instrumentedStore times every call into the wrapped store.
type instrumentedStore struct {
	next    storage.FileStore
	metrics *MetricsService
}

// InstrumentStore wraps store so that each operation is observed by metrics.
func InstrumentStore(store storage.FileStore, metrics *MetricsService) storage.FileStore {
	if metrics == nil {
		return store
	}
	return &instrumentedStore{next: store, metrics: metrics}
}

func (s *instrumentedStore) Driver() string { return s.next.Driver() }

func (s *instrumentedStore) Key(spec storage.KeySpec) string { return s.next.Key(spec) }

func (s *instrumentedStore) Store(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*storage.Object, error) {
	start := time.Now()
	obj, err := s.next.Store(ctx, key, r, size, contentType)
	s.metrics.ObserveStorage(s.next.Driver(), "store", time.Since(start), err)
	return obj, err
}

func (s *instrumentedStore) Resolve(ctx context.Context, key string, opts storage.ResolveOptions) (*storage.Descriptor, error) {
	start := time.Now()
	desc, err := s.next.Resolve(ctx, key, opts)
	observed := err
	if errors.Is(err, storage.ErrObjectNotFound) {
		observed = nil
	}
	s.metrics.ObserveStorage(s.next.Driver(), "resolve", time.Since(start), observed)
	return desc, err
}

func (s *instrumentedStore) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Remove(ctx, key)
	s.metrics.ObserveStorage(s.next.Driver(), "remove", time.Since(start), err)
	return err
}
