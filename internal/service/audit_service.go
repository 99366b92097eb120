package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/academia-sur/academy-api/internal/models"
	"github.com/academia-sur/academy-api/pkg/jobs"
)

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService records audit entries asynchronously so request latency
// is unaffected by audit storage.
type AuditService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// AuditQueueConfig tunes the background audit writer.
type AuditQueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// NewAuditService builds the audit service and its backing queue. The
// queue must be started before entries are recorded.
func NewAuditService(repo auditRepository, cfg AuditQueueConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(*models.AuditLog)
		if !ok {
			logger.Warn("audit job carried unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return repo.CreateAuditLog(ctx, entry)
	}
	queue := jobs.NewQueue("audit", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return &AuditService{queue: queue, logger: logger}
}

// Start launches the background writers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains buffered entries and waits for the writers to exit.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record enqueues an audit entry. Failures are logged and never surface
// to the caller.
func (s *AuditService) Record(entry *models.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	job := jobs.Job{ID: entry.ID, Type: entry.Action, Payload: entry}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}
