package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hexacorn/hexacorn-api/internal/models"
	"github.com/hexacorn/hexacorn-api/pkg/jobs"
)

type auditSink interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService decouples audit writes from request handling by pushing them
// through a small in-process queue. A failed enqueue falls back to a
// synchronous write so records are not silently dropped.
type AuditService struct {
	queue  *jobs.Queue
	sink   auditSink
	logger *zap.Logger
}

// NewAuditService constructs the service and its worker queue.
func NewAuditService(sink auditSink, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{sink: sink, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 64,
		MaxRetries: 2,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// CreateAuditLog enqueues an audit record for background persistence.
func (s *AuditService) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: log.Action, Payload: log}); err != nil {
		return s.sink.CreateAuditLog(ctx, log)
	}
	return nil
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return s.sink.CreateAuditLog(ctx, log)
}
