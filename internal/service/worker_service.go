package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/observability"
	"github.com/saegim/proofdesk/internal/queue"
)

const minWorkerConcurrency = 1

// WorkerService runs the background side of dispatch: a pool of consumers
// drains the dispatch queue and hands each order to the orchestrator.
type WorkerService struct {
	dispatcher  *DispatchService
	consumer    queue.Consumer
	concurrency int
	logger      *zap.Logger
}

func NewWorkerService(
	dispatcher *DispatchService,
	consumer queue.Consumer,
	concurrency int,
	logger *zap.Logger,
) *WorkerService {
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		dispatcher:  dispatcher,
		consumer:    consumer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Start consumes the dispatch queue until context cancellation.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("dispatch worker started", zap.Int("workerId", workerID))

			err := s.consumer.Consume(groupCtx, queue.DispatchQueueName, s.processMessage)
			if err != nil {
				s.logger.Error("dispatch worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("dispatch worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

// processMessage runs one dispatch cycle. Orders that vanished or never got
// a proof are dropped rather than requeued: redelivering cannot fix them.
func (s *WorkerService) processMessage(ctx context.Context, msg queue.DispatchMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	logger := observability.WithContextLogger(s.logger, ctx)

	result, err := s.dispatcher.Dispatch(ctx, msg.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrProofNotUploaded) {
			logger.Warn("dropping dispatch message",
				zap.Int64("orderId", msg.OrderID),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	logger.Info("dispatched order",
		zap.Int64("orderId", msg.OrderID),
		zap.Bool("resend", msg.Resend),
		zap.Int("directions", len(result.Outcomes)),
	)
	return nil
}
