package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/queue"
	"github.com/saegim/proofdesk/internal/repository"
)

// DispatchRequestService is the synchronous side of background dispatch:
// it validates the request and enqueues it, fire-and-forget. Delivery of
// the actual messages happens in the worker.
type DispatchRequestService struct {
	orders    repository.OrderRepository
	proofs    repository.ProofRepository
	publisher queue.Publisher
	logger    *zap.Logger
}

func NewDispatchRequestService(
	orders repository.OrderRepository,
	proofs repository.ProofRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) *DispatchRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchRequestService{
		orders:    orders,
		proofs:    proofs,
		publisher: publisher,
		logger:    logger,
	}
}

// Request enqueues one dispatch cycle for the order. The proof precondition
// is checked here so callers get a synchronous 4xx instead of a silently
// dropped message.
func (s *DispatchRequestService) Request(ctx context.Context, organizationID int64, orderID int64, resend bool) error {
	order, err := s.orders.GetByIDForOrg(ctx, orderID, organizationID)
	if err != nil {
		return err
	}

	hasProof, err := s.proofs.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if !hasProof {
		return fmt.Errorf("%w: order %d", domain.ErrProofNotUploaded, order.ID)
	}

	msg := queue.DispatchMessage{
		OrderID:       order.ID,
		Resend:        resend,
		CorrelationID: uuid.NewString(),
	}
	if err := s.publisher.Publish(ctx, queue.DispatchQueueName, msg); err != nil {
		return fmt.Errorf("failed to enqueue dispatch: %w", err)
	}

	s.logger.Info("enqueued dispatch",
		zap.Int64("orderId", order.ID),
		zap.Bool("resend", resend),
		zap.String("correlationId", msg.CorrelationID),
	)
	return nil
}
