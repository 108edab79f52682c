package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/observability"
	"github.com/saegim/proofdesk/internal/repository"
)

// Short codes avoid visually ambiguous characters (0/o, 1/l/i) since they
// end up printed on labels.
const shortCodeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

const shortCodeCollisionRetries = 5

// ShortLinkService maps low-entropy public codes to token-protected proof
// pages.
type ShortLinkService struct {
	shortLinks repository.ShortLinkRepository
	webBase    string
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	randRead   func(b []byte) (int, error)
}

func NewShortLinkService(
	shortLinks repository.ShortLinkRepository,
	webBaseURL string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ShortLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ShortLinkService{
		shortLinks: shortLinks,
		webBase:    webBaseURL,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		randRead:   rand.Read,
	}
}

// Get returns the order's short link without creating one.
func (s *ShortLinkService) Get(ctx context.Context, orderID int64) (*domain.ShortLink, error) {
	return s.shortLinks.GetByOrderID(ctx, orderID)
}

// Ensure returns the order's short link bound to the given token, creating
// one when absent and repointing a stale one. Idempotent per order.
func (s *ShortLinkService) Ensure(ctx context.Context, orderID int64, token string) (*domain.ShortLink, error) {
	existing, err := s.shortLinks.GetByOrderID(ctx, orderID)
	if err == nil {
		if existing.TargetToken == token {
			return existing, nil
		}
		// A forced token reissue can leave the stored target pointing at a
		// deleted token. Repoint the link instead of handing out a dead
		// proof page.
		return s.shortLinks.UpdateTargetToken(ctx, existing.Code, token)
	}
	if !errors.Is(err, domain.ErrShortLinkNotFound) {
		return nil, err
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	link := &domain.ShortLink{
		Code:        code,
		OrderID:     orderID,
		TargetToken: token,
		TargetPath:  domain.DefaultShortLinkTargetPath,
	}
	if err := s.shortLinks.Create(ctx, link); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost a concurrent create for the same order.
			return s.shortLinks.GetByOrderID(ctx, orderID)
		}
		return nil, err
	}

	s.logger.Info("created short link",
		zap.Int64("orderId", orderID),
		zap.String("code", code),
	)
	return link, nil
}

// Rebind points an existing short link at a new token after a forced token
// replacement, keeping the printed code stable.
func (s *ShortLinkService) Rebind(ctx context.Context, orderID int64, token string) (*domain.ShortLink, error) {
	link, err := s.shortLinks.GetByOrderID(ctx, orderID)
	if errors.Is(err, domain.ErrShortLinkNotFound) {
		return s.Ensure(ctx, orderID, token)
	}
	if err != nil {
		return nil, err
	}
	if link.TargetToken == token {
		return link, nil
	}
	return s.shortLinks.UpdateTargetToken(ctx, link.Code, token)
}

// RecordClick resolves a public code to its target URL, counting the visit.
// Unknown codes yield ErrShortLinkNotFound.
func (s *ShortLinkService) RecordClick(ctx context.Context, code string) (string, error) {
	link, err := s.shortLinks.IncrementClick(ctx, code, s.now().UTC())
	if err != nil {
		return "", err
	}

	if s.metrics != nil {
		s.metrics.IncShortLinkResolution()
	}

	return s.TargetURL(link), nil
}

// ShortURL is the public form printed on labels and sent in messages.
func (s *ShortLinkService) ShortURL(link *domain.ShortLink) string {
	return fmt.Sprintf("%s/s/%s", s.webBase, link.Code)
}

// TargetURL is the token-protected page the short link redirects to.
func (s *ShortLinkService) TargetURL(link *domain.ShortLink) string {
	return fmt.Sprintf("%s%s/%s", s.webBase, link.TargetPath, link.TargetToken)
}

func (s *ShortLinkService) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < shortCodeCollisionRetries; attempt++ {
		buf := make([]byte, domain.ShortCodeLength)
		if _, err := s.randRead(buf); err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}
		for i, b := range buf {
			buf[i] = shortCodeAlphabet[int(b)%len(shortCodeAlphabet)]
		}
		code := string(buf)

		exists, err := s.shortLinks.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", domain.ErrTokenCollisionExhausted
}
