package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/repository"
)

const tokenCollisionRetries = 5

// TokenService issues and revokes the opaque QR access tokens that guard
// proof upload and viewing for a single order.
type TokenService struct {
	tokens   repository.TokenRepository
	orders   repository.OrderRepository
	webBase  string
	appBase  string
	logger   *zap.Logger
	randRead func(b []byte) (int, error)
}

// IssueResult bundles a token with the URLs built from it.
type IssueResult struct {
	Token     string
	IsValid   bool
	Reused    bool
	UploadURL string
	PublicURL string
}

func NewTokenService(
	tokens repository.TokenRepository,
	orders repository.OrderRepository,
	webBaseURL string,
	appBaseURL string,
	logger *zap.Logger,
) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TokenService{
		tokens:   tokens,
		orders:   orders,
		webBase:  webBaseURL,
		appBase:  appBaseURL,
		logger:   logger,
		randRead: rand.Read,
	}
}

// Issue returns the order's token, creating one when absent. With force
// false an existing valid token is reused; with force true (or when the
// current token was revoked) the old row is atomically replaced, which
// invalidates previously printed QR codes.
func (s *TokenService) Issue(ctx context.Context, orderID int64, force bool) (*IssueResult, error) {
	existing, err := s.tokens.GetByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if existing != nil && existing.IsValid && !force {
		return s.result(existing.Token, true, true), nil
	}

	token, err := s.generateToken(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.tokens.Replace(ctx, orderID, token)
	if err != nil {
		return nil, err
	}

	s.logger.Info("issued qr token",
		zap.Int64("orderId", orderID),
		zap.Bool("forced", force),
		zap.Bool("replaced", existing != nil),
	)

	return s.result(created.Token, created.IsValid, false), nil
}

// Revoke invalidates the order's current token without deleting the row.
func (s *TokenService) Revoke(ctx context.Context, orderID int64) error {
	if err := s.tokens.Revoke(ctx, orderID); err != nil {
		return err
	}

	s.logger.Info("revoked qr token", zap.Int64("orderId", orderID))
	return nil
}

// UploadURL is the token-protected API endpoint for proof upload.
func (s *TokenService) UploadURL(token string) string {
	return fmt.Sprintf("%s/proof/%s", s.appBase, token)
}

// PublicURL is the token-protected web page showing the proof.
func (s *TokenService) PublicURL(token string) string {
	return fmt.Sprintf("%s%s/%s", s.webBase, domain.DefaultShortLinkTargetPath, token)
}

func (s *TokenService) result(token string, valid bool, reused bool) *IssueResult {
	return &IssueResult{
		Token:     token,
		IsValid:   valid,
		Reused:    reused,
		UploadURL: s.UploadURL(token),
		PublicURL: s.PublicURL(token),
	}
}

// generateToken draws a 32-char hex token, retrying on the unlikely global
// collision a bounded number of times.
func (s *TokenService) generateToken(ctx context.Context) (string, error) {
	for attempt := 0; attempt < tokenCollisionRetries; attempt++ {
		buf := make([]byte, domain.TokenLength/2)
		if _, err := s.randRead(buf); err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}
		token := hex.EncodeToString(buf)

		exists, err := s.tokens.TokenExists(ctx, token)
		if err != nil {
			return "", err
		}
		if !exists {
			return token, nil
		}
	}
	return "", domain.ErrTokenCollisionExhausted
}
