package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/saegim/proofdesk/internal/domain"
)

func TestTokenServiceIssueReusesValidToken(t *testing.T) {
	t.Parallel()

	existing := &domain.QRToken{ID: 1, Token: strings.Repeat("a", 32), OrderID: 7, IsValid: true}
	replaceCalls := 0

	tokens := &fakeTokenRepo{
		GetByOrderIDFn: func(ctx context.Context, orderID int64) (*domain.QRToken, error) {
			return existing, nil
		},
		ReplaceFn: func(ctx context.Context, orderID int64, token string) (*domain.QRToken, error) {
			replaceCalls++
			return &domain.QRToken{Token: token, OrderID: orderID, IsValid: true}, nil
		},
	}

	svc := NewTokenService(tokens, nil, "https://web.example.com", "https://api.example.com", nil)

	result, err := svc.Issue(context.Background(), 7, false)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if result.Token != existing.Token {
		t.Fatalf("Token = %q, want reuse of %q", result.Token, existing.Token)
	}
	if !result.Reused {
		t.Fatal("expected Reused = true")
	}
	if replaceCalls != 0 {
		t.Fatalf("Replace called %d times, want 0", replaceCalls)
	}
	if result.UploadURL != "https://api.example.com/proof/"+existing.Token {
		t.Fatalf("UploadURL = %q", result.UploadURL)
	}
	if result.PublicURL != "https://web.example.com/p/"+existing.Token {
		t.Fatalf("PublicURL = %q", result.PublicURL)
	}
}

func TestTokenServiceIssueForceReplaces(t *testing.T) {
	t.Parallel()

	existing := &domain.QRToken{ID: 1, Token: strings.Repeat("a", 32), OrderID: 7, IsValid: true}
	var replacedWith string

	tokens := &fakeTokenRepo{
		GetByOrderIDFn: func(ctx context.Context, orderID int64) (*domain.QRToken, error) {
			return existing, nil
		},
		TokenExistsFn: func(ctx context.Context, token string) (bool, error) {
			return false, nil
		},
		ReplaceFn: func(ctx context.Context, orderID int64, token string) (*domain.QRToken, error) {
			replacedWith = token
			return &domain.QRToken{Token: token, OrderID: orderID, IsValid: true}, nil
		},
	}

	svc := NewTokenService(tokens, nil, "https://web.example.com", "https://api.example.com", nil)

	result, err := svc.Issue(context.Background(), 7, true)
	if err != nil {
		t.Fatalf("Issue(force) error = %v", err)
	}
	if result.Reused {
		t.Fatal("expected Reused = false on force")
	}
	if replacedWith == "" {
		t.Fatal("expected Replace to be called")
	}
	if result.Token == existing.Token {
		t.Fatal("forced issue must mint a new token")
	}
	if len(result.Token) != domain.TokenLength {
		t.Fatalf("token length = %d, want %d", len(result.Token), domain.TokenLength)
	}
	for _, r := range result.Token {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("token %q is not lowercase hex", result.Token)
		}
	}
}

func TestTokenServiceIssueMintsWhenAbsent(t *testing.T) {
	t.Parallel()

	tokens := &fakeTokenRepo{
		GetByOrderIDFn: func(ctx context.Context, orderID int64) (*domain.QRToken, error) {
			return nil, domain.ErrNotFound
		},
		TokenExistsFn: func(ctx context.Context, token string) (bool, error) {
			return false, nil
		},
		ReplaceFn: func(ctx context.Context, orderID int64, token string) (*domain.QRToken, error) {
			return &domain.QRToken{Token: token, OrderID: orderID, IsValid: true}, nil
		},
	}

	svc := NewTokenService(tokens, nil, "https://web.example.com", "https://api.example.com", nil)

	result, err := svc.Issue(context.Background(), 9, false)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if result.Reused {
		t.Fatal("fresh issue must not report Reused")
	}
	if len(result.Token) != domain.TokenLength {
		t.Fatalf("token length = %d, want %d", len(result.Token), domain.TokenLength)
	}
}

func TestTokenServiceIssueCollisionExhaustion(t *testing.T) {
	t.Parallel()

	existsCalls := 0
	tokens := &fakeTokenRepo{
		GetByOrderIDFn: func(ctx context.Context, orderID int64) (*domain.QRToken, error) {
			return nil, domain.ErrNotFound
		},
		TokenExistsFn: func(ctx context.Context, token string) (bool, error) {
			existsCalls++
			return true, nil
		},
		ReplaceFn: func(ctx context.Context, orderID int64, token string) (*domain.QRToken, error) {
			t.Fatal("Replace must not be called when every candidate collides")
			return nil, nil
		},
	}

	svc := NewTokenService(tokens, nil, "https://web.example.com", "https://api.example.com", nil)

	_, err := svc.Issue(context.Background(), 9, false)
	if !errors.Is(err, domain.ErrTokenCollisionExhausted) {
		t.Fatalf("Issue() error = %v, want ErrTokenCollisionExhausted", err)
	}
	if existsCalls != tokenCollisionRetries {
		t.Fatalf("TokenExists called %d times, want %d", existsCalls, tokenCollisionRetries)
	}
}

func TestTokenServiceRevokeUnknownOrder(t *testing.T) {
	t.Parallel()

	tokens := &fakeTokenRepo{
		RevokeFn: func(ctx context.Context, orderID int64) error {
			return domain.ErrNotFound
		},
	}

	svc := NewTokenService(tokens, nil, "https://web.example.com", "https://api.example.com", nil)

	if err := svc.Revoke(context.Background(), 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Revoke() error = %v, want ErrNotFound", err)
	}
}
