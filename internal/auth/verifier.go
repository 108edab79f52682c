package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims is the subset of the identity provider's token payload the API
// needs to resolve a tenant.
type Claims struct {
	Subject string
	OrgID   string
	Email   string
}

// Verifier validates bearer tokens against the configured JWKS endpoint.
type Verifier struct {
	keys     *JWKSCache
	issuer   string
	audience string
}

func NewVerifier(keys *JWKSCache, issuer, audience string) *Verifier {
	return &Verifier{keys: keys, issuer: issuer, audience: audience}
}

func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token header missing kid")
		}
		return v.keys.Key(ctx, kid)
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if orgID, ok := mapClaims["org_id"].(string); ok {
		claims.OrgID = orgID
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}

	if claims.OrgID == "" {
		// Tenancy falls back to the subject for providers without org claims.
		claims.OrgID = claims.Subject
	}
	if claims.OrgID == "" {
		return nil, fmt.Errorf("%w: token carries no tenant identity", ErrTokenInvalid)
	}

	return claims, nil
}
