package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/repository"
)

const (
	identityLocalKey = "authIdentity"
	adminKeyHeader   = "X-Admin-Key"
)

// Identity is the resolved tenant for a request.
type Identity struct {
	OrganizationID int64
	ExternalOrgID  string
	IsAdmin        bool
}

// Middleware resolves bearer tokens (or the admin key) to an organization,
// auto-provisioning a tenant row on first sight of a new org claim.
type Middleware struct {
	verifier *Verifier
	orgs     repository.OrganizationRepository
	logger   *zap.Logger

	enabled       bool
	allowAdminKey bool
	adminKey      string

	provisionGroup singleflight.Group
}

type MiddlewareOptions struct {
	Enabled       bool
	AllowAdminKey bool
	AdminKey      string
}

func NewMiddleware(verifier *Verifier, orgs repository.OrganizationRepository, logger *zap.Logger, opts MiddlewareOptions) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{
		verifier:      verifier,
		orgs:          orgs,
		logger:        logger,
		enabled:       opts.Enabled,
		allowAdminKey: opts.AllowAdminKey,
		adminKey:      opts.AdminKey,
	}
}

// Handler authenticates the request and stores the resolved Identity in
// fiber locals. With auth disabled every request resolves to the default
// development tenant.
func (m *Middleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.enabled {
			identity, err := m.resolveOrg(c.Context(), "dev-org")
			if err != nil {
				return err
			}
			c.Locals(identityLocalKey, identity)
			return c.Next()
		}

		if m.allowAdminKey && m.adminKey != "" {
			provided := c.Get(adminKeyHeader)
			if provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(m.adminKey)) == 1 {
				c.Locals(identityLocalKey, &Identity{IsAdmin: true})
				return c.Next()
			}
		}

		rawToken, err := bearerToken(c)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims, err := m.verifier.Verify(c.Context(), rawToken)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				return fiber.NewError(fiber.StatusUnauthorized, "token has expired")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		identity, err := m.resolveOrg(c.Context(), claims.OrgID)
		if err != nil {
			return err
		}

		c.Locals(identityLocalKey, identity)
		return c.Next()
	}
}

// RequireAdmin allows only admin-key identities through.
func (m *Middleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := IdentityFromCtx(c)
		if err != nil || !identity.IsAdmin {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

// resolveOrg maps an external org claim to a tenant row, creating one on
// first sight. Concurrent first requests for the same org are coalesced so
// only one insert races the unique index.
func (m *Middleware) resolveOrg(ctx context.Context, externalOrgID string) (*Identity, error) {
	org, err := m.orgs.GetByExternalOrgID(ctx, externalOrgID)
	if err == nil {
		return &Identity{OrganizationID: org.ID, ExternalOrgID: externalOrgID}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	result, err, _ := m.provisionGroup.Do(externalOrgID, func() (any, error) {
		created := &domain.Organization{
			ExternalOrgID: &externalOrgID,
			Name:          externalOrgID,
			PlanType:      domain.PlanBasic,
		}
		err := m.orgs.Create(ctx, created)
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race to another instance.
			return m.orgs.GetByExternalOrgID(ctx, externalOrgID)
		}
		if err != nil {
			return nil, err
		}

		m.logger.Info("auto-provisioned organization",
			zap.String("externalOrgId", externalOrgID),
			zap.Int64("organizationId", created.ID),
		)
		return created, nil
	})
	if err != nil {
		return nil, err
	}

	org, ok := result.(*domain.Organization)
	if !ok || org == nil {
		return nil, fmt.Errorf("failed to provision organization %q", externalOrgID)
	}
	return &Identity{OrganizationID: org.ID, ExternalOrgID: externalOrgID}, nil
}

// IdentityFromCtx returns the Identity stored by Handler.
func IdentityFromCtx(c *fiber.Ctx) (*Identity, error) {
	identity, ok := c.Locals(identityLocalKey).(*Identity)
	if !ok || identity == nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "request is not authenticated")
	}
	return identity, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("authorization header must be a bearer token")
	}
	return strings.TrimSpace(parts[1]), nil
}
