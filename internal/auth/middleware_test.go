package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/saegim/proofdesk/internal/domain"
)

type fakeOrgRepo struct {
	mu   sync.Mutex
	orgs map[string]*domain.Organization

	createCalls int
	missNextGet bool
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: map[string]*domain.Organization{}}
}

func (f *fakeOrgRepo) Create(ctx context.Context, o *domain.Organization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if o.ExternalOrgID == nil {
		return domain.ErrValidation
	}
	if _, exists := f.orgs[*o.ExternalOrgID]; exists {
		return domain.ErrConflict
	}
	o.ID = int64(len(f.orgs) + 1)
	f.orgs[*o.ExternalOrgID] = o
	return nil
}

func (f *fakeOrgRepo) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orgs {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrgRepo) GetByExternalOrgID(ctx context.Context, externalOrgID string) (*domain.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missNextGet {
		f.missNextGet = false
		return nil, domain.ErrNotFound
	}
	if o, ok := f.orgs[externalOrgID]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrgRepo) List(ctx context.Context) ([]domain.Organization, error) { return nil, nil }

func (f *fakeOrgRepo) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	return nil
}

func newAuthTestApp(t *testing.T, mw *Middleware) *fiber.App {
	t.Helper()

	app := fiber.New()
	app.Get("/whoami", mw.Handler(), func(c *fiber.Ctx) error {
		identity, err := IdentityFromCtx(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"organizationId": identity.OrganizationID,
			"isAdmin":        identity.IsAdmin,
		})
	})
	app.Get("/admin", mw.Handler(), mw.RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestMiddlewareDisabledResolvesDevTenant(t *testing.T) {
	t.Parallel()

	repo := newFakeOrgRepo()
	mw := NewMiddleware(nil, repo, zap.NewNop(), MiddlewareOptions{Enabled: false})
	app := newAuthTestApp(t, mw)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	}

	// The dev tenant is provisioned once, then reused.
	if repo.createCalls != 1 {
		t.Fatalf("create calls = %d, want 1", repo.createCalls)
	}
	if _, err := repo.GetByExternalOrgID(context.Background(), "dev-org"); err != nil {
		t.Fatalf("dev org should exist: %v", err)
	}
}

func TestMiddlewareAdminKey(t *testing.T) {
	t.Parallel()

	repo := newFakeOrgRepo()
	mw := NewMiddleware(nil, repo, zap.NewNop(), MiddlewareOptions{
		Enabled:       true,
		AllowAdminKey: true,
		AdminKey:      "sekrit",
	})
	app := newAuthTestApp(t, mw)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Key", "sekrit")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	// A wrong key falls through to bearer auth and fails there.
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Key", "wrong")
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMiddlewareRequireAdminBlocksTenants(t *testing.T) {
	t.Parallel()

	repo := newFakeOrgRepo()
	mw := NewMiddleware(nil, repo, zap.NewNop(), MiddlewareOptions{Enabled: false})
	app := newAuthTestApp(t, mw)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestMiddlewareMissingTokenUnauthorized(t *testing.T) {
	t.Parallel()

	repo := newFakeOrgRepo()
	mw := NewMiddleware(nil, repo, zap.NewNop(), MiddlewareOptions{Enabled: true})
	app := newAuthTestApp(t, mw)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMiddlewareProvisionConflictRecovered(t *testing.T) {
	t.Parallel()

	repo := newFakeOrgRepo()
	seeded := "org-raced"
	repo.orgs[seeded] = &domain.Organization{ID: 9, ExternalOrgID: &seeded, Name: seeded, PlanType: domain.PlanBasic}
	// The first lookup misses so provisioning runs, loses the insert race,
	// and has to re-read the row another instance created.
	repo.missNextGet = true

	mw := NewMiddleware(nil, repo, zap.NewNop(), MiddlewareOptions{Enabled: false})

	identity, err := mw.resolveOrg(context.Background(), seeded)
	if err != nil {
		t.Fatalf("resolveOrg() error = %v", err)
	}
	if identity.OrganizationID != 9 {
		t.Fatalf("organizationID = %d, want 9", identity.OrganizationID)
	}
}
