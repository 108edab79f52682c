package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/saegim/proofdesk/internal/auth"
	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/service"
	"github.com/saegim/proofdesk/internal/transport"
)

type stubOrderService struct {
	createFn     func(ctx context.Context, organizationID int64, input service.CreateOrderInput) (*domain.Order, error)
	listFn       func(ctx context.Context, organizationID int64, status *domain.OrderStatus, search string, page, pageSize int) ([]domain.Order, int64, error)
	detailFn     func(ctx context.Context, organizationID int64, orderID int64) (*service.OrderDetail, error)
	completeFn   func(ctx context.Context, organizationID int64, orderID int64) (*domain.Order, error)
	issueTokenFn func(ctx context.Context, organizationID int64, orderID int64, force bool) (*service.IssueResult, error)
	getLabelsFn  func(ctx context.Context, organizationID int64, orderIDs []int64, ensureTokens bool, force bool) ([]service.LabelBundle, error)
}

func (s *stubOrderService) Create(ctx context.Context, organizationID int64, input service.CreateOrderInput) (*domain.Order, error) {
	return s.createFn(ctx, organizationID, input)
}

func (s *stubOrderService) List(ctx context.Context, organizationID int64, status *domain.OrderStatus, search string, page, pageSize int) ([]domain.Order, int64, error) {
	return s.listFn(ctx, organizationID, status, search, page, pageSize)
}

func (s *stubOrderService) Detail(ctx context.Context, organizationID int64, orderID int64) (*service.OrderDetail, error) {
	return s.detailFn(ctx, organizationID, orderID)
}

func (s *stubOrderService) Complete(ctx context.Context, organizationID int64, orderID int64) (*domain.Order, error) {
	return s.completeFn(ctx, organizationID, orderID)
}

func (s *stubOrderService) IssueToken(ctx context.Context, organizationID int64, orderID int64, force bool) (*service.IssueResult, error) {
	return s.issueTokenFn(ctx, organizationID, orderID, force)
}

func (s *stubOrderService) GetLabels(ctx context.Context, organizationID int64, orderIDs []int64, ensureTokens bool, force bool) ([]service.LabelBundle, error) {
	return s.getLabelsFn(ctx, organizationID, orderIDs, ensureTokens, force)
}

type stubTokenService struct {
	revokeFn func(ctx context.Context, orderID int64) error
}

func (s *stubTokenService) Revoke(ctx context.Context, orderID int64) error {
	return s.revokeFn(ctx, orderID)
}

type stubDispatchRequestService struct {
	requestFn func(ctx context.Context, organizationID int64, orderID int64, resend bool) error
}

func (s *stubDispatchRequestService) Request(ctx context.Context, organizationID int64, orderID int64, resend bool) error {
	return s.requestFn(ctx, organizationID, orderID, resend)
}

// stubOrgRepo backs the auth middleware in disabled mode: every request
// resolves to tenant 1.
type stubOrgRepo struct{}

func (stubOrgRepo) Create(ctx context.Context, o *domain.Organization) error { return nil }

func (stubOrgRepo) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	return &domain.Organization{ID: id, Name: "Acme Flowers", PlanType: domain.PlanBasic}, nil
}

func (stubOrgRepo) GetByExternalOrgID(ctx context.Context, externalOrgID string) (*domain.Organization, error) {
	return &domain.Organization{ID: 1, Name: "Acme Flowers", PlanType: domain.PlanBasic}, nil
}

func (stubOrgRepo) List(ctx context.Context) ([]domain.Organization, error) { return nil, nil }

func (stubOrgRepo) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	return nil
}

func newOrderTestApp(t *testing.T, orders OrderService, tokens TokenService, dispatches DispatchRequestService) *fiber.App {
	t.Helper()

	if orders == nil {
		orders = &stubOrderService{}
	}
	if tokens == nil {
		tokens = &stubTokenService{}
	}
	if dispatches == nil {
		dispatches = &stubDispatchRequestService{}
	}

	h, err := NewOrderHandler(orders, tokens, dispatches)
	if err != nil {
		t.Fatalf("NewOrderHandler() error = %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
	authMw := auth.NewMiddleware(nil, stubOrgRepo{}, zap.NewNop(), auth.MiddlewareOptions{Enabled: false})
	api := app.Group("/api", authMw.Handler())
	RegisterOrderRoutes(api, h)
	return app
}

func performRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error = %v", err)
	}
	_ = resp.Body.Close()
	return resp, payload
}

func TestOrderIntegration_CreateOrder(t *testing.T) {
	t.Parallel()

	orders := &stubOrderService{
		createFn: func(ctx context.Context, organizationID int64, input service.CreateOrderInput) (*domain.Order, error) {
			if organizationID != 1 {
				t.Fatalf("organizationID = %d, want 1", organizationID)
			}
			if input.SenderPhone != "010-1111-2222" {
				t.Fatalf("sender phone = %q", input.SenderPhone)
			}
			return &domain.Order{
				ID:          11,
				OrderNumber: input.OrderNumber,
				SenderName:  input.SenderName,
				Status:      domain.OrderStatusPending,
				CreatedAt:   time.Now(),
				UpdatedAt:   time.Now(),
			}, nil
		},
	}

	app := newOrderTestApp(t, orders, nil, nil)

	body := `{"orderNumber":"ORD-1001","senderName":"Kim","senderPhone":"010-1111-2222"}`
	resp, payload := performRequest(t, app, http.MethodPost, "/api/v1/orders", body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, payload)
	}

	var created map[string]any
	if err := json.Unmarshal(payload, &created); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if created["id"] != float64(11) {
		t.Fatalf("id = %v, want 11", created["id"])
	}
	if created["status"] != domain.OrderStatusPending.String() {
		t.Fatalf("status = %v, want PENDING", created["status"])
	}
}

func TestOrderIntegration_CreateOrderValidationError(t *testing.T) {
	t.Parallel()

	orders := &stubOrderService{
		createFn: func(ctx context.Context, organizationID int64, input service.CreateOrderInput) (*domain.Order, error) {
			return nil, domain.ErrValidation
		},
	}
	app := newOrderTestApp(t, orders, nil, nil)

	resp, _ := performRequest(t, app, http.MethodPost, "/api/v1/orders", `{"orderNumber":""}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestOrderIntegration_GetOrderNotFound(t *testing.T) {
	t.Parallel()

	orders := &stubOrderService{
		detailFn: func(ctx context.Context, organizationID int64, orderID int64) (*service.OrderDetail, error) {
			return nil, domain.ErrNotFound
		},
	}
	app := newOrderTestApp(t, orders, nil, nil)

	resp, _ := performRequest(t, app, http.MethodGet, "/api/v1/orders/42", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestOrderIntegration_GetOrderInvalidID(t *testing.T) {
	t.Parallel()

	app := newOrderTestApp(t, nil, nil, nil)

	resp, _ := performRequest(t, app, http.MethodGet, "/api/v1/orders/not-a-number", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestOrderIntegration_IssueTokenForce(t *testing.T) {
	t.Parallel()

	orders := &stubOrderService{
		issueTokenFn: func(ctx context.Context, organizationID int64, orderID int64, force bool) (*service.IssueResult, error) {
			if !force {
				t.Fatal("force flag should be propagated")
			}
			return &service.IssueResult{
				Token:     strings.Repeat("a", 32),
				IsValid:   true,
				UploadURL: "https://api.example.com/proof/" + strings.Repeat("a", 32),
				PublicURL: "https://web.example.com/p/" + strings.Repeat("a", 32),
			}, nil
		},
	}
	app := newOrderTestApp(t, orders, nil, nil)

	resp, payload := performRequest(t, app, http.MethodPost, "/api/v1/orders/7/token?force=true", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, payload)
	}

	var issued map[string]any
	if err := json.Unmarshal(payload, &issued); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if issued["token"] != strings.Repeat("a", 32) {
		t.Fatalf("token = %v", issued["token"])
	}
}

func TestOrderIntegration_ResendAccepted(t *testing.T) {
	t.Parallel()

	var gotResend bool
	dispatches := &stubDispatchRequestService{
		requestFn: func(ctx context.Context, organizationID int64, orderID int64, resend bool) error {
			gotResend = resend
			return nil
		},
	}
	app := newOrderTestApp(t, nil, nil, dispatches)

	resp, _ := performRequest(t, app, http.MethodPost, "/api/v1/orders/7/resend", "")
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if !gotResend {
		t.Fatal("resend flag must be true")
	}
}

func TestOrderIntegration_ResendWithoutProofConflicts(t *testing.T) {
	t.Parallel()

	dispatches := &stubDispatchRequestService{
		requestFn: func(ctx context.Context, organizationID int64, orderID int64, resend bool) error {
			return domain.ErrProofNotUploaded
		},
	}
	app := newOrderTestApp(t, nil, nil, dispatches)

	resp, _ := performRequest(t, app, http.MethodPost, "/api/v1/orders/7/resend", "")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestOrderIntegration_GetLabels(t *testing.T) {
	t.Parallel()

	orders := &stubOrderService{
		getLabelsFn: func(ctx context.Context, organizationID int64, orderIDs []int64, ensureTokens bool, force bool) ([]service.LabelBundle, error) {
			if len(orderIDs) != 2 || !ensureTokens || force {
				t.Fatalf("unexpected args ids=%v ensure=%v force=%v", orderIDs, ensureTokens, force)
			}
			return []service.LabelBundle{{
				OrderID:     5,
				OrderNumber: "ORD-5",
				Token:       strings.Repeat("b", 32),
				ShortURL:    "https://web.example.com/s/abcd2345",
				BrandName:   "Acme Flowers",
			}}, nil
		},
	}
	app := newOrderTestApp(t, orders, nil, nil)

	body := `{"orderIds":[5,6],"ensureTokens":true}`
	resp, payload := performRequest(t, app, http.MethodPost, "/api/v1/orders/labels", body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, payload)
	}

	var parsed struct {
		Labels []map[string]any `json:"labels"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Labels) != 1 {
		t.Fatalf("labels = %d, want 1", len(parsed.Labels))
	}
	if parsed.Labels[0]["brandName"] != "Acme Flowers" {
		t.Fatalf("brandName = %v", parsed.Labels[0]["brandName"])
	}
}
