package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saegim/proofdesk/internal/auth"
	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
)

// OrderService is the slice of the order service the HTTP layer needs.
type OrderService interface {
	Create(ctx context.Context, organizationID int64, input service.CreateOrderInput) (*domain.Order, error)
	List(ctx context.Context, organizationID int64, status *domain.OrderStatus, search string, page, pageSize int) ([]domain.Order, int64, error)
	Detail(ctx context.Context, organizationID int64, orderID int64) (*service.OrderDetail, error)
	Complete(ctx context.Context, organizationID int64, orderID int64) (*domain.Order, error)
	IssueToken(ctx context.Context, organizationID int64, orderID int64, force bool) (*service.IssueResult, error)
	GetLabels(ctx context.Context, organizationID int64, orderIDs []int64, ensureTokens bool, force bool) ([]service.LabelBundle, error)
}

// TokenService revokes QR tokens for orders. Issuing goes through
// OrderService so short links stay in step with the live token.
type TokenService interface {
	Revoke(ctx context.Context, orderID int64) error
}

// DispatchRequestService enqueues notification dispatch cycles.
type DispatchRequestService interface {
	Request(ctx context.Context, organizationID int64, orderID int64, resend bool) error
}

type OrderHandler struct {
	orders     OrderService
	tokens     TokenService
	dispatches DispatchRequestService
}

func NewOrderHandler(
	orders OrderService,
	tokens TokenService,
	dispatches DispatchRequestService,
) (*OrderHandler, error) {
	if orders == nil || tokens == nil || dispatches == nil {
		return nil, fmt.Errorf("order handler dependencies are required")
	}
	return &OrderHandler{orders: orders, tokens: tokens, dispatches: dispatches}, nil
}

func RegisterOrderRoutes(router fiber.Router, h *OrderHandler) {
	v1 := router.Group("/v1")
	v1.Post("/orders", h.CreateOrder)
	v1.Get("/orders", h.ListOrders)
	v1.Get("/orders/:id", h.GetOrder)
	v1.Post("/orders/:id/complete", h.CompleteOrder)
	v1.Post("/orders/:id/token", h.IssueToken)
	v1.Delete("/orders/:id/token", h.RevokeToken)
	v1.Post("/orders/:id/resend", h.ResendNotifications)
	v1.Post("/orders/labels", h.GetLabels)
}

type createOrderRequest struct {
	OrderNumber    string  `json:"orderNumber"`
	Context        *string `json:"context"`
	SenderName     string  `json:"senderName"`
	SenderPhone    string  `json:"senderPhone"`
	RecipientName  *string `json:"recipientName"`
	RecipientPhone *string `json:"recipientPhone"`
}

type orderResponse struct {
	ID            int64     `json:"id"`
	OrderNumber   string    `json:"orderNumber"`
	Context       *string   `json:"context,omitempty"`
	SenderName    string    `json:"senderName"`
	RecipientName *string   `json:"recipientName,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type orderDetailResponse struct {
	orderResponse
	Token         *tokenResponse         `json:"token,omitempty"`
	Proof         *proofResponse         `json:"proof,omitempty"`
	ShortURL      string                 `json:"shortUrl,omitempty"`
	UploadURL     string                 `json:"uploadUrl,omitempty"`
	PublicURL     string                 `json:"publicUrl,omitempty"`
	Notifications []notificationLogEntry `json:"notifications"`
}

type tokenResponse struct {
	Token     string     `json:"token"`
	IsValid   bool       `json:"isValid"`
	CreatedAt time.Time  `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

type proofResponse struct {
	UploadedAt time.Time `json:"uploadedAt"`
	MimeType   *string   `json:"mimeType,omitempty"`
	FileSize   *int64    `json:"fileSize,omitempty"`
}

type notificationLogEntry struct {
	ID           int64      `json:"id"`
	Type         string     `json:"type"`
	Channel      string     `json:"channel"`
	Status       string     `json:"status"`
	ErrorCode    *string    `json:"errorCode,omitempty"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
}

type issueTokenResponse struct {
	Token     string `json:"token"`
	Reused    bool   `json:"reused"`
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
}

type labelsRequest struct {
	OrderIDs     []int64 `json:"orderIds"`
	EnsureTokens bool    `json:"ensureTokens"`
	Force        bool    `json:"force"`
}

type labelResponse struct {
	OrderID             int64   `json:"orderId"`
	OrderNumber         string  `json:"orderNumber"`
	Token               string  `json:"token"`
	UploadURL           string  `json:"uploadUrl"`
	PublicURL           string  `json:"publicUrl"`
	ShortURL            string  `json:"shortUrl"`
	BrandName           string  `json:"brandName"`
	LogoURL             *string `json:"logoUrl,omitempty"`
	HideDefaultBranding bool    `json:"hideDefaultBranding"`
}

type listOrdersResponse struct {
	Data []orderResponse `json:"data"`
	Meta listMeta        `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	identity, err := requireOrgIdentity(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.orders.Create(c.Context(), identity.OrganizationID, service.CreateOrderInput{
		OrderNumber:    req.OrderNumber,
		Context:        req.Context,
		SenderName:     req.SenderName,
		SenderPhone:    req.SenderPhone,
		RecipientName:  req.RecipientName,
		RecipientPhone: req.RecipientPhone,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
}

func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	identity, err := requireOrgIdentity(c)
	if err != nil {
		return err
	}

	var status *domain.OrderStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := domain.ParseOrderStatusFromString(raw)
		if err != nil {
			return toHTTPError(err)
		}
		status = &parsed
	}

	page := c.QueryInt("page", defaultPage)
	pageSize := c.QueryInt("pageSize", defaultPageSize)
	if page < 1 {
		return toHTTPError(fmt.Errorf("%w: page must be >= 1", domain.ErrValidation))
	}

	orders, total, err := h.orders.List(c.Context(), identity.OrganizationID, status, c.Query("search"), page, pageSize)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]orderResponse, 0, len(orders))
	for i := range orders {
		data = append(data, toOrderResponse(&orders[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listOrdersResponse{
		Data: data,
		Meta: listMeta{Page: page, PageSize: pageSize, Total: total},
	})
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	identity, err := requireOrgIdentity(c)
	if err != nil {
		return err
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	detail, err := h.orders.Detail(c.Context(), identity.OrganizationID, orderID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toOrderDetailResponse(detail))
}

func (h *OrderHandler) CompleteOrder(c *fiber.Ctx) error {
	identity, err := requireOrgIdentity(c)
	if err != nil {
		return err
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	order, err := h.orders.Complete(c.Context(), identity.OrganizationID, orderID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toOrderResponse(order))
}

func (h *OrderHandler) IssueToken(c *fiber.Ctx) error {
	identity, err := requireOrgIdentity(c)
	if err != nil {
		return err
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	force := c.QueryBool("force", false)
	result, err := h.orders.IssueToken(c.Context(), identity.OrganizationID, orderID, force)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(issueTokenResponse{
		Token:     result.Token,
		Reused:    result.Reused,
		UploadURL: result.UploadURL,
		PublicURL: result.PublicURL,
	})
}

func (h *OrderHandler) RevokeToken(c *fiber.Ctx) error {
	identity, err := requireOrgIdentity(c)
	if err != nil {
		return err
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	if _, err := h.orders.Detail(c.Context(), identity.OrganizationID, orderID); err != nil {
		return toHTTPError(err)
	}

	if err := h.tokens.Revoke(c.Context(), orderID); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "revoked"})
}

func (h *OrderHandler) ResendNotifications(c *fiber.Ctx) error {
	identity, err := requireOrgIdentity(c)
	if err != nil {
		return err
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	if err := h.dispatches.Request(c.Context(), identity.OrganizationID, orderID, true); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "ok"})
}

func (h *OrderHandler) GetLabels(c *fiber.Ctx) error {
	identity, err := requireOrgIdentity(c)
	if err != nil {
		return err
	}

	var req labelsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	bundles, err := h.orders.GetLabels(c.Context(), identity.OrganizationID, req.OrderIDs, req.EnsureTokens, req.Force)
	if err != nil {
		return toHTTPError(err)
	}

	labels := make([]labelResponse, 0, len(bundles))
	for _, b := range bundles {
		labels = append(labels, labelResponse{
			OrderID:             b.OrderID,
			OrderNumber:         b.OrderNumber,
			Token:               b.Token,
			UploadURL:           b.UploadURL,
			PublicURL:           b.PublicURL,
			ShortURL:            b.ShortURL,
			BrandName:           b.BrandName,
			LogoURL:             b.LogoURL,
			HideDefaultBranding: b.HideDefaultBranding,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"labels": labels})
}

func toOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Context:       o.Context,
		SenderName:    o.SenderName,
		RecipientName: o.RecipientName,
		Status:        o.Status.String(),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toOrderDetailResponse(d *service.OrderDetail) orderDetailResponse {
	resp := orderDetailResponse{
		orderResponse: toOrderResponse(d.Order),
		ShortURL:      d.ShortURL,
		UploadURL:     d.UploadURL,
		PublicURL:     d.PublicURL,
		Notifications: make([]notificationLogEntry, 0, len(d.Notifications)),
	}

	if d.Token != nil {
		resp.Token = &tokenResponse{
			Token:     d.Token.Token,
			IsValid:   d.Token.IsValid,
			CreatedAt: d.Token.CreatedAt,
			RevokedAt: d.Token.RevokedAt,
		}
	}
	if d.Proof != nil {
		resp.Proof = &proofResponse{
			UploadedAt: d.Proof.UploadedAt,
			MimeType:   d.Proof.MimeType,
			FileSize:   d.Proof.FileSize,
		}
	}
	for _, n := range d.Notifications {
		resp.Notifications = append(resp.Notifications, notificationLogEntry{
			ID:           n.ID,
			Type:         n.Type.String(),
			Channel:      n.Channel.String(),
			Status:       n.Status.String(),
			ErrorCode:    n.ErrorCode,
			ErrorMessage: n.ErrorMessage,
			CreatedAt:    n.CreatedAt,
			SentAt:       n.SentAt,
		})
	}
	return resp
}

func orderIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Params("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}
	return id, nil
}

// requireOrgIdentity rejects admin-key requests on tenant-scoped routes
// unless they pin an organization via the X-Org-ID header.
func requireOrgIdentity(c *fiber.Ctx) (*auth.Identity, error) {
	identity, err := auth.IdentityFromCtx(c)
	if err != nil {
		return nil, err
	}
	if identity.OrganizationID > 0 {
		return identity, nil
	}

	if identity.IsAdmin {
		orgID, err := strconv.ParseInt(strings.TrimSpace(c.Get("X-Org-ID")), 10, 64)
		if err == nil && orgID > 0 {
			return &auth.Identity{OrganizationID: orgID, IsAdmin: true}, nil
		}
		return nil, fiber.NewError(fiber.StatusBadRequest, "admin requests must pin an organization via X-Org-ID")
	}
	return nil, fiber.NewError(fiber.StatusUnauthorized, "request is not bound to an organization")
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrShortLinkNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidStateTransition), errors.Is(err, domain.ErrProofNotUploaded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
