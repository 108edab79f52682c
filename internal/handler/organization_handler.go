package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saegim/proofdesk/internal/auth"
	"github.com/saegim/proofdesk/internal/domain"
)

// OrganizationService is the tenant-settings surface the HTTP layer needs.
type OrganizationService interface {
	Get(ctx context.Context, id int64) (*domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
	Update(ctx context.Context, id int64, update domain.OrganizationUpdate) (*domain.Organization, error)
}

type OrganizationHandler struct {
	organizations OrganizationService
}

func NewOrganizationHandler(organizations OrganizationService) (*OrganizationHandler, error) {
	if organizations == nil {
		return nil, fmt.Errorf("organization service is required")
	}
	return &OrganizationHandler{organizations: organizations}, nil
}

func RegisterOrganizationRoutes(router fiber.Router, h *OrganizationHandler, authMw *auth.Middleware) {
	v1 := router.Group("/v1")
	v1.Get("/organization", h.GetOrganization)
	v1.Patch("/organization", h.UpdateOrganization)
	v1.Get("/organizations", authMw.RequireAdmin(), h.ListOrganizations)
}

type organizationResponse struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	PlanType            string    `json:"planType"`
	LogoURL             *string   `json:"logoUrl,omitempty"`
	BrandName           *string   `json:"brandName,omitempty"`
	BrandLogoURL        *string   `json:"brandLogoUrl,omitempty"`
	BrandDomain         *string   `json:"brandDomain,omitempty"`
	HideDefaultBranding bool      `json:"hideDefaultBranding"`
	FallbackSMSEnabled  *bool     `json:"fallbackSmsEnabled,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`

	AlimtalkTemplateSender    *string `json:"alimtalkTemplateSender,omitempty"`
	AlimtalkTemplateRecipient *string `json:"alimtalkTemplateRecipient,omitempty"`
	SMSTemplateSender         *string `json:"smsTemplateSender,omitempty"`
	SMSTemplateRecipient      *string `json:"smsTemplateRecipient,omitempty"`
	KakaoTemplateCode         *string `json:"kakaoTemplateCode,omitempty"`
}

func (h *OrganizationHandler) GetOrganization(c *fiber.Ctx) error {
	identity, err := requireOrgIdentity(c)
	if err != nil {
		return err
	}

	org, err := h.organizations.Get(c.Context(), identity.OrganizationID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toOrganizationResponse(org))
}

func (h *OrganizationHandler) UpdateOrganization(c *fiber.Ctx) error {
	identity, err := requireOrgIdentity(c)
	if err != nil {
		return err
	}

	var update domain.OrganizationUpdate
	if err := c.BodyParser(&update); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	org, err := h.organizations.Update(c.Context(), identity.OrganizationID, update)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toOrganizationResponse(org))
}

func (h *OrganizationHandler) ListOrganizations(c *fiber.Ctx) error {
	orgs, err := h.organizations.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]organizationResponse, 0, len(orgs))
	for i := range orgs {
		data = append(data, toOrganizationResponse(&orgs[i]))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": data})
}

func toOrganizationResponse(o *domain.Organization) organizationResponse {
	return organizationResponse{
		ID:                  o.ID,
		Name:                o.Name,
		PlanType:            o.PlanType.String(),
		LogoURL:             o.LogoURL,
		BrandName:           o.BrandName,
		BrandLogoURL:        o.BrandLogoURL,
		BrandDomain:         o.BrandDomain,
		HideDefaultBranding: o.HideDefaultBranding,
		FallbackSMSEnabled:  o.FallbackSMSEnabled,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,

		AlimtalkTemplateSender:    o.AlimtalkTemplateSender,
		AlimtalkTemplateRecipient: o.AlimtalkTemplateRecipient,
		SMSTemplateSender:         o.SMSTemplateSender,
		SMSTemplateRecipient:      o.SMSTemplateRecipient,
		KakaoTemplateCode:         o.KakaoTemplateCode,
	}
}
