package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/repository"
)

// OrganizationService manages tenant settings: branding, template
// overrides, and the fallback switch.
type OrganizationService struct {
	organizations repository.OrganizationRepository
	logger        *zap.Logger
}

func NewOrganizationService(organizations repository.OrganizationRepository, logger *zap.Logger) *OrganizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{organizations: organizations, logger: logger}
}

func (s *OrganizationService) Get(ctx context.Context, id int64) (*domain.Organization, error) {
	return s.organizations.GetByID(ctx, id)
}

func (s *OrganizationService) List(ctx context.Context) ([]domain.Organization, error) {
	return s.organizations.List(ctx)
}

// Update applies a partial update. Omitted fields are untouched; explicit
// nulls clear the override so the tenant inherits the global default again.
func (s *OrganizationService) Update(ctx context.Context, id int64, update domain.OrganizationUpdate) (*domain.Organization, error) {
	fields := map[string]any{}

	if update.Name.IsSet() {
		name, ok := update.Name.Value()
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: organization name cannot be cleared", domain.ErrValidation)
		}
		fields["name"] = strings.TrimSpace(name)
	}

	applyOptionalString(fields, "logo_url", update.LogoURL)
	applyOptionalString(fields, "brand_name", update.BrandName)
	applyOptionalString(fields, "brand_logo_url", update.BrandLogoURL)
	applyOptionalString(fields, "brand_domain", update.BrandDomain)
	applyOptionalString(fields, "alimtalk_template_sender", update.AlimtalkTemplateSender)
	applyOptionalString(fields, "alimtalk_template_recipient", update.AlimtalkTemplateRecipient)
	applyOptionalString(fields, "sms_template_sender", update.SMSTemplateSender)
	applyOptionalString(fields, "sms_template_recipient", update.SMSTemplateRecipient)
	applyOptionalString(fields, "kakao_template_code", update.KakaoTemplateCode)

	if update.HideDefaultBranding.IsSet() {
		if hide, ok := update.HideDefaultBranding.Value(); ok {
			fields["hide_default_branding"] = hide
		} else {
			fields["hide_default_branding"] = false
		}
	}

	if update.FallbackSMSEnabled.IsSet() {
		if enabled, ok := update.FallbackSMSEnabled.Value(); ok {
			fields["fallback_sms_enabled"] = enabled
		} else {
			fields["fallback_sms_enabled"] = nil
		}
	}

	if err := s.organizations.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}

	s.logger.Info("updated organization",
		zap.Int64("organizationId", id),
		zap.Int("fieldCount", len(fields)),
	)
	return s.organizations.GetByID(ctx, id)
}

func applyOptionalString(fields map[string]any, column string, opt domain.Optional[string]) {
	if !opt.IsSet() {
		return
	}
	if value, ok := opt.Value(); ok {
		fields[column] = value
		return
	}
	fields[column] = nil
}
