package domain

import (
	"fmt"
	"strings"
	"time"
)

// PlanType is the organization's plan tier.
type PlanType string

const (
	PlanBasic PlanType = "BASIC"
	PlanPro   PlanType = "PRO"
)

func (p PlanType) String() string { return string(p) }

func (p PlanType) IsValid() bool {
	switch p {
	case PlanBasic, PlanPro:
		return true
	}
	return false
}

func ParsePlanTypeFromString(s string) (PlanType, error) {
	p := PlanType(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: invalid plan type %q", ErrValidation, s)
	}
	return p, nil
}

// Organization is the tenant boundary. Branding and messaging template
// columns are overrides; nil means "inherit the global default".
type Organization struct {
	ID            int64
	ExternalOrgID *string
	Name          string
	PlanType      PlanType
	LogoURL       *string

	// White-label branding overrides.
	BrandName           *string
	BrandLogoURL        *string
	BrandDomain         *string
	HideDefaultBranding bool

	// Per-tenant message template overrides.
	AlimtalkTemplateSender    *string
	AlimtalkTemplateRecipient *string
	SMSTemplateSender         *string
	SMSTemplateRecipient      *string
	KakaoTemplateCode         *string

	// nil = inherit the global fallback default.
	FallbackSMSEnabled *bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Organization) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("%w: organization name is required", ErrValidation)
	}
	if !o.PlanType.IsValid() {
		return fmt.Errorf("%w: invalid plan type %q", ErrValidation, o.PlanType)
	}
	return nil
}

// DisplayBrandName returns the white-label brand name, falling back to the
// internal organization name.
func (o *Organization) DisplayBrandName() string {
	if o.BrandName != nil && strings.TrimSpace(*o.BrandName) != "" {
		return *o.BrandName
	}
	return o.Name
}

// DisplayLogoURL returns the white-label logo, falling back to the internal one.
func (o *Organization) DisplayLogoURL() *string {
	if o.BrandLogoURL != nil && strings.TrimSpace(*o.BrandLogoURL) != "" {
		return o.BrandLogoURL
	}
	return o.LogoURL
}

// FallbackEnabled resolves the tenant override against the global default.
func (o *Organization) FallbackEnabled(globalDefault bool) bool {
	if o.FallbackSMSEnabled != nil {
		return *o.FallbackSMSEnabled
	}
	return globalDefault
}

// OrganizationUpdate carries a partial update. Tri-state fields distinguish
// omitted from explicit null; null clears the override.
type OrganizationUpdate struct {
	Name    Optional[string] `json:"name"`
	LogoURL Optional[string] `json:"logoUrl"`

	BrandName           Optional[string] `json:"brandName"`
	BrandLogoURL        Optional[string] `json:"brandLogoUrl"`
	BrandDomain         Optional[string] `json:"brandDomain"`
	HideDefaultBranding Optional[bool]   `json:"hideDefaultBranding"`

	AlimtalkTemplateSender    Optional[string] `json:"alimtalkTemplateSender"`
	AlimtalkTemplateRecipient Optional[string] `json:"alimtalkTemplateRecipient"`
	SMSTemplateSender         Optional[string] `json:"smsTemplateSender"`
	SMSTemplateRecipient      Optional[string] `json:"smsTemplateRecipient"`
	KakaoTemplateCode         Optional[string] `json:"kakaoTemplateCode"`
	FallbackSMSEnabled        Optional[bool]   `json:"fallbackSmsEnabled"`
}
