package repository

import (
	"time"

	"github.com/saegim/proofdesk/internal/domain"
)

// OrganizationModel is the persistence model for the organizations table.
type OrganizationModel struct {
	ID            int64           `gorm:"primaryKey"`
	ExternalOrgID *string         `gorm:"type:varchar(255);uniqueIndex"`
	Name          string          `gorm:"type:varchar(255);not null"`
	PlanType      domain.PlanType `gorm:"type:varchar(10);not null;default:BASIC"`
	LogoURL       *string         `gorm:"type:varchar(500)"`

	BrandName           *string `gorm:"type:varchar(255)"`
	BrandLogoURL        *string `gorm:"type:varchar(500)"`
	BrandDomain         *string `gorm:"type:varchar(255)"`
	HideDefaultBranding bool    `gorm:"not null;default:false"`

	AlimtalkTemplateSender    *string `gorm:"type:text"`
	AlimtalkTemplateRecipient *string `gorm:"type:text"`
	SMSTemplateSender         *string `gorm:"type:text;column:sms_template_sender"`
	SMSTemplateRecipient      *string `gorm:"type:text;column:sms_template_recipient"`
	KakaoTemplateCode         *string `gorm:"type:varchar(100)"`
	FallbackSMSEnabled        *bool   `gorm:"column:fallback_sms_enabled"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrganizationModel) TableName() string { return "organizations" }

// OrderModel is the persistence model for the orders table.
type OrderModel struct {
	ID                      int64              `gorm:"primaryKey"`
	OrganizationID          int64              `gorm:"not null;index;uniqueIndex:uq_orders_org_order_number"`
	OrderNumber             string             `gorm:"type:varchar(100);not null;uniqueIndex:uq_orders_org_order_number"`
	Context                 *string            `gorm:"type:varchar(500)"`
	SenderName              string             `gorm:"type:varchar(100);not null"`
	SenderPhoneEncrypted    string             `gorm:"type:text;not null"`
	RecipientName           *string            `gorm:"type:varchar(100)"`
	RecipientPhoneEncrypted *string            `gorm:"type:text"`
	Status                  domain.OrderStatus `gorm:"type:varchar(20);not null;default:PENDING;index"`
	CreatedAt               time.Time
	UpdatedAt               time.Time

	Organization *OrganizationModel `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
}

func (OrderModel) TableName() string { return "orders" }

// QRTokenModel is the persistence model for the qr_tokens table.
type QRTokenModel struct {
	ID        int64  `gorm:"primaryKey"`
	Token     string `gorm:"type:varchar(32);not null;uniqueIndex"`
	OrderID   int64  `gorm:"not null;uniqueIndex"`
	IsValid   bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	RevokedAt *time.Time

	Order *OrderModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (QRTokenModel) TableName() string { return "qr_tokens" }

// ProofModel is the persistence model for the proofs table. This core only
// reads it; rows are written by the upload handler.
type ProofModel struct {
	ID         int64   `gorm:"primaryKey"`
	OrderID    int64   `gorm:"not null;uniqueIndex"`
	FilePath   string  `gorm:"type:varchar(500);not null"`
	FileSize   *int64  `gorm:"type:bigint"`
	MimeType   *string `gorm:"type:varchar(50)"`
	UploadedAt time.Time

	Order *OrderModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (ProofModel) TableName() string { return "proofs" }

// NotificationModel is the persistence model for the notifications table.
type NotificationModel struct {
	ID                int64                      `gorm:"primaryKey"`
	OrderID           int64                      `gorm:"not null;index"`
	Type              domain.NotificationType    `gorm:"type:varchar(10);not null"`
	Channel           domain.NotificationChannel `gorm:"type:varchar(10);not null"`
	Status            domain.NotificationStatus  `gorm:"type:varchar(20);not null;default:PENDING"`
	PhoneHash         string                     `gorm:"type:varchar(64);not null;index"`
	ProviderRequestID *string                    `gorm:"type:varchar(100)"`
	ProviderResponse  *string                    `gorm:"type:text"`
	MessageURL        *string                    `gorm:"type:varchar(1024)"`
	ErrorCode         *string                    `gorm:"type:varchar(64)"`
	ErrorMessage      *string                    `gorm:"type:text"`
	CreatedAt         time.Time
	SentAt            *time.Time

	Order *OrderModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (NotificationModel) TableName() string { return "notifications" }

// ShortLinkModel is the persistence model for the short_links table.
type ShortLinkModel struct {
	ID            int64  `gorm:"primaryKey"`
	Code          string `gorm:"type:varchar(12);not null;uniqueIndex"`
	OrderID       int64  `gorm:"not null;uniqueIndex"`
	TargetToken   string `gorm:"type:varchar(32);not null"`
	TargetPath    string `gorm:"type:varchar(255);not null;default:/p"`
	ClickCount    int    `gorm:"not null;default:0"`
	LastClickedAt *time.Time
	CreatedAt     time.Time

	Order *OrderModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (ShortLinkModel) TableName() string { return "short_links" }

func organizationModelFromDomain(o *domain.Organization) *OrganizationModel {
	if o == nil {
		return nil
	}
	return &OrganizationModel{
		ID:                        o.ID,
		ExternalOrgID:             o.ExternalOrgID,
		Name:                      o.Name,
		PlanType:                  o.PlanType,
		LogoURL:                   o.LogoURL,
		BrandName:                 o.BrandName,
		BrandLogoURL:              o.BrandLogoURL,
		BrandDomain:               o.BrandDomain,
		HideDefaultBranding:       o.HideDefaultBranding,
		AlimtalkTemplateSender:    o.AlimtalkTemplateSender,
		AlimtalkTemplateRecipient: o.AlimtalkTemplateRecipient,
		SMSTemplateSender:         o.SMSTemplateSender,
		SMSTemplateRecipient:      o.SMSTemplateRecipient,
		KakaoTemplateCode:         o.KakaoTemplateCode,
		FallbackSMSEnabled:        o.FallbackSMSEnabled,
		CreatedAt:                 o.CreatedAt,
		UpdatedAt:                 o.UpdatedAt,
	}
}

func organizationModelToDomain(m *OrganizationModel) *domain.Organization {
	if m == nil {
		return nil
	}
	return &domain.Organization{
		ID:                        m.ID,
		ExternalOrgID:             m.ExternalOrgID,
		Name:                      m.Name,
		PlanType:                  m.PlanType,
		LogoURL:                   m.LogoURL,
		BrandName:                 m.BrandName,
		BrandLogoURL:              m.BrandLogoURL,
		BrandDomain:               m.BrandDomain,
		HideDefaultBranding:       m.HideDefaultBranding,
		AlimtalkTemplateSender:    m.AlimtalkTemplateSender,
		AlimtalkTemplateRecipient: m.AlimtalkTemplateRecipient,
		SMSTemplateSender:         m.SMSTemplateSender,
		SMSTemplateRecipient:      m.SMSTemplateRecipient,
		KakaoTemplateCode:         m.KakaoTemplateCode,
		FallbackSMSEnabled:        m.FallbackSMSEnabled,
		CreatedAt:                 m.CreatedAt,
		UpdatedAt:                 m.UpdatedAt,
	}
}

func orderModelFromDomain(o *domain.Order) *OrderModel {
	if o == nil {
		return nil
	}
	return &OrderModel{
		ID:                      o.ID,
		OrganizationID:          o.OrganizationID,
		OrderNumber:             o.OrderNumber,
		Context:                 o.Context,
		SenderName:              o.SenderName,
		SenderPhoneEncrypted:    o.SenderPhoneEncrypted,
		RecipientName:           o.RecipientName,
		RecipientPhoneEncrypted: o.RecipientPhoneEncrypted,
		Status:                  o.Status,
		CreatedAt:               o.CreatedAt,
		UpdatedAt:               o.UpdatedAt,
	}
}

func orderModelToDomain(m *OrderModel) *domain.Order {
	if m == nil {
		return nil
	}
	return &domain.Order{
		ID:                      m.ID,
		OrganizationID:          m.OrganizationID,
		OrderNumber:             m.OrderNumber,
		Context:                 m.Context,
		SenderName:              m.SenderName,
		SenderPhoneEncrypted:    m.SenderPhoneEncrypted,
		RecipientName:           m.RecipientName,
		RecipientPhoneEncrypted: m.RecipientPhoneEncrypted,
		Status:                  m.Status,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}

func tokenModelFromDomain(t *domain.QRToken) *QRTokenModel {
	if t == nil {
		return nil
	}
	return &QRTokenModel{
		ID:        t.ID,
		Token:     t.Token,
		OrderID:   t.OrderID,
		IsValid:   t.IsValid,
		CreatedAt: t.CreatedAt,
		RevokedAt: t.RevokedAt,
	}
}

func tokenModelToDomain(m *QRTokenModel) *domain.QRToken {
	if m == nil {
		return nil
	}
	return &domain.QRToken{
		ID:        m.ID,
		Token:     m.Token,
		OrderID:   m.OrderID,
		IsValid:   m.IsValid,
		CreatedAt: m.CreatedAt,
		RevokedAt: m.RevokedAt,
	}
}

func proofModelToDomain(m *ProofModel) *domain.Proof {
	if m == nil {
		return nil
	}
	return &domain.Proof{
		ID:         m.ID,
		OrderID:    m.OrderID,
		FilePath:   m.FilePath,
		FileSize:   m.FileSize,
		MimeType:   m.MimeType,
		UploadedAt: m.UploadedAt,
	}
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}
	return &NotificationModel{
		ID:                n.ID,
		OrderID:           n.OrderID,
		Type:              n.Type,
		Channel:           n.Channel,
		Status:            n.Status,
		PhoneHash:         n.PhoneHash,
		ProviderRequestID: n.ProviderRequestID,
		ProviderResponse:  n.ProviderResponse,
		MessageURL:        n.MessageURL,
		ErrorCode:         n.ErrorCode,
		ErrorMessage:      n.ErrorMessage,
		CreatedAt:         n.CreatedAt,
		SentAt:            n.SentAt,
	}
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}
	return &domain.Notification{
		ID:                m.ID,
		OrderID:           m.OrderID,
		Type:              m.Type,
		Channel:           m.Channel,
		Status:            m.Status,
		PhoneHash:         m.PhoneHash,
		ProviderRequestID: m.ProviderRequestID,
		ProviderResponse:  m.ProviderResponse,
		MessageURL:        m.MessageURL,
		ErrorCode:         m.ErrorCode,
		ErrorMessage:      m.ErrorMessage,
		CreatedAt:         m.CreatedAt,
		SentAt:            m.SentAt,
	}
}

func shortLinkModelFromDomain(s *domain.ShortLink) *ShortLinkModel {
	if s == nil {
		return nil
	}
	return &ShortLinkModel{
		ID:            s.ID,
		Code:          s.Code,
		OrderID:       s.OrderID,
		TargetToken:   s.TargetToken,
		TargetPath:    s.TargetPath,
		ClickCount:    s.ClickCount,
		LastClickedAt: s.LastClickedAt,
		CreatedAt:     s.CreatedAt,
	}
}

func shortLinkModelToDomain(m *ShortLinkModel) *domain.ShortLink {
	if m == nil {
		return nil
	}
	return &domain.ShortLink{
		ID:            m.ID,
		Code:          m.Code,
		OrderID:       m.OrderID,
		TargetToken:   m.TargetToken,
		TargetPath:    m.TargetPath,
		ClickCount:    m.ClickCount,
		LastClickedAt: m.LastClickedAt,
		CreatedAt:     m.CreatedAt,
	}
}
