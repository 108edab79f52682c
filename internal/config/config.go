package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`
	APIPort     int    `env:"API_PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// Public URL bases: WebBaseURL serves proof pages and short links,
	// AppBaseURL serves this API (uploads live under it).
	WebBaseURL string `env:"WEB_BASE_URL,required=true"`
	AppBaseURL string `env:"APP_BASE_URL,required=true"`

	// Messaging provider selection and credentials.
	MessagingProvider string `env:"MESSAGING_PROVIDER,default=mock"`
	KakaoBaseURL      string `env:"KAKAOI_BASE_URL"`
	KakaoAccessToken  string `env:"KAKAOI_ACCESS_TOKEN"`
	KakaoSenderKey    string `env:"KAKAOI_SENDER_KEY"`
	KakaoTemplateCode string `env:"KAKAOI_TEMPLATE_CODE"`
	KakaoSenderNo     string `env:"KAKAOI_SENDER_NO"`
	SensBaseURL       string `env:"SENS_BASE_URL,default=https://sens.apigw.ntruss.com"`
	SensAccessKey     string `env:"SENS_ACCESS_KEY"`
	SensSecretKey     string `env:"SENS_SECRET_KEY"`
	SensServiceID     string `env:"SENS_SMS_SERVICE_ID"`
	SensFrom          string `env:"SENS_SMS_FROM"`

	// Global default for the tenant-overridable SMS fallback switch.
	FallbackSMSEnabled bool `env:"FALLBACK_SMS_ENABLED,default=true"`

	// Global default message templates; organizations may override per tenant.
	AlimtalkTemplateSender    string `env:"MSG_ALIMTALK_TEMPLATE_SENDER,default={brand} 배송이 완료되었습니다. 주문 {order} 확인: {url}"`
	AlimtalkTemplateRecipient string `env:"MSG_ALIMTALK_TEMPLATE_RECIPIENT,default={sender}님이 보낸 {brand} 상품이 도착했습니다. 확인: {url}"`
	SMSTemplateSender         string `env:"MSG_SMS_TEMPLATE_SENDER,default=[{brand}] 주문 {order} 배송 완료 {url}"`
	SMSTemplateRecipient      string `env:"MSG_SMS_TEMPLATE_RECIPIENT,default=[{brand}] 상품이 도착했습니다 {url}"`

	// Phone number protection.
	PhoneEncryptionKey string `env:"PHONE_ENC_KEY,required=true"`

	// Auth: bearer tokens verified against a JWKS document, with an
	// admin-key escape hatch for operational tooling.
	AuthEnabled      bool   `env:"AUTH_ENABLED,default=true"`
	AuthJWKSURL      string `env:"AUTH_JWKS_URL"`
	AuthIssuer       string `env:"AUTH_ISSUER"`
	AuthAudience     string `env:"AUTH_AUDIENCE"`
	AllowAdminAPIKey bool   `env:"ALLOW_ADMIN_API_KEY,default=false"`
	AdminAPIKey      string `env:"ADMIN_API_KEY"`

	// Send throttling: the channel-specific ceilings default to 0, which
	// inherits RATE_LIMIT_PER_SEC.
	RateLimitPerSec         int `env:"RATE_LIMIT_PER_SEC,default=50"`
	AlimtalkRateLimitPerSec int `env:"ALIMTALK_RATE_LIMIT_PER_SEC,default=0"`
	SMSRateLimitPerSec      int `env:"SMS_RATE_LIMIT_PER_SEC,default=0"`
	WorkerConcurrency       int `env:"WORKER_CONCURRENCY,default=8"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.WebBaseURL = strings.TrimRight(cfg.WebBaseURL, "/")
	cfg.AppBaseURL = strings.TrimRight(cfg.AppBaseURL, "/")

	return &cfg, nil
}
