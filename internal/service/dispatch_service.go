package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/observability"
	"github.com/saegim/proofdesk/internal/provider"
	"github.com/saegim/proofdesk/internal/ratelimit"
	"github.com/saegim/proofdesk/internal/repository"
	"github.com/saegim/proofdesk/internal/security"
	"github.com/saegim/proofdesk/internal/template"
)

// MessageTemplates holds the global default templates. Organizations may
// override any of them per tenant.
type MessageTemplates struct {
	AlimtalkSender    string
	AlimtalkRecipient string
	SMSSender         string
	SMSRecipient      string
}

// DispatchSettings is the configuration slice the orchestrator needs.
type DispatchSettings struct {
	Templates          MessageTemplates
	FallbackSMSEnabled bool
	KakaoSenderKey     string
	KakaoTemplateCode  string
	KakaoSenderNo      string
	SensFrom           string
}

// DirectionOutcome is the result of one direction within a dispatch cycle.
type DirectionOutcome struct {
	Type      domain.NotificationType
	Channel   domain.NotificationChannel
	Status    domain.NotificationStatus
	ErrorCode string
}

// DispatchResult summarizes one dispatch cycle.
type DispatchResult struct {
	OrderID       int64
	Outcomes      []DirectionOutcome
	StatusAdvance bool
}

// DispatchService executes one notification cycle for an order: render the
// message per direction, try the primary channel, conditionally fall back
// to SMS, and persist one outcome row per direction. Provider failures are
// recorded on the rows, never propagated.
type DispatchService struct {
	orders        repository.OrderRepository
	organizations repository.OrganizationRepository
	notifications repository.NotificationRepository
	proofs        repository.ProofRepository
	tokens        repository.TokenRepository
	shortLinks    *ShortLinkService
	tokenSvc      *TokenService

	primary  provider.MessagingProvider
	fallback provider.MessagingProvider
	limiter  ratelimit.RateLimiter
	cipher   *security.PhoneCipher
	settings DispatchSettings
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewDispatchService(
	orders repository.OrderRepository,
	organizations repository.OrganizationRepository,
	notifications repository.NotificationRepository,
	proofs repository.ProofRepository,
	tokens repository.TokenRepository,
	shortLinks *ShortLinkService,
	tokenSvc *TokenService,
	primary provider.MessagingProvider,
	fallback provider.MessagingProvider,
	limiter ratelimit.RateLimiter,
	cipher *security.PhoneCipher,
	settings DispatchSettings,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DispatchService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		orders:        orders,
		organizations: organizations,
		notifications: notifications,
		proofs:        proofs,
		tokens:        tokens,
		shortLinks:    shortLinks,
		tokenSvc:      tokenSvc,
		primary:       primary,
		fallback:      fallback,
		limiter:       limiter,
		cipher:        cipher,
		settings:      settings,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// Dispatch runs one notification cycle. The proof must exist; beyond that
// precondition the cycle always completes and records what happened. The
// order advances PROOF_UPLOADED -> NOTIFIED at most once, only after all
// rows of the cycle are committed.
func (s *DispatchService) Dispatch(ctx context.Context, orderID int64) (*DispatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.metrics != nil {
		s.metrics.IncDispatchInFlight()
		defer s.metrics.DecDispatchInFlight()
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	hasProof, err := s.proofs.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !hasProof {
		return nil, fmt.Errorf("%w: order %d", domain.ErrProofNotUploaded, order.ID)
	}

	org, err := s.organizations.GetByID(ctx, order.OrganizationID)
	if err != nil {
		return nil, err
	}

	messageURL, err := s.messageURL(ctx, order)
	if err != nil {
		return nil, err
	}

	directions := []domain.NotificationType{domain.NotificationSender}
	if order.HasRecipient() {
		directions = append(directions, domain.NotificationRecipient)
	}

	outcomes := make([]DirectionOutcome, len(directions))
	g, gctx := errgroup.WithContext(ctx)
	for i, direction := range directions {
		g.Go(func() error {
			outcome, err := s.dispatchDirection(gctx, order, org, direction, messageURL)
			if err != nil {
				return err
			}
			outcomes[i] = *outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Only persistence failures surface here; provider failures are
		// already recorded on the rows.
		return nil, err
	}

	advanced := false
	if order.Status == domain.OrderStatusProofUploaded {
		err := s.orders.AdvanceStatus(ctx, order.ID, domain.OrderStatusProofUploaded, domain.OrderStatusNotified)
		switch {
		case err == nil:
			advanced = true
		case errors.Is(err, domain.ErrInvalidStateTransition):
			// A concurrent cycle advanced first; the rows still stand.
		default:
			return nil, err
		}
	}

	s.logger.Info("dispatch cycle complete",
		zap.Int64("orderId", order.ID),
		zap.Int("directions", len(directions)),
		zap.Bool("statusAdvanced", advanced),
	)

	return &DispatchResult{
		OrderID:       order.ID,
		Outcomes:      outcomes,
		StatusAdvance: advanced,
	}, nil
}

// dispatchDirection runs the strictly sequential primary -> fallback chain
// for one direction and persists exactly one outcome row. The returned
// error is non-nil only for persistence failures.
func (s *DispatchService) dispatchDirection(
	ctx context.Context,
	order *domain.Order,
	org *domain.Organization,
	direction domain.NotificationType,
	messageURL string,
) (*DirectionOutcome, error) {
	phone, err := s.directionPhone(order, direction)
	if err != nil {
		return nil, err
	}

	renderCtx := s.renderContext(order, org, messageURL)

	row := &domain.Notification{
		OrderID:    order.ID,
		Type:       direction,
		Channel:    domain.ChannelAlimtalk,
		Status:     domain.NotificationPending,
		PhoneHash:  security.HashPhone(phone),
		MessageURL: &messageURL,
	}

	primaryResult, primaryErr := s.sendAlimtalk(ctx, org, direction, phone, renderCtx)
	switch {
	case primaryErr == nil:
		s.markSent(row, domain.ChannelAlimtalk, s.primary.Name(), primaryResult, false)

	case s.shouldFallback(org, primaryErr):
		if s.metrics != nil {
			s.metrics.IncFallback(strings.ToLower(provider.ErrorCode(primaryErr)))
		}
		fallbackResult, fallbackErr := s.sendSMS(ctx, org, direction, phone, renderCtx)
		if fallbackErr == nil {
			s.markSent(row, domain.ChannelSMS, s.fallback.Name(), fallbackResult, true)
		} else {
			s.markFailed(row, domain.ChannelSMS, fallbackErr)
		}

	default:
		s.markFailed(row, domain.ChannelAlimtalk, primaryErr)
	}

	if err := s.notifications.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to record notification outcome: %w", err)
	}

	return &DirectionOutcome{
		Type:      direction,
		Channel:   row.Channel,
		Status:    row.Status,
		ErrorCode: stringValue(row.ErrorCode),
	}, nil
}

func (s *DispatchService) sendAlimtalk(
	ctx context.Context,
	org *domain.Organization,
	direction domain.NotificationType,
	phone string,
	renderCtx map[string]string,
) (*provider.SendResult, error) {
	if err := s.limiter.Wait(ctx, strings.ToLower(domain.ChannelAlimtalk.String())); err != nil {
		return nil, err
	}

	tmpl := s.alimtalkTemplate(org, direction)
	templateCode := s.settings.KakaoTemplateCode
	if org.KakaoTemplateCode != nil && strings.TrimSpace(*org.KakaoTemplateCode) != "" {
		templateCode = *org.KakaoTemplateCode
	}

	start := s.now()
	result, err := s.primary.SendAlimtalk(ctx, provider.AlimtalkRequest{
		Phone:        phone,
		Message:      template.Render(tmpl, renderCtx),
		SenderKey:    s.settings.KakaoSenderKey,
		TemplateCode: templateCode,
		SenderNo:     s.settings.KakaoSenderNo,
	})
	if s.metrics != nil {
		s.metrics.ObserveProviderSendDuration(domain.ChannelAlimtalk.String(), s.now().Sub(start))
	}
	return result, err
}

func (s *DispatchService) sendSMS(
	ctx context.Context,
	org *domain.Organization,
	direction domain.NotificationType,
	phone string,
	renderCtx map[string]string,
) (*provider.SendResult, error) {
	if err := s.limiter.Wait(ctx, strings.ToLower(domain.ChannelSMS.String())); err != nil {
		return nil, err
	}

	start := s.now()
	result, err := s.fallback.SendSMS(ctx, provider.SMSRequest{
		Phone:   phone,
		Content: template.Render(s.smsTemplate(org, direction), renderCtx),
		From:    s.settings.SensFrom,
	})
	if s.metrics != nil {
		s.metrics.ObserveProviderSendDuration(domain.ChannelSMS.String(), s.now().Sub(start))
	}
	return result, err
}

func (s *DispatchService) markSent(
	row *domain.Notification,
	channel domain.NotificationChannel,
	providerName string,
	result *provider.SendResult,
	viaFallback bool,
) {
	row.Channel = channel
	switch {
	case providerName == provider.MockName:
		row.Status = domain.NotificationMockSent
	case viaFallback:
		row.Status = domain.NotificationFallbackSent
	default:
		row.Status = domain.NotificationSent
	}

	sentAt := s.now().UTC()
	row.SentAt = &sentAt
	if result != nil {
		if result.RequestID != "" {
			row.ProviderRequestID = &result.RequestID
		}
		if result.Raw != "" {
			row.ProviderResponse = &result.Raw
		}
	}

	if s.metrics != nil {
		s.metrics.IncNotificationSent(channel.String(), row.Type.String())
	}
}

func (s *DispatchService) markFailed(row *domain.Notification, channel domain.NotificationChannel, err error) {
	row.Channel = channel
	row.Status = domain.NotificationFailed

	code := provider.ErrorCode(err)
	message := err.Error()
	row.ErrorCode = &code
	row.ErrorMessage = &message

	if s.metrics != nil {
		s.metrics.IncNotificationFailed(channel.String(), code)
	}
	s.logger.Warn("notification send failed",
		zap.Int64("orderId", row.OrderID),
		zap.String("direction", row.Type.String()),
		zap.String("channel", channel.String()),
		zap.String("errorCode", code),
	)
}

func (s *DispatchService) shouldFallback(org *domain.Organization, err error) bool {
	if !org.FallbackEnabled(s.settings.FallbackSMSEnabled) {
		return false
	}
	return provider.FallbackEligible(err)
}

// messageURL prefers the short link over the raw token URL so receipts stay
// compact; the short link is created lazily on first dispatch.
func (s *DispatchService) messageURL(ctx context.Context, order *domain.Order) (string, error) {
	token, err := s.tokens.GetByOrderID(ctx, order.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: order %d has no token", domain.ErrNotFound, order.ID)
		}
		return "", err
	}

	link, err := s.shortLinks.Ensure(ctx, order.ID, token.Token)
	if err != nil {
		s.logger.Warn("short link unavailable, using token url",
			zap.Int64("orderId", order.ID),
			zap.Error(err),
		)
		return s.tokenSvc.PublicURL(token.Token), nil
	}
	return s.shortLinks.ShortURL(link), nil
}

func (s *DispatchService) directionPhone(order *domain.Order, direction domain.NotificationType) (string, error) {
	encrypted := order.SenderPhoneEncrypted
	if direction == domain.NotificationRecipient {
		if order.RecipientPhoneEncrypted == nil {
			return "", fmt.Errorf("%w: order %d has no recipient phone", domain.ErrValidation, order.ID)
		}
		encrypted = *order.RecipientPhoneEncrypted
	}

	phone, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt phone for order %d: %w", order.ID, err)
	}
	return phone, nil
}

func (s *DispatchService) renderContext(
	order *domain.Order,
	org *domain.Organization,
	messageURL string,
) map[string]string {
	recipientName := ""
	if order.RecipientName != nil {
		recipientName = *order.RecipientName
	}
	orderContext := ""
	if order.Context != nil {
		orderContext = *order.Context
	}

	return map[string]string{
		"brand":     org.DisplayBrandName(),
		"url":       messageURL,
		"order":     order.OrderNumber,
		"context":   orderContext,
		"sender":    order.SenderName,
		"recipient": recipientName,
	}
}

func (s *DispatchService) alimtalkTemplate(org *domain.Organization, direction domain.NotificationType) string {
	if direction == domain.NotificationRecipient {
		if org.AlimtalkTemplateRecipient != nil && strings.TrimSpace(*org.AlimtalkTemplateRecipient) != "" {
			return *org.AlimtalkTemplateRecipient
		}
		return s.settings.Templates.AlimtalkRecipient
	}
	if org.AlimtalkTemplateSender != nil && strings.TrimSpace(*org.AlimtalkTemplateSender) != "" {
		return *org.AlimtalkTemplateSender
	}
	return s.settings.Templates.AlimtalkSender
}

func (s *DispatchService) smsTemplate(org *domain.Organization, direction domain.NotificationType) string {
	if direction == domain.NotificationRecipient {
		if org.SMSTemplateRecipient != nil && strings.TrimSpace(*org.SMSTemplateRecipient) != "" {
			return *org.SMSTemplateRecipient
		}
		return s.settings.Templates.SMSRecipient
	}
	if org.SMSTemplateSender != nil && strings.TrimSpace(*org.SMSTemplateSender) != "" {
		return *org.SMSTemplateSender
	}
	return s.settings.Templates.SMSSender
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
