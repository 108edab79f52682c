package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/repository"
	"github.com/saegim/proofdesk/internal/security"
)

const maxLabelBatchSize = 200

// CreateOrderInput carries one order entry. Phones arrive raw and are
// normalized and encrypted before persistence.
type CreateOrderInput struct {
	OrderNumber    string
	Context        *string
	SenderName     string
	SenderPhone    string
	RecipientName  *string
	RecipientPhone *string
}

// OrderDetail bundles everything the console shows for one order.
type OrderDetail struct {
	Order         *domain.Order
	Token         *domain.QRToken
	Proof         *domain.Proof
	ShortLink     *domain.ShortLink
	Notifications []domain.Notification
	UploadURL     string
	PublicURL     string
	ShortURL      string
}

// LabelBundle is what label printing needs for one order.
type LabelBundle struct {
	OrderID             int64
	OrderNumber         string
	Token               string
	UploadURL           string
	PublicURL           string
	ShortURL            string
	BrandName           string
	LogoURL             *string
	HideDefaultBranding bool
}

// OrderService covers order entry, listing, detail, and label bundles.
type OrderService struct {
	orders        repository.OrderRepository
	organizations repository.OrganizationRepository
	tokens        repository.TokenRepository
	proofs        repository.ProofRepository
	notifications repository.NotificationRepository
	shortLinks    *ShortLinkService
	tokenSvc      *TokenService
	cipher        *security.PhoneCipher
	logger        *zap.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	organizations repository.OrganizationRepository,
	tokens repository.TokenRepository,
	proofs repository.ProofRepository,
	notifications repository.NotificationRepository,
	shortLinks *ShortLinkService,
	tokenSvc *TokenService,
	cipher *security.PhoneCipher,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OrderService{
		orders:        orders,
		organizations: organizations,
		tokens:        tokens,
		proofs:        proofs,
		notifications: notifications,
		shortLinks:    shortLinks,
		tokenSvc:      tokenSvc,
		cipher:        cipher,
		logger:        logger,
	}
}

// Create persists a new PENDING order for the organization. The recipient
// pair is all-or-nothing: a name without a phone (or vice versa) is invalid.
func (s *OrderService) Create(ctx context.Context, organizationID int64, input CreateOrderInput) (*domain.Order, error) {
	senderPhone, err := security.NormalizePhone(input.SenderPhone)
	if err != nil {
		return nil, fmt.Errorf("%w: sender phone: %v", domain.ErrValidation, err)
	}
	senderEncrypted, err := s.cipher.Encrypt(senderPhone)
	if err != nil {
		return nil, err
	}

	hasRecipientName := input.RecipientName != nil && strings.TrimSpace(*input.RecipientName) != ""
	hasRecipientPhone := input.RecipientPhone != nil && strings.TrimSpace(*input.RecipientPhone) != ""
	if hasRecipientName != hasRecipientPhone {
		return nil, fmt.Errorf("%w: recipient name and phone must be provided together", domain.ErrValidation)
	}

	order := &domain.Order{
		OrganizationID:       organizationID,
		OrderNumber:          strings.TrimSpace(input.OrderNumber),
		Context:              input.Context,
		SenderName:           strings.TrimSpace(input.SenderName),
		SenderPhoneEncrypted: senderEncrypted,
		Status:               domain.OrderStatusPending,
	}

	if hasRecipientName {
		recipientPhone, err := security.NormalizePhone(*input.RecipientPhone)
		if err != nil {
			return nil, fmt.Errorf("%w: recipient phone: %v", domain.ErrValidation, err)
		}
		recipientEncrypted, err := s.cipher.Encrypt(recipientPhone)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSpace(*input.RecipientName)
		order.RecipientName = &name
		order.RecipientPhoneEncrypted = &recipientEncrypted
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("created order",
		zap.Int64("orderId", order.ID),
		zap.Int64("organizationId", organizationID),
		zap.String("orderNumber", order.OrderNumber),
	)
	return order, nil
}

// List returns a page of the organization's orders, newest first.
func (s *OrderService) List(ctx context.Context, organizationID int64, status *domain.OrderStatus, search string, page, pageSize int) ([]domain.Order, int64, error) {
	return s.orders.List(ctx, repository.OrderListParams{
		OrganizationID: &organizationID,
		Status:         status,
		Search:         strings.TrimSpace(search),
		Page:           page,
		PageSize:       pageSize,
	})
}

// Detail loads the order with its token, proof, short link, and
// notification log. Absent satellites are simply nil.
func (s *OrderService) Detail(ctx context.Context, organizationID int64, orderID int64) (*OrderDetail, error) {
	order, err := s.orders.GetByIDForOrg(ctx, orderID, organizationID)
	if err != nil {
		return nil, err
	}

	detail := &OrderDetail{Order: order}

	token, err := s.tokens.GetByOrderID(ctx, order.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if token != nil {
		detail.Token = token
		detail.UploadURL = s.tokenSvc.UploadURL(token.Token)
		detail.PublicURL = s.tokenSvc.PublicURL(token.Token)
	}

	proof, err := s.proofs.GetByOrderID(ctx, order.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	detail.Proof = proof

	link, err := s.shortLinks.Get(ctx, order.ID)
	if err != nil && !errors.Is(err, domain.ErrShortLinkNotFound) {
		return nil, err
	}
	if link != nil {
		detail.ShortLink = link
		detail.ShortURL = s.shortLinks.ShortURL(link)
	}

	notifications, err := s.notifications.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	detail.Notifications = notifications

	return detail, nil
}

// Complete advances a NOTIFIED order to its terminal state.
func (s *OrderService) Complete(ctx context.Context, organizationID int64, orderID int64) (*domain.Order, error) {
	if _, err := s.orders.GetByIDForOrg(ctx, orderID, organizationID); err != nil {
		return nil, err
	}

	err := s.orders.AdvanceStatus(ctx, orderID, domain.OrderStatusNotified, domain.OrderStatusCompleted)
	if err != nil {
		return nil, err
	}
	return s.orders.GetByIDForOrg(ctx, orderID, organizationID)
}

// IssueToken issues (or reuses) the QR token for an order the organization
// owns. When a forced reissue replaces the token, any existing short link is
// repointed so previously printed codes keep resolving.
func (s *OrderService) IssueToken(ctx context.Context, organizationID int64, orderID int64, force bool) (*IssueResult, error) {
	if _, err := s.orders.GetByIDForOrg(ctx, orderID, organizationID); err != nil {
		return nil, err
	}

	result, err := s.tokenSvc.Issue(ctx, orderID, force)
	if err != nil {
		return nil, err
	}
	if result.Reused {
		return result, nil
	}

	switch _, err := s.shortLinks.Get(ctx, orderID); {
	case err == nil:
		if _, err := s.shortLinks.Rebind(ctx, orderID, result.Token); err != nil {
			return nil, err
		}
	case !errors.Is(err, domain.ErrShortLinkNotFound):
		return nil, err
	}

	return result, nil
}

// GetLabels builds printable label bundles for a batch of orders. With
// ensureTokens, orders without a token get one issued; with force, existing
// tokens are replaced (invalidating printed codes). Duplicate and foreign
// ids are dropped silently.
func (s *OrderService) GetLabels(ctx context.Context, organizationID int64, orderIDs []int64, ensureTokens bool, force bool) ([]LabelBundle, error) {
	ids := dedupIDs(orderIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no order ids given", domain.ErrValidation)
	}
	if len(ids) > maxLabelBatchSize {
		return nil, fmt.Errorf("%w: at most %d orders per label batch", domain.ErrValidation, maxLabelBatchSize)
	}

	org, err := s.organizations.GetByID(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.ListByIDsForOrg(ctx, ids, organizationID)
	if err != nil {
		return nil, err
	}

	bundles := make([]LabelBundle, 0, len(orders))
	for i := range orders {
		order := &orders[i]

		var issued *IssueResult
		token, err := s.tokens.GetByOrderID(ctx, order.ID)
		switch {
		case err == nil && !force:
			issued = &IssueResult{
				Token:     token.Token,
				IsValid:   token.IsValid,
				UploadURL: s.tokenSvc.UploadURL(token.Token),
				PublicURL: s.tokenSvc.PublicURL(token.Token),
			}
		case errors.Is(err, domain.ErrNotFound) && !ensureTokens:
			// No token and not asked to create one: skip the order.
			continue
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, err
		default:
			issued, err = s.tokenSvc.Issue(ctx, order.ID, force)
			if err != nil {
				return nil, err
			}
		}

		link, err := s.shortLinks.Rebind(ctx, order.ID, issued.Token)
		if err != nil {
			return nil, err
		}

		bundles = append(bundles, LabelBundle{
			OrderID:             order.ID,
			OrderNumber:         order.OrderNumber,
			Token:               issued.Token,
			UploadURL:           issued.UploadURL,
			PublicURL:           issued.PublicURL,
			ShortURL:            s.shortLinks.ShortURL(link),
			BrandName:           org.DisplayBrandName(),
			LogoURL:             org.DisplayLogoURL(),
			HideDefaultBranding: org.HideDefaultBranding,
		})
	}

	return bundles, nil
}

func dedupIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
