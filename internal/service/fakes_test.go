package service

import (
	"context"
	"sync"
	"time"

	"github.com/saegim/proofdesk/internal/domain"
	"github.com/saegim/proofdesk/internal/provider"
	"github.com/saegim/proofdesk/internal/queue"
	"github.com/saegim/proofdesk/internal/repository"
)

type fakeOrderRepo struct {
	CreateFn          func(ctx context.Context, o *domain.Order) error
	GetByIDFn         func(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDForOrgFn   func(ctx context.Context, id int64, organizationID int64) (*domain.Order, error)
	ListByIDsForOrgFn func(ctx context.Context, ids []int64, organizationID int64) ([]domain.Order, error)
	ListFn            func(ctx context.Context, params repository.OrderListParams) ([]domain.Order, int64, error)
	AdvanceStatusFn   func(ctx context.Context, id int64, from, to domain.OrderStatus) error
}

func (f *fakeOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	return f.CreateFn(ctx, o)
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return f.GetByIDFn(ctx, id)
}

func (f *fakeOrderRepo) GetByIDForOrg(ctx context.Context, id int64, organizationID int64) (*domain.Order, error) {
	return f.GetByIDForOrgFn(ctx, id, organizationID)
}

func (f *fakeOrderRepo) ListByIDsForOrg(ctx context.Context, ids []int64, organizationID int64) ([]domain.Order, error) {
	return f.ListByIDsForOrgFn(ctx, ids, organizationID)
}

func (f *fakeOrderRepo) List(ctx context.Context, params repository.OrderListParams) ([]domain.Order, int64, error) {
	return f.ListFn(ctx, params)
}

func (f *fakeOrderRepo) AdvanceStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error {
	return f.AdvanceStatusFn(ctx, id, from, to)
}

type fakeOrganizationRepo struct {
	CreateFn             func(ctx context.Context, o *domain.Organization) error
	GetByIDFn            func(ctx context.Context, id int64) (*domain.Organization, error)
	GetByExternalOrgIDFn func(ctx context.Context, externalOrgID string) (*domain.Organization, error)
	ListFn               func(ctx context.Context) ([]domain.Organization, error)
	UpdateFieldsFn       func(ctx context.Context, id int64, fields map[string]any) error
}

func (f *fakeOrganizationRepo) Create(ctx context.Context, o *domain.Organization) error {
	return f.CreateFn(ctx, o)
}

func (f *fakeOrganizationRepo) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	return f.GetByIDFn(ctx, id)
}

func (f *fakeOrganizationRepo) GetByExternalOrgID(ctx context.Context, externalOrgID string) (*domain.Organization, error) {
	return f.GetByExternalOrgIDFn(ctx, externalOrgID)
}

func (f *fakeOrganizationRepo) List(ctx context.Context) ([]domain.Organization, error) {
	return f.ListFn(ctx)
}

func (f *fakeOrganizationRepo) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	return f.UpdateFieldsFn(ctx, id, fields)
}

type fakeTokenRepo struct {
	GetByOrderIDFn func(ctx context.Context, orderID int64) (*domain.QRToken, error)
	GetByTokenFn   func(ctx context.Context, token string) (*domain.QRToken, error)
	TokenExistsFn  func(ctx context.Context, token string) (bool, error)
	ReplaceFn      func(ctx context.Context, orderID int64, token string) (*domain.QRToken, error)
	RevokeFn       func(ctx context.Context, orderID int64) error
}

func (f *fakeTokenRepo) GetByOrderID(ctx context.Context, orderID int64) (*domain.QRToken, error) {
	return f.GetByOrderIDFn(ctx, orderID)
}

func (f *fakeTokenRepo) GetByToken(ctx context.Context, token string) (*domain.QRToken, error) {
	return f.GetByTokenFn(ctx, token)
}

func (f *fakeTokenRepo) TokenExists(ctx context.Context, token string) (bool, error) {
	return f.TokenExistsFn(ctx, token)
}

func (f *fakeTokenRepo) Replace(ctx context.Context, orderID int64, token string) (*domain.QRToken, error) {
	return f.ReplaceFn(ctx, orderID, token)
}

func (f *fakeTokenRepo) Revoke(ctx context.Context, orderID int64) error {
	return f.RevokeFn(ctx, orderID)
}

type fakeProofRepo struct {
	GetByOrderIDFn   func(ctx context.Context, orderID int64) (*domain.Proof, error)
	ExistsForOrderFn func(ctx context.Context, orderID int64) (bool, error)
}

func (f *fakeProofRepo) GetByOrderID(ctx context.Context, orderID int64) (*domain.Proof, error) {
	return f.GetByOrderIDFn(ctx, orderID)
}

func (f *fakeProofRepo) ExistsForOrder(ctx context.Context, orderID int64) (bool, error) {
	return f.ExistsForOrderFn(ctx, orderID)
}

// fakeNotificationRepo records created rows in memory.
type fakeNotificationRepo struct {
	mu       sync.Mutex
	rows     []domain.Notification
	CreateFn func(ctx context.Context, n *domain.Notification) error
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, n)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotificationRepo) ListByOrderID(ctx context.Context, orderID int64) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Notification, 0, len(f.rows))
	for _, row := range f.rows {
		if row.OrderID == orderID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) CountByOrderID(ctx context.Context, orderID int64) (int64, error) {
	rows, _ := f.ListByOrderID(ctx, orderID)
	return int64(len(rows)), nil
}

func (f *fakeNotificationRepo) created() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Notification, len(f.rows))
	copy(out, f.rows)
	return out
}

type fakeShortLinkRepo struct {
	CreateFn            func(ctx context.Context, link *domain.ShortLink) error
	GetByOrderIDFn      func(ctx context.Context, orderID int64) (*domain.ShortLink, error)
	GetByCodeFn         func(ctx context.Context, code string) (*domain.ShortLink, error)
	CodeExistsFn        func(ctx context.Context, code string) (bool, error)
	IncrementClickFn    func(ctx context.Context, code string, at time.Time) (*domain.ShortLink, error)
	UpdateTargetTokenFn func(ctx context.Context, code string, token string) (*domain.ShortLink, error)
}

func (f *fakeShortLinkRepo) Create(ctx context.Context, link *domain.ShortLink) error {
	return f.CreateFn(ctx, link)
}

func (f *fakeShortLinkRepo) GetByOrderID(ctx context.Context, orderID int64) (*domain.ShortLink, error) {
	return f.GetByOrderIDFn(ctx, orderID)
}

func (f *fakeShortLinkRepo) GetByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	return f.GetByCodeFn(ctx, code)
}

func (f *fakeShortLinkRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	return f.CodeExistsFn(ctx, code)
}

func (f *fakeShortLinkRepo) IncrementClick(ctx context.Context, code string, at time.Time) (*domain.ShortLink, error) {
	return f.IncrementClickFn(ctx, code, at)
}

func (f *fakeShortLinkRepo) UpdateTargetToken(ctx context.Context, code string, token string) (*domain.ShortLink, error) {
	return f.UpdateTargetTokenFn(ctx, code, token)
}

type fakeProvider struct {
	name           string
	SendAlimtalkFn func(ctx context.Context, req provider.AlimtalkRequest) (*provider.SendResult, error)
	SendSMSFn      func(ctx context.Context, req provider.SMSRequest) (*provider.SendResult, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) SendAlimtalk(ctx context.Context, req provider.AlimtalkRequest) (*provider.SendResult, error) {
	return f.SendAlimtalkFn(ctx, req)
}

func (f *fakeProvider) SendSMS(ctx context.Context, req provider.SMSRequest) (*provider.SendResult, error) {
	return f.SendSMSFn(ctx, req)
}

type fakeRateLimiter struct{}

func (fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) { return true, nil }
func (fakeRateLimiter) Wait(ctx context.Context, channel string) error          { return nil }

type fakePublisher struct {
	mu        sync.Mutex
	published []queue.DispatchMessage
	PublishFn func(ctx context.Context, queueName string, msg queue.DispatchMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.DispatchMessage) error {
	if f.PublishFn != nil {
		return f.PublishFn(ctx, queueName, msg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) Close() error { return nil }
