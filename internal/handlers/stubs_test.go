package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/services"
)

type stubOrderService struct {
	createFn func(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error)
	getFn    func(ctx context.Context, orderRef string) (domain.Order, error)
	listFn   func(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[domain.Order], error)
	updateFn func(ctx context.Context, cmd services.UpdateOrderCommand) (domain.Order, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn == nil {
		return domain.Order{}, nil
	}
	return s.createFn(ctx, cmd)
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderRef string) (domain.Order, error) {
	if s.getFn == nil {
		return domain.Order{}, nil
	}
	return s.getFn(ctx, orderRef)
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn == nil {
		return domain.CursorPage[domain.Order]{}, nil
	}
	return s.listFn(ctx, filter)
}

func (s *stubOrderService) UpdateOrder(ctx context.Context, cmd services.UpdateOrderCommand) (domain.Order, error) {
	if s.updateFn == nil {
		return domain.Order{}, nil
	}
	return s.updateFn(ctx, cmd)
}

type stubUserService struct {
	authenticateFn func(ctx context.Context, cmd services.AuthenticateCommand) (services.AuthResult, error)
	getAccountFn   func(ctx context.Context, userID string) (domain.UserAccount, error)
}

func (s *stubUserService) Authenticate(ctx context.Context, cmd services.AuthenticateCommand) (services.AuthResult, error) {
	if s.authenticateFn == nil {
		return services.AuthResult{}, nil
	}
	return s.authenticateFn(ctx, cmd)
}

func (s *stubUserService) GetAccount(ctx context.Context, userID string) (domain.UserAccount, error) {
	if s.getAccountFn == nil {
		return domain.UserAccount{}, nil
	}
	return s.getAccountFn(ctx, userID)
}

type stubPaymentService struct {
	createFn  func(ctx context.Context, cmd services.CreatePaymentCommand) (domain.PaymentTransaction, error)
	webhookFn func(ctx context.Context, cmd services.PaymentWebhookCommand) (domain.PaymentTransaction, error)
}

func (s *stubPaymentService) CreatePayment(ctx context.Context, cmd services.CreatePaymentCommand) (domain.PaymentTransaction, error) {
	if s.createFn == nil {
		return domain.PaymentTransaction{}, nil
	}
	return s.createFn(ctx, cmd)
}

func (s *stubPaymentService) ProcessWebhookEvent(ctx context.Context, cmd services.PaymentWebhookCommand) (domain.PaymentTransaction, error) {
	if s.webhookFn == nil {
		return domain.PaymentTransaction{}, nil
	}
	return s.webhookFn(ctx, cmd)
}

type stubDraftService struct {
	createFn func(ctx context.Context, cmd services.UpsertDraftCommand) (domain.OrderDraft, error)
	getFn    func(ctx context.Context, draftID string) (domain.OrderDraft, error)
	updateFn func(ctx context.Context, cmd services.UpsertDraftCommand) (domain.OrderDraft, error)
	deleteFn func(ctx context.Context, draftID string) error
}

func (s *stubDraftService) CreateDraft(ctx context.Context, cmd services.UpsertDraftCommand) (domain.OrderDraft, error) {
	if s.createFn == nil {
		return domain.OrderDraft{}, nil
	}
	return s.createFn(ctx, cmd)
}

func (s *stubDraftService) GetDraft(ctx context.Context, draftID string) (domain.OrderDraft, error) {
	if s.getFn == nil {
		return domain.OrderDraft{}, nil
	}
	return s.getFn(ctx, draftID)
}

func (s *stubDraftService) UpdateDraft(ctx context.Context, cmd services.UpsertDraftCommand) (domain.OrderDraft, error) {
	if s.updateFn == nil {
		return domain.OrderDraft{}, nil
	}
	return s.updateFn(ctx, cmd)
}

func (s *stubDraftService) DeleteDraft(ctx context.Context, draftID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, draftID)
}

type stubUploadService struct {
	uploadFn func(ctx context.Context, cmd services.UploadCommand) (services.UploadResult, error)
}

func (s *stubUploadService) Upload(ctx context.Context, cmd services.UploadCommand) (services.UploadResult, error) {
	if s.uploadFn == nil {
		return services.UploadResult{}, nil
	}
	return s.uploadFn(ctx, cmd)
}

type stubPostalLookup struct {
	lookupFn func(ctx context.Context, code string) ([]domain.PostalLocality, error)
}

func (s *stubPostalLookup) Lookup(ctx context.Context, code string) ([]domain.PostalLocality, error) {
	if s.lookupFn == nil {
		return nil, nil
	}
	return s.lookupFn(ctx, code)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return body
}
