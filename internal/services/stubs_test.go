package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/platform/jobs"
	"github.com/fetchkids/api/internal/repositories"
)

// stubRepoError satisfies repositories.RepositoryError for the fakes below.
type stubRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e stubRepoError) Error() string       { return e.msg }
func (e stubRepoError) IsNotFound() bool    { return e.notFound }
func (e stubRepoError) IsConflict() bool    { return e.conflict }
func (e stubRepoError) IsUnavailable() bool { return e.unavailable }

func notFoundErr(msg string) error { return stubRepoError{msg: msg, notFound: true} }

type stubOrderRepo struct {
	mu       sync.Mutex
	orders   map[string]domain.Order
	inserts  []domain.Order
	updates  []domain.Order
	listFn   func(repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	insertFn func(domain.Order) error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[string]domain.Order{}}
}

func (r *stubOrderRepo) Insert(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertFn != nil {
		if err := r.insertFn(order); err != nil {
			return err
		}
	}
	r.orders[order.ID] = order
	r.inserts = append(r.inserts, order)
	return nil
}

func (r *stubOrderRepo) Update(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return notFoundErr("order " + order.ID)
	}
	r.orders[order.ID] = order
	r.updates = append(r.updates, order)
	return nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, notFoundErr("order " + orderID)
	}
	return order, nil
}

func (r *stubOrderRepo) FindByOrderNumber(_ context.Context, orderNumber string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return domain.Order{}, notFoundErr("order number " + orderNumber)
}

func (r *stubOrderRepo) List(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r.listFn != nil {
		return r.listFn(filter)
	}
	page := domain.CursorPage[domain.Order]{}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		page.Items = append(page.Items, order)
	}
	return page, nil
}

type stubUserRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.UserAccount
	appended map[string][]string
	inserts  []domain.UserAccount
	updates  []domain.UserAccount
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		accounts: map[string]domain.UserAccount{},
		appended: map[string][]string{},
	}
}

func (r *stubUserRepo) Insert(_ context.Context, account domain.UserAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
	r.inserts = append(r.inserts, account)
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, account domain.UserAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return notFoundErr("user " + account.ID)
	}
	r.accounts[account.ID] = account
	r.updates = append(r.updates, account)
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, userID string) (domain.UserAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[userID]
	if !ok {
		return domain.UserAccount{}, notFoundErr("user " + userID)
	}
	return account, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (domain.UserAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return domain.UserAccount{}, notFoundErr("email " + email)
}

func (r *stubUserRepo) AppendOrder(_ context.Context, userID, orderID string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[userID]; !ok {
		return notFoundErr("user " + userID)
	}
	r.appended[userID] = append(r.appended[userID], orderID)
	return nil
}

type stubCounterRepo struct {
	mu   sync.Mutex
	next int64
	err  error
}

func (r *stubCounterRepo) Next(_ context.Context, _ string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.next++
	return r.next, nil
}

type stubDraftRepo struct {
	mu      sync.Mutex
	drafts  map[string]domain.OrderDraft
	deletes []string
}

func newStubDraftRepo() *stubDraftRepo {
	return &stubDraftRepo{drafts: map[string]domain.OrderDraft{}}
}

func (r *stubDraftRepo) Insert(_ context.Context, draft domain.OrderDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[draft.ID] = draft
	return nil
}

func (r *stubDraftRepo) Update(_ context.Context, draft domain.OrderDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drafts[draft.ID]; !ok {
		return notFoundErr("draft " + draft.ID)
	}
	r.drafts[draft.ID] = draft
	return nil
}

func (r *stubDraftRepo) FindByID(_ context.Context, draftID string) (domain.OrderDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draft, ok := r.drafts[draftID]
	if !ok {
		return domain.OrderDraft{}, notFoundErr("draft " + draftID)
	}
	return draft, nil
}

func (r *stubDraftRepo) Delete(_ context.Context, draftID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drafts[draftID]; !ok {
		return notFoundErr("draft " + draftID)
	}
	delete(r.drafts, draftID)
	r.deletes = append(r.deletes, draftID)
	return nil
}

type stubEventPublisher struct {
	mu       sync.Mutex
	messages []jobs.OrderEventMessage
	err      error
}

func (p *stubEventPublisher) PublishOrderEvent(_ context.Context, message jobs.OrderEventMessage) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, message)
	return "msg-1", nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%02d", prefix, n)
	}
}
