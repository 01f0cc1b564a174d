package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fetchkids/api/internal/platform/textutil"
	"github.com/fetchkids/api/internal/repositories"
)

const (
	draftIDPrefix   = "drf_"
	defaultDraftTTL = 7 * 24 * time.Hour
)

var (
	// ErrDraftInvalidInput signals the caller provided invalid data.
	ErrDraftInvalidInput = errors.New("draft: invalid input")
	// ErrDraftNotFound indicates the draft could not be located.
	ErrDraftNotFound = errors.New("draft: not found")
	// ErrDraftExpired indicates the draft has passed its expiry.
	ErrDraftExpired = errors.New("draft: expired")
)

// DraftServiceDeps bundles collaborators required to construct the draft service.
type DraftServiceDeps struct {
	Drafts      repositories.OrderDraftRepository
	Clock       func() time.Time
	IDGenerator func() string
	TTL         time.Duration
}

type draftService struct {
	drafts repositories.OrderDraftRepository
	clock  func() time.Time
	newID  func() string
	ttl    time.Duration
}

// NewDraftService wires dependencies into a concrete DraftService implementation.
func NewDraftService(deps DraftServiceDeps) (DraftService, error) {
	if deps.Drafts == nil {
		return nil, errors.New("draft service: draft repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	ttl := deps.TTL
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}

	return &draftService{
		drafts: deps.Drafts,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
		ttl:   ttl,
	}, nil
}

func (s *draftService) CreateDraft(ctx context.Context, cmd UpsertDraftCommand) (OrderDraft, error) {
	now := s.clock()
	draft := OrderDraft{
		ID:              draftIDPrefix + s.newID(),
		UserName:        textutil.Clean(cmd.UserName),
		UserEmail:       strings.ToLower(strings.TrimSpace(cmd.UserEmail)),
		Phone:           strings.TrimSpace(cmd.Phone),
		Products:        cmd.Products,
		ShippingAddress: cmd.ShippingAddress,
		ExpiresAt:       now.Add(s.ttl),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.drafts.Insert(ctx, draft); err != nil {
		return OrderDraft{}, s.mapRepositoryError(err)
	}
	return draft, nil
}

func (s *draftService) GetDraft(ctx context.Context, draftID string) (OrderDraft, error) {
	draftID = strings.TrimSpace(draftID)
	if draftID == "" {
		return OrderDraft{}, fmt.Errorf("%w: draft id is required", ErrDraftInvalidInput)
	}

	draft, err := s.drafts.FindByID(ctx, draftID)
	if err != nil {
		return OrderDraft{}, s.mapRepositoryError(err)
	}
	if s.clock().After(draft.ExpiresAt) {
		return OrderDraft{}, fmt.Errorf("%w: %s", ErrDraftExpired, draftID)
	}
	return draft, nil
}

// UpdateDraft replaces the mutable draft fields and extends the expiry so an
// active builder session never times out mid-flow.
func (s *draftService) UpdateDraft(ctx context.Context, cmd UpsertDraftCommand) (OrderDraft, error) {
	draft, err := s.GetDraft(ctx, cmd.DraftID)
	if err != nil {
		return OrderDraft{}, err
	}

	now := s.clock()
	draft.UserName = textutil.Clean(cmd.UserName)
	draft.UserEmail = strings.ToLower(strings.TrimSpace(cmd.UserEmail))
	draft.Phone = strings.TrimSpace(cmd.Phone)
	draft.Products = cmd.Products
	draft.ShippingAddress = cmd.ShippingAddress
	draft.ExpiresAt = now.Add(s.ttl)
	draft.UpdatedAt = now

	if err := s.drafts.Update(ctx, draft); err != nil {
		return OrderDraft{}, s.mapRepositoryError(err)
	}
	return draft, nil
}

func (s *draftService) DeleteDraft(ctx context.Context, draftID string) error {
	draftID = strings.TrimSpace(draftID)
	if draftID == "" {
		return fmt.Errorf("%w: draft id is required", ErrDraftInvalidInput)
	}
	if err := s.drafts.Delete(ctx, draftID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *draftService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrDraftNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("draft: repository unavailable: %w", err)
		}
	}

	return err
}
