package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/fetchkids/api/internal/domain"
	pfirestore "github.com/fetchkids/api/internal/platform/firestore"
)

const userCollection = "users"

// UserRepository persists customer accounts in Firestore.
type UserRepository struct {
	base     *pfirestore.Collection[userDocument]
	provider *pfirestore.Provider
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	base := pfirestore.NewCollection[userDocument](provider, userCollection)
	return &UserRepository{base: base, provider: provider}, nil
}

// Insert creates the account document, failing on id collisions.
func (r *UserRepository) Insert(ctx context.Context, account domain.UserAccount) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(account.ID) == "" {
		return errors.New("user id is required")
	}

	ref, err := r.base.Doc(ctx, account.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainAccount(account)); err != nil {
		return pfirestore.WrapError("users.insert", err)
	}
	return nil
}

// Update overwrites the stored account document.
func (r *UserRepository) Update(ctx context.Context, account domain.UserAccount) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(account.ID) == "" {
		return errors.New("user id is required")
	}

	if err := r.base.Set(ctx, account.ID, fromDomainAccount(account)); err != nil {
		return err
	}
	return nil
}

// FindByID loads an account by document id.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.UserAccount, error) {
	if r == nil || r.base == nil {
		return domain.UserAccount{}, errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.UserAccount{}, errors.New("user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return toDomainAccount(doc.ID, doc.Data), nil
}

// FindByEmail loads an account by its lower-cased email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.UserAccount, error) {
	if r == nil || r.base == nil {
		return domain.UserAccount{}, errors.New("user repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.UserAccount{}, errors.New("email is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", email).Limit(1)
	})
	if err != nil {
		return domain.UserAccount{}, err
	}
	if len(docs) == 0 {
		return domain.UserAccount{}, pfirestore.WrapError("users.findByEmail", errNotFound)
	}
	return toDomainAccount(docs[0].ID, docs[0].Data), nil
}

// AppendOrder atomically adds an order reference to the account.
func (r *UserRepository) AppendOrder(ctx context.Context, userID string, orderID string, now time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(orderID) == "" {
		return errors.New("order id is required")
	}

	err := r.base.Update(ctx, userID, []firestore.Update{
		{Path: "orderIds", Value: firestore.ArrayUnion(orderID)},
		{Path: "updatedAt", Value: now.UTC()},
	})
	return err
}

type userDocument struct {
	Email        string    `firestore:"email"`
	PasswordHash string    `firestore:"passwordHash"`
	Name         string    `firestore:"name,omitempty"`
	Role         string    `firestore:"role"`
	Phone        string    `firestore:"phone,omitempty"`
	OrderIDs     []string  `firestore:"orderIds"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func fromDomainAccount(account domain.UserAccount) userDocument {
	doc := userDocument{
		Email:        strings.ToLower(strings.TrimSpace(account.Email)),
		PasswordHash: account.PasswordHash,
		Name:         strings.TrimSpace(account.Name),
		Role:         string(account.Role),
		Phone:        strings.TrimSpace(account.Phone),
		OrderIDs:     account.OrderIDs,
		CreatedAt:    account.CreatedAt.UTC(),
		UpdatedAt:    account.UpdatedAt.UTC(),
	}
	if doc.Role == "" {
		doc.Role = string(domain.RoleUser)
	}
	if doc.OrderIDs == nil {
		doc.OrderIDs = []string{}
	}
	return doc
}

func toDomainAccount(id string, doc userDocument) domain.UserAccount {
	account := domain.UserAccount{
		ID:           id,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Name:         doc.Name,
		Role:         domain.UserRole(doc.Role),
		Phone:        doc.Phone,
		OrderIDs:     doc.OrderIDs,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	if account.Role == "" {
		account.Role = domain.RoleUser
	}
	return account
}
