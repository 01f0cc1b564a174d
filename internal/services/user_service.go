package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/platform/textutil"
	"github.com/fetchkids/api/internal/repositories"
)

const bcryptCost = 10

var (
	// ErrUserInvalidInput signals malformed credentials or account data.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserInvalidCredentials indicates the password did not match.
	ErrUserInvalidCredentials = errors.New("user: invalid credentials")
	// ErrUserNotFound indicates no account matches the lookup.
	ErrUserNotFound = errors.New("user: not found")
)

// SessionTokenIssuer signs session tokens for authenticated accounts.
type SessionTokenIssuer interface {
	Issue(uid, email, role string) (string, error)
}

// UserServiceDeps bundles collaborators required to construct the user service.
type UserServiceDeps struct {
	Users       repositories.UserRepository
	Tokens      SessionTokenIssuer
	Clock       func() time.Time
	IDGenerator func() string
	HashCost    int
}

type userService struct {
	users    repositories.UserRepository
	tokens   SessionTokenIssuer
	clock    func() time.Time
	newID    func() string
	hashCost int
}

// NewUserService wires dependencies into a concrete UserService implementation.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("user service: token issuer is required")
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

	cost := deps.HashCost
	if cost <= 0 {
		cost = bcryptCost
	}

	return &userService{
		users:  deps.Users,
		tokens: deps.Tokens,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		hashCost: cost,
	}, nil
}

// Authenticate is the merged register-or-login flow. A known email must
// present the matching password; an unknown email creates the account.
func (s *userService) Authenticate(ctx context.Context, cmd AuthenticateCommand) (AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" {
		return AuthResult{}, fmt.Errorf("%w: email is required", ErrUserInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return AuthResult{}, fmt.Errorf("%w: malformed email", ErrUserInvalidInput)
	}
	if cmd.Password == "" {
		return AuthResult{}, fmt.Errorf("%w: password is required", ErrUserInvalidInput)
	}

	account, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.login(ctx, account, cmd.Password)
	case isNotFound(err):
		return s.register(ctx, email, cmd)
	default:
		return AuthResult{}, s.mapRepositoryError(err)
	}
}

func (s *userService) GetAccount(ctx context.Context, userID string) (UserAccount, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserAccount{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	account, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return UserAccount{}, s.mapRepositoryError(err)
	}
	return account, nil
}

func (s *userService) login(ctx context.Context, account UserAccount, password string) (AuthResult, error) {
	now := s.clock()

	// Accounts provisioned during order creation have no password yet; the
	// first login with this email claims them.
	if account.PasswordHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
		if err != nil {
			return AuthResult{}, fmt.Errorf("user: hash password: %w", err)
		}
		account.PasswordHash = string(hash)
		account.UpdatedAt = now
		if err := s.users.Update(ctx, account); err != nil {
			return AuthResult{}, s.mapRepositoryError(err)
		}
	} else if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrUserInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID, account.Email, string(account.Role))
	if err != nil {
		return AuthResult{}, fmt.Errorf("user: issue token: %w", err)
	}
	return AuthResult{Account: account, Token: token}, nil
}

func (s *userService) register(ctx context.Context, email string, cmd AuthenticateCommand) (AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.hashCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("user: hash password: %w", err)
	}

	name := textutil.Clean(cmd.Name)
	if name == "" {
		name = localPart(email)
	}

	now := s.clock()
	account := UserAccount{
		ID:           userIDPrefix + s.newID(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         domain.RoleUser,
		Phone:        strings.TrimSpace(cmd.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, account); err != nil {
		return AuthResult{}, s.mapRepositoryError(err)
	}

	token, err := s.tokens.Issue(account.ID, account.Email, string(account.Role))
	if err != nil {
		return AuthResult{}, fmt.Errorf("user: issue token: %w", err)
	}
	return AuthResult{Account: account, Created: true, Token: token}, nil
}

func (s *userService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrUserNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("user: repository unavailable: %w", err)
		}
	}

	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
