package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrSessionNotFound    = errors.New("auth: session not found")
)

type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
}

// UserStore persists accounts; Postgres in production, a map in tests.
type UserStore interface {
	Create(ctx context.Context, a Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
}

// SessionStore maps opaque tokens to user ids with a TTL.
type SessionStore interface {
	Create(ctx context.Context, userID string) (token string, err error)
	Lookup(ctx context.Context, token string) (userID string, err error)
	Destroy(ctx context.Context, token string) error
}

type Service struct {
	Users    UserStore
	Sessions SessionStore
	NewID    func() string
}

// SignUp registers and immediately signs in; there is no email confirmation
// step.
func (s *Service) SignUp(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	a := Account{ID: s.NewID(), Email: email, PasswordHash: hash}
	if err := s.Users.Create(ctx, a); err != nil {
		return nil, err
	}
	return s.startSession(ctx, a)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, a)
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.Sessions.Destroy(ctx, token)
}

// Authenticate resolves a bearer token to a user id.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrSessionNotFound
	}
	return s.Sessions.Lookup(ctx, token)
}

func (s *Service) startSession(ctx context.Context, a Account) (*User, error) {
	token, err := s.Sessions.Create(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &User{ID: a.ID, Email: a.Email, Token: token}, nil
}
