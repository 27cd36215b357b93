package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"api-boilerplate/internal/domain"
	"api-boilerplate/internal/repository"
	"api-boilerplate/internal/security"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRegistrationPassword indicates the registration secret is incorrect.
	ErrInvalidRegistrationPassword = errors.New("invalid registration password")
	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidInput wraps validation failures of user supplied fields.
	ErrInvalidInput = errors.New("invalid input")
)

const minPasswordLength = 8

// Token is the login response handed to clients.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// TokenCodec is the subset of security.TokenManager the service needs.
type TokenCodec interface {
	Encode(payload map[string]any) (string, error)
	Decode(token string) (map[string]any, error)
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, password, providedSecret string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	IssueToken(user *domain.User) (Token, error)
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
}

type userService struct {
	users          repository.UserRepository
	tokens         TokenCodec
	pepper         string
	registerSecret string
}

func NewUserService(users repository.UserRepository, tokens TokenCodec, pepper, registerSecret string) UserService {
	return &userService{
		users:          users,
		tokens:         tokens,
		pepper:         pepper,
		registerSecret: strings.TrimSpace(registerSecret),
	}
}

func (s *userService) Register(ctx context.Context, username, password, providedSecret string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	providedSecret = strings.TrimSpace(providedSecret)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(username) > 255 {
		return nil, fmt.Errorf("%w: username must be at most 255 characters", ErrInvalidInput)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if s.registerSecret != "" &&
		subtle.ConstantTimeCompare([]byte(providedSecret), []byte(s.registerSecret)) != 1 {
		return nil, ErrInvalidRegistrationPassword
	}

	return s.create(ctx, username, password)
}

func (s *userService) create(ctx context.Context, username, password string) (*domain.User, error) {
	hash, err := security.HashPassword(password, s.pepper)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !security.VerifyPassword(password, user.PasswordHash, s.pepper) {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) IssueToken(user *domain.User) (Token, error) {
	if user == nil {
		return Token{}, ErrInvalidCredentials
	}
	accessToken, err := s.tokens.Encode(map[string]any{"sub": user.Username})
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}
	return Token{AccessToken: accessToken, TokenType: "bearer"}, nil
}

// CurrentUser resolves the user a bearer token was issued to. Every failure,
// including expiry, is reported as ErrInvalidCredentials wrapping the cause.
func (s *userService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Decode(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	username, ok := security.Subject(claims)
	if !ok {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidCredentials)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", ErrInvalidCredentials)
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

// EnsureAdmin creates the admin account unless the username is taken. It
// reports whether a user was created.
func (s *userService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, fmt.Errorf("%w: admin username and password are required", ErrInvalidInput)
	}
	if _, err := s.create(ctx, username, password); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		EditedAt:  user.EditedAt,
	}
}
