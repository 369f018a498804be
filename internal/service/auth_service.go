package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/courtierpro/brokerage-backend/internal/models"
	"github.com/courtierpro/brokerage-backend/internal/pkg/apperror"
	"github.com/courtierpro/brokerage-backend/internal/repository"
)

// AuthUserRepository is the account store contract used by AuthService.
type AuthUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthService handles registration and login.
type AuthService struct {
	users  AuthUserRepository
	tokens *TokenManager
}

// NewAuthService creates the service.
func NewAuthService(users AuthUserRepository, tokens *TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Email             string
	Password          string
	FirstName         string
	LastName          string
	Role              string
	PreferredLanguage string
	Phone             *string
}

// Register creates an account and returns it with a fresh token pair.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, "a valid email is required")
	}
	if len(input.Password) < 8 {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, "password must be at least 8 characters")
	}
	if input.Role != models.RoleBroker && input.Role != models.RoleClient {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, "role must be BROKER or CLIENT")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperror.New(apperror.ErrCodeConflict, "an account with this email already exists")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeInternal, "password hashing failed")
	}

	lang := strings.TrimSpace(input.PreferredLanguage)
	if lang == "" {
		lang = "en"
	}

	user := &models.User{
		Email:             email,
		PasswordHash:      string(hash),
		FirstName:         strings.TrimSpace(input.FirstName),
		LastName:          strings.TrimSpace(input.LastName),
		Role:              input.Role,
		PreferredLanguage: lang,
		Phone:             input.Phone,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeInternal, "token generation failed")
	}

	return user, pair, nil
}

// Login verifies credentials and returns the user with a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, apperror.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperror.ErrInvalidCredentials
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeInternal, "token generation failed")
	}

	return user, pair, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, err
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "token generation failed")
	}

	return pair, nil
}
