package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/scribe/internal/domain"
	"github.com/prn-tf/scribe/internal/metrics"
	"github.com/prn-tf/scribe/internal/pkg/crypto"
	"github.com/prn-tf/scribe/internal/repository"
)

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uuid.UUID, emailAddress string) (string, time.Time, error)
}

// UserService handles signup and login.
type UserService struct {
	userRepo   repository.UserRepository
	tokens     TokenIssuer
	bcryptCost int
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	tokens TokenIssuer,
	bcryptCost int,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		metrics:    m,
		logger:     logger.With().Str("service", "user").Logger(),
	}
}

// SignupInput contains the data needed to register a user.
type SignupInput struct {
	FirstName    string
	LastName     string
	EmailAddress string
	Password     string
}

// SignupOutput contains the registered user.
type SignupOutput struct {
	User *domain.User
}

// LoginInput contains login credentials.
type LoginInput struct {
	EmailAddress string
	Password     string
}

// LoginOutput contains the issued token and the authenticated user.
type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Signup creates a new user account.
// Duplicate emails are rejected by the store's unique constraint.
func (s *UserService) Signup(ctx context.Context, input SignupInput) (*SignupOutput, error) {
	passwordHash, err := crypto.HashPassword(input.Password, s.bcryptCost)
	if errors.Is(err, crypto.ErrEmptyPassword) {
		verr := &ValidationError{}
		verr.Add("password", "Password field is required")
		return nil, verr
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(input.FirstName, input.LastName, input.EmailAddress, passwordHash)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			s.logger.Debug().Str("email", user.EmailAddress).Msg("signup with existing email")
			return nil, err
		}
		s.logger.Error().Err(err).Str("email", user.EmailAddress).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.UserRegistered()
	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("email", user.EmailAddress).
		Msg("user created")

	return &SignupOutput{User: user}, nil
}

// Login verifies credentials and issues a bearer token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	email := domain.NormalizeEmail(input.EmailAddress)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Str("email", email).Msg("user not found during login")
			s.metrics.LoginFailed()
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to look up user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := crypto.VerifyPassword(user.PasswordHash, input.Password); err != nil {
		if errors.Is(err, crypto.ErrPasswordMismatch) {
			s.logger.Debug().Str("email", email).Msg("invalid password during login")
			s.metrics.LoginFailed()
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to verify password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.EmailAddress)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Time("expires_at", expiresAt).
		Msg("user logged in")

	return &LoginOutput{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email address.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}
