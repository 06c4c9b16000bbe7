package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/studyrooms-api/internal/auth"
	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/models"
	"github.com/noah-isme/studyrooms-api/internal/observability"
	"github.com/noah-isme/studyrooms-api/internal/repository"
)

// AuthService manages accounts and session tokens.
type AuthService interface {
	Signup(ctx context.Context, req dto.SignupRequest) (dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	Me(ctx context.Context, userID string) (dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req dto.ChangePasswordRequest) error
}

type authService struct {
	users     repository.UserRepository
	hasher    auth.PasswordHasher
	issuer    auth.TokenIssuer
	validator *validator.Validate
	clean     sanitizer
	logger    zerolog.Logger
	tracer    trace.Tracer

	decoyOnce sync.Once
	decoyHash string
}

// NewAuthService constructs the account service.
func NewAuthService(users repository.UserRepository, hasher auth.PasswordHasher, issuer auth.TokenIssuer, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		users:     users,
		hasher:    hasher,
		issuer:    issuer,
		validator: validate,
		clean:     newSanitizer(),
		logger:    logger.With().Str("component", "auth_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/studyrooms-api/internal/service/auth"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Signup(ctx context.Context, req dto.SignupRequest) (dto.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = s.clean.Plain(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, asValidationError(err)
	}

	ctx, span := s.tracer.Start(ctx, "auth.signup")
	defer span.End()

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return dto.AuthResponse{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		span.RecordError(err)
		return dto.AuthResponse{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		return dto.AuthResponse{}, err
	}

	user := models.User{Email: req.Email, PasswordHash: hash, DisplayName: req.Name}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.AuthResponse{}, ErrEmailTaken
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist user")
		return dto.AuthResponse{}, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	s.logger.Info().Str("user_id", user.ID).Msg("user signed up")
	return s.session(user)
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, asValidationError(err)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.verifyDecoy(req.Password)
			observability.AuthFailures().WithLabelValues("invalid_credentials").Inc()
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		observability.AuthFailures().WithLabelValues("invalid_credentials").Inc()
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	s.logger.Debug().Str("user_id", user.ID).Msg("user logged in")
	return s.session(user)
}

// verifyDecoy spends the same hashing work as a real password check so an unknown
// email answers in about the same time as a wrong password.
func (s *authService) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash("studyrooms-decoy-password")
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to prepare decoy password hash")
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash != "" {
		_ = s.hasher.Verify(password, s.decoyHash)
	}
}

func (s *authService) session(user models.User) (dto.AuthResponse, error) {
	token, expiresAt, err := s.issuer.Issue(user.ID)
	if err != nil {
		return dto.AuthResponse{}, err
	}
	return dto.AuthResponse{Token: token, ExpiresAt: expiresAt, User: dto.NewUserResponse(user)}, nil
}

func (s *authService) Me(ctx context.Context, userID string) (dto.UserResponse, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (dto.UserResponse, error) {
	if req.Name != nil {
		name := s.clean.Plain(*req.Name)
		req.Name = &name
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, asValidationError(err)
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return dto.UserResponse{}, fieldError("name", "name is required")
		}
		user.DisplayName = *req.Name
	}
	if req.Bio != nil {
		user.Bio = s.clean.Plain(*req.Bio)
	}
	if req.University != nil {
		user.University = s.clean.Plain(*req.University)
	}
	if req.Major != nil {
		user.Major = s.clean.Plain(*req.Major)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *authService) ChangePassword(ctx context.Context, userID string, req dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return asValidationError(err)
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		return fieldError("currentPassword", "current password is incorrect")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, &user); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

func (s *authService) load(ctx context.Context, userID string) (models.User, error) {
	if userID == "" {
		return models.User{}, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, notFound(err, ErrUnauthenticated)
	}
	return user, nil
}
