package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"transfer-ledger/internal/models"
	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingFields      = errors.New("username, email, and password are required")
)

type UserService struct {
	store  store.Store
	logger zerolog.Logger
}

func NewUserService(st store.Store, logger zerolog.Logger) *UserService {
	return &UserService{
		store:  st,
		logger: logger,
	}
}

// Register creates a user with a zero balance.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)
	if req.Username == "" || email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, &models.User{
		Username:             req.Username,
		Email:                email,
		PasswordHash:         string(hashedPassword),
		Role:                 string(models.RoleUser),
		Balance:              0,
		CardNumber:           req.CardNumber,
		NotificationsEnabled: true,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered successfully")
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn().Str("email", req.Email).Msg("Failed authentication attempt")
		return nil, ErrInvalidCredentials
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User authenticated successfully")
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
}

// UpdatePreferences changes the user's notification flag.
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, notificationsEnabled bool) error {
	err := s.store.UpdateUser(ctx, userID, store.UserUpdate{NotificationsEnabled: store.Bool(notificationsEnabled)})
	if err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Bool("notifications_enabled", notificationsEnabled).Msg("User preferences updated")
	return nil
}
