// internal/domain/operator/service.go
package operator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/farmshop-backend/internal/config"
	"github.com/your-org/farmshop-backend/internal/pkg/auth"
	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

// Service handles operator authentication
type Service struct {
	db              *gorm.DB
	config          *config.Config
	jwtManager      *auth.JWTManager
	passwordManager *auth.PasswordManager
	logger          *logrus.Logger
}

// NewService creates a new operator service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:              db,
		config:          cfg,
		jwtManager:      auth.NewJWTManager(cfg),
		passwordManager: auth.NewPasswordManager(cfg),
		logger:          logger,
	}
}

// LoginRequest represents operator login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token pair.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Operator     *Operator `json:"operator"`
}

// Login authenticates an operator and issues a token pair. Unknown
// email and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	var op Operator
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(req.Email)).First(&op).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Validation("invalid credentials")
		}
		return nil, fmt.Errorf("failed to look up operator: %w", err)
	}

	if !op.IsActive {
		return nil, errs.Validation("invalid credentials")
	}
	if err := s.passwordManager.VerifyPassword(req.Password, op.PasswordHash); err != nil {
		return nil, errs.Validation("invalid credentials")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(op.ID, op.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(op.ID, op.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&op).Update("last_login_at", now).Error; err != nil {
		s.logger.WithError(err).Warn("Failed to record operator login time")
	}

	s.logger.WithFields(logrus.Fields{
		"operator_id": op.ID,
		"email":       op.Email,
	}).Info("Operator logged in")

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Operator:     &op,
	}, nil
}

// Refresh exchanges a valid refresh token for a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", errs.Validation("invalid refresh token")
	}

	var op Operator
	if err := s.db.WithContext(ctx).First(&op, claims.OperatorID).Error; err != nil {
		return "", errs.Validation("invalid refresh token")
	}
	if !op.IsActive {
		return "", errs.Validation("invalid refresh token")
	}

	return s.jwtManager.GenerateAccessToken(op.ID, op.Email)
}

// Create provisions a new operator account.
func (s *Service) Create(ctx context.Context, email, name, password string) (*Operator, error) {
	hash, err := s.passwordManager.HashPassword(password)
	if err != nil {
		return nil, err
	}

	op := Operator{
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.Conflict("operator %s already exists", email)
		}
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}
	return &op, nil
}
