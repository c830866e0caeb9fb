package operator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/farmshop-backend/internal/config"
	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Operator{}))

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		App: config.AppConfig{Name: "Farmshop API"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-test-secret-test-secret",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: 4},
	}

	return NewService(db, cfg, log), db
}

func TestLogin(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.Create(context.Background(), "Operator@Example.com", "Operator", "Operator123")
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "operator@example.com", Password: "Operator123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "operator@example.com", resp.Operator.Email)

	var stored Operator
	require.NoError(t, db.First(&stored, resp.Operator.ID).Error)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLoginRejections(t *testing.T) {
	svc, db := newTestService(t)

	op, err := svc.Create(context.Background(), "operator@example.com", "Operator", "Operator123")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), &LoginRequest{Email: "operator@example.com", Password: "Operator124"})
		require.Error(t, err)
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), &LoginRequest{Email: "nobody@example.com", Password: "Operator123"})
		require.Error(t, err)
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("deactivated account", func(t *testing.T) {
		require.NoError(t, db.Model(&Operator{}).Where("id = ?", op.ID).Update("is_active", false).Error)
		_, err := svc.Login(context.Background(), &LoginRequest{Email: "operator@example.com", Password: "Operator123"})
		require.Error(t, err)
		assert.True(t, errs.IsValidation(err))
	})
}

func TestRefresh(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "operator@example.com", "Operator", "Operator123")
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "operator@example.com", Password: "Operator123"})
	require.NoError(t, err)

	access, err := svc.Refresh(context.Background(), resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	// An access token is not a valid refresh token.
	_, err = svc.Refresh(context.Background(), resp.AccessToken)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "operator@example.com", "Operator", "Operator123")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "operator@example.com", "Other", "Operator123")
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))
}
