package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gigbridge/gigbridge/pkg/models"
)

func setupAuth(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return NewService(db, "test_jwt_secret", zap.NewNop())
}

func TestRegisterLoginValidate(t *testing.T) {
	svc := setupAuth(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "dev@example.com", "devuser", "s3cretpass", models.RoleFreelancer)
	require.NoError(t, err)
	assert.Equal(t, models.RoleFreelancer, user.Role)
	assert.NotEqual(t, "s3cretpass", user.PasswordHash)

	token, logged, err := svc.Login(ctx, "dev@example.com", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	sess, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.UserID)
	assert.Equal(t, models.RoleFreelancer, sess.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := setupAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "dev@example.com", "devuser", "s3cretpass", models.RoleClient)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "dev@example.com", "wrongpass")
	assert.Error(t, err)

	_, _, err = svc.Login(ctx, "nobody@example.com", "s3cretpass")
	assert.Error(t, err)
}

func TestRegisterGuards(t *testing.T) {
	svc := setupAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@example.com", "user1", "short", models.RoleClient)
	assert.Error(t, err)

	// Admins are provisioned out of band, not via registration.
	_, err = svc.Register(ctx, "a@example.com", "user1", "s3cretpass", models.RoleAdmin)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := setupAuth(t)
	ctx := context.Background()

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)

	// A token signed with a different secret must not validate.
	other := setupAuth(t)
	other.secret = []byte("different_secret")
	_, err = other.Register(ctx, "x@example.com", "xuser", "s3cretpass", models.RoleClient)
	require.NoError(t, err)
	tok, _, err := other.Login(ctx, "x@example.com", "s3cretpass")
	require.NoError(t, err)

	_, err = svc.ValidateToken(tok)
	assert.Error(t, err)
}
