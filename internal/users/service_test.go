package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/config"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))
	return conn
}

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(newTestDB(t))
	svc, err := NewService(repo, config.DemoUserConfig{Email: "demo@example.com", DisplayName: "Demo User"}, nil)
	require.NoError(t, err)
	return svc, repo
}

func TestResolveWithoutHeaderProvisionsDemoUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	id, err := svc.Resolve(ctx, "")
	require.NoError(t, err)

	user, err := repo.FindByEmail(ctx, "demo@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), id)
	require.Equal(t, "Demo User", user.DisplayName)

	// second call reuses the same row
	again, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	require.Equal(t, id, again)
}

func TestResolveRejectsMalformedHeader(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Resolve(context.Background(), "not-a-uuid")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestResolveProvisionsUnknownID(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	id := uuid.New()

	resolved, err := svc.Resolve(ctx, id.String())
	require.NoError(t, err)
	require.Equal(t, id.String(), resolved)

	user, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("user-%s@example.com", id), user.Email)
}

func TestResolveReturnsExistingUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	existing := &models.User{Email: "shopper@example.com", DisplayName: "Shopper"}
	require.NoError(t, repo.Create(ctx, existing))

	resolved, err := svc.Resolve(ctx, existing.ID.String())
	require.NoError(t, err)
	require.Equal(t, existing.ID.String(), resolved)
}

func TestGetUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
