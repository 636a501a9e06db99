package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/models"
)

func TestMongoUserCollection_InsertUser(t *testing.T) {
	stores, _ := testStores(t)
	ctx := context.Background()

	start := time.Now().AddDate(0, -1, 0)
	end := time.Now().AddDate(1, 0, 0)
	user := &models.User{
		Name:         "Test Tenant",
		Email:        " Tenant@Example.com ",
		PasswordHash: "hashedpassword",
		Role:         models.RoleTenant,
		IsActive:     true,
		TenantInfo:   &models.TenantInfo{LeaseStartDate: &start, LeaseEndDate: &end},
	}

	err := stores.Users.InsertUser(ctx, user)
	assert.NoError(t, err)
	assert.False(t, user.ID.IsZero())

	found, err := stores.Users.FindUserByEmail(ctx, "tenant@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "tenant@example.com", found.Email)
	assert.Equal(t, models.LeaseActive, found.TenantInfo.LeaseStatus)
	assert.NotZero(t, found.CreatedAt)

	err = stores.Users.InsertUser(ctx, &models.User{Email: "tenant@example.com", Role: models.RoleTenant})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMongoUserCollection_FindUserByEmail_NotFound(t *testing.T) {
	stores, _ := testStores(t)
	ctx := context.Background()

	_, err := stores.Users.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMongoUserCollection_SoftDeleteFilter(t *testing.T) {
	stores, _ := testStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Users.InsertUser(ctx, &models.User{Name: "Live", Email: "live@example.com", Role: models.RoleTenant}))
	gone := &models.User{Name: "Gone", Email: "gone@example.com", Role: models.RoleTenant}
	require.NoError(t, stores.Users.InsertUser(ctx, gone))
	gone.IsDeleted = true
	require.NoError(t, stores.Users.UpdateUser(ctx, gone))

	live, err := stores.Users.FindUsers(ctx, UserFilter{Role: models.RoleTenant})
	require.NoError(t, err)
	assert.Len(t, live, 1)

	all, err := stores.Users.FindUsers(ctx, UserFilter{Role: models.RoleTenant, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMongoUserCollection_UpdateLastLogin(t *testing.T) {
	stores, _ := testStores(t)
	ctx := context.Background()

	user := &models.User{Email: "login@example.com", Role: models.RoleAdmin}
	require.NoError(t, stores.Users.InsertUser(ctx, user))
	require.NoError(t, stores.Users.UpdateLastLogin(ctx, user.ID))

	found, err := stores.Users.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLogin)
	assert.WithinDuration(t, time.Now(), *found.LastLogin, 5*time.Second)
}
