package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/apartment-management/internal/auth"
	"github.com/ukydev/apartment-management/internal/config"
	"github.com/ukydev/apartment-management/internal/db/memdb"
	"github.com/ukydev/apartment-management/internal/models"
)

func memoryLoader() (*config.Config, error) {
	return &config.Config{
		Port:            "0",
		Storage:         config.StorageMemory,
		JWTSecret:       "cli-test-secret",
		JWTExpiry:       time.Hour,
		BillDueDay:      15,
		BillingCron:     "0 59 23 28-31 * *",
		LeaseCron:       "0 45 9 * * *",
		OverdueCron:     "0 0 1 * * *",
		LeaseStatusCron: "0 15 0 * * *",
		LogLevel:        "error",
	}, nil
}

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()
	users := memdb.New()
	authService := auth.NewService("cli-test-secret", time.Hour)

	user, err := createAdmin(ctx, users, authService, "Root", "Root@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, user.IsActive)

	stored, err := users.FindUserByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, authService.CheckPassword("password123", stored.PasswordHash))

	_, err = createAdmin(ctx, users, authService, "Root", "root@example.com", "password123")
	assert.ErrorContains(t, err, "already exists")

	_, err = createAdmin(ctx, users, authService, "Short", "short@example.com", "abc")
	assert.Error(t, err)
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd(memoryLoader)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "sweep", "create-admin", "ensure-indexes"}, names)
}

func TestRootCmd_Sweep(t *testing.T) {
	root := newRootCmd(memoryLoader)
	root.SetArgs([]string{"sweep"})

	assert.NoError(t, root.Execute())
}

func TestRootCmd_EnsureIndexesNeedsMongo(t *testing.T) {
	root := newRootCmd(memoryLoader)
	root.SetArgs([]string{"ensure-indexes"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE=mongo")
}

func TestRootCmd_CreateAdminRequiresFlags(t *testing.T) {
	root := newRootCmd(memoryLoader)
	root.SetArgs([]string{"create-admin", "--email", "admin@example.com"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestRootCmd_ConfigError(t *testing.T) {
	root := newRootCmd(func() (*config.Config, error) { return nil, assert.AnError })
	root.SetArgs([]string{"sweep"})

	assert.ErrorIs(t, root.Execute(), assert.AnError)
}
