package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/apartment-management/internal/app"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/auth"
	"github.com/ukydev/apartment-management/internal/config"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
)

type configLoader func() (*config.Config, error)

func main() {
	if err := newRootCmd(config.Load).Execute(); err != nil {
		log.WithError(err).Fatal("Command failed")
	}
}

func newRootCmd(load configLoader) *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           "apartments",
		Short:         "Apartment complex management backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = load(); err != nil {
				return err
			}
			cfg.ConfigureLogging()
			return nil
		},
	}

	// withApp builds the service graph for one command and tears it down after.
	withApp := func(fn func(ctx context.Context, a *app.App) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					log.WithError(err).Warn("Failed to close connections")
				}
			}()
			return fn(ctx, a)
		}
	}

	rootCmd.AddCommand(
		serveCmd(withApp),
		sweepCmd(withApp),
		createAdminCmd(withApp),
		ensureIndexesCmd(withApp),
	)
	return rootCmd
}

type appRunner func(fn func(ctx context.Context, a *app.App) error) func(cmd *cobra.Command, args []string) error

func serveCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and scheduled jobs",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			return a.Run(ctx)
		}),
	}
}

func sweepCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Bill every open beverage cart into the current month",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			result, err := a.Services.Sweeper.Run(ctx)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"processed": result.ProcessedCarts,
				"total":     result.TotalAmount,
				"failures":  len(result.Failures),
			}).Info("Sweep finished")
			return nil
		}),
	}
}

func createAdminCmd(withApp appRunner) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			user, err := createAdmin(ctx, a.Services.Stores.Users, a.Services.Auth, name, email, password)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{"user_id": user.ID.Hex(), "email": user.Email}).Info("Admin created")
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func ensureIndexesCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes the service relies on",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			if a.Database == nil {
				return errors.New("ensure-indexes requires STORAGE=mongo")
			}
			if err := db.EnsureIndexes(ctx, a.Database); err != nil {
				return err
			}
			log.Info("Indexes ensured")
			return nil
		}),
	}
}

func createAdmin(ctx context.Context, users db.UserCollection, authService *auth.Service, name, email, password string) (*models.User, error) {
	if err := authService.ValidatePassword(password); err != nil {
		return nil, err
	}
	if _, err := users.FindUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("user %s already exists", email)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := authService.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := users.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
