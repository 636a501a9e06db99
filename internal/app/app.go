// Package app builds the service graph from configuration and runs the HTTP
// server with its background jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/auth"
	"github.com/ukydev/apartment-management/internal/billing"
	"github.com/ukydev/apartment-management/internal/cart"
	"github.com/ukydev/apartment-management/internal/config"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/db/memdb"
	"github.com/ukydev/apartment-management/internal/facility"
	"github.com/ukydev/apartment-management/internal/handlers"
	"github.com/ukydev/apartment-management/internal/notify"
	"github.com/ukydev/apartment-management/internal/occupancy"
	"github.com/ukydev/apartment-management/internal/scheduler"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	shutdownTimeout = 15 * time.Second
	mqttTimeout     = 10 * time.Second
)

// App owns every long-lived dependency of the server.
type App struct {
	cfg        *config.Config
	Services   handlers.Services
	Database   *mongo.Database // nil with in-memory storage
	Dispatcher notify.Dispatcher
	Scheduler  *scheduler.Scheduler

	closers []func(ctx context.Context) error
}

// New connects storage and the notification broker and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	stores, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	a.Dispatcher = a.openDispatcher()

	generator := billing.NewGenerator(stores, a.Dispatcher, cfg.BillDueDay)
	workflow := billing.NewWorkflow(stores, a.Dispatcher)
	sweeper := billing.NewSweeper(stores, generator)

	a.Services = handlers.Services{
		Auth:       auth.NewService(cfg.JWTSecret, cfg.JWTExpiry),
		Stores:     stores,
		Reconciler: occupancy.NewReconciler(stores, a.Dispatcher),
		Carts:      cart.NewService(stores),
		Generator:  generator,
		Workflow:   workflow,
		Sweeper:    sweeper,
		Facility:   facility.NewService(stores),
	}
	a.Scheduler = scheduler.New(scheduler.Specs{
		Billing:     cfg.BillingCron,
		Lease:       cfg.LeaseCron,
		LeaseStatus: cfg.LeaseStatusCron,
		Overdue:     cfg.OverdueCron,
	}, sweeper, workflow, a.Services.Reconciler, stores.Users, a.Dispatcher)

	return a, nil
}

func (a *App) openStorage(ctx context.Context) (*db.Stores, error) {
	if a.cfg.Storage == config.StorageMemory {
		log.Warn("Using in-memory storage; data is lost on restart")
		return memdb.New().Stores(), nil
	}

	client, err := db.ConnectMongo(ctx, a.cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	log.WithField("database", a.cfg.MongoDB).Info("Connected to MongoDB")
	a.Database = client.Database(a.cfg.MongoDB)
	a.closers = append(a.closers, client.Disconnect)
	return db.NewMongoStores(client, a.cfg.MongoDB), nil
}

// openDispatcher falls back to logging when no broker is configured or the
// broker is unreachable at startup.
func (a *App) openDispatcher() notify.Dispatcher {
	if a.cfg.MQTTBroker == "" {
		return notify.LogDispatcher{}
	}
	client, err := notify.ConnectMQTT(a.cfg.MQTTBroker, a.cfg.MQTTClientID, mqttTimeout)
	if err != nil {
		log.WithError(err).WithField("broker", a.cfg.MQTTBroker).Warn("MQTT unavailable, logging notifications instead")
		return notify.LogDispatcher{}
	}
	d := notify.NewMQTTDispatcher(client, a.cfg.MQTTTopic)
	a.closers = append(a.closers, func(context.Context) error {
		d.Close()
		return nil
	})
	log.WithFields(log.Fields{"broker": a.cfg.MQTTBroker, "topic": a.cfg.MQTTTopic}).Info("Publishing notifications over MQTT")
	return d
}

// Handler returns the HTTP router.
func (a *App) Handler() http.Handler {
	return handlers.NewRouter(a.Services, handlers.RouterOptions{
		ClientURL:         a.cfg.ClientURL,
		RateLimit:         a.cfg.RateLimit,
		RateWindowSeconds: a.cfg.RateWindowSeconds,
		TrustProxy:        a.cfg.TrustProxy,
	})
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.SchedulerEnabled {
		if err := a.Scheduler.Start(); err != nil {
			return err
		}
		defer a.Scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", a.cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases storage and broker connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
