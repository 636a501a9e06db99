package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ukydev/apartment-management/internal/auth"
	"github.com/ukydev/apartment-management/internal/billing"
	"github.com/ukydev/apartment-management/internal/cart"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/facility"
	"github.com/ukydev/apartment-management/internal/middleware"
	"github.com/ukydev/apartment-management/internal/models"
	"github.com/ukydev/apartment-management/internal/occupancy"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth       *auth.Service
	Stores     *db.Stores
	Reconciler *occupancy.Reconciler
	Carts      *cart.Service
	Generator  *billing.Generator
	Workflow   *billing.Workflow
	Sweeper    *billing.Sweeper
	Facility   *facility.Service
}

type RouterOptions struct {
	ClientURL         string
	RateLimit         int
	RateWindowSeconds int
	// TrustProxy takes the client address from forwarding headers. Only
	// enable it behind a proxy that overwrites them.
	TrustProxy bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(svc Services, opts RouterOptions) *chi.Mux {
	authHandler := NewAuthHandler(svc.Auth, svc.Stores.Users)
	users := NewUserHandler(svc.Auth, svc.Stores.Users, svc.Reconciler)
	tenants := NewTenantHandler(svc.Auth, svc.Stores.Users, svc.Stores.Apartments, svc.Reconciler)
	commerce := NewCommerceHandler(svc.Carts, svc.Facility, svc.Stores.Consumptions)
	bills := NewBillHandler(svc.Stores.Bills, svc.Generator, svc.Workflow, svc.Sweeper)
	fac := NewFacilityHandler(svc.Facility, svc.Stores.Users)

	authMiddleware := middleware.NewAuthMiddleware(svc.Auth)
	limiter := middleware.NewRateLimitMiddleware()

	admin := middleware.RequireRole(models.RoleAdmin)
	tenant := middleware.RequireRole(models.RoleTenant)
	worker := middleware.RequireRole(models.RoleWorker)

	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{opts.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
	})

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimit > 0 && opts.RateWindowSeconds > 0 {
			r.Use(limiter.RateLimit(opts.RateLimit, opts.RateWindowSeconds))
		}

		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Account routes
			r.Route("/auth", func(r chi.Router) {
				r.Get("/me", authHandler.GetProfile)
				r.Put("/me", authHandler.UpdateProfile)
				r.Put("/change-password", authHandler.ChangePassword)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(admin)
				r.Get("/", authHandler.ListUsers)
				r.Post("/", authHandler.CreateUser)
				r.Get("/{id}", users.GetUser)
				r.Put("/{id}", users.UpdateUser)
				r.Delete("/{id}", users.DeleteUser)
				r.Patch("/{id}/toggle-status", users.ToggleUserStatus)
			})

			// Tenant routes
			r.Route("/tenants", func(r chi.Router) {
				r.Use(admin)
				r.Get("/", tenants.ListTenants)
				r.Post("/", tenants.CreateTenant)
				r.Get("/stats", tenants.TenantStats)
				r.Get("/historical", tenants.HistoricalTenants)
				r.Post("/update-statuses", tenants.RefreshLeaseStatuses)
				r.Get("/{id}", tenants.GetTenant)
				r.Put("/{id}", tenants.UpdateTenant)
				r.Delete("/{id}", tenants.DeleteTenant)
				r.Patch("/{id}/toggle-status", tenants.ToggleStatus)
				r.Get("/{id}/history", tenants.TenantHistory)
				r.Post("/{id}/archive", tenants.ArchiveTenant)
			})

			// Apartment routes
			r.Route("/apartments", func(r chi.Router) {
				r.Get("/", tenants.ListApartments)
				r.Get("/available", tenants.AvailableApartments)
				r.Get("/{id}", tenants.GetApartment)
				r.With(admin).Post("/", tenants.CreateApartment)
				r.With(admin).Put("/{id}", tenants.UpdateApartment)
				r.With(admin).Delete("/{id}", tenants.DeleteApartment)
			})

			// Beverage routes
			r.Route("/beverages", func(r chi.Router) {
				r.Get("/", commerce.ListBeverages)
				r.With(admin).Post("/", commerce.CreateBeverage)
				r.With(admin).Put("/{id}", commerce.UpdateBeverage)
				r.With(admin).Delete("/{id}", commerce.DeleteBeverage)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Use(tenant)
				r.Get("/", commerce.GetCart)
				r.Post("/items", commerce.AddItem)
				r.Put("/items/{itemId}", commerce.UpdateItem)
				r.Delete("/items/{itemId}", commerce.RemoveItem)
				r.Post("/checkout", commerce.Checkout)
			})

			r.Route("/consumption", func(r chi.Router) {
				r.With(tenant).Get("/mine", commerce.MyConsumption)
				r.With(admin).Get("/", commerce.ListConsumption)
				r.With(admin).Get("/summary", commerce.ConsumptionSummary)
			})

			// Bill routes
			r.Route("/bills", func(r chi.Router) {
				r.With(middleware.RequirePermission("view_own_bills")).Get("/mine", bills.MyBills)
				r.With(middleware.RequireRole(models.RoleAdmin, models.RoleTenant)).Get("/{id}", bills.GetBill)

				r.Group(func(r chi.Router) {
					r.Use(admin)
					r.Get("/", bills.ListBills)
					r.Post("/", bills.CreateDraft)
					r.Post("/send-now", bills.SendNow)
					r.Get("/stats", bills.Stats)
					r.Post("/submit", bills.SubmitForReview)
					r.Post("/send", bills.SendBills)
					r.Post("/sweep", bills.Sweep)
					r.Put("/{id}", bills.UpdateBill)
					r.Delete("/{id}", bills.DeleteBill)
					r.Patch("/{id}/review", bills.ReviewBill)
					r.Patch("/{id}/mark-paid", bills.MarkPaid)
					r.Patch("/{id}/cancel", bills.CancelBill)
				})
			})

			// Maintenance routes
			r.Route("/maintenance", func(r chi.Router) {
				r.With(tenant).Post("/", fac.CreateMaintenance)
				r.With(tenant).Get("/mine", fac.MyMaintenance)
				r.With(tenant).Post("/{id}/feedback", fac.SubmitFeedback)
				r.With(worker).Get("/assigned", fac.AssignedMaintenance)
				r.With(worker).Get("/dashboard", fac.WorkerDashboard)
				r.With(admin).Get("/", fac.ListMaintenance)
				r.With(admin).Patch("/{id}/assign", fac.AssignMaintenance)
				r.With(middleware.RequirePermission("update_maintenance")).Patch("/{id}/status", fac.UpdateMaintenanceStatus)
			})

			r.Route("/leave", func(r chi.Router) {
				r.With(worker).Post("/", fac.RequestLeave)
				r.With(worker).Get("/mine", fac.MyLeaves)
				r.With(admin).Get("/", fac.ListLeaves)
				r.With(admin).Patch("/{id}/review", fac.ReviewLeave)
			})

			r.Route("/rooftop/reservations", func(r chi.Router) {
				r.With(tenant).Post("/", fac.Reserve)
				r.With(tenant).Get("/mine", fac.MyReservations)
				r.With(tenant).Patch("/{id}/cancel", fac.CancelReservation)
				r.With(admin).Get("/", fac.ListReservations)
				r.With(admin).Patch("/{id}/review", fac.ReviewReservation)
			})
		})
	})

	return r
}
