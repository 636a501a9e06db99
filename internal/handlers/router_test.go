package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/apartment-management/internal/auth"
	"github.com/ukydev/apartment-management/internal/billing"
	"github.com/ukydev/apartment-management/internal/cart"
	"github.com/ukydev/apartment-management/internal/db/memdb"
	"github.com/ukydev/apartment-management/internal/facility"
	"github.com/ukydev/apartment-management/internal/models"
	"github.com/ukydev/apartment-management/internal/notify"
	"github.com/ukydev/apartment-management/internal/occupancy"
)

type testServer struct {
	t      *testing.T
	srv    *httptest.Server
	auth   *auth.Service
	stores *memdb.Store
}

func testServices(store *memdb.Store, authService *auth.Service) Services {
	stores := store.Stores()
	dispatcher := notify.LogDispatcher{}
	generator := billing.NewGenerator(stores, dispatcher, 15)
	return Services{
		Auth:       authService,
		Stores:     stores,
		Reconciler: occupancy.NewReconciler(stores, dispatcher),
		Carts:      cart.NewService(stores),
		Generator:  generator,
		Workflow:   billing.NewWorkflow(stores, dispatcher),
		Sweeper:    billing.NewSweeper(stores, generator),
		Facility:   facility.NewService(stores),
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memdb.New()
	authService := auth.NewService("router-test-secret", time.Hour)
	router := NewRouter(testServices(store, authService), RouterOptions{ClientURL: "http://localhost:3000", RateLimit: 1000, RateWindowSeconds: 60})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, auth: authService, stores: store}
}

func (s *testServer) seedUser(role models.Role, email, password string) *models.User {
	s.t.Helper()
	hash, err := s.auth.HashPassword(password)
	require.NoError(s.t, err)
	user := &models.User{Name: "Seeded " + string(role), Email: email, PasswordHash: hash, Role: role, IsActive: true}
	require.NoError(s.t, s.stores.InsertUser(context.Background(), user))
	return user
}

func (s *testServer) do(method, path, token string, body any) (int, testEnvelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		reader = jsonBody(s.t, body)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.srv.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env testEnvelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	require.NoError(s.t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	status, env := s.do("POST", "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, status, env.Message)
	var resp models.LoginResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &resp))
	return resp.Token
}

func decodeData[T any](t *testing.T, env testEnvelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do("GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestRouter_RoleChecks(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(models.RoleAdmin, "admin@example.com", "password123")
	s.seedUser(models.RoleWorker, "worker@example.com", "password123")
	s.seedUser(models.RoleTenant, "tenant@example.com", "password123")

	adminToken := s.login("admin@example.com", "password123")
	workerToken := s.login("worker@example.com", "password123")
	tenantToken := s.login("tenant@example.com", "password123")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", "GET", "/api/cart", "", http.StatusUnauthorized},
		{"bad token", "GET", "/api/cart", "garbage", http.StatusUnauthorized},
		{"tenant lists tenants", "GET", "/api/tenants", tenantToken, http.StatusForbidden},
		{"worker uses cart", "GET", "/api/cart", workerToken, http.StatusForbidden},
		{"admin uses cart", "GET", "/api/cart", adminToken, http.StatusForbidden},
		{"tenant uses cart", "GET", "/api/cart", tenantToken, http.StatusOK},
		{"worker views bill stats", "GET", "/api/bills/stats", workerToken, http.StatusForbidden},
		{"admin views bill stats", "GET", "/api/bills/stats", adminToken, http.StatusOK},
		{"worker views own bills", "GET", "/api/bills/mine", workerToken, http.StatusForbidden},
		{"tenant requests leave", "POST", "/api/leave", tenantToken, http.StatusForbidden},
		{"tenant updates ticket status", "PATCH", "/api/maintenance/000000000000000000000000/status", tenantToken, http.StatusForbidden},
		{"anyone reads profile", "GET", "/api/auth/me", workerToken, http.StatusOK},
		{"anyone reads beverages", "GET", "/api/beverages", tenantToken, http.StatusOK},
		{"malformed id", "GET", "/api/tenants/not-an-id", adminToken, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := s.do(tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestRouter_TenantLifecycleAndBilling(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(models.RoleAdmin, "admin@example.com", "password123")
	adminToken := s.login("admin@example.com", "password123")

	// Admin sets up an apartment, a tenant living in it, and a beverage.
	status, env := s.do("POST", "/api/apartments", adminToken, map[string]any{
		"unit_number": "A101",
		"building":    "A",
		"floor":       1,
		"type":        "1BHK",
		"rent":        900,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	apt := decodeData[models.Apartment](t, env)
	assert.False(t, apt.IsOccupied)

	status, env = s.do("POST", "/api/tenants", adminToken, map[string]any{
		"name":             "Jamie Tenant",
		"email":            "Jamie@Example.com",
		"password":         "password123",
		"apartment_id":     apt.ID.Hex(),
		"lease_start_date": "2025-01-01",
		"lease_end_date":   "2030-12-31",
		"monthly_rent":     900,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	tenant := decodeData[models.User](t, env)

	status, env = s.do("GET", "/api/apartments/"+apt.ID.Hex(), adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	apt = decodeData[models.Apartment](t, env)
	assert.True(t, apt.IsOccupied)
	require.NotNil(t, apt.CurrentTenant)
	assert.Equal(t, tenant.ID, *apt.CurrentTenant)

	status, env = s.do("POST", "/api/beverages", adminToken, map[string]any{
		"name":     "Cold Brew",
		"price":    4.5,
		"category": "Non-Alcoholic",
		"stock":    100,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	beverage := decodeData[models.Beverage](t, env)

	// The tenant orders two drinks.
	tenantToken := s.login("jamie@example.com", "password123")

	status, env = s.do("POST", "/api/cart/checkout", tenantToken, nil)
	assert.Equal(t, http.StatusBadRequest, status, "empty cart checkout")

	status, env = s.do("POST", "/api/cart/items", tenantToken, map[string]any{
		"beverage_id": beverage.ID.Hex(),
		"quantity":    2,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	c := decodeData[models.BeverageCart](t, env)
	assert.Equal(t, 9.0, c.TotalAmount)

	status, env = s.do("POST", "/api/cart/checkout", tenantToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.do("GET", "/api/consumption/mine", tenantToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, *env.Total)

	// Admin bills the month to date; the order is folded into the bill.
	now := time.Now().UTC()
	status, env = s.do("POST", "/api/bills/send-now", adminToken, map[string]any{
		"tenant_id":  tenant.ID.Hex(),
		"start_date": time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(dateLayout),
		"end_date":   now.Format(dateLayout),
		"utilities": []map[string]any{
			{"utility_type": "electricity", "previous_reading": 100, "current_reading": 150, "rate": 0.2},
		},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	bill := decodeData[models.UtilityBill](t, env)
	assert.Equal(t, models.BillSent, bill.Status)
	assert.Equal(t, 19.0, bill.TotalAmount)
	assert.Len(t, bill.BeverageConsumption.Items, 1)
	assert.NotEmpty(t, bill.BillNumber)

	status, env = s.do("GET", "/api/bills/mine", tenantToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, *env.Total)

	status, _ = s.do("GET", "/api/bills/"+bill.ID.Hex(), tenantToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.do("PATCH", "/api/bills/"+bill.ID.Hex()+"/mark-paid", adminToken, map[string]any{"payment_method": "card"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, models.BillPaid, decodeData[models.UtilityBill](t, env).Status)

	status, _ = s.do("PATCH", "/api/bills/"+bill.ID.Hex()+"/cancel", adminToken, map[string]any{})
	assert.Equal(t, http.StatusConflict, status, "paid bills are terminal")

	status, env = s.do("GET", "/api/bills/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	stats := decodeData[models.BillStats](t, env)
	assert.Equal(t, 19.0, stats.PaidAmount)
}

func TestRouter_DraftsStayHiddenFromTenants(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(models.RoleAdmin, "admin@example.com", "password123")
	adminToken := s.login("admin@example.com", "password123")

	status, env := s.do("POST", "/api/apartments", adminToken, map[string]any{
		"unit_number": "B202", "building": "B", "floor": 2, "type": "2BHK", "rent": 1200,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	apt := decodeData[models.Apartment](t, env)

	status, env = s.do("POST", "/api/tenants", adminToken, map[string]any{
		"name": "Robin Tenant", "email": "robin@example.com", "password": "password123", "apartment_id": apt.ID.Hex(),
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	tenant := decodeData[models.User](t, env)
	tenantToken := s.login("robin@example.com", "password123")

	status, env = s.do("POST", "/api/bills", adminToken, map[string]any{
		"tenant_id":  tenant.ID.Hex(),
		"start_date": "2025-02-01",
		"end_date":   "2025-02-28",
		"utilities": []map[string]any{
			{"utility_type": "water", "previous_reading": 10, "current_reading": 12, "rate": 5},
		},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	draft := decodeData[models.UtilityBill](t, env)
	assert.Equal(t, models.BillDraft, draft.Status)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), draft.BillingPeriod.EndDate.UTC())

	status, _ = s.do("GET", "/api/bills/"+draft.ID.Hex(), tenantToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = s.do("GET", "/api/bills/mine", tenantToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, *env.Total)

	// A reading that goes backwards is rejected.
	status, _ = s.do("PUT", "/api/bills/"+draft.ID.Hex(), adminToken, map[string]any{
		"utilities": []map[string]any{
			{"utility_type": "water", "previous_reading": 12, "current_reading": 10, "rate": 5},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, env = s.do("POST", "/api/bills/submit", adminToken, map[string]any{
		"bill_ids": []string{draft.ID.Hex(), "ffffffffffffffffffffffff"},
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	batch := decodeData[map[string]any](t, env)
	assert.Equal(t, float64(1), batch["succeeded"])
	assert.Equal(t, float64(1), batch["failed"])

	status, env = s.do("PATCH", "/api/bills/"+draft.ID.Hex()+"/review", adminToken, map[string]any{"action": "approve"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, models.BillApproved, decodeData[models.UtilityBill](t, env).Status)

	status, _ = s.do("POST", "/api/bills/send", adminToken, map[string]any{"bill_ids": []string{draft.ID.Hex()}})
	require.Equal(t, http.StatusOK, status)

	status, env = s.do("GET", "/api/bills/mine", tenantToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, *env.Total)
}

func TestRouter_DeleteOccupiedApartment(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(models.RoleAdmin, "admin@example.com", "password123")
	adminToken := s.login("admin@example.com", "password123")

	status, env := s.do("POST", "/api/apartments", adminToken, map[string]any{
		"unit_number": "C303", "building": "C", "floor": 3, "type": "3BHK", "rent": 1500,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	apt := decodeData[models.Apartment](t, env)

	status, env = s.do("POST", "/api/tenants", adminToken, map[string]any{
		"name": "Alex Tenant", "email": "alex@example.com", "password": "password123", "apartment_id": apt.ID.Hex(),
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	tenant := decodeData[models.User](t, env)

	status, _ = s.do("DELETE", "/api/apartments/"+apt.ID.Hex(), adminToken, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, env = s.do("DELETE", "/api/tenants/"+tenant.ID.Hex(), adminToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.do("GET", "/api/apartments/available", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, *env.Count)

	status, _ = s.do("DELETE", "/api/apartments/"+apt.ID.Hex(), adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRouter_RateLimitKeysOnPeerAddress(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		want       []int
	}{
		{"forwarding headers ignored", false, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}},
		{"trusted proxy", true, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusBadRequest}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(testServices(memdb.New(), auth.NewService("s", time.Hour)), RouterOptions{
				RateLimit:         2,
				RateWindowSeconds: 60,
				TrustProxy:        tt.trustProxy,
			})
			var got []int
			for _, ip := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
				req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader("{}"))
				req.RemoteAddr = "10.1.1.1:3000"
				req.Header.Set("X-Forwarded-For", ip)
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)
				got = append(got, w.Code)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouter_UserAccounts(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedUser(models.RoleAdmin, "admin@example.com", "password123")
	worker := s.seedUser(models.RoleWorker, "worker@example.com", "password123")
	adminToken := s.login("admin@example.com", "password123")
	workerPath := "/api/users/" + worker.ID.Hex()

	status, env := s.do("GET", workerPath, adminToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "worker@example.com", decodeData[models.User](t, env).Email)

	status, _ = s.do("GET", "/api/users/"+worker.ID.Hex(), s.login("worker@example.com", "password123"), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do("PUT", workerPath, adminToken, map[string]any{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do("PUT", workerPath, adminToken, map[string]any{"name": "Renamed Worker", "password": "newpassword1"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Renamed Worker", decodeData[models.User](t, env).Name)
	s.login("worker@example.com", "newpassword1")

	status, _ = s.do("PUT", "/api/users/"+admin.ID.Hex(), adminToken, map[string]any{"is_active": false})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = s.do("PATCH", "/api/users/"+admin.ID.Hex()+"/toggle-status", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = s.do("DELETE", "/api/users/"+admin.ID.Hex(), adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do("PATCH", workerPath+"/toggle-status", adminToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.False(t, decodeData[map[string]bool](t, env)["is_active"])
	status, _ = s.do("POST", "/api/auth/login", "", map[string]string{"email": "worker@example.com", "password": "newpassword1"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do("DELETE", workerPath, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.do("GET", workerPath, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decodeData[models.User](t, env).IsDeleted)
	status, _ = s.do("DELETE", workerPath, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_UserRoutesKeepTenantOccupancy(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(models.RoleAdmin, "admin@example.com", "password123")
	adminToken := s.login("admin@example.com", "password123")

	status, env := s.do("POST", "/api/apartments", adminToken, map[string]any{
		"unit_number": "D404", "building": "D", "floor": 4, "type": "1BHK", "rent": 800,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	apt := decodeData[models.Apartment](t, env)
	status, env = s.do("POST", "/api/tenants", adminToken, map[string]any{
		"name": "Dana Tenant", "email": "dana@example.com", "password": "password123", "apartment_id": apt.ID.Hex(),
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	tenant := decodeData[models.User](t, env)

	available := func() int {
		status, env := s.do("GET", "/api/apartments/available", adminToken, nil)
		require.Equal(t, http.StatusOK, status)
		return *env.Count
	}
	require.Zero(t, available())

	status, env = s.do("PUT", "/api/users/"+tenant.ID.Hex(), adminToken, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, 1, available())

	status, _ = s.do("PATCH", "/api/users/"+tenant.ID.Hex()+"/toggle-status", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, available())

	status, _ = s.do("DELETE", "/api/users/"+tenant.ID.Hex(), adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, available())
	stored, err := s.stores.FindUserByID(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseTerminated, stored.TenantInfo.LeaseStatus)
}

func TestRouter_TenantHistoryAndArchive(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(models.RoleAdmin, "admin@example.com", "password123")
	adminToken := s.login("admin@example.com", "password123")

	status, env := s.do("POST", "/api/apartments", adminToken, map[string]any{
		"unit_number": "E505", "building": "E", "floor": 5, "type": "2BHK", "rent": 1100,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	apt := decodeData[models.Apartment](t, env)
	now := time.Now()
	status, env = s.do("POST", "/api/tenants", adminToken, map[string]any{
		"name": "Eli Tenant", "email": "eli@example.com", "password": "password123", "apartment_id": apt.ID.Hex(),
		"lease_start_date": now.AddDate(0, -3, 0).Format("2006-01-02"),
		"lease_end_date":   now.AddDate(0, 9, 0).Format("2006-01-02"),
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	tenant := decodeData[models.User](t, env)
	tenantToken := s.login("eli@example.com", "password123")

	status, _ = s.do("GET", "/api/tenants/"+tenant.ID.Hex()+"/history", tenantToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do("GET", "/api/tenants/"+tenant.ID.Hex()+"/history", adminToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	history := decodeData[occupancy.TenantHistory](t, env)
	assert.Equal(t, tenant.ID, history.Tenant.ID)
	assert.Zero(t, history.Summary.TotalBills)

	status, env = s.do("GET", "/api/tenants/historical", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, *env.Count)

	status, env = s.do("POST", "/api/tenants/"+tenant.ID.Hex()+"/archive", adminToken, map[string]string{"reason_for_leaving": "bought a house"})
	require.Equal(t, http.StatusOK, status, env.Message)
	archived := decodeData[models.User](t, env)
	assert.Equal(t, models.LeaseExpired, archived.TenantInfo.LeaseStatus)
	require.Len(t, archived.TenantInfo.LeaseHistory, 1)
	assert.Equal(t, "bought a house", archived.TenantInfo.LeaseHistory[0].Reason)

	status, _ = s.do("POST", "/api/tenants/"+tenant.ID.Hex()+"/archive", adminToken, map[string]string{})
	assert.Equal(t, http.StatusConflict, status)

	status, env = s.do("GET", "/api/tenants/historical", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, *env.Count)
	status, env = s.do("GET", "/api/apartments/available", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, *env.Count)

	status, env = s.do("POST", "/api/tenants/update-statuses", adminToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, 0, decodeData[map[string]int](t, env)["updated"])
}

func TestRouter_WorkerDashboard(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(models.RoleWorker, "worker@example.com", "password123")
	s.seedUser(models.RoleTenant, "tenant@example.com", "password123")

	status, env := s.do("GET", "/api/maintenance/dashboard", s.login("worker@example.com", "password123"), nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	dash := decodeData[facility.WorkerDashboard](t, env)
	assert.Zero(t, dash.MaintenanceStats.Total)
	assert.Empty(t, dash.RecentLeaves)

	status, _ = s.do("GET", "/api/maintenance/dashboard", s.login("tenant@example.com", "password123"), nil)
	assert.Equal(t, http.StatusForbidden, status)
}
