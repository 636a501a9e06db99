package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Credentials identify one simulated tenant.
type Credentials struct {
	Email    string
	Password string
}

// Beverage is the subset of the catalog entry the simulator needs.
type Beverage struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	IsAvailable bool    `json:"is_available"`
}

type Cart struct {
	ID          string  `json:"id"`
	TotalAmount float64 `json:"total_amount"`
	TotalItems  int     `json:"total_items"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// Client talks to the REST API as one tenant.
type Client struct {
	baseURL string
	runID   string
	token   string
	http    *http.Client
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL, runID string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		runID:   runID,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", c.runID+"-"+uuid.NewString()[:8])
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return nil
}

func (c *Client) Login(ctx context.Context, creds Credentials) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": creds.Email, "password": creds.Password}, &resp); err != nil {
		return fmt.Errorf("login %s: %w", creds.Email, err)
	}
	if resp.Token == "" {
		return fmt.Errorf("login %s: empty token", creds.Email)
	}
	c.token = resp.Token
	return nil
}

func (c *Client) Beverages(ctx context.Context) ([]Beverage, error) {
	var beverages []Beverage
	if err := c.do(ctx, http.MethodGet, "/beverages", nil, &beverages); err != nil {
		return nil, err
	}
	return beverages, nil
}

func (c *Client) AddToCart(ctx context.Context, beverageID string, quantity int) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodPost, "/cart/items", map[string]any{"beverage_id": beverageID, "quantity": quantity}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) Checkout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/cart/checkout", nil, nil)
}

// parseTenants reads "email:password" pairs separated by commas.
func parseTenants(raw string) ([]Credentials, error) {
	var out []Credentials
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		email, password, ok := strings.Cut(pair, ":")
		if !ok || email == "" || password == "" {
			return nil, fmt.Errorf("invalid tenant %q, expected email:password", pair)
		}
		out = append(out, Credentials{Email: email, Password: password})
	}
	if len(out) == 0 {
		return nil, errors.New("no tenants configured")
	}
	return out, nil
}

// tick orders one random drink and, every checkoutEvery ticks, checks out.
func tick(ctx context.Context, c *Client, rnd *rand.Rand, n, checkoutEvery, maxQty int, logger *log.Entry) error {
	beverages, err := c.Beverages(ctx)
	if err != nil {
		return err
	}
	if len(beverages) == 0 {
		logger.Debug("Catalog empty, nothing to order")
		return nil
	}
	b := beverages[rnd.Intn(len(beverages))]
	qty := 1 + rnd.Intn(maxQty)
	cart, err := c.AddToCart(ctx, b.ID, qty)
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{"beverage": b.Name, "quantity": qty, "cart_total": cart.TotalAmount}).Info("Added to cart")

	if checkoutEvery > 0 && n%checkoutEvery == 0 {
		if err := c.Checkout(ctx); err != nil {
			return err
		}
		logger.WithField("total", cart.TotalAmount).Info("Checked out")
	}
	return nil
}

func simulateTenant(ctx context.Context, c *Client, creds Credentials, interval time.Duration, checkoutEvery, maxQty int, seed int64) {
	logger := log.WithFields(log.Fields{"tenant": creds.Email, "run_id": c.runID})
	if err := c.Login(ctx, creds); err != nil {
		logger.WithError(err).Error("Failed to log in")
		return
	}
	rnd := rand.New(rand.NewSource(seed))

	t := time.NewTicker(interval)
	defer t.Stop()
	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := tick(ctx, c, rnd, n, checkoutEvery, maxQty, logger); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
				if lerr := c.Login(ctx, creds); lerr != nil {
					logger.WithError(lerr).Error("Re-login failed")
				}
				continue
			}
			logger.WithError(err).Warn("Simulation step failed")
		}
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			return n
		}
	}
	return fallback
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	tenants, err := parseTenants(os.Getenv("SIM_TENANTS"))
	if err != nil {
		log.WithError(err).Fatal("Set SIM_TENANTS to a comma-separated list of email:password")
	}
	interval := time.Duration(envInt("SIM_TICK_SECONDS", 2)) * time.Second
	checkoutEvery := envInt("SIM_CHECKOUT_EVERY", 5)
	maxQty := envInt("SIM_MAX_QUANTITY", 3)

	runID := uuid.NewString()
	log.WithFields(log.Fields{
		"run_id":   runID,
		"tenants":  len(tenants),
		"api_url":  apiURL,
		"interval": interval,
	}).Info("Starting cart simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i, creds := range tenants {
		wg.Add(1)
		go func(i int, creds Credentials) {
			defer wg.Done()
			simulateTenant(ctx, NewClient(apiURL, runID), creds, interval, checkoutEvery, maxQty, time.Now().UnixNano()+int64(i))
		}(i, creds)
	}
	wg.Wait()
	log.Info("Simulation stopped")
}
