package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/middleware"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	dateLayout      = "2006-01-02"
	maxBodyBytes    = 1 << 20
	defaultPageSize = 20
	maxPageSize     = 100
)

var validate = validator.New()

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Count   *int              `json:"count,omitempty"`
	Total   *int              `json:"total,omitempty"`
	Page    *int              `json:"page,omitempty"`
	Pages   *int              `json:"pages,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: msg, Data: data})
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: items, Count: &n})
}

// writePage slices items according to ?page= and ?limit=.
func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	total := len(items)
	pages := int(math.Ceil(float64(total) / float64(limit)))
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	out := items[start:end]
	if out == nil {
		out = []T{}
	}
	count := len(out)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: out, Count: &count, Total: &total, Page: &page, Pages: &pages})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

// writeError maps a domain error to its HTTP status. Internal errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "Validation failed", Errors: fields})
		return
	}

	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error("Request failed")
	}
	writeFailure(w, status, apperr.Message(err))
}

// decode reads a JSON body into dst and runs struct validation.
func decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperr.Validation("failed to read request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Validation("invalid JSON: %v", err)
	}
	return validate.Struct(dst)
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

func parseIDs(raw []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, apperr.Validation("invalid id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func optionalID(raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperr.Validation("invalid id %q", raw)
	}
	return &id, nil
}

// caller returns the authenticated principal.
func caller(r *http.Request) (primitive.ObjectID, *models.Claims, error) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return primitive.NilObjectID, nil, apperr.ErrUnauthorized
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, nil, fmt.Errorf("%w: malformed subject", apperr.ErrUnauthorized)
	}
	return id, claims, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryBool(r *http.Request, key string) *bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parsePeriod turns an inclusive [start, end] date pair into the half-open
// window used for billing.
func parsePeriod(start, end string) (models.Period, error) {
	from, err := parseDate(start)
	if err != nil {
		return models.Period{}, err
	}
	to, err := parseDate(end)
	if err != nil {
		return models.Period{}, err
	}
	if to.Before(from) {
		return models.Period{}, apperr.Validation("end date cannot be before start date")
	}
	return models.Period{StartDate: from, EndDate: to.AddDate(0, 0, 1)}, nil
}
