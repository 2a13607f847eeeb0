package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/services"
)

const maxBodyBytes = 1 << 20

type contextKey string

const contextSubjectKey contextKey = "sub"

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// DataResponse is the envelope used by the resource endpoints.
type DataResponse struct {
	Success bool `json:"success"`
	Count   *int `json:"count,omitempty"`
	Data    any  `json:"data"`
}

func dataResponse(data any) DataResponse {
	return DataResponse{Success: true, Data: data}
}

func listResponse[T any](items []T) DataResponse {
	count := len(items)
	return DataResponse{Success: true, Count: &count, Data: items}
}

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token subject in the request context.
func RequireAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			subject, err := authenticator.Authenticate(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userIDFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok {
		return "", errors.New("missing subject")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("invalid subject")
	}
	return subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps service errors to a status. Anything unknown is
// logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrDuplicateCategory),
		errors.Is(err, services.ErrMFANotConfigured),
		errors.Is(err, services.ErrMFAAlreadyEnabled),
		errors.Is(err, services.ErrInvalidOrExpiredToken):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidMFACode),
		errors.Is(err, services.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrDefaultCategory):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrTooManyAttempts):
		status = http.StatusTooManyRequests
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
