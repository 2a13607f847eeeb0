package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/services"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
	"github.com/go-chi/chi/v5"
)

// AuthHandler exposes registration, login, MFA and password reset.
type AuthHandler struct {
	authService *services.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, logger *slog.Logger) {
	handler := NewAuthHandler(authService, logger)
	requireAuth := RequireAuth(authService)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/verify-mfa", handler.VerifyMFA)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/reset-password/{token}", handler.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/enable-mfa", handler.EnableMFA)
		r.Post("/enable-mfa", handler.EnableMFA)
		r.Post("/verify-setup-mfa", handler.VerifySetupMFA)
		r.Post("/disable-mfa", handler.DisableMFA)
		r.Get("/user", handler.GetUser)
	})
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MFACodeRequest accepts the code as "token" or "code".
type MFACodeRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
	Code  string `json:"code"`
}

func (r MFACodeRequest) code() string {
	if r.Token != "" {
		return r.Token
	}
	return r.Code
}

type PasswordRequest struct {
	Password string `json:"password"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type LoginResponse struct {
	Token       string      `json:"token,omitempty"`
	User        *types.User `json:"user,omitempty"`
	MFARequired bool        `json:"mfaRequired,omitempty"`
}

type EnableMFAResponse struct {
	QRCode string `json:"qrCode"`
	Secret string `json:"secret"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	_, err := h.authService.Register(r.Context(), services.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "user registered"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	if result.MFARequired {
		writeJSON(w, http.StatusOK, LoginResponse{MFARequired: true})
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: result.Token, User: &result.User})
}

func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req MFACodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.authService.VerifyMFA(r.Context(), req.Email, req.code())
	if err != nil {
		h.writeLoginError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: result.Token, User: &result.User})
}

func (h *AuthHandler) EnableMFA(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	setup, err := h.authService.EnableMFA(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, EnableMFAResponse{QRCode: setup.QRCode, Secret: setup.Secret})
}

func (h *AuthHandler) VerifySetupMFA(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MFACodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.authService.VerifySetupMFA(r.Context(), userID, req.code()); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "MFA enabled"})
}

func (h *AuthHandler) DisableMFA(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.authService.DisableMFA(r.Context(), userID, req.Password); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "MFA disabled"})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrValidation) {
			writeServiceError(w, h.logger, err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to send reset email")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "check your email to reset your password"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "password reset, you can now log in"})
}

// GetUser returns the authenticated user's public projection.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.authService.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// writeLoginError reports an unknown user as 401 rather than 404.
func (h *AuthHandler) writeLoginError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeServiceError(w, h.logger, err)
}
