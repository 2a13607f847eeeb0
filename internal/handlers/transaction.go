package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/services"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
	"github.com/go-chi/chi/v5"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
	logger             *slog.Logger
}

func NewTransactionHandler(transactionService *services.TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, logger: logger}
}

func TransactionRouter(r chi.Router, transactionService *services.TransactionService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewTransactionHandler(transactionService, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.ListTransactions)
	r.Post("/", handler.AddTransaction)
	r.Delete("/{transactionID}", handler.DeleteTransaction)
}

type TransactionRequest struct {
	Type        types.CategoryType `json:"type"`
	Category    string             `json:"category"`
	Amount      float64            `json:"amount"`
	Description string             `json:"description"`
	Date        *time.Time         `json:"date"`
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	transactions, err := h.transactionService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(transactions))
}

func (h *TransactionHandler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	in := services.TransactionInput{
		Type:        req.Type,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Date != nil {
		in.Date = req.Date.UTC()
	}

	tx, err := h.transactionService.Create(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse(tx))
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.transactionService.Delete(r.Context(), userID, chi.URLParam(r, "transactionID")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse(struct{}{}))
}
