package handlers

import (
	"log/slog"
	"net/http"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/services"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
	"github.com/go-chi/chi/v5"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
	logger          *slog.Logger
}

func NewCategoryHandler(categoryService *services.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, logger: logger}
}

// CategoryRouter registers category routes; every route needs a session.
func CategoryRouter(r chi.Router, categoryService *services.CategoryService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewCategoryHandler(categoryService, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.ListCategories)
	r.Post("/", handler.CreateCategory)
	r.Post("/create-default-categories", handler.CreateDefaultCategories)
	r.Put("/{categoryID}", handler.UpdateCategory)
	r.Delete("/{categoryID}", handler.DeleteCategory)
}

type CategoryRequest struct {
	Name  string             `json:"name"`
	Type  types.CategoryType `json:"type"`
	Icon  string             `json:"icon"`
	Color string             `json:"color"`
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	categories, err := h.categoryService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(categories))
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	category, err := h.categoryService.Create(r.Context(), userID, services.CategoryInput{
		Name:  req.Name,
		Type:  req.Type,
		Icon:  req.Icon,
		Color: req.Color,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse(category))
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	category, err := h.categoryService.Update(r.Context(), userID, chi.URLParam(r, "categoryID"), services.CategoryPatch{
		Name:  req.Name,
		Icon:  req.Icon,
		Color: req.Color,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse(category))
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.categoryService.Delete(r.Context(), userID, chi.URLParam(r, "categoryID")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse(struct{}{}))
}

func (h *CategoryHandler) CreateDefaultCategories(w http.ResponseWriter, r *http.Request) {
	created, err := h.categoryService.SeedDefaults(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse(map[string]int{"created": created}))
}
