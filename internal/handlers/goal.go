package handlers

import (
	"log/slog"
	"net/http"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/services"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
	"github.com/go-chi/chi/v5"
)

type GoalHandler struct {
	goalService *services.GoalService
	logger      *slog.Logger
}

func NewGoalHandler(goalService *services.GoalService, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{goalService: goalService, logger: logger}
}

func GoalRouter(r chi.Router, goalService *services.GoalService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewGoalHandler(goalService, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.ListGoals)
	r.Post("/", handler.CreateGoal)
	r.Route("/{goalID}", func(r chi.Router) {
		r.Get("/", handler.GetGoal)
		r.Put("/", handler.UpdateGoal)
		r.Delete("/", handler.DeleteGoal)
		r.Put("/progress", handler.UpdateProgress)
	})
}

type GoalRequest struct {
	Amount        *float64 `json:"amount"`
	Duration      *int     `json:"duration"`
	Description   *string  `json:"description"`
	CurrentAmount *float64 `json:"currentAmount"`
}

// GoalResponse adds the derived progress figures to a goal.
type GoalResponse struct {
	types.Goal
	Progress      float64 `json:"progress"`
	MonthlyAmount float64 `json:"monthlyAmount"`
}

func newGoalResponse(goal types.Goal) GoalResponse {
	return GoalResponse{Goal: goal, Progress: goal.Progress(), MonthlyAmount: goal.MonthlyAmount()}
}

func (h *GoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	goals, err := h.goalService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	items := make([]GoalResponse, 0, len(goals))
	for _, goal := range goals {
		items = append(items, newGoalResponse(goal))
	}
	writeJSON(w, http.StatusOK, listResponse(items))
}

func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Amount == nil || req.Duration == nil {
		writeError(w, http.StatusBadRequest, "amount and duration are required")
		return
	}

	in := services.GoalInput{Amount: *req.Amount, Duration: *req.Duration}
	if req.Description != nil {
		in.Description = *req.Description
	}

	goal, err := h.goalService.Create(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse(newGoalResponse(goal)))
}

func (h *GoalHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	goal, err := h.goalService.Get(r.Context(), userID, chi.URLParam(r, "goalID"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse(newGoalResponse(goal)))
}

func (h *GoalHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	goal, err := h.goalService.Update(r.Context(), userID, chi.URLParam(r, "goalID"), services.GoalPatch{
		Amount:        req.Amount,
		Duration:      req.Duration,
		Description:   req.Description,
		CurrentAmount: req.CurrentAmount,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse(newGoalResponse(goal)))
}

func (h *GoalHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	goal, err := h.goalService.UpdateProgress(r.Context(), userID, chi.URLParam(r, "goalID"), req.CurrentAmount)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse(newGoalResponse(goal)))
}

func (h *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.goalService.Delete(r.Context(), userID, chi.URLParam(r, "goalID")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse(struct{}{}))
}
