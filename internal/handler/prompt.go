package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vibecoders/vibecoders/internal/auth"
	"github.com/vibecoders/vibecoders/internal/model"
	"github.com/vibecoders/vibecoders/internal/service"
)

// PromptHandler serves the prompt CRUD endpoints. All routes require auth.
type PromptHandler struct {
	prompts *service.PromptService
	logger  *slog.Logger
}

func NewPromptHandler(prompts *service.PromptService, logger *slog.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, logger: logger}
}

type promptRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (p promptRequest) input() service.PromptInput {
	return service.PromptInput{Title: p.Title, Content: p.Content, Tags: p.Tags}
}

type PromptResponse struct {
	Prompt *model.Prompt `json:"prompt"`
}

type PromptListResponse struct {
	Prompts []model.Prompt `json:"prompts"`
}

// HandleList: GET /api/prompts?limit=20&offset=0
func (h *PromptHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	// Bad numbers fall back to the service defaults.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	prompts, err := h.prompts.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, PromptListResponse{Prompts: prompts})
}

// HandleCreate: POST /api/prompts → 201
func (h *PromptHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req promptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	prompt, err := h.prompts.Create(r.Context(), userID, req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, PromptResponse{Prompt: prompt})
}

// HandleGet: GET /api/prompts/{id}
func (h *PromptHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	prompt, err := h.prompts.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, PromptResponse{Prompt: prompt})
}

// HandleUpdate: PUT /api/prompts/{id}
func (h *PromptHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req promptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	prompt, err := h.prompts.Update(r.Context(), userID, chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, PromptResponse{Prompt: prompt})
}

// HandleDelete: DELETE /api/prompts/{id} → 204
func (h *PromptHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.prompts.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
