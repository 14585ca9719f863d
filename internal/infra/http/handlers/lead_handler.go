package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type LeadHandler struct {
	lifecycle *usecase.LeadLifecycleUseCase
	notes     *usecase.AddNoteUseCase
	logger    *zap.Logger
}

func NewLeadHandler(lifecycle *usecase.LeadLifecycleUseCase, notes *usecase.AddNoteUseCase, logger *zap.Logger) *LeadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadHandler{lifecycle: lifecycle, notes: notes, logger: logger}
}

type AddNoteRequest struct {
	Content string `json:"content"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	spec := usecase.FilterSpec{
		Status:   q.Get("status"),
		Source:   q.Get("source"),
		Priority: q.Get("priority"),
		FollowUp: q.Get("followUp"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sortBy"),
	}

	leads, err := h.lifecycle.List(r.Context(), spec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	count := len(leads)
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Count: &count, Data: leads})
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateLeadInput
	if err := decodeJSON(r, &input); err != nil {
		writeInvalidJSON(w, err)
		return
	}

	lead, err := h.lifecycle.Create(r.Context(), input, actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, lead)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.lifecycle.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, lead)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateLeadInput
	if err := decodeJSON(r, &input); err != nil {
		writeInvalidJSON(w, err)
		return
	}

	lead, err := h.lifecycle.Update(r.Context(), chi.URLParam(r, "id"), input, actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, lead)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Success: true, Message: "Lead deleted successfully"})
}

func (h *LeadHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req AddNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w, err)
		return
	}

	lead, err := h.notes.Execute(r.Context(), chi.URLParam(r, "id"), req.Content, actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, lead)
}

func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w, err)
		return
	}

	lead, err := h.lifecycle.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, lead)
}

func (h *LeadHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !usecase.IsValidationError(err) && !usecase.IsNotFoundError(err) {
		h.logger.Error("lead request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, err)
}

// actor is always set behind middleware.RequireUser.
func actor(r *http.Request) entity.UserRef {
	u, _ := middleware.UserFromContext(r.Context())
	return u
}
