package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examgen/internal/form"
	"github.com/pavelanni/examgen/internal/handler/views"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/workspace"
)

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	id, ctrl := h.workspaces.Create()
	slog.Debug("workspace created", "workspace", id)
	render(w, r, http.StatusOK, views.IndexPage(id, ctrl.Snapshot()))
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ctrl.SetExamName(r.FormValue("examName"))
	if err := ctrl.Submit(r.Context()); err != nil && !errors.Is(err, form.ErrEmptyExamName) {
		slog.Warn("generate exam breakdown failed",
			"workspace", id,
			"error", err,
		)
	}
	h.renderWorkspace(w, r, id, ctrl, nil)
}

func (h *Handler) handleOpenFormat(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.workspace(w, r)
	if !ok {
		return
	}
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid subject index", http.StatusBadRequest)
		return
	}
	ctrl.OpenFormat(i)
	h.renderWorkspace(w, r, id, ctrl, nil)
}

func (h *Handler) handleAddSection(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ctrl.AddSection()
	h.renderWorkspace(w, r, id, ctrl, nil)
}

func (h *Handler) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.workspace(w, r)
	if !ok {
		return
	}
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid section index", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	s := model.Section{
		NumQuestions:                 formInt(r, "numQuestions"),
		NumOfMaxAttemptableQuestions: formInt(r, "numOfMaxAttemptableQuestions"),
		MarksPerQuestion:             formInt(r, "marksPerQuestion"),
		NegativeMarking:              formFloat(r, "negativeMarking"),
		Type:                         model.SectionType(r.FormValue("type")),
	}
	// Invalid sections are kept in the state and shown as a banner.
	if err := ctrl.UpdateSection(i, s); err != nil {
		slog.Debug("section update rejected", "workspace", id, "error", err)
	}
	h.renderWorkspace(w, r, id, ctrl, nil)
}

func (h *Handler) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.workspace(w, r)
	if !ok {
		return
	}
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid section index", http.StatusBadRequest)
		return
	}
	if err := ctrl.RemoveSection(i); err != nil {
		slog.Debug("section removal rejected", "workspace", id, "error", err)
	}
	h.renderWorkspace(w, r, id, ctrl, nil)
}

func (h *Handler) handleSaveFormat(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ctrl.SaveFormat()
	h.renderWorkspace(w, r, id, ctrl, nil)
}

func (h *Handler) handleCancelFormat(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ctrl.CancelFormat()
	h.renderWorkspace(w, r, id, ctrl, nil)
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.workspace(w, r)
	if !ok {
		return
	}
	// ErrNoFormat is kept in the state and shown as a banner.
	details, _ := ctrl.CreateExam(r.Context())
	h.renderWorkspace(w, r, id, ctrl, details)
}

// workspace resolves the {ws} URL parameter. For an unknown or expired ID
// it writes a 404 and, for htmx requests, asks the client to reload.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (string, *form.Controller, bool) {
	id := chi.URLParam(r, "ws")
	ctrl, err := h.workspaces.Get(id)
	if err != nil {
		if !errors.Is(err, workspace.ErrNotFound) {
			slog.Error("workspace lookup failed", "workspace", id, "error", err)
		}
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Refresh", "true")
		}
		render(w, r, http.StatusNotFound, views.Expired())
		return "", nil, false
	}
	return id, ctrl, true
}

func (h *Handler) renderWorkspace(w http.ResponseWriter, r *http.Request, id string, ctrl *form.Controller, created *model.ExamDetails) {
	render(w, r, http.StatusOK, views.Workspace(id, ctrl.Snapshot(), created))
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("failed to render view", "error", err)
	}
}

// formInt reads an integer form field; anything unparsable counts as 0.
func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return 0
	}
	return n
}

func formFloat(r *http.Request, key string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue(key)), 64)
	if err != nil {
		return 0
	}
	return f
}
