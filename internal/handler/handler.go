package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pavelanni/examgen/internal/config"
	"github.com/pavelanni/examgen/internal/form"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/workspace"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	gen        form.Generator
	workspaces *workspace.Registry
	config     config.ServerConfig
}

// New creates a new Handler. gen serves the JSON endpoint; workspaces hold
// the page state and normally wrap the same generator.
func New(gen form.Generator, ws *workspace.Registry, cfg config.ServerConfig) *Handler {
	return &Handler{gen: gen, workspaces: ws, config: cfg}
}

// NewRouter builds the full router, mounted under the configured base path.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware())

	basePath := h.config.BasePath
	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}
	return r
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Post("/api/generate-exam", h.handleGenerateAPI)

	r.With(h.csrfMiddleware).Get("/", h.handleIndex)
	r.Route("/w/{ws}", func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Post("/generate", h.handleGenerate)
		r.Post("/subjects/{index}/format", h.handleOpenFormat)
		r.Post("/format/sections", h.handleAddSection)
		r.Post("/format/sections/{index}", h.handleUpdateSection)
		r.Post("/format/sections/{index}/delete", h.handleRemoveSection)
		r.Post("/format/save", h.handleSaveFormat)
		r.Post("/format/cancel", h.handleCancelFormat)
		r.Post("/exam", h.handleCreateExam)
	})
}

// BasePathMiddleware stores the base path in the request context for views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("ok\n")); err != nil {
		slog.Error("write health response", "error", err)
	}
}
