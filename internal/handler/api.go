package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/examgen/internal/model"
)

// generateFailed is the error text of every failed breakdown response.
const generateFailed = "Failed to generate subjects"

const maxRequestBody = 64 << 10

var validate = validator.New()

var errBadRequest = errors.New("bad request")

// handleGenerateAPI answers POST /api/generate-exam with an ExamData body,
// or {error, details} and a non-2xx status.
func (h *Handler) handleGenerateAPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeGenerateRequest(w, r)
	if err != nil {
		h.respondGenerateError(w, r, http.StatusBadRequest, err)
		return
	}

	data, err := h.gen.Generate(ctx, req.ExamName)
	if err != nil {
		h.respondGenerateError(w, r, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, data)
}

func decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (model.GenerateRequest, error) {
	var req model.GenerateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: decode body: %w", errBadRequest, err)
	}
	req.ExamName = strings.TrimSpace(req.ExamName)
	if err := validate.Struct(req); err != nil {
		return req, fmt.Errorf("%w: examName is required", errBadRequest)
	}
	return req, nil
}

func (h *Handler) respondGenerateError(w http.ResponseWriter, r *http.Request, status int, err error) {
	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	slog.Log(r.Context(), level, "generate exam breakdown failed",
		"status", status,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	respondJSON(w, status, model.ErrorResponse{
		Error:   generateFailed,
		Details: err.Error(),
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
