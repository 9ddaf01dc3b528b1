package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examgen/internal/model"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, GeneratePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.ExamData{
			ExamName:      req.ExamName,
			TotalSubjects: 1,
			Subjects:      []model.Subject{{Name: "Quant"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", nil)
	data, err := c.Generate(context.Background(), "CAT")
	require.NoError(t, err)
	assert.Equal(t, "CAT", data.ExamName)
	assert.Equal(t, "Quant", data.Subjects[0].Name)
}

func TestGenerateErrorResponse(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			"error shape",
			http.StatusInternalServerError,
			`{"error":"Failed to generate subjects","details":"LLM API key is not configured"}`,
			"failed to generate subjects: status 500: Failed to generate subjects: LLM API key is not configured",
		},
		{
			"no details",
			http.StatusBadRequest,
			`{"error":"Failed to generate subjects"}`,
			"failed to generate subjects: status 400: Failed to generate subjects",
		},
		{
			"not json",
			http.StatusBadGateway,
			`<html>bad gateway</html>`,
			"failed to generate subjects: status 502",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, srv.Client()).Generate(context.Background(), "GRE")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGenerationFailed)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, nil).Generate(context.Background(), "GRE")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}
