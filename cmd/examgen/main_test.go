package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pavelanni/examgen/internal/model"
)

func sampleBreakdown() *model.ExamData {
	return &model.ExamData{
		ExamName:      "GRE",
		TotalSubjects: 1,
		Subjects: []model.Subject{{
			Name:          "Quant",
			Description:   "Arithmetic and algebra",
			QuestionTypes: []model.QuestionType{{Type: "MCQ", SampleQuestions: []string{"2+2?"}}},
		}},
	}
}

func TestWriteBreakdown(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeBreakdown(&buf, sampleBreakdown(), "json"))
		assert.Contains(t, buf.String(), `  "examName": "GRE"`)

		var got model.ExamData
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, *sampleBreakdown(), got)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeBreakdown(&buf, sampleBreakdown(), "yaml"))
		assert.Contains(t, buf.String(), "examName: GRE")
		assert.Contains(t, buf.String(), "questionTypes:")

		var got model.ExamData
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, *sampleBreakdown(), got)
	})
}

func TestRootCommands(t *testing.T) {
	root := rootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "generate", "lambda"})
	assert.NotNil(t, root.Flags().Lookup("addr"), "serve flags on root")
	assert.NotNil(t, root.RunE)
}

func TestGenerateThroughServer(t *testing.T) {
	var gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotName = req.ExamName
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleBreakdown())
	}))
	defer srv.Close()

	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"generate", "GRE", "General", "--server", srv.URL, "--format", "yaml"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "GRE General", gotName)
	assert.Contains(t, out.String(), "examName: GRE")
}

func TestGenerateRejectsUnknownFormat(t *testing.T) {
	root := rootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"generate", "GRE", "--server", "http://127.0.0.1:1", "--format", "xml"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "xml"`)
}
