package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examgen/internal/config"
	"github.com/pavelanni/examgen/internal/form"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/llm"
	"github.com/pavelanni/examgen/internal/model"
	"github.com/pavelanni/examgen/internal/workspace"
)

const breakdownJSON = `{"examName":"GATE CSE","totalSubjects":2,"subjects":[` +
	`{"name":"Algorithms","description":"Design and analysis","questionTypes":[{"type":"Multiple Choice","sampleQuestions":["Q1"]}]},` +
	`{"name":"Databases","description":"Relational model","questionTypes":[{"type":"Numerical","sampleQuestions":["Q2"]}]}]}`

var wsPathRe = regexp.MustCompile(`/w/([0-9a-f-]{36})/generate`)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeCompleter struct {
	mu    sync.Mutex
	out   string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.out, f.err
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGenerator struct {
	mu    sync.Mutex
	data  *model.ExamData
	err   error
	names []string
}

func (f *fakeGenerator) Generate(_ context.Context, examName string) (*model.ExamData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, examName)
	return f.data, f.err
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.names)
}

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		Addr:          ":0",
		Lang:          "en",
		WorkspaceTTL:  time.Hour,
		MaxWorkspaces: 100,
	}
}

func newTestRouter(gen form.Generator, cfg config.ServerConfig) http.Handler {
	reg := workspace.New(gen, cfg.WorkspaceTTL, cfg.MaxWorkspaces)
	return NewRouter(New(gen, reg, cfg))
}

func sampleData() *model.ExamData {
	return &model.ExamData{
		ExamName:      "GATE CSE",
		TotalSubjects: 1,
		Subjects: []model.Subject{{
			Name:          "Algorithms",
			Description:   "Design <and> analysis",
			QuestionTypes: []model.QuestionType{{Type: "MCQ", SampleQuestions: []string{"What is O(n)?"}}},
		}},
	}
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGenerateAPI(t *testing.T) {
	tests := []struct {
		name       string
		completer  *fakeCompleter
		body       string
		wantStatus int
		wantCalls  int
		wantDetail string
	}{
		{
			name:       "fenced response",
			completer:  &fakeCompleter{out: "Here you go:\n```json\n" + breakdownJSON + "\n```\nGood luck!"},
			body:       `{"examName":"GATE CSE"}`,
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "bare response",
			completer:  &fakeCompleter{out: breakdownJSON},
			body:       `{"examName":"GATE CSE"}`,
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "unparsable response",
			completer:  &fakeCompleter{out: "I cannot help with that."},
			body:       `{"examName":"GATE CSE"}`,
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
			wantDetail: llm.ErrParse.Error(),
		},
		{
			name:       "provider failure",
			completer:  &fakeCompleter{err: errors.New("quota exceeded")},
			body:       `{"examName":"GATE CSE"}`,
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
			wantDetail: "quota exceeded",
		},
		{
			name:       "malformed body",
			completer:  &fakeCompleter{out: breakdownJSON},
			body:       `{"examName":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "blank exam name",
			completer:  &fakeCompleter{out: breakdownJSON},
			body:       `{"examName":"   "}`,
			wantStatus: http.StatusBadRequest,
			wantDetail: "examName is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llm.NewWithCompleter(tt.completer, config.ProviderGemini, "test-model")
			rec := postJSON(t, newTestRouter(client, testConfig()), "/api/generate-exam", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantCalls, tt.completer.Calls())

			if tt.wantStatus == http.StatusOK {
				var data model.ExamData
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
				assert.Equal(t, "GATE CSE", data.ExamName)
				assert.Equal(t, 2, data.TotalSubjects)
				require.Len(t, data.Subjects, 2)
				assert.Equal(t, "Algorithms", data.Subjects[0].Name)
				return
			}

			var resp model.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "Failed to generate subjects", resp.Error)
			assert.NotEmpty(t, resp.Details)
			if tt.wantDetail != "" {
				assert.Contains(t, resp.Details, tt.wantDetail)
			}
		})
	}
}

func TestGenerateAPIMissingCredential(t *testing.T) {
	client, err := llm.New(context.Background(), config.LLMConfig{
		Provider: config.ProviderGemini,
		Model:    "gemini-2.0-flash",
	})
	require.NoError(t, err)
	require.False(t, client.Configured())

	rec := postJSON(t, newTestRouter(client, testConfig()), "/api/generate-exam", `{"examName":"GRE"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to generate subjects", resp.Error)
	assert.Contains(t, resp.Details, llm.ErrMissingCredential.Error())
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeGenerator{}, testConfig()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

// page drives the htmx UI of one workspace through the router.
type page struct {
	t      *testing.T
	h      http.Handler
	prefix string
	token  string
	wsID   string
}

func openPage(t *testing.T, h http.Handler, prefix string) *page {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, prefix+"/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			token = c.Value
		}
	}
	require.NotEmpty(t, token, "csrf cookie")

	m := wsPathRe.FindStringSubmatch(rec.Body.String())
	require.NotNil(t, m, "workspace path in page")
	return &page{t: t, h: h, prefix: prefix, token: token, wsID: m[1]}
}

func (p *page) post(path string, form url.Values) *httptest.ResponseRecorder {
	p.t.Helper()
	req := httptest.NewRequest(http.MethodPost, p.prefix+"/w/"+p.wsID+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.Header.Set(csrfHeaderName, p.token)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: p.token})
	rec := httptest.NewRecorder()
	p.h.ServeHTTP(rec, req)
	return rec
}

func TestIndexPage(t *testing.T) {
	h := newTestRouter(&fakeGenerator{}, testConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "<title>Exam Subject Generator</title>")
	assert.Contains(t, body, `name="examName"`)
	assert.Contains(t, body, "Generate Exam Breakdown")
	assert.NotContains(t, body, "Create Exam")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Contains(t, body, cookies[0].Value, "token embedded in hx-headers")
}

func TestIndexPageRussian(t *testing.T) {
	h := newTestRouter(&fakeGenerator{}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), `<html lang="ru">`)
	assert.Contains(t, rec.Body.String(), "Генератор предметов экзамена")
}

func TestEachPageLoadStartsFresh(t *testing.T) {
	gen := &fakeGenerator{data: sampleData()}
	h := newTestRouter(gen, testConfig())

	first := openPage(t, h, "")
	rec := first.post("/generate", url.Values{"examName": {"GATE CSE"}})
	require.Contains(t, rec.Body.String(), "GATE CSE - Exam Breakdown")

	second := openPage(t, h, "")
	assert.NotEqual(t, first.wsID, second.wsID)
	rec = second.post("/format/cancel", nil)
	assert.NotContains(t, rec.Body.String(), "GATE CSE - Exam Breakdown")
}

func TestCSRF(t *testing.T) {
	gen := &fakeGenerator{data: sampleData()}
	h := newTestRouter(gen, testConfig())
	p := openPage(t, h, "")
	path := "/w/" + p.wsID + "/generate"

	t.Run("missing cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("examName=GRE"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set(csrfHeaderName, p.token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("examName=GRE"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set(csrfHeaderName, "forged")
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: p.token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("form field", func(t *testing.T) {
		form := url.Values{"examName": {"GRE"}, csrfFormField: {p.token}}
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: p.token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	assert.Equal(t, []string{"GRE"}, gen.names)
}

func TestCSRFCookieReused(t *testing.T) {
	h := newTestRouter(&fakeGenerator{}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Result().Cookies())
	assert.Contains(t, rec.Body.String(), "existing-token")
}

func TestGenerateUI(t *testing.T) {
	t.Run("blank name is rejected locally", func(t *testing.T) {
		gen := &fakeGenerator{data: sampleData()}
		p := openPage(t, newTestRouter(gen, testConfig()), "")

		rec := p.post("/generate", url.Values{"examName": {"   "}})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Please enter an exam name")
		assert.Equal(t, 0, gen.Calls())
	})

	t.Run("success renders breakdown", func(t *testing.T) {
		gen := &fakeGenerator{data: sampleData()}
		p := openPage(t, newTestRouter(gen, testConfig()), "")

		rec := p.post("/generate", url.Values{"examName": {"GATE CSE"}})
		body := rec.Body.String()

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, body, `id="workspace"`)
		assert.Contains(t, body, "GATE CSE - Exam Breakdown")
		assert.Contains(t, body, "Total Subjects: 1")
		assert.Contains(t, body, "Design &lt;and&gt; analysis")
		assert.Contains(t, body, "/subjects/0/format")
		assert.Contains(t, body, "Create Exam")
		assert.Equal(t, []string{"GATE CSE"}, gen.names)
	})

	t.Run("failure keeps previous result", func(t *testing.T) {
		gen := &fakeGenerator{data: sampleData()}
		p := openPage(t, newTestRouter(gen, testConfig()), "")
		p.post("/generate", url.Values{"examName": {"GATE CSE"}})

		gen.mu.Lock()
		gen.data, gen.err = nil, errors.New("boom")
		gen.mu.Unlock()
		rec := p.post("/generate", url.Values{"examName": {"GRE"}})
		body := rec.Body.String()

		assert.Contains(t, body, "Failed to generate subjects")
		assert.Contains(t, body, "GATE CSE - Exam Breakdown")
		assert.Contains(t, body, `value="GRE"`)
	})
}

func TestFormatFlow(t *testing.T) {
	gen := &fakeGenerator{data: sampleData()}
	p := openPage(t, newTestRouter(gen, testConfig()), "")
	p.post("/generate", url.Values{"examName": {"GATE CSE"}})

	rec := p.post("/exam", nil)
	assert.Contains(t, rec.Body.String(), "Please define an exam format first.")

	rec = p.post("/subjects/0/format", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Define Exam Format")

	for range 3 {
		rec = p.post("/format/sections", nil)
	}
	assert.Contains(t, rec.Body.String(), "Section 3")

	rec = p.post("/format/sections/0", url.Values{
		"numQuestions":                 {"10"},
		"numOfMaxAttemptableQuestions": {"10"},
		"marksPerQuestion":             {"2"},
		"negativeMarking":              {"0.5"},
		"type":                         {"MCQ"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="0.5"`)

	rec = p.post("/format/sections/1", url.Values{
		"numQuestions":     {"5"},
		"marksPerQuestion": {"4"},
		"negativeMarking":  {"abc"},
		"type":             {"SAQ"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = p.post("/format/sections/2/delete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Section 3")

	rec = p.post("/format/save", nil)
	body := rec.Body.String()
	assert.NotContains(t, body, "Define Exam Format")
	assert.Contains(t, body, "2 sections defined")

	rec = p.post("/exam", nil)
	assert.Contains(t, rec.Body.String(), "Exam created: GATE CSE, full marks 40, 120 minutes.")
}

func TestFormatErrors(t *testing.T) {
	p := openPage(t, newTestRouter(&fakeGenerator{}, testConfig()), "")
	p.post("/format/sections", nil)

	banners := []struct {
		name string
		path string
		form url.Values
	}{
		{"unknown type", "/format/sections/0", url.Values{"type": {"Essay"}}},
		{"index out of range", "/format/sections/5", url.Values{"type": {"MCQ"}}},
		{"delete out of range", "/format/sections/9/delete", nil},
	}
	for _, tt := range banners {
		t.Run(tt.name, func(t *testing.T) {
			rec := p.post(tt.path, tt.form)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `<p class="error" role="alert">Invalid section value.</p>`)
		})
	}

	rec := p.post("/format/sections/0", url.Values{"type": {"MCQ"}})
	assert.NotContains(t, rec.Body.String(), "Invalid section value.")

	malformed := []struct {
		name string
		path string
	}{
		{"non-numeric index", "/format/sections/x"},
		{"non-numeric delete index", "/format/sections/x/delete"},
		{"bad subject index", "/subjects/x/format"},
	}
	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			rec := p.post(tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCancelKeepsEdits(t *testing.T) {
	p := openPage(t, newTestRouter(&fakeGenerator{}, testConfig()), "")
	p.post("/subjects/0/format", nil)
	p.post("/format/sections", nil)

	rec := p.post("/format/cancel", nil)
	assert.NotContains(t, rec.Body.String(), "Define Exam Format")

	rec = p.post("/exam", nil)
	assert.Contains(t, rec.Body.String(), "full marks 0")
}

func TestExpiredWorkspace(t *testing.T) {
	h := newTestRouter(&fakeGenerator{}, testConfig())
	p := openPage(t, h, "")
	p.wsID = "00000000-0000-4000-8000-000000000000"

	rec := p.post("/generate", url.Values{"examName": {"GRE"}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("HX-Refresh"))
	assert.Contains(t, rec.Body.String(), "This page has expired")
}

func TestBasePath(t *testing.T) {
	cfg := testConfig()
	cfg.BasePath = "/exams"
	client := llm.NewWithCompleter(&fakeCompleter{out: breakdownJSON}, config.ProviderGemini, "test-model")
	h := newTestRouter(client, cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exams", nil))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/exams/", rec.Header().Get("Location"))

	p := openPage(t, h, "/exams")
	rec = p.post("/generate", url.Values{"examName": {"GATE CSE"}})
	assert.Contains(t, rec.Body.String(), `hx-post="/exams/w/`+p.wsID+`/subjects/0/format"`)

	rec = postJSON(t, h, "/exams/api/generate-exam", `{"examName":"GATE CSE"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h, "/api/generate-exam", `{"examName":"GATE CSE"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
}

func (g *blockingGenerator) Generate(_ context.Context, examName string) (*model.ExamData, error) {
	close(g.started)
	<-g.release
	return &model.ExamData{ExamName: examName}, nil
}

func TestGenerateWhileBusy(t *testing.T) {
	gen := &blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	p := openPage(t, newTestRouter(gen, testConfig()), "")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- p.post("/generate", url.Values{"examName": {"GRE"}}) }()
	<-gen.started

	rec := p.post("/generate", url.Values{"examName": {"GRE"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A breakdown is already being generated.")
	assert.Contains(t, rec.Body.String(), " disabled")

	close(gen.release)
	rec = <-done
	assert.Contains(t, rec.Body.String(), "GRE - Exam Breakdown")
	assert.NotContains(t, rec.Body.String(), "A breakdown is already being generated.")
}
