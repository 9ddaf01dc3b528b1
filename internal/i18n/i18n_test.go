package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	require.NoError(t, Init(lang))
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	assert.Equal(t, "Exam Subject Generator", T(ctx, "AppTitle"))
	assert.Equal(t, "Generate Exam Breakdown", T(ctx, "Generate"))
	assert.Equal(t, "Please enter an exam name", T(ctx, "ErrEnterExamName"))
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	assert.Equal(t, "Генератор предметов экзамена", T(ctx, "AppTitle"))
	assert.Equal(t, "Отмена", T(ctx, "Cancel"))
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	assert.Equal(t, "1 section defined", Tp(ctx, "SectionsDefined", 1))
	assert.Equal(t, "3 sections defined", Tp(ctx, "SectionsDefined", 3))
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	assert.Equal(t, "Section 2", Td(ctx, "SectionN", map[string]any{"N": 2}))
	assert.Equal(t, "GRE - Exam Breakdown", Td(ctx, "BreakdownTitle", map[string]any{"Name": "GRE"}))
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")
	assert.Equal(t, "NonExistentKey", T(ctx, "NonExistentKey"))
}

func TestNegotiate(t *testing.T) {
	require.NoError(t, Init("en"))

	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"ru-RU,ru;q=0.9,en;q=0.8", "ru"},
		{"en-GB", "en"},
		{"de-DE", "en"},
		{"garbage;;;", "en"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Negotiate(tt.header), "header %q", tt.header)
	}
	assert.ElementsMatch(t, []string{"en", "ru"}, Supported())
}

func TestMiddleware(t *testing.T) {
	require.NoError(t, Init("en"))

	var gotTitle, gotLang string
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = T(r.Context(), "AppTitle")
		gotLang = LangFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "Генератор предметов экзамена", gotTitle)
	assert.Equal(t, "ru", gotLang)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "Exam Subject Generator", gotTitle)
	assert.Equal(t, "en", gotLang)
}
