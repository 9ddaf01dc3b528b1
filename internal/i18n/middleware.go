package i18n

import (
	"context"
	"net/http"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

type langCtxKey struct{}

// LangFromContext returns the language chosen for the request.
func LangFromContext(ctx context.Context) string {
	if l, ok := ctx.Value(langCtxKey{}).(string); ok {
		return l
	}
	return defaultLang
}

// Middleware picks a language from the Accept-Language header, falling back
// to the default passed to Init, and stores its localizer in the request context.
func Middleware() func(http.Handler) http.Handler {
	var localizers sync.Map
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := Negotiate(r.Header.Get("Accept-Language"))
			loc, ok := localizers.Load(lang)
			if !ok {
				loc, _ = localizers.LoadOrStore(lang, NewLocalizer(lang))
			}
			ctx := WithLocalizer(r.Context(), loc.(*i18n.Localizer))
			ctx = context.WithValue(ctx, langCtxKey{}, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
