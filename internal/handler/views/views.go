// Package views renders the exam builder page and its htmx fragments.
package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/pavelanni/examgen/internal/form"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
)

// WorkspaceID is the DOM id of the swappable page body.
const WorkspaceID = "workspace"

// ErrorMessage maps a controller error to the single banner text the user sees.
func ErrorMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, form.ErrEmptyExamName):
		return appI18n.T(ctx, "ErrEnterExamName")
	case errors.Is(err, form.ErrNoFormat):
		return appI18n.T(ctx, "ErrDefineFormat")
	case errors.Is(err, form.ErrBusy):
		return appI18n.T(ctx, "ErrBusy")
	case errors.Is(err, form.ErrSectionIndex), errors.Is(err, form.ErrSectionType):
		return appI18n.T(ctx, "ErrInvalidSection")
	default:
		return appI18n.T(ctx, "ErrGenerateFailed")
	}
}

func createdMessage(ctx context.Context, created *model.ExamDetails) string {
	return appI18n.Td(ctx, "ExamCreated", map[string]any{
		"Name":    created.ExamName,
		"Marks":   created.FullMarks,
		"Minutes": created.Time,
	})
}

// csrfHeaders is the hx-headers value that echoes the CSRF token on every htmx request.
func csrfHeaders(ctx context.Context) string {
	return fmt.Sprintf(`{"X-CSRF-Token": %q}`, model.CSRFTokenFromContext(ctx))
}

func wsPath(ctx context.Context, wsID string) string {
	return model.BasePathFromContext(ctx) + "/w/" + wsID
}

func subjectFormatPath(base string, i int) string {
	return base + "/subjects/" + strconv.Itoa(i) + "/format"
}

func sectionPath(base string, i int) string {
	return base + "/format/sections/" + strconv.Itoa(i)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
