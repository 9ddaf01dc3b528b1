package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

// maxExamNameRunes bounds how much user text reaches the model.
const maxExamNameRunes = 200

//go:embed templates/*.txt
var templateFS embed.FS

var (
	loadOnce      sync.Once
	loadErr       error
	breakdownTmpl *template.Template
)

// BreakdownData holds template data for the breakdown prompt.
type BreakdownData struct {
	ExamName string
}

func load() error {
	loadOnce.Do(func() {
		content, err := templateFS.ReadFile("templates/breakdown.txt")
		if err != nil {
			loadErr = fmt.Errorf("read prompt template: %w", err)
			return
		}
		breakdownTmpl, err = template.New("breakdown").Parse(string(content))
		if err != nil {
			loadErr = fmt.Errorf("parse prompt template: %w", err)
		}
	})
	return loadErr
}

// BuildBreakdown renders the prompt asking the model for an exam breakdown.
func BuildBreakdown(examName string) (string, error) {
	if err := load(); err != nil {
		return "", err
	}

	name := SanitizeExamName(examName)
	if name == "" {
		return "", errors.New("exam name is empty")
	}

	var buf bytes.Buffer
	if err := breakdownTmpl.Execute(&buf, BreakdownData{ExamName: name}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SanitizeExamName trims the name, drops characters that would break the
// quoted title in the prompt and caps its length.
func SanitizeExamName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '"', '`', '\n', '\r':
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")

	if utf8.RuneCountInString(name) > maxExamNameRunes {
		name = string([]rune(name)[:maxExamNameRunes])
	}
	return name
}
