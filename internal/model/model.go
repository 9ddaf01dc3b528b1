package model

import (
	"context"
)

// QuestionType is one kind of question a subject is examined with.
type QuestionType struct {
	Type            string   `json:"type" yaml:"type"`
	SampleQuestions []string `json:"sampleQuestions" yaml:"sampleQuestions"`
}

// Subject is one subject of a generated exam breakdown.
type Subject struct {
	Name          string         `json:"name" yaml:"name"`
	Description   string         `json:"description" yaml:"description"`
	QuestionTypes []QuestionType `json:"questionTypes" yaml:"questionTypes"`
	// Weightage is requested by older prompts only; models rarely return it.
	Weightage string `json:"weightage,omitempty" yaml:"weightage,omitempty"`
}

// ExamData is the breakdown produced for a named exam.
type ExamData struct {
	ExamName      string    `json:"examName" yaml:"examName"`
	TotalSubjects int       `json:"totalSubjects" yaml:"totalSubjects"`
	Subjects      []Subject `json:"subjects" yaml:"subjects"`
}

// SectionType is the kind of questions in a scoring section.
type SectionType string

const (
	// SectionUnset is the value of a freshly added section.
	SectionUnset     SectionType = ""
	SectionMCQ       SectionType = "MCQ"
	SectionSAQ       SectionType = "SAQ"
	SectionNumerical SectionType = "Numerical"
)

// SectionTypes lists the selectable section types in display order.
var SectionTypes = []SectionType{SectionMCQ, SectionSAQ, SectionNumerical}

// Section is one scoring block of a user-defined exam format.
type Section struct {
	NumQuestions                 int         `json:"numQuestions" yaml:"numQuestions"`
	NumOfMaxAttemptableQuestions int         `json:"numOfMaxAttemptableQuestions" yaml:"numOfMaxAttemptableQuestions"`
	MarksPerQuestion             int         `json:"marksPerQuestion" yaml:"marksPerQuestion"`
	NegativeMarking              float64     `json:"negativeMarking" yaml:"negativeMarking"`
	Type                         SectionType `json:"type" yaml:"type" validate:"omitempty,oneof=MCQ SAQ Numerical"`
}

// ExamFormat is the ordered list of scoring sections.
type ExamFormat struct {
	Sections []Section `json:"sections" yaml:"sections"`
}

// Clone returns a deep copy of the format.
func (f *ExamFormat) Clone() *ExamFormat {
	if f == nil {
		return nil
	}
	out := &ExamFormat{Sections: make([]Section, len(f.Sections))}
	copy(out.Sections, f.Sections)
	return out
}

// GenerateRequest is the body of the breakdown endpoint.
type GenerateRequest struct {
	ExamName string `json:"examName" validate:"required"`
}

// ErrorResponse is returned by the breakdown endpoint on failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
