// Package form holds the state behind the exam builder page: the exam name,
// the generated breakdown, the loading flag, the last error and the
// exam-format draft with its modal.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/examgen/internal/model"
)

var (
	// ErrEmptyExamName is the local validation error for a blank exam name.
	ErrEmptyExamName = errors.New("please enter an exam name")
	// ErrBusy is returned by Submit while a generation is in flight.
	ErrBusy = errors.New("generation already in progress")
	// ErrNoFormat is returned by CreateExam before any format is defined.
	ErrNoFormat = errors.New("please define an exam format first")
	// ErrSectionIndex is returned for a section index outside the format.
	ErrSectionIndex = errors.New("section index out of range")
	// ErrSectionType is returned for an unknown section type.
	ErrSectionType = errors.New("invalid section type")
)

// NoSubject is the EditingSubject value when the modal was not opened from a subject card.
const NoSubject = -1

// Generator produces an exam breakdown for a name.
type Generator interface {
	Generate(ctx context.Context, examName string) (*model.ExamData, error)
}

var validate = validator.New()

// State is a copy of the controller's cells, safe to render.
type State struct {
	ExamName       string
	Result         *model.ExamData
	Loading        bool
	Err            error
	Format         *model.ExamFormat
	ModalOpen      bool
	EditingSubject int
}

// Controller owns the state of one exam builder page. It is safe for
// concurrent use; the generator is called without holding the lock.
type Controller struct {
	gen Generator

	mu             sync.Mutex
	examName       string
	result         *model.ExamData
	loading        bool
	err            error
	format         *model.ExamFormat
	modalOpen      bool
	editingSubject int
}

// NewController creates an empty controller backed by gen.
func NewController(gen Generator) *Controller {
	return &Controller{gen: gen, editingSubject: NoSubject}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		ExamName:       c.examName,
		Result:         c.result,
		Loading:        c.loading,
		Err:            c.err,
		Format:         c.format.Clone(),
		ModalOpen:      c.modalOpen,
		EditingSubject: c.editingSubject,
	}
}

// SetExamName updates the exam name input.
func (c *Controller) SetExamName(name string) {
	c.mu.Lock()
	c.examName = name
	c.mu.Unlock()
}

// Submit generates a breakdown for the current exam name. A blank name is
// rejected locally without calling the generator. On failure the previous
// result is kept and the error is stored for display.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.err = ErrBusy
		c.mu.Unlock()
		return ErrBusy
	}
	name := strings.TrimSpace(c.examName)
	if name == "" {
		c.err = ErrEmptyExamName
		c.mu.Unlock()
		return ErrEmptyExamName
	}
	c.loading = true
	c.err = nil
	c.mu.Unlock()

	data, err := c.gen.Generate(ctx, name)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.err = err
		return err
	}
	c.result = data
	c.err = nil
	return nil
}

// OpenFormat opens the format modal for the subject at index.
func (c *Controller) OpenFormat(subjectIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editingSubject = subjectIndex
	c.modalOpen = true
}

// AddSection appends a section with zero values and no type.
func (c *Controller) AddSection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.format == nil {
		c.format = &model.ExamFormat{}
	}
	c.format.Sections = append(c.format.Sections, model.Section{})
}

// RemoveSection deletes the section at i, keeping the order of the rest.
func (c *Controller) RemoveSection(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.format == nil || i < 0 || i >= len(c.format.Sections) {
		return c.sectionError(fmt.Errorf("%w: %d", ErrSectionIndex, i))
	}
	c.clearSectionError()
	sections := make([]model.Section, 0, len(c.format.Sections)-1)
	sections = append(sections, c.format.Sections[:i]...)
	sections = append(sections, c.format.Sections[i+1:]...)
	c.format.Sections = sections
	return nil
}

// UpdateSection replaces the section at i. Numbers are taken as given;
// only the type must be one of the known values or empty.
func (c *Controller) UpdateSection(i int, s model.Section) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := validate.Struct(s); err != nil {
		return c.sectionError(fmt.Errorf("%w: %q", ErrSectionType, s.Type))
	}
	if c.format == nil || i < 0 || i >= len(c.format.Sections) {
		return c.sectionError(fmt.Errorf("%w: %d", ErrSectionIndex, i))
	}
	c.clearSectionError()
	c.format.Sections[i] = s
	return nil
}

// sectionError stores err for the banner and returns it. Callers hold mu.
func (c *Controller) sectionError(err error) error {
	c.err = err
	return err
}

func (c *Controller) clearSectionError() {
	if errors.Is(c.err, ErrSectionIndex) || errors.Is(c.err, ErrSectionType) {
		c.err = nil
	}
}

// SaveFormat keeps the current sections and closes the modal.
func (c *Controller) SaveFormat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.format == nil {
		c.format = &model.ExamFormat{Sections: []model.Section{}}
	}
	c.modalOpen = false
}

// CancelFormat closes the modal. Section edits already made stay in place.
func (c *Controller) CancelFormat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modalOpen = false
}

// CreateExam composes the exam from the breakdown and the format and logs it.
func (c *Controller) CreateExam(ctx context.Context) (*model.ExamDetails, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.format == nil {
		c.err = ErrNoFormat
		return nil, ErrNoFormat
	}

	details := &model.ExamDetails{
		FullMarks: FullMarks(c.format.Sections),
		Time:      model.DefaultExamMinutes,
		Subjects:  []model.Subject{},
		Format:    *c.format.Clone(),
	}
	if c.result != nil {
		details.ExamName = c.result.ExamName
		details.Subjects = c.result.Subjects
	}

	slog.InfoContext(ctx, "exam details", slog.Any("exam", details))
	return details, nil
}

// FullMarks is the sum of numQuestions × marksPerQuestion over all sections.
func FullMarks(sections []model.Section) int {
	total := 0
	for _, s := range sections {
		total += s.NumQuestions * s.MarksPerQuestion
	}
	return total
}
