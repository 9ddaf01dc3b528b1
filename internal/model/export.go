package model

// DefaultExamMinutes is the duration attached to every created exam.
const DefaultExamMinutes = 120

// ExamDetails is the exam composed by "Create Exam" from a breakdown and a format.
type ExamDetails struct {
	ExamName  string     `json:"examName" yaml:"examName"`
	FullMarks int        `json:"fullMarks" yaml:"fullMarks"`
	Time      int        `json:"time" yaml:"time"`
	Subjects  []Subject  `json:"subjects" yaml:"subjects"`
	Format    ExamFormat `json:"format" yaml:"format"`
}
