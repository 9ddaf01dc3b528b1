package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pavelanni/examgen/internal/model"
)

var (
	fencedJSONRegex = regexp.MustCompile("(?s)```json\n(.*?)\n```")
	fenceStripper   = strings.NewReplacer("```json", "", "```", "")
)

// ExtractJSON returns the body of the first ```json fenced block in text.
// Without such a block it strips all fence markers and returns the trimmed rest.
func ExtractJSON(text string) string {
	if m := fencedJSONRegex.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return strings.TrimSpace(fenceStripper.Replace(text))
}

// ParseBreakdown extracts and decodes an exam breakdown from model output.
func ParseBreakdown(text string) (*model.ExamData, error) {
	body := ExtractJSON(text)

	var data model.ExamData
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &data, nil
}
