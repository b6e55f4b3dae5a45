package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var imagePassagePattern = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|gif)$`)

// Entry is one item of the exam manifest.
type Entry struct {
	Title    string `json:"title" validate:"required"`
	Filename string `json:"filename" validate:"required"`
}

// Exam is a parsed exam document. Path and Fingerprint are filled by the loader.
type Exam struct {
	Path        string     `json:"-"`
	Fingerprint string     `json:"-"`
	Questions   []Question `json:"questions" validate:"required,min=1,dive"`
}

type Question struct {
	Question    string   `json:"question" validate:"required"`
	Passage     string   `json:"passage,omitempty"`
	Options     []string `json:"options,omitempty" validate:"omitempty,unique,dive,required"`
	Answer      Answer   `json:"answer" validate:"required"`
	Explanation string   `json:"explanation,omitempty"`
}

// Answer holds the expected answer. Documents written by hand sometimes carry the
// option number as a JSON number, so both forms decode to the same text.
type Answer string

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Answer(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("answer must be a string or number: %w", err)
	}
	*a = Answer(n.String())
	return nil
}

func (a Answer) String() string {
	return string(a)
}

// IsMultipleChoice reports whether the question renders option buttons rather
// than the free-text input.
func (q Question) IsMultipleChoice() bool {
	return len(q.Options) > 0
}

// CorrectIndex is the 0-based position of the correct option in the original
// order, or -1 when the answer is not a usable option number.
func (q Question) CorrectIndex() int {
	n, err := strconv.Atoi(strings.TrimSpace(string(q.Answer)))
	if err != nil || n < 1 || n > len(q.Options) {
		return -1
	}
	return n - 1
}

// MatchesText compares a free-text submission with the expected answer. The
// submission is trimmed, the expected answer is used as written.
func (q Question) MatchesText(input string) bool {
	return strings.ToLower(strings.TrimSpace(input)) == strings.ToLower(string(q.Answer))
}

func IsImagePath(p string) bool {
	return imagePassagePattern.MatchString(p)
}
