package exam

import (
	"strings"

	"quizrunner/internal/catalog"
)

// ExplanationView is the block revealed once a question is answered. HTML is
// trusted markup from the exam document.
type ExplanationView struct {
	// Answer is set for free-text questions only.
	Answer string `json:"answer,omitempty"`
	HTML   string `json:"html"`
	// After is "button" or "input"; Button is the display index when After is
	// "button", -1 otherwise.
	After  string `json:"after"`
	Button int    `json:"button"`
}

const (
	ExplanationAfterButton = "button"
	ExplanationAfterInput  = "input"
)

// BuildExplanation renders the explanation block for q given the display order
// of its option buttons. It returns nil for a multiple-choice question with no
// usable correct option, since there is nowhere to place the block.
func BuildExplanation(q catalog.Question, buttons []int) *ExplanationView {
	if !q.IsMultipleChoice() {
		var b strings.Builder
		b.WriteString("<p><strong>")
		b.WriteString(q.Answer.String())
		b.WriteString("</strong></p>")
		if q.Explanation != "" {
			b.WriteString("<p>")
			b.WriteString(q.Explanation)
			b.WriteString("</p>")
		}
		return &ExplanationView{
			Answer: q.Answer.String(),
			HTML:   b.String(),
			After:  ExplanationAfterInput,
			Button: -1,
		}
	}

	correct := q.CorrectIndex()
	button := -1
	for i, original := range buttons {
		if original == correct {
			button = i
			break
		}
	}
	if correct < 0 || button < 0 {
		return nil
	}

	out := &ExplanationView{After: ExplanationAfterButton, Button: button}
	if q.Explanation != "" {
		out.HTML = "<p>" + q.Explanation + "</p>"
	}
	return out
}

// GradeChoice reports whether the option at display position button is the
// correct one.
func GradeChoice(q catalog.Question, buttons []int, button int) bool {
	if button < 0 || button >= len(buttons) {
		return false
	}
	return buttons[button] == q.CorrectIndex()
}
