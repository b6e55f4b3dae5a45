package exam

import (
	"testing"

	"quizrunner/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExplanation(t *testing.T) {
	tests := []struct {
		name     string
		q        catalog.Question
		buttons  []int
		wantNil  bool
		wantHTML string
		after    string
		button   int
	}{
		{
			name:     "choice with explanation",
			q:        choiceQuestion(),
			buttons:  []int{2, 1, 0},
			wantHTML: "<p>B is second</p>",
			after:    ExplanationAfterButton,
			button:   1,
		},
		{
			name:    "choice without explanation",
			q:       catalog.Question{Question: "q", Options: []string{"x", "y"}, Answer: "1"},
			buttons: []int{1, 0},
			after:   ExplanationAfterButton,
			button:  1,
		},
		{
			name:    "choice with unusable answer",
			q:       catalog.Question{Question: "q", Options: []string{"x", "y"}, Answer: "7", Explanation: "e"},
			buttons: []int{0, 1},
			wantNil: true,
		},
		{
			name:     "free text with explanation",
			q:        textQuestion(),
			wantHTML: "<p><strong>Paris</strong></p><p>It is Paris.</p>",
			after:    ExplanationAfterInput,
			button:   -1,
		},
		{
			name:     "free text without explanation",
			q:        catalog.Question{Question: "q", Answer: "42"},
			wantHTML: "<p><strong>42</strong></p>",
			after:    ExplanationAfterInput,
			button:   -1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildExplanation(tc.q, tc.buttons)
			if tc.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.wantHTML, got.HTML)
			assert.Equal(t, tc.after, got.After)
			assert.Equal(t, tc.button, got.Button)
		})
	}
}

func TestGradeChoice(t *testing.T) {
	q := choiceQuestion()
	buttons := []int{2, 0, 1}
	for button, want := range []bool{false, false, true} {
		assert.Equal(t, want, GradeChoice(q, buttons, button), "button %d", button)
	}
	assert.False(t, GradeChoice(q, buttons, 3))
	assert.False(t, GradeChoice(q, buttons, -1))
}
