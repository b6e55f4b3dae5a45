package exam

import (
	"encoding/json"
	"math/rand"
	"testing"

	"quizrunner/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentCatalog(t *testing.T) {
	s := newTestSession()
	v := Present(s)

	assert.Equal(t, StateCatalog, v.State)
	assert.Nil(t, v.Quiz)
	assert.Equal(t, []CatalogItem{{Entry: 0, Title: "Geography"}, {Entry: 1, Title: "Reading"}}, v.Catalog)
}

func TestPresentEmptyCatalog(t *testing.T) {
	s := NewSession("s", nil, newTestSession().CreatedAt)
	v := Present(s)
	assert.Equal(t, StateCatalog, v.State)
	assert.Empty(t, v.Catalog)
}

func TestPresentChoiceQuestionBeforeAnswer(t *testing.T) {
	m := NewMachine(zeroRand{}, testExamPath)
	s := newTestSession()
	loadExam(t, m, s, choiceQuestion())

	v := Present(s)
	require.NotNil(t, v.Quiz)
	q := v.Quiz
	assert.Equal(t, StateQuestion, v.State)
	assert.Equal(t, "Pick B", q.Prompt)
	assert.Nil(t, q.Passage)
	assert.Nil(t, q.TextInput)
	assert.False(t, q.NavigationVisible)
	assert.Nil(t, q.Explanation)

	require.Len(t, q.Options, 3)
	// display order [1 2 0]
	assert.Equal(t, []string{"B", "C", "A"}, optionLabels(q.Options))
	assert.Equal(t, []int{1, 2, 0}, []int{q.Options[0].OriginalIndex, q.Options[1].OriginalIndex, q.Options[2].OriginalIndex})
	for _, o := range q.Options {
		assert.Empty(t, o.Status)
		assert.False(t, o.Selected)
	}
}

func TestPresentExactlyOneCorrectButton(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 50; i++ {
		m := NewMachine(rng, testExamPath)
		s := newTestSession()
		loadExam(t, m, s, catalog.Question{
			Question: "dup labels",
			Options:  []string{"same", "same", "other", "same"},
			Answer:   "4",
		})

		v := Present(s)
		var correct []OptionView
		for _, o := range v.Quiz.Options {
			if o.Correct {
				correct = append(correct, o)
			}
		}
		require.Len(t, correct, 1)
		assert.Equal(t, 3, correct[0].OriginalIndex)
	}
}

func TestPresentAnsweredChoice(t *testing.T) {
	for _, label := range []string{"A", "B", "C"} {
		t.Run(label, func(t *testing.T) {
			m := NewMachine(rand.New(rand.NewSource(1)), testExamPath)
			s := newTestSession()
			loadExam(t, m, s, choiceQuestion())
			button := buttonFor(t, s, label)
			require.NoError(t, m.Apply(s, SubmitChoice{Button: button}))

			q := Present(s).Quiz
			require.NotNil(t, q)
			assert.True(t, q.Answered)
			assert.True(t, q.NavigationVisible)

			for _, o := range q.Options {
				want := StatusWrong
				if o.Label == "B" {
					want = StatusCorrect
				}
				assert.Equal(t, want, o.Status, o.Label)
				assert.Equal(t, o.Button == button, o.Selected, o.Label)
				assert.Equal(t, o.Label == "B", o.ExplanationAfter, o.Label)
			}

			require.NotNil(t, q.Explanation)
			assert.Equal(t, "<p>B is second</p>", q.Explanation.HTML)
			assert.Equal(t, ExplanationAfterButton, q.Explanation.After)
			assert.Equal(t, "B", q.Options[q.Explanation.Button].Label)
		})
	}
}

func TestPresentFreeText(t *testing.T) {
	m := NewMachine(fixedRand{}, testExamPath)
	s := newTestSession()
	loadExam(t, m, s, textQuestion())

	q := Present(s).Quiz
	require.NotNil(t, q.TextInput)
	assert.Empty(t, q.Options)
	assert.True(t, q.TextInput.Autofocus)
	assert.Empty(t, q.TextInput.Value)
	assert.False(t, q.NavigationVisible)

	for _, input := range []string{" paris ", "Berlin"} {
		s2 := *s
		require.NoError(t, m.Apply(&s2, SubmitText{Text: input}))
		q := Present(&s2).Quiz
		require.NotNil(t, q.Explanation)
		assert.Equal(t, "<p><strong>Paris</strong></p><p>It is Paris.</p>", q.Explanation.HTML, input)
		assert.Equal(t, "Paris", q.Explanation.Answer)
		assert.True(t, q.TextInput.ExplanationAfter)
		assert.True(t, q.NavigationVisible)
		assert.Equal(t, input, q.TextInput.Value)
	}
}

func TestPresentPassage(t *testing.T) {
	tests := []struct {
		passage string
		want    *PassageView
	}{
		{passage: "diagram.png", want: &PassageView{Kind: PassageImage, Content: "diagram.png"}},
		{passage: "img/Photo.JPEG", want: &PassageView{Kind: PassageImage, Content: "img/Photo.JPEG"}},
		{passage: "Read this text", want: &PassageView{Kind: PassageText, Content: "Read this text"}},
		{passage: "diagram.png is below", want: &PassageView{Kind: PassageText, Content: "diagram.png is below"}},
		{passage: "", want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.passage, func(t *testing.T) {
			m := NewMachine(fixedRand{}, testExamPath)
			s := newTestSession()
			q := textQuestion()
			q.Passage = tc.passage
			loadExam(t, m, s, q)
			assert.Equal(t, tc.want, Present(s).Quiz.Passage)
		})
	}
}

func TestPresentProgress(t *testing.T) {
	m := NewMachine(fixedRand{}, testExamPath)
	s := newTestSession()
	loadExam(t, m, s, textQuestion(), textQuestion(), textQuestion(), textQuestion())

	for i := 0; i < 4; i++ {
		q := Present(s).Quiz
		assert.Equal(t, i+1, q.Position)
		assert.Equal(t, 4, q.Total)
		assert.InDelta(t, float64(i+1)/4*100, q.Progress, 1e-9)
		require.NoError(t, m.Apply(s, SubmitText{Text: "Paris"}))
		require.NoError(t, m.Apply(s, Next{}))
	}
	v := Present(s)
	assert.Equal(t, StateCatalog, v.State)
	require.NotNil(t, v.Last)
	assert.Equal(t, 4, v.Last.Correct)
}

func TestViewJSONHidesCorrectness(t *testing.T) {
	m := NewMachine(fixedRand{}, testExamPath)
	s := newTestSession()
	loadExam(t, m, s, choiceQuestion())

	raw, err := json.Marshal(Present(s))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"correct"`)
	assert.NotContains(t, string(raw), `"status"`)
}

func optionLabels(opts []OptionView) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Label)
	}
	return out
}
