package exam

import (
	"quizrunner/internal/catalog"
)

const (
	PassageImage = "image"
	PassageText  = "text"

	StatusCorrect = "correct"
	StatusWrong   = "wrong"
)

// View is what a client renders for a session.
type View struct {
	State   State         `json:"state"`
	Catalog []CatalogItem `json:"catalog,omitempty"`
	Quiz    *QuizView     `json:"quiz,omitempty"`
	Last    *Result       `json:"last_result,omitempty"`
}

type CatalogItem struct {
	Entry int    `json:"entry"`
	Title string `json:"title"`
}

type QuizView struct {
	ExamTitle string  `json:"exam_title"`
	Position  int     `json:"position"`
	Total     int     `json:"total"`
	Progress  float64 `json:"progress"`

	Prompt  string       `json:"prompt"`
	Passage *PassageView `json:"passage,omitempty"`

	Options   []OptionView   `json:"options,omitempty"`
	TextInput *TextInputView `json:"text_input,omitempty"`

	Answered          bool             `json:"answered"`
	Explanation       *ExplanationView `json:"explanation,omitempty"`
	NavigationVisible bool             `json:"navigation_visible"`
}

type PassageView struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// OptionView is one option button. Correct is kept off the wire so API clients
// learn the answer only from Status once the question is answered.
type OptionView struct {
	Button        int    `json:"button"`
	Label         string `json:"label"`
	Correct       bool   `json:"-"`
	OriginalIndex int    `json:"original_index"`
	Status        string `json:"status,omitempty"`
	Selected      bool   `json:"selected,omitempty"`

	// ExplanationAfter marks the button the explanation block follows.
	ExplanationAfter bool `json:"explanation_after,omitempty"`
}

type TextInputView struct {
	Value            string `json:"value"`
	Autofocus        bool   `json:"autofocus"`
	ExplanationAfter bool   `json:"explanation_after,omitempty"`
}

// Present builds the view for the session's current state.
func Present(s *Session) View {
	v := View{State: s.State}

	q, ok := s.Current()
	if !ok {
		v.State = StateCatalog
		v.Catalog = make([]CatalogItem, 0, len(s.Catalog))
		for i, e := range s.Catalog {
			v.Catalog = append(v.Catalog, CatalogItem{Entry: i, Title: e.Title})
		}
		v.Last = s.LastResult
		return v
	}

	total := len(s.Questions)
	answered := s.State == StateAnswered
	quiz := &QuizView{
		ExamTitle:         s.ExamTitle,
		Position:          s.Index + 1,
		Total:             total,
		Progress:          progress(s.Index, total),
		Prompt:            q.Question,
		Passage:           presentPassage(q.Passage),
		Answered:          answered,
		NavigationVisible: answered,
	}

	if q.IsMultipleChoice() {
		correct := q.CorrectIndex()
		quiz.Options = make([]OptionView, 0, len(s.Buttons))
		for button, original := range s.Buttons {
			opt := OptionView{
				Button:        button,
				Label:         q.Options[original],
				Correct:       original == correct,
				OriginalIndex: original,
			}
			if answered {
				opt.Status = StatusWrong
				if opt.Correct {
					opt.Status = StatusCorrect
				}
				opt.Selected = button == s.Selected
			}
			quiz.Options = append(quiz.Options, opt)
		}
	} else {
		quiz.TextInput = &TextInputView{
			Value:     s.FreeText,
			Autofocus: !answered,
		}
	}

	if answered {
		quiz.Explanation = BuildExplanation(q, s.Buttons)
		if quiz.Explanation != nil {
			switch {
			case quiz.TextInput != nil:
				quiz.TextInput.ExplanationAfter = true
			case quiz.Explanation.Button >= 0:
				quiz.Options[quiz.Explanation.Button].ExplanationAfter = true
			}
		}
	}

	v.Quiz = quiz
	return v
}

func progress(index, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(index+1) / float64(total) * 100
}

func presentPassage(p string) *PassageView {
	if p == "" {
		return nil
	}
	if catalog.IsImagePath(p) {
		return &PassageView{Kind: PassageImage, Content: p}
	}
	return &PassageView{Kind: PassageText, Content: p}
}
