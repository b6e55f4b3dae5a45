package exam

import (
	"errors"
	"fmt"
	"time"

	"quizrunner/internal/catalog"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("event not allowed in current state")
	ErrStaleLoad         = errors.New("stale exam load")
	ErrEntryOutOfRange   = errors.New("catalog entry out of range")
	ErrOptionOutOfRange  = errors.New("option out of range")
	ErrConcurrentUpdate  = errors.New("session changed concurrently")
)

type State string

const (
	StateCatalog  State = "catalog"
	StateQuestion State = "question"
	StateAnswered State = "answered"
)

// Session is the state of one browser or API client. It is stored as JSON, so
// every field that matters between requests is exported.
type Session struct {
	ID      string          `json:"id"`
	State   State           `json:"state"`
	Catalog []catalog.Entry `json:"catalog"`

	ExamTitle       string             `json:"exam_title,omitempty"`
	ExamPath        string             `json:"exam_path,omitempty"`
	ExamFingerprint string             `json:"exam_fingerprint,omitempty"`
	Questions       []catalog.Question `json:"questions,omitempty"`
	Index           int                `json:"index"`

	// Buttons holds the original option indices in display order.
	Buttons  []int  `json:"buttons,omitempty"`
	Selected int    `json:"selected"`
	FreeText string `json:"free_text,omitempty"`
	Matched  bool   `json:"matched,omitempty"`

	LoadSeq      int64  `json:"load_seq"`
	PendingPath  string `json:"pending_path,omitempty"`
	PendingTitle string `json:"pending_title,omitempty"`

	Answered   int     `json:"answered"`
	Correct    int     `json:"correct"`
	LastResult *Result `json:"last_result,omitempty"`

	// Version is advanced by the store on every successful Put.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Result summarizes a finished exam run.
type Result struct {
	ExamTitle string `json:"exam_title"`
	ExamPath  string `json:"exam_path"`
	Total     int    `json:"total"`
	Answered  int    `json:"answered"`
	Correct   int    `json:"correct"`
}

func NewSession(id string, entries []catalog.Entry, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateCatalog,
		Catalog:   entries,
		Selected:  -1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Current returns the question being shown, if a quiz is active.
func (s *Session) Current() (catalog.Question, bool) {
	if s.State == StateCatalog || s.Index < 0 || s.Index >= len(s.Questions) {
		return catalog.Question{}, false
	}
	return s.Questions[s.Index], true
}

type Event interface {
	eventName() string
}

// SelectExam asks for the exam behind a catalog entry. The machine only records
// the request; the fetch result arrives later as ExamLoaded.
type SelectExam struct {
	Entry int
}

// ExamLoaded carries the result of the fetch started by the SelectExam with the
// same Seq.
type ExamLoaded struct {
	Seq  int64
	Exam *catalog.Exam
	Err  error
}

// SubmitChoice selects an option button by display position.
type SubmitChoice struct {
	Button int
}

type SubmitText struct {
	Text string
}

type Next struct{}

func (SelectExam) eventName() string   { return "select_exam" }
func (ExamLoaded) eventName() string   { return "exam_loaded" }
func (SubmitChoice) eventName() string { return "submit_choice" }
func (SubmitText) eventName() string   { return "submit_text" }
func (Next) eventName() string         { return "next" }

func EventName(ev Event) string {
	return ev.eventName()
}

// Machine applies events to sessions.
type Machine struct {
	rng      Rand
	examPath func(catalog.Entry) string
}

func NewMachine(rng Rand, examPath func(catalog.Entry) string) *Machine {
	if rng == nil {
		rng = DefaultRand
	}
	return &Machine{rng: rng, examPath: examPath}
}

// Apply runs one transition. A rejected event leaves the session untouched.
func (m *Machine) Apply(s *Session, ev Event) error {
	switch e := ev.(type) {
	case SelectExam:
		return m.selectExam(s, e)
	case ExamLoaded:
		return m.examLoaded(s, e)
	case SubmitChoice:
		return m.submitChoice(s, e)
	case SubmitText:
		return m.submitText(s, e)
	case Next:
		return m.next(s)
	default:
		return fmt.Errorf("unknown event %T: %w", ev, ErrInvalidTransition)
	}
}

func (m *Machine) selectExam(s *Session, e SelectExam) error {
	if s.State != StateCatalog {
		return fmt.Errorf("%s in %s: %w", e.eventName(), s.State, ErrInvalidTransition)
	}
	if e.Entry < 0 || e.Entry >= len(s.Catalog) {
		return ErrEntryOutOfRange
	}
	entry := s.Catalog[e.Entry]
	s.LoadSeq++
	s.PendingPath = m.examPath(entry)
	s.PendingTitle = entry.Title
	return nil
}

func (m *Machine) examLoaded(s *Session, e ExamLoaded) error {
	if e.Seq != s.LoadSeq || s.PendingPath == "" || s.State != StateCatalog {
		return ErrStaleLoad
	}
	path, title := s.PendingPath, s.PendingTitle
	s.PendingPath = ""
	s.PendingTitle = ""

	// A failed load keeps the catalog on screen.
	if e.Err != nil || e.Exam == nil || len(e.Exam.Questions) == 0 {
		return nil
	}

	questions := make([]catalog.Question, len(e.Exam.Questions))
	copy(questions, e.Exam.Questions)
	Shuffle(questions, m.rng)

	s.Questions = questions
	s.Index = 0
	s.ExamTitle = title
	s.ExamPath = path
	s.ExamFingerprint = e.Exam.Fingerprint
	s.Answered = 0
	s.Correct = 0
	s.LastResult = nil
	m.present(s)
	return nil
}

func (m *Machine) submitChoice(s *Session, e SubmitChoice) error {
	q, ok := s.Current()
	if !ok || s.State != StateQuestion || !q.IsMultipleChoice() {
		return fmt.Errorf("%s in %s: %w", e.eventName(), s.State, ErrInvalidTransition)
	}
	if e.Button < 0 || e.Button >= len(s.Buttons) {
		return ErrOptionOutOfRange
	}

	s.Selected = e.Button
	s.Answered++
	if GradeChoice(q, s.Buttons, e.Button) {
		s.Correct++
	}
	s.State = StateAnswered
	return nil
}

func (m *Machine) submitText(s *Session, e SubmitText) error {
	q, ok := s.Current()
	if !ok || s.State != StateQuestion || q.IsMultipleChoice() {
		return fmt.Errorf("%s in %s: %w", e.eventName(), s.State, ErrInvalidTransition)
	}

	s.FreeText = e.Text
	s.Matched = q.MatchesText(e.Text)
	s.Answered++
	if s.Matched {
		s.Correct++
	}
	s.State = StateAnswered
	return nil
}

func (m *Machine) next(s *Session) error {
	if s.State != StateAnswered {
		return fmt.Errorf("next in %s: %w", s.State, ErrInvalidTransition)
	}

	s.Index++
	if s.Index < len(s.Questions) {
		m.present(s)
		return nil
	}

	s.LastResult = &Result{
		ExamTitle: s.ExamTitle,
		ExamPath:  s.ExamPath,
		Total:     len(s.Questions),
		Answered:  s.Answered,
		Correct:   s.Correct,
	}
	s.State = StateCatalog
	s.Questions = nil
	s.Index = 0
	s.ExamTitle = ""
	s.ExamPath = ""
	s.ExamFingerprint = ""
	m.clearQuestion(s)
	return nil
}

// present prepares the current question: transient state is cleared and the
// option order is drawn from a fresh shuffle of the original indices.
func (m *Machine) present(s *Session) {
	m.clearQuestion(s)
	s.State = StateQuestion
	q := s.Questions[s.Index]
	if q.IsMultipleChoice() {
		s.Buttons = shuffledIndices(len(q.Options), m.rng)
	}
}

func (m *Machine) clearQuestion(s *Session) {
	s.Buttons = nil
	s.Selected = -1
	s.FreeText = ""
	s.Matched = false
}
