package exam

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"quizrunner/internal/catalog"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContentLoader is the part of catalog.Loader the service needs.
type ContentLoader interface {
	LoadCatalog(ctx context.Context) ([]catalog.Entry, error)
	LoadExam(ctx context.Context, resource string) (*catalog.Exam, error)
	ExamPath(e catalog.Entry) string
}

const (
	lockStripes         = 64
	maxDispatchAttempts = 3
)

type Service struct {
	store   Store
	content ContentLoader
	machine *Machine
	log     *zap.Logger
	now     func() time.Time
	newID   func() string

	locks [lockStripes]sync.Mutex
}

type Created struct {
	SessionID string `json:"session_id"`
	View      View   `json:"view"`
}

func NewService(store Store, content ContentLoader, rng Rand, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		content: content,
		machine: NewMachine(rng, content.ExamPath),
		log:     log,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// Create starts a session on the catalog. A catalog that cannot be fetched is
// logged and the session starts with no entries.
func (s *Service) Create(ctx context.Context) (*Created, error) {
	entries, err := s.content.LoadCatalog(ctx)
	if err != nil {
		s.log.Error("load catalog", zap.Error(err))
		entries = nil
	}

	sess := NewSession(s.newID(), entries, s.now())
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Created{SessionID: sess.ID, View: Present(sess)}, nil
}

func (s *Service) View(ctx context.Context, id string) (View, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return Present(sess), nil
}

// SelectExam records the selection, fetches the exam without holding the
// session lock and feeds the result back as ExamLoaded. Fetch failures leave
// the session on the catalog and are not returned to the caller.
func (s *Service) SelectExam(ctx context.Context, id string, entry int) (View, error) {
	sess, err := s.dispatch(ctx, id, SelectExam{Entry: entry})
	if err != nil {
		return View{}, err
	}
	seq, resource := sess.LoadSeq, sess.PendingPath

	exam, loadErr := s.content.LoadExam(ctx, resource)
	if loadErr != nil {
		s.log.Error("load exam", zap.String("session_id", id), zap.String("path", resource), zap.Error(loadErr))
	}

	// The selection is settled even if the client went away mid-fetch.
	sess, err = s.dispatch(context.WithoutCancel(ctx), id, ExamLoaded{Seq: seq, Exam: exam, Err: loadErr})
	if errors.Is(err, ErrStaleLoad) {
		s.log.Warn("drop stale exam load", zap.String("session_id", id), zap.Int64("seq", seq), zap.String("path", resource))
		return s.View(ctx, id)
	}
	if err != nil {
		return View{}, err
	}
	if sess.State == StateQuestion {
		s.log.Info("exam started",
			zap.String("session_id", id),
			zap.String("path", sess.ExamPath),
			zap.String("fingerprint", sess.ExamFingerprint),
			zap.Int("questions", len(sess.Questions)),
		)
	}
	return Present(sess), nil
}

func (s *Service) SubmitChoice(ctx context.Context, id string, button int) (View, error) {
	sess, err := s.dispatch(ctx, id, SubmitChoice{Button: button})
	if err != nil {
		return View{}, err
	}
	return Present(sess), nil
}

func (s *Service) SubmitText(ctx context.Context, id, text string) (View, error) {
	sess, err := s.dispatch(ctx, id, SubmitText{Text: text})
	if err != nil {
		return View{}, err
	}
	return Present(sess), nil
}

func (s *Service) Next(ctx context.Context, id string) (View, error) {
	sess, err := s.dispatch(ctx, id, Next{})
	if err != nil {
		return View{}, err
	}
	if sess.State == StateCatalog && sess.LastResult != nil {
		r := sess.LastResult
		s.log.Info("exam finished",
			zap.String("session_id", id),
			zap.String("path", r.ExamPath),
			zap.Int("total", r.Total),
			zap.Int("answered", r.Answered),
			zap.Int("correct", r.Correct),
		)
	}
	return Present(sess), nil
}

// dispatch applies ev under the session lock and stores the result. A rejected
// event is not stored. When another process stored the session in between, the
// event is applied again to the fresh copy.
func (s *Service) dispatch(ctx context.Context, id string, ev Event) (*Session, error) {
	for attempt := 1; ; attempt++ {
		sess, err := s.applyLocked(ctx, id, ev)
		if errors.Is(err, ErrConcurrentUpdate) && attempt < maxDispatchAttempts {
			s.log.Debug("retry session update", zap.String("session_id", id), zap.String("event", EventName(ev)), zap.Int("attempt", attempt))
			continue
		}
		return sess, err
	}
}

func (s *Service) applyLocked(ctx context.Context, id string, ev Event) (*Session, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.machine.Apply(sess, ev); err != nil {
		return nil, fmt.Errorf("apply %s: %w", EventName(ev), err)
	}
	sess.UpdatedAt = s.now()
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (s *Service) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}
