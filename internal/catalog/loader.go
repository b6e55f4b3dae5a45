package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultManifestPath = "exams.json"
	DefaultExamDir      = "exams"
)

type LoaderConfig struct {
	ManifestPath string
	ExamDir      string
}

// Loader turns raw documents from a Source into catalog entries and exams.
type Loader struct {
	src          Source
	manifestPath string
	examDir      string
	validator    *Validator
	log          *zap.Logger
}

func NewLoader(src Source, cfg LoaderConfig, log *zap.Logger) *Loader {
	if strings.TrimSpace(cfg.ManifestPath) == "" {
		cfg.ManifestPath = DefaultManifestPath
	}
	if strings.TrimSpace(cfg.ExamDir) == "" {
		cfg.ExamDir = DefaultExamDir
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		src:          src,
		manifestPath: cfg.ManifestPath,
		examDir:      cfg.ExamDir,
		validator:    NewValidator(),
		log:          log,
	}
}

// ExamPath is the resource path of the exam document behind a manifest entry.
func (l *Loader) ExamPath(e Entry) string {
	return path.Join(l.examDir, e.Filename)
}

func (l *Loader) ManifestPath() string {
	return l.manifestPath
}

func (l *Loader) LoadCatalog(ctx context.Context) ([]Entry, error) {
	data, err := l.src.Fetch(ctx, l.manifestPath)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w: %w", l.manifestPath, ErrParse, err)
	}

	for _, issue := range l.validator.Catalog(entries) {
		l.log.Warn("manifest issue",
			zap.String("resource", l.manifestPath),
			zap.String("field", issue.Field),
			zap.String("message", issue.Message),
		)
	}
	return entries, nil
}

func (l *Loader) LoadExam(ctx context.Context, resource string) (*Exam, error) {
	data, err := l.src.Fetch(ctx, resource)
	if err != nil {
		return nil, err
	}

	exam, err := ParseExam(data)
	if err != nil {
		return nil, fmt.Errorf("decode exam %s: %w", resource, err)
	}
	exam.Path = resource

	for _, issue := range l.validator.Exam(exam) {
		l.log.Warn("exam issue",
			zap.String("resource", resource),
			zap.String("field", issue.Field),
			zap.String("message", issue.Message),
		)
	}

	l.log.Debug("exam loaded",
		zap.String("resource", resource),
		zap.Int("questions", len(exam.Questions)),
		zap.String("fingerprint", exam.Fingerprint),
	)
	return exam, nil
}

// ParseExam decodes an exam document. A document without questions cannot be
// presented and is rejected with ErrEmpty.
func ParseExam(data []byte) (*Exam, error) {
	var exam Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if len(exam.Questions) == 0 {
		return nil, ErrEmpty
	}
	exam.Fingerprint = Fingerprint(data)
	return &exam, nil
}
