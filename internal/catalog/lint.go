package catalog

import (
	"context"
	"encoding/json"
	"fmt"
)

// ResourceReport holds what Lint found for one document. Err is set when the
// document could not be fetched or parsed at all.
type ResourceReport struct {
	Path        string
	Fingerprint string
	Questions   int
	Issues      []Issue
	Err         error
}

func (r ResourceReport) OK() bool {
	return r.Err == nil && len(r.Issues) == 0
}

type Report struct {
	Manifest ResourceReport
	Exams    []ResourceReport
}

func (r Report) OK() bool {
	if !r.Manifest.OK() {
		return false
	}
	for _, e := range r.Exams {
		if !e.OK() {
			return false
		}
	}
	return true
}

// Lint checks the manifest and every exam it lists. Unlike the loader it
// collects problems instead of logging them. The returned error is only set
// when the context is done.
func Lint(ctx context.Context, l *Loader) (Report, error) {
	var rep Report
	rep.Manifest.Path = l.ManifestPath()

	data, err := l.src.Fetch(ctx, l.manifestPath)
	if err != nil {
		rep.Manifest.Err = err
		return rep, ctx.Err()
	}
	rep.Manifest.Fingerprint = Fingerprint(data)

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		rep.Manifest.Err = fmt.Errorf("%w: %w", ErrParse, err)
		return rep, ctx.Err()
	}
	rep.Manifest.Issues = l.validator.Catalog(entries)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if e.Filename == "" {
			continue
		}
		res := ResourceReport{Path: l.ExamPath(e)}
		raw, err := l.src.Fetch(ctx, res.Path)
		if err != nil {
			res.Err = err
			rep.Exams = append(rep.Exams, res)
			continue
		}
		exam, err := ParseExam(raw)
		if err != nil {
			res.Err = err
			rep.Exams = append(rep.Exams, res)
			continue
		}
		res.Fingerprint = exam.Fingerprint
		res.Questions = len(exam.Questions)
		res.Issues = l.validator.Exam(exam)
		rep.Exams = append(rep.Exams, res)
	}
	return rep, nil
}
