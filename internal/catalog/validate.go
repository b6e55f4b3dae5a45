package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Issue is one problem found in a content document.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s", i.Field, i.Message)
}

// Validator checks manifests and exam documents. The loader only logs what it
// reports; examlint turns it into a failing exit status.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateQuestion, Question{})
	return &Validator{v: v}
}

func validateQuestion(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	if q.IsMultipleChoice() && q.Answer != "" && q.CorrectIndex() < 0 {
		sl.ReportError(q.Answer, "answer", "Answer", "answer_index", fmt.Sprint(len(q.Options)))
	}
}

func (v *Validator) Catalog(entries []Entry) []Issue {
	if len(entries) == 0 {
		return []Issue{{Field: "entries", Message: "must list at least one exam", Rule: "min"}}
	}

	var issues []Issue
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		prefix := fmt.Sprintf("entries[%d]", i)
		issues = append(issues, toIssues(prefix, v.v.Struct(e))...)
		if e.Filename == "" {
			continue
		}
		if first, dup := seen[e.Filename]; dup {
			issues = append(issues, Issue{
				Field:   prefix + ".filename",
				Message: fmt.Sprintf("duplicates entries[%d]", first),
				Rule:    "unique",
			})
			continue
		}
		seen[e.Filename] = i
	}
	return issues
}

func (v *Validator) Exam(exam *Exam) []Issue {
	if exam == nil {
		return []Issue{{Field: "exam", Message: "is required", Rule: "required"}}
	}
	return toIssues("", v.v.Struct(exam))
}

func toIssues(prefix string, err error) []Issue {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Field: strings.TrimPrefix(prefix, "."), Message: err.Error()}}
	}

	out := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if prefix != "" {
			field = prefix + "." + field
		}
		out = append(out, Issue{Field: field, Message: issueMessage(fe), Rule: fe.Tag()})
	}
	return out
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s item(s)", fe.Param())
	case "unique":
		return "must not contain duplicate options"
	case "answer_index":
		return fmt.Sprintf("must be an option number between 1 and %s", fe.Param())
	default:
		return "failed " + fe.Tag()
	}
}
