package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func issueFields(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Field)
	}
	return out
}

func TestValidatorExam(t *testing.T) {
	v := NewValidator()

	valid := &Exam{Questions: []Question{
		{Question: "Pick B", Options: []string{"A", "B"}, Answer: "2"},
		{Question: "Capital of France?", Answer: "Paris"},
	}}
	assert.Empty(t, v.Exam(valid))

	invalid := &Exam{Questions: []Question{
		{Question: "", Options: []string{"A", "B"}, Answer: "3"},
		{Question: "dup", Options: []string{"A", "A"}, Answer: "1"},
		{Question: "no answer"},
	}}
	fields := issueFields(v.Exam(invalid))
	assert.Contains(t, fields, "questions[0].question")
	assert.Contains(t, fields, "questions[0].answer")
	assert.Contains(t, fields, "questions[1].options")
	assert.Contains(t, fields, "questions[2].answer")

	assert.NotEmpty(t, v.Exam(&Exam{}))
	assert.NotEmpty(t, v.Exam(nil))
}

func TestValidatorCatalog(t *testing.T) {
	v := NewValidator()

	assert.Empty(t, v.Catalog([]Entry{{Title: "Net", Filename: "net.json"}}))
	assert.NotEmpty(t, v.Catalog(nil))

	fields := issueFields(v.Catalog([]Entry{
		{Title: "Net", Filename: "net.json"},
		{Title: "", Filename: "net.json"},
		{Title: "Missing file"},
	}))
	assert.Contains(t, fields, "entries[1].title")
	assert.Contains(t, fields, "entries[1].filename")
	assert.Contains(t, fields, "entries[2].filename")
}
