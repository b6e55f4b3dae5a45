package catalog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestImportExamSheet(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Question", "Option_2", "option_1", "Answer", "Explanation"},
		{"Capital of France?", "", "", "Paris", ""},
		{"Pick two", "two", "one", "2", "two is second"},
		{"", "", "", "", ""},
		{"Broken", "b", "a", "7", ""},
		{"", "", "", "3", ""},
	})

	exam, report, err := ImportExamSheet(buf)
	require.NoError(t, err)
	require.Len(t, exam.Questions, 2)

	assert.Equal(t, "Capital of France?", exam.Questions[0].Question)
	assert.False(t, exam.Questions[0].IsMultipleChoice())
	assert.Equal(t, Answer("Paris"), exam.Questions[0].Answer)

	assert.Equal(t, []string{"one", "two"}, exam.Questions[1].Options)
	assert.Equal(t, 1, exam.Questions[1].CorrectIndex())
	assert.Equal(t, "two is second", exam.Questions[1].Explanation)

	assert.Equal(t, 4, report.TotalRows)
	assert.Equal(t, 2, report.SuccessRows)
	assert.Equal(t, 2, report.FailedRows)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, 5, report.Errors[0].Row)
	assert.Equal(t, 6, report.Errors[1].Row)
}

func TestImportExamSheetLayoutErrors(t *testing.T) {
	_, _, err := ImportExamSheet(workbook(t, [][]any{{"question", "answer"}}))
	assert.ErrorIs(t, err, ErrSheetLayout)

	_, _, err = ImportExamSheet(workbook(t, [][]any{{"question", "options"}, {"q", "a"}}))
	assert.ErrorIs(t, err, ErrSheetLayout)

	_, report, err := ImportExamSheet(workbook(t, [][]any{{"question", "answer"}, {"q", ""}}))
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, 1, report.FailedRows)

	_, _, err = ImportExamSheet(bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)
}

func TestExportExamSheetReimports(t *testing.T) {
	src := &Exam{Questions: []Question{
		{Question: "Shape?", Passage: "images/triangle.png", Options: []string{"Square", "Triangle", "Circle"}, Answer: "2"},
		{Question: "Capital of France?", Answer: "Paris", Explanation: "Paris is the capital."},
	}}

	data, err := ExportExamSheet(src)
	require.NoError(t, err)

	got, report, err := ImportExamSheet(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 0, report.FailedRows)
	assert.Equal(t, src.Questions, got.Questions)
}
