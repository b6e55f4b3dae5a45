package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet layout: one question per row, header on the first row. Option columns
// are named option_1, option_2 and so on; blank option cells are skipped.
const (
	sheetColQuestion    = "question"
	sheetColPassage     = "passage"
	sheetColAnswer      = "answer"
	sheetColExplanation = "explanation"
	sheetOptionPrefix   = "option_"
)

var ErrSheetLayout = errors.New("catalog: invalid sheet layout")

type SheetRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type SheetReport struct {
	TotalRows   int             `json:"total_rows"`
	SuccessRows int             `json:"success_rows"`
	FailedRows  int             `json:"failed_rows"`
	Errors      []SheetRowError `json:"errors"`
}

// ImportExamSheet reads the first sheet of a workbook into an exam. Rows that
// cannot form a question are reported and skipped.
func ImportExamSheet(r io.Reader) (*Exam, *SheetReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open sheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", ErrSheetLayout)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("%w: no data rows", ErrSheetLayout)
	}

	header := map[string]int{}
	type optionCol struct{ n, idx int }
	var optionCols []optionCol
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		header[key] = i
		if rest, ok := strings.CutPrefix(key, sheetOptionPrefix); ok {
			if n, err := strconv.Atoi(rest); err == nil && n > 0 {
				optionCols = append(optionCols, optionCol{n: n, idx: i})
			}
		}
	}
	for _, col := range []string{sheetColQuestion, sheetColAnswer} {
		if _, ok := header[col]; !ok {
			return nil, nil, fmt.Errorf("%w: missing column %s", ErrSheetLayout, col)
		}
	}
	sort.Slice(optionCols, func(i, j int) bool { return optionCols[i].n < optionCols[j].n })

	exam := &Exam{}
	report := &SheetReport{Errors: make([]SheetRowError, 0)}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		cell := func(idx int) string {
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		get := func(key string) string {
			idx, ok := header[key]
			if !ok {
				return ""
			}
			return cell(idx)
		}

		q := Question{
			Question:    get(sheetColQuestion),
			Passage:     get(sheetColPassage),
			Answer:      Answer(get(sheetColAnswer)),
			Explanation: get(sheetColExplanation),
		}
		for _, oc := range optionCols {
			if v := cell(oc.idx); v != "" {
				q.Options = append(q.Options, v)
			}
		}
		if q.Question == "" && q.Answer == "" && len(q.Options) == 0 {
			continue
		}
		report.TotalRows++

		var rowErr string
		switch {
		case q.Question == "" || q.Answer == "":
			rowErr = "question and answer are required"
		case q.IsMultipleChoice() && q.CorrectIndex() < 0:
			rowErr = fmt.Sprintf("answer %q is not an option number between 1 and %d", q.Answer, len(q.Options))
		}
		if rowErr != "" {
			report.FailedRows++
			report.Errors = append(report.Errors, SheetRowError{Row: i + 1, Error: rowErr})
			continue
		}
		exam.Questions = append(exam.Questions, q)
		report.SuccessRows++
	}
	if len(exam.Questions) == 0 {
		return nil, report, ErrEmpty
	}
	return exam, report, nil
}

// ExportExamSheet writes an exam in the layout ImportExamSheet reads.
func ExportExamSheet(exam *Exam) ([]byte, error) {
	maxOptions := 0
	for _, q := range exam.Questions {
		maxOptions = max(maxOptions, len(q.Options))
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	headers := []string{sheetColQuestion, sheetColPassage}
	for i := 1; i <= maxOptions; i++ {
		headers = append(headers, sheetOptionPrefix+strconv.Itoa(i))
	}
	headers = append(headers, sheetColAnswer, sheetColExplanation)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, q := range exam.Questions {
		values := []any{q.Question, q.Passage}
		for j := 0; j < maxOptions; j++ {
			opt := ""
			if j < len(q.Options) {
				opt = q.Options[j]
			}
			values = append(values, opt)
		}
		values = append(values, string(q.Answer), q.Explanation)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(sheet, "A", lastCol, 28)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write sheet: %w", err)
	}
	return buf.Bytes(), nil
}
