package excel

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/in-nis/classdash/internal/models"
)

const (
	resultsSheet = "Results"
	dateLayout   = "2006-01-02 15:04"
)

var resultsHeader = []any{"Student Name", "Student Email", "Material", "Quiz Type", "Score", "Date Completed"}

// ResultRow is one exported line of a classroom results workbook.
type ResultRow struct {
	StudentName   string
	StudentEmail  string
	Material      string
	QuizType      string
	Score         string
	DateCompleted string
}

func (r ResultRow) cells() []any {
	return []any{r.StudentName, r.StudentEmail, r.Material, r.QuizType, r.Score, r.DateCompleted}
}

// RowFromEvaluation formats an evaluation. Student and Material must be
// preloaded for the name, email and title columns to be filled.
func RowFromEvaluation(e models.SelfEvaluation) ResultRow {
	row := ResultRow{
		Material:      "General",
		QuizType:      titleCase(e.QuizType),
		Score:         "Not scored",
		DateCompleted: "In progress",
	}
	if e.Student != nil {
		row.StudentName = e.Student.FullName()
		row.StudentEmail = e.Student.Email
	}
	if e.Material != nil {
		row.Material = e.Material.Title
	}
	if e.Score != nil {
		row.Score = fmt.Sprintf("%.1f%%", *e.Score)
	}
	if e.CompletedAt != nil {
		row.DateCompleted = e.CompletedAt.Format(dateLayout)
	}
	return row
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// WriteResults renders evaluations as a single-sheet workbook.
func WriteResults(w io.Writer, evals []models.SelfEvaluation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(resultsSheet)
	if err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	header := make([]any, len(resultsHeader))
	for i, h := range resultsHeader {
		header[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, e := range evals {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, RowFromEvaluation(e).cells()); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
