package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/in-nis/classdash/internal/models"
)

func readSheet(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{resultsSheet}, f.GetSheetList())
	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	return rows
}

func TestWriteResults(t *testing.T) {
	score := 86.27
	done := time.Date(2025, 3, 9, 14, 5, 0, 0, time.UTC)
	student := &models.User{FirstName: "Ana", LastName: "Lee", Email: "ana@school.edu"}

	evals := []models.SelfEvaluation{
		{
			Student:     student,
			Material:    &models.Material{Title: "Cells"},
			QuizType:    "multiple_choice",
			Score:       &score,
			CompletedAt: &done,
		},
		{
			Student:  student,
			QuizType: "flashcards",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, evals))

	rows := readSheet(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Student Name", "Student Email", "Material", "Quiz Type", "Score", "Date Completed"}, rows[0])
	assert.Equal(t, []string{"Ana Lee", "ana@school.edu", "Cells", "Multiple Choice", "86.3%", "2025-03-09 14:05"}, rows[1])
	assert.Equal(t, []string{"Ana Lee", "ana@school.edu", "General", "Flashcards", "Not scored", "In progress"}, rows[2])
}

func TestWriteResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, nil))

	rows := readSheet(t, buf.Bytes())
	require.Len(t, rows, 1)
}

func TestRowFromEvaluationZeroScore(t *testing.T) {
	zero := 0.0
	row := RowFromEvaluation(models.SelfEvaluation{Score: &zero})
	assert.Equal(t, "0.0%", row.Score)
	assert.Empty(t, row.StudentName)
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"multiple_choice", "Multiple Choice"},
		{"FLASHCARDS", "Flashcards"},
		{"élan_vital", "Élan Vital"},
		{"тест", "Тест"},
		{"  ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, titleCase(tt.in))
		})
	}
}
