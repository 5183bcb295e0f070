package dashboard

import (
	"time"

	"github.com/in-nis/classdash/internal/models"
)

// Snapshot is the derived dashboard for one student. It is rebuilt on every
// fetch and never stored.
type Snapshot struct {
	Classrooms     []ClassroomView             `json:"classrooms"`
	AIQuizAwards   map[uint]map[uint]AwardInfo `json:"ai_quiz_awards"`
	ClassroomNames map[uint]string             `json:"classroom_names"`
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Classrooms:     []ClassroomView{},
		AIQuizAwards:   map[uint]map[uint]AwardInfo{},
		ClassroomNames: map[uint]string{},
	}
}

type TeacherProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type QuizStats struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

type AssignmentStats struct {
	ActiveNow int `json:"active_now"`
}

type QuizWithStatus struct {
	Quiz   models.Quiz `json:"quiz"`
	Status QuizStatus  `json:"status"`
}

type AssignmentWithStatus struct {
	Assignment models.Assignment `json:"assignment"`
	Status     AssignmentStatus  `json:"status"`
}

type ClassroomView struct {
	ID             uint           `json:"id"`
	Name           string         `json:"name"`
	Description    *string        `json:"description"`
	InvitationCode string         `json:"invitation_code"`
	CreatedAt      time.Time      `json:"created_at"`
	Teacher        TeacherProfile `json:"teacher"`
	EnrolledCount  int            `json:"enrolled_count"`

	MaterialsCount        int                    `json:"materials_count"`
	QuizStats             QuizStats              `json:"quiz_stats"`
	QuizzesWithStatus     []QuizWithStatus       `json:"quizzes_with_status"`
	AssignmentStats       AssignmentStats        `json:"assignment_stats"`
	AssignmentsWithStatus []AssignmentWithStatus `json:"assignments_with_status"`

	GoldMedalCount int `json:"gold_medal_count"`
	// Ranking is not implemented; both fields are always zero.
	NumStudentsInRanking int `json:"num_students_in_ranking"`
	GoldRank             int `json:"gold_rank"`

	TeacherFullName string `json:"teacher_full_name"`
}

type AwardInfo struct {
	MaterialTitle string  `json:"material_title"`
	Score         float64 `json:"score"`
	Attempts      int     `json:"attempts"`
	Award         string  `json:"award"`
}
