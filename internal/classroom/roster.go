package classroom

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/in-nis/classdash/internal/db"
	"github.com/in-nis/classdash/internal/models"
)

// AddStudent enrolls the student with the given email in a classroom the
// teacher owns and returns the enrolled student.
func (s *Service) AddStudent(ctx context.Context, classroomID, teacherID uint, email string) (*models.User, error) {
	c, err := s.owned(ctx, classroomID, teacherID)
	if err != nil {
		return nil, err
	}

	student, err := s.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("load student: %w", err)
	}
	if student.Role != models.RoleStudent {
		return nil, ErrStudentNotFound
	}

	if err := s.store.CreateEnrollment(ctx, student.ID, c.ID); err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("create enrollment: %w", err)
	}

	s.log.Info("student added",
		zap.Uint("classroom_id", c.ID),
		zap.Uint("student_id", student.ID),
		zap.Uint("teacher_id", teacherID))
	return student, nil
}

// StudentSummary aggregates one student's evaluations in a classroom.
type StudentSummary struct {
	StudentID          uint     `json:"student_id"`
	StudentName        string   `json:"student_name"`
	StudentEmail       string   `json:"student_email"`
	TotalEvaluations   int      `json:"total_evaluations"`
	CompletedCount     int      `json:"completed_count"`
	InProgressCount    int      `json:"in_progress_count"`
	MaterialsAttempted int      `json:"materials_attempted"`
	AvgScore           *float64 `json:"avg_score"`
}

// Results summarizes the classroom's evaluations per student, ordered by
// student name. An evaluation counts as completed only when it has both a
// completion time and a score.
func (s *Service) Results(ctx context.Context, classroomID, teacherID uint) (*models.Classroom, []StudentSummary, error) {
	c, err := s.owned(ctx, classroomID, teacherID)
	if err != nil {
		return nil, nil, err
	}

	evals, err := s.store.ClassroomEvaluations(ctx, c.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load evaluations: %w", err)
	}
	return c, summarize(evals), nil
}

func summarize(evals []models.SelfEvaluation) []StudentSummary {
	type acc struct {
		summary   StudentSummary
		materials map[uint]struct{}
		scoreSum  float64
	}

	byStudent := make(map[uint]*acc)
	for _, e := range evals {
		a, ok := byStudent[e.StudentID]
		if !ok {
			a = &acc{
				summary:   StudentSummary{StudentID: e.StudentID},
				materials: make(map[uint]struct{}),
			}
			if e.Student != nil {
				a.summary.StudentName = e.Student.FullName()
				a.summary.StudentEmail = e.Student.Email
			}
			byStudent[e.StudentID] = a
		}

		a.summary.TotalEvaluations++
		if e.MaterialID != nil {
			a.materials[*e.MaterialID] = struct{}{}
		}
		if e.CompletedAt != nil && e.Score != nil {
			a.summary.CompletedCount++
			a.scoreSum += *e.Score
		}
	}

	out := make([]StudentSummary, 0, len(byStudent))
	for _, a := range byStudent {
		sum := a.summary
		sum.InProgressCount = sum.TotalEvaluations - sum.CompletedCount
		sum.MaterialsAttempted = len(a.materials)
		if sum.CompletedCount > 0 {
			avg := a.scoreSum / float64(sum.CompletedCount)
			sum.AvgScore = &avg
		}
		out = append(out, sum)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentName != out[j].StudentName {
			return out[i].StudentName < out[j].StudentName
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}
