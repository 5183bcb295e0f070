package db

import (
	"context"

	"github.com/in-nis/classdash/internal/models"
)

func (s *Store) UserIDsByEmail(ctx context.Context, email string) ([]uint, error) {
	var ids []uint
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Limit(2).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}

func (s *Store) EnrolledClassroomIDs(ctx context.Context, studentID uint) ([]uint, error) {
	var ids []uint
	err := s.DB.WithContext(ctx).Model(&models.Enrollment{}).
		Where("student_id = ?", studentID).
		Pluck("classroom_id", &ids).Error
	if err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}

// ClassroomGraph loads the classrooms with evaluations and submissions
// restricted to the given student.
func (s *Store) ClassroomGraph(ctx context.Context, studentID uint, classroomIDs []uint) ([]models.Classroom, error) {
	var classrooms []models.Classroom
	err := s.DB.WithContext(ctx).
		Preload("Teacher").
		Preload("Materials").
		Preload("Quizzes").
		Preload("Quizzes.Evaluations", "student_id = ?", studentID).
		Preload("Assignments").
		Preload("Assignments.Submissions", "student_id = ?", studentID).
		Preload("Enrollments").
		Where("id IN ?", classroomIDs).
		Order("created_at DESC").
		Find(&classrooms).Error
	if err != nil {
		return nil, translateError(err)
	}
	return classrooms, nil
}

func (s *Store) AIEvaluations(ctx context.Context, classroomIDs []uint) ([]models.SelfEvaluation, error) {
	var evals []models.SelfEvaluation
	err := s.DB.WithContext(ctx).
		Preload("Material").
		Preload("Quiz").
		Where("is_ai_generated = ? AND classroom_id IN ?", true, classroomIDs).
		Order("created_at ASC").
		Find(&evals).Error
	if err != nil {
		return nil, translateError(err)
	}
	return evals, nil
}

func (s *Store) ClassroomIDsByInvitationCode(ctx context.Context, code string) ([]uint, error) {
	var ids []uint
	err := s.DB.WithContext(ctx).Model(&models.Classroom{}).
		Where("invitation_code = ?", code).
		Limit(2).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}

func (s *Store) CreateEnrollment(ctx context.Context, studentID, classroomID uint) error {
	e := models.Enrollment{StudentID: studentID, ClassroomID: classroomID}
	return translateError(s.DB.WithContext(ctx).Create(&e).Error)
}
