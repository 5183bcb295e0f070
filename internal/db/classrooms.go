package db

import (
	"context"

	"github.com/in-nis/classdash/internal/models"
)

func (s *Store) CreateClassroom(ctx context.Context, c *models.Classroom) error {
	return translateError(s.DB.WithContext(ctx).Create(c).Error)
}

func (s *Store) ClassroomsByTeacher(ctx context.Context, teacherID uint) ([]models.Classroom, error) {
	var classrooms []models.Classroom
	err := s.DB.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&classrooms).Error
	if err != nil {
		return nil, translateError(err)
	}
	return classrooms, nil
}

func (s *Store) ClassroomForTeacher(ctx context.Context, classroomID, teacherID uint) (*models.Classroom, error) {
	var c models.Classroom
	err := s.DB.WithContext(ctx).
		Where("id = ? AND teacher_id = ?", classroomID, teacherID).
		First(&c).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// ClassroomEvaluations returns every evaluation in a classroom with student and material loaded.
func (s *Store) ClassroomEvaluations(ctx context.Context, classroomID uint) ([]models.SelfEvaluation, error) {
	var evals []models.SelfEvaluation
	err := s.DB.WithContext(ctx).
		Preload("Student").
		Preload("Material").
		Where("classroom_id = ?", classroomID).
		Order("created_at DESC").
		Find(&evals).Error
	if err != nil {
		return nil, translateError(err)
	}
	return evals, nil
}
