package classroom

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/in-nis/classdash/internal/db"
	"github.com/in-nis/classdash/internal/excel"
	"github.com/in-nis/classdash/internal/models"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	maxCodeTries = 5
)

var (
	ErrNotFound        = errors.New("classroom not found")
	ErrCodeExhausted   = errors.New("could not generate a unique invitation code")
	ErrStudentNotFound = errors.New("student not found")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this classroom")
)

type Store interface {
	CreateClassroom(ctx context.Context, c *models.Classroom) error
	ClassroomsByTeacher(ctx context.Context, teacherID uint) ([]models.Classroom, error)
	// ClassroomForTeacher fails with db.ErrNotFound unless the classroom
	// exists and belongs to the teacher.
	ClassroomForTeacher(ctx context.Context, classroomID, teacherID uint) (*models.Classroom, error)
	ClassroomEvaluations(ctx context.Context, classroomID uint) ([]models.SelfEvaluation, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateEnrollment fails with db.ErrUniqueViolation for a duplicate pair.
	CreateEnrollment(ctx context.Context, studentID, classroomID uint) error
}

type Service struct {
	store   Store
	log     *zap.Logger
	newCode func() (string, error)
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, newCode: InvitationCode}
}

// InvitationCode returns a random code of six characters from A-Z and 0-9.
func InvitationCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Create stores a new classroom owned by the teacher. Invitation code
// collisions are retried with a fresh code.
func (s *Service) Create(ctx context.Context, teacherID uint, name string, description *string) (*models.Classroom, error) {
	if description != nil {
		d := strings.TrimSpace(*description)
		if d == "" {
			description = nil
		} else {
			description = &d
		}
	}

	for attempt := 1; attempt <= maxCodeTries; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate invitation code: %w", err)
		}

		c := &models.Classroom{
			Name:           strings.TrimSpace(name),
			Description:    description,
			InvitationCode: code,
			TeacherID:      teacherID,
		}
		err = s.store.CreateClassroom(ctx, c)
		if err == nil {
			s.log.Info("classroom created",
				zap.Uint("classroom_id", c.ID),
				zap.Uint("teacher_id", teacherID),
				zap.String("code", code))
			return c, nil
		}
		if !errors.Is(err, db.ErrUniqueViolation) {
			return nil, fmt.Errorf("create classroom: %w", err)
		}
		s.log.Warn("invitation code collision", zap.String("code", code), zap.Int("attempt", attempt))
	}
	return nil, ErrCodeExhausted
}

func (s *Service) List(ctx context.Context, teacherID uint) ([]models.Classroom, error) {
	classrooms, err := s.store.ClassroomsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	if classrooms == nil {
		classrooms = []models.Classroom{}
	}
	return classrooms, nil
}

// ExportResults writes the classroom's evaluations as an xlsx workbook and
// returns the classroom so callers can name the download.
func (s *Service) ExportResults(ctx context.Context, w io.Writer, classroomID, teacherID uint) (*models.Classroom, error) {
	c, err := s.owned(ctx, classroomID, teacherID)
	if err != nil {
		return nil, err
	}

	evals, err := s.store.ClassroomEvaluations(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load evaluations: %w", err)
	}
	if err := excel.WriteResults(w, evals); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.log.Info("results exported",
		zap.Uint("classroom_id", c.ID),
		zap.Int("rows", len(evals)))
	return c, nil
}

// owned loads the classroom, hiding classrooms of other teachers behind
// ErrNotFound.
func (s *Service) owned(ctx context.Context, classroomID, teacherID uint) (*models.Classroom, error) {
	c, err := s.store.ClassroomForTeacher(ctx, classroomID, teacherID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load classroom: %w", err)
	}
	return c, nil
}
