package classroom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/in-nis/classdash/internal/db"
	"github.com/in-nis/classdash/internal/models"
)

type fakeStore struct {
	classrooms  []models.Classroom
	evals       map[uint][]models.SelfEvaluation
	users       map[string]*models.User
	enrollments []models.Enrollment
	createErr   error
	enrollErr   error
	attempts    int
}

func (f *fakeStore) CreateClassroom(_ context.Context, c *models.Classroom) error {
	f.attempts++
	for _, existing := range f.classrooms {
		if existing.InvitationCode == c.InvitationCode {
			return fmt.Errorf("%w (classrooms_invitation_code_key): duplicate", db.ErrUniqueViolation)
		}
	}
	if f.createErr != nil {
		return f.createErr
	}
	c.ID = uint(len(f.classrooms) + 1)
	f.classrooms = append(f.classrooms, *c)
	return nil
}

func (f *fakeStore) ClassroomsByTeacher(_ context.Context, teacherID uint) ([]models.Classroom, error) {
	var out []models.Classroom
	for _, c := range f.classrooms {
		if c.TeacherID == teacherID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ClassroomForTeacher(_ context.Context, classroomID, teacherID uint) (*models.Classroom, error) {
	for _, c := range f.classrooms {
		if c.ID == classroomID && c.TeacherID == teacherID {
			c := c
			return &c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) ClassroomEvaluations(_ context.Context, classroomID uint) ([]models.SelfEvaluation, error) {
	return f.evals[classroomID], nil
}

func (f *fakeStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateEnrollment(_ context.Context, studentID, classroomID uint) error {
	if f.enrollErr != nil {
		return f.enrollErr
	}
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.ClassroomID == classroomID {
			return fmt.Errorf("%w (unique_enrollment)", db.ErrUniqueViolation)
		}
	}
	f.enrollments = append(f.enrollments, models.Enrollment{StudentID: studentID, ClassroomID: classroomID})
	return nil
}

func fixedCodes(codes ...string) func() (string, error) {
	return func() (string, error) {
		if len(codes) == 0 {
			return "", errors.New("no codes left")
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
}

func TestInvitationCode(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := InvitationCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestCreateRetriesOnCollision(t *testing.T) {
	store := &fakeStore{classrooms: []models.Classroom{{ID: 1, InvitationCode: "AAAAAA", TeacherID: 9}}}
	svc := NewService(store, zap.NewNop())
	svc.newCode = fixedCodes("AAAAAA", "BBBBBB")

	desc := "  Cell biology  "
	c, err := svc.Create(context.Background(), 3, " Biology ", &desc)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", c.InvitationCode)
	assert.Equal(t, "Biology", c.Name)
	require.NotNil(t, c.Description)
	assert.Equal(t, "Cell biology", *c.Description)
	assert.Equal(t, 2, store.attempts)
}

func TestCreateBlankDescription(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())

	blank := "   "
	c, err := svc.Create(context.Background(), 3, "Physics", &blank)
	require.NoError(t, err)
	assert.Nil(t, c.Description)
}

func TestCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := &fakeStore{classrooms: []models.Classroom{{ID: 1, InvitationCode: "AAAAAA"}}}
	svc := NewService(store, zap.NewNop())
	svc.newCode = func() (string, error) { return "AAAAAA", nil }

	_, err := svc.Create(context.Background(), 3, "Physics", nil)
	assert.ErrorIs(t, err, ErrCodeExhausted)
	assert.Equal(t, maxCodeTries, store.attempts)
}

func TestCreateStoreFailure(t *testing.T) {
	boom := errors.New("disk full")
	store := &fakeStore{createErr: boom}
	svc := NewService(store, zap.NewNop())

	_, err := svc.Create(context.Background(), 3, "Physics", nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.attempts)
}

func TestListEmpty(t *testing.T) {
	svc := NewService(&fakeStore{}, zap.NewNop())
	got, err := svc.List(context.Background(), 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExportResults(t *testing.T) {
	score := 91.0
	store := &fakeStore{
		classrooms: []models.Classroom{{ID: 1, Name: "Biology", TeacherID: 3}},
		evals: map[uint][]models.SelfEvaluation{
			1: {{
				Student:  &models.User{FirstName: "Ana", LastName: "Lee", Email: "ana@school.edu"},
				QuizType: "true_false",
				Score:    &score,
			}},
		},
	}
	svc := NewService(store, zap.NewNop())

	t.Run("owner", func(t *testing.T) {
		var buf bytes.Buffer
		c, err := svc.ExportResults(context.Background(), &buf, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, "Biology", c.Name)

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Results")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"Ana Lee", "ana@school.edu", "General", "True False", "91.0%", "In progress"}, rows[1])
	})

	t.Run("other teacher", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := svc.ExportResults(context.Background(), &buf, 1, 4)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Zero(t, buf.Len())
	})
}
