package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/in-nis/classdash/internal/db"
	"github.com/in-nis/classdash/internal/models"
)

// Store is the read/insert surface the dashboard needs from the relational store.
type Store interface {
	// UserIDsByEmail returns at most two ids so that ambiguity can be detected.
	UserIDsByEmail(ctx context.Context, email string) ([]uint, error)
	EnrolledClassroomIDs(ctx context.Context, studentID uint) ([]uint, error)
	// ClassroomGraph loads classrooms with teacher, materials, quizzes with the
	// student's evaluations, assignments with the student's submissions and
	// enrollments, newest first.
	ClassroomGraph(ctx context.Context, studentID uint, classroomIDs []uint) ([]models.Classroom, error)
	// AIEvaluations returns AI-generated evaluations with material and quiz loaded.
	AIEvaluations(ctx context.Context, classroomIDs []uint) ([]models.SelfEvaluation, error)
	ClassroomIDsByInvitationCode(ctx context.Context, code string) ([]uint, error)
	// CreateEnrollment fails with db.ErrUniqueViolation when the pair exists.
	CreateEnrollment(ctx context.Context, studentID, classroomID uint) error
}

type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for availability windows and deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) resolveStudent(ctx context.Context, email string) (uint, error) {
	ids, err := s.store.UserIDsByEmail(ctx, email)
	if err != nil {
		return 0, storeErr("resolve user", err)
	}
	if len(ids) != 1 {
		return 0, ErrNoSuchUser
	}
	return ids[0], nil
}

// FetchSnapshot builds the dashboard for the student signed in as email.
// Any failure aborts the whole fetch.
func (s *Service) FetchSnapshot(ctx context.Context, email string) (*Snapshot, error) {
	studentID, err := s.resolveStudent(ctx, email)
	if err != nil {
		return nil, err
	}

	classroomIDs, err := s.store.EnrolledClassroomIDs(ctx, studentID)
	if err != nil {
		return nil, storeErr("list enrollments", err)
	}
	if len(classroomIDs) == 0 {
		return emptySnapshot(), nil
	}

	var (
		classrooms []models.Classroom
		aiEvals    []models.SelfEvaluation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.store.ClassroomGraph(gctx, studentID, classroomIDs)
		if err != nil {
			return storeErr("load classrooms", err)
		}
		classrooms = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.AIEvaluations(gctx, classroomIDs)
		if err != nil {
			return storeErr("load ai evaluations", err)
		}
		aiEvals = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Error("dashboard fetch failed", zap.Uint("student_id", studentID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	snap := &Snapshot{
		Classrooms:     make([]ClassroomView, 0, len(classrooms)),
		AIQuizAwards:   buildAwards(aiEvals),
		ClassroomNames: make(map[uint]string, len(classrooms)),
	}
	for _, c := range classrooms {
		view := buildClassroomView(c, studentID, aiEvals, now)
		snap.Classrooms = append(snap.Classrooms, view)
		snap.ClassroomNames[view.ID] = view.Name
	}

	s.log.Debug("dashboard built",
		zap.Uint("student_id", studentID),
		zap.Int("classrooms", len(snap.Classrooms)),
		zap.Int("ai_evaluations", len(aiEvals)),
	)
	return snap, nil
}

func buildClassroomView(c models.Classroom, studentID uint, aiEvals []models.SelfEvaluation, now time.Time) ClassroomView {
	view := ClassroomView{
		ID:                    c.ID,
		Name:                  c.Name,
		Description:           c.Description,
		InvitationCode:        c.InvitationCode,
		CreatedAt:             c.CreatedAt,
		Teacher:               TeacherProfile{FirstName: "N/A", LastName: "N/A"},
		TeacherFullName:       "N/A",
		EnrolledCount:         len(c.Enrollments),
		MaterialsCount:        len(c.Materials),
		QuizzesWithStatus:     make([]QuizWithStatus, 0, len(c.Quizzes)),
		AssignmentsWithStatus: make([]AssignmentWithStatus, 0, len(c.Assignments)),
		GoldMedalCount:        goldMedalCount(aiEvals, studentID, c.ID),
	}
	if c.Teacher != nil {
		view.Teacher = TeacherProfile{FirstName: c.Teacher.FirstName, LastName: c.Teacher.LastName}
		view.TeacherFullName = c.Teacher.FullName()
	}

	for _, q := range c.Quizzes {
		q.Evaluations = ownEvaluations(q.Evaluations, studentID)
		status := quizStatus(q, studentID, now, &view.QuizStats)
		view.QuizzesWithStatus = append(view.QuizzesWithStatus, QuizWithStatus{Quiz: q, Status: status})
	}
	for _, a := range c.Assignments {
		a.Submissions = ownSubmissions(a.Submissions, studentID)
		status := assignmentStatus(a, studentID, now, &view.AssignmentStats)
		view.AssignmentsWithStatus = append(view.AssignmentsWithStatus, AssignmentWithStatus{Assignment: a, Status: status})
	}
	return view
}

// ownEvaluations keeps only the viewing student's rows; classmates' scores
// never reach the snapshot.
func ownEvaluations(evals []models.SelfEvaluation, studentID uint) []models.SelfEvaluation {
	out := make([]models.SelfEvaluation, 0, 1)
	for _, e := range evals {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out
}

func ownSubmissions(subs []models.AssignmentSubmission, studentID uint) []models.AssignmentSubmission {
	out := make([]models.AssignmentSubmission, 0, 1)
	for _, sub := range subs {
		if sub.StudentID == studentID {
			out = append(out, sub)
		}
	}
	return out
}

// NormalizeInvitationCode trims and upper-cases a code as typed by a student.
func NormalizeInvitationCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// JoinClassroom enrolls the student signed in as email into the classroom
// with the given invitation code.
func (s *Service) JoinClassroom(ctx context.Context, email, invitationCode string) error {
	code := NormalizeInvitationCode(invitationCode)
	if code == "" {
		return ErrInvalidCode
	}

	classroomIDs, err := s.store.ClassroomIDsByInvitationCode(ctx, code)
	if err != nil {
		s.log.Error("invitation code lookup failed", zap.String("code", code), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrInvalidCode, err)
	}
	if len(classroomIDs) != 1 {
		return ErrInvalidCode
	}
	classroomID := classroomIDs[0]

	studentID, err := s.resolveStudent(ctx, email)
	if err != nil {
		return err
	}

	if err := s.store.CreateEnrollment(ctx, studentID, classroomID); err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return storeErr("create enrollment", ErrAlreadyEnrolled)
		}
		return storeErr("create enrollment", err)
	}

	s.log.Info("student joined classroom", zap.Uint("student_id", studentID), zap.Uint("classroom_id", classroomID))
	return nil
}
