package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/in-nis/classdash/internal/db"
	"github.com/in-nis/classdash/internal/models"
)

type fakeStore struct {
	mu sync.Mutex

	users       map[string][]uint
	enrollments []models.Enrollment
	classrooms  []models.Classroom
	aiEvals     []models.SelfEvaluation
	codes       map[string][]uint

	errUsers     error
	errEnroll    error
	errGraph     error
	errAI        error
	errCode      error
	errCreate    error
	graphCalls   int
	createdPairs int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[string][]uint{},
		codes: map[string][]uint{},
	}
}

func (f *fakeStore) UserIDsByEmail(_ context.Context, email string) ([]uint, error) {
	if f.errUsers != nil {
		return nil, f.errUsers
	}
	return f.users[email], nil
}

func (f *fakeStore) EnrolledClassroomIDs(_ context.Context, studentID uint) ([]uint, error) {
	if f.errEnroll != nil {
		return nil, f.errEnroll
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uint
	for _, e := range f.enrollments {
		if e.StudentID == studentID {
			ids = append(ids, e.ClassroomID)
		}
	}
	return ids, nil
}

func (f *fakeStore) ClassroomGraph(_ context.Context, _ uint, ids []uint) ([]models.Classroom, error) {
	f.mu.Lock()
	f.graphCalls++
	f.mu.Unlock()
	if f.errGraph != nil {
		return nil, f.errGraph
	}
	var out []models.Classroom
	for _, c := range f.classrooms {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) AIEvaluations(_ context.Context, ids []uint) ([]models.SelfEvaluation, error) {
	if f.errAI != nil {
		return nil, f.errAI
	}
	var out []models.SelfEvaluation
	for _, ev := range f.aiEvals {
		for _, id := range ids {
			if ev.ClassroomID == id {
				out = append(out, ev)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ClassroomIDsByInvitationCode(_ context.Context, code string) ([]uint, error) {
	if f.errCode != nil {
		return nil, f.errCode
	}
	return f.codes[code], nil
}

func (f *fakeStore) CreateEnrollment(_ context.Context, studentID, classroomID uint) error {
	if f.errCreate != nil {
		return f.errCreate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.ClassroomID == classroomID {
			return fmt.Errorf("%w (unique_enrollment)", db.ErrUniqueViolation)
		}
	}
	f.enrollments = append(f.enrollments, models.Enrollment{StudentID: studentID, ClassroomID: classroomID})
	f.createdPairs++
	return nil
}

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrUint(v uint) *uint           { return &v }
func ptrFloat(v float64) *float64    { return &v }

func newTestService(store Store) *Service {
	return NewService(store, zap.NewNop(), WithClock(func() time.Time { return now }))
}

// seedStudent creates student 7 enrolled in classroom 1 with a single
// published quiz that is available now.
func seedStudent() *fakeStore {
	store := newFakeStore()
	store.users["ana@school.edu"] = []uint{7}
	store.codes["ABC123"] = []uint{1}
	store.enrollments = []models.Enrollment{{StudentID: 7, ClassroomID: 1}}
	store.classrooms = []models.Classroom{{
		ID:             1,
		Name:           "Biology",
		InvitationCode: "ABC123",
		Teacher:        &models.User{FirstName: "Rosa", LastName: "Franklin"},
		Materials:      []models.Material{{ID: 11, Title: "Cells"}, {ID: 12, Title: "DNA"}},
		Quizzes: []models.Quiz{{
			ID:        100,
			Title:     "Cells quiz",
			Published: true,
		}},
		Enrollments: []models.Enrollment{{StudentID: 7, ClassroomID: 1}},
	}}
	return store
}

func TestFetchSnapshot_AvailableQuizCountsPending(t *testing.T) {
	store := seedStudent()
	svc := newTestService(store)

	snap, err := svc.FetchSnapshot(context.Background(), "ana@school.edu")
	require.NoError(t, err)
	require.Len(t, snap.Classrooms, 1)

	c := snap.Classrooms[0]
	assert.Equal(t, 1, c.QuizStats.Pending)
	assert.Equal(t, 0, c.QuizStats.Completed)
	require.Len(t, c.QuizzesWithStatus, 1)
	assert.Equal(t, QuizAvailable, c.QuizzesWithStatus[0].Status)
	assert.Equal(t, 2, c.MaterialsCount)
	assert.Equal(t, "Rosa Franklin", c.TeacherFullName)
	assert.Equal(t, map[uint]string{1: "Biology"}, snap.ClassroomNames)
}

func TestFetchSnapshot_HidesClassmatesRows(t *testing.T) {
	store := seedStudent()
	c := &store.classrooms[0]
	c.Quizzes[0].Evaluations = []models.SelfEvaluation{
		{ID: 500, StudentID: 99, ClassroomID: 1, QuizID: ptrUint(100), Score: ptrFloat(42), CompletedAt: ptrTime(now.Add(-time.Hour))},
		{ID: 501, StudentID: 7, ClassroomID: 1, QuizID: ptrUint(100), StartedAt: ptrTime(now.Add(-time.Minute))},
	}
	c.Assignments = []models.Assignment{{
		ID:    300,
		Title: "Essay",
		Submissions: []models.AssignmentSubmission{
			{ID: 600, AssignmentID: 300, StudentID: 99, Grade: ptrFloat(13)},
		},
	}}
	c.Enrollments = append(c.Enrollments, models.Enrollment{StudentID: 99, ClassroomID: 1})

	snap, err := newTestService(store).FetchSnapshot(context.Background(), "ana@school.edu")
	require.NoError(t, err)

	view := snap.Classrooms[0]
	require.Len(t, view.QuizzesWithStatus, 1)
	evals := view.QuizzesWithStatus[0].Quiz.Evaluations
	require.Len(t, evals, 1)
	assert.Equal(t, uint(7), evals[0].StudentID)
	// the classmate's completed attempt must not mark the quiz completed
	assert.Equal(t, QuizInProgress, view.QuizzesWithStatus[0].Status)
	require.Len(t, view.AssignmentsWithStatus, 1)
	assert.Empty(t, view.AssignmentsWithStatus[0].Assignment.Submissions)
	assert.Equal(t, 2, view.EnrolledCount)

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	body := string(raw)
	assert.NotContains(t, body, `"student_id":99`)
	assert.NotContains(t, body, `"score":42`)
	assert.NotContains(t, body, `"grade":13`)
	assert.NotContains(t, body, `"id":500`)
}

func TestFetchSnapshot_CompletedQuizAfterRefetch(t *testing.T) {
	store := seedStudent()
	svc := newTestService(store)

	_, err := svc.FetchSnapshot(context.Background(), "ana@school.edu")
	require.NoError(t, err)

	store.classrooms[0].Quizzes[0].Evaluations = []models.SelfEvaluation{{
		StudentID:   7,
		ClassroomID: 1,
		QuizID:      ptrUint(100),
		StartedAt:   ptrTime(now.Add(-time.Hour)),
		CompletedAt: ptrTime(now.Add(-30 * time.Minute)),
	}}

	snap, err := svc.FetchSnapshot(context.Background(), "ana@school.edu")
	require.NoError(t, err)

	c := snap.Classrooms[0]
	assert.Equal(t, QuizStats{Pending: 0, Completed: 1}, c.QuizStats)
	assert.Equal(t, QuizCompleted, c.QuizzesWithStatus[0].Status)
}

func TestFetchSnapshot_NoEnrollments(t *testing.T) {
	store := newFakeStore()
	store.users["new@school.edu"] = []uint{3}
	svc := newTestService(store)

	snap, err := svc.FetchSnapshot(context.Background(), "new@school.edu")
	require.NoError(t, err)

	assert.NotNil(t, snap.Classrooms)
	assert.Empty(t, snap.Classrooms)
	assert.Empty(t, snap.AIQuizAwards)
	assert.Empty(t, snap.ClassroomNames)
	assert.Zero(t, store.graphCalls)
}

func TestFetchSnapshot_IdentityLookup(t *testing.T) {
	t.Run("no such user", func(t *testing.T) {
		svc := newTestService(newFakeStore())
		_, err := svc.FetchSnapshot(context.Background(), "ghost@school.edu")
		assert.ErrorIs(t, err, ErrNoSuchUser)
		assert.ErrorIs(t, err, ErrLookup)
	})

	t.Run("ambiguous user", func(t *testing.T) {
		store := newFakeStore()
		store.users["twin@school.edu"] = []uint{1, 2}
		_, err := newTestService(store).FetchSnapshot(context.Background(), "twin@school.edu")
		assert.ErrorIs(t, err, ErrLookup)
	})

	t.Run("query failure is a store error", func(t *testing.T) {
		store := newFakeStore()
		cause := errors.New("connection reset")
		store.errUsers = cause
		_, err := newTestService(store).FetchSnapshot(context.Background(), "ana@school.edu")

		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrLookup)
	})
}

func TestFetchSnapshot_StoreFailuresAbort(t *testing.T) {
	cause := errors.New("timeout")
	cases := map[string]func(*fakeStore){
		"enrollments": func(f *fakeStore) { f.errEnroll = cause },
		"graph":       func(f *fakeStore) { f.errGraph = cause },
		"ai awards":   func(f *fakeStore) { f.errAI = cause },
	}
	for name, breakStore := range cases {
		t.Run(name, func(t *testing.T) {
			store := seedStudent()
			breakStore(store)

			snap, err := newTestService(store).FetchSnapshot(context.Background(), "ana@school.edu")
			assert.Nil(t, snap)
			var se *StoreError
			require.ErrorAs(t, err, &se)
			assert.ErrorIs(t, err, cause)
		})
	}
}

func TestFetchSnapshot_Awards(t *testing.T) {
	store := seedStudent()
	store.classrooms[0].Materials = append(store.classrooms[0].Materials, models.Material{ID: 13, Title: "Genes"})
	store.aiEvals = []models.SelfEvaluation{
		{StudentID: 7, ClassroomID: 1, MaterialID: ptrUint(11), Score: ptrFloat(92), Material: &models.Material{Title: "Cells"}},
		{StudentID: 7, ClassroomID: 1, MaterialID: ptrUint(12), Score: ptrFloat(67), Material: &models.Material{Title: "DNA"}},
		{StudentID: 7, ClassroomID: 1, MaterialID: ptrUint(13), Score: nil},
		// no material: skipped in awards and gold count
		{StudentID: 7, ClassroomID: 1, Score: ptrFloat(99)},
		// another student's gold still appears in the lookup
		{StudentID: 8, ClassroomID: 1, MaterialID: ptrUint(11), Score: ptrFloat(85), Material: &models.Material{Title: "Cells"}},
	}

	snap, err := newTestService(store).FetchSnapshot(context.Background(), "ana@school.edu")
	require.NoError(t, err)

	c := snap.Classrooms[0]
	assert.Equal(t, 1, c.GoldMedalCount)
	assert.Zero(t, c.NumStudentsInRanking)
	assert.Zero(t, c.GoldRank)

	awards := snap.AIQuizAwards[1]
	require.Len(t, awards, 3)
	assert.Equal(t, AwardInfo{MaterialTitle: "Cells", Score: 85, Attempts: 1, Award: AwardGold}, awards[11])
	assert.Equal(t, AwardInfo{MaterialTitle: "DNA", Score: 67, Attempts: 1, Award: AwardSilver}, awards[12])
	assert.Equal(t, AwardInfo{MaterialTitle: "Unknown Material", Score: 0, Attempts: 1, Award: AwardBronze}, awards[13])
}

func TestFetchSnapshot_MissingTeacher(t *testing.T) {
	store := seedStudent()
	store.classrooms[0].Teacher = nil

	snap, err := newTestService(store).FetchSnapshot(context.Background(), "ana@school.edu")
	require.NoError(t, err)

	c := snap.Classrooms[0]
	assert.Equal(t, "N/A", c.TeacherFullName)
	assert.Equal(t, TeacherProfile{FirstName: "N/A", LastName: "N/A"}, c.Teacher)
}

func TestJoinClassroom(t *testing.T) {
	t.Run("joins and is visible on refetch", func(t *testing.T) {
		store := seedStudent()
		store.enrollments = nil
		svc := newTestService(store)

		require.NoError(t, svc.JoinClassroom(context.Background(), "ana@school.edu", " abc123 "))

		snap, err := svc.FetchSnapshot(context.Background(), "ana@school.edu")
		require.NoError(t, err)
		assert.Len(t, snap.Classrooms, 1)
	})

	t.Run("already enrolled", func(t *testing.T) {
		store := seedStudent()
		svc := newTestService(store)

		err := svc.JoinClassroom(context.Background(), "ana@school.edu", "ABC123")
		assert.ErrorIs(t, err, ErrAlreadyEnrolled)
		var se *StoreError
		assert.ErrorAs(t, err, &se)
		assert.Len(t, store.enrollments, 1)
		assert.Zero(t, store.createdPairs)
	})

	t.Run("unknown code", func(t *testing.T) {
		err := newTestService(seedStudent()).JoinClassroom(context.Background(), "ana@school.edu", "ZZZZZZ")
		assert.ErrorIs(t, err, ErrInvalidCode)
		assert.ErrorIs(t, err, ErrLookup)
	})

	t.Run("empty code", func(t *testing.T) {
		err := newTestService(seedStudent()).JoinClassroom(context.Background(), "ana@school.edu", "   ")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("code lookup failure", func(t *testing.T) {
		store := seedStudent()
		boom := errors.New("boom")
		store.errCode = boom
		err := newTestService(store).JoinClassroom(context.Background(), "ana@school.edu", "ABC123")
		assert.ErrorIs(t, err, ErrInvalidCode)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown student", func(t *testing.T) {
		err := newTestService(seedStudent()).JoinClassroom(context.Background(), "ghost@school.edu", "ABC123")
		assert.ErrorIs(t, err, ErrNoSuchUser)
	})

	t.Run("other insert failures stay generic", func(t *testing.T) {
		store := seedStudent()
		store.enrollments = nil
		store.errCreate = errors.New("disk full")
		err := newTestService(store).JoinClassroom(context.Background(), "ana@school.edu", "ABC123")

		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.NotErrorIs(t, err, ErrAlreadyEnrolled)
	})
}
