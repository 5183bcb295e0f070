package dashboard

import (
	"time"

	"github.com/in-nis/classdash/internal/models"
)

type QuizStatus string

const (
	QuizCompleted  QuizStatus = "Completed"
	QuizInProgress QuizStatus = "In Progress"
	QuizAvailable  QuizStatus = "Available"
	QuizUpcoming   QuizStatus = "Upcoming"
	QuizExpired    QuizStatus = "Expired"
	QuizNotTaken   QuizStatus = "Not Taken"
)

type AssignmentStatus string

const (
	AssignmentSubmitted    AssignmentStatus = "Submitted"
	AssignmentActive       AssignmentStatus = "Active"
	AssignmentExpired      AssignmentStatus = "Expired"
	AssignmentNotSubmitted AssignmentStatus = "Not Submitted"
)

// studentEvaluation returns the first evaluation of quiz q taken by the student.
func studentEvaluation(q models.Quiz, studentID uint) *models.SelfEvaluation {
	for i := range q.Evaluations {
		ev := &q.Evaluations[i]
		if ev.StudentID == studentID && ev.QuizID != nil && *ev.QuizID == q.ID {
			return ev
		}
	}
	return nil
}

// quizStatus derives the status of q for the student and applies it to stats.
func quizStatus(q models.Quiz, studentID uint, now time.Time, stats *QuizStats) QuizStatus {
	if ev := studentEvaluation(q, studentID); ev != nil {
		switch {
		case ev.CompletedAt != nil:
			stats.Completed++
			return QuizCompleted
		case ev.StartedAt != nil:
			stats.Pending++
			return QuizInProgress
		}
		return QuizNotTaken
	}

	if !q.Published {
		return QuizNotTaken
	}

	from, until := q.AvailableFrom, q.AvailableUntil
	switch {
	case (from == nil || !now.Before(*from)) && (until == nil || !now.After(*until)):
		stats.Pending++
		return QuizAvailable
	case from != nil && now.Before(*from):
		return QuizUpcoming
	case until != nil && now.After(*until):
		return QuizExpired
	}
	return QuizNotTaken
}

func assignmentStatus(a models.Assignment, studentID uint, now time.Time, stats *AssignmentStats) AssignmentStatus {
	for _, sub := range a.Submissions {
		if sub.StudentID == studentID {
			return AssignmentSubmitted
		}
	}

	if !a.Published {
		return AssignmentNotSubmitted
	}
	if a.Deadline != nil && now.After(*a.Deadline) {
		return AssignmentExpired
	}
	stats.ActiveNow++
	return AssignmentActive
}
