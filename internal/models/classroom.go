package models

import "time"

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"size:20;not null" json:"role"` // "student" or "teacher"
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100;not null" json:"last_name"`
	GoogleID     string    `gorm:"index" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Classroom struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:200;not null" json:"name"`
	Description    *string   `json:"description"`
	InvitationCode string    `gorm:"size:10;uniqueIndex;not null" json:"invitation_code"`
	TeacherID      uint      `gorm:"not null;index" json:"-"`
	CreatedAt      time.Time `json:"created_at"`

	Teacher     *User        `gorm:"foreignKey:TeacherID" json:"teacher"`
	Materials   []Material   `gorm:"constraint:OnDelete:CASCADE;" json:"material"`
	Quizzes     []Quiz       `gorm:"constraint:OnDelete:CASCADE;" json:"quiz"`
	Assignments []Assignment `gorm:"constraint:OnDelete:CASCADE;" json:"assignment"`
	Enrollments []Enrollment `gorm:"constraint:OnDelete:CASCADE;" json:"enrollment"`
}

// Enrollment is unique per (classroom, student); the store rejects duplicates.
type Enrollment struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	ClassroomID uint      `gorm:"not null;uniqueIndex:unique_enrollment" json:"classroom_id"`
	StudentID   uint      `gorm:"not null;uniqueIndex:unique_enrollment;index" json:"student_id"`
	EnrolledAt  time.Time `gorm:"autoCreateTime" json:"enrolled_at"`
}

type Material struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClassroomID uint      `gorm:"not null;index" json:"-"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Content     string    `json:"-"`
	FilePath    string    `gorm:"size:500" json:"-"`
	FileType    string    `gorm:"size:50" json:"-"`
	UploadedAt  time.Time `gorm:"autoCreateTime" json:"-"`
}

type Quiz struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ClassroomID      uint       `gorm:"not null;index" json:"-"`
	TeacherID        uint       `gorm:"not null" json:"-"`
	Title            string     `gorm:"size:200;not null" json:"title"`
	QuizType         string     `gorm:"size:20" json:"-"`
	TimeLimitMinutes *int       `json:"time_limit_minutes"`
	PassingScore     float64    `gorm:"default:60" json:"passing_score"`
	Published        bool       `gorm:"default:false" json:"published"`
	AvailableFrom    *time.Time `json:"available_from"`
	AvailableUntil   *time.Time `json:"available_until"`
	CreatedAt        time.Time  `json:"-"`

	Evaluations []SelfEvaluation `gorm:"foreignKey:QuizID" json:"evaluations"`
}

// SelfEvaluation is one attempt. Completion is derived from the timestamps.
type SelfEvaluation struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	StudentID     uint       `gorm:"not null;index" json:"student_id"`
	ClassroomID   uint       `gorm:"not null;index" json:"classroom_id"`
	MaterialID    *uint      `gorm:"index" json:"material_id"`
	QuizID        *uint      `gorm:"index" json:"quiz_id"`
	QuizType      string     `gorm:"size:20" json:"quiz_type"`
	Score         *float64   `json:"score"`
	IsAIGenerated bool       `gorm:"column:is_ai_generated;default:true" json:"is_ai_generated"`
	StartedAt     *time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"-"`

	Student  *User     `gorm:"foreignKey:StudentID" json:"-"`
	Material *Material `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	Quiz     *Quiz     `gorm:"foreignKey:QuizID" json:"quiz,omitempty"`
}

type Assignment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ClassroomID uint       `gorm:"not null;index" json:"-"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Deadline    *time.Time `json:"deadline"`
	Published   bool       `gorm:"default:false" json:"published"`

	Submissions []AssignmentSubmission `json:"submissions"`
}

type AssignmentSubmission struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	AssignmentID uint      `gorm:"not null;index" json:"assignment_id"`
	StudentID    uint      `gorm:"not null;index" json:"student_id"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Grade        *float64  `json:"grade"`
}

// RevokedToken holds the jti of a signed-out token until it would have expired anyway.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"`
	TokenID   string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
