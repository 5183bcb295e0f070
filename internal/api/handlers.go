package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/in-nis/classdash/internal/auth"
	"github.com/in-nis/classdash/internal/classroom"
	"github.com/in-nis/classdash/internal/dashboard"
	"github.com/in-nis/classdash/internal/models"
	"github.com/in-nis/classdash/internal/respond"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Dashboard interface {
	FetchSnapshot(ctx context.Context, email string) (*dashboard.Snapshot, error)
	JoinClassroom(ctx context.Context, email, invitationCode string) error
}

type Classrooms interface {
	Create(ctx context.Context, teacherID uint, name string, description *string) (*models.Classroom, error)
	List(ctx context.Context, teacherID uint) ([]models.Classroom, error)
	ExportResults(ctx context.Context, w io.Writer, classroomID, teacherID uint) (*models.Classroom, error)
	AddStudent(ctx context.Context, classroomID, teacherID uint, email string) (*models.User, error)
	Results(ctx context.Context, classroomID, teacherID uint) (*models.Classroom, []classroom.StudentSummary, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	dashboard  Dashboard
	classrooms Classrooms
	db         Pinger
	log        *zap.Logger
}

// writeDashboardError maps the dashboard error taxonomy onto HTTP statuses.
func (h *Handler) writeDashboardError(c *gin.Context, err error) {
	var storeErr *dashboard.StoreError
	switch {
	case errors.Is(err, dashboard.ErrInvalidCode):
		respond.Error(c, http.StatusBadRequest, "Invalid invitation code")
	case errors.Is(err, dashboard.ErrNoSuchUser):
		respond.Error(c, http.StatusNotFound, "User not found")
	case errors.Is(err, dashboard.ErrAlreadyEnrolled):
		respond.Error(c, http.StatusConflict, "You are already enrolled in this classroom")
	case errors.As(err, &storeErr):
		h.log.Error("dashboard store failure", zap.String("op", storeErr.Op), zap.Error(storeErr.Err))
		respond.Error(c, http.StatusInternalServerError, "Failed to load dashboard data")
	default:
		h.log.Error("dashboard request failed", zap.Error(err))
		respond.Error(c, http.StatusInternalServerError, "Internal server error")
	}
}

// Health godoc
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("db ping failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "db_ping_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetDashboard godoc
// @Summary      Student dashboard
// @Description  Returns enrolled classrooms with quiz and assignment status, medal counts and AI quiz awards
// @Tags         student
// @Produce      json
// @Success      200  {object}  dashboard.Snapshot
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     BearerAuth
// @Router       /student/dashboard [get]
func (h *Handler) GetDashboard(c *gin.Context) {
	snap, err := h.dashboard.FetchSnapshot(c.Request.Context(), auth.CurrentSession(c).Email)
	if err != nil {
		h.writeDashboardError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type JoinClassroomRequest struct {
	InvitationCode string `json:"invitation_code" binding:"required,max=10"`
}

// JoinClassroom godoc
// @Summary      Join a classroom
// @Description  Enrolls the student in the classroom with the given invitation code
// @Tags         student
// @Accept       json
// @Produce      json
// @Param        body  body      JoinClassroomRequest  true  "Invitation code"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Security     BearerAuth
// @Router       /student/classrooms/join [post]
func (h *Handler) JoinClassroom(c *gin.Context) {
	var req JoinClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}

	if err := h.dashboard.JoinClassroom(c.Request.Context(), auth.CurrentSession(c).Email, req.InvitationCode); err != nil {
		h.writeDashboardError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Successfully joined classroom"})
}

type CreateClassroomRequest struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

// CreateClassroom godoc
// @Summary      Create a classroom
// @Tags         teacher
// @Accept       json
// @Produce      json
// @Param        body  body      CreateClassroomRequest  true  "Classroom"
// @Success      201   {object}  models.Classroom
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Security     BearerAuth
// @Router       /teacher/classrooms [post]
func (h *Handler) CreateClassroom(c *gin.Context) {
	var req CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}

	created, err := h.classrooms.Create(c.Request.Context(), auth.CurrentSession(c).UserID, req.Name, req.Description)
	if err != nil {
		h.log.Error("create classroom failed", zap.Error(err))
		respond.Error(c, http.StatusInternalServerError, "Failed to create classroom")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListClassrooms godoc
// @Summary      List own classrooms
// @Tags         teacher
// @Produce      json
// @Success      200  {array}   models.Classroom
// @Failure      500  {object}  map[string]string
// @Security     BearerAuth
// @Router       /teacher/classrooms [get]
func (h *Handler) ListClassrooms(c *gin.Context) {
	list, err := h.classrooms.List(c.Request.Context(), auth.CurrentSession(c).UserID)
	if err != nil {
		h.log.Error("list classrooms failed", zap.Error(err))
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch classrooms")
		return
	}
	c.JSON(http.StatusOK, list)
}

// ExportResults godoc
// @Summary      Export classroom results
// @Description  Downloads every self-evaluation in the classroom as an xlsx workbook
// @Tags         teacher
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id   path      int  true  "Classroom ID"
// @Success      200  {file}    file
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     BearerAuth
// @Router       /teacher/classrooms/{id}/results.xlsx [get]
func (h *Handler) ExportResults(c *gin.Context) {
	id, ok := classroomID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	room, err := h.classrooms.ExportResults(c.Request.Context(), &buf, id, auth.CurrentSession(c).UserID)
	if err != nil {
		if errors.Is(err, classroom.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "Classroom not found")
			return
		}
		h.log.Error("export results failed", zap.Uint("classroom_id", id), zap.Error(err))
		respond.Error(c, http.StatusInternalServerError, "Failed to export results")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", room.Name+"_results.xlsx"))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

type AddStudentRequest struct {
	StudentEmail string `json:"student_email" binding:"required,email"`
}

// AddStudent godoc
// @Summary      Add a student to a classroom
// @Description  Enrolls an existing student account, found by email, in one of the teacher's classrooms
// @Tags         teacher
// @Accept       json
// @Produce      json
// @Param        id    path      int                true  "Classroom ID"
// @Param        body  body      AddStudentRequest  true  "Student email"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Security     BearerAuth
// @Router       /teacher/classrooms/{id}/students [post]
func (h *Handler) AddStudent(c *gin.Context) {
	id, ok := classroomID(c)
	if !ok {
		return
	}
	var req AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}

	student, err := h.classrooms.AddStudent(c.Request.Context(), id, auth.CurrentSession(c).UserID, req.StudentEmail)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": fmt.Sprintf("Student %s added successfully", student.FullName())})
	case errors.Is(err, classroom.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "Classroom not found")
	case errors.Is(err, classroom.ErrStudentNotFound):
		respond.Error(c, http.StatusNotFound, "Student not found")
	case errors.Is(err, classroom.ErrAlreadyEnrolled):
		respond.Error(c, http.StatusConflict, "Student is already enrolled in this classroom")
	default:
		h.log.Error("add student failed", zap.Uint("classroom_id", id), zap.Error(err))
		respond.Error(c, http.StatusInternalServerError, "Failed to add student")
	}
}

type ResultsResponse struct {
	Classroom        *models.Classroom          `json:"classroom"`
	StudentSummaries []classroom.StudentSummary `json:"student_summaries"`
}

// Results godoc
// @Summary      Classroom results summary
// @Description  Per-student evaluation counts and average score, ordered by student name
// @Tags         teacher
// @Produce      json
// @Param        id   path      int  true  "Classroom ID"
// @Success      200  {object}  ResultsResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     BearerAuth
// @Router       /teacher/classrooms/{id}/results [get]
func (h *Handler) Results(c *gin.Context) {
	id, ok := classroomID(c)
	if !ok {
		return
	}

	room, summaries, err := h.classrooms.Results(c.Request.Context(), id, auth.CurrentSession(c).UserID)
	if err != nil {
		if errors.Is(err, classroom.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "Classroom not found")
			return
		}
		h.log.Error("load results failed", zap.Uint("classroom_id", id), zap.Error(err))
		respond.Error(c, http.StatusInternalServerError, "Failed to load results")
		return
	}
	c.JSON(http.StatusOK, ResultsResponse{Classroom: room, StudentSummaries: summaries})
}

// classroomID parses the :id path parameter and answers 400 when it is not
// a positive integer.
func classroomID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respond.Error(c, http.StatusBadRequest, "Invalid classroom id")
		return 0, false
	}
	return uint(id), true
}
