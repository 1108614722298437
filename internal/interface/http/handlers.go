package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/academy-hub/academy-lms/internal/application/command"
	"github.com/academy-hub/academy-lms/internal/application/query"
	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/lesson"
	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Academy LMS API",
		"version":     "v1",
		"description": "REST API for course scheduling, enrollment, and attendance tracking",
		"endpoints": map[string]string{
			"health":     "/health",
			"users":      "/api/v1/users",
			"courses":    "/api/v1/courses",
			"lessons":    "/api/v1/lessons",
			"attendance": "/api/v1/attendance",
			"dashboard":  "/api/v1/dashboard",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createUserRequest struct {
	ActorID   string `json:"actor_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// handleCreateUser handles POST /api/v1/users
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if s.deps.CreateUserHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "User handler not configured")
		return
	}

	var req createUserRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.CreateUserCommand{
		ActorID:   req.ActorID,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      reference.Role(req.Role),
	}

	result, err := s.deps.CreateUserHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.respondDomainError(w, r, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleGetDashboard handles GET /api/v1/dashboard
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetDashboardHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Dashboard handler not configured")
		return
	}

	q := query.GetDashboardQuery{
		UserID: getQueryParam(r, "user_id", ""),
		Role:   reference.Role(getQueryParam(r, "role", "")),
	}

	result, err := s.deps.GetDashboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.respondDomainError(w, r, err, "failed to get dashboard")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type courseRequest struct {
	ActorID   string `json:"actor_id"`
	Name      string `json:"name"`
	Level     string `json:"level"`
	RoomID    string `json:"room_id"`
	ShiftID   string `json:"shift_id"`
	TeacherID string `json:"teacher_id"`
}

// handleCreateCourse handles POST /api/v1/courses
func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	if s.deps.CreateCourseHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Course handler not configured")
		return
	}

	var req courseRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.CreateCourseCommand{
		ActorID:   req.ActorID,
		Name:      req.Name,
		Level:     reference.Level(req.Level),
		RoomID:    req.RoomID,
		ShiftID:   req.ShiftID,
		TeacherID: req.TeacherID,
	}

	result, err := s.deps.CreateCourseHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.respondDomainError(w, r, err, "failed to create course")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleUpdateCourse handles PUT /api/v1/courses/{id}
func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")
	if courseID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Course ID is required")
		return
	}

	if s.deps.UpdateCourseHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Course handler not configured")
		return
	}

	var req courseRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.UpdateCourseCommand{
		ActorID:   req.ActorID,
		CourseID:  courseID,
		Name:      req.Name,
		Level:     reference.Level(req.Level),
		RoomID:    req.RoomID,
		ShiftID:   req.ShiftID,
		TeacherID: req.TeacherID,
	}

	if err := s.deps.UpdateCourseHandler.Handle(r.Context(), cmd); err != nil {
		s.respondDomainError(w, r, err, "failed to update course")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"course_id": courseID, "status": "updated"})
}

type deactivateCourseRequest struct {
	ActorID string `json:"actor_id"`
}

// handleDeactivateCourse handles DELETE /api/v1/courses/{id}
func (s *Server) handleDeactivateCourse(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")
	if courseID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Course ID is required")
		return
	}

	if s.deps.DeactivateCourseHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Course handler not configured")
		return
	}

	var req deactivateCourseRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.DeactivateCourseCommand{
		ActorID:  req.ActorID,
		CourseID: courseID,
	}

	if err := s.deps.DeactivateCourseHandler.Handle(r.Context(), cmd); err != nil {
		s.respondDomainError(w, r, err, "failed to deactivate course")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"course_id": courseID, "status": "deactivated"})
}

// handleGetCourseRoster handles GET /api/v1/courses/{id}/roster
func (s *Server) handleGetCourseRoster(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")
	if courseID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Course ID is required")
		return
	}

	if s.deps.GetCourseRosterHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Roster handler not configured")
		return
	}

	result, err := s.deps.GetCourseRosterHandler.Handle(r.Context(), query.GetCourseRosterQuery{CourseID: courseID})
	if err != nil {
		s.respondDomainError(w, r, err, "failed to get course roster")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetSlot handles GET /api/v1/slots?room_id=X&shift_id=Y
func (s *Server) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetSlotHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Slot handler not configured")
		return
	}

	q := query.GetSlotQuery{
		RoomID:  getQueryParam(r, "room_id", ""),
		ShiftID: getQueryParam(r, "shift_id", ""),
	}

	result, err := s.deps.GetSlotHandler.Handle(r.Context(), q)
	if err != nil {
		s.respondDomainError(w, r, err, "failed to probe slot")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetTeacherCourses handles GET /api/v1/teachers/{id}/courses
func (s *Server) handleGetTeacherCourses(w http.ResponseWriter, r *http.Request) {
	teacherID := r.PathValue("id")
	if teacherID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Teacher ID is required")
		return
	}

	if s.deps.GetTeacherCoursesHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Teacher courses handler not configured")
		return
	}

	result, err := s.deps.GetTeacherCoursesHandler.Handle(r.Context(), query.GetTeacherCoursesQuery{TeacherID: teacherID})
	if err != nil {
		s.respondDomainError(w, r, err, "failed to get teacher courses")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type enrollRequest struct {
	ActorID   string   `json:"actor_id"`
	StudentID string   `json:"student_id"`
	CourseID  string   `json:"course_id,omitempty"`
	CourseIDs []string `json:"course_ids,omitempty"`
}

// handleEnrollStudent handles POST /api/v1/enrollments
func (s *Server) handleEnrollStudent(w http.ResponseWriter, r *http.Request) {
	if s.deps.EnrollStudentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment handler not configured")
		return
	}

	var req enrollRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.EnrollStudentCommand{
		ActorID:   req.ActorID,
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
	}

	result, err := s.deps.EnrollStudentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.respondDomainError(w, r, err, "failed to enroll student")
		return
	}

	// An enrollment that already existed is reported, not re-created.
	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// handleEnrollStudentBatch handles POST /api/v1/enrollments/batch
func (s *Server) handleEnrollStudentBatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.EnrollStudentBatchHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment handler not configured")
		return
	}

	var req enrollRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.EnrollStudentBatchCommand{
		ActorID:   req.ActorID,
		StudentID: req.StudentID,
		CourseIDs: req.CourseIDs,
	}

	result, err := s.deps.EnrollStudentBatchHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.respondDomainError(w, r, err, "failed to enroll student batch")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type recomputeRequest struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

// handleRecompute handles POST /api/v1/enrollments/recompute
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecomputeHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Recompute handler not configured")
		return
	}

	var req recomputeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.RecomputePercentageCommand{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
	}

	result, err := s.deps.RecomputeHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.respondDomainError(w, r, err, "failed to recompute percentage")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON & ATTENDANCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type scheduleLessonRequest struct {
	ActorID  string `json:"actor_id"`
	CourseID string `json:"course_id"`
	Date     string `json:"date"`
	Topic    string `json:"topic"`
}

// handleScheduleLesson handles POST /api/v1/lessons
func (s *Server) handleScheduleLesson(w http.ResponseWriter, r *http.Request) {
	if s.deps.ScheduleLessonHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Lesson handler not configured")
		return
	}

	var req scheduleLessonRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeJSONErrorWithDetails(w, http.StatusUnprocessableEntity, "validation_failed",
			"Invalid lesson date", "date must be in YYYY-MM-DD format")
		return
	}

	cmd := command.ScheduleLessonCommand{
		ActorID:  req.ActorID,
		CourseID: req.CourseID,
		Date:     date,
		Topic:    req.Topic,
	}

	result, err := s.deps.ScheduleLessonHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.respondDomainError(w, r, err, "failed to schedule lesson")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type markAttendanceRequest struct {
	ActorID   string `json:"actor_id"`
	LessonID  string `json:"lesson_id"`
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
}

// handleMarkAttendance handles POST /api/v1/attendance
func (s *Server) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	if s.deps.MarkAttendanceHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Attendance handler not configured")
		return
	}

	var req markAttendanceRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.MarkAttendanceCommand{
		ActorID:   req.ActorID,
		LessonID:  req.LessonID,
		StudentID: req.StudentID,
		Status:    reference.AttendanceStatus(req.Status),
	}

	result, err := s.deps.MarkAttendanceHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.respondDomainError(w, r, err, "failed to mark attendance")
		return
	}

	// A re-mark updates the existing record in place.
	status := http.StatusCreated
	if result.Updated {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

type markAttendanceBatchRequest struct {
	ActorID  string `json:"actor_id"`
	LessonID string `json:"lesson_id"`
	Marks    []struct {
		StudentID string `json:"student_id"`
		Status    string `json:"status"`
	} `json:"marks"`
}

// handleMarkAttendanceBatch handles POST /api/v1/attendance/batch
func (s *Server) handleMarkAttendanceBatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.MarkAttendanceBatchHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Attendance handler not configured")
		return
	}

	var req markAttendanceBatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	marks := make([]command.AttendanceMark, 0, len(req.Marks))
	for _, m := range req.Marks {
		marks = append(marks, command.AttendanceMark{
			StudentID: m.StudentID,
			Status:    reference.AttendanceStatus(m.Status),
		})
	}

	cmd := command.MarkAttendanceBatchCommand{
		ActorID:  req.ActorID,
		LessonID: req.LessonID,
		Marks:    marks,
	}

	result, err := s.deps.MarkAttendanceBatchHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.respondDomainError(w, r, err, "failed to mark attendance batch")
		return
	}

	// Partial failures ride inside the result; the batch itself succeeded.
	writeJSON(w, http.StatusOK, result)
}

// handleGetAttendanceSummary handles GET /api/v1/students/{id}/attendance
func (s *Server) handleGetAttendanceSummary(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	if studentID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Student ID is required")
		return
	}

	if s.deps.GetAttendanceSummaryHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Summary handler not configured")
		return
	}

	result, err := s.deps.GetAttendanceSummaryHandler.Handle(r.Context(), query.GetAttendanceSummaryQuery{StudentID: studentID})
	if err != nil {
		s.respondDomainError(w, r, err, "failed to get attendance summary")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING & ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// maxRequestBody bounds command payloads.
const maxRequestBody = 1 << 20 // 1 MB

// decodeJSON decodes the request body into dst, writing the error response
// itself on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}

	return true
}

// respondDomainError translates domain errors into HTTP status codes.
//
// Consistency conflicts (slot taken, duplicate lesson, already enrolled) map
// to 409, missing entities to 404, rejected input to 422, and authorization
// failures to 403. Anything unrecognized is a 500 and gets logged at error
// level; the mapped families only log at debug to keep expected rejections
// out of the error stream.
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case course.IsSchedulingConflict(err):
		s.logDomainRejection(r, err, msg)
		writeJSONErrorWithDetails(w, http.StatusConflict, "scheduling_conflict",
			"Room and shift are already taken by another active course", err.Error())

	case enrollment.IsAlreadyEnrolled(err):
		s.logDomainRejection(r, err, msg)
		writeJSONErrorWithDetails(w, http.StatusConflict, "already_enrolled",
			"Student is already enrolled in one of the requested courses", err.Error())

	case lesson.IsDuplicateLesson(err):
		s.logDomainRejection(r, err, msg)
		writeJSONErrorWithDetails(w, http.StatusConflict, "duplicate_lesson",
			"The course already has a lesson on that date", err.Error())

	case errors.Is(err, user.ErrUsernameTaken):
		s.logDomainRejection(r, err, msg)
		writeJSONError(w, http.StatusConflict, "username_taken", "Username already exists")

	case errors.Is(err, enrollment.ErrNotEnrolled):
		s.logDomainRejection(r, err, msg)
		writeJSONError(w, http.StatusConflict, "not_enrolled", "Student is not enrolled in the course")

	case errors.Is(err, shared.ErrPermissionDenied):
		s.logDomainRejection(r, err, msg)
		writeJSONError(w, http.StatusForbidden, "permission_denied", "Actor role does not allow this operation")

	case errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, course.ErrCourseNotFound),
		errors.Is(err, lesson.ErrLessonNotFound),
		errors.Is(err, enrollment.ErrEnrollmentNotFound),
		errors.Is(err, reference.ErrRoomNotFound),
		errors.Is(err, reference.ErrShiftNotFound),
		errors.Is(err, shared.ErrNotFound):
		s.logDomainRejection(r, err, msg)
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, user.ErrNotATeacher),
		errors.Is(err, user.ErrNotAStudent),
		errors.Is(err, course.ErrCourseInactive):
		s.logDomainRejection(r, err, msg)
		writeJSONErrorWithDetails(w, http.StatusUnprocessableEntity, "validation_failed",
			"Request was rejected by validation", err.Error())

	default:
		s.logger.Error(msg,
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
	}
}

func (s *Server) logDomainRejection(r *http.Request, err error, msg string) {
	s.logger.Debug(msg,
		logger.Err(err),
		logger.String("path", r.URL.Path),
		logger.String("request_id", getRequestID(r.Context())),
	)
}
