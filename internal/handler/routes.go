package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/skooldesk/skooldesk-api/internal/middleware"
	"github.com/skooldesk/skooldesk-api/internal/models"
	"github.com/skooldesk/skooldesk-api/internal/service"
)

// Handlers bundles every route handler of the API surface.
type Handlers struct {
	Auth         *AuthHandler
	Student      *StudentHandler
	Teacher      *TeacherHandler
	Parent       *ParentHandler
	Class        *ClassHandler
	Subject      *SubjectHandler
	Lesson       *LessonHandler
	Exam         *ExamHandler
	Assignment   *AssignmentHandler
	Attendance   *AttendanceHandler
	Result       *ResultHandler
	Announcement *AnnouncementHandler
	Event        *EventHandler
}

// RegisterRoutes mounts the API under the given prefix. Read routes admit
// every role because visibility is narrowed per actor inside the services;
// mutation routes are restricted to the roles allowed to write the entity.
func RegisterRoutes(r *gin.Engine, prefix string, authService *service.AuthService, h Handlers) {
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	adminOrTeacher := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	students := authed.Group("/students")
	{
		students.GET("", h.Student.List)
		students.GET("/:id", h.Student.Get)
		students.POST("", adminOnly, h.Student.Create)
		students.PUT("/:id", adminOnly, h.Student.Update)
		students.DELETE("/:id", adminOnly, h.Student.Delete)
	}

	teachers := authed.Group("/teachers", adminOnly)
	{
		teachers.GET("", h.Teacher.List)
		teachers.GET("/:id", h.Teacher.Get)
		teachers.POST("", h.Teacher.Create)
		teachers.PUT("/:id", h.Teacher.Update)
		teachers.DELETE("/:id", h.Teacher.Delete)
	}

	parents := authed.Group("/parents", adminOnly)
	{
		parents.GET("", h.Parent.List)
		parents.GET("/:id", h.Parent.Get)
		parents.POST("", h.Parent.Create)
		parents.PUT("/:id", h.Parent.Update)
		parents.DELETE("/:id", h.Parent.Delete)
	}

	classes := authed.Group("/classes")
	{
		classes.GET("", h.Class.List)
		classes.GET("/:id", h.Class.Get)
		classes.POST("", adminOnly, h.Class.Create)
		classes.PUT("/:id", adminOnly, h.Class.Update)
		classes.DELETE("/:id", adminOnly, h.Class.Delete)
	}

	subjects := authed.Group("/subjects")
	{
		subjects.GET("", h.Subject.List)
		subjects.GET("/:id", h.Subject.Get)
		subjects.POST("", adminOnly, h.Subject.Create)
		subjects.PUT("/:id", adminOnly, h.Subject.Update)
		subjects.DELETE("/:id", adminOnly, h.Subject.Delete)
	}

	lessons := authed.Group("/lessons")
	{
		lessons.GET("", h.Lesson.List)
		lessons.GET("/:id", h.Lesson.Get)
		lessons.POST("", adminOnly, h.Lesson.Create)
		lessons.PUT("/:id", adminOnly, h.Lesson.Update)
		lessons.DELETE("/:id", adminOnly, h.Lesson.Delete)
	}

	exams := authed.Group("/exams")
	{
		exams.GET("", h.Exam.List)
		exams.GET("/:id", h.Exam.Get)
		exams.POST("", adminOrTeacher, h.Exam.Create)
		exams.PUT("/:id", adminOrTeacher, h.Exam.Update)
		exams.DELETE("/:id", adminOrTeacher, h.Exam.Delete)
	}

	assignments := authed.Group("/assignments")
	{
		assignments.GET("", h.Assignment.List)
		assignments.GET("/:id", h.Assignment.Get)
		assignments.POST("", adminOrTeacher, h.Assignment.Create)
		assignments.PUT("/:id", adminOrTeacher, h.Assignment.Update)
		assignments.DELETE("/:id", adminOrTeacher, h.Assignment.Delete)
	}

	attendances := authed.Group("/attendances")
	{
		attendances.GET("", h.Attendance.List)
		attendances.GET("/export", h.Attendance.Export)
		attendances.GET("/:id", h.Attendance.Get)
		attendances.POST("", adminOrTeacher, h.Attendance.Create)
		attendances.PUT("/:id", adminOrTeacher, h.Attendance.Update)
		attendances.DELETE("/:id", adminOrTeacher, h.Attendance.Delete)
	}

	results := authed.Group("/results")
	{
		results.GET("", h.Result.List)
		results.GET("/export", h.Result.Export)
		results.GET("/:id", h.Result.Get)
		results.POST("", adminOrTeacher, h.Result.Create)
		results.PUT("/:id", adminOrTeacher, h.Result.Update)
		results.DELETE("/:id", adminOrTeacher, h.Result.Delete)
	}

	announcements := authed.Group("/announcements")
	{
		announcements.GET("", h.Announcement.List)
		announcements.GET("/:id", h.Announcement.Get)
		announcements.POST("", adminOnly, h.Announcement.Create)
		announcements.PUT("/:id", adminOnly, h.Announcement.Update)
		announcements.DELETE("/:id", adminOnly, h.Announcement.Delete)
	}

	events := authed.Group("/events")
	{
		events.GET("", h.Event.List)
		events.GET("/:id", h.Event.Get)
		events.POST("", adminOnly, h.Event.Create)
		events.PUT("/:id", adminOnly, h.Event.Update)
		events.DELETE("/:id", adminOnly, h.Event.Delete)
	}
}
