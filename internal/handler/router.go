package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusops/uniops-api/internal/middleware"
	"github.com/campusops/uniops-api/internal/models"
	"github.com/campusops/uniops-api/internal/service"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth        *AuthHandler
	Students    *StudentHandler
	Courses     *CourseHandler
	Enrollments *EnrollmentHandler
	Facilities  *FacilityHandler
	Dashboard   *DashboardHandler
	Attributes  *AttributeHandler
}

// RegisterRoutes mounts the versioned API under /api/v1.
//
// Role layout: admins may do anything, registrars manage academic records,
// students read their own data ("SELF" matches the :id path parameter
// against the caller's linked student id).
func RegisterRoutes(r *gin.Engine, h Handlers, auth *service.AuthService, metrics *service.MetricsService) {
	v1 := r.Group("/api/v1")

	v1.POST("/auth/login", h.Auth.Login)

	if metrics != nil {
		v1.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	secured := v1.Group("")
	secured.Use(middleware.JWT(auth))

	secured.GET("/auth/me", h.Auth.Me)

	if h.Dashboard != nil {
		secured.GET("/dashboard/summary", middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar), h.Dashboard.Summary)
	}

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar)
	selfOrStaff := middleware.RBAC(string(models.RoleAdmin), string(models.RoleRegistrar), "SELF")

	students := secured.Group("/students")
	{
		students.GET("", staff, h.Students.List)
		students.POST("", staff, h.Students.Create)
		students.POST("/recalculate-gpas", staff, h.Students.RecalculateGPAs)
		students.GET("/:id", selfOrStaff, h.Students.Get)
		students.PUT("/:id", staff, h.Students.Update)
		students.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Students.Delete)
		students.GET("/:id/transcript", selfOrStaff, h.Students.Transcript)
		students.GET("/:id/transcript/export", selfOrStaff, h.Students.ExportTranscript)
		students.GET("/:id/records", selfOrStaff, h.Students.Records)
		students.PUT("/:id/records", staff, h.Students.SetRecord)
		students.DELETE("/:id/records/:key", staff, h.Students.DeleteRecord)
		students.POST("/:id/auto-enroll-defaults", staff, h.Enrollments.AssignDefaults)
	}

	courses := secured.Group("/courses")
	{
		courses.GET("", h.Courses.List)
		courses.GET("/:id", h.Courses.Get)
		courses.POST("", staff, h.Courses.Create)
		courses.PUT("/:id", staff, h.Courses.Update)
		courses.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Courses.Delete)
	}

	enrollments := secured.Group("/enrollments")
	{
		enrollments.GET("", staff, h.Enrollments.List)
		enrollments.POST("", staff, h.Enrollments.Create)
		enrollments.PUT("/:id", staff, h.Enrollments.Update)
		enrollments.DELETE("/:id", staff, h.Enrollments.Delete)
	}

	facilities := secured.Group("/facilities")
	{
		facilities.GET("", h.Facilities.List)
		facilities.GET("/:id", h.Facilities.Get)
		facilities.POST("", middleware.RequireRoles(models.RoleAdmin), h.Facilities.Create)
		facilities.GET("/:id/bookings", h.Facilities.ListBookings)
		facilities.POST("/:id/bookings", h.Facilities.CreateBooking)
	}

	attributes := secured.Group("/attributes", staff)
	{
		attributes.GET("/:entity/:id", h.Attributes.List)
		attributes.PUT("/:entity/:id", h.Attributes.Set)
		attributes.GET("/:entity/:id/:key", h.Attributes.Get)
		attributes.DELETE("/:entity/:id/:key", h.Attributes.Delete)
	}
}
