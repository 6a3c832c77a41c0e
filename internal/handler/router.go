package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shrutiigupta24/institute-api/internal/middleware"
	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/internal/service"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *AuthHandler
	Signup        *SignupHandler
	Course        *CourseHandler
	Batch         *BatchHandler
	Student       *StudentHandler
	Teacher       *TeacherHandler
	Fee           *FeeHandler
	Payment       *PaymentHandler
	Notification  *NotificationHandler
	Dashboard     *DashboardHandler
	StudentPortal *StudentPortalHandler
	TeacherPortal *TeacherPortalHandler
}

// RegisterRoutes mounts the API surface under /api/v1. Public routes come
// first; everything else sits behind the JWT middleware with per-group role
// gates.
func RegisterRoutes(r *gin.Engine, auth *service.AuthService, h Handlers) {
	api := r.Group("/api/v1")

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/signup", h.Signup.Submit)
	api.POST("/contact", h.Notification.Contact)
	api.GET("/courses", h.Course.List)
	api.GET("/courses/:id", h.Course.Get)

	secured := api.Group("", middleware.JWT(auth))

	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/notifications", h.Notification.List)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	admin := secured.Group("", adminOnly)
	{
		admin.POST("/courses", h.Course.Create)
		admin.PUT("/courses/:id", h.Course.Update)
		admin.DELETE("/courses/:id", h.Course.Delete)

		admin.GET("/batches", h.Batch.List)
		admin.GET("/batches/:id", h.Batch.Get)
		admin.POST("/batches", h.Batch.Create)
		admin.PUT("/batches/:id", h.Batch.Update)
		admin.DELETE("/batches/:id", h.Batch.Delete)
		admin.GET("/batches/:id/students", h.Batch.Students)
		admin.POST("/batches/:id/students", h.Batch.Enroll)
		admin.DELETE("/batches/:id/students/:studentId", h.Batch.Unenroll)

		admin.GET("/students", h.Student.List)
		admin.GET("/students/:id", h.Student.Get)
		admin.POST("/students", h.Student.Create)
		admin.PUT("/students/:id", h.Student.Update)
		admin.DELETE("/students/:id", h.Student.Delete)
		admin.GET("/students/:id/fee-summary", h.Fee.StudentSummary)

		admin.GET("/teachers", h.Teacher.List)
		admin.GET("/teachers/:id", h.Teacher.Get)
		admin.POST("/teachers", h.Teacher.Create)
		admin.PUT("/teachers/:id", h.Teacher.Update)
		admin.DELETE("/teachers/:id", h.Teacher.Delete)

		admin.POST("/fees", h.Fee.Create)
		admin.PUT("/fees/:id", h.Fee.Update)
		admin.DELETE("/fees/:id", h.Fee.Delete)
		admin.POST("/fees/:id/payments", h.Fee.RecordPayment)
		admin.POST("/maintenance/fees/mark-overdue", h.Fee.MarkOverdue)

		admin.GET("/signup-requests", h.Signup.List)
		admin.GET("/signup-requests/:id", h.Signup.Get)
		admin.POST("/signup-requests/:id/approve", h.Signup.Approve)
		admin.POST("/signup-requests/:id/reject", h.Signup.Reject)

		admin.GET("/notifications/:id", h.Notification.Get)
		admin.POST("/notifications", h.Notification.Create)
		admin.PUT("/notifications/:id", h.Notification.Update)
		admin.DELETE("/notifications/:id", h.Notification.Delete)

		admin.GET("/dashboard/stats", h.Dashboard.Stats)
		admin.GET("/reports/attendance", h.Dashboard.AttendanceReport)
		admin.GET("/reports/attendance/export", h.Dashboard.ExportAttendanceReport)
		admin.GET("/reports/fees", h.Dashboard.FeeReport)
		admin.GET("/reports/fees/export", h.Dashboard.ExportFeeReport)
		admin.GET("/reports/marks", h.Dashboard.MarksReport)
		admin.GET("/reports/marks/export", h.Dashboard.ExportMarksReport)
	}

	// fee reads are shared; the service narrows students to their own rows
	feeReads := secured.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleStudent))
	{
		feeReads.GET("/fees", h.Fee.List)
		feeReads.GET("/fees/:id", h.Fee.Get)
	}

	payments := secured.Group("/payments", middleware.RequireRoles(models.RoleAdmin, models.RoleStudent))
	{
		payments.POST("/orders", h.Payment.CreateOrder)
		payments.POST("/confirm", h.Payment.Confirm)
	}

	student := secured.Group("/portal/student", middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/dashboard", h.StudentPortal.Dashboard)
		student.GET("/batches", h.StudentPortal.Batches)
		student.GET("/attendance", h.StudentPortal.Attendance)
		student.GET("/fees", h.StudentPortal.Fees)
		student.GET("/tests", h.StudentPortal.Tests)
		student.POST("/tests/submit", h.StudentPortal.SubmitTest)
		student.GET("/results", h.StudentPortal.Results)
		student.GET("/materials", h.StudentPortal.Materials)
	}

	teacher := secured.Group("/portal/teacher", middleware.RequireRoles(models.RoleTeacher))
	{
		teacher.GET("/dashboard", h.TeacherPortal.Dashboard)
		teacher.GET("/batches", h.TeacherPortal.Batches)
		teacher.GET("/batches/:id/students", h.TeacherPortal.BatchStudents)
		teacher.POST("/attendance", h.TeacherPortal.MarkAttendance)
		teacher.GET("/attendance", h.TeacherPortal.Attendance)
		teacher.GET("/tests", h.TeacherPortal.Tests)
		teacher.POST("/tests", h.TeacherPortal.CreateTest)
		teacher.PUT("/tests/:id", h.TeacherPortal.UpdateTest)
		teacher.DELETE("/tests/:id", h.TeacherPortal.DeleteTest)
		teacher.GET("/tests/:id/results", h.TeacherPortal.TestResults)
		teacher.POST("/tests/results", h.TeacherPortal.UploadResults)
		teacher.GET("/materials", h.TeacherPortal.Materials)
		teacher.POST("/materials", h.TeacherPortal.CreateMaterial)
		teacher.PUT("/materials/:id", h.TeacherPortal.UpdateMaterial)
		teacher.DELETE("/materials/:id", h.TeacherPortal.DeleteMaterial)
		teacher.GET("/students/:id/performance", h.TeacherPortal.StudentPerformance)
	}
}
