package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-out-api/internal/middleware"
	"github.com/noah-isme/hostel-out-api/internal/models"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Auth       *AuthHandler
	Accounts   *AccountHandler
	Leaves     *LeaveHandler
	Complaints *ComplaintHandler
	Notices    *NoticeHandler
	Reports    *ReportHandler
	Metrics    *MetricsHandler
}

// RouteDeps carries the middleware collaborators shared by the routes.
type RouteDeps struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditWriter
}

// RegisterOperational mounts health, readiness and Prometheus endpoints at the root.
func RegisterOperational(r gin.IRouter, m *MetricsHandler) {
	if m == nil {
		return
	}
	r.GET("/health", m.Health)
	r.GET("/ready", m.Ready)
	r.GET("/metrics", m.Prometheus)
}

// RegisterRoutes mounts the API under api. Reports are skipped when h.Reports is nil.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, deps RouteDeps) {
	auth := middleware.JWT(deps.Tokens)
	student := middleware.RequireRoles(models.RoleStudent)
	teacher := middleware.RequireRoles(models.RoleTeacher)
	warden := middleware.RequireRoles(models.RoleWarden)

	api.POST("/students/login", h.Auth.StudentLogin)
	api.POST("/teachers/login", h.Auth.TeacherLogin)
	api.POST("/wardens/login", h.Auth.WardenLogin)
	api.POST("/students", h.Accounts.RegisterStudent)
	api.POST("/auth/refresh", h.Auth.Refresh)

	secured := api.Group("", auth)
	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)

	staffOrSelf := middleware.RBAC(middleware.Self, string(models.RoleTeacher), string(models.RoleWarden))
	secured.GET("/students/:id", staffOrSelf, h.Accounts.GetStudent)
	secured.GET("/teachers/:id", staffOrSelf, h.Accounts.GetTeacher)
	secured.GET("/wardens/:id", staffOrSelf, h.Accounts.GetWarden)
	secured.POST("/teachers", warden, h.Accounts.CreateTeacher)
	secured.POST("/wardens", warden, h.Accounts.CreateWarden)

	leaves := secured.Group("/leaves")
	leaves.POST("/apply", student, h.Leaves.Apply)
	leaves.GET("", h.Leaves.Inbox)
	leaves.GET("/student/:studentId",
		middleware.RBACParam("studentId", middleware.Self, string(models.RoleTeacher), string(models.RoleWarden)),
		h.Leaves.ListByStudent)
	leaves.GET("/:id", h.Leaves.Get)
	leaves.PUT("/:id/teacher/:teacherId", teacher, middleware.RBACParam("teacherId", middleware.Self), h.Leaves.TeacherDecision)
	leaves.PUT("/:id/warden/:wardenId", warden, middleware.RBACParam("wardenId", middleware.Self), h.Leaves.WardenDecision)

	complaints := secured.Group("/complaints")
	complaints.POST("", student,
		middleware.Audit(deps.Audit, models.AuditActionComplaintCreate, "complaint", ""),
		h.Complaints.Create)
	complaints.GET("", middleware.RequireRoles(models.RoleStudent, models.RoleWarden), h.Complaints.List)
	complaints.PATCH("/:id/status", warden,
		middleware.Audit(deps.Audit, models.AuditActionComplaintStatus, "complaint", "id"),
		h.Complaints.UpdateStatus)

	notices := secured.Group("/notices")
	notices.GET("", middleware.RequireRoles(models.RoleStudent, models.RoleWarden), h.Notices.List)
	notices.POST("/warden/:wardenId/publish", warden, middleware.RBACParam("wardenId", middleware.Self), h.Notices.Publish)
	notices.DELETE("/warden/:noticeId", warden, h.Notices.Delete)

	if h.Metrics != nil {
		secured.GET("/metrics/snapshot", warden, h.Metrics.Snapshot)
	}

	if h.Reports != nil {
		reports := secured.Group("/reports", warden)
		reports.POST("/leaves",
			middleware.Audit(deps.Audit, models.AuditActionReportRequest, "report", ""),
			h.Reports.LeaveRegister)
		reports.GET("/:id", h.Reports.Status)
		// the signed token is the credential
		api.GET("/export/:token", h.Reports.Download)
	}
}
