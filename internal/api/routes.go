package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes. token enables bearer auth on /api/v1 when non-empty.
func SetupRoutes(handler *Handler, logger *slog.Logger, token string) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(RequestID())
	router.Use(Recovery(logger))
	router.Use(CORS())
	router.Use(Tracing())
	router.Use(Logger(logger))

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	v1.Use(Auth(token))
	{
		members := v1.Group("/members")
		{
			members.GET("", handler.ListMembers)
			members.POST("", handler.CreateMember)
			members.GET("/:member/summary", handler.GetMemberSummary)
			members.GET("/:member/daily", handler.GetMemberDaily)
			members.POST("/:member/records", handler.CreateRecord)
			members.GET("/:member/payroll", handler.GetMemberPayroll)
			members.POST("/:member/payments", handler.CreatePayment)
		}

		v1.PATCH("/records/:id/hours", handler.SetRecordHours)

		payroll := v1.Group("/payroll")
		{
			payroll.GET("", handler.GetPayroll)
			payroll.GET("/export.csv", handler.ExportPayrollCSV)
		}
	}

	return router
}
