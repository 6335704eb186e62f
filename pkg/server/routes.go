package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api")

	{
		apiGroup.GET("/health", func(c *gin.Context) {
			s.handleHealth(c)
		})

		apiGroup.POST("/capture/:studentId/start", func(c *gin.Context) {
			s.handleCaptureStart(c)
		})
		apiGroup.POST("/capture/:studentId/frame", func(c *gin.Context) {
			s.handleCaptureFrame(c)
		})
		apiGroup.GET("/capture/:studentId/status", func(c *gin.Context) {
			s.handleCaptureStatus(c)
		})
		apiGroup.POST("/capture/:studentId/reset", func(c *gin.Context) {
			s.handleCaptureReset(c)
		})
		apiGroup.POST("/capture/:studentId/complete", func(c *gin.Context) {
			s.handleCaptureComplete(c)
		})

		apiGroup.POST("/streams", func(c *gin.Context) {
			s.handleStreamCreate(c)
		})
		apiGroup.POST("/streams/:id/frame", func(c *gin.Context) {
			s.handleStreamFrame(c)
		})
		apiGroup.DELETE("/streams/:id", func(c *gin.Context) {
			s.handleStreamDestroy(c)
		})

		apiGroup.POST("/sessions", func(c *gin.Context) {
			s.handleSessionCreate(c)
		})
		apiGroup.POST("/sessions/:id/close", func(c *gin.Context) {
			s.handleSessionClose(c)
		})
		apiGroup.GET("/sessions/:id/attendance", func(c *gin.Context) {
			s.handleSessionAttendance(c)
		})
		apiGroup.GET("/sessions/:id/summary", func(c *gin.Context) {
			s.handleSessionSummary(c)
		})

		apiGroup.GET("/students", func(c *gin.Context) {
			s.handleStudentList(c)
		})
		apiGroup.DELETE("/students/:id", func(c *gin.Context) {
			s.handleStudentDelete(c)
		})
	}
}
