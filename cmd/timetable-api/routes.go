package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-timetable-api/internal/handler"
)

type routeHandlers struct {
	timetables *handler.TimetableHandler
	exports    *handler.ExportHandler
	metrics    *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, prefix string, h routeHandlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/metrics/summary", h.metrics.Summary)

	timetables := api.Group("/timetables")
	timetables.GET("/grid", h.timetables.Grid)
	timetables.POST("/generate", h.timetables.Generate)
	timetables.POST("/regenerate", h.timetables.Regenerate)
	timetables.POST("/conflicts", h.timetables.Conflicts)
	timetables.POST("/verify", h.timetables.Verify)
	timetables.POST("", h.timetables.Save)
	timetables.GET("", h.timetables.List)
	timetables.GET("/:id", h.timetables.Get)
	timetables.GET("/:id/entries", h.timetables.Entries)
	timetables.POST("/:id/publish", h.timetables.Publish)
	timetables.DELETE("/:id", h.timetables.Delete)
	timetables.GET("/:id/export", h.exports.Export)
	timetables.POST("/:id/exports", h.exports.CreateJob)

	exports := api.Group("/exports")
	exports.GET("/download", h.exports.Download)
	exports.GET("/:jobId", h.exports.JobStatus)
}
