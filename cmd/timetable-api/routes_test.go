package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/exam-timetable-api/internal/middleware"
	"github.com/noah-isme/exam-timetable-api/internal/service"
)

func buildTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	timetables := service.NewTimetableService(nil, nil, nil, nil, nil, nil, metrics, nil, zap.NewNop(), service.TimetableConfig{})

	r := gin.New()
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())
	registerRoutes(r, "/api/v1", routeHandlers{
		timetables: handler.NewTimetableHandler(timetables),
		exports:    handler.NewExportHandler(nil, nil),
		metrics:    handler.NewMetricsHandler(metrics, nil),
	})
	return r
}

func TestRegisterRoutes(t *testing.T) {
	router := buildTestRouter()

	registered := map[string]bool{}
	for _, route := range router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /api/v1/metrics/summary",
		"GET /api/v1/timetables/grid",
		"POST /api/v1/timetables/generate",
		"POST /api/v1/timetables/regenerate",
		"POST /api/v1/timetables/conflicts",
		"POST /api/v1/timetables/verify",
		"POST /api/v1/timetables",
		"GET /api/v1/timetables",
		"GET /api/v1/timetables/:id",
		"GET /api/v1/timetables/:id/entries",
		"POST /api/v1/timetables/:id/publish",
		"DELETE /api/v1/timetables/:id",
		"GET /api/v1/timetables/:id/export",
		"POST /api/v1/timetables/:id/exports",
		"GET /api/v1/exports/download",
		"GET /api/v1/exports/:jobId",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestRoutesIntegration(t *testing.T) {
	router := buildTestRouter()

	t.Run("generate inline", func(t *testing.T) {
		body := `{"exams":[{"id":"E1","students":40,"departments":["GL-L1"]},{"id":"E2","students":40,"departments":["GL-L1"]}],` +
			`"rooms":[{"id":"R1","name":"IRAN1","capacity":50}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/timetables/generate", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Contains(t, resp.Body.String(), `"mode":"preview"`)
		assert.Contains(t, resp.Body.String(), `"cache_hit":false`)
		assert.Contains(t, resp.Body.String(), `{"examId":"E1","roomName":"IRAN1","timeslot":0}`)
		assert.Contains(t, resp.Body.String(), `{"examId":"E2","roomName":"IRAN1","timeslot":1}`)
	})

	t.Run("generate without store", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/timetables/generate", nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		require.Equal(t, http.StatusPreconditionFailed, resp.Code)
	})

	t.Run("generate infeasible cohort", func(t *testing.T) {
		body := `{"grid":{"days":["Jour 1"],"slots":[{"label":"8h-10h","daytime":"MORNING"}]},` +
			`"exams":[{"id":"E1","students":10,"departments":["GL-L1"]},{"id":"E2","students":10,"departments":["GL-L1"]}],` +
			`"rooms":[{"id":"R1","name":"IRAN1","capacity":50},{"id":"R2","name":"IRAN2","capacity":50}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/timetables/generate", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Contains(t, resp.Body.String(), `"code":"INFEASIBLE_COHORT"`)
		assert.Contains(t, resp.Body.String(), `"cohort":"GL-L1"`)
	})

	t.Run("exports disabled", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/job-1", nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		require.Equal(t, http.StatusPreconditionFailed, resp.Code)
	})

	t.Run("health", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code)
	})
}
