package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type testEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

type testAPI struct {
	router *gin.Engine
	roster *repository.MemoryRoster
	store  *repository.ScheduleStore
}

func newTestAPI(t *testing.T, tokens middleware.TokenValidator) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewScheduleStore()
	roster := repository.NewMemoryRoster()
	metrics := service.NewMetricsService()
	compliance := service.NewComplianceService(store, roster, nil, metrics, nil)
	schedules := service.NewScheduleService(store, roster, compliance, metrics, nil, nil)
	rosterSvc := service.NewRosterService(roster, compliance, nil, nil)

	cfg, err := service.NewScheduleGeneratorConfig("08:00", "16:00", time.Hour, 0, 1, 0)
	require.NoError(t, err)
	generator := service.NewScheduleGeneratorService(store, roster, compliance, metrics, nil, nil, cfg)
	queue := jobs.NewQueue("test-generation", generator.Handle, jobs.QueueConfig{Workers: 1, MaxRetries: -1})
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)
	generator.UseDispatcher(queue)

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Teachers:     NewTeacherHandler(rosterSvc),
		Classes:      NewClassHandler(rosterSvc),
		Rules:        NewRuleHandler(rosterSvc),
		Requirements: NewSubjectRequirementHandler(rosterSvc),
		Schedules:    NewScheduleHandler(schedules),
		Generator:    NewScheduleGeneratorHandler(generator),
		Dashboard:    NewDashboardHandler(compliance),
	}, tokens)

	return testAPI{router: router, roster: roster, store: store}
}

func (a testAPI) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env testEnvelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestScheduleRoutesCreateAndConflict(t *testing.T) {
	api := newTestAPI(t, nil)

	w, env := api.do(t, http.MethodPost, "/teachers", gin.H{"name": "John Doe", "email": "john@example.com", "subject": "Math"}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var teacher models.Teacher
	require.NoError(t, json.Unmarshal(env.Data, &teacher))

	w, env = api.do(t, http.MethodPost, "/classes", gin.H{"name": "Algebra 101", "subject": "Math", "duration": 60}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var class models.Class
	require.NoError(t, json.Unmarshal(env.Data, &class))

	payload := gin.H{"class_id": class.ID, "teacher_id": teacher.ID, "day_of_week": "Monday", "start_time": "09:00"}
	w, env = api.do(t, http.MethodPost, "/schedules", payload, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Schedule
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "10:00", created.EndTime.String())

	payload["start_time"] = "09:30"
	w, env = api.do(t, http.MethodPost, "/schedules", payload, "")
	require.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	payload["start_time"] = "10:00"
	w, _ = api.do(t, http.MethodPost, "/schedules", payload, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = api.do(t, http.MethodGet, "/schedules?day_of_week=monday&page_size=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var views []models.ScheduleView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Algebra 101", views[0].ClassName)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.TotalCount)
}

func TestScheduleRoutesValidation(t *testing.T) {
	api := newTestAPI(t, nil)

	w, _ := api.do(t, http.MethodGet, "/schedules/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, http.MethodGet, "/schedules?day_of_week=Sunday", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := api.do(t, http.MethodPost, "/schedules", gin.H{"day_of_week": "Monday", "start_time": "09:00"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, _ = api.do(t, http.MethodDelete, "/schedules/42", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateRoutes(t *testing.T) {
	api := newTestAPI(t, nil)

	w, _ := api.do(t, http.MethodGet, "/schedules/generate/status", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, api.roster.CreateTeacher(context.Background(), &models.Teacher{Name: "T1", Email: "t1@example.com", Subject: "Math"}))
	require.NoError(t, api.roster.CreateRule(context.Background(), &models.Rule{TeacherID: 1, MinHours: 2}))
	require.NoError(t, api.roster.CreateClass(context.Background(), &models.Class{Name: "C1", Subject: "Math", Duration: 90}))
	require.NoError(t, api.roster.CreateRequirement(context.Background(), &models.SubjectRequirement{ClassID: 1, Subject: "Math"}))

	w, env := api.do(t, http.MethodPost, "/schedules/generate", nil, "")
	require.Equal(t, http.StatusAccepted, w.Code)
	var run models.GenerationRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.NotEmpty(t, run.ID)

	require.Eventually(t, func() bool {
		w, env := api.do(t, http.MethodGet, "/schedules/generate/status", nil, "")
		if w.Code != http.StatusOK {
			return false
		}
		var status models.GenerationRun
		if err := json.Unmarshal(env.Data, &status); err != nil {
			return false
		}
		return status.Status == models.GenerationStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	w, env = api.do(t, http.MethodGet, "/compliance/hours", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"teacher_id":1,"hours":1.5}]`, string(env.Data))

	w, env = api.do(t, http.MethodGet, "/compliance/min-hours", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"teacher_id":1,"min_hours":2}]`, string(env.Data))

	w, env = api.do(t, http.MethodGet, "/compliance/ratio", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ratio":0}`, string(env.Data))

	w, _ = api.do(t, http.MethodPost, "/schedules/generate/"+run.ID+"/cancel", nil, "")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestDashboardRouteReportsCacheMiss(t *testing.T) {
	api := newTestAPI(t, nil)
	w, env := api.do(t, http.MethodGet, "/dashboard", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get(middleware.CacheHeader))

	var dashboard models.Dashboard
	require.NoError(t, json.Unmarshal(env.Data, &dashboard))
	assert.Equal(t, 100.0, dashboard.ComplianceRatio)
}

func TestRosterRoutes(t *testing.T) {
	api := newTestAPI(t, nil)

	w, env := api.do(t, http.MethodPost, "/rules", gin.H{"teacher_id": 1}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please select a teacher and set minimum hours.", env.Error.Message)

	w, env = api.do(t, http.MethodPost, "/subject-requirements", gin.H{"class_id": 9, "subject": "Math"}, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Selected class not found.", env.Error.Message)

	w, _ = api.do(t, http.MethodPut, "/teachers/5", gin.H{"name": "Ghost", "email": "ghost@example.com", "subject": "Math"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = api.do(t, http.MethodGet, "/classes", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestMutatingRoutesRequireAdminWhenAuthEnabled(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Expiry: time.Hour})
	api := newTestAPI(t, tokens)
	body := gin.H{"name": "John Doe", "email": "john@example.com", "subject": "Math"}

	w, _ := api.do(t, http.MethodPost, "/teachers", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	viewer, _, err := tokens.Issue("viewer-1", "viewer@example.com", models.RoleViewer)
	require.NoError(t, err)
	w, _ = api.do(t, http.MethodPost, "/teachers", body, viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, _, err := tokens.Issue("admin-1", "admin@example.com", models.RoleAdmin)
	require.NoError(t, err)
	w, _ = api.do(t, http.MethodPost, "/teachers", body, admin)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = api.do(t, http.MethodGet, "/teachers", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"redis": func(ctx context.Context) error { return assert.AnError },
	})
	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", h.Prometheus)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines_total")
}
