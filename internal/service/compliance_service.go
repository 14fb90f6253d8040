package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const dashboardCacheKey = "dashboard"

type scheduleReader interface {
	List(ctx context.Context) ([]models.Schedule, error)
}

type rosterReader interface {
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListClasses(ctx context.Context) ([]models.Class, error)
	ListRules(ctx context.Context) ([]models.Rule, error)
	ListRequirements(ctx context.Context) ([]models.SubjectRequirement, error)
}

// TeacherHours accumulates scheduled hours per teacher. Every roster teacher
// starts at zero; sessions whose class is unknown contribute nothing.
func TeacherHours(teachers []models.Teacher, classes []models.Class, schedules []models.Schedule) map[int64]float64 {
	hours := make(map[int64]float64, len(teachers))
	for _, t := range teachers {
		hours[t.ID] = 0
	}
	durations := make(map[int64]int, len(classes))
	for _, c := range classes {
		durations[c.ID] = c.Duration
	}
	for _, s := range schedules {
		hours[s.TeacherID] += float64(durations[s.ClassID]) / 60
	}
	return hours
}

// TeacherMinHours maps each ruled teacher to its minimum. A later rule for the
// same teacher overrides an earlier one.
func TeacherMinHours(rules []models.Rule) map[int64]int {
	out := make(map[int64]int, len(rules))
	for _, r := range rules {
		out[r.TeacherID] = r.MinHours
	}
	return out
}

// ComplianceRatio is the percentage of ruled teachers whose hours meet their
// minimum. With no rules every teacher is vacuously compliant.
func ComplianceRatio(hours map[int64]float64, minHours map[int64]int) float64 {
	if len(minHours) == 0 {
		return 100.0
	}
	compliant := 0
	for teacherID, min := range minHours {
		if hours[teacherID] >= float64(min) {
			compliant++
		}
	}
	return float64(compliant) / float64(len(minHours)) * 100
}

// ComplianceService derives workload projections from the current schedule
// and roster contents.
type ComplianceService struct {
	schedules scheduleReader
	roster    rosterReader
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger

	// version is bumped on every invalidation and is part of the cache key,
	// so a dashboard computed before a write is never served after it.
	version atomic.Uint64
}

// NewComplianceService constructs the compliance service. cache may be nil.
func NewComplianceService(schedules scheduleReader, roster rosterReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ComplianceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplianceService{schedules: schedules, roster: roster, cache: cache, metrics: metrics, logger: logger}
}

// TeacherHours returns accumulated hours per teacher.
func (s *ComplianceService) TeacherHours(ctx context.Context) (map[int64]float64, error) {
	teachers, classes, schedules, err := s.loadWorkload(ctx)
	if err != nil {
		return nil, err
	}
	return TeacherHours(teachers, classes, schedules), nil
}

// TeacherMinHours returns the effective minimum per ruled teacher.
func (s *ComplianceService) TeacherMinHours(ctx context.Context) (map[int64]int, error) {
	rules, err := s.roster.ListRules(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rules")
	}
	return TeacherMinHours(rules), nil
}

// ComplianceRatio returns the compliance percentage in [0, 100].
func (s *ComplianceService) ComplianceRatio(ctx context.Context) (float64, error) {
	hours, err := s.TeacherHours(ctx)
	if err != nil {
		return 0, err
	}
	minHours, err := s.TeacherMinHours(ctx)
	if err != nil {
		return 0, err
	}
	ratio := ComplianceRatio(hours, minHours)
	s.metrics.SetComplianceRatio(ratio)
	return ratio, nil
}

// Dashboard returns totals, the compliance ratio and a row per teacher.
// The composed view is served from cache when available.
func (s *ComplianceService) Dashboard(ctx context.Context) (*models.Dashboard, bool, error) {
	key := s.dashboardKey()
	var cached models.Dashboard
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	teachers, classes, schedules, err := s.loadWorkload(ctx)
	if err != nil {
		return nil, false, err
	}
	rules, err := s.roster.ListRules(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rules")
	}
	requirements, err := s.roster.ListRequirements(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject requirements")
	}

	hours := TeacherHours(teachers, classes, schedules)
	minHours := TeacherMinHours(rules)
	dashboard := &models.Dashboard{
		Totals: models.DashboardTotals{
			Teachers:     len(teachers),
			Classes:      len(classes),
			Schedules:    len(schedules),
			Requirements: len(requirements),
			Rules:        len(rules),
		},
		ComplianceRatio: ComplianceRatio(hours, minHours),
		Teachers:        make([]models.TeacherCompliance, 0, len(teachers)),
	}
	for _, t := range teachers {
		dashboard.Teachers = append(dashboard.Teachers, teacherCompliance(t, hours[t.ID], minHours))
	}
	s.metrics.SetComplianceRatio(dashboard.ComplianceRatio)

	if key != s.dashboardKey() {
		return dashboard, false, nil
	}
	if err := s.cache.Set(ctx, key, dashboard, 0); err != nil {
		s.logger.Debug("dashboard not cached", zap.Error(err))
	}
	return dashboard, false, nil
}

// InvalidateDashboard drops the cached dashboard after any write.
func (s *ComplianceService) InvalidateDashboard(ctx context.Context) {
	if s == nil {
		return
	}
	s.version.Add(1)
	if err := s.cache.Invalidate(ctx, dashboardCacheKey+"*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *ComplianceService) dashboardKey() string {
	return fmt.Sprintf("%s:v%d", dashboardCacheKey, s.version.Load())
}

func (s *ComplianceService) loadWorkload(ctx context.Context) ([]models.Teacher, []models.Class, []models.Schedule, error) {
	teachers, err := s.roster.ListTeachers(ctx)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	classes, err := s.roster.ListClasses(ctx)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	schedules, err := s.schedules.List(ctx)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	return teachers, classes, schedules, nil
}

func teacherCompliance(t models.Teacher, hours float64, minHours map[int64]int) models.TeacherCompliance {
	row := models.TeacherCompliance{
		TeacherID:   t.ID,
		TeacherName: t.Name,
		Hours:       hours,
		Progress:    100,
		Compliant:   true,
	}
	min, ok := minHours[t.ID]
	if !ok {
		return row
	}
	row.MinHours = &min
	row.Compliant = hours >= float64(min)
	if min > 0 {
		row.Progress = hours / float64(min) * 100
	}
	return row
}
