package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const (
	unknownClassName   = "Unknown Class"
	unknownTeacherName = "Unknown Teacher"
)

type scheduleStore interface {
	List(ctx context.Context) ([]models.Schedule, error)
	FindByID(ctx context.Context, id int64) (*models.Schedule, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int64) (bool, error)
	WithTx(ctx context.Context, fn func(tx *repository.ScheduleTx) error) error
}

type scheduleRosterReader interface {
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListClasses(ctx context.Context) ([]models.Class, error)
	FindTeacher(ctx context.Context, id int64) (*models.Teacher, error)
	FindClass(ctx context.Context, id int64) (*models.Class, error)
}

type dashboardInvalidator interface {
	InvalidateDashboard(ctx context.Context)
}

// ScheduleService handles manual schedule edits. Every write runs its conflict
// check and commit inside one store transaction.
type ScheduleService struct {
	store     scheduleStore
	roster    scheduleRosterReader
	dashboard dashboardInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(store scheduleStore, roster scheduleRosterReader, dashboard dashboardInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{store: store, roster: roster, dashboard: dashboard, metrics: metrics, validator: validate, logger: logger}
}

// List returns schedules with display names and pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleView, *models.Pagination, error) {
	schedules, err := s.store.List(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	classNames, teacherNames, err := s.names(ctx)
	if err != nil {
		return nil, nil, err
	}

	matched := make([]models.Schedule, 0, len(schedules))
	for _, item := range schedules {
		if filter.Matches(item) {
			matched = append(matched, item)
		}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	views := make([]models.ScheduleView, 0, end-start)
	for _, item := range matched[start:end] {
		views = append(views, enrich(item, classNames, teacherNames))
	}
	return views, &models.Pagination{Page: page, PageSize: size, TotalCount: len(matched)}, nil
}

// Get returns a single schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id int64) (*models.ScheduleView, error) {
	schedule, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	classNames, teacherNames, err := s.names(ctx)
	if err != nil {
		return nil, err
	}
	view := enrich(*schedule, classNames, teacherNames)
	return &view, nil
}

// Save creates a schedule when id is 0 and replaces the existing one otherwise.
func (s *ScheduleService) Save(ctx context.Context, id int64, req dto.SaveScheduleRequest) (*models.Schedule, error) {
	if req.ClassID == 0 || req.TeacherID == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Please select both a class and a teacher.")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	day, err := models.ParseDayOfWeek(req.DayOfWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day_of_week")
	}
	start, err := models.ParseClockTime(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
	}

	class, err := s.roster.FindClass(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Selected class not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if _, err := s.roster.FindTeacher(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Selected teacher not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	end, err := models.EndTime(start, class.Duration)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("class %q cannot start at %s", class.Name, start))
	}

	record := models.Schedule{
		ClassID:   class.ID,
		TeacherID: req.TeacherID,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
	}

	err = s.store.WithTx(ctx, func(tx *repository.ScheduleTx) error {
		if id != 0 {
			if _, ok := tx.Find(id); !ok {
				return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
			}
		}
		if existing, found := FindConflict(record.StartTime, record.EndTime, record.TeacherID, record.DayOfWeek, tx.List(), id); found {
			return s.wrapConflict(existing)
		}
		if id == 0 {
			record.ID = tx.Create(record)
			return nil
		}
		tx.Replace(id, record)
		record.ID = id
		return nil
	})
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrConflict.Code) {
			s.metrics.RecordScheduleConflict()
		}
		return nil, s.normaliseTxError(err, "failed to save schedule")
	}

	s.afterWrite(ctx)
	s.logger.Debug("schedule saved", zap.Int64("schedule_id", record.ID), zap.Int64("teacher_id", record.TeacherID), zap.String("day", string(record.DayOfWeek)))
	return &record, nil
}

// Delete removes a schedule entry.
func (s *ScheduleService) Delete(ctx context.Context, id int64) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	s.afterWrite(ctx)
	return nil
}

func (s *ScheduleService) afterWrite(ctx context.Context) {
	if count, err := s.store.Count(ctx); err == nil {
		s.metrics.SetSchedulesStored(count)
	}
	if s.dashboard != nil {
		s.dashboard.InvalidateDashboard(ctx)
	}
}

func (s *ScheduleService) names(ctx context.Context) (map[int64]string, map[int64]string, error) {
	classes, err := s.roster.ListClasses(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	teachers, err := s.roster.ListTeachers(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	classNames := make(map[int64]string, len(classes))
	for _, c := range classes {
		classNames[c.ID] = c.Name
	}
	teacherNames := make(map[int64]string, len(teachers))
	for _, t := range teachers {
		teacherNames[t.ID] = t.Name
	}
	return classNames, teacherNames, nil
}

func (s *ScheduleService) wrapConflict(existing models.Schedule) error {
	domainErr := newConflictError(existing)
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, domainErr.Message)
}

func (s *ScheduleService) normaliseTxError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func enrich(s models.Schedule, classNames, teacherNames map[int64]string) models.ScheduleView {
	view := models.ScheduleView{Schedule: s, ClassName: unknownClassName, TeacherName: unknownTeacherName}
	if name, ok := classNames[s.ClassID]; ok {
		view.ClassName = name
	}
	if name, ok := teacherNames[s.TeacherID]; ok {
		view.TeacherName = name
	}
	return view
}
