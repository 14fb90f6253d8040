package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type rosterRepository interface {
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	FindTeacher(ctx context.Context, id int64) (*models.Teacher, error)
	CreateTeacher(ctx context.Context, teacher *models.Teacher) error
	UpdateTeacher(ctx context.Context, teacher *models.Teacher) error
	DeleteTeacher(ctx context.Context, id int64) error

	ListClasses(ctx context.Context) ([]models.Class, error)
	FindClass(ctx context.Context, id int64) (*models.Class, error)
	CreateClass(ctx context.Context, class *models.Class) error
	UpdateClass(ctx context.Context, class *models.Class) error
	DeleteClass(ctx context.Context, id int64) error

	ListRules(ctx context.Context) ([]models.Rule, error)
	FindRule(ctx context.Context, id int64) (*models.Rule, error)
	CreateRule(ctx context.Context, rule *models.Rule) error
	UpdateRule(ctx context.Context, rule *models.Rule) error
	DeleteRule(ctx context.Context, id int64) error

	ListRequirements(ctx context.Context) ([]models.SubjectRequirement, error)
	FindRequirement(ctx context.Context, id int64) (*models.SubjectRequirement, error)
	CreateRequirement(ctx context.Context, req *models.SubjectRequirement) error
	UpdateRequirement(ctx context.Context, req *models.SubjectRequirement) error
	DeleteRequirement(ctx context.Context, id int64) error
}

// RosterService manages teachers, classes, rules and subject requirements.
// Deleting a record never cascades; schedules keep dangling ids.
type RosterService struct {
	repo      rosterRepository
	dashboard dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(repo rosterRepository, dashboard dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{repo: repo, dashboard: dashboard, validator: validate, logger: logger}
}

// ListTeachers returns all teachers.
func (s *RosterService) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.repo.ListTeachers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// GetTeacher returns a teacher by id.
func (s *RosterService) GetTeacher(ctx context.Context, id int64) (*models.Teacher, error) {
	teacher, err := s.repo.FindTeacher(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher not found", "failed to load teacher")
	}
	return teacher, nil
}

// CreateTeacher registers a teacher.
func (s *RosterService) CreateTeacher(ctx context.Context, req dto.TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
	}
	if err := s.repo.CreateTeacher(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.changed(ctx, "teacher", teacher.ID)
	return teacher, nil
}

// UpdateTeacher replaces a teacher's fields.
func (s *RosterService) UpdateTeacher(ctx context.Context, id int64, req dto.TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		ID:      id,
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
	}
	if err := s.repo.UpdateTeacher(ctx, teacher); err != nil {
		return nil, lookupError(err, "teacher not found", "failed to update teacher")
	}
	s.changed(ctx, "teacher", id)
	return teacher, nil
}

// DeleteTeacher removes a teacher.
func (s *RosterService) DeleteTeacher(ctx context.Context, id int64) error {
	if err := s.repo.DeleteTeacher(ctx, id); err != nil {
		return lookupError(err, "teacher not found", "failed to delete teacher")
	}
	s.changed(ctx, "teacher", id)
	return nil
}

// ListClasses returns all classes.
func (s *RosterService) ListClasses(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.ListClasses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// GetClass returns a class by id.
func (s *RosterService) GetClass(ctx context.Context, id int64) (*models.Class, error) {
	class, err := s.repo.FindClass(ctx, id)
	if err != nil {
		return nil, lookupError(err, "class not found", "failed to load class")
	}
	return class, nil
}

// CreateClass registers a class.
func (s *RosterService) CreateClass(ctx context.Context, req dto.ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{
		Name:     strings.TrimSpace(req.Name),
		Subject:  strings.TrimSpace(req.Subject),
		Duration: req.Duration,
	}
	if err := s.repo.CreateClass(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.changed(ctx, "class", class.ID)
	return class, nil
}

// UpdateClass replaces a class's fields. Existing schedules keep their end times.
func (s *RosterService) UpdateClass(ctx context.Context, id int64, req dto.ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{
		ID:       id,
		Name:     strings.TrimSpace(req.Name),
		Subject:  strings.TrimSpace(req.Subject),
		Duration: req.Duration,
	}
	if err := s.repo.UpdateClass(ctx, class); err != nil {
		return nil, lookupError(err, "class not found", "failed to update class")
	}
	s.changed(ctx, "class", id)
	return class, nil
}

// DeleteClass removes a class.
func (s *RosterService) DeleteClass(ctx context.Context, id int64) error {
	if err := s.repo.DeleteClass(ctx, id); err != nil {
		return lookupError(err, "class not found", "failed to delete class")
	}
	s.changed(ctx, "class", id)
	return nil
}

// ListRules returns all rules in creation order.
func (s *RosterService) ListRules(ctx context.Context) ([]models.Rule, error) {
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rules")
	}
	return rules, nil
}

// GetRule returns a rule by id.
func (s *RosterService) GetRule(ctx context.Context, id int64) (*models.Rule, error) {
	rule, err := s.repo.FindRule(ctx, id)
	if err != nil {
		return nil, lookupError(err, "rule not found", "failed to load rule")
	}
	return rule, nil
}

// CreateRule registers a minimum-hours rule for an existing teacher.
func (s *RosterService) CreateRule(ctx context.Context, req dto.RuleRequest) (*models.Rule, error) {
	if err := s.validateRule(ctx, req); err != nil {
		return nil, err
	}
	rule := &models.Rule{TeacherID: req.TeacherID, MinHours: *req.MinHours}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rule")
	}
	s.changed(ctx, "rule", rule.ID)
	return rule, nil
}

// UpdateRule replaces a rule's fields.
func (s *RosterService) UpdateRule(ctx context.Context, id int64, req dto.RuleRequest) (*models.Rule, error) {
	if err := s.validateRule(ctx, req); err != nil {
		return nil, err
	}
	rule := &models.Rule{ID: id, TeacherID: req.TeacherID, MinHours: *req.MinHours}
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, lookupError(err, "rule not found", "failed to update rule")
	}
	s.changed(ctx, "rule", id)
	return rule, nil
}

// DeleteRule removes a rule.
func (s *RosterService) DeleteRule(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return lookupError(err, "rule not found", "failed to delete rule")
	}
	s.changed(ctx, "rule", id)
	return nil
}

// ListRequirements returns all subject requirements in creation order.
func (s *RosterService) ListRequirements(ctx context.Context) ([]models.SubjectRequirement, error) {
	reqs, err := s.repo.ListRequirements(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject requirements")
	}
	return reqs, nil
}

// GetRequirement returns a requirement by id.
func (s *RosterService) GetRequirement(ctx context.Context, id int64) (*models.SubjectRequirement, error) {
	req, err := s.repo.FindRequirement(ctx, id)
	if err != nil {
		return nil, lookupError(err, "subject requirement not found", "failed to load subject requirement")
	}
	return req, nil
}

// CreateRequirement registers a subject requirement for an existing class.
func (s *RosterService) CreateRequirement(ctx context.Context, req dto.SubjectRequirementRequest) (*models.SubjectRequirement, error) {
	if err := s.validateRequirement(ctx, req); err != nil {
		return nil, err
	}
	record := &models.SubjectRequirement{ClassID: req.ClassID, Subject: strings.TrimSpace(req.Subject)}
	if err := s.repo.CreateRequirement(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject requirement")
	}
	s.changed(ctx, "subject_requirement", record.ID)
	return record, nil
}

// UpdateRequirement replaces a requirement's fields.
func (s *RosterService) UpdateRequirement(ctx context.Context, id int64, req dto.SubjectRequirementRequest) (*models.SubjectRequirement, error) {
	if err := s.validateRequirement(ctx, req); err != nil {
		return nil, err
	}
	record := &models.SubjectRequirement{ID: id, ClassID: req.ClassID, Subject: strings.TrimSpace(req.Subject)}
	if err := s.repo.UpdateRequirement(ctx, record); err != nil {
		return nil, lookupError(err, "subject requirement not found", "failed to update subject requirement")
	}
	s.changed(ctx, "subject_requirement", id)
	return record, nil
}

// DeleteRequirement removes a requirement.
func (s *RosterService) DeleteRequirement(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRequirement(ctx, id); err != nil {
		return lookupError(err, "subject requirement not found", "failed to delete subject requirement")
	}
	s.changed(ctx, "subject_requirement", id)
	return nil
}

func (s *RosterService) validateRule(ctx context.Context, req dto.RuleRequest) error {
	if req.TeacherID == 0 || req.MinHours == nil {
		return appErrors.Clone(appErrors.ErrValidation, "Please select a teacher and set minimum hours.")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	if _, err := s.repo.FindTeacher(ctx, req.TeacherID); err != nil {
		return lookupError(err, "Selected teacher not found.", "failed to load teacher")
	}
	return nil
}

func (s *RosterService) validateRequirement(ctx context.Context, req dto.SubjectRequirementRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject requirement payload")
	}
	if _, err := s.repo.FindClass(ctx, req.ClassID); err != nil {
		return lookupError(err, "Selected class not found.", "failed to load class")
	}
	return nil
}

func (s *RosterService) changed(ctx context.Context, kind string, id int64) {
	if s.dashboard != nil {
		s.dashboard.InvalidateDashboard(ctx)
	}
	s.logger.Debug("roster changed", zap.String("kind", kind), zap.Int64("id", id))
}

func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
