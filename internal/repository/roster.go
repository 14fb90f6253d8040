package repository

import (
	"context"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Roster is the full set of roster operations shared by the memory and
// Postgres backends. Missing records are reported as sql.ErrNoRows.
type Roster interface {
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

var (
	_ Roster = (*MemoryRoster)(nil)
	_ Roster = (*PostgresRoster)(nil)
)
