package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// PostgresRoster persists the roster collections in Postgres.
type PostgresRoster struct {
	db *sqlx.DB
}

// NewPostgresRoster constructs a PostgresRoster.
func NewPostgresRoster(db *sqlx.DB) *PostgresRoster {
	return &PostgresRoster{db: db}
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTeachers returns all teachers ordered by id.
func (r *PostgresRoster) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, name, email, subject FROM teachers ORDER BY id ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindTeacher fetches a teacher by id.
func (r *PostgresRoster) FindTeacher(ctx context.Context, id int64) (*models.Teacher, error) {
	const query = `SELECT id, name, email, subject FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// CreateTeacher inserts a teacher and sets its generated id.
func (r *PostgresRoster) CreateTeacher(ctx context.Context, teacher *models.Teacher) error {
	const query = `INSERT INTO teachers (name, email, subject) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, teacher.Name, teacher.Email, teacher.Subject).Scan(&teacher.ID); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// UpdateTeacher replaces a teacher's fields.
func (r *PostgresRoster) UpdateTeacher(ctx context.Context, teacher *models.Teacher) error {
	const query = `UPDATE teachers SET name = :name, email = :email, subject = :subject WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return requireAffected(res, "update teacher")
}

// DeleteTeacher removes a teacher.
func (r *PostgresRoster) DeleteTeacher(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return requireAffected(res, "delete teacher")
}

// ListClasses returns all classes ordered by id.
func (r *PostgresRoster) ListClasses(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, subject, duration FROM classes ORDER BY id ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindClass fetches a class by id.
func (r *PostgresRoster) FindClass(ctx context.Context, id int64) (*models.Class, error) {
	const query = `SELECT id, name, subject, duration FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// CreateClass inserts a class and sets its generated id.
func (r *PostgresRoster) CreateClass(ctx context.Context, class *models.Class) error {
	const query = `INSERT INTO classes (name, subject, duration) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, class.Name, class.Subject, class.Duration).Scan(&class.ID); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// UpdateClass replaces a class's fields.
func (r *PostgresRoster) UpdateClass(ctx context.Context, class *models.Class) error {
	const query = `UPDATE classes SET name = :name, subject = :subject, duration = :duration WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return requireAffected(res, "update class")
}

// DeleteClass removes a class.
func (r *PostgresRoster) DeleteClass(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return requireAffected(res, "delete class")
}

// ListRules returns all rules ordered by id.
func (r *PostgresRoster) ListRules(ctx context.Context) ([]models.Rule, error) {
	const query = `SELECT id, teacher_id, min_hours FROM teacher_rules ORDER BY id ASC`
	var rules []models.Rule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// FindRule fetches a rule by id.
func (r *PostgresRoster) FindRule(ctx context.Context, id int64) (*models.Rule, error) {
	const query = `SELECT id, teacher_id, min_hours FROM teacher_rules WHERE id = $1`
	var rule models.Rule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// CreateRule inserts a rule and sets its generated id.
func (r *PostgresRoster) CreateRule(ctx context.Context, rule *models.Rule) error {
	const query = `INSERT INTO teacher_rules (teacher_id, min_hours) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, rule.TeacherID, rule.MinHours).Scan(&rule.ID); err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// UpdateRule replaces a rule's fields.
func (r *PostgresRoster) UpdateRule(ctx context.Context, rule *models.Rule) error {
	const query = `UPDATE teacher_rules SET teacher_id = :teacher_id, min_hours = :min_hours WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return requireAffected(res, "update rule")
}

// DeleteRule removes a rule.
func (r *PostgresRoster) DeleteRule(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teacher_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return requireAffected(res, "delete rule")
}

// ListRequirements returns all subject requirements ordered by id.
func (r *PostgresRoster) ListRequirements(ctx context.Context) ([]models.SubjectRequirement, error) {
	const query = `SELECT id, class_id, subject FROM subject_requirements ORDER BY id ASC`
	var reqs []models.SubjectRequirement
	if err := r.db.SelectContext(ctx, &reqs, query); err != nil {
		return nil, fmt.Errorf("list subject requirements: %w", err)
	}
	return reqs, nil
}

// FindRequirement fetches a requirement by id.
func (r *PostgresRoster) FindRequirement(ctx context.Context, id int64) (*models.SubjectRequirement, error) {
	const query = `SELECT id, class_id, subject FROM subject_requirements WHERE id = $1`
	var req models.SubjectRequirement
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateRequirement inserts a requirement and sets its generated id.
func (r *PostgresRoster) CreateRequirement(ctx context.Context, req *models.SubjectRequirement) error {
	const query = `INSERT INTO subject_requirements (class_id, subject) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, req.ClassID, req.Subject).Scan(&req.ID); err != nil {
		return fmt.Errorf("create subject requirement: %w", err)
	}
	return nil
}

// UpdateRequirement replaces a requirement's fields.
func (r *PostgresRoster) UpdateRequirement(ctx context.Context, req *models.SubjectRequirement) error {
	const query = `UPDATE subject_requirements SET class_id = :class_id, subject = :subject WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, req)
	if err != nil {
		return fmt.Errorf("update subject requirement: %w", err)
	}
	return requireAffected(res, "update subject requirement")
}

// DeleteRequirement removes a requirement.
func (r *PostgresRoster) DeleteRequirement(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subject_requirements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject requirement: %w", err)
	}
	return requireAffected(res, "delete subject requirement")
}
