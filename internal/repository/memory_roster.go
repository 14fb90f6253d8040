package repository

import (
	"context"
	"database/sql"
	"sync"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type collection[T any] struct {
	mu     sync.RWMutex
	items  []T
	nextID int64
	idOf   func(*T) *int64
}

func newCollection[T any](idOf func(*T) *int64) *collection[T] {
	return &collection[T]{nextID: 1, idOf: idOf}
}

func (c *collection[T]) list() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *collection[T]) find(id int64) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.items {
		if *c.idOf(&c.items[i]) == id {
			item := c.items[i]
			return &item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (c *collection[T]) create(item *T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.idOf(item) = c.nextID
	c.nextID++
	c.items = append(c.items, *item)
}

func (c *collection[T]) update(item *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := *c.idOf(item)
	for i := range c.items {
		if *c.idOf(&c.items[i]) == id {
			c.items[i] = *item
			return nil
		}
	}
	return sql.ErrNoRows
}

func (c *collection[T]) delete(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if *c.idOf(&c.items[i]) == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

// MemoryRoster keeps teachers, classes, rules and subject requirements in
// process memory. Each collection allocates ids from its own counter.
type MemoryRoster struct {
	teachers     *collection[models.Teacher]
	classes      *collection[models.Class]
	rules        *collection[models.Rule]
	requirements *collection[models.SubjectRequirement]
}

// NewMemoryRoster constructs an empty roster.
func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{
		teachers:     newCollection(func(t *models.Teacher) *int64 { return &t.ID }),
		classes:      newCollection(func(c *models.Class) *int64 { return &c.ID }),
		rules:        newCollection(func(r *models.Rule) *int64 { return &r.ID }),
		requirements: newCollection(func(r *models.SubjectRequirement) *int64 { return &r.ID }),
	}
}

// Seed loads the demo roster.
func (r *MemoryRoster) Seed() {
	for _, t := range []models.Teacher{
		{Name: "John Doe", Email: "john.doe@example.com", Subject: "Math"},
		{Name: "Jane Smith", Email: "jane.smith@example.com", Subject: "History"},
		{Name: "Peter Jones", Email: "peter.jones@example.com", Subject: "Science"},
	} {
		teacher := t
		r.teachers.create(&teacher)
	}
	for _, c := range []models.Class{
		{Name: "Algebra 101", Subject: "Math", Duration: 60},
		{Name: "World History", Subject: "History", Duration: 90},
		{Name: "Physics I", Subject: "Science", Duration: 120},
	} {
		class := c
		r.classes.create(&class)
	}
	for _, rl := range []models.Rule{
		{TeacherID: 1, MinHours: 10},
		{TeacherID: 2, MinHours: 8},
	} {
		rule := rl
		r.rules.create(&rule)
	}
}

// ListTeachers returns all teachers in insertion order.
func (r *MemoryRoster) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	return r.teachers.list(), ctx.Err()
}

// FindTeacher returns a teacher or sql.ErrNoRows.
func (r *MemoryRoster) FindTeacher(ctx context.Context, id int64) (*models.Teacher, error) {
	return r.teachers.find(id)
}

// CreateTeacher assigns an id and stores the teacher.
func (r *MemoryRoster) CreateTeacher(ctx context.Context, teacher *models.Teacher) error {
	r.teachers.create(teacher)
	return nil
}

// UpdateTeacher replaces an existing teacher.
func (r *MemoryRoster) UpdateTeacher(ctx context.Context, teacher *models.Teacher) error {
	return r.teachers.update(teacher)
}

// DeleteTeacher removes a teacher.
func (r *MemoryRoster) DeleteTeacher(ctx context.Context, id int64) error {
	return r.teachers.delete(id)
}

// ListClasses returns all classes in insertion order.
func (r *MemoryRoster) ListClasses(ctx context.Context) ([]models.Class, error) {
	return r.classes.list(), ctx.Err()
}

// FindClass returns a class or sql.ErrNoRows.
func (r *MemoryRoster) FindClass(ctx context.Context, id int64) (*models.Class, error) {
	return r.classes.find(id)
}

// CreateClass assigns an id and stores the class.
func (r *MemoryRoster) CreateClass(ctx context.Context, class *models.Class) error {
	r.classes.create(class)
	return nil
}

// UpdateClass replaces an existing class.
func (r *MemoryRoster) UpdateClass(ctx context.Context, class *models.Class) error {
	return r.classes.update(class)
}

// DeleteClass removes a class.
func (r *MemoryRoster) DeleteClass(ctx context.Context, id int64) error {
	return r.classes.delete(id)
}

// ListRules returns all rules in insertion order.
func (r *MemoryRoster) ListRules(ctx context.Context) ([]models.Rule, error) {
	return r.rules.list(), ctx.Err()
}

// FindRule returns a rule or sql.ErrNoRows.
func (r *MemoryRoster) FindRule(ctx context.Context, id int64) (*models.Rule, error) {
	return r.rules.find(id)
}

// CreateRule assigns an id and stores the rule.
func (r *MemoryRoster) CreateRule(ctx context.Context, rule *models.Rule) error {
	r.rules.create(rule)
	return nil
}

// UpdateRule replaces an existing rule.
func (r *MemoryRoster) UpdateRule(ctx context.Context, rule *models.Rule) error {
	return r.rules.update(rule)
}

// DeleteRule removes a rule.
func (r *MemoryRoster) DeleteRule(ctx context.Context, id int64) error {
	return r.rules.delete(id)
}

// ListRequirements returns all subject requirements in insertion order.
func (r *MemoryRoster) ListRequirements(ctx context.Context) ([]models.SubjectRequirement, error) {
	return r.requirements.list(), ctx.Err()
}

// FindRequirement returns a requirement or sql.ErrNoRows.
func (r *MemoryRoster) FindRequirement(ctx context.Context, id int64) (*models.SubjectRequirement, error) {
	return r.requirements.find(id)
}

// CreateRequirement assigns an id and stores the requirement.
func (r *MemoryRoster) CreateRequirement(ctx context.Context, req *models.SubjectRequirement) error {
	r.requirements.create(req)
	return nil
}

// UpdateRequirement replaces an existing requirement.
func (r *MemoryRoster) UpdateRequirement(ctx context.Context, req *models.SubjectRequirement) error {
	return r.requirements.update(req)
}

// DeleteRequirement removes a requirement.
func (r *MemoryRoster) DeleteRequirement(ctx context.Context, id int64) error {
	return r.requirements.delete(id)
}
