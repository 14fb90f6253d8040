package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func intPtr(v int) *int { return &v }

func newRosterFixture() (*RosterService, *repository.MemoryRoster, *dashboardSpy) {
	roster := repository.NewMemoryRoster()
	spy := &dashboardSpy{}
	return NewRosterService(roster, spy, nil, nil), roster, spy
}

func TestRosterServiceTeacherLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, spy := newRosterFixture()

	created, err := svc.CreateTeacher(ctx, dto.TeacherRequest{Name: " Jane Smith ", Email: "jane@example.com", Subject: "History"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", created.Name)
	assert.Equal(t, 1, spy.count())

	updated, err := svc.UpdateTeacher(ctx, created.ID, dto.TeacherRequest{Name: "Jane Smith", Email: "jane@example.com", Subject: "Geography"})
	require.NoError(t, err)
	assert.Equal(t, "Geography", updated.Subject)

	got, err := svc.GetTeacher(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Geography", got.Subject)

	require.NoError(t, svc.DeleteTeacher(ctx, created.ID))
	_, err = svc.GetTeacher(ctx, created.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Equal(t, 3, spy.count())
}

func TestRosterServiceRejectsInvalidTeacher(t *testing.T) {
	svc, _, spy := newRosterFixture()
	_, err := svc.CreateTeacher(context.Background(), dto.TeacherRequest{Name: "No Email", Email: "not-an-email", Subject: "Math"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Zero(t, spy.count())
}

func TestRosterServiceClassDurationBounds(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newRosterFixture()

	_, err := svc.CreateClass(ctx, dto.ClassRequest{Name: "Physics I", Subject: "Science", Duration: 0})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	_, err = svc.CreateClass(ctx, dto.ClassRequest{Name: "Physics I", Subject: "Science", Duration: 1440})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	class, err := svc.CreateClass(ctx, dto.ClassRequest{Name: "Physics I", Subject: "Science", Duration: 120})
	require.NoError(t, err)
	assert.Equal(t, 120, class.Duration)

	_, err = svc.UpdateClass(ctx, 99, dto.ClassRequest{Name: "Ghost", Subject: "Science", Duration: 60})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestRosterServiceRules(t *testing.T) {
	ctx := context.Background()
	svc, roster, _ := newRosterFixture()
	teacher := addTeacher(t, roster, "T1", "Math")

	_, err := svc.CreateRule(ctx, dto.RuleRequest{TeacherID: teacher.ID})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Equal(t, "Please select a teacher and set minimum hours.", appErrors.FromError(err).Message)

	_, err = svc.CreateRule(ctx, dto.RuleRequest{TeacherID: 42, MinHours: intPtr(5)})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	rule, err := svc.CreateRule(ctx, dto.RuleRequest{TeacherID: teacher.ID, MinHours: intPtr(0)})
	require.NoError(t, err)
	assert.Zero(t, rule.MinHours)

	updated, err := svc.UpdateRule(ctx, rule.ID, dto.RuleRequest{TeacherID: teacher.ID, MinHours: intPtr(12)})
	require.NoError(t, err)
	assert.Equal(t, 12, updated.MinHours)

	rules, err := svc.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	require.NoError(t, svc.DeleteRule(ctx, rule.ID))
	err = svc.DeleteRule(ctx, rule.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestRosterServiceRequirements(t *testing.T) {
	ctx := context.Background()
	svc, roster, _ := newRosterFixture()
	class := addClass(t, roster, "Algebra 101", "Math", 60)

	_, err := svc.CreateRequirement(ctx, dto.SubjectRequirementRequest{ClassID: 99, Subject: "Math"})
	require.Error(t, err)
	assert.Equal(t, "Selected class not found.", appErrors.FromError(err).Message)

	req, err := svc.CreateRequirement(ctx, dto.SubjectRequirementRequest{ClassID: class.ID, Subject: " Math "})
	require.NoError(t, err)
	assert.Equal(t, "Math", req.Subject)

	second, err := svc.CreateRequirement(ctx, dto.SubjectRequirementRequest{ClassID: class.ID, Subject: "Math"})
	require.NoError(t, err)

	list, err := svc.ListRequirements(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, req.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	_, err = svc.UpdateRequirement(ctx, req.ID, dto.SubjectRequirementRequest{ClassID: class.ID, Subject: "Statistics"})
	require.NoError(t, err)
	got, err := svc.GetRequirement(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Statistics", got.Subject)

	require.NoError(t, svc.DeleteRequirement(ctx, second.ID))
	_, err = svc.GetRequirement(ctx, second.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestRosterServiceDeleteDoesNotCascade(t *testing.T) {
	ctx := context.Background()
	svc, roster, _ := newRosterFixture()
	class := addClass(t, roster, "Algebra 101", "Math", 60)
	addRequirement(t, roster, class.ID, "Math")

	require.NoError(t, svc.DeleteClass(ctx, class.ID))
	list, err := svc.ListRequirements(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, class.ID, list[0].ClassID)
}
