package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type generatorFixture struct {
	gen    *ScheduleGeneratorService
	store  *repository.ScheduleStore
	roster *repository.MemoryRoster
	spy    *dashboardSpy
}

func defaultGeneratorConfig(t *testing.T) ScheduleGeneratorConfig {
	t.Helper()
	cfg, err := NewScheduleGeneratorConfig("08:00", "16:00", time.Hour, 0, 7, 0)
	require.NoError(t, err)
	return cfg
}

func newGeneratorFixture(t *testing.T, cfg ScheduleGeneratorConfig) generatorFixture {
	t.Helper()
	store := repository.NewScheduleStore()
	roster := repository.NewMemoryRoster()
	spy := &dashboardSpy{}
	gen := NewScheduleGeneratorService(store, roster, spy, NewMetricsService(), nil, zap.NewNop(), cfg)

	queue := jobs.NewQueue("test-generation", gen.Handle, jobs.QueueConfig{Workers: 1, MaxRetries: -1})
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)
	gen.UseDispatcher(queue)

	return generatorFixture{gen: gen, store: store, roster: roster, spy: spy}
}

func (f generatorFixture) run(t *testing.T, seed *int64) *models.GenerationRun {
	t.Helper()
	started, err := f.gen.Start(context.Background(), dto.GenerateScheduleRequest{Seed: seed})
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusQueued, started.Status)
	return waitForRun(t, f.gen)
}

func waitForRun(t *testing.T, gen *ScheduleGeneratorService) *models.GenerationRun {
	t.Helper()
	var run *models.GenerationRun
	require.Eventually(t, func() bool {
		status, err := gen.Status(context.Background())
		if err != nil {
			return false
		}
		run = status
		return !status.Status.Active()
	}, 5*time.Second, 5*time.Millisecond)
	return run
}

func TestGeneratorConfigSlots(t *testing.T) {
	cfg := defaultGeneratorConfig(t)
	slots := cfg.Slots()
	require.Len(t, slots, 9)
	assert.Equal(t, "08:00", slots[0].String())
	assert.Equal(t, "16:00", slots[8].String())

	_, err := NewScheduleGeneratorConfig("16:00", "08:00", time.Hour, 0, 0, 0)
	assert.Error(t, err)
	_, err = NewScheduleGeneratorConfig("08:00", "16:00", time.Second, 0, 0, 0)
	assert.Error(t, err)
}

func TestEligibleTeachers(t *testing.T) {
	teachers := []models.Teacher{
		{ID: 1, Subject: "Math"},
		{ID: 2, Subject: " math "},
		{ID: 3, Subject: "History"},
	}
	eligible := EligibleTeachers(teachers, "MATH")
	require.Len(t, eligible, 2)
	assert.Empty(t, EligibleTeachers(teachers, "Art"))
}

func TestGenerateEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	f := newGeneratorFixture(t, defaultGeneratorConfig(t))
	teacher := addTeacher(t, f.roster, "T1", "Math")
	addRule(t, f.roster, teacher.ID, 2)
	class := addClass(t, f.roster, "C1", "Math", 90)
	addRequirement(t, f.roster, class.ID, "Math")

	run := f.run(t, nil)
	assert.Equal(t, models.GenerationStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Progress.Processed)
	assert.Equal(t, 1, run.Progress.Placed)
	assert.Equal(t, 100.0, run.Progress.Percent)
	assert.Empty(t, run.Unplaced)

	schedules, err := f.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, class.ID, schedules[0].ClassID)
	assert.Equal(t, teacher.ID, schedules[0].TeacherID)
	assert.True(t, schedules[0].DayOfWeek.Valid())
	assert.Equal(t, schedules[0].StartTime+90, schedules[0].EndTime)

	compliance := NewComplianceService(f.store, f.roster, nil, nil, nil)
	hours, err := compliance.TeacherHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.5, hours[teacher.ID])
	ratio, err := compliance.ComplianceRatio(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ratio)
	assert.Positive(t, f.spy.count())
}

func TestGenerateClearsPriorSchedules(t *testing.T) {
	ctx := context.Background()
	f := newGeneratorFixture(t, defaultGeneratorConfig(t))
	teacher := addTeacher(t, f.roster, "T1", "Math")
	class := addClass(t, f.roster, "C1", "Math", 60)
	addRequirement(t, f.roster, class.ID, "Math")

	manualID, err := f.store.Create(ctx, models.Schedule{ClassID: class.ID, TeacherID: teacher.ID, DayOfWeek: models.Friday, StartTime: 13 * 60, EndTime: 14 * 60})
	require.NoError(t, err)

	f.run(t, nil)
	schedules, err := f.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.NotEqual(t, manualID, schedules[0].ID)

	f.run(t, nil)
	again, err := f.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.NotEqual(t, schedules[0].ID, again[0].ID)
}

func TestGenerateWithoutEligibleTeacherStillCompletes(t *testing.T) {
	ctx := context.Background()
	f := newGeneratorFixture(t, defaultGeneratorConfig(t))
	addTeacher(t, f.roster, "T1", "Math")
	art := addClass(t, f.roster, "Painting", "Art", 60)
	math := addClass(t, f.roster, "Algebra", "Math", 60)
	artReq := addRequirement(t, f.roster, art.ID, "Art")
	addRequirement(t, f.roster, math.ID, "Math")
	missing := addRequirement(t, f.roster, 99, "Math")

	run := f.run(t, nil)
	assert.Equal(t, models.GenerationStatusCompleted, run.Status)
	assert.Equal(t, 3, run.Progress.Processed)
	assert.Equal(t, 3, run.Progress.Total)
	assert.Equal(t, 100.0, run.Progress.Percent)
	assert.Equal(t, 1, run.Progress.Placed)
	assert.Contains(t, run.Progress.Message, "2 requirement(s) could not be placed")

	require.Len(t, run.Unplaced, 2)
	assert.Equal(t, artReq.ID, run.Unplaced[0].RequirementID)
	assert.Equal(t, models.UnplacedNoEligibleTeacher, run.Unplaced[0].Reason)
	assert.Equal(t, missing.ID, run.Unplaced[1].RequirementID)
	assert.Equal(t, models.UnplacedClassNotFound, run.Unplaced[1].Reason)

	schedules, _ := f.store.List(ctx)
	require.Len(t, schedules, 1)
	assert.Equal(t, math.ID, schedules[0].ClassID)
}

func TestGenerateSkipsSlotsEndingAfterMidnight(t *testing.T) {
	f := newGeneratorFixture(t, defaultGeneratorConfig(t))
	addTeacher(t, f.roster, "T1", "Math")
	marathon := addClass(t, f.roster, "Marathon", "Math", 16*60)
	addRequirement(t, f.roster, marathon.ID, "Math")

	run := f.run(t, nil)
	assert.Equal(t, models.GenerationStatusCompleted, run.Status)
	require.Len(t, run.Unplaced, 1)
	assert.Equal(t, models.UnplacedNoFeasibleSlot, run.Unplaced[0].Reason)
}

func TestGenerateNeverDoubleBooks(t *testing.T) {
	ctx := context.Background()
	f := newGeneratorFixture(t, defaultGeneratorConfig(t))
	addTeacher(t, f.roster, "T1", "Math")
	addTeacher(t, f.roster, "T2", "Math")
	short := addClass(t, f.roster, "Short", "Math", 45)
	long := addClass(t, f.roster, "Long", "Math", 150)
	for i := 0; i < 30; i++ {
		addRequirement(t, f.roster, short.ID, "Math")
		addRequirement(t, f.roster, long.ID, "Math")
	}

	run := f.run(t, nil)
	assert.Equal(t, models.GenerationStatusCompleted, run.Status)
	assert.Equal(t, 60, run.Progress.Processed)

	schedules, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.Progress.Placed, len(schedules))
	assert.Equal(t, len(schedules)+len(run.Unplaced), 60)
	assertNoOverlaps(t, schedules)
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	ctx := context.Background()
	f := newGeneratorFixture(t, defaultGeneratorConfig(t))
	addTeacher(t, f.roster, "T1", "Math")
	addTeacher(t, f.roster, "T2", "Math")
	class := addClass(t, f.roster, "C1", "Math", 60)
	for i := 0; i < 5; i++ {
		addRequirement(t, f.roster, class.ID, "Math")
	}

	seed := int64(42)
	f.run(t, &seed)
	first, _ := f.store.List(ctx)
	f.run(t, &seed)
	second, _ := f.store.List(ctx)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].TeacherID, second[i].TeacherID)
		assert.Equal(t, first[i].DayOfWeek, second[i].DayOfWeek)
		assert.Equal(t, first[i].StartTime, second[i].StartTime)
	}
}

func TestGenerateWithNoRequirements(t *testing.T) {
	ctx := context.Background()
	f := newGeneratorFixture(t, defaultGeneratorConfig(t))
	_, err := f.store.Create(ctx, models.Schedule{ClassID: 1, TeacherID: 1, DayOfWeek: models.Monday, StartTime: 8 * 60, EndTime: 9 * 60})
	require.NoError(t, err)

	run := f.run(t, nil)
	assert.Equal(t, models.GenerationStatusCompleted, run.Status)
	assert.Equal(t, 100.0, run.Progress.Percent)
	count, _ := f.store.Count(ctx)
	assert.Zero(t, count)
}

func TestGenerateAllowsSingleActiveRunAndCancel(t *testing.T) {
	cfg := defaultGeneratorConfig(t)
	cfg.StepDelay = 50 * time.Millisecond
	f := newGeneratorFixture(t, cfg)
	addTeacher(t, f.roster, "T1", "Math")
	class := addClass(t, f.roster, "C1", "Math", 60)
	for i := 0; i < 20; i++ {
		addRequirement(t, f.roster, class.ID, "Math")
	}

	started, err := f.gen.Start(context.Background(), dto.GenerateScheduleRequest{})
	require.NoError(t, err)

	_, err = f.gen.Start(context.Background(), dto.GenerateScheduleRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))

	_, err = f.gen.Cancel(context.Background(), "unknown-run")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = f.gen.Cancel(context.Background(), started.ID)
	require.NoError(t, err)

	run := waitForRun(t, f.gen)
	assert.Equal(t, models.GenerationStatusCancelled, run.Status)
	assert.Less(t, run.Progress.Processed, 20)
	require.NotNil(t, run.FinishedAt)

	schedules, _ := f.store.List(context.Background())
	assertNoOverlaps(t, schedules)

	_, err = f.gen.Cancel(context.Background(), started.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPreconditionFailed.Code))

	next, err := f.gen.Start(context.Background(), dto.GenerateScheduleRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, started.ID, next.ID)
}

func TestGeneratorStatusBeforeAnyRun(t *testing.T) {
	f := newGeneratorFixture(t, defaultGeneratorConfig(t))
	_, err := f.gen.Status(context.Background())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestGeneratorStartWithoutDispatcher(t *testing.T) {
	gen := NewScheduleGeneratorService(repository.NewScheduleStore(), repository.NewMemoryRoster(), nil, nil, nil, nil, defaultGeneratorConfig(t))
	_, err := gen.Start(context.Background(), dto.GenerateScheduleRequest{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
}

func TestGeneratorAndManualSavesNeverDoubleBook(t *testing.T) {
	ctx := context.Background()
	f := newGeneratorFixture(t, defaultGeneratorConfig(t))
	teacher := addTeacher(t, f.roster, "T1", "Math")
	class := addClass(t, f.roster, "C1", "Math", 60)
	for i := 0; i < 30; i++ {
		addRequirement(t, f.roster, class.ID, "Math")
	}
	manual := NewScheduleService(f.store, f.roster, nil, nil, nil, nil)

	_, err := f.gen.Start(ctx, dto.GenerateScheduleRequest{})
	require.NoError(t, err)
	for _, day := range []string{"Monday", "Tuesday", "Wednesday"} {
		for _, start := range []string{"08:00", "08:30", "12:00"} {
			_, _ = manual.Save(ctx, 0, dto.SaveScheduleRequest{ClassID: class.ID, TeacherID: teacher.ID, DayOfWeek: day, StartTime: start})
		}
	}
	waitForRun(t, f.gen)

	schedules, err := f.store.List(ctx)
	require.NoError(t, err)
	assertNoOverlaps(t, schedules)
}

type flakyScheduleStore struct {
	*repository.ScheduleStore
	failures int32
	calls    int32
}

func (s *flakyScheduleStore) WithTx(ctx context.Context, fn func(tx *repository.ScheduleTx) error) error {
	if atomic.AddInt32(&s.calls, 1) <= s.failures {
		return errors.New("store unavailable")
	}
	return s.ScheduleStore.WithTx(ctx, fn)
}

func newRetryingGenerator(t *testing.T, store *flakyScheduleStore, roster *repository.MemoryRoster) *ScheduleGeneratorService {
	t.Helper()
	cfg, err := NewScheduleGeneratorConfig("08:00", "16:00", time.Hour, 0, 7, 1)
	require.NoError(t, err)
	gen := NewScheduleGeneratorService(store, roster, &dashboardSpy{}, NewMetricsService(), nil, zap.NewNop(), cfg)
	queue := jobs.NewQueue("test-generation", gen.Handle, jobs.QueueConfig{Workers: 1, MaxRetries: 1, RetryDelay: 10 * time.Millisecond})
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)
	gen.UseDispatcher(queue)
	return gen
}

func TestGenerateRetriesTransientStoreFailure(t *testing.T) {
	roster := repository.NewMemoryRoster()
	addTeacher(t, roster, "T1", "Math")
	class := addClass(t, roster, "C1", "Math", 60)
	addRequirement(t, roster, class.ID, "Math")
	store := &flakyScheduleStore{ScheduleStore: repository.NewScheduleStore(), failures: 1}
	gen := newRetryingGenerator(t, store, roster)

	_, err := gen.Start(context.Background(), dto.GenerateScheduleRequest{})
	require.NoError(t, err)
	run := waitForRun(t, gen)

	assert.Equal(t, models.GenerationStatusCompleted, run.Status)
	assert.Empty(t, run.Error)
	assert.Equal(t, 1, run.Progress.Placed)
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGenerateFailsAfterRetriesExhausted(t *testing.T) {
	roster := repository.NewMemoryRoster()
	addTeacher(t, roster, "T1", "Math")
	class := addClass(t, roster, "C1", "Math", 60)
	addRequirement(t, roster, class.ID, "Math")
	store := &flakyScheduleStore{ScheduleStore: repository.NewScheduleStore(), failures: 100}
	gen := newRetryingGenerator(t, store, roster)

	_, err := gen.Start(context.Background(), dto.GenerateScheduleRequest{})
	require.NoError(t, err)
	run := waitForRun(t, gen)

	assert.Equal(t, models.GenerationStatusFailed, run.Status)
	assert.Contains(t, run.Error, "store unavailable")
	assert.Equal(t, int32(2), atomic.LoadInt32(&store.calls))
	require.NotNil(t, run.FinishedAt)
}
