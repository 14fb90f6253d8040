package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

// GenerationJobType labels generation jobs on the queue.
const GenerationJobType = "timetable.generate"

type generationStore interface {
	Count(ctx context.Context) (int, error)
	WithTx(ctx context.Context, fn func(tx *repository.ScheduleTx) error) error
}

type generationRosterReader interface {
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListClasses(ctx context.Context) ([]models.Class, error)
	ListRequirements(ctx context.Context) ([]models.SubjectRequirement, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	DayStart   models.ClockTime
	DayEnd     models.ClockTime
	SlotStep   time.Duration
	StepDelay  time.Duration
	Seed       int64
	MaxRetries int
}

// NewScheduleGeneratorConfig parses the slot grid bounds.
func NewScheduleGeneratorConfig(dayStart, dayEnd string, slotStep, stepDelay time.Duration, seed int64, maxRetries int) (ScheduleGeneratorConfig, error) {
	start, err := models.ParseClockTime(dayStart)
	if err != nil {
		return ScheduleGeneratorConfig{}, fmt.Errorf("scheduler day start: %w", err)
	}
	end, err := models.ParseClockTime(dayEnd)
	if err != nil {
		return ScheduleGeneratorConfig{}, fmt.Errorf("scheduler day end: %w", err)
	}
	if end < start {
		return ScheduleGeneratorConfig{}, fmt.Errorf("scheduler day end %s is before day start %s", end, start)
	}
	if slotStep < time.Minute {
		return ScheduleGeneratorConfig{}, fmt.Errorf("scheduler slot step must be at least one minute, got %s", slotStep)
	}
	return ScheduleGeneratorConfig{
		DayStart:   start,
		DayEnd:     end,
		SlotStep:   slotStep,
		StepDelay:  stepDelay,
		Seed:       seed,
		MaxRetries: maxRetries,
	}, nil
}

// Slots expands the grid from DayStart to DayEnd inclusive.
func (c ScheduleGeneratorConfig) Slots() []models.ClockTime {
	step := int(c.SlotStep / time.Minute)
	if step <= 0 {
		step = 60
	}
	var slots []models.ClockTime
	for t := c.DayStart; t <= c.DayEnd; t += models.ClockTime(step) {
		slots = append(slots, t)
	}
	return slots
}

// ScheduleGeneratorService regenerates the whole timetable in the background.
// At most one run is active at a time; its state is the only channel back to callers.
type ScheduleGeneratorService struct {
	store     generationStore
	roster    generationRosterReader
	dashboard dashboardInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleGeneratorConfig
	slots     []models.ClockTime

	queue jobDispatcher

	mu      sync.Mutex
	current *models.GenerationRun
	cancel  context.CancelFunc
	runCtx  context.Context
}

// NewScheduleGeneratorService wires generator dependencies. A dispatcher must be
// attached with UseDispatcher before Start is called.
func NewScheduleGeneratorService(
	store generationStore,
	roster generationRosterReader,
	dashboard dashboardInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlotStep <= 0 {
		cfg.SlotStep = time.Hour
	}
	if cfg.DayStart == 0 && cfg.DayEnd == 0 {
		cfg.DayStart = models.MustClockTime("08:00")
		cfg.DayEnd = models.MustClockTime("16:00")
	}
	return &ScheduleGeneratorService{
		store:     store,
		roster:    roster,
		dashboard: dashboard,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		slots:     cfg.Slots(),
	}
}

// UseDispatcher sets the queue that runs generation jobs.
func (s *ScheduleGeneratorService) UseDispatcher(queue jobDispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = queue
}

// Start snapshots the roster and queues a regeneration run.
func (s *ScheduleGeneratorService) Start(ctx context.Context, req dto.GenerateScheduleRequest) (*models.GenerationRun, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	input, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	seed := s.cfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s.mu.Lock()
	if s.queue == nil {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrInternal, "generation worker is not running")
	}
	if s.current != nil && s.current.Status.Active() {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrConflict, "a timetable generation run is already in progress")
	}

	run := &models.GenerationRun{
		ID:          uuid.NewString(),
		Status:      models.GenerationStatusQueued,
		Seed:        seed,
		RequestedBy: req.RequestedBy,
		QueuedAt:    time.Now().UTC(),
		Progress: models.GenerationProgress{
			Total:   len(input.Requirements),
			Message: "Waiting for generation worker",
		},
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s.current, s.runCtx, s.cancel = run, runCtx, cancel
	queue := s.queue
	snapshot := run.Clone()
	s.mu.Unlock()

	if err := queue.Enqueue(jobs.Job{ID: run.ID, Type: GenerationJobType, Payload: input}); err != nil {
		s.finish(run.ID, models.GenerationStatusFailed, "Generation could not be queued", err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue generation run")
	}

	s.logger.Info("timetable generation queued",
		zap.String("run_id", run.ID),
		zap.Int("requirements", len(input.Requirements)),
		zap.Int64("seed", seed),
	)
	return &snapshot, nil
}

// Status returns the latest run.
func (s *ScheduleGeneratorService) Status(ctx context.Context) (*models.GenerationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no generation run has been started")
	}
	run := s.current.Clone()
	return &run, nil
}

// Cancel stops the run at its next requirement boundary. Sessions already
// placed remain in the store.
func (s *ScheduleGeneratorService) Cancel(ctx context.Context, runID string) (*models.GenerationRun, error) {
	s.mu.Lock()
	if s.current == nil || s.current.ID != runID {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found")
	}
	if !s.current.Status.Active() {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("generation run already %s", strings.ToLower(string(s.current.Status))))
	}
	queued := s.current.Status == models.GenerationStatusQueued
	s.cancel()
	s.mu.Unlock()

	if queued {
		s.finish(runID, models.GenerationStatusCancelled, "Generation cancelled before it started", nil)
	}
	s.logger.Info("timetable generation cancel requested", zap.String("run_id", runID))
	return s.Status(ctx)
}

// Handle bridges queue jobs to Generate. Internal failures are retried up to
// MaxRetries times before the run is marked failed.
func (s *ScheduleGeneratorService) Handle(ctx context.Context, job jobs.Job) error {
	input, ok := job.Payload.(models.GenerationInput)
	if !ok {
		s.finish(job.ID, models.GenerationStatusFailed, "Generation failed", fmt.Errorf("unexpected payload %T", job.Payload))
		return nil
	}

	s.mu.Lock()
	if s.current == nil || s.current.ID != job.ID || s.current.Status != models.GenerationStatusQueued {
		s.mu.Unlock()
		return nil
	}
	runCtx := s.runCtx
	s.mu.Unlock()

	workCtx, cancel := context.WithCancel(runCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := s.Generate(workCtx, job.ID, input)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	if job.Attempt < s.cfg.MaxRetries {
		s.update(job.ID, func(run *models.GenerationRun) {
			run.Status = models.GenerationStatusQueued
			run.Error = err.Error()
			run.Progress.Message = "Retrying generation"
		})
		return err
	}
	s.finish(job.ID, models.GenerationStatusFailed, "Generation failed", err)
	return nil
}

// Generate clears the store and places one session per requirement using a
// shuffled first-feasible search. Requirements that cannot be placed are
// recorded on the run and never abort it.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, runID string, input models.GenerationInput) error {
	seed, ok := s.begin(runID, len(input.Requirements))
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "generation run not found")
	}
	rng := rand.New(rand.NewSource(seed))
	logger := s.logger.With(zap.String("run_id", runID))

	var cleared int
	if err := s.store.WithTx(ctx, func(tx *repository.ScheduleTx) error {
		cleared = tx.Clear()
		return nil
	}); err != nil {
		return s.stop(ctx, runID, err)
	}
	s.afterStep(ctx)
	logger.Debug("schedule store cleared", zap.Int("removed", cleared))

	classes := make(map[int64]models.Class, len(input.Classes))
	for _, c := range input.Classes {
		classes[c.ID] = c
	}

	total := len(input.Requirements)
	placed := 0
	for i, req := range input.Requirements {
		if err := ctx.Err(); err != nil {
			return s.stop(ctx, runID, err)
		}
		s.update(runID, func(run *models.GenerationRun) {
			run.Progress.Message = describeRequirement(req, classes, i+1, total)
		})

		ok, reason, err := s.placeRequirement(ctx, rng, req, classes, input.Teachers)
		if err != nil {
			return s.stop(ctx, runID, err)
		}
		if ok {
			placed++
			s.metrics.RecordPlacement()
		} else {
			s.metrics.RecordUnplaced(reason)
			logger.Debug("requirement not placed", zap.Int64("requirement_id", req.ID), zap.String("reason", string(reason)))
		}

		s.update(runID, func(run *models.GenerationRun) {
			run.Progress.Processed = i + 1
			run.Progress.Placed = placed
			run.Progress.Percent = percent(i+1, total)
			if !ok {
				run.Unplaced = append(run.Unplaced, models.UnplacedRequirement{
					RequirementID: req.ID,
					ClassID:       req.ClassID,
					Subject:       req.Subject,
					Reason:        reason,
				})
			}
		})
		s.afterStep(ctx)

		if err := s.pause(ctx); err != nil {
			return s.stop(ctx, runID, err)
		}
	}

	message := fmt.Sprintf("Generated %d of %d sessions", placed, total)
	if unplaced := total - placed; unplaced > 0 {
		message += fmt.Sprintf("; %d requirement(s) could not be placed", unplaced)
	}
	s.finish(runID, models.GenerationStatusCompleted, message, nil)
	return nil
}

func (s *ScheduleGeneratorService) placeRequirement(ctx context.Context, rng *rand.Rand, req models.SubjectRequirement, classes map[int64]models.Class, teachers []models.Teacher) (bool, models.UnplacedReason, error) {
	class, ok := classes[req.ClassID]
	if !ok {
		return false, models.UnplacedClassNotFound, nil
	}

	eligible := EligibleTeachers(teachers, req.Subject)
	if len(eligible) == 0 {
		return false, models.UnplacedNoEligibleTeacher, nil
	}

	days := models.Weekdays()
	slots := append([]models.ClockTime(nil), s.slots...)
	rng.Shuffle(len(eligible), func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] })
	rng.Shuffle(len(days), func(i, j int) { days[i], days[j] = days[j], days[i] })
	rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })

	placed := false
	err := s.store.WithTx(ctx, func(tx *repository.ScheduleTx) error {
		existing := tx.List()
		for _, teacher := range eligible {
			for _, day := range days {
				for _, start := range slots {
					end, err := models.EndTime(start, class.Duration)
					if err != nil {
						continue
					}
					if HasConflict(start, end, teacher.ID, day, existing, 0) {
						continue
					}
					tx.Create(models.Schedule{
						ClassID:   class.ID,
						TeacherID: teacher.ID,
						DayOfWeek: day,
						StartTime: start,
						EndTime:   end,
					})
					placed = true
					return nil
				}
			}
		}
		return nil
	})
	if err != nil {
		return false, "", err
	}
	if !placed {
		return false, models.UnplacedNoFeasibleSlot, nil
	}
	return true, "", nil
}

// EligibleTeachers returns teachers qualified for subject, compared case-insensitively.
func EligibleTeachers(teachers []models.Teacher, subject string) []models.Teacher {
	want := strings.TrimSpace(subject)
	var out []models.Teacher
	for _, t := range teachers {
		if strings.EqualFold(strings.TrimSpace(t.Subject), want) {
			out = append(out, t)
		}
	}
	return out
}

func (s *ScheduleGeneratorService) snapshot(ctx context.Context) (models.GenerationInput, error) {
	teachers, err := s.roster.ListTeachers(ctx)
	if err != nil {
		return models.GenerationInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	classes, err := s.roster.ListClasses(ctx)
	if err != nil {
		return models.GenerationInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	reqs, err := s.roster.ListRequirements(ctx)
	if err != nil {
		return models.GenerationInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject requirements")
	}
	return models.GenerationInput{Teachers: teachers, Classes: classes, Requirements: reqs}, nil
}

func (s *ScheduleGeneratorService) begin(runID string, total int) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != runID {
		return 0, false
	}
	now := time.Now().UTC()
	s.current.Status = models.GenerationStatusRunning
	s.current.StartedAt = &now
	s.current.Error = ""
	s.current.Unplaced = nil
	s.current.Progress = models.GenerationProgress{Total: total, Message: "Clearing existing schedules"}
	return s.current.Seed, true
}

func (s *ScheduleGeneratorService) update(runID string, fn func(run *models.GenerationRun)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != runID {
		return
	}
	fn(s.current)
}

func (s *ScheduleGeneratorService) stop(ctx context.Context, runID string, err error) error {
	if errors.Is(err, context.Canceled) {
		s.finish(runID, models.GenerationStatusCancelled, "Generation cancelled", nil)
		return err
	}
	return err
}

func (s *ScheduleGeneratorService) finish(runID string, status models.GenerationStatus, message string, cause error) {
	s.mu.Lock()
	if s.current == nil || s.current.ID != runID || !s.current.Status.Active() {
		s.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	run := s.current
	run.Status = status
	run.FinishedAt = &now
	run.Progress.Message = message
	if cause != nil {
		run.Error = cause.Error()
	}
	if status == models.GenerationStatusCompleted {
		run.Progress.Percent = 100
	}
	started := run.QueuedAt
	if run.StartedAt != nil {
		started = *run.StartedAt
	}
	if s.cancel != nil {
		s.cancel()
	}
	snapshot := run.Clone()
	s.mu.Unlock()

	s.metrics.RecordGenerationRun(status, now.Sub(started))
	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.String("status", string(status)),
		zap.Int("placed", snapshot.Progress.Placed),
		zap.Int("total", snapshot.Progress.Total),
	}
	if cause != nil {
		s.logger.Error("timetable generation finished", append(fields, zap.Error(cause))...)
		return
	}
	s.logger.Info("timetable generation finished", fields...)
}

func (s *ScheduleGeneratorService) afterStep(ctx context.Context) {
	if count, err := s.store.Count(context.WithoutCancel(ctx)); err == nil {
		s.metrics.SetSchedulesStored(count)
	}
	if s.dashboard != nil {
		s.dashboard.InvalidateDashboard(context.WithoutCancel(ctx))
	}
}

func (s *ScheduleGeneratorService) pause(ctx context.Context) error {
	if s.cfg.StepDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.cfg.StepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func describeRequirement(req models.SubjectRequirement, classes map[int64]models.Class, position, total int) string {
	className := fmt.Sprintf("class #%d", req.ClassID)
	if c, ok := classes[req.ClassID]; ok {
		className = c.Name
	}
	return fmt.Sprintf("Scheduling %s for %s (%d/%d)", req.Subject, className, position, total)
}

func percent(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}
