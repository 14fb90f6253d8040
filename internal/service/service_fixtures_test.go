package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
)

type dashboardSpy struct {
	calls int32
}

func (d *dashboardSpy) InvalidateDashboard(ctx context.Context) {
	atomic.AddInt32(&d.calls, 1)
}

func (d *dashboardSpy) count() int {
	return int(atomic.LoadInt32(&d.calls))
}

func addTeacher(t *testing.T, roster *repository.MemoryRoster, name, subject string) models.Teacher {
	t.Helper()
	teacher := &models.Teacher{Name: name, Email: name + "@example.com", Subject: subject}
	require.NoError(t, roster.CreateTeacher(context.Background(), teacher))
	return *teacher
}

func addClass(t *testing.T, roster *repository.MemoryRoster, name, subject string, duration int) models.Class {
	t.Helper()
	class := &models.Class{Name: name, Subject: subject, Duration: duration}
	require.NoError(t, roster.CreateClass(context.Background(), class))
	return *class
}

func addRule(t *testing.T, roster *repository.MemoryRoster, teacherID int64, minHours int) {
	t.Helper()
	require.NoError(t, roster.CreateRule(context.Background(), &models.Rule{TeacherID: teacherID, MinHours: minHours}))
}

func addRequirement(t *testing.T, roster *repository.MemoryRoster, classID int64, subject string) models.SubjectRequirement {
	t.Helper()
	req := &models.SubjectRequirement{ClassID: classID, Subject: subject}
	require.NoError(t, roster.CreateRequirement(context.Background(), req))
	return *req
}

func assertNoOverlaps(t *testing.T, schedules []models.Schedule) {
	t.Helper()
	for i := range schedules {
		for j := i + 1; j < len(schedules); j++ {
			a, b := schedules[i], schedules[j]
			if a.TeacherID != b.TeacherID || a.DayOfWeek != b.DayOfWeek {
				continue
			}
			require.Falsef(t, models.Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime),
				"teacher %d double booked on %s: %s-%s and %s-%s", a.TeacherID, a.DayOfWeek, a.StartTime, a.EndTime, b.StartTime, b.EndTime)
		}
	}
}
