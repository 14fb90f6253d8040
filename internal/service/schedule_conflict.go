package service

import (
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// FindConflict returns the first record in existing that books teacherID on
// day during [start, end). The record with excludeID is ignored so an edited
// session is not checked against itself; pass 0 to check every record.
func FindConflict(start, end models.ClockTime, teacherID int64, day models.DayOfWeek, existing []models.Schedule, excludeID int64) (models.Schedule, bool) {
	for _, s := range existing {
		if excludeID != 0 && s.ID == excludeID {
			continue
		}
		if s.TeacherID != teacherID || s.DayOfWeek != day {
			continue
		}
		if models.Overlaps(start, end, s.StartTime, s.EndTime) {
			return s, true
		}
	}
	return models.Schedule{}, false
}

// HasConflict reports whether [start, end) overlaps an existing session of the
// same teacher on the same day. Back-to-back sessions do not conflict.
func HasConflict(start, end models.ClockTime, teacherID int64, day models.DayOfWeek, existing []models.Schedule, excludeID int64) bool {
	_, found := FindConflict(start, end, teacherID, day, existing, excludeID)
	return found
}

func newConflictError(existing models.Schedule) *models.ScheduleConflictError {
	return &models.ScheduleConflictError{
		Type:     "TEACHER_DOUBLE_BOOKED",
		Message:  "Schedule conflict: Teacher is already booked at this time.",
		Conflict: models.ConflictFromSchedule(existing),
	}
}
