package models

import (
	"fmt"
	"strings"
)

// DayOfWeek is one of the five teaching days.
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
)

// Weekdays returns the teaching days in calendar order.
func Weekdays() []DayOfWeek {
	return []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// Valid reports whether d is a teaching day.
func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday:
		return true
	}
	return false
}

// ParseDayOfWeek accepts a day name regardless of case.
func ParseDayOfWeek(value string) (DayOfWeek, error) {
	trimmed := strings.TrimSpace(value)
	for _, day := range Weekdays() {
		if strings.EqualFold(string(day), trimmed) {
			return day, nil
		}
	}
	return "", fmt.Errorf("invalid day_of_week %q", value)
}

// Schedule is a single allocated session: a class taught by a teacher in a
// day/time interval [StartTime, EndTime).
type Schedule struct {
	ID        int64     `json:"id"`
	ClassID   int64     `json:"class_id"`
	TeacherID int64     `json:"teacher_id"`
	DayOfWeek DayOfWeek `json:"day_of_week"`
	StartTime ClockTime `json:"start_time"`
	EndTime   ClockTime `json:"end_time"`
}

// ScheduleView is a schedule enriched with display names.
type ScheduleView struct {
	Schedule
	ClassName   string `json:"class_name"`
	TeacherName string `json:"teacher_name"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	ClassID   int64
	TeacherID int64
	DayOfWeek DayOfWeek
	Page      int
	PageSize  int
}

// Matches reports whether s passes every non-zero filter field.
func (f ScheduleFilter) Matches(s Schedule) bool {
	if f.ClassID != 0 && s.ClassID != f.ClassID {
		return false
	}
	if f.TeacherID != 0 && s.TeacherID != f.TeacherID {
		return false
	}
	if f.DayOfWeek != "" && s.DayOfWeek != f.DayOfWeek {
		return false
	}
	return true
}

// ScheduleConflict describes an existing schedule that causes a conflict.
type ScheduleConflict struct {
	ScheduleID int64     `json:"schedule_id"`
	ClassID    int64     `json:"class_id"`
	TeacherID  int64     `json:"teacher_id"`
	DayOfWeek  DayOfWeek `json:"day_of_week"`
	StartTime  ClockTime `json:"start_time"`
	EndTime    ClockTime `json:"end_time"`
}

// ConflictFromSchedule captures the colliding record.
func ConflictFromSchedule(s Schedule) ScheduleConflict {
	return ScheduleConflict{
		ScheduleID: s.ID,
		ClassID:    s.ClassID,
		TeacherID:  s.TeacherID,
		DayOfWeek:  s.DayOfWeek,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
	}
}

// ScheduleConflictError is returned when a schedule collides with an existing one.
type ScheduleConflictError struct {
	Type     string           `json:"type"`
	Message  string           `json:"message"`
	Conflict ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
