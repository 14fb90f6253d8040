package dto

// SaveScheduleRequest creates or replaces a manually placed session.
type SaveScheduleRequest struct {
	ClassID   int64  `json:"class_id" validate:"required,gt=0"`
	TeacherID int64  `json:"teacher_id" validate:"required,gt=0"`
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
}

// ScheduleQuery filters schedule listings.
type ScheduleQuery struct {
	ClassID   int64  `form:"class_id"`
	TeacherID int64  `form:"teacher_id"`
	DayOfWeek string `form:"day_of_week"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}
