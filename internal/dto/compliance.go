package dto

// TeacherHoursEntry reports accumulated scheduled hours for one teacher.
type TeacherHoursEntry struct {
	TeacherID int64   `json:"teacher_id"`
	Hours     float64 `json:"hours"`
}

// TeacherMinHoursEntry reports the effective minimum for one teacher.
type TeacherMinHoursEntry struct {
	TeacherID int64 `json:"teacher_id"`
	MinHours  int   `json:"min_hours"`
}

// ComplianceRatioResponse wraps the aggregate compliance percentage.
type ComplianceRatioResponse struct {
	Ratio float64 `json:"ratio"`
}
