package models

// Teacher is an instructor qualified to teach a single subject.
type Teacher struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Email   string `db:"email" json:"email"`
	Subject string `db:"subject" json:"subject"`
}

// Class is a teachable course with a fixed session length in minutes.
type Class struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Subject  string `db:"subject" json:"subject"`
	Duration int    `db:"duration" json:"duration"`
}

// Rule sets the minimum weekly teaching hours for a teacher.
type Rule struct {
	ID        int64 `db:"id" json:"id"`
	TeacherID int64 `db:"teacher_id" json:"teacher_id"`
	MinHours  int   `db:"min_hours" json:"min_hours"`
}

// SubjectRequirement asks for one session of Subject for the class.
type SubjectRequirement struct {
	ID      int64  `db:"id" json:"id"`
	ClassID int64  `db:"class_id" json:"class_id"`
	Subject string `db:"subject" json:"subject"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
