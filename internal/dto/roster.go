package dto

// TeacherRequest creates or replaces a teacher.
type TeacherRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=80"`
}

// ClassRequest creates or replaces a class.
type ClassRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Subject  string `json:"subject" validate:"required,max=80"`
	Duration int    `json:"duration" validate:"required,min=1,max=1439"`
}

// RuleRequest creates or replaces a minimum-hours rule.
type RuleRequest struct {
	TeacherID int64 `json:"teacher_id" validate:"required,gt=0"`
	MinHours  *int  `json:"min_hours" validate:"required,min=0"`
}

// SubjectRequirementRequest creates or replaces a subject requirement.
type SubjectRequirementRequest struct {
	ClassID int64  `json:"class_id" validate:"required,gt=0"`
	Subject string `json:"subject" validate:"required,max=80"`
}
