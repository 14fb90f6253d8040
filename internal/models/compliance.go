package models

// TeacherCompliance is one dashboard row.
type TeacherCompliance struct {
	TeacherID   int64   `json:"teacher_id"`
	TeacherName string  `json:"teacher_name"`
	Hours       float64 `json:"hours"`
	MinHours    *int    `json:"min_hours,omitempty"`
	Progress    float64 `json:"progress"`
	Compliant   bool    `json:"compliant"`
}

// DashboardTotals counts roster and schedule records.
type DashboardTotals struct {
	Teachers     int `json:"teachers"`
	Classes      int `json:"classes"`
	Schedules    int `json:"schedules"`
	Requirements int `json:"requirements"`
	Rules        int `json:"rules"`
}

// Dashboard is the composed compliance overview.
type Dashboard struct {
	Totals          DashboardTotals     `json:"totals"`
	ComplianceRatio float64             `json:"compliance_ratio"`
	Teachers        []TeacherCompliance `json:"teachers"`
}
