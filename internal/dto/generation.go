package dto

// GenerateScheduleRequest starts a regeneration of the whole timetable.
// A nil seed falls back to the configured one.
type GenerateScheduleRequest struct {
	Seed        *int64 `json:"seed,omitempty"`
	RequestedBy string `json:"-"`
}
