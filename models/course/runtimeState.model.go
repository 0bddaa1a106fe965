package course

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RuntimeState holds the merged SCORM runtime report for one enrollment on an
// incentivized course. CmiState is the union of all committed cmi.* key/values,
// last write wins per key. TotalTimeSeconds never decreases across commits.
type RuntimeState struct {
	gorm.Model
	EnrollmentID uint `json:"enrollment_id" gorm:"uniqueIndex;not null"`
	UserID       uint `json:"user_id" gorm:"index;not null"`
	CourseID     uint `json:"course_id" gorm:"index;not null"`

	CmiState datatypes.JSONMap `json:"cmi_state"`

	CompletionStatus string `json:"completion_status" gorm:"default:'unknown'"` // completed, incomplete, unknown
	SuccessStatus    string `json:"success_status" gorm:"default:'unknown'"`    // passed, failed, unknown

	RawScore        *float64 `json:"raw_score"`
	ScaledScore     *float64 `json:"scaled_score"`
	NormalizedScore *int     `json:"normalized_score"` // 0-100, nil until completed/passed

	TotalTimeSeconds int64 `json:"total_time_seconds" gorm:"default:0"`

	InitializedAt time.Time  `json:"initialized_at"`
	TerminatedAt  *time.Time `json:"terminated_at"`
}
