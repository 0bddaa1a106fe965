package course

import (
	"time"

	"gorm.io/gorm"
)

// Certificate represents an issued certificate for a settled course completion
type Certificate struct {
	gorm.Model
	UserID            uint      `json:"user_id" gorm:"uniqueIndex:idx_cert_user_course;not null"`
	CourseID          uint      `json:"course_id" gorm:"uniqueIndex:idx_cert_user_course;not null"`
	EnrollmentID      uint      `json:"enrollment_id" gorm:"index;not null"`
	CertificateNumber string    `json:"certificate_number" gorm:"unique"`
	TxHash            string    `json:"tx_hash"`
	IssuedAt          time.Time `json:"issued_at"`
	IsDeleted         bool      `gorm:"default:false"`
}
