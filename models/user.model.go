package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name                string    `gorm:"default:''"`
	Email               string    `gorm:"unique;not null"`
	WalletAddress       string    `gorm:"uniqueIndex;not null"` // checksummed hex address
	Role                string    `gorm:"default:'USER'"`       // USER, ADMIN
	Password            string    `gorm:"not null"`
	PointsBalance       uint      `gorm:"default:0"` // cumulative settled course points
	LastLogin           time.Time `gorm:"default:NULL"`
	FailedLoginAttempts int       `gorm:"default:0"`
	IsBlocked           bool      `gorm:"default:false"`
	IsDeleted           bool      `gorm:"default:false"`
}
