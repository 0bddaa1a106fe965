package course

import "gorm.io/gorm"

// Lesson is a single watchable unit inside a free course
type Lesson struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"index;not null"`
	Title       string `json:"title"`
	VideoURL    string `json:"video_url"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"`
	IsPublished bool   `json:"is_published" gorm:"default:true"`
	IsDeleted   bool   `gorm:"default:false"`
}

// LessonWatch tracks a user's watch progress on a single lesson.
// A lesson counts as watched once progress crosses the half-way mark.
type LessonWatch struct {
	gorm.Model
	UserID               uint `json:"user_id" gorm:"uniqueIndex:idx_user_lesson;not null"`
	LessonID             uint `json:"lesson_id" gorm:"uniqueIndex:idx_user_lesson;not null"`
	CourseID             uint `json:"course_id" gorm:"index;not null"`
	WatchProgressPercent int  `json:"watch_progress_percent" gorm:"default:0"`
	IsWatched            bool `json:"is_watched" gorm:"default:false"`
}
