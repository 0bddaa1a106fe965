// Package progress owns per-user per-course progress state: lesson watch
// events on free courses and SCORM runtime commits on incentivized ones.
// Completion itself is settlement's job; the tracker only hands over when a
// free course reaches 100 percent.
package progress

import (
	"context"
	"errors"
	"math"
	"time"

	courseModels "educhain/models/course"
	"educhain/scorm"
	"educhain/settlement"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// A lesson counts as watched from the half-way mark, full playback is not
// required
const watchedThresholdPercent = 50

// Incentivized progress stays below 100 until the course is formally
// finalized
const incentivizedProgressCap = 99

var (
	ErrLessonNotFound    = errors.New("lesson not found")
	ErrRuntimeTerminated = errors.New("runtime session already terminated")
)

// WatchResult reports the effect of one lesson watch event
type WatchResult struct {
	LessonID            uint                         `json:"lesson_id"`
	IsWatched           bool                         `json:"is_watched"`
	CourseProgress      int                          `json:"course_progress"`
	CompletionTriggered bool                         `json:"completion_triggered"`
	Completion          *settlement.CompletionResult `json:"completion,omitempty"`
}

// Tracker persists progress state and triggers free-course completion
type Tracker struct {
	db          *gorm.DB
	coordinator *settlement.Coordinator
}

func NewTracker(db *gorm.DB, coordinator *settlement.Coordinator) *Tracker {
	return &Tracker{db: db, coordinator: coordinator}
}

// RecordLessonWatch upserts the user's watch state for a lesson and
// recomputes the enrollment's aggregate progress. Reaching 100 on a free
// course triggers completion.
func (t *Tracker) RecordLessonWatch(ctx context.Context, userID, lessonID uint, watchPercent int) (*WatchResult, error) {
	var lesson courseModels.Lesson
	if err := t.db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error; err != nil {
		return nil, ErrLessonNotFound
	}

	enrollment, crs, err := t.loadEnrollment(userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	if watchPercent < 0 {
		watchPercent = 0
	}
	if watchPercent > 100 {
		watchPercent = 100
	}

	// Upsert, keeping watch progress monotone. Watched never flips back.
	var watch courseModels.LessonWatch
	err = t.db.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&watch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		watch = courseModels.LessonWatch{
			UserID:               userID,
			LessonID:             lessonID,
			CourseID:             lesson.CourseID,
			WatchProgressPercent: watchPercent,
			IsWatched:            watchPercent >= watchedThresholdPercent,
		}
		if err := t.db.Create(&watch).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		if watchPercent > watch.WatchProgressPercent {
			watch.WatchProgressPercent = watchPercent
		}
		if watch.WatchProgressPercent >= watchedThresholdPercent {
			watch.IsWatched = true
		}
		if err := t.db.Save(&watch).Error; err != nil {
			return nil, err
		}
	}

	aggregate, err := t.recomputeProgress(enrollment, crs)
	if err != nil {
		return nil, err
	}

	result := &WatchResult{
		LessonID:       lessonID,
		IsWatched:      watch.IsWatched,
		CourseProgress: aggregate,
	}

	// Hitting 100 on a free course is the only progress-driven completion path
	if !crs.IsIncentivized && aggregate >= 100 && !enrollment.IsCompleted {
		completion, err := t.coordinator.CompleteFreeCourse(ctx, userID, crs.ID)
		if err != nil && !errors.Is(err, settlement.ErrNotEligible) {
			return nil, err
		}
		if err == nil {
			result.CompletionTriggered = true
			result.Completion = completion
		}
	}

	return result, nil
}

// InitializeRuntime opens (or reopens) the SCORM runtime session for an
// enrollment on an incentivized course
func (t *Tracker) InitializeRuntime(ctx context.Context, userID, courseID uint) (*courseModels.RuntimeState, error) {
	enrollment, crs, err := t.loadEnrollment(userID, courseID)
	if err != nil {
		return nil, err
	}
	if !crs.IsIncentivized {
		return nil, settlement.ErrNotIncentivized
	}

	var runtime courseModels.RuntimeState
	err = t.db.Where("enrollment_id = ?", enrollment.ID).First(&runtime).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		runtime = courseModels.RuntimeState{
			EnrollmentID:  enrollment.ID,
			UserID:        userID,
			CourseID:      courseID,
			CmiState:      datatypes.JSONMap{},
			InitializedAt: time.Now(),
		}
		if err := t.db.Create(&runtime).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	t.bumpStatus(enrollment, courseModels.StatusInProgress)
	return &runtime, nil
}

// RecordRuntimeCommit merges a raw SCORM commit into the runtime state and
// refreshes the enrollment's cached progress. It never finalizes the course;
// that takes an explicit settlement call with a signed proof.
func (t *Tracker) RecordRuntimeCommit(ctx context.Context, userID, courseID uint, raw map[string]interface{}) (*scorm.Metrics, error) {
	metrics, _, err := t.commitRuntime(userID, courseID, raw, false)
	return metrics, err
}

// TerminateRuntime merges the final commit, if any, and closes the session.
// After termination further commits are rejected.
func (t *Tracker) TerminateRuntime(ctx context.Context, userID, courseID uint, raw map[string]interface{}) (*scorm.Metrics, error) {
	metrics, runtime, err := t.commitRuntime(userID, courseID, raw, true)
	if err != nil {
		return nil, err
	}
	if runtime.TerminatedAt == nil {
		now := time.Now()
		if err := t.db.Model(runtime).Update("terminated_at", now).Error; err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

func (t *Tracker) commitRuntime(userID, courseID uint, raw map[string]interface{}, terminating bool) (*scorm.Metrics, *courseModels.RuntimeState, error) {
	enrollment, crs, err := t.loadEnrollment(userID, courseID)
	if err != nil {
		return nil, nil, err
	}
	if !crs.IsIncentivized {
		return nil, nil, settlement.ErrNotIncentivized
	}

	var runtime courseModels.RuntimeState
	if err := t.db.Where("enrollment_id = ?", enrollment.ID).First(&runtime).Error; err != nil {
		return nil, nil, settlement.ErrRuntimeMissing
	}
	if runtime.TerminatedAt != nil {
		if !terminating {
			return nil, nil, ErrRuntimeTerminated
		}
		// Replayed terminate: the session is closed, no further state merges
		raw = nil
	}

	previous := stateFromJSON(runtime.CmiState)
	merged := scorm.MergeState(previous, scorm.SanitizeState(raw))
	metrics := scorm.DeriveMetrics(merged, runtime.TotalTimeSeconds)

	runtime.CmiState = stateToJSON(merged)
	runtime.CompletionStatus = metrics.CompletionStatus
	runtime.SuccessStatus = metrics.SuccessStatus
	runtime.RawScore = metrics.RawScore
	runtime.ScaledScore = metrics.ScaledScore
	runtime.NormalizedScore = metrics.QuizScore
	runtime.TotalTimeSeconds = metrics.TotalTimeSeconds
	if err := t.db.Save(&runtime).Error; err != nil {
		return nil, nil, err
	}

	if _, err := t.recomputeProgress(enrollment, crs); err != nil {
		return nil, nil, err
	}
	if metrics.IsCompleted && !enrollment.IsCompleted {
		t.bumpStatus(enrollment, courseModels.StatusScormComplete)
	}

	return &metrics, &runtime, nil
}

// recomputeProgress refreshes the enrollment's cached progress percent:
// watched-lesson share for free courses, engagement time for incentivized
// ones (capped until formally completed).
func (t *Tracker) recomputeProgress(enrollment *courseModels.Enrollment, crs *courseModels.Course) (int, error) {
	if enrollment.IsCompleted {
		return 100, nil
	}

	var aggregate int
	if crs.IsIncentivized {
		var runtime courseModels.RuntimeState
		if err := t.db.Where("enrollment_id = ?", enrollment.ID).First(&runtime).Error; err == nil {
			aggregate = engagementProgress(runtime.TotalTimeSeconds, crs.DurationSeconds)
		}
		if aggregate > incentivizedProgressCap {
			aggregate = incentivizedProgressCap
		}
	} else {
		var totalLessons, watched int64
		if err := t.db.Model(&courseModels.Lesson{}).
			Where("course_id = ? AND is_deleted = ?", crs.ID, false).Count(&totalLessons).Error; err != nil {
			return 0, err
		}
		if totalLessons == 0 {
			return 0, nil
		}
		if err := t.db.Model(&courseModels.LessonWatch{}).
			Where("user_id = ? AND course_id = ? AND is_watched = ?", enrollment.UserID, crs.ID, true).
			Count(&watched).Error; err != nil {
			return 0, err
		}
		aggregate = int(math.Round(100 * float64(watched) / float64(totalLessons)))
	}

	if aggregate != enrollment.ProgressPercent {
		if err := t.db.Model(enrollment).Update("progress_percent", aggregate).Error; err != nil {
			return 0, err
		}
		enrollment.ProgressPercent = aggregate
	}
	if aggregate > 0 {
		t.bumpStatus(enrollment, courseModels.StatusInProgress)
	}
	return aggregate, nil
}

// bumpStatus advances the enrollment status when the transition table allows
// it; invalid transitions are silently skipped
func (t *Tracker) bumpStatus(enrollment *courseModels.Enrollment, to string) {
	if enrollment.Status == to || !courseModels.CanTransition(enrollment.Status, to) {
		return
	}
	if err := t.db.Model(enrollment).Update("status", to).Error; err == nil {
		enrollment.Status = to
	}
}

func (t *Tracker) loadEnrollment(userID, courseID uint) (*courseModels.Enrollment, *courseModels.Course, error) {
	var enrollment courseModels.Enrollment
	if err := t.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&enrollment).Error; err != nil {
		return nil, nil, settlement.ErrNotEnrolled
	}
	var crs courseModels.Course
	if err := t.db.Where("id = ? AND is_deleted = ?", courseID, false).First(&crs).Error; err != nil {
		return nil, nil, settlement.ErrNotEnrolled
	}
	return &enrollment, &crs, nil
}

func engagementProgress(elapsedSeconds, durationSeconds int64) int {
	if durationSeconds <= 0 {
		if elapsedSeconds > 0 {
			return incentivizedProgressCap
		}
		return 0
	}
	ratio := float64(elapsedSeconds) / float64(durationSeconds)
	if ratio > 1 {
		ratio = 1
	}
	return int(math.Round(ratio * 100))
}

func stateFromJSON(state datatypes.JSONMap) map[string]string {
	out := make(map[string]string, len(state))
	for k, v := range state {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func stateToJSON(state map[string]string) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
