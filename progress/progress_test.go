package progress

import (
	"context"
	"testing"
	"time"

	"educhain/models"
	courseModels "educhain/models/course"
	"educhain/settlement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db         *gorm.DB
	tracker    *Tracker
	user       models.User
	course     courseModels.Course
	enrollment courseModels.Enrollment
	lessons    []courseModels.Lesson
}

func newFixture(t *testing.T, incentivized bool, lessonCount int) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.LedgerTransaction{},
		&courseModels.Course{},
		&courseModels.Lesson{},
		&courseModels.LessonWatch{},
		&courseModels.Enrollment{},
		&courseModels.RuntimeState{},
		&courseModels.Certificate{},
	))

	f := &fixture{db: db}
	// No ledger configured: completions stay local, which is all these tests
	// care about
	coordinator := settlement.NewCoordinator(db, nil, time.Second)
	f.tracker = NewTracker(db, coordinator)

	f.user = models.User{Name: "Ada", Email: "ada@example.com", WalletAddress: "0x1111111111111111111111111111111111111111", Password: "x"}
	require.NoError(t, db.Create(&f.user).Error)

	f.course = courseModels.Course{
		Title:           "Course",
		DurationSeconds: 7200,
		IsIncentivized:  incentivized,
		Status:          "ACTIVE",
		IsPublished:     true,
	}
	require.NoError(t, db.Create(&f.course).Error)

	for i := 0; i < lessonCount; i++ {
		lesson := courseModels.Lesson{CourseID: f.course.ID, Title: "Lesson", OrderIndex: i}
		require.NoError(t, db.Create(&lesson).Error)
		f.lessons = append(f.lessons, lesson)
	}

	f.enrollment = courseModels.Enrollment{
		UserID:   f.user.ID,
		CourseID: f.course.ID,
		Status:   courseModels.StatusNotStarted,
	}
	require.NoError(t, db.Create(&f.enrollment).Error)
	return f
}

func (f *fixture) reloadEnrollment(t *testing.T) courseModels.Enrollment {
	t.Helper()
	var e courseModels.Enrollment
	require.NoError(t, f.db.First(&e, f.enrollment.ID).Error)
	return e
}

func TestRecordLessonWatchUnknownLesson(t *testing.T) {
	f := newFixture(t, false, 1)
	_, err := f.tracker.RecordLessonWatch(context.Background(), f.user.ID, f.lessons[0].ID+99, 80)
	require.ErrorIs(t, err, ErrLessonNotFound)
}

func TestRecordLessonWatchNotEnrolled(t *testing.T) {
	f := newFixture(t, false, 1)
	stranger := models.User{Name: "Eve", Email: "eve@example.com", WalletAddress: "0x2222222222222222222222222222222222222222", Password: "x"}
	require.NoError(t, f.db.Create(&stranger).Error)

	_, err := f.tracker.RecordLessonWatch(context.Background(), stranger.ID, f.lessons[0].ID, 80)
	require.ErrorIs(t, err, settlement.ErrNotEnrolled)
}

func TestWatchedThreshold(t *testing.T) {
	f := newFixture(t, false, 2)

	// Below the half-way mark the lesson is not watched yet
	result, err := f.tracker.RecordLessonWatch(context.Background(), f.user.ID, f.lessons[0].ID, 49)
	require.NoError(t, err)
	assert.False(t, result.IsWatched)
	assert.Equal(t, 0, result.CourseProgress)

	result, err = f.tracker.RecordLessonWatch(context.Background(), f.user.ID, f.lessons[0].ID, 50)
	require.NoError(t, err)
	assert.True(t, result.IsWatched)
	assert.Equal(t, 50, result.CourseProgress)

	e := f.reloadEnrollment(t)
	assert.Equal(t, courseModels.StatusInProgress, e.Status)
}

func TestWatchProgressIsMonotone(t *testing.T) {
	f := newFixture(t, false, 2)

	_, err := f.tracker.RecordLessonWatch(context.Background(), f.user.ID, f.lessons[0].ID, 80)
	require.NoError(t, err)

	// A lower replayed percent never regresses the stored progress or the
	// watched flag
	result, err := f.tracker.RecordLessonWatch(context.Background(), f.user.ID, f.lessons[0].ID, 10)
	require.NoError(t, err)
	assert.True(t, result.IsWatched)

	var watch courseModels.LessonWatch
	require.NoError(t, f.db.Where("user_id = ? AND lesson_id = ?", f.user.ID, f.lessons[0].ID).First(&watch).Error)
	assert.Equal(t, 80, watch.WatchProgressPercent)
}

func TestWatchPercentClamped(t *testing.T) {
	f := newFixture(t, false, 1)

	_, err := f.tracker.RecordLessonWatch(context.Background(), f.user.ID, f.lessons[0].ID, 250)
	require.NoError(t, err)

	var watch courseModels.LessonWatch
	require.NoError(t, f.db.Where("user_id = ? AND lesson_id = ?", f.user.ID, f.lessons[0].ID).First(&watch).Error)
	assert.Equal(t, 100, watch.WatchProgressPercent)
}

func TestFreeCourseCompletesAtFullProgress(t *testing.T) {
	f := newFixture(t, false, 3)

	result, err := f.tracker.RecordLessonWatch(context.Background(), f.user.ID, f.lessons[0].ID, 60)
	require.NoError(t, err)
	assert.Equal(t, 33, result.CourseProgress)
	assert.False(t, result.CompletionTriggered)

	result, err = f.tracker.RecordLessonWatch(context.Background(), f.user.ID, f.lessons[1].ID, 60)
	require.NoError(t, err)
	assert.Equal(t, 67, result.CourseProgress)
	assert.False(t, result.CompletionTriggered)

	result, err = f.tracker.RecordLessonWatch(context.Background(), f.user.ID, f.lessons[2].ID, 55)
	require.NoError(t, err)
	assert.Equal(t, 100, result.CourseProgress)
	assert.True(t, result.CompletionTriggered)
	require.NotNil(t, result.Completion)
	assert.False(t, result.Completion.AlreadyCompleted)

	e := f.reloadEnrollment(t)
	assert.True(t, e.IsCompleted)
	assert.Equal(t, courseModels.StatusCompleted, e.Status)

	// A replayed watch after completion does not re-trigger
	result, err = f.tracker.RecordLessonWatch(context.Background(), f.user.ID, f.lessons[2].ID, 100)
	require.NoError(t, err)
	assert.False(t, result.CompletionTriggered)
	assert.Equal(t, 100, result.CourseProgress)
}

func TestInitializeRuntime(t *testing.T) {
	f := newFixture(t, true, 0)

	runtime, err := f.tracker.InitializeRuntime(context.Background(), f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, f.enrollment.ID, runtime.EnrollmentID)

	e := f.reloadEnrollment(t)
	assert.Equal(t, courseModels.StatusInProgress, e.Status)

	// Re-initialization reuses the existing session
	again, err := f.tracker.InitializeRuntime(context.Background(), f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, runtime.ID, again.ID)
}

func TestInitializeRuntimeRejectsFreeCourse(t *testing.T) {
	f := newFixture(t, false, 1)
	_, err := f.tracker.InitializeRuntime(context.Background(), f.user.ID, f.course.ID)
	require.ErrorIs(t, err, settlement.ErrNotIncentivized)
}

func TestCommitWithoutRuntime(t *testing.T) {
	f := newFixture(t, true, 0)
	_, err := f.tracker.RecordRuntimeCommit(context.Background(), f.user.ID, f.course.ID, map[string]interface{}{
		"cmi.core.lesson_status": "incomplete",
	})
	require.ErrorIs(t, err, settlement.ErrRuntimeMissing)
}

func TestRuntimeCommitFlow(t *testing.T) {
	f := newFixture(t, true, 0)
	_, err := f.tracker.InitializeRuntime(context.Background(), f.user.ID, f.course.ID)
	require.NoError(t, err)

	// First commit: one hour in, not done yet
	metrics, err := f.tracker.RecordRuntimeCommit(context.Background(), f.user.ID, f.course.ID, map[string]interface{}{
		"cmi.core.lesson_status": "incomplete",
		"cmi.core.total_time":    "01:00:00",
	})
	require.NoError(t, err)
	assert.False(t, metrics.IsCompleted)
	assert.EqualValues(t, 3600, metrics.TotalTimeSeconds)

	// One hour against a two-hour course is 50 percent engagement
	e := f.reloadEnrollment(t)
	assert.Equal(t, 50, e.ProgressPercent)
	assert.Equal(t, courseModels.StatusInProgress, e.Status)

	// Second commit completes with a score; state merges over the first
	metrics, err = f.tracker.RecordRuntimeCommit(context.Background(), f.user.ID, f.course.ID, map[string]interface{}{
		"cmi.core.lesson_status": "passed",
		"cmi.core.score.raw":     "84",
		"cmi.core.score.min":     "0",
		"cmi.core.score.max":     "100",
		"cmi.core.session_time":  "00:30:00",
		"cmi.core.total_time":    "01:30:00",
	})
	require.NoError(t, err)
	assert.True(t, metrics.IsCompleted)
	require.NotNil(t, metrics.QuizScore)
	assert.Equal(t, 84, *metrics.QuizScore)
	assert.EqualValues(t, 5400, metrics.TotalTimeSeconds)

	e = f.reloadEnrollment(t)
	assert.Equal(t, courseModels.StatusScormComplete, e.Status)
	assert.False(t, e.IsCompleted, "commit alone never finalizes")

	var runtime courseModels.RuntimeState
	require.NoError(t, f.db.Where("enrollment_id = ?", f.enrollment.ID).First(&runtime).Error)
	assert.Equal(t, "completed", runtime.CompletionStatus)
	require.NotNil(t, runtime.NormalizedScore)
	assert.Equal(t, 84, *runtime.NormalizedScore)
}

func TestIncentivizedProgressCapped(t *testing.T) {
	f := newFixture(t, true, 0)
	_, err := f.tracker.InitializeRuntime(context.Background(), f.user.ID, f.course.ID)
	require.NoError(t, err)

	// Logged time exceeds the course duration, but progress holds below 100
	// until finalization
	_, err = f.tracker.RecordRuntimeCommit(context.Background(), f.user.ID, f.course.ID, map[string]interface{}{
		"cmi.core.lesson_status": "incomplete",
		"cmi.core.total_time":    "03:00:00",
	})
	require.NoError(t, err)

	e := f.reloadEnrollment(t)
	assert.Equal(t, 99, e.ProgressPercent)
}

func TestTotalTimeNeverDecreases(t *testing.T) {
	f := newFixture(t, true, 0)
	_, err := f.tracker.InitializeRuntime(context.Background(), f.user.ID, f.course.ID)
	require.NoError(t, err)

	_, err = f.tracker.RecordRuntimeCommit(context.Background(), f.user.ID, f.course.ID, map[string]interface{}{
		"cmi.core.total_time": "01:00:00",
	})
	require.NoError(t, err)

	// A stale player reporting less time does not roll the clock back
	metrics, err := f.tracker.RecordRuntimeCommit(context.Background(), f.user.ID, f.course.ID, map[string]interface{}{
		"cmi.core.total_time": "00:10:00",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3600, metrics.TotalTimeSeconds)
}

func TestTerminateClosesSession(t *testing.T) {
	f := newFixture(t, true, 0)
	_, err := f.tracker.InitializeRuntime(context.Background(), f.user.ID, f.course.ID)
	require.NoError(t, err)

	_, err = f.tracker.TerminateRuntime(context.Background(), f.user.ID, f.course.ID, map[string]interface{}{
		"cmi.completion_status": "completed",
		"cmi.score.scaled":      "0.9",
	})
	require.NoError(t, err)

	var runtime courseModels.RuntimeState
	require.NoError(t, f.db.Where("enrollment_id = ?", f.enrollment.ID).First(&runtime).Error)
	require.NotNil(t, runtime.TerminatedAt)
	require.NotNil(t, runtime.NormalizedScore)
	assert.Equal(t, 90, *runtime.NormalizedScore)

	// Commits after termination are rejected, terminate itself stays idempotent
	_, err = f.tracker.RecordRuntimeCommit(context.Background(), f.user.ID, f.course.ID, map[string]interface{}{
		"cmi.completion_status": "incomplete",
	})
	require.ErrorIs(t, err, ErrRuntimeTerminated)

	_, err = f.tracker.TerminateRuntime(context.Background(), f.user.ID, f.course.ID, nil)
	require.NoError(t, err)
}

func TestReplayedTerminateIgnoresPayload(t *testing.T) {
	f := newFixture(t, true, 0)
	_, err := f.tracker.InitializeRuntime(context.Background(), f.user.ID, f.course.ID)
	require.NoError(t, err)

	_, err = f.tracker.TerminateRuntime(context.Background(), f.user.ID, f.course.ID, map[string]interface{}{
		"cmi.completion_status": "completed",
		"cmi.score.scaled":      "0.40",
	})
	require.NoError(t, err)

	// A second terminate carrying a better score must not mutate the closed
	// session
	metrics, err := f.tracker.TerminateRuntime(context.Background(), f.user.ID, f.course.ID, map[string]interface{}{
		"cmi.score.scaled": "0.99",
	})
	require.NoError(t, err)
	require.NotNil(t, metrics.QuizScore)
	assert.Equal(t, 40, *metrics.QuizScore)

	var runtime courseModels.RuntimeState
	require.NoError(t, f.db.Where("enrollment_id = ?", f.enrollment.ID).First(&runtime).Error)
	require.NotNil(t, runtime.NormalizedScore)
	assert.Equal(t, 40, *runtime.NormalizedScore)
	assert.Equal(t, "0.40", runtime.CmiState["cmi.score.scaled"])
}

func TestEngagementProgress(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  int64
		duration int64
		want     int
	}{
		{"zero elapsed", 0, 3600, 0},
		{"half", 1800, 3600, 50},
		{"full", 3600, 3600, 100},
		{"over", 7200, 3600, 100},
		{"unknown duration with activity", 100, 0, 99},
		{"unknown duration idle", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engagementProgress(tt.elapsed, tt.duration))
		})
	}
}
