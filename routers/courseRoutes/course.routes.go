package courseRoutes

import (
	controllers "educhain/controllers/course"
	"educhain/middleware"
	validators "educhain/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all course, runtime and settlement routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	// Course catalog and enrollment
	courseGroup.Get("/list", middleware.JWTMiddleware, controllers.GetAllCourses)
	courseGroup.Post("/create", middleware.JWTMiddleware, validators.CreateCourse(), controllers.CreateCourse)
	courseGroup.Post("/:id/lesson", middleware.JWTMiddleware, validators.CourseID(), validators.AddLesson(), controllers.AddLesson)
	courseGroup.Post("/:id/enroll", middleware.JWTMiddleware, validators.CourseID(), controllers.EnrollInCourse)

	// Progress tracking
	courseGroup.Post("/lesson/:lessonId/watch", middleware.JWTMiddleware, validators.LessonID(), validators.LessonWatch(), controllers.RecordLessonWatch)
	courseGroup.Get("/:id/progress", middleware.JWTMiddleware, validators.CourseID(), controllers.GetCourseProgress)

	// SCORM runtime ingestion (incentivized courses)
	courseGroup.Post("/:id/runtime/initialize", middleware.JWTMiddleware, validators.CourseID(), controllers.InitializeRuntime)
	courseGroup.Post("/:id/runtime/commit", middleware.JWTMiddleware, validators.CourseID(), validators.RuntimeCommit(), controllers.CommitRuntime)
	courseGroup.Post("/:id/runtime/terminate", middleware.JWTMiddleware, validators.CourseID(), validators.RuntimeTerminate(), controllers.TerminateRuntime)

	// Completion-boost signals
	courseGroup.Post("/:id/proof", middleware.JWTMiddleware, validators.CourseID(), validators.CompletionProof(), controllers.SignCompletionProof)
	courseGroup.Post("/:id/dapp-visit", middleware.JWTMiddleware, validators.CourseID(), controllers.TrackDappVisit)

	// Settlement
	courseGroup.Post("/:id/complete", middleware.JWTMiddleware, validators.CourseID(), controllers.CompleteFreeCourse)
	courseGroup.Post("/:id/finalize", middleware.JWTMiddleware, validators.CourseID(), controllers.FinalizeCourse)
	courseGroup.Post("/:id/retry-sync", middleware.JWTMiddleware, validators.CourseID(), controllers.RetrySync)

	// User-scoped reads
	userGroup := app.Group("/user")
	userGroup.Get("/enrollments", middleware.JWTMiddleware, controllers.GetEnrollments)
	userGroup.Get("/certificates", middleware.JWTMiddleware, controllers.GetCertificates)
}
