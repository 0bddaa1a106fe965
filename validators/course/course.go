package courseValidator

import (
	"strconv"
	"strings"

	controllers "educhain/controllers/course"
	"educhain/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// paramID validates a positive integer path parameter and stores it in Locals
func paramID(param, local string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		idStr := strings.TrimSpace(c.Params(param))
		if idStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "ID is required!", nil)
		}

		id, err := strconv.Atoi(idStr)
		if err != nil || id <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid ID!", nil)
		}

		c.Locals(local, id)
		return c.Next()
	}
}

// CourseID validates the :id course path parameter
func CourseID() fiber.Handler {
	return paramID("id", "courseID")
}

// LessonID validates the :lessonId path parameter
func LessonID() fiber.Handler {
	return paramID("lessonId", "lessonID")
}

// CreateCourse validates the course creation body
func CreateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(controllers.CourseRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			errors := make(map[string]string)
			for _, fieldErr := range err.(validator.ValidationErrors) {
				errors[fieldErr.Field()] = "Failed validation: " + fieldErr.Tag()
			}
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

// AddLesson validates the lesson creation body
func AddLesson() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(controllers.LessonRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			errors := make(map[string]string)
			for _, fieldErr := range err.(validator.ValidationErrors) {
				errors[fieldErr.Field()] = "Failed validation: " + fieldErr.Tag()
			}
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedLesson", reqData)
		return c.Next()
	}
}

// LessonWatch validates a lesson watch event body
func LessonWatch() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(controllers.WatchRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"progress_percent": "Progress must be between 0 and 100!",
			})
		}

		c.Locals("validatedWatch", reqData)
		return c.Next()
	}
}

// RuntimeCommit validates a SCORM commit body
func RuntimeCommit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(controllers.CommitRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if len(reqData.State) == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"state": "Commit state is required!",
			})
		}

		c.Locals("validatedCommit", reqData)
		return c.Next()
	}
}

// RuntimeTerminate parses the optional final commit on terminate
func RuntimeTerminate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(controllers.TerminateRequest)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		c.Locals("validatedTerminate", reqData)
		return c.Next()
	}
}

// CompletionProof validates the signed completion proof body
func CompletionProof() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(controllers.ProofRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if !strings.HasPrefix(reqData.Signature, "0x") {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"signature": "Signature must be a 0x-prefixed hex string!",
			})
		}

		c.Locals("validatedProof", reqData)
		return c.Next()
	}
}
