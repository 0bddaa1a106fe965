package controllers

import (
	"errors"

	"educhain/middleware"
	"educhain/progress"
	"educhain/settlement"

	"github.com/gofiber/fiber/v2"
)

// InitializeRuntime opens a SCORM runtime session for the embedded player
func InitializeRuntime(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)

	runtime, err := tracker.InitializeRuntime(c.Context(), userID, uint(courseID))
	if err != nil {
		return runtimeErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Runtime initialized!", runtime)
}

// CommitRuntime merges a raw cmi state commit from the player
func CommitRuntime(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)

	reqData, ok := c.Locals("validatedCommit").(*CommitRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	metrics, err := tracker.RecordRuntimeCommit(c.Context(), userID, uint(courseID), reqData.State)
	if err != nil {
		return runtimeErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Runtime state committed!", metrics)
}

// TerminateRuntime closes the session, merging the final commit when present
func TerminateRuntime(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)

	var state map[string]interface{}
	if reqData, ok := c.Locals("validatedTerminate").(*TerminateRequest); ok {
		state = reqData.State
	}

	metrics, err := tracker.TerminateRuntime(c.Context(), userID, uint(courseID), state)
	if err != nil {
		return runtimeErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Runtime terminated!", metrics)
}

func runtimeErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, settlement.ErrNotEnrolled):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
	case errors.Is(err, settlement.ErrNotIncentivized):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course has no embedded runtime!", nil)
	case errors.Is(err, settlement.ErrRuntimeMissing):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Runtime session not initialized!", nil)
	case errors.Is(err, progress.ErrRuntimeTerminated):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Runtime session already terminated!", nil)
	case errors.Is(err, progress.ErrLessonNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process runtime call!", nil)
}
