package controllers

import (
	"errors"
	"log"

	"educhain/database"
	"educhain/ledger"
	"educhain/middleware"
	"educhain/models"
	courseModels "educhain/models/course"
	"educhain/settlement"
	"educhain/utils"

	"github.com/gofiber/fiber/v2"
)

// RecordLessonWatch records a watch event for one lesson. May complete the
// course when the free-course aggregate reaches 100.
func RecordLessonWatch(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	lessonID := c.Locals("lessonID").(int)

	reqData, ok := c.Locals("validatedWatch").(*WatchRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	result, err := tracker.RecordLessonWatch(c.Context(), userID, uint(lessonID), reqData.ProgressPercent)
	if err != nil {
		return runtimeErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson watch recorded!", result)
}

// SignCompletionProof verifies the learner's personal-sign completion proof
// and records the boost signal
func SignCompletionProof(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)

	reqData, ok := c.Locals("validatedProof").(*ProofRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	var enrollment courseModels.Enrollment
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
	}

	message := ledger.CompletionProofMessage(uint(courseID), user.WalletAddress)
	if !ledger.VerifyPersonalSignature(user.WalletAddress, message, reqData.Signature) {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid proof signature!", nil)
	}

	if err := database.Database.Db.Model(&enrollment).Update("proof_signed", true).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to record proof!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Completion proof recorded!", fiber.Map{
		"proof_signed": true,
	})
}

// TrackDappVisit confirms the learner's dapp session with the attestation
// service and records the boost signal
func TrackDappVisit(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	var enrollment courseModels.Enrollment
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
	}

	visited, err := utils.VerifyDappVisit(user.WalletAddress, uint(courseID))
	if err != nil {
		log.Printf("Dapp visit attestation failed: %v", err)
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to verify dapp visit!", nil)
	}
	if !visited {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "No dapp visit found for this wallet!", nil)
	}

	if err := database.Database.Db.Model(&enrollment).Update("dapp_visit_tracked", true).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to record dapp visit!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Dapp visit recorded!", fiber.Map{
		"dapp_visit_tracked": true,
	})
}

// CompleteFreeCourse settles a fully watched free course
func CompleteFreeCourse(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)

	result, err := coordinator.CompleteFreeCourse(c.Context(), userID, uint(courseID))
	if err != nil {
		return settlementErrorResponse(c, err)
	}

	message := "Course completed!"
	if result.AlreadyCompleted {
		message = "Course was already completed!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
}

// FinalizeCourse computes and settles the one-time score for an
// incentivized course
func FinalizeCourse(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)

	result, err := coordinator.FinalizeIncentivizedCourse(c.Context(), userID, uint(courseID))
	if err != nil {
		return settlementErrorResponse(c, err)
	}

	message := "Course finalized and scored!"
	if result.AlreadyCompleted {
		message = "Course was already finalized!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
}

// RetrySync resubmits the ledger mirror for a completed enrollment
func RetrySync(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("courseID").(int)

	result, err := coordinator.RetrySync(c.Context(), userID, uint(courseID))
	if err != nil {
		return settlementErrorResponse(c, err)
	}

	message := "Ledger sync attempted!"
	if result.Sync == settlement.SyncAlready {
		message = "Enrollment is already synced!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
}

func settlementErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, settlement.ErrNotEnrolled):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
	case errors.Is(err, settlement.ErrNotIncentivized):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course is not incentivized!", nil)
	case errors.Is(err, settlement.ErrRuntimeMissing):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Runtime session not initialized!", nil)
	case errors.Is(err, settlement.ErrScormNotComplete):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Runtime has not reported completion!", nil)
	case errors.Is(err, settlement.ErrScoreUnavailable):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "No usable score reported yet!", nil)
	case errors.Is(err, settlement.ErrProofRequired):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Completion proof signature required!", nil)
	case errors.Is(err, settlement.ErrNotEligible):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course progress has not reached 100%!", nil)
	case errors.Is(err, settlement.ErrNotYetCompleted):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course is not completed yet!", nil)
	}
	log.Printf("Settlement error: %v", err)
	return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process settlement!", nil)
}
