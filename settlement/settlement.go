// Package settlement orchestrates course completion: computing the final
// score, persisting it atomically with the enrollment, and mirroring the
// result onto the EduChain ledger. Local state is authoritative; the ledger
// is an eventually consistent mirror, replayed via RetrySync until confirmed.
package settlement

import (
	"context"
	"log"
	"time"

	"educhain/ledger"
	"educhain/models"
	courseModels "educhain/models/course"
	"educhain/scoring"
	"educhain/scorm"
	"educhain/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sendCompletionEmail is swappable in tests
var sendCompletionEmail = utils.SendCourseCompletionEmail

// Ledger is the contract surface the coordinator needs from the chain client
type Ledger interface {
	Enroll(ctx context.Context, courseID uint, learner string) (string, error)
	CompleteCourse(ctx context.Context, courseID uint, learner string, score uint8, flags uint8) (string, error)
	WaitReceipt(ctx context.Context, txHash string) (*ledger.Receipt, error)
	IsEnrolled(ctx context.Context, courseID uint, learner string) (bool, error)
	CompletionOnChain(ctx context.Context, courseID uint, learner string) (*ledger.Completion, error)
}

// SyncOutcome describes how far the ledger mirror got for one operation
type SyncOutcome string

const (
	SyncConfirmed SyncOutcome = "CONFIRMED" // receipted on chain
	SyncPending   SyncOutcome = "PENDING"   // broadcast or deferred, retry later
	SyncFailed    SyncOutcome = "FAILED"    // broadcast or receipt failed, retry later
	SyncAlready   SyncOutcome = "ALREADY_SYNCED"
)

// CompletionResult is what the coordinator hands back for every settlement
// operation. Replays return the previously persisted values.
type CompletionResult struct {
	UserID              uint        `json:"user_id"`
	CourseID            uint        `json:"course_id"`
	FinalScore          int         `json:"final_score"`
	CompletionFlags     uint        `json:"completion_flags"`
	LeaderboardEligible bool        `json:"leaderboard_eligible"`
	TxHash              string      `json:"tx_hash"`
	Sync                SyncOutcome `json:"sync"`
	AlreadyCompleted    bool        `json:"already_completed"`
}

// Coordinator owns the completion/settlement pipeline for all courses
type Coordinator struct {
	db          *gorm.DB
	ledger      Ledger
	waitTimeout time.Duration
}

// NewCoordinator wires the coordinator. A nil ledger disables on-chain
// mirroring; completions then stay local until a ledger is configured.
func NewCoordinator(db *gorm.DB, l Ledger, waitTimeout time.Duration) *Coordinator {
	if waitTimeout <= 0 {
		waitTimeout = 90 * time.Second
	}
	return &Coordinator{db: db, ledger: l, waitTimeout: waitTimeout}
}

// CompleteFreeCourse marks a free course completed once lesson progress hits
// 100 and mirrors the completion on chain asynchronously. A ledger failure
// never reverts the local completion.
func (c *Coordinator) CompleteFreeCourse(ctx context.Context, userID, courseID uint) (*CompletionResult, error) {
	enrollment, crs, err := c.loadEnrollment(userID, courseID)
	if err != nil {
		return nil, err
	}
	if crs.IsIncentivized {
		return nil, ErrNotEligible
	}

	if enrollment.IsCompleted {
		return cachedResult(enrollment), nil
	}
	if enrollment.ProgressPercent < 100 {
		return nil, ErrNotEligible
	}

	// Compare-and-set on is_completed serializes concurrent completion
	// attempts at the store; the loser adopts the winner's result.
	now := time.Now()
	zero := 0
	res := c.db.Model(&courseModels.Enrollment{}).
		Where("id = ? AND is_completed = ?", enrollment.ID, false).
		Updates(map[string]interface{}{
			"is_completed":     true,
			"completed_at":     now,
			"status":           courseModels.StatusCompleted,
			"progress_percent": 100,
			"final_score":      zero,
			"completion_flags": 0,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if err := c.db.First(enrollment, enrollment.ID).Error; err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return cachedResult(enrollment), nil
	}

	// Free-path settlement is fire-and-forget; the reconciliation sweep or
	// RetrySync picks up anything that does not confirm.
	result := cachedResult(enrollment)
	result.Sync = SyncPending
	result.AlreadyCompleted = false
	go func(e courseModels.Enrollment) {
		settleCtx, cancel := context.WithTimeout(context.Background(), c.waitTimeout)
		defer cancel()
		c.settleCompletion(settleCtx, &e, 0, 0)
	}(*enrollment)

	return result, nil
}

// FinalizeIncentivizedCourse computes and persists the one-time settlement
// score for a SCORM-driven course, then mirrors it on chain with a bounded
// wait. Calling it again after completion returns the persisted score
// without recomputation.
func (c *Coordinator) FinalizeIncentivizedCourse(ctx context.Context, userID, courseID uint) (*CompletionResult, error) {
	enrollment, crs, err := c.loadEnrollment(userID, courseID)
	if err != nil {
		return nil, err
	}
	if !crs.IsIncentivized {
		return nil, ErrNotIncentivized
	}

	if enrollment.IsCompleted {
		return cachedResult(enrollment), nil
	}

	var runtime courseModels.RuntimeState
	if err := c.db.Where("enrollment_id = ?", enrollment.ID).First(&runtime).Error; err != nil {
		return nil, ErrRuntimeMissing
	}
	if runtime.CompletionStatus != scorm.CompletionCompleted {
		return nil, ErrScormNotComplete
	}
	if runtime.NormalizedScore == nil {
		return nil, ErrScoreUnavailable
	}
	if !enrollment.ProofSigned {
		return nil, ErrProofRequired
	}

	engagement := scoring.EngagementTimeScore(runtime.TotalTimeSeconds, crs.DurationSeconds)
	base := scoring.BaseScore(*runtime.NormalizedScore, engagement)
	multiplier := scoring.ActionBoostMultiplier(enrollment.ProofSigned, enrollment.DappVisitTracked)
	final := scoring.FinalScore(base, multiplier, scoring.IdentityMultiplier(userID))
	flags := scoring.CompletionFlags(enrollment.ProofSigned, enrollment.DappVisitTracked, true)
	eligible := scoring.LeaderboardEligible(enrollment.ProofSigned, true)

	// Score persist and point credit land in one transaction, guarded by the
	// same compare-and-set as the free path.
	now := time.Now()
	var raced bool
	err = c.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&courseModels.Enrollment{}).
			Where("id = ? AND is_completed = ?", enrollment.ID, false).
			Updates(map[string]interface{}{
				"is_completed":         true,
				"completed_at":         now,
				"status":               courseModels.StatusFinalized,
				"progress_percent":     100,
				"final_score":          final,
				"completion_flags":     flags,
				"leaderboard_eligible": eligible,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			raced = true
			return nil
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("points_balance", gorm.Expr("points_balance + ?", final)).Error
	})
	if err != nil {
		return nil, err
	}
	if err := c.db.First(enrollment, enrollment.ID).Error; err != nil {
		return nil, err
	}
	if raced {
		return cachedResult(enrollment), nil
	}

	settleCtx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()
	txHash, outcome := c.settleCompletion(settleCtx, enrollment, uint8(final), uint8(flags))

	result := cachedResult(enrollment)
	result.TxHash = txHash
	result.Sync = outcome
	result.AlreadyCompleted = false
	return result, nil
}

// RetrySync resubmits the ledger mirror for a completed enrollment using the
// already-persisted score and flags. It never recomputes.
func (c *Coordinator) RetrySync(ctx context.Context, userID, courseID uint) (*CompletionResult, error) {
	enrollment, _, err := c.loadEnrollment(userID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrollment.IsCompleted {
		return nil, ErrNotYetCompleted
	}
	if enrollment.OnChainCompletionSynced {
		result := cachedResult(enrollment)
		result.Sync = SyncAlready
		return result, nil
	}

	score := 0
	if enrollment.FinalScore != nil {
		score = *enrollment.FinalScore
	}

	settleCtx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()
	txHash, outcome := c.settleCompletion(settleCtx, enrollment, uint8(score), uint8(enrollment.CompletionFlags))

	if err := c.db.First(enrollment, enrollment.ID).Error; err != nil {
		return nil, err
	}
	result := cachedResult(enrollment)
	result.TxHash = txHash
	result.Sync = outcome
	return result, nil
}

// MirrorEnrollment reflects a fresh enrollment on chain. Best effort: a
// failure leaves the local enrollment untouched.
func (c *Coordinator) MirrorEnrollment(ctx context.Context, enrollmentID uint) {
	if c.ledger == nil {
		return
	}

	var enrollment courseModels.Enrollment
	if err := c.db.First(&enrollment, enrollmentID).Error; err != nil {
		return
	}
	wallet, err := c.walletFor(enrollment.UserID)
	if err != nil {
		return
	}

	mirrorCtx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	// Skip the transaction when the chain already knows this enrollment
	if enrolled, err := c.ledger.IsEnrolled(mirrorCtx, enrollment.CourseID, wallet); err == nil && enrolled {
		c.db.Model(&enrollment).Updates(map[string]interface{}{"on_chain_enroll_synced": true})
		return
	}

	txHash, err := c.ledger.Enroll(mirrorCtx, enrollment.CourseID, wallet)
	if err != nil {
		log.Printf("[SETTLEMENT] enroll broadcast failed for user %d course %d: %v",
			enrollment.UserID, enrollment.CourseID, err)
		return
	}
	txRow := c.recordBroadcast(models.LedgerTxEnroll, enrollment.UserID, enrollment.CourseID, txHash)

	receipt, err := c.ledger.WaitReceipt(mirrorCtx, txHash)
	if err != nil {
		log.Printf("[SETTLEMENT] enroll receipt wait ended for %s: %v", txHash, err)
		return
	}
	c.recordReceipt(txRow, receipt)
	if receipt.Success {
		c.db.Model(&enrollment).Updates(map[string]interface{}{
			"on_chain_enroll_synced": true,
			"enroll_tx_hash":         txHash,
		})
	}
}

// settleCompletion runs the shared ledger submission protocol: pre-check the
// chain, broadcast, wait bounded, record the receipt, flip sync flags.
// The local completion is never rolled back, whatever happens here.
func (c *Coordinator) settleCompletion(ctx context.Context, enrollment *courseModels.Enrollment, score, flags uint8) (string, SyncOutcome) {
	if c.ledger == nil {
		return "", SyncPending
	}

	wallet, err := c.walletFor(enrollment.UserID)
	if err != nil {
		log.Printf("[SETTLEMENT] no wallet for user %d: %v", enrollment.UserID, err)
		return "", SyncFailed
	}

	// Guard against duplicate submission after a crash between broadcast and
	// local status update: if the chain already reflects the completion,
	// adopt it without a new transaction.
	if onChain, err := c.ledger.CompletionOnChain(ctx, enrollment.CourseID, wallet); err == nil && onChain.Completed {
		txHash := enrollment.CompletionTxHash
		if txHash == "" {
			// Recover the hash from the last broadcast we recorded before
			// the crash, if any
			var prior models.LedgerTransaction
			if err := c.db.Where("user_id = ? AND course_id = ? AND type = ?",
				enrollment.UserID, enrollment.CourseID, models.LedgerTxComplete).
				Order("id desc").First(&prior).Error; err == nil {
				txHash = prior.TxHash
			}
		}
		c.markSynced(enrollment, txHash)
		return txHash, SyncConfirmed
	}

	txHash, err := c.ledger.CompleteCourse(ctx, enrollment.CourseID, wallet, score, flags)
	if err != nil {
		log.Printf("[SETTLEMENT] completeCourse broadcast failed for user %d course %d: %v",
			enrollment.UserID, enrollment.CourseID, err)
		return "", SyncFailed
	}
	txRow := c.recordBroadcast(models.LedgerTxComplete, enrollment.UserID, enrollment.CourseID, txHash)

	receipt, err := c.ledger.WaitReceipt(ctx, txHash)
	if err != nil {
		// Timeout or canceled wait. The transaction may still land; the row
		// stays PENDING and the sweep retries via the on-chain pre-check.
		log.Printf("[SETTLEMENT] receipt wait ended for %s: %v", txHash, err)
		return txHash, SyncPending
	}

	c.recordReceipt(txRow, receipt)
	if !receipt.Success {
		return txHash, SyncFailed
	}

	c.markSynced(enrollment, txHash)
	c.issueCertificate(enrollment, txHash)
	go c.notifyCompletion(*enrollment, txHash)
	return txHash, SyncConfirmed
}

func (c *Coordinator) loadEnrollment(userID, courseID uint) (*courseModels.Enrollment, *courseModels.Course, error) {
	var enrollment courseModels.Enrollment
	if err := c.db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&enrollment).Error; err != nil {
		return nil, nil, ErrNotEnrolled
	}
	var crs courseModels.Course
	if err := c.db.Where("id = ? AND is_deleted = ?", courseID, false).First(&crs).Error; err != nil {
		return nil, nil, ErrNotEnrolled
	}
	return &enrollment, &crs, nil
}

func (c *Coordinator) walletFor(userID uint) (string, error) {
	var user models.User
	if err := c.db.Select("wallet_address").Where("id = ? AND is_deleted = ?", userID, false).
		First(&user).Error; err != nil {
		return "", err
	}
	return user.WalletAddress, nil
}

// recordBroadcast appends a PENDING ledger transaction row. Rows are never
// reused: every resubmission gets its own row and hash.
func (c *Coordinator) recordBroadcast(txType models.LedgerTransactionType, userID, courseID uint, txHash string) *models.LedgerTransaction {
	row := &models.LedgerTransaction{
		TxHash:      txHash,
		Type:        txType,
		Status:      models.LedgerTxPending,
		UserID:      userID,
		CourseID:    courseID,
		BroadcastAt: time.Now(),
	}
	if err := c.db.Create(row).Error; err != nil {
		log.Printf("[SETTLEMENT] failed to record transaction %s: %v", txHash, err)
	}
	return row
}

func (c *Coordinator) recordReceipt(row *models.LedgerTransaction, receipt *ledger.Receipt) {
	now := time.Now()
	status := models.LedgerTxSuccess
	if !receipt.Success {
		status = models.LedgerTxFailed
	}
	c.db.Model(row).Updates(map[string]interface{}{
		"status":       status,
		"gas_used":     receipt.GasUsed,
		"block_number": receipt.BlockNumber,
		"confirmed_at": now,
	})
}

func (c *Coordinator) markSynced(enrollment *courseModels.Enrollment, txHash string) {
	if !courseModels.CanTransition(enrollment.Status, courseModels.StatusSynced) {
		log.Printf("[SETTLEMENT] refusing sync transition from %s for enrollment %d",
			enrollment.Status, enrollment.ID)
		return
	}
	updates := map[string]interface{}{
		"on_chain_completion_synced": true,
		"status":                     courseModels.StatusSynced,
	}
	if txHash != "" {
		updates["completion_tx_hash"] = txHash
	}
	if err := c.db.Model(enrollment).Updates(updates).Error; err != nil {
		log.Printf("[SETTLEMENT] failed to mark enrollment %d synced: %v", enrollment.ID, err)
		return
	}
	enrollment.OnChainCompletionSynced = true
	enrollment.Status = courseModels.StatusSynced
	if txHash != "" {
		enrollment.CompletionTxHash = txHash
	}
}

// issueCertificate creates the certificate row once per (user, course).
// Replays after a crash hit the unique index and are ignored.
func (c *Coordinator) issueCertificate(enrollment *courseModels.Enrollment, txHash string) {
	cert := courseModels.Certificate{
		UserID:            enrollment.UserID,
		CourseID:          enrollment.CourseID,
		EnrollmentID:      enrollment.ID,
		CertificateNumber: "EDU-" + uuid.NewString(),
		TxHash:            txHash,
		IssuedAt:          time.Now(),
	}
	if err := c.db.Create(&cert).Error; err != nil {
		log.Printf("[SETTLEMENT] certificate issue skipped for enrollment %d: %v", enrollment.ID, err)
	}
}

func (c *Coordinator) notifyCompletion(enrollment courseModels.Enrollment, txHash string) {
	var user models.User
	if err := c.db.Select("name, email").First(&user, enrollment.UserID).Error; err != nil || user.Email == "" {
		return
	}
	var crs courseModels.Course
	if err := c.db.Select("title").First(&crs, enrollment.CourseID).Error; err != nil {
		return
	}
	score := 0
	if enrollment.FinalScore != nil {
		score = *enrollment.FinalScore
	}
	sendCompletionEmail(user.Email, user.Name, crs.Title, score, txHash)
}

func cachedResult(enrollment *courseModels.Enrollment) *CompletionResult {
	score := 0
	if enrollment.FinalScore != nil {
		score = *enrollment.FinalScore
	}
	sync := SyncPending
	if enrollment.OnChainCompletionSynced {
		sync = SyncConfirmed
	}
	return &CompletionResult{
		UserID:              enrollment.UserID,
		CourseID:            enrollment.CourseID,
		FinalScore:          score,
		CompletionFlags:     enrollment.CompletionFlags,
		LeaderboardEligible: enrollment.LeaderboardEligible,
		TxHash:              enrollment.CompletionTxHash,
		Sync:                sync,
		AlreadyCompleted:    enrollment.IsCompleted,
	}
}
