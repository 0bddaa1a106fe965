package settlement

import (
	"context"
	"log"
	"time"

	courseModels "educhain/models/course"

	"github.com/robfig/cron/v3"
)

// logSweep logs reconciliation sweep events with timestamp
func logSweep(message string) {
	log.Printf("[SYNC-SWEEP %s] %s", time.Now().Format(time.RFC3339), message)
}

// sweepUnsynced retries the ledger mirror for every completed enrollment
// that has not confirmed on chain yet
func (c *Coordinator) sweepUnsynced() {
	var enrollments []courseModels.Enrollment
	if err := c.db.Where("is_completed = ? AND on_chain_completion_synced = ? AND is_deleted = ?",
		true, false, false).Limit(100).Find(&enrollments).Error; err != nil {
		logSweep("Error fetching unsynced enrollments: " + err.Error())
		return
	}
	if len(enrollments) == 0 {
		return
	}

	logSweep("Retrying ledger sync for unsynced completions")
	for _, enrollment := range enrollments {
		result, err := c.RetrySync(context.Background(), enrollment.UserID, enrollment.CourseID)
		if err != nil {
			logSweep("Retry failed for enrollment: " + err.Error())
			continue
		}
		if result.Sync == SyncConfirmed {
			logSweep("Enrollment synced: " + result.TxHash)
		}
	}
}

// StartReconciliationScheduler sweeps completed-but-unsynced enrollments
// every five minutes
func (c *Coordinator) StartReconciliationScheduler() *cron.Cron {
	logSweep("Initializing reconciliation scheduler...")

	sched := cron.New()
	sched.AddFunc("*/5 * * * *", func() {
		c.sweepUnsynced()
	})
	sched.Start()

	logSweep("Reconciliation scheduler started - runs every 5 minutes")
	return sched
}
