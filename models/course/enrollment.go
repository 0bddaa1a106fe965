package course

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses. Incentivized courses walk
// NOT_STARTED → IN_PROGRESS → SCORM_COMPLETE → FINALIZED → SYNCED, free courses
// collapse the scoring steps into COMPLETED → SYNCED.
const (
	StatusNotStarted    = "NOT_STARTED"
	StatusInProgress    = "IN_PROGRESS"
	StatusScormComplete = "SCORM_COMPLETE"
	StatusCompleted     = "COMPLETED"
	StatusFinalized     = "FINALIZED"
	StatusSynced        = "SYNCED"
)

// statusTransitions is the allowed transition table for Enrollment.Status.
// Self-transitions are always permitted (idempotent replays).
var statusTransitions = map[string][]string{
	StatusNotStarted:    {StatusInProgress, StatusScormComplete, StatusCompleted},
	StatusInProgress:    {StatusScormComplete, StatusCompleted, StatusFinalized},
	StatusScormComplete: {StatusFinalized},
	StatusCompleted:     {StatusSynced},
	StatusFinalized:     {StatusSynced},
	StatusSynced:        {},
}

// CanTransition reports whether an enrollment may move from one status to another
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Enrollment tracks a user's enrollment in a course with progress and settlement state
type Enrollment struct {
	gorm.Model
	UserID          uint       `json:"user_id" gorm:"uniqueIndex:idx_user_course;not null"`
	CourseID        uint       `json:"course_id" gorm:"uniqueIndex:idx_user_course;not null"`
	Status          string     `json:"status" gorm:"default:'NOT_STARTED'"`
	ProgressPercent int        `json:"progress_percent" gorm:"default:0"` // 0-100
	IsCompleted     bool       `json:"is_completed" gorm:"default:false"`
	CompletedAt     *time.Time `json:"completed_at"`

	// Scoring results, written once at finalization
	FinalScore          *int `json:"final_score"`
	CompletionFlags     uint `json:"completion_flags" gorm:"default:0"`
	LeaderboardEligible bool `json:"leaderboard_eligible" gorm:"default:false"`

	// Externally supplied completion-boost signals
	ProofSigned      bool `json:"proof_signed" gorm:"default:false"`
	DappVisitTracked bool `json:"dapp_visit_tracked" gorm:"default:false"`

	// On-chain mirror state
	OnChainEnrollSynced     bool   `json:"on_chain_enroll_synced" gorm:"default:false"`
	EnrollTxHash            string `json:"enroll_tx_hash"`
	OnChainCompletionSynced bool   `json:"on_chain_completion_synced" gorm:"default:false"`
	CompletionTxHash        string `json:"completion_tx_hash"`

	IsDeleted bool `gorm:"default:false"`
}
