package settlement

import "errors"

// Precondition errors. All of them are recoverable: the caller can retry the
// operation after satisfying the failed precondition.
var (
	ErrNotEnrolled      = errors.New("user is not enrolled in this course")
	ErrNotIncentivized  = errors.New("course is not incentivized")
	ErrRuntimeMissing   = errors.New("no runtime state recorded for this enrollment")
	ErrScormNotComplete = errors.New("runtime has not reported completion")
	ErrScoreUnavailable = errors.New("runtime reported no usable score")
	ErrProofRequired    = errors.New("completion proof signature is required")
	ErrNotEligible      = errors.New("course progress has not reached 100 percent")
	ErrNotYetCompleted  = errors.New("course is not completed yet")
)
