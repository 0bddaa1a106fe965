// Package scoring computes the settlement score for an incentivized course
// completion. Pure functions over normalized metrics and enrollment facts.
package scoring

import "math"

// Completion flag bits submitted to the ledger alongside the score
const (
	FlagIncentivized   uint = 1 << 0
	FlagProofSigned    uint = 1 << 1
	FlagDappVisit      uint = 1 << 2
	FlagScormCompleted uint = 1 << 3
)

// Boost multipliers for externally verified completion actions
const (
	proofSignedBoost = 1.10
	dappVisitBoost   = 1.03
)

// IdentityMultiplier is a pluggable reputation-based score factor.
// Currently a constant 1 for every user.
var IdentityMultiplier = func(userID uint) float64 { return 1 }

// EngagementTimeScore scores elapsed engagement time against the expected
// course duration. Unknown duration degrades to all-or-nothing.
func EngagementTimeScore(elapsedSeconds, courseDurationSeconds int64) int {
	if courseDurationSeconds <= 0 {
		if elapsedSeconds > 0 {
			return 100
		}
		return 0
	}
	ratio := clamp(float64(elapsedSeconds)/float64(courseDurationSeconds), 0, 1)
	return int(math.Round(ratio * 100))
}

// BaseScore weights the quiz score against the engagement score, 70/30
func BaseScore(quizScore, engagementScore int) int {
	base := 0.7*float64(quizScore) + 0.3*float64(engagementScore)
	return int(math.Round(clamp(base, 0, 100)))
}

// ActionBoostMultiplier compounds the independent completion-action boosts
func ActionBoostMultiplier(proofSigned, dappVisitTracked bool) float64 {
	multiplier := 1.0
	if proofSigned {
		multiplier *= proofSignedBoost
	}
	if dappVisitTracked {
		multiplier *= dappVisitBoost
	}
	return multiplier
}

// FinalScore applies the action and identity multipliers to the base score,
// clamped to [0,100]
func FinalScore(baseScore int, actionMultiplier, identityMultiplier float64) int {
	final := float64(baseScore) * actionMultiplier * identityMultiplier
	return int(math.Round(clamp(final, 0, 100)))
}

// CompletionFlags builds the flag bitmask for the ledger submission.
// The incentivized bit is always set.
func CompletionFlags(proofSigned, dappVisitTracked, scormCompleted bool) uint {
	flags := FlagIncentivized
	if proofSigned {
		flags |= FlagProofSigned
	}
	if dappVisitTracked {
		flags |= FlagDappVisit
	}
	if scormCompleted {
		flags |= FlagScormCompleted
	}
	return flags
}

// LeaderboardEligible requires both the signed completion proof and a
// confirmed runtime completion. Score alone never qualifies.
func LeaderboardEligible(proofSigned, scormCompleted bool) bool {
	return proofSigned && scormCompleted
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
