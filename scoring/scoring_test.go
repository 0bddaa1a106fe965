package scoring

import "testing"

func TestEngagementTimeScore(t *testing.T) {
	cases := []struct {
		name     string
		elapsed  int64
		duration int64
		want     int
	}{
		{"no duration, no time", 0, 0, 0},
		{"no duration, some time", 30, 0, 100},
		{"negative duration, some time", 30, -5, 100},
		{"half way", 1800, 3600, 50},
		{"full duration", 3600, 3600, 100},
		{"over duration clamps", 7200, 3600, 100},
		{"rounding", 1000, 3000, 33},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EngagementTimeScore(tc.elapsed, tc.duration); got != tc.want {
				t.Errorf("EngagementTimeScore(%d, %d) = %d, want %d", tc.elapsed, tc.duration, got, tc.want)
			}
		})
	}
}

func TestBaseScore(t *testing.T) {
	// 0.7×quiz + 0.3×engagement
	if got := BaseScore(80, 100); got != 86 {
		t.Errorf("expected 86, got %d", got)
	}
	if got := BaseScore(0, 0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := BaseScore(100, 100); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
	if got := BaseScore(50, 50); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}

func TestActionBoostMultiplier(t *testing.T) {
	if got := ActionBoostMultiplier(false, false); got != 1.0 {
		t.Errorf("expected 1.0, got %f", got)
	}
	if got := ActionBoostMultiplier(true, false); got != 1.10 {
		t.Errorf("expected 1.10, got %f", got)
	}
	if got := ActionBoostMultiplier(false, true); got != 1.03 {
		t.Errorf("expected 1.03, got %f", got)
	}
	// Boosts compound multiplicatively
	proof, dapp := 1.10, 1.03
	want := proof * dapp
	if got := ActionBoostMultiplier(true, true); got != want {
		t.Errorf("expected %f, got %f", want, got)
	}
}

// Both boosts on a base of 86: 86 × 1.133 rounds to 97
func TestFinalScoreWithBoosts(t *testing.T) {
	base := BaseScore(80, 100)
	multiplier := ActionBoostMultiplier(true, true)
	if got := FinalScore(base, multiplier, 1); got != 97 {
		t.Errorf("expected 97, got %d", got)
	}
}

func TestFinalScoreClamped(t *testing.T) {
	if got := FinalScore(100, 1.10*1.03, 1); got != 100 {
		t.Errorf("final score must clamp at 100, got %d", got)
	}
	if got := FinalScore(0, 1.10*1.03, 1); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestScoreBounds(t *testing.T) {
	for quiz := 0; quiz <= 100; quiz += 25 {
		for engagement := 0; engagement <= 100; engagement += 25 {
			base := BaseScore(quiz, engagement)
			if base < 0 || base > 100 {
				t.Fatalf("base score out of bounds: %d", base)
			}
			final := FinalScore(base, ActionBoostMultiplier(true, true), 1)
			if final < 0 || final > 100 {
				t.Fatalf("final score out of bounds: %d", final)
			}
		}
	}
}

func TestCompletionFlags(t *testing.T) {
	// The incentivized bit is always present
	if flags := CompletionFlags(false, false, false); flags != FlagIncentivized {
		t.Errorf("expected bare incentivized flag, got %b", flags)
	}

	flags := CompletionFlags(true, true, true)
	for _, bit := range []uint{FlagIncentivized, FlagProofSigned, FlagDappVisit, FlagScormCompleted} {
		if flags&bit == 0 {
			t.Errorf("expected bit %b set in %b", bit, flags)
		}
	}

	flags = CompletionFlags(true, false, true)
	if flags&FlagDappVisit != 0 {
		t.Errorf("dapp visit bit must not be set, got %b", flags)
	}
}

func TestLeaderboardEligible(t *testing.T) {
	// Both the signed proof and runtime completion are required
	if LeaderboardEligible(true, false) || LeaderboardEligible(false, true) || LeaderboardEligible(false, false) {
		t.Error("eligibility requires both signals")
	}
	if !LeaderboardEligible(true, true) {
		t.Error("expected eligible with both signals")
	}
}

func TestIdentityMultiplierDefault(t *testing.T) {
	if got := IdentityMultiplier(42); got != 1 {
		t.Errorf("default identity multiplier should be 1, got %f", got)
	}
}
