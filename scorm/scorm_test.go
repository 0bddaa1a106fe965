package scorm

import "testing"

func TestParseLegacyTime(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"00:00:00", 0},
		{"01:02:03", 3723},
		{"00:10:00", 600},
		{"10:00:05", 36005},
		{"0001:30:00", 5400},
		{"00:00:01.5", 1.5},
		{"", 0},
		{"garbage", 0},
		{"1:2", 0},
		{"PT1H", 0},
	}
	for _, tc := range cases {
		if got := ParseLegacyTime(tc.in); got != tc.want {
			t.Errorf("ParseLegacyTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"PT1H2M3S", 3723},
		{"P1DT1H", 90000},
		{"PT600S", 600},
		{"PT0.5S", 0.5},
		{"PT90M", 5400},
		{"P2D", 172800},
		{"", 0},
		{"P", 0},
		{"PT", 0},
		{"nonsense", 0},
		{"00:10:00", 0},
	}
	for _, tc := range cases {
		if got := ParseISODuration(tc.in); got != tc.want {
			t.Errorf("ParseISODuration(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeState(t *testing.T) {
	raw := map[string]interface{}{
		"cmi.core.lesson_status": "completed",
		"cmi.score.raw":          42,
		"cmi.empty":              "",
		"cmi.nil":                nil,
		"adl.nav.request":        "continue",
		"random":                 "junk",
	}
	got := SanitizeState(raw)
	if len(got) != 2 {
		t.Fatalf("expected 2 sanitized keys, got %d: %v", len(got), got)
	}
	if got["cmi.core.lesson_status"] != "completed" {
		t.Errorf("lesson_status not retained")
	}
	if got["cmi.score.raw"] != "42" {
		t.Errorf("non-string value not stringified, got %q", got["cmi.score.raw"])
	}
}

func TestMergeStateLastWriteWins(t *testing.T) {
	previous := map[string]string{"cmi.core.lesson_status": "incomplete", "cmi.core.total_time": "00:05:00"}
	commit := map[string]string{"cmi.core.lesson_status": "completed"}

	merged := MergeState(previous, commit)
	if merged["cmi.core.lesson_status"] != "completed" {
		t.Errorf("commit value should win, got %q", merged["cmi.core.lesson_status"])
	}
	if merged["cmi.core.total_time"] != "00:05:00" {
		t.Errorf("previous keys should survive the union")
	}
	if previous["cmi.core.lesson_status"] != "incomplete" {
		t.Errorf("previous map must not be mutated")
	}
}

// Scenario: legacy raw/min/max triple with lesson_status completed
func TestDeriveMetricsLegacyScore(t *testing.T) {
	state := map[string]string{
		"cmi.core.lesson_status": "completed",
		"cmi.core.score.raw":     "42",
		"cmi.core.score.min":     "0",
		"cmi.core.score.max":     "84",
	}
	m := DeriveMetrics(state, 0)
	if !m.IsCompleted {
		t.Fatal("expected completed")
	}
	if m.QuizScore == nil || *m.QuizScore != 50 {
		t.Fatalf("expected quiz score 50, got %v", m.QuizScore)
	}
}

// Scenario: 2004 pre-scaled score with completion and success reported
func TestDeriveMetricsScaledScore(t *testing.T) {
	state := map[string]string{
		"cmi.completion_status": "completed",
		"cmi.success_status":    "passed",
		"cmi.score.scaled":      "0.83",
	}
	m := DeriveMetrics(state, 0)
	if !m.IsCompleted || !m.IsSuccessful {
		t.Fatal("expected completed and successful")
	}
	if m.QuizScore == nil || *m.QuizScore != 83 {
		t.Fatalf("expected quiz score 83, got %v", m.QuizScore)
	}
}

func TestDeriveMetricsLegacyStatusAuthoritative(t *testing.T) {
	// lesson_status wins over the 2004 fields when both are present
	state := map[string]string{
		"cmi.core.lesson_status": "failed",
		"cmi.completion_status":  "incomplete",
	}
	m := DeriveMetrics(state, 0)
	if !m.IsCompleted {
		t.Error("failed counts as a completed attempt")
	}
	if m.IsSuccessful {
		t.Error("failed is not successful")
	}
	if m.SuccessStatus != SuccessFailed {
		t.Errorf("expected failed success status, got %q", m.SuccessStatus)
	}
}

func TestDeriveMetricsSuccessImpliesCompletion(t *testing.T) {
	state := map[string]string{"cmi.success_status": "passed"}
	m := DeriveMetrics(state, 0)
	if !m.IsCompleted {
		t.Error("a definite pass should imply completion")
	}
}

func TestDeriveMetricsScoreRequiresCompletion(t *testing.T) {
	state := map[string]string{
		"cmi.completion_status": "incomplete",
		"cmi.score.scaled":      "0.9",
	}
	m := DeriveMetrics(state, 0)
	if m.QuizScore != nil {
		t.Errorf("score must be nil while the session is incomplete, got %v", *m.QuizScore)
	}
}

func TestDeriveMetricsDegenerateBounds(t *testing.T) {
	state := map[string]string{
		"cmi.core.lesson_status": "completed",
		"cmi.core.score.raw":     "85",
		"cmi.core.score.min":     "100",
		"cmi.core.score.max":     "100",
	}
	m := DeriveMetrics(state, 0)
	if m.QuizScore == nil || *m.QuizScore != 85 {
		t.Fatalf("degenerate bounds should clamp the raw value, got %v", m.QuizScore)
	}
}

func TestDeriveMetricsTimeMonotonic(t *testing.T) {
	first := DeriveMetrics(map[string]string{"cmi.core.session_time": "00:10:00"}, 0)
	if first.TotalTimeSeconds != 600 {
		t.Fatalf("expected 600s, got %d", first.TotalTimeSeconds)
	}

	// A shorter session time never regresses the running total
	second := DeriveMetrics(map[string]string{"cmi.core.session_time": "00:05:00"}, first.TotalTimeSeconds)
	if second.TotalTimeSeconds != 600 {
		t.Errorf("total regressed to %d", second.TotalTimeSeconds)
	}

	third := DeriveMetrics(map[string]string{"cmi.total_time": "PT20M"}, second.TotalTimeSeconds)
	if third.TotalTimeSeconds != 1200 {
		t.Errorf("expected 1200s, got %d", third.TotalTimeSeconds)
	}
}

func TestDeriveMetricsMalformedInput(t *testing.T) {
	state := map[string]string{
		"cmi.core.lesson_status": "completed",
		"cmi.core.score.raw":     "not-a-number",
		"cmi.core.total_time":    "xx:yy:zz",
	}
	m := DeriveMetrics(state, 0)
	if m.QuizScore != nil {
		t.Error("unparseable raw score should yield nil quiz score")
	}
	if m.TotalTimeSeconds != 0 {
		t.Errorf("malformed time should parse to 0, got %d", m.TotalTimeSeconds)
	}
}
