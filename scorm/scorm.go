// Package scorm normalizes raw SCORM runtime key/value state into canonical
// completion, score and elapsed-time metrics. Both the SCORM 1.2 (cmi.core.*)
// and SCORM 2004 vocabularies are supported. Everything here is pure and
// best-effort: malformed input degrades to defaults, it never errors.
package scorm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Completion and success status values
const (
	CompletionCompleted  = "completed"
	CompletionIncomplete = "incomplete"
	StatusUnknown        = "unknown"
	SuccessPassed        = "passed"
	SuccessFailed        = "failed"
)

// Metrics is the canonical view of one enrollment's runtime state
type Metrics struct {
	CompletionStatus string // completed, incomplete, unknown
	SuccessStatus    string // passed, failed, unknown
	IsCompleted      bool
	IsSuccessful     bool
	RawScore         *float64
	ScaledScore      *float64
	QuizScore        *int // 0-100, nil until the session is completed or passed
	TotalTimeSeconds int64
}

// SanitizeState filters a raw commit payload down to usable cmi.* entries.
// Non-string values are stringified, empty values dropped.
func SanitizeState(raw map[string]interface{}) map[string]string {
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		if !strings.HasPrefix(key, "cmi.") {
			continue
		}
		str, ok := value.(string)
		if !ok {
			if value == nil {
				continue
			}
			str = fmt.Sprintf("%v", value)
		}
		if str == "" {
			continue
		}
		out[key] = str
	}
	return out
}

// MergeState unions a sanitized commit into the previous state, last write
// wins per key. The previous map is not mutated.
func MergeState(previous map[string]string, commit map[string]string) map[string]string {
	merged := make(map[string]string, len(previous)+len(commit))
	for k, v := range previous {
		merged[k] = v
	}
	for k, v := range commit {
		merged[k] = v
	}
	return merged
}

// DeriveMetrics computes canonical metrics from merged cmi state.
// prevTotalSeconds is the elapsed time recorded by earlier commits; the
// derived total never regresses below it.
func DeriveMetrics(state map[string]string, prevTotalSeconds int64) Metrics {
	m := Metrics{
		CompletionStatus: StatusUnknown,
		SuccessStatus:    StatusUnknown,
	}

	// SCORM 1.2 lesson_status folds completion and success into one field and
	// is authoritative when present.
	if legacy, ok := state["cmi.core.lesson_status"]; ok {
		switch strings.ToLower(strings.TrimSpace(legacy)) {
		case "completed":
			m.CompletionStatus = CompletionCompleted
		case "passed":
			m.CompletionStatus = CompletionCompleted
			m.SuccessStatus = SuccessPassed
		case "failed":
			m.CompletionStatus = CompletionCompleted
			m.SuccessStatus = SuccessFailed
		case "incomplete", "browsed", "not attempted":
			m.CompletionStatus = CompletionIncomplete
		}
	} else {
		if completion, ok := state["cmi.completion_status"]; ok {
			switch strings.ToLower(strings.TrimSpace(completion)) {
			case "completed":
				m.CompletionStatus = CompletionCompleted
			case "incomplete", "not attempted":
				m.CompletionStatus = CompletionIncomplete
			}
		}
		if success, ok := state["cmi.success_status"]; ok {
			switch strings.ToLower(strings.TrimSpace(success)) {
			case "passed":
				m.SuccessStatus = SuccessPassed
			case "failed":
				m.SuccessStatus = SuccessFailed
			}
		}
		// A definite pass/fail implies the attempt ran to completion even when
		// the player never set completion_status.
		if m.SuccessStatus != StatusUnknown && m.CompletionStatus == StatusUnknown {
			m.CompletionStatus = CompletionCompleted
		}
	}

	m.IsCompleted = m.CompletionStatus == CompletionCompleted
	m.IsSuccessful = m.SuccessStatus == SuccessPassed

	m.RawScore, m.ScaledScore, m.QuizScore = deriveScore(state)
	if !m.IsCompleted && !m.IsSuccessful {
		// Score is only meaningful for a finished attempt
		m.QuizScore = nil
	}

	elapsed := maxFloat(
		parseTimeValue(state["cmi.core.total_time"]),
		parseTimeValue(state["cmi.total_time"]),
	)
	session := maxFloat(
		parseTimeValue(state["cmi.core.session_time"]),
		parseTimeValue(state["cmi.session_time"]),
	)
	total := int64(math.Round(math.Max(elapsed, session)))
	if total < prevTotalSeconds {
		total = prevTotalSeconds
	}
	m.TotalTimeSeconds = total

	return m
}

// deriveScore resolves the quiz score: SCORM 1.2 raw/min/max first, then the
// 2004 triple, then the 2004 pre-scaled [0,1] score.
func deriveScore(state map[string]string) (raw *float64, scaled *float64, normalized *int) {
	if r, ok := parseFloat(state["cmi.core.score.raw"]); ok {
		raw = &r
		n := normalizeScore(r, state["cmi.core.score.min"], state["cmi.core.score.max"])
		normalized = &n
		return
	}
	if r, ok := parseFloat(state["cmi.score.raw"]); ok {
		raw = &r
		n := normalizeScore(r, state["cmi.score.min"], state["cmi.score.max"])
		normalized = &n
		return
	}
	if s, ok := parseFloat(state["cmi.score.scaled"]); ok {
		scaled = &s
		n := int(math.Round(clamp(s, 0, 1) * 100))
		normalized = &n
		return
	}
	return
}

// normalizeScore linear-normalizes raw into [0,100] against min/max strings.
// Degenerate bounds fall back to clamping the raw value directly.
func normalizeScore(raw float64, minStr, maxStr string) int {
	min, okMin := parseFloat(minStr)
	max, okMax := parseFloat(maxStr)
	if !okMin {
		min = 0
	}
	if !okMax {
		max = 100
	}
	if max <= min {
		return int(math.Round(clamp(raw, 0, 100)))
	}
	pct := (raw - min) / (max - min) * 100
	return int(math.Round(clamp(pct, 0, 100)))
}

var legacyTimePattern = regexp.MustCompile(`^(\d{1,4}):(\d{1,2}):(\d{1,2})(\.\d{1,2})?$`)

// ParseLegacyTime parses a SCORM 1.2 HH:MM:SS[.ss] timespan into seconds.
// Malformed strings parse to 0.
func ParseLegacyTime(value string) float64 {
	match := legacyTimePattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return 0
	}
	hours, _ := strconv.ParseFloat(match[1], 64)
	minutes, _ := strconv.ParseFloat(match[2], 64)
	seconds, _ := strconv.ParseFloat(match[3], 64)
	if match[4] != "" {
		frac, _ := strconv.ParseFloat("0"+match[4], 64)
		seconds += frac
	}
	return hours*3600 + minutes*60 + seconds
}

var isoDurationPattern = regexp.MustCompile(
	`^P(?:(\d+(?:\.\d+)?)Y)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)D)?` +
		`(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration parses a SCORM 2004 timeinterval (ISO-8601 duration,
// e.g. PT1H2M3S or P1DT1H) into seconds. Malformed strings parse to 0.
func ParseISODuration(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "P" || value == "PT" {
		return 0
	}
	match := isoDurationPattern.FindStringSubmatch(value)
	if match == nil {
		return 0
	}
	part := func(i int) float64 {
		if match[i] == "" {
			return 0
		}
		f, _ := strconv.ParseFloat(match[i], 64)
		return f
	}
	years := part(1)
	months := part(2)
	days := part(3)
	hours := part(4)
	minutes := part(5)
	seconds := part(6)
	return years*365*86400 + months*30*86400 + days*86400 + hours*3600 + minutes*60 + seconds
}

// parseTimeValue dispatches between the two timespan formats
func parseTimeValue(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if strings.HasPrefix(value, "P") {
		return ParseISODuration(value)
	}
	return ParseLegacyTime(value)
}

func parseFloat(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
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

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
