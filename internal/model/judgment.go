package model

import "time"

// StageID identifies one of the success judge's seven stages (0 through 6).
type StageID int

const (
	StageProhibition   StageID = 0
	StageEarlyFailure  StageID = 0 // 0.5 in the spec's numbering; shares the pre-submit slot
	StageURLChange     StageID = 1
	StageSuccessMsg    StageID = 2
	StageFormGone      StageID = 3
	StageSiblings      StageID = 4
	StageErrorProbe    StageID = 5
	StageFinalFallback StageID = 6
)

// StageTrace records one stage's execution for the judgment trace.
type StageTrace struct {
	Stage            StageID
	Name             string
	Start, End       time.Time
	Result           string // "success" | "failure" | "continue" | "skipped"
	Confidence       float64
	MatchedPatterns  []string
	AnalyzedElements int
	Error            string
}

// Duration returns the stage's wall-clock execution time.
func (s StageTrace) Duration() time.Duration {
	if s.End.IsZero() || s.Start.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// Verdict is the final success/failure tuple the judge returns.
type Verdict struct {
	Success    bool
	Stage      StageID
	Confidence float64
	Reason     string
}

// JudgmentTrace is the full ordered stage history plus the final verdict,
// attached to every submission record regardless of outcome.
type JudgmentTrace struct {
	Stages  []StageTrace
	Verdict Verdict
	Metrics map[string]float64
}

// Add appends a stage trace.
func (t *JudgmentTrace) Add(s StageTrace) {
	t.Stages = append(t.Stages, s)
}
