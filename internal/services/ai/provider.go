package ai

import (
	"context"
	"time"

	"stashbot/internal/models"
)

// ClassificationResult is the validated output of the Classification
// Oracle for one message.
type ClassificationResult struct {
	Kind             models.Kind
	Title            string
	Details          string
	Deadline         *time.Time
	Tags             []string
	EstimatedMinutes *int
}

// AnalysisResult is the output of the Analysis Oracle for one task.
// Degraded is set when the oracle was unreachable or unparseable and
// the neutral defaults were used instead.
type AnalysisResult struct {
	Importance int
	Urgency    int
	Reason     string
	Degraded   bool
}

// AnalysisRequest describes the task handed to the Analysis Oracle
type AnalysisRequest struct {
	Title    string
	Details  string
	Deadline *time.Time
}

// Classifier turns raw text into a classified result. Oracle output is
// untrusted: implementations must validate the kind and soft-correct
// past deadlines before returning.
type Classifier interface {
	Classify(ctx context.Context, text string) (*ClassificationResult, error)
}

// Analyzer scores a task. It never fails: on oracle errors it returns
// the neutral defaults with Degraded set, so every task ends up with a
// priority and stays visible to suggestions.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) AnalysisResult
}

const (
	// DefaultImportance is the neutral midpoint used when analysis degrades
	DefaultImportance = 3
	// DefaultUrgency is the neutral midpoint used when analysis degrades
	DefaultUrgency = 3
	// FallbackReason marks results produced without a working oracle
	FallbackReason = "analysis_fallback"
)

// DefaultAnalysis returns the degraded neutral-midpoint result
func DefaultAnalysis() AnalysisResult {
	return AnalysisResult{
		Importance: DefaultImportance,
		Urgency:    DefaultUrgency,
		Reason:     FallbackReason,
		Degraded:   true,
	}
}
