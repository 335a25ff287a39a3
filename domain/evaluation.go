package domain

import "context"

// ScoringStatus tells a real oracle score apart from the degraded fallback.
type ScoringStatus string

const (
	ScoringStatusScored   ScoringStatus = "scored"
	ScoringStatusFallback ScoringStatus = "fallback"
)

const (
	FallbackScore   = 5
	FallbackSummary = "AI analysis failed, manual review required."
)

// Assessment is the structured result of a scoring call.
type Assessment struct {
	Score   int
	Summary string
	Status  ScoringStatus
}

// FallbackAssessment is returned whenever the oracle cannot produce a usable answer.
func FallbackAssessment() Assessment {
	return Assessment{
		Score:   FallbackScore,
		Summary: FallbackSummary,
		Status:  ScoringStatusFallback,
	}
}

// ScoringInput carries the candidate material sent to the oracle.
type ScoringInput struct {
	RoleTitle  string
	JobIDs     []string
	WhyFit     string
	ResumeText string
}

// Scorer turns candidate material into an Assessment. Implementations never
// return an error; oracle failures degrade to FallbackAssessment.
type Scorer interface {
	Score(ctx context.Context, in ScoringInput) Assessment
}
