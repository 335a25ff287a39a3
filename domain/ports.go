package domain

import (
	"context"
	"time"
)

// ReferralRepository is the durable store of referrals.
type ReferralRepository interface {
	// Insert assigns ID and CreatedAt on ref.
	Insert(ctx context.Context, ref *Referral) error
	// ListAll orders by fit score descending, then by id.
	ListAll(ctx context.Context) ([]Referral, error)
	Get(ctx context.Context, id uint) (*Referral, error)
	// UpdateStatus writes to only if the stored status is still from.
	UpdateStatus(ctx context.Context, id uint, from, to Status) error
}

// ResumeExtractor derives plain text from an uploaded resume.
type ResumeExtractor interface {
	Extract(ctx context.Context, file ResumeFile) (string, error)
}

// ResumeStore keeps the uploaded resume blob and returns where it was written.
type ResumeStore interface {
	Save(ctx context.Context, file ResumeFile) (string, error)
}

// EventType names a referral lifecycle event.
type EventType string

const (
	EventSubmitted     EventType = "referral.submitted"
	EventStatusChanged EventType = "referral.status_changed"
)

// ReferralEvent is published after a referral is stored or its status changes.
type ReferralEvent struct {
	Type           EventType     `json:"type"`
	ReferralID     uint          `json:"referral_id"`
	CandidateName  string        `json:"candidate_name"`
	RoleTitle      string        `json:"role_title"`
	Status         Status        `json:"status"`
	PreviousStatus Status        `json:"previous_status,omitempty"`
	FitScore       int           `json:"fit_score"`
	ScoringStatus  ScoringStatus `json:"scoring_status"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// NewReferralEvent snapshots ref into an event of the given type.
func NewReferralEvent(t EventType, ref *Referral, previous Status) ReferralEvent {
	ev := ReferralEvent{
		Type:           t,
		ReferralID:     ref.ID,
		CandidateName:  ref.CandidateName,
		RoleTitle:      ref.RoleTitle,
		Status:         ref.Status,
		PreviousStatus: previous,
		ScoringStatus:  ref.ScoringStatus,
		OccurredAt:     time.Now().UTC(),
	}
	if ref.FitScore != nil {
		ev.FitScore = *ref.FitScore
	}
	return ev
}

// EventPublisher delivers referral events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev ReferralEvent) error
}
