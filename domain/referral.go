package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the reviewer decision on a referral.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus maps a raw status string onto a known Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// CanTransitionTo reports whether a reviewer may move a referral from s to next.
// Moving to the current status is not a transition and is handled by callers.
// A decided referral may only be revised (reopened or flipped) when allowReopen is set.
func (s Status) CanTransitionTo(next Status, allowReopen bool) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return allowReopen && (next == StatusPending || next == StatusRejected)
	case StatusRejected:
		return allowReopen && (next == StatusPending || next == StatusApproved)
	}
	return false
}

// RelationshipContext is the submitter's declared relationship to the candidate.
type RelationshipContext string

const (
	ContextFormerColleague RelationshipContext = "Former Colleague"
	ContextUniversity      RelationshipContext = "University / Alumni"
	ContextColdReachOut    RelationshipContext = "Cold Reach Out"
	ContextFriendFamily    RelationshipContext = "Friend / Family"
	ContextOther           RelationshipContext = "Other"
)

// RelationshipContexts lists the accepted contexts in form order.
var RelationshipContexts = []RelationshipContext{
	ContextFormerColleague,
	ContextUniversity,
	ContextColdReachOut,
	ContextFriendFamily,
	ContextOther,
}

// Valid reports whether c is one of RelationshipContexts.
func (c RelationshipContext) Valid() bool {
	for _, known := range RelationshipContexts {
		if c == known {
			return true
		}
	}
	return false
}

// Referral is one candidate submission plus its derived score and review status.
type Referral struct {
	ID             uint                `gorm:"primaryKey;<-:create" json:"id"`
	CandidateName  string              `gorm:"size:255;not null" json:"candidate_name"`
	CandidateEmail string              `gorm:"size:255;not null" json:"candidate_email"`
	RoleTitle      string              `gorm:"size:255;not null" json:"role_title"`
	JobIDs         []string            `gorm:"column:job_ids;type:text;not null;serializer:json" json:"job_ids"`
	WhyFit         string              `gorm:"type:text;not null" json:"why_fit"`
	Context        RelationshipContext `gorm:"size:64;not null" json:"context"`
	ResumeText     *string             `gorm:"type:text" json:"resume_text"`
	ResumePath     *string             `gorm:"size:512" json:"-"` // server-side only
	FitScore       *int                `gorm:"index" json:"fit_score"`
	FitSummary     *string             `gorm:"type:text" json:"fit_summary"`
	ScoringStatus  ScoringStatus       `gorm:"size:16;not null;default:'scored'" json:"scoring_status"`
	Status         Status              `gorm:"size:16;not null;default:'pending'" json:"status"`
	CreatedAt      time.Time           `gorm:"<-:create;not null" json:"created_at"`
}

// TableName pins the table name used by both drivers.
func (Referral) TableName() string {
	return "referrals"
}

// NewReferral builds a pending referral from a validated submission and its assessment.
func NewReferral(sub Submission, resumeText string, resumePath string, a Assessment) *Referral {
	ref := &Referral{
		CandidateName:  sub.CandidateName,
		CandidateEmail: sub.CandidateEmail,
		RoleTitle:      sub.RoleTitle,
		JobIDs:         append([]string(nil), sub.JobIDs...),
		WhyFit:         sub.WhyFit,
		Context:        sub.Context,
		ResumeText:     &resumeText,
		FitScore:       &a.Score,
		FitSummary:     &a.Summary,
		ScoringStatus:  a.Status,
		Status:         StatusPending,
	}
	if resumePath != "" {
		ref.ResumePath = &resumePath
	}
	return ref
}

// MissingFields returns the required columns that are empty.
func (r *Referral) MissingFields() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("candidate_name", r.CandidateName)
	check("candidate_email", r.CandidateEmail)
	check("role_title", r.RoleTitle)
	check("why_fit", r.WhyFit)
	check("context", string(r.Context))
	if !HasIdentifier(r.JobIDs) {
		missing = append(missing, "job_ids")
	}
	if r.FitScore == nil {
		missing = append(missing, "fit_score")
	}
	if r.FitSummary == nil {
		missing = append(missing, "fit_summary")
	}
	return missing
}
