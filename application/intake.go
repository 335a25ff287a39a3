package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"referral-intake/domain"
)

// Submission outcomes reported to the Recorder.
const (
	OutcomeAccepted = "accepted"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Recorder receives pipeline and review counters. *infrastructure.Metrics satisfies it.
type Recorder interface {
	ObserveSubmission(outcome string)
	ObserveStatusChange(to domain.Status)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSubmission(string)           {}
func (nopRecorder) ObserveStatusChange(domain.Status) {}

// IntakePipeline turns a submission into a stored, scored referral.
type IntakePipeline interface {
	Submit(ctx context.Context, sub domain.Submission) (*domain.Referral, error)
}

// IntakeDeps collects the collaborators of the intake pipeline. Extractor,
// Publisher and Recorder are optional.
type IntakeDeps struct {
	Repo      domain.ReferralRepository
	Store     domain.ResumeStore
	Extractor domain.ResumeExtractor
	Scorer    domain.Scorer
	Publisher domain.EventPublisher
	Recorder  Recorder
}

type intakePipeline struct {
	deps   IntakeDeps
	logger *zap.Logger
}

var _ IntakePipeline = (*intakePipeline)(nil)

func NewIntakePipeline(deps IntakeDeps, logger *zap.Logger) IntakePipeline {
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &intakePipeline{
		deps:   deps,
		logger: logger.Named("intake"),
	}
}

// PlaceholderResumeText is used whenever no text can be extracted from the upload.
func PlaceholderResumeText(candidateName string) string {
	return fmt.Sprintf("Simulated resume content for %s", candidateName)
}

// Submit validates, archives, extracts, scores and persists one submission.
// It returns a *domain.ValidationError for rejected input and a
// *domain.StorageError when archival or persistence fails. Oracle failures
// never surface here; the stored referral carries the fallback assessment.
func (p *intakePipeline) Submit(ctx context.Context, sub domain.Submission) (*domain.Referral, error) {
	if err := sub.Validate(); err != nil {
		p.deps.Recorder.ObserveSubmission(OutcomeInvalid)
		p.logger.Info("Rejected referral submission", zap.Error(err))
		return nil, err
	}

	resumePath, err := p.deps.Store.Save(ctx, *sub.Resume)
	if err != nil {
		p.deps.Recorder.ObserveSubmission(OutcomeError)
		p.logger.Error("Failed to archive resume",
			zap.String("filename", sub.Resume.Filename),
			zap.Error(err))
		return nil, asStorageError("save resume", err)
	}

	resumeText := p.resumeText(ctx, sub)

	assessment := p.deps.Scorer.Score(ctx, domain.ScoringInput{
		RoleTitle:  sub.RoleTitle,
		JobIDs:     sub.JobIDs,
		WhyFit:     sub.WhyFit,
		ResumeText: resumeText,
	})

	ref := domain.NewReferral(sub, resumeText, resumePath, assessment)
	if err := p.deps.Repo.Insert(ctx, ref); err != nil {
		p.deps.Recorder.ObserveSubmission(OutcomeError)
		p.logger.Error("Failed to store referral",
			zap.String("candidate_email", sub.CandidateEmail),
			zap.Error(err))
		return nil, asStorageError("insert", err)
	}

	p.deps.Recorder.ObserveSubmission(OutcomeAccepted)
	p.logger.Info("Referral accepted",
		zap.Uint("referral_id", ref.ID),
		zap.String("role_title", ref.RoleTitle),
		zap.Int("fit_score", assessment.Score),
		zap.String("scoring_status", string(assessment.Status)))

	publish(ctx, p.deps.Publisher, domain.NewReferralEvent(domain.EventSubmitted, ref, ""), p.logger)
	return ref, nil
}

func (p *intakePipeline) resumeText(ctx context.Context, sub domain.Submission) string {
	placeholder := PlaceholderResumeText(sub.CandidateName)
	if p.deps.Extractor == nil {
		return placeholder
	}

	text, err := p.deps.Extractor.Extract(ctx, *sub.Resume)
	if err != nil {
		p.logger.Warn("Resume extraction failed, using placeholder text",
			zap.String("filename", sub.Resume.Filename),
			zap.Error(err))
		return placeholder
	}
	if text == "" {
		return placeholder
	}
	return text
}

func asStorageError(op string, err error) error {
	var sErr *domain.StorageError
	if errors.As(err, &sErr) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}

// publish delivers ev when a publisher is configured. Failures are logged only.
func publish(ctx context.Context, pub domain.EventPublisher, ev domain.ReferralEvent, logger *zap.Logger) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish referral event",
			zap.String("type", string(ev.Type)),
			zap.Uint("referral_id", ev.ReferralID),
			zap.Error(err))
	}
}
