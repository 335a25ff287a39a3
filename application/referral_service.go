package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"referral-intake/domain"
)

// ReferralService backs the reviewer dashboard.
type ReferralService interface {
	List(ctx context.Context) ([]domain.Referral, error)
	Get(ctx context.Context, id uint) (*domain.Referral, error)
	// SetStatus applies a reviewer decision and returns the updated referral.
	SetStatus(ctx context.Context, id uint, status string) (*domain.Referral, error)
}

type referralService struct {
	repo        domain.ReferralRepository
	publisher   domain.EventPublisher
	recorder    Recorder
	allowReopen bool
	logger      *zap.Logger
}

var _ ReferralService = (*referralService)(nil)

func NewReferralService(repo domain.ReferralRepository, publisher domain.EventPublisher, recorder Recorder, allowReopen bool, logger *zap.Logger) ReferralService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &referralService{
		repo:        repo,
		publisher:   publisher,
		recorder:    recorder,
		allowReopen: allowReopen,
		logger:      logger.Named("referral-service"),
	}
}

func (s *referralService) List(ctx context.Context) ([]domain.Referral, error) {
	refs, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list referrals", zap.Error(err))
		return nil, err
	}
	return refs, nil
}

func (s *referralService) Get(ctx context.Context, id uint) (*domain.Referral, error) {
	return s.repo.Get(ctx, id)
}

func (s *referralService) SetStatus(ctx context.Context, id uint, raw string) (*domain.Referral, error) {
	next, err := domain.ParseStatus(raw)
	if err != nil {
		return nil, err
	}

	ref, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Re-sending the current status is an acknowledgement, not a transition.
	if ref.Status == next {
		return ref, nil
	}
	if !ref.Status.CanTransitionTo(next, s.allowReopen) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, ref.Status, next)
	}

	if err := s.repo.UpdateStatus(ctx, id, ref.Status, next); err != nil {
		s.logger.Warn("Status update not applied",
			zap.Uint("referral_id", id),
			zap.String("from", string(ref.Status)),
			zap.String("to", string(next)),
			zap.Error(err))
		return nil, err
	}

	previous := ref.Status
	ref.Status = next
	s.recorder.ObserveStatusChange(next)
	s.logger.Info("Referral status changed",
		zap.Uint("referral_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(next)))

	publish(ctx, s.publisher, domain.NewReferralEvent(domain.EventStatusChanged, ref, previous), s.logger)
	return ref, nil
}
