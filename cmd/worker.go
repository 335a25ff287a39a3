package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"referral-intake/domain"
	"referral-intake/infrastructure"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume referral events and notify reviewers",
	Long: `Reads referral.submitted and referral.status_changed events from the
configured RabbitMQ queue and emits one reviewer notification per event.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if !cfg.Events.Enabled {
		return errors.New("events are disabled; set EVENTS_ENABLED=true to run the worker")
	}

	rmq, err := infrastructure.NewRabbitMQ(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer rmq.Close() //nolint:errcheck

	notify := logger.Named("notify")
	logger.Info("Worker consuming", zap.String("queue", cfg.Events.Queue))
	return rmq.Consume(cmd.Context(), func(_ context.Context, ev domain.ReferralEvent) error {
		fields := []zap.Field{
			zap.Uint("referral_id", ev.ReferralID),
			zap.String("candidate_name", ev.CandidateName),
			zap.String("role_title", ev.RoleTitle),
			zap.String("status", string(ev.Status)),
		}
		switch ev.Type {
		case domain.EventSubmitted:
			notify.Info("New referral awaiting review",
				append(fields,
					zap.Int("fit_score", ev.FitScore),
					zap.String("scoring_status", string(ev.ScoringStatus)))...)
			if ev.ScoringStatus == domain.ScoringStatusFallback {
				notify.Warn("Referral needs manual scoring", zap.Uint("referral_id", ev.ReferralID))
			}
		case domain.EventStatusChanged:
			notify.Info("Referral status changed",
				append(fields, zap.String("previous_status", string(ev.PreviousStatus)))...)
		default:
			notify.Debug("Ignoring unknown event type", zap.String("type", string(ev.Type)))
		}
		return nil
	})
}
