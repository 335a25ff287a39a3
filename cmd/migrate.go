package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"referral-intake/infrastructure"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the referrals schema",
		Long: `Schema changes only happen through these commands; serve never creates,
alters or drops tables.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrateUp,
	})

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the referrals table (deletes all referrals)",
		Args:  cobra.NoArgs,
		RunE:  runMigrateReset,
	}
	reset.Flags().Bool("yes", false, "confirm that every stored referral will be deleted")
	cmd.AddCommand(reset)

	return cmd
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := openDatabase(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer infrastructure.CloseDatabase(db) //nolint:errcheck

	if err := infrastructure.Migrate(cfg.Database, db, logger); err != nil {
		return err
	}
	logger.Info("Schema is up to date", zap.String("driver", cfg.Database.Driver))
	return nil
}

func runMigrateReset(cmd *cobra.Command, args []string) error {
	confirmed, _ := cmd.Flags().GetBool("yes")
	if !confirmed {
		return errors.New("refusing to reset without --yes")
	}

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := openDatabase(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer infrastructure.CloseDatabase(db) //nolint:errcheck

	if err := infrastructure.ResetSchema(cfg.Database, db, logger); err != nil {
		return err
	}
	logger.Warn("Referrals table recreated, all previous referrals deleted", zap.String("driver", cfg.Database.Driver))
	return nil
}
