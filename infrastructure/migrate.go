package infrastructure

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql" // mysql:// migration driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"referral-intake/domain"
)

//go:embed migrations/mysql/*.sql
var mysqlMigrations embed.FS

// Migrate brings the schema up to date. It is an explicit operator step and
// is never run by the server on start.
func Migrate(cfg DatabaseConfig, db *gorm.DB, logger *zap.Logger) error {
	switch cfg.Driver {
	case DriverMySQL:
		m, err := newMySQLMigrator(cfg.DSN)
		if err != nil {
			return err
		}
		defer closeMigrator(m, logger)
		return migrateUp(m, logger)
	case DriverSQLite:
		if err := db.AutoMigrate(&domain.Referral{}); err != nil {
			return fmt.Errorf("failed to auto-migrate sqlite schema: %w", err)
		}
		logger.Info("SQLite schema up to date")
		return nil
	}
	return fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// ResetSchema drops and recreates the referrals table. All data is lost.
func ResetSchema(cfg DatabaseConfig, db *gorm.DB, logger *zap.Logger) error {
	switch cfg.Driver {
	case DriverMySQL:
		m, err := newMySQLMigrator(cfg.DSN)
		if err != nil {
			return err
		}
		defer closeMigrator(m, logger)
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		logger.Warn("Dropped referral schema")
		return migrateUp(m, logger)
	case DriverSQLite:
		if err := db.Migrator().DropTable(&domain.Referral{}); err != nil {
			return fmt.Errorf("failed to drop referrals: %w", err)
		}
		logger.Warn("Dropped referral schema")
		return Migrate(cfg, db, logger)
	}
	return fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func newMySQLMigrator(dsn string) (*migrate.Migrate, error) {
	normalized, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(mysqlMigrations, "migrations/mysql")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "mysql://"+normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

func migrateUp(m *migrate.Migrate, logger *zap.Logger) error {
	err := m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Applied migrations successfully", zap.Uint("version", version))
	return nil
}

func closeMigrator(m *migrate.Migrate, logger *zap.Logger) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("Failed to close migration source", zap.Error(srcErr))
	}
	if dbErr != nil {
		logger.Warn("Failed to close migration database", zap.Error(dbErr))
	}
}
