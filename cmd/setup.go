package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the config file from the template when it is missing, then initializes
// the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if r.config == nil {
		if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
			r.logger.Info("config file not found, creating from template", "path", r.configPath)
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				return err
			}
			r.writePlain("%s Created %s, fill in credentials and mappings before syncing\n", formatter.Styles.OK("✓"), r.configPath)
		}
	}

	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := r.database()
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	states, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("%s Database ready: %s (%d migrations)\n", formatter.Styles.OK("✓"), config.Database.Path, len(states))
}

// SetupStatus lists migrations and whether each has been applied. It does not migrate.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.unmigratedDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	states, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Migrations")
	for _, s := range states {
		mark := formatter.Styles.Warn("pending")
		if s.Applied {
			mark = formatter.Styles.OK("applied")
		}
		r.writePlain("%04d  %-28s %s\n", s.Version, s.Name, mark)
	}
	return nil
}

// SetupRollback reverts the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.unmigratedDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}
	return r.writePlain("%s Rolled back latest migration\n", formatter.Styles.OK("✓"))
}

// unmigratedDatabase returns the injected database or opens the configured one without migrating it.
func (r *Runner) unmigratedDatabase() (*sql.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := shared.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}
