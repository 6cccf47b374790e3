package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
)

// MigrationsUp applies all pending migrations from migrationsDir.
// A database with no pending migrations is not an error.
func MigrationsUp(params NewDBPoolParams, migrationsDir string) error {
	sqlDB, err := sql.Open("pgx", params.ConnString())
	if err != nil {
		return fmt.Errorf("open migrations db conn: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Warnf("close migrations db conn: %s", err)
		}
	}()

	driver, err := migratepgx.WithInstance(sqlDB, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create migrations driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationsDir,
		params.DBName, driver,
	)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debugln("migrations: no change")
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	log.Infoln("migrations applied")
	return nil
}
