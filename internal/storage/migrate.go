package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var schemaFiles embed.FS

// schema wraps a migrate instance bound to its own connection; the sqlite
// driver closes the handle it is given, so it never shares the repository's.
type schema struct {
	m *migrate.Migrate
}

func openSchema(dbPath string) (*schema, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open schema connection: %w", err)
	}

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite migration driver: %w", err)
	}

	src, err := iofs.New(schemaFiles, "migrations")
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return &schema{m: m}, nil
}

func (s *schema) close() {
	s.m.Close()
}

// version returns the applied version, or 0 for a fresh database.
func (s *schema) version() (uint, error) {
	v, dirty, err := s.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return v, fmt.Errorf("schema version %d is dirty", v)
	}
	return v, nil
}

// RunMigrations brings dbPath up to the latest schema and returns the
// resulting version.
func RunMigrations(dbPath string) (uint, error) {
	s, err := openSchema(dbPath)
	if err != nil {
		return 0, err
	}
	defer s.close()

	if err := s.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	return s.version()
}
