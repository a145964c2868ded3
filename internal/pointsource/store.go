package pointsource

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/pointgrid/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrCloudNotFound is returned when a cloud ID is not in the store.
var ErrCloudNotFound = errors.New("cloud not found")

var logf = monitoring.Tagged("pointsource")

// Cloud describes one stored point cloud.
type Cloud struct {
	CloudID    string
	Name       string
	PointCount int
	CreatedAt  time.Time
}

// Store is a SQLite-backed collection of named point clouds.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite database at path and applies any
// pending migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open point store: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// MigrateUp runs all pending embedded migrations. It returns nil when the
// schema is already current.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Closing m would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version and dirty flag.
func (s *Store) MigrateVersion() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// ImportPoints stores samples as a new cloud and returns its generated ID.
// Non-finite points are rejected before anything is written.
func (s *Store) ImportPoints(ctx context.Context, name string, samples []Sample) (string, error) {
	for i, sm := range samples {
		if err := sm.Point.Validate(); err != nil {
			return "", fmt.Errorf("sample %d: %w", i, err)
		}
	}

	cloudID := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO clouds (cloud_id, name, point_count, created_unix_nanos) VALUES (?, ?, ?, ?)`,
		cloudID, name, len(samples), time.Now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("failed to insert cloud: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cloud_points (cloud_id, seq, x, y, z, label) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare point insert: %w", err)
	}
	defer stmt.Close()

	for i, sm := range samples {
		if _, err := stmt.ExecContext(ctx, cloudID, i, sm.Point.X, sm.Point.Y, sm.Point.Z, sm.Label); err != nil {
			return "", fmt.Errorf("failed to insert point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit import: %w", err)
	}
	logf("Imported cloud %s (%q): %d points", cloudID, name, len(samples))
	return cloudID, nil
}

// LoadPoints returns the samples of a cloud in their original import order.
func (s *Store) LoadPoints(ctx context.Context, cloudID string) ([]Sample, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT point_count FROM clouds WHERE cloud_id = ?`, cloudID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCloudNotFound, cloudID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up cloud: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT x, y, z, label FROM cloud_points WHERE cloud_id = ? ORDER BY seq`, cloudID)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	samples := make([]Sample, 0, count)
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.Point.X, &sm.Point.Y, &sm.Point.Z, &sm.Label); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		samples = append(samples, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate points: %w", err)
	}
	return samples, nil
}

// ListClouds returns every stored cloud, newest first.
func (s *Store) ListClouds(ctx context.Context) ([]Cloud, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cloud_id, name, point_count, created_unix_nanos FROM clouds ORDER BY created_unix_nanos DESC, cloud_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clouds: %w", err)
	}
	defer rows.Close()

	var clouds []Cloud
	for rows.Next() {
		var c Cloud
		var created int64
		if err := rows.Scan(&c.CloudID, &c.Name, &c.PointCount, &created); err != nil {
			return nil, fmt.Errorf("failed to scan cloud: %w", err)
		}
		c.CreatedAt = time.Unix(0, created)
		clouds = append(clouds, c)
	}
	return clouds, rows.Err()
}
