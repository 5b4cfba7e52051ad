package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/pkg/logger"
)

// SQL drivers understood by OpenSQL.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default DSNs used when none is configured.
const (
	defaultSQLiteDSN   = "file:admission.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	defaultPostgresDSN = "postgres://localhost:5432/admission?sslmode=disable"
)

// SQLProgramStore persists programs in SQLite or PostgreSQL. The cutoff history
// is stored as a JSON column since it is always read and written whole.
type SQLProgramStore struct {
	db     *sql.DB
	driver string
	logger logger.Logger
}

// OpenSQL opens the database, checks connectivity and ensures the schema exists.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...SQLOption) (*SQLProgramStore, error) {
	var drvName, schema string
	switch driver {
	case DriverSQLite:
		drvName, schema = "sqlite", schemaSQLite
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
	case DriverPostgres:
		drvName, schema = "pgx", schemaPostgres
		if dsn == "" {
			dsn = defaultPostgresDSN
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time avoids SQLITE_BUSY under concurrent PUTs.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	s := &SQLProgramStore{db: db, driver: driver}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("program-store")
	}
	s.logger.Info(ctx, "program store ready", logger.String("driver", driver))
	return s, nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS programs (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  institution TEXT NOT NULL,
  cutoff_history TEXT NOT NULL,
  last_verified_at TEXT,
  updated_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS programs (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  institution TEXT NOT NULL,
  cutoff_history TEXT NOT NULL,
  last_verified_at TEXT,
  updated_at BIGINT NOT NULL
);
`

func (s *SQLProgramStore) GetProgram(ctx context.Context, id string) (model.Program, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,name,institution,cutoff_history,last_verified_at FROM programs WHERE id=$1`, id)
	p, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Program{}, ErrNotFound
	}
	return p, err
}

func (s *SQLProgramStore) PutProgram(ctx context.Context, p model.Program) error {
	history := p.CutoffHistory
	if history == nil {
		history = model.Series{}
	}
	hj, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode cutoff history: %w", err)
	}
	var verified sql.NullString
	if p.LastVerifiedAt != nil {
		verified = sql.NullString{String: p.LastVerifiedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO programs (id,name,institution,cutoff_history,last_verified_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, institution=EXCLUDED.institution,
		cutoff_history=EXCLUDED.cutoff_history, last_verified_at=EXCLUDED.last_verified_at, updated_at=EXCLUDED.updated_at`,
		p.ID, p.Name, p.Institution, string(hj), verified, time.Now().Unix())
	if err != nil {
		s.logger.Error(ctx, "put program failed", logger.String("program_id", p.ID), logger.Error(err))
		return fmt.Errorf("put program %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLProgramStore) ListPrograms(ctx context.Context) ([]model.Program, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,name,institution,cutoff_history,last_verified_at FROM programs ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	out := []model.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	// Collation differs between drivers; keep the documented order.
	sortPrograms(out)
	return out, nil
}

func (s *SQLProgramStore) CountPrograms(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM programs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count programs: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLProgramStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgram(sc scanner) (model.Program, error) {
	var (
		p        model.Program
		hj       string
		verified sql.NullString
	)
	if err := sc.Scan(&p.ID, &p.Name, &p.Institution, &hj, &verified); err != nil {
		return model.Program{}, err
	}
	if err := json.Unmarshal([]byte(hj), &p.CutoffHistory); err != nil {
		return model.Program{}, fmt.Errorf("decode cutoff history of %s: %w", p.ID, err)
	}
	if verified.Valid {
		t, err := time.Parse(time.RFC3339Nano, verified.String)
		if err != nil {
			return model.Program{}, fmt.Errorf("decode last_verified_at of %s: %w", p.ID, err)
		}
		p.LastVerifiedAt = &t
	}
	return p, nil
}
