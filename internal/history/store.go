// Package history persists bars in a DuckDB file. The store doubles as the
// download sink and as the warmup source: the download command writes through
// the BarWriter interface and the trader reads the trailing window back out
// before going live.
package history

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/rxtech-lab/argo-fleet/internal/types"
	"github.com/rxtech-lab/argo-fleet/pkg/errors"
	"github.com/rxtech-lab/argo-fleet/pkg/marketdata/writer"
)

// Store is a DuckDB-backed bar archive.
type Store struct {
	path string
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
}

// NewStore creates a store backed by the DuckDB file at path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		db:   nil,
		tx:   nil,
		stmt: nil,
	}
}

// Initialize opens the database, creates the bars table if needed, and
// prepares a transactional insert for bulk writes.
func (s *Store) Initialize() error {
	db, err := sql.Open("duckdb", s.path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryInit, "failed to open DuckDB database", err)
	}

	s.db = db

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT NOT NULL,
			time TIMESTAMP NOT NULL,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			PRIMARY KEY (symbol, time)
		)
	`)
	if err != nil {
		s.db.Close()
		s.db = nil

		return errors.Wrap(errors.ErrCodeHistoryInit, "failed to create bars table", err)
	}

	s.tx, err = s.db.Begin()
	if err != nil {
		s.db.Close()
		s.db = nil

		return errors.Wrap(errors.ErrCodeHistoryInit, "failed to begin transaction", err)
	}

	// Redelivered bars overwrite by (symbol, time)
	s.stmt, err = s.tx.Prepare(`
		INSERT OR REPLACE INTO bars (symbol, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = s.tx.Rollback()
		s.tx = nil
		s.db.Close()
		s.db = nil

		return errors.Wrap(errors.ErrCodeHistoryInit, "failed to prepare insert statement", err)
	}

	return nil
}

// Write persists a single bar inside the open transaction.
func (s *Store) Write(bar types.Bar) error {
	if s.stmt == nil {
		return errors.New(errors.ErrCodeHistoryWrite, "store not initialized")
	}

	_, err := s.stmt.Exec(
		bar.Symbol,
		bar.Time,
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.Volume,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistoryWrite, "failed to insert bar", err)
	}

	return nil
}

// Finalize commits the open transaction.
func (s *Store) Finalize() (string, error) {
	if s.tx == nil {
		return "", errors.New(errors.ErrCodeHistoryWrite, "store not initialized")
	}

	if err := s.tx.Commit(); err != nil {
		_ = s.tx.Rollback()
		s.tx = nil

		return "", errors.Wrap(errors.ErrCodeHistoryWrite, "failed to commit bars", err)
	}

	s.tx = nil

	return s.path, nil
}

// Close releases the statement, rolls back any uncommitted transaction and
// closes the database.
func (s *Store) Close() error {
	var firstErr error

	if s.stmt != nil {
		if err := s.stmt.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(errors.ErrCodeHistoryWrite, "failed to close statement", err)
		}

		s.stmt = nil
	}

	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(errors.ErrCodeHistoryWrite, "failed to close database", err)
		}

		s.db = nil
	}

	return firstErr
}

// GetOutputPath returns the database file path.
func (s *Store) GetOutputPath() string {
	return s.path
}

// LastN returns the most recent n bars for a symbol, oldest first.
func (s *Store) LastN(ctx context.Context, symbol string, n int) ([]types.Bar, error) {
	if s.db == nil {
		return nil, errors.New(errors.ErrCodeHistoryRead, "store not initialized")
	}

	query, args, err := sq.Select("symbol", "time", "open", "high", "low", "close", "volume").
		From("bars").
		Where(sq.Eq{"symbol": symbol}).
		OrderBy("time DESC").
		Limit(uint64(n)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistoryRead, "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistoryRead, "failed to query bars", err)
	}
	defer rows.Close()

	bars := make([]types.Bar, 0, n)

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Symbol, &bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeHistoryRead, "failed to scan bar", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistoryRead, "failed to iterate bars", err)
	}

	// Query returned newest first; callers want chronological order
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	return bars, nil
}

// Count returns the number of bars stored for a symbol.
func (s *Store) Count(ctx context.Context, symbol string) (int, error) {
	if s.db == nil {
		return 0, errors.New(errors.ErrCodeHistoryRead, "store not initialized")
	}

	query, args, err := sq.Select("COUNT(*)").
		From("bars").
		Where(sq.Eq{"symbol": symbol}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeHistoryRead, "failed to build query", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeHistoryRead, "failed to count bars", err)
	}

	return count, nil
}

// Ensure Store implements BarWriter.
var _ writer.BarWriter = (*Store)(nil)
