package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bist-returns/internal/model"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
        run_id       TEXT PRIMARY KEY,
        as_of        TIMESTAMPTZ NOT NULL,
        source       TEXT NOT NULL,
        record_count INTEGER NOT NULL,
        failed_count INTEGER NOT NULL DEFAULT 0,
        created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
    );`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS run_records (
        run_id        TEXT NOT NULL REFERENCES runs (run_id) ON DELETE CASCADE,
        symbol        TEXT NOT NULL,
        name          TEXT NOT NULL DEFAULT '',
        current_price NUMERIC,
        ret_daily     DOUBLE PRECISION,
        ret_30d       DOUBLE PRECISION,
        ret_90d       DOUBLE PRECISION,
        ret_180d      DOUBLE PRECISION,
        ret_360d      DOUBLE PRECISION,
        last_updated  TIMESTAMPTZ NOT NULL,
        source        TEXT NOT NULL,
        PRIMARY KEY (run_id, symbol)
    );`,
}

const (
	insertRunSQL = `INSERT INTO runs (
        run_id,
        as_of,
        source,
        record_count,
        failed_count
    ) VALUES (
        $1,$2,$3,$4,$5
    );`

	insertRunRecordSQL = `INSERT INTO run_records (
        run_id,
        symbol,
        name,
        current_price,
        ret_daily,
        ret_30d,
        ret_90d,
        ret_180d,
        ret_360d,
        last_updated,
        source
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    );`

	listRecentRunsSQL = `SELECT
        run_id,
        as_of,
        source,
        record_count,
        failed_count,
        created_at
    FROM runs
    ORDER BY created_at DESC
    LIMIT $1;`

	listRunRecordsSQL = `SELECT
        symbol,
        name,
        current_price,
        ret_daily,
        ret_30d,
        ret_90d,
        ret_180d,
        ret_360d,
        last_updated,
        source
    FROM run_records
    WHERE run_id = $1
    ORDER BY symbol;`

	countRunsSQL = `SELECT COUNT(*) FROM runs;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// RunStore defines operations for run archive persistence.
type RunStore interface {
	InsertRun(ctx context.Context, run RunRecord, records []model.StockRecord) error
	ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	ListRunRecords(ctx context.Context, runID string) ([]model.StockRecord, error)
	CountRuns(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store archives published runs and their records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the archive tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	for _, stmt := range schemaStatements {
		if _, execErr := pool.Exec(ctx, stmt); execErr != nil {
			return fmt.Errorf("ensure schema: %w", execErr)
		}
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertRun archives a run header and its published records in one transaction.
func (s *Store) InsertRun(ctx context.Context, run RunRecord, records []model.StockRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin run insert: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, execErr := tx.Exec(ctx, insertRunSQL,
		run.RunID,
		run.AsOf,
		run.Source,
		run.RecordCount,
		run.FailedCount,
	); execErr != nil {
		return fmt.Errorf("insert run: %w", execErr)
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		var price interface{}
		if rec.CurrentPrice != nil {
			price = rec.CurrentPrice.String()
		}
		batch.Queue(insertRunRecordSQL,
			run.RunID,
			string(rec.Symbol),
			rec.Name,
			price,
			rec.Returns.Daily,
			rec.Returns.D30,
			rec.Returns.D90,
			rec.Returns.D180,
			rec.Returns.D360,
			rec.LastUpdated,
			rec.Source,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range records {
		if _, execErr := br.Exec(); execErr != nil {
			br.Close()
			return fmt.Errorf("insert run record: %w", execErr)
		}
	}
	if closeErr := br.Close(); closeErr != nil {
		return fmt.Errorf("flush run records: %w", closeErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit run insert: %w", commitErr)
	}
	return nil
}

// ListRecentRuns lists the most recent runs ordered by descending creation time.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0, limit)
	for rows.Next() {
		var run RunRecord
		if scanErr := rows.Scan(
			&run.RunID,
			&run.AsOf,
			&run.Source,
			&run.RecordCount,
			&run.FailedCount,
			&run.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// ListRunRecords lists one run's published records ordered by symbol.
func (s *Store) ListRunRecords(ctx context.Context, runID string) ([]model.StockRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRunRecordsSQL, runID)
	if queryErr != nil {
		return nil, fmt.Errorf("list run records: %w", queryErr)
	}
	defer rows.Close()

	records := make([]model.StockRecord, 0)
	for rows.Next() {
		rec, scanErr := scanStoredRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// CountRuns counts archived runs.
func (s *Store) CountRuns(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRunsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count runs: %w", scanErr)
	}
	return count, nil
}

func scanStoredRecord(rows pgx.Rows) (model.StockRecord, error) {
	var (
		symbol      string
		name        string
		price       sql.NullString
		daily       sql.NullFloat64
		d30         sql.NullFloat64
		d90         sql.NullFloat64
		d180        sql.NullFloat64
		d360        sql.NullFloat64
		lastUpdated time.Time
		source      string
	)

	if err := rows.Scan(
		&symbol,
		&name,
		&price,
		&daily,
		&d30,
		&d90,
		&d180,
		&d360,
		&lastUpdated,
		&source,
	); err != nil {
		return model.StockRecord{}, err
	}

	rec := model.StockRecord{
		Symbol:      model.Symbol(symbol),
		Name:        name,
		LastUpdated: lastUpdated,
		Source:      source,
	}

	if price.Valid {
		parsed, err := decimal.NewFromString(price.String)
		if err != nil {
			return model.StockRecord{}, fmt.Errorf("parse current price: %w", err)
		}
		rec.CurrentPrice = &parsed
	}

	rec.Returns.Daily = nullableFloat(daily)
	rec.Returns.D30 = nullableFloat(d30)
	rec.Returns.D90 = nullableFloat(d90)
	rec.Returns.D180 = nullableFloat(d180)
	rec.Returns.D360 = nullableFloat(d360)

	return rec, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	value := v.Float64
	return &value
}
