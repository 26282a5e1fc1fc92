package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/rs/zerolog/log"
)

const duckDBMaxRetries = 3

const duckDBSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key             VARCHAR NOT NULL,
	request_kind    VARCHAR NOT NULL,
	request         VARCHAR NOT NULL,
	result_payload  VARCHAR NOT NULL,
	source_provider VARCHAR NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	expires_at      TIMESTAMP NOT NULL,
	hit_count       BIGINT NOT NULL DEFAULT 0,
	last_hit_at     TIMESTAMP,
	PRIMARY KEY (key, request_kind)
);
CREATE TABLE IF NOT EXISTS cache_usage (
	bucket       TIMESTAMP PRIMARY KEY,
	hits         BIGINT NOT NULL DEFAULT 0,
	misses       BIGINT NOT NULL DEFAULT 0,
	store_errors BIGINT NOT NULL DEFAULT 0
);`

const duckDBUpsertEntry = `INSERT INTO cache_entries (
	key, request_kind, request, result_payload, source_provider,
	created_at, expires_at, hit_count, last_hit_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (key, request_kind) DO UPDATE SET
	request = EXCLUDED.request,
	result_payload = EXCLUDED.result_payload,
	source_provider = EXCLUDED.source_provider,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at,
	hit_count = EXCLUDED.hit_count,
	last_hit_at = EXCLUDED.last_hit_at`

const duckDBSelectColumns = `key, request_kind, request, result_payload, source_provider,
	created_at, expires_at, hit_count, last_hit_at`

// DuckDBCacheStore is a CacheStore on an embedded DuckDB database.
//
// Expiry sweeps rely on DuckDB's per-row-group min/max zonemaps over
// expires_at rather than a secondary ART index, since ON CONFLICT updates on
// indexed columns are rewritten as delete+insert.
type DuckDBCacheStore struct {
	conn *sql.DB
	path string
}

// NewDuckDBCacheStore opens (or creates) the database at path and ensures the
// schema exists. An empty path or ":memory:" opens an in-memory database.
func NewDuckDBCacheStore(ctx context.Context, path string) (*DuckDBCacheStore, error) {
	if path == "" {
		path = ":memory:"
	}
	dsn := path + "?autoinstall_known_extensions=false&autoload_known_extensions=false"

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	if _, err := conn.ExecContext(ctx, duckDBSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create duckdb schema: %w", err)
	}

	log.Info().Str("path", path).Msg("DuckDB cache store ready")
	return &DuckDBCacheStore{conn: conn, path: path}, nil
}

// Get returns the stored row for (key, kind).
func (s *DuckDBCacheStore) Get(ctx context.Context, key string, kind model.RequestKind) (*model.CacheEntry, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+duckDBSelectColumns+` FROM cache_entries WHERE key = ? AND request_kind = ?`,
		key, string(kind))

	entry, err := scanDuckDBEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrEntryNotFound
	}
	if err != nil {
		return nil, model.NewStoreError(OpGet, err)
	}
	return entry, nil
}

// Put upserts one entry.
func (s *DuckDBCacheStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	args, err := duckDBEntryArgs(entry)
	if err != nil {
		return model.NewStoreError(OpPut, err)
	}
	err = s.withRetry(ctx, func() error {
		_, execErr := s.conn.ExecContext(ctx, duckDBUpsertEntry, args...)
		return execErr
	})
	return model.NewStoreError(OpPut, err)
}

// BulkPut upserts all entries inside one transaction.
func (s *DuckDBCacheStore) BulkPut(ctx context.Context, entries []*model.CacheEntry) error {
	entries = dedupeEntries(entries)
	if len(entries) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		args, err := duckDBEntryArgs(e)
		if err != nil {
			return model.NewStoreError(OpBulkPut, err)
		}
		rows = append(rows, args)
	}

	err := s.withRetry(ctx, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, duckDBUpsertEntry)
			if err != nil {
				return err
			}
			defer stmt.Close()
			for _, args := range rows {
				if _, err := stmt.ExecContext(ctx, args...); err != nil {
					return err
				}
			}
			return nil
		})
	})
	return model.NewStoreError(OpBulkPut, err)
}

// IncrementHits applies all increments inside one transaction.
func (s *DuckDBCacheStore) IncrementHits(ctx context.Context, hits []model.HitIncrement) error {
	if len(hits) == 0 {
		return nil
	}
	err := s.withRetry(ctx, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `UPDATE cache_entries SET
				hit_count = hit_count + ?,
				last_hit_at = CASE WHEN last_hit_at IS NULL OR last_hit_at < ? THEN ? ELSE last_hit_at END
				WHERE key = ? AND request_kind = ?`)
			if err != nil {
				return err
			}
			defer stmt.Close()
			for _, h := range hits {
				at := h.At.UTC()
				if _, err := stmt.ExecContext(ctx, h.Count, at, at, h.Key, string(h.Kind)); err != nil {
					return err
				}
			}
			return nil
		})
	})
	return model.NewStoreError(OpIncrementHits, err)
}

// DeleteExpired removes rows whose expires_at is before the cutoff.
func (s *DuckDBCacheStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := s.withRetry(ctx, func() error {
		res, err := s.conn.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at < ?`, before.UTC())
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, model.NewStoreError(OpDeleteExpired, err)
	}
	return removed, nil
}

// AggregateStats reports per-kind counts and the usage totals inside window.
func (s *DuckDBCacheStore) AggregateStats(ctx context.Context, window time.Duration, now time.Time) (model.AggregateStats, error) {
	stats := model.AggregateStats{
		EntriesByKind: make(map[model.RequestKind]int64),
		Window:        window.String(),
	}
	now = now.UTC()

	rows, err := s.conn.QueryContext(ctx, `SELECT
			request_kind,
			COUNT(*),
			COUNT(*) FILTER (WHERE expires_at <= ?),
			CAST(COALESCE(SUM(LENGTH(key) + LENGTH(request) + LENGTH(result_payload) + LENGTH(source_provider) + 40), 0) AS BIGINT)
		FROM cache_entries
		GROUP BY request_kind`, now)
	if err != nil {
		return stats, model.NewStoreError(OpAggregateStats, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind                  string
			total, expired, bytes int64
		)
		if err := rows.Scan(&kind, &total, &expired, &bytes); err != nil {
			return stats, model.NewStoreError(OpAggregateStats, err)
		}
		stats.EntriesByKind[model.RequestKind(kind)] = total
		stats.TotalEntries += total
		stats.ExpiredEntries += expired
		stats.StorageSizeBytes += bytes
	}
	if err := rows.Err(); err != nil {
		return stats, model.NewStoreError(OpAggregateStats, err)
	}

	err = s.conn.QueryRowContext(ctx, `SELECT
			CAST(COALESCE(SUM(hits), 0) AS BIGINT),
			CAST(COALESCE(SUM(misses), 0) AS BIGINT),
			CAST(COALESCE(SUM(store_errors), 0) AS BIGINT)
		FROM cache_usage
		WHERE bucket >= ? AND bucket <= ?`,
		usageWindowStart(window, now), now,
	).Scan(&stats.WindowHits, &stats.WindowMisses, &stats.WindowStoreErrors)
	if err != nil {
		return stats, model.NewStoreError(OpAggregateStats, err)
	}

	stats.HitRateOverWindow = model.HitRate(stats.WindowHits, stats.WindowMisses)
	return stats, nil
}

// RecordUsage adds delta to its hourly bucket.
func (s *DuckDBCacheStore) RecordUsage(ctx context.Context, delta model.UsageDelta) error {
	if delta.Empty() {
		return nil
	}
	err := s.withRetry(ctx, func() error {
		_, err := s.conn.ExecContext(ctx, `INSERT INTO cache_usage (bucket, hits, misses, store_errors)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (bucket) DO UPDATE SET
				hits = hits + EXCLUDED.hits,
				misses = misses + EXCLUDED.misses,
				store_errors = store_errors + EXCLUDED.store_errors`,
			model.UsageBucket(delta.Bucket), delta.Hits, delta.Misses, delta.StoreErrors)
		return err
	})
	return model.NewStoreError(OpRecordUsage, err)
}

// TopEntries returns the most-hit entries.
func (s *DuckDBCacheStore) TopEntries(ctx context.Context, limit int) ([]*model.CacheEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+duckDBSelectColumns+` FROM cache_entries ORDER BY hit_count DESC, key ASC LIMIT ?`, limit)
	if err != nil {
		return nil, model.NewStoreError(OpTopEntries, err)
	}
	defer rows.Close()

	var out []*model.CacheEntry
	for rows.Next() {
		e, err := scanDuckDBEntry(rows)
		if err != nil {
			return nil, model.NewStoreError(OpTopEntries, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError(OpTopEntries, err)
	}
	return out, nil
}

// Ping checks the connection.
func (s *DuckDBCacheStore) Ping(ctx context.Context) error {
	return model.NewStoreError(OpPing, s.conn.PingContext(ctx))
}

// Close closes the database.
func (s *DuckDBCacheStore) Close(ctx context.Context) error {
	return s.conn.Close()
}

func (s *DuckDBCacheStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// withRetry retries DuckDB transaction conflicts with exponential backoff.
func (s *DuckDBCacheStore) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < duckDBMaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("operation timed out or canceled: %w", ctx.Err())
		}
		if !isTransactionConflict(err) || attempt == duckDBMaxRetries-1 {
			break
		}

		backoff := time.Millisecond * time.Duration(1<<uint(attempt))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if isTransactionConflict(lastErr) {
		return fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return lastErr
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "Conflict on tuple deletion")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDuckDBEntry(row rowScanner) (*model.CacheEntry, error) {
	var (
		e         model.CacheEntry
		kind      string
		request   string
		payload   string
		lastHitAt sql.NullTime
	)
	if err := row.Scan(&e.Key, &kind, &request, &payload, &e.SourceProvider,
		&e.CreatedAt, &e.ExpiresAt, &e.HitCount, &lastHitAt); err != nil {
		return nil, err
	}
	e.Kind = model.RequestKind(kind)
	if err := json.Unmarshal([]byte(request), &e.Request); err != nil {
		return nil, fmt.Errorf("decode request for %s: %w", e.Key, err)
	}
	if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
		return nil, fmt.Errorf("decode payload for %s: %w", e.Key, err)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.ExpiresAt = e.ExpiresAt.UTC()
	if lastHitAt.Valid {
		t := lastHitAt.Time.UTC()
		e.LastHitAt = &t
	}
	return &e, nil
}

func duckDBEntryArgs(e *model.CacheEntry) ([]interface{}, error) {
	request, err := json.Marshal(e.Request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var lastHitAt interface{}
	if e.LastHitAt != nil {
		lastHitAt = e.LastHitAt.UTC()
	}
	return []interface{}{
		e.Key, string(e.Kind), string(request), string(payload), e.SourceProvider,
		e.CreatedAt.UTC(), e.ExpiresAt.UTC(), e.HitCount, lastHitAt,
	}, nil
}
