// Package candlestore keeps the broker candle history in ClickHouse. CSV
// exports stay the interchange format between pipeline stages; the store is
// the bulk archive the exports are cut from. The ReplacingMergeTree version
// column makes re-ingesting the same file idempotent.
package candlestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	chproto "github.com/ClickHouse/clickhouse-go/v2/lib/proto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fxresearch/services/timeseries"
)

// Options configures the connection.
type Options struct {
	DSN      string
	Database string
	Table    string
	User     string
	Password string
}

// Store is a ClickHouse-backed candle archive.
type Store struct {
	conn   clickhouse.Conn
	db     string
	table  string
	logger *zap.Logger
}

// Open connects and pings the server.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{dsnHost(opts.DSN)},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.User,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %s", explainError(err))
	}
	return &Store{conn: conn, db: opts.Database, table: opts.Table, logger: logger}, nil
}

// Close releases the connection.
func (s *Store) Close() error { return s.conn.Close() }

// EnsureSchema creates the database and candle table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.db)); err != nil {
		return fmt.Errorf("create database: %s", explainError(err))
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			symbol LowCardinality(String),
			ts DateTime('UTC'),
			open Decimal(18, 6),
			high Decimal(18, 6),
			low Decimal(18, 6),
			close Decimal(18, 6),
			volume Decimal(18, 6),
			ingested_at DateTime64(3),
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, ts)
		SETTINGS index_granularity = 8192
	`, s.db, s.table)
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %s", explainError(err))
	}
	return nil
}

// InsertCandles writes one symbol's candles in a single batch. All rows in
// the batch share a version; re-running the same file replaces rather than
// duplicates.
func (s *Store) InsertCandles(ctx context.Context, symbol string, candles []timeseries.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	batch, err := s.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO %s.%s SETTINGS insert_deduplicate=1", s.db, s.table))
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %s", explainError(err))
	}

	now := time.Now().UTC()
	ver := uint64(now.UnixNano())
	for _, c := range candles {
		if err := batch.Append(
			symbol,
			c.Timestamp.UTC(),
			c.Open, c.High, c.Low, c.Close, c.Volume,
			now,
			ver,
		); err != nil {
			return 0, fmt.Errorf("batch append %s: %s", c.Timestamp, explainError(err))
		}
	}
	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("batch send: %s", explainError(err))
	}
	s.logger.Info("inserted candles",
		zap.String("symbol", symbol),
		zap.Int("rows", len(candles)),
	)
	return len(candles), nil
}

// QueryRange reads a symbol's candles in [from, to], inclusive, ordered by
// timestamp with ReplacingMergeTree duplicates collapsed.
func (s *Store) QueryRange(ctx context.Context, symbol string, from, to time.Time) ([]timeseries.Candle, error) {
	q := fmt.Sprintf(`
		SELECT ts, open, high, low, close, volume
		FROM %s.%s FINAL
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts
	`, s.db, s.table)
	rows, err := s.conn.Query(ctx, q, symbol, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query %s: %s", symbol, explainError(err))
	}
	defer rows.Close()

	var out []timeseries.Candle
	for rows.Next() {
		var (
			ts                              time.Time
			open, high, low, closep, volume decimal.Decimal
		)
		if err := rows.Scan(&ts, &open, &high, &low, &closep, &volume); err != nil {
			return nil, fmt.Errorf("scan %s: %s", symbol, explainError(err))
		}
		out = append(out, timeseries.Candle{
			Timestamp: ts.UTC(),
			Open:      open, High: high, Low: low, Close: closep, Volume: volume,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %s", symbol, explainError(err))
	}
	return out, nil
}

// CountCandles returns the stored row count for a symbol.
func (s *Store) CountCandles(ctx context.Context, symbol string) (uint64, error) {
	var count uint64
	q := fmt.Sprintf("SELECT count() FROM %s.%s FINAL WHERE symbol = ?", s.db, s.table)
	if err := s.conn.QueryRow(ctx, q, symbol).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %s", symbol, explainError(err))
	}
	return count, nil
}

// dsnHost extracts host:port from a DSN-like URL for driver bootstrap.
func dsnHost(dsn string) string {
	host := "localhost:9000"
	if i := strings.Index(dsn, "@"); i != -1 {
		rest := dsn[i+1:]
		if j := strings.Index(rest, "?"); j != -1 {
			host = rest[:j]
		} else {
			host = rest
		}
		host = strings.TrimPrefix(host, "/")
		host = strings.TrimPrefix(host, "//")
	}
	return host
}

func explainError(err error) string {
	var ex *chproto.Exception
	if errors.As(err, &ex) {
		return fmt.Sprintf("ClickHouse [%d] %s (%s)", ex.Code, ex.Message, ex.Name)
	}
	return err.Error()
}
