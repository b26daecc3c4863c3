package storage

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/lucra-chat/internal/config"
)

// ClickHouseDB holds the intent analytics store. It is optional; without
// CLICKHOUSE_HOST the chat path skips event recording and analytics returns 503.
type ClickHouseDB struct {
	conn driver.Conn
	addr string
}

// NewClickHouseDB opens the analytics connection and pings it
func NewClickHouseDB(ctx context.Context, cfg *config.ClickHouseConfig) (*ClickHouseDB, error) {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		// analytics reads are served on the request path
		Settings: clickhouse.Settings{
			"max_execution_time": 10,
		},
		DialTimeout:  5 * time.Second,
		MaxOpenConns: 4,
		MaxIdleConns: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse %s: %w", addr, err)
	}

	db := &ClickHouseDB{conn: conn, addr: addr}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("clickhouse %s unreachable: %w", addr, err)
	}
	return db, nil
}

// Ping is used by the health check
func (db *ClickHouseDB) Ping(ctx context.Context) error {
	return db.conn.Ping(ctx)
}

// Close releases the connection pool
func (db *ClickHouseDB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// exec runs a statement that returns no rows (migrations)
func (db *ClickHouseDB) exec(ctx context.Context, stmt string) error {
	return db.conn.Exec(ctx, stmt)
}

func (db *ClickHouseDB) query(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	return db.conn.Query(ctx, query, args...)
}

// insertRow writes one row to table with values in column order
func (db *ClickHouseDB) insertRow(ctx context.Context, table string, values ...interface{}) error {
	batch, err := db.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	if err := batch.Append(values...); err != nil {
		_ = batch.Abort()
		return fmt.Errorf("append row to %s: %w", table, err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert into %s on %s: %w", table, db.addr, err)
	}
	return nil
}
