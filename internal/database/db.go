package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
)

// DSN builds the MySQL data source name for cfg.
func DSN(cfg config.Config) string {
	auth := cfg.DBUser
	if cfg.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", cfg.DBUser, cfg.DBPass)
	}
	params := url.Values{}
	params.Set("charset", "utf8mb4")
	params.Set("parseTime", "true") // DATETIME -> time.Time
	params.Set("loc", "UTC")
	params.Set("interpolateParams", "true") // client-side placeholders, no server prepare
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?%s", auth, cfg.DBHost, cfg.DBPort, cfg.DBName, params.Encode())
}

// Open connects to MySQL with the pool settings in pool and verifies
// the connection.
func Open(cfg config.Config, pool config.PoolConfig) (*sqlx.DB, error) {
	return OpenDSN(DSN(cfg), pool)
}

// OpenDSN is Open for a ready-made DSN, as used by the integration
// tests.
func OpenDSN(dsn string, pool config.PoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)

	timeout := pool.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}
