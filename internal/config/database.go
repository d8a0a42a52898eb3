package config

import "time"

// PoolConfig sizes the MySQL connection pool.  Every booking holds one
// connection for the length of its transaction, so MaxOpen bounds how
// many shows can be booked in parallel.
type PoolConfig struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	PingTimeout time.Duration
}

// LoadPoolConfig reads DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS,
// DB_CONN_MAX_LIFETIME and DB_PING_TIMEOUT.
func LoadPoolConfig() PoolConfig {
	p := PoolConfig{
		MaxOpen:     envInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdle:     envInt("DB_MAX_IDLE_CONNS", 25),
		MaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		PingTimeout: envDur("DB_PING_TIMEOUT", 5*time.Second),
	}
	if p.MaxOpen < 1 {
		p.MaxOpen = 25
	}
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	return p
}
