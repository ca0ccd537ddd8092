package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options describes how to reach the catalog store.
type Options struct {
	User             string
	Password         string
	Host             string
	Port             string
	Name             string
	MaxOpenConns     int
	StatementTimeout time.Duration
}

// DSN renders the driver connection string. Every pooled connection gets
// foreign_key_checks=1 as a session variable, so referential integrity
// holds no matter which connection a statement lands on.
func DSN(o Options) string {
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(o.Host, o.Port)
	cfg.DBName = o.Name
	cfg.ParseTime = true // DATE/DATETIME -> time.Time
	cfg.Loc = time.UTC
	cfg.Collation = "utf8mb4_unicode_ci"
	cfg.Timeout = 5 * time.Second
	if o.StatementTimeout > 0 {
		// network guard; the context deadline normally fires first
		cfg.ReadTimeout = 2 * o.StatementTimeout
		cfg.WriteTimeout = 2 * o.StatementTimeout
	}
	cfg.Params = map[string]string{
		"foreign_key_checks": "1",
	}
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(o))
	if err != nil {
		return nil, err
	}

	maxOpen := o.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
