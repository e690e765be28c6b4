package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/stadium-hospitality/internal/config"
)

// DSN renders cfg as a go-sql-driver DSN.  Times are parsed into UTC
// time.Time values and every session gets cfg's lock wait, so a check-in
// stuck behind another check-in of the same guest fails instead of hanging.
func DSN(cfg config.DBConfig) string {
	m := mysql.NewConfig()
	m.User = cfg.User
	m.Passwd = cfg.Pass
	m.Net = "tcp"
	m.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	m.DBName = cfg.Name
	m.ParseTime = true
	m.Loc = time.UTC
	m.Timeout = cfg.DialTimeout
	m.ReadTimeout = cfg.ReadTimeout
	m.WriteTimeout = cfg.WriteTimeout
	m.Params = map[string]string{
		"charset":                  "utf8mb4",
		"innodb_lock_wait_timeout": cfg.LockWaitSeconds(),
	}
	return m.FormatDSN()
}

// Open builds the pool described by cfg and pings it.  The returned pool
// is the only shared handle; repositories receive it by injection.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(cfg.Lifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
