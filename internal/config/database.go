package config

import (
	"strconv"
	"time"
)

// DBConfig describes the MySQL pool shared by every repository.
type DBConfig struct {
	User     string
	Pass     string
	Host     string
	Port     string
	Name     string
	Migrate  bool // apply the embedded schema on startup
	MaxOpen  int
	MaxIdle  int
	Lifetime time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// LockWait bounds how long a check-in waits for the guest row held by a
	// concurrent check-in of the same guest.
	LockWait time.Duration
}

// LoadDBConfig reads DB_*.  Connection identity is required; pool and
// timeout settings are optional.
func LoadDBConfig() DBConfig {
	c := DBConfig{
		User:         must("DB_USER"),
		Pass:         envStr("DB_PASS", ""),
		Host:         must("DB_HOST"),
		Port:         must("DB_PORT"),
		Name:         must("DB_NAME"),
		Migrate:      envBool("DB_MIGRATE", false),
		MaxOpen:      envInt("DB_MAX_OPEN", 25),
		MaxIdle:      envInt("DB_MAX_IDLE", 25),
		Lifetime:     envDur("DB_CONN_LIFETIME", 30*time.Minute),
		DialTimeout:  envDur("DB_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDur("DB_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: envDur("DB_WRITE_TIMEOUT", 10*time.Second),
		LockWait:     envDur("DB_LOCK_WAIT", 5*time.Second),
	}
	if c.MaxOpen < 1 {
		c.MaxOpen = 25
	}
	if c.MaxIdle < 0 || c.MaxIdle > c.MaxOpen {
		c.MaxIdle = c.MaxOpen
	}
	if c.LockWait < time.Second {
		c.LockWait = time.Second
	}
	return c
}

// LockWaitSeconds is LockWait in the whole seconds innodb_lock_wait_timeout takes.
func (c DBConfig) LockWaitSeconds() string {
	return strconv.Itoa(int(c.LockWait / time.Second))
}
