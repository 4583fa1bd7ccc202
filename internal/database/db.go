package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql" // production store
	_ "modernc.org/sqlite"             // embedded store for dev and tests

	"github.com/iliyamo/restaurant-seating/internal/config"
	"github.com/iliyamo/restaurant-seating/internal/repository"
)

// Open connects to the store selected by cfg.DBDriver, verifies the
// connection and applies the embedded schema when cfg.AutoMigrate is set.
func Open(cfg config.Config) (*sql.DB, repository.Dialect, error) {
	var (
		db      *sql.DB
		dialect repository.Dialect
		err     error
	)
	switch cfg.DBDriver {
	case "sqlite":
		dialect = repository.SQLite
		db, err = OpenSQLite(cfg.SQLitePath)
	default:
		dialect = repository.MySQL
		db, err = OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.LockWaitTimeoutSec)
	}
	if err != nil {
		return nil, "", err
	}
	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := Migrate(ctx, db, dialect); err != nil {
			db.Close()
			return nil, "", fmt.Errorf("migrate: %w", err)
		}
		log.Printf("database: schema applied (%s)", dialect)
	}
	return db, dialect, nil
}

// OpenMySQL connects to MySQL and verifies the connection.  Row-lock waits
// are bounded by lockWaitSec so a stuck admission fails with a lock wait
// timeout instead of hanging.
func OpenMySQL(user, pass, host, port, name string, lockWaitSec int) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&innodb_lock_wait_timeout=%d",
		auth, host, port, name, lockWaitSec)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens the embedded database at path.  SQLite has no row
// locks, so every transaction starts with BEGIN IMMEDIATE and the pool is
// limited to one connection; admissions are serialized by the store.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ping verifies the connection with a five second timeout.
func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
