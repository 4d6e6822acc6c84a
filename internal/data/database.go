// internal/data/database.go
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"heritagebackend/internal/logger"
)

// Global database instance for the primary quote store
var (
	db   *sql.DB
	dbMu sync.RWMutex
)

// Database connection pool configuration
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = time.Hour
	connMaxIdleTime = time.Minute * 15
	queryTimeout    = time.Second * 30
)

const TimeFormat = time.RFC3339

// Sentinel conditions surfaced by the store layer.
var (
	// ErrNotFound: no record exists for the requested quote number or token.
	ErrNotFound = errors.New("quote record not found")
	// ErrStoreUnavailable: the store cannot be reached at connection time.
	ErrStoreUnavailable = errors.New("quote store unavailable")
)

// InitDB opens the primary quote store with connection pooling and ensures
// its schema is current.
func InitDB(dataSourceName string) error {
	dbMu.Lock()
	defer dbMu.Unlock()

	// Close existing connection if any
	if db != nil {
		db.Close()
	}

	if err := initDBWithRetry(dataSourceName, 3); err != nil {
		return err
	}

	if err := ensureSchema(db); err != nil {
		return fmt.Errorf("failed to ensure quote store schema: %w", err)
	}
	return nil
}

func initDBWithRetry(dataSourceName string, maxRetries int) error {
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = sql.Open("sqlite", dataSourceName)
		if err != nil {
			logger.LogWarn("Database connection attempt %d failed: %v", attempt, err)
			if attempt < maxRetries {
				time.Sleep(time.Duration(attempt) * time.Second)
				continue
			}
			return fmt.Errorf("failed to open database after %d attempts: %w", maxRetries, errors.Join(ErrStoreUnavailable, err))
		}

		// Configure connection pool
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxLifetime(connMaxLifetime)
		db.SetConnMaxIdleTime(connMaxIdleTime)

		// Test the connection
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		err = db.PingContext(ctx)
		cancel()

		if err != nil {
			logger.LogWarn("Database ping attempt %d failed: %v", attempt, err)
			db.Close()
			if attempt < maxRetries {
				time.Sleep(time.Duration(attempt) * time.Second)
				continue
			}
			return fmt.Errorf("failed to ping database after %d attempts: %w", maxRetries, errors.Join(ErrStoreUnavailable, err))
		}

		if err := enablePragmas(db); err != nil {
			logger.LogWarn("Failed to enable some database optimizations: %v", err)
			// Don't fail initialization for pragma errors
		}

		logger.LogInfo("Database connection established successfully (attempt %d)", attempt)
		return nil
	}

	return fmt.Errorf("failed to initialize database after %d attempts: %w", maxRetries, ErrStoreUnavailable)
}

func enablePragmas(conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}

	var lastErr error
	for _, pragma := range pragmas {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		_, err := conn.ExecContext(ctx, pragma)
		cancel()

		if err != nil {
			logger.LogWarn("Failed to execute %s: %v", pragma, err)
			lastErr = err
		}
	}
	return lastErr
}

// GetDB returns the database connection with health check
func GetDB() (*sql.DB, error) {
	dbMu.RLock()
	defer dbMu.RUnlock()

	if db == nil {
		return nil, fmt.Errorf("database not initialized: %w", ErrStoreUnavailable)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.LogError("Database health check failed: %v", err)
		return nil, fmt.Errorf("database connection unhealthy: %w", errors.Join(ErrStoreUnavailable, err))
	}

	return db, nil
}

// CloseDB closes the database connection gracefully
func CloseDB() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// ExecDB executes a statement with timeout and error logging
func ExecDB(query string, args ...interface{}) (sql.Result, error) {
	dbConn, err := GetDB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := dbConn.ExecContext(ctx, query, args...)
	if err != nil {
		logger.LogError("Database exec failed: query=%s, error=%v", query, err)
		return nil, fmt.Errorf("database execution failed: %w", err)
	}

	return result, nil
}

// QueryDB executes a query with timeout and returns rows
func QueryDB(query string, args ...interface{}) (*sql.Rows, error) {
	dbConn, err := GetDB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := dbConn.QueryContext(ctx, query, args...)
	if err != nil {
		logger.LogError("Database query failed: query=%s, error=%v", query, err)
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return rows, nil
}

// QueryRowDB executes a query that returns a single row. No deadline is
// attached here: the row is scanned by the caller after this returns, and
// canceling the context before Scan would poison the read.
func QueryRowDB(query string, args ...interface{}) (*sql.Row, error) {
	dbConn, err := GetDB()
	if err != nil {
		return nil, err
	}

	return dbConn.QueryRow(query, args...), nil
}

// Time utilities

func formatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

func parseTime(timeStr string) (time.Time, error) {
	return time.Parse(TimeFormat, timeStr)
}
