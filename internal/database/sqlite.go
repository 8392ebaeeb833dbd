// Package database wraps the persistence engine: a *sql.DB over
// modernc.org/sqlite, exposing the read/write transaction scopes
// exposing named read/write transaction scopes.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// Config holds database configuration.
type Config struct {
	Path string
}

// DB is the composition root's handle on the persistence engine. Unlike
// a package-level singleton, it is passed explicitly to every
// collaborator that needs it.
type DB struct {
	conn *sql.DB
}

// Open opens (and WAL/foreign-key configures) the sqlite database at
// cfg.Path.
func Open(cfg Config) (*DB, error) {
	conn, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("[database] initialized: %s", cfg.Path)
	return &DB{conn: conn}, nil
}

// Conn returns the underlying *sql.DB for repositories that need plain
// (non-transactional) reads.
func (d *DB) Conn() *sql.DB { return d.conn }

// Close closes the database connection.
func (d *DB) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// Write runs fn inside a single write transaction. The merge executor and
// edge cleansing both use this to commit one atomic transaction per
// operation, keeping every merge and edge move atomic.
func (d *DB) Write(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin write transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Read runs fn inside a read-only, snapshot-consistent transaction.
func (d *DB) Read(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return nil
}
