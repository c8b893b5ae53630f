package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"webshot/internal/logger"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Service owns the database handle for a session file. database/sql hands
// each goroutine its own pooled connection, so a connection is never shared
// across workers; multi-statement operations run inside a transaction scoped
// to the calling operation.
type Service struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (or creates) the SQLite file at path.
func Open(path string) (*Service, error) {
	log := logger.New("SQLite")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.LogInfof("Creating new session file: %s", path)
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create session directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open session file: %w", err)
	}
	return &Service{db: db, log: log}, nil
}

func (s *Service) DB() *sql.DB  { return s.db }
func (s *Service) Close() error { return s.db.Close() }

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error. Partial writes are never visible to other connections.
func (s *Service) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.LogErrorf("rollback failed: %v", rbErr)
		}
		return err
	}
	return tx.Commit()
}
