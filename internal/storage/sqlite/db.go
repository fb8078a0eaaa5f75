package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/sandevgo/replydesk/pkg/log"
	driver "github.com/sandevgo/replydesk/pkg/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const timeLayout = time.RFC3339Nano

// NewDB opens (creating if needed) the database at dbPath and migrates it.
// ":memory:" is accepted for tests.
func NewDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
		dsn = "file:" + dbPath + "?_journal_mode=WAL"
	}

	db, err := sql.Open(driver.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection turns write contention into
	// queueing instead of SQLITE_BUSY, and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(log.NewGooseLoggerFromCtx(ctx))

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// Store bundles every repository over one database handle.
type Store struct {
	*BusinessRepo
	*ContactRepo
	*ConversationRepo
	*MessagesRepo
	*EscalationRepo
	*KnowledgeRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		BusinessRepo:     NewBusinessRepo(db),
		ContactRepo:      NewContactRepo(db),
		ConversationRepo: NewConversationRepo(db),
		MessagesRepo:     NewMessagesRepo(db),
		EscalationRepo:   NewEscalationRepo(db),
		KnowledgeRepo:    NewKnowledgeRepo(db),
	}
}

func now() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

type scanner interface {
	Scan(dest ...any) error
}
