package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"zubi/internal/models"
)

type SQLiteConversationRepository struct {
	db *sql.DB
}

// NewSQLiteConversationRepository opens (or creates) the database at dbPath.
func NewSQLiteConversationRepository(dbPath string) (*SQLiteConversationRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	repo := &SQLiteConversationRepository{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return repo, nil
}

func (r *SQLiteConversationRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteConversationRepository) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS conversations (
        phone TEXT PRIMARY KEY,
        intake_complete INTEGER NOT NULL DEFAULT 0,
        data TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_conversations_intake ON conversations(intake_complete);
    `
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *SQLiteConversationRepository) Find(ctx context.Context, phone string) (*models.Conversation, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM conversations WHERE phone = ?`, phone).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return Decode([]byte(data))
}

func (r *SQLiteConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	data, err := Encode(conv)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO conversations (phone, intake_complete, data, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(phone) DO UPDATE SET
            intake_complete = excluded.intake_complete,
            data = excluded.data,
            updated_at = excluded.updated_at
    `
	_, err = r.db.ExecContext(ctx, query,
		conv.Phone, conv.IntakeComplete, string(data),
		conv.CreatedAt.UTC().Format(time.RFC3339), conv.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return nil
}

func (r *SQLiteConversationRepository) Delete(ctx context.Context, phone string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE phone = ?`, phone); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// CountCompleted returns how many conversations finished intake.
func (r *SQLiteConversationRepository) CountCompleted(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE intake_complete = 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return n, nil
}
