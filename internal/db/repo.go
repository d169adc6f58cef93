package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"medcot/pkg"
)

// Repository wraps the Postgres reads and writes used by the generators.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// quoteTable quotes a possibly schema-qualified table name.
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// FetchChunks returns every (id, chunk_text) row of table ordered by id.
func (r *Repository) FetchChunks(ctx context.Context, table string) ([]pkg.Chunk, error) {
	rows, err := r.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, chunk_text FROM %s ORDER BY id`, quoteTable(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []pkg.Chunk
	for rows.Next() {
		var c pkg.Chunk
		var text sql.NullString
		if err := rows.Scan(&c.ID, &text); err != nil {
			return nil, err
		}
		c.Text = text.String
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// InsertQuestion stores one generated question as its own row.
func (r *Repository) InsertQuestion(ctx context.Context, table string, q pkg.GeneratedQuestion) error {
	_, err := r.DB.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (chunk_id, question) VALUES ($1, $2)`, quoteTable(table)),
		q.ChunkID, q.Question,
	)
	return err
}

// SaveTranscript stores a finished conversation with its turns as JSONB.
func (r *Repository) SaveTranscript(ctx context.Context, t pkg.Transcript) error {
	turns, err := json.Marshal(t.Turns)
	if err != nil {
		return fmt.Errorf("db: encode turns: %w", err)
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO cot_transcripts (id, question, turns, turn_count, created_at)
         VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Question, turns, len(t.Turns), t.CreatedAt,
	)
	return err
}
