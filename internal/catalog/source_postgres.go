package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresSource reads documents from the content_documents table. The path
// column uses the same resource names as the other sources. Bodies are kept
// byte for byte, so a fetched document has the fingerprint it was stored with.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS content_documents (
			path TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create content_documents: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `ALTER TABLE content_documents ALTER COLUMN body TYPE TEXT USING body::text`)
	if err != nil {
		return fmt.Errorf("migrate content_documents body: %w", err)
	}
	return nil
}

func (s *PostgresSource) Fetch(ctx context.Context, resource string) ([]byte, error) {
	rel, ok := cleanResource(resource)
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w: %w", resource, ErrNetwork, ErrNotFound)
	}

	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body
		FROM content_documents
		WHERE path = $1
	`, rel).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fetch %s: %w: %w", resource, ErrNetwork, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w: %w", resource, ErrNetwork, err)
	}
	if err := checkDocumentSize(resource, len(body)); err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// Put stores or replaces a document. The body must be valid JSON.
func (s *PostgresSource) Put(ctx context.Context, resource string, body []byte) error {
	rel, ok := cleanResource(resource)
	if !ok {
		return fmt.Errorf("put %s: invalid resource path", resource)
	}
	if err := checkDocumentSize(resource, len(body)); err != nil {
		return err
	}
	if !json.Valid(body) {
		return fmt.Errorf("put %s: %w: invalid json", resource, ErrParse)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_documents (path, body, fingerprint, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (path)
		DO UPDATE SET
			body = EXCLUDED.body,
			fingerprint = EXCLUDED.fingerprint,
			updated_at = now()
	`, rel, string(body), Fingerprint(body))
	if err != nil {
		return fmt.Errorf("upsert content document %s: %w", rel, err)
	}
	return nil
}
