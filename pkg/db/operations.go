package db

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Document is a cached source-of-truth body.
type Document struct {
	URL         string
	ContentHash string
	Body        string
	Size        int64 // UTF-8 bytes; set by ListDocuments
	FetchedAt   time.Time
}

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("not found")

// ContentHash returns the hex SHA-256 of body.
func ContentHash(body string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(body)))
}

// UpsertDocument stores body for url, replacing any previous row.
func (db *DB) UpsertDocument(url, body string, fetchedAt time.Time) error {
	_, err := db.Exec(`
		INSERT INTO documents (url, content_hash, body, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			content_hash = excluded.content_hash,
			body = excluded.body,
			fetched_at = excluded.fetched_at
	`, url, ContentHash(body), body, fetchedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// GetDocument loads the cached document for url.
func (db *DB) GetDocument(url string) (*Document, error) {
	var (
		doc       Document
		fetchedAt int64
	)
	err := db.QueryRow(`
		SELECT url, content_hash, body, fetched_at
		FROM documents WHERE url = ?
	`, url).Scan(&doc.URL, &doc.ContentHash, &doc.Body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc.FetchedAt = time.Unix(fetchedAt, 0)
	return &doc, nil
}

// DeleteDocumentsBefore drops rows fetched before cutoff and returns how many
// were removed.
func (db *DB) DeleteDocumentsBefore(cutoff time.Time) (int64, error) {
	res, err := db.Exec("DELETE FROM documents WHERE fetched_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune documents: %w", err)
	}
	return res.RowsAffected()
}

// ListDocuments returns cached documents without their bodies, newest
// first. A limit <= 0 returns every row.
func (db *DB) ListDocuments(limit int) ([]Document, error) {
	query := `
		SELECT url, content_hash, length(CAST(body AS BLOB)), fetched_at
		FROM documents
		ORDER BY fetched_at DESC, url
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc       Document
			fetchedAt int64
		)
		if err := rows.Scan(&doc.URL, &doc.ContentHash, &doc.Size, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.FetchedAt = time.Unix(fetchedAt, 0)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
