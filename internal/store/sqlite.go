// Package store persists processed documents and their citation rows in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/citectx/internal/doctree"
)

// ErrNotFound is returned when a document id is unknown.
var ErrNotFound = errors.New("document not found")

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Document is the stored summary of one processed input.
type Document struct {
	ID          string    `json:"id"`
	DocID       string    `json:"doc_id"` // Row doc_id, derived from the file name
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash"`
	CitingID    *string   `json:"citing_id"`
	RowCount    int       `json:"row_count"`
	Warnings    int       `json:"warnings"`
	CreatedAt   time.Time `json:"created_at"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			title TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			citing_id TEXT,
			row_count INTEGER NOT NULL,
			warnings INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);

		CREATE TABLE IF NOT EXISTS citation_rows (
			document_id TEXT NOT NULL,
			cit_count INTEGER NOT NULL,
			doc_id TEXT NOT NULL,
			citing_id TEXT,
			citing_author TEXT,
			citing_title TEXT,
			cited_id TEXT,
			cited_author TEXT,
			cited_title TEXT,
			cited_raw TEXT,
			citation_ref TEXT NOT NULL,
			citation_sent TEXT NOT NULL,
			citation_context TEXT NOT NULL,
			section_title TEXT NOT NULL,
			PRIMARY KEY (document_id, cit_count)
		);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveDocument stores a document summary and its rows in one transaction.
func (d *DB) SaveDocument(ctx context.Context, doc Document, rows []doctree.Row) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, doc_id, filename, title, content_hash, citing_id, row_count, warnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.DocID, doc.Filename, doc.Title, doc.ContentHash, nullable(doc.CitingID),
		len(rows), doc.Warnings, doc.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO citation_rows (
			document_id, cit_count, doc_id,
			citing_id, citing_author, citing_title,
			cited_id, cited_author, cited_title, cited_raw,
			citation_ref, citation_sent, citation_context, section_title
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing row insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			doc.ID, r.CitCount, r.DocID,
			nullable(r.CitingID), nullable(r.CitingAuthor), nullable(r.CitingTitle),
			nullable(r.CitedID), nullable(r.CitedAuthor), nullable(r.CitedTitle), nullable(r.CitedRaw),
			r.CitationRef, r.CitationSent, r.CitationContext, r.SectionTitle)
		if err != nil {
			return fmt.Errorf("inserting row %d: %w", r.CitCount, err)
		}
	}
	return tx.Commit()
}

const selectDocumentFields = `id, doc_id, filename, title, content_hash, citing_id, row_count, warnings, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*Document, error) {
	var (
		doc      Document
		citingID sql.NullString
		created  int64
	)
	err := s.Scan(&doc.ID, &doc.DocID, &doc.Filename, &doc.Title, &doc.ContentHash, &citingID, &doc.RowCount, &doc.Warnings, &created)
	if err != nil {
		return nil, err
	}
	doc.CitingID = fromNull(citingID)
	doc.CreatedAt = time.UnixMilli(created)
	return &doc, nil
}

// GetDocument returns a document summary by id.
func (d *DB) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectDocumentFields+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", id, err)
	}
	return doc, nil
}

// FindByHash returns the earliest document stored with the content hash,
// or nil.
func (d *DB) FindByHash(ctx context.Context, hash string) (*Document, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+selectDocumentFields+` FROM documents WHERE content_hash = ? ORDER BY created_at LIMIT 1`, hash)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying hash %s: %w", hash, err)
	}
	return doc, nil
}

// ListDocuments returns document summaries, newest first. A limit of zero
// or less returns everything.
func (d *DB) ListDocuments(ctx context.Context, limit int) ([]Document, error) {
	query := `SELECT ` + selectDocumentFields + ` FROM documents ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Rows returns a document's citation rows in emission order.
func (d *DB) Rows(ctx context.Context, id string) ([]doctree.Row, error) {
	if _, err := d.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT cit_count, doc_id,
			citing_id, citing_author, citing_title,
			cited_id, cited_author, cited_title, cited_raw,
			citation_ref, citation_sent, citation_context, section_title
		FROM citation_rows WHERE document_id = ? ORDER BY cit_count`, id)
	if err != nil {
		return nil, fmt.Errorf("querying rows for %s: %w", id, err)
	}
	defer rows.Close()

	var out []doctree.Row
	for rows.Next() {
		var (
			r                                     doctree.Row
			citingID, citingAuthor, citingTitle   sql.NullString
			citedID, citedAuthor, citedTitle, raw sql.NullString
		)
		err := rows.Scan(&r.CitCount, &r.DocID,
			&citingID, &citingAuthor, &citingTitle,
			&citedID, &citedAuthor, &citedTitle, &raw,
			&r.CitationRef, &r.CitationSent, &r.CitationContext, &r.SectionTitle)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.CitingID, r.CitingAuthor, r.CitingTitle = fromNull(citingID), fromNull(citingAuthor), fromNull(citingTitle)
		r.CitedID, r.CitedAuthor, r.CitedTitle, r.CitedRaw = fromNull(citedID), fromNull(citedAuthor), fromNull(citedTitle), fromNull(raw)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document and its rows.
func (d *DB) DeleteDocument(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM citation_rows WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("deleting rows for %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// CountDocuments returns the number of stored documents.
func (d *DB) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
