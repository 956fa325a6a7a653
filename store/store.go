// Package store provides the SQLite persistence layer for document indexes:
// named indexes holding chunk records, with FTS5 search over their content.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/hazyhaar/pdfbridge/chunk"
	"github.com/hazyhaar/pdfbridge/dbopen"
)

var (
	// ErrNotFound is returned when an index or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when creating an index that already exists.
	ErrExists = errors.New("already exists")
)

// DefaultTopK is the number of matches Search returns when topK <= 0.
const DefaultTopK = 10

// Record is one stored chunk.
type Record struct {
	ID        string `json:"id"`
	Index     string `json:"index"`
	Title     string `json:"title"`
	Page      int    `json:"page"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Match is a search hit. Higher Score is more relevant.
type Match struct {
	Record
	Score float64 `json:"score"`
}

// Store is the index database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the index database at path and applies the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// OpenDB wraps an already opened database and applies the schema.
func OpenDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// CreateIndex creates an empty index.
func (s *Store) CreateIndex(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("index name is required")
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO indexes (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("index %s: %w", name, ErrExists)
	}
	return nil
}

// ListIndexes returns all index names, sorted.
func (s *Store) ListIndexes(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT name FROM indexes ORDER BY name`)
}

// DeleteIndex removes an index and every record in it.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE index_name = ?`, name); err != nil {
			return fmt.Errorf("delete records of %s: %w", name, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM indexes WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("delete index %s: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("index %s: %w", name, ErrNotFound)
		}
		return nil
	})
}

func (s *Store) indexExists(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, name string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM indexes WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("index %s: %w", name, ErrNotFound)
	}
	return err
}

// RecordID is the id a chunk of title is stored under.
func RecordID(title string, index int) string {
	return fmt.Sprintf("%s-%d", title, index)
}

// Upsert stores chunks of title in index, replacing records with the same
// ids. Returns the number of records written.
func (s *Store) Upsert(ctx context.Context, index, title string, chunks []chunk.Chunk) (int, error) {
	if title == "" {
		return 0, fmt.Errorf("title is required")
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks to store")
	}

	now := time.Now().UnixMilli()
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.indexExists(ctx, tx, index); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO records (index_name, id, title, page, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(index_name, id) DO UPDATE SET
				title = excluded.title,
				page = excluded.page,
				content = excluded.content,
				created_at = excluded.created_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range chunks {
			if _, err := stmt.ExecContext(ctx, index, RecordID(title, c.Index), title, c.Page, c.Text, now); err != nil {
				return fmt.Errorf("upsert %s: %w", RecordID(title, c.Index), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// ListFiles returns the distinct titles stored in index, sorted.
func (s *Store) ListFiles(ctx context.Context, index string) ([]string, error) {
	if err := s.indexExists(ctx, s.DB, index); err != nil {
		return nil, err
	}
	return s.queryStrings(ctx, `SELECT DISTINCT title FROM records WHERE index_name = ? ORDER BY title`, index)
}

// DeleteFiles deletes every record of index whose id starts with prefix and
// returns the deleted ids. ErrNotFound when nothing matches.
func (s *Store) DeleteFiles(ctx context.Context, index, prefix string) ([]string, error) {
	if prefix == "" {
		return nil, fmt.Errorf("file id is required")
	}
	var ids []string
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		ids = ids[:0]
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM records WHERE index_name = ? AND substr(id, 1, length(?)) = ? ORDER BY id`,
			index, prefix, prefix)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("files %q in %s: %w", prefix, index, ErrNotFound)
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM records WHERE index_name = ? AND substr(id, 1, length(?)) = ?`,
			index, prefix, prefix)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Search returns the topK records of index most relevant to query.
// A query with no searchable terms returns no matches.
func (s *Store) Search(ctx context.Context, index, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if err := s.indexExists(ctx, s.DB, index); err != nil {
		return nil, err
	}
	expr := matchExpr(query)
	if expr == "" {
		return nil, nil
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT r.id, r.index_name, r.title, r.page, r.content, r.created_at, bm25(records_fts) AS score
		FROM records_fts
		JOIN records r ON r.seq = records_fts.rowid
		WHERE records_fts MATCH ? AND r.index_name = ?
		ORDER BY score
		LIMIT ?`, expr, index, topK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		var rank float64
		if err := rows.Scan(&m.ID, &m.Index, &m.Title, &m.Page, &m.Content, &m.CreatedAt, &rank); err != nil {
			return nil, err
		}
		// bm25 is lower-is-better.
		m.Score = -rank
		out = append(out, m)
	}
	return out, rows.Err()
}

// matchExpr turns free text into an FTS5 expression: every letter/digit
// run becomes a quoted term, terms are OR-ed.
func matchExpr(query string) string {
	terms := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, t := range terms {
		terms[i] = `"` + t + `"`
	}
	return strings.Join(terms, " OR ")
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
