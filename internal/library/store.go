// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library persists concept and pattern documents in an append-only
// SQLite table. Every write appends a row; the latest row for a uuid is the
// current revision of that document. Activation appends a copy with status
// "active".
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/concept-engine/pkg/types"
)

const (
	dbFile = "library.db"

	defaultDir = "data"
)

// Document kinds.
const (
	KindConcept = "concept"
	KindPattern = "pattern"
)

// Document statuses.
const (
	StatusDraft  = "draft"
	StatusActive = "active"
)

// ErrNotFound is returned when no row matches a lookup.
var ErrNotFound = errors.New("not found")

// ErrInvalidKind is returned for kinds other than concept and pattern.
var ErrInvalidKind = errors.New("invalid kind")

// Record is one stored revision of a document and its JSON body.
type Record struct {
	types.Revision `yaml:",inline"`
	Body           json.RawMessage `json:"body" yaml:"-"`
}

// Store manages the library SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the library database at cfg.Dir/library.db and
// creates the schema if it does not exist.
func Open(cfg types.LibraryConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			uuid TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			status TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TEXT NOT NULL,
			activated_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_uuid ON documents(kind, uuid)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_doc_id ON documents(kind, doc_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// AppendConcept stores a revision of c. A missing uuid is generated and a
// missing status defaults to draft. The stored concept is returned.
func (s *Store) AppendConcept(ctx context.Context, c types.Concept) (types.Concept, error) {
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusDraft
	}
	if _, err := insert(ctx, s.db, s.now(), KindConcept, c.UUID, c.ConceptID, c.Status, c, nil); err != nil {
		return types.Concept{}, err
	}
	return c, nil
}

// AppendPattern stores a revision of p, with the same defaults as
// AppendConcept.
func (s *Store) AppendPattern(ctx context.Context, p types.Pattern) (types.Pattern, error) {
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if _, err := insert(ctx, s.db, s.now(), KindPattern, p.UUID, p.PatternID, p.Status, p, nil); err != nil {
		return types.Pattern{}, err
	}
	return p, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insert(ctx context.Context, q querier, now time.Time, kind, id, docID, status string, doc any, activatedAt *time.Time) (Record, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return Record{}, fmt.Errorf("marshaling %s %s: %w", kind, id, err)
	}

	rec := Record{
		Revision: types.Revision{
			Kind:        kind,
			UUID:        id,
			DocID:       docID,
			Status:      status,
			CreatedAt:   now,
			ActivatedAt: activatedAt,
		},
		Body: body,
	}

	var activated sql.NullString
	if activatedAt != nil {
		activated = sql.NullString{String: activatedAt.Format(time.RFC3339Nano), Valid: true}
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO documents (kind, uuid, doc_id, status, body, created_at, activated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		kind, id, docID, status, string(body), rec.CreatedAt.Format(time.RFC3339Nano), activated,
	)
	if err != nil {
		return Record{}, fmt.Errorf("inserting %s %s: %w", kind, id, err)
	}
	return rec, nil
}

// Latest returns the newest revision stored under uuid.
func (s *Store) Latest(ctx context.Context, kind, id string) (Record, error) {
	return latest(ctx, s.db, kind, id)
}

func latest(ctx context.Context, q querier, kind, id string) (Record, error) {
	if err := checkKind(kind); err != nil {
		return Record{}, err
	}
	row := q.QueryRowContext(ctx,
		`SELECT kind, uuid, doc_id, status, body, created_at, activated_at
		 FROM documents WHERE kind = ? AND uuid = ? ORDER BY rowid DESC LIMIT 1`,
		kind, id,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("%s %s: %w", kind, id, err)
	}
	return rec, nil
}

// LatestByID returns the newest revision whose document id is docID.
// Active revisions are preferred over newer drafts.
func (s *Store) LatestByID(ctx context.Context, kind, docID string) (Record, error) {
	if err := checkKind(kind); err != nil {
		return Record{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT kind, uuid, doc_id, status, body, created_at, activated_at
		 FROM documents WHERE kind = ? AND doc_id = ?
		 ORDER BY (status = 'active') DESC, rowid DESC LIMIT 1`,
		kind, docID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("%s %s: %w", kind, docID, err)
	}
	return rec, nil
}

// Activate appends a copy of the latest revision of uuid with status active.
func (s *Store) Activate(ctx context.Context, kind, id string) (Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := latest(ctx, tx, kind, id)
	if err != nil {
		return Record{}, err
	}

	var doc map[string]any
	if err := json.Unmarshal(rec.Body, &doc); err != nil {
		return Record{}, fmt.Errorf("decoding %s %s: %w", kind, id, err)
	}
	doc["status"] = StatusActive

	now := s.now()
	out, err := insert(ctx, tx, now, kind, id, rec.DocID, StatusActive, doc, &now)
	if err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("committing activation: %w", err)
	}
	return out, nil
}

// List returns the latest revision of every document of kind, ordered by
// document id.
func (s *Store) List(ctx context.Context, kind string) ([]Record, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.kind, d.uuid, d.doc_id, d.status, d.body, d.created_at, d.activated_at
		 FROM documents d
		 JOIN (SELECT MAX(rowid) AS rowid FROM documents WHERE kind = ? GROUP BY uuid) latest
		   ON d.rowid = latest.rowid
		 ORDER BY d.doc_id, d.rowid`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Concept returns the concept stored under docID, preferring the active
// revision.
func (s *Store) Concept(ctx context.Context, docID string) (types.Concept, error) {
	var c types.Concept
	rec, err := s.LatestByID(ctx, KindConcept, docID)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(rec.Body, &c); err != nil {
		return c, fmt.Errorf("decoding concept %s: %w", docID, err)
	}
	return c, nil
}

// Pattern returns the pattern stored under docID, preferring the active
// revision.
func (s *Store) Pattern(ctx context.Context, docID string) (types.Pattern, error) {
	var p types.Pattern
	rec, err := s.LatestByID(ctx, KindPattern, docID)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(rec.Body, &p); err != nil {
		return p, fmt.Errorf("decoding pattern %s: %w", docID, err)
	}
	return p, nil
}

// Concepts resolves ids to stored concepts in order. Any missing id yields
// ErrNotFound.
func (s *Store) Concepts(ctx context.Context, ids []string) ([]types.Concept, error) {
	out := make([]types.Concept, 0, len(ids))
	for _, id := range ids {
		c, err := s.Concept(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec       Record
		body      string
		created   string
		activated sql.NullString
	)
	err := sc.Scan(&rec.Kind, &rec.UUID, &rec.DocID, &rec.Status, &body, &created, &activated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scanning document: %w", err)
	}

	rec.Body = json.RawMessage(body)
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if activated.Valid {
		t, err := time.Parse(time.RFC3339Nano, activated.String)
		if err != nil {
			return Record{}, fmt.Errorf("parsing activated_at: %w", err)
		}
		rec.ActivatedAt = &t
	}
	return rec, nil
}

func checkKind(kind string) error {
	switch kind {
	case KindConcept, KindPattern:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
}
