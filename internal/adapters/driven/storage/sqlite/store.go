package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/wardenlabs/warden/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/wardenlabs/warden/internal/core/domain"
	"github.com/wardenlabs/warden/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CatalogStore = (*Store)(nil)

// Store is the SQLite-backed catalog of standards documents and chunks. The
// same database also carries the FTS5 keyword index; see KeywordIndex.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.warden/data/catalog.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".warden", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "catalog.db")

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// KeywordIndex returns a KeywordIndex backed by this store's FTS5 table.
func (s *Store) KeywordIndex() driven.KeywordIndex {
	return &keywordIndex{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// UpsertStandard writes or replaces a standard by its StandardID.
func (s *Store) UpsertStandard(ctx context.Context, doc domain.StandardDocument) error {
	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("marshalling tags: %w", err)
	}
	globs, err := json.Marshal(doc.AppliesToGlobs)
	if err != nil {
		return fmt.Errorf("marshalling globs: %w", err)
	}
	affected, err := json.Marshal(doc.AffectedFiles)
	if err != nil {
		return fmt.Errorf("marshalling affected files: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO standards
			(standard_id, standard_type, applies_scope, title, body, tags,
			 applies_to_globs, affected_files, severity, source_file, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(standard_id) DO UPDATE SET
			standard_type = excluded.standard_type,
			applies_scope = excluded.applies_scope,
			title = excluded.title,
			body = excluded.body,
			tags = excluded.tags,
			applies_to_globs = excluded.applies_to_globs,
			affected_files = excluded.affected_files,
			severity = excluded.severity,
			source_file = excluded.source_file,
			updated_at = excluded.updated_at
	`, doc.StandardID, string(doc.Type), string(doc.Scope), doc.Title, doc.Body,
		string(tags), string(globs), string(affected),
		string(doc.Severity), doc.SourceFile, doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving standard: %w", err)
	}
	return nil
}

// UpsertChunks writes chunks keyed by their content-addressed IDs.
func (s *Store) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, standard_id, sequence, text, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			standard_id = excluded.standard_id,
			sequence = excluded.sequence,
			text = excluded.text,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.StandardID,
			chunk.Sequence, chunk.Text, embeddingBlob); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetStandard retrieves a standard by ID.
func (s *Store) GetStandard(ctx context.Context, standardID string) (*domain.StandardDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT standard_id, standard_type, applies_scope, title, body, tags,
		       applies_to_globs, affected_files, severity, source_file, updated_at
		FROM standards WHERE standard_id = ?
	`, standardID)

	return scanStandard(row)
}

// GetChunk retrieves a chunk by its content-addressed ID.
func (s *Store) GetChunk(ctx context.Context, chunkID string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, standard_id, sequence, text, embedding
		FROM chunks WHERE id = ?
	`, chunkID)

	var chunk domain.Chunk
	var embeddingBlob []byte
	if err := row.Scan(&chunk.ID, &chunk.StandardID, &chunk.Sequence,
		&chunk.Text, &embeddingBlob); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	return &chunk, nil
}

// ListByScope returns all standards with the given scope, ordered by ID.
func (s *Store) ListByScope(ctx context.Context, scope domain.AppliesScope) ([]domain.StandardDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT standard_id, standard_type, applies_scope, title, body, tags,
		       applies_to_globs, affected_files, severity, source_file, updated_at
		FROM standards WHERE applies_scope = ?
		ORDER BY standard_id
	`, string(scope))
	if err != nil {
		return nil, fmt.Errorf("querying standards: %w", err)
	}
	defer rows.Close()

	var docs []domain.StandardDocument //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanStandardRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating standards: %w", err)
	}

	return docs, nil
}

// DeleteStandard removes a standard; its chunks cascade.
func (s *Store) DeleteStandard(ctx context.Context, standardID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM standards WHERE standard_id = ?", standardID)
	if err != nil {
		return fmt.Errorf("deleting standard: %w", err)
	}
	return nil
}

// ListChunkIDs returns the IDs of all chunks belonging to a standard.
func (s *Store) ListChunkIDs(ctx context.Context, standardID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM chunks WHERE standard_id = ? ORDER BY sequence
	`, standardID)
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk ids: %w", err)
	}

	return ids, nil
}

// DeleteChunk removes a single chunk by ID.
func (s *Store) DeleteChunk(ctx context.Context, chunkID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", chunkID)
	if err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanStandard scans a single standard row.
func scanStandard(row *sql.Row) (*domain.StandardDocument, error) {
	var doc domain.StandardDocument
	var standardType, scope, severity, tags, globs, affected string
	var updatedAt sql.NullTime

	if err := row.Scan(&doc.StandardID, &standardType, &scope, &doc.Title, &doc.Body,
		&tags, &globs, &affected, &severity, &doc.SourceFile, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning standard: %w", err)
	}

	return hydrateStandard(&doc, standardType, scope, severity, tags, globs, affected, updatedAt)
}

// scanStandardRows scans a standard from *sql.Rows.
func scanStandardRows(rows *sql.Rows) (*domain.StandardDocument, error) {
	var doc domain.StandardDocument
	var standardType, scope, severity, tags, globs, affected string
	var updatedAt sql.NullTime

	if err := rows.Scan(&doc.StandardID, &standardType, &scope, &doc.Title, &doc.Body,
		&tags, &globs, &affected, &severity, &doc.SourceFile, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning standard: %w", err)
	}

	return hydrateStandard(&doc, standardType, scope, severity, tags, globs, affected, updatedAt)
}

// hydrateStandard fills the typed and JSON-encoded columns.
func hydrateStandard(
	doc *domain.StandardDocument,
	standardType, scope, severity, tags, globs, affected string,
	updatedAt sql.NullTime,
) (*domain.StandardDocument, error) {
	doc.Type = domain.StandardType(standardType)
	doc.Scope = domain.AppliesScope(scope)
	doc.Severity = domain.Severity(severity)
	if updatedAt.Valid {
		doc.UpdatedAt = updatedAt.Time
	}

	if err := json.Unmarshal([]byte(tags), &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshalling tags: %w", err)
	}
	if err := json.Unmarshal([]byte(globs), &doc.AppliesToGlobs); err != nil {
		return nil, fmt.Errorf("unmarshalling globs: %w", err)
	}
	if err := json.Unmarshal([]byte(affected), &doc.AffectedFiles); err != nil {
		return nil, fmt.Errorf("unmarshalling affected files: %w", err)
	}

	return doc, nil
}
