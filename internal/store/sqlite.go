package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteStore persists documents, chunks, embeddings, and similarity edges.
// It also implements DenseIndex via an exact brute-force cosine scan over
// the embeddings table, which doubles as the "exact" search strategy.
type SQLiteStore struct {
	mu        sync.RWMutex
	db        *sql.DB
	path      string
	dimension int // 0 until the first embedding is stored
	closed    bool
}

// NewSQLiteStore opens (or creates) the store at path.
// An empty path creates an in-memory store for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite; set pragmas explicitly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.loadDimension(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to read stored dimension: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		author        TEXT NOT NULL DEFAULT '',
		year          INTEGER NOT NULL DEFAULT 0,
		page_count    INTEGER NOT NULL DEFAULT 0,
		metadata      TEXT NOT NULL DEFAULT '{}',
		created_at    INTEGER NOT NULL,
		indexed_at    INTEGER NOT NULL,
		last_accessed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		content     TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		chunk_index INTEGER NOT NULL,
		start_pos   INTEGER NOT NULL,
		end_pos     INTEGER NOT NULL,
		UNIQUE(document_id, chunk_index)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

	CREATE TABLE IF NOT EXISTS embeddings (
		chunk_id  TEXT PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
		vector    BLOB NOT NULL,
		dimension INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS similarity_edges (
		source_document_id TEXT NOT NULL,
		target_document_id TEXT NOT NULL,
		score              REAL NOT NULL,
		PRIMARY KEY (source_document_id, target_document_id)
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// loadDimension recovers the established embedding dimension after reopen.
func (s *SQLiteStore) loadDimension() error {
	var dim sql.NullInt64
	err := s.db.QueryRow(`SELECT dimension FROM embeddings LIMIT 1`).Scan(&dim)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	s.dimension = int(dim.Int64)
	return nil
}

// SaveDocument inserts or replaces a document row.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents
		(id, title, author, year, page_count, metadata, created_at, indexed_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Author, doc.Year, doc.PageCount, string(meta),
		doc.CreatedAt.UnixNano(), doc.IndexedAt.UnixNano(), doc.LastAccessed.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns the document with the given ID, or ErrNotFound.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, author, year, page_count, metadata, created_at, indexed_at, last_accessed
		FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// GetAllDocuments returns every stored document ordered by creation time.
func (s *SQLiteStore) GetAllDocuments(ctx context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, author, year, page_count, metadata, created_at, indexed_at, last_accessed
		FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var meta string
	var created, indexed, accessed int64
	err := row.Scan(&doc.ID, &doc.Title, &doc.Author, &doc.Year, &doc.PageCount,
		&meta, &created, &indexed, &accessed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	doc.CreatedAt = time.Unix(0, created)
	doc.IndexedAt = time.Unix(0, indexed)
	doc.LastAccessed = time.Unix(0, accessed)
	return &doc, nil
}

// DeleteDocument removes a document, its chunks, their embeddings, and its
// similarity edges in one transaction. Either the whole cascade succeeds or
// the prior state remains intact.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	// Chunks and embeddings cascade via foreign keys; edges are keyed by
	// document ID pairs and must be removed explicitly.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM similarity_edges
		WHERE source_document_id = ? OR target_document_id = ?`, id, id)
	if err != nil {
		return fmt.Errorf("failed to delete similarity edges for %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cascade delete: %w", err)
	}

	slog.Debug("document_deleted", slog.String("document_id", id))
	return nil
}

// SaveChunks persists chunks with their embeddings. Chunks without an
// embedding (vectors[i] == nil) are stored without one; VerifyIntegrity
// reports them until the embedding arrives.
func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []*Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if vectors != nil && len(vectors) != len(chunks) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	// Validate dimensions up front so the transaction never partially
	// applies. The store dimension is recorded only after a successful
	// commit; a rejected or failed batch must not fix it.
	dimension := s.dimension
	for i := range chunks {
		if vectors == nil || vectors[i] == nil {
			continue
		}
		if dimension == 0 {
			dimension = len(vectors[i])
		}
		if len(vectors[i]) != dimension {
			return DimensionMismatchError{Expected: dimension, Got: len(vectors[i])}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
		(id, document_id, content, page_number, chunk_index, start_pos, end_pos)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk statement: %w", err)
	}
	defer chunkStmt.Close()

	embStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO embeddings (chunk_id, vector, dimension)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare embedding statement: %w", err)
	}
	defer embStmt.Close()

	for i, c := range chunks {
		if _, err := chunkStmt.ExecContext(ctx, c.ID, c.DocumentID, c.Content,
			c.PageNumber, c.ChunkIndex, c.StartPos, c.EndPos); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", c.ID, err)
		}
		if vectors != nil && vectors[i] != nil {
			if _, err := embStmt.ExecContext(ctx, c.ID, encodeVector(vectors[i]), len(vectors[i])); err != nil {
				return fmt.Errorf("failed to save embedding for %s: %w", c.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	s.dimension = dimension
	return nil
}

// GetChunk returns a single chunk by ID, or ErrNotFound.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, content, page_number, chunk_index, start_pos, end_pos
		FROM chunks WHERE id = ?`, id)

	var c Chunk
	err := row.Scan(&c.ID, &c.DocumentID, &c.Content, &c.PageNumber,
		&c.ChunkIndex, &c.StartPos, &c.EndPos)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunk: %w", err)
	}
	return &c, nil
}

// GetChunks returns chunks for the given IDs. Unknown IDs are skipped.
func (s *SQLiteStore) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	results := make([]*Chunk, 0, len(ids))
	for _, id := range ids {
		c, err := s.GetChunk(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, nil
}

// GetChunksForDocument returns a document's chunks ordered by chunk index.
func (s *SQLiteStore) GetChunksForDocument(ctx context.Context, documentID string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, page_number, chunk_index, start_pos, end_pos
		FROM chunks WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &c.PageNumber,
			&c.ChunkIndex, &c.StartPos, &c.EndPos); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// GetEmbedding returns the stored vector for a chunk, or ErrNotFound.
func (s *SQLiteStore) GetEmbedding(ctx context.Context, chunkID string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE chunk_id = ?`, chunkID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding: %w", err)
	}
	return decodeVector(blob), nil
}

// Dimension returns the embedding dimension established for this store,
// or 0 when no embeddings have been stored yet.
func (s *SQLiteStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Search scans all stored embeddings and returns the top-k chunks by cosine
// similarity, descending. A non-empty documentID restricts the scan to that
// document. A query whose dimension disagrees with the store fails with
// DimensionMismatchError rather than truncating or padding.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, k int, documentID string) ([]*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if k <= 0 {
		return []*SearchResult{}, nil
	}
	if s.dimension != 0 && len(query) != s.dimension {
		return nil, DimensionMismatchError{Expected: s.dimension, Got: len(query)}
	}

	q := `
		SELECT e.chunk_id, c.document_id, e.vector
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id`
	args := []any{}
	if documentID != "" {
		q += ` WHERE c.document_id = ?`
		args = append(args, documentID)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan embeddings: %w", err)
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		var chunkID, docID string
		var blob []byte
		if err := rows.Scan(&chunkID, &docID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		vec := decodeVector(blob)
		results = append(results, &SearchResult{
			ChunkID:    chunkID,
			DocumentID: docID,
			Similarity: CosineSimilarity(query, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// ComputeAndSaveSimilarities compares the given document's chunk embeddings
// against all previously stored chunks and persists document-pair edges whose
// best chunk-level similarity exceeds the threshold.
func (s *SQLiteStore) ComputeAndSaveSimilarities(ctx context.Context, documentID string, threshold float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.document_id, e.vector
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id`)
	if err != nil {
		return fmt.Errorf("failed to scan embeddings: %w", err)
	}

	var newVecs [][]float32
	othersByDoc := make(map[string][][]float32)
	for rows.Next() {
		var docID string
		var blob []byte
		if err := rows.Scan(&docID, &blob); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan embedding row: %w", err)
		}
		vec := decodeVector(blob)
		if docID == documentID {
			newVecs = append(newVecs, vec)
		} else {
			othersByDoc[docID] = append(othersByDoc[docID], vec)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(newVecs) == 0 {
		return nil
	}

	// Best chunk-pair similarity per document pair.
	edges := make(map[string]float64)
	for otherID, vecs := range othersByDoc {
		best := 0.0
		for _, a := range newVecs {
			for _, b := range vecs {
				if sim := CosineSimilarity(a, b); sim > best {
					best = sim
				}
			}
		}
		if best >= threshold {
			edges[otherID] = best
		}
	}
	if len(edges) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO similarity_edges
		(source_document_id, target_document_id, score) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge statement: %w", err)
	}
	defer stmt.Close()

	for target, score := range edges {
		if _, err := stmt.ExecContext(ctx, documentID, target, score); err != nil {
			return fmt.Errorf("failed to save edge %s->%s: %w", documentID, target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Debug("similarity_edges_saved",
		slog.String("document_id", documentID),
		slog.Int("edge_count", len(edges)))
	return nil
}

// GetSimilarDocuments returns similarity edges touching the given document,
// best first.
func (s *SQLiteStore) GetSimilarDocuments(ctx context.Context, documentID string) ([]*SimilarityEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_document_id, target_document_id, score
		FROM similarity_edges
		WHERE source_document_id = ? OR target_document_id = ?
		ORDER BY score DESC`, documentID, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []*SimilarityEdge
	for rows.Next() {
		var e SimilarityEdge
		if err := rows.Scan(&e.SourceDocumentID, &e.TargetDocumentID, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}

// VerifyIntegrity reports chunks whose parent document is missing, chunks
// that have no stored embedding, and embeddings whose dimension disagrees
// with the store's established dimension.
func (s *SQLiteStore) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	report := &IntegrityReport{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id FROM chunks c
		LEFT JOIN documents d ON d.id = c.document_id
		WHERE d.id IS NULL ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphaned chunks: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		report.OrphanedChunks = append(report.OrphanedChunks, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT c.id FROM chunks c
		LEFT JOIN embeddings e ON e.chunk_id = c.id
		WHERE e.chunk_id IS NULL ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing embeddings: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		report.MissingEmbedding = append(report.MissingEmbedding, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.dimension > 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT chunk_id FROM embeddings
			WHERE dimension != ? ORDER BY chunk_id`, s.dimension)
		if err != nil {
			return nil, fmt.Errorf("failed to query dimension drift: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			report.DimensionDrift = append(report.DimensionDrift, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// GetStatistics reports document, chunk, and edge counts.
func (s *SQLiteStore) GetStatistics(ctx context.Context) (*Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var stats Statistics
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&stats.DocumentCount); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stats.ChunkCount); err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM similarity_edges`).Scan(&stats.EdgeCount); err != nil {
		return nil, fmt.Errorf("failed to count edges: %w", err)
	}
	return &stats, nil
}

// TouchDocument updates a document's last-accessed timestamp.
func (s *SQLiteStore) TouchDocument(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET last_accessed = ? WHERE id = ?`, at.UnixNano(), id)
	return err
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
