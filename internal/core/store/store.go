// Package store persists documents per tenant and applies update operations
// to them with optimistic concurrency.
//
// Every write is a compare-and-swap on the row version. A writer that loses
// the race re-reads the document, re-applies its operation and tries again,
// up to the configured retry limit.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/solatis/docupdate/internal/codec"
	"github.com/solatis/docupdate/internal/core/config"
	"github.com/solatis/docupdate/internal/core/db"
	"github.com/solatis/docupdate/internal/types"
	"github.com/solatis/docupdate/internal/update"
)

// Document is a stored document at a specific version.
type Document struct {
	ID        types.DocumentID
	Version   int64
	Body      any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary describes a stored document without its body.
type Summary struct {
	ID        types.DocumentID `db:"document_id" json:"id"`
	Version   int64            `db:"version" json:"version"`
	SizeBytes int              `db:"size_bytes" json:"size_bytes"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

type row struct {
	ID        string    `db:"document_id"`
	Version   int64     `db:"version"`
	Body      []byte    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Store reads and writes documents through named queries.
type Store struct {
	queries    *db.Queries
	engine     *update.Engine
	logger     *slog.Logger
	maxRetries int
	maxSize    int
	maxBatch   int
	compress   bool
	now        func() time.Time
}

// New creates a store. A nil engine uses update.NewEngine defaults.
func New(queries *db.Queries, engine *update.Engine, cfg *config.ServerConfig, logger *slog.Logger) (*Store, error) {
	if queries == nil {
		return nil, fmt.Errorf("queries cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if engine == nil {
		engine = update.NewEngine()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		queries:    queries,
		engine:     engine,
		logger:     logger,
		maxRetries: cfg.Store.MaxRetries,
		maxSize:    cfg.MaxDocumentSize,
		maxBatch:   cfg.MaxBatchSize,
		compress:   cfg.Store.Compress,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Engine returns the update engine documents are modified with.
func (s *Store) Engine() *update.Engine {
	return s.engine
}

// Create stores body as a new document at version 1.
func (s *Store) Create(ctx context.Context, tenant types.TenantID, body any) (*Document, error) {
	if types.KindOf(body) != types.KindObject {
		return nil, fmt.Errorf("%w: document root must be an object, got %s", types.ErrInvalidOperation, types.KindOf(body))
	}
	data, err := s.encode(body)
	if err != nil {
		return nil, err
	}

	id := types.NewDocumentID()
	now := s.now()
	if _, err := s.queries.Exec(ctx, "insert-document", string(tenant), string(id), data, len(data), now, now); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	s.logger.DebugContext(ctx, "document created", "tenant_id", tenant, "document_id", id, "size_bytes", len(data))
	return &Document{ID: id, Version: 1, Body: body, CreatedAt: now, UpdatedAt: now}, nil
}

// Get loads the current version of a document.
func (s *Store) Get(ctx context.Context, tenant types.TenantID, id types.DocumentID) (*Document, error) {
	r, err := s.load(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	return r.document()
}

// List returns up to limit document summaries ordered by ID.
func (s *Store) List(ctx context.Context, tenant types.TenantID, limit int) ([]Summary, error) {
	var out []Summary
	if err := s.queries.Select(ctx, "list-documents", &out, string(tenant), limit); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return out, nil
}

// Replace overwrites the body of an existing document.
func (s *Store) Replace(ctx context.Context, tenant types.TenantID, id types.DocumentID, body any) (*Document, error) {
	if types.KindOf(body) != types.KindObject {
		return nil, fmt.Errorf("%w: document root must be an object, got %s", types.ErrInvalidOperation, types.KindOf(body))
	}
	return s.mutate(ctx, tenant, id, func(any) (any, error) { return body, nil })
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, tenant types.TenantID, id types.DocumentID) error {
	res, err := s.queries.Exec(ctx, "delete-document", string(tenant), string(id))
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if n == 0 {
		return types.ErrDocumentNotFound
	}
	return nil
}

// Apply runs op against the stored document and saves the result.
func (s *Store) Apply(ctx context.Context, tenant types.TenantID, id types.DocumentID, op any) (*Document, error) {
	return s.mutate(ctx, tenant, id, func(doc any) (any, error) {
		return s.engine.Update(doc, op)
	})
}

// ApplyAtPath runs op against the sub-document at path.
func (s *Store) ApplyAtPath(ctx context.Context, tenant types.TenantID, id types.DocumentID, path string, op any) (*Document, error) {
	if path == "" {
		return s.Apply(ctx, tenant, id, op)
	}
	return s.mutate(ctx, tenant, id, func(doc any) (any, error) {
		return s.engine.UpdateAtPath(doc, path, op)
	})
}

// ApplyBatch merges ops into one operation and applies it in a single write.
func (s *Store) ApplyBatch(ctx context.Context, tenant types.TenantID, id types.DocumentID, ops []any) (*Document, error) {
	if len(ops) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d operations, limit %d", types.ErrTooManyOperations, len(ops), s.maxBatch)
	}
	merged, err := update.Merge(ops...)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, tenant, id, merged)
}

// mutate is the read-modify-CAS loop shared by every write.
func (s *Store) mutate(ctx context.Context, tenant types.TenantID, id types.DocumentID, fn func(any) (any, error)) (*Document, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, err := s.load(ctx, tenant, id)
		if err != nil {
			return nil, err
		}
		current, err := r.document()
		if err != nil {
			return nil, err
		}

		next, err := fn(current.Body)
		if err != nil {
			return nil, err
		}
		if types.KindOf(next) != types.KindObject {
			return nil, fmt.Errorf("%w: document root must remain an object, got %s", types.ErrInvalidOperation, types.KindOf(next))
		}
		data, err := s.encode(next)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(data, r.Body) {
			// no-op update, nothing to write
			return current, nil
		}

		now := s.now()
		res, err := s.queries.Exec(ctx, "update-document-cas", data, len(data), now, string(tenant), string(id), r.Version)
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		if n == 1 {
			return &Document{
				ID:        id,
				Version:   r.Version + 1,
				Body:      next,
				CreatedAt: r.CreatedAt,
				UpdatedAt: now,
			}, nil
		}

		s.logger.DebugContext(ctx, "version conflict, retrying",
			"tenant_id", tenant, "document_id", id, "version", r.Version, "attempt", attempt)
	}

	s.logger.WarnContext(ctx, "gave up after version conflicts",
		"tenant_id", tenant, "document_id", id, "attempts", s.maxRetries)
	return nil, fmt.Errorf("%w: %d attempts", types.ErrVersionConflict, s.maxRetries)
}

func (s *Store) load(ctx context.Context, tenant types.TenantID, id types.DocumentID) (*row, error) {
	var r row
	err := s.queries.Get(ctx, "get-document", &r, string(tenant), string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &r, nil
}

func (s *Store) encode(body any) ([]byte, error) {
	data, err := codec.Encode(body, s.compress)
	if err != nil {
		return nil, err
	}
	if len(data) > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", types.ErrDocumentTooLarge, len(data), s.maxSize)
	}
	return data, nil
}

func (r *row) document() (*Document, error) {
	body, err := codec.Decode(r.Body)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", r.ID, err)
	}
	return &Document{
		ID:        types.DocumentID(r.ID),
		Version:   r.Version,
		Body:      body,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}
