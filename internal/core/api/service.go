// Package api implements the gRPC document service.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/docupdate/internal/codec"
	"github.com/solatis/docupdate/internal/core/auth"
	"github.com/solatis/docupdate/internal/core/store"
	"github.com/solatis/docupdate/internal/types"
	"github.com/solatis/docupdate/internal/update"
)

// DocumentService implements DocumentServiceServer on top of a store.
// It only translates messages; the store and engine own the semantics.
type DocumentService struct {
	store  *store.Store
	logger *slog.Logger
}

var _ DocumentServiceServer = (*DocumentService)(nil)

// NewDocumentService creates the service.
func NewDocumentService(s *store.Store, logger *slog.Logger) (*DocumentService, error) {
	if s == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DocumentService{store: s, logger: logger}, nil
}

// CreateDocument stores {"document": {...}} and returns it with its ID.
func (s *DocumentService) CreateDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tenant, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	body, ok := codec.FromWire(req.AsMap()["document"]).(map[string]any)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "document must be an object")
	}

	doc, err := s.store.Create(ctx, tenant, body)
	if err != nil {
		return nil, s.fail(ctx, "create document", err)
	}
	return documentMessage(doc)
}

// GetDocument loads {"id": "..."}.
func (s *DocumentService) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tenant, id, err := requireDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Get(ctx, tenant, id)
	if err != nil {
		return nil, s.fail(ctx, "get document", err)
	}
	return documentMessage(doc)
}

// UpdateDocument applies {"id", "operation", "path"?} or, for a batch,
// {"id", "operations": [...]} merged into one write.
func (s *DocumentService) UpdateDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tenant, id, err := requireDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	fields := req.GetFields()
	path := fields["path"].GetStringValue()

	var doc *store.Document
	switch {
	case fields["operations"] != nil:
		if path != "" {
			return nil, status.Error(codes.InvalidArgument, "path cannot be combined with operations")
		}
		ops, ok := codec.FromWire(fields["operations"].AsInterface()).([]any)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "operations must be a list")
		}
		doc, err = s.store.ApplyBatch(ctx, tenant, id, ops)
	case fields["operation"] != nil:
		op := codec.FromWire(fields["operation"].AsInterface())
		doc, err = s.store.ApplyAtPath(ctx, tenant, id, path, op)
	default:
		return nil, status.Error(codes.InvalidArgument, "operation or operations required")
	}
	if err != nil {
		return nil, s.fail(ctx, "update document", err)
	}
	return documentMessage(doc)
}

// DeleteDocument removes {"id": "..."}.
func (s *DocumentService) DeleteDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tenant, id, err := requireDocument(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, tenant, id); err != nil {
		return nil, s.fail(ctx, "delete document", err)
	}
	return structpb.NewStruct(map[string]any{"id": string(id), "deleted": true})
}

// MergeOperations folds {"operations": [...]} into one operation without
// touching storage.
func (s *DocumentService) MergeOperations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ops, ok := codec.FromWire(req.AsMap()["operations"]).([]any)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "operations must be a list")
	}
	merged, err := update.Merge(ops...)
	if err != nil {
		return nil, s.fail(ctx, "merge operations", err)
	}
	wire, err := codec.ToWire(merged.Plain())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return structpb.NewStruct(map[string]any{"operation": wire})
}

func (s *DocumentService) fail(ctx context.Context, action string, err error) error {
	st := statusError(err)
	if code := status.Code(st); code == codes.Unavailable || code == codes.Internal {
		s.logger.ErrorContext(ctx, action+" failed", "error", err)
	} else {
		s.logger.DebugContext(ctx, action+" rejected", "code", code.String(), "error", err)
	}
	return st
}

func requireTenant(ctx context.Context) (types.TenantID, error) {
	tenant := auth.TenantFromContext(ctx)
	if tenant == "" {
		return "", status.Error(codes.Internal, "missing tenant_id in context")
	}
	return tenant, nil
}

func requireDocument(ctx context.Context, req *structpb.Struct) (types.TenantID, types.DocumentID, error) {
	tenant, err := requireTenant(ctx)
	if err != nil {
		return "", "", err
	}
	id, err := types.ParseDocumentID(req.GetFields()["id"].GetStringValue())
	if err != nil {
		return "", "", status.Error(codes.InvalidArgument, "id must be a UUID")
	}
	return tenant, id, nil
}

func documentMessage(doc *store.Document) (*structpb.Struct, error) {
	body, err := codec.ToWire(doc.Body)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	msg, err := structpb.NewStruct(map[string]any{
		"id":         string(doc.ID),
		"version":    doc.Version,
		"document":   body,
		"created_at": doc.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": doc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return msg, nil
}
