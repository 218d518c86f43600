package api

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/docupdate/internal/core/auth"
	"github.com/solatis/docupdate/internal/core/config"
	"github.com/solatis/docupdate/internal/core/db"
	"github.com/solatis/docupdate/internal/core/store"
	"github.com/solatis/docupdate/internal/types"
)

func newTestService(t *testing.T) *DocumentService {
	t.Helper()
	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.MigrateUp(conn))
	queries, err := db.LoadQueries(conn)
	require.NoError(t, err)

	st, err := store.New(queries, nil, config.DefaultServerConfig(), nil)
	require.NoError(t, err)
	svc, err := NewDocumentService(st, nil)
	require.NoError(t, err)
	return svc
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func tenantCtx() context.Context {
	return auth.WithTenant(context.Background(), types.TenantID("tenant-a"))
}

func TestDocumentService_Lifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := tenantCtx()

	created, err := svc.CreateDocument(ctx, mustStruct(t, map[string]any{
		"document": map[string]any{"count": 1, "tags": []any{"a"}},
	}))
	require.NoError(t, err)
	id := created.AsMap()["id"].(string)
	assert.Equal(t, float64(1), created.AsMap()["version"])

	updated, err := svc.UpdateDocument(ctx, mustStruct(t, map[string]any{
		"id":        id,
		"operation": map[string]any{"$inc": map[string]any{"count": 2}, "$push": map[string]any{"tags": "b"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": float64(3), "tags": []any{"a", "b"}}, updated.AsMap()["document"])

	batched, err := svc.UpdateDocument(ctx, mustStruct(t, map[string]any{
		"id": id,
		"operations": []any{
			map[string]any{"$inc": map[string]any{"count": 1}},
			map[string]any{"$inc": map[string]any{"count": 1}},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(5), batched.AsMap()["document"].(map[string]any)["count"])
	assert.Equal(t, float64(3), batched.AsMap()["version"])

	nested, err := svc.UpdateDocument(ctx, mustStruct(t, map[string]any{
		"id":        id,
		"path":      "meta",
		"operation": map[string]any{"$set": map[string]any{"owner": "x"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"owner": "x"}, nested.AsMap()["document"].(map[string]any)["meta"])

	got, err := svc.GetDocument(ctx, mustStruct(t, map[string]any{"id": id}))
	require.NoError(t, err)
	assert.Equal(t, nested.AsMap()["document"], got.AsMap()["document"])

	_, err = svc.DeleteDocument(ctx, mustStruct(t, map[string]any{"id": id}))
	require.NoError(t, err)
	_, err = svc.GetDocument(ctx, mustStruct(t, map[string]any{"id": id}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestDocumentService_Errors(t *testing.T) {
	svc := newTestService(t)
	ctx := tenantCtx()

	created, err := svc.CreateDocument(ctx, mustStruct(t, map[string]any{"document": map[string]any{"name": "x"}}))
	require.NoError(t, err)
	id := created.AsMap()["id"].(string)

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"create without object", func() error {
			_, err := svc.CreateDocument(ctx, mustStruct(t, map[string]any{"document": "nope"}))
			return err
		}, codes.InvalidArgument},
		{"bad id", func() error {
			_, err := svc.GetDocument(ctx, mustStruct(t, map[string]any{"id": "not-a-uuid"}))
			return err
		}, codes.InvalidArgument},
		{"missing operation", func() error {
			_, err := svc.UpdateDocument(ctx, mustStruct(t, map[string]any{"id": id}))
			return err
		}, codes.InvalidArgument},
		{"operator mismatch", func() error {
			_, err := svc.UpdateDocument(ctx, mustStruct(t, map[string]any{
				"id": id, "operation": map[string]any{"$push": map[string]any{"name": 1}},
			}))
			return err
		}, codes.InvalidArgument},
		{"unknown operator", func() error {
			_, err := svc.UpdateDocument(ctx, mustStruct(t, map[string]any{
				"id": id, "operation": map[string]any{"$frobnicate": map[string]any{"a": 1}},
			}))
			return err
		}, codes.InvalidArgument},
		{"path with batch", func() error {
			_, err := svc.UpdateDocument(ctx, mustStruct(t, map[string]any{
				"id": id, "path": "a", "operations": []any{},
			}))
			return err
		}, codes.InvalidArgument},
		{"no tenant", func() error {
			_, err := svc.GetDocument(context.Background(), mustStruct(t, map[string]any{"id": id}))
			return err
		}, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(tt.call()))
		})
	}
}

func TestDocumentService_MergeOperations(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.MergeOperations(context.Background(), mustStruct(t, map[string]any{
		"operations": []any{
			map[string]any{"$inc": map[string]any{"n": 1}},
			map[string]any{"$inc": map[string]any{"n": 2}, "$set": map[string]any{"a": "b"}},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"$inc": map[string]any{"n": float64(3)},
		"$set": map[string]any{"a": "b"},
	}, resp.AsMap()["operation"])

	_, err = svc.MergeOperations(context.Background(), mustStruct(t, map[string]any{"operations": "x"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDocumentServiceDesc_OverGRPC(t *testing.T) {
	svc := newTestService(t)

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			return handler(auth.WithTenant(ctx, "tenant-a"), req)
		},
	))
	RegisterDocumentServiceServer(server, svc)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })
	client := NewDocumentServiceClient(cc)

	ctx := context.Background()
	created, err := client.CreateDocument(ctx, mustStruct(t, map[string]any{"document": map[string]any{"x": 1}}))
	require.NoError(t, err)

	got, err := client.UpdateDocument(ctx, mustStruct(t, map[string]any{
		"id":        created.AsMap()["id"],
		"operation": map[string]any{"$mul": map[string]any{"x": 4}},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(4)}, got.AsMap()["document"])

	_, err = client.GetDocument(ctx, mustStruct(t, map[string]any{"id": string(types.NewDocumentID())}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}
