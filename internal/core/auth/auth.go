// Package auth provides HMAC-based API key authentication for the gRPC and
// HTTP document services.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/docupdate/internal/types"
)

// HeaderAPIKey carries the API key in HTTP headers and gRPC metadata.
const HeaderAPIKey = "x-api-key"

type contextKey string

const tenantIDKey = contextKey("tenant_id")

// lastUsedThrottle limits last_used_at writes to one per key per minute.
const lastUsedThrottle = time.Minute

// Queries is the subset of *db.Queries authentication needs.
type Queries interface {
	Get(ctx context.Context, name string, dest any, args ...any) error
	Exec(ctx context.Context, name string, args ...any) (sql.Result, error)
}

// Authenticator validates API keys against stored HMAC hashes.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	now     func() time.Time
}

// NewAuthenticator creates an authenticator from secret_id -> secret pairs.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type keyRecord struct {
	APIKeyID   string       `db:"api_key_id"`
	TenantID   string       `db:"tenant_id"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
}

// Authenticate validates apiKey and returns the tenant it belongs to.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (types.TenantID, error) {
	if apiKey == "" {
		return "", ErrMissingKey
	}
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	var rec keyRecord
	err = a.queries.Get(ctx, "get-api-key-by-hash", &rec, ComputeHMAC(secret, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if rec.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	if !rec.LastUsedAt.Valid || a.now().Sub(rec.LastUsedAt.Time) > lastUsedThrottle {
		_, _ = a.queries.Exec(ctx, "update-last-used", a.now(), rec.APIKeyID)
	}

	return types.TenantID(rec.TenantID), nil
}

// IssueKey creates and stores a key for tenant, signed with the secret
// registered under secretID. The plaintext key is only returned here.
func (a *Authenticator) IssueKey(ctx context.Context, tenant types.TenantID, name, secretID string) (apiKey, keyID string, err error) {
	secret, ok := a.secrets[secretID]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownKey, secretID)
	}
	apiKey, err = GenerateAPIKey(secretID)
	if err != nil {
		return "", "", err
	}

	keyID = uuid.Must(uuid.NewV7()).String()
	_, err = a.queries.Exec(ctx, "insert-api-key", keyID, string(tenant), name, ComputeHMAC(secret, apiKey), secretID, a.now())
	if err != nil {
		return "", "", fmt.Errorf("failed to store API key: %w", err)
	}
	return apiKey, keyID, nil
}

// RevokeKey marks a key as revoked. Revoking twice is not an error.
func (a *Authenticator) RevokeKey(ctx context.Context, keyID string) error {
	if _, err := a.queries.Exec(ctx, "revoke-api-key", a.now(), keyID); err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}
	return nil
}

// GRPCCode maps an authentication error onto a gRPC status code.
func GRPCCode(err error) codes.Code {
	switch {
	case errors.Is(err, ErrKeyRevoked):
		return codes.PermissionDenied
	case errors.Is(err, ErrUnavailable):
		return codes.Unavailable
	default:
		return codes.Unauthenticated
	}
}

// HTTPStatus maps an authentication error onto an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrKeyRevoked):
		return http.StatusForbidden
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

// UnaryInterceptor authenticates every call except health checks.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		keys := md.Get(HeaderAPIKey)
		if len(keys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		tenant, err := a.Authenticate(ctx, keys[0])
		if err != nil {
			return nil, status.Error(GRPCCode(err), err.Error())
		}
		return handler(WithTenant(ctx, tenant), req)
	}
}

// WithTenant returns a context carrying the authenticated tenant.
func WithTenant(ctx context.Context, tenant types.TenantID) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenant)
}

// TenantFromContext returns the authenticated tenant, or "" if none.
func TenantFromContext(ctx context.Context) types.TenantID {
	tenant, _ := ctx.Value(tenantIDKey).(types.TenantID)
	return tenant
}
