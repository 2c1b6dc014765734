package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/ledgerlink/internal/apikey"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
)

type authenticatorFunc func(ctx context.Context, rawKey string) (*apikey.AuthContext, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, rawKey string) (*apikey.AuthContext, error) {
	return f(ctx, rawKey)
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "x-api-key header",
			headers: map[string]string{"X-Api-Key": "llk_abc"},
			want:    "llk_abc",
		},
		{
			name:    "x-api-key with surrounding whitespace",
			headers: map[string]string{"X-Api-Key": "  llk_abc  "},
			want:    "llk_abc",
		},
		{
			name:    "bearer token fallback",
			headers: map[string]string{"Authorization": "Bearer llk_abc"},
			want:    "llk_abc",
		},
		{
			name:    "bearer scheme is case insensitive",
			headers: map[string]string{"Authorization": "bearer llk_abc"},
			want:    "llk_abc",
		},
		{
			name: "x-api-key wins over authorization",
			headers: map[string]string{
				"X-Api-Key":     "llk_primary",
				"Authorization": "Bearer llk_secondary",
			},
			want: "llk_primary",
		},
		{
			name:    "non-bearer authorization is ignored",
			headers: map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			want:    "",
		},
		{
			name:    "no credentials",
			headers: map[string]string{},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractAPIKey(req))
		})
	}
}

func TestAPIKeyAuth_StoresAuthContext(t *testing.T) {
	want := &apikey.AuthContext{APIKeyID: uuid.New(), TenantID: uuid.New(), Role: apikey.RoleService}
	auth := authenticatorFunc(func(ctx context.Context, rawKey string) (*apikey.AuthContext, error) {
		assert.Equal(t, "llk_abc", rawKey)
		return want, nil
	})

	var got *apikey.AuthContext
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = AuthFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "llk_abc")
	rec := httptest.NewRecorder()
	APIKeyAuth(auth)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, want.TenantID, got.TenantID)
	assert.Equal(t, want.Role, got.Role)
}

func TestAPIKeyAuth_Unauthorized(t *testing.T) {
	auth := authenticatorFunc(func(ctx context.Context, rawKey string) (*apikey.AuthContext, error) {
		return nil, apperr.Unauthorized("Invalid API key")
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without authentication")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "llk_bogus")
	rec := httptest.NewRecorder()
	APIKeyAuth(auth)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"UNAUTHORIZED","message":"Invalid API key"}`, rec.Body.String())
}

func TestAPIKeyAuth_InfrastructureFailureIs500(t *testing.T) {
	auth := authenticatorFunc(func(ctx context.Context, rawKey string) (*apikey.AuthContext, error) {
		return nil, apperr.RepositoryError(context.DeadlineExceeded)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "llk_abc")
	rec := httptest.NewRecorder()
	APIKeyAuth(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "deadline", "internal detail stays out of the response")
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("admin passes", func(t *testing.T) {
		ac := &apikey.AuthContext{APIKeyID: uuid.New(), TenantID: uuid.New(), Role: apikey.RoleAdmin}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithAuthContext(req.Context(), ac))
		rec := httptest.NewRecorder()
		RequireAdmin(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("service role is forbidden", func(t *testing.T) {
		ac := &apikey.AuthContext{APIKeyID: uuid.New(), TenantID: uuid.New(), Role: apikey.RoleService}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithAuthContext(req.Context(), ac))
		rec := httptest.NewRecorder()
		RequireAdmin(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"FORBIDDEN","message":"Admin role required"}`, rec.Body.String())
	})

	t.Run("missing auth context is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		RequireAdmin(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	t.Run("generates when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		RequestID(next).ServeHTTP(rec, req)

		echoed := rec.Header().Get(RequestIDHeader)
		require.NotEmpty(t, echoed)
		_, err := uuid.Parse(echoed)
		assert.NoError(t, err)
		assert.Equal(t, echoed, seen, "context and response header carry the same ID")
	})

	t.Run("reuses client value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "trace-42")
		rec := httptest.NewRecorder()
		RequestID(next).ServeHTTP(rec, req)

		assert.Equal(t, "trace-42", rec.Header().Get(RequestIDHeader))
		assert.Equal(t, "trace-42", seen)
	})
}
