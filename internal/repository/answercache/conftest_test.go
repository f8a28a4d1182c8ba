package answercache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchagent/internal/db"
	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
)

type mockRetriever struct {
	result retrieval.Result
	err    error
	calls  int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string) (retrieval.Result, error) {
	m.calls++
	return m.result, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedRetriever(t *testing.T, inner *mockRetriever) (*CachedRetriever, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	cr := New(inner, ms, "test-model", time.Minute, nil, zap.NewNop())
	return cr, ms
}
