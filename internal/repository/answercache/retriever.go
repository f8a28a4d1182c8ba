// Package answercache caches successful knowledge-base answers in a
// key-value store in front of a retriever.
package answercache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchagent/internal/db"
	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
)

const cacheKeyPrefix = "searchagent:answer:"

// DefaultTTL is used when a non-positive TTL is configured.
const DefaultTTL = 10 * time.Minute

// retriever is the wrapped knowledge-retrieval client.
type retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
}

// store is the consumer interface for the answer cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// entry is the cached JSON form of a retrieval result.
type entry struct {
	Summary    string   `json:"summary"`
	Citations  []string `json:"citations"`
	Confidence float64  `json:"confidence"`
}

// CachedRetriever serves repeated queries from the cache.
// Only non-empty successful answers are stored; cache failures are bypassed.
type CachedRetriever struct {
	inner      retriever
	store      store
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. Keys are scoped by model so switching
// models never serves stale answers.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"error"), passed explicitly.
func New(
	inner retriever,
	s store,
	model string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedRetriever {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedRetriever{
		inner:      inner,
		store:      s,
		model:      model,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Retrieve returns a cached answer or calls the inner retriever.
func (c *CachedRetriever) Retrieve(ctx context.Context, query string) (retrieval.Result, error) {
	key := c.cacheKey(query)

	if res, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return res, nil
	}

	c.incCache("miss")

	res, err := c.inner.Retrieve(ctx, query)
	if err != nil {
		return retrieval.Result{}, fmt.Errorf("retrieve: %w", err)
	}

	if !res.Empty() {
		c.putToCache(ctx, key, res)
	}
	return res, nil
}

func (c *CachedRetriever) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedRetriever) cacheKey(query string) string {
	h := sha256.Sum256([]byte(c.model + "|" + query))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedRetriever) getFromCache(ctx context.Context, key string) (retrieval.Result, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.incCache("error")
			c.logger.Warn("Failed to get cached answer", zap.String("key", key), zap.Error(err))
		}
		return retrieval.Result{}, false
	}
	if len(data) == 0 {
		return retrieval.Result{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to parse cached answer", zap.String("key", key), zap.Error(err))
		return retrieval.Result{}, false
	}

	res := retrieval.New(e.Summary, e.Citations, e.Confidence)
	if res.Empty() {
		return retrieval.Result{}, false
	}
	return res, true
}

func (c *CachedRetriever) putToCache(ctx context.Context, key string, res retrieval.Result) {
	data, err := json.Marshal(entry{
		Summary:    res.Summary(),
		Citations:  res.Citations(),
		Confidence: res.Confidence(),
	})
	if err != nil {
		c.logger.Warn("Failed to encode answer", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.incCache("error")
		c.logger.Warn("Failed to cache answer", zap.String("key", key), zap.Error(err))
	}
}
