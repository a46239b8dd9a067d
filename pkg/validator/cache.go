package validator

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/leapstack-labs/leapgate/pkg/core"
	"github.com/leapstack-labs/leapgate/pkg/parser"
)

// maxCachedLen keeps very large scripts out of the cache.
const maxCachedLen = 64 << 10

type cacheKey struct {
	syntax parser.Syntax
	sql    string
}

// Cached memoizes validation results in a fixed-size LRU keyed by syntax
// and text. Results are cloned on the way in and out so callers can never
// mutate cached state.
type Cached struct {
	cache *lru.Cache[cacheKey, core.ValidationResult]
}

// NewCached returns a memoizing validator holding up to size results.
func NewCached(size int) (*Cached, error) {
	cache, err := lru.New[cacheKey, core.ValidationResult](size)
	if err != nil {
		return nil, fmt.Errorf("creating validation cache: %w", err)
	}
	return &Cached{cache: cache}, nil
}

// Validate returns the cached default-syntax result for sql.
func (c *Cached) Validate(sql string) core.ValidationResult {
	return c.validate(sql, parser.SyntaxDefault)
}

// ValidateFor returns the cached result for sql as kind tokenizes it.
func (c *Cached) ValidateFor(sql string, kind core.EngineKind) core.ValidationResult {
	return c.validate(sql, SyntaxOf(kind))
}

func (c *Cached) validate(sql string, syntax parser.Syntax) core.ValidationResult {
	key := cacheKey{syntax: syntax, sql: sql}
	if res, ok := c.cache.Get(key); ok {
		return res.Clone()
	}
	res := ValidateAs(sql, syntax)
	if len(sql) <= maxCachedLen {
		c.cache.Add(key, res.Clone())
	}
	return res
}

// Len reports the number of cached results.
func (c *Cached) Len() int {
	return c.cache.Len()
}
