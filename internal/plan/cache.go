package plan

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/vektah/gqlparser/v2/formatter"

	language "github.com/hanpama/graphexec/internal/language"
)

// Cache maps operation signatures to compiled plans with bounded LRU+TTL
// eviction. Entries are read-mostly; the underlying map is locked only
// around lookup and insert, never around compilation, so concurrent misses
// for one signature may compile redundantly (compilation is pure, the last
// insert wins).
type Cache struct {
	lru *expirable.LRU[uint64, *CompiledPlan]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCache creates a plan cache holding at most size entries, each expiring
// ttl after insertion. A zero ttl disables expiry.
func NewCache(size int, ttl time.Duration) *Cache {
	c := &Cache{}
	c.lru = expirable.NewLRU(size, func(uint64, *CompiledPlan) {
		c.evictions.Add(1)
	}, ttl)
	return c
}

// GetOrCompile returns the cached plan for sig, or invokes compile and
// caches the result. The returned bool reports a cache hit.
func (c *Cache) GetOrCompile(sig uint64, compile func() (*CompiledPlan, error)) (*CompiledPlan, bool, error) {
	if p, ok := c.lru.Get(sig); ok {
		c.hits.Add(1)
		return p, true, nil
	}
	c.misses.Add(1)
	p, err := compile()
	if err != nil {
		return nil, false, err
	}
	c.lru.Add(sig, p)
	return p, false, nil
}

// Purge drops all cached plans, e.g. on schema reload.
func (c *Cache) Purge() { c.lru.Purge() }

// Stats reports cache effectiveness counters.
type Stats struct {
	Size      int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits over total lookups, zero when no lookups occurred.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (c *Cache) Stats() Stats {
	return Stats{
		Size:      c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Signature derives the 64-bit cache key for one operation: a hash of the
// formatted operation text plus the fragment definitions it references
// (sorted by name), independent of variable values and source formatting.
func Signature(document *language.QueryDocument, operationName string) uint64 {
	h := xxhash.New()
	operation := getOperation(document, operationName)
	if operation == nil {
		return 0
	}

	normalized := &language.QueryDocument{
		Operations: []*language.OperationDefinition{operation},
	}
	for _, name := range referencedFragments(document, operation.SelectionSet, map[string]bool{}) {
		if f := document.Fragments.ForName(name); f != nil {
			normalized.Fragments = append(normalized.Fragments, f)
		}
	}
	formatter.NewFormatter(h).FormatQueryDocument(normalized)
	return h.Sum64()
}

func referencedFragments(document *language.QueryDocument, selectionSet language.SelectionSet, seen map[string]bool) []string {
	var names []string
	var walk func(language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *language.Field:
				walk(s.SelectionSet)
			case *language.InlineFragment:
				walk(s.SelectionSet)
			case *language.FragmentSpread:
				if seen[s.Name] {
					continue
				}
				seen[s.Name] = true
				names = append(names, s.Name)
				if f := document.Fragments.ForName(s.Name); f != nil {
					walk(f.SelectionSet)
				}
			}
		}
	}
	walk(selectionSet)
	sort.Strings(names)
	return names
}
