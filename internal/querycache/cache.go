// Package querycache is the request-scoped query cache behind server-side
// prefetch and client hydration.
//
// One Cache exists per render and is never shared between requests; that is
// the guard against cross-user data leakage, and it is also why nothing in
// here takes a lock. Prefetch runs to completion before rendering starts, so
// the cache is immutable input by the time anything reads it.
package querycache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultStaleTime matches the client cache configuration, so entries the
// server dehydrates are still fresh when the client hydrates them.
const DefaultStaleTime = 10 * time.Second

// Key is an ordered tuple of cache key segments, e.g. ["products", "offset=0&limit=12"].
type Key []string

// Hash returns the canonical identity of the key: its JSON encoding. This
// must match the client's JSON.stringify of the key array byte for byte, or
// hydration silently misses and the client refetches. JSON.stringify does
// not escape HTML characters, so neither can this; normalized query strings
// always contain &.
func (k Key) Hash() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]string(k)); err != nil {
		// Keys are string tuples; encoding cannot fail on them.
		panic("querycache: unhashable key: " + err.Error())
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// FetchFunc loads the data for one query.
type FetchFunc func(ctx context.Context) (interface{}, error)

type entry struct {
	key           Key
	data          interface{}
	dataUpdatedAt time.Time
}

// Cache is a per-request query cache.
type Cache struct {
	entries   map[string]*entry
	order     []string // insertion order, for a stable dehydrated snapshot
	staleTime time.Duration
	now       func() time.Time
}

// New creates an empty cache with the default stale time.
func New() *Cache {
	return &Cache{
		entries:   make(map[string]*entry),
		staleTime: DefaultStaleTime,
		now:       time.Now,
	}
}

// Prefetch loads the query under the given key unless a fresh entry already
// exists. A fetch error leaves the cache without the entry; the dehydrated
// snapshot only ever carries successful queries.
func (c *Cache) Prefetch(ctx context.Context, key Key, fn FetchFunc) error {
	hash := key.Hash()
	if e, ok := c.entries[hash]; ok && c.now().Sub(e.dataUpdatedAt) < c.staleTime {
		return nil
	}

	data, err := fn(ctx)
	if err != nil {
		return fmt.Errorf("prefetch %s: %w", hash, err)
	}

	if _, ok := c.entries[hash]; !ok {
		c.order = append(c.order, hash)
	}
	c.entries[hash] = &entry{key: key, data: data, dataUpdatedAt: c.now()}
	return nil
}

// Get returns the cached data for the key, stale or not.
func (c *Cache) Get(key Key) (interface{}, bool) {
	e, ok := c.entries[key.Hash()]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Len returns the number of cached queries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Dehydrate serializes the cache into the snapshot embedded in the HTML
// tail. The shape mirrors the client cache's own serialized form.
func (c *Cache) Dehydrate() *DehydratedState {
	state := &DehydratedState{
		Mutations: []json.RawMessage{},
		Queries:   make([]DehydratedQuery, 0, len(c.order)),
	}
	for _, hash := range c.order {
		e := c.entries[hash]
		state.Queries = append(state.Queries, DehydratedQuery{
			State: QueryState{
				Data:            e.data,
				DataUpdateCount: 1,
				DataUpdatedAt:   e.dataUpdatedAt.UnixMilli(),
				Status:          "success",
				FetchStatus:     "idle",
			},
			QueryKey:  e.key,
			QueryHash: hash,
		})
	}
	return state
}

// Hydrate rebuilds a cache from a dehydrated snapshot. The server never
// hydrates; this is the client side of the contract, kept next to Dehydrate
// so the two cannot drift apart.
func Hydrate(state *DehydratedState) *Cache {
	c := New()
	for _, q := range state.Queries {
		hash := q.QueryHash
		if hash == "" {
			hash = q.QueryKey.Hash()
		}
		if _, ok := c.entries[hash]; !ok {
			c.order = append(c.order, hash)
		}
		c.entries[hash] = &entry{
			key:           q.QueryKey,
			data:          q.State.Data,
			dataUpdatedAt: time.UnixMilli(q.State.DataUpdatedAt),
		}
	}
	return c
}

// DehydratedState is the transportable snapshot of a cache.
type DehydratedState struct {
	Mutations []json.RawMessage `json:"mutations"`
	Queries   []DehydratedQuery `json:"queries"`
}

// DehydratedQuery is one cached query inside a snapshot.
type DehydratedQuery struct {
	State     QueryState `json:"state"`
	QueryKey  Key        `json:"queryKey"`
	QueryHash string     `json:"queryHash"`
}

// QueryState carries the query result plus the bookkeeping fields the client
// cache expects when seeding itself from the snapshot.
type QueryState struct {
	Data               interface{} `json:"data"`
	DataUpdateCount    int         `json:"dataUpdateCount"`
	DataUpdatedAt      int64       `json:"dataUpdatedAt"`
	Error              interface{} `json:"error"`
	ErrorUpdateCount   int         `json:"errorUpdateCount"`
	ErrorUpdatedAt     int64       `json:"errorUpdatedAt"`
	FetchFailureCount  int         `json:"fetchFailureCount"`
	FetchFailureReason interface{} `json:"fetchFailureReason"`
	FetchMeta          interface{} `json:"fetchMeta"`
	IsInvalidated      bool        `json:"isInvalidated"`
	Status             string      `json:"status"`
	FetchStatus        string      `json:"fetchStatus"`
}
