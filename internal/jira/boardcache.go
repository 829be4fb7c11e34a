package jira

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// BoardCache memoizes board-name lookups per (host, project) for the process
// lifetime. An entry is in one of three states: absent, in-flight (every
// concurrent caller awaits the same underlying lookup), or resolved. Failed
// lookups resolve to an empty list and are never retried; board membership
// rarely changes within a session.
//
// The cache is an explicit object injected into the client rather than a
// package-level singleton, so every test can construct a fresh one.
type BoardCache struct {
	mu      sync.Mutex
	entries map[string][]string
	group   singleflight.Group
}

// NewBoardCache creates an empty board cache.
func NewBoardCache() *BoardCache {
	return &BoardCache{
		entries: make(map[string][]string),
	}
}

func cacheKey(host, projectKey string) string {
	return host + "::" + projectKey
}

// Get returns the cached board names for the key, running fetch at most once
// across all concurrent callers when the entry is absent.
func (bc *BoardCache) Get(host, projectKey string, fetch func() ([]string, error)) []string {
	key := cacheKey(host, projectKey)

	bc.mu.Lock()
	if names, ok := bc.entries[key]; ok {
		bc.mu.Unlock()
		return names
	}
	bc.mu.Unlock()

	resolved, _, _ := bc.group.Do(key, func() (interface{}, error) {
		names, err := fetch()
		if err != nil || names == nil {
			names = []string{}
		}
		bc.mu.Lock()
		bc.entries[key] = names
		bc.mu.Unlock()
		return names, nil
	})

	return resolved.([]string)
}

// Resolved reports whether the key already holds a resolved entry.
func (bc *BoardCache) Resolved(host, projectKey string) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	_, ok := bc.entries[cacheKey(host, projectKey)]
	return ok
}

// Len returns the number of resolved entries.
func (bc *BoardCache) Len() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.entries)
}
