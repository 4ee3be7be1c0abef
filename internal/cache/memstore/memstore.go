// Package memstore is an in-process cache backend over an expirable LRU.
// Used for single-node deployments and tests; redis is the shared backend.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache"
)

var _ cache.Interface = (*Store)(nil)

type Store struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, []byte]
	ttl time.Duration
}

// New builds a store whose entries expire after defaultTTL. The expirable
// LRU has one TTL per cache, so per-call TTLs shorter than defaultTTL are
// honored by storing an explicit deadline alongside the value.
func New(size int, defaultTTL time.Duration) *Store {
	if size <= 0 {
		size = 4096
	}
	return &Store{
		lru: expirable.NewLRU[string, []byte](size, nil, defaultTTL),
		ttl: defaultTTL,
	}
}

type entry struct {
	deadline time.Time
	val      []byte
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	e := decode(raw)
	if !e.deadline.IsZero() && time.Now().After(e.deadline) {
		s.lru.Remove(key)
		return nil, false, nil
	}
	out := make([]byte, len(e.val))
	copy(out, e.val)
	return out, true, nil
}

func (s *Store) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	var deadline time.Time
	if ttl > 0 && ttl < s.ttl {
		deadline = time.Now().Add(ttl)
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Add(key, encode(entry{deadline: deadline, val: cp}))
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.lru.Remove(k)
	}
	return nil
}

// Values carry an 8-byte big-endian unix-nano deadline prefix (zero means
// "use the LRU's own TTL").
func encode(e entry) []byte {
	out := make([]byte, 8+len(e.val))
	var ns int64
	if !e.deadline.IsZero() {
		ns = e.deadline.UnixNano()
	}
	for i := 0; i < 8; i++ {
		out[i] = byte(ns >> (56 - 8*i))
	}
	copy(out[8:], e.val)
	return out
}

func decode(raw []byte) entry {
	if len(raw) < 8 {
		return entry{val: raw}
	}
	var ns int64
	for i := 0; i < 8; i++ {
		ns = ns<<8 | int64(raw[i])
	}
	e := entry{val: raw[8:]}
	if ns != 0 {
		e.deadline = time.Unix(0, ns)
	}
	return e
}
