// Package session keeps the result of each successful analysis run as an
// immutable snapshot, addressable by ID until it expires or is reset.
package session

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/varunidealabs/cash-flow-analyzer/internal/cashflow"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

// Session is the outcome of one run. It is never mutated after creation;
// a new run produces a new Session.
type Session struct {
	ID           string           `json:"id"`
	RunID        string           `json:"run_id"`
	DocumentName string           `json:"document_name"`
	CreatedAt    time.Time        `json:"created_at"`
	Ledger       domain.Ledger    `json:"-"`
	Bundle       *cashflow.Bundle `json:"bundle"`
}

// New creates a session for a finished run.
func New(runID, documentName string, ledger domain.Ledger, bundle *cashflow.Bundle) *Session {
	return &Session{
		ID:           uuid.NewString(),
		RunID:        runID,
		DocumentName: documentName,
		CreatedAt:    time.Now().UTC(),
		Ledger:       ledger,
		Bundle:       bundle,
	}
}

// Transactions returns a copy of the ledger that callers may filter freely.
func (s *Session) Transactions() domain.Ledger {
	return s.Ledger.Clone()
}

const (
	sessionPrefix = "session:"
	derivedPrefix = "derived:"
)

// Store holds sessions and values derived from them (generated insights,
// for example) with a sliding TTL.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a store whose entries expire after ttl.
func NewStore(ttl time.Duration) *Store {
	cleanup := ttl / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Store{cache: cache.New(ttl, cleanup)}
}

// Put stores s, replacing any session with the same ID wholesale. Values
// derived from the previous session are dropped.
func (st *Store) Put(s *Session) {
	st.dropDerived(s.ID)
	st.cache.Set(sessionPrefix+s.ID, s, cache.DefaultExpiration)
}

// Get returns the session and refreshes its expiry.
func (st *Store) Get(id string) (*Session, bool) {
	v, ok := st.cache.Get(sessionPrefix + id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	st.cache.Set(sessionPrefix+id, s, cache.DefaultExpiration)
	return s, true
}

// Reset discards the session and everything derived from it.
func (st *Store) Reset(id string) bool {
	_, ok := st.cache.Get(sessionPrefix + id)
	st.cache.Delete(sessionPrefix + id)
	st.dropDerived(id)
	return ok
}

// List returns the live sessions, newest first.
func (st *Store) List() []*Session {
	var out []*Session
	for k, item := range st.cache.Items() {
		if strings.HasPrefix(k, sessionPrefix) {
			out = append(out, item.Object.(*Session))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SetDerived caches a value computed from the session, such as insights.
func (st *Store) SetDerived(id, key string, v interface{}) {
	st.cache.Set(derivedKey(id, key), v, cache.DefaultExpiration)
}

// Derived returns a cached value computed from the session.
func (st *Store) Derived(id, key string) (interface{}, bool) {
	return st.cache.Get(derivedKey(id, key))
}

func (st *Store) dropDerived(id string) {
	prefix := derivedPrefix + id + ":"
	for k := range st.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			st.cache.Delete(k)
		}
	}
}

func derivedKey(id, key string) string {
	return derivedPrefix + id + ":" + key
}
