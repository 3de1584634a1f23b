// Package memory is an in-memory archive store for tests and ephemeral use.
package memory

import (
	"bytes"
	"sync"

	"github.com/ipfs/go-cid"

	"dytallix.io/pqcwallet/archive"
)

// Store keeps objects in a map guarded by a mutex; safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[cid.Cid][]byte
}

func New() *Store {
	return &Store{objects: make(map[cid.Cid][]byte)}
}

func (s *Store) Put(data []byte) (cid.Cid, error) {
	id, err := archive.CID(data)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, archive.ErrInvalidCID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.objects[id]; ok {
		if !bytes.Equal(existing, data) {
			return cid.Undef, archive.ErrImmutable
		}
		return id, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[id] = cp
	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, archive.ErrInvalidCID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[id]
	if !ok {
		return nil, archive.ErrNotFound
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[id]
	return ok
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
