package memory

import (
	"fmt"
	"sync"
	"testing"

	"dytallix.io/pqcwallet/archive"
	"dytallix.io/pqcwallet/archive/archivetest"
)

func TestConformance(t *testing.T) {
	archivetest.RunStoreConformance(t, func(t *testing.T) archive.Store {
		return New()
	})
}

func TestConcurrentPuts(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b := []byte(fmt.Sprintf("object-%d", j))
				id, err := s.Put(b)
				if err != nil {
					t.Errorf("Put: %v", err)
					return
				}
				if _, err := s.Get(id); err != nil {
					t.Errorf("Get: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Fatalf("Len: got %d, want 50", s.Len())
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := New()
	id, err := s.Put([]byte("immutable"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	b, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b[0] = 'X'
	again, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(again) != "immutable" {
		t.Fatalf("caller mutation leaked into the store: %q", again)
	}
}
