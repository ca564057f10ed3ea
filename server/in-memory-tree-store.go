package server

import (
	"sort"
	"sync"
)

type InMemoryTreeStore struct {
	lock  sync.Mutex
	trees map[string]*SharedTree
}

func NewInMemoryTreeStore() *InMemoryTreeStore {
	return &InMemoryTreeStore{trees: map[string]*SharedTree{}}
}

func (s *InMemoryTreeStore) Get(name string) *SharedTree {
	s.lock.Lock()
	defer s.lock.Unlock()
	t, ok := s.trees[name]
	if !ok {
		t = NewSharedTree(name)
		s.trees[name] = t
	}
	return t
}

func (s *InMemoryTreeStore) Lookup(name string) (*SharedTree, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	t, ok := s.trees[name]
	return t, ok
}

func (s *InMemoryTreeStore) Names() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	names := make([]string, 0, len(s.trees))
	for name := range s.trees {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *InMemoryTreeStore) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, t := range s.trees {
		t.Done()
	}
}
