package server

import (
	"sync"

	"github.com/han-so1omon/treetools/structures"
)

// Tree is the tree type served over HTTP: string keys in natural order with
// string values
type Tree = structures.RBTree[string, string]

// SharedTree guards a Tree with a mutex, since the tree itself is
// single-threaded, and tells subscribers when it changes.
type SharedTree struct {
	Name string

	lock sync.Mutex
	tree *Tree

	subLock sync.Mutex
	subs    map[chan struct{}]struct{}
	done    chan struct{}
	closed  bool
}

func NewSharedTree(name string) *SharedTree {
	return &SharedTree{
		Name: name,
		tree: structures.NewOrdered[string, string](),
		subs: map[chan struct{}]struct{}{},
		done: make(chan struct{}),
	}
}

// View runs fn with the tree locked. fn must not keep the tree or its nodes
// after returning.
func (s *SharedTree) View(fn func(t *Tree) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return fn(s.tree)
}

// Update runs fn with the tree locked and notifies subscribers when fn
// succeeds
func (s *SharedTree) Update(fn func(t *Tree) error) error {
	s.lock.Lock()
	err := fn(s.tree)
	s.lock.Unlock()
	if err != nil {
		return err
	}
	s.OnUpdate()
	return nil
}

// Updated returns a channel that receives after every successful Update.
// Bursts of updates are coalesced into one receive. The returned function
// unsubscribes.
func (s *SharedTree) Updated() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subLock.Lock()
	s.subs[ch] = struct{}{}
	s.subLock.Unlock()
	return ch, func() {
		s.subLock.Lock()
		delete(s.subs, ch)
		s.subLock.Unlock()
	}
}

// OnUpdate wakes every subscriber without blocking
func (s *SharedTree) OnUpdate() {
	s.subLock.Lock()
	defer s.subLock.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Closed is closed once Done has been called
func (s *SharedTree) Closed() <-chan struct{} {
	return s.done
}

// Done ends the update stream. It is safe to call more than once.
func (s *SharedTree) Done() {
	s.subLock.Lock()
	defer s.subLock.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}
