package structures

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// RBTreeType names RBTree for use in API operations
const RBTreeType = "red-black tree"

var (
	// ErrNotFound is returned when an operation names a key the tree does not
	// hold. The tree is left untouched.
	ErrNotFound = errors.New("key not found")
	// ErrEmptyTree is returned by Min and Max on a tree with no nodes
	ErrEmptyTree = errors.New("tree is empty")
	// ErrInvalidRotation signals a rotation around a node that lacks the child
	// the rotation pivots on. It only occurs when the tree is corrupted.
	ErrInvalidRotation = errors.New("invalid rotation")
)

// KeyError records the operation and key behind a failed lookup
type KeyError struct {
	Op  string
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// RotationError reports which rotation failed and around which key
type RotationError struct {
	Direction string
	Key       string
	Err       error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("rotate %s around %s: %v", e.Direction, e.Key, e.Err)
}

func (e *RotationError) Unwrap() error { return e.Err }

// RBTree is an ordered key-value map kept balanced by red-black coloring.
//
// Keys are ordered by the compare function given to New. Equal keys are
// allowed: Insert descends right on ties, so duplicates are visited in
// insertion order by InOrder, and Search/Remove act on one of them.
//
// An RBTree holds no lock. Callers sharing a tree between goroutines must
// serialize access themselves.
type RBTree[K any, V any] struct {
	root *Node[K, V]
	// null stands in for every absent child and for the root's parent. It is
	// always black and never holds a key.
	null    *Node[K, V]
	compare func(a, b K) int
	size    int
}

// New returns an empty tree ordering keys with compare, which must return a
// negative number, zero, or a positive number when a sorts before, equal to,
// or after b.
func New[K any, V any](compare func(a, b K) int) *RBTree[K, V] {
	null := &Node[K, V]{color: Black}
	null.left, null.right, null.parent = null, null, null
	return &RBTree[K, V]{
		root:    null,
		null:    null,
		compare: compare,
	}
}

// NewOrdered returns an empty tree using the natural order of K
func NewOrdered[K constraints.Ordered, V any]() *RBTree[K, V] {
	return New[K, V](func(a, b K) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
}

func (t *RBTree[K, V]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n+ + + + +RBTree+ + + + +\n")
	fmt.Fprintf(&b, "Type: %s\n", RBTreeType)
	fmt.Fprintf(&b, "Size: %d\n", t.size)
	fmt.Fprintf(&b, "Height: %d\n", t.Height())
	for i, row := range t.Rows() {
		fmt.Fprintf(&b, "%d:", i)
		for _, n := range row {
			if n == nil {
				b.WriteString(" -")
				continue
			}
			fmt.Fprintf(&b, " %s", n)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "+ + + + + + + + + + + + +\n")
	return b.String()
}

// Len returns the number of stored nodes
func (t *RBTree[K, V]) Len() int {
	return t.size
}

// Root returns the root node, or nil when the tree is empty
func (t *RBTree[K, V]) Root() *Node[K, V] {
	return t.public(t.root)
}

// public maps the sentinel to nil for callers outside the package
func (t *RBTree[K, V]) public(n *Node[K, V]) *Node[K, V] {
	if n == t.null {
		return nil
	}
	return n
}

func (t *RBTree[K, V]) keyString(k K) string {
	return fmt.Sprint(k)
}

func (t *RBTree[K, V]) rotateLeft(x *Node[K, V]) error {
	/*
		     x                 y
		    / \               / \
		   a   y     ->      x   c
		      / \           / \
		     b   c         a   b
	*/
	y := x.right
	if y == t.null {
		return &RotationError{"left", t.keyString(x.key), ErrInvalidRotation}
	}

	x.right = y.left
	if y.left != t.null {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.null {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
	return nil
}

func (t *RBTree[K, V]) rotateRight(x *Node[K, V]) error {
	/*
		       x             y
		      / \           / \
		     y   c   ->    a   x
		    / \               / \
		   a   b             b   c
	*/
	y := x.left
	if y == t.null {
		return &RotationError{"right", t.keyString(x.key), ErrInvalidRotation}
	}

	x.left = y.right
	if y.right != t.null {
		y.right.parent = x
	}
	y.parent = x.parent
	if x.parent == t.null {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
	return nil
}

// mustRotate runs a rotation the fixup logic has proven legal. A failure means
// the tree no longer satisfies its invariants, which is not recoverable.
func mustRotate(err error) {
	if err != nil {
		panic(fmt.Errorf("RBTree: %w", err))
	}
}

// Insert adds key with value. It never fails.
func (t *RBTree[K, V]) Insert(key K, value V) {
	z := &Node[K, V]{
		key:    key,
		value:  value,
		color:  Red,
		left:   t.null,
		right:  t.null,
		parent: t.null,
	}
	t.size++

	if t.root == t.null {
		z.color = Black
		t.root = z
		return
	}

	p := t.null
	for cur := t.root; cur != t.null; {
		p = cur
		if t.compare(key, cur.key) < 0 {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}

	z.parent = p
	if t.compare(key, p.key) < 0 {
		p.left = z
	} else {
		p.right = z
	}

	t.insertRepairTree(z)
}

func (t *RBTree[K, V]) insertRepairTree(z *Node[K, V]) {
	for z.parent.color == Red {
		p := z.parent
		// p is red so it is not the root and g is a real node
		g := p.parent
		if p == g.left {
			u := g.right
			if u.color == Red {
				p.color = Black
				u.color = Black
				g.color = Red
				z = g
				continue
			}
			if z == p.right {
				z = p
				mustRotate(t.rotateLeft(z))
				p = z.parent
			}
			p.color = Black
			g.color = Red
			mustRotate(t.rotateRight(g))
		} else {
			u := g.left
			if u.color == Red {
				p.color = Black
				u.color = Black
				g.color = Red
				z = g
				continue
			}
			if z == p.left {
				z = p
				mustRotate(t.rotateRight(z))
				p = z.parent
			}
			p.color = Black
			g.color = Red
			mustRotate(t.rotateLeft(g))
		}
	}
	t.root.color = Black
}

// Remove deletes one node holding key. It returns a *KeyError wrapping
// ErrNotFound when no such node exists.
func (t *RBTree[K, V]) Remove(key K) error {
	z := t.lookup(key)
	if z == t.null {
		return &KeyError{"Remove", t.keyString(key), ErrNotFound}
	}

	// y is the node spliced out of the structure
	y := z
	if z.left != t.null && z.right != t.null {
		y = t.minimum(z.right)
		z.key, z.value = y.key, y.value
	}

	x := y.left
	if x == t.null {
		x = y.right
	}
	removed := y.color
	t.replaceNode(y, x)

	if removed == Black {
		t.deleteRepairTree(x)
	}
	t.null.parent = t.null
	y.detach()
	t.size--
	return nil
}

// replaceNode puts child in n's place under n's parent. child may be the
// sentinel, whose parent link is then borrowed by deleteRepairTree.
func (t *RBTree[K, V]) replaceNode(n, child *Node[K, V]) {
	if n.parent == t.null {
		t.root = child
	} else if n == n.parent.left {
		n.parent.left = child
	} else {
		n.parent.right = child
	}
	child.parent = n.parent
}

// deleteRepairTree pushes the extra black carried by x up the tree until a
// red node absorbs it or it reaches the root.
func (t *RBTree[K, V]) deleteRepairTree(x *Node[K, V]) {
	for x != t.root && x.color == Black {
		p := x.parent
		if x == p.left {
			w := p.right
			if w.color == Red {
				w.color = Black
				p.color = Red
				mustRotate(t.rotateLeft(p))
				w = p.right
			}
			if w.left.color == Black && w.right.color == Black {
				w.color = Red
				x = p
				continue
			}
			if w.right.color == Black {
				w.left.color = Black
				w.color = Red
				mustRotate(t.rotateRight(w))
				w = p.right
			}
			w.color = p.color
			p.color = Black
			w.right.color = Black
			mustRotate(t.rotateLeft(p))
			x = t.root
		} else {
			w := p.left
			if w.color == Red {
				w.color = Black
				p.color = Red
				mustRotate(t.rotateRight(p))
				w = p.left
			}
			if w.left.color == Black && w.right.color == Black {
				w.color = Red
				x = p
				continue
			}
			if w.left.color == Black {
				w.right.color = Black
				w.color = Red
				mustRotate(t.rotateLeft(w))
				w = p.left
			}
			w.color = p.color
			p.color = Black
			w.left.color = Black
			mustRotate(t.rotateRight(p))
			x = t.root
		}
	}
	x.color = Black
}
