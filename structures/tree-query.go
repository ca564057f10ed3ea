package structures

// lookup returns the first node on the search path whose key equals key, or
// the sentinel.
func (t *RBTree[K, V]) lookup(key K) *Node[K, V] {
	cur := t.root
	for cur != t.null {
		cmp := t.compare(key, cur.key)
		if cmp == 0 {
			return cur
		} else if cmp < 0 {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	return t.null
}

// Search returns the node holding key, or nil when the key is absent
func (t *RBTree[K, V]) Search(key K) *Node[K, V] {
	return t.public(t.lookup(key))
}

// Contains reports whether key is stored in the tree
func (t *RBTree[K, V]) Contains(key K) bool {
	return t.lookup(key) != t.null
}

func (t *RBTree[K, V]) minimum(n *Node[K, V]) *Node[K, V] {
	for n.left != t.null {
		n = n.left
	}
	return n
}

func (t *RBTree[K, V]) maximum(n *Node[K, V]) *Node[K, V] {
	for n.right != t.null {
		n = n.right
	}
	return n
}

// Min returns the node with the smallest key
func (t *RBTree[K, V]) Min() (*Node[K, V], error) {
	if t.root == t.null {
		return nil, ErrEmptyTree
	}
	return t.minimum(t.root), nil
}

// Max returns the node with the largest key
func (t *RBTree[K, V]) Max() (*Node[K, V], error) {
	if t.root == t.null {
		return nil, ErrEmptyTree
	}
	return t.maximum(t.root), nil
}

func (t *RBTree[K, V]) successor(n *Node[K, V]) *Node[K, V] {
	if n.right != t.null {
		return t.minimum(n.right)
	}
	p := n.parent
	for p != t.null && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *RBTree[K, V]) predecessor(n *Node[K, V]) *Node[K, V] {
	if n.left != t.null {
		return t.maximum(n.left)
	}
	p := n.parent
	for p != t.null && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

// Successor returns the node following key in order, or nil when key holds
// the largest key. A missing key yields a *KeyError wrapping ErrNotFound.
func (t *RBTree[K, V]) Successor(key K) (*Node[K, V], error) {
	n := t.lookup(key)
	if n == t.null {
		return nil, &KeyError{"Successor", t.keyString(key), ErrNotFound}
	}
	return t.public(t.successor(n)), nil
}

// Predecessor returns the node preceding key in order, or nil when key holds
// the smallest key. A missing key yields a *KeyError wrapping ErrNotFound.
func (t *RBTree[K, V]) Predecessor(key K) (*Node[K, V], error) {
	n := t.lookup(key)
	if n == t.null {
		return nil, &KeyError{"Predecessor", t.keyString(key), ErrNotFound}
	}
	return t.public(t.predecessor(n)), nil
}
