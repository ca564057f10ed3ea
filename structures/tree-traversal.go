package structures

import (
	"iter"
)

// InOrder yields every key/value pair in ascending key order. Each range over
// the returned sequence walks the tree afresh. The tree must not be mutated
// while a walk is in progress.
func (t *RBTree[K, V]) InOrder() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		stack := []*Node[K, V]{}
		cur := t.root
		for cur != t.null || len(stack) > 0 {
			for cur != t.null {
				stack = append(stack, cur)
				cur = cur.left
			}

			cur = stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(cur.key, cur.value) {
				return
			}

			cur = cur.right
		}
	}
}

// Keys returns the keys in ascending order
func (t *RBTree[K, V]) Keys() []K {
	keys := make([]K, 0, t.size)
	for k := range t.InOrder() {
		keys = append(keys, k)
	}
	return keys
}

// Rows breaks the tree into levels, root first. Row i has 2^i slots; a nil
// slot marks a position under an absent child. The walk stops before the
// first row made only of nil slots, so an empty tree has no rows.
func (t *RBTree[K, V]) Rows() [][]*Node[K, V] {
	rows, _ := t.RowsUpTo(0)
	return rows
}

// RowsUpTo is Rows limited to the first levels rows. Row i holds 2^i slots,
// so callers drawing tall trees should bound it. truncated reports whether
// deeper nodes were left out. levels below 1 means no limit.
func (t *RBTree[K, V]) RowsUpTo(levels int) (rows [][]*Node[K, V], truncated bool) {
	curr := []*Node[K, V]{t.public(t.root)}

	for !allNil(curr) {
		if levels > 0 && len(rows) == levels {
			return rows, true
		}
		rows = append(rows, curr)
		next := make([]*Node[K, V], 0, 2*len(curr))
		for _, n := range curr {
			if n == nil {
				next = append(next, nil, nil)
				continue
			}
			next = append(next, t.public(n.left), t.public(n.right))
		}
		curr = next
	}

	return rows, false
}

func allNil[K any, V any](row []*Node[K, V]) bool {
	for _, n := range row {
		if n != nil {
			return false
		}
	}
	return true
}

// Height returns the number of levels in the tree. It walks the tree level by
// level without building padded rows.
func (t *RBTree[K, V]) Height() int {
	height := 0
	level := []*Node[K, V]{}
	if t.root != t.null {
		level = append(level, t.root)
	}
	for len(level) > 0 {
		height++
		next := level[:0:0]
		for _, n := range level {
			if n.left != t.null {
				next = append(next, n.left)
			}
			if n.right != t.null {
				next = append(next, n.right)
			}
		}
		level = next
	}
	return height
}
