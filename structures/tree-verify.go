package structures

import (
	"fmt"
)

// InvariantError describes the first red-black property found broken
type InvariantError struct {
	msg string
	Key string
}

func (e *InvariantError) Error() string {
	if e.Key == "" {
		return "RBTree invariant: " + e.msg
	}
	return fmt.Sprintf("RBTree invariant at %s: %s", e.Key, e.msg)
}

// Verify checks ordering, coloring, black-height and parent links across the
// whole tree. It returns nil for a valid tree.
func (t *RBTree[K, V]) Verify() error {
	if t.null.color != Black {
		return &InvariantError{"sentinel is not black", ""}
	}
	if t.root == t.null {
		if t.size != 0 {
			return &InvariantError{fmt.Sprintf("empty tree reports size %d", t.size), ""}
		}
		return nil
	}
	if t.root.color != Black {
		return &InvariantError{"root is red", t.keyString(t.root.key)}
	}
	if t.root.parent != t.null {
		return &InvariantError{"root has a parent", t.keyString(t.root.key)}
	}

	type frame struct {
		n       *Node[K, V]
		visited bool
	}
	// Post-order on an explicit stack so black-heights of both children are
	// known when a node is popped for the second time.
	heights := map[*Node[K, V]]int{t.null: 1}
	stack := []frame{{t.root, false}}
	count := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.n
		if !f.visited {
			stack = append(stack, frame{n, true})
			for _, c := range []*Node[K, V]{n.left, n.right} {
				if c == t.null {
					continue
				}
				if c.parent != n {
					return &InvariantError{"child does not point back to its parent", t.keyString(c.key)}
				}
				stack = append(stack, frame{c, false})
			}
			continue
		}

		count++
		if n.color == Red && (n.left.color == Red || n.right.color == Red) {
			return &InvariantError{"red node has a red child", t.keyString(n.key)}
		}
		lh, rh := heights[n.left], heights[n.right]
		if lh != rh {
			return &InvariantError{fmt.Sprintf("black-height %d on the left, %d on the right", lh, rh), t.keyString(n.key)}
		}
		if n.color == Black {
			lh++
		}
		heights[n] = lh
	}
	if count != t.size {
		return &InvariantError{fmt.Sprintf("%d reachable nodes, size is %d", count, t.size), ""}
	}

	first := true
	var prev K
	for k := range t.InOrder() {
		if !first && t.compare(prev, k) > 0 {
			return &InvariantError{fmt.Sprintf("keys out of order after %s", t.keyString(prev)), t.keyString(k)}
		}
		prev, first = k, false
	}
	return nil
}
