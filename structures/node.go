package structures

import (
	"fmt"
	"strings"
)

// Color is the balancing bit carried by every RBTree node
type Color int8

const (
	// Black nodes count toward black-height. Absent children are black
	Black Color = iota
	// Red nodes never have a red child
	Red
)

func (c Color) String() string {
	if c == Red {
		return "red"
	}
	return "black"
}

// MarshalText lets colors travel as "red"/"black" in JSON documents
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText is the inverse of MarshalText
func (c *Color) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "red":
		*c = Red
	case "black":
		*c = Black
	default:
		return fmt.Errorf("Color: unknown color %q", b)
	}
	return nil
}

// Node is one stored entry of an RBTree. The left and right links own their
// subtrees; parent is a navigational back-reference only.
type Node[K any, V any] struct {
	key   K
	value V
	color Color

	left   *Node[K, V]
	right  *Node[K, V]
	parent *Node[K, V]
}

func (n *Node[K, V]) String() string {
	return fmt.Sprintf("%v(%s)", n.key, n.color)
}

// Key returns the node's key
func (n *Node[K, V]) Key() K {
	return n.key
}

// Value returns the payload stored under the node's key
func (n *Node[K, V]) Value() V {
	return n.value
}

// Color returns the node's current color
func (n *Node[K, V]) Color() Color {
	return n.color
}

// detach clears every link so a removed node keeps nothing reachable
func (n *Node[K, V]) detach() {
	n.left = nil
	n.right = nil
	n.parent = nil
}
