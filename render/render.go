// Package render lays out an RBTree's level rows as fixed-width text.
//
// With keys three characters wide, a four-level tree is drawn as
//
//	              hhh
//	      ddd             lll
//	  bbb     fff     jjj     nnn
//	aaa ccc eee ggg iii kkk mmm ooo
//
// Keys are truncated or padded to the configured width. The layout carries no
// tree invariants; it only reads the rows.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/han-so1omon/treetools/structures"
)

// DefaultKeyWidth is the width keys are squeezed into when none is given
const DefaultKeyWidth = 3

// Text draws rows, as produced by RBTree.Rows, one line per row. keyWidth
// values below 1 fall back to DefaultKeyWidth.
func Text[K any, V any](rows [][]*structures.Node[K, V], keyWidth int) string {
	keys := make([][]*string, len(rows))
	for i, row := range rows {
		keys[i] = make([]*string, len(row))
		for j, n := range row {
			if n != nil {
				k := fmt.Sprint(n.Key())
				keys[i][j] = &k
			}
		}
	}
	return Keys(keys, keyWidth)
}

// Keys draws rows of already formatted keys. A nil entry is an empty slot.
func Keys(rows [][]*string, keyWidth int) string {
	if keyWidth < 1 {
		keyWidth = DefaultKeyWidth
	}
	half := (keyWidth + 1) / 2
	levels := len(rows)
	blank := strings.Repeat(" ", keyWidth)

	var b strings.Builder
	for i, row := range rows {
		height := levels - i
		indent := max(1<<height-half, 0)
		sep := strings.Repeat(" ", max(1<<(height+1)-half-1, 0))

		var line strings.Builder
		line.WriteString(strings.Repeat(" ", indent))
		for j, k := range row {
			if j > 0 {
				line.WriteString(sep)
			}
			if k == nil {
				line.WriteString(blank)
				continue
			}
			line.WriteString(fit(*k, keyWidth))
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteString("\n")
	}
	return b.String()
}

// fit pads or truncates s to exactly width runes
func fit(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n < width {
		return s + strings.Repeat(" ", width-n)
	}
	if n == width {
		return s
	}
	return string([]rune(s)[:width])
}

// Tree draws the current shape of t
func Tree[K any, V any](t *structures.RBTree[K, V], keyWidth int) string {
	return Text(t.Rows(), keyWidth)
}
