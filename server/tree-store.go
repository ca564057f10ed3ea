package server

// TreeStore hands out named trees. Trees are created on first use.
type TreeStore interface {
	Get(name string) *SharedTree
	// Lookup returns an existing tree without creating one
	Lookup(name string) (*SharedTree, bool)
	Names() []string
	// Close ends every tree's update stream
	Close()
}
