package server

import (
	"errors"
	"fmt"

	"github.com/han-so1omon/treetools/render"
)

// Config holds the service settings
type Config struct {
	// Addr is the TCP address to listen on
	Addr string
	// MaxConns caps simultaneously accepted connections, websockets included.
	// Zero means no cap.
	MaxConns int
	// KeyWidth is the column width of keys in rendered trees
	KeyWidth int
	// MaxRenderLevels caps the rows carried by snapshots and renders. Row i
	// has 2^i slots, so deeper levels are left out and flagged as truncated.
	MaxRenderLevels int
}

// maxRenderLevelsLimit keeps a snapshot, rows and text together, within a
// few megabytes
const maxRenderLevelsLimit = 16

func DefaultConfig() Config {
	return Config{
		Addr:            ":8900",
		MaxConns:        256,
		KeyWidth:        render.DefaultKeyWidth,
		MaxRenderLevels: 12,
	}
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: empty listen address")
	}
	if c.MaxConns < 0 {
		return errors.New("config: negative connection cap")
	}
	if c.KeyWidth < 1 {
		return errors.New("config: key width must be at least 1")
	}
	if c.MaxRenderLevels < 1 || c.MaxRenderLevels > maxRenderLevelsLimit {
		return fmt.Errorf("config: render levels must be between 1 and %d", maxRenderLevelsLimit)
	}
	return nil
}
