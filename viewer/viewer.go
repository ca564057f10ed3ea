// Package viewer follows a served tree over its websocket stream.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/han-so1omon/treetools/server"
)

// maxSnapshotBytes covers the largest snapshot a server sends, which is
// bounded by its render depth
const maxSnapshotBytes = 64 << 20

// Config holds the viewer settings
type Config struct {
	// URL is the tree's websocket endpoint, e.g. ws://localhost:8900/ws/demo
	URL string
}

// Display shows snapshots as they arrive
type Display interface {
	Show(*server.Snapshot) error
}

// Watch reads snapshots from cfg.URL and hands each to d until ctx is done,
// the server closes the stream, or d fails. A normal close by the server is
// not an error.
func Watch(ctx context.Context, cfg Config, d Display) error {
	c, _, err := websocket.Dial(ctx, cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("Watch: %w", err)
	}
	defer c.Close(websocket.StatusInternalError, "viewer exiting")
	// Padded rows double in length per level
	c.SetReadLimit(maxSnapshotBytes)

	for {
		var snap server.Snapshot
		err := wsjson.Read(ctx, c, &snap)
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			log.Println("watch: stream closed by server")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			return fmt.Errorf("Watch: %w", err)
		}
		if err := d.Show(&snap); err != nil {
			return fmt.Errorf("Watch: %w", err)
		}
	}
}

// Title summarises a snapshot for a display header
func Title(s *server.Snapshot) string {
	return fmt.Sprintf("%s: %d keys, %d levels (q to quit)", s.Tree, s.Size, s.Height)
}
