package viewer

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/han-so1omon/treetools/server"
)

type recorder struct {
	snaps []*server.Snapshot
	fail  error
	seen  chan struct{}
}

func (r *recorder) Show(s *server.Snapshot) error {
	r.snaps = append(r.snaps, s)
	r.seen <- struct{}{}
	return r.fail
}

func TestWatch(t *testing.T) {
	store := server.NewInMemoryTreeStore()
	srv := httptest.NewServer(server.NewRouter(store, server.DefaultConfig()))
	defer srv.Close()
	cfg := Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/demo"}

	t.Run("follows updates until the server closes", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rec := &recorder{seen: make(chan struct{}, 8)}
		done := make(chan error, 1)
		go func() { done <- Watch(ctx, cfg, rec) }()

		<-rec.seen
		require.NoError(t, store.Get("demo").Update(func(tr *server.Tree) error {
			tr.Insert("k", "v")
			return nil
		}))
		<-rec.seen
		store.Get("demo").Done()

		require.NoError(t, <-done)
		require.Len(t, rec.snaps, 2)
		assert.Equal(t, 0, rec.snaps[0].Size)
		assert.Equal(t, 1, rec.snaps[1].Size)
		assert.Equal(t, "demo: 1 keys, 1 levels (q to quit)", Title(rec.snaps[1]))
	})

	t.Run("display failure stops the watch", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		boom := errors.New("boom")
		rec := &recorder{seen: make(chan struct{}, 8), fail: boom}
		cfg := Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/other"}

		err := Watch(ctx, cfg, rec)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("bad endpoint", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := Watch(ctx, Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/nowhere"}, &recorder{})
		assert.Error(t, err)
	})
}

func TestWatchCancel(t *testing.T) {
	store := server.NewInMemoryTreeStore()
	srv := httptest.NewServer(server.NewRouter(store, server.DefaultConfig()))
	defer func() {
		store.Close()
		srv.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{seen: make(chan struct{}, 8)}
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/c"}, rec)
	}()
	<-rec.seen
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
