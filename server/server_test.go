package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/han-so1omon/treetools/structures"
)

func newTestServer(t *testing.T) (*httptest.Server, *InMemoryTreeStore) {
	store := NewInMemoryTreeStore()
	srv := httptest.NewServer(NewRouter(store, DefaultConfig()))
	t.Cleanup(func() {
		store.Close()
		srv.Close()
	})
	return srv, store
}

func do(t *testing.T, method, url, body string) (int, string) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func put(t *testing.T, base string, keys ...string) {
	for _, k := range keys {
		status, _ := do(t, http.MethodPut, base+"/keys/"+k, strings.ToUpper(k))
		require.Equal(t, http.StatusNoContent, status)
	}
}

func TestTreeRoutes(t *testing.T) {
	srv, store := newTestServer(t)
	base := srv.URL + "/trees/demo"

	t.Run("unknown tree", func(t *testing.T) {
		for _, path := range []string{
			"", "/keys", "/keys/a", "/keys/a/successor", "/keys/a/predecessor",
			"/min", "/max", "/render", "/verify",
		} {
			status, body := do(t, http.MethodGet, base+path, "")
			assert.Equal(t, http.StatusNotFound, status, path)
			assert.Contains(t, body, "tree not found", path)
		}
		status, _ := do(t, http.MethodDelete, base+"/keys/a", "")
		assert.Equal(t, http.StatusNotFound, status)

		_, ok := store.Lookup("demo")
		assert.False(t, ok, "read routes must not create trees")
		status, body := do(t, http.MethodGet, srv.URL+"/trees", "")
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `[]`, body)
	})

	store.Get("demo")

	t.Run("empty tree", func(t *testing.T) {
		status, _ := do(t, http.MethodGet, base+"/min", "")
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = do(t, http.MethodGet, base+"/max", "")
		assert.Equal(t, http.StatusNotFound, status)
		status, body := do(t, http.MethodDelete, base+"/keys/x", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Contains(t, body, "key not found")
	})

	put(t, base, "d", "b", "f", "a", "c", "e", "g")

	t.Run("lookups", func(t *testing.T) {
		status, body := do(t, http.MethodGet, base+"/keys/c", "")
		require.Equal(t, http.StatusOK, status)
		var v NodeView
		require.NoError(t, json.Unmarshal([]byte(body), &v))
		assert.Equal(t, NodeView{Key: "c", Value: "C", Color: structures.Red}, v)

		status, _ = do(t, http.MethodGet, base+"/keys/zz", "")
		assert.Equal(t, http.StatusNotFound, status)

		status, body = do(t, http.MethodGet, base+"/min", "")
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `"key":"a"`)
		status, body = do(t, http.MethodGet, base+"/max", "")
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `"key":"g"`)
	})

	t.Run("neighbours", func(t *testing.T) {
		status, body := do(t, http.MethodGet, base+"/keys/d/successor", "")
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `"key":"e"`)
		status, body = do(t, http.MethodGet, base+"/keys/d/predecessor", "")
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `"key":"c"`)

		status, _ = do(t, http.MethodGet, base+"/keys/g/successor", "")
		assert.Equal(t, http.StatusNoContent, status)
		status, _ = do(t, http.MethodGet, base+"/keys/a/predecessor", "")
		assert.Equal(t, http.StatusNoContent, status)
		status, _ = do(t, http.MethodGet, base+"/keys/q/successor", "")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("snapshot and render", func(t *testing.T) {
		status, body := do(t, http.MethodGet, base, "")
		require.Equal(t, http.StatusOK, status)
		var snap Snapshot
		require.NoError(t, json.Unmarshal([]byte(body), &snap))
		assert.Equal(t, "demo", snap.Tree)
		assert.Equal(t, 7, snap.Size)
		assert.Equal(t, 3, snap.Height)
		require.Len(t, snap.Rows, 3)
		assert.Equal(t, "d", snap.Rows[0][0].Key)
		assert.Equal(t, structures.Black, snap.Rows[0][0].Color)
		assert.Len(t, snap.Rows[2], 4)

		status, body = do(t, http.MethodGet, base+"/render", "")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "      d\n  b       f\na   c   e   g\n", body)
		assert.Equal(t, snap.Text, body)
		assert.False(t, snap.Truncated)
	})

	t.Run("put body", func(t *testing.T) {
		status, body := do(t, http.MethodPut, base+"/keys/big", strings.Repeat("x", maxValueBytes+1))
		assert.Equal(t, http.StatusRequestEntityTooLarge, status)
		assert.Contains(t, body, "too large")

		status, _ = do(t, http.MethodGet, base+"/keys/big", "")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("delete and list", func(t *testing.T) {
		status, _ := do(t, http.MethodDelete, base+"/keys/d", "")
		require.Equal(t, http.StatusNoContent, status)

		status, body := do(t, http.MethodGet, base+"/keys", "")
		require.Equal(t, http.StatusOK, status)
		var entries []Entry
		require.NoError(t, json.Unmarshal([]byte(body), &entries))
		keys := make([]string, len(entries))
		for i, e := range entries {
			keys[i] = e.Key
		}
		assert.Equal(t, []string{"a", "b", "c", "e", "f", "g"}, keys)

		status, _ = do(t, http.MethodGet, base+"/verify", "")
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("tree names", func(t *testing.T) {
		store.Get("other")
		status, body := do(t, http.MethodGet, srv.URL+"/trees", "")
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `["demo","other"]`, body)
	})
}

func TestPutKeyBadBody(t *testing.T) {
	store := NewInMemoryTreeStore()
	defer store.Close()
	router := NewRouter(store, DefaultConfig())

	req := httptest.NewRequest(http.MethodPut, "/trees/demo/keys/a", iotest.ErrReader(io.ErrUnexpectedEOF))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unexpected EOF")
}

func TestSnapshotBounded(t *testing.T) {
	store := NewInMemoryTreeStore()
	cfg := DefaultConfig()
	cfg.MaxRenderLevels = 4
	srv := httptest.NewServer(NewRouter(store, cfg))
	t.Cleanup(func() {
		store.Close()
		srv.Close()
	})

	// Sequential keys grow the tree well past four levels
	store.Get("tall").Update(func(tr *Tree) error {
		for i := 0; i < 300; i++ {
			tr.Insert(fmt.Sprintf("%04d", i), "")
		}
		return nil
	})
	base := srv.URL + "/trees/tall"

	status, body := do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, status)
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	assert.Equal(t, 300, snap.Size)
	assert.Greater(t, snap.Height, cfg.MaxRenderLevels)
	assert.True(t, snap.Truncated)
	require.Len(t, snap.Rows, cfg.MaxRenderLevels)
	assert.Len(t, snap.Rows[cfg.MaxRenderLevels-1], 1<<(cfg.MaxRenderLevels-1))
	assert.Equal(t, cfg.MaxRenderLevels, strings.Count(snap.Text, "\n"))

	req, err := http.NewRequest(http.MethodGet, base+"/render", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "true", resp.Header.Get("X-Tree-Truncated"))
	assert.Equal(t, snap.Text, string(text))
}

func TestTreeConnect(t *testing.T) {
	srv, store := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/live"

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap Snapshot
	require.NoError(t, ws.ReadJSON(&snap))
	assert.Equal(t, "live", snap.Tree)
	assert.Equal(t, 0, snap.Size)

	put(t, srv.URL+"/trees/live", "m")
	require.NoError(t, ws.ReadJSON(&snap))
	assert.Equal(t, 1, snap.Size)
	assert.Equal(t, "m", snap.Rows[0][0].Key)

	store.Get("live").Done()
	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestSharedTree(t *testing.T) {
	st := NewSharedTree("s")
	updated, unsubscribe := st.Updated()

	err := st.Update(func(tr *Tree) error { return tr.Remove("nope") })
	assert.ErrorIs(t, err, structures.ErrNotFound)
	select {
	case <-updated:
		t.Fatal("failed update must not notify")
	default:
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, st.Update(func(tr *Tree) error {
			tr.Insert("k", "v")
			return nil
		}))
	}
	<-updated
	select {
	case <-updated:
		t.Fatal("updates should be coalesced")
	default:
	}

	unsubscribe()
	st.OnUpdate()
	select {
	case <-updated:
		t.Fatal("unsubscribed channel notified")
	default:
	}

	st.Done()
	st.Done()
	<-st.Closed()
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8900", cfg.Addr)

	bad := cfg
	bad.KeyWidth = 0
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.Addr = ""
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.MaxConns = -1
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.MaxRenderLevels = 0
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.MaxRenderLevels = maxRenderLevelsLimit + 1
	assert.Error(t, bad.Validate())
}
