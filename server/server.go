package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jinzhu/copier"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/net/netutil"

	"github.com/han-so1omon/treetools/render"
	"github.com/han-so1omon/treetools/structures"
)

const maxValueBytes = 1 << 20

// ErrNoTree is returned by read routes naming a tree that was never created
var ErrNoTree = errors.New("tree not found")

var upgrader = websocket.Upgrader{}

// NodeView is the wire form of a tree node
type NodeView struct {
	Key   string           `json:"key"`
	Value string           `json:"value"`
	Color structures.Color `json:"color"`
}

// Snapshot is the whole-tree document served at /trees/:name and pushed over
// /ws/:name. Nil entries in Rows are empty slots. Rows and Text stop at the
// configured render depth; Truncated reports whether deeper levels exist.
type Snapshot struct {
	Tree      string        `json:"tree"`
	Size      int           `json:"size"`
	Height    int           `json:"height"`
	Truncated bool          `json:"truncated"`
	Rows      [][]*NodeView `json:"rows"`
	Text      string        `json:"text"`
}

// Entry is one key/value pair of an in-order listing
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func newNodeView(n *structures.Node[string, string]) (*NodeView, error) {
	if n == nil {
		return nil, nil
	}
	v := new(NodeView)
	if err := copier.Copy(v, n); err != nil {
		return nil, err
	}
	return v, nil
}

// newSnapshot copies at most levels rows of t. It runs under the tree lock,
// so it only copies; the text is laid out later by render.
func newSnapshot(name string, t *Tree, levels int) (*Snapshot, error) {
	rows, truncated := t.RowsUpTo(levels)
	s := &Snapshot{
		Tree:      name,
		Size:      t.Len(),
		Height:    t.Height(),
		Truncated: truncated,
		Rows:      make([][]*NodeView, len(rows)),
	}
	for i, row := range rows {
		s.Rows[i] = make([]*NodeView, len(row))
		for j, n := range row {
			v, err := newNodeView(n)
			if err != nil {
				return nil, err
			}
			s.Rows[i][j] = v
		}
	}
	return s, nil
}

// render fills in Text from the copied rows
func (s *Snapshot) render(keyWidth int) {
	keys := make([][]*string, len(s.Rows))
	for i, row := range s.Rows {
		keys[i] = make([]*string, len(row))
		for j, v := range row {
			if v != nil {
				keys[i][j] = &v.Key
			}
		}
	}
	s.Text = render.Keys(keys, keyWidth)
}

// Server exposes the trees of a TreeStore over HTTP
type Server struct {
	store TreeStore
	cfg   Config
}

func NewServer(store TreeStore, cfg Config) *Server {
	if cfg.MaxRenderLevels < 1 {
		cfg.MaxRenderLevels = DefaultConfig().MaxRenderLevels
	}
	return &Server{store: store, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("writejson:", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, structures.ErrNotFound) ||
		errors.Is(err, structures.ErrEmptyTree) ||
		errors.Is(err, ErrNoTree) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeNode answers with a node, or 204 when there is none
func writeNode(w http.ResponseWriter, v *NodeView) {
	if v == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// tree returns the named tree, creating it on first use
func (s *Server) tree(ps httprouter.Params) *SharedTree {
	return s.store.Get(ps.ByName("name"))
}

// existing returns the named tree only if it was created before
func (s *Server) existing(ps httprouter.Params) (*SharedTree, error) {
	name := ps.ByName("name")
	st, ok := s.store.Lookup(name)
	if !ok {
		return nil, &structures.KeyError{Op: "Tree", Key: name, Err: ErrNoTree}
	}
	return st, nil
}

// viewNode runs lookup under the tree lock and copies its node out, so the
// response is written after the lock is released
func (s *Server) viewNode(ps httprouter.Params, lookup func(t *Tree) (*structures.Node[string, string], error)) (*NodeView, error) {
	st, err := s.existing(ps)
	if err != nil {
		return nil, err
	}
	var v *NodeView
	err = st.View(func(t *Tree) error {
		n, err := lookup(t)
		if err != nil {
			return err
		}
		v, err = newNodeView(n)
		return err
	})
	return v, err
}

func (s *Server) snapshot(st *SharedTree) (*Snapshot, error) {
	var snap *Snapshot
	err := st.View(func(t *Tree) (err error) {
		snap, err = newSnapshot(st.Name, t, s.cfg.MaxRenderLevels)
		return err
	})
	if err != nil {
		return nil, err
	}
	snap.render(s.cfg.KeyWidth)
	return snap, nil
}

func (s *Server) ListTrees(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.store.Names())
}

func (s *Server) GetTree(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	st, err := s.existing(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.snapshot(st)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) ListKeys(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	st, err := s.existing(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	var entries []Entry
	st.View(func(t *Tree) error {
		entries = make([]Entry, 0, t.Len())
		for k, v := range t.InOrder() {
			entries = append(entries, Entry{k, v})
		}
		return nil
	})
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) PutKey(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	key := ps.ByName("key")
	s.tree(ps).Update(func(t *Tree) error {
		t.Insert(key, string(body))
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetKey(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := ps.ByName("key")
	v, err := s.viewNode(ps, func(t *Tree) (*structures.Node[string, string], error) {
		n := t.Search(key)
		if n == nil {
			return nil, &structures.KeyError{Op: "Search", Key: key, Err: structures.ErrNotFound}
		}
		return n, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeNode(w, v)
}

func (s *Server) DeleteKey(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	st, err := s.existing(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	err = st.Update(func(t *Tree) error {
		return t.Remove(ps.ByName("key"))
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// neighbour serves Successor and Predecessor
func (s *Server) neighbour(next bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := ps.ByName("key")
		v, err := s.viewNode(ps, func(t *Tree) (*structures.Node[string, string], error) {
			if next {
				return t.Successor(key)
			}
			return t.Predecessor(key)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeNode(w, v)
	}
}

// extreme serves Min and Max
func (s *Server) extreme(max bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		v, err := s.viewNode(ps, func(t *Tree) (*structures.Node[string, string], error) {
			if max {
				return t.Max()
			}
			return t.Min()
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeNode(w, v)
	}
}

func (s *Server) RenderTree(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	st, err := s.existing(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.snapshot(st)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if snap.Truncated {
		w.Header().Set("X-Tree-Truncated", "true")
	}
	io.WriteString(w, snap.Text)
}

func (s *Server) VerifyTree(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	st, err := s.existing(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	err = st.View(func(t *Tree) error {
		return t.Verify()
	})
	if err != nil {
		log.Println("verify:", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func internalError(ws *websocket.Conn, msg string, err error) {
	log.Println(msg, err)
	ws.WriteMessage(websocket.TextMessage, []byte("Internal server error."))
}

func (s *Server) sendTree(ws *websocket.Conn, st *SharedTree) error {
	snap, err := s.snapshot(st)
	if err != nil {
		internalError(ws, "sendtree:", err)
		return err
	}
	return ws.WriteJSON(snap)
}

// TreeConnect streams snapshots of a tree: one on connect and one after
// every update, until the tree is closed or the peer goes away.
func (s *Server) TreeConnect(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	defer ws.Close()

	st := s.tree(ps)
	updated, unsubscribe := st.Updated()
	defer unsubscribe()

	// Drain the peer so close frames are processed
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := s.sendTree(ws, st); err != nil {
		log.Println("sendtree:", err)
		return
	}
	for {
		select {
		case <-gone:
			return
		case <-st.Closed():
			ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "tree closed"))
			return
		case <-updated:
			if err := s.sendTree(ws, st); err != nil {
				log.Println("sendtree:", err)
				return
			}
		}
	}
}

// NewRouter wires every tree route
func NewRouter(store TreeStore, cfg Config) *httprouter.Router {
	s := NewServer(store, cfg)
	router := httprouter.New()
	router.GET("/trees", s.ListTrees)
	router.GET("/trees/:name", s.GetTree)
	router.GET("/trees/:name/keys", s.ListKeys)
	router.PUT("/trees/:name/keys/:key", s.PutKey)
	router.GET("/trees/:name/keys/:key", s.GetKey)
	router.DELETE("/trees/:name/keys/:key", s.DeleteKey)
	router.GET("/trees/:name/keys/:key/successor", s.neighbour(true))
	router.GET("/trees/:name/keys/:key/predecessor", s.neighbour(false))
	router.GET("/trees/:name/min", s.extreme(false))
	router.GET("/trees/:name/max", s.extreme(true))
	router.GET("/trees/:name/render", s.RenderTree)
	router.GET("/trees/:name/verify", s.VerifyTree)
	router.GET("/ws/:name", s.TreeConnect)

	return router
}

// ListenAndServe serves store on cfg.Addr until the listener fails
func ListenAndServe(store TreeStore, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	l, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	if cfg.MaxConns > 0 {
		l = netutil.LimitListener(l, cfg.MaxConns)
	}
	log.Printf("Serving trees on %s", l.Addr())
	return http.Serve(l, NewRouter(store, cfg))
}
