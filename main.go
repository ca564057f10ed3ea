package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/han-so1omon/treetools/server"
	"github.com/han-so1omon/treetools/viewer"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [serve|watch] [flags]\n", os.Args[0])
	os.Exit(2)
}

func serve(args []string) error {
	cfg := server.DefaultConfig()
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "maximum simultaneous connections, 0 for no cap")
	fs.IntVar(&cfg.KeyWidth, "key-width", cfg.KeyWidth, "column width of keys in rendered trees")
	fs.IntVar(&cfg.MaxRenderLevels, "render-levels", cfg.MaxRenderLevels, "deepest level drawn in snapshots and renders")
	name := fs.String("tree", "demo", "tree to preload with -seed")
	seed := fs.String("seed", "", "comma separated keys to insert before serving")
	fs.Parse(args)

	log.Println("Starting tree app")
	store := server.NewInMemoryTreeStore()
	defer store.Close()
	if *seed != "" {
		keys := strings.Split(*seed, ",")
		store.Get(*name).Update(func(t *server.Tree) error {
			for _, k := range keys {
				t.Insert(strings.TrimSpace(k), "")
			}
			return nil
		})
		log.Printf("Seeded %s with %d keys", *name, len(keys))
	}

	return server.ListenAndServe(store, cfg)
}

func watch(args []string) error {
	var cfg viewer.Config
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.StringVar(&cfg.URL, "url", "ws://localhost:8900/ws/demo", "websocket endpoint of the tree to follow")
	fs.Parse(args)

	// The terminal belongs to the dashboard from here on
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return viewer.Run(ctx, cfg)
}

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(args)
	case "watch":
		err = watch(args)
	default:
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}
