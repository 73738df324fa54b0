package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/azybler/streetrouter/pkg/httpapi"
	"github.com/azybler/streetrouter/pkg/persist"
	"github.com/azybler/streetrouter/pkg/streetrouter"
)

func main() {
	layerPath := flag.String("layer", "streetlayer.bin", "Path to preprocessed street layer binary")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	start := time.Now()

	log.Printf("Loading street layer from %s...", *layerPath)
	layer, err := persist.Read(*layerPath)
	if err != nil {
		log.Fatalf("Failed to load street layer: %v", err)
	}
	log.Printf("Loaded: %d vertices, %d edge pairs", layer.Vertices.Size(), layer.Edges.PairCount())

	// Reclaim memory from init-time temporaries. Without this, Go's heap
	// retains peak RSS from index construction (GC doubles heap each cycle:
	// 120→240→480→960→1920 MB). This returns unused pages to the OS.
	runtime.GC()
	debug.FreeOSMemory()

	router := streetrouter.New(layer)

	loadTime := time.Since(start)
	log.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	addr := fmt.Sprintf(":%d", *port)
	cfg := httpapi.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	handlers := httpapi.NewHandlers(layer, router)
	srv := httpapi.NewServer(cfg, handlers)

	if err := httpapi.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
