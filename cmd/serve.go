package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/basemap"
)

var (
	servePort    int
	serveMapPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a rendered map with a caching tile proxy",
	Long:  "Starts an HTTP server that serves a rendered map document at / and proxies basemap tiles at /tiles/{provider}/{z}/{x}/{y} through an LRU cache.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		cache := basemap.NewTileCache(cfg.Server.TileCacheCap, cfg.Server.TileTTL())
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newServeRouter(serveMapPath, cache),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("map", serveMapPath))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newServeRouter builds the preview server routes. mapPath may be empty,
// in which case / reports that no map is being served.
func newServeRouter(mapPath string, cache *basemap.TileCache) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	var (
		mu      sync.Mutex
		proxies = make(map[string]*basemap.TileProxy)
	)
	proxyFor := func(name string) (*basemap.TileProxy, error) {
		provider, err := basemap.Lookup(name)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		defer mu.Unlock()
		if p, ok := proxies[provider.Name]; ok {
			return p, nil
		}
		p := basemap.NewTileProxy(provider, cache)
		proxies[provider.Name] = p
		return p, nil
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		if mapPath == "" {
			http.Error(w, "no map loaded; start with --map", http.StatusNotFound)
			return
		}
		http.ServeFile(w, req, mapPath)
	})

	r.Get("/providers", func(w http.ResponseWriter, _ *http.Request) {
		out := make([]basemap.Provider, 0)
		for _, name := range basemap.Names() {
			p, err := basemap.Lookup(name)
			if err != nil {
				continue
			}
			out = append(out, p)
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Get("/cache/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, cache.Stats())
	})

	r.Get("/tiles/{provider}/{z}/{x}/{y}", func(w http.ResponseWriter, req *http.Request) {
		proxy, err := proxyFor(chi.URLParam(req, "provider"))
		if err != nil {
			http.Error(w, "unknown provider", http.StatusNotFound)
			return
		}

		z, errZ := strconv.Atoi(chi.URLParam(req, "z"))
		x, errX := strconv.Atoi(chi.URLParam(req, "x"))
		y, errY := strconv.Atoi(chi.URLParam(req, "y"))
		if errZ != nil || errX != nil || errY != nil {
			http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
			return
		}

		data, contentType, err := proxy.Fetch(req.Context(), z, x, y)
		if err != nil {
			zap.L().Warn("tile fetch failed", zap.Error(err))
			http.Error(w, "tile fetch failed", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(data)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveMapPath, "map", "", "rendered map document to serve at /")
	rootCmd.AddCommand(serveCmd)
}
