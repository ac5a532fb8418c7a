package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/dynmap/internal/auth"
	"github.com/inamate/dynmap/internal/collab"
	"github.com/inamate/dynmap/internal/config"
	"github.com/inamate/dynmap/internal/maps"
	mw "github.com/inamate/dynmap/internal/middleware"
	"github.com/inamate/dynmap/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	level, err := cfg.Level()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	mapService := maps.NewService(st)
	mapHandler := maps.NewHandler(mapService)

	// Snapshot loader for the collaboration hub
	snapshotLoader := func(ctx context.Context, mapID string) (map[string]int32, map[int32]string, error) {
		snap, err := mapService.Snapshot(ctx, mapID)
		if err != nil {
			return nil, nil, err
		}
		return snap.States, snap.Styles, nil
	}

	hub := collab.NewHub(snapshotLoader, mapService)
	mapService.SetNotifier(hub)
	go hub.Run()

	if cfg.SeedSample {
		seedSample(ctx, mapService)
	}

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	r.Handle("/auth/me", authService.RequireOperator(http.HandlerFunc(authHandler.Me))).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Map API: reads are public, changes need a token
	api := r.PathPrefix("/api").Subrouter()
	mapHandler.Register(api, authService.RequireOperator)

	// WebSocket endpoint: viewers may watch anonymously, operators pass
	// their token so they can change states over the socket.
	origins := originPatterns(cfg.Origins())
	r.Handle("/ws/maps/{mapId}", authService.OptionalOperator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, origins)
	})))

	// Viewer page and wasm bundle
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir))).Methods("GET")

	addr := ":" + strconv.Itoa(cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "static", cfg.StaticDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// seedSample stores the office plan when the store has no maps yet.
func seedSample(ctx context.Context, svc *maps.Service) {
	list, err := svc.List(ctx)
	if err != nil {
		slog.Error("list maps", "error", err)
		return
	}
	if len(list) > 0 {
		return
	}
	m, err := svc.CreateSample(ctx, "")
	if err != nil {
		slog.Error("seed sample map", "error", err)
		return
	}
	slog.Info("seeded sample map", "map", m.ID)
}

// originPatterns turns configured origins into host patterns for the
// websocket origin check.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}
	return out
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, origins []string) {
	mapID := mux.Vars(r)["mapId"]

	var userID, displayName string
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		userID, displayName = id.UserID, id.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, displayName, mapID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
