package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/admin"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/config"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/history"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/logging"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/random"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/session"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/sidechannel"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/watch"
	"google.golang.org/grpc"
)

// #region main
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Batch history and episode journal share one database
	store, err := history.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	// Seed 0 picks one from the clock; log it so the run can be replayed
	rng := random.New(cfg.Seed)
	log.Printf("Random seed: %d", rng.LastSeed())

	builder := &session.LogBuilder{Rand: rng}
	sess, err := session.New(session.Options{
		Builder:          builder,
		Despawner:        builder,
		Rand:             rng,
		Journal:          logging.NewJournal(store.DB()),
		Store:            store,
		DecisionInterval: cfg.DecisionInterval,
		Templates:        cfg.Templates,
		StepInterval:     cfg.StepInterval,
	})
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx) }()

	restore(ctx, store, sess, cfg.InitialConfig)

	// Side channel
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", cfg.GRPCAddr, err)
	}
	grpcServer := grpc.NewServer()
	sidechannel.NewServer(sess, nil).Register(grpcServer)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("[SIDECHANNEL] serve: %v", err)
		}
	}()

	// File drop
	var watcher *watch.Watcher
	if cfg.WatchDir != "" {
		watcher, err = watch.NewWatcher(cfg.WatchDir)
		if err != nil {
			log.Fatalf("failed to watch %s: %v", cfg.WatchDir, err)
		}
		go forwardDrops(ctx, watcher, sess)
	}

	// Admin
	app := admin.New(admin.Deps{Session: sess, DB: store.DB(), History: store})
	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Printf("[ADMIN] listen: %v", err)
		}
	}()

	log.Println("Arena Controller ready.")
	log.Printf("  DB: %s | gRPC: %s | HTTP: %s | watch: %q", cfg.DBPath, cfg.GRPCAddr, cfg.HTTPAddr, cfg.WatchDir)

	var fatal error
	select {
	case <-ctx.Done():
	case fatal = <-runErr:
	}

	grpcServer.GracefulStop()
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("[ADMIN] shutdown: %v", err)
	}
	if watcher != nil {
		watcher.Close()
	}
	if fatal != nil {
		store.Close()
		log.Fatalf("session stopped: %v", fatal)
	}
}

// #endregion main

// #region helpers

// restore replays the active batch and its ancestors from history, or applies
// the initial config file when history is empty.
func restore(ctx context.Context, store *history.Store, sess *session.Session, initialPath string) {
	v, err := store.GetCurrent()
	switch {
	case err == nil:
		chain, err := store.Chain(v.VersionID)
		if err != nil {
			log.Printf("WARN: read batch chain %s: %v", v.VersionID, err)
			return
		}
		if err := sess.Restore(ctx, chain); err != nil {
			log.Printf("WARN: restore batch %s: %v", v.VersionID, err)
			return
		}
		log.Printf("Restored batch %s (%d batches in chain, last from %s)", v.VersionID, len(chain), v.Source)
	case errors.Is(err, history.ErrNoActive):
		if initialPath == "" {
			log.Println("No batch history, waiting for the trainer...")
			return
		}
		data, err := os.ReadFile(initialPath)
		if err != nil {
			log.Printf("WARN: read initial config: %v", err)
			return
		}
		versionID, err := sess.Submit(ctx, data, "file")
		if err != nil {
			log.Printf("WARN: apply initial config %s: %v", initialPath, err)
			return
		}
		log.Printf("Applied initial config %s as batch %s", initialPath, versionID)
	default:
		log.Printf("WARN: read batch history: %v", err)
	}
}

// forwardDrops submits every YAML file written to the watched directory.
func forwardDrops(ctx context.Context, w *watch.Watcher, sess *session.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-w.Events:
			if !ok {
				return
			}
			data, err := os.ReadFile(path)
			if err != nil {
				log.Printf("[WATCH] read %s: %v", path, err)
				continue
			}
			versionID, err := sess.Submit(ctx, data, "watch")
			if err != nil {
				log.Printf("[WATCH] %s rejected: %v", path, err)
				continue
			}
			log.Printf("[WATCH] %s applied as batch %s", path, versionID)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("[WATCH] error: %v", err)
		}
	}
}

// #endregion helpers
