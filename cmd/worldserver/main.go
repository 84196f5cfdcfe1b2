package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orvandal/gridworld/internal/auth"
	"github.com/orvandal/gridworld/internal/config"
	"github.com/orvandal/gridworld/internal/db"
	"github.com/orvandal/gridworld/internal/engine"
	"github.com/orvandal/gridworld/internal/server"
	"github.com/orvandal/gridworld/internal/snapshot"
)

const DefaultConfigPath = "config/worldserver.yaml"

func main() {
	configPath := flag.String("config", DefaultConfigPath, "path to worldserver.yaml")
	hashToken := flag.String("hash-token", "", "print the bcrypt hash of a token and exit")
	flag.Parse()

	if *hashToken != "" {
		h, err := auth.HashToken(*hashToken)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWorldServer(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	eng := engine.New(engine.Config{
		StartTile:    cfg.StartTile,
		StartBudget:  cfg.StartBudget,
		TurnDuration: cfg.TurnDurationSec,
	}, newIdentityAllowlist(cfg), &loggingClaimNotifier{}, nil)

	hub := server.NewHub()
	observers := []func(engine.Event){hub.Broadcast}

	var persister *db.Persister
	if cfg.DatabaseEnabled {
		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return err
		}
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer database.Close()

		mapRepo := db.NewMapRepository(database.Pool())
		navRepo := db.NewNavRepository(database.Pool())
		if err := db.RestoreWorld(ctx, eng, mapRepo, navRepo); err != nil {
			return fmt.Errorf("restoring world: %w", err)
		}
		persister = db.NewPersister(eng, mapRepo, navRepo)
		observers = append(observers, persister.HandleEvent)
	} else if cfg.SnapshotPath != "" {
		if snap, err := snapshot.Read(cfg.SnapshotPath); err == nil {
			if err := snapshot.Restore(eng, snap); err != nil {
				return fmt.Errorf("restoring snapshot: %w", err)
			}
			slog.Info("world restored from snapshot", "path", cfg.SnapshotPath, "maps", len(snap.Maps), "players", len(snap.Players))
		} else if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("snapshot unreadable, starting empty", "path", cfg.SnapshotPath, "err", err)
		}
	}

	eng.SetObserver(func(ev engine.Event) {
		for _, fn := range observers {
			fn(ev)
		}
	})

	tokens := auth.NewTokenRegistry(cfg.AdminTokenHash, cfg.SystemTokenHash)
	srv := server.New(eng, tokens, hub)

	addr := net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.Port))
	httpServer := &http.Server{Addr: addr, Handler: srv.Router()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("world server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.SnapshotEverySec > 0 && cfg.SnapshotPath != "" {
		g.Go(func() error {
			ticker := time.NewTicker(time.Duration(cfg.SnapshotEverySec) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					writeSnapshot(eng, cfg.SnapshotPath)
					return nil
				case <-ticker.C:
					writeSnapshot(eng, cfg.SnapshotPath)
					if persister != nil {
						if err := persister.SyncAll(gctx); err != nil {
							slog.Warn("navigation sync failed", "err", err)
						}
					}
				}
			}
		})
	}

	return g.Wait()
}

func writeSnapshot(eng *engine.Engine, path string) {
	if err := snapshot.Write(path, snapshot.Capture(eng)); err != nil {
		slog.Warn("snapshot write failed", "path", path, "err", err)
		return
	}
	slog.Debug("snapshot written", "path", path)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
