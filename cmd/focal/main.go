package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/focal-dev/focal/internal/config"
	"github.com/focal-dev/focal/internal/grammar"
	"github.com/focal-dev/focal/internal/indexing"
	"github.com/focal-dev/focal/internal/logging"
	"github.com/focal-dev/focal/internal/store"
	"github.com/focal-dev/focal/internal/toolserver"
	"github.com/focal-dev/focal/internal/version"
	"github.com/focal-dev/focal/internal/watch"
)

// repoHandle ties one indexed root to its watcher so Stop can tear both down
// together on shutdown.
type repoHandle struct {
	id      int64
	root    string
	watcher *watch.Watcher
}

func main() {
	app := &cli.App{
		Name:      "focal",
		Usage:     "code-indexing context capsule server for AI assistants",
		Version:   version.Version,
		ArgsUsage: "<root>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "http",
				Usage: "serve over streamable HTTP instead of stdio",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "port to listen on in --http mode",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logging.Errorf("focal: %v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	roots := c.Args().Slice()
	if len(roots) == 0 {
		return cli.Exit("at least one repository root is required", 1)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	dbPath := filepath.Join(home, ".focal", "index.db")

	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	registry := grammar.NewRegistry()

	var handles []*repoHandle
	httpPort := config.Default().HTTPPort
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve root %q: %w", root, err)
		}

		cfg, err := loadRepoConfig(absRoot, c)
		if err != nil {
			return fmt.Errorf("load config for %s: %w", absRoot, err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config for %s: %w", absRoot, err)
		}
		logging.Default().SetLevel(logging.ParseLevel(cfg.LogLevel))
		httpPort = cfg.HTTPPort

		idx := indexing.New(s, registry, indexing.Config{
			ExcludePatterns: cfg.Exclude,
			MaxFileBytes:    cfg.MaxFileBytes,
		})

		name := filepath.Base(absRoot)
		logging.Infof("focal: indexing %s", absRoot)
		stats, err := idx.FullIndex(name, absRoot)
		if err != nil {
			return fmt.Errorf("index %s: %w", absRoot, err)
		}
		logging.Infof("focal: %s indexed (%d files parsed, %d symbols, %d edges, %d errors)",
			absRoot, stats.FilesParsed, stats.SymbolsInserted, stats.EdgesInserted, len(stats.Errors))

		repo, err := s.GetRepository(absRoot)
		if err != nil || repo == nil {
			return fmt.Errorf("look up repository %s: %w", absRoot, err)
		}

		w, err := watch.NewWithDebounce(absRoot, cfg.Exclude, idx.KnownPaths(repo.ID),
			dispatchBatch(idx, repo.ID, absRoot), time.Duration(cfg.WatchDebounceMs)*time.Millisecond)
		if err != nil {
			return fmt.Errorf("start watcher for %s: %w", absRoot, err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("start watcher for %s: %w", absRoot, err)
		}

		handles = append(handles, &repoHandle{id: repo.ID, root: absRoot, watcher: w})
	}
	defer func() {
		for _, h := range handles {
			if err := h.watcher.Stop(); err != nil {
				logging.Warnf("focal: stopping watcher for %s: %v", h.root, err)
			}
		}
	}()

	srv := toolserver.New(s, dbPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	if c.Bool("http") {
		port := httpPort
		if port == 0 {
			port = 3100
		}
		addr := fmt.Sprintf(":%d", port)
		logging.Infof("focal: serving MCP over http at %s/mcp", addr)
		go func() { errCh <- srv.RunHTTP(ctx, addr) }()
	} else {
		logging.Infof("focal: serving MCP over stdio")
		go func() { errCh <- srv.RunStdio(ctx) }()
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("tool server: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logging.Infof("focal: received %v, shutting down", sig)
		cancel()

		shutdownTimer := time.NewTimer(2 * time.Second)
		defer shutdownTimer.Stop()
		select {
		case err := <-errCh:
			return err
		case <-shutdownTimer.C:
			logging.Warnf("focal: graceful shutdown timed out, forcing exit")
			os.Stdin.Close()
			return nil
		}
	}
}

// loadRepoConfig merges built-in defaults, an optional .focal.kdl beside
// root, and CLI flag overrides, in that precedence order (spec §6).
func loadRepoConfig(root string, c *cli.Context) (config.Config, error) {
	merged := config.Default()

	fileCfg, found, err := config.Load(root)
	if err != nil {
		return config.Config{}, err
	}
	if found {
		merged = config.Merge(merged, fileCfg)
	}

	var override config.Config
	if c.IsSet("port") {
		override.HTTPPort = c.Int("port")
	}
	merged = config.Merge(merged, override)
	return merged, nil
}

// dispatchBatch adapts the watcher's batch callback to the indexer's
// incremental-update entry point, logging but not aborting on per-batch
// errors so the watcher keeps running.
func dispatchBatch(idx *indexing.Indexer, repoID int64, root string) func([]watch.PathEvent) {
	return func(batch []watch.PathEvent) {
		stats, err := idx.HandleBatch(repoID, root, batch)
		if err != nil {
			logging.Errorf("focal: incremental update for %s: %v", root, err)
			return
		}
		if len(stats.Errors) > 0 {
			logging.Warnf("focal: incremental update for %s had %d errors", root, len(stats.Errors))
		}
	}
}
