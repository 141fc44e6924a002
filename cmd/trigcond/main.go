package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/TrT-TOT/trigcond/internal/api"
	"github.com/TrT-TOT/trigcond/internal/config"
	"github.com/TrT-TOT/trigcond/internal/db"
	"github.com/TrT-TOT/trigcond/internal/notify"
	"github.com/TrT-TOT/trigcond/internal/repository"
	"github.com/TrT-TOT/trigcond/internal/services"
	"github.com/TrT-TOT/trigcond/internal/storage"
	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "serve":
		serve(os.Args[2:])
	case "update":
		runUpdate(os.Args[2:])
	case "show":
		show(os.Args[2:])
	case "snapshot":
		snapshot(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("trigcond v0.1.0")
	fmt.Println("Usage:")
	fmt.Println("  trigcond serve    [-config path]             start the conditions API server")
	fmt.Println("  trigcond update   -spec path [-config path]  apply one trigger-bit update spec")
	fmt.Println("  trigcond show     -tag T [-run N]            print the map current at a run")
	fmt.Println("  trigcond snapshot [-config path]             export all tags to snapshot files")
}

// app holds the wired stores and services shared by the subcommands.
type app struct {
	cfg       *config.Config
	database  *db.DB
	payloads  repository.PayloadRepository
	history   *services.RunHistoryService
	updates   *services.UpdateService
	snapshots *services.SnapshotService
}

func buildApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var payloads repository.PayloadRepository
	var runs repository.RunRepository
	if cfg.Database.URL != "" {
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		a.database = database
		payloads = repository.NewPersistentPayloadRepository(database)
		runs = repository.NewPersistentRunRepository(repository.NewMemoryRunRepository(), database)
		slog.Info("using postgres conditions store")
	} else {
		payloads = repository.NewMemoryPayloadRepository()
		runs = repository.NewMemoryRunRepository()
		slog.Info("using in-memory conditions store")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		ttl := time.Duration(cfg.Redis.CacheTTL) * time.Second
		payloads = repository.NewCachedPayloadRepository(payloads, client, ttl)
		slog.Info("payload cache enabled", "addr", cfg.Redis.Addr)
	}
	a.payloads = payloads

	a.history = services.NewRunHistoryService(runs)
	a.updates = services.NewUpdateService(payloads, a.history, notify.NewFromConfig(cfg.Notify))

	store, err := storage.NewSnapshotStore(cfg.Snapshot.Dir)
	if err != nil {
		return nil, err
	}
	a.snapshots = services.NewSnapshotService(payloads, store, cfg.Snapshot.Parallel)

	return a, nil
}

func (a *app) close() {
	if a.database != nil {
		a.database.Close()
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

func serve(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	ctx := context.Background()
	a, err := buildApp(ctx, *configPath)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.close()

	scheduler := services.NewSchedulerService(a.snapshots, a.cfg.Snapshot.Schedule)
	if err := scheduler.Start(); err != nil {
		slog.Error("scheduler start failed", "err", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	srv := api.NewServer(a.payloads, a.updates, a.history)
	srv.SetAuthSecret(a.cfg.Auth.Secret)

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	slog.Info("starting trigcond server", "addr", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// runUpdate applies one spec file. Each invocation is its own session,
// so the once-per-session guard starts fresh.
func runUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	specPath := fs.String("spec", "", "update spec file (YAML)")
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	if *specPath == "" {
		fmt.Fprintln(os.Stderr, "update: -spec is required")
		os.Exit(2)
	}

	spec, err := config.LoadUpdateSpec(*specPath)
	if err != nil {
		slog.Error("loading update spec failed", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := buildApp(ctx, *configPath)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.close()

	record, err := a.updates.Run(ctx, spec)
	if err != nil {
		slog.Error("update run failed", "err", err)
		os.Exit(1)
	}
	slog.Info("update run finished",
		"run", record.ID, "tag", record.Tag,
		"removed", record.Removed, "added", record.Added, "renamed", record.Renamed,
		"warnings", len(record.Warnings))
}

func show(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	tag := fs.String("tag", "", "conditions tag")
	run := fs.Uint64("run", 0, "run number (0 = latest)")
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	if *tag == "" {
		fmt.Fprintln(os.Stderr, "show: -tag is required")
		os.Exit(2)
	}

	ctx := context.Background()
	a, err := buildApp(ctx, *configPath)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.close()

	at := *run
	if at == 0 {
		at = uint64(math.MaxInt64)
	}
	p, err := a.payloads.CurrentAt(ctx, *tag, at)
	if err != nil {
		slog.Error("payload lookup failed", "tag", *tag, "err", err)
		os.Exit(1)
	}

	fmt.Printf("tag %s, since run %d, payload %s\n", p.Tag, p.SinceRun, p.PayloadID)
	names := make([]string, 0, len(p.Bits.TrigMap))
	for name := range p.Bits.TrigMap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s:\n", name)
		for _, path := range trigbits.DecomposePaths(p.Bits.TrigMap[name]) {
			fmt.Printf("  %s\n", path)
		}
	}
}

func snapshot(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	fs.Parse(args)

	ctx := context.Background()
	a, err := buildApp(ctx, *configPath)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.close()

	n, err := a.snapshots.ExportAll(ctx)
	if err != nil {
		slog.Error("snapshot export failed", "files", n, "err", err)
		os.Exit(1)
	}
	slog.Info("snapshot export finished", "files", n, "dir", a.cfg.Snapshot.Dir)
}
