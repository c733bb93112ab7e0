package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"

	httpadapter "farmcycle/internal/adapter/http"
	metricsinmem "farmcycle/internal/adapter/metrics/inmemory"
	"farmcycle/internal/adapter/policyfile"
	gormrepo "farmcycle/internal/adapter/repo/gorm"
	memoryrepo "farmcycle/internal/adapter/repo/memory"
	sqliterepo "farmcycle/internal/adapter/repo/sqlite"
	"farmcycle/internal/adapter/stream"
	"farmcycle/internal/app/ports"
	"farmcycle/internal/app/sim"
	"farmcycle/internal/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("FARMCYCLE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := newLogger(os.Stderr, cfg)
	slog.SetDefault(logger)

	repos, err := buildRepos(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("build repositories: %v", err)
	}
	defer repos.Close()

	kpiRecorder := metricsinmem.NewRecorder()
	opts := cfg.EngineOptions()
	opts.Policies = repos.Policies
	opts.Episodes = repos.Episodes
	opts.Metrics = kpiRecorder
	opts.Logger = logger
	engine, err := sim.NewEngine(opts)
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	streamSrv := &http.Server{
		Addr:              cfg.Server.StreamAddr,
		Handler:           streamMux(stream.NewServer(engine, cfg.Server.StreamInterval, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("stream listening", "addr", cfg.Server.StreamAddr)
		if err := streamSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("stream server stopped", "err", err)
		}
	}()

	h := httpadapter.Handler{Sim: engine, KPI: kpiRecorder}
	s := server.Default(server.WithHostPorts(cfg.Server.Addr))
	h.RegisterRoutes(s)

	logger.Info("farmcycle server listening",
		"addr", cfg.Server.Addr,
		"policy_store", cfg.Storage.Policy,
		"agents", len(cfg.Agents),
		"grid", fmt.Sprintf("%dx%d", cfg.Grid.Width, cfg.Grid.Height),
	)
	s.Spin()

	shutdown(engine, streamSrv, logger)
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func streamMux(s *stream.Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Handler())
	return mux
}

// shutdown stops whichever loop is running so the last policy is
// persisted before the process exits.
func shutdown(engine *sim.Engine, streamSrv *http.Server, logger *slog.Logger) {
	switch engine.Mode() {
	case sim.ModeTraining:
		_ = engine.StopTraining()
	case sim.ModeServing:
		_ = engine.StopServing()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := engine.Wait(ctx); err != nil {
		logger.Warn("engine loop did not stop in time", "err", err)
	}
	if err := streamSrv.Shutdown(ctx); err != nil {
		logger.Warn("stream shutdown", "err", err)
	}
}

type repos struct {
	Policies ports.PolicyRepository
	Episodes ports.EpisodeRepository
	closers  []io.Closer
}

func (r repos) Close() {
	for _, c := range r.closers {
		_ = c.Close()
	}
}

// buildRepos wires the policy store named by cfg.Policy. Episode records
// follow the policy store unless a SQLite stats file is configured.
func buildRepos(ctx context.Context, cfg config.StorageConfig) (repos, error) {
	var out repos
	switch cfg.Policy {
	case config.PolicyStoreMemory:
		store := memoryrepo.NewStore()
		out.Policies = memoryrepo.NewPolicyRepo(store)
		out.Episodes = memoryrepo.NewEpisodeRepo(store)
	case config.PolicyStoreFile:
		out.Policies = policyfile.New(cfg.PolicyPath)
		out.Episodes = memoryrepo.NewEpisodeRepo(memoryrepo.NewStore())
	case config.PolicyStorePostgres:
		db, err := gormrepo.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return repos{}, fmt.Errorf("open postgres: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			out.closers = append(out.closers, sqlDB)
		}
		if cfg.Migrate {
			if err := gormrepo.ApplyMigrations(ctx, db, gormrepo.Migrations()); err != nil {
				out.Close()
				return repos{}, fmt.Errorf("apply migrations: %w", err)
			}
		}
		out.Policies = gormrepo.NewPolicyRepo(db, gormrepo.NewTxManager(db))
		out.Episodes = gormrepo.NewEpisodeRepo(db)
	default:
		return repos{}, fmt.Errorf("unknown policy store %q", cfg.Policy)
	}

	if path := strings.TrimSpace(cfg.StatsPath); path != "" {
		db, err := sqliterepo.Open(path)
		if err != nil {
			out.Close()
			return repos{}, fmt.Errorf("open stats db: %w", err)
		}
		out.Episodes = db
		out.closers = append(out.closers, db)
	}
	return out, nil
}
