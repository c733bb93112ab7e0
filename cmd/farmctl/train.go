package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	metricsinmem "farmcycle/internal/adapter/metrics/inmemory"
	"farmcycle/internal/adapter/policyfile"
	memoryrepo "farmcycle/internal/adapter/repo/memory"
	sqliterepo "farmcycle/internal/adapter/repo/sqlite"
	"farmcycle/internal/app/ports"
	"farmcycle/internal/app/sim"
	"farmcycle/internal/config"
)

type trainOptions struct {
	Episodes        int
	StepsPerEpisode int
	PolicyPath      string
	StatsPath       string
	Verbose         bool
}

func newTrainCmd(load func() (config.Config, error)) *cobra.Command {
	var opts trainOptions
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run a headless training session and save the policy file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runTrain(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.Episodes, "episodes", 0, "episodes to run (default from config)")
	cmd.Flags().IntVar(&opts.StepsPerEpisode, "steps", 0, "step budget per episode (default from config)")
	cmd.Flags().StringVar(&opts.PolicyPath, "out", "", "policy file to write (default storage.policy_path)")
	cmd.Flags().StringVar(&opts.StatsPath, "stats", "", "SQLite file for episode records (default storage.stats_path)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log phase changes and saves")
	return cmd
}

func runTrain(ctx context.Context, cfg config.Config, opts trainOptions, w io.Writer) error {
	policyPath := firstNonEmpty(opts.PolicyPath, cfg.Storage.PolicyPath)
	if policyPath == "" {
		return fmt.Errorf("no policy path: pass --out or set storage.policy_path")
	}
	policies := policyfile.New(policyPath)

	var episodes ports.EpisodeRepository = memoryrepo.NewEpisodeRepo(memoryrepo.NewStore())
	if statsPath := firstNonEmpty(opts.StatsPath, cfg.Storage.StatsPath); statsPath != "" {
		db, err := sqliterepo.Open(statsPath)
		if err != nil {
			return fmt.Errorf("open stats db: %w", err)
		}
		defer db.Close()
		episodes = db
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelInfo
	}
	recorder := metricsinmem.NewRecorder()
	engineOpts := cfg.EngineOptions()
	engineOpts.Policies = policies
	engineOpts.Episodes = episodes
	engineOpts.Metrics = recorder
	engineOpts.Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	engine, err := sim.NewEngine(engineOpts)
	if err != nil {
		return err
	}

	started := time.Now()
	runID, err := engine.StartTraining(ctx, sim.TrainRequest{Episodes: opts.Episodes, StepsPerEpisode: opts.StepsPerEpisode})
	if err != nil {
		return err
	}
	color.New(color.FgCyan, color.Bold).Fprintf(w, "training run %s\n", runID)

	if err := engine.Wait(ctx); err != nil {
		// Interrupted: stop the loop so the partial policy is saved.
		_ = engine.StopTraining()
		waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := engine.Wait(waitCtx); err != nil {
			return fmt.Errorf("training did not stop: %w", err)
		}
		color.New(color.FgYellow).Fprintln(w, "training interrupted")
	}

	stats := engine.Stats()
	if err := printEpisodes(w, stats.Episodes); err != nil {
		return err
	}

	kpi := recorder.Snapshot()
	completed := 0
	for _, rec := range stats.Episodes {
		if rec.TaskComplete {
			completed++
		}
	}
	fmt.Fprintln(w)
	color.New(color.FgGreen, color.Bold).Fprintf(w, "%d/%d episodes completed the cycle\n", completed, len(stats.Episodes))
	fmt.Fprintf(w, "   best reward:  %.2f (episode %d)\n", stats.BestReward, stats.BestEpisode)
	fmt.Fprintf(w, "   ticks:        %s\n", humanize.Comma(int64(kpi.TickTotal)))
	fmt.Fprintf(w, "   collisions:   %s\n", humanize.Comma(int64(kpi.Collisions)))
	fmt.Fprintf(w, "   elapsed:      %s\n", time.Since(started).Round(time.Millisecond))
	if info, _, err := policies.Inspect(ctx); err == nil {
		fmt.Fprintf(w, "   policy file:  %s (%s, %s states)\n", info.Path, humanize.Bytes(uint64(info.CompressedBytes)), humanize.Comma(int64(info.Entries)))
	}
	return nil
}

func printEpisodes(w io.Writer, recs []ports.EpisodeRecord) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Episode", "Reward", "Steps", "Planted", "Irrigated", "Harvested", "Complete", "Epsilon", "States", "Fuel"}),
	)
	for _, rec := range recs {
		row := []string{
			fmt.Sprintf("%d", rec.Episode),
			fmt.Sprintf("%.1f", rec.Reward),
			fmt.Sprintf("%d", rec.Steps),
			fmt.Sprintf("%d", rec.Planted),
			fmt.Sprintf("%d", rec.Irrigated),
			fmt.Sprintf("%d", rec.Harvested),
			yesNo(rec.TaskComplete),
			fmt.Sprintf("%.3f", rec.AvgEpsilon),
			humanize.Comma(int64(rec.StatesLearned)),
			fmt.Sprintf("%.1f", rec.FuelConsumed),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
