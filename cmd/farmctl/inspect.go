package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"farmcycle/internal/adapter/policyfile"
	sqliterepo "farmcycle/internal/adapter/repo/sqlite"
	"farmcycle/internal/app/ports"
	"farmcycle/internal/config"
)

func newInspectCmd(load func() (config.Config, error)) *cobra.Command {
	var policyPath, statsPath string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarise a saved policy file and stored training runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runInspect(cmd.Context(),
				firstNonEmpty(policyPath, cfg.Storage.PolicyPath),
				firstNonEmpty(statsPath, cfg.Storage.StatsPath),
				cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "policy file (default storage.policy_path)")
	cmd.Flags().StringVar(&statsPath, "stats", "", "SQLite episode store (default storage.stats_path)")
	return cmd
}

func runInspect(ctx context.Context, policyPath, statsPath string, w io.Writer) error {
	title := color.New(color.FgCyan, color.Bold)

	info, snap, err := policyfile.New(policyPath).Inspect(ctx)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		color.New(color.FgYellow).Fprintf(w, "no policy file at %s\n", policyPath)
	case err != nil:
		return fmt.Errorf("inspect %s: %w", policyPath, err)
	default:
		title.Fprintln(w, "Policy")
		fmt.Fprintf(w, "   file:     %s\n", info.Path)
		fmt.Fprintf(w, "   size:     %s on disk, %s decoded\n", humanize.Bytes(uint64(info.CompressedBytes)), humanize.Bytes(uint64(info.RawBytes)))
		if snap.RunID != "" {
			fmt.Fprintf(w, "   run:      %s (episode %d)\n", snap.RunID, snap.Episode)
		}
		if !snap.SavedAt.IsZero() {
			fmt.Fprintf(w, "   saved:    %s\n", humanize.Time(snap.SavedAt))
		}
		fmt.Fprintf(w, "   states:   %s across %d agents\n\n", humanize.Comma(int64(info.Entries)), info.Agents)

		table := tablewriter.NewTable(w,
			tablewriter.WithHeader([]string{"Agent", "Role", "States", "Planted", "Irrigated", "Harvested", "Epsilon", "Refills"}),
		)
		for _, a := range snap.Agents {
			row := []string{
				fmt.Sprintf("%d", a.AgentID),
				string(a.Role),
				humanize.Comma(int64(len(a.Entries))),
				fmt.Sprintf("%d", a.Stats.Planted),
				fmt.Sprintf("%d", a.Stats.Irrigated),
				fmt.Sprintf("%d", a.Stats.Harvested),
				fmt.Sprintf("%.3f", a.Stats.Epsilon),
				fmt.Sprintf("%d", a.Stats.FuelRefills),
			}
			if err := table.Append(row); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if statsPath == "" {
		return nil
	}
	db, err := sqliterepo.Open(statsPath)
	if err != nil {
		return fmt.Errorf("open stats db: %w", err)
	}
	defer db.Close()
	runs, err := db.Runs(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	title.Fprintln(w, "Runs")
	if len(runs) == 0 {
		fmt.Fprintln(w, "   no episodes recorded")
		return nil
	}
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Run", "Episodes", "Completed", "Best Reward", "Avg Steps", "Finished"}),
	)
	for _, r := range runs {
		row := []string{
			r.RunID,
			fmt.Sprintf("%d", r.Episodes),
			fmt.Sprintf("%d", r.Completed),
			fmt.Sprintf("%.1f", r.BestReward),
			fmt.Sprintf("%.0f", r.AvgSteps),
			humanize.Time(r.FinishedAt),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
