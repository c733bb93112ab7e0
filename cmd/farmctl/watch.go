package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"farmcycle/internal/app/sim"
	"farmcycle/internal/domain/farm"
)

func newWatchCmd() *cobra.Command {
	var baseURL string
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a running server's farm in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := newWatchModel(newStateClient(baseURL), interval)
			_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	cmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "poll interval")
	return cmd
}

type stateClient struct {
	baseURL string
	http    *http.Client
}

func newStateClient(baseURL string) *stateClient {
	return &stateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *stateClient) State(ctx context.Context) (sim.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/state", nil)
	if err != nil {
		return sim.Snapshot{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return sim.Snapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return sim.Snapshot{}, fmt.Errorf("GET /state: %s", resp.Status)
	}
	var snap sim.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return sim.Snapshot{}, fmt.Errorf("decode state: %w", err)
	}
	return snap, nil
}

type snapshotMsg struct {
	snap sim.Snapshot
	err  error
}

type pollMsg struct{}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	gridStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444"))
	cropStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	barnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0A526"))
	wallStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	roleStyles = map[farm.Role]lipgloss.Style{
		farm.RolePlanter:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")),
		farm.RoleHarvester: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF9800")),
		farm.RoleIrrigator: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#03A9F4")),
	}
)

type watchModel struct {
	client   *stateClient
	interval time.Duration
	bar      progress.Model

	snap    *sim.Snapshot
	err     error
	updated time.Time
}

func newWatchModel(client *stateClient, interval time.Duration) watchModel {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return watchModel{
		client:   client,
		interval: interval,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.fetch()
}

func (m watchModel) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		snap, err := m.client.State(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(60, msg.Width-24))
	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			snap := msg.snap
			m.snap, m.err, m.updated = &snap, nil, time.Now()
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })
	case pollMsg:
		return m, m.fetch()
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("farmcycle"))
	b.WriteString(labelStyle.Render("  " + m.client.baseURL))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n\n")
	}
	if m.snap == nil {
		b.WriteString(labelStyle.Render("waiting for state..."))
		b.WriteString("\n")
		return b.String()
	}

	meta := m.snap.Meta
	fmt.Fprintf(&b, "%s %s   %s %d   %s %s\n",
		labelStyle.Render("mode"), meta.Mode,
		labelStyle.Render("step"), meta.Step,
		labelStyle.Render("phase"), meta.World.CyclePhase)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("phase progress"), m.bar.ViewAs(meta.World.PhaseProgress/100))
	fmt.Fprintf(&b, "%s planted %s  irrigated %s  harvested %s  (%d%%)\n",
		labelStyle.Render("objectives"),
		meta.Objectives.Planted, meta.Objectives.Irrigated, meta.Objectives.Harvested, meta.Objectives.Completion)
	fmt.Fprintf(&b, "%s avg %.1f%%  low %d  critical %d  returning %d\n",
		labelStyle.Render("fuel"),
		meta.Fuel.AvgFuelPct, meta.Fuel.LowFuelAgents, meta.Fuel.CriticalAgents, meta.Fuel.ReturningAgents)
	if meta.TaskComplete {
		b.WriteString(okStyle.Render("cycle complete"))
		b.WriteString("\n")
	}
	b.WriteString(gridStyle.Render(renderGrid(m.snap.Grid, m.snap.Agents)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("q quit · r refresh"))
	return b.String()
}

// renderGrid draws one glyph per cell with agents drawn over the terrain.
func renderGrid(grid [][]int, agents []sim.AgentView) string {
	at := make(map[farm.Point]sim.AgentView, len(agents))
	for _, a := range agents {
		at[a.Pos] = a
	}
	var b strings.Builder
	for y, row := range grid {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x, code := range row {
			if a, ok := at[farm.Point{X: x, Y: y}]; ok {
				b.WriteString(roleStyles[a.Role].Render(roleGlyph(a.Role)))
				continue
			}
			b.WriteString(cellGlyph(farm.CellKind(code)))
		}
	}
	return b.String()
}

func roleGlyph(r farm.Role) string {
	switch r {
	case farm.RolePlanter:
		return "P"
	case farm.RoleHarvester:
		return "H"
	case farm.RoleIrrigator:
		return "I"
	}
	return "?"
}

func cellGlyph(k farm.CellKind) string {
	switch k {
	case farm.CellObstacle:
		return wallStyle.Render("#")
	case farm.CellCrop:
		return cropStyle.Render("*")
	case farm.CellPath:
		return "·"
	case farm.CellManager:
		return barnStyle.Render("M")
	case farm.CellPlanterBarn, farm.CellHarvesterBarn, farm.CellIrrigatorBarn:
		return barnStyle.Render("B")
	case farm.CellParcelBorder:
		return labelStyle.Render("+")
	}
	return " "
}
