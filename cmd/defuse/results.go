package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/defuse-exe/internal/config"
	"github.com/vovakirdan/defuse-exe/internal/console"
	"github.com/vovakirdan/defuse-exe/internal/storage"
)

var flagResultsLimit int

var resultsCmd = &cobra.Command{
	Use:   "results [rogue|puzzle]",
	Short: "Print recent match results",
	Long: `Print the most recent results stored by the server. With no argument
both modes are shown, followed by per-outcome puzzle statistics.

Examples:
  defuse results
  defuse results rogue --limit 5
  defuse results puzzle --db ./defuse.db`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"rogue", "puzzle"},
	RunE:      runResults,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Browse stored results in a terminal UI",
	Long: `Open the operator console on the local terminal. Live rooms are only
available through the SSH console of a running server (serve --ssh).`,
	RunE: runConsole,
}

func init() {
	resultsCmd.Flags().IntVarP(&flagResultsLimit, "limit", "n", 10, "Number of results per mode")
}

func openStore() (*storage.Store, error) {
	cfg, err := config.LoadServer("")
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(dbPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening results database: %w", err)
	}
	return store, nil
}

func runResults(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	mode := ""
	if len(args) == 1 {
		mode = args[0]
	}
	if mode == "" || mode == "rogue" {
		if err := printRogue(cmd, store); err != nil {
			return err
		}
	}
	if mode == "" || mode == "puzzle" {
		if err := printPuzzle(cmd, store); err != nil {
			return err
		}
	}
	return nil
}

func printRogue(cmd *cobra.Command, store *storage.Store) error {
	results, err := store.RecentRogueResults(flagResultsLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Roguelite results")
	fmt.Fprintln(out)
	if len(results) == 0 {
		fmt.Fprintln(out, "No results recorded yet.")
		fmt.Fprintln(out)
		return nil
	}

	fmt.Fprintf(out, "  %-16s  %-12s  %-7s  %-4s  %-6s  %s\n", "Date", "Room", "Outcome", "Wave", "Time", "Podium")
	fmt.Fprintf(out, "  %-16s  %-12s  %-7s  %-4s  %-6s  %s\n", "----", "----", "-------", "----", "----", "------")
	for _, r := range results {
		names := make([]string, len(r.Podium))
		for i, p := range r.Podium {
			names[i] = fmt.Sprintf("%s (%d)", p.DisplayName, p.DamageDealt)
		}
		fmt.Fprintf(out, "  %-16s  %-12s  %-7s  %-4d  %-6s  %s\n",
			r.EndedAt.Local().Format("2006-01-02 15:04"), r.RoomID, r.Outcome, r.Wave,
			minutes(int64(r.ElapsedMs)), strings.Join(names, ", "))
	}
	fmt.Fprintln(out)
	return nil
}

func printPuzzle(cmd *cobra.Command, store *storage.Store) error {
	results, err := store.RecentPuzzleResults(flagResultsLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Puzzle results")
	fmt.Fprintln(out)
	if len(results) == 0 {
		fmt.Fprintln(out, "No results recorded yet.")
		return nil
	}

	fmt.Fprintf(out, "  %-16s  %-12s  %-10s  %-4s  %-8s  %-6s  %-6s  %s\n", "Date", "Instance", "Archetype", "Tier", "Outcome", "Solved", "Time", "Penalties")
	fmt.Fprintf(out, "  %-16s  %-12s  %-10s  %-4s  %-8s  %-6s  %-6s  %s\n", "----", "--------", "---------", "----", "-------", "------", "----", "---------")
	for _, r := range results {
		fmt.Fprintf(out, "  %-16s  %-12s  %-10s  %-4d  %-8s  %-6s  %-6s  %d\n",
			r.EndedAt.Local().Format("2006-01-02 15:04"), r.InstanceID, r.ArchetypeID, r.Tier, r.Outcome,
			fmt.Sprintf("%d/%d", r.SolvedCount, r.ModuleCount), minutes(r.DurationMs), r.PenaltyCount)
	}

	stats, err := store.PuzzleOutcomeStats()
	if err != nil {
		return err
	}
	outcomes := make([]string, 0, len(stats))
	for o := range stats {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	fmt.Fprintln(out)
	for _, o := range outcomes {
		s := stats[o]
		fmt.Fprintf(out, "  %-8s  %d matches, avg %s, %.1f players, %.1f penalties\n",
			o, s.Matches, minutes(int64(s.AvgDurationMs)), s.AvgPlayers, s.AvgPenalties)
	}
	return nil
}

func minutes(ms int64) string {
	sec := max(ms, 0) / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

func runConsole(_ *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	width, height := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
		height = h
	}
	return console.Run(console.Source{Store: store}, width, height)
}
