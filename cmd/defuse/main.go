// defuse is the DEFUSE.EXE game server and its operator tooling.
//
// Usage:
//
//	defuse serve                    - Run the HTTP/WebSocket server (and SSH console)
//	defuse simulate                 - Generate bombs headlessly and report duplicates
//	defuse check-determinism        - Verify bomb generation is reproducible
//	defuse results [rogue|puzzle]   - Print recent match results
//	defuse console                  - Browse results in a terminal UI
//
// Global flags:
//
//	--verbose           - Debug logging
//	--config-dir <dir>  - Bomb catalog directory (balance, archetypes, modules, rules)
//	--db <path>         - Results database (default: ~/.defuse/defuse.db)
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/defuse-exe/internal/config"
)

var (
	// Global flags
	flagVerbose   bool
	flagConfigDir string
	flagDBPath    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "defuse",
	Short: "DEFUSE.EXE - cooperative bomb defusal server",
	Long: `DEFUSE.EXE runs two cooperative game modes behind one server:
a roguelite survival arena and a communication puzzle where players
defuse a procedurally generated bomb.

Available commands:
  serve              - Start the game server
  simulate           - Headless bomb generation report
  check-determinism  - Verify seeded generation is reproducible
  results            - Print recent results
  console            - Terminal results browser

Examples:
  defuse serve --addr :8080 --ssh :23234
  defuse simulate --runs 500 --players 4 --tier 2
  defuse results puzzle --limit 20`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "Bomb catalog directory (default: ~/.defuse/configs, ./configs, embedded)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to results database (default from server.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(determinismCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(consoleCmd)
}

// newLogger builds the root logger; components derive prefixed children.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "defuse",
	})
	if flagVerbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// dbPath resolves the database path from the flag or the server settings.
func dbPath(cfg config.ServerConfig) string {
	if flagDBPath != "" {
		return flagDBPath
	}
	return cfg.DBPath
}
