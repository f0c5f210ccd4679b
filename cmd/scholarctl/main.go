// Command scholarctl seeds the scholarship catalog and runs one-off matches
// from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/scholarship-matcher/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "scholarctl",
	Short:         "Scholarship matcher tooling",
	Long:          "scholarctl loads a YAML scholarship catalog into Postgres and runs the matching pipeline against a profile file.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig reads the environment and routes logs to stderr so stdout stays
// clean JSON.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(observability.NewLogger(os.Stderr, cfg))
	return cfg, nil
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
