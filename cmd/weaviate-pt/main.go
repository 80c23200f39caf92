// Command weaviate-pt is the performance-testing harness for the sharded
// Weaviate deployment: a load driver, an HTTP fan-out gateway and query
// tooling around one fan-out coordinator.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/config"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/logger"
)

const version = "2.0.0"

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:     "weaviate-pt",
	Short:   "Performance-testing harness for the sharded Weaviate search backend",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if debug {
			level = "debug"
		}
		if err := logger.Init(level, cfg.Logging.Format); err != nil {
			return err
		}
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queriesCmd)
}
