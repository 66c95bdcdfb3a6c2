// Package main provides the vibe-cdr3 command-line tool.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configName is the config file in the user's home directory.
const configName = ".vibe-cdr3.yaml"

// envPrefix prefixes environment overrides, e.g. VIBE_CDR3_GERMLINE_DIR.
const envPrefix = "VIBE_CDR3"

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "vibe-cdr3",
		Short: "Finalize antibody germline assignments and extract CDR3 junctions",
		Long: `vibe-cdr3 reconciles V, D, J and constant region BLAST hits for every read
of a repertoire project, locates the CDR3 junction, checks reading frame and
stop codons, and writes the classified reads and summary tables.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/"+configName+")")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable development logging")
	cmd.PersistentFlags().String("db", "", "DuckDB file of recorded runs")
	viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("db", cmd.PersistentFlags().Lookup("db"))

	cmd.AddCommand(newFinalizeCmd())
	cmd.AddCommand(newSummaryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initConfig reads the config file and environment. A missing default config
// file is not an error.
func initConfig(cfgFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(home, configName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("locus", "heavy")
	viper.SetDefault("workers", 1)
}

// newLogger creates a production logger, or a development logger when
// verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	return cfg.Build()
}
