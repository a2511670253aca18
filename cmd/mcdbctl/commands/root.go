// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package commands implements the mcdbctl command tree.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/bpowers/mcdb"
	"github.com/bpowers/mcdb/internal/config"
	"github.com/bpowers/mcdb/metrics"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
	dirFlag string

	cfg       *config.Config
	logger    *slog.Logger
	collector *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mcdbctl",
	Short: "Build and query memory-mapped constant databases",
	Long: `mcdbctl builds mcdb constant databases from text input and answers
lookups against them.

Databases are named either by path, or by a bare name resolved inside the
configured database directory (name -> <dir>/name.mcdb).

Use "mcdbctl [command] --help" for more information about a command.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/mcdb/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "database directory (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(makeCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(nssMakeCmd)
	rootCmd.AddCommand(nssGetCmd)
	rootCmd.AddCommand(testzeroCmd)
	rootCmd.AddCommand(configCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	if dirFlag != "" {
		cfg.Dir = dirFlag
	}
	logger = cfg.Logging.NewLogger(cmd.ErrOrStderr())
	collector = metrics.New(nil)
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if cfg != nil && cfg.Metrics.Dump {
		return dumpMetrics(cmd.ErrOrStderr())
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mcdbctl %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

// dbPath resolves a database argument: anything that looks like a path is
// used as is, a bare name lives in the configured directory.
func dbPath(name string) string {
	if strings.ContainsRune(name, filepath.Separator) || strings.HasSuffix(name, mcdb.Ext) {
		return name
	}
	return filepath.Join(cfg.Dir, name+mcdb.Ext)
}

func newRegistry() *mcdb.Registry {
	resolve := func(id string) (string, error) {
		return dbPath(id), nil
	}
	return mcdb.NewRegistry(resolve,
		mcdb.WithRegistryLogger(logger),
		mcdb.WithMetrics(collector),
		mcdb.WithStaleCheck(cfg.StaleCheck))
}

func newBuilder(path string) (*mcdb.Builder, error) {
	policy, err := mcdb.ParseSyncPolicy(cfg.Build.Sync)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %w", err)
	}
	return mcdb.NewBuilder(path,
		mcdb.WithBuilderLogger(logger),
		mcdb.WithSync(policy),
		mcdb.WithBuilderMetrics(collector))
}

// finishBuild finishes b, removing its temporary file on failure.
func finishBuild(b *mcdb.Builder, buildErr error) error {
	if buildErr != nil {
		_ = b.Abort()
		return buildErr
	}
	if err := b.Finish(); err != nil {
		_ = b.Abort()
		return err
	}
	return nil
}

func dumpMetrics(w io.Writer) error {
	families, err := collector.Registry().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
