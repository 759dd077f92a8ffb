package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/CZERTAINLY/Gatekeeper/internal/log"
	"github.com/CZERTAINLY/Gatekeeper/internal/model"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var (
	configPath string // actual config file used (if loaded)
	config     model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

// userConfigPath returns gatekeeper.yaml in the user config directory, empty
// when the OS can't tell where that is.
func userConfigPath() string {
	d, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(d, "gatekeeper", "gatekeeper.yaml")
}

func main() {
	os.Exit(execute(newRootCmd(), os.Args[1:]))
}

// execute runs the command line and returns the process exit code. A failed
// gate is not an error of the tool, it has been reported on stdout already.
func execute(root *cobra.Command, args []string) int {
	// replaced once the config is loaded
	slog.SetDefault(log.New(root.ErrOrStderr(), false))
	root.SetArgs(args)
	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, model.ErrGateFailed):
		return 1
	default:
		slog.Error("gatekeeper failed", "err", err)
		return 1
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "gatekeeper",
		Short:        "Security gate and dashboard for Bandit, Safety and OWASP ZAP reports",
		SilenceUsage: true,
		// never print messages
		SilenceErrors: true,
		// parse a config, setup logging
		PersistentPreRunE: initGatekeeper,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is gatekeeper.yaml in current directory or in the user config directory")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	rootCmd.AddCommand(newGateCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "version provide version of a gatekeeper",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			info, ok := debug.ReadBuildInfo()
			if !ok {
				_, _ = fmt.Fprintln(w, "gatekeeper: version info not available")
				return
			}

			if configPath != "" {
				_, _ = fmt.Fprintf(w, "config:     %s\n", configPath)
			}
			_, _ = fmt.Fprintf(w, "gatekeeper: %s\n", info.Main.Version)
			_, _ = fmt.Fprintf(w, "go:         %s\n", info.GoVersion)
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					_, _ = fmt.Fprintf(w, "commit:     %s\n", s.Value)
				case "vcs.time":
					_, _ = fmt.Fprintf(w, "date:       %s\n", s.Value)
				case "vcs.modified":
					_, _ = fmt.Fprintf(w, "dirty:      %s\n", s.Value)
				}
			}
			_, _ = fmt.Fprintln(w)
		},
	}
}

func initGatekeeper(cmd *cobra.Command, _ []string) error {
	configPath = ""
	if envConfig, ok := os.LookupEnv("GATEKEEPERCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, path := range []string{"gatekeeper.yaml", userConfigPath()} {
			if path != "" && exists(path) {
				configPath = path
				break
			}
		}
	}

	// defaults are used in memory, nothing is written
	if configPath == "" {
		config = model.DefaultConfig()
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				slog.Error("invalid config", d.Attr("detail"))
			}
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		config.SetVerbose(true)
	}

	slog.SetDefault(log.New(cmd.ErrOrStderr(), config.Verbose()))

	slog.Debug("gatekeeper run", "configPath", configPath)
	slog.Debug("gatekeeper run", "config", config)
	return nil
}

func newConfigCmd() *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the configuration in use as YAML, redirect it to create gatekeeper.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config
			if defaults {
				cfg = model.DefaultConfig()
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults instead of the loaded file")
	return cmd
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
