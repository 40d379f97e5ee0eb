package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spachava753/casscheck/internal/commands"
	"github.com/spachava753/casscheck/internal/config"
	"github.com/spachava753/casscheck/internal/logging"
	"github.com/spachava753/casscheck/internal/models"
	"github.com/spachava753/casscheck/internal/registry"
)

// app holds what the persistent pre-run resolves for the subcommands.
type app struct {
	v        *viper.Viper
	cfgFile  string
	cfg      models.RunConfig
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	defaults := config.DefaultRunConfig()

	root := &cobra.Command{
		Use:           "cass-check",
		Short:         "cass-check: Cassandra Checkup",
		Long:          "Collects diagnostics from a Cassandra node into a per-run directory and builds an HTML report from them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./cass-check.yaml or $HOME/.config/cass-check/cass-check.yaml)")
	flags.String("output-base", defaults.OutputBase, "Base output directory.")
	flags.String("check-name", "", "Name for this checkup report (default: current time as YYYY-MM-DDTHH:MM).")
	flags.String("check-dir", "", "Full path to output to, if specified output-base and check-name are ignored.")
	flags.Bool("fail-fast", defaults.FailFast, "Stop at the first failing unit and exit non-zero.")
	flags.String("log-level", defaults.LogLevel, "Logging level (FATAL, CRITICAL, ERROR, WARN, INFO, DEBUG).")
	flags.String("log-file", defaults.LogFile, "Logging file, - for stderr.")
	flags.String("log-format", defaults.LogFormat, "Log format (auto, text, json).")
	flags.StringSlice("catalog", nil, "Unit catalog TOML file or URL; may be repeated.")

	// Bind flags to viper (errors are nil when flag exists)
	for key, flag := range map[string]string{
		config.KeyOutputBase: "output-base",
		config.KeyCheckName:  "check-name",
		config.KeyCheckDir:   "check-dir",
		config.KeyFailFast:   "fail-fast",
		config.KeyLogLevel:   "log-level",
		config.KeyLogFile:    "log-file",
		config.KeyLogFormat:  "log-format",
		config.KeyCatalogs:   "catalog",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		a.collectCmd(),
		a.reportCmd(),
		a.checkCmd(),
		a.noopCmd(),
		a.unitsCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	closeLog, err := logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return err
	}
	a.closeLog = closeLog
	a.cfg = cfg
	slog.Debug("resolved configuration", "command", cmd.Name(), "config", cfg)
	return nil
}

// prepare lays out the run directory for commands that write to it.
func (a *app) prepare() (models.RunConfig, error) {
	cfg, _, err := commands.PrepareRun(a.cfg)
	if err != nil {
		return cfg, err
	}
	slog.Info("output directory", "check_dir", cfg.CheckDir)
	return cfg, nil
}

// registry returns the built-in units with the configured catalogs applied
// in order.
func (a *app) registry(cmd *cobra.Command) (*registry.Registry, error) {
	reg := registry.Default()
	if len(a.cfg.Catalogs) == 0 {
		return reg, nil
	}
	catalogs, err := registry.LoadAll(cmd.Context(), a.cfg.Catalogs)
	if err != nil {
		return nil, err
	}
	for _, c := range catalogs {
		if err := reg.Apply(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (a *app) collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   commands.NameCollect,
		Short: "Runs the collection units.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.prepare()
			if err != nil {
				return err
			}
			reg, err := a.registry(cmd)
			if err != nil {
				return err
			}
			out, err := commands.Collect(cmd.Context(), cfg, reg)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func (a *app) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   commands.NameReport,
		Short: "Reports on the task output.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.prepare()
			if err != nil {
				return err
			}
			renderer, err := commands.NewRenderer(cfg)
			if err != nil {
				return err
			}
			out, err := commands.Report(cfg, renderer)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   commands.NameCheck,
		Short: "Runs a full checkup.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.prepare()
			if err != nil {
				return err
			}
			reg, err := a.registry(cmd)
			if err != nil {
				return err
			}
			renderer, err := commands.NewRenderer(cfg)
			if err != nil {
				return err
			}
			out, err := commands.Check(cmd.Context(), cfg, reg, renderer)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func (a *app) noopCmd() *cobra.Command {
	return &cobra.Command{
		Use:    commands.NameNoop,
		Short:  "Does nothing; checks the command line and config resolve.",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), commands.Noop())
			return nil
		},
	}
}

func (a *app) unitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "Lists the registered collection units.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), commands.ListUnits(reg))
			return nil
		},
	}
}
