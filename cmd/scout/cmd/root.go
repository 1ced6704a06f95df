// Package cmd provides the CLI commands for scout.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/addls/scout/internal/config"
	scerrors "github.com/addls/scout/internal/errors"
	"github.com/addls/scout/internal/logging"
	"github.com/addls/scout/internal/profiling"
	"github.com/addls/scout/internal/registry"
	"github.com/addls/scout/internal/repository"
	"github.com/addls/scout/pkg/version"
)

// app holds the state shared by subcommands. It is loaded lazily so that
// commands like version work without a valid configuration.
type app struct {
	dir     string
	debug   bool
	profile profiling.Config
	prof    *profiling.Session

	cfg      *config.Config
	logger   *slog.Logger
	registry *registry.Registry
	repo     *repository.SQLRepository
	cleanup  func()
}

// load reads configuration and sets up logging and the driver registry.
func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}

	cfg, err := config.Load(a.dir)
	if err != nil {
		return scerrors.ConfigError("failed to load configuration", err)
	}
	a.resolvePaths(cfg)

	logCfg := logging.Config{
		Level:     cfg.Logging.Level,
		FilePath:  logging.ResolvePath(cfg.Logging.File),
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
		Stderr:    a.debug && !cfg.Logging.Quiet,
	}
	if a.debug {
		logCfg.Level = "debug"
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.cleanup = cleanup
	a.registry = registry.New(cfg, registry.WithLogger(logger))
	logger.Debug("config_loaded",
		slog.String("dir", a.dir),
		slog.String("driver", a.registry.DefaultDriver()))
	return nil
}

// resolvePaths anchors relative file paths at the project directory.
func (a *app) resolvePaths(cfg *config.Config) {
	if p := cfg.Bleve.Path; p != "" && !filepath.IsAbs(p) {
		cfg.Bleve.Path = filepath.Join(a.dir, p)
	}
	dsn := cfg.Repository.DSN
	if dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") && !filepath.IsAbs(dsn) {
		cfg.Repository.DSN = filepath.Join(a.dir, dsn)
	}
}

// repository opens the configured record repository once.
func (a *app) repository() (*repository.SQLRepository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	repo, err := repository.Open(a.cfg.Repository)
	if err != nil {
		return nil, err
	}
	a.repo = repo
	return repo, nil
}

// startProfiling starts the profiles requested on the command line.
func (a *app) startProfiling(_ *cobra.Command, _ []string) error {
	if !a.profile.Enabled() {
		return nil
	}
	prof, err := profiling.Start(a.profile)
	if err != nil {
		return err
	}
	a.prof = prof
	return nil
}

// close releases engines, the repository and the log file, and flushes
// profiles.
func (a *app) close() {
	if err := a.prof.Stop(); err != nil {
		fmt.Fprintln(os.Stderr, "profiling:", err)
	}
	if a.registry != nil {
		if err := a.registry.Close(); err != nil {
			a.logger.Warn("close_failed", slog.String("error", err.Error()))
		}
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
	if a.cleanup != nil {
		a.cleanup()
	}
}

// NewRootCmd creates the root command for the scout CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scout",
		Short: "Search structured records through a pluggable backend",
		Long: `scout indexes the rows of a SQL table into a search backend and
queries them with free text, conditions, sorting and pagination.

Backends are selected by name: elasticsearch, bleve (local index) or null.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("scout version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&a.dir, "dir", "C", ".", "Project directory holding .scout.yaml")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Log debug output to stderr")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Heap, "profile-mem", "", "Write heap profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = a.startProfiling

	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newDriversCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and reports errors on stderr.
func Execute() error {
	return execute(context.Background(), os.Args[1:])
}

func execute(ctx context.Context, args []string) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), scerrors.FormatForCLI(err))
	}
	return err
}
