package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/addls/scout/configs"
	"github.com/addls/scout/internal/config"
	"github.com/addls/scout/internal/output"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Inspect and create configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/scout/config.yaml)
  3. Project config (.scout.yaml)
  4. Environment variables (SCOUT_*)`,
	}

	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the merged configuration. Secrets are masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			redacted := a.cfg.Redacted()
			if jsonOutput {
				return output.New(cmd.OutOrStdout()).JSON(redacted)
			}
			return redacted.WriteYAML(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .scout.yaml in the project directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			path := filepath.Join(a.dir, ".scout.yaml")

			if _, err := os.Stat(path); err == nil && !force {
				out.Warning("Project configuration already exists")
				out.Statusf("", "Location: %s", path)
				out.Status("", "Use --force to overwrite")
				return nil
			}

			if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			out.Success("Created project configuration")
			out.Statusf("", "Location: %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
