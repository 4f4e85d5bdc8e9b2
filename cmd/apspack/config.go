// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/apspack/apspack/internal/config"
	"github.com/apspack/apspack/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `apspack config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage apspack configuration",
		Long: `Manage apspack configuration.

Configuration is read from the --config file, else from:
  - Linux: ~/.config/apspack/config.cue
  - macOS: ~/Library/Application Support/apspack/config.cue
  - Windows: %APPDATA%\apspack\config.cue
and finally from ./config.cue. APSPACK_* environment variables override
file values.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context(), app, rootFlags)
			if err != nil {
				return err
			}
			path, err := config.ResolvePath(config.LoadOptions{ConfigFilePath: rootFlags.configPath})
			if err != nil {
				return usageError(newServiceError(err, issue.ConfigLoadFailedId, ""))
			}
			if path == "" {
				fmt.Fprintln(app.stdout, "// no config file, using defaults")
			} else {
				fmt.Fprintf(app.stdout, "// source: %s\n", path)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Long: `Write the default configuration to the --config path or to the user
config directory. An existing file is left alone unless --force is given.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(_ *cobra.Command, _ []string) error {
			path := rootFlags.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(config.LoadOptions{}); err != nil {
					return err
				}
			}
			written, err := config.WriteDefault(path, force)
			if err != nil {
				return issue.WrapWithContext(err, "write configuration", path)
			}
			if !written {
				fmt.Fprintf(app.stdout, "%s %s already exists (use --force to overwrite)\n",
					WarningStyle.Render("!"), CmdStyle.Render(path))
				return nil
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n",
				SuccessStyle.Render("✓"), CmdStyle.Render(path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file in use",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(_ *cobra.Command, _ []string) error {
			opts := config.LoadOptions{ConfigFilePath: rootFlags.configPath}
			path, err := config.ResolvePath(opts)
			if err != nil {
				return usageError(newServiceError(err, issue.ConfigLoadFailedId, ""))
			}
			if path != "" {
				fmt.Fprintln(app.stdout, path)
				return nil
			}
			defaultPath, err := config.DefaultPath(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s (not created, using defaults)\n", defaultPath)
			return nil
		},
	})

	return cfgCmd
}
