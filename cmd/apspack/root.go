// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apspack/apspack/internal/config"
	"github.com/apspack/apspack/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Version is set via -ldflags.
	Version = "dev"
	// Commit is set via -ldflags.
	Commit = "unknown"
	// BuildDate is set via -ldflags.
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	verbose    bool
	configPath string
}

// NewRootCommand builds the apspack command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	root := &cobra.Command{
		Use:   "apspack",
		Short: "Build APS application packages",
		Long: TitleStyle.Render("apspack") + SubtitleStyle.Render(" - build APS application packages") + `

apspack turns a source tree with an APP-META.xml descriptor into a
<name>-<version>-<release>.app.zip package. The descriptor is stamped with
the packaging time and, for schema 1.2 and later, an APP-LIST.xml manifest
records the SHA-256 and size of every file.

` + SubtitleStyle.Render("Examples:") + `
  apspack build                     Package the current directory
  apspack build -i src -o dist -v   Package src into dist and verify it
  apspack verify dist/app.app.zip   Check an archive against its manifest
  apspack config show               Show the effective configuration`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "enable debug logging and detailed errors")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is <config dir>/apspack/config.cue)")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.AddCommand(
		newBuildCommand(app, flags),
		newVerifyCommand(app, flags),
		newConfigCommand(app, flags),
		newCompletionCommand(app),
	)
	return root
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command tree with os.Args and exits the process.
func Execute() {
	os.Exit(run(context.Background(), NewApp(Dependencies{}), os.Args[1:]))
}

// run executes args against a fresh command tree and returns the exit code.
func run(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if isCobraUsageError(err) {
		err = usageError(err)
	}
	// fang has printed the headline; add suggestions, the cause chain in
	// verbose mode, then the catalog entry.
	var actErr *issue.ActionableError
	if errors.As(err, &actErr) {
		if details := strings.TrimPrefix(actErr.Format(app.verbose), actErr.Error()); strings.TrimSpace(details) != "" {
			fmt.Fprintln(app.stderr, strings.TrimLeft(details, "\n"))
		}
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(app.stderr, svcErr, app.glamourStyle())
	}
	return int(exitCodeFor(err))
}

// isCobraUsageError matches the unstructured errors cobra returns for
// unknown subcommands.
func isCobraUsageError(err error) bool {
	var exitErr *ExitError
	if err == nil || errors.As(err, &exitErr) {
		return false
	}
	return strings.HasPrefix(err.Error(), "unknown command ")
}

// loadConfig loads configuration honoring --config. Failures are usage
// errors with configuration guidance attached.
func loadConfig(ctx context.Context, app *App, flags *rootFlagValues) (*config.Config, error) {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, usageError(newServiceError(err, issue.ConfigLoadFailedId, ""))
	}
	if flags.verbose {
		cfg.UI.Verbose = true
	}
	app.verbose = cfg.UI.Verbose
	app.colorScheme = cfg.UI.ColorScheme
	return cfg, nil
}

// newLogger writes to w at the configured level; verbose forces debug and
// adds timestamps.
func newLogger(w io.Writer, cfg *config.Config) *log.Logger {
	level, err := log.ParseLevel(string(cfg.Log.Level))
	if err != nil {
		level = log.InfoLevel
	}
	if cfg.UI.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          "apspack",
		Level:           level,
		ReportTimestamp: level == log.DebugLevel,
	})
}

// glamourStyle picks the issue rendering style from ui.color_scheme.
// Output that is not a terminal is rendered without colors.
func (a *App) glamourStyle() string {
	f, ok := a.stderr.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "notty"
	}
	switch a.colorScheme {
	case config.ColorSchemeDark, config.ColorSchemeLight:
		return string(a.colorScheme)
	default:
		return "auto"
	}
}
