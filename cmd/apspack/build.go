// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/apspack/apspack/internal/config"
	"github.com/apspack/apspack/internal/issue"
	"github.com/apspack/apspack/internal/report"
	"github.com/apspack/apspack/internal/watch"
	"github.com/apspack/apspack/pkg/apspkg"
	"github.com/apspack/apspack/pkg/types"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type (
	buildFlagValues struct {
		input        string
		output       string
		validate     bool
		compression  string
		reportPath   string
		reportFormat string
		watch        bool
	}

	// buildSettings is the merged result of flags, config and defaults.
	buildSettings struct {
		sourceDir    string
		outputDir    string
		validate     bool
		compression  apspkg.Compression
		reportPath   string
		reportFormat report.Format
		watch        bool
		watchCfg     config.WatchConfig
	}
)

func newBuildCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a package from a source tree",
		Long: `Build <name>-<version>-<release>.app.zip from the source tree at --input.

The archive is written to a temporary file and renamed into place, so a failed
build never leaves a partial package at the final path. APP-META.xml is
stamped with the packaging time in UTC; APP-LIST.xml is added when the
descriptor's schema version is 1.2 or later.`,
		Example: `  apspack build
  apspack build -i ./src -o ./dist
  apspack build -v --report build.yaml
  apspack build --watch`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context(), app, rootFlags)
			if err != nil {
				return err
			}
			settings, err := resolveBuildSettings(cmd, cfg, flags)
			if err != nil {
				return usageError(err)
			}
			logger := newLogger(app.stderr, cfg)
			if settings.watch {
				return runWatch(cmd.Context(), app, settings, logger)
			}
			return runBuild(cmd.Context(), app, settings, logger)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "package source directory (default is the working directory)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "directory receiving the archive (default is output_dir or the working directory)")
	cmd.Flags().BoolVarP(&flags.validate, "validate", "v", false, "verify the archive against its file list after building")
	cmd.Flags().StringVar(&flags.compression, "compression", "", "member compression: deflate or store")
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "write a build report to this file")
	cmd.Flags().StringVar(&flags.reportFormat, "report-format", "", "report format: json, toml or yaml (default from the report extension)")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "rebuild whenever the source tree changes")
	return cmd
}

// resolveBuildSettings applies flag > config > default precedence.
func resolveBuildSettings(cmd *cobra.Command, cfg *config.Config, flags *buildFlagValues) (*buildSettings, error) {
	home, _ := os.UserHomeDir()

	input := flags.input
	if input == "" {
		input = "."
	}
	sourceDir, err := types.FilesystemPath(input).Resolve(home)
	if err != nil {
		return nil, fmt.Errorf("--input: %w", err)
	}

	output := cfg.OutputDir
	if cmd.Flags().Changed("output") {
		output = flags.output
	}
	if output == "" {
		output = "."
	}
	outputDir, err := types.FilesystemPath(output).Resolve(home)
	if err != nil {
		return nil, fmt.Errorf("--output: %w", err)
	}

	compression := apspkg.Compression(cfg.Compression)
	if cmd.Flags().Changed("compression") {
		compression = apspkg.Compression(flags.compression)
	}
	if err := compression.Validate(); err != nil {
		return nil, fmt.Errorf("--compression: %w", err)
	}

	validate := cfg.Validate
	if cmd.Flags().Changed("validate") {
		validate = flags.validate
	}

	format := report.Format(cfg.Report.Format)
	if flags.reportPath != "" {
		format = report.FormatFor(flags.reportPath, format)
	}
	if flags.reportFormat != "" {
		format = report.Format(flags.reportFormat)
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("--report-format: %w", err)
	}

	return &buildSettings{
		sourceDir:    sourceDir,
		outputDir:    outputDir,
		validate:     validate,
		compression:  compression,
		reportPath:   flags.reportPath,
		reportFormat: format,
		watch:        flags.watch,
		watchCfg:     cfg.Watch,
	}, nil
}

// runBuild performs one build, the optional verification and the optional
// report.
func runBuild(ctx context.Context, app *App, s *buildSettings, logger *log.Logger) error {
	res, err := apspkg.Build(ctx, apspkg.BuildOptions{
		SourceDir:   s.sourceDir,
		OutputDir:   s.outputDir,
		Compression: s.compression,
		Now:         app.now,
		Logger:      logger,
	})
	if err != nil {
		return buildFailure(err, s.sourceDir)
	}

	var verification *apspkg.VerifyResult
	if s.validate {
		verification, err = apspkg.Verify(res.ArchivePath)
		if err != nil {
			return archiveFailure(err, res.ArchivePath)
		}
	}

	if s.reportPath != "" {
		rep := report.New(res, app.now())
		rep.Verification = verification
		if err := rep.WriteFile(s.reportPath, s.reportFormat); err != nil {
			return &ExitError{
				Code: types.ExitBuildFailed,
				Err:  issue.WrapWithContext(err, "write build report", s.reportPath),
			}
		}
		logger.Debug("wrote build report", "path", s.reportPath, "format", s.reportFormat)
	}

	printBuildResult(app, res)
	if verification != nil {
		return reportVerification(app, verification)
	}
	return nil
}

func printBuildResult(app *App, res *apspkg.BuildResult) {
	list := "without APP-LIST.xml"
	if res.FileListIncluded {
		list = "with APP-LIST.xml"
	}
	fmt.Fprintf(app.stdout, "%s %s (%d entries, %d bytes, %s)\n",
		SuccessStyle.Render("Built"),
		CmdStyle.Render(res.ArchivePath),
		len(res.Entries), res.SizeBytes, list)
}

// runWatch builds once and then rebuilds on every debounced change until
// ctx is canceled. Rebuild failures are logged; watching continues.
func runWatch(ctx context.Context, app *App, s *buildSettings, logger *log.Logger) error {
	if err := runBuild(ctx, app, s, logger); err != nil {
		logger.Error("initial build failed", "err", err)
	}

	// Excluded paths never reach the archive, except APP-META.xml which
	// still drives the build.
	ignore := slices.DeleteFunc(apspkg.DefaultExclusions().Patterns(), func(p string) bool {
		return p == apspkg.MetaFileName
	})
	ignore = append(ignore, s.watchCfg.Ignore...)
	if rel, ok := relativeInside(s.sourceDir, s.reportPath); ok {
		ignore = append(ignore, rel)
	}

	w, err := watch.New(watch.Config{
		SourceDir: s.sourceDir,
		Ignore:    ignore,
		Debounce:  s.watchCfg.Debounce,
		Logger:    logger,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Info("rebuilding", "changed", len(changed))
			return runBuild(ctx, app, s, logger)
		},
	})
	if err != nil {
		return usageError(issue.WrapWithContext(err, "watch source tree", s.sourceDir))
	}
	fmt.Fprintf(app.stdout, "%s %s (Ctrl+C to stop)\n", SubtitleStyle.Render("Watching"), CmdStyle.Render(s.sourceDir))

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return &ExitError{Code: types.ExitBuildFailed, Err: err}
	}
	return nil
}

// relativeInside returns path relative to root, slash-separated, when path
// lies inside root.
func relativeInside(root, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// buildFailure maps a pipeline error to its catalog entry and suggestions.
func buildFailure(err error, sourceDir string) error {
	ctx := issue.NewErrorContext().
		WithOperation("build package").
		WithResource(sourceDir).
		Wrap(err)

	var id issue.Id
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &ExitError{Code: types.ExitBuildFailed, Err: ctx.BuildError()}
	case errors.Is(err, apspkg.ErrMetadataMissing):
		id = issue.MetadataMissingId
		ctx.WithSuggestion("Point -i/--input at the directory containing APP-META.xml")
	case errors.Is(err, apspkg.ErrMetadataMalformed):
		id = issue.MetadataMalformedId
		ctx.WithSuggestion("Check that APP-META.xml is well-formed XML")
	case errors.Is(err, apspkg.ErrMetadataIncomplete):
		id = issue.MetadataIncompleteId
		ctx.WithSuggestion("Add non-empty <name>, <version> and <release> elements to APP-META.xml")
	case errors.Is(err, apspkg.ErrFileUnreadable):
		id = issue.FileUnreadableId
		ctx.WithSuggestion("Check file permissions under the source tree")
	default:
		id = issue.ArchiveWriteFailedId
		ctx.WithSuggestion("Check that the output directory is writable and has free space")
	}
	return &ExitError{
		Code: types.ExitBuildFailed,
		Err:  newServiceError(ctx.BuildError(), id, ""),
	}
}

// archiveFailure wraps a structural verification error.
func archiveFailure(err error, archivePath string) error {
	return &ExitError{
		Code: types.ExitBuildFailed,
		Err:  newServiceError(issue.WrapWithContext(err, "verify package", archivePath), issue.ArchiveInvalidId, ""),
	}
}
