// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/apspack/apspack/internal/issue"
	"github.com/apspack/apspack/pkg/apspkg"
	"github.com/apspack/apspack/pkg/types"

	"github.com/spf13/cobra"
)

func newVerifyCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive>",
		Short: "Check a package against its APP-LIST.xml",
		Long: `Recompute the SHA-256 and size of every member listed in APP-LIST.xml and
compare them with the recorded values. Members missing from the archive and
files absent from the list are reported too. Packages without a file list
only have their descriptor checked.

Exits with code 3 when the contents do not match.`,
		Example: `  apspack verify dist/myapp-1.0.0-1.app.zip`,
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), app, rootFlags)
			if err != nil {
				return err
			}
			logger := newLogger(app.stderr, cfg)

			res, err := apspkg.Verify(args[0])
			if err != nil {
				return archiveFailure(err, args[0])
			}
			logger.Debug("verified archive", "path", args[0], "checked", res.FilesChecked)
			return reportVerification(app, res)
		},
	}
}

// reportVerification prints the outcome and returns an ExitVerifyMismatch
// error when the contents differ from the file list.
func reportVerification(app *App, res *apspkg.VerifyResult) error {
	id := res.Metadata.PackageBase()
	if res.OK() {
		if res.HasFileList {
			fmt.Fprintf(app.stdout, "%s %s (%d files match APP-LIST.xml)\n",
				SuccessStyle.Render("Verified"), CmdStyle.Render(id), res.FilesChecked)
		} else {
			fmt.Fprintf(app.stdout, "%s %s (no APP-LIST.xml, descriptor only)\n",
				SuccessStyle.Render("Verified"), CmdStyle.Render(id))
		}
		return nil
	}

	fmt.Fprintf(app.stdout, "%s %s\n", ErrorStyle.Render("Verification failed:"), CmdStyle.Render(res.ArchivePath))
	for _, m := range res.Mismatches {
		fmt.Fprintf(app.stdout, "  %s %s (sha256 %s != %s, size %d != %d)\n",
			WarningStyle.Render("changed"), m.Name, short(m.ActualHash), short(m.ExpectedHash), m.ActualSize, m.ExpectedSize)
	}
	for _, name := range res.Missing {
		fmt.Fprintf(app.stdout, "  %s %s\n", WarningStyle.Render("missing"), name)
	}
	for _, name := range res.Undeclared {
		fmt.Fprintf(app.stdout, "  %s %s\n", WarningStyle.Render("undeclared"), name)
	}

	err := fmt.Errorf("%d changed, %d missing, %d undeclared", len(res.Mismatches), len(res.Missing), len(res.Undeclared))
	return &ExitError{
		Code: types.ExitVerifyMismatch,
		Err:  newServiceError(issue.WrapWithContext(err, "verify package", res.ArchivePath), issue.VerificationFailedId, ""),
	}
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
