// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

func newCompletionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for apspack.

` + SubtitleStyle.Render("Bash:") + `
  eval "$(apspack completion bash)"

` + SubtitleStyle.Render("Zsh:") + `
  apspack completion zsh > "${fpath[1]}/_apspack"

` + SubtitleStyle.Render("Fish:") + `
  apspack completion fish > ~/.config/fish/completions/apspack.fish

` + SubtitleStyle.Render("PowerShell:") + `
  apspack completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  usageArgs(cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(app.stdout, true)
			case "zsh":
				return root.GenZshCompletion(app.stdout)
			case "fish":
				return root.GenFishCompletion(app.stdout, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(app.stdout)
			}
			return nil
		},
	}
}
