package cli

import "github.com/spf13/cobra"

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for gordian.

To load completions:

Bash:
  $ source <(gordian completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ gordian completion bash > /etc/bash_completion.d/gordian
  # macOS:
  $ gordian completion bash > $(brew --prefix)/etc/bash_completion.d/gordian

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ gordian completion zsh > "${fpath[1]}/_gordian"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ gordian completion fish | source

  # To load completions for each session, execute once:
  $ gordian completion fish > ~/.config/fish/completions/gordian.fish

PowerShell:
  PS> gordian completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> gordian completion powershell > gordian.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
