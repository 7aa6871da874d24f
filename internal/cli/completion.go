package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// shellScripts maps each supported shell to its completion generator.
var shellScripts = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

// outputFormats are offered when completing --format.
var outputFormats = []string{"png", "jpg", "gif", "tif", "bmp"}

// completionCommand prints a shell completion script.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Print a shell completion script",
		Long: `Print a completion script for postermill to stdout.

Besides commands and flags, the scripts complete --format with the
supported image formats, --dir with directories and --font with font
files.

Try it in the current shell:
  $ source <(postermill completion bash)
  $ postermill completion fish | source

Install it for new shells:
  $ postermill completion bash > ~/.local/share/bash-completion/completions/postermill
  $ postermill completion zsh > "${fpath[1]}/_postermill"
  $ postermill completion fish > ~/.config/fish/completions/postermill.fish
  PS> postermill completion powershell >> $PROFILE`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, ok := shellScripts[args[0]]
			if !ok {
				return fmt.Errorf("unsupported shell %q", args[0])
			}
			return gen(cmd.Root(), cmd.OutOrStdout())
		},
	}
}

// registerPosterCompletions adds value completion for the flags generate
// and serve share.
func registerPosterCompletions(cmd *cobra.Command) {
	if cmd.Flags().Lookup("format") != nil {
		_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(outputFormats, cobra.ShellCompDirectiveNoFileComp))
	}
	_ = cmd.MarkFlagDirname("dir")
	_ = cmd.MarkFlagFilename("font", "ttf", "otf")
}
