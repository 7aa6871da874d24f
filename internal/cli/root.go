package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/postermill/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Postermill generates randomized collage posters",
		Long: `Postermill builds collage posters from keyword image sets.

Each poster copies one source image as the background, pastes randomly
scaled and rotated images on top of it and draws the keywords as text.
Images come from local keyword directories or from URL lists in the
configuration file.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ./"+defaultConfigFile+" if present)")

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
