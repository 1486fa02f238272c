package cmd

import (
	"github.com/spf13/cobra"
)

const configFileName = "lessonmark.yaml"

var (
	fChdir   string
	fConfig  string
	fVerbose bool
	fNoColor bool
)

func Root() *cobra.Command {
	cmd := cobra.Command{
		Use:           "lessonmark",
		Short:         "Render course lessons written in extended markdown",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pflags := cmd.PersistentFlags()

	pflags.StringVar(&fChdir, "chdir", ".", "Switch to a different working directory before executing the command.")
	pflags.StringVar(&fConfig, "config", "", "Path to a configuration file. Defaults to "+configFileName+" found in the working directory.")
	pflags.BoolVarP(&fVerbose, "verbose", "v", false, "Enable verbose logging to stderr.")
	pflags.BoolVar(&fNoColor, "no-color", false, "Disable colored output.")

	cmd.AddCommand(renderCmd())
	cmd.AddCommand(coursesCmd())
	cmd.AddCommand(serveCmd())

	return &cmd
}
