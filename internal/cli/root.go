package cli

import "github.com/spf13/cobra"

// Version is set at build time with -ldflags "-X".
var Version = "dev"

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "spectest",
		Short:   "Scaffold Go contract tests from an OpenAPI document",
		Version: Version,

		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(MakeCommand())

	return root
}
