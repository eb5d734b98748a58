package cmd

import (
	"github.com/spf13/cobra"

	"github.com/notifier-app/notifier/internal/ver"
)

func NewVersionCmd(parent *cobra.Command, version ver.Version) {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Returns the version of the notifier cli",
		Long: `Returns the version of the notifier cli. For example:

notifier version

Go Version: go1.21.5
Version: v0.1.0
Commit: b1fd421
Build Time: Mon Jan  1 00:00:00 0001
OS/Arch: linux/amd64`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(version.Format())
		},
	}

	parent.AddCommand(cmd)
}
