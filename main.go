package main

import (
	"github.com/notifier-app/notifier/cmd"
	"github.com/notifier-app/notifier/internal/ver"
)

func main() {
	version := ver.Load()

	rootCmd := cmd.NewRootCmd(version)
	cmd.NewAccountCmd(rootCmd)
	cmd.NewTemplateCmd(rootCmd)
	cmd.NewDestinationCmd(rootCmd)
	cmd.NewIntegrationCmd(rootCmd)
	cmd.NewTUICmd(rootCmd)
	cmd.NewVersionCmd(rootCmd, version)
	cmd.NewEnvCmd(rootCmd)
	cmd.NewCompletionCmd(rootCmd)
	cmd.Execute(rootCmd)
}
