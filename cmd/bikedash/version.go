package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"bikedash/internal/config"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := buildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s/%s, %s)\n",
				config.AppName, info.Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
			if info.Commit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", info.Commit)
			}
			if info.BuildTime != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built:  %s\n", info.BuildTime)
			}
		},
	}
}
