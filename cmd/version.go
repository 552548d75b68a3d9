package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the brdgen version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("brdgen %s (%s/%s)\n", appVersion, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
