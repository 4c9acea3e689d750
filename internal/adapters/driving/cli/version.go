package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wkyt-app/wkyt/internal/adapters/driving/mcp"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("wkyt version %s\n", version)
		cmd.Println(mutedStyle.Render("mcp server " + mcp.Version + ", " + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
