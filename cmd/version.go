package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(*cobra.Command, []string) {
		fmt.Printf("voyago %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

		if os.Getenv("GEMINI_API_KEY") == "" {
			fmt.Println()
			fmt.Println("Hint: GEMINI_API_KEY is not set; \"voyago serve\" will refuse to start")
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
