package cmd

import "github.com/spf13/cobra"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "crewmatch",
	Short: "Semantic matching between construction tasks and site workers",
	Long: `crewmatch keeps a vector index of every task and worker profile in step
with the relational records, and answers similarity questions over it:
which tasks resemble a description, which workers fit a task. It serves
the index over HTTP, WebSocket and MCP, and rebuilds it in bulk.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".crewmatch.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
