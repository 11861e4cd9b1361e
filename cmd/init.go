package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/crewmatch/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize crewmatch configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that picks the embedding provider, vector backend and sync mode, and writes a .crewmatch.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
