package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [collection] [id]",
	Short: "Show a stored vector entry",
	Long: `Prints the metadata and canonical text stored for one entry, e.g.
"crewmatch inspect UserVectors user_3" or "crewmatch inspect task task_12".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, err := vectordb.ParseCollection(args[0])
		if err != nil {
			return err
		}

		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := a.ctx(cmd.Context())
		entry, err := a.vectors.Get(ctx, collection, args[1])
		if err != nil {
			return err
		}
		if asJSON(cmd) {
			return printJSON(entry)
		}
		fmt.Print(vectordb.FormatEntry(collection, entry))
		return nil
	},
}

func init() {
	inspectCmd.Flags().Bool("json", false, "output the entry as JSON")
	rootCmd.AddCommand(inspectCmd)
}
