package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/crewmatch/internal/mcp"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing task and worker similarity search as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := a.ctx(cmd.Context())
		tasks, _ := a.vectors.Count(ctx, vectordb.TaskVectors)
		users, _ := a.vectors.Count(ctx, vectordb.UserVectors)
		if tasks == 0 && users == 0 {
			fmt.Fprintln(os.Stderr, "Warning: vector collections are empty. Run `crewmatch rebuild-all` first.")
		}

		fmt.Fprintf(os.Stderr, "crewmatch MCP server started on stdio (tasks=%d, users=%d)\n", tasks, users)

		srv := mcpserver.NewServer(a.engine, a.vectors)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
