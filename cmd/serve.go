package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/crewmatch/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket API",
	Long: `Starts the crewmatch API: task and worker CRUD with vector sync on every
write, similarity search, the /ws/match socket, admin rebuilds, health and
Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv := server.New(server.Config{
			Port:     port,
			AllowAll: a.cfg.Server.AllowAllOrigins,
		}, server.Deps{
			DB:        a.db,
			Records:   a.records,
			Vectors:   a.vectors,
			Engine:    a.engine,
			Rebuilder: a.rebuilder(),
			Logger:    a.log,
		})

		go func() {
			<-ctx.Done()
			a.log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Error("shutdown failed", "error", err)
			}
		}()

		a.log.Info("crewmatch server starting",
			"version", Version,
			"port", port,
			"db", a.cfg.DBPath,
			"vector_backend", a.cfg.VectorBackend,
			"embedder", a.embedder.Name(),
			"sync_mode", a.cfg.Sync.Mode,
		)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
