package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/crewmatch/internal/syncer"
)

var syncWorkerCmd = &cobra.Command{
	Use:   "sync-worker",
	Short: "Apply write events published on NATS to the vector store",
	Long: `Consumes the write events that API processes publish when sync.mode is
"nats" and applies them to the vector collections. Several workers may run
side by side; they share the subject through a queue group.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.Sync.NATSURL == "" {
			return fmt.Errorf("sync.nats_url is not set; the sync worker only runs against NATS")
		}
		nc, err := a.connectNATS()
		if err != nil {
			return err
		}
		defer nc.Close()

		applier := syncer.NewInline(a.embedder, a.vectors)
		sub, err := syncer.Consume(a.ctx(ctx), nc, a.cfg.Sync.NATSSubject, applier)
		if err != nil {
			return err
		}
		defer sub.Drain()

		a.log.Info("sync worker consuming", "subject", sub.Subject, "embedder", a.embedder.Name())
		<-ctx.Done()
		a.log.Info("sync worker stopping")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncWorkerCmd)
}
