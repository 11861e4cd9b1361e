package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/crewmatch/internal/canon"
	"github.com/ziadkadry99/crewmatch/internal/progress"
	"github.com/ziadkadry99/crewmatch/internal/rebuild"
)

// errPartial makes the process exit non-zero after a rebuild that skipped
// records. The report has already been printed.
var errPartial = errors.New("rebuild finished with skipped records")

var rebuildTasksCmd = &cobra.Command{
	Use:   "rebuild-tasks",
	Short: "Drop and repopulate the task vector collection",
	Long:  `Drops TaskVectors and re-encodes every task row. Records that fail to encode are skipped and reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRebuild(cmd, func(ctx context.Context, b *rebuild.Rebuilder) ([]*rebuild.Report, error) {
			r, err := b.Rebuild(ctx, canon.Task)
			if err != nil {
				return nil, err
			}
			return []*rebuild.Report{r}, nil
		})
	},
}

var rebuildUsersCmd = &cobra.Command{
	Use:   "rebuild-users",
	Short: "Drop and repopulate the worker vector collection",
	Long:  `Drops UserVectors and re-encodes every user row. Records that fail to encode are skipped and reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRebuild(cmd, func(ctx context.Context, b *rebuild.Rebuilder) ([]*rebuild.Report, error) {
			r, err := b.Rebuild(ctx, canon.User)
			if err != nil {
				return nil, err
			}
			return []*rebuild.Report{r}, nil
		})
	},
}

var rebuildAllCmd = &cobra.Command{
	Use:   "rebuild-all",
	Short: "Rebuild the task collection, then the worker collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRebuild(cmd, func(ctx context.Context, b *rebuild.Rebuilder) ([]*rebuild.Report, error) {
			return b.RebuildAll(ctx)
		})
	},
}

var clearAndRebuildCmd = &cobra.Command{
	Use:   "clear-and-rebuild",
	Short: "Drop every collection the vector store holds, then rebuild all",
	Long: `Resets the vector store, removing any collection it manages, and
rebuilds TaskVectors and UserVectors from scratch. Use this after changing
the embedding model or dimension.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRebuild(cmd, func(ctx context.Context, b *rebuild.Rebuilder) ([]*rebuild.Report, error) {
			return b.ClearAndRebuild(ctx)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{rebuildTasksCmd, rebuildUsersCmd, rebuildAllCmd, clearAndRebuildCmd} {
		c.Flags().Bool("allow-partial", false, "exit 0 even if some records were skipped")
		c.Flags().Bool("json", false, "print the reports as JSON")
		c.Flags().Int("batch-size", 0, "rows per batch (overrides config)")
		c.Flags().Int("concurrency", 0, "parallel encodes per batch (overrides config)")
		rootCmd.AddCommand(c)
	}
}

type rebuildFunc func(context.Context, *rebuild.Rebuilder) ([]*rebuild.Report, error)

func runRebuild(cmd *cobra.Command, run rebuildFunc) error {
	allowPartial, _ := cmd.Flags().GetBool("allow-partial")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if n, _ := cmd.Flags().GetInt("batch-size"); n > 0 {
		a.cfg.Rebuild.BatchSize = n
	}
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		a.cfg.Rebuild.Concurrency = n
	}

	b := a.rebuilder()
	tracker := newProgressTracker(progress.NewReporter())
	b.SetProgress(tracker.observe)

	start := time.Now()
	reports, err := run(a.ctx(ctx), b)
	tracker.finish()
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		printReports(reports, time.Since(start))
	}

	if rebuild.AnyPartial(reports) && a.cfg.Rebuild.FailOnPartial && !allowPartial {
		return errPartial
	}
	return nil
}

func printReports(reports []*rebuild.Report, elapsed time.Duration) {
	for _, r := range reports {
		fmt.Printf("%s: %d/%d records indexed", r.Collection, r.Succeeded, r.Total)
		if r.Failed > 0 {
			fmt.Printf(", %d skipped", r.Failed)
		}
		fmt.Printf(" in %s\n", r.Duration.Round(time.Millisecond))
		for _, f := range r.Failures {
			fmt.Printf("  - %s: %s\n", f.ID, truncate(f.Error, 160))
		}
	}
	fmt.Printf("\nDone in %s\n", elapsed.Round(time.Millisecond))
}

// progressTracker feeds rebuild progress into a Reporter, starting a new
// bar whenever the rebuild moves on to another collection.
type progressTracker struct {
	mu       sync.Mutex
	reporter progress.Reporter
	entity   canon.EntityType
	last     rebuild.Progress
	started  bool
}

func newProgressTracker(r progress.Reporter) *progressTracker {
	return &progressTracker{reporter: r}
}

func (t *progressTracker) observe(p rebuild.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started || p.Entity != t.entity {
		t.finishLocked()
		t.reporter.Start(p.Total, fmt.Sprintf("Rebuilding %s vectors", p.Entity))
		t.entity = p.Entity
		t.started = true
	}
	// Callbacks from parallel workers may arrive out of order.
	if p.Processed < t.last.Processed && p.Entity == t.last.Entity {
		return
	}
	t.last = p
	t.reporter.Update(p.Processed, p.Failed, p.LastID)
}

func (t *progressTracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishLocked()
}

func (t *progressTracker) finishLocked() {
	if !t.started {
		return
	}
	t.reporter.Finish(fmt.Sprintf("%s: %d processed, %d failed", t.entity, t.last.Processed, t.last.Failed))
	t.started = false
}
