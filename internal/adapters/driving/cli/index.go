package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/wardenlabs/warden/internal/core/ports/driving"
	"github.com/wardenlabs/warden/internal/logger"
)

var indexWatch bool

// watchDebounce coalesces bursts of filesystem events into one re-index.
const watchDebounce = 2 * time.Second

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Index a directory of standards documents",
	Long: `Parses, chunks, embeds and stores every markdown standard under the
given directory. Re-running over unchanged documents is a no-op; stale
chunks of edited documents are pruned.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "re-index automatically when files change")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := args[0]
	ctx := cmd.Context()

	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	svc := d.newIndexService()

	if err := runIndexPass(ctx, cmd, svc, root); err != nil {
		return err
	}
	if !indexWatch {
		return nil
	}

	return watchAndReindex(ctx, cmd, svc, root)
}

// runIndexPass runs one indexing pass and prints the report.
func runIndexPass(ctx context.Context, cmd *cobra.Command, svc driving.IndexService, root string) error {
	report, err := svc.IndexDirectory(ctx, root)
	if err != nil {
		return err
	}
	cmd.Printf("Indexed %d documents (%d chunks, %d pruned)\n",
		report.Documents, report.Chunks, report.Pruned)
	return nil
}

// watchAndReindex blocks, re-indexing on debounced file changes until the
// context is cancelled.
func watchAndReindex(ctx context.Context, cmd *cobra.Command, svc driving.IndexService, root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	cmd.Printf("Watching %s for changes (Ctrl-C to stop)\n", root)

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".md") {
				continue
			}
			logger.Debug("Change detected: %s (%s)", event.Name, event.Op)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-pending:
			if err := runIndexPass(ctx, cmd, svc, root); err != nil {
				// A malformed document mid-edit should not kill the
				// watcher; report and keep waiting.
				cmd.PrintErrf("Re-index failed: %v\n", err)
			}
		}
	}
}
