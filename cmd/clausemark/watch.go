package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file> <quote>",
	Short: "Re-run locate whenever an HTML file changes",
	Long: `Watch an HTML file and print the locate preview each time it is saved.
Stop with Ctrl-C.

Examples:
  clausemark watch draft.html "the parties agree to binding arbitration"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		path, quote := args[0], args[1]
		w := cmd.OutOrStdout()
		locate := func() {
			if err := runLocate(ctx, w, path, quote); err != nil {
				fmt.Fprintln(w, missStyle.Render("error: ")+err.Error())
			}
		}
		locate()
		return watchFile(ctx, path, func() {
			fmt.Fprintln(w, dimStyle.Render("── "+path+" changed"))
			locate()
		})
	},
}

// watchFile calls onChange after every write to path until ctx is done.
// The parent directory is watched so editors that save by rename are seen.
func watchFile(ctx context.Context, path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close() // Best-effort cleanup, ignore error
	}()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}
