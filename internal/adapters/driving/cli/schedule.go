package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/adreports/internal/logger"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run scheduled reports in the foreground",
	Long: `Runs the scheduler loop. Report schedules come from the [schedules.<id>]
tables in config.toml; edits to the file are picked up without a restart.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configPath != "" {
		watcher, err := watchConfig(ctx, configPath, func() {
			if reloadConfig != nil {
				if err := reloadConfig(); err != nil {
					logger.Error("reload config: %v", err)
					return
				}
			}
			if err := scheduler.Reload(ctx); err != nil {
				logger.Error("reload schedules: %v", err)
				return
			}
			logger.Info("schedules reloaded from %s", configPath)
		})
		if err != nil {
			logger.Warn("config reload disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")

	errCh := make(chan error, 1)
	go func() {
		errCh <- scheduler.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	case <-ctx.Done():
		cmd.Println("Stopping scheduler...")
		return scheduler.Stop()
	}
}

// watchConfig calls onChange whenever path is written or replaced. The
// parent directory is watched so editors that save by rename are seen.
func watchConfig(ctx context.Context, path string, onChange func()) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	target := filepath.Clean(path)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher: %v", err)
			}
		}
	}()
	return watcher, nil
}
