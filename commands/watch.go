package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/useblocks/emfbridge/config"
)

const watchDebounce = 500 * time.Millisecond

func newWatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-run the import whenever the model or configuration changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), *configPath)
		},
	}
}

// watchTargets resolves the files the watch loop reacts to and their
// parent directories. Directories are watched instead of the files:
// editors replace files on save, which drops watches registered on the
// files themselves.
func watchTargets(configPath string, cfg *config.Config) (dirs []string, files map[string]bool, err error) {
	files = make(map[string]bool)
	seen := make(map[string]bool)
	for _, path := range []string{configPath, cfg.ECore, cfg.XMI} {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, nil, err
		}
		files[abs] = true
		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs, files, nil
}

func runWatch(ctx context.Context, configPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// watched set is rebuilt after every config reload so path changes in
	// the config take effect
	watchedDirs := make(map[string]bool)
	watchedFiles := make(map[string]bool)
	syncWatches := func(cfg *config.Config) error {
		dirs, files, err := watchTargets(configPath, cfg)
		if err != nil {
			return err
		}
		for _, dir := range dirs {
			if watchedDirs[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			watchedDirs[dir] = true
			slog.Info("watching", "dir", dir)
		}
		watchedFiles = files
		return nil
	}

	importOnce := func() {
		rt, err := loadRuntime(configPath, nil)
		if err != nil {
			slog.Error("import skipped", "error", err)
			return
		}
		if err := rt.cfg.ValidateImport(); err != nil {
			rt.log.Error("import skipped", "error", err)
			return
		}
		if err := syncWatches(rt.cfg); err != nil {
			rt.log.Error("watch update failed", "error", err)
		}
		if err := runImport(rt); err != nil {
			rt.log.Error("import failed", "error", err)
		}
	}

	rt, err := loadRuntime(configPath, nil)
	if err != nil {
		return err
	}
	if err := rt.cfg.ValidateImport(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := syncWatches(rt.cfg); err != nil {
		return err
	}
	if err := runImport(rt); err != nil {
		rt.log.Error("import failed", "error", err)
	}

	var debounce *time.Timer
	trigger := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			rt.log.Info("shutting down")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watchedFiles[abs] {
				continue
			}
			rt.log.Debug("change detected", "path", event.Name, "op", event.Op.String())
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			rt.log.Error("watch error", "error", err)
		case <-trigger:
			rt.log.Info("re-running import")
			importOnce()
		}
	}
}
