package cmd

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/syssam/schemac/compiler/load"
)

// FlagDebounce sets the quiet period before a rebuild.
const FlagDebounce = "debounce"

func newWatch() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate on every change below the corpus root",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)
			debounce, err := cmd.Flags().GetDuration(FlagDebounce)
			if err != nil {
				return err
			}
			skip := append(slices.Clone(load.DefaultSkipPrefixes), cfg.Skip...)
			return watch(ctx, cfg.Root, skip, debounce, func(ctx context.Context) {
				// A failed build is logged and the watch goes on.
				if _, err := generate(ctx, cfg, false); err != nil {
					slogcontext.FromCtx(ctx).Error("build failed", "error", err)
				}
			})
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	cmd.Flags().Duration(FlagDebounce, 200*time.Millisecond, "quiet period before rebuilding")
	addOutputFlags(cmd)
	return cmd
}

// watch runs build once, then again after every burst of schema changes
// below root, until ctx is done.
func watch(ctx context.Context, root string, skip []string, debounce time.Duration, build func(context.Context)) error {
	logger := slogcontext.FromCtx(ctx)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := addTree(w, root, root, skip); err != nil {
		return err
	}

	build(ctx)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				// New directories are watched too; files are ignored by addTree.
				_ = addTree(w, root, ev.Name, skip)
			}
			if relevant(root, ev.Name, skip) {
				logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-timer.C:
			logger.Info("rebuilding")
			build(ctx)
		}
	}
}

// addTree watches dir and every directory below it that is not skipped.
func addTree(w *fsnotify.Watcher, root, dir string, skip []string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(root, p); err == nil && rel != "." && skipped(filepath.ToSlash(rel)+"/", skip) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

// relevant reports whether a change to name can affect the corpus.
func relevant(root, name string, skip []string) bool {
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if skipped(rel, skip) {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func skipped(rel string, skip []string) bool {
	for _, prefix := range skip {
		if strings.HasPrefix(rel, prefix) || strings.Contains(rel, "/"+prefix) {
			return true
		}
	}
	return false
}
