package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/jingkaihe/specref/pkg/config"
	"github.com/jingkaihe/specref/pkg/logger"
	"github.com/jingkaihe/specref/pkg/presenter"
	"github.com/pkg/errors"
)

// watchReferences re-runs the check after every burst of file changes under
// root and the reference roots, and prints a unified diff of the report
// against the previous run. It returns when ctx is cancelled.
func watchReferences(ctx context.Context, root string, cfg *CheckReferencesConfig, s config.Settings, out, errOut io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := logger.G(ctx)
	p := presenter.NewWithOptions(out, errOut, presenter.ColorAuto)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	excludes := append(append([]string{}, s.LoadOptions().Excludes...), cfg.Excludes...)

	dirs, err := watchDirs(root, s, excludes)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		log.WithField("directory", dir).Debug("adding directory to watcher")
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
	}

	events := make(chan fsnotify.Event)
	changes := make(chan fsnotify.Event)
	go debounceEvents(ctx, events, changes, time.Duration(cfg.DebounceTime)*time.Millisecond)

	previous := renderReport(ctx, root, cfg, s)
	p.Info(fmt.Sprintf("Watching %d directories for changes... Press Ctrl+C to stop", len(dirs)))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isExcludedPath(root, event.Name, excludes) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						log.WithError(err).WithField("directory", event.Name).Warn("failed to watch new directory")
					}
				}
			}
			if !relevantEvent(event) {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Error("error watching files")
		case event := <-changes:
			log.WithField("file", event.Name).WithField("operation", event.Op.String()).Debug("re-checking references")

			current := renderReport(ctx, root, cfg, s)
			if diff := udiff.Unified("previous", "current", previous, current); diff != "" {
				fmt.Fprint(out, diff)
			} else {
				p.Info(fmt.Sprintf("Change detected in %s, references unchanged", event.Name))
			}
			previous = current
		case <-ctx.Done():
			return nil
		}
	}
}

// renderReport runs one check and renders it as plain text for diffing
func renderReport(ctx context.Context, root string, cfg *CheckReferencesConfig, s config.Settings) string {
	report, err := checkReferences(ctx, root, cfg, s)
	if err != nil {
		return fmt.Sprintf("error: %v\n", err)
	}
	return report.String()
}

// watchDirs lists every directory to watch: the tree under root plus any
// reference root that lives outside it. Excluded directories are skipped.
func watchDirs(root string, s config.Settings, excludes []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)

	walk := func(base string) error {
		return filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if p != base && isExcludedPath(root, p, excludes) {
				return filepath.SkipDir
			}
			if !seen[p] {
				seen[p] = true
				dirs = append(dirs, p)
			}
			return nil
		})
	}

	if err := walk(root); err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", root)
	}

	for _, dir := range s.DirectiveRoots(root) {
		if within(root, dir) {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := walk(dir); err != nil {
			return nil, errors.Wrapf(err, "failed to walk %s", dir)
		}
	}

	return dirs, nil
}

// isExcludedPath reports whether p, or a file directly inside it when p is
// a directory, matches one of the exclude globs relative to root
func isExcludedPath(root, p string, excludes []string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, path.Join(rel, "_")); ok {
			return true
		}
	}
	return false
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && !strings.HasPrefix(rel, "..")
}

func relevantEvent(event fsnotify.Event) bool {
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// debounceEvents forwards the last event of every burst once no new event
// has arrived for delay
func debounceEvents(ctx context.Context, input <-chan fsnotify.Event, output chan<- fsnotify.Event, delay time.Duration) {
	var pending *time.Timer

	stop := func() {
		if pending != nil {
			pending.Stop()
		}
	}

	for {
		select {
		case event, ok := <-input:
			if !ok {
				stop()
				return
			}
			stop()

			eventCopy := event
			pending = time.AfterFunc(delay, func() {
				select {
				case output <- eventCopy:
				case <-ctx.Done():
				}
			})
		case <-ctx.Done():
			stop()
			return
		}
	}
}
