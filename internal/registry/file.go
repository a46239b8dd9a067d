package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapgate/internal/config"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

// reloadDelay coalesces the bursts of events editors produce on save.
const reloadDelay = 100 * time.Millisecond

type fileDocument struct {
	DataSources []config.DataSourceConfig `yaml:"datasources"`
}

// LoadFile reads a data source file:
//
//	datasources:
//	  - id: sales
//	    kind: postgres
//	    host: db
//	    password: ${SALES_PASSWORD}
func LoadFile(path string) ([]core.DataSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data source file: %w", err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse data source file %s: %w", path, err)
	}
	if err := config.ValidateDataSources(doc.DataSources); err != nil {
		return nil, fmt.Errorf("invalid data source file %s: %w", path, err)
	}
	out := make([]core.DataSource, 0, len(doc.DataSources))
	for _, d := range doc.DataSources {
		out = append(out, d.ToDataSource())
	}
	return out, nil
}

// Merge overlays file entries on inline ones; a file entry wins on id clash.
func Merge(inline, fromFile []core.DataSource) []core.DataSource {
	byID := make(map[string]core.DataSource, len(inline)+len(fromFile))
	for _, ds := range inline {
		byID[ds.ID] = ds
	}
	for _, ds := range fromFile {
		byID[ds.ID] = ds
	}
	out := make([]core.DataSource, 0, len(byID))
	for _, ds := range byID {
		out = append(out, ds)
	}
	core.SortDataSources(out)
	return out
}

// Seed fills r with the inline data sources plus, when path is set, the
// contents of the data source file.
func (r *Registry) Seed(inline []core.DataSource, path string) error {
	list := inline
	if path != "" {
		fromFile, err := LoadFile(path)
		if err != nil {
			return err
		}
		list = Merge(inline, fromFile)
	}
	return r.Replace(list)
}

// Watch reloads the data source file whenever it changes, until ctx is done.
// A file that fails to load leaves the registry untouched. The parent
// directory is watched so that atomic renames by editors are seen.
func (r *Registry) Watch(ctx context.Context, inline []core.DataSource, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	r.logger.Debug("watching data source file", slog.String("path", abs))

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDelay, func() {
				r.reload(inline, abs)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (r *Registry) reload(inline []core.DataSource, path string) {
	fromFile, err := LoadFile(path)
	if err != nil {
		r.logger.Warn("keeping previous data sources", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if err := r.Replace(Merge(inline, fromFile)); err != nil {
		r.logger.Warn("keeping previous data sources", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	r.logger.Info("reloaded data sources", slog.String("path", path), slog.Int("count", len(fromFile)))
}
