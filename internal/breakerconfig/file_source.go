// Package breakerconfig provides a hot-reloadable, file-backed source for
// per-breaker settings and feature flags, so a fleet operator can retune a
// live breaker (or kill-switch it entirely) by editing a config file
// without restarting the service.
package breakerconfig

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// BreakerConfig is one breaker's file-configurable settings. Fields mirror
// breaker.Settings but stay local to this package (rather than importing
// internal/breaker) so the config schema can evolve independently of the
// decision core's internal representation.
type BreakerConfig struct {
	Enabled                bool    `yaml:"enabled"`
	WindowSeconds          int     `yaml:"windowSeconds"`
	MinRequests            int     `yaml:"minRequests"`
	OpenThreshold          float64 `yaml:"openThreshold"`
	CloseThreshold         float64 `yaml:"closeThreshold"`
	RecoveryTimeoutSeconds int     `yaml:"recoveryTimeoutSeconds"`
	ReadDelaySeconds       int     `yaml:"readDelaySeconds"`
}

// File is the on-disk schema: a map of breaker name to BreakerConfig.
type File struct {
	Breakers map[string]BreakerConfig `yaml:"breakers"`
}

// FileSource watches a YAML config file and notifies subscribers whenever
// it changes. It follows the same watch-the-directory-not-the-file
// pattern editors and deploy tooling (atomic rename-on-write) require,
// since a bare fsnotify.Watch on the file itself misses writes that
// replace the inode.
type FileSource struct {
	path    string
	log     *zap.Logger
	watcher *fsnotify.Watcher

	mu       sync.RWMutex
	current  File
	onChange []func(File)

	done chan struct{}
}

// NewFileSource constructs a FileSource for the config file at path,
// performing an initial synchronous load. log may be nil.
func NewFileSource(path string, log *zap.Logger) (*FileSource, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fs := &FileSource{path: path, log: log, done: make(chan struct{})}
	if err := fs.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fs.watcher = watcher

	dir := parentDir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	go fs.watchLoop()
	return fs, nil
}

// Current returns the most recently loaded config.
func (fs *FileSource) Current() File {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.current
}

// OnChange registers fn to be called (from the watch goroutine) every time
// the config file is successfully reloaded after a change. fn must not
// block for long, since it runs on the single watch goroutine shared by
// every subscriber.
func (fs *FileSource) OnChange(fn func(File)) {
	fs.mu.Lock()
	fs.onChange = append(fs.onChange, fn)
	fs.mu.Unlock()
}

// Close stops the watch goroutine and releases the underlying fsnotify
// watcher.
func (fs *FileSource) Close() error {
	close(fs.done)
	if fs.watcher != nil {
		return fs.watcher.Close()
	}
	return nil
}

func (fs *FileSource) watchLoop() {
	for {
		select {
		case <-fs.done:
			return
		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if event.Name != fs.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := fs.load(); err != nil {
				fs.log.Warn("breaker config reload failed, keeping previous config",
					zap.String("path", fs.path), zap.Error(err))
				continue
			}
			fs.notify()
		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			fs.log.Warn("breaker config watcher error", zap.Error(err))
		}
	}
}

func (fs *FileSource) load() error {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	fs.mu.Lock()
	fs.current = f
	fs.mu.Unlock()
	fs.log.Info("breaker config loaded", zap.String("path", fs.path), zap.Int("breakers", len(f.Breakers)))
	return nil
}

func (fs *FileSource) notify() {
	fs.mu.RLock()
	current := fs.current
	subscribers := append([]func(File){}, fs.onChange...)
	fs.mu.RUnlock()

	for _, fn := range subscribers {
		fn(current)
	}
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
