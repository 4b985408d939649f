package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"gopkg.in/yaml.v3"
)

// reloadDebounce is the delay after an fsnotify event before the
// weights file is re-read, letting editors finish their writes.
const reloadDebounce = 100 * time.Millisecond

// Provider hands out the active scoring config. When a weights file is
// configured it is watched and hot-reloaded; a file that fails to parse
// or validate is logged and ignored, keeping the last good config.
type Provider struct {
	mu   sync.RWMutex
	cfg  Config
	path string
}

func NewProvider(cfg Config, weightsFile string) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	p := &Provider{cfg: cfg, path: weightsFile}
	if weightsFile != "" {
		if err := p.reload(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Provider) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// fileConfig is the weights file shape. Absent fields keep their env
// defaults.
type fileConfig struct {
	Weights             *Weights `yaml:"weights"`
	LoadCap             *int     `yaml:"load_cap"`
	ExperienceThreshold *float64 `yaml:"experience_threshold"`
}

func (p *Provider) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("failed to read weights file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse weights file: %w", err)
	}

	p.mu.RLock()
	next := p.cfg
	p.mu.RUnlock()
	if fc.Weights != nil {
		next.Weights = *fc.Weights
	}
	if fc.LoadCap != nil {
		next.LoadCap = *fc.LoadCap
	}
	if fc.ExperienceThreshold != nil {
		next.ExperienceThreshold = *fc.ExperienceThreshold
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid weights file: %w", err)
	}

	p.mu.Lock()
	p.cfg = next
	p.mu.Unlock()
	return nil
}

// Watch blocks until ctx is cancelled, re-reading the weights file when
// it changes. No-op when no file is configured.
func (p *Provider) Watch(ctx context.Context) error {
	if p.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files via rename, which
	// drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("failed to watch weights dir: %w", err)
	}

	var timer *time.Timer
	reloadCh := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			})
		case <-reloadCh:
			if err := p.reload(); err != nil {
				slog.Warn("keeping previous scoring config", "file", p.path, "error", err)
				continue
			}
			slog.Info("scoring config reloaded", "file", p.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("weights file watcher error", "error", err)
		}
	}
}
