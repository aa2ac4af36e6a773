// Package secrets supplies the API credential from the environment or a key file.
// The credential value is never logged.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/davidbz/draftlock/internal/observability"
)

// Config selects where the API credential comes from.
type Config struct {
	APIKey     string `env:"OPENAI_API_KEY"`
	APIKeyFile string `env:"OPENAI_API_KEY_FILE"`
	WatchFile  bool   `env:"OPENAI_API_KEY_WATCH" envDefault:"true"`
}

// Provider implements domain.SecretProvider.
// A key read from the key file takes precedence over the static key.
type Provider struct {
	static string
	path   string

	mu      sync.RWMutex
	fileKey string

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewProvider creates a provider. A missing key file is not an error; the
// credential is simply absent until the file appears (when watching).
func NewProvider(cfg *Config) (*Provider, error) {
	p := &Provider{
		static: strings.TrimSpace(cfg.APIKey),
	}

	if cfg.APIKeyFile == "" {
		return p, nil
	}

	path, err := filepath.Abs(cfg.APIKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve key file path: %w", err)
	}
	p.path = path

	if err := p.reload(); err != nil {
		return nil, err
	}

	if cfg.WatchFile {
		if err := p.watch(); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// CurrentCredential returns the active credential and whether one is configured.
func (p *Provider) CurrentCredential(_ context.Context) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.fileKey != "" {
		return p.fileKey, true
	}
	return p.static, p.static != ""
}

// Close stops watching the key file.
func (p *Provider) Close() error {
	if p.watcher == nil {
		return nil
	}
	close(p.stopCh)
	<-p.doneCh
	return p.watcher.Close()
}

// reload reads the key file. Insecure permissions are rejected.
func (p *Provider) reload() error {
	key, err := readKeyFile(p.path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.fileKey = key
	p.mu.Unlock()

	return nil
}

func readKeyFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat key file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("key file is not a regular file: %s", path)
	}

	mode := info.Mode().Perm()
	if mode != 0o600 && mode != 0o400 {
		return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}

	// #nosec G304 - path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

// watch follows the key file's directory, since editors and secret mounts
// replace the file rather than writing it in place.
func (p *Provider) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create key file watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch key file directory: %w", err)
	}

	p.watcher = watcher
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.watchLoop()

	return nil
}

func (p *Provider) watchLoop() {
	defer close(p.doneCh)
	logger := observability.FromContext(context.Background())

	for {
		select {
		case <-p.stopCh:
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if err := p.reload(); err != nil {
				logger.Warn("failed to reload key file", observability.Error(err))
				continue
			}
			_, ok = p.CurrentCredential(context.Background())
			logger.Info("key file changed", observability.Bool("credential_present", ok))

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("key file watcher error", observability.Error(err))
		}
	}
}
