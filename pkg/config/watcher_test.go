package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcherEmptyPath(t *testing.T) {
	if _, err := NewWatcher(WatcherConfig{}, nil); err == nil {
		t.Fatal("expected error for empty watch path")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("chain:\n  max_block_cpu_usage: 100000\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	w, err := NewWatcher(WatcherConfig{Path: path, DebounceInterval: 20 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	go func() {
		_ = w.Watch(ctx, func(cfg *Config) error {
			select {
			case reloaded <- cfg:
			default:
			}
			return nil
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("chain:\n  max_block_cpu_usage: 250000\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Chain.MaxBlockCPUUsage != 250000 {
			t.Errorf("expected reloaded max_block_cpu_usage 250000, got %d", cfg.Chain.MaxBlockCPUUsage)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
}

func TestWatcherIgnoresInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	w, err := NewWatcher(WatcherConfig{Path: path, DebounceInterval: 20 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 1)
	go func() {
		_ = w.Watch(ctx, func(*Config) error {
			select {
			case reloaded <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)

	// The window is not a multiple of the block interval, so the reload
	// must be rejected and the callback never invoked.
	if err := os.WriteFile(path, []byte("chain:\n  block_cpu_usage_average_window: 70ms\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("callback invoked for invalid configuration")
	case <-time.After(500 * time.Millisecond):
	}
}
