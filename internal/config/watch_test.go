package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "ctawatch/pkg/logx"
)

func TestWatchDeliversReload(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("interval: 10m\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 1)
	go func() {
		_ = Watch(ctx, path, logx.Nop(), func(c Config) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(path, []byte("interval: 7m\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-changes:
		if cfg.Interval != 7*time.Minute {
			t.Fatalf("reloaded interval = %v", cfg.Interval)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload delivered")
	}
}

func TestWatchIgnoresBrokenConfig(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("interval: 10m\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 2)
	go func() {
		_ = Watch(ctx, path, logx.Nop(), func(c Config) { changes <- c })
	}()

	time.Sleep(200 * time.Millisecond)
	// A broken write must not publish...
	if err := os.WriteFile(path, []byte("intrval: : nope\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	time.Sleep(500 * time.Millisecond)
	select {
	case cfg := <-changes:
		t.Fatalf("broken config published: %+v", cfg)
	default:
	}

	// ...but a later valid write still reloads.
	if err := os.WriteFile(path, []byte("interval: 2m\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	select {
	case cfg := <-changes:
		if cfg.Interval != 2*time.Minute {
			t.Fatalf("reloaded interval = %v", cfg.Interval)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload after recovery")
	}
}
