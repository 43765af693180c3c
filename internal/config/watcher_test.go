package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const seg0Lines = `segment-gpios = ["GPIO2", "GPIO3", "GPIO4", "GPIO17", "GPIO27", "GPIO22", "GPIO10", "GPIO9"]`

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func description(name string) string {
	return "[[device]]\nname = \"" + name + "\"\ncompatible = \"rpi,seg7\"\n" + seg0Lines + "\n"
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[*Description]) *Watcher[*Description] {
	t.Helper()
	opts = append([]WatcherOption[*Description]{WithDebounce[*Description](50 * time.Millisecond)}, opts...)
	w := NewWatcher(path, LoadDescription, newTestLogger(), opts...)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	// Give the watcher time to register.
	time.Sleep(50 * time.Millisecond)
	return w
}

func waitDescription(t *testing.T, ch <-chan *Description) *Description {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
		return nil
	}
}

func TestWatcher_Reload(t *testing.T) {
	path := writeTemp(t, "devices.toml", description("seg0"))

	received := make(chan *Description, 4)
	w := startWatcher(t, path)
	w.OnReload(func(d *Description) { received <- d })

	if err := os.WriteFile(path, []byte(description("seg1")), 0o644); err != nil {
		t.Fatal(err)
	}
	if d := waitDescription(t, received); d.Devices[0].Name != "seg1" {
		t.Errorf("reloaded name = %q, want seg1", d.Devices[0].Name)
	}
}

func TestWatcher_ReplaceByRename(t *testing.T) {
	path := writeTemp(t, "devices.toml", description("seg0"))

	received := make(chan *Description, 4)
	w := startWatcher(t, path)
	w.OnReload(func(d *Description) { received <- d })

	tmp := filepath.Join(filepath.Dir(path), ".devices.toml.swp")
	if err := os.WriteFile(tmp, []byte(description("renamed")), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if d := waitDescription(t, received); d.Devices[0].Name != "renamed" {
		t.Errorf("reloaded name = %q, want renamed", d.Devices[0].Name)
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	path := writeTemp(t, "devices.toml", description("seg0"))

	var reloads atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(*Description) { reloads.Add(1) })

	sibling := filepath.Join(filepath.Dir(path), "other.toml")
	if err := os.WriteFile(sibling, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("reloaded %d times for a sibling file", n)
	}
}

func TestWatcher_ErrorHandler(t *testing.T) {
	path := writeTemp(t, "devices.toml", description("seg0"))

	errs := make(chan error, 4)
	var reloads atomic.Int32
	w := startWatcher(t, path, WithErrorHandler[*Description](func(err error) { errs <- err }))
	w.OnReload(func(*Description) { reloads.Add(1) })

	if err := os.WriteFile(path, []byte("[[device]]\nname = \"broken\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for load error")
	}
	if n := reloads.Load(); n != 0 {
		t.Errorf("handlers called %d times for an invalid file", n)
	}
}

func TestWatcher_Unsubscribe(t *testing.T) {
	path := writeTemp(t, "devices.toml", description("seg0"))

	first := make(chan *Description, 4)
	var second atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(d *Description) { first <- d })
	unsub := w.OnReload(func(*Description) { second.Add(1) })
	unsub()

	if err := os.WriteFile(path, []byte(description("seg2")), 0o644); err != nil {
		t.Fatal(err)
	}
	waitDescription(t, first)
	if n := second.Load(); n != 0 {
		t.Errorf("unsubscribed handler called %d times", n)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	path := writeTemp(t, "devices.toml", description("seg0"))

	var reloads atomic.Int32
	received := make(chan *Description, 8)
	w := startWatcher(t, path, WithDebounce[*Description](150*time.Millisecond))
	w.OnReload(func(d *Description) {
		reloads.Add(1)
		received <- d
	})

	for _, name := range []string{"a", "b", "c", "d"} {
		if err := os.WriteFile(path, []byte(description(name)), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if d := waitDescription(t, received); d.Devices[0].Name != "d" {
		t.Errorf("reloaded name = %q, want d", d.Devices[0].Name)
	}
	time.Sleep(300 * time.Millisecond)
	if n := reloads.Load(); n != 1 {
		t.Errorf("reloads = %d, want 1", n)
	}
}

func TestWatcher_StopBeforeStart(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "devices.toml"), LoadDescription, newTestLogger())
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() before Start() error = %v", err)
	}
}

func TestWatcher_StartMissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "nope", "devices.toml"), LoadDescription, newTestLogger())
	if err := w.Start(context.Background()); err == nil {
		_ = w.Stop()
		t.Error("Start() succeeded for a missing directory")
	}
}
