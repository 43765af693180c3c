// Package systemd reports service state to the service manager over the
// sd_notify socket. Outside systemd every call is a silent no-op.
package systemd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/jonboulle/clockwork"
	"github.com/smazurov/sevenseg/internal/logging"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	notify   func(unsetEnvironment bool, state string) (bool, error)
	watchdog func(unsetEnvironment bool) (time.Duration, error)
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewNotifier returns a Notifier bound to $NOTIFY_SOCKET.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = logging.GetLogger("systemd")
	}
	return &Notifier{
		notify:   daemon.SdNotify,
		watchdog: daemon.SdWatchdogEnabled,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
	}
}

func (n *Notifier) send(states ...string) {
	state := strings.Join(states, "\n")
	sent, err := n.notify(false, state)
	switch {
	case err != nil:
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
	case sent:
		n.logger.Debug("sd_notify sent", "state", state)
	}
}

// Ready reports that startup finished.
func (n *Notifier) Ready(status string) {
	n.send(daemon.SdNotifyReady, "STATUS="+status)
}

// Reloading reports that the device description is being re-applied.
func (n *Notifier) Reloading() {
	n.send(daemon.SdNotifyReloading)
}

// Status updates the free-form status line.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

// Stopping reports that shutdown started.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Watchdog pings the service manager at half the configured watchdog
// interval until ctx is done. It returns immediately when the unit has no
// watchdog.
func (n *Notifier) Watchdog(ctx context.Context) {
	interval, err := n.watchdog(false)
	if err != nil {
		n.logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval <= 0 {
		return
	}

	n.logger.Info("Watchdog enabled", "interval", interval)
	ticker := n.clock.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
