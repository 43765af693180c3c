package led

import "log/slog"

// noop stands in on boards without controllable LEDs.
type noop struct {
	logger *slog.Logger
}

func (n *noop) Set(name string, p Pattern) error {
	n.logger.Debug("LED control not available", "led", name, "pattern", string(p))
	return nil
}

func (n *noop) Available() []string {
	return []string{}
}
