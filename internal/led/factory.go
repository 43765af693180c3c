package led

import (
	"log/slog"
	"os"
	"strings"

	"github.com/smazurov/sevenseg/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// New returns a Controller for the running board, or a no-op Controller
// when the board has no known LEDs.
func New(logger *slog.Logger) Controller {
	if logger == nil {
		logger = logging.GetLogger("led")
	}
	return forBoard(detectBoard(deviceTreeModelPath), sysfsLEDPath, logger)
}

func forBoard(model, root string, logger *slog.Logger) Controller {
	logger.Info("Detecting board for LED control", "board_model", model)

	switch {
	case strings.Contains(model, "Raspberry Pi"):
		return newSysfs(root, map[string]string{"act": "ACT", "pwr": "PWR"})
	case strings.Contains(model, "NanoPC-T6"):
		return newSysfs(root, map[string]string{"user": "usr_led", "system": "sys_led"})
	case strings.Contains(model, "Orange Pi"):
		return newSysfs(root, map[string]string{"blue": "blue_led", "green": "green_led"})
	default:
		logger.Info("No LED support detected, using no-op controller", "board_model", model)
		return &noop{logger: logger}
	}
}

func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
