package gpio

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/smazurov/sevenseg/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Drivers lists the accepted allocator names.
var Drivers = []string{"auto", "periph", "rpio", "sim"}

// New returns the allocator named by driver. "auto" inspects the board
// model and falls back to the simulator when no GPIO hardware is known.
func New(driver string, logger *slog.Logger) (Allocator, error) {
	if logger == nil {
		logger = logging.GetLogger("gpio")
	}

	switch strings.ToLower(driver) {
	case "periph":
		return NewPeriph(logger), nil
	case "rpio":
		return NewRPIO(logger), nil
	case "sim":
		return NewSim(logger), nil
	case "", "auto":
		return detect(detectBoard(deviceTreeModelPath), logger), nil
	default:
		return nil, fmt.Errorf("unknown gpio driver %q (want one of %s)", driver, strings.Join(Drivers, ", "))
	}
}

func detect(boardModel string, logger *slog.Logger) Allocator {
	logger.Info("Detecting board for GPIO access", "board_model", boardModel)

	switch {
	case strings.Contains(boardModel, "Raspberry Pi"),
		strings.Contains(boardModel, "NanoPC-T6"),
		strings.Contains(boardModel, "Orange Pi"):
		logger.Info("Using periph GPIO allocator", "board_model", boardModel)
		return NewPeriph(logger)
	default:
		logger.Warn("No GPIO support detected, using simulated lines", "board_model", boardModel)
		return NewSim(logger)
	}
}

// detectBoard reads the device tree model string.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
