package api

import (
	"errors"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/sevenseg/internal/devnode"
	"github.com/smazurov/sevenseg/internal/surface"
)

// statusError maps a node or surface error onto an HTTP error.
func statusError(msg string, err error) error {
	switch {
	case errors.Is(err, surface.ErrInvalidInput):
		return huma.Error400BadRequest(msg, err)
	case errors.Is(err, devnode.ErrNotFound):
		return huma.Error404NotFound(msg, err)
	case errors.Is(err, os.ErrClosed):
		return huma.Error410Gone(msg, err)
	case errors.Is(err, devnode.ErrTooManyHandles):
		return huma.Error429TooManyRequests(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
