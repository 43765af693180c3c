package device

import (
	"errors"

	"github.com/smazurov/sevenseg/internal/metrics"
	"github.com/smazurov/sevenseg/internal/surface"
)

// countingHandle counts stream writes on an open node.
type countingHandle struct {
	*surface.File
	device string
}

func (h *countingHandle) Write(p []byte) (int, error) {
	n, err := h.File.Write(p)
	count(h.device, metrics.SurfaceStream, err)
	return n, err
}

// countingAttribute counts attribute stores.
type countingAttribute struct {
	*surface.Attribute
	device string
}

func (a *countingAttribute) Store(buf string) (int, error) {
	n, err := a.Attribute.Store(buf)
	count(a.device, metrics.SurfaceAttribute, err)
	return n, err
}

func count(device, surfaceName string, err error) {
	switch {
	case err == nil:
		metrics.IncWrites(device, surfaceName)
	case errors.Is(err, surface.ErrInvalidInput):
		metrics.IncRejected(device, surfaceName)
	}
}
