// Package metrics provides Prometheus metrics for attached displays.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Surface label values.
const (
	SurfaceStream    = "stream"
	SurfaceAttribute = "attribute"
)

var (
	displayDigit = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sevenseg",
		Subsystem: "display",
		Name:      "digit",
		Help:      "Digit currently shown",
	}, []string{"device"})

	surfaceWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sevenseg",
		Subsystem: "surface",
		Name:      "writes_total",
		Help:      "Accepted digit writes",
	}, []string{"device", "surface"})

	surfaceRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sevenseg",
		Subsystem: "surface",
		Name:      "rejected_total",
		Help:      "Writes rejected as invalid input",
	}, []string{"device", "surface"})

	lineFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sevenseg",
		Subsystem: "gpio",
		Name:      "line_faults_total",
		Help:      "Level changes rejected by a line",
	}, []string{"device", "line"})

	deviceAttached = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sevenseg",
		Subsystem: "device",
		Name:      "attached",
		Help:      "1 while the device is attached",
	}, []string{"device"})

	attachFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sevenseg",
		Subsystem: "device",
		Name:      "attach_failures_total",
		Help:      "Aborted attach attempts by error class",
	}, []string{"code"})

	// Local cache for SSE exporter access.
	deviceCache   = make(map[string]*DeviceMetrics)
	deviceCacheMu sync.RWMutex
)

// DeviceMetrics holds current metric values for a device.
type DeviceMetrics struct {
	Digit      int
	Writes     uint64
	Rejected   uint64
	LineFaults uint64
	Attached   bool
}

// SetDigit records the digit shown by a device.
func SetDigit(device string, digit int) {
	displayDigit.WithLabelValues(device).Set(float64(digit))
	updateCache(device, func(m *DeviceMetrics) { m.Digit = digit })
}

// IncWrites counts an accepted write on surface.
func IncWrites(device, surface string) {
	surfaceWrites.WithLabelValues(device, surface).Inc()
	updateCache(device, func(m *DeviceMetrics) { m.Writes++ })
}

// IncRejected counts a write rejected as invalid input.
func IncRejected(device, surface string) {
	surfaceRejected.WithLabelValues(device, surface).Inc()
	updateCache(device, func(m *DeviceMetrics) { m.Rejected++ })
}

// IncLineFault counts a failed level change on line.
func IncLineFault(device, line string) {
	lineFaults.WithLabelValues(device, line).Inc()
	updateCache(device, func(m *DeviceMetrics) { m.LineFaults++ })
}

// SetAttached records whether a device is attached.
func SetAttached(device string, attached bool) {
	v := 0.0
	if attached {
		v = 1
	}
	deviceAttached.WithLabelValues(device).Set(v)
	updateCache(device, func(m *DeviceMetrics) { m.Attached = attached })
}

// IncAttachFailures counts an aborted attach by error code.
func IncAttachFailures(code string) {
	attachFailures.WithLabelValues(code).Inc()
}

// DeleteDeviceMetrics removes the per-device series of a detached device.
// Failure and attach counters by code are kept.
func DeleteDeviceMetrics(device string) {
	displayDigit.DeleteLabelValues(device)
	deviceAttached.DeleteLabelValues(device)
	surfaceWrites.DeletePartialMatch(prometheus.Labels{"device": device})
	surfaceRejected.DeletePartialMatch(prometheus.Labels{"device": device})
	lineFaults.DeletePartialMatch(prometheus.Labels{"device": device})

	deviceCacheMu.Lock()
	delete(deviceCache, device)
	deviceCacheMu.Unlock()
}

// GetDeviceMetrics returns current metric values for a device.
func GetDeviceMetrics(device string) *DeviceMetrics {
	deviceCacheMu.RLock()
	defer deviceCacheMu.RUnlock()
	if m, ok := deviceCache[device]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllDeviceMetrics returns metrics for all known devices.
func GetAllDeviceMetrics() map[string]*DeviceMetrics {
	deviceCacheMu.RLock()
	defer deviceCacheMu.RUnlock()
	result := make(map[string]*DeviceMetrics, len(deviceCache))
	for id, m := range deviceCache {
		dup := *m
		result[id] = &dup
	}
	return result
}

func updateCache(device string, update func(*DeviceMetrics)) {
	deviceCacheMu.Lock()
	defer deviceCacheMu.Unlock()
	m, ok := deviceCache[device]
	if !ok {
		m = &DeviceMetrics{}
		deviceCache[device] = m
	}
	update(m)
}
