package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/sevenseg/internal/events"
	"github.com/smazurov/sevenseg/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter periodically publishes device metrics as events.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 5 * time.Second,
	}
}

// Start begins the export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the exporter and waits for the loop to finish.
func (s *SSEExporter) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *SSEExporter) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishMetrics()
		}
	}
}

func (s *SSEExporter) publishMetrics() {
	for device, m := range metrics.GetAllDeviceMetrics() {
		if !m.Attached {
			continue
		}
		s.eventBus.Publish(events.DisplayMetricsEvent{
			EventType:  "display_metrics",
			Device:     device,
			Digit:      strconv.Itoa(m.Digit),
			Writes:     strconv.FormatUint(m.Writes, 10),
			Rejected:   strconv.FormatUint(m.Rejected, 10),
			LineFaults: strconv.FormatUint(m.LineFaults, 10),
		})
	}
}
