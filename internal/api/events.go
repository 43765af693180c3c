package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/sevenseg/internal/events"
)

// EventsInput selects the events of one display.
type EventsInput struct {
	Device string `query:"device" doc:"Only stream events about this display" example:"sevenseg"`
}

// registerSSERoutes registers the device event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of digit changes, attach and detach, line faults and per-device counters. Each connection starts with a device-attached event per attached display. Pass device to follow one display.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"digit-changed":   events.DigitChangedEvent{},
		"device-attached": events.DeviceAttachedEvent{},
		"device-detached": events.DeviceDetachedEvent{},
		"attach-failed":   events.AttachFailedEvent{},
		"line-fault":      events.LineFaultEvent{},
		"display-metrics": events.DisplayMetricsEvent{},
	}, func(ctx context.Context, input *EventsInput, send sse.Sender) {
		eventCh := make(chan any, 32)
		only := events.ForDevice(input.Device)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.DigitChangedEvent](s.eventBus, eventCh, only),
			events.SubscribeToChannel[events.DeviceAttachedEvent](s.eventBus, eventCh, only),
			events.SubscribeToChannel[events.DeviceDetachedEvent](s.eventBus, eventCh, only),
			events.SubscribeToChannel[events.AttachFailedEvent](s.eventBus, eventCh, only),
			events.SubscribeToChannel[events.LineFaultEvent](s.eventBus, eventCh, only),
			events.SubscribeToChannel[events.DisplayMetricsEvent](s.eventBus, eventCh, only),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for _, ev := range s.attachedSnapshot() {
			if !only(ev) {
				continue
			}
			if err := send.Data(ev); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

// attachedSnapshot describes the displays attached before a client connected.
func (s *Server) attachedSnapshot() []events.DeviceAttachedEvent {
	if s.devices == nil {
		return nil
	}
	now := time.Now().Format(time.RFC3339)
	instances := s.devices.Instances()
	snapshot := make([]events.DeviceAttachedEvent, 0, len(instances))
	for _, inst := range instances {
		id := inst.Identity()
		snapshot = append(snapshot, events.DeviceAttachedEvent{
			Device:    inst.Name(),
			Class:     inst.Class(),
			Dev:       id.Dev(),
			Lines:     inst.Lines(),
			Driver:    inst.Driver(),
			Timestamp: now,
		})
	}
	return snapshot
}
