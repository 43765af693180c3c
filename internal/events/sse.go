package events

import "github.com/kelindar/event"

// DeviceEvent is an event about one display.
type DeviceEvent interface {
	Event
	DeviceName() string
}

// Filter decides whether an event is forwarded to a channel.
type Filter func(Event) bool

// ForDevice keeps events about the named display. Events that are not about
// a display, such as log entries, are dropped. An empty name keeps everything.
func ForDevice(name string) Filter {
	return func(ev Event) bool {
		if name == "" {
			return true
		}
		de, ok := ev.(DeviceEvent)
		return ok && de.DeviceName() == name
	}
}

// SubscribeToChannel forwards events of type T that pass every filter to ch
// for select loops such as SSE handlers. Sends never block: when ch is full
// the event is dropped.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any, filters ...Filter) func() {
	if bus == nil {
		return func() {}
	}
	return event.Subscribe(bus.dispatcher, func(e T) {
		for _, keep := range filters {
			if !keep(e) {
				return
			}
		}
		select {
		case ch <- e:
		default:
		}
	})
}
