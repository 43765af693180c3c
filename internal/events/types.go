package events

// Event type constants for kelindar/event.
const (
	TypeDigitChanged uint32 = iota + 1
	TypeDeviceAttached
	TypeDeviceDetached
	TypeAttachFailed
	TypeLineFault
	TypeLogEntry
	TypeDisplayMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DigitChangedEvent is published after every accepted digit write.
type DigitChangedEvent struct {
	Device    string   `json:"device" example:"sevenseg" doc:"Device node name"`
	Previous  int      `json:"previous" example:"3" doc:"Digit shown before the write"`
	Digit     int      `json:"digit" example:"7" doc:"Digit shown now"`
	Pattern   string   `json:"pattern" example:"0b00000111" doc:"Line pattern, line 7 first"`
	Segments  []string `json:"segments" doc:"Lit segments"`
	Faults    int      `json:"faults" example:"0" doc:"Lines that rejected the new level"`
	Timestamp string   `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DigitChangedEvent.
func (e DigitChangedEvent) Type() uint32 { return TypeDigitChanged }

// DeviceName returns the display the event is about.
func (e DigitChangedEvent) DeviceName() string { return e.Device }

// DeviceAttachedEvent is published when a device finishes attaching.
type DeviceAttachedEvent struct {
	Device    string   `json:"device" example:"sevenseg" doc:"Device node name"`
	Class     string   `json:"class" example:"sevenseg" doc:"Device class"`
	Dev       string   `json:"dev" example:"254:0" doc:"Major and minor number"`
	Lines     []string `json:"lines" doc:"Segment lines in index order"`
	Driver    string   `json:"driver" example:"periph" doc:"GPIO allocator"`
	Timestamp string   `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceAttachedEvent.
func (e DeviceAttachedEvent) Type() uint32 { return TypeDeviceAttached }

// DeviceName returns the display the event is about.
func (e DeviceAttachedEvent) DeviceName() string { return e.Device }

// DeviceDetachedEvent is published when a device has been torn down.
type DeviceDetachedEvent struct {
	Device    string `json:"device" example:"sevenseg" doc:"Device node name"`
	Reason    string `json:"reason" example:"removed" doc:"Why the device was detached"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceDetachedEvent.
func (e DeviceDetachedEvent) Type() uint32 { return TypeDeviceDetached }

// DeviceName returns the display the event is about.
func (e DeviceDetachedEvent) DeviceName() string { return e.Device }

// AttachFailedEvent is published when attaching a device was aborted.
type AttachFailedEvent struct {
	Device    string `json:"device" example:"sevenseg" doc:"Device name from the description"`
	Code      string `json:"code" example:"resource_unavailable" doc:"Error class"`
	Step      string `json:"step" example:"acquire_lines" doc:"Step that failed"`
	Error     string `json:"error" doc:"Error description"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AttachFailedEvent.
func (e AttachFailedEvent) Type() uint32 { return TypeAttachFailed }

// DeviceName returns the display the event is about.
func (e AttachFailedEvent) DeviceName() string { return e.Device }

// LineFaultEvent is published for each line that rejected a level change.
type LineFaultEvent struct {
	Device    string `json:"device" example:"sevenseg" doc:"Device node name"`
	Index     int    `json:"index" example:"6" doc:"Line index"`
	Line      string `json:"line" example:"GPIO10" doc:"Line name"`
	Level     string `json:"level" example:"high" doc:"Level that could not be set"`
	Error     string `json:"error" doc:"Error description"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LineFaultEvent.
func (e LineFaultEvent) Type() uint32 { return TypeLineFault }

// DeviceName returns the display the event is about.
func (e LineFaultEvent) DeviceName() string { return e.Device }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2026-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// DisplayMetricsEvent carries a periodic snapshot of a device's counters.
type DisplayMetricsEvent struct {
	EventType  string `json:"type"`
	Device     string `json:"device"`
	Digit      string `json:"digit"`
	Writes     string `json:"writes"`
	Rejected   string `json:"rejected"`
	LineFaults string `json:"line_faults"`
}

// Type returns the event type identifier for DisplayMetricsEvent.
func (e DisplayMetricsEvent) Type() uint32 { return TypeDisplayMetrics }

// DeviceName returns the display the event is about.
func (e DisplayMetricsEvent) DeviceName() string { return e.Device }
