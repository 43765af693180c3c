package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/sevenseg/internal/device"
	"github.com/smazurov/sevenseg/internal/segment"
)

// Status values of a description entry.
const (
	StatusOkay     = "okay"
	StatusDisabled = "disabled"
)

// DeviceNode is one [[device]] entry of the description file.
type DeviceNode struct {
	Name         string   `toml:"name" json:"name"`
	Compatible   string   `toml:"compatible" json:"compatible"`
	SegmentGPIOs []string `toml:"segment-gpios" json:"segment_gpios"`
	Status       string   `toml:"status,omitempty" json:"status,omitempty"`
}

// Enabled reports whether the entry should be bound.
func (n DeviceNode) Enabled() bool {
	return n.Status == "" || n.Status == StatusOkay || n.Status == "ok"
}

// Description lists the displays wired to the board, in the manner of a
// device tree overlay:
//
//	[[device]]
//	name = "sevenseg"
//	compatible = "rpi,seg7"
//	segment-gpios = ["GPIO2", "GPIO3", "GPIO4", "GPIO17", "GPIO27", "GPIO22", "GPIO10", "GPIO9"]
type Description struct {
	Devices []DeviceNode `toml:"device" json:"devices"`
}

// LoadDescription reads and validates a description file.
func LoadDescription(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read description: %w", err)
	}
	return ParseDescription(data)
}

// ParseDescription decodes and validates description TOML. Unknown keys
// are rejected.
func ParseDescription(data []byte) (*Description, error) {
	var desc Description
	dec := toml.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&desc); err != nil {
		return nil, fmt.Errorf("parse description: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Validate checks every entry. Entries for other drivers only need a
// compatible string.
func (d *Description) Validate() error {
	var errs []error
	names := make(map[string]int)

	for i, n := range d.Devices {
		if n.Compatible == "" {
			errs = append(errs, fmt.Errorf("device[%d]: compatible is required", i))
			continue
		}
		switch n.Status {
		case "", StatusOkay, "ok", StatusDisabled:
		default:
			errs = append(errs, fmt.Errorf("device[%d]: unknown status %q", i, n.Status))
		}
		if n.Compatible != device.Compatible {
			continue
		}

		name := n.nodeName()
		if prev, dup := names[name]; dup {
			errs = append(errs, fmt.Errorf("device[%d]: name %q already used by device[%d]", i, name, prev))
		}
		names[name] = i

		if len(n.SegmentGPIOs) != segment.Segments {
			errs = append(errs, fmt.Errorf("device[%d] %s: segment-gpios needs %d lines, got %d",
				i, name, segment.Segments, len(n.SegmentGPIOs)))
			continue
		}
		seen := make(map[string]bool, segment.Segments)
		for j, line := range n.SegmentGPIOs {
			if strings.TrimSpace(line) == "" {
				errs = append(errs, fmt.Errorf("device[%d] %s: segment-gpios[%d] is empty", i, name, j))
			}
			if seen[line] {
				errs = append(errs, fmt.Errorf("device[%d] %s: line %q listed twice", i, name, line))
			}
			seen[line] = true
		}
	}
	return errors.Join(errs...)
}

// Specs converts the entries into attach specs.
func (d *Description) Specs() []device.Spec {
	specs := make([]device.Spec, 0, len(d.Devices))
	for _, n := range d.Devices {
		specs = append(specs, device.Spec{
			Name:       n.Name,
			Compatible: n.Compatible,
			Lines:      append([]string(nil), n.SegmentGPIOs...),
			Disabled:   !n.Enabled(),
		})
	}
	return specs
}

func (n DeviceNode) nodeName() string {
	if n.Name == "" {
		return device.DefaultClass
	}
	return n.Name
}
