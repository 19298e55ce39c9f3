package devfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vk/mcuforge/internal/fsutil"
)

// MemoryRegion describes one region in a device's memory map.
type MemoryRegion struct {
	Origin uint64 `yaml:"origin"`
	Size   uint64 `yaml:"size"`
}

// Peripheral references one peripheral register block.
type Peripheral struct {
	Name    string `yaml:"name"`
	Address uint64 `yaml:"address"`
}

// Interrupt declares one entry of the device's vector table beyond the core
// exceptions.
type Interrupt struct {
	Name   string `yaml:"name"`
	Number int    `yaml:"number"`
}

// Record is one device metadata entry read from the pack directory. Records
// are read-only inputs: the generator only transforms them into derived
// artifacts, never mutates or writes them back.
type Record struct {
	Device      string       `yaml:"device"`
	Family      string       `yaml:"family"`
	CPU         string       `yaml:"cpu"`
	Flash       MemoryRegion `yaml:"flash"`
	RAM         MemoryRegion `yaml:"ram"`
	Peripherals []Peripheral `yaml:"peripherals"`
	Interrupts  []Interrupt  `yaml:"interrupts"`
}

// RecordError is the data error for one malformed or incomplete record. It
// names the offending device (or file, when the device ID itself is
// unreadable) without affecting the rest of the batch.
type RecordError struct {
	Device string
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("device %s: %s", e.Device, e.Reason)
}

// Validate checks the record for the fields every derived artifact needs.
func (r *Record) Validate() error {
	if r.Device == "" {
		return &RecordError{Device: "(unnamed)", Reason: "missing device identifier"}
	}
	if r.CPU == "" {
		return &RecordError{Device: r.Device, Reason: "missing cpu"}
	}
	if r.Flash.Size == 0 {
		return &RecordError{Device: r.Device, Reason: "flash region has zero size"}
	}
	if r.RAM.Size == 0 {
		return &RecordError{Device: r.Device, Reason: "ram region has zero size"}
	}
	for _, p := range r.Peripherals {
		if p.Name == "" {
			return &RecordError{Device: r.Device, Reason: "peripheral with empty name"}
		}
	}
	for _, irq := range r.Interrupts {
		if irq.Name == "" {
			return &RecordError{Device: r.Device, Reason: "interrupt with empty name"}
		}
	}
	return nil
}

// LoadRecords reads every .yaml record below the pack directory. Records
// come back sorted by device ID so generation order, and therefore output,
// is deterministic. Files that fail to parse are reported as RecordErrors
// keyed by file name; they do not stop the rest of the batch from loading.
func LoadRecords(packDir string) ([]Record, []*RecordError, error) {
	files, err := fsutil.FindFilesByExtension(packDir, ".yaml")
	if err != nil {
		return nil, nil, fmt.Errorf("scanning pack directory %s: %w", packDir, err)
	}

	var records []Record
	var bad []*RecordError
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", f, err)
		}

		var rec Record
		if err := yaml.Unmarshal(data, &rec); err != nil {
			bad = append(bad, &RecordError{
				Device: filepath.Base(f),
				Reason: fmt.Sprintf("unparseable metadata: %v", err),
			})
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Device < records[j].Device
	})
	return records, bad, nil
}
