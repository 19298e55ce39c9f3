// Package devfiles turns device metadata records into the per-device
// support files shipped with the toolchain: a linker script describing the
// memory layout, a register header, and a minimal startup stub. Generation
// is deterministic and isolated per device; one bad record never aborts the
// batch.
package devfiles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/mcuforge/internal/ctxlog"
)

// Result partitions a generation batch into generated devices and failed
// records.
type Result struct {
	Generated []string
	Failures  []*RecordError
}

// Failed reports whether any record in the batch failed.
func (r *Result) Failed() bool { return len(r.Failures) > 0 }

// Detail renders the batch partition for the run report.
func (r *Result) Detail() []string {
	lines := make([]string, 0, len(r.Generated)+len(r.Failures))
	for _, d := range r.Generated {
		lines = append(lines, fmt.Sprintf("%-24s generated", d))
	}
	for _, f := range r.Failures {
		lines = append(lines, fmt.Sprintf("%-24s failed: %s", f.Device, f.Reason))
	}
	return lines
}

// StubDirName is the subdirectory of the target dir holding startup stubs,
// which the startup-code build step compiles per variant.
const StubDirName = "startup"

// Generate derives the artifact set for every record into targetDir. Output
// names are derived from the device identifier, so distinct devices never
// collide. Records are processed in the sorted order LoadRecords
// establishes; rerunning over unchanged metadata reproduces byte-identical
// files.
func Generate(ctx context.Context, records []Record, targetDir string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	ldscriptDir := filepath.Join(targetDir, "ldscripts")
	includeDir := filepath.Join(targetDir, "include")
	stubDir := filepath.Join(targetDir, StubDirName)
	for _, dir := range []string{ldscriptDir, includeDir, stubDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	result := &Result{}
	for i := range records {
		rec := &records[i]
		if err := generateDevice(rec, ldscriptDir, includeDir, stubDir); err != nil {
			if recErr, ok := err.(*RecordError); ok {
				logger.Warn("Skipping malformed device record.", "device", recErr.Device, "reason", recErr.Reason)
				result.Failures = append(result.Failures, recErr)
				continue
			}
			// Anything else is an I/O failure of the target dir itself.
			return result, err
		}
		result.Generated = append(result.Generated, rec.Device)
	}

	logger.Info("Device file generation finished.",
		"generated", len(result.Generated), "failed", len(result.Failures))
	return result, nil
}

func generateDevice(rec *Record, ldscriptDir, includeDir, stubDir string) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	name := sanitizeIdent(rec.Device)
	outputs := []struct {
		path    string
		content string
	}{
		{filepath.Join(ldscriptDir, name+".ld"), linkerScript(rec)},
		{filepath.Join(includeDir, name+".h"), registerHeader(rec)},
		{filepath.Join(stubDir, name+"_startup.c"), startupStub(rec)},
	}

	for _, out := range outputs {
		if err := os.WriteFile(out.path, []byte(out.content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out.path, err)
		}
	}
	return nil
}
