package devfiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/mcuforge/internal/layout"
)

func sampleRecord(device string) Record {
	return Record{
		Device: device,
		Family: "PIC32CM",
		CPU:    "cortex-m23",
		Flash:  MemoryRegion{Origin: 0x00000000, Size: 0x40000},
		RAM:    MemoryRegion{Origin: 0x20000000, Size: 0x8000},
		Peripherals: []Peripheral{
			{Name: "PORT", Address: 0x41000000},
			{Name: "SERCOM0", Address: 0x42000400},
		},
		Interrupts: []Interrupt{
			{Name: "SysTick", Number: -1},
			{Name: "SERCOM0", Number: 9},
		},
	}
}

func writeRecordFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRecordValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Record)
		reason string
	}{
		{"missing device", func(r *Record) { r.Device = "" }, "missing device identifier"},
		{"missing cpu", func(r *Record) { r.CPU = "" }, "missing cpu"},
		{"zero flash", func(r *Record) { r.Flash.Size = 0 }, "flash region has zero size"},
		{"zero ram", func(r *Record) { r.RAM.Size = 0 }, "ram region has zero size"},
		{"unnamed peripheral", func(r *Record) { r.Peripherals[0].Name = "" }, "peripheral with empty name"},
		{"unnamed interrupt", func(r *Record) { r.Interrupts[0].Name = "" }, "interrupt with empty name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := sampleRecord("PIC32CM1216MC00032")
			tc.mutate(&rec)
			err := rec.Validate()
			var recErr *RecordError
			require.ErrorAs(t, err, &recErr)
			assert.Equal(t, tc.reason, recErr.Reason)
		})
	}

	valid := sampleRecord("PIC32CM1216MC00032")
	assert.NoError(t, valid.Validate())
}

func TestLoadRecords(t *testing.T) {
	t.Run("sorts by device and isolates parse failures", func(t *testing.T) {
		packDir := t.TempDir()
		writeRecordFile(t, packDir, "b.yaml", "device: ZETA\ncpu: cortex-m0plus\nflash: {origin: 0, size: 16384}\nram: {origin: 536870912, size: 4096}\n")
		writeRecordFile(t, packDir, "a.yaml", "device: ALPHA\ncpu: cortex-m4\nflash: {origin: 0, size: 262144}\nram: {origin: 536870912, size: 65536}\n")
		writeRecordFile(t, packDir, "broken.yaml", "device: [unterminated\n")
		writeRecordFile(t, packDir, "notes.txt", "not a record")

		records, bad, err := LoadRecords(packDir)
		require.NoError(t, err)

		require.Len(t, records, 2)
		assert.Equal(t, "ALPHA", records[0].Device)
		assert.Equal(t, "ZETA", records[1].Device)

		require.Len(t, bad, 1)
		assert.Equal(t, "broken.yaml", bad[0].Device)
		assert.Contains(t, bad[0].Reason, "unparseable")
	})

	t.Run("missing pack directory is an error", func(t *testing.T) {
		_, _, err := LoadRecords(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})
}

func TestGenerate(t *testing.T) {
	t.Run("emits the full artifact set per device", func(t *testing.T) {
		target := t.TempDir()
		records := []Record{sampleRecord("ALPHA1"), sampleRecord("BETA2")}

		result, err := Generate(context.Background(), records, target)
		require.NoError(t, err)
		assert.False(t, result.Failed())
		assert.Equal(t, []string{"ALPHA1", "BETA2"}, result.Generated)

		for _, name := range []string{"ALPHA1", "BETA2"} {
			assert.FileExists(t, filepath.Join(target, "ldscripts", name+".ld"))
			assert.FileExists(t, filepath.Join(target, "include", name+".h"))
			assert.FileExists(t, filepath.Join(target, StubDirName, name+"_startup.c"))
		}

		ld, err := os.ReadFile(filepath.Join(target, "ldscripts", "ALPHA1.ld"))
		require.NoError(t, err)
		assert.Contains(t, string(ld), "ORIGIN = 0x20000000, LENGTH = 0x8000")
		assert.Contains(t, string(ld), "ENTRY(Reset_Handler)")

		hdr, err := os.ReadFile(filepath.Join(target, "include", "ALPHA1.h"))
		require.NoError(t, err)
		assert.Contains(t, string(hdr), "#define PORT_BASE 0x41000000UL")
		assert.Contains(t, string(hdr), "SERCOM0_IRQn = 9,")

		stub, err := os.ReadFile(filepath.Join(target, StubDirName, "ALPHA1_startup.c"))
		require.NoError(t, err)
		assert.Contains(t, string(stub), "void Reset_Handler(void)")
		assert.Contains(t, string(stub), `SERCOM0_Handler(void) __attribute__((weak, alias("Default_Handler")))`)
	})

	t.Run("regeneration is byte-identical", func(t *testing.T) {
		records := []Record{sampleRecord("ALPHA1")}

		first := t.TempDir()
		_, err := Generate(context.Background(), records, first)
		require.NoError(t, err)

		second := t.TempDir()
		_, err = Generate(context.Background(), records, second)
		require.NoError(t, err)

		rel := filepath.Join("ldscripts", "ALPHA1.ld")
		a, err := os.ReadFile(filepath.Join(first, rel))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, rel))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("a malformed record never aborts the batch", func(t *testing.T) {
		bad := sampleRecord("BAD1")
		bad.Flash.Size = 0
		records := []Record{sampleRecord("ALPHA1"), bad, sampleRecord("GAMMA3")}

		result, err := Generate(context.Background(), records, t.TempDir())
		require.NoError(t, err, "data errors are reported, not returned")
		assert.True(t, result.Failed())
		assert.Equal(t, []string{"ALPHA1", "GAMMA3"}, result.Generated)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "BAD1", result.Failures[0].Device)

		detail := result.Detail()
		assert.Len(t, detail, 3)
	})

	t.Run("device names sanitize into identifiers", func(t *testing.T) {
		rec := sampleRecord("32mx-odd.name")
		target := t.TempDir()
		result, err := Generate(context.Background(), []Record{rec}, target)
		require.NoError(t, err)
		assert.False(t, result.Failed())
		assert.FileExists(t, filepath.Join(target, "include", "_32mx_odd_name.h"))
	})
}

func TestCopyVendorFiles(t *testing.T) {
	lay := layout.New(t.TempDir())

	t.Run("missing checkout is an error", func(t *testing.T) {
		_, err := CopyVendorFiles(context.Background(), lay)
		require.ErrorContains(t, err, "acquire-sources")
	})

	t.Run("copies the core headers", func(t *testing.T) {
		srcDir := filepath.Join(lay.SourceDir("cmsis"), "CMSIS", "Core", "Include")
		require.NoError(t, os.MkdirAll(srcDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, "cmsis_gcc.h"), []byte("#pragma once\n"), 0o644))

		detail, err := CopyVendorFiles(context.Background(), lay)
		require.NoError(t, err)
		require.Len(t, detail, 1)
		assert.Contains(t, detail[0], "1 files")
		assert.FileExists(t, filepath.Join(lay.VendorIncludeDir(), "cmsis_gcc.h"))
	})
}
