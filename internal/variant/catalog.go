package variant

import "fmt"

// UnknownVariantError is the configuration error returned when a variant ID
// is requested that the catalog does not declare.
type UnknownVariantError struct {
	ID string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown variant %q", e.ID)
}

// cortexMTargets is the static declaration of every Cortex-M configuration
// the toolchain supports. Notes carried over from the device data sheets:
//   - The M0, M0+, M23, and M3 have no FPU.
//   - The M4 has a 32-bit FPU; the M7 has a 64-bit FPU. Both are Armv7E-M.
//   - The M series is always Thumb, so variants do not differentiate on it.
//   - MVE requires the hard float ABI even with no FPU present.
var cortexMTargets = []Variant{
	{Arch: ArchCortexM, Subarch: "armv6m", FPU: "none", FloatABI: "soft"},
	{Arch: ArchCortexM, Subarch: "armv7m", FPU: "none", FloatABI: "soft"},
	{Arch: ArchCortexM, Subarch: "armv7em", FPU: "none", FloatABI: "soft"},
	{Arch: ArchCortexM, Subarch: "armv7em", FPU: "fpv4-sp-d16", FloatABI: "hard"},
	{Arch: ArchCortexM, Subarch: "armv7em", FPU: "fpv5-d16", FloatABI: "hard"},
	{Arch: ArchCortexM, Subarch: "armv8m.base", FPU: "none", FloatABI: "soft"},
	{Arch: ArchCortexM, Subarch: "armv8m.main", FPU: "none", FloatABI: "soft"},
	{Arch: ArchCortexM, Subarch: "armv8m.main", FPU: "fpv5-sp-d16", FloatABI: "hard"},
	{Arch: ArchCortexM, Subarch: "armv8.1m.main", FPU: "none", FloatABI: "soft"},
	{Arch: ArchCortexM, Subarch: "armv8.1m.main", Extension: "mve", FPU: "none", FloatABI: "hard"},
	{Arch: ArchCortexM, Subarch: "armv8.1m.main", FPU: "fp-armv8-fullfp16-d16", FloatABI: "hard"},
	{Arch: ArchCortexM, Subarch: "armv8.1m.main", Extension: "mve.fp+fp.dp", FPU: "fp-armv8-fullfp16-d16", FloatABI: "hard"},
}

// mips32Targets stages the PIC32M configurations. They are not yet part of
// the default catalog: clang can crash when targeting MIPS16 and
// microMIPS+FPU, so these stay disabled until the backend is usable.
var mips32Targets = []Variant{
	{Arch: ArchMips32, Subarch: "mips32r2", FPU: "none", FloatABI: "soft"},
	{Arch: ArchMips32, Subarch: "mips32r5", Extension: "dspr2", FPU: "none", FloatABI: "soft"},
	{Arch: ArchMips32, Subarch: "mips32r5", Extension: "dspr2", FPU: "fpu64", FloatABI: "hard"},
}

// Catalog exposes the finite set of variants for one build run. It is
// constructed once at startup and immutable thereafter.
type Catalog struct {
	variants []Variant
	byID     map[string]Variant
}

// NewCatalog builds the default catalog: every Cortex-M target with the
// default library flavor.
func NewCatalog() *Catalog {
	c := &Catalog{byID: make(map[string]Variant)}
	for _, t := range cortexMTargets {
		t.Flavor = "o2"
		c.variants = append(c.variants, t)
		c.byID[t.ID()] = t
	}
	return c
}

// Restrict returns a new catalog containing only the variants whose IDs are
// listed. An ID not present in the catalog is a configuration error.
func (c *Catalog) Restrict(ids []string) (*Catalog, error) {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			return nil, &UnknownVariantError{ID: id}
		}
		keep[id] = true
	}

	out := &Catalog{byID: make(map[string]Variant)}
	for _, v := range c.variants {
		if keep[v.ID()] {
			out.variants = append(out.variants, v)
			out.byID[v.ID()] = v
		}
	}
	return out, nil
}

// Variants returns the declared variants in declaration order. The slice is
// a copy; the catalog itself never changes after construction.
func (c *Catalog) Variants() []Variant {
	out := make([]Variant, len(c.variants))
	copy(out, c.variants)
	return out
}

// Lookup returns the variant with the given ID.
func (c *Catalog) Lookup(id string) (Variant, error) {
	v, ok := c.byID[id]
	if !ok {
		return Variant{}, &UnknownVariantError{ID: id}
	}
	return v, nil
}

// Len returns the number of variants in the catalog.
func (c *Catalog) Len() int {
	return len(c.variants)
}
