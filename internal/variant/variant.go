package variant

import (
	"path"
	"strings"
)

// Arch families supported by the catalog.
const (
	ArchCortexM = "cortex-m"
	ArchCortexA = "cortex-a"
	ArchMips32  = "mips32"
)

// Variant identifies one target configuration for which the runtime
// libraries are built independently. The (Subarch, Extension, FPU, Flavor)
// tuple is unique within a catalog; the install-path suffix, target triple,
// and compiler flag list are all pure functions of the declared fields.
type Variant struct {
	// Arch is the architecture family, e.g. "cortex-m".
	Arch string
	// Subarch is the instruction-set architecture, e.g. "armv7em".
	Subarch string
	// Extension is an optional ISA extension suffix appended to -march,
	// e.g. "mve" or "mve.fp+fp.dp". Empty for most variants.
	Extension string
	// FPU names the floating-point unit, or "none" for soft-float parts.
	FPU string
	// FloatABI is "soft" or "hard".
	FloatABI string
	// Flavor tags the library build flavor. The default "o2" flavor adds
	// no path component, matching the multilib layout clang searches.
	Flavor string
}

// ID returns the stable identifier for this variant, used in logs, the
// status report, and profile variant filters.
func (v Variant) ID() string {
	return v.Arch + "/" + v.Suffix()
}

// Triple returns the compiler target triple for this variant. The M and A
// profile Arm parts share one triple; multilib paths keep their artifacts
// apart.
func (v Variant) Triple() string {
	if v.Arch == ArchMips32 {
		return "mipsel-linux-gnu"
	}
	return "arm-none-eabi"
}

// March returns the -march value, subarch plus any ISA extension. MIPS ASEs
// are selected by their own -m flags rather than a march suffix.
func (v Variant) March() string {
	if v.Extension == "" || v.Arch == ArchMips32 {
		return v.Subarch
	}
	return v.Subarch + "+" + v.Extension
}

// Suffix returns the install-path suffix distinguishing this variant's
// artifacts, e.g. "v7em/fpv4-sp-d16". The layout mirrors the multilib paths
// published by the device-file pack so clang can locate the libraries.
func (v Variant) Suffix() string {
	parts := []string{v.shortSubarch()}
	if v.Arch == ArchMips32 && v.Extension != "" {
		parts = append(parts, v.Extension)
	}
	parts = append(parts, v.fpuDir())
	if strings.HasPrefix(v.Subarch, "armv8.1m.main") {
		// 8.1-M parts multilib on MVE as well.
		if strings.Contains(v.Extension, "mve") {
			parts = append(parts, "mve")
		} else {
			parts = append(parts, "nomve")
		}
	}
	if v.Flavor != "" && v.Flavor != "o2" {
		parts = append(parts, v.Flavor)
	}
	return path.Join(parts...)
}

// Options returns the compiler flags required to target this variant.
// The returned slice is freshly allocated on every call so callers can
// never alter the catalog's mapping.
func (v Variant) Options() []string {
	var opts []string
	switch v.Arch {
	case ArchMips32:
		// -G0 keeps small globals out of the small data sections, the
		// safest default since applications control the threshold with
		// -G<size>.
		opts = append(opts, "-target", v.Triple(), "-G0", "-fomit-frame-pointer")
		opts = append(opts, "-march="+v.March())
		if v.Extension != "" {
			opts = append(opts, "-m"+v.Extension)
		}
		if v.FloatABI == "hard" {
			opts = append(opts, "-mhard-float", "-mfp64")
		} else {
			opts = append(opts, "-msoft-float")
		}
	default:
		// -mimplicit-it=always is needed for musl; the configure script
		// does not pick it up from the generic arm-none-eabi triple.
		opts = append(opts, "-target", v.Triple(), "-mimplicit-it=always", "-fomit-frame-pointer")
		opts = append(opts, "-march="+v.March(), "-mfpu="+v.FPU, "-mfloat-abi="+v.FloatABI)
	}
	opts = append(opts, v.flavorOptions()...)
	return opts
}

func (v Variant) flavorOptions() []string {
	switch v.Flavor {
	case "", "o2":
		return []string{"-O2"}
	case "os":
		return []string{"-Os"}
	case "oz":
		return []string{"-Oz"}
	default:
		return []string{"-" + strings.ToUpper(v.Flavor[:1]) + v.Flavor[1:]}
	}
}

func (v Variant) shortSubarch() string {
	if v.Arch == ArchMips32 {
		return strings.TrimPrefix(v.Subarch, "mips32")
	}
	return strings.TrimPrefix(v.Subarch, "arm")
}

func (v Variant) fpuDir() string {
	if v.FPU == "" || v.FPU == "none" {
		return "nofp"
	}
	return v.FPU
}
