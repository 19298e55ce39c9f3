package variant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog(t *testing.T) {
	c := NewCatalog()
	require.NotNil(t, c)
	assert.Equal(t, 12, c.Len())

	for _, v := range c.Variants() {
		assert.Equal(t, ArchCortexM, v.Arch)
		assert.Equal(t, "o2", v.Flavor)
	}
}

func TestSuffixesAreUnique(t *testing.T) {
	c := NewCatalog()
	seen := make(map[string]string)
	for _, v := range c.Variants() {
		prev, dup := seen[v.Suffix()]
		assert.False(t, dup, "suffix %q shared by %q and %q", v.Suffix(), prev, v.ID())
		seen[v.Suffix()] = v.ID()
	}
}

func TestIDsAreUnique(t *testing.T) {
	c := NewCatalog()
	seen := make(map[string]bool)
	for _, v := range c.Variants() {
		assert.False(t, seen[v.ID()], "duplicate id %q", v.ID())
		seen[v.ID()] = true
	}
}

func TestDerivations(t *testing.T) {
	t.Run("soft float v6m", func(t *testing.T) {
		v := Variant{Arch: ArchCortexM, Subarch: "armv6m", FPU: "none", FloatABI: "soft", Flavor: "o2"}
		assert.Equal(t, "arm-none-eabi", v.Triple())
		assert.Equal(t, "v6m/nofp", v.Suffix())
		assert.Equal(t, "cortex-m/v6m/nofp", v.ID())
		assert.Equal(t, []string{
			"-target", "arm-none-eabi", "-mimplicit-it=always", "-fomit-frame-pointer",
			"-march=armv6m", "-mfpu=none", "-mfloat-abi=soft", "-O2",
		}, v.Options())
	})

	t.Run("hard float v7em", func(t *testing.T) {
		v := Variant{Arch: ArchCortexM, Subarch: "armv7em", FPU: "fpv4-sp-d16", FloatABI: "hard", Flavor: "o2"}
		assert.Equal(t, "v7em/fpv4-sp-d16", v.Suffix())
		assert.Contains(t, v.Options(), "-mfloat-abi=hard")
		assert.Contains(t, v.Options(), "-mfpu=fpv4-sp-d16")
	})

	t.Run("8.1m multilibs on mve", func(t *testing.T) {
		plain := Variant{Arch: ArchCortexM, Subarch: "armv8.1m.main", FPU: "none", FloatABI: "soft"}
		mve := Variant{Arch: ArchCortexM, Subarch: "armv8.1m.main", Extension: "mve", FPU: "none", FloatABI: "hard"}

		assert.Equal(t, "v8.1m.main/nofp/nomve", plain.Suffix())
		assert.Equal(t, "v8.1m.main/nofp/mve", mve.Suffix())
		assert.Equal(t, "armv8.1m.main+mve", mve.March())
		assert.Contains(t, mve.Options(), "-march=armv8.1m.main+mve")
	})

	t.Run("mips", func(t *testing.T) {
		v := Variant{Arch: ArchMips32, Subarch: "mips32r5", Extension: "dspr2", FPU: "fpu64", FloatABI: "hard"}
		assert.Equal(t, "mipsel-linux-gnu", v.Triple())
		assert.Equal(t, "r5/dspr2/fpu64", v.Suffix())
		assert.Contains(t, v.Options(), "-mdspr2")
		assert.Contains(t, v.Options(), "-mhard-float")
		assert.NotContains(t, strings.Join(v.Options(), " "), "+dspr2")
	})

	t.Run("non-default flavor has its own suffix", func(t *testing.T) {
		v := Variant{Arch: ArchCortexM, Subarch: "armv7m", FPU: "none", FloatABI: "soft", Flavor: "oz"}
		assert.Equal(t, "v7m/nofp/oz", v.Suffix())
		assert.Contains(t, v.Options(), "-Oz")
	})
}

func TestOptionsAreIndependent(t *testing.T) {
	c := NewCatalog()
	v, err := c.Lookup("cortex-m/v6m/nofp")
	require.NoError(t, err)

	opts := v.Options()
	opts[0] = "mutated"

	again, err := c.Lookup("cortex-m/v6m/nofp")
	require.NoError(t, err)
	assert.Equal(t, "-target", again.Options()[0])
}

func TestLookupUnknown(t *testing.T) {
	c := NewCatalog()
	_, err := c.Lookup("cortex-m/v99/nofp")
	require.Error(t, err)

	var unknown *UnknownVariantError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "cortex-m/v99/nofp", unknown.ID)
}

func TestRestrict(t *testing.T) {
	t.Run("keeps declaration order", func(t *testing.T) {
		c := NewCatalog()
		restricted, err := c.Restrict([]string{"cortex-m/v7m/nofp", "cortex-m/v6m/nofp"})
		require.NoError(t, err)
		require.Equal(t, 2, restricted.Len())
		assert.Equal(t, "cortex-m/v6m/nofp", restricted.Variants()[0].ID())
		assert.Equal(t, "cortex-m/v7m/nofp", restricted.Variants()[1].ID())
	})

	t.Run("unknown id fails", func(t *testing.T) {
		c := NewCatalog()
		_, err := c.Restrict([]string{"cortex-m/bogus"})
		var unknown *UnknownVariantError
		require.ErrorAs(t, err, &unknown)
	})
}
