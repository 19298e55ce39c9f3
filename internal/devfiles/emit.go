package devfiles

import (
	"fmt"
	"strings"
)

// linkerScript renders the memory-layout descriptor consumed by the linker.
// Rendering is a pure function of the record, so regeneration from unchanged
// metadata is byte-identical.
func linkerScript(r *Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "/* Memory layout for %s. Generated; do not edit. */\n\n", r.Device)
	b.WriteString("MEMORY\n{\n")
	fmt.Fprintf(&b, "  flash (rx)  : ORIGIN = 0x%08X, LENGTH = 0x%X\n", r.Flash.Origin, r.Flash.Size)
	fmt.Fprintf(&b, "  ram   (rwx) : ORIGIN = 0x%08X, LENGTH = 0x%X\n", r.RAM.Origin, r.RAM.Size)
	b.WriteString("}\n\n")
	b.WriteString("ENTRY(Reset_Handler)\n\n")
	b.WriteString("SECTIONS\n{\n")
	b.WriteString("  .text :\n  {\n")
	b.WriteString("    KEEP(*(.vectors))\n")
	b.WriteString("    *(.text*)\n")
	b.WriteString("    *(.rodata*)\n")
	b.WriteString("  } > flash\n\n")
	b.WriteString("  .data :\n  {\n")
	b.WriteString("    __data_start__ = .;\n")
	b.WriteString("    *(.data*)\n")
	b.WriteString("    __data_end__ = .;\n")
	b.WriteString("  } > ram AT > flash\n")
	b.WriteString("  __data_load__ = LOADADDR(.data);\n\n")
	b.WriteString("  .bss (NOLOAD) :\n  {\n")
	b.WriteString("    __bss_start__ = .;\n")
	b.WriteString("    *(.bss*)\n")
	b.WriteString("    *(COMMON)\n")
	b.WriteString("    __bss_end__ = .;\n")
	b.WriteString("  } > ram\n\n")
	fmt.Fprintf(&b, "  __stack_top__ = ORIGIN(ram) + LENGTH(ram);\n")
	b.WriteString("}\n")
	return b.String()
}

// registerHeader renders the peripheral base addresses and interrupt numbers
// as a C header.
func registerHeader(r *Record) string {
	guard := strings.ToUpper(sanitizeIdent(r.Device)) + "_H"

	var b strings.Builder
	fmt.Fprintf(&b, "/* Register definitions for %s (%s). Generated; do not edit. */\n", r.Device, r.Family)
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", guard, guard)

	if len(r.Peripherals) > 0 {
		b.WriteString("/* Peripheral base addresses. */\n")
		for _, p := range r.Peripherals {
			fmt.Fprintf(&b, "#define %s_BASE 0x%08XUL\n", sanitizeIdent(p.Name), p.Address)
		}
		b.WriteByte('\n')
	}

	if len(r.Interrupts) > 0 {
		b.WriteString("/* External interrupt numbers. */\n")
		b.WriteString("typedef enum {\n")
		for _, irq := range r.Interrupts {
			fmt.Fprintf(&b, "  %s_IRQn = %d,\n", sanitizeIdent(irq.Name), irq.Number)
		}
		b.WriteString("} IRQn_Type;\n\n")
	}

	fmt.Fprintf(&b, "#endif /* %s */\n", guard)
	return b.String()
}

// startupStub renders the minimal C startup file: vector table, data/bss
// init, and the default handlers.
func startupStub(r *Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "/* Startup code for %s. Generated; do not edit. */\n\n", r.Device)
	b.WriteString("#include <stdint.h>\n\n")
	b.WriteString("extern uint32_t __stack_top__;\n")
	b.WriteString("extern uint32_t __data_load__, __data_start__, __data_end__;\n")
	b.WriteString("extern uint32_t __bss_start__, __bss_end__;\n\n")
	b.WriteString("extern int main(void);\n\n")
	b.WriteString("void Default_Handler(void) { for (;;) {} }\n\n")

	b.WriteString("void Reset_Handler(void)\n{\n")
	b.WriteString("    const uint32_t *src = &__data_load__;\n")
	b.WriteString("    for (uint32_t *dst = &__data_start__; dst < &__data_end__; )\n")
	b.WriteString("        *dst++ = *src++;\n")
	b.WriteString("    for (uint32_t *dst = &__bss_start__; dst < &__bss_end__; )\n")
	b.WriteString("        *dst++ = 0;\n")
	b.WriteString("    main();\n")
	b.WriteString("    for (;;) {}\n")
	b.WriteString("}\n\n")

	for _, irq := range r.Interrupts {
		fmt.Fprintf(&b, "void %s_Handler(void) __attribute__((weak, alias(\"Default_Handler\")));\n",
			sanitizeIdent(irq.Name))
	}

	b.WriteString("\n__attribute__((section(\".vectors\")))\n")
	b.WriteString("const void *vector_table[] = {\n")
	b.WriteString("    &__stack_top__,\n")
	b.WriteString("    Reset_Handler,\n")
	for _, irq := range r.Interrupts {
		fmt.Fprintf(&b, "    %s_Handler,\n", sanitizeIdent(irq.Name))
	}
	b.WriteString("};\n")
	return b.String()
}

// sanitizeIdent maps a metadata name onto a valid C identifier.
func sanitizeIdent(name string) string {
	var b strings.Builder
	for i, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			b.WriteRune(c)
		case c >= '0' && c <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
