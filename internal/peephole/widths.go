package peephole

import "github.com/tangzhangming/dexpeep/internal/dexir"

// registerWidthLimits computes, for each of the eight register
// placeholders, the tightest encoding width any replacement instruction
// demands of it. A placeholder a replacement never touches has no limit
// (maxWidth, i.e. no restriction — spec.md §4.C's "default 16", widened
// here to "no restriction" since 16 bits already admits every register
// this IR can name). Grounded on
// Pattern::determine_register_width_limits in PeepholeV2.cpp (lines
// 237-298), which precomputes this once per pattern rather than per match.
func registerWidthLimits(replace []DexPattern) [numRegisters]int {
	var limits [numRegisters]int
	for i := range limits {
		limits[i] = maxWidth
	}
	tighten := func(reg Register, bits int) {
		if bits < limits[reg] {
			limits[reg] = bits
		}
	}
	for _, elem := range replace {
		if elem.Kind == KindCopy {
			// A copied instruction carries forward whatever registers it
			// already held; those were validated when the corresponding
			// match element was originally encoded, so no new limit
			// applies here.
			continue
		}
		op := elem.Opcode()
		for i, src := range elem.Srcs {
			tighten(src, dexir.SrcBitWidth(op, i))
		}
		for _, dest := range elem.Dests {
			tighten(dest, dexir.DestBitWidth(op))
		}
	}
	return limits
}

const maxWidth = int(^uint(0) >> 1)

// fitsWidth reports whether concrete register value v can be encoded in an
// n-bit unsigned field.
func fitsWidth(v uint16, bits int) bool {
	if bits >= 16 {
		return true
	}
	return v < (uint16(1) << uint(bits))
}
