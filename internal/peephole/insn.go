// Package peephole implements a peephole optimizer for a register-based
// bytecode IR: a declarative pattern DSL, a streaming per-block matcher, a
// replacement synthesizer and a per-method driver. See spec.md for the
// full design; this file is component A, the thin instruction-model
// adapter (spec.md §4.A).
package peephole

import "github.com/tangzhangming/dexpeep/internal/dexir"

// Insn is the surface the matcher needs from a concrete IR instruction.
// dexir.Instruction satisfies this implicitly. The matcher reads
// instructions only through this interface; the synthesizer's copy path
// and the driver's edit step type-assert matched instructions back to
// *dexir.Instruction, since they clone or delete the concrete value.
type Insn interface {
	Opcode() dexir.OpCode
	DestsSize() int
	Dest() uint16
	SrcsSize() int
	Src(i int) uint16
	Literal() int64
	GetString() *dexir.StringRef
	GetType() *dexir.TypeRef
	GetMethod() *dexir.MethodRef
}

var _ Insn = (*dexir.Instruction)(nil)
