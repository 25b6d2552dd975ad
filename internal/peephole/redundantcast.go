package peephole

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/tangzhangming/dexpeep/internal/dexir"
)

// RedundantCastRemover is the sibling pass spec.md §1 lists as "separately
// invoked; not part of the core": it deletes a check-cast whose register
// is already statically known, within the same block, to hold a value of
// exactly that type (e.g. immediately after the new-instance that
// produced it). It shares no state with Engine and is never consulted by
// the matcher/synthesizer.
//
// This is a block-local approximation of RedundantCheckCastRemover from
// the original source, whose own implementation file was not part of the
// retrieved reference material; only its invocation site in
// PeepholeV2.cpp (run immediately after the peephole pass, gated by a
// pass-manager flag) was available to ground the calling convention
// against.
type RedundantCastRemover struct {
	log     *zap.Logger
	removed atomic.Int64
}

func NewRedundantCastRemover(log *zap.Logger) *RedundantCastRemover {
	return &RedundantCastRemover{log: log}
}

func (r *RedundantCastRemover) Removed() int64 { return r.removed.Load() }

// Run walks every method with code in scope, mirroring Engine.Run's use
// of the same scope-walker contract (spec.md §6).
func (r *RedundantCastRemover) Run(scope []*dexir.Class) {
	dexir.WalkMethods(scope, func(m *dexir.Method) {
		for _, block := range m.Blocks {
			r.runBlock(block)
		}
	})
}

func (r *RedundantCastRemover) runBlock(block *dexir.BasicBlock) {
	knownType := make(map[uint16]*dexir.TypeRef)
	var deletes []*dexir.Instruction

	for _, insn := range block.Instructions {
		switch insn.Opcode() {
		case dexir.NewInstance:
			knownType[insn.Dest()] = insn.GetType()
		case dexir.CheckCast:
			if t, ok := knownType[insn.Dest()]; ok && t == insn.GetType() {
				deletes = append(deletes, insn)
				r.removed.Inc()
				r.log.Debug("removed redundant check-cast", zap.Uint16("register", insn.Dest()))
				continue
			}
			knownType[insn.Dest()] = insn.GetType()
		default:
			if insn.DestsSize() == 1 {
				delete(knownType, insn.Dest())
			}
		}
	}

	for _, d := range deletes {
		block.RemoveOpcode(d)
	}
}
