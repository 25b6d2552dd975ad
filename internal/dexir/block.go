package dexir

// BasicBlock is a maximal straight-line run of instructions. Building the
// control-flow graph and splitting a method's instruction stream into
// blocks is the job of the external IR layer this package stands in for;
// callers construct blocks directly.
type BasicBlock struct {
	Instructions []*Instruction
}

// NewBasicBlock wraps a ready-made instruction sequence.
func NewBasicBlock(insns ...*Instruction) *BasicBlock {
	return &BasicBlock{Instructions: insns}
}

// InsertAfter inserts newInsns immediately after anchor. anchor must be a
// member of b.Instructions.
func (b *BasicBlock) InsertAfter(anchor *Instruction, newInsns []*Instruction) {
	for idx, insn := range b.Instructions {
		if insn == anchor {
			tail := append([]*Instruction(nil), b.Instructions[idx+1:]...)
			b.Instructions = append(b.Instructions[:idx+1], append(append([]*Instruction(nil), newInsns...), tail...)...)
			return
		}
	}
}

// RemoveOpcode deletes insn's first occurrence from the block.
func (b *BasicBlock) RemoveOpcode(insn *Instruction) {
	for idx, cur := range b.Instructions {
		if cur == insn {
			b.Instructions = append(b.Instructions[:idx], b.Instructions[idx+1:]...)
			return
		}
	}
}

// Method is a unit of code: a name and its basic blocks. A method with a
// nil Blocks slice has no code (e.g. an abstract or native method) and is
// skipped by the scope walker, matching spec.md §6 "Methods without code
// are skipped."
type Method struct {
	Name   string
	Owner  string
	Blocks []*BasicBlock
}

func (m *Method) HasCode() bool { return m.Blocks != nil }

// Class groups the methods declared by one type.
type Class struct {
	Name    string
	Methods []*Method
}

// WalkMethods calls fn once for every method with code across scope, the
// minimal stand-in for the class/method scope walker spec.md treats as an
// external collaborator (§1, §6). It makes no ordering or concurrency
// guarantee beyond "every method with code is visited exactly once";
// internal/peephole.Engine.Run is what parallelizes across methods.
func WalkMethods(scope []*Class, fn func(*Method)) {
	for _, class := range scope {
		for _, method := range class.Methods {
			if method.HasCode() {
				fn(method)
			}
		}
	}
}
