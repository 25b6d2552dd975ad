package dexir

// Instruction is a decoded IR instruction: an opcode plus its operands.
// Register operands carry identity (plain numbers); string/type/method
// operands carry identity via pointers into the interning tables below, so
// that equal values always compare pointer-equal (spec.md §4.A, §6).
type Instruction struct {
	Op OpCode

	// dest holds the single destination register, if any (destsSize
	// distinguishes "no destination" from "destination is register 0").
	dest     uint16
	destsSet bool

	srcs []uint16

	literal int64
	hasLit  bool

	str    *StringRef
	typ    *TypeRef
	method *MethodRef

	// ArgWordCount records the number of source registers consumed by an
	// invoke instruction (set explicitly by replacement synthesis, since
	// the skeleton is built before its sources are known).
	ArgWordCount int
}

// NewInstruction builds a bare instruction with the given opcode and no
// operands set; callers use the Set* methods to fill it in.
func NewInstruction(op OpCode) *Instruction {
	return &Instruction{Op: op}
}

func (i *Instruction) Opcode() OpCode { return i.Op }

// DestsSize is 0 or 1: this IR never has more than one destination.
func (i *Instruction) DestsSize() int {
	if i.destsSet {
		return 1
	}
	return 0
}

func (i *Instruction) Dest() uint16 { return i.dest }

func (i *Instruction) SetDest(r uint16) *Instruction {
	i.dest = r
	i.destsSet = true
	return i
}

func (i *Instruction) SrcsSize() int { return len(i.srcs) }

func (i *Instruction) Src(idx int) uint16 { return i.srcs[idx] }

func (i *Instruction) SetSrc(idx int, r uint16) *Instruction {
	for len(i.srcs) <= idx {
		i.srcs = append(i.srcs, 0)
	}
	i.srcs[idx] = r
	return i
}

// SetSrcs replaces all source registers at once.
func (i *Instruction) SetSrcs(regs []uint16) *Instruction {
	i.srcs = append([]uint16(nil), regs...)
	return i
}

func (i *Instruction) Literal() int64 { return i.literal }

func (i *Instruction) SetLiteral(v int64) *Instruction {
	i.literal = v
	i.hasLit = true
	return i
}

func (i *Instruction) HasLiteral() bool { return i.hasLit }

func (i *Instruction) GetString() *StringRef { return i.str }

func (i *Instruction) SetString(s *StringRef) *Instruction {
	i.str = s
	return i
}

func (i *Instruction) GetType() *TypeRef { return i.typ }

func (i *Instruction) SetType(t *TypeRef) *Instruction {
	i.typ = t
	return i
}

func (i *Instruction) GetMethod() *MethodRef { return i.method }

func (i *Instruction) SetMethod(m *MethodRef) *Instruction {
	i.method = m
	return i
}

// Clone returns a new instruction with identical operands. Identity of the
// instruction itself is not preserved; identity of its string/type/method
// handles is (they are pointers into the shared interning tables).
func (i *Instruction) Clone() *Instruction {
	c := &Instruction{
		Op:           i.Op,
		dest:         i.dest,
		destsSet:     i.destsSet,
		srcs:         append([]uint16(nil), i.srcs...),
		literal:      i.literal,
		hasLit:       i.hasLit,
		str:          i.str,
		typ:          i.typ,
		method:       i.method,
		ArgWordCount: i.ArgWordCount,
	}
	return c
}
