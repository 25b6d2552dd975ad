package peephole

import "github.com/tangzhangming/dexpeep/internal/dexir"

// Register is a symbolic placeholder for a concrete register number
// (spec.md §3). A/B/C/D are freely bound by matching; the pair_* variants
// denote the high half of a wide value and always derive from their base
// (bound value must equal base+1).
type Register int

const (
	RegA Register = iota
	RegB
	RegC
	RegD
	RegPairA
	RegPairB
	RegPairC
	RegPairD

	numRegisters // array size for register-indexed lookups
)

// pairOf returns the pair placeholder for a base register.
func pairOf(base Register) Register {
	switch base {
	case RegA:
		return RegPairA
	case RegB:
		return RegPairB
	case RegC:
		return RegPairC
	case RegD:
		return RegPairD
	default:
		panic("peephole: pairOf called on a non-base register")
	}
}

// baseOf returns the base register a pair placeholder derives from, and
// whether reg is in fact a pair placeholder.
func baseOf(reg Register) (Register, bool) {
	switch reg {
	case RegPairA:
		return RegA, true
	case RegPairB:
		return RegB, true
	case RegPairC:
		return RegC, true
	case RegPairD:
		return RegD, true
	default:
		return 0, false
	}
}

// Literal is a symbolic placeholder for a bindable 64-bit value, or a
// replacement-only directive computed from other bindings (spec.md §3).
type Literal int

const (
	LitA Literal = iota
	LitCompareStringsAB
	LitLengthStringA
)

// String is a symbolic placeholder for an interned string, or a
// replacement-only directive that synthesizes a new string from prior
// bindings (spec.md §3).
type String int

const (
	StrA String = iota
	StrB
	StrEmpty

	StrBooleanAToString
	StrCharAToString
	StrIntAToString
	StrLongIntAToString
	StrFloatAToString
	StrDoubleAToString
	StrConcatAB
	StrConcatStringABoolean
	StrConcatStringAChar
	StrConcatStringAInt
	StrConcatStringALongInt
	StrTypeASimpleName
)

// Type is a symbolic placeholder for an interned type; both variants are
// freely bindable.
type Type int

const (
	TypeA Type = iota
	TypeB
)

// PayloadKind discriminates a DexPattern's single populated payload field.
// This is a tagged union, not an interface hierarchy, per spec.md §9.
type PayloadKind int

const (
	KindNone PayloadKind = iota
	KindMethod
	KindString
	KindLiteral
	KindType
	// KindCopy replaces with a clone of an already-matched instruction.
	// Only valid in a replace sequence; forbidden in a match sequence
	// (spec.md §4.D step 3).
	KindCopy
)

// DexPattern is one element of a match or replace sequence: an accepted
// opcode set, ordered symbolic source/dest registers, and one payload
// (spec.md §3 "Pattern element").
type DexPattern struct {
	Opcodes []dexir.OpCode
	Srcs    []Register
	Dests   []Register // 0 or 1 elements

	Kind PayloadKind

	Method    *dexir.MethodRef // KindMethod
	Str       String           // KindString
	Lit       Literal          // KindLiteral
	Typ       Type             // KindType
	CopyIndex int              // KindCopy
}

// Opcode is a convenience accessor for replacement elements, whose opcode
// set must be a singleton (spec.md §3's invariant).
func (p DexPattern) Opcode() dexir.OpCode {
	if len(p.Opcodes) != 1 {
		panic("peephole: replacement DexPattern must have a singleton opcode set")
	}
	return p.Opcodes[0]
}

func none(opcodes []dexir.OpCode, srcs, dests []Register) DexPattern {
	return DexPattern{Opcodes: opcodes, Srcs: srcs, Dests: dests, Kind: KindNone}
}

func withMethod(opcodes []dexir.OpCode, srcs, dests []Register, m *dexir.MethodRef) DexPattern {
	return DexPattern{Opcodes: opcodes, Srcs: srcs, Dests: dests, Kind: KindMethod, Method: m}
}

func withString(opcodes []dexir.OpCode, srcs, dests []Register, s String) DexPattern {
	return DexPattern{Opcodes: opcodes, Srcs: srcs, Dests: dests, Kind: KindString, Str: s}
}

func withLiteral(opcodes []dexir.OpCode, srcs, dests []Register, l Literal) DexPattern {
	return DexPattern{Opcodes: opcodes, Srcs: srcs, Dests: dests, Kind: KindLiteral, Lit: l}
}

func withType(opcodes []dexir.OpCode, srcs, dests []Register, t Type) DexPattern {
	return DexPattern{Opcodes: opcodes, Srcs: srcs, Dests: dests, Kind: KindType, Typ: t}
}

// copyMatchedInstruction replaces with a clone of matched_instructions[index].
func copyMatchedInstruction(index int) DexPattern {
	return DexPattern{Kind: KindCopy, CopyIndex: index}
}

////////////////////////////////////////////////////////////////////////////
// Helper factories, grounded 1:1 on the `patterns::` namespace of
// PeepholeV2.cpp.

const (
	ljavaString        = "Ljava/lang/String;"
	ljavaStringBuilder = "Ljava/lang/StringBuilder;"
	ljavaObject        = "Ljava/lang/Object;"
	ljavaClass         = "Ljava/lang/Class;"
)

// Methods is the method-handle interning table the static rule catalog
// is built against. It is exported so that callers constructing IR
// fixtures (tests, the demo scope in cmd/dexpeep) intern their
// invoke-family method handles from the same table the catalog's method
// payloads compare against by pointer identity (spec.md §3's interning
// invariant); in a real host toolchain this table would instead be the
// dex file's own global method pool.
var Methods = dexir.NewMethodPool()

// isWideParam reports whether a Java descriptor denotes a 64-bit value,
// whose argument occupies a register pair.
func isWideParam(paramType string) bool { return paramType == "J" || paramType == "D" }

// invoke-direct {reg_instance}, Ljava/lang/StringBuilder;.<init>:()V
func invokeStringBuilderInit(instance Register) DexPattern {
	return withMethod([]dexir.OpCode{dexir.InvokeDirect}, []Register{instance}, nil,
		Methods.Make(ljavaStringBuilder, "<init>", "V", nil))
}

// invoke-direct {reg_instance, reg_argument},
// Ljava/lang/StringBuilder;.<init>:(Ljava/lang/String;)V
func invokeStringBuilderInitString(instance, argument Register) DexPattern {
	return withMethod([]dexir.OpCode{dexir.InvokeDirect}, []Register{instance, argument}, nil,
		Methods.Make(ljavaStringBuilder, "<init>", "V", []string{ljavaString}))
}

// invoke-virtual {reg_instance, reg_argument},
// Ljava/lang/StringBuilder;.append:(paramType)Ljava/lang/StringBuilder;
func invokeStringBuilderAppend(instance, argument Register, paramType string) DexPattern {
	srcs := []Register{instance, argument}
	if isWideParam(paramType) {
		srcs = append(srcs, pairOf(argument))
	}
	return withMethod([]dexir.OpCode{dexir.InvokeVirtual}, srcs, nil,
		Methods.Make(ljavaStringBuilder, "append", ljavaStringBuilder, []string{paramType}))
}

func invokeStringValueOf(argument Register, paramType string) DexPattern {
	srcs := []Register{argument}
	if isWideParam(paramType) {
		srcs = append(srcs, pairOf(argument))
	}
	return withMethod([]dexir.OpCode{dexir.InvokeStatic}, srcs, nil,
		Methods.Make(ljavaString, "valueOf", ljavaString, []string{paramType}))
}

func invokeStringEquals(instance, argument Register) DexPattern {
	return withMethod([]dexir.OpCode{dexir.InvokeVirtual}, []Register{instance, argument}, nil,
		Methods.Make(ljavaString, "equals", "Z", []string{ljavaObject}))
}

func invokeStringLength(instance Register) DexPattern {
	return withMethod([]dexir.OpCode{dexir.InvokeVirtual}, []Register{instance}, nil,
		Methods.Make(ljavaString, "length", "I", nil))
}

func constString(dest Register, str String) DexPattern {
	return withString([]dexir.OpCode{dexir.ConstString}, nil, []Register{dest}, str)
}

func moveResultObject(dest Register) DexPattern {
	return none([]dexir.OpCode{dexir.MoveResultObject}, nil, []Register{dest})
}

func moveResult(dest Register) DexPattern {
	return none([]dexir.OpCode{dexir.MoveResult}, nil, []Register{dest})
}

func constLiteral(op dexir.OpCode, dest Register, lit Literal) DexPattern {
	return withLiteral([]dexir.OpCode{op}, nil, []Register{dest}, lit)
}

func constWide(dest Register, lit Literal) DexPattern {
	return withLiteral([]dexir.OpCode{dexir.ConstWide16, dexir.ConstWide32, dexir.ConstWide}, nil, []Register{dest}, lit)
}

func constInteger(dest Register, lit Literal) DexPattern {
	return withLiteral([]dexir.OpCode{dexir.Const4, dexir.Const16, dexir.Const}, nil, []Register{dest}, lit)
}

func constFloat(dest Register, lit Literal) DexPattern {
	return withLiteral([]dexir.OpCode{dexir.Const4, dexir.Const}, nil, []Register{dest}, lit)
}

// constChar reuses the integer constant match: Modified UTF-8 characters
// load through const/4, const/16 or const the same way small integers do.
func constChar(dest Register, lit Literal) DexPattern {
	return constInteger(dest, lit)
}

func moveOps(dest, src Register) DexPattern {
	return none([]dexir.OpCode{dexir.Move, dexir.MoveObject}, []Register{src}, []Register{dest})
}

func mulOrDivLit(src, dst Register) DexPattern {
	return none([]dexir.OpCode{dexir.MulIntLit8, dexir.MulIntLit16, dexir.DivIntLit8, dexir.DivIntLit16},
		[]Register{src}, []Register{dst})
}

func addLit(src, dst Register) DexPattern {
	return none([]dexir.OpCode{dexir.AddIntLit8, dexir.AddIntLit16}, []Register{src}, []Register{dst})
}

var anyInvoke = []dexir.OpCode{
	dexir.InvokeVirtual, dexir.InvokeSuper, dexir.InvokeDirect, dexir.InvokeStatic, dexir.InvokeInterface,
	dexir.InvokeVirtualRange, dexir.InvokeSuperRange, dexir.InvokeDirectRange, dexir.InvokeStaticRange, dexir.InvokeInterfaceRange,
}

func invokeClassGetSimpleName() DexPattern {
	return withMethod(anyInvoke, []Register{RegA}, nil,
		Methods.Make(ljavaClass, "getSimpleName", ljavaString, nil))
}

func constClass(dest Register, typ Type) DexPattern {
	return withType([]dexir.OpCode{dexir.ConstClass}, nil, []Register{dest}, typ)
}
