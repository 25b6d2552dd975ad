package peephole

import "github.com/tangzhangming/dexpeep/internal/dexir"

// This file declares the fixed rule catalog (spec.md §4.F), grouped into
// the four families the original source groups them into. Each family
// function builds fresh Pattern values on every call; a built Pattern is
// never mutated.

// firstInstructionLiteralIs builds a predicate that inspects the literal
// carried by the first matched instruction, used by the Arith family to
// distinguish *1/-1/+0 from the general case (spec.md §4.F, §9 "must be
// sign-aware").
func firstInstructionLiteralIs(value int64) func(*Matcher) bool {
	return func(m *Matcher) bool {
		matched := m.Matched()
		if len(matched) == 0 {
			return false
		}
		return matched[0].Literal() == value
	}
}

// NopPatterns removes self-moves: move/move-object v, v is always dead
// weight.
func NopPatterns() []*Pattern {
	return []*Pattern{
		NewPattern("Remove_Redundant_Move",
			[]DexPattern{moveOps(RegA, RegA)},
			nil, nil),
	}
}

// StringPatterns coalesces StringBuilder init/append chains and
// constant-folds String.valueOf/length/equals over interned string
// constants. Remove_AppendEmptyString is declared but excluded from
// AllPatterns and carried only in DisabledByDefaultPatterns, matching the
// original source's own comment that it caused a verifier crash (spec.md
// §9).
func StringPatterns() []*Pattern {
	return []*Pattern{
		// new StringBuilder().append("...") == new StringBuilder("...")
		NewPattern("Coalesce_InitVoid_AppendString",
			[]DexPattern{
				invokeStringBuilderInit(RegA),
				constString(RegB, StrA),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
				moveResultObject(RegA),
			},
			[]DexPattern{
				constString(RegB, StrA),
				invokeStringBuilderInitString(RegA, RegB),
			}, nil),

		// StringBuilder.append("A").append("B") == StringBuilder.append("AB")
		NewPattern("Coalesce_AppendString_AppendString",
			[]DexPattern{
				constString(RegB, StrA),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
				moveResultObject(RegC),
				constString(RegD, StrB),
				invokeStringBuilderAppend(RegC, RegD, ljavaString),
			},
			[]DexPattern{
				constString(RegB, StrConcatAB),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
			}, nil),

		// "stringA".length() == length_of_stringA
		NewPattern("CompileTime_StringLength",
			[]DexPattern{
				constString(RegA, StrA),
				invokeStringLength(RegA),
				moveResult(RegB),
			},
			[]DexPattern{
				constString(RegA, StrA),
				constLiteral(dexir.Const16, RegB, LitLengthStringA),
			}, nil),

		// new StringBuilder().append(C) == new StringBuilder("....")
		NewPattern("Coalesce_Init_AppendChar",
			[]DexPattern{
				invokeStringBuilderInit(RegA),
				constChar(RegB, LitA),
				invokeStringBuilderAppend(RegA, RegB, "C"),
				moveResultObject(RegA),
			},
			[]DexPattern{
				constString(RegB, StrCharAToString),
				invokeStringBuilderInitString(RegA, RegB),
			}, nil),

		// StringBuilder.append("...").append(I) == StringBuilder.append("....")
		NewPattern("Coalesce_AppendString_AppendInt",
			[]DexPattern{
				constString(RegB, StrA),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
				moveResultObject(RegC),
				constInteger(RegD, LitA),
				invokeStringBuilderAppend(RegC, RegD, "I"),
			},
			[]DexPattern{
				constString(RegB, StrConcatStringAInt),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
			}, nil),

		// StringBuilder.append("...").append(C) == StringBuilder.append("....")
		NewPattern("Coalesce_AppendString_AppendChar",
			[]DexPattern{
				constString(RegB, StrA),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
				moveResultObject(RegC),
				constChar(RegD, LitA),
				invokeStringBuilderAppend(RegC, RegD, "C"),
			},
			[]DexPattern{
				constString(RegB, StrConcatStringAChar),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
			}, nil),

		// StringBuilder.append("...").append(Z) == StringBuilder.append("....")
		NewPattern("Coalesce_AppendString_AppendBoolean",
			[]DexPattern{
				constString(RegB, StrA),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
				moveResultObject(RegC),
				constLiteral(dexir.Const4, RegD, LitA),
				invokeStringBuilderAppend(RegC, RegD, "Z"),
			},
			[]DexPattern{
				constString(RegB, StrConcatStringABoolean),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
			}, nil),

		// StringBuilder.append("...").append(J) == StringBuilder.append("....")
		NewPattern("Coalesce_AppendString_AppendLongInt",
			[]DexPattern{
				constString(RegB, StrA),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
				moveResultObject(RegC),
				constWide(RegD, LitA),
				invokeStringBuilderAppend(RegC, RegD, "J"),
			},
			[]DexPattern{
				constString(RegB, StrConcatStringALongInt),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
			}, nil),

		// "stringA".equals("stringB") == true or false
		NewPattern("CompileTime_StringCompare",
			[]DexPattern{
				constString(RegA, StrA),
				constString(RegB, StrB),
				invokeStringEquals(RegA, RegB),
				moveResult(RegC),
			},
			[]DexPattern{
				constLiteral(dexir.Const4, RegC, LitCompareStringsAB),
			}, nil),

		// String.valueOf(true/false) == "true" or "false"
		NewPattern("Replace_ValueOfBoolean",
			[]DexPattern{
				constLiteral(dexir.Const4, RegA, LitA),
				invokeStringValueOf(RegA, "Z"),
				moveResultObject(RegB),
			},
			[]DexPattern{
				constString(RegB, StrBooleanAToString),
			}, nil),

		// String.valueOf(char) == "char"
		NewPattern("Replace_ValueOfChar",
			[]DexPattern{
				constChar(RegA, LitA),
				invokeStringValueOf(RegA, "C"),
				moveResultObject(RegB),
			},
			[]DexPattern{
				constString(RegB, StrCharAToString),
			}, nil),

		// String.valueOf(int) == "int"
		NewPattern("Replace_ValueOfInt",
			[]DexPattern{
				constInteger(RegA, LitA),
				invokeStringValueOf(RegA, "I"),
				moveResultObject(RegB),
			},
			[]DexPattern{
				constString(RegB, StrIntAToString),
			}, nil),

		// String.valueOf(long int) == "long int"
		NewPattern("Replace_ValueOfLongInt",
			[]DexPattern{
				constWide(RegA, LitA),
				invokeStringValueOf(RegA, "J"),
				moveResultObject(RegB),
			},
			[]DexPattern{
				constString(RegB, StrLongIntAToString),
			}, nil),

		// String.valueOf(float) == "float"
		NewPattern("Replace_ValueOfFloat",
			[]DexPattern{
				constFloat(RegA, LitA),
				invokeStringValueOf(RegA, "F"),
				moveResultObject(RegB),
			},
			[]DexPattern{
				constString(RegB, StrFloatAToString),
			}, nil),

		// String.valueOf(double) == "double"
		NewPattern("Replace_ValueOfDouble",
			[]DexPattern{
				constWide(RegA, LitA),
				invokeStringValueOf(RegA, "D"),
				moveResultObject(RegB),
			},
			[]DexPattern{
				constString(RegB, StrDoubleAToString),
			}, nil),
	}
}

// DisabledByDefaultPatterns holds rules the catalog declares but the
// engine never runs: Remove_AppendEmptyString caused a verifier crash in
// the original source and is kept only for reference. NewEngine builds
// its rule set from AllPatterns alone, so no configuration enables these.
func DisabledByDefaultPatterns() []*Pattern {
	return []*Pattern{
		NewPattern("Remove_AppendEmptyString",
			[]DexPattern{
				constString(RegB, StrEmpty),
				invokeStringBuilderAppend(RegA, RegB, ljavaString),
			},
			nil, nil),
	}
}

// DefaultDisabledRules lists the names of DisabledByDefaultPatterns. The
// engine does not consult this list and offers no way to re-enable these
// rules; listing one in a config's disabled_rules is logged as an unknown
// name.
func DefaultDisabledRules() []string {
	return []string{"Remove_AppendEmptyString"}
}

// ArithPatterns folds multiply/divide-by-one and add-zero into simpler
// instructions. The *1 and +0 rules emit move/16 with full 16-bit register
// fields, matching the original source's note that a later pass may
// tighten them further; the *-1 rule emits neg-int, whose 4-bit fields
// limit it to registers v0-v15.
func ArithPatterns() []*Pattern {
	return []*Pattern{
		NewPattern("Arith_MulDivLit_Pos1",
			[]DexPattern{mulOrDivLit(RegA, RegB)},
			[]DexPattern{{Opcodes: []dexir.OpCode{dexir.Move16}, Srcs: []Register{RegA}, Dests: []Register{RegB}}},
			firstInstructionLiteralIs(1)),

		NewPattern("Arith_MulDivLit_Neg1",
			[]DexPattern{mulOrDivLit(RegA, RegB)},
			[]DexPattern{{Opcodes: []dexir.OpCode{dexir.NegInt}, Srcs: []Register{RegA}, Dests: []Register{RegB}}},
			firstInstructionLiteralIs(-1)),

		NewPattern("Arith_AddLit_0",
			[]DexPattern{addLit(RegA, RegB)},
			[]DexPattern{{Opcodes: []dexir.OpCode{dexir.Move16}, Srcs: []Register{RegA}, Dests: []Register{RegB}}},
			firstInstructionLiteralIs(0)),
	}
}

// FuncPatterns folds Class.getSimpleName() called on a compile-time-known
// class literal. The original const-class is cloned via copy-index since
// something else may still reference the Type handle; an unreferenced
// copy is left for dead-code elimination to remove later.
func FuncPatterns() []*Pattern {
	return []*Pattern{
		NewPattern("Remove_LangClass_GetSimpleName",
			[]DexPattern{
				constClass(RegA, TypeA),
				invokeClassGetSimpleName(),
				moveResultObject(RegB),
			},
			[]DexPattern{
				copyMatchedInstruction(0),
				constString(RegB, StrTypeASimpleName),
			}, nil),
	}
}

// AllPatterns is the full enabled-by-default catalog in the family order
// the original source declares it (spec.md §4.F, §4.G "in catalog
// order").
func AllPatterns() []*Pattern {
	var all []*Pattern
	all = append(all, NopPatterns()...)
	all = append(all, StringPatterns()...)
	all = append(all, ArithPatterns()...)
	all = append(all, FuncPatterns()...)
	return all
}
