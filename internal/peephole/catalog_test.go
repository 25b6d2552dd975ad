package peephole

import (
	"testing"

	"github.com/tangzhangming/dexpeep/internal/dexir"
)

// runPattern feeds insns through a fresh matcher for p and returns the
// synthesized replacement once a full match completes, or nil if none of
// the instructions completed a match.
func runPattern(t *testing.T, p *Pattern, strs *dexir.StringPool, insns ...*dexir.Instruction) []*dexir.Instruction {
	t.Helper()
	m := NewMatcher(p)
	for _, in := range insns {
		if m.TryMatch(in) {
			return m.Replacements(strs)
		}
	}
	return nil
}

func findPattern(t *testing.T, all []*Pattern, name string) *Pattern {
	t.Helper()
	for _, p := range all {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("pattern %q not found in catalog", name)
	return nil
}

func TestCoalesceInitVoidAppendString(t *testing.T) {
	strs := dexir.NewStringPool()
	p := findPattern(t, StringPatterns(), "Coalesce_InitVoid_AppendString")

	sbInit := Methods.Make(ljavaStringBuilder, "<init>", "V", nil)
	sbAppend := Methods.Make(ljavaStringBuilder, "append", ljavaStringBuilder, []string{ljavaString})

	out := runPattern(t, p, strs,
		dexir.NewInstruction(dexir.InvokeDirect).SetSrcs([]uint16{1}).SetMethod(sbInit),
		dexir.NewInstruction(dexir.ConstString).SetDest(2).SetString(strs.Make("hi")),
		dexir.NewInstruction(dexir.InvokeVirtual).SetSrcs([]uint16{1, 2}).SetMethod(sbAppend),
		dexir.NewInstruction(dexir.MoveResultObject).SetDest(1),
	)

	if len(out) != 2 {
		t.Fatalf("expected 2 replacement instructions, got %d", len(out))
	}
	if out[0].Opcode() != dexir.ConstString || out[0].Dest() != 2 || out[0].GetString().Value != "hi" {
		t.Fatalf("unexpected first replacement instruction: %+v", out[0])
	}
	if out[1].Opcode() != dexir.InvokeDirect || out[1].Src(0) != 1 || out[1].Src(1) != 2 {
		t.Fatalf("unexpected second replacement instruction: %+v", out[1])
	}
}

func TestCoalesceAppendStringAppendString(t *testing.T) {
	strs := dexir.NewStringPool()
	p := findPattern(t, StringPatterns(), "Coalesce_AppendString_AppendString")
	sbAppend := Methods.Make(ljavaStringBuilder, "append", ljavaStringBuilder, []string{ljavaString})

	out := runPattern(t, p, strs,
		dexir.NewInstruction(dexir.ConstString).SetDest(2).SetString(strs.Make("a")),
		dexir.NewInstruction(dexir.InvokeVirtual).SetSrcs([]uint16{1, 2}).SetMethod(sbAppend),
		dexir.NewInstruction(dexir.MoveResultObject).SetDest(3),
		dexir.NewInstruction(dexir.ConstString).SetDest(4).SetString(strs.Make("b")),
		dexir.NewInstruction(dexir.InvokeVirtual).SetSrcs([]uint16{3, 4}).SetMethod(sbAppend),
	)

	if len(out) != 2 {
		t.Fatalf("expected 2 replacement instructions, got %d", len(out))
	}
	if out[0].GetString().Value != "ab" || out[0].Dest() != 2 {
		t.Fatalf("expected const-string v2, \"ab\"; got %+v", out[0])
	}
	if out[1].Opcode() != dexir.InvokeVirtual || out[1].Src(0) != 1 || out[1].Src(1) != 2 {
		t.Fatalf("expected invoke-virtual {v1, v2}; got %+v", out[1])
	}
}

func TestCompileTimeStringCompareEqual(t *testing.T) {
	strs := dexir.NewStringPool()
	p := findPattern(t, StringPatterns(), "CompileTime_StringCompare")
	equals := Methods.Make(ljavaString, "equals", "Z", []string{ljavaObject})

	out := runPattern(t, p, strs,
		dexir.NewInstruction(dexir.ConstString).SetDest(0).SetString(strs.Make("x")),
		dexir.NewInstruction(dexir.ConstString).SetDest(1).SetString(strs.Make("x")),
		dexir.NewInstruction(dexir.InvokeVirtual).SetSrcs([]uint16{0, 1}).SetMethod(equals),
		dexir.NewInstruction(dexir.MoveResult).SetDest(2),
	)

	if len(out) != 1 || out[0].Opcode() != dexir.Const4 || out[0].Dest() != 2 || out[0].Literal() != 1 {
		t.Fatalf("expected const/4 v2, 1; got %+v", out)
	}
}

func TestCompileTimeStringCompareUnequal(t *testing.T) {
	strs := dexir.NewStringPool()
	p := findPattern(t, StringPatterns(), "CompileTime_StringCompare")
	equals := Methods.Make(ljavaString, "equals", "Z", []string{ljavaObject})

	out := runPattern(t, p, strs,
		dexir.NewInstruction(dexir.ConstString).SetDest(0).SetString(strs.Make("x")),
		dexir.NewInstruction(dexir.ConstString).SetDest(1).SetString(strs.Make("y")),
		dexir.NewInstruction(dexir.InvokeVirtual).SetSrcs([]uint16{0, 1}).SetMethod(equals),
		dexir.NewInstruction(dexir.MoveResult).SetDest(2),
	)

	if len(out) != 1 || out[0].Literal() != 0 {
		t.Fatalf("expected const/4 v2, 0; got %+v", out)
	}
}

func TestArithMulDivLitNeg1(t *testing.T) {
	strs := dexir.NewStringPool()
	p := findPattern(t, ArithPatterns(), "Arith_MulDivLit_Neg1")

	in := dexir.NewInstruction(dexir.MulIntLit8).SetDest(3).SetSrcs([]uint16{7}).SetLiteral(-1)
	out := runPattern(t, p, strs, in)

	if len(out) != 1 || out[0].Opcode() != dexir.NegInt || out[0].Dest() != 3 || out[0].Src(0) != 7 {
		t.Fatalf("expected neg-int v3, v7; got %+v", out)
	}
}

func TestArithMulDivLitPos1RejectsOtherLiterals(t *testing.T) {
	strs := dexir.NewStringPool()
	p := findPattern(t, ArithPatterns(), "Arith_MulDivLit_Pos1")

	in := dexir.NewInstruction(dexir.MulIntLit8).SetDest(3).SetSrcs([]uint16{7}).SetLiteral(2)
	if out := runPattern(t, p, strs, in); out != nil {
		t.Fatalf("expected mul-int/lit8 v3, v7, #2 not to match Arith_MulDivLit_Pos1, got %+v", out)
	}
}

func TestArithMulDivLitPos1AcceptsLargeRegisters(t *testing.T) {
	strs := dexir.NewStringPool()
	p := findPattern(t, ArithPatterns(), "Arith_MulDivLit_Pos1")

	// Arith_MulDivLit_Pos1's replacement is move/16, a 16-bit field, so it
	// must still fire for registers far past a 4-bit encoding's range.
	in := dexir.NewInstruction(dexir.MulIntLit8).SetDest(300).SetSrcs([]uint16{300}).SetLiteral(1)
	out := runPattern(t, p, strs, in)

	if len(out) != 1 || out[0].Opcode() != dexir.Move16 || out[0].Dest() != 300 || out[0].Src(0) != 300 {
		t.Fatalf("expected move/16 v300, v300; got %+v", out)
	}
}

func TestRemoveRedundantMove(t *testing.T) {
	strs := dexir.NewStringPool()
	p := findPattern(t, NopPatterns(), "Remove_Redundant_Move")

	out := runPattern(t, p, strs, dexir.NewInstruction(dexir.Move).SetDest(4).SetSrcs([]uint16{4}))
	if len(out) != 0 {
		t.Fatalf("expected an empty replacement sequence, got %+v", out)
	}
}

func TestRemoveRedundantMoveRejectsDistinctRegisters(t *testing.T) {
	strs := dexir.NewStringPool()
	p := findPattern(t, NopPatterns(), "Remove_Redundant_Move")

	if out := runPattern(t, p, strs, dexir.NewInstruction(dexir.Move).SetDest(4).SetSrcs([]uint16{5})); out != nil {
		t.Fatalf("expected move v4, v5 not to match, got %+v", out)
	}
}

// TestWidthRefusal4Bit exercises spec.md §8's width-refusal scenario
// directly: a rule whose replacement opcode carries a 4-bit register field
// must refuse to bind a register that does not fit, even though the exact
// same input would be accepted by a rule whose replacement uses a 16-bit
// field (see TestArithMulDivLitPos1AcceptsLargeRegisters).
func TestWidthRefusal4Bit(t *testing.T) {
	strs := dexir.NewStringPool()
	p := NewPattern("toy-narrow-move",
		[]DexPattern{{Opcodes: []dexir.OpCode{dexir.MoveObject}, Srcs: []Register{RegA}, Dests: []Register{RegB}}},
		[]DexPattern{{Opcodes: []dexir.OpCode{dexir.MoveObject}, Srcs: []Register{RegA}, Dests: []Register{RegB}}},
		nil)

	in := dexir.NewInstruction(dexir.MoveObject).SetDest(18).SetSrcs([]uint16{17})
	if out := runPattern(t, p, strs, in); out != nil {
		t.Fatalf("expected registers 17/18 to be refused by a 4-bit-field replacement, got %+v", out)
	}
}

func TestNoWidthLimitWithEmptyReplacement(t *testing.T) {
	strs := dexir.NewStringPool()
	p := NewPattern("toy-unbounded-move",
		[]DexPattern{{Opcodes: []dexir.OpCode{dexir.MoveObject}, Srcs: []Register{RegA}, Dests: []Register{RegB}}},
		nil, nil)

	in := dexir.NewInstruction(dexir.MoveObject).SetDest(18).SetSrcs([]uint16{17})
	out := runPattern(t, p, strs, in)
	if out == nil {
		t.Fatalf("expected registers 17/18 to be accepted when the replacement is empty")
	}
}

func TestDefaultDisabledRuleExcludedFromAllPatterns(t *testing.T) {
	for _, p := range AllPatterns() {
		if p.Name == "Remove_AppendEmptyString" {
			t.Fatalf("Remove_AppendEmptyString must not appear in the default-enabled catalog")
		}
	}
	found := false
	for _, p := range DisabledByDefaultPatterns() {
		if p.Name == "Remove_AppendEmptyString" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Remove_AppendEmptyString must still be declared in DisabledByDefaultPatterns")
	}
}
