package peephole

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/tangzhangming/dexpeep/internal/dexir"
)

// Replacements synthesizes the concrete instructions a completed match
// should be replaced with, evaluating every compile-time directive along
// the way (spec.md §4.E). It must only be called once TryMatch has
// reported a full match; every placeholder the replace sequence
// references is by then bound, so the bound-value accessors' panics never
// fire on a correctly-declared rule.
func (m *Matcher) Replacements(strs *dexir.StringPool) []*dexir.Instruction {
	out := make([]*dexir.Instruction, 0, len(m.pattern.Replace))
	for _, elem := range m.pattern.Replace {
		if elem.Kind == KindCopy {
			src, ok := m.matched[elem.CopyIndex].(*dexir.Instruction)
			if !ok {
				panic("peephole: copy payload requires a concrete *dexir.Instruction")
			}
			out = append(out, src.Clone())
			continue
		}
		out = append(out, m.synthesize(elem, strs))
	}
	return out
}

func (m *Matcher) synthesize(elem DexPattern, strs *dexir.StringPool) *dexir.Instruction {
	op := elem.Opcode()
	if !isSupportedReplacementOpcode(op) {
		panic("peephole: unsupported replacement opcode")
	}

	insn := dexir.NewInstruction(op)
	if len(elem.Dests) == 1 {
		insn.SetDest(m.RegisterValue(elem.Dests[0]))
	}
	if len(elem.Srcs) > 0 {
		srcs := make([]uint16, len(elem.Srcs))
		for i, r := range elem.Srcs {
			srcs[i] = m.RegisterValue(r)
		}
		insn.SetSrcs(srcs)
	}

	switch elem.Kind {
	case KindNone:
		if dexir.IsInvoke(op) {
			panic("peephole: invoke replacement requires a method payload")
		}
	case KindMethod:
		if !dexir.IsInvoke(op) {
			panic("peephole: method payload used on a non-invoke replacement opcode")
		}
		insn.SetMethod(elem.Method)
		insn.ArgWordCount = len(elem.Srcs)
	case KindString:
		insn.SetString(m.synthesizeString(elem.Str, strs))
	case KindLiteral:
		insn.SetLiteral(m.synthesizeLiteral(elem.Lit))
	case KindType:
		insn.SetType(m.synthesizeType(elem.Typ))
	default:
		panic("peephole: unsupported payload kind in replacement")
	}
	return insn
}

func isSupportedReplacementOpcode(op dexir.OpCode) bool {
	switch op {
	case dexir.InvokeDirect, dexir.InvokeStatic, dexir.InvokeVirtual,
		dexir.Move16, dexir.MoveResult, dexir.MoveResultObject, dexir.NegInt,
		dexir.ConstString, dexir.Const4, dexir.Const16, dexir.Const:
		return true
	default:
		return false
	}
}

func (m *Matcher) synthesizeString(ph String, strs *dexir.StringPool) *dexir.StringRef {
	switch ph {
	case StrA:
		return m.StringValue(StrA)
	case StrB:
		return m.StringValue(StrB)
	case StrBooleanAToString:
		return strs.Make(boolString(m.LiteralValue()))
	case StrCharAToString:
		return strs.Make(modifiedUTF8Char(uint16(m.LiteralValue())))
	case StrIntAToString:
		return strs.Make(strconv.FormatInt(int64(int32(m.LiteralValue())), 10))
	case StrLongIntAToString:
		return strs.Make(strconv.FormatInt(m.LiteralValue(), 10))
	case StrFloatAToString:
		f := math.Float32frombits(uint32(m.LiteralValue()))
		return strs.Make(strconv.FormatFloat(float64(f), 'g', -1, 32))
	case StrDoubleAToString:
		d := math.Float64frombits(uint64(m.LiteralValue()))
		return strs.Make(strconv.FormatFloat(d, 'g', -1, 64))
	case StrConcatAB:
		return strs.Make(m.StringValue(StrA).Value + m.StringValue(StrB).Value)
	case StrConcatStringABoolean:
		return strs.Make(m.StringValue(StrA).Value + boolString(m.LiteralValue()))
	case StrConcatStringAChar:
		return strs.Make(m.StringValue(StrA).Value + modifiedUTF8Char(uint16(m.LiteralValue())))
	case StrConcatStringAInt:
		return strs.Make(m.StringValue(StrA).Value + strconv.FormatInt(int64(int32(m.LiteralValue())), 10))
	case StrConcatStringALongInt:
		return strs.Make(m.StringValue(StrA).Value + strconv.FormatInt(m.LiteralValue(), 10))
	case StrTypeASimpleName:
		return strs.Make(simpleName(m.TypeValue(TypeA).Name))
	case StrEmpty:
		panic("peephole: empty is a match-only string placeholder")
	default:
		panic("peephole: unknown string directive")
	}
}

func boolString(lit int64) string {
	if lit != 0 {
		return "true"
	}
	return "false"
}

// modifiedUTF8Char encodes a single UTF-16 code unit as Modified UTF-8: the
// null code point takes the two-byte overlong form rather than a bare zero
// byte, matching the target encoding's reserved treatment of NUL.
func modifiedUTF8Char(cu uint16) string {
	switch {
	case cu == 0:
		return string([]byte{0xC0, 0x80})
	case cu <= 0x7F:
		return string([]byte{byte(cu)})
	case cu <= 0x7FF:
		return string([]byte{
			byte(0xC0 | (cu>>6)&0x1F),
			byte(0x80 | cu&0x3F),
		})
	default:
		return string([]byte{
			byte(0xE0 | (cu>>12)&0x0F),
			byte(0x80 | (cu>>6)&0x3F),
			byte(0x80 | cu&0x3F),
		})
	}
}

// simpleName strips an internal type name's package prefix and trailing
// semicolon, e.g. "Lcom/app/Foo;" -> "Foo".
func simpleName(internalName string) string {
	s := strings.TrimSuffix(internalName, ";")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return strings.TrimPrefix(s, "L")
}

func (m *Matcher) synthesizeLiteral(ph Literal) int64 {
	switch ph {
	case LitA:
		return m.LiteralValue()
	case LitCompareStringsAB:
		if m.StringValue(StrA) == m.StringValue(StrB) {
			return 1
		}
		return 0
	case LitLengthStringA:
		return int64(len(utf16.Encode([]rune(m.StringValue(StrA).Value))))
	default:
		panic("peephole: unknown literal directive")
	}
}

func (m *Matcher) synthesizeType(ph Type) *dexir.TypeRef {
	switch ph {
	case TypeA:
		return m.TypeValue(TypeA)
	case TypeB:
		return m.TypeValue(TypeB)
	default:
		panic("peephole: unknown type placeholder")
	}
}
