package peephole

import "github.com/tangzhangming/dexpeep/internal/dexir"

// Matcher is one pattern's streaming match state: a cursor into
// pattern.Match, the instructions matched so far, and the concrete
// bindings accumulated for every placeholder the pattern has bound
// (spec.md §3 "Matcher state"). A Matcher is reused across an entire
// block traversal; Reset clears it at block boundaries, after a
// successful match and after every failed attempt.
type Matcher struct {
	pattern *Pattern

	cursor  int
	matched []Insn

	regBound [4]bool
	regVal   [4]uint16

	litBound bool
	litVal   int64

	strABound, strBBound bool
	strA, strB           *dexir.StringRef

	typABound, typBBound bool
	typA, typB           *dexir.TypeRef
}

// NewMatcher builds a matcher bound to one immutable pattern.
func NewMatcher(p *Pattern) *Matcher {
	return &Matcher{pattern: p}
}

func (m *Matcher) Pattern() *Pattern { return m.pattern }

// Reset clears the cursor, all bindings and the matched-instruction list.
func (m *Matcher) Reset() {
	m.cursor = 0
	m.matched = m.matched[:0]
	m.regBound = [4]bool{}
	m.litBound = false
	m.strABound, m.strBBound = false, false
	m.strA, m.strB = nil, nil
	m.typABound, m.typBBound = false, false
	m.typA, m.typB = nil, nil
}

// Matched returns the instructions bound so far, in match order.
func (m *Matcher) Matched() []Insn { return m.matched }

// TryMatch feeds one instruction to the matcher. It returns true iff this
// instruction completes a full match of pattern.Match and any predicate
// accepts the resulting bindings (spec.md §4.D).
func (m *Matcher) TryMatch(insn Insn) bool {
	priorCursor := m.cursor
	if m.stepAndAdvance(insn) {
		return m.finishIfComplete()
	}
	// The ProGuard heuristic: a failure exactly at position 1 gets one
	// retry of the same instruction against element 0, since it's cheap
	// and catches the common "almost matched, restart here" case. Any
	// other failure position just resets and moves on; the matcher never
	// rescans earlier instructions (spec.md §4.D, §9).
	if priorCursor == 1 {
		m.Reset()
		if m.stepAndAdvance(insn) {
			return m.finishIfComplete()
		}
	}
	m.Reset()
	return false
}

// stepAndAdvance attempts the element at the current cursor against insn;
// on success it records insn and advances the cursor.
func (m *Matcher) stepAndAdvance(insn Insn) bool {
	elem := m.pattern.Match[m.cursor]
	if !m.matchElement(elem, insn) {
		return false
	}
	m.matched = append(m.matched, insn)
	m.cursor++
	return true
}

// finishIfComplete checks whether the cursor has reached the end of the
// match sequence and, if so, evaluates the pattern's predicate.
func (m *Matcher) finishIfComplete() bool {
	if m.cursor < len(m.pattern.Match) {
		return false
	}
	if m.pattern.Predicate != nil && !m.pattern.Predicate(m) {
		m.Reset()
		return false
	}
	return true
}

func (m *Matcher) matchElement(elem DexPattern, insn Insn) bool {
	if !opcodeIn(elem.Opcodes, insn.Opcode()) {
		return false
	}
	if insn.SrcsSize() != len(elem.Srcs) || insn.DestsSize() != len(elem.Dests) {
		return false
	}
	for i, reg := range elem.Srcs {
		if !m.bindRegister(reg, insn.Src(i)) {
			return false
		}
	}
	for _, reg := range elem.Dests {
		if !m.bindRegister(reg, insn.Dest()) {
			return false
		}
	}
	switch elem.Kind {
	case KindNone:
		return true
	case KindMethod:
		return insn.GetMethod() == elem.Method
	case KindString:
		return m.bindString(elem.Str, insn.GetString())
	case KindLiteral:
		return m.bindLiteral(elem.Lit, insn.Literal())
	case KindType:
		return m.bindType(elem.Typ, insn.GetType())
	case KindCopy:
		panic("peephole: copy payload is forbidden in a match element")
	default:
		panic("peephole: unknown payload kind in match element")
	}
}

func opcodeIn(set []dexir.OpCode, op dexir.OpCode) bool {
	for _, o := range set {
		if o == op {
			return true
		}
	}
	return false
}

// bindRegister applies step 2 of the element match procedure. A pair
// placeholder is never independently bound: its concrete value must equal
// its base's bound value plus one (spec.md §3).
func (m *Matcher) bindRegister(reg Register, concrete uint16) bool {
	if base, isPair := baseOf(reg); isPair {
		if !m.regBound[base] {
			return false
		}
		if concrete != m.regVal[base]+1 {
			return false
		}
		return fitsWidth(concrete, m.pattern.widthLimits[reg])
	}
	if m.regBound[reg] {
		return m.regVal[reg] == concrete
	}
	if !fitsWidth(concrete, m.pattern.widthLimits[reg]) {
		return false
	}
	m.regVal[reg] = concrete
	m.regBound[reg] = true
	return true
}

func (m *Matcher) bindString(ph String, s *dexir.StringRef) bool {
	switch ph {
	case StrEmpty:
		return s != nil && s.Value == ""
	case StrA:
		if m.strABound {
			return m.strA == s
		}
		m.strA, m.strABound = s, true
		return true
	case StrB:
		if m.strBBound {
			return m.strB == s
		}
		m.strB, m.strBBound = s, true
		return true
	default:
		panic("peephole: replacement-only string directive used in a match element")
	}
}

func (m *Matcher) bindLiteral(ph Literal, v int64) bool {
	if ph != LitA {
		panic("peephole: replacement-only literal directive used in a match element")
	}
	if m.litBound {
		return m.litVal == v
	}
	m.litVal, m.litBound = v, true
	return true
}

func (m *Matcher) bindType(ph Type, t *dexir.TypeRef) bool {
	switch ph {
	case TypeA:
		if m.typABound {
			return m.typA == t
		}
		m.typA, m.typABound = t, true
		return true
	case TypeB:
		if m.typBBound {
			return m.typB == t
		}
		m.typB, m.typBBound = t, true
		return true
	default:
		panic("peephole: unknown type placeholder")
	}
}

// Bound accessors used by the synthesizer and by rule predicates. Each
// panics if the placeholder was never bound: by the time synthesis runs,
// every placeholder its replace sequence references must already be
// bound by a successful match (spec.md §3's binding invariant, §4.E,
// §7's "missing binding ... fatal assertion").

func (m *Matcher) RegisterValue(reg Register) uint16 {
	if base, isPair := baseOf(reg); isPair {
		return m.RegisterValue(base) + 1
	}
	if !m.regBound[reg] {
		panic("peephole: register placeholder referenced before it was bound")
	}
	return m.regVal[reg]
}

func (m *Matcher) LiteralValue() int64 {
	if !m.litBound {
		panic("peephole: literal placeholder referenced before it was bound")
	}
	return m.litVal
}

func (m *Matcher) StringValue(ph String) *dexir.StringRef {
	switch ph {
	case StrA:
		if !m.strABound {
			panic("peephole: string placeholder A referenced before it was bound")
		}
		return m.strA
	case StrB:
		if !m.strBBound {
			panic("peephole: string placeholder B referenced before it was bound")
		}
		return m.strB
	default:
		panic("peephole: StringValue called with a non-bindable placeholder")
	}
}

func (m *Matcher) TypeValue(ph Type) *dexir.TypeRef {
	switch ph {
	case TypeA:
		if !m.typABound {
			panic("peephole: type placeholder A referenced before it was bound")
		}
		return m.typA
	case TypeB:
		if !m.typBBound {
			panic("peephole: type placeholder B referenced before it was bound")
		}
		return m.typB
	default:
		panic("peephole: unknown type placeholder")
	}
}
