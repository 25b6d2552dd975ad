package peephole

// Pattern is a named rule: a match sequence to recognize and a replace
// sequence to substitute, plus the per-placeholder width limits the
// replace sequence implies (spec.md §4.C). Patterns are immutable once
// built; Matcher holds the only mutable per-attempt state.
type Pattern struct {
	Name    string
	Match   []DexPattern
	Replace []DexPattern

	// Predicate, if non-nil, runs once the full match sequence has bound
	// every placeholder; a false result undoes the match (spec.md §4.D
	// "optional predicate over the Matcher's bindings"). Arith rules use
	// this to inspect the raw literal of the first matched instruction.
	Predicate func(*Matcher) bool

	widthLimits [numRegisters]int
}

// NewPattern builds a named rule and precomputes its register width
// limits from the replace sequence.
func NewPattern(name string, match, replace []DexPattern, predicate func(*Matcher) bool) *Pattern {
	return &Pattern{
		Name:        name,
		Match:       match,
		Replace:     replace,
		Predicate:   predicate,
		widthLimits: registerWidthLimits(replace),
	}
}
