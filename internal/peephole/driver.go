package peephole

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tangzhangming/dexpeep/internal/dexir"
)

// Stats is the conservation-checked running total for one Engine.Run:
// removed/inserted instruction counts overall and per rule (spec.md §6
// "Statistics output", §8.8 "Statistics conservation").
type Stats struct {
	Removed  atomic.Int64
	Inserted atomic.Int64

	mu        sync.Mutex
	ruleFired map[string]*atomic.Int64
}

func newStats(names []string) *Stats {
	s := &Stats{ruleFired: make(map[string]*atomic.Int64, len(names))}
	for _, n := range names {
		s.ruleFired[n] = atomic.NewInt64(0)
	}
	return s
}

func (s *Stats) fire(name string, removed, inserted int) {
	s.Removed.Add(int64(removed))
	s.Inserted.Add(int64(inserted))
	s.mu.Lock()
	counter := s.ruleFired[name]
	s.mu.Unlock()
	counter.Inc()
}

// RuleCounts returns a snapshot of per-rule firing counts.
func (s *Stats) RuleCounts() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.ruleFired))
	for name, counter := range s.ruleFired {
		out[name] = counter.Load()
	}
	return out
}

// Engine drives the pattern catalog over a method scope: the per-method
// block loop of spec.md §4.G, parallelized across methods per §5's
// scheduling model ("the driver is single-threaded per method; multiple
// methods may be processed in parallel ... each worker owns an
// independent set of Matcher instances"). Rules are read-only once built,
// so the only state shared between workers is the interning pool and the
// stats counters, both already safe for concurrent use.
type Engine struct {
	patterns []*Pattern
	strings  *dexir.StringPool
	log      *zap.Logger
	stats    *Stats

	// maxWorkers bounds how many methods are processed concurrently;
	// unlike the teacher's work-stealing VM scheduler, peephole work
	// items (methods) are independent and short-lived, so a simple
	// semaphore-bounded goroutine pool is enough — there is nothing to
	// steal from an idle worker here.
	maxWorkers int
}

// NewEngine builds an engine from the default catalog minus any disabled
// rule names. Unknown disabled names are trace-logged and otherwise
// ignored (spec.md §6, §7). maxWorkers bounds how many methods Run
// processes concurrently; 0 means runtime.GOMAXPROCS(0) (SPEC_FULL.md
// "Concurrency — made concrete"). A nil log is replaced by zap.NewNop().
func NewEngine(strings *dexir.StringPool, log *zap.Logger, disabled []string, maxWorkers int) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}
	disabledSet := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		disabledSet[name] = true
	}

	all := AllPatterns()
	known := make(map[string]bool, len(all))
	for _, p := range all {
		known[p.Name] = true
	}
	for name := range disabledSet {
		if !known[name] {
			log.Debug("ignoring unknown disabled rule name", zap.String("rule", name))
		}
	}

	enabled := make([]*Pattern, 0, len(all))
	names := make([]string, 0, len(all))
	for _, p := range all {
		if disabledSet[p.Name] {
			continue
		}
		enabled = append(enabled, p)
		names = append(names, p.Name)
	}

	return &Engine{
		patterns:   enabled,
		strings:    strings,
		log:        log,
		stats:      newStats(names),
		maxWorkers: maxWorkers,
	}
}

func (e *Engine) Stats() *Stats { return e.stats }

// Run walks every method with code in scope and optimizes it in place.
// Methods are distributed across a bounded pool of goroutines; block
// order within a method, and instruction order within a block, is always
// preserved (spec.md §5 "Ordering").
//
// spec.md §7 treats a rule's internal assertion failures (a bad
// declaration, not a bad input) as fatal, and that per-match contract is
// unchanged here. What Run adds on top is a process-level safety net: one
// method's assertion failure is recovered so it cannot take down the
// results already computed for every other, independent method in the
// same batch. Every recovered panic is still surfaced, combined via
// go.uber.org/multierr into a single returned error naming every failing
// method, rather than silently swallowed.
func (e *Engine) Run(scope []*dexir.Class) error {
	sem := make(chan struct{}, e.maxWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs error

	dexir.WalkMethods(scope, func(method *dexir.Method) {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := e.runMethodSafely(method); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}()
	})
	wg.Wait()
	return errs
}

// runMethodSafely recovers a panic from runMethod and turns it into an
// error naming the offending method, per Run's doc comment above.
func (e *Engine) runMethodSafely(method *dexir.Method) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dexpeep: method %s.%s: %v", method.Owner, method.Name, r)
		}
	}()
	e.runMethod(method)
	return nil
}

// runMethod owns one private set of matchers for the duration of the
// method, satisfying "each worker owns an independent set of Matcher
// instances" without any cross-goroutine matcher sharing.
func (e *Engine) runMethod(method *dexir.Method) {
	matchers := make([]*Matcher, len(e.patterns))
	for i, p := range e.patterns {
		matchers[i] = NewMatcher(p)
	}
	for _, block := range method.Blocks {
		e.runBlock(block, matchers)
	}
}

type blockEdit struct {
	anchor  *dexir.Instruction
	inserts []*dexir.Instruction
}

func (e *Engine) runBlock(block *dexir.BasicBlock, matchers []*Matcher) {
	for _, m := range matchers {
		m.Reset()
	}

	var edits []blockEdit
	var deletes []*dexir.Instruction

	for _, insn := range block.Instructions {
		for i, matcher := range matchers {
			if !matcher.TryMatch(insn) {
				continue
			}

			matched := matcher.Matched()
			for _, mi := range matched {
				concrete, ok := mi.(*dexir.Instruction)
				if !ok {
					panic("peephole: matched instruction is not a concrete *dexir.Instruction")
				}
				deletes = append(deletes, concrete)
			}
			replacements := matcher.Replacements(e.strings)
			edits = append(edits, blockEdit{anchor: insn, inserts: replacements})

			rule := e.patterns[i].Name
			e.stats.fire(rule, len(matched), len(replacements))
			e.log.Debug("peephole rule fired",
				zap.String("rule", rule),
				zap.Int("removed", len(matched)),
				zap.Int("inserted", len(replacements)))

			for _, m := range matchers {
				m.Reset()
			}
			break
		}
	}

	// Insertions must apply before deletions: InsertAfter locates its
	// anchor by identity in the block's live instruction slice, and an
	// anchor is always one of the instructions this same traversal
	// marked for deletion.
	for _, ed := range edits {
		block.InsertAfter(ed.anchor, ed.inserts)
	}
	for _, d := range deletes {
		block.RemoveOpcode(d)
	}
}
