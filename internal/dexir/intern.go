package dexir

import "sync"

// StringRef, TypeRef and MethodRef are interned handles: two calls to the
// owning pool's Make method with equal contents return the same pointer,
// so identity equality (==) on the pointer implies value equality
// (spec.md's "Interning sufficiency" property, §8.5).

type StringRef struct{ Value string }

type TypeRef struct{ Name string } // internal name, e.g. "Lcom/app/Foo;"

type MethodRef struct {
	Owner  string // declaring type's internal name
	Name   string
	Return string
	Params []string
}

// StringPool interns strings under a mutex. A handful of constants per
// method body never contends enough to justify a lock-free structure.
type StringPool struct {
	mu      sync.Mutex
	entries map[string]*StringRef
}

func NewStringPool() *StringPool {
	return &StringPool{entries: make(map[string]*StringRef)}
}

func (p *StringPool) Make(s string) *StringRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ref, ok := p.entries[s]; ok {
		return ref
	}
	ref := &StringRef{Value: s}
	p.entries[s] = ref
	return ref
}

// Empty returns the interned handle for the empty string.
func (p *StringPool) Empty() *StringRef { return p.Make("") }

type TypePool struct {
	mu      sync.Mutex
	entries map[string]*TypeRef
}

func NewTypePool() *TypePool {
	return &TypePool{entries: make(map[string]*TypeRef)}
}

func (p *TypePool) Make(name string) *TypeRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ref, ok := p.entries[name]; ok {
		return ref
	}
	ref := &TypeRef{Name: name}
	p.entries[name] = ref
	return ref
}

type MethodPool struct {
	mu      sync.Mutex
	entries map[string]*MethodRef
}

func NewMethodPool() *MethodPool {
	return &MethodPool{entries: make(map[string]*MethodRef)}
}

func (p *MethodPool) Make(owner, name, ret string, params []string) *MethodRef {
	key := owner + "." + name + ":" + ret
	for _, param := range params {
		key += "," + param
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if ref, ok := p.entries[key]; ok {
		return ref
	}
	ref := &MethodRef{Owner: owner, Name: name, Return: ret, Params: append([]string(nil), params...)}
	p.entries[key] = ref
	return ref
}
