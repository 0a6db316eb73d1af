package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/manifold/internal/syntax"
)

// Symbol is one top-level declaration bound to its namespace.
type Symbol struct {
	Namespace string
	Name      string // unqualified declaration name
	Decl      syntax.Decl
	File      *syntax.File
}

// FQN returns the namespace-qualified name.
func (s *Symbol) FQN() string { return s.Namespace + "." + s.Name }

// Table maps namespace-qualified names to declarations. It is built
// once after loading and never mutated afterwards.
type Table struct {
	root  string
	syms  map[string]*Symbol
	order []*Symbol
}

// BuildTable collects every declaration from files, which must be in
// load order so that symbol order is deterministic. Files without a
// namespace of their own join root. A name declared twice in the same
// namespace is a DUPLICATE_DECLARATION; collect-all mode reports every
// duplicate in one pass.
func BuildTable(files []*syntax.File, root string, mode LoadMode) (*Table, []error) {
	t := &Table{root: root, syms: map[string]*Symbol{}}
	var errs []error
	for _, f := range files {
		ns := FileNamespace(f, root)
		for _, decl := range f.Decls {
			sym := &Symbol{Namespace: ns, Name: decl.DeclName(), Decl: decl, File: f}
			if prev, ok := t.syms[sym.FQN()]; ok {
				errs = append(errs, &Error{
					Code:    CodeDuplicateDecl,
					Message: fmt.Sprintf("%s already declared at %s", sym.FQN(), prev.Decl.DeclPos()),
					Pos:     decl.DeclPos(),
				})
				if mode == LoadModeFailFast {
					return t, errs
				}
				continue
			}
			t.syms[sym.FQN()] = sym
			t.order = append(t.order, sym)
		}
	}
	return t, errs
}

// FileNamespace returns the file's namespace, or root when the file
// declares none.
func FileNamespace(f *syntax.File, root string) string {
	if f.Namespace == "" {
		return root
	}
	return f.Namespace
}

// Lookup resolves a type reference written in fromNS. Unqualified
// names resolve within fromNS first and then in the root namespace;
// dotted names name their namespace explicitly.
func (t *Table) Lookup(fromNS, ref string) (*Symbol, bool) {
	if strings.Contains(ref, ".") {
		s, ok := t.syms[ref]
		return s, ok
	}
	if s, ok := t.syms[fromNS+"."+ref]; ok {
		return s, true
	}
	if fromNS != t.root {
		s, ok := t.syms[t.root+"."+ref]
		return s, ok
	}
	return nil, false
}

// Root returns the root namespace the table was built with.
func (t *Table) Root() string { return t.root }

// Symbols returns every declaration in load order. Callers must not
// modify the returned slice.
func (t *Table) Symbols() []*Symbol { return t.order }

// Namespaces returns the sorted set of namespaces with declarations.
func (t *Table) Namespaces() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range t.order {
		if !seen[s.Namespace] {
			seen[s.Namespace] = true
			out = append(out, s.Namespace)
		}
	}
	sort.Strings(out)
	return out
}
