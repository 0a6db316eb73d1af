package emit

import (
	"fmt"
	"strings"

	"github.com/roach88/manifold/internal/ir"
)

// graphqlScalars maps IR scalars to GraphQL built-ins. Timestamps and
// bytes travel as strings.
var graphqlScalars = map[ir.Scalar]string{
	ir.ScalarString:    "String",
	ir.ScalarInt32:     "Int",
	ir.ScalarInt64:     "Int",
	ir.ScalarFloat32:   "Float",
	ir.ScalarFloat64:   "Float",
	ir.ScalarBool:      "Boolean",
	ir.ScalarTimestamp: "String",
	ir.ScalarBytes:     "String",
}

// GraphQL renders the SDL artifact. A schema with no query methods
// cannot synthesize its Query root and fails with EMPTY_API; every
// successful emission therefore contains one.
func GraphQL(s *ir.Schema) ([]byte, error) {
	methods, queries := 0, 0
	for _, svc := range s.Services {
		for _, m := range svc.Methods {
			methods++
			if m.Kind == ir.MethodQuery {
				queries++
			}
		}
	}
	if methods == 0 {
		return nil, newEmptyAPI(ir.TargetGraphQL, "schema declares no service methods")
	}
	if queries == 0 {
		return nil, newEmptyAPI(ir.TargetGraphQL, "schema declares no query methods, so the Query root would be empty")
	}

	r := &gqlRenderer{
		p:           &printer{},
		idx:         ir.NewIndex(s),
		entryByName: map[string]*gqlEntry{},
	}
	r.forms = gqlAnalyze(s, r.idx)
	r.collectEntries(s)

	r.p.line("# Code generated by manifold. DO NOT EDIT.")
	r.p.blank()
	r.p.line("directive @oneOf on INPUT_OBJECT")

	for _, e := range s.Enums {
		r.p.blank()
		r.enum(e)
	}
	for _, e := range r.entries {
		if e.outForm {
			r.p.blank()
			r.entryDecl(e, false)
		}
		if e.inForm {
			r.p.blank()
			r.entryDecl(e, true)
		}
	}
	for _, t := range s.Types {
		if r.forms.emitInput(t.FQN()) {
			r.p.blank()
			r.typeDecl(t, true)
		}
		if r.forms.emitOutput(t.FQN()) {
			r.p.blank()
			r.typeDecl(t, false)
		}
	}
	for _, u := range s.Unions {
		r.p.blank()
		r.union(u)
		r.p.blank()
		r.unionInput(u)
	}
	r.roots(s)

	return r.p.bytes(), nil
}

// gqlForms records which emission forms each type needs. Types
// reachable from method inputs get an input form, types reachable from
// outputs an output form, and union alternatives always get both so
// the @oneOf input can reference them. Types no method reaches emit as
// plain output types.
type gqlForms struct {
	idx    *ir.Index
	input  map[string]bool
	output map[string]bool
}

func gqlAnalyze(s *ir.Schema, idx *ir.Index) *gqlForms {
	f := &gqlForms{idx: idx, input: map[string]bool{}, output: map[string]bool{}}
	for _, svc := range s.Services {
		for _, m := range svc.Methods {
			f.walk(m.Input, f.input)
			f.walk(m.Output, f.output)
		}
	}
	for _, u := range s.Unions {
		for _, opt := range u.Options {
			f.walk(opt, f.input)
			f.walk(opt, f.output)
		}
	}
	return f
}

func (f *gqlForms) walk(fqn string, set map[string]bool) {
	t, ok := f.idx.Types[fqn]
	if !ok || set[fqn] {
		return
	}
	set[fqn] = true
	for _, fld := range t.Fields {
		if !ir.EmitsTo(fld.Exclude, ir.TargetGraphQL) {
			continue
		}
		for _, named := range namedRefs(fld.Type) {
			f.walk(named, set)
		}
	}
}

// namedRefs returns the declaration names a type reference reaches.
func namedRefs(ref *ir.TypeRef) []string {
	switch ref.Kind {
	case ir.RefNamed:
		return []string{ref.Named}
	case ir.RefArray:
		return namedRefs(ref.Elem)
	case ir.RefMap:
		return namedRefs(ref.Value)
	}
	return nil
}

func (f *gqlForms) emitInput(fqn string) bool  { return f.input[fqn] }
func (f *gqlForms) emitOutput(fqn string) bool { return f.output[fqn] || !f.input[fqn] }

// both reports whether a type emits under two names, so input
// references need the Input suffix to disambiguate.
func (f *gqlForms) both(fqn string) bool { return f.emitInput(fqn) && f.emitOutput(fqn) }

// gqlEntry is one generated key/value helper standing in for a map
// type, deduplicated by its rendered signature.
type gqlEntry struct {
	name    string // "<Key><Value>Entry"
	key     ir.Scalar
	value   *ir.TypeRef
	outForm bool
	inForm  bool
}

type gqlRenderer struct {
	p           *printer
	idx         *ir.Index
	forms       *gqlForms
	entries     []*gqlEntry
	entryByName map[string]*gqlEntry
}

// collectEntries registers every map helper in first-use order before
// any declaration is printed, since helpers emit ahead of the types
// that use them.
func (r *gqlRenderer) collectEntries(s *ir.Schema) {
	for _, t := range s.Types {
		needIn := r.forms.emitInput(t.FQN())
		needOut := r.forms.emitOutput(t.FQN())
		for _, fld := range t.Fields {
			if !ir.EmitsTo(fld.Exclude, ir.TargetGraphQL) || fld.Type.Kind != ir.RefMap {
				continue
			}
			if needOut {
				r.entryName(fld.Type, false)
			}
			if needIn {
				r.entryName(fld.Type, true)
			}
		}
	}
}

// entryName returns the helper name for a map reference, creating the
// entry on first use and marking which forms it must emit in.
func (r *gqlRenderer) entryName(ref *ir.TypeRef, input bool) string {
	name := ir.UpperCamel(graphqlScalars[ref.Key]) + ir.UpperCamel(r.ref(ref.Value, false)) + "Entry"
	e, ok := r.entryByName[name]
	if !ok {
		e = &gqlEntry{name: name, key: ref.Key, value: ref.Value}
		r.entryByName[name] = e
		r.entries = append(r.entries, e)
	}
	if input {
		e.inForm = true
		return name + "Input"
	}
	e.outForm = true
	return name
}

func (r *gqlRenderer) entryDecl(e *gqlEntry, input bool) {
	keyword, name := "type", e.name
	if input {
		keyword, name = "input", e.name+"Input"
	}
	r.p.linef("%s %s {", keyword, name)
	r.p.indent++
	r.p.linef("key: %s!", graphqlScalars[e.key])
	r.p.linef("value: %s!", r.ref(e.value, input))
	r.p.indent--
	r.p.line("}")
}

// ref renders a scalar or named reference in input or output position.
// Input references use the Input form of a type only when both forms
// exist; union references always do, since unions always emit both.
func (r *gqlRenderer) ref(ref *ir.TypeRef, input bool) string {
	switch ref.Kind {
	case ir.RefScalar:
		return graphqlScalars[ref.Scalar]
	case ir.RefNamed:
		if t, ok := r.idx.Types[ref.Named]; ok {
			if input && r.forms.both(ref.Named) {
				return t.Names.GraphQL + "Input"
			}
			return t.Names.GraphQL
		}
		if e, ok := r.idx.Enums[ref.Named]; ok {
			return e.Names.GraphQL
		}
		if u, ok := r.idx.Unions[ref.Named]; ok {
			if input {
				return u.Names.GraphQL + "Input"
			}
			return u.Names.GraphQL
		}
		return ref.Named[strings.LastIndex(ref.Named, ".")+1:]
	}
	return ""
}

// fieldType renders a field's full type: arrays bracket their element,
// maps render as non-null lists of their helper, and ! lands only on
// @required non-optional fields.
func (r *gqlRenderer) fieldType(fld *ir.Field, input bool) string {
	var base string
	switch fld.Type.Kind {
	case ir.RefArray:
		base = "[" + r.ref(fld.Type.Elem, input) + "]"
	case ir.RefMap:
		base = "[" + r.entryName(fld.Type, input) + "!]"
	default:
		base = r.ref(fld.Type, input)
	}
	if fld.Required && !fld.Optional {
		base += "!"
	}
	return base
}

func (r *gqlRenderer) doc(doc []ir.DocLine) {
	text := ir.DocFor(doc, ir.TargetGraphQL)
	if text == "" {
		return
	}
	r.p.linef("%q", strings.ReplaceAll(text, "\n", " "))
}

func (r *gqlRenderer) enum(e *ir.Enum) {
	r.doc(e.Doc)
	r.p.linef("enum %s {", e.Names.GraphQL)
	r.p.indent++
	for _, v := range e.Values {
		r.p.line(v.Name)
	}
	r.p.indent--
	r.p.line("}")
}

func (r *gqlRenderer) typeDecl(t *ir.Type, input bool) {
	r.doc(t.Doc)
	keyword, name := "type", t.Names.GraphQL
	if input {
		keyword = "input"
		if r.forms.both(t.FQN()) {
			name += "Input"
		}
	}
	r.p.linef("%s %s {", keyword, name)
	r.p.indent++
	for _, fld := range t.Fields {
		if !ir.EmitsTo(fld.Exclude, ir.TargetGraphQL) {
			continue
		}
		line := fmt.Sprintf("%s: %s", fld.Names.GraphQL, r.fieldType(fld, input))
		if !input && fld.Deprecated {
			if fld.DeprecationNote != "" {
				line += fmt.Sprintf(" @deprecated(reason: %q)", fld.DeprecationNote)
			} else {
				line += " @deprecated"
			}
		}
		r.p.line(line)
	}
	r.p.indent--
	r.p.line("}")
}

func (r *gqlRenderer) union(u *ir.Union) {
	r.doc(u.Doc)
	opts := make([]string, len(u.Options))
	for i, opt := range u.Options {
		opts[i] = r.ref(ir.NamedRef(opt), false)
	}
	r.p.linef("union %s = %s", u.Names.GraphQL, strings.Join(opts, " | "))
}

// unionInput renders the @oneOf input mirror of a union: one nullable
// field per alternative, exactly one of which may be set.
func (r *gqlRenderer) unionInput(u *ir.Union) {
	r.p.linef("input %sInput @oneOf {", u.Names.GraphQL)
	r.p.indent++
	for _, opt := range u.Options {
		outName := r.ref(ir.NamedRef(opt), false)
		r.p.linef("%s: %s", ir.LowerCamel(outName), r.ref(ir.NamedRef(opt), true))
	}
	r.p.indent--
	r.p.line("}")
}

// roots partitions methods into the synthesized Query, Mutation and
// Subscription types. Mutation and Subscription appear only when a
// method of that kind exists; Query presence is guaranteed by the
// EMPTY_API check.
func (r *gqlRenderer) roots(s *ir.Schema) {
	byKind := map[ir.MethodKind][]string{}
	for _, svc := range s.Services {
		for _, m := range svc.Methods {
			in := r.ref(ir.NamedRef(m.Input), true)
			out := r.ref(ir.NamedRef(m.Output), false)
			field := fmt.Sprintf("%s(input: %s): %s", m.Names.GraphQL, in, out)
			byKind[m.Kind] = append(byKind[m.Kind], field)
		}
	}
	for _, kind := range []ir.MethodKind{ir.MethodQuery, ir.MethodMutation, ir.MethodSubscription} {
		fields := byKind[kind]
		if len(fields) == 0 {
			continue
		}
		r.p.blank()
		r.p.linef("type %s {", rootName(kind))
		r.p.indent++
		for _, f := range fields {
			r.p.line(f)
		}
		r.p.indent--
		r.p.line("}")
	}
}

func rootName(kind ir.MethodKind) string {
	switch kind {
	case ir.MethodMutation:
		return "Mutation"
	case ir.MethodSubscription:
		return "Subscription"
	}
	return "Query"
}
