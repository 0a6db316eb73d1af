// Package compiler lowers a resolved program into the IR schema:
// type checking against the symbol table, annotation validation
// against the closed registry, two-pass field number allocation and
// per-target name rendering.
package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/manifold/internal/ir"
	"github.com/roach88/manifold/internal/resolver"
	"github.com/roach88/manifold/internal/syntax"
)

// DefaultVersion is the schema version when no @version is declared.
const DefaultVersion = "0.0.1"

// Options configure a build.
type Options struct {
	// Floor is the lowest assignable field number. Zero means
	// DefaultFloor.
	Floor int
}

// Build lowers a loaded program into the IR schema. All diagnostics
// are collected across passes; the schema is returned only when there
// are none. Identical input always produces an identical schema.
func Build(prog *resolver.Program, opts Options) (*ir.Schema, []error) {
	floor := opts.Floor
	if floor <= 0 {
		floor = DefaultFloor
	}
	b := &builder{prog: prog, floor: floor}
	schema := b.build()
	if !b.errs.empty() {
		return nil, b.errs.errs
	}
	return schema, nil
}

type builder struct {
	prog  *resolver.Program
	floor int
	errs  errorList
}

func (b *builder) build() *ir.Schema {
	s := &ir.Schema{
		IRVersion:     ir.IRVersion,
		RootNamespace: b.prog.RootNamespace(),
		Version:       DefaultVersion,
		Namespaces:    b.prog.Table.Namespaces(),
	}

	for _, f := range b.prog.Files {
		ann := parseAnnotations(f.Attrs, ctxFile, &b.errs)
		if ann.version != "" && f == b.prog.EntryFile {
			s.Version = ann.version
		}
	}

	for _, sym := range b.prog.Table.Symbols() {
		switch decl := sym.Decl.(type) {
		case *syntax.TypeDecl:
			s.Types = append(s.Types, b.lowerType(sym, decl))
		case *syntax.EnumDecl:
			s.Enums = append(s.Enums, b.lowerEnum(sym, decl))
		case *syntax.UnionDecl:
			s.Unions = append(s.Unions, b.lowerUnion(sym, decl))
		case *syntax.ServiceDecl:
			s.Services = append(s.Services, b.lowerService(sym, decl))
		}
	}
	return s
}

func (b *builder) lowerType(sym *resolver.Symbol, decl *syntax.TypeDecl) *ir.Type {
	ann := parseAnnotations(decl.Attrs, ctxType, &b.errs)
	t := &ir.Type{
		Name:      decl.Name,
		Namespace: sym.Namespace,
		Names:     declNames(decl.Name, ann),
		Doc:       lowerDoc(decl.Doc),
	}

	nums := numberFields(sym.FQN(), decl.Fields, b.floor, &b.errs)
	for i, f := range decl.Fields {
		fann := parseAnnotations(f.Attrs, ctxField, &b.errs)
		t.Fields = append(t.Fields, &ir.Field{
			Name:            f.Name,
			Names:           fieldNames(f.Name, fann),
			Type:            b.lowerTypeExpr(f.Type, sym.Namespace),
			Number:          nums[i],
			Optional:        f.Optional,
			Required:        fann.required,
			Default:         fann.defaultVal,
			Deprecated:      fann.deprecated,
			DeprecationNote: fann.deprecation,
			Doc:             lowerDoc(f.Doc),
			Exclude:         fann.exclude,
		})
	}
	return t
}

func (b *builder) lowerEnum(sym *resolver.Symbol, decl *syntax.EnumDecl) *ir.Enum {
	ann := parseAnnotations(decl.Attrs, ctxEnum, &b.errs)
	e := &ir.Enum{
		Name:      decl.Name,
		Namespace: sym.Namespace,
		Names:     declNames(decl.Name, ann),
		Doc:       lowerDoc(decl.Doc),
	}
	nums := numberEnumValues(sym.FQN(), decl.Values, &b.errs)
	for i, v := range decl.Values {
		e.Values = append(e.Values, &ir.EnumValue{Name: v.Name, Number: nums[i], Doc: lowerDoc(v.Doc)})
	}
	return e
}

func (b *builder) lowerUnion(sym *resolver.Symbol, decl *syntax.UnionDecl) *ir.Union {
	ann := parseAnnotations(decl.Attrs, ctxUnion, &b.errs)
	u := &ir.Union{
		Name:      decl.Name,
		Namespace: sym.Namespace,
		Names:     declNames(decl.Name, ann),
		Doc:       lowerDoc(decl.Doc),
	}

	seen := map[string]bool{}
	for i, alt := range decl.Alts {
		pos := decl.AltPos[i]
		if _, isScalar := ir.ScalarByName(alt); isScalar {
			b.errs.add(newUnsupportedType(fmt.Sprintf("union option %q must be a message type", alt), pos))
			continue
		}
		altSym, ok := b.prog.Table.Lookup(sym.Namespace, alt)
		if !ok {
			b.errs.add(newUnknownType(alt, pos))
			continue
		}
		if _, isType := altSym.Decl.(*syntax.TypeDecl); !isType {
			b.errs.add(newUnsupportedType(fmt.Sprintf("union option %s must be a message type", altSym.FQN()), pos))
			continue
		}
		if seen[altSym.FQN()] {
			b.errs.add(newUnsupportedType(fmt.Sprintf("union option %s appears more than once", altSym.FQN()), pos))
			continue
		}
		seen[altSym.FQN()] = true
		u.Options = append(u.Options, altSym.FQN())
	}
	return u
}

func (b *builder) lowerService(sym *resolver.Symbol, decl *syntax.ServiceDecl) *ir.Service {
	ann := parseAnnotations(decl.Attrs, ctxService, &b.errs)
	svc := &ir.Service{
		Name:      decl.Name,
		Namespace: sym.Namespace,
		Names:     declNames(decl.Name, ann),
		Doc:       lowerDoc(decl.Doc),
	}
	for _, m := range decl.Methods {
		svc.Methods = append(svc.Methods, b.lowerMethod(sym, m))
	}
	return svc
}

func (b *builder) lowerMethod(sym *resolver.Symbol, m *syntax.Method) *ir.Method {
	ann := parseAnnotations(m.Attrs, ctxMethod, &b.errs)
	return &ir.Method{
		Name:         m.Name,
		Names:        methodNames(m.Name, ann),
		Input:        b.messageRef(sym.Namespace, m.Input, "input", m.Pos),
		InputStream:  m.InputStream,
		Output:       b.messageRef(sym.Namespace, m.Output, "output", m.Pos),
		OutputStream: m.OutputStream,
		Kind:         classifyMethod(m, ann),
		HTTP:         httpRule(sym.Name, m, ann),
		Doc:          lowerDoc(m.Doc),
	}
}

// lowerTypeExpr resolves a field type. Containers may hold scalars and
// named types only: proto3 has no syntax for nested repetition, so the
// inner container must be wrapped in a named type.
func (b *builder) lowerTypeExpr(expr *syntax.TypeExpr, fromNS string) *ir.TypeRef {
	switch expr.Kind {
	case syntax.TypeArray:
		if expr.Elem.Kind != syntax.TypeNamed {
			b.errs.add(newUnsupportedType(
				"array elements must be scalar or named types; wrap the inner container in a named type", expr.Pos))
			return nil
		}
		return ir.ArrayRef(b.lowerNamed(expr.Elem, fromNS))
	case syntax.TypeMap:
		key, ok := mapKeyScalar(expr.Key)
		if !ok {
			b.errs.add(newUnsupportedType(
				fmt.Sprintf("map key %q is not supported (want string, int32 or int64)", expr.Key), expr.Pos))
			return nil
		}
		if expr.Value.Kind != syntax.TypeNamed {
			b.errs.add(newUnsupportedType(
				"map values must be scalar or named types; wrap the inner container in a named type", expr.Pos))
			return nil
		}
		return ir.MapRef(key, b.lowerNamed(expr.Value, fromNS))
	default:
		return b.lowerNamed(expr, fromNS)
	}
}

func (b *builder) lowerNamed(expr *syntax.TypeExpr, fromNS string) *ir.TypeRef {
	if sc, ok := ir.ScalarByName(expr.Name); ok {
		return ir.ScalarRef(sc)
	}
	sym, ok := b.prog.Table.Lookup(fromNS, expr.Name)
	if !ok {
		b.errs.add(newUnknownType(expr.Name, expr.Pos))
		return nil
	}
	return ir.NamedRef(sym.FQN())
}

// messageRef resolves a method input or output, which must name a
// message type.
func (b *builder) messageRef(fromNS, ref, role string, pos syntax.Pos) string {
	if _, isScalar := ir.ScalarByName(ref); isScalar {
		b.errs.add(newUnsupportedType(fmt.Sprintf("method %s %q must be a message type", role, ref), pos))
		return ""
	}
	sym, ok := b.prog.Table.Lookup(fromNS, ref)
	if !ok {
		b.errs.add(newUnknownType(ref, pos))
		return ""
	}
	if _, isType := sym.Decl.(*syntax.TypeDecl); !isType {
		b.errs.add(newUnsupportedType(fmt.Sprintf("method %s %s must be a message type", role, sym.FQN()), pos))
		return ""
	}
	return sym.FQN()
}

func mapKeyScalar(name string) (ir.Scalar, bool) {
	switch name {
	case "string":
		return ir.ScalarString, true
	case "int32":
		return ir.ScalarInt32, true
	case "int64":
		return ir.ScalarInt64, true
	}
	return "", false
}

// classifyMethod picks the GraphQL kind: an explicit @graphql wins,
// then streaming output reads as subscription, then Get/List prefixes
// read as queries, everything else mutates.
func classifyMethod(m *syntax.Method, ann *annotations) ir.MethodKind {
	switch {
	case ann.graphqlKind != "":
		return ann.graphqlKind
	case m.OutputStream:
		return ir.MethodSubscription
	case strings.HasPrefix(m.Name, "Get") || strings.HasPrefix(m.Name, "List"):
		return ir.MethodQuery
	default:
		return ir.MethodMutation
	}
}

// httpRule resolves the REST binding: explicit annotations win, the
// Get/List prefix heuristic picks GET, everything else posts. The
// default path is /<service>/<method> lowercased.
func httpRule(serviceName string, m *syntax.Method, ann *annotations) ir.HTTPRule {
	verb := ann.httpMethod
	if verb == "" {
		verb = "POST"
		if strings.HasPrefix(m.Name, "Get") || strings.HasPrefix(m.Name, "List") {
			verb = "GET"
		}
	}
	path := ann.httpPath
	if path == "" {
		path = "/" + strings.ToLower(serviceName) + "/" + strings.ToLower(m.Name)
	}
	return ir.HTTPRule{Method: verb, Path: path, Success: ann.httpSuccess, Errors: ann.httpErrors}
}

func lowerDoc(lines []syntax.DocLine) []ir.DocLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]ir.DocLine, len(lines))
	for i, ln := range lines {
		out[i] = ir.DocLine{Target: ln.Target, Text: ln.Text}
	}
	return out
}
