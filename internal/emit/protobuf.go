package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/manifold/internal/ir"
)

// protoScalars maps IR scalars to proto3 type names.
var protoScalars = map[ir.Scalar]string{
	ir.ScalarString:    "string",
	ir.ScalarInt32:     "int32",
	ir.ScalarInt64:     "int64",
	ir.ScalarFloat32:   "float",
	ir.ScalarFloat64:   "double",
	ir.ScalarBool:      "bool",
	ir.ScalarTimestamp: "google.protobuf.Timestamp",
	ir.ScalarBytes:     "bytes",
}

// Proto renders the proto3 artifact. Declarations from every namespace
// flatten into one package named after the root namespace, so all type
// references render unqualified; cross-namespace ambiguity is caught
// before emission by the collision check.
func Proto(s *ir.Schema) ([]byte, error) {
	idx := ir.NewIndex(s)
	p := &printer{}

	p.line("// Code generated by manifold. DO NOT EDIT.")
	p.blank()
	p.line(`syntax = "proto3";`)
	p.blank()
	p.linef("package %s;", s.RootNamespace)

	if s.UsesScalar(ir.ScalarTimestamp) {
		p.blank()
		p.line(`import "google/protobuf/timestamp.proto";`)
	}

	for _, e := range s.Enums {
		p.blank()
		protoEnum(p, e)
	}
	for _, t := range s.Types {
		p.blank()
		protoMessage(p, idx, t)
	}
	for _, u := range s.Unions {
		p.blank()
		protoUnion(p, idx, u)
	}
	for _, svc := range s.Services {
		p.blank()
		protoService(p, idx, svc)
	}
	return p.bytes(), nil
}

func protoDoc(p *printer, doc []ir.DocLine) {
	text := ir.DocFor(doc, ir.TargetProto)
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		p.linef("// %s", line)
	}
}

// protoEnum renders an enum, injecting the zero value proto3 requires
// unless a declared constant already claims 0.
func protoEnum(p *printer, e *ir.Enum) {
	protoDoc(p, e.Doc)
	name := e.Names.Proto
	p.linef("enum %s {", name)
	p.indent++
	hasZero := false
	for _, v := range e.Values {
		if v.Number == 0 {
			hasZero = true
		}
	}
	if !hasZero {
		p.linef("%s_UNSPECIFIED = 0;", strings.ToUpper(name))
	}
	for _, v := range e.Values {
		protoDoc(p, v.Doc)
		p.linef("%s = %d;", v.Name, v.Number)
	}
	p.indent--
	p.line("}")
}

func protoMessage(p *printer, idx *ir.Index, t *ir.Type) {
	protoDoc(p, t.Doc)
	p.linef("message %s {", t.Names.Proto)
	p.indent++
	for _, f := range t.Fields {
		if !ir.EmitsTo(f.Exclude, ir.TargetProto) {
			continue
		}
		protoDoc(p, f.Doc)
		p.line(protoField(idx, f))
	}
	p.indent--
	p.line("}")
}

func protoField(idx *ir.Index, f *ir.Field) string {
	var sb strings.Builder
	switch f.Type.Kind {
	case ir.RefArray:
		sb.WriteString("repeated ")
		sb.WriteString(protoRef(idx, f.Type.Elem))
	case ir.RefMap:
		fmt.Fprintf(&sb, "map<%s, %s>", protoScalars[f.Type.Key], protoRef(idx, f.Type.Value))
	default:
		if f.Optional {
			sb.WriteString("optional ")
		}
		sb.WriteString(protoRef(idx, f.Type))
	}
	fmt.Fprintf(&sb, " %s = %d", f.Names.Proto, f.Number)
	if f.Deprecated {
		sb.WriteString(" [deprecated = true]")
	}
	sb.WriteString(";")
	return sb.String()
}

// protoUnion renders a union as a single-oneof message with branches
// numbered from 1 in declaration order.
func protoUnion(p *printer, idx *ir.Index, u *ir.Union) {
	protoDoc(p, u.Doc)
	p.linef("message %s {", u.Names.Proto)
	p.indent++
	p.line("oneof value {")
	p.indent++
	for i, opt := range u.Options {
		name := protoDeclName(idx, opt)
		p.linef("%s %s = %d;", name, ir.LowerCamel(name), i+1)
	}
	p.indent--
	p.line("}")
	p.indent--
	p.line("}")
}

func protoService(p *printer, idx *ir.Index, svc *ir.Service) {
	protoDoc(p, svc.Doc)
	p.linef("service %s {", svc.Names.Proto)
	p.indent++
	for _, m := range svc.Methods {
		protoDoc(p, m.Doc)
		p.line(httpComment(m.HTTP))
		in := protoDeclName(idx, m.Input)
		if m.InputStream {
			in = "stream " + in
		}
		out := protoDeclName(idx, m.Output)
		if m.OutputStream {
			out = "stream " + out
		}
		p.linef("rpc %s(%s) returns (%s);", m.Names.Proto, in, out)
	}
	p.indent--
	p.line("}")
}

// httpComment summarizes a method's REST binding so the proto artifact
// carries the same wire contract the OpenAPI one enforces.
func httpComment(h ir.HTTPRule) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// HTTP: %s %s", h.Method, h.Path)
	if len(h.Success) > 0 {
		fmt.Fprintf(&sb, " (success: %s)", joinCodes(h.Success))
	}
	if len(h.Errors) > 0 {
		fmt.Fprintf(&sb, " (errors: %s)", joinCodes(h.Errors))
	}
	return sb.String()
}

func joinCodes(codes []int) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ", ")
}

func protoRef(idx *ir.Index, ref *ir.TypeRef) string {
	switch ref.Kind {
	case ir.RefScalar:
		return protoScalars[ref.Scalar]
	case ir.RefNamed:
		return protoDeclName(idx, ref.Named)
	}
	return ""
}

func protoDeclName(idx *ir.Index, fqn string) string {
	if t, ok := idx.Types[fqn]; ok {
		return t.Names.Proto
	}
	if e, ok := idx.Enums[fqn]; ok {
		return e.Names.Proto
	}
	if u, ok := idx.Unions[fqn]; ok {
		return u.Names.Proto
	}
	return fqn[strings.LastIndex(fqn, ".")+1:]
}
