// Package diff compares two compiled schemas and classifies every
// change by how it lands on existing clients: breaking, dangerous or
// compatible.
package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/manifold/internal/ir"
)

// Severity ranks a change's impact on deployed clients.
type Severity string

const (
	Breaking   Severity = "breaking"
	Dangerous  Severity = "dangerous"
	Compatible Severity = "compatible"
)

// Kind identifies what changed.
type Kind string

const (
	KindTypeRemoved           Kind = "type_removed"
	KindTypeAdded             Kind = "type_added"
	KindEnumRemoved           Kind = "enum_removed"
	KindEnumAdded             Kind = "enum_added"
	KindUnionRemoved          Kind = "union_removed"
	KindUnionAdded            Kind = "union_added"
	KindServiceRemoved        Kind = "service_removed"
	KindServiceAdded          Kind = "service_added"
	KindFieldRemoved          Kind = "field_removed"
	KindFieldAdded            Kind = "field_added"
	KindFieldAddedRequired    Kind = "field_added_required"
	KindFieldTypeChanged      Kind = "field_type_changed"
	KindFieldNumberChanged    Kind = "field_number_changed"
	KindFieldMadeRequired     Kind = "field_made_required"
	KindFieldMadeOptional     Kind = "field_made_optional"
	KindFieldDeprecated       Kind = "field_deprecated"
	KindFieldUndeprecated     Kind = "field_undeprecated"
	KindDefaultRemoved        Kind = "default_removed"
	KindDefaultChanged        Kind = "default_changed"
	KindEnumValueRemoved      Kind = "enum_value_removed"
	KindEnumValueAdded        Kind = "enum_value_added"
	KindEnumValueNumChanged   Kind = "enum_value_number_changed"
	KindUnionOptionRemoved    Kind = "union_option_removed"
	KindUnionOptionAdded      Kind = "union_option_added"
	KindMethodRemoved         Kind = "method_removed"
	KindMethodAdded           Kind = "method_added"
	KindMethodInputChanged    Kind = "method_input_changed"
	KindMethodOutputChanged   Kind = "method_output_changed"
	KindMethodStreamChanged   Kind = "method_stream_changed"
	KindMethodKindChanged     Kind = "method_kind_changed"
	KindHTTPBindingChanged    Kind = "http_binding_changed"
	KindHTTPStatusSetChanged  Kind = "http_status_set_changed"
	KindDocChanged            Kind = "doc_changed"
)

// Change is one detected difference between the base and head schemas.
type Change struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
	Old      string   `json:"old,omitempty"`
	New      string   `json:"new,omitempty"`
}

// Report is every change between two schemas, in a deterministic
// order: base declarations in source order first (removals and
// modifications), then head-only declarations in source order.
type Report struct {
	Changes    []Change `json:"changes"`
	Breaking   int      `json:"breaking"`
	Dangerous  int      `json:"dangerous"`
	Compatible int      `json:"compatible"`
}

// HasBreaking reports whether any breaking change was found.
func (r *Report) HasBreaking() bool { return r.Breaking > 0 }

// Empty reports whether the schemas are equivalent.
func (r *Report) Empty() bool { return len(r.Changes) == 0 }

// BySeverity returns the changes of one severity, in detection order.
func (r *Report) BySeverity(sev Severity) []Change {
	var out []Change
	for _, c := range r.Changes {
		if c.Severity == sev {
			out = append(out, c)
		}
	}
	return out
}

// Compare diffs head against base.
func Compare(base, head *ir.Schema) *Report {
	d := &differ{}
	d.compareTypes(base.Types, head.Types)
	d.compareEnums(base.Enums, head.Enums)
	d.compareUnions(base.Unions, head.Unions)
	d.compareServices(base.Services, head.Services)

	report := &Report{Changes: d.changes}
	for _, c := range d.changes {
		switch c.Severity {
		case Breaking:
			report.Breaking++
		case Dangerous:
			report.Dangerous++
		case Compatible:
			report.Compatible++
		}
	}
	return report
}

type differ struct {
	changes []Change
}

func (d *differ) add(kind Kind, sev Severity, path, message, old, new string) {
	d.changes = append(d.changes, Change{
		Kind: kind, Severity: sev, Path: path, Message: message, Old: old, New: new,
	})
}

func (d *differ) compareTypes(base, head []*ir.Type) {
	baseByFQN := map[string]*ir.Type{}
	headByFQN := map[string]*ir.Type{}
	for _, t := range base {
		baseByFQN[t.FQN()] = t
	}
	for _, t := range head {
		headByFQN[t.FQN()] = t
	}

	for _, bt := range base {
		ht, ok := headByFQN[bt.FQN()]
		if !ok {
			d.add(KindTypeRemoved, Breaking, bt.FQN(), "type removed", "", "")
			continue
		}
		d.compareFields(bt, ht)
		d.compareDoc(bt.FQN(), bt.Doc, ht.Doc)
	}
	for _, ht := range head {
		if _, ok := baseByFQN[ht.FQN()]; !ok {
			d.add(KindTypeAdded, Compatible, ht.FQN(), "type added", "", "")
		}
	}
}

func (d *differ) compareFields(bt, ht *ir.Type) {
	baseByName := map[string]*ir.Field{}
	headByName := map[string]*ir.Field{}
	for _, f := range bt.Fields {
		baseByName[f.Name] = f
	}
	for _, f := range ht.Fields {
		headByName[f.Name] = f
	}

	for _, bf := range bt.Fields {
		path := bt.FQN() + "." + bf.Name
		hf, ok := headByName[bf.Name]
		if !ok {
			d.add(KindFieldRemoved, Breaking, path, "field removed", "", "")
			continue
		}
		d.compareField(path, bf, hf)
	}
	for _, hf := range ht.Fields {
		if _, ok := baseByName[hf.Name]; ok {
			continue
		}
		path := ht.FQN() + "." + hf.Name
		if effectiveRequired(hf) {
			d.add(KindFieldAddedRequired, Breaking, path,
				"required field added, existing writers omit it", "", "")
		} else {
			d.add(KindFieldAdded, Compatible, path, "field added", "", "")
		}
	}
}

func (d *differ) compareField(path string, bf, hf *ir.Field) {
	if bt, ht := FormatRef(bf.Type), FormatRef(hf.Type); bt != ht {
		d.add(KindFieldTypeChanged, Breaking, path, "field type changed", bt, ht)
	}
	if bf.Number != hf.Number {
		d.add(KindFieldNumberChanged, Breaking, path, "field number changed",
			strconv.Itoa(bf.Number), strconv.Itoa(hf.Number))
	}

	brequired, hrequired := effectiveRequired(bf), effectiveRequired(hf)
	if !brequired && hrequired {
		d.add(KindFieldMadeRequired, Breaking, path, "field made required", "optional", "required")
	} else if brequired && !hrequired {
		d.add(KindFieldMadeOptional, Dangerous, path,
			"field made optional, clients may stop sending it", "required", "optional")
	}

	switch {
	case bf.Default != "" && hf.Default == "":
		d.add(KindDefaultRemoved, Dangerous, path, "default value removed", bf.Default, "")
	case bf.Default != hf.Default:
		d.add(KindDefaultChanged, Compatible, path, "default value changed", bf.Default, hf.Default)
	}

	if !bf.Deprecated && hf.Deprecated {
		d.add(KindFieldDeprecated, Compatible, path, "field deprecated", "", hf.DeprecationNote)
	} else if bf.Deprecated && !hf.Deprecated {
		d.add(KindFieldUndeprecated, Compatible, path, "field no longer deprecated", "", "")
	}

	d.compareDoc(path, bf.Doc, hf.Doc)
}

func (d *differ) compareEnums(base, head []*ir.Enum) {
	baseByFQN := map[string]*ir.Enum{}
	headByFQN := map[string]*ir.Enum{}
	for _, e := range base {
		baseByFQN[e.FQN()] = e
	}
	for _, e := range head {
		headByFQN[e.FQN()] = e
	}

	for _, be := range base {
		he, ok := headByFQN[be.FQN()]
		if !ok {
			d.add(KindEnumRemoved, Breaking, be.FQN(), "enum removed", "", "")
			continue
		}
		d.compareEnumValues(be, he)
		d.compareDoc(be.FQN(), be.Doc, he.Doc)
	}
	for _, he := range head {
		if _, ok := baseByFQN[he.FQN()]; !ok {
			d.add(KindEnumAdded, Compatible, he.FQN(), "enum added", "", "")
		}
	}
}

func (d *differ) compareEnumValues(be, he *ir.Enum) {
	baseByName := map[string]*ir.EnumValue{}
	headByName := map[string]*ir.EnumValue{}
	for _, v := range be.Values {
		baseByName[v.Name] = v
	}
	for _, v := range he.Values {
		headByName[v.Name] = v
	}

	for _, bv := range be.Values {
		path := be.FQN() + "." + bv.Name
		hv, ok := headByName[bv.Name]
		if !ok {
			d.add(KindEnumValueRemoved, Breaking, path, "enum value removed", "", "")
			continue
		}
		if bv.Number != hv.Number {
			d.add(KindEnumValueNumChanged, Breaking, path, "enum value number changed",
				strconv.Itoa(bv.Number), strconv.Itoa(hv.Number))
		}
		d.compareDoc(path, bv.Doc, hv.Doc)
	}
	for _, hv := range he.Values {
		if _, ok := baseByName[hv.Name]; !ok {
			d.add(KindEnumValueAdded, Compatible, he.FQN()+"."+hv.Name, "enum value added", "", "")
		}
	}
}

func (d *differ) compareUnions(base, head []*ir.Union) {
	baseByFQN := map[string]*ir.Union{}
	headByFQN := map[string]*ir.Union{}
	for _, u := range base {
		baseByFQN[u.FQN()] = u
	}
	for _, u := range head {
		headByFQN[u.FQN()] = u
	}

	for _, bu := range base {
		hu, ok := headByFQN[bu.FQN()]
		if !ok {
			d.add(KindUnionRemoved, Breaking, bu.FQN(), "union removed", "", "")
			continue
		}
		headOpts := map[string]bool{}
		for _, opt := range hu.Options {
			headOpts[opt] = true
		}
		baseOpts := map[string]bool{}
		for _, opt := range bu.Options {
			baseOpts[opt] = true
		}
		for _, opt := range bu.Options {
			if !headOpts[opt] {
				d.add(KindUnionOptionRemoved, Breaking, bu.FQN(), "union option removed", opt, "")
			}
		}
		for _, opt := range hu.Options {
			if !baseOpts[opt] {
				d.add(KindUnionOptionAdded, Compatible, hu.FQN(), "union option added", "", opt)
			}
		}
		d.compareDoc(bu.FQN(), bu.Doc, hu.Doc)
	}
	for _, hu := range head {
		if _, ok := baseByFQN[hu.FQN()]; !ok {
			d.add(KindUnionAdded, Compatible, hu.FQN(), "union added", "", "")
		}
	}
}

func (d *differ) compareServices(base, head []*ir.Service) {
	baseByFQN := map[string]*ir.Service{}
	headByFQN := map[string]*ir.Service{}
	for _, s := range base {
		baseByFQN[s.FQN()] = s
	}
	for _, s := range head {
		headByFQN[s.FQN()] = s
	}

	for _, bs := range base {
		hs, ok := headByFQN[bs.FQN()]
		if !ok {
			d.add(KindServiceRemoved, Breaking, bs.FQN(), "service removed", "", "")
			continue
		}
		d.compareMethods(bs, hs)
		d.compareDoc(bs.FQN(), bs.Doc, hs.Doc)
	}
	for _, hs := range head {
		if _, ok := baseByFQN[hs.FQN()]; !ok {
			d.add(KindServiceAdded, Compatible, hs.FQN(), "service added", "", "")
		}
	}
}

func (d *differ) compareMethods(bs, hs *ir.Service) {
	baseByName := map[string]*ir.Method{}
	headByName := map[string]*ir.Method{}
	for _, m := range bs.Methods {
		baseByName[m.Name] = m
	}
	for _, m := range hs.Methods {
		headByName[m.Name] = m
	}

	for _, bm := range bs.Methods {
		path := bs.FQN() + "." + bm.Name
		hm, ok := headByName[bm.Name]
		if !ok {
			d.add(KindMethodRemoved, Breaking, path, "method removed", "", "")
			continue
		}
		d.compareMethod(path, bm, hm)
	}
	for _, hm := range hs.Methods {
		if _, ok := baseByName[hm.Name]; !ok {
			d.add(KindMethodAdded, Compatible, hs.FQN()+"."+hm.Name, "method added", "", "")
		}
	}
}

func (d *differ) compareMethod(path string, bm, hm *ir.Method) {
	if bm.Input != hm.Input {
		d.add(KindMethodInputChanged, Breaking, path, "method input type changed", bm.Input, hm.Input)
	}
	if bm.Output != hm.Output {
		d.add(KindMethodOutputChanged, Breaking, path, "method output type changed", bm.Output, hm.Output)
	}
	if bm.InputStream != hm.InputStream || bm.OutputStream != hm.OutputStream {
		d.add(KindMethodStreamChanged, Breaking, path, "method streaming changed",
			formatStreams(bm), formatStreams(hm))
	}
	if bm.Kind != hm.Kind {
		d.add(KindMethodKindChanged, Breaking, path, "method root placement changed",
			string(bm.Kind), string(hm.Kind))
	}
	if bm.HTTP.Method != hm.HTTP.Method || bm.HTTP.Path != hm.HTTP.Path {
		d.add(KindHTTPBindingChanged, Breaking, path, "http binding changed",
			bm.HTTP.Method+" "+bm.HTTP.Path, hm.HTTP.Method+" "+hm.HTTP.Path)
	}
	if !intsEqual(bm.HTTP.Success, hm.HTTP.Success) || !intsEqual(bm.HTTP.Errors, hm.HTTP.Errors) {
		d.add(KindHTTPStatusSetChanged, Dangerous, path, "declared status codes changed",
			formatCodes(bm.HTTP), formatCodes(hm.HTTP))
	}
	d.compareDoc(path, bm.Doc, hm.Doc)
}

func (d *differ) compareDoc(path string, base, head []ir.DocLine) {
	if docText(base) != docText(head) {
		d.add(KindDocChanged, Compatible, path, "documentation changed", "", "")
	}
}

func docText(lines []ir.DocLine) string {
	var sb strings.Builder
	for _, ln := range lines {
		sb.WriteString(ln.Target)
		sb.WriteByte(':')
		sb.WriteString(ln.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// effectiveRequired is the requiredness clients observe: @required
// unless the optional marker loosens it again.
func effectiveRequired(f *ir.Field) bool { return f.Required && !f.Optional }

// FormatRef renders a type reference the way the source language
// writes it.
func FormatRef(ref *ir.TypeRef) string {
	switch ref.Kind {
	case ir.RefScalar:
		return string(ref.Scalar)
	case ir.RefNamed:
		return ref.Named
	case ir.RefArray:
		return "[]" + FormatRef(ref.Elem)
	case ir.RefMap:
		return fmt.Sprintf("map<%s, %s>", ref.Key, FormatRef(ref.Value))
	}
	return ""
}

func formatStreams(m *ir.Method) string {
	in, out := "unary", "unary"
	if m.InputStream {
		in = "stream"
	}
	if m.OutputStream {
		out = "stream"
	}
	return in + " -> " + out
}

func formatCodes(h ir.HTTPRule) string {
	parts := make([]string, 0, len(h.Success)+len(h.Errors))
	for _, c := range h.Success {
		parts = append(parts, strconv.Itoa(c))
	}
	for _, c := range h.Errors {
		parts = append(parts, strconv.Itoa(c))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
