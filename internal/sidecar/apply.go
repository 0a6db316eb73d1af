package sidecar

import (
	"strconv"

	"github.com/roach88/manifold/internal/resolver"
	"github.com/roach88/manifold/internal/syntax"
)

// attrGroups ties together annotation keys expressing one concern:
// an inline key blocks every overlay key in its group.
var attrGroups = map[string][]string{
	"exclude": {"exclude", "only"},
	"only":    {"exclude", "only"},
}

// Apply folds a checked overlay into the program's AST by
// synthesizing attributes on the matching declarations. Entries whose
// concern is already annotated inline are skipped, so source
// attributes always win. Entries for names the program lacks are
// ignored here; Check reports them.
func Apply(prog *resolver.Program, o *Overlay) {
	for _, fqn := range sortedKeys(o.Types) {
		to := o.Types[fqn]
		sym, ok := prog.Table.Lookup(prog.RootNamespace(), fqn)
		if !ok {
			continue
		}
		switch d := sym.Decl.(type) {
		case *syntax.TypeDecl:
			d.Attrs = applyRenames(d.Attrs, to.Proto, to.GraphQL, to.OpenAPI)
			for _, fname := range sortedKeys(to.Fields) {
				f := findField(d, fname)
				if f == nil {
					continue
				}
				f.Attrs = applyField(f.Attrs, to.Fields[fname])
			}
		case *syntax.EnumDecl:
			d.Attrs = applyRenames(d.Attrs, to.Proto, to.GraphQL, to.OpenAPI)
		case *syntax.UnionDecl:
			d.Attrs = applyRenames(d.Attrs, to.Proto, to.GraphQL, to.OpenAPI)
		}
	}

	for _, fqn := range sortedKeys(o.Services) {
		so := o.Services[fqn]
		sym, ok := prog.Table.Lookup(prog.RootNamespace(), fqn)
		if !ok {
			continue
		}
		d, isSvc := sym.Decl.(*syntax.ServiceDecl)
		if !isSvc {
			continue
		}
		d.Attrs = applyRenames(d.Attrs, so.Proto, so.GraphQL, so.OpenAPI)
		for _, mname := range sortedKeys(so.Methods) {
			m := findMethod(d, mname)
			if m == nil {
				continue
			}
			m.Attrs = applyMethod(m.Attrs, so.Methods[mname])
		}
	}
}

func hasInline(attrs []*syntax.Attr, key string) bool {
	group := attrGroups[key]
	if group == nil {
		group = []string{key}
	}
	for _, a := range attrs {
		for _, k := range group {
			if a.Key == k {
				return true
			}
		}
	}
	return false
}

func addAttr(attrs []*syntax.Attr, key string, args ...string) []*syntax.Attr {
	if hasInline(attrs, key) {
		return attrs
	}
	return append(attrs, &syntax.Attr{Key: key, Args: args})
}

func applyRenames(attrs []*syntax.Attr, proto, graphql, openapi *Rename) []*syntax.Attr {
	if proto != nil {
		attrs = addAttr(attrs, "proto.name", proto.Name)
	}
	if graphql != nil {
		attrs = addAttr(attrs, "graphql.name", graphql.Name)
	}
	if openapi != nil {
		attrs = addAttr(attrs, "openapi.name", openapi.Name)
	}
	return attrs
}

func applyField(attrs []*syntax.Attr, fo *FieldOverlay) []*syntax.Attr {
	attrs = applyRenames(attrs, fo.Proto, fo.GraphQL, fo.OpenAPI)
	if fo.Required != nil && *fo.Required {
		attrs = addAttr(attrs, "required")
	}
	if fo.Default != nil {
		attrs = addAttr(attrs, "default", *fo.Default)
	}
	if fo.Deprecated != nil {
		if *fo.Deprecated == "" {
			attrs = addAttr(attrs, "deprecated")
		} else {
			attrs = addAttr(attrs, "deprecated", *fo.Deprecated)
		}
	}
	if len(fo.Exclude) > 0 {
		attrs = addAttr(attrs, "exclude", fo.Exclude...)
	}
	if len(fo.Only) > 0 {
		attrs = addAttr(attrs, "only", fo.Only...)
	}
	return attrs
}

func applyMethod(attrs []*syntax.Attr, mo *MethodOverlay) []*syntax.Attr {
	attrs = applyRenames(attrs, mo.Proto, mo.GraphQL, mo.OpenAPI)
	if mo.Kind != "" {
		attrs = addAttr(attrs, "graphql", mo.Kind)
	}
	if mo.HTTP == nil {
		return attrs
	}
	if mo.HTTP.Method != "" {
		attrs = addAttr(attrs, "http.method", mo.HTTP.Method)
	}
	if mo.HTTP.Path != "" {
		attrs = addAttr(attrs, "http.path", mo.HTTP.Path)
	}
	if len(mo.HTTP.Success) > 0 {
		attrs = addAttr(attrs, "http.success", intArgs(mo.HTTP.Success)...)
	}
	if len(mo.HTTP.Errors) > 0 {
		attrs = addAttr(attrs, "http.errors", intArgs(mo.HTTP.Errors)...)
	}
	return attrs
}

func intArgs(nums []int) []string {
	out := make([]string, len(nums))
	for i, n := range nums {
		out[i] = strconv.Itoa(n)
	}
	return out
}
