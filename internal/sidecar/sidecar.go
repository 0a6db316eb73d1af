// Package sidecar merges external YAML annotation overlays into a
// loaded program before lowering, so wire metadata can live outside
// the IDL. Overlays carry the same closed vocabulary as inline source
// attributes; inline always wins on conflict.
package sidecar

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/manifold/internal/resolver"
	"github.com/roach88/manifold/internal/syntax"
)

//go:embed overlay_schema.cue
var schemaSource string

// Overlay is one validated annotations file, keyed by fully-qualified
// canonical names.
type Overlay struct {
	Version  string                     `yaml:"version"`
	Types    map[string]*TypeOverlay    `yaml:"types,omitempty"`
	Services map[string]*ServiceOverlay `yaml:"services,omitempty"`
}

// Rename overrides one target's render name.
type Rename struct {
	Name string `yaml:"name"`
}

// TypeOverlay annotates a type, enum or union declaration.
type TypeOverlay struct {
	Proto   *Rename                  `yaml:"proto,omitempty"`
	GraphQL *Rename                  `yaml:"graphql,omitempty"`
	OpenAPI *Rename                  `yaml:"openapi,omitempty"`
	Fields  map[string]*FieldOverlay `yaml:"fields,omitempty"`
}

// FieldOverlay annotates one field by canonical name.
type FieldOverlay struct {
	Proto      *Rename  `yaml:"proto,omitempty"`
	GraphQL    *Rename  `yaml:"graphql,omitempty"`
	OpenAPI    *Rename  `yaml:"openapi,omitempty"`
	Required   *bool    `yaml:"required,omitempty"`
	Default    *string  `yaml:"default,omitempty"`
	Deprecated *string  `yaml:"deprecated,omitempty"`
	Exclude    []string `yaml:"exclude,omitempty"`
	Only       []string `yaml:"only,omitempty"`
}

// ServiceOverlay annotates a service declaration.
type ServiceOverlay struct {
	Proto   *Rename                   `yaml:"proto,omitempty"`
	GraphQL *Rename                   `yaml:"graphql,omitempty"`
	OpenAPI *Rename                   `yaml:"openapi,omitempty"`
	Methods map[string]*MethodOverlay `yaml:"methods,omitempty"`
}

// MethodOverlay annotates one method by canonical name.
type MethodOverlay struct {
	Proto   *Rename      `yaml:"proto,omitempty"`
	GraphQL *Rename      `yaml:"graphql,omitempty"`
	OpenAPI *Rename      `yaml:"openapi,omitempty"`
	Kind    string       `yaml:"kind,omitempty"`
	HTTP    *HTTPOverlay `yaml:"http,omitempty"`
}

// HTTPOverlay carries the REST binding pieces.
type HTTPOverlay struct {
	Method  string `yaml:"method,omitempty"`
	Path    string `yaml:"path,omitempty"`
	Success []int  `yaml:"success,omitempty"`
	Errors  []int  `yaml:"errors,omitempty"`
}

// Load reads and validates one overlay file.
func Load(path string) (*Overlay, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("reading annotations overlay: %w", err)}
	}
	return Parse(path, data)
}

// Parse validates overlay source against the embedded CUE schema and
// decodes it. Validation runs on the CUE side so every violation is
// reported with its YAML position; the typed decode is plain yaml.v3.
func Parse(path string, data []byte) (*Overlay, []error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("overlay_schema.cue")).
		LookupPath(cue.ParsePath("#Overlay"))
	if err := schema.Err(); err != nil {
		return nil, []error{fmt.Errorf("compiling overlay schema: %w", err)}
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return nil, []error{newOverlayError(path, fmt.Sprintf("invalid YAML: %v", err))}
	}
	val := ctx.BuildFile(file)
	if err := val.Err(); err != nil {
		return nil, cueErrors(path, err)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, cueErrors(path, err)
	}

	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, []error{newOverlayError(path, fmt.Sprintf("decoding overlay: %v", err))}
	}
	return &o, nil
}

// LoadOverlays loads and validates overlay files against prog, then
// merges them in argument order; later files win where entries
// overlap.
func LoadOverlays(prog *resolver.Program, paths []string) (*Overlay, []error) {
	merged := &Overlay{}
	var errs []error
	for _, path := range paths {
		o, oerrs := Load(path)
		if len(oerrs) > 0 {
			errs = append(errs, oerrs...)
			continue
		}
		errs = append(errs, Check(prog, o, path)...)
		merged = Merge(merged, o)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return merged, nil
}

// cueErrors flattens a CUE error into one coded error per underlying
// failure, keeping source positions.
func cueErrors(path string, err error) []error {
	var out []error
	for _, e := range cueerrors.Errors(err) {
		oe := &Error{Code: CodeUnknownAnnotation, Message: e.Error(), File: path}
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			oe.Pos = positions[0]
		}
		out = append(out, oe)
	}
	if len(out) == 0 {
		out = append(out, newOverlayError(path, err.Error()))
	}
	return out
}

// Check verifies that every overlay entry names something the loaded
// program declares. Reported under the overlay's own file so merged
// application stays attributable.
func Check(prog *resolver.Program, o *Overlay, path string) []error {
	var errs []error
	report := func(format string, args ...any) {
		errs = append(errs, newOverlayError(path, fmt.Sprintf(format, args...)))
	}

	for _, fqn := range sortedKeys(o.Types) {
		to := o.Types[fqn]
		sym, ok := prog.Table.Lookup(prog.RootNamespace(), fqn)
		if !ok {
			report("overlay names unknown declaration %q", fqn)
			continue
		}
		td, isType := sym.Decl.(*syntax.TypeDecl)
		if _, isSvc := sym.Decl.(*syntax.ServiceDecl); isSvc {
			report("%s is a service; move its entry under services", sym.FQN())
			continue
		}
		if len(to.Fields) > 0 && !isType {
			report("%s has no fields", sym.FQN())
			continue
		}
		for _, fname := range sortedKeys(to.Fields) {
			fo := to.Fields[fname]
			if findField(td, fname) == nil {
				report("overlay names unknown field %s.%s", sym.FQN(), fname)
				continue
			}
			if len(fo.Exclude) > 0 && len(fo.Only) > 0 {
				report("field %s.%s sets both exclude and only", sym.FQN(), fname)
			}
		}
	}

	for _, fqn := range sortedKeys(o.Services) {
		so := o.Services[fqn]
		sym, ok := prog.Table.Lookup(prog.RootNamespace(), fqn)
		if !ok {
			report("overlay names unknown service %q", fqn)
			continue
		}
		sd, isSvc := sym.Decl.(*syntax.ServiceDecl)
		if !isSvc {
			report("%s is not a service", sym.FQN())
			continue
		}
		for _, mname := range sortedKeys(so.Methods) {
			if findMethod(sd, mname) == nil {
				report("overlay names unknown method %s.%s", sym.FQN(), mname)
			}
		}
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func findField(d *syntax.TypeDecl, name string) *syntax.Field {
	if d == nil {
		return nil
	}
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func findMethod(d *syntax.ServiceDecl, name string) *syntax.Method {
	for _, m := range d.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}
