package ir

// Target identifies one emission backend.
type Target string

const (
	TargetProto   Target = "proto"
	TargetGraphQL Target = "graphql"
	TargetOpenAPI Target = "openapi"
)

// AllTargets lists every backend in emission order.
var AllTargets = []Target{TargetProto, TargetGraphQL, TargetOpenAPI}

// Scalar is one of the built-in primitive types.
type Scalar string

const (
	ScalarString    Scalar = "string"
	ScalarInt32     Scalar = "int32"
	ScalarInt64     Scalar = "int64"
	ScalarFloat32   Scalar = "float32"
	ScalarFloat64   Scalar = "float64"
	ScalarBool      Scalar = "bool"
	ScalarTimestamp Scalar = "timestamp"
	ScalarBytes     Scalar = "bytes"
)

var scalarNames = map[string]Scalar{
	"string":    ScalarString,
	"int32":     ScalarInt32,
	"int64":     ScalarInt64,
	"float32":   ScalarFloat32,
	"float64":   ScalarFloat64,
	"bool":      ScalarBool,
	"timestamp": ScalarTimestamp,
	"bytes":     ScalarBytes,
}

// ScalarByName maps a source-level type name to its scalar, if any.
func ScalarByName(name string) (Scalar, bool) {
	s, ok := scalarNames[name]
	return s, ok
}

// RefKind distinguishes the four type reference shapes.
type RefKind string

const (
	RefScalar RefKind = "scalar"
	RefNamed  RefKind = "named"
	RefArray  RefKind = "array"
	RefMap    RefKind = "map"
)

// TypeRef is a resolved reference to a scalar, declaration, array or
// map. Named references carry the namespace-qualified name.
type TypeRef struct {
	Kind   RefKind  `json:"kind"`
	Scalar Scalar   `json:"scalar,omitempty"`
	Named  string   `json:"named,omitempty"`
	Elem   *TypeRef `json:"elem,omitempty"`
	Key    Scalar   `json:"key,omitempty"`
	Value  *TypeRef `json:"value,omitempty"`
}

// ScalarRef returns a reference to a primitive type.
func ScalarRef(s Scalar) *TypeRef { return &TypeRef{Kind: RefScalar, Scalar: s} }

// NamedRef returns a reference to a declaration by qualified name.
func NamedRef(fqn string) *TypeRef { return &TypeRef{Kind: RefNamed, Named: fqn} }

// ArrayRef returns a reference to a list of elem.
func ArrayRef(elem *TypeRef) *TypeRef { return &TypeRef{Kind: RefArray, Elem: elem} }

// MapRef returns a reference to a map with scalar keys.
func MapRef(key Scalar, value *TypeRef) *TypeRef {
	return &TypeRef{Kind: RefMap, Key: key, Value: value}
}

// Names carries the rendered identifier for each target, annotation
// overrides already applied.
type Names struct {
	Proto   string `json:"proto"`
	GraphQL string `json:"graphql"`
	OpenAPI string `json:"openapi"`
}

// For returns the name used by the given target.
func (n Names) For(t Target) string {
	switch t {
	case TargetProto:
		return n.Proto
	case TargetGraphQL:
		return n.GraphQL
	case TargetOpenAPI:
		return n.OpenAPI
	}
	return ""
}

// DocLine is one documentation line, optionally scoped to a single
// target.
type DocLine struct {
	Target string `json:"target,omitempty"` // empty applies to all targets
	Text   string `json:"text"`
}

// DocFor joins the lines that apply to target.
func DocFor(lines []DocLine, target Target) string {
	var out string
	for _, ln := range lines {
		if ln.Target != "" && ln.Target != string(target) {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += ln.Text
	}
	return out
}

// EmitsTo reports whether a declaration carrying the given exclusion
// list is emitted for target.
func EmitsTo(exclude []Target, target Target) bool {
	for _, t := range exclude {
		if t == target {
			return false
		}
	}
	return true
}

// Schema is the complete compiled schema. Slices preserve source
// declaration order; emitters never reorder.
type Schema struct {
	IRVersion     string     `json:"ir_version"`
	RootNamespace string     `json:"root_namespace"`
	Version       string     `json:"version"`
	Namespaces    []string   `json:"namespaces"`
	Types         []*Type    `json:"types"`
	Enums         []*Enum    `json:"enums"`
	Unions        []*Union   `json:"unions"`
	Services      []*Service `json:"services"`
}

// Type is a message type with numbered fields.
type Type struct {
	Name      string    `json:"name"` // unqualified
	Namespace string    `json:"namespace"`
	Names     Names     `json:"names"`
	Fields    []*Field  `json:"fields"`
	Doc       []DocLine `json:"doc,omitempty"`
}

// FQN returns the namespace-qualified name.
func (t *Type) FQN() string { return t.Namespace + "." + t.Name }

// Field is one field of a message type.
type Field struct {
	Name            string    `json:"name"` // as declared
	Names           Names     `json:"names"`
	Type            *TypeRef  `json:"type"`
	Number          int       `json:"number"`
	Optional        bool      `json:"optional"`
	Required        bool      `json:"required"`
	Default         string    `json:"default,omitempty"`
	Deprecated      bool      `json:"deprecated,omitempty"`
	DeprecationNote string    `json:"deprecation_note,omitempty"`
	Doc             []DocLine `json:"doc,omitempty"`
	Exclude         []Target  `json:"exclude,omitempty"`
}

// Enum is a closed set of named constants.
type Enum struct {
	Name      string       `json:"name"`
	Namespace string       `json:"namespace"`
	Names     Names        `json:"names"`
	Values    []*EnumValue `json:"values"`
	Doc       []DocLine    `json:"doc,omitempty"`
}

// FQN returns the namespace-qualified name.
func (e *Enum) FQN() string { return e.Namespace + "." + e.Name }

// EnumValue is one enum constant with its resolved number.
type EnumValue struct {
	Name   string    `json:"name"`
	Number int       `json:"number"`
	Doc    []DocLine `json:"doc,omitempty"`
}

// Union is a tagged choice between message types.
type Union struct {
	Name      string    `json:"name"`
	Namespace string    `json:"namespace"`
	Names     Names     `json:"names"`
	Options   []string  `json:"options"` // qualified type names, declaration order
	Doc       []DocLine `json:"doc,omitempty"`
}

// FQN returns the namespace-qualified name.
func (u *Union) FQN() string { return u.Namespace + "." + u.Name }

// Service is a named group of methods.
type Service struct {
	Name      string    `json:"name"`
	Namespace string    `json:"namespace"`
	Names     Names     `json:"names"`
	Methods   []*Method `json:"methods"`
	Doc       []DocLine `json:"doc,omitempty"`
}

// FQN returns the namespace-qualified name.
func (s *Service) FQN() string { return s.Namespace + "." + s.Name }

// MethodKind classifies a method for GraphQL root placement.
type MethodKind string

const (
	MethodQuery        MethodKind = "query"
	MethodMutation     MethodKind = "mutation"
	MethodSubscription MethodKind = "subscription"
)

// Method is one rpc with its resolved request and response types.
type Method struct {
	Name         string     `json:"name"`
	Names        Names      `json:"names"`
	Input        string     `json:"input"` // qualified request type
	InputStream  bool       `json:"input_stream,omitempty"`
	Output       string     `json:"output"` // qualified response type
	OutputStream bool       `json:"output_stream,omitempty"`
	Kind         MethodKind `json:"kind"`
	HTTP         HTTPRule   `json:"http"`
	Doc          []DocLine  `json:"doc,omitempty"`
}

// HTTPRule is the REST binding for a method. Success is empty when no
// explicit codes were declared; emitters then use 200.
type HTTPRule struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Success []int  `json:"success,omitempty"`
	Errors  []int  `json:"errors,omitempty"`
}

// Index provides qualified-name lookup over a schema's declarations.
type Index struct {
	Types    map[string]*Type
	Enums    map[string]*Enum
	Unions   map[string]*Union
	Services map[string]*Service
}

// NewIndex builds lookup maps over s.
func NewIndex(s *Schema) *Index {
	idx := &Index{
		Types:    make(map[string]*Type, len(s.Types)),
		Enums:    make(map[string]*Enum, len(s.Enums)),
		Unions:   make(map[string]*Union, len(s.Unions)),
		Services: make(map[string]*Service, len(s.Services)),
	}
	for _, t := range s.Types {
		idx.Types[t.FQN()] = t
	}
	for _, e := range s.Enums {
		idx.Enums[e.FQN()] = e
	}
	for _, u := range s.Unions {
		idx.Unions[u.FQN()] = u
	}
	for _, sv := range s.Services {
		idx.Services[sv.FQN()] = sv
	}
	return idx
}

// UsesScalar reports whether any field in the schema references the
// scalar, directly or inside an array or map.
func (s *Schema) UsesScalar(sc Scalar) bool {
	for _, t := range s.Types {
		for _, f := range t.Fields {
			if refUsesScalar(f.Type, sc) {
				return true
			}
		}
	}
	return false
}

func refUsesScalar(ref *TypeRef, sc Scalar) bool {
	if ref == nil {
		return false
	}
	switch ref.Kind {
	case RefScalar:
		return ref.Scalar == sc
	case RefArray:
		return refUsesScalar(ref.Elem, sc)
	case RefMap:
		return ref.Key == sc || refUsesScalar(ref.Value, sc)
	}
	return false
}
