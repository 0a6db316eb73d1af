package syntax

import "strings"

// File is the parse result for one source file. Declaration order is
// preserved exactly as written; later stages never reorder.
type File struct {
	Path      string
	Namespace string // empty when the file declares no namespace
	Attrs     []*Attr
	Imports   []*Import
	Decls     []Decl
}

// Import is one import statement.
type Import struct {
	Path string
	Pos  Pos
}

// Decl is implemented by the four top-level declaration kinds.
type Decl interface {
	DeclName() string
	DeclPos() Pos
}

// DocLine is one /// line, optionally scoped to a single target by a
// leading @proto, @graphql or @openapi marker.
type DocLine struct {
	Target string // "" applies to all targets
	Text   string
}

// Attr is one @key(args) annotation as written. Validation against
// the closed key registry happens during lowering, not here.
type Attr struct {
	Key  string
	Args []string
	Pos  Pos
}

// TypeDecl is a message type declaration.
type TypeDecl struct {
	Name   string
	Fields []*Field
	Attrs  []*Attr
	Doc    []DocLine
	Pos    Pos
}

func (d *TypeDecl) DeclName() string { return d.Name }
func (d *TypeDecl) DeclPos() Pos     { return d.Pos }

// Field is one field inside a type declaration.
type Field struct {
	Name     string
	Type     *TypeExpr
	Num      int
	HasNum   bool
	Optional bool
	Attrs    []*Attr
	Doc      []DocLine
	Pos      Pos
}

// TypeExprKind distinguishes the three type expression shapes.
type TypeExprKind int

const (
	TypeNamed TypeExprKind = iota
	TypeArray
	TypeMap
)

// TypeExpr is a field or container type as written. Named covers both
// scalars and references; resolution decides which.
type TypeExpr struct {
	Kind  TypeExprKind
	Name  string    // named: possibly qualified
	Elem  *TypeExpr // array element
	Key   string    // map key scalar
	Value *TypeExpr // map value
	Pos   Pos
}

// EnumDecl is an enum declaration.
type EnumDecl struct {
	Name   string
	Values []*EnumValue
	Attrs  []*Attr
	Doc    []DocLine
	Pos    Pos
}

func (d *EnumDecl) DeclName() string { return d.Name }
func (d *EnumDecl) DeclPos() Pos     { return d.Pos }

// EnumValue is one named constant inside an enum.
type EnumValue struct {
	Name   string
	Num    int
	HasNum bool
	Doc    []DocLine
	Pos    Pos
}

// UnionDecl is a tagged-union declaration listing alternative types.
type UnionDecl struct {
	Name   string
	Alts   []string // references, possibly qualified
	AltPos []Pos
	Attrs  []*Attr
	Doc    []DocLine
	Pos    Pos
}

func (d *UnionDecl) DeclName() string { return d.Name }
func (d *UnionDecl) DeclPos() Pos     { return d.Pos }

// ServiceDecl is a service declaration.
type ServiceDecl struct {
	Name    string
	Methods []*Method
	Attrs   []*Attr
	Doc     []DocLine
	Pos     Pos
}

func (d *ServiceDecl) DeclName() string { return d.Name }
func (d *ServiceDecl) DeclPos() Pos     { return d.Pos }

// Method is one rpc inside a service.
type Method struct {
	Name         string
	Input        string
	InputStream  bool
	Output       string
	OutputStream bool
	Attrs        []*Attr
	Doc          []DocLine
	Pos          Pos
}

// Unqualified strips any namespace prefix from a dotted reference.
func Unqualified(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// NamespaceOf returns the namespace prefix of a dotted reference, or
// empty for an unqualified name.
func NamespaceOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return ""
}

// docTargets are the recognized doc comment scope markers.
var docTargets = map[string]bool{
	"proto":   true,
	"graphql": true,
	"openapi": true,
}

// ParseDocLine splits an optional @target marker off a doc line.
func ParseDocLine(text string) DocLine {
	if strings.HasPrefix(text, "@") {
		rest := text[1:]
		target := rest
		body := ""
		if i := strings.IndexByte(rest, ' '); i >= 0 {
			target = rest[:i]
			body = strings.TrimPrefix(rest[i+1:], " ")
		}
		if docTargets[target] {
			return DocLine{Target: target, Text: body}
		}
	}
	return DocLine{Text: text}
}
