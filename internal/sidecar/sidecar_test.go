package sidecar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manifold/internal/compiler"
	"github.com/roach88/manifold/internal/ir"
	"github.com/roach88/manifold/internal/resolver"
)

const validOverlay = `version: "1"
types:
  billing.Invoice:
    graphql: {name: BillingInvoice}
    fields:
      id: {required: true}
      note: {exclude: [proto]}
services:
  billing.InvoiceService:
    methods:
      CreateInvoice:
        http: {method: POST, path: /invoices, success: [201]}
`

const billingSource = `namespace billing

type Invoice {
  id: string
  note: string
}

service InvoiceService {
  rpc CreateInvoice(Invoice) returns (Invoice)
}
`

func loadProgram(t *testing.T, src string) *resolver.Program {
	t.Helper()
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.mux")
	require.NoError(t, os.WriteFile(entry, []byte(src), 0o644))
	prog, errs := resolver.Load(entry, resolver.LoadModeCollectAll)
	require.Empty(t, errs)
	return prog
}

func TestParseValidOverlay(t *testing.T) {
	o, errs := Parse("overlay.yaml", []byte(validOverlay))
	require.Empty(t, errs)

	assert.Equal(t, "1", o.Version)
	inv := o.Types["billing.Invoice"]
	require.NotNil(t, inv)
	require.NotNil(t, inv.GraphQL)
	assert.Equal(t, "BillingInvoice", inv.GraphQL.Name)
	require.NotNil(t, inv.Fields["id"].Required)
	assert.True(t, *inv.Fields["id"].Required)
	assert.Equal(t, []string{"proto"}, inv.Fields["note"].Exclude)

	create := o.Services["billing.InvoiceService"].Methods["CreateInvoice"]
	require.NotNil(t, create)
	require.NotNil(t, create.HTTP)
	assert.Equal(t, "POST", create.HTTP.Method)
	assert.Equal(t, "/invoices", create.HTTP.Path)
	assert.Equal(t, []int{201}, create.HTTP.Success)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	src := `version: "1"
frobnicate: true
types:
  billing.Invoice:
    fields:
      id: {sparkle: yes}
`
	_, errs := Parse("overlay.yaml", []byte(src))
	require.NotEmpty(t, errs)

	se, ok := AsError(errs[0])
	require.True(t, ok)
	assert.Equal(t, CodeUnknownAnnotation, se.Code)
	joined := ""
	for _, err := range errs {
		joined += err.Error() + "\n"
	}
	assert.Contains(t, joined, "not allowed")
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"wrong version", "version: \"2\"\n"},
		{"missing version", "types: {}\n"},
		{"bad http method", `version: "1"
services:
  a.B:
    methods:
      M:
        http: {method: FETCH}
`},
		{"relative path", `version: "1"
services:
  a.B:
    methods:
      M:
        http: {path: invoices}
`},
		{"status out of range", `version: "1"
services:
  a.B:
    methods:
      M:
        http: {success: [99]}
`},
		{"bad kind", `version: "1"
services:
  a.B:
    methods:
      M: {kind: resolver}
`},
		{"bad target", `version: "1"
types:
  a.B:
    fields:
      f: {exclude: [thrift]}
`},
		{"empty rename", `version: "1"
types:
  a.B:
    proto: {name: ""}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := Parse("overlay.yaml", []byte(tc.src))
			require.NotEmpty(t, errs)
			se, ok := AsError(errs[0])
			require.True(t, ok)
			assert.Equal(t, CodeUnknownAnnotation, se.Code)
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, errs := Parse("overlay.yaml", []byte("version: \"1\"\n  bad indent: ["))
	require.NotEmpty(t, errs)
	se, ok := AsError(errs[0])
	require.True(t, ok)
	assert.Contains(t, se.Message, "invalid YAML")
}

func TestCheckUnknownNames(t *testing.T) {
	prog := loadProgram(t, billingSource+`
enum Status {
  OPEN = 1
}
`)
	deprecated := "gone"
	o := &Overlay{
		Version: "1",
		Types: map[string]*TypeOverlay{
			"billing.Missing": {Proto: &Rename{Name: "X"}},
			"billing.Invoice": {Fields: map[string]*FieldOverlay{
				"nope": {Deprecated: &deprecated},
			}},
			"billing.Status":         {Fields: map[string]*FieldOverlay{"f": {}}},
			"billing.InvoiceService": {Proto: &Rename{Name: "Svc"}},
		},
		Services: map[string]*ServiceOverlay{
			"billing.Invoice": {},
			"billing.InvoiceService": {Methods: map[string]*MethodOverlay{
				"DeleteInvoice": {},
			}},
		},
	}

	errs := Check(prog, o, "overlay.yaml")
	require.Len(t, errs, 6)

	joined := ""
	for _, err := range errs {
		se, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, "overlay.yaml", se.File)
		joined += err.Error() + "\n"
	}
	assert.Contains(t, joined, `unknown declaration "billing.Missing"`)
	assert.Contains(t, joined, "unknown field billing.Invoice.nope")
	assert.Contains(t, joined, "billing.Status has no fields")
	assert.Contains(t, joined, "billing.InvoiceService is a service")
	assert.Contains(t, joined, "billing.Invoice is not a service")
	assert.Contains(t, joined, "unknown method billing.InvoiceService.DeleteInvoice")
}

func TestCheckExcludeOnlyPair(t *testing.T) {
	prog := loadProgram(t, billingSource)
	o := &Overlay{
		Version: "1",
		Types: map[string]*TypeOverlay{
			"billing.Invoice": {Fields: map[string]*FieldOverlay{
				"note": {Exclude: []string{"proto"}, Only: []string{"graphql"}},
			}},
		},
	}
	errs := Check(prog, o, "overlay.yaml")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "both exclude and only")
}

func TestMergeLaterWins(t *testing.T) {
	first, errs := Parse("a.yaml", []byte(`version: "1"
types:
  billing.Invoice:
    graphql: {name: First}
    fields:
      note: {exclude: [proto]}
services:
  billing.InvoiceService:
    methods:
      CreateInvoice:
        http: {method: POST, path: /first}
`))
	require.Empty(t, errs)
	second, errs := Parse("b.yaml", []byte(`version: "1"
types:
  billing.Invoice:
    graphql: {name: Second}
    fields:
      note: {only: [openapi]}
      id: {required: true}
`))
	require.Empty(t, errs)

	merged := Merge(first, second)
	inv := merged.Types["billing.Invoice"]
	assert.Equal(t, "Second", inv.GraphQL.Name)
	assert.Empty(t, inv.Fields["note"].Exclude, "later only entry replaces the whole exclusion pair")
	assert.Equal(t, []string{"openapi"}, inv.Fields["note"].Only)
	require.NotNil(t, inv.Fields["id"].Required)

	create := merged.Services["billing.InvoiceService"].Methods["CreateInvoice"]
	require.NotNil(t, create, "entries only in the first file survive")
	assert.Equal(t, "/first", create.HTTP.Path)
}

func TestApplyOverlayFlowsIntoBuild(t *testing.T) {
	prog := loadProgram(t, billingSource)
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validOverlay), 0o644))

	o, errs := LoadOverlays(prog, []string{path})
	require.Empty(t, errs)
	Apply(prog, o)

	schema, berrs := compiler.Build(prog, compiler.Options{})
	require.Empty(t, berrs)

	inv := schema.Types[0]
	assert.Equal(t, "BillingInvoice", inv.Names.GraphQL)
	assert.Equal(t, "Invoice", inv.Names.Proto)
	assert.True(t, inv.Fields[0].Required)
	assert.Equal(t, []ir.Target{ir.TargetProto}, inv.Fields[1].Exclude)

	create := schema.Services[0].Methods[0]
	assert.Equal(t, "POST", create.HTTP.Method)
	assert.Equal(t, "/invoices", create.HTTP.Path)
	assert.Equal(t, []int{201}, create.HTTP.Success)
}

func TestApplyInlineWins(t *testing.T) {
	prog := loadProgram(t, `namespace billing

@version("1.0.0")

type Invoice @graphql.name("Inline") {
  id: string @exclude(openapi)
}
`)
	o := &Overlay{
		Version: "1",
		Types: map[string]*TypeOverlay{
			"billing.Invoice": {
				GraphQL: &Rename{Name: "FromOverlay"},
				Fields: map[string]*FieldOverlay{
					"id": {Only: []string{"proto"}},
				},
			},
		},
	}
	require.Empty(t, Check(prog, o, "overlay.yaml"))
	Apply(prog, o)

	schema, errs := compiler.Build(prog, compiler.Options{})
	require.Empty(t, errs)

	inv := schema.Types[0]
	assert.Equal(t, "Inline", inv.Names.GraphQL)
	assert.Equal(t, []ir.Target{ir.TargetOpenAPI}, inv.Fields[0].Exclude,
		"inline exclusion blocks the overlay's only entry")
}
