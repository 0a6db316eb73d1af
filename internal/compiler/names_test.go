package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manifold/internal/ir"
)

func noAnn() *annotations { return &annotations{names: map[ir.Target]string{}} }

func TestFieldNamesRendering(t *testing.T) {
	names := fieldNames("invoice_id", noAnn())
	assert.Equal(t, "invoice_id", names.Proto)
	assert.Equal(t, "invoiceId", names.GraphQL)
	assert.Equal(t, "invoice_id", names.OpenAPI)
}

func TestMethodNamesRendering(t *testing.T) {
	names := methodNames("CreateInvoice", noAnn())
	assert.Equal(t, "CreateInvoice", names.Proto)
	assert.Equal(t, "createInvoice", names.GraphQL)
	assert.Equal(t, "createInvoice", names.OpenAPI)
}

func sameNames(name string) ir.Names {
	return ir.Names{Proto: name, GraphQL: name, OpenAPI: name}
}

func namedType(ns, name string, fields ...*ir.Field) *ir.Type {
	return &ir.Type{Name: name, Namespace: ns, Names: sameNames(name), Fields: fields}
}

func TestCheckCollisionsClean(t *testing.T) {
	s := &ir.Schema{
		Types: []*ir.Type{
			namedType("api", "Invoice",
				&ir.Field{Name: "id", Names: sameNames("id"), Number: 1},
				&ir.Field{Name: "total", Names: sameNames("total"), Number: 2},
			),
			namedType("api", "Customer"),
		},
	}
	assert.Empty(t, CheckCollisions(s))
}

func TestCheckCollisionsPerTargetIsolation(t *testing.T) {
	// Two types render apart everywhere except GraphQL, where an
	// override makes them collide. Only GraphQL may fail.
	a := namedType("api", "Invoice")
	b := namedType("billing", "Bill")
	b.Names.GraphQL = "Invoice"
	s := &ir.Schema{Types: []*ir.Type{a, b}}

	got := CheckCollisions(s)
	require.Len(t, got, 1)
	require.Len(t, got[ir.TargetGraphQL], 1)

	ce, ok := AsError(got[ir.TargetGraphQL][0])
	require.True(t, ok)
	assert.Equal(t, CodeNameCollision, ce.Code)
	assert.Contains(t, ce.Message, "api.Invoice")
	assert.Contains(t, ce.Message, "billing.Bill")
	assert.Contains(t, ce.Message, `"Invoice"`)
}

func TestCheckCollisionsCrossNamespaceFlattening(t *testing.T) {
	// Same unqualified name in two namespaces collides in every
	// target once flattened.
	s := &ir.Schema{Types: []*ir.Type{
		namedType("api", "Event"),
		namedType("audit", "Event"),
	}}
	got := CheckCollisions(s)
	require.Len(t, got, 3)
	for _, target := range ir.AllTargets {
		require.Len(t, got[target], 1, "target %s", target)
	}
}

func TestCheckCollisionsServiceProtoOnly(t *testing.T) {
	// Service names surface only in proto, so a service sharing a
	// type's name breaks proto alone.
	s := &ir.Schema{
		Types: []*ir.Type{namedType("api", "Billing")},
		Services: []*ir.Service{
			{Name: "Billing", Namespace: "api", Names: sameNames("Billing")},
		},
	}
	got := CheckCollisions(s)
	require.Len(t, got, 1)
	require.Len(t, got[ir.TargetProto], 1)
}

func TestCheckCollisionsGraphQLRoot(t *testing.T) {
	s := &ir.Schema{Types: []*ir.Type{namedType("api", "Query")}}
	got := CheckCollisions(s)
	require.Len(t, got, 1)
	require.Len(t, got[ir.TargetGraphQL], 1)
	assert.Contains(t, got[ir.TargetGraphQL][0].Error(), "generated Query root")
}

func TestCheckCollisionsMutationRootNeedsMutations(t *testing.T) {
	mutation := namedType("api", "Mutation")
	s := &ir.Schema{Types: []*ir.Type{mutation}}
	assert.Empty(t, CheckCollisions(s), "no mutations declared, no Mutation root generated")

	s.Services = []*ir.Service{{
		Name: "Api", Namespace: "api", Names: sameNames("Api"),
		Methods: []*ir.Method{{
			Name: "CreateThing", Names: sameNames("createThing"),
			Kind: ir.MethodMutation,
			HTTP: ir.HTTPRule{Method: "POST", Path: "/api/creatething"},
		}},
	}}
	got := CheckCollisions(s)
	require.Len(t, got[ir.TargetGraphQL], 1)
}

func TestCheckCollisionsFieldsRespectExclusion(t *testing.T) {
	// Both fields render as "state" in GraphQL, but one is excluded
	// there, so only the targets where both appear collide.
	s := &ir.Schema{Types: []*ir.Type{
		namedType("api", "Order",
			&ir.Field{Name: "state", Names: sameNames("state"), Number: 1},
			&ir.Field{
				Name:    "state_2",
				Names:   ir.Names{Proto: "state_2", GraphQL: "state", OpenAPI: "state_2"},
				Number:  2,
				Exclude: []ir.Target{ir.TargetGraphQL},
			},
		),
	}}
	assert.Empty(t, CheckCollisions(s))
}

func TestCheckCollisionsFieldRenders(t *testing.T) {
	// invoice_id and invoiceId render identically in GraphQL.
	s := &ir.Schema{Types: []*ir.Type{
		namedType("api", "Invoice",
			&ir.Field{Name: "invoice_id", Names: ir.Names{Proto: "invoice_id", GraphQL: "invoiceId", OpenAPI: "invoice_id"}, Number: 1},
			&ir.Field{Name: "invoiceId", Names: ir.Names{Proto: "invoiceId", GraphQL: "invoiceId", OpenAPI: "invoiceId"}, Number: 2},
		),
	}}
	got := CheckCollisions(s)
	require.Len(t, got, 1)
	require.Len(t, got[ir.TargetGraphQL], 1)
	assert.Contains(t, got[ir.TargetGraphQL][0].Error(), "api.Invoice")
}

func TestCheckCollisionsEnumValues(t *testing.T) {
	s := &ir.Schema{Enums: []*ir.Enum{{
		Name: "Status", Namespace: "api", Names: sameNames("Status"),
		Values: []*ir.EnumValue{
			{Name: "OPEN", Number: 1},
			{Name: "OPEN", Number: 2},
		},
	}}}
	got := CheckCollisions(s)
	require.Len(t, got, 3)
	for _, target := range ir.AllTargets {
		require.Len(t, got[target], 1)
		assert.Contains(t, got[target][0].Error(), `value "OPEN" twice`)
	}
}

func TestCheckCollisionsGraphQLRootFieldsAcrossServices(t *testing.T) {
	// Two services with query methods rendering to the same root
	// field clash in GraphQL even though proto keeps them apart.
	mkService := func(svc, method string) *ir.Service {
		return &ir.Service{
			Name: svc, Namespace: "api", Names: sameNames(svc),
			Methods: []*ir.Method{{
				Name: method, Names: ir.Names{Proto: method, GraphQL: "getThing", OpenAPI: "getThing" + svc},
				Kind: ir.MethodQuery,
				HTTP: ir.HTTPRule{Method: "GET", Path: "/" + svc},
			}},
		}
	}
	s := &ir.Schema{Services: []*ir.Service{mkService("A", "GetThing"), mkService("B", "GetThingToo")}}
	got := CheckCollisions(s)
	require.Len(t, got, 1)
	require.Len(t, got[ir.TargetGraphQL], 1)
	assert.Contains(t, got[ir.TargetGraphQL][0].Error(), `query field "getThing"`)
}

func TestCheckCollisionsOpenAPIPaths(t *testing.T) {
	svc := &ir.Service{
		Name: "Billing", Namespace: "api", Names: sameNames("Billing"),
		Methods: []*ir.Method{
			{Name: "CreateInvoice", Names: sameNames("createInvoice"), Kind: ir.MethodMutation,
				HTTP: ir.HTTPRule{Method: "POST", Path: "/invoices"}},
			{Name: "MakeInvoice", Names: sameNames("makeInvoice"), Kind: ir.MethodMutation,
				HTTP: ir.HTTPRule{Method: "POST", Path: "/invoices"}},
			{Name: "GetInvoice", Names: sameNames("getInvoice"), Kind: ir.MethodQuery,
				HTTP: ir.HTTPRule{Method: "GET", Path: "/invoices"}},
		},
	}
	got := CheckCollisions(&ir.Schema{Services: []*ir.Service{svc}})
	require.Len(t, got, 1)
	require.Len(t, got[ir.TargetOpenAPI], 1)
	assert.Contains(t, got[ir.TargetOpenAPI][0].Error(), "POST /invoices")
}

func TestCheckCollisionsProtoRPCNames(t *testing.T) {
	svc := &ir.Service{
		Name: "Billing", Namespace: "api", Names: sameNames("Billing"),
		Methods: []*ir.Method{
			{Name: "Create", Names: ir.Names{Proto: "Submit", GraphQL: "create", OpenAPI: "create"},
				Kind: ir.MethodMutation, HTTP: ir.HTTPRule{Method: "POST", Path: "/a"}},
			{Name: "Submit", Names: ir.Names{Proto: "Submit", GraphQL: "submit", OpenAPI: "submit"},
				Kind: ir.MethodMutation, HTTP: ir.HTTPRule{Method: "POST", Path: "/b"}},
		},
	}
	got := CheckCollisions(&ir.Schema{Services: []*ir.Service{svc}})
	require.Len(t, got, 1)
	require.Len(t, got[ir.TargetProto], 1)
	assert.Contains(t, got[ir.TargetProto][0].Error(), `"Submit"`)
}
