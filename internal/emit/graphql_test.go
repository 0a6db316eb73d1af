package emit

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

func loadSDL(t *testing.T, data []byte) *ast.Schema {
	t.Helper()
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: GraphQLFile, Input: string(data)})
	require.NoError(t, err)
	return schema
}

func TestGraphQLGolden(t *testing.T) {
	schema := buildSchema(t, billingSource)
	data, err := GraphQL(schema)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "billing_graphql", data)
}

func TestGraphQLValidates(t *testing.T) {
	schema := buildSchema(t, billingSource)
	data, err := GraphQL(schema)
	require.NoError(t, err)

	sdl := loadSDL(t, data)
	require.NotNil(t, sdl.Query)
	require.NotNil(t, sdl.Mutation)
	require.NotNil(t, sdl.Subscription)

	assert.NotNil(t, sdl.Query.Fields.ForName("getInvoice"))
	assert.NotNil(t, sdl.Mutation.Fields.ForName("createInvoice"))
	assert.NotNil(t, sdl.Subscription.Fields.ForName("watchInvoices"))

	payment := sdl.Types["PaymentInput"]
	require.NotNil(t, payment)
	assert.Equal(t, ast.InputObject, payment.Kind)
	assert.NotNil(t, payment.Directives.ForName("oneOf"))

	union := sdl.Types["Payment"]
	require.NotNil(t, union)
	assert.Equal(t, ast.Union, union.Kind)
	assert.ElementsMatch(t, []string{"CardPayment", "BankTransfer"}, union.Types)
}

func TestGraphQLInputOutputSplit(t *testing.T) {
	schema := buildSchema(t, billingSource)
	data, err := GraphQL(schema)
	require.NoError(t, err)
	sdl := loadSDL(t, data)

	// Request-only types keep their bare name as inputs.
	req := sdl.Types["GetInvoiceRequest"]
	require.NotNil(t, req)
	assert.Equal(t, ast.InputObject, req.Kind)
	assert.Nil(t, sdl.Types["GetInvoiceRequestInput"])

	// Types reachable from both positions split into a pair.
	require.NotNil(t, sdl.Types["Invoice"])
	assert.Equal(t, ast.Object, sdl.Types["Invoice"].Kind)
	require.NotNil(t, sdl.Types["InvoiceInput"])
	assert.Equal(t, ast.InputObject, sdl.Types["InvoiceInput"].Kind)

	// Response-only types stay plain objects.
	update := sdl.Types["InvoiceUpdate"]
	require.NotNil(t, update)
	assert.Equal(t, ast.Object, update.Kind)
	assert.Nil(t, sdl.Types["InvoiceUpdateInput"])
}

func TestGraphQLNullabilityAndNaming(t *testing.T) {
	schema := buildSchema(t, billingSource)
	data, err := GraphQL(schema)
	require.NoError(t, err)
	sdl := loadSDL(t, data)

	invoice := sdl.Types["Invoice"]
	require.NotNil(t, invoice)

	id := invoice.Fields.ForName("id")
	require.NotNil(t, id)
	assert.True(t, id.Type.NonNull, "required fields are non null")

	customer := invoice.Fields.ForName("customerId")
	require.NotNil(t, customer, "field names render as lowerCamel")
	assert.False(t, customer.Type.NonNull)

	note := invoice.Fields.ForName("note")
	require.NotNil(t, note)
	deprecated := note.Directives.ForName("deprecated")
	require.NotNil(t, deprecated)
	reason := deprecated.Arguments.ForName("reason")
	require.NotNil(t, reason)
	assert.Equal(t, "use memo", reason.Value.Raw)

	tags := invoice.Fields.ForName("tags")
	require.NotNil(t, tags)
	assert.Equal(t, "[StringStringEntry!]", tags.Type.String(), "maps render as entry lists")
	require.NotNil(t, sdl.Types["StringStringEntry"])
	require.NotNil(t, sdl.Types["StringStringEntryInput"])
}

func TestGraphQLMutationOnlyWhenPresent(t *testing.T) {
	schema := buildSchema(t, `namespace api

type GetThingRequest {
  id: string
}

type Thing {
  id: string
}

service ThingService {
  rpc GetThing(GetThingRequest) returns (Thing)
}
`)
	data, err := GraphQL(schema)
	require.NoError(t, err)
	sdl := loadSDL(t, data)
	require.NotNil(t, sdl.Query)
	assert.Nil(t, sdl.Mutation)
	assert.Nil(t, sdl.Subscription)
}

func TestGraphQLEmptyAPI(t *testing.T) {
	noMethods := buildSchema(t, `namespace api

type Orphan {
  name: string
}
`)
	_, err := GraphQL(noMethods)
	require.Error(t, err)
	ee, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeEmptyAPI, ee.Code)

	noQueries := buildSchema(t, `namespace api

type CreateThingRequest {
  name: string
}

type Thing {
  id: string
}

service ThingService {
  rpc CreateThing(CreateThingRequest) returns (Thing)
}
`)
	_, err = GraphQL(noQueries)
	require.Error(t, err)
	ee, ok = AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeEmptyAPI, ee.Code)
	assert.Contains(t, ee.Message, "query")
}

func TestGraphQLFieldExclusion(t *testing.T) {
	schema := buildSchema(t, `namespace api

type GetAccountRequest {
  id: string
}

type Account {
  id: string
  internal_ref: string @exclude(graphql)
}

service AccountService {
  rpc GetAccount(GetAccountRequest) returns (Account)
}
`)
	data, err := GraphQL(schema)
	require.NoError(t, err)
	sdl := loadSDL(t, data)

	account := sdl.Types["Account"]
	require.NotNil(t, account)
	assert.Nil(t, account.Fields.ForName("internalRef"))
	assert.NotNil(t, account.Fields.ForName("id"))
}
