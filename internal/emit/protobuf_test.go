package emit

import (
	"bytes"
	"testing"

	"github.com/emicklei/proto"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtoGolden(t *testing.T) {
	schema := buildSchema(t, billingSource)
	data, err := Proto(schema)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "billing_proto", data)
}

func TestProtoParses(t *testing.T) {
	schema := buildSchema(t, billingSource)
	data, err := Proto(schema)
	require.NoError(t, err)

	def, err := proto.NewParser(bytes.NewReader(data)).Parse()
	require.NoError(t, err)

	var messages, enums, services []string
	var rpcs []*proto.RPC
	proto.Walk(def,
		proto.WithMessage(func(m *proto.Message) { messages = append(messages, m.Name) }),
		proto.WithEnum(func(e *proto.Enum) { enums = append(enums, e.Name) }),
		proto.WithService(func(s *proto.Service) { services = append(services, s.Name) }),
		proto.WithRPC(func(r *proto.RPC) { rpcs = append(rpcs, r) }),
	)

	assert.ElementsMatch(t, []string{
		"LineItem", "Invoice", "CardPayment", "BankTransfer",
		"GetInvoiceRequest", "CreateInvoiceRequest", "InvoiceUpdate", "Payment",
	}, messages)
	assert.Equal(t, []string{"Status"}, enums)
	assert.Equal(t, []string{"InvoiceService"}, services)

	require.Len(t, rpcs, 3)
	byName := map[string]*proto.RPC{}
	for _, r := range rpcs {
		byName[r.Name] = r
	}
	watch := byName["WatchInvoices"]
	require.NotNil(t, watch)
	assert.True(t, watch.StreamsReturns)
	assert.False(t, byName["GetInvoice"].StreamsReturns)
}

func TestProtoTimestampImport(t *testing.T) {
	withTimestamp := buildSchema(t, billingSource)
	data, err := Proto(withTimestamp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `import "google/protobuf/timestamp.proto";`)

	without := buildSchema(t, `namespace api

type Plain {
  name: string
}
`)
	data, err = Proto(without)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "import")
}

func TestProtoEnumZeroValue(t *testing.T) {
	injected := buildSchema(t, `namespace api

enum Color {
  RED
  GREEN
}
`)
	data, err := Proto(injected)
	require.NoError(t, err)
	assert.Contains(t, string(data), "COLOR_UNSPECIFIED = 0;")
	assert.Contains(t, string(data), "RED = 1;")

	explicit := buildSchema(t, `namespace api

enum Mode {
  UNKNOWN = 0
  ACTIVE
}
`)
	data, err = Proto(explicit)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "MODE_UNSPECIFIED")
	assert.Contains(t, string(data), "UNKNOWN = 0;")
	assert.Contains(t, string(data), "ACTIVE = 1;")
}

func TestProtoFieldExclusion(t *testing.T) {
	schema := buildSchema(t, `namespace api

type Account {
  id: string
  secret: string @exclude(proto)
}
`)
	data, err := Proto(schema)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "string id = 1;")
}

func TestProtoNameOverride(t *testing.T) {
	schema := buildSchema(t, `namespace api

type Widget @proto.name("WidgetV2") {
  display_name: string @proto.name("label")
}
`)
	data, err := Proto(schema)
	require.NoError(t, err)
	assert.Contains(t, string(data), "message WidgetV2 {")
	assert.Contains(t, string(data), "string label = 1;")
	assert.NotContains(t, string(data), "display_name")
}
