package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/manifold/internal/ir"
)

func openTest(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "manifold.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// invoiceSchema builds a small schema whose total field number is
// adjustable, so tests can provoke drift.
func invoiceSchema(totalNum int) *ir.Schema {
	return &ir.Schema{
		IRVersion:     ir.IRVersion,
		RootNamespace: "billing",
		Version:       "1.0.0",
		Namespaces:    []string{"billing"},
		Types: []*ir.Type{{
			Name:      "Invoice",
			Namespace: "billing",
			Fields: []*ir.Field{
				{Name: "id", Number: 1},
				{Name: "total", Number: totalNum},
			},
		}},
		Enums: []*ir.Enum{{
			Name:      "Status",
			Namespace: "billing",
			Values:    []*ir.EnumValue{{Name: "OPEN", Number: 1}},
		}},
	}
}

func TestOpenCreatesAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifold.db")

	r, err := Open(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	var mode string
	require.NoError(t, r.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, r.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
	require.NoError(t, r.Close())

	// Reopening an existing database is a no-op.
	r2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, r2.Close())
}

func TestLatestOnEmptyRegistry(t *testing.T) {
	r := openTest(t)
	snap, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRecordBaseline(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	snap, err := r.Record(ctx, invoiceSchema(2), "/src/billing")
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.NotEmpty(t, snap.Fingerprint)
	assert.False(t, snap.NoOp)

	latest, err := r.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, snap.ID, latest.ID)
	assert.Equal(t, snap.Fingerprint, latest.Fingerprint)
	assert.Equal(t, "/src/billing", latest.SourceRoot)

	require.NotNil(t, latest.Schema)
	assert.Equal(t, "billing", latest.Schema.RootNamespace)
	require.Len(t, latest.Schema.Types, 1)
	assert.Equal(t, 2, latest.Schema.Types[0].Fields[1].Number)
}

func TestRecordNoOp(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	first, err := r.Record(ctx, invoiceSchema(2), "/src")
	require.NoError(t, err)

	second, err := r.Record(ctx, invoiceSchema(2), "/src")
	require.NoError(t, err)
	assert.True(t, second.NoOp)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.NotEqual(t, first.ID, second.ID)

	// The no-op build is recorded but the baseline stays put.
	latest, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, latest.ID)

	var count int
	require.NoError(t, r.db.QueryRow("SELECT COUNT(*) FROM builds").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestRecordNumberDrift(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	_, err := r.Record(ctx, invoiceSchema(2), "/src")
	require.NoError(t, err)

	_, err = r.Record(ctx, invoiceSchema(3), "/src")
	require.Error(t, err)
	re, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNumberDrift, re.Code)
	require.Len(t, re.Drifts, 1)
	assert.Equal(t, Drift{Type: "billing.Invoice", Field: "total", Old: 2, New: 3}, re.Drifts[0])
	assert.Contains(t, re.Message, "billing.Invoice.total")

	// The drifted build must not be recorded.
	latest, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Schema.Types[0].Fields[1].Number)

	var count int
	require.NoError(t, r.db.QueryRow("SELECT COUNT(*) FROM builds").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRecordEnumValueDrift(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	_, err := r.Record(ctx, invoiceSchema(2), "/src")
	require.NoError(t, err)

	head := invoiceSchema(2)
	head.Enums[0].Values[0].Number = 5
	_, err = r.Record(ctx, head, "/src")
	require.Error(t, err)
	re, ok := AsError(err)
	require.True(t, ok)
	require.Len(t, re.Drifts, 1)
	assert.Equal(t, Drift{Type: "billing.Status", Field: "OPEN", Old: 1, New: 5}, re.Drifts[0])
}

func TestRecordAdditionsAndRemovalsAreNotDrift(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	_, err := r.Record(ctx, invoiceSchema(2), "/src")
	require.NoError(t, err)

	added := invoiceSchema(2)
	added.Types[0].Fields = append(added.Types[0].Fields, &ir.Field{Name: "memo", Number: 3})
	snap, err := r.Record(ctx, added, "/src")
	require.NoError(t, err)
	assert.False(t, snap.NoOp)

	removed := invoiceSchema(2)
	removed.Types[0].Fields = removed.Types[0].Fields[:1]
	snap2, err := r.Record(ctx, removed, "/src")
	require.NoError(t, err)

	latest, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap2.ID, latest.ID)
}

func TestFieldNumbersRecorded(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	snap, err := r.Record(ctx, invoiceSchema(2), "/src")
	require.NoError(t, err)

	table, err := r.FieldNumbers(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, []FieldNumber{
		{Type: "billing.Invoice", Field: "id", Number: 1},
		{Type: "billing.Invoice", Field: "total", Number: 2},
		{Type: "billing.Status", Field: "OPEN", Number: 1},
	}, table)
}

func TestFieldNumbersEmptyForNoOp(t *testing.T) {
	r := openTest(t)
	ctx := context.Background()

	_, err := r.Record(ctx, invoiceSchema(2), "/src")
	require.NoError(t, err)
	noop, err := r.Record(ctx, invoiceSchema(2), "/src")
	require.NoError(t, err)
	require.True(t, noop.NoOp)

	table, err := r.FieldNumbers(ctx, noop.ID)
	require.NoError(t, err)
	assert.Empty(t, table)
}
