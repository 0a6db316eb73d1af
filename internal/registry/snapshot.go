package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/manifold/internal/ir"
)

// timeLayout keeps all nine fractional digits so created_at strings
// order lexicographically the same way they order chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot is one recorded build.
type Snapshot struct {
	ID          string
	Fingerprint string
	SourceRoot  string
	CreatedAt   time.Time
	NoOp        bool
	Schema      *ir.Schema // nil for no-op records
}

// FieldNumber is one row of a build's wire-number table. Enum values
// record under their enum's qualified name alongside message fields.
type FieldNumber struct {
	Type   string
	Field  string
	Number int
}

// Record stores a compiled schema as the new baseline. A fingerprint
// identical to the latest baseline records as a no-op build and leaves
// the baseline alone. A (type, field) pair that survives from the
// baseline with a different number fails with NUMBER_DRIFT naming
// every drifted pair, and nothing is recorded.
func (r *Registry) Record(ctx context.Context, s *ir.Schema, sourceRoot string) (*Snapshot, error) {
	fp, err := ir.Fingerprint(s)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting schema: %w", err)
	}

	latest, err := r.Latest(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Fingerprint: fp,
		SourceRoot:  sourceRoot,
		CreatedAt:   time.Now().UTC(),
	}

	if latest != nil && latest.Fingerprint == fp {
		snap.NoOp = true
		if err := r.insertBuild(ctx, snap, nil, nil); err != nil {
			return nil, err
		}
		return snap, nil
	}

	table := numberTable(s)
	if latest != nil {
		if drifts := findDrift(latest.Schema, table); len(drifts) > 0 {
			return nil, newNumberDrift(drifts)
		}
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	snap.Schema = s
	if err := r.insertBuild(ctx, snap, data, table); err != nil {
		return nil, err
	}
	return snap, nil
}

// Latest returns the most recent baseline build with its decoded
// schema, or nil when the registry holds none. No-op builds never
// become the baseline.
func (r *Registry) Latest(ctx context.Context) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, source_root, created_at, schema_json
		FROM builds
		WHERE noop = 0
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`)

	var (
		snap    Snapshot
		created string
		data    []byte
	)
	err := row.Scan(&snap.ID, &snap.Fingerprint, &snap.SourceRoot, &created, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest build: %w", err)
	}

	snap.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("reading latest build: parsing created_at: %w", err)
	}
	snap.Schema = &ir.Schema{}
	if err := json.Unmarshal(data, snap.Schema); err != nil {
		return nil, fmt.Errorf("reading latest build: decoding schema: %w", err)
	}
	return &snap, nil
}

// FieldNumbers returns a build's recorded wire-number table ordered by
// type and field.
func (r *Registry) FieldNumbers(ctx context.Context, buildID string) ([]FieldNumber, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type_fqn, field, number
		FROM field_numbers
		WHERE build_id = ?
		ORDER BY type_fqn ASC, field ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("querying field numbers: %w", err)
	}
	defer rows.Close()

	var table []FieldNumber
	for rows.Next() {
		var row FieldNumber
		if err := rows.Scan(&row.Type, &row.Field, &row.Number); err != nil {
			return nil, fmt.Errorf("scanning field number: %w", err)
		}
		table = append(table, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating field numbers: %w", err)
	}
	return table, nil
}

// insertBuild writes the build row and its number table atomically.
func (r *Registry) insertBuild(ctx context.Context, snap *Snapshot, schemaJSON []byte, table []FieldNumber) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recording build: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO builds
		(id, fingerprint, source_root, compiler_version, ir_version, created_at, noop, schema_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		snap.ID,
		snap.Fingerprint,
		snap.SourceRoot,
		ir.CompilerVersion,
		ir.IRVersion,
		snap.CreatedAt.Format(timeLayout),
		snap.NoOp,
		schemaJSON,
	)
	if err != nil {
		return fmt.Errorf("recording build: insert build: %w", err)
	}

	for _, row := range table {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO field_numbers (build_id, type_fqn, field, number)
			VALUES (?, ?, ?, ?)
		`, snap.ID, row.Type, row.Field, row.Number)
		if err != nil {
			return fmt.Errorf("recording build: insert field number %s.%s: %w", row.Type, row.Field, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recording build: commit: %w", err)
	}
	return nil
}

// numberTable flattens a schema's wire numbers in source order.
func numberTable(s *ir.Schema) []FieldNumber {
	var table []FieldNumber
	for _, t := range s.Types {
		for _, f := range t.Fields {
			table = append(table, FieldNumber{Type: t.FQN(), Field: f.Name, Number: f.Number})
		}
	}
	for _, e := range s.Enums {
		for _, v := range e.Values {
			table = append(table, FieldNumber{Type: e.FQN(), Field: v.Name, Number: v.Number})
		}
	}
	return table
}

// findDrift compares a new number table against the baseline schema.
// Pairs that survive with a changed number drift; added and removed
// pairs do not.
func findDrift(base *ir.Schema, head []FieldNumber) []Drift {
	baseline := map[[2]string]int{}
	for _, row := range numberTable(base) {
		baseline[[2]string{row.Type, row.Field}] = row.Number
	}

	var drifts []Drift
	for _, row := range head {
		old, ok := baseline[[2]string{row.Type, row.Field}]
		if ok && old != row.Number {
			drifts = append(drifts, Drift{Type: row.Type, Field: row.Field, Old: old, New: row.Number})
		}
	}
	return drifts
}
