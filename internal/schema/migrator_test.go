package schema

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/pkg/logger"
)

// fakeSchemaStore tracks relations and columns created by known statements
type fakeSchemaStore struct {
	mu        sync.Mutex
	byStmt    map[string]Change
	relations map[string]bool
	columns   map[string]bool
	executed  []string

	failOn      string
	lookupErr    error
	skipProbing bool // report absent so the apply path runs every time
}

func newFakeSchemaStore(changes []Change) *fakeSchemaStore {
	f := &fakeSchemaStore{
		byStmt:    make(map[string]Change),
		relations: make(map[string]bool),
		columns:   make(map[string]bool),
	}
	for _, ch := range changes {
		f.byStmt[ch.Statement] = ch
	}
	return f
}

func (f *fakeSchemaStore) ApplySchemaChange(ctx context.Context, statement string) (contracts.ApplyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.executed = append(f.executed, statement)

	ch, ok := f.byStmt[statement]
	if !ok {
		return "", errors.New("unknown statement")
	}
	if ch.Name == f.failOn {
		return "", errors.New("permission denied")
	}

	switch ch.Kind {
	case KindColumn:
		key := ch.Table + "." + ch.Column
		if f.columns[key] {
			return contracts.ResultAlreadyApplied, nil
		}
		f.columns[key] = true
	default:
		if f.relations[ch.Relation] {
			return contracts.ResultAlreadyApplied, nil
		}
		f.relations[ch.Relation] = true
	}
	return contracts.ResultApplied, nil
}

func (f *fakeSchemaStore) ProbeColumn(ctx context.Context, table, column string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	if f.skipProbing {
		return false, nil
	}
	return f.columns[table+"."+column], nil
}

func (f *fakeSchemaStore) ProbeRelation(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	if f.skipProbing {
		return false, nil
	}
	return f.relations[name], nil
}

func TestDefinitions(t *testing.T) {
	changes := Definitions()

	perCategory := 1 + len(DerivedColumns) + 1
	assert.Len(t, changes, perCategory*len(contracts.AllCategories()))

	names := make(map[string]bool)
	for _, ch := range changes {
		assert.False(t, names[ch.Name], "duplicate change %s", ch.Name)
		names[ch.Name] = true
		assert.Contains(t, ch.Statement, "IF NOT EXISTS")
	}

	// Table creation precedes its columns
	first := ForCategory(contracts.CategoryBrand)
	assert.Equal(t, KindTable, first[0].Kind)
	assert.Equal(t, "brand_daily_stats", first[0].Relation)
	assert.Equal(t, KindIndex, first[len(first)-1].Kind)
}

func TestApply_Twice(t *testing.T) {
	changes := Definitions()
	store := newFakeSchemaStore(changes)
	ctx := context.Background()

	m := NewMigrator(store, logger.Nop())
	assert.Equal(t, contracts.SchemaNotApplied, m.State())

	first, err := m.Apply(ctx, changes)
	require.NoError(t, err)
	assert.Equal(t, contracts.SchemaApplied, first.State)
	assert.Equal(t, len(changes), first.Executed)
	assert.Equal(t, 0, first.AlreadyApplied)

	second, err := NewMigrator(store, logger.Nop()).Apply(ctx, changes)
	require.NoError(t, err)
	assert.Equal(t, contracts.SchemaApplied, second.State)
	assert.Equal(t, 0, second.Executed, "metadata lookup should short-circuit every change")
	assert.Equal(t, len(changes), second.AlreadyApplied)
}

func TestApply_AlreadyAppliedFromStore(t *testing.T) {
	changes := ForCategory(contracts.CategoryProduct)
	store := newFakeSchemaStore(changes)
	ctx := context.Background()

	_, err := NewMigrator(store, logger.Nop()).Apply(ctx, changes)
	require.NoError(t, err)

	// Probes unavailable: the typed store result still classifies as success
	store.skipProbing = true
	result, err := NewMigrator(store, logger.Nop()).Apply(ctx, changes)
	require.NoError(t, err)
	assert.Equal(t, contracts.SchemaApplied, result.State)
	assert.Equal(t, len(changes), result.Executed)
	assert.Equal(t, len(changes), result.AlreadyApplied)
}

func TestApply_ProbeErrorFallsBackToApply(t *testing.T) {
	changes := ForCategory(contracts.CategoryPharmacy)
	store := newFakeSchemaStore(changes)
	store.lookupErr = errors.New("information_schema unavailable")

	result, err := NewMigrator(store, logger.Nop()).Apply(context.Background(), changes)
	require.NoError(t, err)
	assert.Equal(t, len(changes), result.Executed)
}

func TestApply_FatalError(t *testing.T) {
	changes := ForCategory(contracts.CategoryManufacturer)
	store := newFakeSchemaStore(changes)
	store.failOn = changes[2].Name

	m := NewMigrator(store, logger.Nop())
	result, err := m.Apply(context.Background(), changes)

	var sae *contracts.SchemaApplicationError
	require.ErrorAs(t, err, &sae)
	assert.Equal(t, changes[2].Name, sae.Change)
	assert.True(t, contracts.IsFatal(err))

	assert.Equal(t, contracts.SchemaApplying, m.State())
	assert.Equal(t, 3, result.Executed)
	assert.Len(t, store.executed, 3, "later changes must not run")
}

func TestVerify(t *testing.T) {
	changes := Definitions()
	store := newFakeSchemaStore(changes)
	ctx := context.Background()

	m := NewMigrator(store, logger.Nop())

	before := m.Verify(ctx)
	assert.False(t, before.OK())
	assert.Equal(t, 0, before.Passed)

	_, err := m.Apply(ctx, changes)
	require.NoError(t, err)

	after := m.Verify(ctx)
	assert.True(t, after.OK())
	assert.Equal(t, len(TrackedTables())*(1+len(DerivedColumns)), after.Passed)
}

func TestVerify_ProbeErrorsDoNotAbort(t *testing.T) {
	store := newFakeSchemaStore(nil)
	store.lookupErr = errors.New("connection reset")

	report := NewMigrator(store, logger.Nop()).Verify(context.Background())
	assert.Equal(t, len(TrackedTables())*(1+len(DerivedColumns)), report.Failed)
	for _, c := range report.Checks {
		assert.Error(t, c.Err)
	}
}
