package schema

import (
	"context"
	"time"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/pkg/logger"
)

// Migrator applies additive schema changes exactly once
// ⭐ SSOT: 스키마 변경은 여기서만 (NotApplied → Applying → Applied)
type Migrator struct {
	store  contracts.SchemaStore
	logger *logger.Logger
	state  contracts.SchemaState
}

// ChangeResult records the outcome of one change
type ChangeResult struct {
	Change Change
	Result contracts.ApplyResult
}

// Result summarizes a schema step
type Result struct {
	State          contracts.SchemaState
	Executed       int // statements sent to the database
	AlreadyApplied int
	Changes        []ChangeResult
	Duration       time.Duration
}

// Check is one verification check
type Check struct {
	Table   string
	Column  string // empty for relation checks
	Present bool
	Err     error
}

// VerifyReport summarizes the verification step
type VerifyReport struct {
	Checks []Check
	Passed int
	Failed int
}

// OK reports whether every check passed
func (r *VerifyReport) OK() bool {
	return r.Failed == 0
}

// NewMigrator creates a new migrator
func NewMigrator(store contracts.SchemaStore, log *logger.Logger) *Migrator {
	return &Migrator{
		store:  store,
		logger: log.WithField("module", "schema"),
		state:  contracts.SchemaNotApplied,
	}
}

// State returns the current schema state
func (m *Migrator) State() contracts.SchemaState {
	return m.state
}

// Apply runs each change in order. A change whose target already exists is
// a success; any other failure aborts with *contracts.SchemaApplicationError
// and leaves the migrator in Applying.
func (m *Migrator) Apply(ctx context.Context, changes []Change) (*Result, error) {
	start := time.Now()
	m.state = contracts.SchemaApplying

	result := &Result{State: m.state}

	for _, ch := range changes {
		res, executed, err := m.applyOne(ctx, ch)
		if executed {
			result.Executed++
		}
		if err != nil {
			result.Duration = time.Since(start)
			m.logger.WithError(err).WithField("change", ch.Name).Error("Schema change failed")
			return result, &contracts.SchemaApplicationError{Change: ch.Name, Err: err}
		}
		if res == contracts.ResultAlreadyApplied {
			result.AlreadyApplied++
		}
		result.Changes = append(result.Changes, ChangeResult{Change: ch, Result: res})
	}

	m.state = contracts.SchemaApplied
	result.State = m.state
	result.Duration = time.Since(start)

	m.logger.WithFields(map[string]interface{}{
		"changes":         len(changes),
		"executed":        result.Executed,
		"already_applied": result.AlreadyApplied,
		"duration":        result.Duration,
	}).Info("Schema applied")

	return result, nil
}

// applyOne checks metadata first and only executes when the target is absent
func (m *Migrator) applyOne(ctx context.Context, ch Change) (contracts.ApplyResult, bool, error) {
	present, err := m.exists(ctx, ch)
	if err != nil {
		m.logger.WithError(err).WithField("change", ch.Name).Warn("Metadata lookup failed, applying directly")
	} else if present {
		m.logger.WithField("change", ch.Name).Debug("Already applied")
		return contracts.ResultAlreadyApplied, false, nil
	}

	res, err := m.store.ApplySchemaChange(ctx, ch.Statement)
	if err != nil {
		return "", true, err
	}

	m.logger.WithFields(map[string]interface{}{
		"change": ch.Name,
		"result": res,
	}).Info("Schema change executed")

	return res, true, nil
}

func (m *Migrator) exists(ctx context.Context, ch Change) (bool, error) {
	if ch.Kind == KindColumn {
		return m.store.ProbeColumn(ctx, ch.Table, ch.Column)
	}
	return m.store.ProbeRelation(ctx, ch.Relation)
}

// Verify checks every tracked table and derived column. Failures are
// logged and reported, never returned as errors.
func (m *Migrator) Verify(ctx context.Context) *VerifyReport {
	report := &VerifyReport{}

	record := func(c Check) {
		log := m.logger.WithFields(map[string]interface{}{
			"table":  c.Table,
			"column": c.Column,
		})
		switch {
		case c.Err != nil:
			report.Failed++
			log.WithError(c.Err).Warn("Verification check error")
		case !c.Present:
			report.Failed++
			log.Warn("Verification failed: missing")
		default:
			report.Passed++
			log.Debug("Verification passed")
		}
		report.Checks = append(report.Checks, c)
	}

	for _, table := range TrackedTables() {
		present, err := m.store.ProbeRelation(ctx, table)
		record(Check{Table: table, Present: present, Err: err})

		for _, col := range DerivedColumns {
			present, err := m.store.ProbeColumn(ctx, table, col.Name)
			record(Check{Table: table, Column: col.Name, Present: present, Err: err})
		}
	}

	m.logger.WithFields(map[string]interface{}{
		"passed": report.Passed,
		"failed": report.Failed,
	}).Info("Schema verification completed")

	return report
}
