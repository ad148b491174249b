package schema

import (
	"fmt"

	"github.com/wonny/trendscore/internal/contracts"
)

// ChangeKind identifies what a change creates
type ChangeKind string

const (
	KindTable  ChangeKind = "table"
	KindColumn ChangeKind = "column"
	KindIndex  ChangeKind = "index"
)

// Change is one additive schema definition
type Change struct {
	Name      string
	Kind      ChangeKind
	Table     string
	Column    string // KindColumn only
	Relation  string // table or index name checked for KindTable/KindIndex
	Statement string
}

// Column is a derived column added to every tracked table
type Column struct {
	Name string
	Type string
}

// DerivedColumns are written by the scorer
// ⭐ SSOT: 파생 컬럼 정의는 여기서만
var DerivedColumns = []Column{
	{Name: "rank", Type: "INTEGER"},
	{Name: "previous_rank", Type: "INTEGER"},
	{Name: "trend_multiplier", Type: "DOUBLE PRECISION"},
	{Name: "consistency_score", Type: "DOUBLE PRECISION"},
	{Name: "velocity_score", Type: "DOUBLE PRECISION"},
	{Name: "streak_days", Type: "INTEGER"},
	{Name: "market_share_percent", Type: "DOUBLE PRECISION"},
	{Name: "scored_at", Type: "TIMESTAMPTZ"},
}

// TrackedTables returns the table of every category
func TrackedTables() []string {
	tables := make([]string, 0, len(contracts.AllCategories()))
	for _, c := range contracts.AllCategories() {
		tables = append(tables, c.Table())
	}
	return tables
}

// Definitions returns every change in application order
func Definitions() []Change {
	var changes []Change
	for _, c := range contracts.AllCategories() {
		changes = append(changes, ForCategory(c)...)
	}
	return changes
}

// ForCategory returns the changes for one category table
func ForCategory(c contracts.Category) []Change {
	table := c.Table()

	changes := []Change{
		{
			Name:     fmt.Sprintf("create %s", table),
			Kind:     KindTable,
			Table:    table,
			Relation: table,
			Statement: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	entity_id BIGINT NOT NULL,
	stat_date DATE NOT NULL,
	order_count BIGINT NOT NULL DEFAULT 0,
	total_points DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (entity_id, stat_date)
)`, table),
		},
	}

	for _, col := range DerivedColumns {
		changes = append(changes, Change{
			Name:      fmt.Sprintf("add %s.%s", table, col.Name),
			Kind:      KindColumn,
			Table:     table,
			Column:    col.Name,
			Statement: fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", table, col.Name, col.Type),
		})
	}

	index := fmt.Sprintf("idx_%s_date_rank", table)
	changes = append(changes, Change{
		Name:      fmt.Sprintf("create %s", index),
		Kind:      KindIndex,
		Table:     table,
		Relation:  index,
		Statement: fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (stat_date, rank)", index, table),
	})

	return changes
}
