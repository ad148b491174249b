package contracts

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    Category
		wantErr bool
	}{
		{"manufacturer", CategoryManufacturer, false},
		{" Cannabis_Strain ", CategoryCannabisStrain, false},
		{"brand", CategoryBrand, false},
		{"strain", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				var iie *InvalidInputError
				assert.ErrorAs(t, err, &iie)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCategories(t *testing.T) {
	all, err := ParseCategories("")
	require.NoError(t, err)
	assert.Equal(t, AllCategories(), all)

	some, err := ParseCategories("brand,product,brand")
	require.NoError(t, err)
	assert.Equal(t, []Category{CategoryBrand, CategoryProduct}, some)

	_, err = ParseCategories("brand,unknown")
	assert.Error(t, err)
}

func TestCategoryTable(t *testing.T) {
	tables := make(map[string]bool)
	for _, c := range AllCategories() {
		table := c.Table()
		assert.NotEmpty(t, table, "category %s has no table", c)
		assert.False(t, tables[table], "table %s used twice", table)
		tables[table] = true
	}
	assert.Equal(t, "strain_daily_stats", CategoryCannabisStrain.Table())
	assert.Empty(t, Category("other").Table())
}

func TestNormalizeDate(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	// 03:00 UTC on the 2nd is still the 1st in Denver
	ts := time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), NormalizeDate(ts, denver))
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), NormalizeDate(ts, nil))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", DateString(d))

	_, err = ParseDate("2024-13-01")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysBetween(a, a))
	assert.Equal(t, 6, DaysBetween(a, a.AddDate(0, 0, 6)))
	assert.Equal(t, -1, DaysBetween(a, a.AddDate(0, 0, -1)))
}

func TestTrendFieldsEqual(t *testing.T) {
	base := TrendFields{PreviousRank: IntPtr(3), TrendMultiplier: 1.1, ConsistencyScore: 80, VelocityScore: 0.2, StreakDays: 2, MarketSharePercent: 12.5}

	same := base
	same.PreviousRank = IntPtr(3)
	assert.True(t, base.Equal(&same))

	changed := base
	changed.PreviousRank = nil
	assert.False(t, base.Equal(&changed))

	changed = base
	changed.VelocityScore = math.Nextafter(0.2, 1)
	assert.False(t, base.Equal(&changed))

	var nilFields *TrendFields
	assert.True(t, nilFields.Equal(nil))
	assert.False(t, nilFields.Equal(&base))
}

func TestErrorClassification(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	sourceErr := fmt.Errorf("fetch: %w", &SourceUnavailableError{Category: CategoryBrand, Date: date, Err: errors.New("timeout")})
	assert.True(t, IsRetryable(sourceErr))
	assert.False(t, IsFatal(sourceErr))

	storeErr := &RowPersistenceError{EntityID: 1, Category: CategoryBrand, Date: date, Err: ErrStoreUnavailable}
	assert.True(t, IsFatal(storeErr))
	assert.False(t, IsRetryable(storeErr))

	rowErr := &RowPersistenceError{EntityID: 1, Category: CategoryBrand, Date: date, Err: errors.New("constraint")}
	assert.False(t, IsFatal(rowErr))

	missingColumn := &RowPersistenceError{EntityID: 1, Category: CategoryBrand, Date: date, Err: fmt.Errorf("%w: column \"rank\" does not exist", ErrSchemaMissing)}
	assert.True(t, IsFatal(missingColumn))

	schemaErr := &SchemaApplicationError{Change: "add rank", Err: errors.New("permission denied")}
	assert.True(t, IsFatal(schemaErr))
	assert.Contains(t, schemaErr.Error(), "add rank")
}

func TestBackfillStateTerminal(t *testing.T) {
	assert.False(t, BackfillPending.Terminal())
	assert.False(t, BackfillRunning.Terminal())
	assert.True(t, BackfillVerified.Terminal())
	assert.True(t, BackfillPartiallyFailed.Terminal())
}
