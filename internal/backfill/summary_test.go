package backfill

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/trendscore/internal/contracts"
)

func TestCategorySummaryFinish(t *testing.T) {
	tests := []struct {
		name        string
		results     []DateResult
		err         error
		interrupted bool
		want        contracts.BackfillState
	}{
		{
			name:    "clean",
			results: []DateResult{{Date: day(0), Written: 3}, {Date: day(1), Unchanged: 3}},
			want:    contracts.BackfillVerified,
		},
		{
			name:    "row failure",
			results: []DateResult{{Date: day(0), Written: 2, Failed: 1}},
			want:    contracts.BackfillPartiallyFailed,
		},
		{
			name:    "one gap",
			results: []DateResult{{Date: day(0), Written: 3}, {Date: day(1), Gap: true}},
			want:    contracts.BackfillPartiallyFailed,
		},
		{
			name:    "every date a gap",
			results: []DateResult{{Date: day(0), Gap: true}, {Date: day(1), Gap: true}},
			want:    contracts.BackfillPartiallyFailed,
		},
		{
			name:    "rejected rows only",
			results: []DateResult{{Date: day(0), Written: 2, Rejected: 1}},
			want:    contracts.BackfillVerified,
		},
		{
			name:        "interrupted",
			results:     []DateResult{{Date: day(0), Written: 3}},
			interrupted: true,
			want:        contracts.BackfillRunning,
		},
		{
			name:    "fatal",
			results: []DateResult{{Date: day(0), Written: 1}},
			err:     errors.New("store down"),
			want:    contracts.BackfillPartiallyFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := newCategorySummary(contracts.CategoryBrand, day(0), day(1))
			sum.State = contracts.BackfillRunning
			for _, r := range tt.results {
				sum.add(r, nil)
			}
			sum.Err = tt.err
			sum.finish(tt.interrupted)

			assert.Equal(t, tt.want, sum.State)
			assert.Equal(t, !tt.interrupted, sum.State.Terminal())
		})
	}
}

func TestSummaryTotals(t *testing.T) {
	s := &Summary{Categories: []*CategorySummary{
		{RowsWritten: 4, RowsUnchanged: 1, RowsFailed: 1, GapDates: []time.Time{day(2)}},
		{RowsWritten: 2, GapDates: []time.Time{day(1), day(3)}},
	}}

	assert.Equal(t, 7, s.RowsProcessed())
	assert.Equal(t, 1, s.RowsFailed())
	assert.Equal(t, 3, s.Gaps())
}
