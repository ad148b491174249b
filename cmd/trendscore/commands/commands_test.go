package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscore/internal/backfill"
	"github.com/wonny/trendscore/internal/contracts"
)

func TestBackfillOptions(t *testing.T) {
	tests := []struct {
		name       string
		from, to   string
		categories string
		wantErr    bool
		wantCats   int
	}{
		{"all categories", "2024-01-01", "2024-01-31", "", false, 5},
		{"single day", "2024-01-01", "2024-01-01", "brand", false, 1},
		{"subset", "2024-01-01", "2024-01-02", "brand,product,brand", false, 2},
		{"reversed", "2024-02-01", "2024-01-01", "", true, 0},
		{"bad date", "2024-13-01", "2024-01-01", "", true, 0},
		{"unknown category", "2024-01-01", "2024-01-02", "dispensary", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := backfillOptions(tt.from, tt.to, tt.categories)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, contracts.DateString(opts.From))
			assert.Equal(t, tt.to, contracts.DateString(opts.To))
			assert.Len(t, opts.Categories, tt.wantCats)
		})
	}
}

func TestExitStatus(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		summary *backfill.Summary
		strict  bool
		wantErr bool
	}{
		{"clean strict", &backfill.Summary{Categories: []*backfill.CategorySummary{{RowsWritten: 10}}}, true, false},
		{"failed rows lenient", &backfill.Summary{Categories: []*backfill.CategorySummary{{RowsWritten: 8, RowsFailed: 2}}}, false, false},
		{"failed rows strict", &backfill.Summary{Categories: []*backfill.CategorySummary{{RowsWritten: 8, RowsFailed: 2}}}, true, true},
		{"gap lenient", &backfill.Summary{Categories: []*backfill.CategorySummary{{GapDates: []time.Time{day}}}}, false, false},
		{"gap strict", &backfill.Summary{Categories: []*backfill.CategorySummary{{RowsWritten: 6, GapDates: []time.Time{day}}}}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exitStatus(tt.summary, tt.strict)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStateLabel(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sum  *backfill.CategorySummary
		want string
	}{
		{"verified", &backfill.CategorySummary{State: contracts.BackfillVerified}, "VERIFIED"},
		{"gap", &backfill.CategorySummary{State: contracts.BackfillPartiallyFailed, GapDates: []time.Time{day}}, "PARTIALLY_FAILED (gap)"},
		{"row failures", &backfill.CategorySummary{State: contracts.BackfillPartiallyFailed, RowsFailed: 1}, "PARTIALLY_FAILED"},
		{"interrupted", &backfill.CategorySummary{State: contracts.BackfillRunning}, "BACKFILLING*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateLabel(tt.sum))
		})
	}
}

func TestCacheHealthLine(t *testing.T) {
	tests := []struct {
		name string
		c    fakePinger
		want string
	}{
		{"disabled", fakePinger{}, "비활성"},
		{"up", fakePinger{enabled: true, rtt: 3 * time.Millisecond}, "3ms (trendscore:stats)"},
		{"down", fakePinger{enabled: true, err: errors.New("connection refused")}, "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, cacheHealthLine(context.Background(), tt.c, "trendscore:stats"), tt.want)
		})
	}
}

type fakePinger struct {
	enabled bool
	rtt     time.Duration
	err     error
}

func (f fakePinger) Enabled() bool { return f.enabled }

func (f fakePinger) Ping(ctx context.Context) (time.Duration, error) {
	return f.rtt, f.err
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"apply-schema", "backfill", "compute-today", "data-check", "scheduler"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
