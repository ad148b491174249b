package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscore/internal/backfill"
	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/internal/schema"
	"github.com/wonny/trendscore/pkg/logger"
)

type fakeBackfiller struct {
	opts    backfill.Options
	summary *backfill.Summary
	err     error
}

func (f *fakeBackfiller) Run(ctx context.Context, opts backfill.Options) (*backfill.Summary, error) {
	f.opts = opts
	return f.summary, f.err
}

func TestComputeTodayRange(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	fb := &fakeBackfiller{summary: &backfill.Summary{}}
	job := NewComputeTodayJob(fb, loc, "0 30 0 * * *", false, logger.Nop())
	// 2024-03-10 03:00 UTC is still 2024-03-09 in Denver
	job.now = func() time.Time { return time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "2024-03-08", contracts.DateString(fb.opts.From))
	assert.Equal(t, "2024-03-09", contracts.DateString(fb.opts.To))
	assert.False(t, fb.opts.Force)
	assert.Empty(t, fb.opts.Categories)
	assert.Equal(t, "compute_today", job.Name())
	assert.Equal(t, "0 30 0 * * *", job.Schedule())
}

func TestComputeTodayErrors(t *testing.T) {
	partial := &backfill.Summary{Categories: []*backfill.CategorySummary{
		{Category: contracts.CategoryBrand, State: contracts.BackfillPartiallyFailed, RowsFailed: 2},
	}}
	gap := &backfill.Summary{Categories: []*backfill.CategorySummary{
		{Category: contracts.CategoryProduct, State: contracts.BackfillPartiallyFailed, GapDates: []time.Time{time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)}},
	}}

	tests := []struct {
		name    string
		fb      *fakeBackfiller
		strict  bool
		wantErr bool
	}{
		{"clean run", &fakeBackfiller{summary: &backfill.Summary{}}, true, false},
		{"partial failure lenient", &fakeBackfiller{summary: partial}, false, false},
		{"partial failure strict", &fakeBackfiller{summary: partial}, true, true},
		{"source gap lenient", &fakeBackfiller{summary: gap}, false, false},
		{"source gap strict", &fakeBackfiller{summary: gap}, true, true},
		{"fatal", &fakeBackfiller{summary: &backfill.Summary{}, err: contracts.ErrStoreUnavailable}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewComputeTodayJob(tt.fb, time.UTC, "@daily", tt.strict, logger.Nop())
			err := job.Run(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	job := NewComputeTodayJob(&fakeBackfiller{err: contracts.ErrStoreUnavailable}, time.UTC, "@daily", false, logger.Nop())
	assert.True(t, errors.Is(job.Run(context.Background()), contracts.ErrStoreUnavailable))
}

type fakeVerifier struct {
	report *schema.VerifyReport
}

func (f fakeVerifier) Verify(ctx context.Context) *schema.VerifyReport {
	return f.report
}

func TestSchemaVerifyJob(t *testing.T) {
	ok := NewSchemaVerifyJob(fakeVerifier{&schema.VerifyReport{Passed: 45}}, logger.Nop())
	assert.NoError(t, ok.Run(context.Background()))
	assert.Equal(t, "schema_verify", ok.Name())

	missing := NewSchemaVerifyJob(fakeVerifier{&schema.VerifyReport{Passed: 44, Failed: 1}}, logger.Nop())
	assert.Error(t, missing.Run(context.Background()))
}
