package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/trendscore/internal/backfill"
	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/pkg/logger"
)

// Backfiller runs the orchestrator over a date range
type Backfiller interface {
	Run(ctx context.Context, opts backfill.Options) (*backfill.Summary, error)
}

// ComputeTodayJob scores yesterday and today for every category.
// Yesterday is recomputed because its raw totals may settle after midnight;
// unchanged rows are skipped by the orchestrator.
type ComputeTodayJob struct {
	backfiller Backfiller
	loc        *time.Location
	schedule   string
	strict     bool
	now        func() time.Time
	logger     *logger.Logger
}

// NewComputeTodayJob creates a new compute-today job
func NewComputeTodayJob(backfiller Backfiller, loc *time.Location, schedule string, strict bool, log *logger.Logger) *ComputeTodayJob {
	if loc == nil {
		loc = time.UTC
	}
	return &ComputeTodayJob{
		backfiller: backfiller,
		loc:        loc,
		schedule:   schedule,
		strict:     strict,
		now:        time.Now,
		logger:     log,
	}
}

// Name returns the job name
func (j *ComputeTodayJob) Name() string {
	return "compute_today"
}

// Schedule returns the cron schedule
func (j *ComputeTodayJob) Schedule() string {
	return j.schedule
}

// Run executes the job
func (j *ComputeTodayJob) Run(ctx context.Context) error {
	today := contracts.NormalizeDate(j.now(), j.loc)
	from := today.AddDate(0, 0, -1)

	j.logger.WithFields(map[string]interface{}{
		"from": contracts.DateString(from),
		"to":   contracts.DateString(today),
	}).Info("Starting scheduled trend computation")

	summary, err := j.backfiller.Run(ctx, backfill.Options{From: from, To: today})
	if err != nil {
		return fmt.Errorf("compute today: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"processed":   summary.RowsProcessed(),
		"failed":      summary.RowsFailed(),
		"gaps":        summary.Gaps(),
		"interrupted": summary.Interrupted,
		"duration":    summary.Duration,
	}).Info("Trend computation completed")

	if j.strict && summary.PartiallyFailed() {
		return fmt.Errorf("compute today: %d rows failed, %d gap dates (strict mode)", summary.RowsFailed(), summary.Gaps())
	}
	return nil
}
