package backfill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/internal/ranking"
	"github.com/wonny/trendscore/internal/schema"
	"github.com/wonny/trendscore/internal/trend"
	"github.com/wonny/trendscore/pkg/config"
	"github.com/wonny/trendscore/pkg/logger"
)

// Orchestrator walks history and populates derived fields
// ⭐ SSOT: 백필 조율은 여기서만 (카테고리 병렬, 날짜 순차, 엔티티 병렬)
type Orchestrator struct {
	source   contracts.RawStatSource
	store    contracts.StatStore
	assigner *ranking.Assigner
	scorer   *trend.Scorer
	cfg      config.BackfillConfig
	limiter  *rate.Limiter
	schema   SchemaEnsurer
	logger   *logger.Logger
}

// SchemaEnsurer applies the derived-field schema before any row is written
type SchemaEnsurer interface {
	Apply(ctx context.Context, changes []schema.Change) (*schema.Result, error)
}

// Options selects what a run covers
type Options struct {
	From       time.Time
	To         time.Time
	Categories []contracts.Category // empty = all
	Force      bool                 // write even when derived fields are unchanged
	Resume     bool                 // skip dates up to the latest scored date
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	source contracts.RawStatSource,
	store contracts.StatStore,
	assigner *ranking.Assigner,
	scorer *trend.Scorer,
	cfg config.BackfillConfig,
	log *logger.Logger,
) *Orchestrator {
	if cfg.EntityWorkers < 1 {
		cfg.EntityWorkers = 1
	}
	if cfg.CategoryWorkers < 1 {
		cfg.CategoryWorkers = 1
	}

	o := &Orchestrator{
		source:   source,
		store:    store,
		assigner: assigner,
		scorer:   scorer,
		cfg:      cfg,
		logger:   log.WithField("module", "backfill"),
	}
	if cfg.WritesPerSecond > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(cfg.WritesPerSecond), cfg.EntityWorkers)
	}
	return o
}

// WithSchema makes Run apply the categories' schema changes first
func (o *Orchestrator) WithSchema(m SchemaEnsurer) *Orchestrator {
	o.schema = m
	return o
}

// Run backfills every requested category. Categories run in parallel,
// dates within a category strictly ascending. Cancelling ctx stops each
// category between dates. The returned error is non-nil only for fatal
// failures (schema step, store unreachable, schema missing); row failures
// are reported in the summary.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	startTime := time.Now()

	if opts.To.Before(opts.From) {
		return nil, &contracts.InvalidInputError{Field: "date range", Reason: fmt.Sprintf("from %s is after to %s", contracts.DateString(opts.From), contracts.DateString(opts.To))}
	}

	categories := opts.Categories
	if len(categories) == 0 {
		categories = contracts.AllCategories()
	}

	if err := o.ensureSchema(ctx, categories); err != nil {
		return nil, err
	}

	summary := &Summary{
		From:       opts.From,
		To:         opts.To,
		Force:      opts.Force,
		Categories: make([]*CategorySummary, len(categories)),
	}

	o.logger.WithFields(map[string]interface{}{
		"from":       contracts.DateString(opts.From),
		"to":         contracts.DateString(opts.To),
		"categories": len(categories),
		"force":      opts.Force,
		"resume":     opts.Resume,
	}).Info("Starting backfill")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.CategoryWorkers)

	for i, category := range categories {
		summary.Categories[i] = newCategorySummary(category, opts.From, opts.To)

		g.Go(func() error {
			return o.runCategory(gctx, summary.Categories[i], opts)
		})
	}

	err := g.Wait()
	summary.Interrupted = ctx.Err() != nil
	summary.Duration = time.Since(startTime)

	o.logger.WithFields(map[string]interface{}{
		"rows_processed": summary.RowsProcessed(),
		"rows_failed":    summary.RowsFailed(),
		"interrupted":    summary.Interrupted,
		"duration":       summary.Duration,
	}).Info("Backfill finished")

	return summary, err
}

// ensureSchema applies every change the categories need. Changes already
// present are skipped, so this is a metadata round-trip on a migrated database.
func (o *Orchestrator) ensureSchema(ctx context.Context, categories []contracts.Category) error {
	if o.schema == nil {
		return nil
	}

	var changes []schema.Change
	for _, c := range categories {
		changes = append(changes, schema.ForCategory(c)...)
	}

	if _, err := o.schema.Apply(ctx, changes); err != nil {
		o.logger.WithError(err).Error("Schema step failed, not starting backfill")
		return err
	}
	return nil
}

// runCategory processes one category's dates in order
func (o *Orchestrator) runCategory(ctx context.Context, sum *CategorySummary, opts Options) error {
	startTime := time.Now()
	log := o.logger.WithCategory(sum.Category.String())

	defer func() {
		sum.Duration = time.Since(startTime)
		log.WithFields(map[string]interface{}{
			"state":           sum.State,
			"dates_processed": sum.DatesProcessed,
			"gaps":            len(sum.GapDates),
			"rows_written":    sum.RowsWritten,
			"rows_unchanged":  sum.RowsUnchanged,
			"rows_rejected":   sum.RowsRejected,
			"rows_failed":     sum.RowsFailed,
		}).Info("Category backfill finished")
	}()

	start := opts.From
	if opts.Resume {
		latest, err := o.store.LatestScoredDate(ctx, sum.Category, opts.From, opts.To)
		if err != nil {
			sum.Err = fmt.Errorf("resume lookup: %w", err)
			sum.ResumeFrom = &start
			sum.finish(false)
			if contracts.IsFatal(err) {
				return sum.Err
			}
			return nil
		}
		if latest != nil {
			start = latest.AddDate(0, 0, 1)
			log.WithField("resume_from", contracts.DateString(start)).Info("Resuming after latest scored date")
		}
	}

	sum.State = contracts.BackfillRunning

	for date := start; !date.After(opts.To); date = date.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			d := date
			sum.ResumeFrom = &d
			sum.finish(true)
			log.WithField("resume_from", contracts.DateString(d)).Warn("Backfill interrupted between dates")
			return nil
		}

		result, failures, err := o.runDate(ctx, sum.Category, date, opts.Force)
		if errors.Is(err, errInterrupted) {
			d := date
			sum.ResumeFrom = &d
			sum.finish(true)
			log.WithField("resume_from", contracts.DateString(d)).Warn("Backfill interrupted before date")
			return nil
		}
		sum.add(result, failures)
		if err != nil {
			d := date
			sum.Err = err
			sum.ResumeFrom = &d
			sum.finish(false)
			log.WithError(err).Error("Fatal failure, halting category")
			return err
		}
		if !result.Gap {
			sum.DatesProcessed++
		}
	}

	sum.finish(false)
	return nil
}

// errInterrupted means ctx was cancelled before any write for the date
var errInterrupted = errors.New("interrupted")

// runDate ranks, scores and upserts one (category, date). Only the raw fetch
// observes ctx cancellation; once writing starts the date runs to completion.
func (o *Orchestrator) runDate(ctx context.Context, category contracts.Category, date time.Time, force bool) (DateResult, []error, error) {
	result := DateResult{Date: date}
	log := o.logger.WithCategory(category.String()).WithDate(date)

	raws, err := o.source.FetchRawStats(ctx, category, date)
	if err != nil {
		if ctx.Err() != nil {
			return result, nil, errInterrupted
		}
		result.Gap = true
		log.WithError(err).Warn("Raw source unavailable, marking date as gap")
		return result, nil, nil
	}

	valid, rejected := ranking.Partition(raws)
	result.Entities = len(raws)
	result.Rejected = len(rejected)
	for _, rerr := range rejected {
		log.WithError(rerr).Warn("Skipping malformed raw row")
	}

	assignment, err := o.assigner.Assign(category, date, valid)
	if err != nil {
		// Partition leaves nothing Assign rejects; treat as all rejected
		result.Rejected += len(valid)
		log.WithError(err).Error("Rank assignment failed")
		return result, append(rejected, err), nil
	}

	wctx := context.WithoutCancel(ctx)
	g, gctx := errgroup.WithContext(wctx)
	g.SetLimit(o.cfg.EntityWorkers)

	var mu sync.Mutex
	failures := rejected

	for _, raw := range valid {
		g.Go(func() error {
			outcome, err := o.processEntity(gctx, category, date, raw, assignment, force)

			mu.Lock()
			defer mu.Unlock()

			switch outcome {
			case outcomeWritten:
				result.Written++
			case outcomeUnchanged:
				result.Unchanged++
			case outcomeRejected:
				result.Rejected++
				failures = append(failures, err)
				log.WithEntity(raw.EntityID).WithError(err).Warn("Skipping entity")
			case outcomeFailed:
				result.Failed++
				failures = append(failures, err)
				log.WithEntity(raw.EntityID).WithError(err).Error("Row failed")
			}

			if contracts.IsFatal(err) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, failures, err
	}

	log.WithFields(map[string]interface{}{
		"entities":  result.Entities,
		"ranked":    assignment.Size(),
		"processed": result.Processed(),
		"written":   result.Written,
		"unchanged": result.Unchanged,
		"rejected":  result.Rejected,
		"failed":    result.Failed,
	}).Info("Date processed")

	return result, failures, nil
}

type outcome int

const (
	outcomeWritten outcome = iota
	outcomeUnchanged
	outcomeRejected
	outcomeFailed
)

// processEntity scores one entity from strictly earlier rows and writes it
func (o *Orchestrator) processEntity(ctx context.Context, category contracts.Category, date time.Time, raw contracts.RawStat, assignment *ranking.Assignment, force bool) (outcome, error) {
	rowErr := func(err error) (outcome, error) {
		return outcomeFailed, &contracts.RowPersistenceError{EntityID: raw.EntityID, Category: category, Date: date, Err: err}
	}

	history, err := o.history(ctx, raw.EntityID, category, date)
	if err != nil {
		return rowErr(err)
	}

	rank := assignment.RankOf(raw.EntityID)
	fields, err := o.scorer.Score(trend.Today{
		EntityID:    raw.EntityID,
		Date:        date,
		OrderCount:  raw.OrderCount,
		TotalPoints: raw.TotalPoints,
		Rank:        rank,
		RankedTotal: assignment.RankedTotal,
	}, history)
	if err != nil {
		var ihe *contracts.InsufficientHistoryError
		if errors.As(err, &ihe) {
			return outcomeRejected, err
		}
		return rowErr(err)
	}

	row := &contracts.DailyEntityStat{
		EntityID:    raw.EntityID,
		Category:    category,
		StatDate:    date,
		OrderCount:  raw.OrderCount,
		TotalPoints: *raw.TotalPoints,
		Rank:        rank,
		Derived:     fields,
	}

	if !force {
		existing, err := o.store.GetRow(ctx, raw.EntityID, category, date)
		switch {
		case err == nil:
			if sameRow(existing, row) {
				return outcomeUnchanged, nil
			}
		case errors.Is(err, contracts.ErrNotFound):
		default:
			return rowErr(err)
		}
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return rowErr(err)
		}
	}

	if err := o.store.UpsertRow(ctx, row); err != nil {
		return rowErr(err)
	}
	return outcomeWritten, nil
}

// history returns the trailing window before date plus, when the window has
// no scored row, the latest scored row from further back
func (o *Orchestrator) history(ctx context.Context, entityID int64, category contracts.Category, date time.Time) ([]contracts.DailyEntityStat, error) {
	history, err := o.store.GetHistory(ctx, entityID, category, date, o.scorer.WindowDays()-1)
	if err != nil {
		return nil, err
	}

	for i := range history {
		if history[i].Scored() {
			return history, nil
		}
	}

	older, err := o.store.LatestScoredBefore(ctx, entityID, category, date)
	if errors.Is(err, contracts.ErrNotFound) {
		return history, nil
	}
	if err != nil {
		return nil, err
	}
	return append(history, *older), nil
}

// sameRow compares everything the upsert would write
func sameRow(a, b *contracts.DailyEntityStat) bool {
	if !a.Scored() || !b.Scored() {
		return false
	}
	if a.OrderCount != b.OrderCount || a.TotalPoints != b.TotalPoints {
		return false
	}
	if (a.Rank == nil) != (b.Rank == nil) || (a.Rank != nil && *a.Rank != *b.Rank) {
		return false
	}
	return a.Derived.Equal(b.Derived)
}
