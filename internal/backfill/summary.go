package backfill

import (
	"time"

	"github.com/wonny/trendscore/internal/contracts"
)

// maxRecordedFailures caps the row errors kept per category for reporting
const maxRecordedFailures = 50

// DateResult holds the counters of one (category, date) pass
type DateResult struct {
	Date      time.Time
	Gap       bool // source unavailable after retries; nothing written
	Entities  int
	Written   int
	Unchanged int
	Rejected  int // malformed raw input
	Failed    int // compute or persist failure
}

// Processed returns rows that ended with current derived fields
func (r DateResult) Processed() int {
	return r.Written + r.Unchanged
}

// CategorySummary aggregates a category's backfill
type CategorySummary struct {
	Category       contracts.Category
	State          contracts.BackfillState
	From           time.Time
	To             time.Time
	DatesProcessed int
	GapDates       []time.Time
	RowsWritten    int
	RowsUnchanged  int
	RowsRejected   int
	RowsFailed     int
	Failures       []error
	ResumeFrom     *time.Time // first unprocessed date when stopped early
	Err            error      // fatal error that halted the category
	Duration       time.Duration
}

// RowsProcessed returns written plus unchanged rows
func (s *CategorySummary) RowsProcessed() int {
	return s.RowsWritten + s.RowsUnchanged
}

func newCategorySummary(category contracts.Category, from, to time.Time) *CategorySummary {
	return &CategorySummary{
		Category: category,
		State:    contracts.BackfillPending,
		From:     from,
		To:       to,
	}
}

func (s *CategorySummary) add(r DateResult, failures []error) {
	if r.Gap {
		s.GapDates = append(s.GapDates, r.Date)
		return
	}
	s.RowsWritten += r.Written
	s.RowsUnchanged += r.Unchanged
	s.RowsRejected += r.Rejected
	s.RowsFailed += r.Failed

	for _, err := range failures {
		if len(s.Failures) >= maxRecordedFailures {
			break
		}
		s.Failures = append(s.Failures, err)
	}
}

// finish moves the category to its terminal state unless it stopped early.
// A gap date was never scored, so the category cannot be Verified.
func (s *CategorySummary) finish(interrupted bool) {
	switch {
	case s.Err != nil || s.RowsFailed > 0 || len(s.GapDates) > 0:
		s.State = contracts.BackfillPartiallyFailed
	case interrupted:
		// stays Backfilling; ResumeFrom marks where to pick up
	default:
		s.State = contracts.BackfillVerified
	}
}

// Summary is the structured result of a backfill run
type Summary struct {
	From        time.Time
	To          time.Time
	Force       bool
	Categories  []*CategorySummary
	Interrupted bool
	Duration    time.Duration
}

// RowsFailed returns failed rows across categories
func (s *Summary) RowsFailed() int {
	n := 0
	for _, c := range s.Categories {
		n += c.RowsFailed
	}
	return n
}

// Gaps returns gap dates across categories
func (s *Summary) Gaps() int {
	n := 0
	for _, c := range s.Categories {
		n += len(c.GapDates)
	}
	return n
}

// RowsProcessed returns processed rows across categories
func (s *Summary) RowsProcessed() int {
	n := 0
	for _, c := range s.Categories {
		n += c.RowsProcessed()
	}
	return n
}

// PartiallyFailed reports whether any category ended PartiallyFailed
func (s *Summary) PartiallyFailed() bool {
	for _, c := range s.Categories {
		if c.State == contracts.BackfillPartiallyFailed {
			return true
		}
	}
	return false
}
