package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/trendscore/internal/schema"
	"github.com/wonny/trendscore/pkg/logger"
)

// Verifier checks the tracked schema
type Verifier interface {
	Verify(ctx context.Context) *schema.VerifyReport
}

// SchemaVerifyJob checks daily that derived columns are still in place
type SchemaVerifyJob struct {
	verifier Verifier
	logger   *logger.Logger
}

// NewSchemaVerifyJob creates a new schema verification job
func NewSchemaVerifyJob(verifier Verifier, log *logger.Logger) *SchemaVerifyJob {
	return &SchemaVerifyJob{
		verifier: verifier,
		logger:   log,
	}
}

// Name returns the job name
func (j *SchemaVerifyJob) Name() string {
	return "schema_verify"
}

// Schedule returns the cron schedule
// Runs at 00:05 every day, ahead of the compute job
func (j *SchemaVerifyJob) Schedule() string {
	return "0 5 0 * * *"
}

// Run executes the job
func (j *SchemaVerifyJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled schema verification")

	report := j.verifier.Verify(ctx)
	if !report.OK() {
		return fmt.Errorf("schema verification: %d of %d checks failed", report.Failed, report.Passed+report.Failed)
	}
	return nil
}
