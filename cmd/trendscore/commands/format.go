package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/trendscore/internal/backfill"
	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/internal/schema"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// RunMetadata holds run header metadata
type RunMetadata struct {
	Title      string
	Period     *Period // Optional
	Categories []contracts.Category
	Flags      []string
}

// Period represents a date range
type Period struct {
	StartDate string
	EndDate   string
}

// PrintRunHeader prints a formatted run header
func PrintRunHeader(meta RunMetadata) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", meta.Title)
	PrintSeparator()

	// Optional period
	if meta.Period != nil {
		fmt.Printf("  Period     : %s ~ %s\n", meta.Period.StartDate, meta.Period.EndDate)
	}

	if len(meta.Categories) > 0 {
		names := make([]string, len(meta.Categories))
		for i, c := range meta.Categories {
			names[i] = c.String()
		}
		fmt.Printf("  Categories : %s\n", strings.Join(names, ", "))
	}

	if len(meta.Flags) > 0 {
		fmt.Printf("  Flags      : %s\n", strings.Join(meta.Flags, " "))
	}

	PrintSeparator()
	fmt.Printf("Started at %s\n", time.Now().Format("2006-01-02 15:04:05"))
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintSchemaResult prints the apply-schema step counts
func PrintSchemaResult(result *schema.Result) {
	fmt.Println()
	widths := []int{44, 16}
	PrintTableHeader([]string{"CHANGE", "RESULT"}, widths)
	for _, ch := range result.Changes {
		PrintTableRow([]string{ch.Change.Name, string(ch.Result)}, widths)
	}
	PrintSeparator()
	fmt.Printf("  State          : %s\n", result.State)
	fmt.Printf("  Executed       : %d\n", result.Executed)
	fmt.Printf("  Already applied: %d\n", result.AlreadyApplied)
	fmt.Printf("  Duration       : %.2fs\n", result.Duration.Seconds())
}

// PrintVerifyReport prints failed verification checks
func PrintVerifyReport(report *schema.VerifyReport) {
	fmt.Println()
	if report.OK() {
		PrintSuccess(fmt.Sprintf("Schema verified (%d checks)", report.Passed))
		return
	}

	var missing []string
	for _, c := range report.Checks {
		if c.Present && c.Err == nil {
			continue
		}
		target := c.Table
		if c.Column != "" {
			target += "." + c.Column
		}
		if c.Err != nil {
			target += " (" + c.Err.Error() + ")"
		}
		missing = append(missing, target)
	}
	PrintWarning(fmt.Sprintf("Schema verification: %d passed, %d failed", report.Passed, report.Failed))
	PrintList(missing)
}

// stateLabel marks why a category is not Verified: gaps, or a stop before
// reaching a terminal state
func stateLabel(c *backfill.CategorySummary) string {
	label := string(c.State)
	switch {
	case !c.State.Terminal():
		label += "*"
	case len(c.GapDates) > 0:
		label += " (gap)"
	}
	return label
}

// PrintBackfillSummary prints per-category counters of a run
func PrintBackfillSummary(summary *backfill.Summary) {
	fmt.Println()
	widths := []int{16, 24, 7, 5, 9, 10, 9, 7, 12}
	PrintTableHeader([]string{"CATEGORY", "STATE", "DATES", "GAPS", "WRITTEN", "UNCHANGED", "REJECTED", "FAILED", "RESUME"}, widths)

	stopped := false
	for _, c := range summary.Categories {
		stopped = stopped || !c.State.Terminal()
		resume := "-"
		if c.ResumeFrom != nil {
			resume = contracts.DateString(*c.ResumeFrom)
		}
		PrintTableRow([]string{
			c.Category.String(),
			stateLabel(c),
			fmt.Sprint(c.DatesProcessed),
			fmt.Sprint(len(c.GapDates)),
			fmt.Sprint(c.RowsWritten),
			fmt.Sprint(c.RowsUnchanged),
			fmt.Sprint(c.RowsRejected),
			fmt.Sprint(c.RowsFailed),
			resume,
		}, widths)
	}
	PrintSeparator()
	if stopped {
		PrintInfo("* stopped before a terminal state; RESUME is the first unprocessed date")
	}

	for _, c := range summary.Categories {
		if c.Err != nil {
			PrintError(fmt.Sprintf("%s halted: %v", c.Category, c.Err))
		}
		if len(c.GapDates) > 0 {
			dates := make([]string, len(c.GapDates))
			for i, d := range c.GapDates {
				dates[i] = contracts.DateString(d)
			}
			PrintWarning(fmt.Sprintf("%s source gaps (not scored): %s", c.Category, strings.Join(dates, ", ")))
		}
		if len(c.Failures) > 0 {
			PrintWarning(fmt.Sprintf("%s row failures (first %d):", c.Category, len(c.Failures)))
			items := make([]string, len(c.Failures))
			for i, err := range c.Failures {
				items[i] = err.Error()
			}
			PrintList(items)
		}
	}

	fmt.Printf("  Rows processed : %d\n", summary.RowsProcessed())
	fmt.Printf("  Rows failed    : %d\n", summary.RowsFailed())
	fmt.Printf("  Gap dates      : %d\n", summary.Gaps())
	fmt.Printf("  Duration       : %.2fs\n", summary.Duration.Seconds())
	if summary.Interrupted {
		PrintWarning("Run interrupted; re-run with --resume to continue")
	}
}
