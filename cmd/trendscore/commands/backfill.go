package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/trendscore/internal/backfill"
	"github.com/wonny/trendscore/internal/contracts"
)

var (
	backfillFrom     string
	backfillTo       string
	backfillCategory string
	backfillForce    bool
	backfillResume   bool
)

// backfillCmd represents the backfill command
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "기간 백필 (순위 + 트렌드 지표)",
	Long: `지정 기간의 모든 날짜에 대해 순위와 트렌드 지표를 계산합니다.
실행 전 스키마를 적용하며(이미 있으면 건너뜀) 실패 시 즉시 종료합니다.

카테고리는 병렬, 날짜는 오름차순 순차 처리됩니다.
변경이 없는 행은 쓰지 않으며 --force로 강제 재기록합니다.
Ctrl+C는 날짜 경계에서 중단하고 --resume로 이어서 실행합니다.

Example:
  go run ./cmd/trendscore backfill --from 2024-01-01 --to 2024-03-31
  go run ./cmd/trendscore backfill --from 2024-01-01 --to 2024-03-31 --category brand,product --force
  go run ./cmd/trendscore backfill --from 2024-01-01 --to 2024-03-31 --resume`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "first date (YYYY-MM-DD)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "last date (YYYY-MM-DD)")
	backfillCmd.Flags().StringVar(&backfillCategory, "category", "", "comma-separated categories (default all)")
	backfillCmd.Flags().BoolVar(&backfillForce, "force", false, "overwrite rows even when unchanged")
	backfillCmd.Flags().BoolVar(&backfillResume, "resume", false, "skip dates already scored")
	_ = backfillCmd.MarkFlagRequired("from")
	_ = backfillCmd.MarkFlagRequired("to")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	opts, err := backfillOptions(backfillFrom, backfillTo, backfillCategory)
	if err != nil {
		return err
	}
	opts.Force = backfillForce
	opts.Resume = backfillResume

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var flags []string
	if opts.Force {
		flags = append(flags, "--force")
	}
	if opts.Resume {
		flags = append(flags, "--resume")
	}
	if a.cfg.Backfill.Strict {
		flags = append(flags, "--strict")
	}

	PrintRunHeader(RunMetadata{
		Title:      "Backfill",
		Period:     &Period{StartDate: backfillFrom, EndDate: backfillTo},
		Categories: opts.Categories,
		Flags:      flags,
	})

	return runOrchestrator(cmd.Context(), a, opts)
}

// backfillOptions parses the shared date/category flags
func backfillOptions(from, to, categories string) (backfill.Options, error) {
	fromDate, err := contracts.ParseDate(from)
	if err != nil {
		return backfill.Options{}, fmt.Errorf("--from: %w", err)
	}
	toDate, err := contracts.ParseDate(to)
	if err != nil {
		return backfill.Options{}, fmt.Errorf("--to: %w", err)
	}
	if toDate.Before(fromDate) {
		return backfill.Options{}, fmt.Errorf("--from %s is after --to %s", from, to)
	}
	cats, err := contracts.ParseCategories(categories)
	if err != nil {
		return backfill.Options{}, err
	}
	return backfill.Options{From: fromDate, To: toDate, Categories: cats}, nil
}

// runOrchestrator runs a backfill, stopping between dates on SIGINT/SIGTERM
func runOrchestrator(ctx context.Context, a *app, opts backfill.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := a.orchestrator().Run(ctx, opts)
	if summary != nil {
		PrintBackfillSummary(summary)
	}
	if err != nil {
		PrintError(err.Error())
		return fmt.Errorf("backfill: %w", err)
	}

	if err := exitStatus(summary, a.cfg.Backfill.Strict); err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess("Backfill completed")
	return nil
}
