package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/trendscore/internal/backfill"
	"github.com/wonny/trendscore/internal/contracts"
)

var (
	computeDate     string
	computeCategory string
)

// computeTodayCmd represents the compute-today command
var computeTodayCmd = &cobra.Command{
	Use:   "compute-today",
	Short: "오늘(또는 지정일) 트렌드 지표 계산",
	Long: `전일과 당일(STATS_TIMEZONE 기준)의 순위와 트렌드 지표를 계산합니다.
전일 원천 데이터가 자정 이후 확정되는 경우를 위해 전일도 다시 계산하며,
변경이 없는 행은 쓰지 않습니다. 스키마가 없으면 먼저 적용합니다.

Example:
  go run ./cmd/trendscore compute-today
  go run ./cmd/trendscore compute-today --date 2024-03-31`,
	RunE: runComputeToday,
}

func init() {
	rootCmd.AddCommand(computeTodayCmd)
	computeTodayCmd.Flags().StringVar(&computeDate, "date", "", "stat date (YYYY-MM-DD, default today)")
	computeTodayCmd.Flags().StringVar(&computeCategory, "category", "", "comma-separated categories (default all)")
}

func runComputeToday(cmd *cobra.Command, args []string) error {
	categories, err := contracts.ParseCategories(computeCategory)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date := a.today()
	if computeDate != "" {
		if date, err = contracts.ParseDate(computeDate); err != nil {
			return err
		}
	}
	from := date.AddDate(0, 0, -1)

	PrintRunHeader(RunMetadata{
		Title:      "Compute Today",
		Period:     &Period{StartDate: contracts.DateString(from), EndDate: contracts.DateString(date)},
		Categories: categories,
	})

	return runOrchestrator(cmd.Context(), a, backfill.Options{From: from, To: date, Categories: categories})
}
