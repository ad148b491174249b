package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/trendscore/internal/contracts"
)

var dataCheckCategory string

// dataCheckCmd represents the data check command
var dataCheckCmd = &cobra.Command{
	Use:   "data-check",
	Short: "카테고리 테이블 데이터 상태 확인",
	Long: `카테고리별 통계 테이블의 상태를 확인합니다 (읽기 전용).

확인 항목:
- 전체 행 수 / 스코어링된 행 수 (커버리지)
- 데이터 기간, 마지막 스코어링 날짜
- 순위 밀집도 위반 날짜 수 (1..N 이 아닌 날짜)
- DB 커넥션 풀 상태, Redis 캐시 응답 (REDIS_ENABLED=true 일 때)

Example:
  go run ./cmd/trendscore data-check
  go run ./cmd/trendscore data-check --category brand`,
	RunE: runDataCheck,
}

func init() {
	rootCmd.AddCommand(dataCheckCmd)
	dataCheckCmd.Flags().StringVar(&dataCheckCategory, "category", "", "comma-separated categories (default all)")
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	categories, err := contracts.ParseCategories(dataCheckCategory)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	fmt.Println("=== Trendscore Data Check ===")

	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		PrintError(fmt.Sprintf("Database unreachable: %v", err))
		return err
	}
	fmt.Printf("\n📡 DB 응답 %s (커넥션 %d/%d)\n", health.ResponseTime.Round(time.Millisecond), health.Stats.TotalConns, health.Stats.MaxConns)
	fmt.Println(cacheHealthLine(ctx, a.redis, a.redis.Key(rawCacheScope)))
	fmt.Println()

	widths := []int{16, 10, 10, 9, 12, 12, 12, 10}
	PrintTableHeader([]string{"CATEGORY", "ROWS", "SCORED", "COVERAGE", "FIRST", "LAST", "LAST SCORED", "RANK ERR"}, widths)

	var problems []string
	for _, c := range categories {
		stats, err := a.store.Stats(ctx, c)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", c, err))
			PrintTableRow([]string{c.String(), "-", "-", "-", "-", "-", "-", "-"}, widths)
			continue
		}

		PrintTableRow([]string{
			c.String(),
			fmt.Sprint(stats.Rows),
			fmt.Sprint(stats.ScoredRows),
			fmt.Sprintf("%.1f%%", stats.Coverage()*100),
			dateOrDash(stats.FirstDate),
			dateOrDash(stats.LastDate),
			dateOrDash(stats.LastScoredDate),
			fmt.Sprint(stats.RankViolations),
		}, widths)

		if stats.RankViolations > 0 {
			problems = append(problems, fmt.Sprintf("%s: %d dates with non-dense ranks", c, stats.RankViolations))
		}
	}
	PrintSeparator()

	if len(problems) > 0 {
		PrintWarning("Problems found:")
		PrintList(problems)
		return nil
	}

	PrintSuccess("All categories consistent")
	return nil
}

// pinger is satisfied by *redis.Client
type pinger interface {
	Enabled() bool
	Ping(ctx context.Context) (time.Duration, error)
}

// cacheHealthLine reports the raw-stat cache; an unreachable cache only
// slows runs down, so it is a warning rather than a failure
func cacheHealthLine(ctx context.Context, c pinger, prefix string) string {
	if !c.Enabled() {
		return "🗄️  캐시 비활성 (REDIS_ENABLED=false)"
	}
	rtt, err := c.Ping(ctx)
	if err != nil {
		return fmt.Sprintf("⚠️  캐시 응답 없음 (%s): %v", prefix, err)
	}
	return fmt.Sprintf("🗄️  캐시 응답 %s (%s)", rtt.Round(time.Millisecond), prefix)
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return contracts.DateString(*t)
}
