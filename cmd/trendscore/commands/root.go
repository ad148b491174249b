package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose     bool
	strict      bool
	profilePath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trendscore",
	Short: "일별 엔티티 성과 집계 및 트렌드 스코어링 엔진",
	Long: `Trendscore Unified CLI

카테고리별(제조사, 품종, 상품, 약국, 브랜드) 일별 성과를 집계하고
순위와 트렌드 지표(previous rank, multiplier, consistency, velocity,
streak, market share)를 계산합니다.

Usage:
  go run ./cmd/trendscore [command]

Examples:
  go run ./cmd/trendscore apply-schema
  go run ./cmd/trendscore backfill --from 2024-01-01 --to 2024-03-31
  go run ./cmd/trendscore compute-today
  go run ./cmd/trendscore scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "YAML trend profile (default TREND_PROFILE)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "row failures cause a non-zero exit (default BACKFILL_STRICT)")
}
