package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/internal/schema"
)

var applySchemaCategory string

// applySchemaCmd represents the apply-schema command
var applySchemaCmd = &cobra.Command{
	Use:   "apply-schema",
	Short: "파생 컬럼/인덱스 스키마 적용",
	Long: `카테고리 테이블에 파생 필드 컬럼과 인덱스를 적용합니다.

이미 존재하는 컬럼/인덱스는 ALREADY_APPLIED로 처리되며
여러 번 실행해도 안전합니다. 적용 후 모든 컬럼을 검증합니다.

Example:
  go run ./cmd/trendscore apply-schema
  go run ./cmd/trendscore apply-schema --category brand`,
	RunE: runApplySchema,
}

func init() {
	rootCmd.AddCommand(applySchemaCmd)
	applySchemaCmd.Flags().StringVar(&applySchemaCategory, "category", "", "comma-separated categories (default all)")
}

func runApplySchema(cmd *cobra.Command, args []string) error {
	categories, err := contracts.ParseCategories(applySchemaCategory)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	PrintRunHeader(RunMetadata{Title: "Apply Schema", Categories: categories})

	var changes []schema.Change
	for _, c := range categories {
		changes = append(changes, schema.ForCategory(c)...)
	}

	m := a.migrator()
	result, err := m.Apply(cmd.Context(), changes)
	if result != nil {
		PrintSchemaResult(result)
	}
	if err != nil {
		PrintError(err.Error())
		return fmt.Errorf("apply schema: %w", err)
	}

	// Verification failures are reported, not fatal
	PrintVerifyReport(m.Verify(cmd.Context()))
	PrintSuccess("Schema applied")
	return nil
}
