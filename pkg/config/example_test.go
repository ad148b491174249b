package config_test

import (
	"fmt"

	"github.com/wonny/trendscore/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	// Access configuration values
	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("Raw source: %s\n", cfg.RawSource)
	fmt.Printf("Trend window: %d days\n", cfg.Trend.WindowDays)
	fmt.Printf("Entity workers: %d\n", cfg.Backfill.EntityWorkers)
}
