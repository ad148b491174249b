package profile

import (
	"time"

	"github.com/wonny/trendscore/pkg/config"
)

// Profile is a versioned set of trend constants and backfill tuning.
// Zero values keep the environment configuration.
// ⭐ SSOT: 트렌드 상수 프로필 구조는 여기서만 정의
type Profile struct {
	Meta     Meta            `yaml:"meta" json:"meta"`
	Trend    TrendSection    `yaml:"trend" json:"trend"`
	Backfill BackfillSection `yaml:"backfill" json:"backfill"`
}

// Meta identifies the profile
type Meta struct {
	ProfileID   string `yaml:"profile_id" json:"profile_id"`
	Description string `yaml:"description" json:"description"`
}

// TrendSection overrides config.TrendConfig
type TrendSection struct {
	CapSteps      int     `yaml:"cap_steps" json:"cap_steps"`
	StepWeight    float64 `yaml:"step_weight" json:"step_weight"`
	MinMultiplier float64 `yaml:"min_multiplier" json:"min_multiplier"`
	MaxMultiplier float64 `yaml:"max_multiplier" json:"max_multiplier"`
	WindowDays    int     `yaml:"window_days" json:"window_days"`
	Epsilon       float64 `yaml:"epsilon" json:"epsilon"`
}

// BackfillSection overrides config.BackfillConfig
type BackfillSection struct {
	EntityWorkers    int     `yaml:"entity_workers" json:"entity_workers"`
	CategoryWorkers  int     `yaml:"category_workers" json:"category_workers"`
	SourceRetries    int     `yaml:"source_retries" json:"source_retries"`
	SourceRetryDelay string  `yaml:"source_retry_delay" json:"source_retry_delay"` // Go duration, e.g. "2s"
	WritesPerSecond  float64 `yaml:"writes_per_second" json:"writes_per_second"`
	Strict           *bool   `yaml:"strict" json:"strict"`
}

// Apply overlays the profile onto cfg
func (p *Profile) Apply(cfg *config.Config) {
	t := &cfg.Trend
	if p.Trend.CapSteps > 0 {
		t.CapSteps = p.Trend.CapSteps
	}
	if p.Trend.StepWeight > 0 {
		t.StepWeight = p.Trend.StepWeight
	}
	if p.Trend.MinMultiplier > 0 {
		t.MinMultiplier = p.Trend.MinMultiplier
	}
	if p.Trend.MaxMultiplier > 0 {
		t.MaxMultiplier = p.Trend.MaxMultiplier
	}
	if p.Trend.WindowDays > 0 {
		t.WindowDays = p.Trend.WindowDays
	}
	if p.Trend.Epsilon > 0 {
		t.Epsilon = p.Trend.Epsilon
	}

	b := &cfg.Backfill
	if p.Backfill.EntityWorkers > 0 {
		b.EntityWorkers = p.Backfill.EntityWorkers
	}
	if p.Backfill.CategoryWorkers > 0 {
		b.CategoryWorkers = p.Backfill.CategoryWorkers
	}
	if p.Backfill.SourceRetries > 0 {
		b.SourceRetries = p.Backfill.SourceRetries
	}
	if d, err := time.ParseDuration(p.Backfill.SourceRetryDelay); err == nil && d > 0 {
		b.SourceRetryDelay = d
	}
	if p.Backfill.WritesPerSecond > 0 {
		b.WritesPerSecond = p.Backfill.WritesPerSecond
	}
	if p.Backfill.Strict != nil {
		b.Strict = *p.Backfill.Strict
	}
}
