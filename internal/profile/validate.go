package profile

import (
	"fmt"
	"regexp"
	"time"

	"github.com/wonny/trendscore/pkg/config"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var profileIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// Validate checks the profile's own constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(p *Profile) error {
	// === Meta ===
	if p.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}
	if !profileIDPattern.MatchString(p.Meta.ProfileID) {
		return ValidationError{"meta.profile_id", "must match [a-z0-9_-]"}
	}

	// === Trend ===
	if p.Trend.CapSteps < 0 {
		return ValidationError{"trend.cap_steps", "must be >= 0"}
	}
	if p.Trend.StepWeight < 0 {
		return ValidationError{"trend.step_weight", "must be >= 0"}
	}
	if p.Trend.MinMultiplier < 0 || p.Trend.MinMultiplier > 1 {
		return ValidationError{"trend.min_multiplier", "must be in (0, 1]"}
	}
	if p.Trend.MaxMultiplier != 0 && p.Trend.MaxMultiplier < 1 {
		return ValidationError{"trend.max_multiplier", "must be >= 1"}
	}
	if p.Trend.WindowDays < 0 {
		return ValidationError{"trend.window_days", "must be >= 1"}
	}
	if p.Trend.Epsilon < 0 {
		return ValidationError{"trend.epsilon", "must be > 0"}
	}

	// === Backfill ===
	if p.Backfill.EntityWorkers < 0 || p.Backfill.CategoryWorkers < 0 {
		return ValidationError{"backfill", "worker counts must be >= 1"}
	}
	if p.Backfill.SourceRetries < 0 {
		return ValidationError{"backfill.source_retries", "must be >= 0"}
	}
	if p.Backfill.SourceRetryDelay != "" {
		if _, err := time.ParseDuration(p.Backfill.SourceRetryDelay); err != nil {
			return ValidationError{"backfill.source_retry_delay", err.Error()}
		}
	}
	if p.Backfill.WritesPerSecond < 0 {
		return ValidationError{"backfill.writes_per_second", "must be >= 0"}
	}

	return nil
}

// Warnings returns soft violations of the effective trend constants
func Warnings(t config.TrendConfig) []Warning {
	var warnings []Warning

	// cap 도달 전에 clamp 되면 cap_steps가 무의미
	if float64(t.CapSteps)*t.StepWeight > t.MaxMultiplier-1 {
		warnings = append(warnings, Warning{
			Code:    "CLAMP_BEFORE_CAP",
			Message: fmt.Sprintf("cap_steps×step_weight=%.2f exceeds max_multiplier-1: rank gains saturate early", float64(t.CapSteps)*t.StepWeight),
		})
	}

	// 3일 미만 윈도우는 velocity/consistency가 거의 상수
	if t.WindowDays < 3 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_WINDOW",
			Message: "window_days < 3: velocity and consistency carry little signal",
		})
	}

	return warnings
}
