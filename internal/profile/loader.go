package profile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/trendscore/pkg/config"
)

// Load reads a YAML profile
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a YAML profile
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	if err := Validate(&p); err != nil {
		return nil, err
	}

	return &p, nil
}

// Hash returns the SHA256 of the effective trend constants (canonical JSON).
// Runs with the same hash produce the same derived fields from the same raw data.
func Hash(t config.TrendConfig) (string, error) {
	// Struct → JSON (결정적 순서)
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// LoadInto applies the profile at path onto cfg and validates the result
func LoadInto(path string, cfg *config.Config) (*Profile, []Warning, error) {
	p, err := Load(path)
	if err != nil {
		return nil, nil, err
	}

	p.Apply(cfg)
	if err := cfg.Trend.Validate(); err != nil {
		return nil, nil, ValidationError{"trend", err.Error()}
	}

	return p, Warnings(cfg.Trend), nil
}
