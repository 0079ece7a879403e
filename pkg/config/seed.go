package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed начальные пороги и задачи отчетов
type Seed struct {
	Thresholds []ThresholdSeed `yaml:"thresholds"`
	Reports    []ReportSeed    `yaml:"reports"`
}

type ThresholdSeed struct {
	MetricKey          string   `yaml:"metric_key"`
	Info               *float64 `yaml:"info"`
	Warning            float64  `yaml:"warning"`
	Critical           float64  `yaml:"critical"`
	Comparison         string   `yaml:"comparison"`
	HysteresisPct      float64  `yaml:"hysteresis_pct"`
	HysteresisAbsolute float64  `yaml:"hysteresis_absolute"`
}

type ReportSeed struct {
	Name       string   `yaml:"name"`
	Cadence    string   `yaml:"cadence"`
	Recipients []string `yaml:"recipients"`
	Sections   []string `yaml:"sections"`
	MetricKeys []string `yaml:"metric_keys"`
	Enabled    *bool    `yaml:"enabled"`
}

// LoadSeed reads a seed file. An empty path yields an empty seed.
func LoadSeed(path string) (*Seed, error) {
	if strings.TrimSpace(path) == "" {
		return &Seed{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	return ParseSeed(raw)
}

// ParseSeed decodes seed YAML and rejects entries without identity.
func ParseSeed(raw []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[string]bool, len(seed.Thresholds))
	for i, t := range seed.Thresholds {
		if t.MetricKey == "" {
			return nil, fmt.Errorf("thresholds[%d]: metric_key is required", i)
		}
		if seen[t.MetricKey] {
			return nil, fmt.Errorf("thresholds[%d]: duplicate metric_key %q", i, t.MetricKey)
		}
		seen[t.MetricKey] = true
		if t.Comparison == "" {
			seed.Thresholds[i].Comparison = "above"
		}
	}
	for i, r := range seed.Reports {
		if r.Name == "" {
			return nil, fmt.Errorf("reports[%d]: name is required", i)
		}
		if r.Cadence == "" {
			return nil, fmt.Errorf("reports[%d]: cadence is required", i)
		}
	}

	return &seed, nil
}
