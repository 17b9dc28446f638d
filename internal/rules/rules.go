/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package rules loads and validates the rule file (§4.1 of the reschedule
// planner spec): per-weekday or flat capacity budgets, and the label-to-weight
// rule set used to classify tasks.
package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/postpwn/postpwn/internal/logging"
)

// defaultCapacity is used when no rule file is provided (§4.1).
const defaultCapacity = 10

// Rule is one label-to-weight mapping, parsed from the rule file.
type Rule struct {
	Filter string `json:"filter"`
	Weight *int   `json:"weight,omitempty"`
	Limit  *int   `json:"limit,omitempty"`
}

// Label returns the rule's label key, the filter string with its leading
// '@' stripped.
func (r Rule) Label() string {
	return strings.TrimPrefix(r.Filter, "@")
}

// WeekdayCapacity is a per-weekday capacity record, Monday..Sunday.
type WeekdayCapacity struct {
	Monday    int `json:"monday"`
	Tuesday   int `json:"tuesday"`
	Wednesday int `json:"wednesday"`
	Thursday  int `json:"thursday"`
	Friday    int `json:"friday"`
	Saturday  int `json:"saturday"`
	Sunday    int `json:"sunday"`
}

func (w WeekdayCapacity) forWeekday(d time.Weekday) int {
	switch d {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	default:
		return w.Sunday
	}
}

func (w WeekdayCapacity) ceiling() int {
	ceil := w.Monday
	for _, v := range []int{w.Tuesday, w.Wednesday, w.Thursday, w.Friday, w.Saturday, w.Sunday} {
		if v > ceil {
			ceil = v
		}
	}
	return ceil
}

// rawConfig is the on-disk JSON shape; max_weight is either an int or an
// object, so it is decoded manually in Load.
type rawConfig struct {
	MaxWeight json.RawMessage `json:"max_weight"`
	Rules     []Rule          `json:"rules"`
}

// Config is the validated, loaded rule set.
type Config struct {
	flatCapacity int
	weekday      *WeekdayCapacity
	capCeiling   int

	// weightByLabel is built only from rules that specify a weight, per
	// spec.md §9: a rule with no weight is ignored for classification.
	weightByLabel map[string]int
	// labelOrder preserves insertion order for deterministic fingerprinting
	// and diagnostics; lookups themselves use weightByLabel.
	labelOrder []string
	// isExplicit is true once a rule file was loaded, even an empty one, so
	// HasRules reflects "a rule file was present" rather than "something matched".
	isExplicit bool
}

// Default returns the zero-rules configuration used when no rule file is
// supplied: flat capacity 10, no rules, every task classified with weight 0.
func Default() *Config {
	return &Config{
		flatCapacity: defaultCapacity,
		capCeiling:   defaultCapacity,
	}
}

// HasRules reports whether a rule file was loaded. When false, C2 classifies
// every task with weight 0 instead of dropping non-matches.
func (c *Config) HasRules() bool {
	return c.isExplicit
}

// CapacityFor returns the weight budget for the given date.
func (c *Config) CapacityFor(d time.Time) int {
	if c.weekday != nil {
		return c.weekday.forWeekday(d.Weekday())
	}
	return c.flatCapacity
}

// WeightFor returns the weight for a label, or (0, false) if no rule with an
// explicit weight matches it.
func (c *Config) WeightFor(label string) (int, bool) {
	w, ok := c.weightByLabel[label]
	return w, ok
}

// CapCeiling is the largest capacity across any day, used for pre-flight
// rule validation (§3 invariant, §4.1).
func (c *Config) CapCeiling() int {
	return c.capCeiling
}

// Load reads and validates the rule file at path. An empty path returns the
// default configuration. The file is checked for existence before being
// opened, mirroring original_source's `os.path.exists` guard.
func Load(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logging.FromContext(ctx).Infow("rule file not found, using defaults", "path", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("statting rule file %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}

	return LoadBytes(ctx, data)
}

// LoadBytes parses and validates a rule document already in memory,
// skipping the filesystem existence check Load performs. Exported
// primarily so tests can construct a Config without a temp file.
func LoadBytes(ctx context.Context, data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing rule document: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("validating rule document: %w", err)
	}

	if fp, err := hashstructure.Hash(raw, hashstructure.FormatV2, nil); err == nil {
		logging.FromContext(ctx).Infow("loaded rule config", "fingerprint", fmt.Sprintf("%x", fp), "rules", len(cfg.labelOrder))
	}

	return cfg, nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	cfg := &Config{
		weightByLabel: map[string]int{},
		isExplicit:    true,
	}

	flat, weekday, err := parseMaxWeight(raw.MaxWeight)
	if err != nil {
		return nil, err
	}
	cfg.weekday = weekday
	if weekday != nil {
		cfg.flatCapacity = 0
		cfg.capCeiling = weekday.ceiling()
	} else {
		cfg.flatCapacity = flat
		cfg.capCeiling = flat
	}

	for _, r := range raw.Rules {
		if strings.TrimSpace(r.Filter) == "" {
			return nil, fmt.Errorf("rule has empty filter")
		}
		if r.Weight != nil && *r.Weight <= 0 {
			return nil, fmt.Errorf("rule %q: weight must be a positive integer", r.Filter)
		}
		if r.Limit != nil && *r.Limit <= 0 {
			return nil, fmt.Errorf("rule %q: limit must be a positive integer", r.Filter)
		}
		if r.Weight == nil {
			// Ignored for classification purposes (spec.md §9 Open Question).
			continue
		}
		if *r.Weight > cfg.capCeiling {
			return nil, fmt.Errorf("rule %q: weight %d exceeds max capacity %d", r.Filter, *r.Weight, cfg.capCeiling)
		}
		label := r.Label()
		if _, exists := cfg.weightByLabel[label]; !exists {
			cfg.labelOrder = append(cfg.labelOrder, label)
		}
		cfg.weightByLabel[label] = *r.Weight
	}

	return cfg, nil
}

func parseMaxWeight(raw json.RawMessage) (int, *WeekdayCapacity, error) {
	if len(raw) == 0 {
		return 0, nil, fmt.Errorf("max_weight is required")
	}

	var flat int
	if err := json.Unmarshal(raw, &flat); err == nil {
		if flat <= 0 {
			return 0, nil, fmt.Errorf("max_weight must be a positive integer")
		}
		return flat, nil, nil
	}

	var weekday WeekdayCapacity
	if err := json.Unmarshal(raw, &weekday); err != nil {
		return 0, nil, fmt.Errorf("max_weight must be an integer or a complete per-weekday object: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err == nil {
		for _, field := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
			if _, ok := probe[field]; !ok {
				return 0, nil, fmt.Errorf("max_weight per-weekday object missing field %q", field)
			}
		}
	}

	return 0, &weekday, nil
}
