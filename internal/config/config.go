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

// Package config holds the assembled run options (C9) - the flag/env
// surface of spec.md §6, defaulted with mergo the same way the teacher
// merges partial structs in pkg/controllers/provisioning/provisioner.go.
package config

import (
	"os"

	"github.com/imdario/mergo"
)

const (
	// DefaultFilter is the query used when --filter is not supplied.
	DefaultFilter = "!assigned to:others & !no date & !recurring & no deadline"
	// DefaultTimeZone is the IANA zone used when --time-zone is not supplied.
	DefaultTimeZone = "Etc/UTC"
	// EnvToken is the environment variable providing the default --token value.
	EnvToken = "TODOIST_USER_TOKEN"
	// EnvMetricsAddr optionally overrides the metrics listener address.
	EnvMetricsAddr = "POSTPWN_METRICS_ADDR"
)

// Options is the fully assembled set of run parameters.
type Options struct {
	Filter      string
	RulesPath   string
	DryRun      bool
	Token       string
	TimeZone    string
	Schedule    string
	MetricsAddr string
	Debug       bool
}

// Defaults returns the zero-value-filling defaults for every field a flag
// did not explicitly set.
func Defaults() Options {
	return Options{
		Filter:   DefaultFilter,
		TimeZone: DefaultTimeZone,
		Token:    os.Getenv(EnvToken),
	}
}

// WithDefaults merges opts over Defaults(): any field opts leaves at its
// zero value falls back to the default, matching the CLI's per-flag
// default behavior without a chain of manual if-empty checks.
func WithDefaults(opts Options) (Options, error) {
	merged := Defaults()
	if err := mergo.Merge(&merged, opts, mergo.WithOverride); err != nil {
		return Options{}, err
	}
	return merged, nil
}
