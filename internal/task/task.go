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

// Package task holds the raw task shape fetched from the external
// task-management service and the weighted wrapper the planner operates on.
package task

import "time"

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// Due is the polymorphic due value: either a pure date or a datetime, plus
// an optional original free-form string the remote service will re-parse.
// The two arms are kept distinct rather than collapsed into one timestamp,
// since a date-only due must never pick up a spurious 00:00:00 component.
type Due struct {
	HasTime  bool
	Date     time.Time
	String   string
	hasStr   bool
}

// NewDueDate builds a date-only Due value.
func NewDueDate(d time.Time) Due {
	return Due{HasTime: false, Date: d}
}

// NewDueDateTime builds a datetime Due value.
func NewDueDateTime(d time.Time) Due {
	return Due{HasTime: true, Date: d}
}

// WithString attaches the original free-form due string.
func (d Due) WithString(s string) Due {
	d.String = s
	d.hasStr = s != ""
	return d
}

// HasString reports whether the original free-form string was present.
func (d Due) HasString() bool {
	return d.hasStr
}

// DateOnly returns the calendar date portion, ignoring time-of-day.
func (d Due) DateOnly() time.Time {
	y, m, day := d.Date.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders the YYYY-MM-DD representation.
func (d Due) FormatDate() string {
	return d.Date.Format(dateLayout)
}

// FormatDateTime renders the YYYY-MM-DDTHH:MM:SS representation.
func (d Due) FormatDateTime() string {
	return d.Date.Format(dateTimeLayout)
}

// ParseDueDate parses a YYYY-MM-DD value.
func ParseDueDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// ParseDueDateTime parses a YYYY-MM-DDTHH:MM:SS value.
func ParseDueDateTime(s string) (time.Time, error) {
	return time.Parse(dateTimeLayout, s)
}

// Task is the raw record fetched from the external service. Fields beyond
// ID/Content/Labels/Priority/Due are opaque passthrough: this repo never
// inspects them, it only needs to round-trip them faithfully.
type Task struct {
	ID       string
	Content  string
	Labels   []string
	Priority int
	Due      *Due

	// Passthrough fields carried from the remote representation but never
	// read by planning logic.
	ProjectID    string
	SectionID    string
	ParentID     string
	CommentCount int
	IsCompleted  bool
	URL          string
}

// WeightedTask composes a Task with the non-negative cost a rule assigned
// it. Composition over inheritance: the remote Task shape stays immutable
// and this never needs to special-case a "weighted" subtype downstream.
type WeightedTask struct {
	Task   Task
	Weight int
}
