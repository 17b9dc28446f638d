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

// Package todoist implements C8: the thin adapter translating the remote
// task-management service's REST API into the two verbs the core consumes,
// filter and update.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/postpwn/postpwn/internal/task"
)

const baseURL = "https://api.todoist.com/rest/v2"

// AuthError marks a 401/403 response, the distinct error class the retry
// wrapper will exhaust (spec.md §4.8).
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("todoist: authentication failed (status %d)", e.Status)
}

// UpdatePayload is the subset of update fields the core ever sends:
// exactly one of DueDate/DueDateTime, plus an optional DueString. DueLang is
// carried for forward compatibility with the upstream API (spec.md §9) but
// is never populated by this repo's dispatcher.
type UpdatePayload struct {
	DueDate     string
	DueDateTime string
	DueString   string
	DueLang     string
}

// Client is the HTTP adapter to the remote task service. The underlying
// http.Client is safe for concurrent use, which C5's concurrent update
// fan-out depends on (spec.md §5).
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a Client authenticated with token.
func NewClient(token string) *Client {
	return NewClientWithBaseURL(token, baseURL)
}

// NewClientWithBaseURL builds a Client against a non-default base URL, for
// tests that stand up a fake server in place of the remote service.
func NewClientWithBaseURL(token, base string) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    base,
	}
}

// Filter fetches the tasks matching query. An empty query returns an empty
// slice without a request, matching spec.md §4.8. Retries must re-invoke
// Filter itself, not re-iterate a consumed result - it returns a plain
// slice rather than a stream, so every call already re-fetches fresh data.
func (c *Client) Filter(ctx context.Context, query string) ([]task.Task, error) {
	if query == "" {
		return nil, nil
	}

	u := fmt.Sprintf("%s/tasks?filter=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading task response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching tasks: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return decodeTasks(body)
}

// Update pushes the new due value for taskID. Only the fields set on
// payload are sent.
func (c *Client) Update(ctx context.Context, taskID string, payload UpdatePayload) error {
	body, err := encodeUpdate(payload)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/tasks/%s", c.baseURL, url.PathEscape(taskID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", taskID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("updating task %s: unexpected status %d: %s", taskID, resp.StatusCode, string(b))
	}

	return nil
}

// decodeTasks uses gjson for the "due" object specifically, since its shape
// is polymorphic (date-only vs datetime, optional original string) in a way
// a single static struct tag set can't cleanly express, then falls back to
// encoding/json for the flat fields.
func decodeTasks(body []byte) ([]task.Task, error) {
	results := gjson.ParseBytes(body).Array()
	tasks := make([]task.Task, 0, len(results))

	for _, r := range results {
		var flat struct {
			ID           string   `json:"id"`
			Content      string   `json:"content"`
			Labels       []string `json:"labels"`
			Priority     int      `json:"priority"`
			ProjectID    string   `json:"project_id"`
			SectionID    string   `json:"section_id"`
			ParentID     string   `json:"parent_id"`
			CommentCount int      `json:"comment_count"`
			IsCompleted  bool     `json:"is_completed"`
			URL          string   `json:"url"`
		}
		if err := json.Unmarshal([]byte(r.Raw), &flat); err != nil {
			return nil, fmt.Errorf("decoding task: %w", err)
		}

		t := task.Task{
			ID:           flat.ID,
			Content:      flat.Content,
			Labels:       flat.Labels,
			Priority:     flat.Priority,
			ProjectID:    flat.ProjectID,
			SectionID:    flat.SectionID,
			ParentID:     flat.ParentID,
			CommentCount: flat.CommentCount,
			IsCompleted:  flat.IsCompleted,
			URL:          flat.URL,
		}

		if due, err := decodeDue(r.Get("due")); err != nil {
			return nil, err
		} else if due != nil {
			t.Due = due
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}

func decodeDue(due gjson.Result) (*task.Due, error) {
	if !due.Exists() {
		return nil, nil
	}

	var d task.Due
	if dt := due.Get("datetime"); dt.Exists() && dt.String() != "" {
		ts, err := task.ParseDueDateTime(dt.String())
		if err != nil {
			return nil, fmt.Errorf("parsing due.datetime: %w", err)
		}
		d = task.NewDueDateTime(ts)
	} else if dateStr := due.Get("date"); dateStr.Exists() {
		ts, err := task.ParseDueDate(dateStr.String())
		if err != nil {
			return nil, fmt.Errorf("parsing due.date: %w", err)
		}
		d = task.NewDueDate(ts)
	} else {
		return nil, nil
	}

	if s := due.Get("string"); s.Exists() {
		d = d.WithString(s.String())
	}

	return &d, nil
}

// encodeUpdate builds the JSON body with sjson, setting only the fields the
// payload declares, mirroring the Python client's kwargs-subset semantics.
func encodeUpdate(p UpdatePayload) ([]byte, error) {
	body := []byte("{}")
	var err error

	if p.DueDateTime != "" {
		body, err = sjson.SetBytes(body, "due_datetime", p.DueDateTime)
	} else if p.DueDate != "" {
		body, err = sjson.SetBytes(body, "due_date", p.DueDate)
	}
	if err != nil {
		return nil, err
	}

	if p.DueString != "" {
		if body, err = sjson.SetBytes(body, "due_string", p.DueString); err != nil {
			return nil, err
		}
	}
	if p.DueLang != "" {
		if body, err = sjson.SetBytes(body, "due_lang", p.DueLang); err != nil {
			return nil, err
		}
	}

	return body, nil
}
