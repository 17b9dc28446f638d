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

// Package retry implements C6: exponential-jittered backoff around any
// fallible call, with an attempt ceiling read from RETRY_ATTEMPTS. No error
// kind is special-cased, per spec.md §4.6 - the remote distinguishes only by
// HTTP status and transient network errors are indistinguishable here.
package retry

import (
	"context"
	"os"
	"strconv"
	"time"

	retrygo "github.com/avast/retry-go"

	"github.com/postpwn/postpwn/internal/logging"
)

const (
	defaultAttempts = 3
	maxDelay        = 120 * time.Second
	envAttempts     = "RETRY_ATTEMPTS"
)

// Wrapper bundles the attempt ceiling read once at construction time,
// matching the teacher's retry policy being fixed for the process lifetime.
type Wrapper struct {
	attempts uint
}

// New reads RETRY_ATTEMPTS from the environment (default 3) and returns a
// Wrapper bound to that ceiling.
func New() *Wrapper {
	attempts := defaultAttempts
	if v := os.Getenv(envAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			attempts = n
		}
	}
	return &Wrapper{attempts: uint(attempts)}
}

// Do retries fn up to the wrapper's attempt ceiling with exponential,
// jittered backoff capped at 120s, logging before and after each attempt,
// and re-raising the final failure unchanged.
func (w *Wrapper) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	log := logging.FromContext(ctx)

	return retrygo.Do(
		func() error {
			log.Debugw("attempting", "op", label)
			err := fn(ctx)
			log.Debugw("attempted", "op", label, "err", err)
			return err
		},
		retrygo.Context(ctx),
		retrygo.Attempts(w.attempts),
		retrygo.DelayType(retrygo.CombineDelay(retrygo.BackOffDelay, retrygo.RandomDelay)),
		retrygo.MaxDelay(maxDelay),
		retrygo.LastErrorOnly(true),
	)
}

// DoValue is Do's generic counterpart for calls that return a value
// alongside an error - the remote fetch (C8.filter) needs its result back
// out, not just success/failure.
func DoValue[T any](ctx context.Context, w *Wrapper, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := w.Do(ctx, label, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
