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

// Package logging carries a structured logger on a context.Context, the
// same way karpenter-core threads a logger through its reconcile loops.
package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// NewZap builds the process-wide zap logger. Debug level in development,
// matching the teacher's cmd entrypoints which default to verbose logging.
func NewZap(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// NewContext returns a context carrying the given logger.
func NewContext(ctx context.Context, log *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stashed on ctx, or a no-op logger if none
// was set. Never returns nil so callers never need a nil check.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if log, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && log != nil {
		return log
	}
	return zap.NewNop().Sugar()
}
