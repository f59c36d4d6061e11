// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

// Package log provides the process-wide structured logger. Every
// forge component logs through here with typed fields (target, rule key,
// output path) rather than formatted strings, so a log aggregator can
// filter by field instead of grepping messages.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once sync.Once
	l    *zap.SugaredLogger
)

// L returns the process-wide sugared logger, initializing a sane
// production-ish console logger on first use.
func L() *zap.SugaredLogger {
	once.Do(func() {
		cfg := zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
		logger, err := cfg.Build()
		if err != nil {
			// Fall back to a no-op logger rather than panicking — logging
			// must never be why a build fails.
			logger = zap.NewNop()
		}
		l = logger.Sugar()
	})
	return l
}

// SetForTest installs a logger for the duration of a test and returns a
// restore function.
func SetForTest(logger *zap.SugaredLogger) func() {
	once.Do(func() {}) // ensure once is consumed so L() won't overwrite us
	prev := l
	l = logger
	return func() { l = prev }
}
