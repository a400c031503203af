// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package log is the structured leveled logger facade every engine
// component logs through (parser, cache, resolver, orchestrator, taint
// engine). Call sites pass alternating key/value pairs, e.g.
// logger.Warn("parser.treesitter.go.syntax_errors", "path", path, "count", n).
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled logging interface every package in this module
// depends on, never on *zap.Logger directly, so tests can swap in a no-op
// or recording implementation.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

type zapLogger struct {
	z *zap.SugaredLogger
}

// New builds a zap-backed Logger. jsonOutput selects JSON encoding
// (for machine-readable logs, e.g. CI) over the human-readable console
// encoder used by the CLI by default.
func New(jsonOutput bool, level zapcore.Level) Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if jsonOutput {
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), level)
	return &zapLogger{z: zap.New(core).Sugar()}
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.z.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.z.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.z.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.z.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...any) Logger {
	return &zapLogger{z: l.z.With(kv...)}
}

// Nop is a logger that discards everything, used as the default when a
// component is constructed without an explicit Logger (tests, library
// callers that don't want engine logs).
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)  {}
func (nopLogger) Info(string, ...any)   {}
func (nopLogger) Warn(string, ...any)   {}
func (nopLogger) Error(string, ...any)  {}
func (n nopLogger) With(...any) Logger  { return n }

// global is the process-wide default logger, initialised to Nop and
// explicitly swappable rather than ambient: callers that want engine-wide
// logging call SetGlobal once at startup; everything else defaults to Nop.
var (
	globalMu  sync.RWMutex
	globalLog Logger = Nop
)

// SetGlobal installs l as the process-wide default logger.
func SetGlobal(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLog = l
}

// Global returns the process-wide default logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLog
}
