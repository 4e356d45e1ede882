/*
Package zapadapter implements tracing with a zap logger.

Library packages of curvenet trace through tracing.Select and do not
depend on a concrete logger. Applications choose the logger; the curvenet
command registers this adapter under the key "zap":

	tracing.RegisterTraceAdapter("zap", zapadapter.GetAdapter(), false)

Every tracer has its own level, mapped onto a zap.AtomicLevel.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package zapadapter

import (
	"io"
	"os"

	"github.com/npillmayer/schuko/tracing"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Tracer implements tracing.Trace on top of a sugared zap logger.
type Tracer struct {
	log     *zap.SugaredLogger
	level   zap.AtomicLevel
	encoder zapcore.Encoder
}

var _ tracing.Trace = &Tracer{}

// New creates a tracer writing human readable lines to os.Stderr. The
// initial level is tracing.LevelError.
func New() tracing.Trace {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter creates a tracer writing human readable lines to w.
func NewWithWriter(w io.Writer) *Tracer {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	enc := zapcore.NewConsoleEncoder(cfg)
	level := zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return &Tracer{log: zap.New(core).Sugar(), level: level, encoder: enc}
}

// newWithCore wraps an existing core. level has to be the level enabler
// of core.
func newWithCore(core zapcore.Core, level zap.AtomicLevel) *Tracer {
	return &Tracer{log: zap.New(core).Sugar(), level: level}
}

// GetAdapter creates an adapter (i.e., factory for tracing.Trace) to be
// used to initialize (global) tracers.
func GetAdapter() tracing.Adapter {
	return New
}

// Errorf is part of interface Trace
func (t *Tracer) Errorf(s string, args ...interface{}) {
	t.log.Errorf(s, args...)
}

// Infof is part of interface Trace
func (t *Tracer) Infof(s string, args ...interface{}) {
	t.log.Infof(s, args...)
}

// Debugf is part of interface Trace
func (t *Tracer) Debugf(s string, args ...interface{}) {
	t.log.Debugf(s, args...)
}

// P is part of interface Trace. The returned tracer carries the field
// key=val and shares the level of t.
func (t *Tracer) P(key string, val interface{}) tracing.Trace {
	return &Tracer{log: t.log.With(key, val), level: t.level, encoder: t.encoder}
}

// SetTraceLevel is part of interface Trace
func (t *Tracer) SetTraceLevel(l tracing.TraceLevel) {
	t.level.SetLevel(ToZapLevel(l))
}

// GetTraceLevel is part of interface Trace
func (t *Tracer) GetTraceLevel() tracing.TraceLevel {
	return FromZapLevel(t.level.Level())
}

// SetOutput is part of interface Trace. Fields set with P are not carried
// over to the new output. Tracers wrapping a foreign core ignore it.
func (t *Tracer) SetOutput(w io.Writer) {
	if t.encoder == nil {
		return
	}
	core := zapcore.NewCore(t.encoder, zapcore.AddSync(w), t.level)
	t.log = zap.New(core).Sugar()
}

// Sync flushes buffered output.
func (t *Tracer) Sync() error {
	return t.log.Sync()
}

// ToZapLevel maps a trace level to a zap level.
func ToZapLevel(l tracing.TraceLevel) zapcore.Level {
	switch l {
	case tracing.LevelDebug:
		return zapcore.DebugLevel
	case tracing.LevelInfo:
		return zapcore.InfoLevel
	}
	return zapcore.ErrorLevel
}

// FromZapLevel maps a zap level to the nearest trace level.
func FromZapLevel(l zapcore.Level) tracing.TraceLevel {
	switch {
	case l <= zapcore.DebugLevel:
		return tracing.LevelDebug
	case l <= zapcore.WarnLevel:
		return tracing.LevelInfo
	}
	return tracing.LevelError
}
