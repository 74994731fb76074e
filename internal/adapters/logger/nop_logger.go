package logger

import "github.com/baditaflorin/go_robustness/internal/ports"

// NopLogger drops every message. Tests and benchmarks use it to keep output quiet.
type NopLogger struct{}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() ports.Logger { return NopLogger{} }

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{}) {}
func (NopLogger) Warn(string, ...interface{}) {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Close() error { return nil }
