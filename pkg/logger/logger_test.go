package logger

import (
	"fmt"
	"testing"
)

type recorder struct {
	lines []string
}

func (r *recorder) record(level, msg string, kv []any) {
	r.lines = append(r.lines, fmt.Sprint(level, " ", msg, " ", kv))
}

func (r *recorder) Log(m string, kv ...any)   { r.record("log", m, kv) }
func (r *recorder) Debug(m string, kv ...any) { r.record("debug", m, kv) }
func (r *recorder) Info(m string, kv ...any)  { r.record("info", m, kv) }
func (r *recorder) Warn(m string, kv ...any)  { r.record("warn", m, kv) }
func (r *recorder) Error(m string, kv ...any) { r.record("error", m, kv) }
func (r *recorder) Fatal(m string, kv ...any) { r.record("fatal", m, kv) }

func TestFanOut(t *testing.T) {
	defer func() { singleton = nil }()

	a, b := &recorder{}, &recorder{}
	Init(a, b)

	Info("Uploaded file", "key", "a.parquet")
	Warn("Slow", "ms", 12)
	Debug("details")

	want := []string{
		"info Uploaded file [key a.parquet]",
		"warn Slow [ms 12]",
		"debug details []",
	}
	for _, r := range []*recorder{a, b} {
		if len(r.lines) != len(want) {
			t.Fatalf("lines = %v, want %v", r.lines, want)
		}
		for i := range want {
			if r.lines[i] != want[i] {
				t.Fatalf("line %d = %q, want %q", i, r.lines[i], want[i])
			}
		}
	}
}

func TestBeforeInitIsDropped(t *testing.T) {
	singleton = nil
	Error("nobody listens", "err", "x")
	Fatal("still nobody")
}
