package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestKVWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	kv := NewKV(zap.New(core))

	kv.Debug("debug msg", "operation", "collect")
	kv.Info("info msg")
	kv.Warn("warn msg", "rule", "collection_quantity")
	kv.Error("error msg", "error", "boom")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].ContextMap()["operation"] != "collect" {
		t.Fatalf("expected operation field, got %+v", entries[0].ContextMap())
	}
	if entries[3].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %v", entries[3].Level)
	}
}

func TestNewKVNilLogger(t *testing.T) {
	kv := NewKV(nil)
	kv.Info("dropped", "k", "v")
}
