package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/oggyb/match-engine/internal/config"
)

func initBuffered(t *testing.T, c Config) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	c.Output = &buf
	Init(&c)
	t.Cleanup(func() { Init(&Config{Level: "info", Format: FormatText}) })
	return &buf
}

func TestLogger_TextFormat(t *testing.T) {
	out := initBuffered(t, Config{Level: "debug", Format: FormatText, Component: "test"})
	Info("swipe recorded", "swiper", 5)

	s := out.String()
	if !strings.Contains(s, "swipe recorded") {
		t.Errorf("expected message, got: %s", s)
	}
	if !strings.Contains(s, "component=test") {
		t.Errorf("expected component field, got: %s", s)
	}
	if !strings.Contains(s, "swiper=5") {
		t.Errorf("expected structured field, got: %s", s)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	out := initBuffered(t, Config{Level: "info", Format: FormatJSON, Component: "json_test"})
	Info("match created", "match_id", "42")

	s := out.String()
	if !strings.Contains(s, `"msg":"match created"`) {
		t.Errorf("expected JSON message, got: %s", s)
	}
	if !strings.Contains(s, `"component":"json_test"`) {
		t.Errorf("expected component in JSON, got: %s", s)
	}
	if !strings.Contains(s, `"match_id":"42"`) {
		t.Errorf("expected structured field in JSON, got: %s", s)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	out := initBuffered(t, Config{Level: "error", Format: FormatText})
	Info("should not appear")
	Error("should appear")

	s := out.String()
	if strings.Contains(s, "should not appear") {
		t.Errorf("info log should not appear, got: %s", s)
	}
	if !strings.Contains(s, "should appear") {
		t.Errorf("error log should appear, got: %s", s)
	}
}

func TestLogger_WithAddsFields(t *testing.T) {
	out := initBuffered(t, Config{Level: "debug", Format: FormatText})
	With("req_id", "123").Info("processing request")

	if !strings.Contains(out.String(), "req_id=123") {
		t.Errorf("expected req_id field, got: %s", out.String())
	}
}

func TestLogger_InitFromConfig(t *testing.T) {
	c := &config.Config{}
	c.Log.Level = "debug"
	c.Log.Format = "JSON"
	c.Log.Component = "cfg_test"

	InitFromConfig(c)
	t.Cleanup(func() { Init(&Config{Level: "info", Format: FormatText}) })

	mu.RLock()
	got := cfg
	mu.RUnlock()

	if got.Format != FormatJSON {
		t.Errorf("expected json format, got %q", got.Format)
	}
	if got.Component != "cfg_test" || got.Level != "debug" {
		t.Errorf("unexpected config: %+v", got)
	}
	if L() == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNew_DoesNotReplaceGlobal(t *testing.T) {
	global := L()

	var buf bytes.Buffer
	local := New(Config{Level: "warn", Format: FormatText, Output: &buf})
	local.Warn("local only")

	if L() != global {
		t.Error("New must not replace the global logger")
	}
	if !strings.Contains(buf.String(), "local only") {
		t.Errorf("expected local output, got: %s", buf.String())
	}
}
