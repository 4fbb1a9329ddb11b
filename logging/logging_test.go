package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	log = log.With("session", "abc")
	log.Info("connected", "unum", 7, "error", errors.New("nope"), slog.Group("peer", "port", 6001))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got["msg"] != "connected" || got["level"] != "INFO" || got["session"] != "abc" {
		t.Errorf("entry = %v", got)
	}
	if got["unum"] != float64(7) || got["error"] != "nope" {
		t.Errorf("attrs = %v", got)
	}
	peer, ok := got["peer"].(map[string]any)
	if !ok || peer["port"] != float64(6001) {
		t.Errorf("group = %v", got["peer"])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestPrettyHandlerLevelAndGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %s", buf.String())
	}
	log.WithGroup("cycle").Warn("late", "ms", 12)
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	cycle, ok := got["cycle"].(map[string]any)
	if !ok || cycle["ms"] != float64(12) {
		t.Errorf("entry = %v", got)
	}
}

func TestPrettyHandlerDropsEmptyGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))
	log.WithGroup("agent").WithGroup("cycle").Info("idle", slog.Group("peer"))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"agent", "cycle", "peer"} {
		if _, ok := got[key]; ok {
			t.Errorf("empty group %q emitted: %v", key, got)
		}
	}

	buf.Reset()
	log.With("team", "gophers").WithGroup("agent").WithGroup("cycle").Info("busy", "ms", 3)
	got = nil
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	agent, ok := got["agent"].(map[string]any)
	if !ok {
		t.Fatalf("entry = %v", got)
	}
	if cycle, ok := agent["cycle"].(map[string]any); !ok || cycle["ms"] != float64(3) || got["team"] != "gophers" {
		t.Errorf("entry = %v", got)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "text", want: "msg=hello"},
		{format: "json", want: `"msg":"hello"`},
		{format: "pretty", want: `"msg": "hello"`},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := New(&buf, tt.format, slog.LevelInfo)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			log.Info("hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q missing %q", buf.String(), tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "INFO": slog.LevelInfo, " warn ": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
