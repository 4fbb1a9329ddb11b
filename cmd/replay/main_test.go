package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/brensch/kickoff/capture"
	"github.com/brensch/kickoff/logging"
	"github.com/brensch/kickoff/world"
)

func rec(session string, seq int64, dir, payload string) capture.Record {
	return capture.Record{Session: session, Seq: seq, Direction: dir, Payload: []byte(payload)}
}

func TestReplay(t *testing.T) {
	records := []capture.Record{
		rec("a", 1, capture.Out, "(init gophers (version 11))"),
		rec("b", 1, capture.In, "(init r 4 before_kick_off)"),
		rec("a", 3, capture.In, "(see 5 ((b) 2.5 10) ((f c) 20 0))"),
		rec("a", 2, capture.In, "(init l 7 before_kick_off)"),
		rec("a", 4, capture.In, "(sense_body 5 (view_mode high normal) (kick 2))"),
		rec("a", 5, capture.In, "(frobnicate 1)"),
		rec("a", 6, capture.In, "(hear 5 referee play_on)"),
	}

	results := replay(records, "gophers", "", logging.Discard())
	if len(results) != 2 {
		t.Fatalf("got %d sessions, want 2", len(results))
	}
	a := results[0]
	if a.Session != "a" || a.Sent != 1 || a.Datagrams != 5 {
		t.Errorf("session a = %+v", a)
	}
	if a.State.Side != world.SideLeft || a.State.UniformNumber != 7 {
		t.Errorf("init not applied: side=%q unum=%d", a.State.Side, a.State.UniformNumber)
	}
	if a.State.Ball == nil || a.State.Time != 5 || len(a.State.Flags) != 1 {
		t.Errorf("see not applied: %+v", a.State)
	}
	if a.State.PlayMode != world.PlayOn {
		t.Errorf("play mode = %q", a.State.PlayMode)
	}
	if a.Body.Counters.Kick != 2 {
		t.Errorf("body = %+v", a.Body)
	}
	if len(a.Errors) != 1 || !strings.HasPrefix(a.Errors[0], "seq 5:") {
		t.Errorf("errors = %v", a.Errors)
	}

	b := results[1]
	if b.State.Side != world.SideRight || b.State.UniformNumber != 4 {
		t.Errorf("session b = %+v", b.State)
	}
}

func TestReplayFiltersSession(t *testing.T) {
	records := []capture.Record{
		rec("a", 1, capture.In, "(init l 1 before_kick_off)"),
		rec("b", 1, capture.In, "(init r 2 before_kick_off)"),
	}
	results := replay(records, "gophers", "b", logging.Discard())
	if len(results) != 1 || results[0].Session != "b" {
		t.Fatalf("results = %+v", results)
	}
	if got := replay(records, "gophers", "zzz", logging.Discard()); len(got) != 0 {
		t.Errorf("unknown session matched %d results", len(got))
	}
}

func TestWriteResults(t *testing.T) {
	results := replay([]capture.Record{rec("a", 1, capture.In, "(init l 3 play_on)")}, "gophers", "", logging.Discard())
	var buf bytes.Buffer
	if err := writeResults(&buf, results); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("not JSON: %v\n%s", err, buf.String())
	}
	state, ok := got["state"].(map[string]any)
	if !ok || state["uniform_number"] != float64(3) || state["play_mode"] != "play_on" {
		t.Errorf("state = %v", got["state"])
	}
}
