package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/brensch/kickoff/sexp"
	"github.com/brensch/kickoff/world"
)

func newTestHandler() *Handler {
	return New(world.NewModel("gophers"), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustHandle(t *testing.T, h *Handler, text string) []Tag {
	t.Helper()
	tags, err := h.HandleRaw([]byte(text))
	if err != nil {
		t.Fatalf("HandleRaw(%q): %v", text, err)
	}
	return tags
}

func TestTagTable(t *testing.T) {
	for _, name := range []string{"see", "hear", "sense_body", "player_type", "player_param",
		"server_param", "init", "reconnect", "ok", "error", "warning"} {
		tag, ok := ParseTag(name)
		if !ok {
			t.Errorf("ParseTag(%q) not found", name)
			continue
		}
		if tag.String() != name {
			t.Errorf("Tag(%d).String() = %q, want %q", tag, tag.String(), name)
		}
	}
	if _, ok := ParseTag("unknown"); ok {
		t.Error("\"unknown\" must not resolve to a tag")
	}
}

func TestSeeAllKinds(t *testing.T) {
	h := newTestHandler()
	mustHandle(t, h, "(init l 7 before_kick_off)")
	mustHandle(t, h, `(see 12 ((f c) 10.5 -20) ((f t l 50) 30 5) ((f r t) 15) `+
		`((b) 5.2 10 0.1 -0.2) ((p "gophers" 7 goalie) 8 -3 0 0 45 10) ((p "rivals" 2) 20 4) `+
		`((g r) 40 2) ((l b) 20 -80) ((F)) ((P)) ((G)))`)

	st := h.Model().State()
	if st.Time != 12 {
		t.Errorf("time = %d, want 12", st.Time)
	}
	if len(st.Flags) != 4 || len(st.Players) != 3 || len(st.Goals) != 2 || len(st.Lines) != 1 {
		t.Fatalf("unexpected counts: flags=%d players=%d goals=%d lines=%d",
			len(st.Flags), len(st.Players), len(st.Goals), len(st.Lines))
	}

	if st.Flags[1].ID != "tl50" {
		t.Errorf("flag id = %q, want tl50", st.Flags[1].ID)
	}
	dirOnly := st.Flags[2]
	if dirOnly.Distance != nil || dirOnly.Direction == nil || *dirOnly.Direction != 15 {
		t.Errorf("direction-only flag = %+v", dirOnly.Percept)
	}
	if hidden := st.Flags[3]; hidden.Distance != nil || hidden.Direction != nil || hidden.ID != "" {
		t.Errorf("out-of-view flag has fields: %+v", hidden)
	}

	b := st.Ball
	if b == nil || *b.Distance != 5.2 || *b.DistanceChange != 0.1 || *b.DirectionChange != -0.2 {
		t.Fatalf("ball = %+v", b)
	}

	mate := st.Players[0]
	if mate.Team == nil || *mate.Team != "gophers" || mate.Side != world.SideLeft {
		t.Errorf("team mate = %+v", mate)
	}
	if mate.UniformNumber == nil || *mate.UniformNumber != 7 || !mate.Goalie {
		t.Errorf("team mate identity = %+v", mate)
	}
	if mate.BodyDirection == nil || *mate.BodyDirection != 45 || *mate.NeckDirection != 10 {
		t.Errorf("team mate directions = %+v", mate)
	}
	if opp := st.Players[1]; opp.Side != world.SideRight || opp.Goalie || opp.DistanceChange != nil {
		t.Errorf("opponent = %+v", opp)
	}
	if unseen := st.Players[2]; unseen.Team != nil || unseen.Distance != nil {
		t.Errorf("out-of-view player = %+v", unseen)
	}
	if st.Goals[0].ID != "r" || st.Lines[0].ID != "b" {
		t.Errorf("goal %q line %q", st.Goals[0].ID, st.Lines[0].ID)
	}
}

func TestSeeReplacesWholesale(t *testing.T) {
	h := newTestHandler()
	mustHandle(t, h, "(see 1 ((f c) 10 0) ((b) 3 4) ((p) 5 6) ((g l) 50 1) ((l t) 20 30))")
	mustHandle(t, h, "(see 2)")

	st := h.Model().State()
	if st.Ball != nil || len(st.Flags) != 0 || len(st.Players) != 0 || len(st.Goals) != 0 || len(st.Lines) != 0 {
		t.Errorf("second see must leave empty collections, got %+v", st)
	}
	if st.Time != 2 {
		t.Errorf("time = %d, want 2", st.Time)
	}
}

func TestSeeUnknownObject(t *testing.T) {
	h := newTestHandler()
	mustHandle(t, h, "(see 1 ((f c) 10 0))")

	tag, err := h.Handle(sexp.List(sexp.String("see"), sexp.Int(2),
		sexp.List(sexp.List(sexp.String("x")), sexp.Int(1), sexp.Int(2))))
	if tag != TagSee {
		t.Errorf("tag = %v, want see", tag)
	}
	if !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected ErrUnknownObject, got %v", err)
	}
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Tag != "see" {
		t.Fatalf("expected *ProtocolError for see, got %#v", err)
	}
	if st := h.Model().State(); st.Time != 1 || len(st.Flags) != 1 {
		t.Errorf("failed see must not change the world: %+v", st)
	}
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{name: "unknown tag", text: "(frobnicate 1 2)", want: ErrUnknownMessage},
		{name: "bare atom", text: "hello", want: ErrMalformed},
		{name: "empty list", text: "()", want: ErrMalformed},
		{name: "empty datagram", text: "\x00", want: ErrMalformed},
		{name: "unbalanced", text: "(see 1 ((b) 1 2)", want: sexp.ErrUnbalanced},
		{name: "see without time", text: "(see)", want: ErrMalformed},
		{name: "see with float time", text: "(see 1.5)", want: ErrMalformed},
		{name: "see with atom object", text: "(see 1 45)", want: ErrMalformed},
		{name: "init bad side", text: "(init x 1 before_kick_off)", want: ErrMalformed},
		{name: "init numeric play mode", text: "(init l 1 7)", want: ErrMalformed},
		{name: "init referee call as play mode", text: "(init l 1 foul_r)", want: ErrMalformed},
		{name: "param without value", text: "(server_param (goal_width))", want: ErrMalformed},
		{name: "player type without id", text: "(player_type (player_speed_max 1.2))", want: ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler()
			_, err := h.HandleRaw([]byte(tt.text))
			if !errors.Is(err, tt.want) {
				t.Fatalf("HandleRaw(%q) error = %v, want %v", tt.text, err, tt.want)
			}
			var pe *ProtocolError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ProtocolError, got %T", err)
			}
		})
	}
}

func TestUnknownTagReportsName(t *testing.T) {
	h := newTestHandler()
	tag, err := h.Handle(sexp.List(sexp.String("frobnicate"), sexp.Int(1), sexp.Int(2)))
	if tag != TagUnknown {
		t.Errorf("tag = %v, want unknown", tag)
	}
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Tag != "frobnicate" {
		t.Fatalf("expected protocol error naming frobnicate, got %v", err)
	}
}

func TestSenseBody(t *testing.T) {
	h := newTestHandler()
	mustHandle(t, h, "(sense_body 31 (view_mode high normal) (stamina 7993.5 0.98 130600) "+
		"(speed 0.42 -12) (head_angle 30) (kick 2) (dash 14) (turn 5) (say 1) (turn_neck 3) "+
		"(catch 0) (move 1) (change_view 4) (arm (movable 0) (expires 0) (target 0 0) (count 0)) "+
		"(focus (target none) (count 0)) (collision none))")

	b := h.Model().Body()
	if b.Time != 31 {
		t.Errorf("time = %d", b.Time)
	}
	if b.ViewMode != (world.ViewMode{Quality: "high", Width: "normal"}) {
		t.Errorf("view mode = %+v", b.ViewMode)
	}
	if *b.Stamina != 7993.5 || *b.Effort != 0.98 || *b.Capacity != 130600 {
		t.Errorf("stamina = %v %v %v", *b.Stamina, *b.Effort, *b.Capacity)
	}
	if *b.SpeedAmount != 0.42 || *b.SpeedDirection != -12 || *b.HeadAngle != 30 {
		t.Errorf("speed/head = %v %v %v", *b.SpeedAmount, *b.SpeedDirection, *b.HeadAngle)
	}
	want := world.Counters{Kick: 2, Dash: 14, Turn: 5, Say: 1, TurnNeck: 3, Catch: 0, Move: 1, ChangeView: 4}
	if b.Counters != want {
		t.Errorf("counters = %+v, want %+v", b.Counters, want)
	}
}

func TestServerParamOnce(t *testing.T) {
	h := newTestHandler()
	mustHandle(t, h, `(server_param (goal_width 14.02) (maxmoment 90) (game_log_dir "/tmp/logs"))`)
	mustHandle(t, h, "(server_param (maxmoment 45))")

	p := h.Model().ServerParams()
	if v, _ := p.Float("maxmoment"); v != 90 {
		t.Errorf("maxmoment = %v, want 90", v)
	}
	if v, _ := p.Float("goal_width"); v != 14.02 {
		t.Errorf("goal_width = %v", v)
	}
	if v, ok := p.Get("game_log_dir"); !ok || v.Str != "/tmp/logs" {
		t.Errorf("game_log_dir = %+v", v)
	}
}

func TestPlayerParamAndTypes(t *testing.T) {
	h := newTestHandler()
	mustHandle(t, h, "(player_param (player_types 18) (subs_max 3))")
	mustHandle(t, h, "(player_type (id 4) (player_speed_max 1.15) (kickable_margin 0.72))")

	if v, _ := h.Model().PlayerParams().Float("player_types"); v != 18 {
		t.Errorf("player_types = %v", v)
	}
	pt, ok := h.Model().PlayerType(4)
	if !ok {
		t.Fatal("player type 4 missing")
	}
	if v, _ := pt.Float("kickable_margin"); v != 0.72 {
		t.Errorf("kickable_margin = %v", v)
	}
}

func TestInitAndReconnect(t *testing.T) {
	h := newTestHandler()
	mustHandle(t, h, "(init r 9 kick_off_l)")
	st := h.Model().State()
	if st.Side != world.SideRight || st.UniformNumber != 9 || st.PlayMode != world.KickOffL {
		t.Errorf("after init: %+v", st)
	}

	mustHandle(t, h, "(reconnect l play_on)")
	st = h.Model().State()
	if st.Side != world.SideLeft || st.UniformNumber != 9 || st.PlayMode != world.PlayOn {
		t.Errorf("after reconnect: %+v", st)
	}
}

func TestHearReferee(t *testing.T) {
	h := newTestHandler()
	mustHandle(t, h, "(hear 0 referee kick_off_l)")
	if pm := h.Model().State().PlayMode; pm != world.KickOffL {
		t.Errorf("play mode = %s", pm)
	}
	mustHandle(t, h, "(hear 340 referee goal_r_1)")
	mustHandle(t, h, "(hear 900 referee goal_l_2)")
	st := h.Model().State()
	if st.ScoreLeft != 2 || st.ScoreRight != 1 || st.LastReferee != "goal_l_2" {
		t.Errorf("score %d:%d last %q", st.ScoreLeft, st.ScoreRight, st.LastReferee)
	}
	if st.PlayMode != world.KickOffL {
		t.Errorf("goal announcement must not change play mode, got %s", st.PlayMode)
	}
	mustHandle(t, h, "(hear 6000 referee time_up)")
	if pm := h.Model().State().PlayMode; pm != world.TimeOver {
		t.Errorf("play mode after time_up = %s", pm)
	}
}

func TestPlayModesOutsideTheTable(t *testing.T) {
	h := newTestHandler()
	mustHandle(t, h, "(init r 4 indirect_free_kick_r)")
	if pm := h.Model().State().PlayMode; pm != world.IndirectFreeKickR {
		t.Errorf("play mode after init = %s", pm)
	}
	mustHandle(t, h, "(reconnect r penalty_setup_l)")
	if pm := h.Model().State().PlayMode; pm != world.PenaltySetupL {
		t.Errorf("play mode after reconnect = %s", pm)
	}
	mustHandle(t, h, "(init l 5 illegal_defense_l)")
	if pm := h.Model().State().PlayMode; pm != world.PlayMode("illegal_defense_l") {
		t.Errorf("unknown play mode not stored, got %s", pm)
	}

	tests := []struct {
		message string
		want    world.PlayMode
	}{
		{message: "back_pass_l", want: world.BackPassL},
		{message: "foul_charge_r", want: world.BackPassL},
		{message: "catch_fault_r", want: world.CatchFaultR},
		{message: "goalie_catch_ball_l", want: world.CatchFaultR},
		{message: "half_time", want: world.CatchFaultR},
		{message: "free_kick_fault_l", want: world.FreeKickFaultL},
		{message: "time_extended", want: world.FreeKickFaultL},
		{message: "some_future_mode", want: world.PlayMode("some_future_mode")},
		{message: "time_up_without_a_team", want: world.TimeOver},
	}
	for i, tt := range tests {
		mustHandle(t, h, fmt.Sprintf("(hear %d referee %s)", i+1, tt.message))
		st := h.Model().State()
		if st.PlayMode != tt.want || st.LastReferee != tt.message {
			t.Errorf("after %s: play mode %s last %q, want %s", tt.message, st.PlayMode, st.LastReferee, tt.want)
		}
	}
}

func TestHearPlayer(t *testing.T) {
	h := newTestHandler()
	mustHandle(t, h, `(hear 55 -30 our 7 "pass")`)
	heard := h.Model().State().LastHeard
	if heard == nil || heard.Time != 55 || *heard.Direction != -30 || heard.Team != "our" ||
		*heard.UniformNumber != 7 || heard.Message != "pass" {
		t.Fatalf("heard = %+v", heard)
	}
	mustHandle(t, h, "(hear 56 self hello)")
	if heard := h.Model().State().LastHeard; heard.Sender != "self" || heard.Direction != nil {
		t.Errorf("heard self = %+v", heard)
	}
}

func TestServerErrorAndWarning(t *testing.T) {
	h := newTestHandler()
	tags, err := h.HandleRaw([]byte("(error no_more_team_or_player_or_goalie)"))
	var se *ServerError
	if !errors.As(err, &se) || se.Message != "no_more_team_or_player_or_goalie" {
		t.Fatalf("expected *ServerError, got %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("tags = %v", tags)
	}

	if _, err := h.HandleRaw([]byte("(warning message_too_long)")); err != nil {
		t.Errorf("warning must not fail: %v", err)
	}
	if _, err := h.HandleRaw([]byte("(ok say)")); err != nil {
		t.Errorf("ok must not fail: %v", err)
	}
}

func TestHandleRawSeveralMessages(t *testing.T) {
	h := newTestHandler()
	tags := mustHandle(t, h, "(init l 1 before_kick_off) (sense_body 0 (kick 0))\x00")
	if len(tags) != 2 || tags[0] != TagInit || tags[1] != TagSenseBody {
		t.Errorf("tags = %v", tags)
	}
}

func TestConcurrentHandleNoTornCollections(t *testing.T) {
	h := newTestHandler()
	const objects = 10

	var msg strings.Builder
	msg.WriteString("(see %d")
	for i := 0; i < objects; i++ {
		fmt.Fprintf(&msg, " ((f p l %d) %d 5)", i, i+1)
	}
	msg.WriteString(")")

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if n := len(h.Model().State().Flags); n != 0 && n != objects {
					t.Errorf("reader saw %d flags", n)
					return
				}
			}
		}()
	}

	var writers sync.WaitGroup
	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func(w int) {
			defer writers.Done()
			for i := 0; i < 200; i++ {
				if _, err := h.HandleRaw([]byte(fmt.Sprintf(msg.String(), w*1000+i))); err != nil {
					t.Errorf("HandleRaw: %v", err)
					return
				}
			}
		}(w)
	}
	writers.Wait()
	close(stop)
	readers.Wait()

	if n := len(h.Model().State().Flags); n != objects {
		t.Errorf("final flags = %d, want %d", n, objects)
	}
}
