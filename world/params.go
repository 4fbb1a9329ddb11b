package world

import (
	"sort"
	"strconv"
)

// Param is one server tuning constant: a number or a string.
type Param struct {
	Num      float64
	Str      string
	IsString bool
}

func Num(v float64) Param { return Param{Num: v} }
func Str(s string) Param  { return Param{Str: s, IsString: true} }

func (p Param) String() string {
	if p.IsString {
		return p.Str
	}
	return strconv.FormatFloat(p.Num, 'g', -1, 64)
}

// Params is an immutable name -> value table. ServerParameters, player
// parameters and each heterogeneous player type share this shape.
type Params struct {
	values map[string]Param
}

// NewParams copies base and applies overrides on top.
func NewParams(base *Params, overrides map[string]Param) *Params {
	n := len(overrides)
	if base != nil {
		n += len(base.values)
	}
	values := make(map[string]Param, n)
	if base != nil {
		for k, v := range base.values {
			values[k] = v
		}
	}
	for k, v := range overrides {
		values[k] = v
	}
	return &Params{values: values}
}

func (p *Params) Get(name string) (Param, bool) {
	if p == nil {
		return Param{}, false
	}
	v, ok := p.values[name]
	return v, ok
}

// Float returns a numeric parameter.
func (p *Params) Float(name string) (float64, bool) {
	v, ok := p.Get(name)
	if !ok || v.IsString {
		return 0, false
	}
	return v.Num, true
}

// FloatOr returns a numeric parameter or def when absent.
func (p *Params) FloatOr(name string, def float64) float64 {
	if v, ok := p.Float(name); ok {
		return v
	}
	return def
}

func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.values)
}

// Names returns the parameter names in sorted order.
func (p *Params) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.values))
	for k := range p.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ServerParameters is the server's tuning table. Until server_param arrives
// it holds the reference server defaults.
type ServerParameters = Params

// DefaultServerParameters returns the reference server defaults.
func DefaultServerParameters() *ServerParameters {
	return NewParams(nil, defaultServerParams)
}

var defaultServerParams = map[string]Param{
	"audio_cut_dist":                 Num(50),
	"auto_mode":                      Num(0),
	"back_passes":                    Num(1),
	"ball_accel_max":                 Num(2.7),
	"ball_decay":                     Num(0.94),
	"ball_rand":                      Num(0.05),
	"ball_size":                      Num(0.085),
	"ball_speed_max":                 Num(2.7),
	"ball_stuck_area":                Num(3),
	"ball_weight":                    Num(0.2),
	"catch_ban_cycle":                Num(5),
	"catch_probability":              Num(1),
	"catchable_area_l":               Num(2),
	"catchable_area_w":               Num(1),
	"ckick_margin":                   Num(1),
	"clang_advice_win":               Num(1),
	"clang_define_win":               Num(1),
	"clang_del_win":                  Num(1),
	"clang_info_win":                 Num(1),
	"clang_mess_delay":               Num(50),
	"clang_mess_per_cycle":           Num(1),
	"clang_meta_win":                 Num(1),
	"clang_rule_win":                 Num(1),
	"clang_win_size":                 Num(300),
	"coach":                          Num(0),
	"coach_port":                     Num(6001),
	"coach_w_referee":                Num(0),
	"connect_wait":                   Num(300),
	"control_radius":                 Num(2),
	"dash_power_rate":                Num(0.006),
	"drop_ball_time":                 Num(200),
	"effort_dec":                     Num(0.005),
	"effort_dec_thr":                 Num(0.3),
	"effort_inc":                     Num(0.01),
	"effort_inc_thr":                 Num(0.6),
	"effort_init":                    Num(1),
	"effort_min":                     Num(0.6),
	"forbid_kick_off_offside":        Num(1),
	"free_kick_faults":               Num(1),
	"freeform_send_period":           Num(20),
	"freeform_wait_period":           Num(600),
	"fullstate_l":                    Num(0),
	"fullstate_r":                    Num(0),
	"game_log_compression":           Num(0),
	"game_log_dated":                 Num(1),
	"game_log_dir":                   Str("./"),
	"game_log_fixed":                 Num(0),
	"game_log_fixed_name":            Str("rcssserver"),
	"game_log_version":               Num(3),
	"game_logging":                   Num(1),
	"game_over_wait":                 Num(100),
	"goal_width":                     Num(14.02),
	"goalie_max_moves":               Num(2),
	"half_time":                      Num(300),
	"hear_decay":                     Num(1),
	"hear_inc":                       Num(1),
	"hear_max":                       Num(1),
	"inertia_moment":                 Num(5),
	"keepaway":                       Num(0),
	"keepaway_length":                Num(20),
	"keepaway_log_dated":             Num(1),
	"keepaway_log_dir":               Str("./"),
	"keepaway_log_fixed":             Num(0),
	"keepaway_log_fixed_name":        Str("rcssserver"),
	"keepaway_logging":               Num(1),
	"keepaway_start":                 Num(-1),
	"keepaway_width":                 Num(20),
	"kick_off_wait":                  Num(100),
	"kick_power_rate":                Num(0.027),
	"kick_rand":                      Num(0),
	"kick_rand_factor_l":             Num(1),
	"kick_rand_factor_r":             Num(1),
	"kickable_margin":                Num(0.7),
	"landmark_file":                  Str("~/.rcssserver-landmark.xml"),
	"log_date_format":                Str("%Y%m%d%H%M-"),
	"log_times":                      Num(0),
	"max_goal_kicks":                 Num(3),
	"maxmoment":                      Num(180),
	"maxneckang":                     Num(90),
	"maxneckmoment":                  Num(180),
	"maxpower":                       Num(100),
	"minmoment":                      Num(-180),
	"minneckang":                     Num(-90),
	"minneckmoment":                  Num(-180),
	"minpower":                       Num(-100),
	"nr_extra_halfs":                 Num(2),
	"nr_normal_halfs":                Num(2),
	"offside_active_area_size":       Num(2.5),
	"offside_kick_margin":            Num(9.15),
	"olcoach_port":                   Num(6002),
	"old_coach_hear":                 Num(0),
	"pen_allow_mult_kicks":           Num(1),
	"pen_before_setup_wait":          Num(30),
	"pen_coach_moves_players":        Num(1),
	"pen_dist_x":                     Num(42.5),
	"pen_max_extra_kicks":            Num(10),
	"pen_max_goalie_dist_x":          Num(14),
	"pen_nr_kicks":                   Num(5),
	"pen_random_winner":              Num(0),
	"pen_ready_wait":                 Num(50),
	"pen_setup_wait":                 Num(100),
	"pen_taken_wait":                 Num(200),
	"penalty_shoot_outs":             Num(1),
	"player_accel_max":               Num(1),
	"player_decay":                   Num(0.4),
	"player_rand":                    Num(0.1),
	"player_size":                    Num(0.3),
	"player_speed_max":               Num(1.2),
	"player_weight":                  Num(60),
	"point_to_ban":                   Num(5),
	"point_to_duration":              Num(20),
	"port":                           Num(6000),
	"prand_factor_l":                 Num(1),
	"prand_factor_r":                 Num(1),
	"profile":                        Num(0),
	"proper_goal_kicks":              Num(0),
	"quantize_step":                  Num(0.1),
	"quantize_step_l":                Num(0.01),
	"record_messages":                Num(0),
	"recover_dec":                    Num(0.002),
	"recover_dec_thr":                Num(0.3),
	"recover_init":                   Num(1),
	"recover_min":                    Num(0.5),
	"recv_step":                      Num(10),
	"say_coach_cnt_max":              Num(128),
	"say_coach_msg_size":             Num(128),
	"say_msg_size":                   Num(10),
	"send_comms":                     Num(0),
	"send_step":                      Num(150),
	"send_vi_step":                   Num(100),
	"sense_body_step":                Num(100),
	"simulator_step":                 Num(100),
	"slow_down_factor":               Num(1),
	"slowness_on_top_for_left_team":  Num(1),
	"slowness_on_top_for_right_team": Num(1),
	"stamina_inc_max":                Num(45),
	"stamina_max":                    Num(4000),
	"start_goal_l":                   Num(0),
	"start_goal_r":                   Num(0),
	"stopped_ball_vel":               Num(0.01),
	"synch_micro_sleep":              Num(1),
	"synch_mode":                     Num(0),
	"synch_offset":                   Num(60),
	"tackle_back_dist":               Num(0.5),
	"tackle_cycles":                  Num(10),
	"tackle_dist":                    Num(2),
	"tackle_exponent":                Num(6),
	"tackle_power_rate":              Num(0.027),
	"tackle_width":                   Num(1),
	"team_actuator_noise":            Num(0),
	"text_log_compression":           Num(0),
	"text_log_dated":                 Num(1),
	"text_log_dir":                   Str("./"),
	"text_log_fixed":                 Num(0),
	"text_log_fixed_name":            Str("rcssserver"),
	"text_logging":                   Num(1),
	"use_offside":                    Num(1),
	"verbose":                        Num(0),
	"visible_angle":                  Num(90),
	"visible_distance":               Num(3),
	"wind_ang":                       Num(0),
	"wind_dir":                       Num(0),
	"wind_force":                     Num(0),
	"wind_none":                      Num(0),
	"wind_rand":                      Num(0),
	"wind_random":                    Num(0),
}
