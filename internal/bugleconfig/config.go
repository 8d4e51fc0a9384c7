// Package bugleconfig implements the Config half of the Config &
// Saved-Servers Store (spec.md §4.4): a structure of typed preference
// fields persisted to an INI file at a platform-specific location.
//
// Grounded on pkg/atlas/config.go's single tagged struct read by one
// "UnmarshalEnv"-shaped entry point, adapted from env-var tags to INI
// section/key pairs read via gopkg.in/ini.v1 (see SPEC_FULL.md "DOMAIN
// STACK" for why this out-of-pack library was chosen over the teacher's
// env-based scheme).
package bugleconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"gopkg.in/ini.v1"

	"github.com/vstojkovic/bugle/internal/model"
	"github.com/vstojkovic/bugle/internal/serverview"
)

// Config holds BUGLE's user preferences (spec.md §4.4).
type Config struct {
	// LogLevel is the minimum log level to emit.
	LogLevel zerolog.Level

	// Branch selects which distribution channel the game is configured
	// against (spec.md GLOSSARY "Branch").
	Branch model.Branch

	// BattlEye is the anti-cheat usage policy (spec.md §4.12).
	BattlEye BattlEyePolicy

	// AllCores enables the launch option to use all CPU cores.
	AllCores bool

	// ExtraArgs are appended verbatim to the game's command line.
	ExtraArgs string

	// ModMismatchCheck toggles the Mod Mismatch Detector prompt on
	// singleplayer continue (spec.md §4.12 step 4).
	ModMismatchCheck bool

	// Theme is an opaque UI theme name; BUGLE's core does not interpret it,
	// it is only round-tripped for the (out-of-scope) view layer.
	Theme string

	// Filter is the persisted server-browser filter state (spec.md §4.4
	// "nested server-browser filter").
	Filter serverview.Filter
}

// Default returns the built-in default configuration.
func Default() Config {
	return Config{
		LogLevel:         zerolog.InfoLevel,
		Branch:           model.BranchMain,
		BattlEye:         AutoBattlEye(),
		ModMismatchCheck: true,
		Filter: serverview.Filter{
			IncludePassword: true,
		},
	}
}

const (
	sectionGeneral = "general"
	sectionFilter  = "filter"
)

// Path returns the default preferences file path: <exeDir>/bugle.ini on
// platforms without a per-user roaming directory, otherwise
// <roaming>/bugle/bugle.ini (spec.md §6.4).
func Path() string {
	if roaming, err := os.UserConfigDir(); err == nil && roaming != "" {
		return filepath.Join(roaming, "bugle", "bugle.ini")
	}
	exe, err := os.Executable()
	if err != nil {
		return "bugle.ini"
	}
	return filepath.Join(filepath.Dir(exe), "bugle.ini")
}

// Load reads the INI file at path, defaulting and logging a warning for any
// unknown or invalid value rather than failing outright (spec.md §9 "Config
// schema drift": unknown/invalid values are silently defaulted). If path
// does not exist, Default() is returned with no error (spec.md §4.4 "A
// transient fallback is used if the INI path is unavailable").
func Load(log zerolog.Logger, path string) (Config, error) {
	log = log.With().Str("component", "bugleconfig").Logger()

	f, err := ini.LoadSources(ini.LoadOptions{Loose: true, AllowBooleanKeys: true}, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		log.Warn().Err(err).Msg("failed to load config; falling back to defaults")
		return Default(), nil
	}

	c := Default()
	g := f.Section(sectionGeneral)

	if v := g.Key("log_level").String(); v != "" {
		if lvl, err := zerolog.ParseLevel(v); err == nil {
			c.LogLevel = lvl
		} else {
			log.Warn().Str("value", v).Msg("invalid log_level; using default")
		}
	}
	if v := g.Key("branch").String(); v != "" {
		c.Branch = model.Branch(v)
	}
	if v := g.Key("battleye").String(); v != "" {
		c.BattlEye = ParseBattlEyePolicy(v)
	}
	c.AllCores = g.Key("all_cores").MustBool(c.AllCores)
	c.ExtraArgs = g.Key("extra_args").MustString(c.ExtraArgs)
	c.ModMismatchCheck = g.Key("mod_mismatch_check").MustBool(c.ModMismatchCheck)
	c.Theme = g.Key("theme").MustString(c.Theme)

	ff := f.Section(sectionFilter)
	c.Filter.NameOrMap = ff.Key("name_or_map").MustString("")
	c.Filter.IncludeInvalid = ff.Key("include_invalid").MustBool(false)
	c.Filter.IncludePassword = ff.Key("include_password").MustBool(true)
	c.Filter.Type = serverview.TypeFilter(ff.Key("type").MustInt(int(serverview.TypeAll)))
	c.Filter.Mode = loadOptInt[model.CombatMode](ff, "mode")
	c.Filter.Region = loadOptInt[model.Region](ff, "region")
	c.Filter.BattlEyeRequired = loadOptBool(ff, "battleye_required")
	c.Filter.Modded = loadOptBool(ff, "modded")
	c.Filter.XPRate = loadFloatRange(ff, "xp_rate")
	c.Filter.HarvestRate = loadFloatRange(ff, "harvest_rate")
	c.Filter.MaxClanSize = loadIntRange(ff, "max_clan_size")
	c.Filter.MaxPlayers = loadIntRange(ff, "max_players")

	return c, nil
}

// loadOptInt loads an optional int-backed value, returning nil if the key is
// absent (spec.md §8 round-trip law: an unset filter field must stay unset).
func loadOptInt[T ~int](sec *ini.Section, key string) *T {
	k := sec.Key(key)
	if k.String() == "" {
		return nil
	}
	v := T(k.MustInt(0))
	return &v
}

// loadOptBool mirrors loadOptInt for *bool filter fields.
func loadOptBool(sec *ini.Section, key string) *bool {
	k := sec.Key(key)
	if k.String() == "" {
		return nil
	}
	v := k.MustBool(false)
	return &v
}

func loadFloatRange(sec *ini.Section, prefix string) serverview.RangeFilter[float64] {
	var r serverview.RangeFilter[float64]
	if k := sec.Key(prefix + "_min"); k.String() != "" {
		v := k.MustFloat64(0)
		r.Min = &v
	}
	if k := sec.Key(prefix + "_max"); k.String() != "" {
		v := k.MustFloat64(0)
		r.Max = &v
	}
	r.Negate = sec.Key(prefix + "_negate").MustBool(false)
	return r
}

func loadIntRange(sec *ini.Section, prefix string) serverview.RangeFilter[int] {
	var r serverview.RangeFilter[int]
	if k := sec.Key(prefix + "_min"); k.String() != "" {
		v := k.MustInt(0)
		r.Min = &v
	}
	if k := sec.Key(prefix + "_max"); k.String() != "" {
		v := k.MustInt(0)
		r.Max = &v
	}
	r.Negate = sec.Key(prefix + "_negate").MustBool(false)
	return r
}

// Save persists c to path. Unknown keys already present in the file are
// preserved (spec.md §4.4, §8 round-trip law): Save loads the existing file
// (if any) into an *ini.File and mutates only the keys Config owns, rather
// than re-serializing from scratch.
func Save(path string, c Config) error {
	var f *ini.File
	if existing, err := ini.LoadSources(ini.LoadOptions{Loose: true}, path); err == nil {
		f = existing
	} else {
		f = ini.Empty()
	}

	g := f.Section(sectionGeneral)
	g.Key("log_level").SetValue(c.LogLevel.String())
	g.Key("branch").SetValue(string(c.Branch))
	g.Key("battleye").SetValue(c.BattlEye.String())
	g.Key("all_cores").SetValue(boolString(c.AllCores))
	g.Key("extra_args").SetValue(c.ExtraArgs)
	g.Key("mod_mismatch_check").SetValue(boolString(c.ModMismatchCheck))
	g.Key("theme").SetValue(c.Theme)

	ff := f.Section(sectionFilter)
	ff.Key("name_or_map").SetValue(c.Filter.NameOrMap)
	ff.Key("include_invalid").SetValue(boolString(c.Filter.IncludeInvalid))
	ff.Key("include_password").SetValue(boolString(c.Filter.IncludePassword))
	ff.Key("type").SetValue(strconv.Itoa(int(c.Filter.Type)))
	saveOptInt(ff, "mode", c.Filter.Mode)
	saveOptInt(ff, "region", c.Filter.Region)
	saveOptBool(ff, "battleye_required", c.Filter.BattlEyeRequired)
	saveOptBool(ff, "modded", c.Filter.Modded)
	saveFloatRange(ff, "xp_rate", c.Filter.XPRate)
	saveFloatRange(ff, "harvest_rate", c.Filter.HarvestRate)
	saveIntRange(ff, "max_clan_size", c.Filter.MaxClanSize)
	saveIntRange(ff, "max_players", c.Filter.MaxPlayers)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("bugleconfig: create dir: %w", err)
		}
	}
	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("bugleconfig: save: %w", err)
	}
	return nil
}

// saveOptInt persists an optional int-backed value, clearing the key
// entirely when ptr is nil so loadOptInt sees it as absent again.
func saveOptInt[T ~int](sec *ini.Section, key string, ptr *T) {
	if ptr == nil {
		sec.DeleteKey(key)
		return
	}
	sec.Key(key).SetValue(strconv.Itoa(int(*ptr)))
}

// saveOptBool mirrors saveOptInt for *bool filter fields.
func saveOptBool(sec *ini.Section, key string, ptr *bool) {
	if ptr == nil {
		sec.DeleteKey(key)
		return
	}
	sec.Key(key).SetValue(boolString(*ptr))
}

func saveFloatRange(sec *ini.Section, prefix string, r serverview.RangeFilter[float64]) {
	saveOptFloat(sec, prefix+"_min", r.Min)
	saveOptFloat(sec, prefix+"_max", r.Max)
	sec.Key(prefix + "_negate").SetValue(boolString(r.Negate))
}

func saveIntRange(sec *ini.Section, prefix string, r serverview.RangeFilter[int]) {
	saveOptInt(sec, prefix+"_min", r.Min)
	saveOptInt(sec, prefix+"_max", r.Max)
	sec.Key(prefix + "_negate").SetValue(boolString(r.Negate))
}

func saveOptFloat(sec *ini.Section, key string, ptr *float64) {
	if ptr == nil {
		sec.DeleteKey(key)
		return
	}
	sec.Key(key).SetValue(strconv.FormatFloat(*ptr, 'g', -1, 64))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
