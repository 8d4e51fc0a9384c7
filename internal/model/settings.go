package model

import "fmt"

// Multiplier is a real-valued game setting clamped to [0, 10] (spec.md §3).
type Multiplier float64

// Clamp returns m clamped to the valid multiplier range.
func (m Multiplier) Clamp() Multiplier {
	switch {
	case m < 0:
		return 0
	case m > 10:
		return 10
	default:
		return m
	}
}

// Weekday indexes DailyHours; 0 = Monday, matching the game's own encoding.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DailyHours is one weekday's daily-hours entry (spec.md §3).
type DailyHours struct {
	Enabled bool
	Start   HHMM
	End     HHMM
}

// WeeklyHours pairs weekday and weekend daily-hours schedules.
type WeeklyHours struct {
	Weekday DailyHours
	Weekend DailyHours
}

// HHMM is the game's integer time-of-day encoding: hours*100+minutes, with
// 23:59 represented as 2359. 24:00 is not a valid HHMM (spec.md §8).
type HHMM int

// NewHHMM builds an HHMM from hour/minute, rejecting 24:00 and anything
// outside a 24-hour clock.
func NewHHMM(hour, minute int) (HHMM, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("model: invalid time of day %02d:%02d", hour, minute)
	}
	return HHMM(hour*100 + minute), nil
}

// Hour and Minute decompose the encoding back into clock components.
func (t HHMM) Hour() int   { return int(t) / 100 }
func (t HHMM) Minute() int { return int(t) % 100 }

func (t HHMM) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// GeneralSettings is the "General" settings category (spec.md §3).
type GeneralSettings struct {
	PVP              bool
	ModeModifier     int
	XPRateMultiplier Multiplier
	ServerPassword   bool
	MaxClanSize      int
	Hours            WeeklyHours
}

// ProgressionSettings is the "Progression" settings category.
type ProgressionSettings struct {
	XPTimeMultiplier Multiplier
}

// DaylightSettings is the "Daylight" settings category.
type DaylightSettings struct {
	DayCycleSpeed   Multiplier
	DawnDuskSpeed   Multiplier
	UseCatchUpTime  bool
	CatchUpTime     HHMM
}

// SurvivalSettings is the "Survival" settings category.
type SurvivalSettings struct {
	StaminaCostMultiplier  Multiplier
	IdleThirstMultiplier   Multiplier
	ActiveThirstMultiplier Multiplier
	IdleHungerMultiplier   Multiplier
	ActiveHungerMultiplier Multiplier
	DropEquipmentOnDeath   bool
	AnyoneCanLootCorpse    bool
}

// CombatSettings is the "Combat" settings category.
type CombatSettings struct {
	DamageMultiplier        Multiplier
	PlayerDamageMultiplier  Multiplier
	NPCDamageMultiplier     Multiplier
	NPCRespawnMultiplier    Multiplier
	DurabilityMultiplier    Multiplier
	ThrallDamageToPlayers   Multiplier
	ThrallDamageMultiplier  Multiplier
	OfflineCharacterDeath   bool
}

// HarvestingSettings is the "Harvesting" settings category.
type HarvestingSettings struct {
	HarvestAmountMultiplier Multiplier
	ItemSpoilRateScale      Multiplier
	RespawnRateMultiplier   Multiplier
}

// CraftingSettings is the "Crafting" settings category.
type CraftingSettings struct {
	CraftingTimeMultiplier Multiplier
	ThrallCraftingTimeMult Multiplier
}

// BuildingSettings is the "Building" settings category.
type BuildingSettings struct {
	DecayEnabled         bool
	DecayTimeMultiplier  Multiplier
	PvPTimeSpanHours     int
	OnlyNPCDamageStruct  bool
}

// ChatSettings is the "Chat" settings category.
type ChatSettings struct {
	ProfanityFilter bool
}

// FollowersSettings is the "Followers" settings category.
type FollowersSettings struct {
	MaxFollowersPerPlayer int
	MaxFollowersOwned     int
	FollowerDamageMult    Multiplier
	FollowerHealthMult    Multiplier
}

// MaelstromSettings is the "Maelstrom" settings category.
type MaelstromSettings struct {
	Enabled              bool
	LevelCap             int
	PlayerDamageMult     Multiplier
	StructureResistance  Multiplier
	CorruptionResistance Multiplier
}

// ServerSettings is the full per-category settings snapshot (spec.md §3). The
// Public subset (exposed over the directory) is computed by Public.
type ServerSettings struct {
	General     GeneralSettings
	Progression ProgressionSettings
	Daylight    DaylightSettings
	Survival    SurvivalSettings
	Combat      CombatSettings
	Harvesting  HarvestingSettings
	Crafting    CraftingSettings
	Building    BuildingSettings
	Chat        ChatSettings
	Followers   FollowersSettings
	Maelstrom   MaelstromSettings
}

// PublicServerSettings is the subset of ServerSettings reported over the
// community directory (spec.md §3 "A public subset is reported over the
// directory").
type PublicServerSettings struct {
	PVP              bool
	ModeModifier     int
	XPRateMultiplier Multiplier
	MaxClanSize      int
	HarvestMultiplier Multiplier
	Hours            WeeklyHours
}

// Public projects the full settings snapshot down to the publicly reported
// subset.
func (s ServerSettings) Public() PublicServerSettings {
	return PublicServerSettings{
		PVP:               s.General.PVP,
		ModeModifier:      s.General.ModeModifier,
		XPRateMultiplier:  s.General.XPRateMultiplier,
		MaxClanSize:       s.General.MaxClanSize,
		HarvestMultiplier: s.Harvesting.HarvestAmountMultiplier,
		Hours:             s.General.Hours,
	}
}

// SettingsPreset is a named bundle of setting overrides, supplementing
// spec.md from original_source/bugle/src/game/settings/server/presets.rs
// (see SPEC_FULL.md "Supplemented features").
type SettingsPreset struct {
	Name    string
	Apply   func(*ServerSettings)
}

// Presets lists the built-in settings presets carried over from the
// original implementation.
func Presets() []SettingsPreset {
	return []SettingsPreset{
		{
			Name: "Exiles",
			Apply: func(s *ServerSettings) {
				s.General.XPRateMultiplier = 1
				s.Harvesting.HarvestAmountMultiplier = 3
			},
		},
		{
			Name: "Siptah",
			Apply: func(s *ServerSettings) {
				s.General.XPRateMultiplier = 2
				s.Harvesting.HarvestAmountMultiplier = 5
				s.Maelstrom.Enabled = true
			},
		},
		{
			Name: "Hardcore",
			Apply: func(s *ServerSettings) {
				s.Survival.DropEquipmentOnDeath = true
				s.Survival.AnyoneCanLootCorpse = true
				s.Combat.OfflineCharacterDeath = true
			},
		},
	}
}
