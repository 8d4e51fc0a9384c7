// Package serverview implements the Filter & Sort View (spec.md §4.8): a
// TableView over the mutable server list, maintaining source<->view index
// maps and a compound filter/sort.
package serverview

import (
	"strings"

	"github.com/vstojkovic/bugle/internal/model"
)

// TypeFilter narrows by server ownership/favorite flags (spec.md §4.8).
type TypeFilter int

const (
	TypeAll TypeFilter = iota
	TypeOfficial
	TypePrivate
	TypeFavorite
)

// RangeFilter is "value in closed interval", XORed with Negate (spec.md
// §4.8).
type RangeFilter[T int | float64] struct {
	Min    *T
	Max    *T
	Negate bool
}

// Match reports whether v satisfies the range filter.
func (f RangeFilter[T]) Match(v T) bool {
	in := true
	if f.Min != nil && v < *f.Min {
		in = false
	}
	if f.Max != nil && v > *f.Max {
		in = false
	}
	return in != f.Negate
}

// EnumFilter is an equality filter, XORed with Negate (spec.md §4.8).
type EnumFilter[T comparable] struct {
	Value  T
	Negate bool
}

// Match reports whether v satisfies the enum filter.
func (f EnumFilter[T]) Match(v T) bool {
	return (v == f.Value) != f.Negate
}

// Filter is the compound AND predicate applied to the server list (spec.md
// §4.8).
type Filter struct {
	NameOrMap string // case-insensitive literal substring match on name and map

	Type             TypeFilter
	Mode             *model.CombatMode
	Region           *model.Region
	BattlEyeRequired *bool
	IncludeInvalid   bool
	IncludePassword  bool
	Modded           *bool

	XPRate         RangeFilter[float64]
	HarvestRate    RangeFilter[float64]
	MaxClanSize    RangeFilter[int]
	MaxPlayers     RangeFilter[int]
}

// Match reports whether s satisfies every predicate in the filter. A
// tombstoned server is always hidden (spec.md §4.8).
func (f Filter) Match(s *model.Server) bool {
	if s.Tombstone {
		return false
	}
	if f.NameOrMap != "" {
		needle := strings.ToLower(f.NameOrMap)
		if !strings.Contains(strings.ToLower(s.Name), needle) && !strings.Contains(strings.ToLower(s.Map), needle) {
			return false
		}
	}
	switch f.Type {
	case TypeOfficial:
		if !s.Official {
			return false
		}
	case TypePrivate:
		if s.Official {
			return false
		}
	case TypeFavorite:
		if !s.Favorite {
			return false
		}
	}
	if f.Mode != nil && s.Mode != *f.Mode {
		return false
	}
	if f.Region != nil && s.Region != *f.Region {
		return false
	}
	if f.BattlEyeRequired != nil && s.BattlEyeRequired != *f.BattlEyeRequired {
		return false
	}
	if !f.IncludeInvalid && !s.Validity.IsValid() {
		return false
	}
	if !f.IncludePassword && s.PasswordProtected {
		return false
	}
	if f.Modded != nil && s.Modded != *f.Modded {
		return false
	}
	if !f.XPRate.Match(float64(s.Settings.XPRateMultiplier)) {
		return false
	}
	if !f.HarvestRate.Match(float64(s.Settings.HarvestMultiplier)) {
		return false
	}
	if !f.MaxClanSize.Match(s.Settings.MaxClanSize) {
		return false
	}
	if !f.MaxPlayers.Match(s.MaxPlayers) {
		return false
	}
	return true
}
