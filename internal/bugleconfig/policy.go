package bugleconfig

// antiCheatKind tags the BattlEyePolicy sum type (spec.md §4.12 "per the
// preference {Always(bool), Auto}").
type antiCheatKind int

const (
	antiCheatAlways antiCheatKind = iota
	antiCheatAuto
)

// BattlEyePolicy is the user's BattlEye usage preference (spec.md §3, §4.12).
type BattlEyePolicy struct {
	kind   antiCheatKind
	always bool
}

// AlwaysBattlEye builds a policy that always enables or disables BattlEye.
func AlwaysBattlEye(enabled bool) BattlEyePolicy {
	return BattlEyePolicy{kind: antiCheatAlways, always: enabled}
}

// AutoBattlEye builds a policy that derives BattlEye usage per-session.
func AutoBattlEye() BattlEyePolicy { return BattlEyePolicy{kind: antiCheatAuto} }

// Always returns the fixed enabled value and true, or false and false if
// this is an Auto policy.
func (p BattlEyePolicy) Always() (bool, bool) {
	return p.always, p.kind == antiCheatAlways
}

func (p BattlEyePolicy) IsAuto() bool { return p.kind == antiCheatAuto }

func (p BattlEyePolicy) String() string {
	if p.kind == antiCheatAuto {
		return "auto"
	}
	if p.always {
		return "always"
	}
	return "never"
}

// ParseBattlEyePolicy parses the INI string form of a BattlEyePolicy.
func ParseBattlEyePolicy(s string) BattlEyePolicy {
	switch s {
	case "always":
		return AlwaysBattlEye(true)
	case "never":
		return AlwaysBattlEye(false)
	default:
		return AutoBattlEye()
	}
}
