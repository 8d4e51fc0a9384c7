package model

import (
	"net/netip"

	"github.com/google/uuid"
)

// Validity is a bitset over the reasons a server record was rejected
// (spec.md §3).
type Validity uint8

const (
	InvalidBuild Validity = 1 << iota
	InvalidAddr
	InvalidPort
)

// IsValid reports whether no validity bit is set.
func (v Validity) IsValid() bool { return v == 0 }

func (v Validity) Has(bit Validity) bool { return v&bit != 0 }

// Liveness holds the observed liveness state of a server, refreshed by the
// Ping/Query Client (spec.md §3, §4.7).
type Liveness struct {
	ConnectedPlayers *int
	Age              *uint64 // seconds since world creation
	RTT              *int64 // nanoseconds; time.Duration-compatible
	WaitingForPong   bool
}

// Server is a single game server instance (spec.md §3).
type Server struct {
	ID   string
	Name string
	Map  string

	IP   netip.Addr
	Port uint16

	BuildID int

	PasswordProtected bool
	Official          bool
	BattlEyeRequired  bool
	Region            Region
	Mode              CombatMode

	MaxPlayers int
	Modded     bool

	Liveness Liveness

	Settings PublicServerSettings

	Favorite bool
	SavedID  *uuid.UUID
	Merged   bool
	Tombstone bool

	Validity Validity
}

// GameAddr returns the server's game connection address. Defined iff the
// server's Validity reports no errors (spec.md §3 invariants, §8).
func (s *Server) GameAddr() (netip.AddrPort, bool) {
	if !s.Validity.IsValid() {
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(s.IP, s.Port), true
}

// PingAddr returns the UDP ping/query address: the game port plus one
// (spec.md §3, §6.2), regardless of validity (the ping client needs it to
// probe servers whose build id we have not yet validated).
func (s *Server) PingAddr() netip.AddrPort {
	return netip.AddrPortFrom(s.IP, s.Port+1)
}

// ValidateBuild sets or clears InvalidBuild depending on whether the
// server's BuildID matches the expected one (spec.md §3, §8).
func (s *Server) ValidateBuild(expected int) {
	if s.BuildID != expected {
		s.Validity |= InvalidBuild
	} else {
		s.Validity &^= InvalidBuild
	}
}

// ValidateBuild applies ValidateBuild to every server in the slice
// (spec.md §3 "validate_build(build_id) is applied before any server is
// shown").
func ValidateBuild(servers []*Server, expected int) {
	for _, s := range servers {
		s.ValidateBuild(expected)
	}
}
