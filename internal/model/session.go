package model

import (
	"net/netip"
	"time"
)

// ServerRef is a reference to a server, either a fully known record or a bare
// address (spec.md §3).
type ServerRef struct {
	isKnown bool
	server  Server
	addr    netip.AddrPort
}

// KnownServer builds a ServerRef around a fully resolved Server.
func KnownServer(s Server) ServerRef { return ServerRef{isKnown: true, server: s} }

// UnknownServer builds a ServerRef around a bare address.
func UnknownServer(addr netip.AddrPort) ServerRef { return ServerRef{addr: addr} }

// Known returns the known server and true, or the zero Server and false.
func (r ServerRef) Known() (Server, bool) { return r.server, r.isKnown }

// Addr returns the bare address; only meaningful when !Known().
func (r ServerRef) Addr() netip.AddrPort { return r.addr }

// sessionKind tags the Session sum type's active variant.
type sessionKind int

const (
	sessionOnline sessionKind = iota
	sessionSinglePlayer
	sessionCoOp
)

// Session is the tagged union {Online(ServerRef), SinglePlayer(MapRef),
// CoOp(MapRef)} from spec.md §3. It intentionally exposes only constructors
// and a switch-friendly accessor rather than an inheritance hierarchy
// (spec.md §9 "ADT-based Session/MapRef/ServerRef/ModRef... must remain sum
// types, not inheritance hierarchies").
type Session struct {
	kind   sessionKind
	server ServerRef
	mapRef MapRef
}

func OnlineSession(ref ServerRef) Session     { return Session{kind: sessionOnline, server: ref} }
func SinglePlayerSession(ref MapRef) Session  { return Session{kind: sessionSinglePlayer, mapRef: ref} }
func CoOpSession(ref MapRef) Session          { return Session{kind: sessionCoOp, mapRef: ref} }

func (s Session) IsOnline() bool       { return s.kind == sessionOnline }
func (s Session) IsSinglePlayer() bool { return s.kind == sessionSinglePlayer }
func (s Session) IsCoOp() bool         { return s.kind == sessionCoOp }

// Server returns the server reference; only meaningful when IsOnline().
func (s Session) Server() ServerRef { return s.server }

// Map returns the map reference; only meaningful when IsSinglePlayer() or IsCoOp().
func (s Session) Map() MapRef { return s.mapRef }

// LastCharacter records the last-played character in a save (spec.md §3).
type LastCharacter struct {
	Name      string
	Level     int
	Clan      string
	Timestamp time.Time
}

// GameDB describes a saved game (spec.md §3).
type GameDB struct {
	FileName      string
	Map           MapRef
	LastCharacter *LastCharacter
}
