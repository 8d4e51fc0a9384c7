package bus

import (
	"net/netip"

	"github.com/vstojkovic/bugle/internal/model"
)

// Idle is delivered to OnIdle subscribers; see Bus.Drain.
type Idle struct{}

// PlatformReady is published once the platform (Steam) client finishes
// initializing (spec.md §4.11, §4.12).
type PlatformReady struct {
	User model.PlatformUser
}

// LoginComplete is the consumer-only handoff for an identity-service login
// attempt completing (spec.md §4.11, §4.13).
type LoginComplete struct {
	Result model.Result[model.FLSAccount]
}

// UpdateAuthState is published on every Auth Manager state transition
// (spec.md §4.11).
type UpdateAuthState struct {
	State model.AuthState
}

// ServersLoaded is the consumer-only handoff for a directory fetch +
// similarity merge completing (spec.md §4.5, §4.6, §4.13).
type ServersLoaded struct {
	Servers []*model.Server
	Err     error
}

// PongBatch carries one or more coalesced pong responses, batched by the
// idle-subscribing server-browser component (spec.md §4.7, §5).
type PongBatch struct {
	Responses []PongResponse
}

// PongResponse correlates a ping response back to its source index in the
// server list (spec.md §4.7).
type PongResponse struct {
	SourceIndex int
	Players     int
	AgeSeconds  uint64
	RTTNanos    int64
}

// PongTimeout reports that a ping target never answered within the 10s
// window (spec.md §4.7, §7).
type PongTimeout struct {
	SourceIndex int
	Addr        netip.AddrPort
}

// ModDetailsChanged is published when the platform's asynchronous workshop
// name resolution completes (spec.md §4.9).
type ModDetailsChanged struct {
	WorkshopIDs []uint64
}

// ModUpdateProgress reports download progress for an in-flight mod update
// (spec.md §4.9).
type ModUpdateProgress struct {
	PakPath       string
	DoneBytes     int64
	TotalBytes    int64
}

// ModUpdateComplete is published when a mod update finishes (spec.md §4.9).
type ModUpdateComplete struct {
	PakPath string
	Err     error
}

// UserAction is published by the CLI/UI front-end for user-initiated
// commands the core must react to (spec.md §1 "Surrounding functionality...
// the widget toolkit" is out of scope, but the action events it would emit
// are part of the core's contract).
type UserAction struct {
	Name string
	Args map[string]string
}
