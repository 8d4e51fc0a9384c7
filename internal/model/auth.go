package model

import "time"

// TaskStateKind tags the TaskState sum type.
type TaskStateKind int

const (
	TaskPending TaskStateKind = iota
	TaskReady
)

// TaskState is a minimal generic-free stand-in for spec.md's TaskState<T>,
// grounded on pkg/origin/authmgr.go's AuthState/backoff bookkeeping pattern
// (a cached result plus a "something is in flight" flag) adapted to an
// explicit two-state sum type as spec.md's ADT guidance requires (§9).
type TaskState[T any] struct {
	kind  TaskStateKind
	value T
}

// Pending constructs a TaskState in the Pending state.
func Pending[T any]() TaskState[T] { return TaskState[T]{kind: TaskPending} }

// Ready constructs a TaskState carrying a ready value.
func Ready[T any](v T) TaskState[T] { return TaskState[T]{kind: TaskReady, value: v} }

func (t TaskState[T]) IsPending() bool { return t.kind == TaskPending }
func (t TaskState[T]) IsReady() bool   { return t.kind == TaskReady }

// Value returns the ready value; only meaningful when IsReady().
func (t TaskState[T]) Value() T { return t.value }

// FLSAccount is the identity-service account resolved for the current
// platform user (spec.md §4.11).
type FLSAccount struct {
	PlayFabID        string
	TitlePlayerAccountID string
	DisplayName      string
	SteamID          uint64
}

// PlatformUser is the currently signed-in platform (Steam) user, as reported
// by the Mod Directory platform interface (spec.md §4.9, §4.11).
type PlatformUser struct {
	SteamID uint64
	Online  bool
}

// AuthState is the triple (platform user result, FLS account task-state,
// online capability, singleplayer capability) from spec.md §3.
type AuthState struct {
	PlatformUser         *PlatformUser // nil if platform client unavailable
	FLSAccount           TaskState[Result[FLSAccount]]
	OnlineCapability     TaskState[Result[struct{}]]
	SinglePlayerCapability TaskState[Result[struct{}]]
}

// Result is a minimal Ok/Err sum type mirroring Rust's Result<T, E>, used
// wherever spec.md calls for Ready(Ok(...))/Ready(Err(...)) semantics.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the result succeeded.
func (r Result[T]) Ok() bool { return r.Err == nil }

// OkResult and ErrResult build a Result value.
func OkResult[T any](v T) Result[T]      { return Result[T]{Value: v} }
func ErrResult[T any](err error) Result[T] {
	var zero T
	return Result[T]{Value: zero, Err: err}
}

// CachedUser is a previously-authenticated (platform id, FLS account) pair
// persisted for offline singleplayer access (spec.md §3).
type CachedUser struct {
	SteamID    uint64
	FLSAccount FLSAccount
	CachedAt   time.Time
}
