package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/bus"
	"github.com/vstojkovic/bugle/internal/model"
)

// ErrOffline is the FLSAccount error used when no platform user is
// available at all (spec.md §4.11 "explicitly offline").
var ErrOffline = errors.New("auth: offline mode")

// CachedUserStore is the narrow persistence interface the Manager needs;
// satisfied by a small JSON-file store (mirroring internal/savedservers'
// shape but keyed by Steam id rather than UUID).
type CachedUserStore interface {
	Get(steamID uint64) (model.CachedUser, bool)
	Put(model.CachedUser) error
}

// Manager is the Auth Manager state machine (spec.md §4.11).
type Manager struct {
	log      zerolog.Logger
	identity *IdentityClient
	cache    CachedUserStore
	sender   *bus.Sender

	mu    sync.Mutex
	state model.AuthState
}

// New constructs a Manager in its initial (no platform user) state.
func New(log zerolog.Logger, identity *IdentityClient, cache CachedUserStore, sender *bus.Sender) *Manager {
	return &Manager{
		log:      log.With().Str("component", "auth").Logger(),
		identity: identity,
		cache:    cache,
		sender:   sender,
		state: model.AuthState{
			FLSAccount:             model.Pending[model.Result[model.FLSAccount]](),
			OnlineCapability:       model.Pending[model.Result[struct{}]](),
			SinglePlayerCapability: model.Pending[model.Result[struct{}]](),
		},
	}
}

// State returns a copy of the current auth state.
func (m *Manager) State() model.AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnlineCapability and SinglePlayerCapability satisfy
// internal/session.AuthCapabilities, letting the Orchestrator gate launches
// on the Manager's derived state directly.
func (m *Manager) OnlineCapability() model.TaskState[model.Result[struct{}]] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.OnlineCapability
}

func (m *Manager) SinglePlayerCapability() model.TaskState[model.Result[struct{}]] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SinglePlayerCapability
}

// HandlePlatformReady reacts to the platform client becoming ready (spec.md
// §4.11 "On PlatformReady event: re-evaluate"). ticket is the platform's
// Steam auth ticket, used only if a login is required.
func (m *Manager) HandlePlatformReady(user model.PlatformUser, ticket []byte) {
	m.mu.Lock()
	m.state.PlatformUser = &user
	m.mu.Unlock()

	if cached, ok := m.cache.Get(user.SteamID); ok {
		m.transition(model.OkResult(cached.FLSAccount))
		return
	}

	if !user.Online {
		m.transition(model.ErrResult[model.FLSAccount](ErrOffline))
		return
	}

	m.mu.Lock()
	m.state.FLSAccount = model.Pending[model.Result[model.FLSAccount]]()
	m.mu.Unlock()
	m.publishState()

	go func() {
		account, err := m.identity.LoginWithSteam(context.Background(), ticket)
		var result model.Result[model.FLSAccount]
		if err != nil {
			result = model.ErrResult[model.FLSAccount](err)
		} else {
			result = model.OkResult(account)
		}
		bus.PostEvent(m.sender, bus.LoginComplete{Result: result})
	}()
}

// HandleLoginComplete applies the result of an in-flight identity-service
// login (spec.md §4.11 "On LoginComplete(result): cache on success...").
// It is wired as the bus's sole LoginComplete consumer.
func (m *Manager) HandleLoginComplete(result model.Result[model.FLSAccount]) {
	if result.Ok() {
		m.mu.Lock()
		steamID := uint64(0)
		if m.state.PlatformUser != nil {
			steamID = m.state.PlatformUser.SteamID
		}
		m.mu.Unlock()

		if err := m.cache.Put(model.CachedUser{SteamID: steamID, FLSAccount: result.Value}); err != nil {
			m.log.Warn().Err(err).Msg("failed to persist cached user")
		}
	}
	m.transition(result)
}

func (m *Manager) transition(result model.Result[model.FLSAccount]) {
	m.mu.Lock()
	m.state.FLSAccount = model.Ready(result)
	m.state.OnlineCapability = deriveOnline(m.state)
	m.state.SinglePlayerCapability = deriveSinglePlayer(m.state)
	m.mu.Unlock()

	m.publishState()
}

func (m *Manager) publishState() {
	bus.PostEvent(m.sender, bus.UpdateAuthState{State: m.State()})
}

// deriveOnline implements spec.md §4.11 "online capability = Ready(Ok(()))
// iff platform present ∧ online ∧ fls-ready-ok; Pending while fls is
// pending; otherwise error".
func deriveOnline(s model.AuthState) model.TaskState[model.Result[struct{}]] {
	if s.PlatformUser == nil {
		return model.Ready(model.ErrResult[struct{}](ErrOffline))
	}
	if s.FLSAccount.IsPending() {
		return model.Pending[model.Result[struct{}]]()
	}
	result := s.FLSAccount.Value()
	if s.PlatformUser.Online && result.Ok() {
		return model.Ready(model.OkResult(struct{}{}))
	}
	err := result.Err
	if err == nil {
		err = errors.New("auth: platform offline")
	}
	return model.Ready(model.ErrResult[struct{}](err))
}

// deriveSinglePlayer implements spec.md §4.11's "similarly but does not
// require platform online" variant.
func deriveSinglePlayer(s model.AuthState) model.TaskState[model.Result[struct{}]] {
	if s.FLSAccount.IsPending() {
		return model.Pending[model.Result[struct{}]]()
	}
	result := s.FLSAccount.Value()
	if result.Ok() {
		return model.Ready(model.OkResult(struct{}{}))
	}
	return model.Ready(model.ErrResult[struct{}](result.Err))
}
