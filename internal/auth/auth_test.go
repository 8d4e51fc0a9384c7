package auth

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/bus"
	"github.com/vstojkovic/bugle/internal/model"
)

func TestFormatDisplayNameInsertsDiscriminator(t *testing.T) {
	// spec.md §8 seed scenario 3.
	cases := map[string]string{
		"ExilesHero12345": "ExilesHero#12345",
		"abc":             "abc",
	}
	for raw, want := range cases {
		if got := formatDisplayName(raw); got != want {
			t.Errorf("formatDisplayName(%q) = %q, want %q", raw, got, want)
		}
	}
}

type memCache struct {
	users map[uint64]model.CachedUser
}

func newMemCache() *memCache { return &memCache{users: make(map[uint64]model.CachedUser)} }

func (c *memCache) Get(steamID uint64) (model.CachedUser, bool) {
	u, ok := c.users[steamID]
	return u, ok
}

func (c *memCache) Put(u model.CachedUser) error {
	c.users[u.SteamID] = u
	return nil
}

func TestHandlePlatformReadyUsesCachedUser(t *testing.T) {
	cache := newMemCache()
	cache.Put(model.CachedUser{SteamID: 42, FLSAccount: model.FLSAccount{DisplayName: "Cached"}})

	sender := bus.NewSender()
	m := New(zerolog.Nop(), NewIdentityClient(), cache, sender)

	m.HandlePlatformReady(model.PlatformUser{SteamID: 42, Online: true}, nil)

	state := m.State()
	if !state.FLSAccount.IsReady() {
		t.Fatal("expected FLSAccount to be Ready immediately for a cached user")
	}
	if !state.FLSAccount.Value().Ok() || state.FLSAccount.Value().Value.DisplayName != "Cached" {
		t.Errorf("expected cached account to be used, got %+v", state.FLSAccount.Value())
	}
}

func TestHandlePlatformReadyOfflineWithNoCacheIsError(t *testing.T) {
	cache := newMemCache()
	sender := bus.NewSender()
	m := New(zerolog.Nop(), NewIdentityClient(), cache, sender)

	m.HandlePlatformReady(model.PlatformUser{SteamID: 1, Online: false}, nil)

	state := m.State()
	if !state.FLSAccount.IsReady() || state.FLSAccount.Value().Ok() {
		t.Fatalf("expected Ready(Err) for offline platform with no cache, got %+v", state.FLSAccount)
	}
}

func TestDeriveOnlineRequiresPlatformOnlineAndFLSOk(t *testing.T) {
	s := model.AuthState{
		PlatformUser: &model.PlatformUser{Online: true},
		FLSAccount:   model.Ready(model.OkResult(model.FLSAccount{})),
	}
	cap := deriveOnline(s)
	if !cap.IsReady() || !cap.Value().Ok() {
		t.Fatalf("expected online capability Ready(Ok), got %+v", cap)
	}

	s.PlatformUser.Online = false
	cap = deriveOnline(s)
	if !cap.IsReady() || cap.Value().Ok() {
		t.Fatalf("expected online capability Ready(Err) when platform offline, got %+v", cap)
	}
}

func TestDeriveSinglePlayerIgnoresPlatformOnline(t *testing.T) {
	s := model.AuthState{
		PlatformUser: &model.PlatformUser{Online: false},
		FLSAccount:   model.Ready(model.OkResult(model.FLSAccount{})),
	}
	cap := deriveSinglePlayer(s)
	if !cap.IsReady() || !cap.Value().Ok() {
		t.Fatalf("expected singleplayer capability Ready(Ok) despite platform offline, got %+v", cap)
	}
}

func TestHandleLoginCompletePersistsCacheOnSuccess(t *testing.T) {
	cache := newMemCache()
	sender := bus.NewSender()
	m := New(zerolog.Nop(), NewIdentityClient(), cache, sender)
	m.state.PlatformUser = &model.PlatformUser{SteamID: 7, Online: true}

	m.HandleLoginComplete(model.OkResult(model.FLSAccount{DisplayName: "Fresh"}))

	if _, ok := cache.Get(7); !ok {
		t.Fatal("expected login success to persist a cached user")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if m.State().FLSAccount.IsReady() {
			return
		}
	}
	t.Fatal("expected FLSAccount to become Ready")
}
