package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/bugleconfig"
	"github.com/vstojkovic/bugle/internal/mismatch"
	"github.com/vstojkovic/bugle/internal/model"
	"github.com/vstojkovic/bugle/internal/platform"
)

type fakeHandle struct {
	ready bool
}

func (h *fakeHandle) Ready() (bool, error) { return h.ready, nil }
func (h *fakeHandle) Abort() error         { return nil }

type fakeLauncher struct {
	launched  bool
	continued bool
	opts      Options
}

func (l *fakeLauncher) Launch(opts Options, extraArgs string) (Handle, error) {
	l.launched = true
	l.opts = opts
	return &fakeHandle{ready: true}, nil
}

func (l *fakeLauncher) ContinueSession(opts Options) (Handle, error) {
	l.continued = true
	l.opts = opts
	return &fakeHandle{ready: true}, nil
}

type fakePlatform struct {
	user model.PlatformUser
	ok   bool
}

func (p *fakePlatform) Resolve([]platform.WorkshopEntry)                     {}
func (p *fakePlatform) NeedsUpdate(*model.ModEntry) (bool, error)            { return false, nil }
func (p *fakePlatform) CanUpdate() bool                                     { return p.ok }
func (p *fakePlatform) StartUpdate(*model.ModEntry) (*platform.ModUpdate, error) {
	return nil, platform.ErrNoSession
}
func (p *fakePlatform) User() (model.PlatformUser, bool) { return p.user, p.ok }

type fakeAuth struct {
	online, sp model.Result[struct{}]
}

func (a *fakeAuth) OnlineCapability() model.TaskState[model.Result[struct{}]] {
	return model.Ready(a.online)
}
func (a *fakeAuth) SinglePlayerCapability() model.TaskState[model.Result[struct{}]] {
	return model.Ready(a.sp)
}

type fakePrompts struct {
	mismatchConfirmed bool
}

func (p *fakePrompts) ConfirmModUpdates(outdated []*model.ModEntry) []*model.ModEntry { return nil }
func (p *fakePrompts) ConfirmMismatch(mismatch.Mismatch) bool                         { return p.mismatchConfirmed }
func (p *fakePrompts) ResolveBattlEye() (bool, bool)                                  { return false, false }

type fakeMods struct{}

func (fakeMods) Entries() []*model.ModEntry          { return nil }
func (fakeMods) ByFolder(folder string) model.ModRef { return model.UnknownFolderMod(folder) }

func TestLaunchFreshRequiresOnlineCapabilityForServerTarget(t *testing.T) {
	launcher := &fakeLauncher{}
	auth := &fakeAuth{online: model.ErrResult[struct{}](errPlatformOffline())}
	o := New(zerolog.Nop(), launcher, GameConfig{}, fakeMods{}, auth, &fakePrompts{}, &fakePlatform{ok: true})

	target := &model.Server{Name: "Target"}
	err := o.LaunchFresh(context.Background(), bugleconfig.AutoBattlEye(), target, nil, "")
	if err != ErrCapabilityDenied {
		t.Fatalf("err = %v, want ErrCapabilityDenied", err)
	}
	if launcher.launched {
		t.Error("expected launch to be refused")
	}
}

func TestLaunchFreshSucceedsWithoutTargetEvenWhenOffline(t *testing.T) {
	launcher := &fakeLauncher{}
	auth := &fakeAuth{online: model.ErrResult[struct{}](errPlatformOffline())}
	o := New(zerolog.Nop(), launcher, GameConfig{}, fakeMods{}, auth, &fakePrompts{}, &fakePlatform{ok: true})

	err := o.LaunchFresh(context.Background(), bugleconfig.AlwaysBattlEye(true), nil, nil, "-dx11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !launcher.launched {
		t.Error("expected launch to proceed")
	}
	if !launcher.opts.EnableBattlEye {
		t.Error("expected Always(true) policy to enable battleye")
	}
}

func TestLaunchFreshAutoBattlEyeDerivesFromTarget(t *testing.T) {
	launcher := &fakeLauncher{}
	auth := &fakeAuth{online: model.OkResult(struct{}{})}
	o := New(zerolog.Nop(), launcher, GameConfig{}, fakeMods{}, auth, &fakePrompts{}, &fakePlatform{ok: true})

	target := &model.Server{Name: "Target", BattlEyeRequired: true}
	if err := o.LaunchFresh(context.Background(), bugleconfig.AutoBattlEye(), target, nil, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !launcher.opts.EnableBattlEye {
		t.Error("expected battleye enabled to follow target.BattlEyeRequired")
	}
}

func TestLaunchSinglePlayerRequiresSinglePlayerCapability(t *testing.T) {
	launcher := &fakeLauncher{}
	auth := &fakeAuth{sp: model.ErrResult[struct{}](errPlatformOffline())}
	o := New(zerolog.Nop(), launcher, GameConfig{}, fakeMods{}, auth, &fakePrompts{}, &fakePlatform{ok: true})

	err := o.LaunchSinglePlayer(context.Background(), "/Game/Maps/Exiles", nil, nil, false, Options{})
	if err != ErrCapabilityDenied {
		t.Fatalf("err = %v, want ErrCapabilityDenied", err)
	}
}

func TestAwaitPlatformReadyTimesOutWhenNeverReady(t *testing.T) {
	launcher := &fakeLauncher{}
	auth := &fakeAuth{online: model.OkResult(struct{}{})}
	o := New(zerolog.Nop(), launcher, GameConfig{}, fakeMods{}, auth, &fakePrompts{}, &fakePlatform{ok: false})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := o.awaitPlatformReady(ctx)
	if err != ErrPlatformNotReady {
		t.Fatalf("err = %v, want ErrPlatformNotReady", err)
	}
}

func errPlatformOffline() error {
	return context.DeadlineExceeded
}

func TestCheckDevkitCompatibilityRejectsNewerDevkit(t *testing.T) {
	active := []*model.ModEntry{
		{Info: model.ModInfo{Name: "Fine", DevkitVersion: "1.0.0"}},
		{Info: model.ModInfo{Name: "TooNew", DevkitVersion: "2.3.0"}},
	}
	err := checkDevkitCompatibility(active)
	if !errors.Is(err, ErrIncompatibleDevkit) {
		t.Fatalf("err = %v, want ErrIncompatibleDevkit", err)
	}
}

func TestCheckDevkitCompatibilityIgnoresUnparsedAndEmptyVersions(t *testing.T) {
	unparsed := &model.ModEntry{ParseError: errors.New("bad modinfo.json")}
	active := []*model.ModEntry{
		unparsed,
		{Info: model.ModInfo{Name: "NoVersion"}},
		{Info: model.ModInfo{Name: "AtLimit", DevkitVersion: "1.0.0"}},
	}
	if err := checkDevkitCompatibility(active); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
