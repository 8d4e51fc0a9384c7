package session

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"

	"github.com/vstojkovic/bugle/internal/bugleconfig"
	"github.com/vstojkovic/bugle/internal/gamesave"
	"github.com/vstojkovic/bugle/internal/mismatch"
	"github.com/vstojkovic/bugle/internal/model"
	"github.com/vstojkovic/bugle/internal/platform"
)

// supportedDevkitVersion is the highest mod devkit version this launcher
// build knows how to launch against (spec.md GLOSSARY "DevkitVersion").
// Mirrors pkg/atlas/server.go's launcher-version gating, adapted from
// rejecting stale game-server launchers to rejecting mods built against a
// devkit newer than this launcher understands.
const supportedDevkitVersion = "v1.0.0"

// ErrIncompatibleDevkit is returned when an active mod declares a devkit
// version newer than this launcher supports.
var ErrIncompatibleDevkit = errors.New("session: mod requires a newer devkit than this launcher supports")

// checkDevkitCompatibility rejects the launch if any active, successfully
// parsed mod declares a devkit version this launcher doesn't understand.
// Unparsed versions are ignored rather than rejected, since modinfo.json's
// devkit_version field is free-form and not every mod sets it.
func checkDevkitCompatibility(active []*model.ModEntry) error {
	for _, e := range active {
		if e == nil || !e.Parsed() {
			continue
		}
		v := e.Info.DevkitVersion
		if v == "" {
			continue
		}
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		if !semver.IsValid(v) {
			continue
		}
		if semver.Compare(v, supportedDevkitVersion) > 0 {
			return fmt.Errorf("%w: %s requires devkit %s", ErrIncompatibleDevkit, e.Info.Name, e.Info.DevkitVersion)
		}
	}
	return nil
}

// ErrPlatformNotReady is surfaced when the platform client never becomes
// ready within the caller's context (spec.md §4.12 step 1).
var ErrPlatformNotReady = errors.New("session: platform client not ready")

// ErrCapabilityDenied is returned when the required online/singleplayer
// capability is not satisfied (spec.md §4.12 step 2).
var ErrCapabilityDenied = errors.New("session: required capability not available")

// ErrBattlEyeUndetermined is returned when Auto BattlEye resolution cannot
// determine the target server's requirement and the caller declines to be
// prompted (spec.md §4.12 step 5).
var ErrBattlEyeUndetermined = errors.New("session: battleye requirement undetermined")

// Prompts abstracts the user-facing decisions the orchestrator needs during
// pre-flight; the real UI implements this, tests use a scripted stub
// (spec.md §1 Non-goals "rendering the UI itself" — only the decision
// points are part of the core's contract).
type Prompts interface {
	// ConfirmModUpdates is offered the outdated active mods; returns the
	// subset to actually update.
	ConfirmModUpdates(outdated []*model.ModEntry) []*model.ModEntry
	// ConfirmMismatch is shown the detected mismatch; returns false to
	// abort the launch.
	ConfirmMismatch(m mismatch.Mismatch) bool
	// ResolveBattlEye is consulted when Auto resolution can't determine the
	// requirement from the target server.
	ResolveBattlEye() (enabled bool, ok bool)
}

// AuthCapabilities is the subset of the Auth Manager's derived state the
// orchestrator gates on.
type AuthCapabilities interface {
	OnlineCapability() model.TaskState[model.Result[struct{}]]
	SinglePlayerCapability() model.TaskState[model.Result[struct{}]]
}

// Orchestrator sequences pre-flight checks and launch primitives (spec.md
// §4.12). It is the only component that may call Launcher.
type Orchestrator struct {
	log      zerolog.Logger
	launcher Launcher
	gameCfg  GameConfig
	mods     mismatch.ModLibrary
	auth     AuthCapabilities
	prompts  Prompts
	platform platform.Platform
}

// New builds an Orchestrator.
func New(log zerolog.Logger, launcher Launcher, gameCfg GameConfig, mods mismatch.ModLibrary, auth AuthCapabilities, prompts Prompts, plat platform.Platform) *Orchestrator {
	return &Orchestrator{
		log:      log.With().Str("component", "session").Logger(),
		launcher: launcher,
		gameCfg:  gameCfg,
		mods:     mods,
		auth:     auth,
		prompts:  prompts,
		platform: plat,
	}
}

// awaitPlatformReady polls once per second until the platform client is
// initialized or ctx is cancelled (spec.md §4.12 step 1).
func (o *Orchestrator) awaitPlatformReady(ctx context.Context) error {
	if _, ok := o.platform.User(); ok {
		return nil
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ErrPlatformNotReady
		case <-ticker.C:
			if _, ok := o.platform.User(); ok {
				return nil
			}
		}
	}
}

// requireOnline implements spec.md §4.12 step 2 for online actions.
func (o *Orchestrator) requireOnline() error {
	cap := o.auth.OnlineCapability()
	if cap.IsReady() && cap.Value().Ok() {
		return nil
	}
	return ErrCapabilityDenied
}

// applyModUpdates runs spec.md §4.12 step 3: prompts for outdated active
// mods, then drives each selected update's platform.ModUpdate to
// completion.
func (o *Orchestrator) applyModUpdates(ctx context.Context, active []*model.ModEntry) error {
	var outdated []*model.ModEntry
	for _, e := range active {
		needs, err := o.platform.NeedsUpdate(e)
		if err != nil {
			return fmt.Errorf("session: check mod update: %w", err)
		}
		if needs {
			outdated = append(outdated, e)
		}
	}
	if len(outdated) == 0 {
		return nil
	}

	selected := o.prompts.ConfirmModUpdates(outdated)
	for _, entry := range selected {
		update, err := o.platform.StartUpdate(entry)
		if err != nil {
			return fmt.Errorf("session: start mod update: %w", err)
		}
		if err := o.pollUpdate(ctx, update); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) pollUpdate(ctx context.Context, update *platform.ModUpdate) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		if update.State().IsReady() {
			result := update.State().Value()
			if !result.Ok() {
				return fmt.Errorf("session: mod update failed: %w", result.Err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// checkMismatch runs spec.md §4.12 step 4 (singleplayer continue only).
func (o *Orchestrator) checkMismatch(ins *gamesave.Inspector, active []model.ModRef) error {
	m, err := mismatch.Detect(o.mods, ins, active)
	if err != nil {
		return fmt.Errorf("session: detect mod mismatch: %w", err)
	}
	if m.IsEmpty() {
		return nil
	}
	if !o.prompts.ConfirmMismatch(m) {
		return ErrAborted
	}
	return nil
}

// resolveBattlEye implements spec.md §4.12 step 5.
func (o *Orchestrator) resolveBattlEye(policy bugleconfig.BattlEyePolicy, target *model.Server) (bool, error) {
	if enabled, fixed := policy.Always(); fixed {
		return enabled, nil
	}
	if target != nil {
		return target.BattlEyeRequired, nil
	}
	enabled, ok := o.prompts.ResolveBattlEye()
	if !ok {
		return false, ErrBattlEyeUndetermined
	}
	return enabled, nil
}

// monitor polls h once per second until it reports ready or ctx is
// cancelled (spec.md §4.12 step 6).
func (o *Orchestrator) monitor(ctx context.Context, h Handle) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		ready, err := h.Ready()
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			h.Abort()
			return ErrAborted
		case <-ticker.C:
		}
	}
}

// LaunchFresh runs the full pre-flight for a brand-new online/offline
// session and spawns the game (spec.md §4.12 "launch(options, extra_args) —
// fresh").
func (o *Orchestrator) LaunchFresh(ctx context.Context, policy bugleconfig.BattlEyePolicy, target *model.Server, active []*model.ModEntry, extraArgs string) error {
	if err := o.awaitPlatformReady(ctx); err != nil {
		return err
	}
	if target != nil {
		if err := o.requireOnline(); err != nil {
			return err
		}
	}
	if err := o.applyModUpdates(ctx, active); err != nil {
		return err
	}
	if err := checkDevkitCompatibility(active); err != nil {
		return err
	}

	battlEye, err := o.resolveBattlEye(policy, target)
	if err != nil {
		return err
	}

	opts := Options{EnableBattlEye: battlEye}
	h, err := o.launcher.Launch(opts, extraArgs)
	if err != nil {
		return err
	}
	return o.monitor(ctx, h)
}

// JoinServer implements spec.md §4.12's join_server: writes the handoff
// keys, then continues the session.
func (o *Orchestrator) JoinServer(ctx context.Context, policy bugleconfig.BattlEyePolicy, addr netip.AddrPort, target *model.Server, active []*model.ModEntry, opts Options) error {
	if err := o.awaitPlatformReady(ctx); err != nil {
		return err
	}
	if err := o.requireOnline(); err != nil {
		return err
	}
	if err := o.applyModUpdates(ctx, active); err != nil {
		return err
	}
	if err := checkDevkitCompatibility(active); err != nil {
		return err
	}

	battlEye, err := o.resolveBattlEye(policy, target)
	if err != nil {
		return err
	}
	opts.EnableBattlEye = battlEye

	if err := o.gameCfg.writeJoinKeys(addr.String()); err != nil {
		return err
	}

	h, err := o.launcher.ContinueSession(opts)
	if err != nil {
		return err
	}
	return o.monitor(ctx, h)
}

// LaunchSinglePlayer implements spec.md §4.12's launch_single_player: writes
// the handoff keys, runs the mismatch check, then continues the session.
func (o *Orchestrator) LaunchSinglePlayer(ctx context.Context, assetPath string, ins *gamesave.Inspector, active []model.ModRef, checkMismatch bool, opts Options) error {
	if err := o.awaitPlatformReady(ctx); err != nil {
		return err
	}
	cap := o.auth.SinglePlayerCapability()
	if !(cap.IsReady() && cap.Value().Ok()) {
		return ErrCapabilityDenied
	}

	if checkMismatch {
		if err := o.checkMismatch(ins, active); err != nil {
			return err
		}
	}

	if err := o.gameCfg.writeSinglePlayerKeys(assetPath); err != nil {
		return err
	}

	h, err := o.launcher.ContinueSession(opts)
	if err != nil {
		return err
	}
	return o.monitor(ctx, h)
}
