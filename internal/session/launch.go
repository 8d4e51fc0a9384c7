// Package session implements the Session Orchestrator (spec.md §4.12): the
// pre-flight sequence and launch primitives for starting or resuming a game
// session. It is the only component permitted to spawn the game process.
//
// Grounded on cmd/atlas/main.go's top-level sequencing of startup checks
// (config validation -> component construction -> run) generalized into an
// explicit, testable pre-flight pipeline; the Game.ini/SavedCoopData key
// writes reuse gopkg.in/ini.v1 exactly as internal/bugleconfig does, per
// spec.md §6.4's "round-tripped verbatim except for the keys named here".
package session

import (
	"errors"
	"fmt"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// Options are the launch-time flags the orchestrator passes to every launch
// primitive (spec.md §4.12 step 6).
type Options struct {
	EnableBattlEye bool
	UseAllCores    bool
	ExtraArgs      string
}

// ErrAborted is returned by pre-flight steps when the user cancels a
// waiting/confirmation dialog (spec.md §4.12 steps 1, 4, 5).
var ErrAborted = errors.New("session: aborted by user")

// Handle represents a spawned game process; the orchestrator polls it once
// per second (spec.md §4.12 step 6).
type Handle interface {
	// Ready reports whether the process is confirmed running.
	Ready() (bool, error)
	// Abort signals the launch to stop (best-effort if already running).
	Abort() error
}

// Launcher is the installation-specific adapter that knows how to invoke
// the game binary and mutate its configuration files (spec.md §4.12
// "Launch primitives (delegated to an installation-specific adapter)").
type Launcher interface {
	Launch(opts Options, extraArgs string) (Handle, error)
	ContinueSession(opts Options) (Handle, error)
}

// GameConfig locates the game's Engine.ini/Game.ini pair (spec.md §6.4).
type GameConfig struct {
	ConfigDir string // <game>/ConanSandbox/Saved/Config/WindowsNoEditor
}

func (g GameConfig) gameIniPath() string { return filepath.Join(g.ConfigDir, "Game.ini") }

// loadGameIni loads Game.ini loosely, tolerating a missing file, matching
// internal/bugleconfig's round-trip discipline (spec.md §6.4 "round-tripped
// verbatim").
func (g GameConfig) loadGameIni() (*ini.File, error) {
	f, err := ini.LoadSources(ini.LoadOptions{Loose: true, AllowShadows: true}, g.gameIniPath())
	if err != nil {
		return nil, fmt.Errorf("session: load Game.ini: %w", err)
	}
	return f, nil
}

func (g GameConfig) save(f *ini.File) error {
	if err := f.SaveTo(g.gameIniPath()); err != nil {
		return fmt.Errorf("session: save Game.ini: %w", err)
	}
	return nil
}

// writeJoinKeys implements spec.md §4.12's join_server key writes:
// SavedServers.LastConnected = addr, SavedCoopData.StartedListenServerSession
// = False.
func (g GameConfig) writeJoinKeys(addr string) error {
	f, err := g.loadGameIni()
	if err != nil {
		return err
	}
	f.Section("SavedServers").Key("LastConnected").SetValue(addr)
	f.Section("SavedCoopData").Key("StartedListenServerSession").SetValue("False")
	return g.save(f)
}

// writeSinglePlayerKeys implements spec.md §4.12's launch_single_player key
// writes: SavedCoopData.LastMap, StartedListenServerSession = True,
// WasCoopEnabled = False.
func (g GameConfig) writeSinglePlayerKeys(assetPath string) error {
	f, err := g.loadGameIni()
	if err != nil {
		return err
	}
	sec := f.Section("SavedCoopData")
	sec.Key("LastMap").SetValue(assetPath)
	sec.Key("StartedListenServerSession").SetValue("True")
	sec.Key("WasCoopEnabled").SetValue("False")
	return g.save(f)
}
