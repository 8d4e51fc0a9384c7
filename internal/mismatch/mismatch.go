// Package mismatch implements the Mod Mismatch Detector (spec.md §4.10): it
// compares the active mod set against a game-save's required controllers.
package mismatch

import (
	"regexp"

	"github.com/vstojkovic/bugle/internal/gamesave"
	"github.com/vstojkovic/bugle/internal/model"
)

var controllerFolder = regexp.MustCompile(`^/Game/Mods/([^/]+)/.*`)

// ModLibrary is the subset of *mods.Mods the detector needs. Declared here
// (accept interfaces, return structs) so the detector can be tested without
// constructing real ".pak" files on disk.
type ModLibrary interface {
	Entries() []*model.ModEntry
	ByFolder(folder string) model.ModRef
}

// Mismatch is the detector's result, handed to the Session Orchestrator to
// build a user prompt (spec.md §4.10).
type Mismatch struct {
	Missing []model.ModRef // resolved back through Mods.ByFolder
	Added   []model.ModRef // preserving the active ModRef variant
}

// IsEmpty reports whether there is no mismatch at all.
func (m Mismatch) IsEmpty() bool { return len(m.Missing) == 0 && len(m.Added) == 0 }

// Detect opens the save at savePath, collects its recorded mod controllers,
// and compares their required folder names against the folder names of
// activeMods (spec.md §4.10).
func Detect(lib ModLibrary, ins *gamesave.Inspector, activeMods []model.ModRef) (Mismatch, error) {
	controllerPaths, err := ins.ModControllers()
	if err != nil {
		return Mismatch{}, err
	}

	required := make(map[string]struct{}, len(controllerPaths))
	for _, path := range controllerPaths {
		if m := controllerFolder.FindStringSubmatch(path); m != nil {
			required[m[1]] = struct{}{}
		}
	}

	active := make(map[string]struct{}, len(activeMods))
	installed := lib.Entries()
	for _, ref := range activeMods {
		if folder, ok := ref.FolderNameIn(installed); ok {
			active[folder] = struct{}{}
		}
	}

	var result Mismatch
	for folder := range required {
		if _, ok := active[folder]; !ok {
			result.Missing = append(result.Missing, lib.ByFolder(folder))
		}
	}
	for _, ref := range activeMods {
		folder, ok := ref.FolderNameIn(installed)
		if !ok {
			continue
		}
		if _, ok := required[folder]; !ok {
			result.Added = append(result.Added, ref)
		}
	}

	return result, nil
}
