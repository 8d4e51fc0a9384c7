// Package mods implements the Mod Library (spec.md §4.2): it enumerates
// installed mods from archive metadata and resolves references by
// folder-name and by path.
package mods

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/model"
	"github.com/vstojkovic/bugle/internal/pak"
)

// Root is a mod-archive directory tagged by provenance (spec.md §3 "Mods").
type Root struct {
	Path       string
	Provenance model.Provenance
}

// Mods is the library: installed entries plus by-path and by-folder
// indices, and the provenance-to-root mapping (spec.md §3).
type Mods struct {
	log zerolog.Logger

	entries []*model.ModEntry

	byPakPath map[string]int
	byFolder  map[string]int

	roots map[model.Provenance]string
}

// Load builds a Mods library by scanning every root for ".pak" files
// (spec.md §4.2 "Build Mods from a set of roots tagged by provenance").
// Entries are sorted by display name, with parse failures sorting after all
// valid entries, tie-broken on path (spec.md §4.2 "Ordering").
func Load(log zerolog.Logger, roots []Root) (*Mods, error) {
	m := &Mods{
		log:   log.With().Str("component", "mods").Logger(),
		roots: make(map[model.Provenance]string, len(roots)),
	}

	var candidates []*model.ModEntry
	for _, root := range roots {
		m.roots[root.Provenance] = root.Path

		matches, err := filepath.Glob(filepath.Join(root.Path, "*.pak"))
		if err != nil {
			return nil, fmt.Errorf("mods: glob %q: %w", root.Path, err)
		}
		for _, path := range matches {
			entry := loadEntry(path, root.Provenance)
			candidates = append(candidates, entry)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Parsed() != b.Parsed() {
			return a.Parsed()
		}
		if a.Parsed() {
			return strings.ToLower(a.Info.Name) < strings.ToLower(b.Info.Name)
		}
		return a.PakPath < b.PakPath
	})

	m.entries = candidates
	m.byPakPath = make(map[string]int, len(candidates))
	m.byFolder = make(map[string]int, len(candidates))
	for i, e := range candidates {
		m.byPakPath[e.PakPath] = i
		if e.Parsed() {
			m.byFolder[e.Info.FolderName] = i
		} else {
			m.log.Warn().Str("path", e.PakPath).Err(e.ParseError).Msg("failed to parse mod metadata")
		}
	}

	return m, nil
}

func loadEntry(path string, provenance model.Provenance) *model.ModEntry {
	entry := &model.ModEntry{PakPath: path, Provenance: provenance}

	if stat, err := os.Stat(path); err == nil {
		entry.PakSize = stat.Size()
	}

	info, err := parseModInfo(path)
	if err != nil {
		entry.ParseError = err
		return entry
	}
	entry.Info = info
	return entry
}

func parseModInfo(path string) (model.ModInfo, error) {
	a, err := pak.Open(path)
	if err != nil {
		return model.ModInfo{}, err
	}
	defer a.Close()

	raw, err := a.ReadModInfo()
	if err != nil {
		return model.ModInfo{}, err
	}

	info := model.ModInfo{
		Name:          stringField(raw, "name"),
		Description:   stringField(raw, "description"),
		Version:       stringField(raw, "version"),
		Author:        stringField(raw, "author"),
		FolderName:    stringField(raw, "foldername"),
		DevkitVersion: stringField(raw, "devkitversion"),
		WorkshopIDs:   make(map[model.Branch]uint64),
	}
	if info.FolderName == "" {
		info.FolderName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if wids, ok := raw["workshopids"].(map[string]any); ok {
		for branch, v := range wids {
			if id, ok := numberField(v); ok {
				info.WorkshopIDs[model.Branch(branch)] = id
			}
		}
	}

	return info, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func numberField(v any) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case string:
		var id uint64
		if _, err := fmt.Sscanf(n, "%d", &id); err == nil {
			return id, true
		}
	}
	return 0, false
}

// Entries returns the installed mod entries in identity order (the same
// order ModRef.Installed indexes into; spec.md §4.2).
func (m *Mods) Entries() []*model.ModEntry { return m.entries }

// RootFor returns the root directory for a provenance, if known.
func (m *Mods) RootFor(p model.Provenance) (string, bool) {
	r, ok := m.roots[p]
	return r, ok
}

// ByPakPath resolves a ModRef for a ".pak" path (spec.md §4.2): Installed if
// known, else an attempt to load it as a Custom entry, else UnknownPakPath.
func (m *Mods) ByPakPath(path string) model.ModRef {
	if idx, ok := m.byPakPath[path]; ok {
		return model.InstalledMod(idx)
	}
	if entry := loadEntry(path, model.ProvenanceLocal); entry.Parsed() {
		return model.CustomMod(entry)
	}
	return model.UnknownPakPathMod(path)
}

// ByFolder resolves a ModRef for a folder name (spec.md §4.2): Installed if
// known, else UnknownFolder.
func (m *Mods) ByFolder(folder string) model.ModRef {
	if idx, ok := m.byFolder[folder]; ok {
		return model.InstalledMod(idx)
	}
	return model.UnknownFolderMod(folder)
}
