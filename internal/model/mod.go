package model

import "sync/atomic"

// Provenance identifies where a mod archive came from (spec.md GLOSSARY).
type Provenance int

const (
	ProvenanceLocal Provenance = iota
	ProvenanceSteam
)

func (p Provenance) String() string {
	if p == ProvenanceSteam {
		return "Steam"
	}
	return "Local"
}

// Branch identifies a distribution channel (spec.md GLOSSARY "Branch").
type Branch string

const (
	BranchMain       Branch = "main"
	BranchPublicBeta Branch = "public-beta"
)

// ModInfo is the parsed contents of a mod's modinfo.json (spec.md §3).
type ModInfo struct {
	Name         string
	Description  string
	Version      string
	Author       string
	FolderName   string
	WorkshopIDs  map[Branch]uint64 // per-branch workshop ids, per original_source/bugle/src/game/mod_info.rs
	DevkitVersion string
}

// ModEntry is a single installed mod (spec.md §3). The parse of modinfo.json
// may have failed; ParseError is then non-nil but the entry is still listed
// (displayed as "???").
type ModEntry struct {
	PakPath    string
	PakSize    int64
	Provenance Provenance

	Info       ModInfo
	ParseError error

	needsUpdate atomic.Bool
}

// NeedsUpdate reports the mod's update flag, mutated atomically by the
// platform's Mod Directory query (spec.md §3, §5).
func (e *ModEntry) NeedsUpdate() bool { return e.needsUpdate.Load() }

// SetNeedsUpdate sets the update flag.
func (e *ModEntry) SetNeedsUpdate(v bool) { e.needsUpdate.Store(v) }

// Parsed reports whether the mod's metadata parsed successfully.
func (e *ModEntry) Parsed() bool { return e.ParseError == nil }

// modRefKind tags the ModRef sum type (spec.md §3).
type modRefKind int

const (
	modRefInstalled modRefKind = iota
	modRefCustom
	modRefUnknownFolder
	modRefUnknownPakPath
)

// ModRef is a reference to a mod, resolved one of four ways (spec.md §3).
type ModRef struct {
	kind          modRefKind
	installedIdx  int
	custom        *ModEntry
	unknownFolder string
	unknownPath   string
}

func InstalledMod(index int) ModRef  { return ModRef{kind: modRefInstalled, installedIdx: index} }
func CustomMod(entry *ModEntry) ModRef { return ModRef{kind: modRefCustom, custom: entry} }
func UnknownFolderMod(name string) ModRef { return ModRef{kind: modRefUnknownFolder, unknownFolder: name} }
func UnknownPakPathMod(path string) ModRef { return ModRef{kind: modRefUnknownPakPath, unknownPath: path} }

func (r ModRef) IsInstalled() bool      { return r.kind == modRefInstalled }
func (r ModRef) IsCustom() bool         { return r.kind == modRefCustom }
func (r ModRef) IsUnknownFolder() bool  { return r.kind == modRefUnknownFolder }
func (r ModRef) IsUnknownPakPath() bool { return r.kind == modRefUnknownPakPath }

func (r ModRef) InstalledIndex() int   { return r.installedIdx }
func (r ModRef) CustomEntry() *ModEntry { return r.custom }
func (r ModRef) FolderName() string    { return r.unknownFolder }
func (r ModRef) PakPath() string       { return r.unknownPath }

// FolderNameIn resolves the folder name of this reference given the
// installed mod slice it may index into, returning ok=false if the folder
// name cannot be determined (e.g. a custom entry whose parse failed).
func (r ModRef) FolderNameIn(installed []*ModEntry) (string, bool) {
	switch r.kind {
	case modRefInstalled:
		if r.installedIdx < 0 || r.installedIdx >= len(installed) {
			return "", false
		}
		e := installed[r.installedIdx]
		if !e.Parsed() {
			return "", false
		}
		return e.Info.FolderName, true
	case modRefCustom:
		if r.custom == nil || !r.custom.Parsed() {
			return "", false
		}
		return r.custom.Info.FolderName, true
	case modRefUnknownFolder:
		return r.unknownFolder, true
	default:
		return "", false
	}
}
