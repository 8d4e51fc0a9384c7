package model

// MapID is a stable integer id for a known playable map (spec.md §3),
// grounded on the teacher's pkg/nstypes.Map constant table adapted to an
// integer-keyed scheme (Conan Exiles maps are not named constants in any
// example, so the table itself is original content, but its shape --
// a package-level slice of typed records plus a lookup function -- mirrors
// pkg/nstypes/maps.go).
type MapID int

const (
	MapExiledLands MapID = iota + 1
	MapSiptah
)

// Map describes a known playable map.
type Map struct {
	ID         MapID
	Name       string
	AssetPath  string
	DBFileName string
}

var knownMaps = []Map{
	{ID: MapExiledLands, Name: "Exiled Lands", AssetPath: "/Game/Maps/ConanSandbox/ConanSandbox", DBFileName: "game.db"},
	{ID: MapSiptah, Name: "Isle of Siptah", AssetPath: "/Game/DLC/Siptah/Maps/Siptah/Siptah", DBFileName: "siptah.db"},
}

// Maps returns all known maps, mirroring pkg/nstypes.Maps().
func Maps() []Map {
	out := make([]Map, len(knownMaps))
	copy(out, knownMaps)
	return out
}

// MapByID looks up a known map by id.
func MapByID(id MapID) (Map, bool) {
	for _, m := range knownMaps {
		if m.ID == id {
			return m, true
		}
	}
	return Map{}, false
}

// MapByDBFileName resolves a map by the database filename recorded inside a
// game save (spec.md §4.3 "matching a recorded key against known maps").
func MapByDBFileName(name string) (Map, bool) {
	for _, m := range knownMaps {
		if m.DBFileName == name {
			return m, true
		}
	}
	return Map{}, false
}

// MapRef is a reference to a map, resolved either to a known map or kept as
// a raw asset path (spec.md §3).
type MapRef struct {
	known     bool
	id        MapID
	assetPath string
}

// KnownMap builds a MapRef pointing at a known map id.
func KnownMap(id MapID) MapRef { return MapRef{known: true, id: id} }

// UnknownMap builds a MapRef for an asset path with no matching known map.
func UnknownMap(assetPath string) MapRef { return MapRef{assetPath: assetPath} }

// Known reports whether the reference resolved to a known map, returning its
// id if so.
func (r MapRef) Known() (MapID, bool) { return r.id, r.known }

// AssetPath returns the unknown asset path; only meaningful when !Known().
func (r MapRef) AssetPath() string { return r.assetPath }
