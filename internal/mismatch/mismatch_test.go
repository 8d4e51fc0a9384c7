package mismatch

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/gamesave"
	"github.com/vstojkovic/bugle/internal/model"
)

// fakeLib is a minimal stand-in for *mods.Mods so the test doesn't need real
// ".pak" files on disk; it satisfies the same shape the detector consumes.
type fakeLib struct {
	entries []*model.ModEntry
}

func (f *fakeLib) Entries() []*model.ModEntry { return f.entries }

func (f *fakeLib) ByFolder(folder string) model.ModRef {
	for i, e := range f.entries {
		if e.Parsed() && e.Info.FolderName == folder {
			return model.InstalledMod(i)
		}
	}
	return model.UnknownFolderMod(folder)
}

func createTestSave(t *testing.T, controllers []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE mod_controllers (asset_path TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, c := range controllers {
		if _, err := db.Exec(`INSERT INTO mod_controllers (asset_path) VALUES (?)`, c); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if _, err := db.Exec(`CREATE TABLE padding (x BLOB)`); err != nil {
		t.Fatalf("create padding: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO padding (x) VALUES (zeroblob(4096))`); err != nil {
		t.Fatalf("insert padding: %v", err)
	}

	return path
}

func TestDetectSeedScenario(t *testing.T) {
	// Seed scenario 4 (spec.md §8): active folders {A, B}, controller paths
	// ["/Game/Mods/A/X", "/Game/Mods/C/Y"] -> missing = {C}, added = {B}.
	lib := &fakeLib{entries: []*model.ModEntry{
		{PakPath: "a.pak", Info: model.ModInfo{FolderName: "A"}},
		{PakPath: "b.pak", Info: model.ModInfo{FolderName: "B"}},
	}}
	active := []model.ModRef{model.InstalledMod(0), model.InstalledMod(1)}

	path := createTestSave(t, []string{"/Game/Mods/A/X", "/Game/Mods/C/Y"})
	ins, err := gamesave.Open(zerolog.Nop(), path)
	if err != nil {
		t.Fatalf("open save: %v", err)
	}

	result, err := Detect(lib, ins, active)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}

	if len(result.Missing) != 1 || result.Missing[0].FolderName() != "C" {
		t.Errorf("missing = %v, want [UnknownFolder(C)]", result.Missing)
	}
	if len(result.Added) != 1 {
		t.Fatalf("added = %v, want 1 entry", result.Added)
	}
	if folder, _ := result.Added[0].FolderNameIn(lib.Entries()); folder != "B" {
		t.Errorf("added folder = %q, want B", folder)
	}
}

func TestNoMismatchWhenFoldersEqual(t *testing.T) {
	lib := &fakeLib{entries: []*model.ModEntry{
		{PakPath: "a.pak", Info: model.ModInfo{FolderName: "A"}},
	}}
	active := []model.ModRef{model.InstalledMod(0)}

	path := createTestSave(t, []string{"/Game/Mods/A/X"})
	ins, err := gamesave.Open(zerolog.Nop(), path)
	if err != nil {
		t.Fatalf("open save: %v", err)
	}

	result, err := Detect(lib, ins, active)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !result.IsEmpty() {
		t.Errorf("expected no mismatch, got %+v", result)
	}
}
