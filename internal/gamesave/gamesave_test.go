package gamesave

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/model"
)

func createTestSave(t *testing.T, worldKey string, controllers []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE game_events (id INTEGER PRIMARY KEY, value TEXT)`,
		`CREATE TABLE characters (char_name TEXT, level INTEGER, clan_name TEXT, last_time INTEGER)`,
		`CREATE TABLE mod_controllers (asset_path TEXT)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	if _, err := db.Exec(`INSERT INTO game_events (id, value) VALUES (1, ?)`, worldKey); err != nil {
		t.Fatalf("insert world key: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO characters (char_name, level, clan_name, last_time) VALUES (?, ?, ?, ?)`,
		"Conan", 60, "The Clan", 1700000000); err != nil {
		t.Fatalf("insert character: %v", err)
	}
	for _, c := range controllers {
		if _, err := db.Exec(`INSERT INTO mod_controllers (asset_path) VALUES (?)`, c); err != nil {
			t.Fatalf("insert controller: %v", err)
		}
	}

	// pad the file out so it's above the "too small to have controllers"
	// threshold
	if _, err := db.Exec(`CREATE TABLE padding (x BLOB)`); err != nil {
		t.Fatalf("create padding: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO padding (x) VALUES (zeroblob(4096))`); err != nil {
		t.Fatalf("insert padding: %v", err)
	}

	return path
}

func TestIdentifyKnownMap(t *testing.T) {
	path := createTestSave(t, "game.db", []string{"/Game/Mods/ModA/X"})

	ins, err := Open(zerolog.Nop(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	mapRef, lastChar, err := ins.Identify()
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	id, known := mapRef.Known()
	if !known || id != model.MapExiledLands {
		t.Errorf("mapRef = %+v, want known ExiledLands", mapRef)
	}
	if lastChar == nil || lastChar.Name != "Conan" {
		t.Errorf("lastChar = %+v, want Conan", lastChar)
	}
}

func TestModControllers(t *testing.T) {
	path := createTestSave(t, "siptah.db", []string{
		"/Game/Mods/ModA/Asset1",
		"/Game/Mods/ModB/Asset2",
	})

	ins, err := Open(zerolog.Nop(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	controllers, err := ins.ModControllers()
	if err != nil {
		t.Fatalf("mod controllers: %v", err)
	}
	if len(controllers) != 2 {
		t.Errorf("controllers = %v, want 2 entries", controllers)
	}
}
