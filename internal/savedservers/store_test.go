package savedservers

import (
	"net/netip"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/model"
)

func testServer(name string, port uint16) model.Server {
	return model.Server{
		ID:   "srv-" + name,
		Name: name,
		IP:   netip.MustParseAddr("127.0.0.1"),
		Port: port,
	}
}

func TestAddAssignsUUIDAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	s := Load(zerolog.Nop(), path)

	id, err := s.Add(testServer("Alpha", 7777))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id.String() == "" {
		t.Fatal("expected non-zero UUID")
	}

	reloaded := Load(zerolog.Nop(), path)
	got, ok := reloaded.Get(id)
	if !ok {
		t.Fatal("expected server to survive reload")
	}
	if got.Name != "Alpha" {
		t.Errorf("Name = %q, want Alpha", got.Name)
	}
	if got.SavedID == nil || *got.SavedID != id {
		t.Errorf("SavedID not restored correctly")
	}
}

func TestIndicesCoverLiveUUIDsOnly(t *testing.T) {
	// spec.md §8 invariant: secondary indices cover exactly the live UUIDs.
	path := filepath.Join(t.TempDir(), "servers.json")
	s := Load(zerolog.Nop(), path)

	id1, _ := s.Add(testServer("Alpha", 7777))
	id2, _ := s.Add(testServer("Bravo", 7778))

	if ids := s.ByName("Alpha"); len(ids) != 1 || ids[0] != id1 {
		t.Errorf("ByName(Alpha) = %v, want [%v]", ids, id1)
	}

	if err := s.Remove(id1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if ids := s.ByName("Alpha"); len(ids) != 0 {
		t.Errorf("expected no index entries for removed server, got %v", ids)
	}
	if ids := s.ByName("Bravo"); len(ids) != 1 || ids[0] != id2 {
		t.Errorf("ByName(Bravo) = %v, want [%v]", ids, id2)
	}

	all := s.All()
	if len(all) != 1 {
		t.Fatalf("All() len = %d, want 1", len(all))
	}
}

func TestByAddrAndByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	s := Load(zerolog.Nop(), path)

	srv := testServer("Alpha", 7777)
	srv.ID = "stable-id-1"
	id, _ := s.Add(srv)

	if ids := s.ByAddr(netip.MustParseAddr("127.0.0.1"), 7777); len(ids) != 1 || ids[0] != id {
		t.Errorf("ByAddr mismatch: %v", ids)
	}
	if ids := s.ByID("stable-id-1"); len(ids) != 1 || ids[0] != id {
		t.Errorf("ByID mismatch: %v", ids)
	}
}

func TestLoadToleratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	s := Load(zerolog.Nop(), path)
	if len(s.All()) != 0 {
		t.Fatalf("expected empty store for missing file")
	}
}

func TestUpdatePreservesUUID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	s := Load(zerolog.Nop(), path)

	id, _ := s.Add(testServer("Alpha", 7777))

	updated := testServer("Alpha Renamed", 7777)
	if err := s.Update(id, updated); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, ok := s.Get(id)
	if !ok {
		t.Fatal("expected server to still exist under same id")
	}
	if got.Name != "Alpha Renamed" {
		t.Errorf("Name = %q, want Alpha Renamed", got.Name)
	}
	if ids := s.ByName("Alpha"); len(ids) != 0 {
		t.Errorf("stale index entry for old name: %v", ids)
	}
}
