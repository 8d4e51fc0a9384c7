// Package savedservers implements the SavedServers half of the Config &
// Saved-Servers Store (spec.md §3, §4.4): a UUID-keyed persistent
// collection with secondary indices by stable id, by name, and by
// (ip, port).
//
// Grounded on pkg/api/api0/serverlist.go's ServerList, which keeps a
// primary map plus secondary maps (servers1/servers2/servers3) in lockstep
// under one mutex; adapted here to a UUID primary key (spec.md §3) backed
// by a flat JSON file rather than an in-process masterserver list.
package savedservers

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/model"
)

type addrKey struct {
	ip   netip.Addr
	port uint16
}

// Store is the UUID-keyed saved-server collection (spec.md §3, §4.4).
type Store struct {
	log  zerolog.Logger
	path string

	mu      sync.RWMutex
	servers map[uuid.UUID]*model.Server

	byID   map[string]map[uuid.UUID]struct{}
	byName map[string]map[uuid.UUID]struct{}
	byAddr map[addrKey]map[uuid.UUID]struct{}
}

// Load reads the store from path. Load errors are tolerant: any failure to
// read or parse is logged and the store starts empty (spec.md §4.4 "load is
// tolerant").
func Load(log zerolog.Logger, path string) *Store {
	s := &Store{
		log:     log.With().Str("component", "savedservers").Logger(),
		path:    path,
		servers: make(map[uuid.UUID]*model.Server),
		byID:    make(map[string]map[uuid.UUID]struct{}),
		byName:  make(map[string]map[uuid.UUID]struct{}),
		byAddr:  make(map[addrKey]map[uuid.UUID]struct{}),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("failed to read saved servers; starting empty")
		}
		return s
	}

	var entries map[uuid.UUID]*model.Server
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.log.Warn().Err(err).Msg("failed to parse saved servers; starting empty")
		return s
	}

	for id, srv := range entries {
		id := id
		srv.SavedID = &id
		s.servers[id] = srv
		s.index(id, srv)
	}
	return s
}

func (s *Store) index(id uuid.UUID, srv *model.Server) {
	addIndex(s.byID, srv.ID, id)
	addIndex(s.byName, srv.Name, id)
	addAddrIndex(s.byAddr, addrKey{srv.IP, srv.Port}, id)
}

func (s *Store) unindex(id uuid.UUID, srv *model.Server) {
	removeIndex(s.byID, srv.ID, id)
	removeIndex(s.byName, srv.Name, id)
	removeAddrIndex(s.byAddr, addrKey{srv.IP, srv.Port}, id)
}

func addIndex(m map[string]map[uuid.UUID]struct{}, key string, id uuid.UUID) {
	if m[key] == nil {
		m[key] = make(map[uuid.UUID]struct{})
	}
	m[key][id] = struct{}{}
}

func removeIndex(m map[string]map[uuid.UUID]struct{}, key string, id uuid.UUID) {
	if set, ok := m[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m, key)
		}
	}
}

func addAddrIndex(m map[addrKey]map[uuid.UUID]struct{}, key addrKey, id uuid.UUID) {
	if m[key] == nil {
		m[key] = make(map[uuid.UUID]struct{})
	}
	m[key][id] = struct{}{}
}

func removeAddrIndex(m map[addrKey]map[uuid.UUID]struct{}, key addrKey, id uuid.UUID) {
	if set, ok := m[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m, key)
		}
	}
}

// Add allocates a UUID for srv, stores it, reindexes, and persists the store
// (spec.md §4.4 "add(server) allocates a UUID, stores, reindexes, returns
// the UUID"). srv is cloned so later caller-side mutation does not alias
// the store's copy.
func (s *Store) Add(srv model.Server) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	stored := srv
	stored.SavedID = &id
	s.servers[id] = &stored
	s.index(id, &stored)

	if err := s.saveLocked(); err != nil {
		return uuid.UUID{}, err
	}
	return id, nil
}

// Remove deletes the server with the given UUID, reindexes, and persists
// (spec.md §4.4).
func (s *Store) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	srv, ok := s.servers[id]
	if !ok {
		return nil
	}
	s.unindex(id, srv)
	delete(s.servers, id)

	return s.saveLocked()
}

// Get returns a copy of the server for id, if present.
func (s *Store) Get(id uuid.UUID) (model.Server, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv, ok := s.servers[id]
	if !ok {
		return model.Server{}, false
	}
	return *srv, true
}

// Update replaces the stored server for id, preserving its UUID, reindexes,
// and persists (used by the Similarity Merger to overwrite a saved record
// from a listed one; spec.md §4.6).
func (s *Store) Update(id uuid.UUID, srv model.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.servers[id]
	if !ok {
		return fmt.Errorf("savedservers: unknown id %s", id)
	}
	s.unindex(id, old)

	stored := srv
	stored.SavedID = &id
	s.servers[id] = &stored
	s.index(id, &stored)

	return s.saveLocked()
}

// All returns a copy of every saved server, in no particular order.
func (s *Store) All() []model.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Server, 0, len(s.servers))
	for _, srv := range s.servers {
		out = append(out, *srv)
	}
	return out
}

// ByID returns the UUIDs of saved servers with the given stable id string.
func (s *Store) ByID(id string) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return keysOf(s.byID[id])
}

// ByName returns the UUIDs of saved servers with the given display name.
func (s *Store) ByName(name string) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return keysOf(s.byName[name])
}

// ByAddr returns the UUIDs of saved servers at the given (ip, port).
func (s *Store) ByAddr(ip netip.Addr, port uint16) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return keysOf(s.byAddr[addrKey{ip, port}])
}

func keysOf(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func (s *Store) saveLocked() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("savedservers: create dir: %w", err)
		}
	}

	entries := make(map[uuid.UUID]*model.Server, len(s.servers))
	for id, srv := range s.servers {
		entries[id] = srv
	}

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("savedservers: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("savedservers: write: %w", err)
	}
	return nil
}
